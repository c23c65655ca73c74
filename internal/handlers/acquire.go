package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sulafhq/sulaf-backend/internal/jobs"
	"github.com/sulafhq/sulaf-backend/internal/logger"
	"github.com/sulafhq/sulaf-backend/internal/middleware"
	"github.com/sulafhq/sulaf-backend/internal/repos"
	"github.com/sulafhq/sulaf-backend/internal/types"
)

type createRequestInput struct {
	URL      string `json:"url" binding:"required,url"`
	Title    string `json:"title" binding:"required"`
	Author   string `json:"author"`
	Category string `json:"category"`
	Cover    string `json:"cover"`
}

type AcquireHandler struct {
	log      *logger.Logger
	requests repos.BookRequestRepo
	runner   *jobs.AcquisitionRunner
}

func NewAcquireHandler(baseLog *logger.Logger, requests repos.BookRequestRepo, runner *jobs.AcquisitionRunner) *AcquireHandler {
	return &AcquireHandler{
		log:      baseLog.With("handler", "AcquireHandler"),
		requests: requests,
		runner:   runner,
	}
}

// CreateBookRequest records the acquisition job and schedules it. The
// response returns immediately with the request id to poll.
func (h *AcquireHandler) CreateBookRequest(c *gin.Context) {
	var input createRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user := middleware.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
		return
	}

	req := &types.BookRequest{
		UserID:    user.ID,
		Title:     input.Title,
		Author:    input.Author,
		Category:  input.Category,
		CoverURL:  input.Cover,
		SourceURL: input.URL,
		Status:    types.JobStatusProcessing,
	}
	if err := h.requests.Create(c.Request.Context(), req); err != nil {
		h.log.Error("Failed to create book request", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create request"})
		return
	}

	h.runner.Enqueue(req.ID)

	c.JSON(http.StatusAccepted, gin.H{
		"message":   "بدأ تحميل الكتاب",
		"requestId": req.ID,
	})
}

func (h *AcquireHandler) GetBookRequest(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	req, err := h.requests.GetByID(c.Request.Context(), id)
	if err != nil {
		h.log.Error("Failed to load book request", "requestId", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load request"})
		return
	}
	if req == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "request not found"})
		return
	}
	c.JSON(http.StatusOK, req)
}

func (h *AcquireHandler) ListBookRequests(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
		return
	}
	out, err := h.requests.ListByUser(c.Request.Context(), user.ID, atoiDefault(c.Query("limit"), 20))
	if err != nil {
		h.log.Error("Failed to list book requests", "userId", user.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list requests"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": out})
}
