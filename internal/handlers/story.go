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

type createStoryInput struct {
	Prompt   string `json:"prompt" binding:"required"`
	Genre    string `json:"genre"`
	Length   string `json:"length" binding:"omitempty,oneof=short medium long"`
	Language string `json:"language"`
}

type StoryHandler struct {
	log     *logger.Logger
	stories repos.AIStoryRepo
	runner  *jobs.GenerationRunner
}

func NewStoryHandler(baseLog *logger.Logger, storyRepo repos.AIStoryRepo, runner *jobs.GenerationRunner) *StoryHandler {
	return &StoryHandler{
		log:     baseLog.With("handler", "StoryHandler"),
		stories: storyRepo,
		runner:  runner,
	}
}

func (h *StoryHandler) CreateStory(c *gin.Context) {
	var input createStoryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user := middleware.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
		return
	}
	if h.runner == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "story generation is not configured"})
		return
	}

	length := input.Length
	if length == "" {
		length = types.StoryLengthMedium
	}
	language := input.Language
	if language == "" {
		language = "ar"
	}

	job := &types.AIStory{
		UserID:   user.ID,
		Prompt:   input.Prompt,
		Genre:    input.Genre,
		Length:   length,
		Language: language,
		Status:   types.JobStatusProcessing,
	}
	if err := h.stories.Create(c.Request.Context(), job); err != nil {
		h.log.Error("Failed to create story job", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create story"})
		return
	}

	h.runner.Enqueue(job.ID)

	c.JSON(http.StatusAccepted, gin.H{
		"message": "بدأ إنشاء القصة",
		"storyId": job.ID,
	})
}

func (h *StoryHandler) GetStory(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	story, err := h.stories.GetByID(c.Request.Context(), id)
	if err != nil {
		h.log.Error("Failed to load story", "storyId", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load story"})
		return
	}
	if story == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "story not found"})
		return
	}
	c.JSON(http.StatusOK, story)
}

func (h *StoryHandler) ListStories(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
		return
	}
	out, err := h.stories.ListByUser(c.Request.Context(), user.ID, atoiDefault(c.Query("limit"), 20))
	if err != nil {
		h.log.Error("Failed to list stories", "userId", user.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list stories"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"stories": out})
}
