package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type HealthcheckHandler struct {
	startedAt time.Time
}

func NewHealthcheckHandler() *HealthcheckHandler {
	return &HealthcheckHandler{startedAt: time.Now()}
}

func (h *HealthcheckHandler) Healthcheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(h.startedAt).String(),
	})
}
