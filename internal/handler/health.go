package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"user-center/internal/middleware"
	"user-center/internal/pkg/response"
)

type HealthHandler struct {
	startedAt time.Time
}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{startedAt: time.Now()}
}

// Health 健康检查
func (h *HealthHandler) Health(c *gin.Context) {
	response.New(c).
		SetCorrelationID(middleware.CorrelationID(c)).
		Success(gin.H{
			"status": "ok",
			"uptime": int64(time.Since(h.startedAt).Seconds()),
		})
}
