package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"user-center/internal/middleware"
	"user-center/internal/model"
	"user-center/internal/pkg/logging"
	"user-center/internal/pkg/response"
)

type AuditHandler struct {
	logger logging.Logger
}

func NewAuditHandler(logger logging.Logger) *AuditHandler {
	return &AuditHandler{logger: logger}
}

func (h *AuditHandler) resp(c *gin.Context) *response.Builder {
	return response.New(c).
		WithErrorLogger(h.logger).
		SetCorrelationID(middleware.CorrelationID(c))
}

// List 审计日志列表，支持按操作类型/模块/用户/错误标记过滤
func (h *AuditHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	query := model.DB.WithContext(c.Request.Context()).Model(&model.AuditLog{})

	if op := c.Query("operation"); op != "" {
		query = query.Where("operation = ?", op)
	}
	if module := c.Query("module"); module != "" {
		query = query.Where("module = ?", module)
	}
	if userID := c.Query("user_id"); userID != "" {
		query = query.Where("user_id = ?", userID)
	}
	if isError := c.Query("is_error"); isError != "" {
		query = query.Where("is_error = ?", isError == "true")
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		h.resp(c).ServerError("Failed to count audit logs", err)
		return
	}

	var logs []model.AuditLog
	if err := query.
		Offset((page - 1) * perPage).Limit(perPage).
		Order("created_at DESC").
		Find(&logs).Error; err != nil {
		h.resp(c).ServerError("Failed to list audit logs", err)
		return
	}

	h.resp(c).Paginated(logs, response.NewPagination(page, perPage, total), "Success", true)
}

// Stats 按操作类型统计最近 N 天的审计日志
func (h *AuditHandler) Stats(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "7"))
	if days < 1 || days > 365 {
		days = 7
	}
	since := time.Now().AddDate(0, 0, -days)

	var operationStats []struct {
		Operation string `json:"operation"`
		Count     int64  `json:"count"`
	}
	if err := model.DB.WithContext(c.Request.Context()).
		Model(&model.AuditLog{}).
		Select("operation, count(*) as count").
		Where("created_at >= ?", since).
		Group("operation").
		Find(&operationStats).Error; err != nil {
		h.resp(c).ServerError("Failed to compute audit statistics", err)
		return
	}

	var errorCount int64
	if err := model.DB.WithContext(c.Request.Context()).
		Model(&model.AuditLog{}).
		Where("created_at >= ? AND is_error = ?", since, true).
		Count(&errorCount).Error; err != nil {
		h.resp(c).ServerError("Failed to compute audit statistics", err)
		return
	}

	h.resp(c).
		WithMeta(map[string]interface{}{"days": days}).
		Success(gin.H{
			"operation_stats": operationStats,
			"error_count":     errorCount,
		})
}
