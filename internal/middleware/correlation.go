package middleware

import (
	"github.com/gin-gonic/gin"

	"user-center/internal/pkg/utils"
)

const (
	// HeaderCorrelationID 关联 ID 请求/响应头
	HeaderCorrelationID = "X-Correlation-ID"

	contextKeyCorrelationID = "correlation_id"
)

// Correlation 关联 ID 中间件
// 沿用入站头中的值，没有则生成时间有序的新 ID，并回写响应头
func Correlation() gin.HandlerFunc {
	return func(c *gin.Context) {
		cid := c.GetHeader(HeaderCorrelationID)
		if cid == "" {
			cid = utils.GenerateID()
		}

		c.Set(contextKeyCorrelationID, cid)
		c.Header(HeaderCorrelationID, cid)

		c.Next()
	}
}

// CorrelationID 从上下文获取本次请求的关联 ID
func CorrelationID(c *gin.Context) string {
	cid, _ := c.Get(contextKeyCorrelationID)
	if id, ok := cid.(string); ok {
		return id
	}
	return ""
}
