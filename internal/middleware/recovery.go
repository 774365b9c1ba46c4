package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"user-center/internal/pkg/logging"
	"user-center/internal/pkg/response"
)

// Recovery 兜底恢复中间件
// panic 先进服务错误通道，再返回 500 信封，release 模式下不暴露细节
func Recovery(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				err := fmt.Errorf("panic recovered: %v", r)
				logger.LogServiceError(handlerModule(c), err, map[string]interface{}{
					"method": c.Request.Method,
					"path":   c.Request.URL.Path,
				})

				response.New(c).
					SetCorrelationID(CorrelationID(c)).
					ServerError(err.Error(), err)
				c.Abort()
			}
		}()
		c.Next()
	}
}
