package middleware

import (
	"github.com/gin-gonic/gin"

	"user-center/internal/pkg/logging"
)

// SQLCapture SQL 采集中间件
// 在请求上下文挂采集器，gorm 执行的每条 SQL 进入采集器，请求结束后批量落审计表
func SQLCapture(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, collector := logging.WithCollector(c.Request.Context())
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		events := collector.Drain()
		if len(events) == 0 {
			return
		}

		actor := ActorFrom(c)
		module := handlerModule(c)
		for i := range events {
			events[i].Actor = actor
			if events[i].Module == "" {
				events[i].Module = module
			}
		}
		logger.LogSQLBatch(events)
	}
}
