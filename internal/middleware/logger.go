package middleware

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"user-center/internal/pkg/logging"
	"user-center/internal/pkg/utils"
)

// 请求体日志长度上限
const maxLoggedBody = 2000

// RequestLog 请求日志中间件
// 请求结束后把方法、路径、头、查询、请求体连同结果写入审计日志（脱敏在日志层完成）
func RequestLog(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		// 读取并还原请求体
		var body string
		if c.Request.Body != nil {
			bodyBytes, _ := io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
			body = utils.TruncateString(string(bodyBytes), maxLoggedBody)
		}

		headers := make(map[string]string, len(c.Request.Header))
		for k, v := range c.Request.Header {
			if len(v) > 0 {
				headers[k] = v[0]
			}
		}

		query := make(map[string]string)
		for k, v := range c.Request.URL.Query() {
			if len(v) > 0 {
				query[k] = v[0]
			}
		}

		c.Next()

		status := c.Writer.Status()
		message := http.StatusText(status)
		if len(c.Errors) > 0 {
			message = c.Errors.String()
		}

		logger.LogRequest(logging.RequestEvent{
			Method:   c.Request.Method,
			Path:     path,
			Headers:  headers,
			Query:    query,
			Body:     body,
			Status:   status,
			Duration: time.Since(start),
			IsError:  status >= http.StatusBadRequest,
			Message:  message,
			Module:   handlerModule(c),
			Actor:    ActorFrom(c),
		})
	}
}

// handlerModule 解析路由处理函数名作为模块名
func handlerModule(c *gin.Context) string {
	name := c.HandlerName()
	if name == "" {
		return logging.ModuleUnknown
	}
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	return strings.NewReplacer("(", "", ")", "", "*", "").Replace(strings.TrimSuffix(name, "-fm"))
}
