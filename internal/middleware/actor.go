package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"user-center/internal/pkg/crypto"
	"user-center/internal/pkg/logging"
)

// Actor 操作者归属中间件
// 尽力解析 Bearer Token 拿到操作者身份供审计使用，解析失败不拦截请求
func Actor(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && parts[0] == "Bearer" {
				if claims, err := crypto.ParseToken(parts[1], secret); err == nil {
					c.Set("user_id", claims.UserID)
					c.Set("user_name", claims.Name)
					c.Set("email", claims.Email)
				}
			}
		}
		c.Next()
	}
}

// ActorFrom 组装当前请求的操作者信息
func ActorFrom(c *gin.Context) logging.Actor {
	return logging.Actor{
		ID:        GetUserID(c),
		Name:      GetUserName(c),
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

// GetUserID 从上下文获取用户 ID
func GetUserID(c *gin.Context) string {
	userID, _ := c.Get("user_id")
	if id, ok := userID.(string); ok {
		return id
	}
	return ""
}

// GetUserName 从上下文获取用户名
func GetUserName(c *gin.Context) string {
	name, _ := c.Get("user_name")
	if n, ok := name.(string); ok {
		return n
	}
	return ""
}

// GetUserEmail 从上下文获取用户邮箱
func GetUserEmail(c *gin.Context) string {
	email, _ := c.Get("email")
	if e, ok := email.(string); ok {
		return e
	}
	return ""
}
