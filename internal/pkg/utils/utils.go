package utils

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

var fallbackSeq uint64

// GenerateID 生成时间有序的唯一标识（UUIDv7）
// 生成失败时退化为进程内计数器，保证永不失败
func GenerateID() string {
	id, err := uuid.NewV7()
	if err != nil {
		seq := atomic.AddUint64(&fallbackSeq, 1)
		return fmt.Sprintf("%d-%06d", time.Now().UnixNano(), seq)
	}
	return id.String()
}

// MaskEmail 隐藏邮箱中间部分
func MaskEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return email
	}
	name := parts[0]
	domain := parts[1]
	if len(name) <= 2 {
		return email
	}
	masked := name[0:1] + "***" + name[len(name)-1:]
	return masked + "@" + domain
}

// TruncateString 截断超长字符串
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
