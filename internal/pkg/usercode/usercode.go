package usercode

import (
	"crypto/rand"
	"math/big"
	"strings"
	"time"
)

const (
	// CodeLength 用户编号固定长度
	CodeLength = 14 + 6
	// baseLength 时间戳前缀长度（YYYYMMDDHHmmss）
	baseLength = 14
	// maxRetries 碰撞重试次数上限
	maxRetries = 5
)

// Generate 生成 20 位数字用户编号
// seed 为调用方提供的种子（可为空），exists 用于生成前的唯一性检查
// 编号以当前时间戳为前缀，不足部分以随机数字补齐
func Generate(seed string, now time.Time, exists func(code string) bool) string {
	base := now.Format("20060102150405")

	candidate := base
	if seed != "" {
		digits := stripNonDigits(seed)
		if digits != "" {
			if len(digits) > CodeLength {
				digits = digits[:CodeLength]
			}
			// 种子必须在时间戳前缀之上扩展，否则丢弃
			if len(digits) >= baseLength && strings.HasPrefix(digits, base) {
				candidate = digits
			}
		}
	}

	if len(candidate) < CodeLength {
		candidate += randomDigits(CodeLength - len(candidate))
	}

	if exists == nil || !exists(candidate) {
		return candidate
	}

	// 碰撞：以时间戳为基础追加随机数字重试
	suffixLen := CodeLength - baseLength
	if suffixLen > 6 {
		suffixLen = 6
	}
	for i := 0; i < maxRetries; i++ {
		candidate = base + randomDigits(suffixLen)
		if len(candidate) < CodeLength {
			candidate += randomDigits(CodeLength - len(candidate))
		}
		if !exists(candidate) {
			return candidate
		}
	}

	// 重试仍碰撞：剩余位数补随机，无剩余时替换末两位
	if len(candidate) < CodeLength {
		candidate += randomDigits(CodeLength - len(candidate))
	} else {
		candidate = candidate[:CodeLength-2] + randomDigits(2)
	}
	return candidate
}

// stripNonDigits 去除所有非数字字符
func stripNonDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// randomDigits 生成 n 位随机十进制数字
func randomDigits(n int) string {
	const digits = "0123456789"
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			// crypto/rand 不可用时退化为时间噪声
			b[i] = digits[time.Now().UnixNano()%10]
			continue
		}
		b[i] = digits[idx.Int64()]
	}
	return string(b)
}
