package redact

import (
	"regexp"
	"strings"
)

// DefaultMask 默认脱敏占位符
const DefaultMask = "***"

// DefaultKeys 默认敏感字段集合（小写）
var DefaultKeys = map[string]bool{
	"password":              true,
	"password_confirmation": true,
	"token":                 true,
	"secret":                true,
	"api_key":               true,
	"credit_card":           true,
	"cvv":                   true,
	"pin":                   true,
	"authorization":         true,
	"access_token":          true,
	"refresh_token":         true,
	"client_secret":         true,
	"signature":             true,
}

const sensitiveNames = `password_confirmation|password|token|secret|api_key|credit_card|cvv|pin|authorization|access_token|refresh_token|client_secret|signature`

// 匹配 key:value / key=value 形式的敏感片段（如请求头文本）
var keyValuePattern = regexp.MustCompile(`(?i)\b(` + sensitiveNames + `)\b(\s*[:=]\s*)([^\r\n,;&]+)`)

// 匹配 JSON 文本中 "key":"value" 形式的敏感片段
var jsonKeyValuePattern = regexp.MustCompile(`(?i)"(` + sensitiveNames + `)"(\s*:\s*)"(?:[^"\\]|\\.)*"`)

// Map 递归脱敏字典，敏感字段的值替换为 mask，返回新字典
// 输入为 nil 时原样返回，绝不 panic
func Map(data map[string]interface{}, keys map[string]bool, mask string) map[string]interface{} {
	if data == nil {
		return nil
	}
	if keys == nil {
		keys = DefaultKeys
	}
	if mask == "" {
		mask = DefaultMask
	}

	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		if keys[strings.ToLower(k)] {
			out[k] = mask
			continue
		}
		switch nested := v.(type) {
		case map[string]interface{}:
			out[k] = Map(nested, keys, mask)
		case map[string]string:
			m := make(map[string]interface{}, len(nested))
			for nk, nv := range nested {
				m[nk] = nv
			}
			out[k] = Map(m, keys, mask)
		default:
			out[k] = v
		}
	}
	return out
}

// String 脱敏字符串中敏感键的值，保留键名和分隔符
// 同时覆盖 JSON 文本（"key":"value"）和裸文本（key=value / key: value）两种形态
func String(s string, mask string) string {
	if s == "" {
		return s
	}
	if mask == "" {
		mask = DefaultMask
	}
	s = jsonKeyValuePattern.ReplaceAllString(s, `"${1}"${2}"`+mask+`"`)
	return keyValuePattern.ReplaceAllString(s, "${1}${2}"+mask)
}

// Any 按输入类型分发脱敏，未知类型原样返回
func Any(v interface{}, keys map[string]bool, mask string) interface{} {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		return String(val, mask)
	case map[string]interface{}:
		return Map(val, keys, mask)
	case map[string]string:
		m := make(map[string]interface{}, len(val))
		for k, s := range val {
			m[k] = s
		}
		return Map(m, keys, mask)
	default:
		return v
	}
}
