package response

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FormatErrors 错误规范化
// 字符串 -> [{message}]；字段映射 -> [{field, messages}]；列表原样透传
func FormatErrors(v interface{}) []ErrorEntry {
	switch errs := v.(type) {
	case nil:
		return nil
	case []ErrorEntry:
		return errs
	case string:
		if errs == "" {
			return nil
		}
		return []ErrorEntry{{Message: errs}}
	case []string:
		entries := make([]ErrorEntry, 0, len(errs))
		for _, m := range errs {
			entries = append(entries, ErrorEntry{Message: m})
		}
		return entries
	case map[string][]string:
		entries := make([]ErrorEntry, 0, len(errs))
		for _, field := range sortedKeys(errs) {
			entries = append(entries, ErrorEntry{Field: field, Messages: errs[field]})
		}
		return entries
	case map[string]string:
		entries := make([]ErrorEntry, 0, len(errs))
		for _, field := range sortedKeys(errs) {
			entries = append(entries, ErrorEntry{Field: field, Messages: []string{errs[field]}})
		}
		return entries
	case map[string]interface{}:
		entries := make([]ErrorEntry, 0, len(errs))
		for _, field := range sortedKeys(errs) {
			entries = append(entries, ErrorEntry{Field: field, Messages: toMessages(errs[field])})
		}
		return entries
	case validator.ValidationErrors:
		return validationEntries(errs)
	case error:
		var vErrs validator.ValidationErrors
		if ok := asValidationErrors(errs, &vErrs); ok {
			return validationEntries(vErrs)
		}
		return []ErrorEntry{{Message: errs.Error()}}
	default:
		return []ErrorEntry{{Message: fmt.Sprintf("%v", v)}}
	}
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	if vErrs, ok := err.(validator.ValidationErrors); ok {
		*target = vErrs
		return true
	}
	return false
}

// validationEntries 把 validator 错误转成字段错误列表
func validationEntries(errs validator.ValidationErrors) []ErrorEntry {
	byField := make(map[string][]string)
	order := make([]string, 0, len(errs))
	for _, e := range errs {
		field := strings.ToLower(e.Field())
		if _, seen := byField[field]; !seen {
			order = append(order, field)
		}
		byField[field] = append(byField[field], validationMessage(e))
	}

	entries := make([]ErrorEntry, 0, len(order))
	for _, field := range order {
		entries = append(entries, ErrorEntry{Field: field, Messages: byField[field]})
	}
	return entries
}

// validationMessage 常见校验规则的可读提示
func validationMessage(e validator.FieldError) string {
	field := strings.ToLower(e.Field())
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required", field)
	case "email":
		return fmt.Sprintf("The %s must be a valid email address", field)
	case "min":
		return fmt.Sprintf("The %s must be at least %s characters", field, e.Param())
	case "max":
		return fmt.Sprintf("The %s may not be greater than %s characters", field, e.Param())
	case "eqfield":
		return fmt.Sprintf("The %s must match %s", field, strings.ToLower(e.Param()))
	case "oneof":
		return fmt.Sprintf("The %s must be one of: %s", field, e.Param())
	default:
		return fmt.Sprintf("The %s failed the %s rule", field, e.Tag())
	}
}

func toMessages(v interface{}) []string {
	switch m := v.(type) {
	case string:
		return []string{m}
	case []string:
		return m
	case []interface{}:
		out := make([]string, 0, len(m))
		for _, item := range m {
			out = append(out, fmt.Sprintf("%v", item))
		}
		return out
	default:
		return []string{fmt.Sprintf("%v", v)}
	}
}
