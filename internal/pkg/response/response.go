package response

import (
	"fmt"
	"net/http"
	"reflect"
	"runtime"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Envelope 统一响应结构
type Envelope struct {
	Success       bool                   `json:"success"`
	Message       string                 `json:"message"`
	Code          int                    `json:"code"`
	Data          interface{}            `json:"data,omitempty"`
	Errors        []ErrorEntry           `json:"errors,omitempty"`
	CorrelationID string                 `json:"correlation_id,omitempty"`
	Links         map[string]string      `json:"links,omitempty"`
	Meta          map[string]interface{} `json:"meta,omitempty"`
	Debug         map[string]interface{} `json:"debug,omitempty"`
	Timestamp     string                 `json:"timestamp"`
	RequestID     string                 `json:"request_id,omitempty"`
}

// ErrorEntry 规范化后的单条错误
type ErrorEntry struct {
	Field    string   `json:"field,omitempty"`
	Messages []string `json:"messages,omitempty"`
	Message  string   `json:"message,omitempty"`
}

// Pagination 分页信息
type Pagination struct {
	CurrentPage  int   `json:"current_page"`
	PerPage      int   `json:"per_page"`
	Total        int64 `json:"total"`
	LastPage     int   `json:"last_page"`
	From         int   `json:"from"`
	To           int   `json:"to"`
	HasMorePages bool  `json:"has_more_pages"`
}

// NewPagination 按总数计算分页信息
func NewPagination(page, perPage int, total int64) Pagination {
	lastPage := int((total + int64(perPage) - 1) / int64(perPage))
	if lastPage < 1 {
		lastPage = 1
	}
	from := (page-1)*perPage + 1
	to := page * perPage
	if int64(to) > total {
		to = int(total)
	}
	if total == 0 {
		from = 0
		to = 0
	}
	return Pagination{
		CurrentPage:  page,
		PerPage:      perPage,
		Total:        total,
		LastPage:     lastPage,
		From:         from,
		To:           to,
		HasMorePages: page < lastPage,
	}
}

// ErrorLogger 异常上报能力，由日志子系统实现
type ErrorLogger interface {
	LogServiceError(module string, err error, context map[string]interface{})
}

// Builder 响应构造器，每个请求一个实例
// 终结调用后可变状态全部清空，避免泄漏到下一次响应
type Builder struct {
	c      *gin.Context
	logger ErrorLogger

	correlationID string
	links         map[string]string
	meta          map[string]interface{}
	debug         map[string]interface{}
}

func New(c *gin.Context) *Builder {
	return &Builder{c: c}
}

// WithErrorLogger 注入异常日志能力
func (b *Builder) WithErrorLogger(l ErrorLogger) *Builder {
	b.logger = l
	return b
}

// SetCorrelationID 设置关联 ID，随响应体和 X-Correlation-ID 头返回
func (b *Builder) SetCorrelationID(id string) *Builder {
	b.correlationID = id
	return b
}

// WithDebug 附加调试信息，release 模式下不生效
func (b *Builder) WithDebug(m map[string]interface{}) *Builder {
	if gin.Mode() == gin.ReleaseMode {
		return b
	}
	if b.debug == nil {
		b.debug = make(map[string]interface{})
	}
	for k, v := range m {
		b.debug[k] = v
	}
	return b
}

// WithLinks 附加 HATEOAS 链接
func (b *Builder) WithLinks(m map[string]string) *Builder {
	if b.links == nil {
		b.links = make(map[string]string)
	}
	for k, v := range m {
		b.links[k] = v
	}
	return b
}

// WithMeta 附加元信息
func (b *Builder) WithMeta(m map[string]interface{}) *Builder {
	if b.meta == nil {
		b.meta = make(map[string]interface{})
	}
	for k, v := range m {
		b.meta[k] = v
	}
	return b
}

func (b *Builder) metaSet(key string, v interface{}) {
	if b.meta == nil {
		b.meta = make(map[string]interface{})
	}
	b.meta[key] = v
}

// ==================== 终结调用 ====================

// Success 成功响应
func (b *Builder) Success(data interface{}) {
	b.SuccessWithMessage("Success", data)
}

// SuccessWithMessage 成功响应带消息
func (b *Builder) SuccessWithMessage(message string, data interface{}) {
	b.emit(http.StatusOK, Envelope{
		Success: true,
		Message: message,
		Code:    http.StatusOK,
		Data:    data,
	})
}

// Created 资源创建成功，location 非空时设置 Location 头
func (b *Builder) Created(data interface{}, message string, location string) {
	if location != "" {
		b.c.Header("Location", location)
	}
	if message == "" {
		message = "Created"
	}
	b.emit(http.StatusCreated, Envelope{
		Success: true,
		Message: message,
		Code:    http.StatusCreated,
		Data:    data,
	})
}

// Accepted 请求已受理
func (b *Builder) Accepted(data interface{}, message string) {
	b.emit(http.StatusAccepted, Envelope{
		Success: true,
		Message: message,
		Code:    http.StatusAccepted,
		Data:    data,
	})
}

// NoContent 空响应
func (b *Builder) NoContent() {
	b.securityHeaders()
	b.c.Status(http.StatusNoContent)
	b.reset()
}

// Error 错误响应
func (b *Builder) Error(message string, code int, errs interface{}) {
	b.emit(code, Envelope{
		Success: false,
		Message: message,
		Code:    code,
		Errors:  FormatErrors(errs),
	})
}

// ErrorWithException 错误响应并上报异常
// 非 release 模式在 debug 块附加异常类型与触发位置
func (b *Builder) ErrorWithException(message string, code int, err error) {
	b.logException(err)
	b.attachExceptionDebug(err, 2)
	b.Error(message, code, nil)
}

// NotFound 资源不存在
func (b *Builder) NotFound(message string) {
	b.Error(message, http.StatusNotFound, nil)
}

// NotFoundResource 按资源类型生成 404 消息
func (b *Builder) NotFoundResource(resourceType string) {
	b.NotFound(resourceType + " not found")
}

// ValidationError 参数校验失败
func (b *Builder) ValidationError(errs interface{}) {
	b.ValidationErrorWithMessage("Validation failed", errs)
}

// ValidationErrorWithMessage 参数校验失败带消息
func (b *Builder) ValidationErrorWithMessage(message string, errs interface{}) {
	b.Error(message, http.StatusUnprocessableEntity, errs)
}

// Unauthorized 未认证，realm 非空时设置 WWW-Authenticate 头
func (b *Builder) Unauthorized(message string, realm string) {
	if realm != "" {
		b.c.Header("WWW-Authenticate", fmt.Sprintf("Bearer realm=%q", realm))
	}
	b.Error(message, http.StatusUnauthorized, nil)
}

// Forbidden 禁止访问，reason 并入 meta
func (b *Builder) Forbidden(message string, reason string) {
	if reason != "" {
		b.metaSet("reason", reason)
	}
	b.Error(message, http.StatusForbidden, nil)
}

// ServerError 服务器错误
// release 模式下对外统一返回通用消息
func (b *Builder) ServerError(message string, err error) {
	b.logException(err)
	b.attachExceptionDebug(err, 2)
	if gin.Mode() == gin.ReleaseMode {
		message = "Internal server error"
	}
	b.Error(message, http.StatusInternalServerError, nil)
}

// Conflict 资源冲突
func (b *Builder) Conflict(message string, conflicts interface{}) {
	b.Error(message, http.StatusConflict, conflicts)
}

// TooManyRequests 触发限流，设置 Retry-After
func (b *Builder) TooManyRequests(message string, retryAfterSeconds int) {
	if retryAfterSeconds > 0 {
		b.c.Header("Retry-After", strconv.Itoa(retryAfterSeconds))
		b.metaSet("retry_after", retryAfterSeconds)
	}
	b.Error(message, http.StatusTooManyRequests, nil)
}

// Paginated 分页响应，withLinks 时自动推导 self/first/last/prev/next
func (b *Builder) Paginated(items interface{}, p Pagination, message string, withLinks bool) {
	if withLinks {
		b.WithLinks(b.pageLinks(p))
	}
	b.emit(http.StatusOK, Envelope{
		Success: true,
		Message: message,
		Code:    http.StatusOK,
		Data: gin.H{
			"items":      items,
			"pagination": p,
		},
	})
}

// BulkOperation 批量操作响应
func (b *Builder) BulkOperation(operation string, successCount, failCount int, results interface{}) {
	data := gin.H{
		"summary": gin.H{
			"total":      successCount + failCount,
			"successful": successCount,
			"failed":     failCount,
		},
	}
	if results != nil {
		data["results"] = results
	}
	b.emit(http.StatusOK, Envelope{
		Success: true,
		Message: fmt.Sprintf("Bulk %s completed: %d successful, %d failed", operation, successCount, failCount),
		Code:    http.StatusOK,
		Data:    data,
	})
}

// Collection 集合响应，meta 带条目数
func (b *Builder) Collection(items interface{}, message string) {
	b.metaSet("count", itemCount(items))
	b.emit(http.StatusOK, Envelope{
		Success: true,
		Message: message,
		Code:    http.StatusOK,
		Data:    gin.H{"items": items},
	})
}

// PartialContent 部分内容响应，设置 Content-Range
func (b *Builder) PartialContent(data interface{}, from, to, total int, message string) {
	b.c.Header("Content-Range", fmt.Sprintf("items %d-%d/%d", from, to, total))
	b.metaSet("range", gin.H{"from": from, "to": to, "total": total})
	b.emit(http.StatusPartialContent, Envelope{
		Success: true,
		Message: message,
		Code:    http.StatusPartialContent,
		Data:    data,
	})
}

// ==================== 内部 ====================

func (b *Builder) emit(status int, env Envelope) {
	env.Timestamp = time.Now().UTC().Format(time.RFC3339)
	env.CorrelationID = b.correlationID
	env.Links = b.links
	env.Meta = b.meta
	env.Debug = b.debug
	if rid := b.c.GetHeader("X-Request-ID"); rid != "" {
		env.RequestID = rid
	}

	b.securityHeaders()
	b.c.JSON(status, env)
	b.reset()
}

func (b *Builder) securityHeaders() {
	b.c.Header("X-Content-Type-Options", "nosniff")
	b.c.Header("X-Frame-Options", "DENY")
	b.c.Header("X-XSS-Protection", "1; mode=block")
	if b.correlationID != "" {
		b.c.Header("X-Correlation-ID", b.correlationID)
	}
}

// reset 清空可变状态，终结调用后执行
func (b *Builder) reset() {
	b.correlationID = ""
	b.links = nil
	b.meta = nil
	b.debug = nil
}

func (b *Builder) logException(err error) {
	if err == nil || b.logger == nil {
		return
	}
	b.logger.LogServiceError("", err, map[string]interface{}{
		"method": b.c.Request.Method,
		"path":   b.c.Request.URL.Path,
	})
}

func (b *Builder) attachExceptionDebug(err error, skip int) {
	if err == nil || gin.Mode() == gin.ReleaseMode {
		return
	}
	file, line := "unknown", 0
	if _, f, l, ok := runtime.Caller(skip); ok {
		file, line = f, l
	}
	b.WithDebug(map[string]interface{}{
		"exception": fmt.Sprintf("%T", err),
		"error":     err.Error(),
		"file":      file,
		"line":      line,
	})
}

// pageLinks 推导分页链接，保留请求中的其它查询参数（如过滤条件）
func (b *Builder) pageLinks(p Pagination) map[string]string {
	base := b.c.Request.URL.Path
	query := b.c.Request.URL.Query()
	query.Set("per_page", strconv.Itoa(p.PerPage))
	mk := func(page int) string {
		query.Set("page", strconv.Itoa(page))
		return base + "?" + query.Encode()
	}
	links := map[string]string{
		"self":  mk(p.CurrentPage),
		"first": mk(1),
		"last":  mk(p.LastPage),
	}
	if p.CurrentPage > 1 {
		links["prev"] = mk(p.CurrentPage - 1)
	}
	if p.HasMorePages {
		links["next"] = mk(p.CurrentPage + 1)
	}
	return links
}

func itemCount(items interface{}) int {
	if items == nil {
		return 0
	}
	v := reflect.ValueOf(items)
	switch v.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return v.Len()
	default:
		return 1
	}
}

// sortedKeys map 键排序，保证错误列表顺序稳定
func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
