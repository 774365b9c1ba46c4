package logging

import (
	"encoding/json"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"user-center/internal/model"
	"user-center/internal/pkg/redact"
	"user-center/internal/pkg/utils"
)

const (
	// SlowThreshold 慢操作阈值，超过后额外输出性能告警
	SlowThreshold = 1000 * time.Millisecond
	// snippetLimit 性能告警中 SQL 片段的最大长度
	snippetLimit = 200
	// ModuleUnknown 无法归属调用方时的模块名
	ModuleUnknown = "unknown"
)

// Actor 触发日志的操作者信息
type Actor struct {
	ID        string
	Name      string
	IP        string
	UserAgent string
}

// RequestEvent HTTP 请求日志
type RequestEvent struct {
	Method   string
	Path     string
	Headers  map[string]string
	Query    map[string]string
	Body     string
	Status   int
	Duration time.Duration
	IsError  bool
	Message  string
	Module   string
	Actor    Actor
}

// SQLEvent 单条 SQL 日志
type SQLEvent struct {
	SQL       string
	Params    map[string]interface{}
	Operation string // 为空时按首关键字自动识别
	Duration  time.Duration
	IsError   bool
	Message   string
	Module    string
	Actor     Actor
}

// Logger 统一日志能力，注入到所有需要记录的组件
type Logger interface {
	LogRequest(e RequestEvent)
	LogSQL(e SQLEvent)
	LogSQLBatch(events []SQLEvent)
	LogDatabaseOperation(operation, entityType string, id interface{}, duration time.Duration, metadata map[string]interface{}, isError bool, message string)
	LogServiceError(module string, err error, context map[string]interface{})
	LogAuth(event string, actor Actor, context map[string]interface{})
	LogUserAction(action string, actor Actor, context map[string]interface{})
	LogPerformance(operation, module string, duration time.Duration, snippet string)
}

// AuditLogger Logger 的默认实现
// 审计行写入数据库，通道事件走 zerolog；写库失败只进兜底日志，绝不影响主流程
type AuditLogger struct {
	db  *gorm.DB
	log zerolog.Logger
}

func New(db *gorm.DB, log zerolog.Logger) *AuditLogger {
	return &AuditLogger{db: db, log: log}
}

// LogRequest 记录一次 HTTP 请求
func (l *AuditLogger) LogRequest(e RequestEvent) {
	module := e.Module
	if module == "" {
		module = ModuleUnknown
	}

	params := map[string]interface{}{
		"headers": redact.Map(toAnyMap(e.Headers), nil, redact.DefaultMask),
		"query":   redact.Map(toAnyMap(e.Query), nil, redact.DefaultMask),
		"body":    redactBody(e.Body),
		"status":  e.Status,
	}

	row := model.AuditLog{
		SQLText:    e.Method + " " + e.Path,
		SQLParams:  marshalParams(params),
		Operation:  model.OpHTTPRequest,
		DurationMs: e.Duration.Milliseconds(),
		ExecutedBy: e.Actor.Name,
		UserID:     e.Actor.ID,
		Module:     module,
		IPAddress:  e.Actor.IP,
		UserAgent:  e.Actor.UserAgent,
		IsError:    e.IsError,
		Message:    e.Message,
	}
	l.persist([]model.AuditLog{row})

	if e.Duration > SlowThreshold {
		l.LogPerformance(e.Method+" "+e.Path, module, e.Duration, e.Method+" "+e.Path)
	}
}

// LogSQL 记录单条 SQL
func (l *AuditLogger) LogSQL(e SQLEvent) {
	l.LogSQLBatch([]SQLEvent{e})
}

// LogSQLBatch 批量记录 SQL，一次多行写入
func (l *AuditLogger) LogSQLBatch(events []SQLEvent) {
	if len(events) == 0 {
		return
	}

	rows := make([]model.AuditLog, 0, len(events))
	for _, e := range events {
		rows = append(rows, l.buildSQLRow(e))
	}
	l.persist(rows)

	for i, e := range events {
		if e.Duration > SlowThreshold {
			l.LogPerformance("sql", rows[i].Module, e.Duration, e.SQL)
		}
	}
}

func (l *AuditLogger) buildSQLRow(e SQLEvent) model.AuditLog {
	op := e.Operation
	if op == "" {
		op = DetectOperation(e.SQL)
	}
	module := e.Module
	if module == "" {
		module = callerModule()
	}

	return model.AuditLog{
		SQLText:    e.SQL,
		SQLParams:  marshalParams(redact.Map(e.Params, nil, redact.DefaultMask)),
		Operation:  op,
		DurationMs: e.Duration.Milliseconds(),
		ExecutedBy: e.Actor.Name,
		UserID:     e.Actor.ID,
		Module:     module,
		IPAddress:  e.Actor.IP,
		UserAgent:  e.Actor.UserAgent,
		IsError:    e.IsError,
		Message:    e.Message,
	}
}

// LogDatabaseOperation 记录一次领域层持久化操作的结果（通道事件，不落审计表）
func (l *AuditLogger) LogDatabaseOperation(operation, entityType string, id interface{}, duration time.Duration, metadata map[string]interface{}, isError bool, message string) {
	ev := l.log.Info()
	if isError {
		ev = l.log.Error()
	}
	ev.Str("channel", "database").
		Str("operation", operation).
		Str("entity", entityType).
		Str("entity_id", fmt.Sprintf("%v", id)).
		Int64("duration_ms", duration.Milliseconds())
	if len(metadata) > 0 {
		ev.Interface("metadata", redact.Map(metadata, nil, redact.DefaultMask))
	}
	if message != "" {
		ev.Str("error", message)
	}
	ev.Msg(operation + " " + entityType)

	if duration > SlowThreshold {
		l.LogPerformance(operation+" "+entityType, callerModule(), duration, operation+" "+entityType)
	}
}

// LogServiceError 记录服务错误：通道事件 + 一行审计记录
func (l *AuditLogger) LogServiceError(module string, err error, context map[string]interface{}) {
	if err == nil {
		return
	}
	if module == "" {
		module = callerModule()
	}

	ev := l.log.Error().
		Str("channel", "service_error").
		Str("module", module).
		Str("exception", fmt.Sprintf("%T", err)).
		Err(err)
	if len(context) > 0 {
		ev.Interface("context", redact.Map(context, nil, redact.DefaultMask))
	}
	ev.Msg("service error")

	row := model.AuditLog{
		SQLText:   module + ": " + err.Error(),
		SQLParams: marshalParams(redact.Map(context, nil, redact.DefaultMask)),
		Operation: model.OpError,
		Module:    module,
		IsError:   true,
		Message:   utils.TruncateString(err.Error(), 500),
	}
	l.persist([]model.AuditLog{row})
}

// LogAuth 记录认证相关事件（仅通道）
func (l *AuditLogger) LogAuth(event string, actor Actor, context map[string]interface{}) {
	ev := l.log.Info().
		Str("channel", "auth").
		Str("event", event).
		Str("user_id", actor.ID).
		Str("ip", actor.IP).
		Str("user_agent", actor.UserAgent)
	if len(context) > 0 {
		ev.Interface("context", redact.Map(context, nil, redact.DefaultMask))
	}
	ev.Msg(event)
}

// 高危用户操作，记为 warn 级别
var highSeverityActions = map[string]bool{
	"deleted":       true,
	"force_deleted": true,
	"disabled":      true,
	"locked":        true,
	"banned":        true,
}

// LogUserAction 记录用户操作事件（仅通道）
func (l *AuditLogger) LogUserAction(action string, actor Actor, context map[string]interface{}) {
	ev := l.log.Info()
	if highSeverityActions[action] {
		ev = l.log.Warn()
	}
	ev.Str("channel", "user_action").
		Str("action", action).
		Str("user_id", actor.ID).
		Str("ip", actor.IP).
		Str("user_agent", actor.UserAgent)
	if len(context) > 0 {
		ev.Interface("context", redact.Map(context, nil, redact.DefaultMask))
	}
	ev.Msg(action)
}

// LogPerformance 慢操作告警（仅通道）
func (l *AuditLogger) LogPerformance(operation, module string, duration time.Duration, snippet string) {
	if module == "" {
		module = ModuleUnknown
	}
	l.log.Warn().
		Str("channel", "performance").
		Str("operation", operation).
		Str("module", module).
		Int64("duration_ms", duration.Milliseconds()).
		Int64("threshold_ms", SlowThreshold.Milliseconds()).
		Int64("overage_ms", (duration-SlowThreshold).Milliseconds()).
		Str("snippet", utils.TruncateString(snippet, snippetLimit)).
		Msg("slow operation")
}

// persist 写入审计表，失败只进兜底日志
func (l *AuditLogger) persist(rows []model.AuditLog) {
	if l.db == nil || len(rows) == 0 {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			l.log.Error().Interface("panic", r).Msg("审计日志写入异常")
		}
	}()
	if err := l.db.Create(&rows).Error; err != nil {
		l.log.Error().Err(err).Int("rows", len(rows)).Msg("审计日志写入失败")
	}
}

// DetectOperation 按 SQL 首关键字识别操作类型
func DetectOperation(sql string) string {
	fields := strings.Fields(strings.TrimSpace(sql))
	if len(fields) == 0 {
		return model.OpUnknown
	}
	switch strings.ToUpper(fields[0]) {
	case "SELECT":
		return model.OpSelect
	case "INSERT":
		return model.OpInsert
	case "UPDATE":
		return model.OpUpdate
	case "DELETE":
		return model.OpDelete
	case "CREATE":
		return model.OpCreate
	case "ALTER":
		return model.OpAlter
	case "DROP":
		return model.OpDrop
	default:
		return model.OpUnknown
	}
}

// callerModule 沿调用栈向上找第一个不属于日志/中间件包的调用方
// 尽力而为，找不到时返回 unknown
func callerModule() string {
	pcs := make([]uintptr, 10)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		name := frame.Function
		if name != "" &&
			!strings.Contains(name, "internal/pkg/logging") &&
			!strings.Contains(name, "internal/middleware") {
			return shortFuncName(name)
		}
		if !more {
			break
		}
	}
	return ModuleUnknown
}

// shortFuncName user-center/internal/service.(*UserService).Create -> service.UserService.Create
func shortFuncName(full string) string {
	if idx := strings.LastIndex(full, "/"); idx >= 0 {
		full = full[idx+1:]
	}
	return strings.NewReplacer("(", "", ")", "", "*", "").Replace(full)
}

func marshalParams(v interface{}) string {
	if v == nil {
		return ""
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// redactBody 请求体脱敏
// JSON 对象按键结构化脱敏，解析失败（如被截断）或非 JSON 时退回字符串脱敏
func redactBody(body string) interface{} {
	if strings.HasPrefix(strings.TrimSpace(body), "{") {
		var m map[string]interface{}
		if err := json.Unmarshal([]byte(body), &m); err == nil {
			return redact.Map(m, nil, redact.DefaultMask)
		}
	}
	return redact.String(body, redact.DefaultMask)
}

func toAnyMap(m map[string]string) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
