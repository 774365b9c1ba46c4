package logging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GormRecorder 实现 gorm 的 logger.Interface
// 把请求期间执行的每条 SQL 投递到上下文采集器，gorm 自身日志走 zerolog
type GormRecorder struct {
	log zerolog.Logger
}

func NewGormRecorder(log zerolog.Logger) *GormRecorder {
	return &GormRecorder{log: log}
}

func (r *GormRecorder) LogMode(gormlogger.LogLevel) gormlogger.Interface {
	return r
}

func (r *GormRecorder) Info(ctx context.Context, msg string, data ...interface{}) {
	r.log.Info().Str("channel", "gorm").Msg(fmt.Sprintf(msg, data...))
}

func (r *GormRecorder) Warn(ctx context.Context, msg string, data ...interface{}) {
	r.log.Warn().Str("channel", "gorm").Msg(fmt.Sprintf(msg, data...))
}

func (r *GormRecorder) Error(ctx context.Context, msg string, data ...interface{}) {
	r.log.Error().Str("channel", "gorm").Msg(fmt.Sprintf(msg, data...))
}

// Trace 每条 SQL 执行后的回调
func (r *GormRecorder) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	col := CollectorFrom(ctx)
	if col == nil {
		return
	}

	sql, rows := fc()
	elapsed := time.Since(begin)

	// 记录未命中不算错误
	isErr := err != nil && !errors.Is(err, gorm.ErrRecordNotFound)
	msg := ""
	if isErr {
		msg = err.Error()
	}

	col.Add(SQLEvent{
		SQL:      sql,
		Params:   map[string]interface{}{"rows_affected": rows},
		Duration: elapsed,
		IsError:  isErr,
		Message:  msg,
	})
}
