package model

import (
	"time"

	"gorm.io/gorm"

	"user-center/internal/pkg/utils"
)

// AuditLog 审计日志模型
// 每条 HTTP 请求、SQL 执行或服务错误对应一行，只追加不更新
type AuditLog struct {
	ID         string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	SQLText    string    `gorm:"type:text;column:sql_text" json:"sql_text"`
	SQLParams  string    `gorm:"type:text;column:sql_params" json:"sql_params"` // 脱敏后的 JSON
	Operation  string    `gorm:"type:varchar(20);index;not null" json:"operation"`
	DurationMs int64     `gorm:"type:bigint" json:"duration_ms"`
	ExecutedBy string    `gorm:"type:varchar(100)" json:"executed_by"`
	UserID     string    `gorm:"type:varchar(36);index" json:"user_id"`
	Module     string    `gorm:"type:varchar(100);index" json:"module"`
	IPAddress  string    `gorm:"type:varchar(45)" json:"ip_address"`
	UserAgent  string    `gorm:"type:varchar(500)" json:"user_agent"`
	IsError    bool      `gorm:"default:false" json:"is_error"`
	Message    string    `gorm:"type:varchar(500)" json:"message"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

// BeforeCreate 创建前生成时间有序 ID
func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = utils.GenerateID()
	}
	return nil
}

// 操作类型常量
const (
	OpSelect      = "SELECT"
	OpInsert      = "INSERT"
	OpUpdate      = "UPDATE"
	OpDelete      = "DELETE"
	OpCreate      = "CREATE"
	OpAlter       = "ALTER"
	OpDrop        = "DROP"
	OpHTTPRequest = "HTTP_REQUEST"
	OpError       = "ERROR"
	OpUnknown     = "UNKNOWN"
)
