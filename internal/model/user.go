package model

import (
	"time"

	"gorm.io/gorm"

	"user-center/internal/pkg/crypto"
)

// User 用户模型
// Code 是对外可分享的 20 位数字编号，与自增主键 ID 分离
type User struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	Code            string         `gorm:"type:char(20);uniqueIndex;not null" json:"code"`
	Name            string         `gorm:"type:varchar(50);not null" json:"name"`
	Email           string         `gorm:"type:varchar(100);uniqueIndex;not null" json:"email"`
	Password        string         `gorm:"type:varchar(255);not null" json:"-"`
	Phone           *string        `gorm:"type:varchar(20);uniqueIndex" json:"phone"`
	DateOfBirth     *time.Time     `json:"date_of_birth"`
	Gender          string         `gorm:"type:varchar(10)" json:"gender"`
	Avatar          string         `gorm:"type:varchar(500)" json:"avatar"`
	EmailVerifiedAt *time.Time     `json:"email_verified_at"`
	Enabled         bool           `gorm:"default:true" json:"enabled"`
	LockedUntil     *time.Time     `json:"locked_until"`
	LockCount       int            `gorm:"default:0" json:"lock_count"`
	CreatedBy       string         `gorm:"type:varchar(100)" json:"created_by"`
	UpdatedBy       string         `gorm:"type:varchar(100)" json:"updated_by"`
	DeletedBy       string         `gorm:"type:varchar(100)" json:"deleted_by"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// SetPassword 设置密码（加密）
func (u *User) SetPassword(password string) error {
	hashedPassword, err := crypto.HashPassword(password)
	if err != nil {
		return err
	}
	u.Password = hashedPassword
	return nil
}

// CheckPassword 验证密码
func (u *User) CheckPassword(password string) bool {
	return crypto.CheckPassword(password, u.Password)
}

// IsLocked 是否处于锁定状态（锁定截止时间在未来）
func (u *User) IsLocked() bool {
	return u.LockedUntil != nil && u.LockedUntil.After(time.Now())
}

// IsActive 是否可用（已启用且未锁定）
func (u *User) IsActive() bool {
	return u.Enabled && !u.IsLocked()
}
