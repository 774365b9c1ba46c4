package model

import (
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"user-center/internal/config"
)

var DB *gorm.DB

// InitDB 初始化数据库连接
// gormLogger 传入 SQL 采集器，nil 时使用 gorm 默认日志
func InitDB(cfg *config.DatabaseConfig, gormLogger logger.Interface) error {
	if gormLogger == nil {
		logLevel := logger.Silent
		if config.Get().Server.Mode == "debug" {
			logLevel = logger.Info
		}
		gormLogger = logger.Default.LogMode(logLevel)
	}

	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		return err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)

	DB = db
	return nil
}

// AutoMigrate 自动迁移数据库表
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&AuditLog{},
	)
}
