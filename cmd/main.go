package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"user-center/internal/config"
	"user-center/internal/handler"
	"user-center/internal/model"
	"user-center/internal/pkg/logging"
	"user-center/internal/pkg/utils"
	"user-center/internal/service"
)

func main() {
	// 命令行参数
	configPath := flag.String("config", "config.yaml", "配置文件路径")
	migrate := flag.Bool("migrate", false, "是否执行数据库迁移")
	initAdmin := flag.Bool("init-admin", false, "初始化管理员账号")
	flag.Parse()

	// 加载 .env（不存在则忽略）
	_ = godotenv.Load()

	// 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 设置 Gin 模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化日志通道
	log := newLogger(cfg)

	// 初始化数据库，gorm 日志走 SQL 采集器
	if err := model.InitDB(&cfg.Database, logging.NewGormRecorder(log)); err != nil {
		log.Fatal().Err(err).Msg("初始化数据库失败")
	}
	log.Info().Msg("数据库连接成功")

	// 自动执行数据库迁移（确保表结构是最新的）
	if err := model.AutoMigrate(model.DB); err != nil {
		log.Fatal().Err(err).Msg("数据库迁移失败")
	}

	if *migrate {
		log.Info().Msg("数据库迁移完成")
		os.Exit(0)
	}

	auditLogger := logging.New(model.DB, log)

	// 初始化管理员账号
	if *initAdmin {
		runInitAdmin(auditLogger, log)
		os.Exit(0)
	}

	// 创建 Gin 引擎
	r := gin.New()

	// 设置路由
	handler.SetupRouter(r, auditLogger)

	// 启动服务器
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Info().Str("addr", addr).Msg("服务器启动")
	if err := r.Run(addr); err != nil {
		log.Fatal().Err(err).Msg("服务器启动失败")
	}
}

// newLogger 按配置组装 zerolog
func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var log zerolog.Logger
	if cfg.Server.Mode == "release" {
		log = zerolog.New(os.Stdout)
	} else {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}
	return log.Level(level).With().Timestamp().Logger()
}

// runInitAdmin 创建默认管理员账号
func runInitAdmin(auditLogger *logging.AuditLogger, log zerolog.Logger) {
	adminEmail := "admin@example.com"
	adminPassword := "admin12345"

	svc := service.NewUserService(model.DB, auditLogger)
	ctx := context.Background()

	existing, err := svc.GetByEmail(ctx, adminEmail)
	if err != nil {
		log.Fatal().Err(err).Msg("查询管理员账号失败")
	}
	if existing != nil {
		log.Info().Msg("管理员账号已存在")
		return
	}

	admin, err := svc.Create(ctx, service.CreateUserInput{
		Name:      "管理员",
		Email:     adminEmail,
		Password:  adminPassword,
		CreatedBy: "system",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("创建管理员失败")
	}

	log.Info().
		Str("email", utils.MaskEmail(admin.Email)).
		Str("code", admin.Code).
		Msg("管理员账号创建成功，请登录后立即修改默认密码")
}
