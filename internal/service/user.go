package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"user-center/internal/model"
	"user-center/internal/pkg/crypto"
	"user-center/internal/pkg/logging"
	"user-center/internal/pkg/usercode"
)

// PasswordRedacted 变更记录中密码字段的占位值，绝不记录哈希内容
const PasswordRedacted = "[REDACTED]"

// DefaultLockSeconds 默认锁定时长（秒）
const DefaultLockSeconds = 3600

// UserService 用户领域服务
// 每个持久化操作计时并通过 Logger 上报结果，失败时先记录再向上返回
type UserService struct {
	db     *gorm.DB
	logger logging.Logger
}

func NewUserService(db *gorm.DB, logger logging.Logger) *UserService {
	return &UserService{db: db, logger: logger}
}

// CreateUserInput 创建用户入参
type CreateUserInput struct {
	Name        string
	Email       string
	Password    string
	Phone       *string
	DateOfBirth *time.Time
	Gender      string
	Avatar      string
	Enabled     *bool
	CodeSeed    string
	CreatedBy   string
}

// UpdateUserInput 更新用户入参，nil 字段不更新（字段白名单）
type UpdateUserInput struct {
	Name        *string
	Email       *string
	Password    *string
	Phone       *string
	DateOfBirth *time.Time
	Gender      *string
	Avatar      *string
	UpdatedBy   string
}

// Page 一页用户
type Page struct {
	Items   []model.User
	Total   int64
	Page    int
	PerPage int
}

// BulkResult 批量操作的单条结果
type BulkResult struct {
	ID      uint   `json:"id"`
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Stats 用户统计
type Stats struct {
	Total    int64 `json:"total"`
	Active   int64 `json:"active"`
	Disabled int64 `json:"disabled"`
	Locked   int64 `json:"locked"`
	Verified int64 `json:"verified"`
}

// IsDuplicate 是否唯一键冲突
func IsDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// List 按创建时间倒序分页列出未删除用户
func (s *UserService) List(ctx context.Context, page, perPage int) (*Page, error) {
	page, perPage = clampPage(page, perPage)
	start := time.Now()

	var total int64
	var users []model.User
	err := s.db.WithContext(ctx).Model(&model.User{}).Count(&total).Error
	if err == nil {
		err = s.db.WithContext(ctx).
			Offset((page - 1) * perPage).Limit(perPage).
			Order("created_at DESC").
			Find(&users).Error
	}
	s.finish("list", nil, start, map[string]interface{}{"page": page, "per_page": perPage}, err)
	if err != nil {
		return nil, err
	}
	return &Page{Items: users, Total: total, Page: page, PerPage: perPage}, nil
}

// GetByCode 按编号查询，不存在返回 nil 而非错误
func (s *UserService) GetByCode(ctx context.Context, code string) (*model.User, error) {
	return s.getBy(ctx, "get_by_code", "code = ?", code)
}

// GetByEmail 按邮箱查询，不存在返回 nil 而非错误
func (s *UserService) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.getBy(ctx, "get_by_email", "email = ?", email)
}

// GetByID 按主键查询，不存在返回 nil 而非错误
func (s *UserService) GetByID(ctx context.Context, id uint) (*model.User, error) {
	return s.getBy(ctx, "get_by_id", "id = ?", id)
}

func (s *UserService) getBy(ctx context.Context, operation, cond string, arg interface{}) (*model.User, error) {
	start := time.Now()
	var user model.User
	err := s.db.WithContext(ctx).Where(cond, arg).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.finish(operation, arg, start, nil, nil)
		return nil, nil
	}
	s.finish(operation, arg, start, nil, err)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Create 创建用户：密码加密、标记已验证、默认启用、分配唯一编号
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*model.User, error) {
	start := time.Now()
	now := time.Now()

	enabled := true
	if in.Enabled != nil {
		enabled = *in.Enabled
	}

	user := &model.User{
		Name:            in.Name,
		Email:           in.Email,
		Phone:           in.Phone,
		DateOfBirth:     in.DateOfBirth,
		Gender:          in.Gender,
		Avatar:          in.Avatar,
		Enabled:         enabled,
		EmailVerifiedAt: &now,
		CreatedBy:       in.CreatedBy,
	}
	if err := user.SetPassword(in.Password); err != nil {
		s.finish("create", nil, start, nil, err)
		return nil, err
	}

	user.Code = s.generateCode(ctx, in.CodeSeed)
	err := s.db.WithContext(ctx).Create(user).Error
	if err != nil && IsDuplicate(err) && s.codeExists(ctx, user.Code) {
		// 编号生成与写入之间存在竞争窗口，撞上唯一索引就换一个编号重试一次
		user.Code = s.generateCode(ctx, "")
		err = s.db.WithContext(ctx).Create(user).Error
	}
	if err != nil {
		s.finish("create", nil, start, map[string]interface{}{"email": in.Email}, err)
		return nil, err
	}

	s.finish("create", user.ID, start, map[string]interface{}{"code": user.Code, "email": user.Email}, nil)
	return user, nil
}

// Update 按白名单字段更新，记录脱敏后的前后差异
func (s *UserService) Update(ctx context.Context, user *model.User, in UpdateUserInput) (*model.User, error) {
	start := time.Now()

	updates := make(map[string]interface{})
	diff := make(map[string]interface{})

	setString := func(column string, old string, val *string) {
		if val != nil && *val != old {
			updates[column] = *val
			diff[column] = map[string]string{"old": old, "new": *val}
		}
	}
	setString("name", user.Name, in.Name)
	setString("email", user.Email, in.Email)
	setString("gender", user.Gender, in.Gender)
	setString("avatar", user.Avatar, in.Avatar)

	if in.Phone != nil {
		old := ""
		if user.Phone != nil {
			old = *user.Phone
		}
		if *in.Phone != old {
			updates["phone"] = *in.Phone
			diff["phone"] = map[string]string{"old": old, "new": *in.Phone}
		}
	}
	if in.DateOfBirth != nil {
		updates["date_of_birth"] = *in.DateOfBirth
		diff["date_of_birth"] = map[string]string{"new": in.DateOfBirth.Format("2006-01-02")}
	}
	if in.Password != nil && *in.Password != "" {
		hashed, err := crypto.HashPassword(*in.Password)
		if err != nil {
			s.finish("update", user.ID, start, nil, err)
			return nil, err
		}
		updates["password"] = hashed
		diff["password"] = map[string]string{"old": PasswordRedacted, "new": PasswordRedacted}
	}
	if len(updates) == 0 {
		return user, nil
	}
	if in.UpdatedBy != "" {
		updates["updated_by"] = in.UpdatedBy
	}

	err := s.db.WithContext(ctx).Model(user).Updates(updates).Error
	s.finish("update", user.ID, start, map[string]interface{}{"diff": diff}, err)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Delete 软删除，可通过 Restore 恢复
func (s *UserService) Delete(ctx context.Context, user *model.User, deletedBy string) error {
	start := time.Now()
	if deletedBy != "" {
		if err := s.db.WithContext(ctx).Model(user).Update("deleted_by", deletedBy).Error; err != nil {
			s.finish("delete", user.ID, start, nil, err)
			return err
		}
	}
	err := s.db.WithContext(ctx).Delete(user).Error
	s.finish("delete", user.ID, start, nil, err)
	return err
}

// Restore 恢复软删除
func (s *UserService) Restore(ctx context.Context, user *model.User) error {
	start := time.Now()
	err := s.db.WithContext(ctx).Unscoped().Model(&model.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]interface{}{"deleted_at": nil, "deleted_by": ""}).Error
	s.finish("restore", user.ID, start, nil, err)
	if err == nil {
		user.DeletedAt = gorm.DeletedAt{}
		user.DeletedBy = ""
	}
	return err
}

// ForceDelete 物理删除，不可恢复
func (s *UserService) ForceDelete(ctx context.Context, user *model.User) error {
	start := time.Now()
	err := s.db.WithContext(ctx).Unscoped().Delete(user).Error
	s.finish("force_delete", user.ID, start, nil, err)
	return err
}

// Lock 锁定用户并累计锁定次数，时长缺省一小时
func (s *UserService) Lock(ctx context.Context, user *model.User, durationSeconds int) error {
	if durationSeconds <= 0 {
		durationSeconds = DefaultLockSeconds
	}
	start := time.Now()
	until := time.Now().Add(time.Duration(durationSeconds) * time.Second)

	err := s.db.WithContext(ctx).Model(user).Updates(map[string]interface{}{
		"locked_until": until,
		"lock_count":   gorm.Expr("lock_count + ?", 1),
	}).Error
	s.finish("lock", user.ID, start, map[string]interface{}{"seconds": durationSeconds}, err)
	if err != nil {
		return err
	}
	user.LockedUntil = &until
	user.LockCount++
	return nil
}

// Unlock 解锁并清零锁定计数
func (s *UserService) Unlock(ctx context.Context, user *model.User) error {
	start := time.Now()
	err := s.db.WithContext(ctx).Model(user).Updates(map[string]interface{}{
		"locked_until": nil,
		"lock_count":   0,
	}).Error
	s.finish("unlock", user.ID, start, nil, err)
	if err != nil {
		return err
	}
	user.LockedUntil = nil
	user.LockCount = 0
	return nil
}

// Enable 启用用户
func (s *UserService) Enable(ctx context.Context, user *model.User) error {
	return s.setEnabled(ctx, "enable", user, true)
}

// Disable 禁用用户
func (s *UserService) Disable(ctx context.Context, user *model.User) error {
	return s.setEnabled(ctx, "disable", user, false)
}

func (s *UserService) setEnabled(ctx context.Context, operation string, user *model.User, enabled bool) error {
	start := time.Now()
	err := s.db.WithContext(ctx).Model(user).Update("enabled", enabled).Error
	s.finish(operation, user.ID, start, nil, err)
	if err != nil {
		return err
	}
	user.Enabled = enabled
	return nil
}

// IsLocked 是否处于锁定状态
func (s *UserService) IsLocked(user *model.User) bool {
	return user.IsLocked()
}

// Search 按姓名/邮箱/手机号做大小写不敏感的子串匹配
func (s *UserService) Search(ctx context.Context, query string, page, perPage int) (*Page, error) {
	page, perPage = clampPage(page, perPage)
	start := time.Now()
	pattern := "%" + strings.ToLower(query) + "%"

	base := s.db.WithContext(ctx).Model(&model.User{}).
		Where("lower(name) LIKE ? OR lower(email) LIKE ? OR lower(phone) LIKE ?", pattern, pattern, pattern).
		Session(&gorm.Session{})

	var total int64
	var users []model.User
	err := base.Count(&total).Error
	if err == nil {
		err = base.
			Offset((page - 1) * perPage).Limit(perPage).
			Order("created_at DESC").
			Find(&users).Error
	}
	s.finish("search", nil, start, map[string]interface{}{"query": query}, err)
	if err != nil {
		return nil, err
	}
	return &Page{Items: users, Total: total, Page: page, PerPage: perPage}, nil
}

// Statistics 聚合统计
func (s *UserService) Statistics(ctx context.Context) (*Stats, error) {
	start := time.Now()
	var stats Stats
	var err error

	count := func(dest *int64, conds ...interface{}) {
		if err != nil {
			return
		}
		q := s.db.WithContext(ctx).Model(&model.User{})
		if len(conds) > 0 {
			q = q.Where(conds[0], conds[1:]...)
		}
		err = q.Count(dest).Error
	}

	count(&stats.Total)
	count(&stats.Active, "enabled = ?", true)
	count(&stats.Disabled, "enabled = ?", false)
	count(&stats.Locked, "locked_until IS NOT NULL AND locked_until > ?", time.Now())
	count(&stats.Verified, "email_verified_at IS NOT NULL")

	s.finish("statistics", nil, start, nil, err)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// BulkDelete 批量软删除，逐条记录结果，单条失败不中断
func (s *UserService) BulkDelete(ctx context.Context, ids []uint, deletedBy string) (successCount, failCount int, results []BulkResult) {
	start := time.Now()
	results = make([]BulkResult, 0, len(ids))

	for _, id := range ids {
		user, err := s.GetByID(ctx, id)
		switch {
		case err != nil:
			failCount++
			results = append(results, BulkResult{ID: id, Success: false, Message: err.Error()})
		case user == nil:
			failCount++
			results = append(results, BulkResult{ID: id, Success: false, Message: "User not found"})
		default:
			if err := s.Delete(ctx, user, deletedBy); err != nil {
				failCount++
				results = append(results, BulkResult{ID: id, Success: false, Message: err.Error()})
			} else {
				successCount++
				results = append(results, BulkResult{ID: id, Success: true})
			}
		}
	}

	s.finish("bulk_delete", nil, start, map[string]interface{}{
		"total": len(ids), "successful": successCount, "failed": failCount,
	}, nil)
	return successCount, failCount, results
}

// generateCode 生成唯一用户编号，生成前查库做尽力而为的唯一性检查
func (s *UserService) generateCode(ctx context.Context, seed string) string {
	return usercode.Generate(seed, time.Now(), func(code string) bool {
		return s.codeExists(ctx, code)
	})
}

func (s *UserService) codeExists(ctx context.Context, code string) bool {
	var count int64
	s.db.WithContext(ctx).Unscoped().Model(&model.User{}).Where("code = ?", code).Count(&count)
	return count > 0
}

// finish 统一上报操作结果：成功记 database 通道，失败加记 service_error
func (s *UserService) finish(operation string, id interface{}, start time.Time, metadata map[string]interface{}, err error) {
	duration := time.Since(start)
	if err != nil {
		s.logger.LogDatabaseOperation(operation, "user", id, duration, metadata, true, err.Error())
		s.logger.LogServiceError("service.UserService", err, map[string]interface{}{
			"operation": operation,
			"entity_id": fmt.Sprintf("%v", id),
		})
		return
	}
	s.logger.LogDatabaseOperation(operation, "user", id, duration, metadata, false, "")
}

func clampPage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	return page, perPage
}
