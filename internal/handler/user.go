package handler

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"user-center/internal/config"
	"user-center/internal/middleware"
	"user-center/internal/model"
	"user-center/internal/pkg/logging"
	"user-center/internal/pkg/response"
	"user-center/internal/service"
)

// statsCacheTTL 统计结果缓存时长
const statsCacheTTL = 60 * time.Second

type UserHandler struct {
	svc    *service.UserService
	logger logging.Logger

	statsMu sync.Mutex
	stats   *service.Stats
	statsAt time.Time
}

func NewUserHandler(svc *service.UserService, logger logging.Logger) *UserHandler {
	return &UserHandler{svc: svc, logger: logger}
}

// resp 每次响应一个新构造器，带上关联 ID 和异常上报能力
func (h *UserHandler) resp(c *gin.Context) *response.Builder {
	return response.New(c).
		WithErrorLogger(h.logger).
		SetCorrelationID(middleware.CorrelationID(c))
}

// CreateUserRequest 创建用户请求
type CreateUserRequest struct {
	Name                 string  `json:"name" binding:"required,max=50"`
	Email                string  `json:"email" binding:"required,email"`
	Password             string  `json:"password" binding:"required"`
	PasswordConfirmation string  `json:"password_confirmation" binding:"required,eqfield=Password"`
	Phone                *string `json:"phone" binding:"omitempty,max=20"`
	DateOfBirth          string  `json:"date_of_birth" binding:"omitempty,datetime=2006-01-02"`
	Gender               string  `json:"gender" binding:"omitempty,oneof=male female other"`
	Avatar               string  `json:"avatar"`
	Enabled              *bool   `json:"enabled"`
}

// checkPasswordLength 按配置的密码策略校验长度，不合格时返回字段错误
func checkPasswordLength(password string) map[string][]string {
	min := config.Get().Security.PasswordMinLength
	if len(password) >= min {
		return nil
	}
	return map[string][]string{
		"password": {fmt.Sprintf("The password must be at least %d characters", min)},
	}
}

// Create 创建用户
func (h *UserHandler) Create(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.resp(c).ValidationError(err)
		return
	}
	if errs := checkPasswordLength(req.Password); errs != nil {
		h.resp(c).ValidationError(errs)
		return
	}

	in := service.CreateUserInput{
		Name:      req.Name,
		Email:     req.Email,
		Password:  req.Password,
		Phone:     req.Phone,
		Gender:    req.Gender,
		Avatar:    req.Avatar,
		Enabled:   req.Enabled,
		CreatedBy: middleware.GetUserName(c),
	}
	if req.DateOfBirth != "" {
		dob, _ := time.Parse("2006-01-02", req.DateOfBirth)
		in.DateOfBirth = &dob
	}

	user, err := h.svc.Create(c.Request.Context(), in)
	if err != nil {
		if service.IsDuplicate(err) {
			h.resp(c).Conflict("Email or phone already in use", nil)
			return
		}
		h.resp(c).ServerError("Failed to create user", err)
		return
	}

	h.logger.LogUserAction("created", middleware.ActorFrom(c), map[string]interface{}{
		"user_id": user.ID,
		"code":    user.Code,
	})

	h.resp(c).
		WithLinks(userLinks(user)).
		Created(user, "User created", "/users/"+user.Code)
}

// List 分页列出用户，支持 search 参数
func (h *UserHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))
	search := c.Query("search")

	var (
		result *service.Page
		err    error
	)
	if search != "" {
		result, err = h.svc.Search(c.Request.Context(), search, page, perPage)
	} else {
		result, err = h.svc.List(c.Request.Context(), page, perPage)
	}
	if err != nil {
		h.resp(c).ServerError("Failed to list users", err)
		return
	}

	h.resp(c).Paginated(
		result.Items,
		response.NewPagination(result.Page, result.PerPage, result.Total),
		"Success",
		true,
	)
}

// Search 关键词搜索，返回集合信封
func (h *UserHandler) Search(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		h.resp(c).ValidationError(map[string][]string{"q": {"The q parameter is required"}})
		return
	}

	result, err := h.svc.Search(c.Request.Context(), q, 1, 100)
	if err != nil {
		h.resp(c).ServerError("Failed to search users", err)
		return
	}
	h.resp(c).Collection(result.Items, "Search results")
}

// Stats 用户统计，带 60 秒缓存
func (h *UserHandler) Stats(c *gin.Context) {
	h.statsMu.Lock()
	cached := h.stats != nil && time.Since(h.statsAt) < statsCacheTTL
	if !cached {
		stats, err := h.svc.Statistics(c.Request.Context())
		if err != nil {
			h.statsMu.Unlock()
			h.resp(c).ServerError("Failed to compute statistics", err)
			return
		}
		h.stats = stats
		h.statsAt = time.Now()
	}
	stats, generatedAt := h.stats, h.statsAt
	h.statsMu.Unlock()

	h.resp(c).
		WithMeta(map[string]interface{}{
			"generated_at": generatedAt.UTC().Format(time.RFC3339),
			"cached":       cached,
			"cache_ttl":    int(statsCacheTTL.Seconds()),
		}).
		Success(stats)
}

// Show 按编号查询用户
func (h *UserHandler) Show(c *gin.Context) {
	code := c.Param("id")

	user, err := h.svc.GetByCode(c.Request.Context(), code)
	if err != nil {
		h.resp(c).ServerError("Failed to load user", err)
		return
	}
	if user == nil {
		h.resp(c).NotFoundResource("User")
		return
	}
	h.resp(c).WithLinks(userLinks(user)).Success(user)
}

// UpdateUserRequest 更新用户请求（字段白名单，缺省字段不更新）
type UpdateUserRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=50"`
	Email       *string `json:"email" binding:"omitempty,email"`
	Password    *string `json:"password" binding:"omitempty"`
	Phone       *string `json:"phone" binding:"omitempty,max=20"`
	DateOfBirth *string `json:"date_of_birth" binding:"omitempty,datetime=2006-01-02"`
	Gender      *string `json:"gender" binding:"omitempty,oneof=male female other"`
	Avatar      *string `json:"avatar"`
}

// Update 更新用户
func (h *UserHandler) Update(c *gin.Context) {
	user, ok := h.loadByID(c)
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.resp(c).ValidationError(err)
		return
	}
	if req.Password != nil && *req.Password != "" {
		if errs := checkPasswordLength(*req.Password); errs != nil {
			h.resp(c).ValidationError(errs)
			return
		}
	}

	in := service.UpdateUserInput{
		Name:      req.Name,
		Email:     req.Email,
		Password:  req.Password,
		Phone:     req.Phone,
		Gender:    req.Gender,
		Avatar:    req.Avatar,
		UpdatedBy: middleware.GetUserName(c),
	}
	if req.DateOfBirth != nil && *req.DateOfBirth != "" {
		dob, _ := time.Parse("2006-01-02", *req.DateOfBirth)
		in.DateOfBirth = &dob
	}

	updated, err := h.svc.Update(c.Request.Context(), user, in)
	if err != nil {
		if service.IsDuplicate(err) {
			h.resp(c).Conflict("Email or phone already in use", nil)
			return
		}
		h.resp(c).ServerError("Failed to update user", err)
		return
	}
	h.resp(c).SuccessWithMessage("User updated", updated)
}

// Delete 软删除用户
func (h *UserHandler) Delete(c *gin.Context) {
	user, ok := h.loadByID(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), user, middleware.GetUserName(c)); err != nil {
		h.resp(c).ServerError("Failed to delete user", err)
		return
	}

	h.logger.LogUserAction("deleted", middleware.ActorFrom(c), map[string]interface{}{"user_id": user.ID})
	h.resp(c).SuccessWithMessage("User deleted", gin.H{"deleted": true})
}

// ForceDelete 物理删除用户
func (h *UserHandler) ForceDelete(c *gin.Context) {
	user, ok := h.loadByID(c)
	if !ok {
		return
	}

	if err := h.svc.ForceDelete(c.Request.Context(), user); err != nil {
		h.resp(c).ServerError("Failed to permanently delete user", err)
		return
	}

	h.logger.LogUserAction("force_deleted", middleware.ActorFrom(c), map[string]interface{}{"user_id": user.ID})
	h.resp(c).SuccessWithMessage("User permanently deleted", gin.H{"deleted": true, "permanent": true})
}

// Restore 恢复软删除的用户
func (h *UserHandler) Restore(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.resp(c).ValidationError(map[string][]string{"id": {"The id must be a positive integer"}})
		return
	}

	// 软删除的记录默认查询不可见，恢复前需要带上已删除行
	var user model.User
	if err := model.DB.WithContext(c.Request.Context()).Unscoped().First(&user, id).Error; err != nil {
		h.resp(c).NotFoundResource("User")
		return
	}

	if err := h.svc.Restore(c.Request.Context(), &user); err != nil {
		h.resp(c).ServerError("Failed to restore user", err)
		return
	}

	h.logger.LogUserAction("restored", middleware.ActorFrom(c), map[string]interface{}{"user_id": user.ID})
	h.resp(c).SuccessWithMessage("User restored", user)
}

// Enable 启用用户
func (h *UserHandler) Enable(c *gin.Context) {
	user, ok := h.loadByID(c)
	if !ok {
		return
	}
	if err := h.svc.Enable(c.Request.Context(), user); err != nil {
		h.resp(c).ServerError("Failed to enable user", err)
		return
	}
	h.logger.LogUserAction("enabled", middleware.ActorFrom(c), map[string]interface{}{"user_id": user.ID})
	h.resp(c).SuccessWithMessage("User enabled", user)
}

// Disable 禁用用户
func (h *UserHandler) Disable(c *gin.Context) {
	user, ok := h.loadByID(c)
	if !ok {
		return
	}
	if err := h.svc.Disable(c.Request.Context(), user); err != nil {
		h.resp(c).ServerError("Failed to disable user", err)
		return
	}
	h.logger.LogUserAction("disabled", middleware.ActorFrom(c), map[string]interface{}{"user_id": user.ID})
	h.resp(c).SuccessWithMessage("User disabled", user)
}

// Lock 锁定用户，seconds 查询参数指定时长
func (h *UserHandler) Lock(c *gin.Context) {
	user, ok := h.loadByID(c)
	if !ok {
		return
	}

	seconds, _ := strconv.Atoi(c.DefaultQuery("seconds", "0"))
	if seconds <= 0 {
		seconds = config.Get().Security.LockSeconds
	}
	if err := h.svc.Lock(c.Request.Context(), user, seconds); err != nil {
		h.resp(c).ServerError("Failed to lock user", err)
		return
	}

	h.logger.LogUserAction("locked", middleware.ActorFrom(c), map[string]interface{}{
		"user_id": user.ID,
		"seconds": seconds,
	})
	h.resp(c).SuccessWithMessage("User locked", gin.H{
		"locked":       true,
		"locked_until": user.LockedUntil,
		"lock_count":   user.LockCount,
	})
}

// Unlock 解锁用户
func (h *UserHandler) Unlock(c *gin.Context) {
	user, ok := h.loadByID(c)
	if !ok {
		return
	}
	if err := h.svc.Unlock(c.Request.Context(), user); err != nil {
		h.resp(c).ServerError("Failed to unlock user", err)
		return
	}
	h.logger.LogUserAction("unlocked", middleware.ActorFrom(c), map[string]interface{}{"user_id": user.ID})
	h.resp(c).SuccessWithMessage("User unlocked", gin.H{"locked": false})
}

// BulkDeleteRequest 批量删除请求
type BulkDeleteRequest struct {
	IDs []uint `json:"ids" binding:"required,min=1"`
}

// BulkDelete 批量软删除，整体始终返回 200，逐条结果在 results 中
func (h *UserHandler) BulkDelete(c *gin.Context) {
	var req BulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.resp(c).ValidationError(err)
		return
	}

	successCount, failCount, results := h.svc.BulkDelete(c.Request.Context(), req.IDs, middleware.GetUserName(c))

	h.logger.LogUserAction("deleted", middleware.ActorFrom(c), map[string]interface{}{
		"bulk":       true,
		"total":      len(req.IDs),
		"successful": successCount,
		"failed":     failCount,
	})
	h.resp(c).BulkOperation("delete", successCount, failCount, results)
}

// Current 当前认证用户，未认证时 data 为空
func (h *UserHandler) Current(c *gin.Context) {
	email := middleware.GetUserEmail(c)
	if email == "" {
		h.resp(c).Success(nil)
		return
	}

	user, err := h.svc.GetByEmail(c.Request.Context(), email)
	if err != nil {
		h.resp(c).ServerError("Failed to load current user", err)
		return
	}
	h.resp(c).Success(user)
}

// loadByID 解析路径 ID 并加载用户，失败时已写响应
func (h *UserHandler) loadByID(c *gin.Context) (*model.User, bool) {
	id, err := parseID(c)
	if err != nil {
		h.resp(c).ValidationError(map[string][]string{"id": {"The id must be a positive integer"}})
		return nil, false
	}

	user, err := h.svc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.resp(c).ServerError("Failed to load user", err)
		return nil, false
	}
	if user == nil {
		h.resp(c).NotFoundResource("User")
		return nil, false
	}
	return user, true
}

func parseID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", c.Param("id"))
	}
	return uint(id), nil
}

// userLinks 用户资源的 HATEOAS 链接
func userLinks(user *model.User) map[string]string {
	return map[string]string{
		"self":   "/users/" + user.Code,
		"update": fmt.Sprintf("/users/%d", user.ID),
		"delete": fmt.Sprintf("/users/%d", user.ID),
	}
}
