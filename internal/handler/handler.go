package handler

import (
	"errors"
	"strconv"

	"smmpanel/internal/config"
	"smmpanel/internal/infrastructure/lock"
	"smmpanel/internal/repository"
	"smmpanel/internal/service"
	"smmpanel/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// Handler 统一处理器，包含所有服务依赖
type Handler struct {
	userService  *service.UserService
	orderService *service.OrderService
	fundService  *service.FundService
	adminService *service.AdminService
}

// NewHandler 创建处理器实例
func NewHandler(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *Handler {
	return &Handler{
		userService:  service.NewUserService(db, cfg),
		orderService: service.NewOrderService(db, rdb, cfg),
		fundService:  service.NewFundService(db, rdb, cfg),
		adminService: service.NewAdminService(db, cfg),
	}
}

// businessError 把业务哨兵错误翻译成业务码；
// 不认识的错误按传输/基础设施失败处理，提示用户稍后重试
func businessError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrBalanceNotEnough):
		response.BusinessError(c, response.CodeBalanceNotEnough, "余额不足，无法完成本次操作")
	case errors.Is(err, repository.ErrUserNotFound):
		response.BusinessError(c, response.CodeUserNotFound, "用户不存在")
	case errors.Is(err, repository.ErrUserExists):
		response.BusinessError(c, response.CodeUserExists, "用户已存在")
	case errors.Is(err, repository.ErrServiceNotFound):
		response.BusinessError(c, response.CodeServiceNotFound, "服务不存在或已下架")
	case errors.Is(err, service.ErrQuantityOutOfRange):
		response.BusinessError(c, response.CodeQuantityOutOfRange, err.Error())
	case errors.Is(err, repository.ErrOrderNotFound):
		response.BusinessError(c, response.CodeOrderNotFound, "订单不存在")
	case errors.Is(err, repository.ErrOrderStatusInvalid):
		response.BusinessError(c, response.CodeOrderStatusInvalid, "订单状态不允许该变更")
	case errors.Is(err, repository.ErrFundRequestNotFound):
		response.BusinessError(c, response.CodeFundRequestNotFound, "充值申请不存在")
	case errors.Is(err, repository.ErrFundRequestResolved):
		response.BusinessError(c, response.CodeFundAlreadyResolved, "该申请已处理，请勿重复操作")
	case errors.Is(err, service.ErrPaymentMethodInvalid), errors.Is(err, repository.ErrPaymentMethodNotFound):
		response.BusinessError(c, response.CodePaymentMethodError, "收款方式不可用")
	case errors.Is(err, service.ErrInvalidAmount), errors.Is(err, service.ErrInvalidDirection), errors.Is(err, service.ErrMissingField):
		response.ParamError(c, err.Error())
	case errors.Is(err, service.ErrNotAdmin):
		response.Forbidden(c, "需要管理员权限")
	case errors.Is(err, lock.ErrLockFailed):
		response.BusinessError(c, response.CodeSystemBusy, "系统繁忙，请稍后重试")
	default:
		response.ServerError(c, "操作失败，请稍后重试")
	}
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}
	return page, pageSize
}

// ============================================================
// 用户相关接口
// ============================================================

// Register 注册
// POST /api/v1/user/register
func (h *Handler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	user, err := h.userService.Register(c.Request.Context(), &req)
	if err != nil {
		businessError(c, err)
		return
	}

	response.Success(c, gin.H{
		"uid":       user.UID,
		"full_name": user.FullName,
		"email":     user.Email,
		"balance":   user.Balance,
		"role":      user.Role,
	})
}

// Login 登录记录（认证在外部完成，这里只登记审计记录并回传用户信息）
// POST /api/v1/user/login
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		UID string `json:"uid" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	user, err := h.userService.RecordLogin(c.Request.Context(), req.UID)
	if err != nil {
		businessError(c, err)
		return
	}

	response.Success(c, gin.H{
		"uid":       user.UID,
		"full_name": user.FullName,
		"email":     user.Email,
		"balance":   user.Balance,
		"role":      user.Role,
	})
}

// GetBalance 查询用户余额
// GET /api/v1/user/balance?uid=xxx
func (h *Handler) GetBalance(c *gin.Context) {
	uid := c.Query("uid")
	if uid == "" {
		response.ParamError(c, "uid 参数不能为空")
		return
	}

	user, err := h.userService.GetByUID(c.Request.Context(), uid)
	if err != nil {
		businessError(c, err)
		return
	}

	response.Success(c, gin.H{
		"uid":     user.UID,
		"balance": user.Balance,
	})
}

// ListTransactions 查询余额流水
// GET /api/v1/user/transactions?uid=xxx&page=1&page_size=10
func (h *Handler) ListTransactions(c *gin.Context) {
	uid := c.Query("uid")
	if uid == "" {
		response.ParamError(c, "uid 参数不能为空")
		return
	}

	page, pageSize := pageParams(c)
	transactions, total, err := h.userService.ListTransactions(c.Request.Context(), uid, page, pageSize)
	if err != nil {
		businessError(c, err)
		return
	}

	response.Success(c, gin.H{
		"list":      transactions,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ============================================================
// 目录与订单相关接口
// ============================================================

// ListServices 服务目录
// GET /api/v1/catalog/services
func (h *Handler) ListServices(c *gin.Context) {
	offerings, err := h.orderService.ListServices(c.Request.Context())
	if err != nil {
		businessError(c, err)
		return
	}

	response.Success(c, offerings)
}

// PlaceOrder 下单
// POST /api/v1/order/create
func (h *Handler) PlaceOrder(c *gin.Context) {
	var req service.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.orderService.PlaceOrder(c.Request.Context(), &req)
	if err != nil {
		businessError(c, err)
		return
	}

	response.Success(c, result)
}

// ListOrders 查询用户订单列表
// GET /api/v1/order/list?uid=xxx&page=1&page_size=10
func (h *Handler) ListOrders(c *gin.Context) {
	uid := c.Query("uid")
	if uid == "" {
		response.ParamError(c, "uid 参数不能为空")
		return
	}

	page, pageSize := pageParams(c)
	orders, total, err := h.orderService.ListUserOrders(c.Request.Context(), uid, page, pageSize)
	if err != nil {
		businessError(c, err)
		return
	}

	response.Success(c, gin.H{
		"list":      orders,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ============================================================
// 充值相关接口
// ============================================================

// ListPaymentMethods 可用收款方式
// GET /api/v1/funds/methods
func (h *Handler) ListPaymentMethods(c *gin.Context) {
	methods, err := h.fundService.ListPaymentMethods(c.Request.Context(), true)
	if err != nil {
		businessError(c, err)
		return
	}

	response.Success(c, methods)
}

// SubmitFundRequest 提交充值申请
// POST /api/v1/funds/submit
func (h *Handler) SubmitFundRequest(c *gin.Context) {
	var req service.SubmitFundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	request, err := h.fundService.Submit(c.Request.Context(), &req)
	if err != nil {
		businessError(c, err)
		return
	}

	response.Success(c, gin.H{
		"request_no": request.RequestNo,
		"status":     request.Status,
		"amount":     request.Amount,
		"currency":   request.Currency,
		"method":     request.Method,
	})
}

// ListFundRequests 查询用户充值记录
// GET /api/v1/funds/list?uid=xxx&page=1&page_size=10
func (h *Handler) ListFundRequests(c *gin.Context) {
	uid := c.Query("uid")
	if uid == "" {
		response.ParamError(c, "uid 参数不能为空")
		return
	}

	page, pageSize := pageParams(c)
	requests, total, err := h.fundService.ListUserRequests(c.Request.Context(), uid, page, pageSize)
	if err != nil {
		businessError(c, err)
		return
	}

	response.Success(c, gin.H{
		"list":      requests,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ============================================================
// 管理端接口
// ============================================================

// AdminOverview 管理端总览
// GET /api/v1/admin/overview
func (h *Handler) AdminOverview(c *gin.Context) {
	stats, err := h.adminService.Overview(c.Request.Context())
	if err != nil {
		businessError(c, err)
		return
	}

	response.Success(c, stats)
}

// AdminListUsers 全部用户
// GET /api/v1/admin/users?page=1&page_size=10
func (h *Handler) AdminListUsers(c *gin.Context) {
	page, pageSize := pageParams(c)
	users, total, err := h.adminService.ListUsers(c.Request.Context(), page, pageSize)
	if err != nil {
		businessError(c, err)
		return
	}

	response.Success(c, gin.H{
		"list":      users,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// AdminListOrders 全部订单
// GET /api/v1/admin/orders?page=1&page_size=10
func (h *Handler) AdminListOrders(c *gin.Context) {
	page, pageSize := pageParams(c)
	orders, total, err := h.orderService.ListAllOrders(c.Request.Context(), page, pageSize)
	if err != nil {
		businessError(c, err)
		return
	}

	response.Success(c, gin.H{
		"list":      orders,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// AdminUpdateOrderStatus 变更订单状态
// POST /api/v1/admin/orders/status
func (h *Handler) AdminUpdateOrderStatus(c *gin.Context) {
	var req struct {
		OrderNo string `json:"order_no" binding:"required"`
		Status  string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.orderService.UpdateOrderStatus(c.Request.Context(), req.OrderNo, req.Status); err != nil {
		businessError(c, err)
		return
	}

	response.Success(c, gin.H{
		"order_no": req.OrderNo,
		"status":   req.Status,
	})
}

// AdminListPendingFunds 待处理充值申请
// GET /api/v1/admin/funds/pending?limit=50
func (h *Handler) AdminListPendingFunds(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit < 1 || limit > 200 {
		limit = 50
	}

	requests, err := h.fundService.ListPending(c.Request.Context(), limit)
	if err != nil {
		businessError(c, err)
		return
	}

	response.Success(c, requests)
}

// AdminApproveFund 通过充值申请
// POST /api/v1/admin/funds/approve
func (h *Handler) AdminApproveFund(c *gin.Context) {
	var req struct {
		RequestNo string `json:"request_no" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.fundService.Approve(c.Request.Context(), req.RequestNo, adminUID(c))
	if err != nil {
		businessError(c, err)
		return
	}

	response.Success(c, result)
}

// AdminRejectFund 驳回充值申请
// POST /api/v1/admin/funds/reject
func (h *Handler) AdminRejectFund(c *gin.Context) {
	var req struct {
		RequestNo string `json:"request_no" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.fundService.Reject(c.Request.Context(), req.RequestNo, adminUID(c))
	if err != nil {
		businessError(c, err)
		return
	}

	response.Success(c, result)
}

// AdminAdjustBalance 手工调整余额
// POST /api/v1/admin/balance/adjust
func (h *Handler) AdminAdjustBalance(c *gin.Context) {
	var req struct {
		UID       string  `json:"uid" binding:"required"`
		Amount    float64 `json:"amount" binding:"required,gt=0"`
		Direction string  `json:"direction" binding:"required,oneof=add deduct"`
		Remark    string  `json:"remark"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.adminService.AdjustBalance(c.Request.Context(), isAdmin(c), req.UID, req.Amount, req.Direction, req.Remark)
	if err != nil {
		businessError(c, err)
		return
	}

	response.Success(c, result)
}

// AdminListPaymentMethods 全部收款方式（含停用）
// GET /api/v1/admin/payment-methods
func (h *Handler) AdminListPaymentMethods(c *gin.Context) {
	methods, err := h.fundService.ListPaymentMethods(c.Request.Context(), false)
	if err != nil {
		businessError(c, err)
		return
	}

	response.Success(c, methods)
}

// AdminUpdatePaymentMethod 编辑收款方式
// POST /api/v1/admin/payment-methods/update
func (h *Handler) AdminUpdatePaymentMethod(c *gin.Context) {
	var req struct {
		Key         string  `json:"key" binding:"required"`
		Account     *string `json:"account"`
		AccountName *string `json:"account_name"`
		Type        *string `json:"type"`
		Note        *string `json:"note"`
		LogoURL     *string `json:"logo_url"`
		QRCodeURL   *string `json:"qr_code_url"`
		Enabled     *bool   `json:"enabled"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	updates := map[string]interface{}{}
	if req.Account != nil {
		updates["account"] = *req.Account
	}
	if req.AccountName != nil {
		updates["account_name"] = *req.AccountName
	}
	if req.Type != nil {
		updates["type"] = *req.Type
	}
	if req.Note != nil {
		updates["note"] = *req.Note
	}
	if req.LogoURL != nil {
		updates["logo_url"] = *req.LogoURL
	}
	if req.QRCodeURL != nil {
		updates["qr_code_url"] = *req.QRCodeURL
	}
	if req.Enabled != nil {
		updates["enabled"] = *req.Enabled
	}
	if len(updates) == 0 {
		response.ParamError(c, "没有需要更新的字段")
		return
	}

	if err := h.fundService.UpdatePaymentMethod(c.Request.Context(), req.Key, updates); err != nil {
		businessError(c, err)
		return
	}

	response.Success(c, gin.H{"key": req.Key})
}

// AdminListLogins 登录记录
// GET /api/v1/admin/logins?page=1&page_size=10
func (h *Handler) AdminListLogins(c *gin.Context) {
	page, pageSize := pageParams(c)
	records, total, err := h.adminService.ListLoginRecords(c.Request.Context(), page, pageSize)
	if err != nil {
		businessError(c, err)
		return
	}

	response.Success(c, gin.H{
		"list":      records,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}
