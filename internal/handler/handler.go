package handler

import (
	"errors"
	"net/http"
	"strconv"

	"guardianledger/internal/apperr"
	"guardianledger/internal/service"
	"guardianledger/pkg/response"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// Handler 统一处理器，包含所有服务依赖
type Handler struct {
	users        *service.UserService
	accounts     *service.AccountService
	guardians    *service.GuardianService
	alerts       *service.AlertService
	transactions *service.TransactionService
	logger       *log.Logger
}

func NewHandler(svcs *service.Services, logger *log.Logger) *Handler {
	registerValidators()
	return &Handler{
		users:        svcs.Users,
		accounts:     svcs.Accounts,
		guardians:    svcs.Guardians,
		alerts:       svcs.Alerts,
		transactions: svcs.Transactions,
		logger:       logger.WithPrefix("HTTP"),
	}
}

// fail 按错误类别映射 HTTP 状态码，未分类的错误不把细节返回给客户端
func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		response.NotFound(c, apperr.Message(err, "resource not found"))
	case errors.Is(err, apperr.ErrInvalidState), errors.Is(err, apperr.ErrInvalidArgument):
		response.ParamError(c, apperr.Message(err, "invalid request"))
	case errors.Is(err, apperr.ErrConflict):
		response.Conflict(c, apperr.Message(err, "resource already exists"))
	default:
		h.logger.Error("请求处理失败",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"err", err)
		response.ServerError(c, "internal server error")
	}
}

func bindError(c *gin.Context, err error) {
	response.ParamError(c, "invalid request: "+err.Error())
}

func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}

// ============================================================
// 用户
// ============================================================

type CreateUserRequest struct {
	FullName    string  `json:"full_name" binding:"required"`
	PhoneNumber string  `json:"phone_number" binding:"required,phone"`
	Email       *string `json:"email" binding:"omitempty,email"`
	AgeGroup    *string `json:"age_group"`
	IsActive    bool    `json:"is_active"`
}

// CreateUser POST /api/v1/users
func (h *Handler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	user, err := h.users.CreateUser(c.Request.Context(), &service.CreateUserRequest{
		FullName:    req.FullName,
		PhoneNumber: req.PhoneNumber,
		Email:       req.Email,
		AgeGroup:    req.AgeGroup,
		IsActive:    req.IsActive,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	response.Created(c, user)
}

// ListUsers GET /api/v1/users?limit=100
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.users.ListUsers(c.Request.Context(), queryInt(c, "limit", 100))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, users)
}

func (h *Handler) GetUser(c *gin.Context) {
	user, err := h.users.GetUser(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, user)
}

type UpdateUserRequest struct {
	FullName *string `json:"full_name" binding:"omitempty,min=1"`
	Email    *string `json:"email" binding:"omitempty,email"`
	IsActive *bool   `json:"is_active"`
}

// UpdateUser PUT /api/v1/users/:user_id，只修改请求里出现的字段
func (h *Handler) UpdateUser(c *gin.Context) {
	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	user, err := h.users.UpdateUser(c.Request.Context(), c.Param("user_id"), &service.UpdateUserRequest{
		FullName: req.FullName,
		Email:    req.Email,
		IsActive: req.IsActive,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, user)
}

func (h *Handler) DeleteUser(c *gin.Context) {
	if err := h.users.DeleteUser(c.Request.Context(), c.Param("user_id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ============================================================
// 账户
// ============================================================

type CreateAccountRequest struct {
	OwnerUserID string          `json:"owner_user_id" binding:"required"`
	Balance     decimal.Decimal `json:"balance" binding:"gte=0"`
	AccountType string          `json:"account_type"`
}

// CreateAccount POST /api/v1/accounts
func (h *Handler) CreateAccount(c *gin.Context) {
	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	account, err := h.accounts.CreateAccount(c.Request.Context(), &service.CreateAccountRequest{
		OwnerUserID: req.OwnerUserID,
		Balance:     req.Balance,
		AccountType: req.AccountType,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, account)
}

func (h *Handler) GetAccount(c *gin.Context) {
	account, err := h.accounts.GetAccount(c.Request.Context(), c.Param("account_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, account)
}

// ListAccountsByOwner GET /api/v1/users/:user_id/accounts
func (h *Handler) ListAccountsByOwner(c *gin.Context) {
	accounts, err := h.accounts.ListByOwner(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, accounts)
}

func (h *Handler) DeleteAccount(c *gin.Context) {
	if err := h.accounts.DeleteAccount(c.Request.Context(), c.Param("account_id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListAccountTransactions GET /api/v1/accounts/:account_id/transactions?page=1&page_size=20
func (h *Handler) ListAccountTransactions(c *gin.Context) {
	page := queryInt(c, "page", 1)
	pageSize := queryInt(c, "page_size", 20)

	transactions, total, err := h.transactions.ListByAccount(c.Request.Context(), c.Param("account_id"), page, pageSize)
	if err != nil {
		h.fail(c, err)
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
// 监护关系
// ============================================================

type InviteGuardianRequest struct {
	SeniorUserID        string `json:"senior_user_id" binding:"required"`
	GuardianPhoneNumber string `json:"guardian_phone_number" binding:"required,phone"`
}

// InviteGuardian POST /api/v1/guardians
func (h *Handler) InviteGuardian(c *gin.Context) {
	var req InviteGuardianRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	rel, err := h.guardians.InviteGuardian(c.Request.Context(), req.SeniorUserID, req.GuardianPhoneNumber)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, rel)
}

// ListGuardiansForSenior GET /api/v1/users/:user_id/guardians
func (h *Handler) ListGuardiansForSenior(c *gin.Context) {
	rels, err := h.guardians.ListForSenior(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, rels)
}

func (h *Handler) AcceptGuardian(c *gin.Context) {
	rel, err := h.guardians.AcceptInvitation(c.Request.Context(), c.Param("relationship_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, rel)
}

func (h *Handler) RevokeGuardian(c *gin.Context) {
	rel, err := h.guardians.RevokeRelationship(c.Request.Context(), c.Param("relationship_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, rel)
}

func (h *Handler) DeleteGuardian(c *gin.Context) {
	if err := h.guardians.DeleteRelationship(c.Request.Context(), c.Param("relationship_id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ============================================================
// 提醒
// ============================================================

// ListAlertsForGuardian GET /api/v1/guardians/:relationship_id/alerts
func (h *Handler) ListAlertsForGuardian(c *gin.Context) {
	alerts, err := h.alerts.ListForRelationship(c.Request.Context(), c.Param("relationship_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, alerts)
}

func (h *Handler) GetAlert(c *gin.Context) {
	alert, err := h.alerts.GetAlert(c.Request.Context(), c.Param("alert_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, alert)
}

func (h *Handler) DeleteAlert(c *gin.Context) {
	if err := h.alerts.DeleteAlert(c.Request.Context(), c.Param("alert_id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
