package handler

import (
	"guardianledger/internal/service"
	"guardianledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type TransactionRequest struct {
	SourceAccountID      string          `json:"source_account_id" binding:"required"`
	DestinationAccountID *string         `json:"destination_account_id"`
	Amount               decimal.Decimal `json:"amount" binding:"required,gt=0"`
}

// CreateTransaction 发起转账，高风险交易进入待审核并提醒监护人
// POST /api/v1/transactions
func (h *Handler) CreateTransaction(c *gin.Context) {
	var req TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.transactions.CreateTransaction(c.Request.Context(), &service.CreateTransactionRequest{
		SourceAccountID:      req.SourceAccountID,
		DestinationAccountID: req.DestinationAccountID,
		Amount:               req.Amount,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	data := gin.H{
		"transaction_id":          result.Transaction.TransactionID,
		"status":                  result.Transaction.Status,
		"is_flagged_as_high_risk": result.Transaction.IsFlaggedAsHighRisk,
	}
	if result.Alert != nil {
		data["alert_id"] = result.Alert.AlertID
	}

	response.SuccessWithMessage(c, result.Message, data)
}

func (h *Handler) GetTransaction(c *gin.Context) {
	trans, err := h.transactions.GetTransaction(c.Request.Context(), c.Param("transaction_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, trans)
}

type GuardianFeedbackRequest struct {
	AlertID  string `json:"alert_id" binding:"required"`
	Feedback string `json:"feedback" binding:"required"`
}

// GuardianFeedback 监护人审核高风险交易，feedback 为 approved 或 denied
// POST /api/v1/guardian-feedback
func (h *Handler) GuardianFeedback(c *gin.Context) {
	var req GuardianFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.transactions.SubmitFeedback(c.Request.Context(), &service.FeedbackRequest{
		AlertID:  req.AlertID,
		Feedback: req.Feedback,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	response.SuccessWithMessage(c, result.Message, gin.H{
		"transaction_id": result.Transaction.TransactionID,
		"status":         result.Transaction.Status,
	})
}
