package service

import (
	"guardianledger/internal/model"

	"github.com/shopspring/decimal"
)

// RiskClassifier 金额严格大于阈值即为高风险
type RiskClassifier struct {
	threshold decimal.Decimal
}

func NewRiskClassifier(threshold decimal.Decimal) *RiskClassifier {
	return &RiskClassifier{threshold: threshold}
}

// Classify 返回是否高风险以及交易的初始状态
func (c *RiskClassifier) Classify(amount decimal.Decimal) (bool, string) {
	if amount.GreaterThan(c.threshold) {
		return true, model.TransactionStatusPendingReview
	}
	return false, model.TransactionStatusCompleted
}
