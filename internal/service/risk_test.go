package service

import (
	"testing"

	"guardianledger/internal/model"
	"guardianledger/internal/testutil"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	c := NewRiskClassifier(testutil.Dec("5000.00"))

	tests := []struct {
		amount     string
		highRisk   bool
		wantStatus string
	}{
		{"0.01", false, model.TransactionStatusCompleted},
		{"4999.99", false, model.TransactionStatusCompleted},
		{"5000.00", false, model.TransactionStatusCompleted},
		{"5000.01", true, model.TransactionStatusPendingReview},
		{"250000", true, model.TransactionStatusPendingReview},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			highRisk, status := c.Classify(testutil.Dec(tt.amount))
			assert.Equal(t, tt.highRisk, highRisk)
			assert.Equal(t, tt.wantStatus, status)
		})
	}
}
