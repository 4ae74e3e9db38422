package service

import (
	"testing"

	"guardianledger/internal/config"
	"guardianledger/internal/infrastructure/logging"
	"guardianledger/internal/testutil"

	"gorm.io/gorm"
)

func testConfig() *config.Config {
	return &config.Config{
		Kafka: config.KafkaConfig{
			Topic: config.KafkaTopicConfig{
				GuardianAlert:     "guardian_alert",
				TransactionResult: "transaction_result",
			},
		},
		Business: config.BusinessConfig{
			HighRiskThreshold:    "5000.00",
			ReviewTimeoutMinutes: 60,
			MaxRetryCount:        3,
		},
	}
}

func newTestTransactionService(t *testing.T, cfg *config.Config, locker ReviewLocker) (*TransactionService, *gorm.DB) {
	t.Helper()
	db := testutil.NewDB(t)
	return NewTransactionService(db, cfg, locker, logging.Discard()), db
}
