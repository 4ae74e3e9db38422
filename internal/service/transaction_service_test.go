package service

import (
	"context"
	"sync"
	"testing"

	"guardianledger/internal/apperr"
	"guardianledger/internal/infrastructure/lock"
	"guardianledger/internal/model"
	"guardianledger/internal/repository"
	"guardianledger/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type reviewFixture struct {
	senior      *model.User
	guardian    *model.User
	source      *model.Account
	destination *model.Account
	rel         *model.GuardianRelationship
}

func seedReview(t *testing.T, db *gorm.DB, sourceBalance string, withGuardian bool) *reviewFixture {
	t.Helper()
	f := &reviewFixture{
		senior:   testutil.SeedUser(t, db, "Senior"),
		guardian: testutil.SeedUser(t, db, "Guardian"),
	}
	f.source = testutil.SeedAccount(t, db, f.senior.UserID, sourceBalance)
	f.destination = testutil.SeedAccount(t, db, f.guardian.UserID, "0")
	if withGuardian {
		f.rel = testutil.SeedGuardian(t, db, f.senior.UserID, f.guardian.UserID, model.GuardianStatusActive)
	}
	return f
}

func strPtr(s string) *string { return &s }

func createHighRisk(t *testing.T, svc *TransactionService, f *reviewFixture, amount string) *CreateTransactionResult {
	t.Helper()
	res, err := svc.CreateTransaction(context.Background(), &CreateTransactionRequest{
		SourceAccountID:      f.source.AccountID,
		DestinationAccountID: strPtr(f.destination.AccountID),
		Amount:               testutil.Dec(amount),
	})
	require.NoError(t, err)
	return res
}

func countAlerts(t *testing.T, db *gorm.DB, transactionID string) int64 {
	t.Helper()
	n, err := repository.NewAlertRepository(db).CountByTransactionID(context.Background(), transactionID)
	require.NoError(t, err)
	return n
}

func outboxTopics(t *testing.T, db *gorm.DB, topic string) []*model.OutboxMessage {
	t.Helper()
	msgs, err := repository.NewOutboxRepository(db).ListByTopic(context.Background(), topic)
	require.NoError(t, err)
	return msgs
}

func TestCreateTransactionSettlesLowRisk(t *testing.T) {
	svc, db := newTestTransactionService(t, testConfig(), nil)
	f := seedReview(t, db, "500", false)

	res, err := svc.CreateTransaction(context.Background(), &CreateTransactionRequest{
		SourceAccountID:      f.source.AccountID,
		DestinationAccountID: strPtr(f.destination.AccountID),
		Amount:               testutil.Dec("100"),
	})
	require.NoError(t, err)

	assert.Equal(t, MessageCompleted, res.Message)
	assert.Equal(t, model.TransactionStatusCompleted, res.Transaction.Status)
	assert.False(t, res.Transaction.IsFlaggedAsHighRisk)
	assert.NotNil(t, res.Transaction.ResolvedAt)
	assert.Nil(t, res.Alert)

	assert.True(t, testutil.Dec("400").Equal(testutil.Balance(t, db, f.source.AccountID)))
	assert.True(t, testutil.Dec("100").Equal(testutil.Balance(t, db, f.destination.AccountID)))
	assert.Len(t, outboxTopics(t, db, "transaction_result"), 1)
}

func TestCreateTransactionAtThresholdIsNotHighRisk(t *testing.T) {
	svc, db := newTestTransactionService(t, testConfig(), nil)
	f := seedReview(t, db, "6000", true)

	res := createHighRisk(t, svc, f, "5000.00")

	assert.Equal(t, model.TransactionStatusCompleted, res.Transaction.Status)
	assert.Equal(t, int64(0), countAlerts(t, db, res.Transaction.TransactionID))
	assert.True(t, testutil.Dec("1000").Equal(testutil.Balance(t, db, f.source.AccountID)))
}

func TestCreateTransactionWithoutDestinationOnlyDebits(t *testing.T) {
	svc, db := newTestTransactionService(t, testConfig(), nil)
	f := seedReview(t, db, "300", false)

	res, err := svc.CreateTransaction(context.Background(), &CreateTransactionRequest{
		SourceAccountID: f.source.AccountID,
		Amount:          testutil.Dec("50.25"),
	})
	require.NoError(t, err)

	assert.Nil(t, res.Transaction.DestinationAccountID)
	assert.True(t, testutil.Dec("249.75").Equal(testutil.Balance(t, db, f.source.AccountID)))
}

func TestCreateTransactionHighRiskAlertsGuardian(t *testing.T) {
	svc, db := newTestTransactionService(t, testConfig(), nil)
	f := seedReview(t, db, "10000", true)

	res := createHighRisk(t, svc, f, "6000")

	assert.Equal(t, MessageGuardianAlerted, res.Message)
	assert.Equal(t, model.TransactionStatusPendingReview, res.Transaction.Status)
	assert.True(t, res.Transaction.IsFlaggedAsHighRisk)
	assert.True(t, res.Transaction.GuardianAlerted)
	require.NotNil(t, res.Alert)
	assert.Regexp(t, `^ALT\d+$`, res.Alert.AlertID)
	assert.Equal(t, f.rel.GuardianRelationshipID, res.Alert.GuardianRelationshipID)
	assert.Equal(t, model.AlertTypeHighAmount, res.Alert.AlertType)
	assert.Equal(t, model.AlertStatusSent, res.Alert.Status)

	assert.Equal(t, int64(1), countAlerts(t, db, res.Transaction.TransactionID))
	assert.True(t, testutil.Dec("10000").Equal(testutil.Balance(t, db, f.source.AccountID)))
	assert.True(t, testutil.Dec("0").Equal(testutil.Balance(t, db, f.destination.AccountID)))

	msgs := outboxTopics(t, db, "guardian_alert")
	require.Len(t, msgs, 1)
	assert.Equal(t, res.Alert.AlertID, msgs[0].MessageKey)
	assert.Contains(t, msgs[0].Payload, f.guardian.UserID)
}

func TestCreateTransactionHighRiskWithoutGuardian(t *testing.T) {
	svc, db := newTestTransactionService(t, testConfig(), nil)
	f := seedReview(t, db, "10000", false)
	// 未接受的邀请不算有效监护
	testutil.SeedGuardian(t, db, f.senior.UserID, f.guardian.UserID, model.GuardianStatusPending)

	res := createHighRisk(t, svc, f, "6000")

	assert.Equal(t, MessageUnderReview, res.Message)
	assert.Nil(t, res.Alert)
	assert.Equal(t, model.TransactionStatusPendingReview, res.Transaction.Status)
	assert.Equal(t, int64(0), countAlerts(t, db, res.Transaction.TransactionID))
	assert.True(t, testutil.Dec("10000").Equal(testutil.Balance(t, db, f.source.AccountID)))
}

func TestCreateTransactionRejectsInvalidInput(t *testing.T) {
	svc, db := newTestTransactionService(t, testConfig(), nil)
	f := seedReview(t, db, "100", false)

	tests := []struct {
		name string
		req  *CreateTransactionRequest
	}{
		{"zero amount", &CreateTransactionRequest{SourceAccountID: f.source.AccountID, Amount: decimal.Zero}},
		{"negative amount", &CreateTransactionRequest{SourceAccountID: f.source.AccountID, Amount: testutil.Dec("-5")}},
		{"sub-cent amount", &CreateTransactionRequest{SourceAccountID: f.source.AccountID, Amount: testutil.Dec("1.001")}},
		{"missing source", &CreateTransactionRequest{Amount: testutil.Dec("5")}},
		{"self transfer", &CreateTransactionRequest{
			SourceAccountID:      f.source.AccountID,
			DestinationAccountID: strPtr(f.source.AccountID),
			Amount:               testutil.Dec("5"),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateTransaction(context.Background(), tt.req)
			assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
		})
	}
	assert.True(t, testutil.Dec("100").Equal(testutil.Balance(t, db, f.source.AccountID)))
}

func TestCreateTransactionMissingAccounts(t *testing.T) {
	svc, db := newTestTransactionService(t, testConfig(), nil)
	f := seedReview(t, db, "100", false)

	t.Run("missing source low risk", func(t *testing.T) {
		_, err := svc.CreateTransaction(context.Background(), &CreateTransactionRequest{
			SourceAccountID: "no-such-account",
			Amount:          testutil.Dec("10"),
		})
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("missing source high risk", func(t *testing.T) {
		_, err := svc.CreateTransaction(context.Background(), &CreateTransactionRequest{
			SourceAccountID: "no-such-account",
			Amount:          testutil.Dec("9000"),
		})
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("missing destination rolls back debit", func(t *testing.T) {
		_, err := svc.CreateTransaction(context.Background(), &CreateTransactionRequest{
			SourceAccountID:      f.source.AccountID,
			DestinationAccountID: strPtr("no-such-account"),
			Amount:               testutil.Dec("10"),
		})
		assert.ErrorIs(t, err, apperr.ErrNotFound)
		assert.True(t, testutil.Dec("100").Equal(testutil.Balance(t, db, f.source.AccountID)))
	})

	var count int64
	require.NoError(t, db.Model(&model.Transaction{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestOverdraftPolicy(t *testing.T) {
	t.Run("rejected by default", func(t *testing.T) {
		svc, db := newTestTransactionService(t, testConfig(), nil)
		f := seedReview(t, db, "50", false)

		_, err := svc.CreateTransaction(context.Background(), &CreateTransactionRequest{
			SourceAccountID:      f.source.AccountID,
			DestinationAccountID: strPtr(f.destination.AccountID),
			Amount:               testutil.Dec("80"),
		})
		require.ErrorIs(t, err, repository.ErrInsufficientFunds)
		assert.ErrorIs(t, err, apperr.ErrInvalidState)
		assert.True(t, testutil.Dec("50").Equal(testutil.Balance(t, db, f.source.AccountID)))
		assert.True(t, testutil.Dec("0").Equal(testutil.Balance(t, db, f.destination.AccountID)))
	})

	t.Run("allowed when enabled", func(t *testing.T) {
		cfg := testConfig()
		cfg.Business.AllowOverdraft = true
		svc, db := newTestTransactionService(t, cfg, nil)
		f := seedReview(t, db, "50", false)

		_, err := svc.CreateTransaction(context.Background(), &CreateTransactionRequest{
			SourceAccountID:      f.source.AccountID,
			DestinationAccountID: strPtr(f.destination.AccountID),
			Amount:               testutil.Dec("80"),
		})
		require.NoError(t, err)
		assert.True(t, testutil.Dec("-30").Equal(testutil.Balance(t, db, f.source.AccountID)))
		assert.True(t, testutil.Dec("80").Equal(testutil.Balance(t, db, f.destination.AccountID)))
	})
}

func TestSubmitFeedbackApproved(t *testing.T) {
	svc, db := newTestTransactionService(t, testConfig(), nil)
	f := seedReview(t, db, "10000", true)
	created := createHighRisk(t, svc, f, "6000")

	res, err := svc.SubmitFeedback(context.Background(), &FeedbackRequest{
		AlertID:  created.Alert.AlertID,
		Feedback: "Approved",
	})
	require.NoError(t, err)

	assert.Equal(t, model.TransactionStatusCompleted, res.Transaction.Status)
	assert.NotNil(t, res.Transaction.ResolvedAt)
	assert.True(t, testutil.Dec("4000").Equal(testutil.Balance(t, db, f.source.AccountID)))
	assert.True(t, testutil.Dec("6000").Equal(testutil.Balance(t, db, f.destination.AccountID)))

	stored, err := svc.GetTransaction(context.Background(), created.Transaction.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, model.TransactionStatusCompleted, stored.Status)
	assert.True(t, stored.IsFlaggedAsHighRisk)

	msgs := outboxTopics(t, db, "transaction_result")
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Payload, `"resolved_by":"guardian"`)

	t.Run("second feedback is rejected", func(t *testing.T) {
		_, err := svc.SubmitFeedback(context.Background(), &FeedbackRequest{
			AlertID:  created.Alert.AlertID,
			Feedback: "approved",
		})
		assert.ErrorIs(t, err, apperr.ErrInvalidState)
		assert.True(t, testutil.Dec("4000").Equal(testutil.Balance(t, db, f.source.AccountID)))
	})
}

func TestSubmitFeedbackDenied(t *testing.T) {
	svc, db := newTestTransactionService(t, testConfig(), nil)
	f := seedReview(t, db, "10000", true)
	created := createHighRisk(t, svc, f, "6000")

	res, err := svc.SubmitFeedback(context.Background(), &FeedbackRequest{
		AlertID:  created.Alert.AlertID,
		Feedback: "denied",
	})
	require.NoError(t, err)

	assert.Equal(t, model.TransactionStatusCancelled, res.Transaction.Status)
	assert.Equal(t, MessageDenied, res.Message)
	assert.True(t, testutil.Dec("10000").Equal(testutil.Balance(t, db, f.source.AccountID)))
	assert.True(t, testutil.Dec("0").Equal(testutil.Balance(t, db, f.destination.AccountID)))
}

func TestSubmitFeedbackInvalid(t *testing.T) {
	svc, db := newTestTransactionService(t, testConfig(), nil)
	f := seedReview(t, db, "10000", true)
	created := createHighRisk(t, svc, f, "6000")

	t.Run("unknown alert", func(t *testing.T) {
		_, err := svc.SubmitFeedback(context.Background(), &FeedbackRequest{AlertID: "ALT0", Feedback: "approved"})
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("bad feedback value", func(t *testing.T) {
		_, err := svc.SubmitFeedback(context.Background(), &FeedbackRequest{
			AlertID:  created.Alert.AlertID,
			Feedback: "maybe",
		})
		assert.ErrorIs(t, err, apperr.ErrInvalidArgument)

		stored, err := svc.GetTransaction(context.Background(), created.Transaction.TransactionID)
		require.NoError(t, err)
		assert.Equal(t, model.TransactionStatusPendingReview, stored.Status)
	})

	t.Run("transaction deleted", func(t *testing.T) {
		require.NoError(t, db.Where("transaction_id = ?", created.Transaction.TransactionID).
			Delete(&model.Transaction{}).Error)
		_, err := svc.SubmitFeedback(context.Background(), &FeedbackRequest{
			AlertID:  created.Alert.AlertID,
			Feedback: "approved",
		})
		assert.ErrorIs(t, err, apperr.ErrInvalidState)
	})
}

func TestSubmitFeedbackRequiresActiveRelationship(t *testing.T) {
	cases := []struct {
		name string
		end  func(t *testing.T, guardians *GuardianService, relationshipID string)
	}{
		{"revoked", func(t *testing.T, guardians *GuardianService, relationshipID string) {
			_, err := guardians.RevokeRelationship(context.Background(), relationshipID)
			require.NoError(t, err)
		}},
		{"deleted", func(t *testing.T, guardians *GuardianService, relationshipID string) {
			require.NoError(t, guardians.DeleteRelationship(context.Background(), relationshipID))
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, db := newTestTransactionService(t, testConfig(), nil)
			f := seedReview(t, db, "10000", true)
			created := createHighRisk(t, svc, f, "6000")
			require.NotNil(t, created.Alert)

			tc.end(t, NewGuardianService(db), f.rel.GuardianRelationshipID)

			for _, feedback := range []string{FeedbackApproved, FeedbackDenied} {
				_, err := svc.SubmitFeedback(context.Background(), &FeedbackRequest{
					AlertID:  created.Alert.AlertID,
					Feedback: feedback,
				})
				assert.ErrorIs(t, err, apperr.ErrInvalidState)
			}

			stored, err := svc.GetTransaction(context.Background(), created.Transaction.TransactionID)
			require.NoError(t, err)
			assert.Equal(t, model.TransactionStatusPendingReview, stored.Status)
			assert.True(t, testutil.Dec("10000").Equal(testutil.Balance(t, db, f.source.AccountID)))
			assert.True(t, testutil.Dec("0").Equal(testutil.Balance(t, db, f.destination.AccountID)))
			assert.Empty(t, outboxTopics(t, db, "transaction_result"))
		})
	}
}

func TestSubmitFeedbackInsufficientFundsRollsBack(t *testing.T) {
	svc, db := newTestTransactionService(t, testConfig(), nil)
	f := seedReview(t, db, "10000", true)
	created := createHighRisk(t, svc, f, "6000")

	// 提醒发出后余额被花掉
	require.NoError(t, db.Model(&model.Account{}).
		Where("account_id = ?", f.source.AccountID).
		Update("balance", testutil.Dec("100")).Error)

	_, err := svc.SubmitFeedback(context.Background(), &FeedbackRequest{
		AlertID:  created.Alert.AlertID,
		Feedback: "approved",
	})
	require.ErrorIs(t, err, repository.ErrInsufficientFunds)

	stored, err := svc.GetTransaction(context.Background(), created.Transaction.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, model.TransactionStatusPendingReview, stored.Status)
	assert.Nil(t, stored.ResolvedAt)
	assert.True(t, testutil.Dec("100").Equal(testutil.Balance(t, db, f.source.AccountID)))
}

func runConcurrentApprovals(t *testing.T, svc *TransactionService, alertID string, workers int) (int, int) {
	t.Helper()
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.SubmitFeedback(context.Background(), &FeedbackRequest{AlertID: alertID, Feedback: "approved"})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if assert.ErrorIs(t, err, apperr.ErrInvalidState) {
				rejected++
			}
		}()
	}
	wg.Wait()
	return succeeded, rejected
}

func TestConcurrentApprovalsSettleOnce(t *testing.T) {
	svc, db := newTestTransactionService(t, testConfig(), nil)
	f := seedReview(t, db, "10000", true)
	created := createHighRisk(t, svc, f, "6000")

	succeeded, rejected := runConcurrentApprovals(t, svc, created.Alert.AlertID, 8)

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 7, rejected)
	assert.True(t, testutil.Dec("4000").Equal(testutil.Balance(t, db, f.source.AccountID)))
	assert.True(t, testutil.Dec("6000").Equal(testutil.Balance(t, db, f.destination.AccountID)))
	assert.Len(t, outboxTopics(t, db, "transaction_result"), 1)
}

func TestConcurrentApprovalsWithReviewLock(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	svc, db := newTestTransactionService(t, testConfig(), lock.NewReviewLocker(client))
	f := seedReview(t, db, "10000", true)
	created := createHighRisk(t, svc, f, "6000")

	succeeded, rejected := runConcurrentApprovals(t, svc, created.Alert.AlertID, 4)

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 3, rejected)
	assert.True(t, testutil.Dec("4000").Equal(testutil.Balance(t, db, f.source.AccountID)))
	assert.False(t, mr.Exists(lock.ReviewLockKey(created.Transaction.TransactionID)))
}

func TestResolveUnreviewed(t *testing.T) {
	t.Run("completes when funds suffice", func(t *testing.T) {
		svc, db := newTestTransactionService(t, testConfig(), nil)
		f := seedReview(t, db, "10000", false)
		created := createHighRisk(t, svc, f, "6000")

		status, err := svc.ResolveUnreviewed(context.Background(), created.Transaction)
		require.NoError(t, err)
		assert.Equal(t, model.TransactionStatusCompleted, status)
		assert.True(t, testutil.Dec("4000").Equal(testutil.Balance(t, db, f.source.AccountID)))
	})

	t.Run("cancels on insufficient funds", func(t *testing.T) {
		svc, db := newTestTransactionService(t, testConfig(), nil)
		f := seedReview(t, db, "10000", false)
		created := createHighRisk(t, svc, f, "6000")
		require.NoError(t, db.Model(&model.Account{}).
			Where("account_id = ?", f.source.AccountID).
			Update("balance", testutil.Dec("10")).Error)

		status, err := svc.ResolveUnreviewed(context.Background(), created.Transaction)
		require.NoError(t, err)
		assert.Equal(t, model.TransactionStatusCancelled, status)
		assert.True(t, testutil.Dec("10").Equal(testutil.Balance(t, db, f.source.AccountID)))

		stored, err := svc.GetTransaction(context.Background(), created.Transaction.TransactionID)
		require.NoError(t, err)
		assert.Equal(t, model.TransactionStatusCancelled, stored.Status)
	})
}

func TestListByAccount(t *testing.T) {
	svc, db := newTestTransactionService(t, testConfig(), nil)
	f := seedReview(t, db, "1000", false)

	for i := 0; i < 3; i++ {
		_, err := svc.CreateTransaction(context.Background(), &CreateTransactionRequest{
			SourceAccountID:      f.source.AccountID,
			DestinationAccountID: strPtr(f.destination.AccountID),
			Amount:               testutil.Dec("10"),
		})
		require.NoError(t, err)
	}

	list, total, err := svc.ListByAccount(context.Background(), f.destination.AccountID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, list, 2)
}
