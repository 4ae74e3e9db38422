package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"guardianledger/internal/apperr"
	"guardianledger/internal/config"
	"guardianledger/internal/model"
	"guardianledger/internal/repository"
	"guardianledger/pkg/idgen"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	MessageCompleted       = "Transaction completed successfully."
	MessageUnderReview     = "Transaction is under review."
	MessageGuardianAlerted = "Transaction is under review. Guardian has been alerted."
	MessageApproved        = "Transaction approved and completed."
	MessageDenied          = "Transaction denied and cancelled."
)

// 结算的触发方，写进 transaction_result 事件
const (
	ResolvedByDirect   = "direct"
	ResolvedByGuardian = "guardian"
	ResolvedByTimeout  = "timeout"
)

const (
	FeedbackApproved = "approved"
	FeedbackDenied   = "denied"
)

// ReviewLocker 审核期间按交易加锁，nil 表示不加锁
type ReviewLocker interface {
	Acquire(ctx context.Context, transactionID, owner string) (func(), error)
}

type TransactionService struct {
	db              *gorm.DB
	transactionRepo *repository.TransactionRepository
	alertRepo       *repository.AlertRepository
	guardianRepo    *repository.GuardianRepository
	outboxRepo      *repository.OutboxRepository
	classifier      *RiskClassifier
	gate            *AlertingGate
	ledger          *Ledger
	locker          ReviewLocker
	resultTopic     string
	logger          *log.Logger
}

func NewTransactionService(db *gorm.DB, cfg *config.Config, locker ReviewLocker, logger *log.Logger) *TransactionService {
	return &TransactionService{
		db:              db,
		transactionRepo: repository.NewTransactionRepository(db),
		alertRepo:       repository.NewAlertRepository(db),
		guardianRepo:    repository.NewGuardianRepository(db),
		outboxRepo:      repository.NewOutboxRepository(db),
		classifier:      NewRiskClassifier(cfg.Business.Threshold()),
		gate:            NewAlertingGate(db, cfg.Kafka.Topic.GuardianAlert, logger),
		ledger:          NewLedger(db, cfg.Business.AllowOverdraft),
		locker:          locker,
		resultTopic:     cfg.Kafka.Topic.TransactionResult,
		logger:          logger.WithPrefix("TransactionService"),
	}
}

type CreateTransactionRequest struct {
	SourceAccountID      string
	DestinationAccountID *string
	Amount               decimal.Decimal
}

type CreateTransactionResult struct {
	Transaction *model.Transaction
	Alert       *model.Alert
	Message     string
}

// CreateTransaction 创建交易
//
// 低风险交易在同一个数据库事务里写入并结算；高风险交易写入后交给
// AlertingGate，不动余额。任何一步失败，交易记录也不会留下。
func (s *TransactionService) CreateTransaction(ctx context.Context, req *CreateTransactionRequest) (*CreateTransactionResult, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	isHighRisk, status := s.classifier.Classify(req.Amount)

	trans := &model.Transaction{
		TransactionID:        idgen.NewID(),
		SourceAccountID:      req.SourceAccountID,
		DestinationAccountID: req.DestinationAccountID,
		Amount:               req.Amount,
		TransactionType:      model.TransactionTypeTransfer,
		Status:               status,
		IsFlaggedAsHighRisk:  isHighRisk,
	}
	if !isHighRisk {
		now := time.Now()
		trans.ResolvedAt = &now
	}

	var alert *model.Alert
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.transactionRepo.Create(ctx, tx, trans); err != nil {
			return fmt.Errorf("创建交易失败: %w", err)
		}

		if !isHighRisk {
			if err := s.ledger.Settle(ctx, tx, trans); err != nil {
				return err
			}
			return s.queueResult(ctx, tx, trans, ResolvedByDirect)
		}

		var err error
		alert, err = s.gate.MaybeAlert(ctx, tx, trans)
		return err
	})
	if err != nil {
		return nil, err
	}

	result := &CreateTransactionResult{Transaction: trans, Alert: alert}
	switch {
	case !isHighRisk:
		result.Message = MessageCompleted
	case alert != nil:
		result.Message = MessageGuardianAlerted
	default:
		result.Message = MessageUnderReview
	}

	s.logger.Info("交易已创建",
		"transaction_id", trans.TransactionID,
		"amount", trans.Amount.StringFixed(2),
		"status", trans.Status,
		"high_risk", isHighRisk)

	return result, nil
}

func validateCreate(req *CreateTransactionRequest) error {
	if req.SourceAccountID == "" {
		return apperr.InvalidArgument("source_account_id is required")
	}
	if !req.Amount.IsPositive() {
		return apperr.InvalidArgument("amount must be greater than 0")
	}
	if !req.Amount.Equal(req.Amount.Round(2)) {
		return apperr.InvalidArgument("amount must have at most 2 decimal places")
	}
	if req.DestinationAccountID != nil {
		if *req.DestinationAccountID == "" {
			req.DestinationAccountID = nil
		} else if *req.DestinationAccountID == req.SourceAccountID {
			return apperr.InvalidArgument("destination account must differ from source account")
		}
	}
	return nil
}

type FeedbackRequest struct {
	AlertID  string
	Feedback string
}

type FeedbackResult struct {
	Transaction *model.Transaction
	Message     string
}

// SubmitFeedback 监护人对提醒的审核结果
//
// 每笔待审核交易只能成功迁移一次：并发的第二个请求在条件更新时
// 影响行数为 0，返回 InvalidState。提醒所属的监护关系被撤销或删除后
// 不再接受审核，交易保持待审核。
func (s *TransactionService) SubmitFeedback(ctx context.Context, req *FeedbackRequest) (*FeedbackResult, error) {
	alert, err := s.alertRepo.GetByAlertID(ctx, req.AlertID)
	if err != nil {
		return nil, err
	}

	trans, err := s.transactionRepo.GetByTransactionID(ctx, nil, alert.TransactionID)
	if err != nil {
		if errors.Is(err, repository.ErrTransactionNotFound) {
			return nil, apperr.InvalidState("transaction for alert %s no longer exists", alert.AlertID)
		}
		return nil, err
	}
	if trans.Status != model.TransactionStatusPendingReview {
		return nil, repository.ErrTransactionStatusInvalid
	}

	rel, err := s.guardianRepo.GetByID(ctx, alert.GuardianRelationshipID)
	if err != nil && !errors.Is(err, repository.ErrGuardianNotFound) {
		return nil, err
	}
	if rel == nil || rel.Status != model.GuardianStatusActive {
		return nil, apperr.InvalidState("guardian relationship for alert %s is no longer active", alert.AlertID)
	}

	var toStatus, message string
	switch strings.ToLower(strings.TrimSpace(req.Feedback)) {
	case FeedbackApproved:
		toStatus, message = model.TransactionStatusCompleted, MessageApproved
	case FeedbackDenied:
		toStatus, message = model.TransactionStatusCancelled, MessageDenied
	default:
		return nil, apperr.InvalidArgument("feedback must be 'approved' or 'denied'")
	}

	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, trans.TransactionID, idgen.NewID())
		if err != nil {
			s.logger.Warn("获取审核锁失败", "transaction_id", trans.TransactionID, "err", err)
			return nil, apperr.Conflict("transaction %s is being reviewed by another request", trans.TransactionID)
		}
		defer release()
	}

	if err := s.resolve(ctx, trans, toStatus, ResolvedByGuardian); err != nil {
		return nil, err
	}

	s.logger.Info("监护人审核完成",
		"alert_id", alert.AlertID,
		"transaction_id", trans.TransactionID,
		"status", trans.Status)

	return &FeedbackResult{Transaction: trans, Message: message}, nil
}

// ResolveUnreviewed 自动完成无人审核的交易，余额不足时改为取消
func (s *TransactionService) ResolveUnreviewed(ctx context.Context, trans *model.Transaction) (string, error) {
	err := s.resolve(ctx, trans, model.TransactionStatusCompleted, ResolvedByTimeout)
	if errors.Is(err, repository.ErrInsufficientFunds) {
		s.logger.Warn("余额不足，超时交易改为取消", "transaction_id", trans.TransactionID)
		err = s.resolve(ctx, trans, model.TransactionStatusCancelled, ResolvedByTimeout)
		if err != nil {
			return "", err
		}
		return model.TransactionStatusCancelled, nil
	}
	if err != nil {
		return "", err
	}
	return model.TransactionStatusCompleted, nil
}

// resolve 条件更新状态，完成时结算，再写结果消息；三步同一个事务
func (s *TransactionService) resolve(ctx context.Context, trans *model.Transaction, toStatus, resolvedBy string) error {
	var resolvedAt time.Time
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := s.transactionRepo.UpdateStatus(ctx, tx, trans.TransactionID, model.TransactionStatusPendingReview, toStatus)
		if err != nil {
			return err
		}

		if toStatus == model.TransactionStatusCompleted {
			if err := s.ledger.Settle(ctx, tx, trans); err != nil {
				return err
			}
		}

		resolvedAt = time.Now()
		snapshot := *trans
		snapshot.Status = toStatus
		snapshot.ResolvedAt = &resolvedAt
		return s.queueResult(ctx, tx, &snapshot, resolvedBy)
	})
	if err != nil {
		return err
	}

	trans.Status = toStatus
	trans.ResolvedAt = &resolvedAt
	return nil
}

func (s *TransactionService) queueResult(ctx context.Context, tx *gorm.DB, trans *model.Transaction, resolvedBy string) error {
	resolvedAt := time.Now()
	if trans.ResolvedAt != nil {
		resolvedAt = *trans.ResolvedAt
	}

	msg, err := model.NewOutboxMessage(s.resultTopic, trans.TransactionID, model.TransactionResultEvent{
		TransactionID:        trans.TransactionID,
		SourceAccountID:      trans.SourceAccountID,
		DestinationAccountID: trans.DestinationAccountID,
		Amount:               trans.Amount.StringFixed(2),
		Status:               trans.Status,
		ResolvedBy:           resolvedBy,
		ResolvedAt:           resolvedAt.Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	if err := s.outboxRepo.Create(ctx, tx, msg); err != nil {
		return fmt.Errorf("写入消息失败: %w", err)
	}
	return nil
}

func (s *TransactionService) GetTransaction(ctx context.Context, transactionID string) (*model.Transaction, error) {
	return s.transactionRepo.GetByTransactionID(ctx, nil, transactionID)
}

func (s *TransactionService) ListByAccount(ctx context.Context, accountID string, page, pageSize int) ([]*model.Transaction, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.transactionRepo.ListByAccount(ctx, accountID, page, pageSize)
}
