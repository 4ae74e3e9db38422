package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"guardianledger/internal/apperr"
	"guardianledger/internal/model"
	"guardianledger/internal/repository"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"
)

// AlertingGate 高风险交易的监护人提醒
type AlertingGate struct {
	accountRepo     *repository.AccountRepository
	transactionRepo *repository.TransactionRepository
	guardianRepo    *repository.GuardianRepository
	alertRepo       *repository.AlertRepository
	outboxRepo      *repository.OutboxRepository
	topic           string
	logger          *log.Logger
}

func NewAlertingGate(db *gorm.DB, topic string, logger *log.Logger) *AlertingGate {
	return &AlertingGate{
		accountRepo:     repository.NewAccountRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
		guardianRepo:    repository.NewGuardianRepository(db),
		alertRepo:       repository.NewAlertRepository(db),
		outboxRepo:      repository.NewOutboxRepository(db),
		topic:           topic,
		logger:          logger.WithPrefix("AlertingGate"),
	}
}

// MaybeAlert 找到转出账户户主的有效监护关系后创建提醒
//
// 没有有效监护关系时返回 nil, nil：交易保持 pending_review，由超时任务处理。
// 交易记录此时已在同一个 tx 中写入，账户不存在会让整个 tx 回滚。
func (g *AlertingGate) MaybeAlert(ctx context.Context, tx *gorm.DB, trans *model.Transaction) (*model.Alert, error) {
	if !trans.IsFlaggedAsHighRisk {
		return nil, nil
	}

	account, err := g.accountRepo.GetByAccountID(ctx, tx, trans.SourceAccountID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, apperr.NotFound("source account %s not found", trans.SourceAccountID)
		}
		return nil, fmt.Errorf("查询转出账户失败: %w", err)
	}

	rel, err := g.guardianRepo.FindActiveForSenior(ctx, tx, account.OwnerUserID)
	if err != nil {
		return nil, fmt.Errorf("查询监护关系失败: %w", err)
	}
	if rel == nil {
		g.logger.Warn("没有有效的监护关系，交易无人审核",
			"transaction_id", trans.TransactionID, "owner_user_id", account.OwnerUserID)
		return nil, nil
	}

	alert := &model.Alert{
		GuardianRelationshipID: rel.GuardianRelationshipID,
		TransactionID:          trans.TransactionID,
		AlertType:              model.AlertTypeHighAmount,
		Status:                 model.AlertStatusSent,
	}
	if err := g.alertRepo.Create(ctx, tx, alert); err != nil {
		return nil, fmt.Errorf("创建提醒失败: %w", err)
	}
	if err := g.transactionRepo.MarkGuardianAlerted(ctx, tx, trans.TransactionID); err != nil {
		return nil, fmt.Errorf("标记交易已提醒失败: %w", err)
	}
	trans.GuardianAlerted = true

	outboxMsg, err := model.NewOutboxMessage(g.topic, alert.AlertID, model.GuardianAlertEvent{
		AlertID:                alert.AlertID,
		GuardianRelationshipID: rel.GuardianRelationshipID,
		GuardianUserID:         rel.GuardianUserID,
		SeniorUserID:           rel.SeniorUserID,
		TransactionID:          trans.TransactionID,
		Amount:                 trans.Amount.StringFixed(2),
		AlertType:              alert.AlertType,
		CreatedAt:              time.Now().Format(time.RFC3339),
	})
	if err != nil {
		return nil, err
	}
	if err := g.outboxRepo.Create(ctx, tx, outboxMsg); err != nil {
		return nil, fmt.Errorf("写入消息失败: %w", err)
	}

	g.logger.Info("已通知监护人",
		"alert_id", alert.AlertID,
		"guardian_user_id", rel.GuardianUserID,
		"transaction_id", trans.TransactionID)

	return alert, nil
}
