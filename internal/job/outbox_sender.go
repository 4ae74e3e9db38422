package job

import (
	"context"
	"time"

	"guardianledger/internal/model"
	"guardianledger/internal/repository"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"
)

// Sender 消息投递，生产环境是 mq.Producer
type Sender interface {
	SendMessage(topic, key, value string) error
}

// OutboxSender 轮询 outbox 表，把业务事务里写下的消息投递到 Kafka
type OutboxSender struct {
	outboxRepo    *repository.OutboxRepository
	sender        Sender
	logger        *log.Logger
	stopCh        chan struct{}
	interval      time.Duration
	batchSize     int
	maxRetryCount int
}

func NewOutboxSender(db *gorm.DB, sender Sender, interval time.Duration, maxRetryCount int, logger *log.Logger) *OutboxSender {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	if maxRetryCount <= 0 {
		maxRetryCount = 1
	}
	return &OutboxSender{
		outboxRepo:    repository.NewOutboxRepository(db),
		sender:        sender,
		logger:        logger.WithPrefix("OutboxSender"),
		stopCh:        make(chan struct{}),
		interval:      interval,
		batchSize:     100,
		maxRetryCount: maxRetryCount,
	}
}

func (s *OutboxSender) Start(ctx context.Context) {
	s.logger.Info("消息发送任务启动", "interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("收到停止信号，任务退出")
			return
		case <-s.stopCh:
			s.logger.Info("任务停止")
			return
		case <-ticker.C:
			s.ProcessPending(ctx)
		}
	}
}

func (s *OutboxSender) Stop() {
	close(s.stopCh)
}

// ProcessPending 处理一批待发送消息，返回发送成功的条数
func (s *OutboxSender) ProcessPending(ctx context.Context) int {
	messages, err := s.outboxRepo.GetPendingMessages(ctx, s.batchSize)
	if err != nil {
		s.logger.Error("查询消息失败", "err", err)
		return 0
	}

	sent := 0
	for _, msg := range messages {
		if s.sendMessage(ctx, msg) {
			sent++
		}
	}
	return sent
}

func (s *OutboxSender) sendMessage(ctx context.Context, msg *model.OutboxMessage) bool {
	err := s.sender.SendMessage(msg.Topic, msg.MessageKey, msg.Payload)
	if err == nil {
		if updateErr := s.outboxRepo.MarkAsSent(ctx, msg.ID); updateErr != nil {
			s.logger.Error("更新消息状态失败", "id", msg.ID, "err", updateErr)
			return false
		}
		s.logger.Debug("消息发送成功", "id", msg.ID, "topic", msg.Topic, "key", msg.MessageKey)
		return true
	}

	giveUp := msg.RetryCount+1 >= s.maxRetryCount
	s.logger.Warn("消息发送失败", "id", msg.ID, "retry", msg.RetryCount+1, "give_up", giveUp, "err", err)

	if err := s.outboxRepo.RecordFailure(ctx, msg.ID, giveUp); err != nil {
		s.logger.Error("记录发送失败出错", "id", msg.ID, "err", err)
	} else if giveUp {
		s.logger.Error("消息超过最大重试次数，标记为失败", "id", msg.ID, "topic", msg.Topic)
	}
	return false
}
