package job

import (
	"context"
	"time"

	"guardianledger/internal/model"
	"guardianledger/internal/repository"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"
)

// Resolver 结算无人审核的交易，返回最终状态
type Resolver interface {
	ResolveUnreviewed(ctx context.Context, trans *model.Transaction) (string, error)
}

// ReviewTimeoutJob 处理没有监护人可以审核的高风险交易
//
// 有提醒的交易一直等监护人反馈，不在这里处理。
type ReviewTimeoutJob struct {
	transactionRepo *repository.TransactionRepository
	resolver        Resolver
	logger          *log.Logger
	stopCh          chan struct{}
	interval        time.Duration
	timeout         time.Duration
	batchSize       int
	now             func() time.Time
}

func NewReviewTimeoutJob(db *gorm.DB, resolver Resolver, interval, timeout time.Duration, logger *log.Logger) *ReviewTimeoutJob {
	if interval <= 0 {
		interval = time.Minute
	}
	return &ReviewTimeoutJob{
		transactionRepo: repository.NewTransactionRepository(db),
		resolver:        resolver,
		logger:          logger.WithPrefix("ReviewTimeoutJob"),
		stopCh:          make(chan struct{}),
		interval:        interval,
		timeout:         timeout,
		batchSize:       100,
		now:             time.Now,
	}
}

func (j *ReviewTimeoutJob) Start(ctx context.Context) {
	j.logger.Info("审核超时任务启动", "interval", j.interval, "timeout", j.timeout)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("收到停止信号，任务退出")
			return
		case <-j.stopCh:
			j.logger.Info("任务停止")
			return
		case <-ticker.C:
			j.Sweep(ctx)
		}
	}
}

func (j *ReviewTimeoutJob) Stop() {
	close(j.stopCh)
}

// Sweep 处理一批超时交易，返回处理成功的条数
func (j *ReviewTimeoutJob) Sweep(ctx context.Context) int {
	before := j.now().Add(-j.timeout)
	transactions, err := j.transactionRepo.ListUnalertedPending(ctx, before, j.batchSize)
	if err != nil {
		j.logger.Error("查询超时交易失败", "err", err)
		return 0
	}

	if len(transactions) == 0 {
		return 0
	}

	j.logger.Info("发现无人审核的超时交易", "count", len(transactions))

	resolved := 0
	for _, trans := range transactions {
		status, err := j.resolver.ResolveUnreviewed(ctx, trans)
		if err != nil {
			// 另一个实例已经处理过时条件更新会失败，下一轮不会再查到
			j.logger.Warn("处理超时交易失败", "transaction_id", trans.TransactionID, "err", err)
			continue
		}
		resolved++
		j.logger.Info("超时交易已处理",
			"transaction_id", trans.TransactionID,
			"status", status,
			"amount", trans.Amount.StringFixed(2))
	}

	return resolved
}
