package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ============================================================================
// 分布式锁实现
// ============================================================================
//
// 审核交易的正确性由数据库条件更新保证（status = pending_review 才能迁移），
// 这把锁只用来让同一笔交易的并发审核请求排队，减少事务冲突和回滚。
//
// 加锁用 SET NX EX，value 是持有者标识；释放时 Lua 脚本比对 value 后再删除。
//
// ============================================================================

var ErrLockFailed = errors.New("lock: retries exhausted")

const unlockScript = `
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`

// DistributedLock 分布式锁
type DistributedLock struct {
	client     *redis.Client
	key        string
	value      string // 持有者
	expiration time.Duration
}

// NewDistributedLock 创建分布式锁
func NewDistributedLock(client *redis.Client, key, value string, expiration time.Duration) *DistributedLock {
	return &DistributedLock{
		client:     client,
		key:        key,
		value:      value,
		expiration: expiration,
	}
}

// TryLock 尝试获取锁（非阻塞）
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	return l.client.SetNX(ctx, l.key, l.value, l.expiration).Result()
}

// Lock 阻塞式获取锁（带重试）
func (l *DistributedLock) Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error {
	for i := 0; i < maxRetries; i++ {
		success, err := l.TryLock(ctx)
		if err != nil {
			return err
		}
		if success {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}
	return ErrLockFailed
}

// Unlock 释放锁，只删除自己持有的锁
func (l *DistributedLock) Unlock(ctx context.Context) error {
	return l.client.Eval(ctx, unlockScript, []string{l.key}, l.value).Err()
}

// ============================================================================
// 按交易维度的审核锁
// ============================================================================

// ReviewLocker 为每笔交易提供一把审核锁
type ReviewLocker struct {
	client        *redis.Client
	expiration    time.Duration
	retryInterval time.Duration
	maxRetries    int
}

func NewReviewLocker(client *redis.Client) *ReviewLocker {
	return &ReviewLocker{
		client:        client,
		expiration:    30 * time.Second,
		retryInterval: 50 * time.Millisecond,
		maxRetries:    60,
	}
}

func ReviewLockKey(transactionID string) string {
	return fmt.Sprintf("review:lock:txn:%s", transactionID)
}

// Acquire 获取交易审核锁，返回的 release 必须调用
func (r *ReviewLocker) Acquire(ctx context.Context, transactionID, owner string) (func(), error) {
	l := NewDistributedLock(r.client, ReviewLockKey(transactionID), owner, r.expiration)
	if err := l.Lock(ctx, r.retryInterval, r.maxRetries); err != nil {
		return nil, err
	}
	return func() {
		// 请求的 ctx 可能已经取消，释放锁用独立的 ctx
		unlockCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = l.Unlock(unlockCtx)
	}, nil
}
