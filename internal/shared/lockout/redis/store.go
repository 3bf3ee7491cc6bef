// Package redis 锁定策略的 Redis 实现
//
// 每个客户端两个 key：
//   - lockout_attempts:<key> 失败计数，带观察窗口 TTL
//   - lockout_locked:<key>   锁定标记，TTL 即剩余冷却时间
package redis

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"solver-admin/internal/config"
	"solver-admin/internal/shared/lockout"
)

// Store 锁定策略 Redis 存储
type Store struct {
	client      *redis.Client
	maxAttempts int
	window      time.Duration
	cooldown    time.Duration
}

// NewStoreFromURL 从 URL 创建锁定策略存储
func NewStoreFromURL(redisURL string, cfg config.LockoutConfig) (*Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Printf("[Redis/Lockout] Connected to %s", opts.Addr)
	return NewStoreFromClient(client, cfg), nil
}

// NewStoreFromClient 从现有 Redis 客户端创建锁定策略存储
func NewStoreFromClient(client *redis.Client, cfg config.LockoutConfig) *Store {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = lockout.DefaultMaxAttempts
	}
	window := cfg.Window
	if window <= 0 {
		window = lockout.DefaultWindow
	}
	cooldown := cfg.Cooldown
	if cooldown <= 0 {
		cooldown = lockout.DefaultCooldown
	}
	return &Store{client: client, maxAttempts: maxAttempts, window: window, cooldown: cooldown}
}

// Close 关闭 Redis 连接
func (s *Store) Close() error {
	return s.client.Close()
}

// Status 查询客户端当前的尝试/锁定状态
func (s *Store) Status(ctx context.Context, clientKey string) (*lockout.Info, error) {
	attempts, err := s.client.Get(ctx, lockout.KeyAttempts+clientKey).Int()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get attempt count: %w", err)
	}

	// TTL 即剩余冷却时间；key 不存在时返回负值
	ttl, err := s.client.TTL(ctx, lockout.KeyLocked+clientKey).Result()
	if err != nil {
		return nil, fmt.Errorf("get lock ttl: %w", err)
	}

	info := &lockout.Info{AttemptCount: attempts}
	if ttl > 0 {
		info.IsLockedOut = true
		info.RemainingTime = ttl
	}
	return info, nil
}

// RecordFailure 记录一次失败尝试
//
// 窗口内计数达到阈值时写入锁定标记，冷却期由标记的 TTL 表达。
func (s *Store) RecordFailure(ctx context.Context, clientKey string) (*lockout.Info, error) {
	attemptsKey := lockout.KeyAttempts + clientKey

	attempts, err := s.client.Incr(ctx, attemptsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("increment attempt count: %w", err)
	}
	if attempts == 1 {
		if err := s.client.Expire(ctx, attemptsKey, s.window).Err(); err != nil {
			return nil, fmt.Errorf("set attempt window: %w", err)
		}
	}

	if int(attempts) >= s.maxAttempts {
		if err := s.client.Set(ctx, lockout.KeyLocked+clientKey, 1, s.cooldown).Err(); err != nil {
			return nil, fmt.Errorf("set lock: %w", err)
		}
		log.Printf("[lockout.locked] client=%s attempts=%d cooldown=%s", clientKey, attempts, s.cooldown)
	}

	return s.Status(ctx, clientKey)
}

// Reset 清除客户端的尝试计数和锁定状态
func (s *Store) Reset(ctx context.Context, clientKey string) error {
	if err := s.client.Del(ctx, lockout.KeyAttempts+clientKey, lockout.KeyLocked+clientKey).Err(); err != nil {
		return fmt.Errorf("reset lockout state: %w", err)
	}
	return nil
}

// FormatDuration 格式化剩余时间
func (s *Store) FormatDuration(d time.Duration) string {
	return lockout.FormatDuration(d)
}
