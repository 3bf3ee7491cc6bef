// Package lockout 内存实现（测试和本地开发用）
package lockout

import (
	"context"
	"sync"
	"time"
)

// MemoryPolicy 进程内锁定策略实现
type MemoryPolicy struct {
	maxAttempts int
	window      time.Duration
	cooldown    time.Duration

	mu     sync.Mutex
	states map[string]*memoryState
}

type memoryState struct {
	attempts      int
	windowExpires time.Time
	lockedUntil   time.Time
}

// NewMemoryPolicy 创建内存锁定策略，零值参数使用默认值
func NewMemoryPolicy(maxAttempts int, window, cooldown time.Duration) *MemoryPolicy {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if window <= 0 {
		window = DefaultWindow
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &MemoryPolicy{
		maxAttempts: maxAttempts,
		window:      window,
		cooldown:    cooldown,
		states:      make(map[string]*memoryState),
	}
}

// Status 查询客户端当前的尝试/锁定状态
func (p *MemoryPolicy) Status(ctx context.Context, clientKey string) (*Info, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	s, ok := p.states[clientKey]
	if !ok {
		return &Info{}, nil
	}

	info := &Info{}
	if now.Before(s.windowExpires) {
		info.AttemptCount = s.attempts
	}
	if now.Before(s.lockedUntil) {
		info.IsLockedOut = true
		info.RemainingTime = s.lockedUntil.Sub(now)
	}
	return info, nil
}

// RecordFailure 记录一次失败尝试
func (p *MemoryPolicy) RecordFailure(ctx context.Context, clientKey string) (*Info, error) {
	p.mu.Lock()

	now := time.Now()
	s, ok := p.states[clientKey]
	if !ok || now.After(s.windowExpires) {
		s = &memoryState{windowExpires: now.Add(p.window)}
		p.states[clientKey] = s
	}
	s.attempts++
	if s.attempts >= p.maxAttempts {
		s.lockedUntil = now.Add(p.cooldown)
	}
	p.mu.Unlock()

	return p.Status(ctx, clientKey)
}

// Reset 清除客户端状态
func (p *MemoryPolicy) Reset(ctx context.Context, clientKey string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.states, clientKey)
	return nil
}

// FormatDuration 格式化剩余时间
func (p *MemoryPolicy) FormatDuration(d time.Duration) string {
	return FormatDuration(d)
}
