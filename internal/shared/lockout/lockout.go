// Package lockout 登录锁定策略抽象接口
//
// 记录客户端的失败尝试并在超过阈值后进入冷却锁定。状态的存取能力由
// 具体实现提供，当前生产实现是 Redis（见 redis 子包），内存实现用于
// 测试和本地开发。
package lockout

import (
	"context"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Info 单个客户端的锁定状态
type Info struct {
	IsLockedOut   bool
	RemainingTime time.Duration // 0 表示无剩余冷却时间
	AttemptCount  int
}

// Policy 锁定策略接口
type Policy interface {
	// Status 查询客户端当前的尝试/锁定状态
	Status(ctx context.Context, clientKey string) (*Info, error)
	// RecordFailure 记录一次失败尝试，返回更新后的状态
	RecordFailure(ctx context.Context, clientKey string) (*Info, error)
	// Reset 清除客户端的尝试计数和锁定状态
	Reset(ctx context.Context, clientKey string) error
	// FormatDuration 将剩余时间格式化为展示用字符串
	FormatDuration(d time.Duration) string
}

// ============================================================================
// Key 前缀和默认值常量
// ============================================================================

const (
	// Key 前缀（Redis 实现使用）
	KeyAttempts = "lockout_attempts:"
	KeyLocked   = "lockout_locked:"

	// 默认策略参数
	DefaultMaxAttempts = 5
	DefaultWindow      = 15 * time.Minute
	DefaultCooldown    = 5 * time.Minute
)

// FormatDuration 人类可读的剩余时间（各实现共用）
func FormatDuration(d time.Duration) string {
	now := time.Now()
	return strings.TrimSpace(humanize.RelTime(now.Add(d), now, "", ""))
}
