// Package auth 登录锁定状态 - HTTP 处理
package auth

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"solver-admin/internal/shared/lockout"
)

// LockoutPolicy 定义 auth handler 需要的锁定策略接口（用于测试 mock）
type LockoutPolicy interface {
	Status(ctx context.Context, clientKey string) (*lockout.Info, error)
	FormatDuration(d time.Duration) string
}

// Handler 锁定状态 HTTP 处理器
type Handler struct {
	policy LockoutPolicy
}

// NewHandler 创建锁定状态处理器
func NewHandler(policy LockoutPolicy) *Handler {
	return &Handler{policy: policy}
}

// RegisterRoutes 注册锁定相关路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /lockout/status", h.Status)
}

// statusResponse 锁定状态响应
//
// remainingTime 为剩余冷却秒数；formattedTime 仅在 remainingTime
// 存在时出现，由策略协作方的格式化例程生成。
type statusResponse struct {
	IsLockedOut   bool    `json:"isLockedOut"`
	RemainingTime *int64  `json:"remainingTime,omitempty"`
	AttemptCount  int     `json:"attemptCount"`
	FormattedTime *string `json:"formattedTime,omitempty"`
}

// Status 查询请求方客户端的锁定状态
// GET /lockout/status
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	key := clientKey(r)

	info, err := h.policy.Status(r.Context(), key)
	if err != nil {
		log.Printf("[lockout.status.failed] client=%s error=%v", key, err)
		writeError(w, http.StatusInternalServerError, "failed to get lockout status")
		return
	}

	resp := statusResponse{
		IsLockedOut:  info.IsLockedOut,
		AttemptCount: info.AttemptCount,
	}
	if info.RemainingTime > 0 {
		secs := int64(info.RemainingTime / time.Second)
		formatted := h.policy.FormatDuration(info.RemainingTime)
		resp.RemainingTime = &secs
		resp.FormattedTime = &formatted
	}
	writeJSON(w, http.StatusOK, resp)
}

// clientKey 从请求推导客户端标识
//
// 取 X-Forwarded-For 首跳（经反向代理部署时），否则取 RemoteAddr 的主机部分。
func clientKey(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.Index(xff, ","); i >= 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ============================================================================
// 工具函数
// ============================================================================

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
