// Package server 路由配置与核心基础设施
//
// 本文件定义 HTTP API 路由，将请求分发到各领域独立包。
// 仍保留在本包的模块：
//   - metrics.go: Prometheus 指标
package server

import (
	"encoding/json"
	"net/http"

	"solver-admin/internal/apiserver/auth"
	"solver-admin/internal/apiserver/result"
	"solver-admin/internal/solver/catalog"
	"solver-admin/internal/solver/results"
)

// Handler API 处理器
//
// Handler 是所有 HTTP API 的入口，负责：
//   - 路由请求到对应的处理函数
//   - 持有各领域处理器的依赖（固化器、清单读取器、锁定策略）
type Handler struct {
	finalizer *results.Finalizer
	catalog   *catalog.Reader
	policy    auth.LockoutPolicy
	baseDir   string

	metrics *Metrics // Prometheus 指标
}

// NewHandler 创建 Handler 实例
func NewHandler(finalizer *results.Finalizer, reader *catalog.Reader, policy auth.LockoutPolicy, baseDir string) *Handler {
	return &Handler{
		finalizer: finalizer,
		catalog:   reader,
		policy:    policy,
		baseDir:   baseDir,
		metrics:   NewMetrics("solver"),
	}
}

// GetMetrics 返回指标实例
func (h *Handler) GetMetrics() *Metrics {
	return h.metrics
}

// Router 返回配置好的 HTTP 路由
//
// 路由规则：
//
// 健康检查:
//   - GET /health - 服务健康检查
//
// 结果目录 (Result):
//   - GET /convert/run-to-result?runDir=... - 运行目录固化为编号结果目录
//   - GET /list/result-folders              - 列出对象存储中的结果目录
//   - GET /output/{runId}                   - 列出本地结果目录文件
//   - GET /download/{runId}/{filename}      - 下载单个结果文件
//
// 登录锁定 (Lockout):
//   - GET /lockout/status - 查询请求方的锁定状态
func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	// 健康检查
	mux.HandleFunc("GET /health", h.Health)

	// Prometheus 指标端点
	mux.Handle("GET /metrics", MetricsHandler())

	// Result 接口
	resultHandler := result.NewHandlerWithInterfaces(h.finalizer, h.catalog, h.baseDir)
	resultHandler.RegisterRoutes(mux)

	// Lockout 接口
	authHandler := auth.NewHandler(h.policy)
	authHandler.RegisterRoutes(mux)

	// 应用指标中间件
	apiHandler := h.metrics.MetricsMiddleware(mux)

	// 应用 CORS 中间件
	return corsMiddleware(apiHandler)
}

// Health 健康检查接口
//
// 路由: GET /health
//
// 用于负载均衡器和监控系统检查服务状态。
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "solver-admin"})
}

// corsMiddleware CORS 中间件
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// writeJSON 将数据以 JSON 格式写入 HTTP 响应
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
