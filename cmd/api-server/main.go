// Package main API Server 入口
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"solver-admin/internal/apiserver/server"
	"solver-admin/internal/config"
	lockoutredis "solver-admin/internal/shared/lockout/redis"
	"solver-admin/internal/shared/objstore"
	"solver-admin/internal/solver/catalog"
	"solver-admin/internal/solver/results"
)

func main() {
	// 加载配置（自动加载 .env，根据 APP_ENV 切换配置文件）
	cfg := config.Load()

	log.Printf("Starting API Server... [env=%s]", cfg.Env)
	log.Printf("Config: %s", cfg.String())

	// 初始化 MinIO（结果目录清单 + 结果文件镜像）
	blob, err := objstore.NewClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("Failed to create MinIO client: %v", err)
	}
	{
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := blob.EnsureBucket(ctx); err != nil {
			cancel()
			log.Fatalf("Failed to ensure MinIO bucket: %v", err)
		}
		cancel()
	}
	log.Println("Connected to MinIO")

	// 初始化 Redis（登录锁定状态）
	policy, err := lockoutredis.NewStoreFromURL(cfg.RedisURL, cfg.Lockout)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer policy.Close()
	log.Println("Connected to Redis")

	// 初始化领域组件
	finalizer := results.NewFinalizer(cfg.Solver.OutputDir)
	finalizer.SetMirror(blob)
	reader := catalog.NewReader(blob)

	// 初始化 Handler
	h := server.NewHandler(finalizer, reader, policy, cfg.Solver.OutputDir)

	srv := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      h.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 优雅关闭
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	log.Printf("API Server listening on :%s", cfg.APIPort)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}

	fmt.Println("Server stopped")
}
