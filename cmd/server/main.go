// ZhiBan 当值排班引擎服务
// 主程序入口

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhiban/zhiban/internal/config"
	"github.com/zhiban/zhiban/internal/database"
	"github.com/zhiban/zhiban/internal/handler"
	"github.com/zhiban/zhiban/internal/metrics"
	"github.com/zhiban/zhiban/internal/repository"
	"github.com/zhiban/zhiban/pkg/logger"
	"github.com/zhiban/zhiban/pkg/scheduler/engine"
)

// 构建信息（通过 ldflags 注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.Log)

	logger.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Msg("ZhiBan 当值排班引擎")

	// 数据库可选：连接失败时仅禁用持久化端点
	var (
		rosters    *repository.RosterRepository
		carryovers *repository.CarryoverRepository
	)
	db, err := database.New(&cfg.Database)
	if err != nil {
		logger.Warn().Err(err).Msg("数据库不可用，持久化端点禁用")
	} else {
		defer db.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := db.Migrate(ctx); err != nil {
			logger.Error().Err(err).Msg("数据库迁移失败")
			cancel()
			os.Exit(1)
		}
		cancel()
		rosters = repository.NewRosterRepository(db)
		carryovers = repository.NewCarryoverRepository(db)
	}

	eng := engine.New(engine.Config{
		Attempts:   cfg.Scheduler.Attempts,
		TimeBudget: cfg.Scheduler.TimeBudget,
		Workers:    cfg.Scheduler.Workers,
		NodeLimit:  cfg.Scheduler.NodeLimit,
	})
	h := handler.New(eng, rosters, carryovers)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(handler.RateLimit(cfg.API.RateLimit, cfg.API.RateBurst))
	if cfg.API.CORSEnabled {
		r.Use(handler.CORS)
	}
	r.Use(handler.Logging)
	r.Use(middleware.Timeout(cfg.API.Timeout))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"zhiban"}`))
	})
	r.Get("/version", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"version":"%s","build_time":"%s","git_commit":"%s"}`, Version, BuildTime, GitCommit)
	})
	if cfg.Metrics.Enabled {
		r.Handle(cfg.Metrics.Path, metrics.Handler())
	}

	r.Route("/api/v1/roster", func(r chi.Router) {
		r.Post("/generate", h.Generate)
		r.Post("/validate", h.Validate)
		r.Get("/", h.ListRosters)
		r.Get("/{id}", h.GetRoster)
		r.Get("/{id}/export", h.ExportRoster)
		r.Get("/{id}/carryover", h.GetCarryover)
		r.Put("/{id}/carryover", h.PutCarryover)
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info().
			Int("port", cfg.App.Port).
			Str("env", cfg.App.Env).
			Msg("服务器启动")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("服务器启动失败")
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("正在关闭服务器...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("服务器关闭失败")
		os.Exit(1)
	}
	logger.Info().Msg("服务器已关闭")
}
