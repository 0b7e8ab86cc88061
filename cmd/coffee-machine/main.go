package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coffee-machine-demo/internal/api"
	"coffee-machine-demo/internal/config"
	"coffee-machine-demo/internal/engine"
	"coffee-machine-demo/internal/event"
	"coffee-machine-demo/internal/handlers"
	"coffee-machine-demo/internal/persistence"
	"coffee-machine-demo/internal/util"
	"coffee-machine-demo/internal/web"

	flag "github.com/spf13/pflag"
)

// main 是咖啡机守护进程的主入口
func main() {
	configPath := flag.StringP("config", "c", "", "path to config.yaml (default: ./config.yaml if present)")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("加载配置失败", "error", err)
		os.Exit(1)
	}

	// 1. 初始化核心组件
	logger, logCloser := util.NewLogger(cfg.Log)
	defer logCloser.Close()
	slog.SetDefault(logger)

	hub := web.NewHub(logger)
	go hub.Run()
	stateTracker := web.NewStateTracker(hub)

	eventBus := event.NewBus()

	wal, err := persistence.NewWAL(cfg.Journal.Path)
	if err != nil {
		logger.Error("无法初始化订单日志", "error", err)
		os.Exit(1)
	}
	defer wal.Close()

	// 2. 注册事件处理器
	handlers.RegisterEventHandlers(eventBus, stateTracker, logger)

	// 3. 初始化咖啡机、引擎和调度器
	coffeeMachine := cfg.Machine.NewMachine(logger)
	stateTracker.UpdateMachine(coffeeMachine.Snapshot())

	brewEngine, err := engine.NewBrewEngine(coffeeMachine, cfg.Engine.AdmissionRules, cfg.Engine.FaultCheckAfterBrew, logger, eventBus)
	if err != nil {
		logger.Error("准入规则无效", "error", err)
		os.Exit(1)
	}
	scheduler := engine.NewScheduler(brewEngine, cfg.Engine.StepDelayMs, wal, eventBus, logger)

	// 4. 恢复和启动
	if err := scheduler.RecoverOrders(); err != nil {
		logger.Warn("从订单日志恢复失败", "error", err)
	}

	logger.Info("=== 咖啡机启动 ===",
		"variant", cfg.Machine.Variant,
		"crema", coffeeMachine.Capabilities().Crema,
		"listen", cfg.Server.Listen)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go scheduler.Start(ctx)

	srv := &http.Server{
		Addr:    cfg.Server.Listen,
		Handler: api.NewServer(coffeeMachine, scheduler, stateTracker, hub, eventBus, logger).Router(),
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("API 服务器启动失败", "error", err)
			cancel()
		}
	}()

	// 5. 优雅停机
	waitForShutdown(ctx, logger, cancel, srv, scheduler)
}

// waitForShutdown 等待系统信号以实现优雅停机
func waitForShutdown(ctx context.Context, logger *slog.Logger, cancel context.CancelFunc, srv *http.Server, scheduler *engine.Scheduler) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigChan:
		logger.Info("接收到停机信号，正在优雅关闭...")
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("关闭 API 服务器失败", "error", err)
	}

	cancel()
	scheduler.WaitForCompletion()
	logger.Info("咖啡机已安全关机，未冲泡的订单将在下次启动时恢复。")
}
