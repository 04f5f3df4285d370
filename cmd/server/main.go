package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/Leganyst/slotbooking/internal/api/handler"
	"github.com/Leganyst/slotbooking/internal/api/middleware"
	"github.com/Leganyst/slotbooking/internal/api/router"
	"github.com/Leganyst/slotbooking/internal/config"
	"github.com/Leganyst/slotbooking/internal/db"
	"github.com/Leganyst/slotbooking/internal/logger"
	"github.com/Leganyst/slotbooking/internal/model"
	"github.com/Leganyst/slotbooking/internal/notify"
	"github.com/Leganyst/slotbooking/internal/service"
)

const shutdownTimeout = 15 * time.Second

var CLI struct {
	Config string `help:"Path to config file (yaml). Env SLOTS_* overrides it." type:"path"`
}

func main() {
	kong.Parse(&CLI,
		kong.Name("slotbooking-server"),
		kong.Description("Slot scheduling and booking API."),
		kong.UsageOnError(),
	)

	// 1. Конфиг: дефолты, файл, env.
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// 2. Логгер.
	zlog, err := logger.NewLogger(&cfg.Log)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()
	zap.ReplaceGlobals(zlog)

	if err := run(cfg, zlog); err != nil {
		zlog.Fatal("server stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, zlog *zap.Logger) error {
	// 3. БД и миграции.
	gormDB, err := db.NewGormDB(&cfg.DB)
	if err != nil {
		return fmt.Errorf("init db: %w", err)
	}
	if err := model.AutoMigrate(gormDB); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return fmt.Errorf("sql DB: %w", err)
	}
	defer sqlDB.Close()

	// 4. Уведомления: Redis, если включён, иначе только лог.
	var notifier notify.Notifier = notify.NewLogNotifier(zlog.Named("notify"))
	if cfg.Redis.Enabled {
		rn, err := notify.NewRedisNotifier(&cfg.Redis, zlog.Named("notify"))
		if err != nil {
			return fmt.Errorf("init redis notifier: %w", err)
		}
		defer rn.Close()
		notifier = rn
	}

	// 5. Сервисы ядра.
	svc := service.New(gormDB, cfg.Schedule, notifier, nil, zlog)

	// 6. HTTP.
	gin.SetMode(gin.ReleaseMode)
	limiter := middleware.NewRateLimiter(cfg.Server.RateLimitPerMinute, cfg.Server.RateLimitBurst, zlog)
	engine := router.Setup(&cfg.Server, handler.NewHandler(svc, zlog), limiter, zlog)
	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 7. Служебный gRPC: health + reflection.
	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	reflection.Register(grpcServer)

	grpcAddr := fmt.Sprintf(":%d", cfg.GRPC.Port)
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", grpcAddr, err)
	}

	// 8. Периодическая очистка истёкших удержаний и неактивных IP лимитера.
	sweeper := cron.New()
	if cfg.Server.RateLimitIdle > 0 {
		idle := cfg.Server.RateLimitIdle
		if _, err := sweeper.AddFunc("@every 1m", func() {
			if n := limiter.Evict(idle); n > 0 {
				zlog.Debug("rate limiter evicted idle clients", zap.Int("count", n))
			}
		}); err != nil {
			return fmt.Errorf("schedule limiter eviction: %w", err)
		}
	}
	if cfg.Schedule.SweepSpec != "" {
		_, err := sweeper.AddFunc(cfg.Schedule.SweepSpec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if _, err := svc.Holds.ReclaimExpired(ctx); err != nil {
				zlog.Warn("hold sweep failed", zap.Error(err))
			}
		})
		if err != nil {
			return fmt.Errorf("schedule hold sweep %q: %w", cfg.Schedule.SweepSpec, err)
		}
	}
	sweeper.Start()

	errCh := make(chan error, 2)
	go func() {
		zlog.Info("grpc ops server listening", zap.String("addr", grpcAddr))
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc serve: %w", err)
		}
	}()
	go func() {
		zlog.Info("http server listening", zap.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http serve: %w", err)
		}
	}()
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	// 9. Грейсфул-шатдаун по сигналу.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var runErr error
	select {
	case <-ctx.Done():
		zlog.Info("shutting down")
	case runErr = <-errCh:
		zlog.Error("server failed, shutting down", zap.Error(runErr))
	}

	// NOT_SERVING, чтобы балансировщик перестал слать трафик
	healthSrv.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		zlog.Warn("http shutdown", zap.Error(err))
	}
	<-sweeper.Stop().Done()
	grpcServer.GracefulStop()

	return runErr
}

