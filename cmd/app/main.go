package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coursemarket/config"
	"coursemarket/internal/application/usecase"
	"coursemarket/internal/domain"
	"coursemarket/internal/infrastructure/payment"
	"coursemarket/internal/infrastructure/repository"
	"coursemarket/internal/infrastructure/security"
	"coursemarket/internal/middleware"
	handlers "coursemarket/internal/transport/http"
	grpc_server "coursemarket/internal/transport/grpc"

	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "err", err)
		os.Exit(1)
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		logger.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	// Course and Lecture belong to the course service; migrating them here only
	// matters for a standalone dev database.
	if err := db.AutoMigrate(
		&domain.Course{}, &domain.Lecture{},
		&domain.UserCourse{}, &domain.CourseStudent{},
		&domain.Purchase{},
		&domain.CourseProgress{}, &domain.LectureProgress{},
	); err != nil {
		logger.Error("migration failed", "err", err)
		os.Exit(1)
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.Warn("redis unavailable, cache and rate limiting degrade", "addr", cfg.RedisAddr, "err", err)
		}
	}

	gateway, err := payment.NewStripeGateway(payment.StripeConfig{
		SecretKey:     cfg.StripeSecretKey,
		WebhookSecret: cfg.StripeWebhookSecret,
		Currency:      cfg.CheckoutCurrency,
		Countries:     cfg.Countries(),
		Logger:        logger,
	})
	if err != nil {
		logger.Error("stripe init failed", "err", err)
		os.Exit(1)
	}

	courses := repository.NewCourseRepository(db, rdb, cfg.CourseCacheTTL)
	purchases := repository.NewPurchaseRepository(db)
	progress := repository.NewProgressRepository(db)

	checkoutUC := usecase.NewCheckoutUseCase(courses, purchases, gateway, usecase.CheckoutConfig{
		FrontendURL: cfg.FrontendURL,
		Currency:    cfg.CheckoutCurrency,
		Timeout:     cfg.GatewayTimeout,
	}, logger)
	webhookUC := usecase.NewWebhookUseCase(courses, purchases, gateway, logger)
	purchaseUC := usecase.NewPurchaseUseCase(purchases)
	accessUC := usecase.NewAccessUseCase(courses, purchases)
	progressUC := usecase.NewProgressUseCase(courses, progress, accessUC, logger)

	router := handlers.NewRouter(
		handlers.RouterConfig{AllowedOrigins: cfg.Origins()},
		handlers.NewPurchaseHandler(checkoutUC, webhookUC, purchaseUC, accessUC, logger),
		handlers.NewProgressHandler(progressUC, logger),
		middleware.NewRateLimiter(rdb),
		security.NewTokenManager(cfg.AccessSecret),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checks := []grpc_server.Check{{Name: "postgres", Ping: func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}}}
	if rdb != nil {
		checks = append(checks, grpc_server.Check{Name: "redis", Ping: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}
	checker := grpc_server.NewHealthChecker(logger, 15*time.Second, checks...)
	go checker.Run(ctx)

	lis, err := net.Listen("tcp", cfg.GRPCPort)
	if err != nil {
		logger.Error("grpc listen failed", "addr", cfg.GRPCPort, "err", err)
		os.Exit(1)
	}
	grpcServer := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcServer, checker.Server())
	go func() {
		logger.Info("health server running", "addr", cfg.GRPCPort)
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("grpc serve failed", "err", err)
		}
	}()

	srv := &http.Server{
		Addr:              cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.GatewayTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		logger.Info("http server running", "addr", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve failed", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "err", err)
	}
	grpcServer.GracefulStop()
	if rdb != nil {
		rdb.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}
