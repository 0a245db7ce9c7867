package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/iliyamo/store-reservation/internal/auth"
	"github.com/iliyamo/store-reservation/internal/config"
	"github.com/iliyamo/store-reservation/internal/database"
	"github.com/iliyamo/store-reservation/internal/handler"
	"github.com/iliyamo/store-reservation/internal/logger"
	"github.com/iliyamo/store-reservation/internal/metrics"
	"github.com/iliyamo/store-reservation/internal/middleware"
	"github.com/iliyamo/store-reservation/internal/notify"
	"github.com/iliyamo/store-reservation/internal/router"
	"github.com/iliyamo/store-reservation/internal/service"
)

func main() {
	cfg := config.Load() // Load environment config
	if err := logger.InitLogger(&logger.LogConfig{
		Level:       cfg.LogLevel,
		Environment: cfg.Env,
		ServiceName: cfg.ServiceName,
	}); err != nil {
		panic(err)
	}
	defer logger.Sync()
	log := logger.GetLogger()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal("database connect failed", zap.Error(err))
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unavailable: rate limiting and response cache disabled, blacklist kept in memory")
	} else {
		defer rdb.Close()
	}

	notifyCfg := config.LoadNotifyConfig()
	driver, err := notify.New(notifyCfg)
	if err != nil {
		log.Fatal("notifier setup failed", zap.Error(err))
	}
	// requests only enqueue; the broker is reached from a background goroutine
	publisher := notify.NewAsync(driver, notifyCfg.QueueSize, notifyCfg.SendTimeout)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	httpMetrics := metrics.NewHTTPMetrics(cfg.ServiceName, reg)
	resMetrics := metrics.NewReservationMetrics(reg)

	policy := config.LoadReservationPolicy()
	tx := service.NewSQLTxRunner(db)
	blacklist := auth.New(rdb)

	members := service.NewMemberService(tx, cfg, blacklist)
	stores := service.NewStoreService(tx, policy, nil)
	reservations := service.NewReservationService(tx, policy,
		service.WithNotifier(publisher),
		service.WithMetrics(resMetrics),
	)
	reviews := service.NewReviewService(tx, resMetrics, nil)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestID(), logger.Middleware(), httpMetrics.Middleware())

	var limiter, cache echo.MiddlewareFunc
	if rdb != nil {
		limiter = middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
		cache = middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	} else {
		limiter = middleware.NewTokenBucket(config.RateLimitConfig{}, nil)
		cache = middleware.NewRedisCache(config.CacheConfig{}, nil)
	}

	router.Register(e, router.Handlers{
		Auth:         handler.NewAuthHandler(members),
		Stores:       handler.NewStoreHandler(stores, reviews),
		Reservations: handler.NewReservationHandler(reservations, stores),
		Reviews:      handler.NewReviewHandler(reviews),
		Health:       handler.Health(db),
		Metrics:      metrics.Handler(reg),
	}, router.Guards{
		Auth:      middleware.JWTAuth(cfg.JWTSecret, members),
		RateLimit: limiter,
		Cache:     cache,
	})

	addr := ":" + cfg.Port // Address string with port
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
	if err := publisher.Close(shutdownCtx); err != nil {
		log.Warn("notifier flush incomplete", zap.Error(err))
	}
}
