package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iliyamo/parkshare/internal/config"
	"github.com/iliyamo/parkshare/internal/handler"
	"github.com/iliyamo/parkshare/internal/middleware"
	"github.com/iliyamo/parkshare/internal/queue"
	"github.com/iliyamo/parkshare/internal/repository"
	"github.com/iliyamo/parkshare/internal/router"
	"github.com/iliyamo/parkshare/internal/service"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var consumeActivity bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), consumeActivity)
		},
	}
	cmd.Flags().BoolVar(&consumeActivity, "consume-activity", false,
		"also consume claim events from RabbitMQ and append them to ACTIVITY_LOG_PATH")
	return cmd
}

func serve(parent context.Context, consumeActivity bool) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.close()
	cfg, log := a.cfg, a.log

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var events service.EventPublisher
	if cfg.RabbitMQURL != "" {
		events = queue.NewPublisher(cfg.RabbitMQURL, log)
	} else {
		log.Info("RABBITMQ_URL not set, claim events disabled")
	}

	bayRepo := repository.NewBayRepo(a.db)
	windowRepo := repository.NewAvailabilityRepo(a.db)
	claimRepo := repository.NewClaimRepo(a.db)

	bays := service.NewBayService(bayRepo, log)
	windows := service.NewAvailabilityService(windowRepo, bayRepo, log)
	claims := service.NewClaimService(claimRepo, events, log)
	board := service.NewBoardService(repository.NewBoardRepo(a.db), bayRepo, windowRepo, claimRepo, log)

	rdb := config.NewRedisClient(ctx, config.LoadRedisConfig())
	if rdb == nil {
		log.Warn("redis unavailable, running without cache and rate limit")
	} else {
		defer rdb.Close()
	}
	cacheCfg := config.LoadCacheConfig()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewRequestValidator()
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(log))
	limit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log)
	invalidate := middleware.InvalidateOnWrite(cacheCfg, rdb, log)

	router.RegisterRoutes(e, handler.Health(a.db))
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, repository.NewUserRepo(a.db), repository.NewTokenRepo(a.db), log), cfg.JWTSecret, limit)
	router.RegisterParking(e, router.Parking{
		Bays:    handler.NewBayHandler(bays, board, claims),
		Windows: handler.NewWindowHandler(windows),
		Claims:  handler.NewClaimHandler(claims),
		Board:   handler.NewBoardHandler(board),
	}, cfg.JWTSecret, middleware.NewRedisCache(cacheCfg, rdb, log), limit, invalidate)

	var wg sync.WaitGroup
	if consumeActivity {
		if cfg.RabbitMQURL == "" {
			log.Warn("--consume-activity ignored, RABBITMQ_URL not set")
		} else {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := queue.StartActivityConsumer(ctx, cfg.RabbitMQURL, cfg.ActivityLogPath, log)
				if err != nil && !errors.Is(err, context.Canceled) {
					log.Error("activity consumer stopped", zap.Error(err))
				}
			}()
		}
	}

	errc := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		errc <- e.Start(addr)
	}()

	select {
	case err := <-errc:
		stop()
		wg.Wait()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err = e.Shutdown(sctx)
	wg.Wait()
	return err
}
