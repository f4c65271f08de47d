package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"essaycoach/config"
	"essaycoach/db"
	"essaycoach/internal/logging"
	"essaycoach/internal/ratelimit"
	"essaycoach/routes"
	"essaycoach/services"

	"github.com/spf13/cobra"
	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "essaycoach",
	Short:         "Serve AI feedback for admissions essays",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "./config/config.yml", "path to config file")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func serve(ctx context.Context) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.NewLogger(cfg.Log.Level)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	httpClient := &http.Client{}

	generator, err := services.NewTextGenerator(ctx, cfg, httpClient, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize %s client: %w", cfg.LLM.Provider, err)
	}

	store, err := db.NewStore(ctx, cfg, httpClient)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.Persistence.Driver, err)
	}
	var analyses services.AnalysisStore
	if store != nil {
		analyses = store
		defer func() {
			if err := store.Close(context.Background()); err != nil {
				logger.Warn("failed to close store", zap.Error(err))
			}
		}()
	}
	logger.Info("persistence", zap.String("driver", cfg.Persistence.Driver))

	limiter, closeLimiter := newLimiter(ctx, cfg, logger)
	defer closeLimiter()

	router := routes.NewRouter(routes.RouterDeps{
		Coach:        services.NewCoachService(generator, analyses, logger),
		Limiter:      limiter,
		Logger:       logger,
		JWTSecret:    cfg.Auth.JWTSecret,
		AuthRequired: cfg.Auth.Required,
	})

	srv := &http.Server{
		Addr:    ":" + strconv.Itoa(cfg.Server.Port),
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server starting", zap.String("addr", srv.Addr), zap.String("provider", cfg.LLM.Provider))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newLimiter(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ratelimit.Limiter, func()) {
	rlConfig := ratelimit.Config{Requests: cfg.RateLimit.Requests, Window: cfg.RateLimit.Window}
	if rlConfig.Disabled() {
		logger.Info("rate limiting disabled")
	}
	if cfg.Redis.Addr == "" {
		return ratelimit.NewLocalLimiter(rlConfig), func() {}
	}
	rdb, err := ratelimit.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Warn("falling back to in-process rate limiting", zap.Error(err))
		return ratelimit.NewLocalLimiter(rlConfig), func() {}
	}
	return ratelimit.NewRedisLimiter(rdb, rlConfig), func() {
		if err := rdb.Close(); err != nil {
			logger.Warn("failed to close redis client", zap.Error(err))
		}
	}
}
