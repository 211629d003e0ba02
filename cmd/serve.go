package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sidhant-sriv/looply-api/auth"
	"github.com/sidhant-sriv/looply-api/cache"
	"github.com/sidhant-sriv/looply-api/config"
	"github.com/sidhant-sriv/looply-api/db"
	"github.com/sidhant-sriv/looply-api/events"
	"github.com/sidhant-sriv/looply-api/middleware"
	"github.com/sidhant-sriv/looply-api/routes"
	"github.com/sidhant-sriv/looply-api/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	shutdownTimeout = 10 * time.Second
	sweepInterval   = time.Minute
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

// backends are the optional services behind the handlers. Each falls back
// to an in-process implementation when it is not configured.
type backends struct {
	cache  cache.Store
	events events.Publisher
	images storage.ImageStore
}

func (b *backends) Close() {
	if b.events != nil {
		_ = b.events.Close()
	}
	if b.cache != nil {
		_ = b.cache.Close()
	}
}

func openBackends(ctx context.Context, cfg *config.Config, log *zap.Logger) (*backends, error) {
	b := &backends{}

	if cfg.Redis.Addr != "" {
		store, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		b.cache = store
		log.Info("Using redis cache", zap.String("addr", cfg.Redis.Addr))
	} else {
		b.cache = cache.NewMemory()
		log.Info("REDIS_ADDR not set, using in-memory cache")
	}

	if len(cfg.Kafka.Brokers) > 0 {
		b.events = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		log.Info("Publishing events to kafka", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	} else {
		b.events = events.NewLogPublisher(log.Named("events"))
	}

	if cfg.Minio.Endpoint != "" {
		images, err := storage.NewMinioStore(ctx, cfg.Minio)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.images = images
	} else {
		log.Warn("MINIO_ENDPOINT not set, image uploads are disabled")
	}

	return b, nil
}

func newRouter(h *routes.Handler, log *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(middleware.Logger(log), gin.Recovery())
	h.Mount(router)
	return router
}

func runServe(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Server.GinMode != "" {
		gin.SetMode(cfg.Server.GinMode)
	}

	gdb, err := db.Connect(cfg.Database, debug)
	if err != nil {
		return err
	}
	defer db.Close(gdb)
	if err := db.MakeMigration(gdb, logger); err != nil {
		return err
	}

	b, err := openBackends(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	limiter := middleware.NewRateLimiter(cfg.Server.AuthRateLimit)
	go limiter.Run(ctx, sweepInterval)
	if mem, ok := b.cache.(*cache.Memory); ok {
		go mem.Run(ctx, sweepInterval)
	}

	h := &routes.Handler{
		DB:          gdb,
		Cache:       b.cache,
		Events:      b.events,
		Images:      b.images,
		Tokens:      auth.NewTokenService(cfg.JWT.SecretKey, cfg.JWT.Issuer, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL, b.cache),
		Log:         logger,
		FeedTTL:     cfg.Feed.CacheTTL,
		AuthLimiter: limiter,
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           newRouter(h, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server running", zap.String("port", cfg.Server.Port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
