package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"campusrecords/internal/bus"
	"campusrecords/internal/config"
	"campusrecords/internal/handler"
	"campusrecords/internal/httpmiddleware"
	"campusrecords/internal/profile"
	"campusrecords/internal/queue"
	"campusrecords/internal/registry"
	"campusrecords/internal/session"
	"campusrecords/internal/store"
	"campusrecords/internal/uploads"
	"campusrecords/internal/wallet"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Printf("warning: %v", err)
	}
	cfg := config.Load()

	// Set Gin mode based on environment
	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

// deps are the external resources the server may hold open.
type deps struct {
	db    *sql.DB
	redis *store.Redis
}

func (d *deps) close() {
	if d.db != nil {
		_ = d.db.Close()
	}
	_ = d.redis.Close()
}

func (d *deps) redisClient(cfg config.App) *store.Redis {
	if d.redis == nil {
		d.redis = store.NewRedis(cfg.RedisAddr)
	}
	return d.redis
}

// openBackend selects the record store backend named by cfg.StoreBackend.
func openBackend(ctx context.Context, cfg config.App, d *deps) (store.Backend, error) {
	switch cfg.StoreBackend {
	case "memory", "":
		return store.NewMemory(), nil
	case "sqlite":
		db, err := store.NewSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		d.db = db
		return store.NewSQL(ctx, db, store.DialectSQLite)
	case "postgres":
		db, err := store.NewDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		d.db = db
		return store.NewSQL(ctx, db, store.DialectPostgres)
	case "redis":
		return store.NewRedisBackend(d.redisClient(cfg).Client, cfg.RedisPrefix), nil
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
}

// startRelay forwards bus events to the configured queue. An in-memory
// queue is drained in-process since no other process can reach it.
func startRelay(ctx context.Context, cfg config.App, b *bus.Bus, d *deps) (bus.Unsubscribe, error) {
	var q queue.Queue
	switch cfg.RelayBackend {
	case "none", "":
		return func() {}, nil
	case "memory":
		mem := queue.NewInMemory(64)
		go func() {
			_ = queue.Drain(ctx, mem, func(m queue.Message) {
				log.Printf("relay: %s event (%d bytes)", m.Topic, len(m.Body))
			})
		}()
		q = mem
	case "redis":
		q = queue.NewRedisQueue(d.redisClient(cfg).Client, cfg.RelayKey)
	default:
		return nil, fmt.Errorf("unknown RELAY_BACKEND %q", cfg.RelayBackend)
	}
	return bus.NewRelay(b, q, 0).Start(bus.Topics...), nil
}

func runHTTP(cfg config.App) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := &deps{}
	defer d.close()

	backend, err := openBackend(ctx, cfg, d)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.StoreBackend, err)
	}
	log.Printf("record store: %s", cfg.StoreBackend)
	st := store.New(store.Instrument(cfg.StoreBackend, backend))

	b := bus.New()
	stopRelay, err := startRelay(ctx, cfg, b, d)
	if err != nil {
		return err
	}
	defer stopRelay()

	users := registry.NewService(st)
	svc := handler.Services{
		Session:  session.NewService(st, b, users),
		Registry: users,
		Uploads:  uploads.NewService(st, b),
		Profiles: profile.NewService(st, b, cfg.ProfileMaxDocBytes),
		Wallet: wallet.NewService(st, wallet.Options{
			Seed:         cfg.WalletSeed,
			SendDelay:    cfg.WalletSendDelay,
			RefreshDelay: cfg.WalletRefreshDelay,
		}),
	}

	r := gin.New()

	// Recovery middleware
	r.Use(gin.Recovery())

	// Custom logger
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))

	r.Use(corsMiddleware(cfg.CORSOrigins))
	r.Use(securityHeaders())

	limiter := httpmiddleware.NewIPRateLimiter(cfg.RateLimitPerMin, 0)
	go limiter.Run(ctx.Done(), time.Minute)
	r.Use(limiter.GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		status := http.StatusOK
		body := gin.H{"status": "ok", "store": cfg.StoreBackend}
		if d.db != nil {
			dbHealthy := d.db.PingContext(c.Request.Context()) == nil
			body["db"] = dbHealthy
			if !dbHealthy {
				status = http.StatusServiceUnavailable
			}
		}
		if d.redis != nil {
			redisHealthy := d.redis.Healthy(c.Request.Context())
			body["redis"] = redisHealthy
			if !redisHealthy {
				status = http.StatusServiceUnavailable
			}
		}
		c.JSON(status, body)
	})

	handler.New(b, svc, cfg.CORSOrigins).Register(r)

	// Graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return err
	}
	log.Println("Shutting down server...")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	cfg.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	cfg.MaxAge = 24 * time.Hour
	return cors.New(cfg)
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		// Only add HSTS in production
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
