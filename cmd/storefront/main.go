package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jcmexdev/pizzeria-storefront/internal/cart"
	"github.com/jcmexdev/pizzeria-storefront/internal/checkout"
	"github.com/jcmexdev/pizzeria-storefront/internal/coordinator/sagalog"
	sagasqlite "github.com/jcmexdev/pizzeria-storefront/internal/coordinator/sagalog/sqlite"
	"github.com/jcmexdev/pizzeria-storefront/internal/pkg/config"
	"github.com/jcmexdev/pizzeria-storefront/internal/pkg/kvstore"
	kvsqlite "github.com/jcmexdev/pizzeria-storefront/internal/pkg/kvstore/sqlite"
	"github.com/jcmexdev/pizzeria-storefront/internal/pkg/telemetry"
	"github.com/jcmexdev/pizzeria-storefront/internal/storefront/infra/adapters/service"
	"github.com/jcmexdev/pizzeria-storefront/internal/storefront/infra/httpx"
)

// storage is a kvstore backend the process owns.
type storage interface {
	kvstore.Store
	io.Closer
	Ping(ctx context.Context) error
}

type memoryStorage struct{ *kvstore.Memory }

func (memoryStorage) Close() error { return nil }
func (memoryStorage) Ping(ctx context.Context) error { return nil }

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	level, _ := config.ParseLevel(cfg.LogLevel)
	telemetry.InitLogger(os.Stderr, level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("storefront stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	shutdown, err := telemetry.SetupTracer(ctx, telemetry.TracerConfig{
		ServiceName: cfg.ServiceName,
		Endpoint:    cfg.OTLPEndpoint,
		Enabled:     cfg.TracingEnabled,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			slog.Error("tracer shutdown error", "error", err)
		}
	}()

	store, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Error("storage close error", "error", err)
		}
	}()

	var sagaLog sagalog.Repository
	if cfg.SagaLogPath != "" {
		repo, err := sagasqlite.Open(cfg.SagaLogPath)
		if err != nil {
			return err
		}
		defer repo.Close()
		sagaLog = repo
	}

	scopes := service.SessionScope(store)
	carts := cart.NewSessions(scopes, cart.WithDeliveryFee(cfg.DeliveryFee)).
		WithLimits(cfg.CartIdleTTL, cfg.CartMaxSessions)
	if cfg.CartIdleTTL > 0 {
		go sweepIdleCarts(ctx, carts, cfg.CartIdleTTL)
	}
	settler := checkout.NewSimulatedSettler(checkout.WithDelay(cfg.SettlementDelay))
	storefront := service.NewStorefront(scopes, carts, checkout.NewService(settler, sagaLog), cfg.OrderRetention)

	handler := httpx.NewHandler(storefront, storefront, storefront, storefront).WithHealthCheck(store.Ping)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpx.NewRouter(handler),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("storefront running", "addr", cfg.HTTPAddr, "backend", cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}
	return carts.Close(shutdownCtx)
}

func openStorage(ctx context.Context, cfg config.Config) (storage, error) {
	switch cfg.StoreBackend {
	case config.BackendRedis:
		r := kvstore.NewRedis(cfg.RedisAddr, cfg.ServiceName)
		if err := r.Ping(ctx); err != nil {
			_ = r.Close()
			return nil, err
		}
		return r, nil
	case config.BackendSQLite:
		s, err := kvsqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		go purgeExpired(ctx, s)
		return s, nil
	default:
		return memoryStorage{kvstore.NewMemory()}, nil
	}
}

// purgeExpired drops expired rows hourly; reads already skip them.
func purgeExpired(ctx context.Context, s *kvsqlite.Store) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.PurgeExpired(ctx)
			if err != nil {
				slog.WarnContext(ctx, "failed to purge expired keys", "error", err)
				continue
			}
			if n > 0 {
				slog.InfoContext(ctx, "purged expired keys", "count", n)
			}
		}
	}
}

// sweepIdleCarts evicts idle session ledgers; they rehydrate from storage.
func sweepIdleCarts(ctx context.Context, carts *cart.Sessions, idleTTL time.Duration) {
	ticker := time.NewTicker(max(idleTTL/4, time.Second))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := carts.Sweep(ctx); n > 0 {
				slog.DebugContext(ctx, "evicted idle carts", "count", n, "held", carts.Len())
			}
		}
	}
}
