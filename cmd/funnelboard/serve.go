package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/funnelboard/funnelboard/internal/api"
	"github.com/funnelboard/funnelboard/internal/cache"
	"github.com/funnelboard/funnelboard/internal/config"
	"github.com/funnelboard/funnelboard/internal/crypto"
	"github.com/funnelboard/funnelboard/internal/db"
	"github.com/funnelboard/funnelboard/internal/db/migrations"
	"github.com/funnelboard/funnelboard/internal/dbpool"
	"github.com/funnelboard/funnelboard/internal/service"
	"github.com/funnelboard/funnelboard/internal/session"
	"github.com/funnelboard/funnelboard/internal/store"
	"github.com/funnelboard/funnelboard/internal/ws"
)

const (
	shutdownTimeout   = 15 * time.Second
	readHeaderTimeout = 10 * time.Second
)

func newServeCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run migrations and start the API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := load()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, log)
		},
	}
}

// openDatabase connects the pool and applies pending migrations.
func openDatabase(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*dbpool.Pool, error) {
	pool, err := dbpool.NewPool(ctx, cfg.DatabaseURL.Value(), dbpool.Options{MaxConns: int32(cfg.DBMaxConns)}) //nolint:gosec // bounded by config validation.
	if err != nil {
		return nil, err
	}

	if err := db.RunMigrations(ctx, pool, log, migrations.FS); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

func serve(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	pool, err := openDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	keys, err := crypto.NewDerivedProvider(cfg.EncryptionKey.Value())
	if err != nil {
		return fmt.Errorf("encryption key: %w", err)
	}

	base := store.Base{Pool: pool, Log: log, Crypto: crypto.NewService(keys)}
	funnelStore := store.NewFunnelStore(base)

	var (
		shareCache *cache.ShareCache
		cachePing  api.Pinger
		views      service.ViewInvalidator
	)
	if cfg.CacheEnabled() {
		shareCache, err = cache.New(cfg.RedisURL.Value(), cache.WithTTL(cfg.ShareCacheTTL))
		if err != nil {
			return fmt.Errorf("share cache: %w", err)
		}
		defer shareCache.Close() //nolint:errcheck // best-effort on shutdown.

		if err := shareCache.Ping(ctx); err != nil {
			log.WithError(err).Warn("share cache unreachable, continuing; lookups fall back to the database")
		}
		cachePing, views = shareCache, shareCache
	}

	auditSvc := service.NewAuditService(store.NewAuditStore(base), log)
	auditWorker := service.NewAuditWorker(auditSvc, log, cfg.AuditQueueSize)

	mgr := session.NewManager(cfg.SessionIdleTTL, log)
	hub := ws.NewHub(log)

	funnelSvc := service.NewFunnelService(funnelStore, views, auditWorker, config.Version, log)

	shareOpts := []service.ShareOption{
		service.WithRevokeHook(func(token string) {
			if n := mgr.CloseShared(token); n > 0 {
				log.WithFields(logrus.Fields{"sessions": n}).Info("closed sessions of revoked share link")
			}
		}),
	}
	if shareCache != nil {
		shareOpts = append(shareOpts, service.WithShareCache(shareCache))
	}
	shareSvc := service.NewShareService(store.NewShareStore(base), funnelStore, auditWorker, log, shareOpts...)

	metricSvc := service.NewMetricService(store.NewMetricStore(base), funnelStore, auditWorker, log)
	sessionSvc := service.NewSessionService(mgr, funnelSvc, shareSvc, cfg.HistoryLimit, log)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { hub.Run(gctx); return nil })
	g.Go(func() error { mgr.Run(gctx); return nil })
	g.Go(func() error { auditWorker.Run(gctx); return nil })

	if err := db.NewNotifyBridge(log, pool, hub).Start(gctx); err != nil {
		return fmt.Errorf("starting notify bridge: %w", err)
	}

	router := api.NewRouter(gctx, &api.RouterDeps{
		Log:         log,
		Pool:        pool,
		Cache:       cachePing,
		Hub:         hub,
		Sessions:    mgr,
		Funnels:     funnelSvc,
		Shares:      shareSvc,
		Metrics:     metricSvc,
		Editing:     sessionSvc,
		Audit:       auditSvc,
		UserLookup:  store.NewUserStore(pool),
		CORSOrigins: cfg.CORSOrigins,
		Version:     config.Version,
	})

	servers := []*http.Server{
		{Addr: cfg.Addr(), Handler: router, ReadHeaderTimeout: readHeaderTimeout},
		{Addr: cfg.MetricsAddr(), Handler: promhttp.Handler(), ReadHeaderTimeout: readHeaderTimeout},
	}

	for _, srv := range servers {
		g.Go(func() error {
			log.WithField("addr", srv.Addr).Info("listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server %s: %w", srv.Addr, err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		hub.Shutdown()

		var errs []error
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("shutdown %s: %w", srv.Addr, err))
			}
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	log.WithField("open_sessions", mgr.Len()).Info("server stopped")
	return nil
}
