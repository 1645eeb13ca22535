// Package main boots the sneaker drop storefront HTTP server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/fairyhunter13/sneaker-drop-storefront/internal/backend"
	"github.com/fairyhunter13/sneaker-drop-storefront/internal/backend/memory"
	"github.com/fairyhunter13/sneaker-drop-storefront/internal/backend/postgres"
	"github.com/fairyhunter13/sneaker-drop-storefront/internal/backend/redisstore"
	"github.com/fairyhunter13/sneaker-drop-storefront/internal/config"
	httpapi "github.com/fairyhunter13/sneaker-drop-storefront/internal/http"
	"github.com/fairyhunter13/sneaker-drop-storefront/internal/model"
	"github.com/fairyhunter13/sneaker-drop-storefront/internal/obs"
	"github.com/fairyhunter13/sneaker-drop-storefront/internal/queue"
	"github.com/fairyhunter13/sneaker-drop-storefront/internal/storefront"
)

const demoSize = 30

// upserter is implemented by the external backends that can take demo rows.
type upserter interface {
	Upsert(ctx context.Context, p model.Product) error
}

func openBackend(ctx context.Context, cfg config.Config) (backend.Store, error) {
	switch cfg.Backend {
	case "postgres":
		st, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, err
		}
		return st, seedIfEmpty(ctx, cfg, st, st)
	case "redis":
		st, err := redisstore.Open(ctx, cfg.RedisAddr, cfg.RedisPrefix)
		if err != nil {
			return nil, err
		}
		return st, seedIfEmpty(ctx, cfg, st, st)
	case "memory", "":
		st := memory.New()
		if cfg.SeedDemo {
			memory.SeedDemo(st, demoSize)
		}
		return st, nil
	default:
		return nil, errors.Errorf("unknown backend %q", cfg.Backend)
	}
}

// seedIfEmpty loads the demo catalog into an external backend that has no products yet.
func seedIfEmpty(ctx context.Context, cfg config.Config, st backend.Store, up upserter) error {
	if !cfg.SeedDemo {
		return nil
	}
	_, total, err := st.ListProducts(ctx, model.Page{Limit: 1})
	if err != nil || total > 0 {
		return err
	}
	for _, p := range memory.DemoProducts(demoSize) {
		if err := up.Upsert(ctx, p); err != nil {
			return errors.Wrapf(err, "seed product %d", p.ID)
		}
	}
	obs.Logger.WithFields(logrus.Fields{"backend": cfg.Backend, "products": demoSize}).Info("demo_catalog_seeded")
	return nil
}

func main() {
	if err := config.LoadDotenv(); err != nil {
		obs.Logger.WithError(err).Warn("dotenv_load_failed")
	}
	cfg := config.Load()
	obs.InitLogger(cfg.LogLevel)
	obs.Logger.WithField("backend", cfg.Backend).Info("service_starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := obs.InitTracing(ctx, cfg.TracesExporter, cfg.OTLPEndpoint)
	if err != nil {
		obs.Logger.WithError(err).Fatal("tracing_init_failed")
	}

	openCtx, cancelOpen := context.WithTimeout(ctx, 15*time.Second)
	raw, err := openBackend(openCtx, cfg)
	cancelOpen()
	if err != nil {
		obs.Logger.WithError(err).WithField("backend", cfg.Backend).Fatal("backend_open_failed")
	}
	st := backend.Traced(raw, cfg.Backend)

	q := queue.New(128)
	mgr := queue.NewManager(cfg, q)
	mgr.Start(ctx)

	sessions := storefront.NewRegistry(storefront.Deps{Store: st, Pool: mgr, Cfg: cfg})
	app := httpapi.NewApp(cfg, st, mgr, sessions)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(app),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// cart watch long-polls for up to 25s
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(sigCtx)
	g.Go(func() error {
		obs.Logger.WithField("addr", cfg.HTTPAddr).Info("http_listen")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return errors.Wrap(err, "http server")
		}
		return nil
	})
	g.Go(func() error {
		sessions.Run(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		obs.Logger.Info("shutdown_signal")
		shutdown(cfg, app, mgr, sessions, srv)
		return nil
	})

	exit := 0
	if err := g.Wait(); err != nil {
		obs.Logger.WithError(err).Error("http_server_error")
		exit = 1
	}

	tctx, tcancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := shutdownTracing(tctx); err != nil {
		obs.Logger.WithError(err).Warn("tracing_shutdown_failed")
	}
	tcancel()
	if err := st.Close(); err != nil {
		obs.Logger.WithError(err).Warn("backend_close_failed")
	}
	obs.Logger.Info("service_stopped")
	stop()
	cancel()
	os.Exit(exit)
}

func shutdown(cfg config.Config, app *httpapi.App, mgr *queue.Manager, sessions *storefront.Registry, srv *http.Server) {
	app.StartShutdown()
	obs.Logger.WithFields(logrus.Fields{
		"backlog_size": mgr.BacklogSize(),
		"worker_count": mgr.WorkerCount(),
	}).Info("shutdown_drain_begin")

	ctxDrain, cancelDrain := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelDrain()
	if drained := mgr.DrainUntil(ctxDrain); !drained {
		obs.Logger.Warn("shutdown_drain_timeout")
	} else {
		obs.Logger.Info("shutdown_drain_complete")
	}
	sessions.CloseAll()

	ctxSrv, cancelSrv := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelSrv()
	if err := srv.Shutdown(ctxSrv); err != nil {
		obs.Logger.WithError(err).Error("http_shutdown_error")
	}
	mgr.Stop()
}
