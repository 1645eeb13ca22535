package httpapi

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fairyhunter13/sneaker-drop-storefront/internal/backend"
	"github.com/fairyhunter13/sneaker-drop-storefront/internal/config"
	httpopenapi "github.com/fairyhunter13/sneaker-drop-storefront/internal/http/openapi"
	"github.com/fairyhunter13/sneaker-drop-storefront/internal/obs"
	"github.com/fairyhunter13/sneaker-drop-storefront/internal/queue"
	"github.com/fairyhunter13/sneaker-drop-storefront/internal/storefront"
)

type App struct {
	Cfg      config.Config
	Store    backend.Store
	Manager  *queue.Manager
	Sessions *storefront.Registry
	closing  atomic.Bool
	started  time.Time
}

func NewApp(cfg config.Config, st backend.Store, m *queue.Manager, sessions *storefront.Registry) *App {
	return &App{Cfg: cfg, Store: st, Manager: m, Sessions: sessions, started: time.Now()}
}

// StartShutdown stops accepting API work and background refresh jobs.
func (a *App) StartShutdown() {
	a.closing.Store(true)
	a.Manager.CloseIntake()
	obs.Logger.WithFields(logrus.Fields{
		"sessions":     a.Sessions.Len(),
		"backlog_size": a.Manager.BacklogSize(),
	}).Info("shutdown_started")
}

func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := a.Store.Ping(ctx); err != nil {
		WriteJSONError(w, http.StatusServiceUnavailable, "backend_unavailable", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "backend": a.Cfg.Backend})
}

func (a *App) metricsHandler(w http.ResponseWriter, r *http.Request) {
	enq, proc, backlog, depth := a.Manager.QueueMetrics()
	m := map[string]any{
		"sessions":       a.Sessions.Len(),
		"jobs_enqueued":  enq,
		"jobs_processed": proc,
		"jobs_coalesced": a.Manager.Coalesced(),
		"backlog_size":   backlog,
		"queue_depth":    depth,
		"worker_count":   a.Manager.WorkerCount(),
		"uptime_sec":     time.Since(a.started).Seconds(),
	}
	writeJSON(w, http.StatusOK, m)
}

func (a *App) openapiHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(httpopenapi.YAML)
}

const docsHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>Sneaker Drop Storefront API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui'
      });
    </script>
  </body>
</html>`

func (a *App) docsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(docsHTML))
}
