package httpapi

import (
	"expvar"
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
)

// NewRouter registers HTTP routes and returns the handler with middleware.
func NewRouter(app *App) http.Handler {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("sneaker-drop-storefront"))

	api := r.PathPrefix("/api").Subrouter()
	api.Use(app.withSession)
	api.HandleFunc("/products", app.listProductsHandler).Methods(http.MethodGet)
	api.HandleFunc("/products/more", app.loadMoreHandler).Methods(http.MethodPost)
	api.HandleFunc("/products/{id}/size", app.selectSizeHandler).Methods(http.MethodPut)
	api.HandleFunc("/products/{id}/action", app.mainActionHandler).Methods(http.MethodPost)

	api.HandleFunc("/cart", app.getCartHandler).Methods(http.MethodGet)
	api.HandleFunc("/cart", app.clearCartHandler).Methods(http.MethodDelete)
	api.HandleFunc("/cart/watch", app.watchCartHandler).Methods(http.MethodGet)
	api.HandleFunc("/cart/toggle", app.toggleCartHandler).Methods(http.MethodPost)
	api.HandleFunc("/cart/checkout", app.checkoutHandler).Methods(http.MethodPost)
	api.HandleFunc("/cart/items/{id}/{size}/increment", app.incrementHandler).Methods(http.MethodPost)
	api.HandleFunc("/cart/items/{id}/{size}/decrement", app.decrementHandler).Methods(http.MethodPost)
	api.HandleFunc("/cart/items/{id}/{size}", app.removeItemHandler).Methods(http.MethodDelete)
	api.HandleFunc("/cart/upsell", app.upsellHandler).Methods(http.MethodGet)
	api.HandleFunc("/cart/upsell/{id}", app.quickAddHandler).Methods(http.MethodPost)

	api.HandleFunc("/toast", app.getToastHandler).Methods(http.MethodGet)
	api.HandleFunc("/toast", app.hideToastHandler).Methods(http.MethodDelete)
	api.HandleFunc("/waitlist", app.getWaitlistHandler).Methods(http.MethodGet)
	api.HandleFunc("/waitlist", app.submitWaitlistHandler).Methods(http.MethodPost)
	api.HandleFunc("/waitlist", app.closeWaitlistHandler).Methods(http.MethodDelete)
	api.HandleFunc("/countdown", app.countdownHandler).Methods(http.MethodGet)

	r.HandleFunc("/healthz", app.healthHandler).Methods(http.MethodGet)
	r.HandleFunc("/debug/metrics", app.metricsHandler).Methods(http.MethodGet)
	r.Handle("/debug/vars", expvar.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/openapi.yaml", app.openapiHandler).Methods(http.MethodGet)
	r.HandleFunc("/docs", app.docsHandler).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		WriteJSONError(w, http.StatusNotFound, "not_found", "")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		WriteJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
	})
	return WithRequestID(WithLogging(r))
}
