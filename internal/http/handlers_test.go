package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/sneaker-drop-storefront/internal/backend/memory"
	"github.com/fairyhunter13/sneaker-drop-storefront/internal/cart"
	"github.com/fairyhunter13/sneaker-drop-storefront/internal/config"
	"github.com/fairyhunter13/sneaker-drop-storefront/internal/model"
	"github.com/fairyhunter13/sneaker-drop-storefront/internal/queue"
	"github.com/fairyhunter13/sneaker-drop-storefront/internal/storefront"
	"github.com/fairyhunter13/sneaker-drop-storefront/internal/waitlist"
)

func testConfig() config.Config {
	cfg := config.Load()
	cfg.Backend = "memory"
	cfg.CatalogPageSize = 2
	cfg.CatalogRefreshInterval = time.Hour
	cfg.ToastDuration = time.Hour
	cfg.WaitlistConfirmDelay = time.Hour
	cfg.SessionIdleTTL = time.Hour
	return cfg
}

func fixtureStore() *memory.Store {
	st := memory.New()
	st.Upsert(model.Product{ID: 1, Name: "Dunk Low", Price: decimal.RequireFromString("100.00"),
		RetailPrice: decimal.NewNullDecimal(decimal.RequireFromString("125.00")),
		Inventory:   model.Inventory{"40": 2, "41": 0}})
	st.Upsert(model.Product{ID: 2, Name: "Samba", Price: decimal.RequireFromString("90.00"),
		Inventory: model.Inventory{"40": 5}})
	st.Upsert(model.Product{ID: 3, Name: "Gel-Kayano", Price: decimal.RequireFromString("150.00"),
		Inventory: model.Inventory{"42": 4}})
	return st
}

func setupApp(t *testing.T) (*App, *memory.Store, func(), http.Handler) {
	t.Helper()
	cfg := testConfig()
	st := fixtureStore()
	mgr := queue.NewManager(cfg, queue.New(16))
	ctx, cancel := context.WithCancel(context.Background())
	mgr.Start(ctx)
	reg := storefront.NewRegistry(storefront.Deps{Store: st, Pool: mgr, Cfg: cfg})
	app := NewApp(cfg, st, mgr, reg)
	return app, st, func() { reg.CloseAll(); cancel(); mgr.Stop() }, NewRouter(app)
}

// shopper replays the session cookie like a browser tab would.
type shopper struct {
	t   *testing.T
	h   http.Handler
	sid string
}

func (s *shopper) do(method, path, body string) *httptest.ResponseRecorder {
	s.t.Helper()
	var rdr *bytes.Buffer
	if body != "" {
		rdr = bytes.NewBufferString(body)
	} else {
		rdr = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.sid != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: s.sid})
	}
	rr := httptest.NewRecorder()
	s.h.ServeHTTP(rr, req)
	for _, c := range rr.Result().Cookies() {
		if c.Name == SessionCookie {
			s.sid = c.Value
		}
	}
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %T: %v (body %s)", v, err, rr.Body.String())
	}
	return v
}

func TestOpenAPIServed(t *testing.T) {
	_, _, cleanup, h := setupApp(t)
	defer cleanup()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct == "" {
		t.Fatalf("expected content-type set")
	}
	if !bytes.Contains(rr.Body.Bytes(), []byte("openapi:")) {
		t.Fatalf("expected openapi content")
	}
}

func TestDocsServed(t *testing.T) {
	_, _, cleanup, h := setupApp(t)
	defer cleanup()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/docs", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "swagger-ui") {
		t.Fatalf("expected swagger-ui docs, got %d", rr.Code)
	}
}

func TestHealthzAndMetrics(t *testing.T) {
	_, _, cleanup, h := setupApp(t)
	defer cleanup()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	sh := &shopper{t: t, h: h}
	sh.do(http.MethodGet, "/api/products", "")

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/debug/metrics", nil))
	m := decode[map[string]any](t, rr)
	if m["sessions"] != float64(1) {
		t.Fatalf("expected one session, got %v", m["sessions"])
	}
	for _, k := range []string{"worker_count", "queue_depth", "jobs_enqueued"} {
		if _, ok := m[k]; !ok {
			t.Fatalf("missing %s", k)
		}
	}
}

func TestRequestIDEchoed(t *testing.T) {
	_, _, cleanup, h := setupApp(t)
	defer cleanup()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "test-req-1")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get("X-Request-Id"); got != "test-req-1" {
		t.Fatalf("expected echoed request id, got %q", got)
	}
}

func TestSessionCookieIssuedOnce(t *testing.T) {
	_, _, cleanup, h := setupApp(t)
	defer cleanup()
	sh := &shopper{t: t, h: h}
	rr := sh.do(http.MethodGet, "/api/cart", "")
	if rr.Code != http.StatusOK || sh.sid == "" {
		t.Fatalf("expected a session cookie, got %d", rr.Code)
	}
	first := sh.sid
	rr = sh.do(http.MethodGet, "/api/cart", "")
	if len(rr.Result().Cookies()) != 0 || sh.sid != first {
		t.Fatalf("known session must not get a new cookie")
	}
}

func TestCatalogPagingAndFilter(t *testing.T) {
	_, _, cleanup, h := setupApp(t)
	defer cleanup()
	sh := &shopper{t: t, h: h}

	v := decode[storefront.CatalogView](t, sh.do(http.MethodGet, "/api/products", ""))
	if len(v.Cards) != 2 || !v.HasMore || v.Total != 3 {
		t.Fatalf("unexpected first page %+v", v)
	}
	if v.Cards[0].Discount != 20 || v.Cards[0].StockLabel != "¡Quedan 2 pares!" {
		t.Fatalf("unexpected first card %+v", v.Cards[0])
	}
	v = decode[storefront.CatalogView](t, sh.do(http.MethodPost, "/api/products/more", ""))
	if len(v.Cards) != 3 || v.HasMore {
		t.Fatalf("expected all products after load more, got %d", len(v.Cards))
	}
	v = decode[storefront.CatalogView](t, sh.do(http.MethodGet, "/api/products?size=40", ""))
	if len(v.Cards) != 2 || v.SizeFilter != "40" || v.Cards[0].SelectedSize != "40" {
		t.Fatalf("unexpected filtered view %+v", v)
	}
	v = decode[storefront.CatalogView](t, sh.do(http.MethodGet, "/api/products?size=47", ""))
	if len(v.Cards) != 0 || v.Message != "no matches for size 47" {
		t.Fatalf("unexpected empty filter view %+v", v)
	}
	v = decode[storefront.CatalogView](t, sh.do(http.MethodGet, "/api/products?size=", ""))
	if len(v.Cards) != 3 || v.SizeFilter != "" {
		t.Fatalf("expected cleared filter, got %+v", v)
	}
}

func TestAddToCartFlow(t *testing.T) {
	_, _, cleanup, h := setupApp(t)
	defer cleanup()
	sh := &shopper{t: t, h: h}
	sh.do(http.MethodGet, "/api/products", "")

	rr := sh.do(http.MethodPost, "/api/products/1/action", "")
	if rr.Code != http.StatusBadRequest || !strings.Contains(rr.Body.String(), "size_required") {
		t.Fatalf("expected size_required, got %d %s", rr.Code, rr.Body.String())
	}
	if rr := sh.do(http.MethodPut, "/api/products/1/size", `{"size":"39"}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for size not offered, got %d", rr.Code)
	}
	if rr := sh.do(http.MethodPut, "/api/products/1/size", `{"size":"40"}`); rr.Code != http.StatusOK {
		t.Fatalf("select size: %d %s", rr.Code, rr.Body.String())
	}
	for i := 0; i < 3; i++ {
		res := decode[storefront.ActionResult](t, sh.do(http.MethodPost, "/api/products/1/action", ""))
		if res.Outcome != storefront.OutcomeAdded {
			t.Fatalf("unexpected outcome %+v", res)
		}
	}
	snap := decode[cart.Snapshot](t, sh.do(http.MethodGet, "/api/cart", ""))
	if len(snap.Items) != 1 || snap.Items[0].Quantity != 2 || snap.ItemCount != 2 || !snap.Total.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("unexpected cart %+v", snap)
	}
	toast := decode[model.Toast](t, sh.do(http.MethodGet, "/api/toast", ""))
	if !toast.Visible || toast.Message != storefront.AddedToastMessage {
		t.Fatalf("unexpected toast %+v", toast)
	}
	toast = decode[model.Toast](t, sh.do(http.MethodDelete, "/api/toast", ""))
	if toast.Visible {
		t.Fatalf("toast should be hidden")
	}

	snap = decode[cart.Snapshot](t, sh.do(http.MethodPost, "/api/cart/items/1/40/decrement", ""))
	if snap.Items[0].Quantity != 1 {
		t.Fatalf("decrement failed %+v", snap.Items)
	}
	snap = decode[cart.Snapshot](t, sh.do(http.MethodPost, "/api/cart/items/1/40/decrement", ""))
	if snap.Items[0].Quantity != 1 {
		t.Fatalf("decrement below one must be a no-op")
	}
	snap = decode[cart.Snapshot](t, sh.do(http.MethodPost, "/api/cart/toggle", ""))
	if !snap.Open {
		t.Fatalf("toggle should open the cart")
	}
	snap = decode[cart.Snapshot](t, sh.do(http.MethodDelete, "/api/cart/items/1/40", ""))
	if len(snap.Items) != 0 || !snap.Open {
		t.Fatalf("remove should empty the cart and keep it open: %+v", snap)
	}
	if rr := sh.do(http.MethodPost, "/api/cart/checkout", ""); rr.Code != http.StatusNotImplemented {
		t.Fatalf("expected 501, got %d", rr.Code)
	}
}

func TestWaitlistFlow(t *testing.T) {
	_, st, cleanup, h := setupApp(t)
	defer cleanup()
	sh := &shopper{t: t, h: h}
	sh.do(http.MethodGet, "/api/products", "")
	if rr := sh.do(http.MethodGet, "/api/waitlist", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("expected no form, got %d", rr.Code)
	}
	sh.do(http.MethodPut, "/api/products/1/size", `{"size":"41"}`)
	res := decode[storefront.ActionResult](t, sh.do(http.MethodPost, "/api/products/1/action", ""))
	if res.Outcome != storefront.OutcomeWaitlist {
		t.Fatalf("expected waitlist outcome, got %+v", res)
	}
	rr := sh.do(http.MethodPost, "/api/waitlist", `{"email":"nope"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid email, got %d", rr.Code)
	}
	form := decode[waitlist.View](t, sh.do(http.MethodGet, "/api/waitlist", ""))
	if form.Email != "nope" || form.State != waitlist.StateEditing {
		t.Fatalf("values should be kept: %+v", form)
	}
	form = decode[waitlist.View](t, sh.do(http.MethodPost, "/api/waitlist", `{"email":"fan@example.com","phone":""}`))
	if form.State != waitlist.StateConfirmed {
		t.Fatalf("expected confirmed, got %+v", form)
	}
	if rows := st.Waitlist(); len(rows) != 1 || rows[0].Size != "41" || rows[0].Phone != nil {
		t.Fatalf("unexpected waitlist rows %+v", rows)
	}
	if rr := sh.do(http.MethodDelete, "/api/waitlist", ""); rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if rr := sh.do(http.MethodGet, "/api/waitlist", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("expected closed form, got %d", rr.Code)
	}
}

func TestUpsellAndQuickAdd(t *testing.T) {
	_, _, cleanup, h := setupApp(t)
	defer cleanup()
	sh := &shopper{t: t, h: h}
	sh.do(http.MethodGet, "/api/products?size=40", "")
	sh.do(http.MethodPost, "/api/products/1/action", "")

	view := decode[storefront.UpsellView](t, sh.do(http.MethodGet, "/api/cart/upsell", ""))
	if view.Size != "40" || len(view.Recommendations) != 1 || view.Recommendations[0].ID != 2 {
		t.Fatalf("unexpected upsell %+v", view)
	}
	if rr := sh.do(http.MethodPost, "/api/cart/upsell/3", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for product without stock in 40, got %d", rr.Code)
	}
	if rr := sh.do(http.MethodPost, "/api/cart/upsell/2", ""); rr.Code != http.StatusOK {
		t.Fatalf("quick add: %d %s", rr.Code, rr.Body.String())
	}
	snap := decode[cart.Snapshot](t, sh.do(http.MethodGet, "/api/cart", ""))
	if len(snap.Items) != 2 || snap.Items[1].ProductID != 2 || snap.Items[1].MaxStock != 5 {
		t.Fatalf("unexpected cart %+v", snap.Items)
	}
}

func TestWatchCart(t *testing.T) {
	_, _, cleanup, h := setupApp(t)
	defer cleanup()
	sh := &shopper{t: t, h: h}
	snap := decode[cart.Snapshot](t, sh.do(http.MethodGet, "/api/cart", ""))

	done := make(chan cart.Snapshot, 1)
	go func() {
		req := httptest.NewRequest(http.MethodGet, "/api/cart/watch?version=0", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: sh.sid})
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		var s cart.Snapshot
		_ = json.Unmarshal(rr.Body.Bytes(), &s)
		done <- s
	}()
	time.Sleep(50 * time.Millisecond)
	sh.do(http.MethodPost, "/api/cart/toggle", "")
	select {
	case got := <-done:
		if got.Version <= snap.Version || !got.Open {
			t.Fatalf("watch returned stale snapshot %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("watch did not return after a change")
	}
	if rr := sh.do(http.MethodGet, "/api/cart/watch?version=abc", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad version, got %d", rr.Code)
	}
}

func TestCountdown(t *testing.T) {
	_, _, cleanup, h := setupApp(t)
	defer cleanup()
	sh := &shopper{t: t, h: h}
	rr := sh.do(http.MethodGet, "/api/countdown", "")
	v := decode[map[string]any](t, rr)
	if _, ok := v["days"]; !ok || v["live"] != false {
		t.Fatalf("unexpected countdown %v", v)
	}
}

func TestBadInput(t *testing.T) {
	_, _, cleanup, h := setupApp(t)
	defer cleanup()
	sh := &shopper{t: t, h: h}
	if rr := sh.do(http.MethodPost, "/api/products/abc/action", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-numeric id, got %d", rr.Code)
	}
	if rr := sh.do(http.MethodPost, "/api/products/99/action", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown product, got %d", rr.Code)
	}
	if rr := sh.do(http.MethodPut, "/api/products/1/size", `{"size":"40","extra":1}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown fields, got %d", rr.Code)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/waitlist", bytes.NewBufferString("{}"))
	req.Header.Set("Content-Type", "text/plain")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d", rr.Code)
	}
	if rr := sh.do(http.MethodPatch, "/api/cart", ""); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
}

func TestShutdownBehavior(t *testing.T) {
	app, _, cleanup, h := setupApp(t)
	defer cleanup()
	app.StartShutdown()
	sh := &shopper{t: t, h: h}
	if rr := sh.do(http.MethodGet, "/api/products", ""); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	if _, ok := app.Manager.Submit("late", nil); ok {
		t.Fatalf("job intake should be closed")
	}
}
