package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/fairyhunter13/sneaker-drop-storefront/internal/obs"
)

// maxWatch caps a cart long-poll.
const maxWatch = 25 * time.Second

func productID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, "invalid_product_id", "id must be an integer")
		return 0, false
	}
	return id, true
}

// decodeJSON reads a JSON body into v, rejecting other media types and unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := r.Header.Get("Content-Type")
	if !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		WriteJSONError(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "expected application/json")
		return false
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return false
	}
	return true
}

func (a *App) listProductsHandler(w http.ResponseWriter, r *http.Request) {
	s := sessionFromContext(r.Context())
	if q := r.URL.Query(); q.Has("size") {
		s.SetSizeFilter(strings.TrimSpace(q.Get("size")))
	}
	writeJSON(w, http.StatusOK, s.CatalogView())
}

func (a *App) loadMoreHandler(w http.ResponseWriter, r *http.Request) {
	s := sessionFromContext(r.Context())
	if err := s.LoadMore(r.Context()); err != nil {
		// a failed page read keeps what is already loaded
		obs.Logger.WithError(err).WithField("session_id", s.ID).Warn("catalog_load_more_failed")
	}
	writeJSON(w, http.StatusOK, s.CatalogView())
}

type selectSizeRequest struct {
	Size string `json:"size"`
}

func (a *App) selectSizeHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	var req selectSizeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s := sessionFromContext(r.Context())
	if err := s.SelectSize(id, req.Size); err != nil {
		writeDomainError(w, err)
		return
	}
	card, err := s.Card(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

func (a *App) mainActionHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	s := sessionFromContext(r.Context())
	res, err := s.MainAction(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *App) getCartHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionFromContext(r.Context()).Cart.Snapshot())
}

// watchCartHandler blocks until the cart version passes ?version= or the wait caps out,
// then answers with the current snapshot either way.
func (a *App) watchCartHandler(w http.ResponseWriter, r *http.Request) {
	s := sessionFromContext(r.Context())
	var after uint64
	if v := r.URL.Query().Get("version"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			WriteJSONError(w, http.StatusBadRequest, "invalid_version", "version must be a non-negative integer")
			return
		}
		after = n
	}
	ctx, cancel := context.WithTimeout(r.Context(), maxWatch)
	defer cancel()
	snap, err := s.Cart.WaitForChange(ctx, after)
	if err != nil {
		snap = s.Cart.Snapshot()
	}
	writeJSON(w, http.StatusOK, snap)
}

func cartItem(w http.ResponseWriter, r *http.Request) (int64, string, bool) {
	id, ok := productID(w, r)
	if !ok {
		return 0, "", false
	}
	return id, mux.Vars(r)["size"], true
}

func (a *App) incrementHandler(w http.ResponseWriter, r *http.Request) {
	id, size, ok := cartItem(w, r)
	if !ok {
		return
	}
	s := sessionFromContext(r.Context())
	s.Cart.IncrementItem(id, size)
	writeJSON(w, http.StatusOK, s.Cart.Snapshot())
}

func (a *App) decrementHandler(w http.ResponseWriter, r *http.Request) {
	id, size, ok := cartItem(w, r)
	if !ok {
		return
	}
	s := sessionFromContext(r.Context())
	s.Cart.DecrementItem(id, size)
	writeJSON(w, http.StatusOK, s.Cart.Snapshot())
}

func (a *App) removeItemHandler(w http.ResponseWriter, r *http.Request) {
	id, size, ok := cartItem(w, r)
	if !ok {
		return
	}
	s := sessionFromContext(r.Context())
	s.Cart.RemoveItem(id, size)
	writeJSON(w, http.StatusOK, s.Cart.Snapshot())
}

func (a *App) clearCartHandler(w http.ResponseWriter, r *http.Request) {
	s := sessionFromContext(r.Context())
	s.Cart.ClearCart()
	writeJSON(w, http.StatusOK, s.Cart.Snapshot())
}

func (a *App) toggleCartHandler(w http.ResponseWriter, r *http.Request) {
	s := sessionFromContext(r.Context())
	s.Cart.ToggleCart()
	writeJSON(w, http.StatusOK, s.Cart.Snapshot())
}

func (a *App) checkoutHandler(w http.ResponseWriter, r *http.Request) {
	s := sessionFromContext(r.Context())
	snap := s.Cart.Snapshot()
	obs.Logger.WithFields(logrus.Fields{
		"session_id": s.ID,
		"item_count": snap.ItemCount,
		"total":      snap.Total.StringFixed(2),
	}).Info("checkout_requested")
	WriteJSONError(w, http.StatusNotImplemented, "not_implemented", "payment is not available")
}

func (a *App) upsellHandler(w http.ResponseWriter, r *http.Request) {
	s := sessionFromContext(r.Context())
	view, err := s.Upsell(r.Context())
	if err != nil {
		// no recommendations is a valid rendering
		obs.Logger.WithError(err).WithField("session_id", s.ID).Warn("upsell_fetch_failed")
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *App) quickAddHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	s := sessionFromContext(r.Context())
	changed, err := s.QuickAdd(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"changed": changed, "cart": s.Cart.Snapshot()})
}

func (a *App) getToastHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionFromContext(r.Context()).Toast.Current())
}

func (a *App) hideToastHandler(w http.ResponseWriter, r *http.Request) {
	s := sessionFromContext(r.Context())
	s.Toast.Hide()
	writeJSON(w, http.StatusOK, s.Toast.Current())
}

func (a *App) getWaitlistHandler(w http.ResponseWriter, r *http.Request) {
	f, ok := sessionFromContext(r.Context()).Waitlist()
	if !ok {
		WriteJSONError(w, http.StatusNotFound, "no_waitlist", "")
		return
	}
	writeJSON(w, http.StatusOK, f.View())
}

type waitlistRequest struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

func (a *App) submitWaitlistHandler(w http.ResponseWriter, r *http.Request) {
	var req waitlistRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s := sessionFromContext(r.Context())
	view, err := s.SubmitWaitlist(r.Context(), req.Email, req.Phone)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *App) closeWaitlistHandler(w http.ResponseWriter, r *http.Request) {
	sessionFromContext(r.Context()).CloseWaitlist()
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) countdownHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionFromContext(r.Context()).Countdown())
}
