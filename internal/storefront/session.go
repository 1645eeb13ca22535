// Package storefront ties the per-shopper stores together. A Session is one visitor's
// application root: it owns the cart, the toast slot, the catalog view with its size
// selections, and the waitlist form, and tears all of them down together.
package storefront

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fairyhunter13/sneaker-drop-storefront/internal/backend"
	"github.com/fairyhunter13/sneaker-drop-storefront/internal/cart"
	"github.com/fairyhunter13/sneaker-drop-storefront/internal/catalog"
	"github.com/fairyhunter13/sneaker-drop-storefront/internal/config"
	"github.com/fairyhunter13/sneaker-drop-storefront/internal/countdown"
	"github.com/fairyhunter13/sneaker-drop-storefront/internal/model"
	"github.com/fairyhunter13/sneaker-drop-storefront/internal/toast"
	"github.com/fairyhunter13/sneaker-drop-storefront/internal/waitlist"
)

var (
	ErrSizeRequired    = errors.New("select a size first")
	ErrSizeNotOffered  = errors.New("size not offered for this product")
	ErrProductNotFound = errors.New("product not found")
	ErrNoWaitlist      = errors.New("no waitlist form open")
	ErrSessionClosed   = errors.New("session closed")
)

// Deps are the process-wide collaborators shared by every session.
type Deps struct {
	Store backend.Store
	Pool  catalog.Submitter
	Cfg   config.Config
	Now   func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

type Session struct {
	ID      string
	Cart    *cart.Store
	Toast   *toast.Store
	Catalog *catalog.Catalog

	deps   Deps
	ctx    context.Context
	cancel context.CancelFunc
	dropAt time.Time
	seen   atomic.Int64

	mu         sync.Mutex
	selections map[int64]string
	form       *waitlist.Form
	upsell     upsellCache
	closed     bool
}

// NewSession builds a session, loads the first catalog page and starts polling. A failed
// first load leaves an empty catalog and is returned for logging only.
func NewSession(ctx context.Context, id string, deps Deps) (*Session, error) {
	cfg := deps.Cfg
	sctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ID:    id,
		Cart:  cart.New(),
		Toast: toast.New(cfg.ToastDuration, toast.ParsePolicy(cfg.ToastTimerPolicy)),
		Catalog: catalog.New(deps.Store, catalog.Options{
			PageSize:        cfg.CatalogPageSize,
			RefreshInterval: cfg.CatalogRefreshInterval,
			Pool:            deps.Pool,
			Key:             id,
		}),
		deps:       deps,
		ctx:        sctx,
		cancel:     cancel,
		selections: make(map[int64]string),
	}
	now := deps.now()
	s.dropAt = countdown.Schedule{
		Weekday:  cfg.DropWeekday,
		Hour:     cfg.DropHour,
		Location: cfg.Location(),
	}.Next(now)
	s.Touch(now)

	err := s.Catalog.Load(ctx)
	go s.Catalog.Run(sctx)
	return s, err
}

// Touch records activity at now.
func (s *Session) Touch(now time.Time) { s.seen.Store(now.UnixNano()) }

// LastSeen returns the time of the last recorded activity.
func (s *Session) LastSeen() time.Time { return time.Unix(0, s.seen.Load()) }

// Close cancels polling and every pending timer the session owns.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	form := s.form
	s.form = nil
	s.mu.Unlock()

	s.cancel()
	s.Catalog.Close()
	s.Toast.Close()
	s.Cart.Close()
	if form != nil {
		form.Close()
	}
}

func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Countdown returns the time left until the drop computed when the session started.
func (s *Session) Countdown() countdown.Remaining {
	return countdown.Until(s.dropAt, s.deps.now())
}

// SetSizeFilter changes the catalog filter. Cards follow a newly set filter as their
// selection; clearing it leaves every visible card on the size it was showing.
func (s *Session) SetSizeFilter(size string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.Catalog.SizeFilter()
	if size == prev {
		return
	}
	s.Catalog.SetSizeFilter(size)
	visible := catalog.FilterBySize(s.Catalog.Products(), prev)
	s.selections = make(map[int64]string)
	if size == "" && prev != "" {
		for _, p := range visible {
			s.selections[p.ID] = prev
		}
	}
}

// SelectSize sets the selected size on one product card.
func (s *Session) SelectSize(productID int64, size string) error {
	p, ok := s.Catalog.Product(productID)
	if !ok {
		return ErrProductNotFound
	}
	if !p.HasSize(size) {
		return ErrSizeNotOffered
	}
	s.mu.Lock()
	s.selections[productID] = size
	s.mu.Unlock()
	return nil
}

// SelectedSize returns the card's selection, defaulting to the active size filter when the
// product is offered in it. Unknown products only report an explicit selection.
func (s *Session) SelectedSize(productID int64) string {
	p, ok := s.Catalog.Product(productID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if !ok {
		return s.selections[productID]
	}
	return s.selectedLocked(p)
}

func (s *Session) selectedLocked(p model.Product) string {
	if size, ok := s.selections[p.ID]; ok {
		return size
	}
	if filter := s.Catalog.SizeFilter(); p.HasSize(filter) {
		return filter
	}
	return ""
}

// OpenWaitlist replaces any open form with one bound to the product and size.
func (s *Session) OpenWaitlist(p model.Product, size string) *waitlist.Form {
	f := waitlist.Open(s.deps.Store, p.ID, p.Name, size, s.deps.Cfg.WaitlistConfirmDelay)
	s.mu.Lock()
	prev := s.form
	s.form = f
	s.mu.Unlock()
	if prev != nil {
		prev.Close()
	}
	return f
}

// Waitlist returns the open form, if any. A form that closed itself is forgotten.
func (s *Session) Waitlist() (*waitlist.Form, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.form == nil {
		return nil, false
	}
	if s.form.Closed() {
		s.form = nil
		return nil, false
	}
	return s.form, true
}

// SubmitWaitlist submits the open form.
func (s *Session) SubmitWaitlist(ctx context.Context, email, phone string) (waitlist.View, error) {
	f, ok := s.Waitlist()
	if !ok {
		return waitlist.View{}, ErrNoWaitlist
	}
	err := f.Submit(ctx, email, phone)
	return f.View(), err
}

// CloseWaitlist dismisses the open form.
func (s *Session) CloseWaitlist() {
	s.mu.Lock()
	f := s.form
	s.form = nil
	s.mu.Unlock()
	if f != nil {
		f.Close()
	}
}
