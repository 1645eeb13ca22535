// Package catalog keeps one shopper's paginated view of the product table, polls it for
// stock changes and filters it by size.
package catalog

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fairyhunter13/sneaker-drop-storefront/internal/model"
	"github.com/fairyhunter13/sneaker-drop-storefront/internal/obs"
	"github.com/fairyhunter13/sneaker-drop-storefront/internal/queue"
)

const (
	DefaultPageSize        = 12
	DefaultRefreshInterval = 120 * time.Second
)

// ErrClosed is returned by operations on a closed catalog.
var ErrClosed = errors.New("catalog closed")

// Source reads products ordered by id.
type Source interface {
	ListProducts(ctx context.Context, page model.Page) ([]model.Product, int, error)
}

// Submitter runs work in the background, keeping only the newest pending job per key.
// *queue.Manager satisfies it.
type Submitter interface {
	SubmitLatest(key string, run func(ctx context.Context)) (uint64, bool)
}

type Options struct {
	PageSize        int
	RefreshInterval time.Duration
	// Pool, when set, runs polled refreshes instead of the Run goroutine itself.
	Pool Submitter
	// Key identifies the owner in logs and job keys.
	Key string
}

type Catalog struct {
	src      Source
	pageSize int
	interval time.Duration
	pool     Submitter
	key      string

	ctx    context.Context
	cancel context.CancelFunc

	seq     queue.Sequencer
	applied queue.Latest

	mu         sync.RWMutex
	products   []model.Product
	total      int
	sizeFilter string
	closed     bool
}

func New(src Source, opts Options) *Catalog {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = DefaultRefreshInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Catalog{
		src:      src,
		pageSize: opts.PageSize,
		interval: opts.RefreshInterval,
		pool:     opts.Pool,
		key:      opts.Key,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (c *Catalog) log() *logrus.Entry {
	return obs.Logger.WithField("catalog", c.key)
}

// Load replaces the list with the first page. On failure the list is left empty.
func (c *Catalog) Load(ctx context.Context) error {
	seq := c.seq.Next()
	rows, total, err := c.src.ListProducts(ctx, model.Page{Offset: 0, Limit: c.pageSize})

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if !c.applied.Accept(seq) {
		return err
	}
	if err != nil {
		c.products = nil
		c.total = 0
		return err
	}
	c.products = rows
	c.total = total
	return nil
}

// LoadMore appends the next page. An empty page or a failure leaves the list untouched.
func (c *Catalog) LoadMore(ctx context.Context) error {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return ErrClosed
	}
	offset := len(c.products)
	c.mu.RUnlock()

	rows, total, err := c.src.ListProducts(ctx, model.Page{Offset: offset, Limit: c.pageSize})
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if len(rows) == 0 {
		return nil
	}
	seen := make(map[int64]struct{}, len(c.products))
	for _, p := range c.products {
		seen[p.ID] = struct{}{}
	}
	for _, p := range rows {
		if _, dup := seen[p.ID]; dup {
			continue
		}
		c.products = append(c.products, p)
	}
	c.total = total
	return nil
}

// Refresh re-reads max(loaded, page size) rows from the start and reconciles them into
// the loaded list by id: known products are replaced in place, products missing from the
// result are kept, and rows that were never loaded are not appended. Results older than
// the last applied load or refresh are discarded.
func (c *Catalog) Refresh(ctx context.Context) error {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return ErrClosed
	}
	n := len(c.products)
	c.mu.RUnlock()
	if n < c.pageSize {
		n = c.pageSize
	}

	seq := c.seq.Next()
	rows, total, err := c.src.ListProducts(ctx, model.Page{Offset: 0, Limit: n})
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if !c.applied.Accept(seq) {
		c.log().WithField("sequence", seq).Debug("catalog_refresh_stale")
		return nil
	}
	fresh := make(map[int64]model.Product, len(rows))
	for _, p := range rows {
		fresh[p.ID] = p
	}
	updated := 0
	for i, p := range c.products {
		if f, ok := fresh[p.ID]; ok {
			c.products[i] = f
			updated++
		}
	}
	c.total = total
	c.log().WithFields(logrus.Fields{"sequence": seq, "updated": updated, "total": total}).Debug("catalog_refreshed")
	return nil
}

// Run polls Refresh every refresh interval until ctx is done or the catalog is closed.
func (c *Catalog) Run(ctx context.Context) {
	t := time.NewTicker(c.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.ctx.Done():
			return
		case <-t.C:
			c.poll()
		}
	}
}

func (c *Catalog) poll() {
	refresh := func(ctx context.Context) {
		ctx, cancel := mergeDone(ctx, c.ctx)
		defer cancel()
		if err := c.Refresh(ctx); err != nil && !errors.Is(err, ErrClosed) {
			c.log().WithError(err).Warn("catalog_refresh_failed")
		}
	}
	if c.pool != nil {
		if _, ok := c.pool.SubmitLatest("catalog_refresh:"+c.key, refresh); ok {
			return
		}
	}
	refresh(c.ctx)
}

// mergeDone returns a context derived from a that is also cancelled when b is done.
func mergeDone(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(a)
	stop := context.AfterFunc(b, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// Close stops polling and makes every later completion a no-op.
func (c *Catalog) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.cancel()
}

func (c *Catalog) Closed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// Products returns the loaded products in id order.
func (c *Catalog) Products() []model.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.Product, len(c.products))
	copy(out, c.products)
	return out
}

// Product returns a loaded product by id.
func (c *Catalog) Product(id int64) (model.Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, p := range c.products {
		if p.ID == id {
			return p, true
		}
	}
	return model.Product{}, false
}

func (c *Catalog) Total() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.total
}

// HasMore reports whether fewer products are loaded than the table holds.
func (c *Catalog) HasMore() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.products) < c.total
}

// SetSizeFilter sets the active size filter; "" clears it.
func (c *Catalog) SetSizeFilter(size string) {
	c.mu.Lock()
	c.sizeFilter = size
	c.mu.Unlock()
}

func (c *Catalog) SizeFilter() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sizeFilter
}

// Filtered returns the loaded products narrowed by the active size filter.
func (c *Catalog) Filtered() []model.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return FilterBySize(c.products, c.sizeFilter)
}

// AvailableSizes returns every size offered by a loaded product.
func (c *Catalog) AvailableSizes() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return AvailableSizes(c.products)
}

// FilterBySize keeps products that offer size at all, sold out or not. An empty size
// keeps everything.
func FilterBySize(products []model.Product, size string) []model.Product {
	out := make([]model.Product, 0, len(products))
	for _, p := range products {
		if size == "" || p.HasSize(size) {
			out = append(out, p)
		}
	}
	return out
}

// AvailableSizes returns the union of size keys, numeric sizes first in numeric order and
// any other labels after them in lexicographic order.
func AvailableSizes(products []model.Product) []string {
	set := make(map[string]struct{})
	for _, p := range products {
		for size := range p.Inventory {
			set[size] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for size := range set {
		out = append(out, size)
	}
	sort.Slice(out, func(i, j int) bool {
		a, okA := sizeNumber(out[i])
		b, okB := sizeNumber(out[j])
		switch {
		case okA && okB:
			if a != b {
				return a < b
			}
			return out[i] < out[j]
		case okA:
			return true
		case okB:
			return false
		default:
			return out[i] < out[j]
		}
	})
	return out
}

// sizeNumber parses plain decimal labels such as "42" or "40.5". Anything else, including
// "NaN", "Inf", exponents and hex, sorts as a label.
func sizeNumber(size string) (float64, bool) {
	if size == "" {
		return 0, false
	}
	dots := 0
	for _, r := range size {
		switch {
		case r == '.':
			dots++
		case r < '0' || r > '9':
			return 0, false
		}
	}
	if dots > 1 || size == "." {
		return 0, false
	}
	n, err := strconv.ParseFloat(size, 64)
	return n, err == nil
}
