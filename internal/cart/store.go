// Package cart implements the shopper's cart: line items bounded by a per-size stock
// snapshot, plus the cart panel visibility flag.
package cart

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/sneaker-drop-storefront/internal/model"
)

// ErrClosed is returned by WaitForChange once the store has been closed.
var ErrClosed = errors.New("cart closed")

// Candidate is what a product card hands to AddItem.
type Candidate struct {
	ProductID int64
	Size      string
	Name      string
	Price     decimal.Decimal
	ImageURL  string
	MaxStock  int
}

// Snapshot is an immutable view of the cart at a given version.
type Snapshot struct {
	Version   uint64           `json:"version"`
	Items     []model.LineItem `json:"items"`
	Open      bool             `json:"open"`
	ItemCount int              `json:"item_count"`
	Total     decimal.Decimal  `json:"total"`
}

// Store serializes every cart transition. Each transition is computed from the
// state left by the previous one.
type Store struct {
	mu      sync.Mutex
	items   []model.LineItem
	open    bool
	version uint64
	closed  bool

	subs    map[int]chan Snapshot
	nextSub int
}

// New returns an empty, closed-panel cart.
func New() *Store {
	return &Store{subs: make(map[int]chan Snapshot)}
}

func (s *Store) indexOf(productID int64, size string) int {
	for i := range s.items {
		if s.items[i].Same(productID, size) {
			return i
		}
	}
	return -1
}

// AddItem adds one unit of the candidate. An existing line item grows by one and takes the
// candidate's MaxStock; growth past MaxStock is silently rejected. It reports whether the
// cart changed. The cart panel is not opened.
func (s *Store) AddItem(c Candidate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(c.ProductID, c.Size); i >= 0 {
		qty := s.items[i].Quantity + 1
		if qty > c.MaxStock {
			return false
		}
		s.items[i].Quantity = qty
		s.items[i].MaxStock = c.MaxStock
		s.commitLocked()
		return true
	}
	if c.MaxStock < 1 {
		return false
	}
	s.items = append(s.items, model.LineItem{
		ProductID: c.ProductID,
		Size:      c.Size,
		Name:      c.Name,
		Price:     c.Price,
		ImageURL:  c.ImageURL,
		Quantity:  1,
		MaxStock:  c.MaxStock,
	})
	s.commitLocked()
	return true
}

// RemoveItem deletes the line item for (productID, size) if present.
func (s *Store) RemoveItem(productID int64, size string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(productID, size)
	if i < 0 {
		return false
	}
	s.items = append(s.items[:i:i], s.items[i+1:]...)
	s.commitLocked()
	return true
}

// IncrementItem adds one unit while the quantity is below MaxStock.
func (s *Store) IncrementItem(productID int64, size string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(productID, size)
	if i < 0 || s.items[i].Quantity >= s.items[i].MaxStock {
		return false
	}
	s.items[i].Quantity++
	s.commitLocked()
	return true
}

// DecrementItem removes one unit but never goes below 1; use RemoveItem to delete.
func (s *Store) DecrementItem(productID int64, size string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(productID, size)
	if i < 0 || s.items[i].Quantity <= 1 {
		return false
	}
	s.items[i].Quantity--
	s.commitLocked()
	return true
}

// ToggleCart flips the panel visibility.
func (s *Store) ToggleCart() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = !s.open
	s.commitLocked()
	return s.open
}

// ClearCart empties the line items and leaves visibility alone.
func (s *Store) ClearCart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.items) == 0 {
		return
	}
	s.items = nil
	s.commitLocked()
}

// Find returns the line item for (productID, size).
func (s *Store) Find(productID int64, size string) (model.LineItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(productID, size); i >= 0 {
		return s.items[i], true
	}
	return model.LineItem{}, false
}

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	items := make([]model.LineItem, len(s.items))
	copy(items, s.items)
	count := 0
	total := decimal.Zero
	for _, it := range items {
		count += it.Quantity
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return Snapshot{
		Version:   s.version,
		Items:     items,
		Open:      s.open,
		ItemCount: count,
		Total:     total,
	}
}

// commitLocked bumps the version and hands the new snapshot to every subscriber.
// Slow subscribers only ever see the latest snapshot.
func (s *Store) commitLocked() {
	s.version++
	if len(s.subs) == 0 {
		return
	}
	snap := s.snapshotLocked()
	for _, ch := range s.subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

// Subscribe returns a channel that receives the latest snapshot after each change,
// and a func to stop receiving. The channel is closed on cancel or Close.
func (s *Store) Subscribe() (<-chan Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan Snapshot, 1)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
}

// WaitForChange blocks until the cart version is greater than after, ctx is done,
// or the store is closed.
func (s *Store) WaitForChange(ctx context.Context, after uint64) (Snapshot, error) {
	ch, cancel := s.Subscribe()
	defer cancel()
	if snap := s.Snapshot(); snap.Version > after {
		return snap, nil
	}
	for {
		select {
		case snap, ok := <-ch:
			if !ok {
				return s.Snapshot(), ErrClosed
			}
			if snap.Version > after {
				return snap, nil
			}
		case <-ctx.Done():
			return s.Snapshot(), ctx.Err()
		}
	}
}

// Close releases every subscriber.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}
