// Package memory is an in-process implementation of the external store, used for local
// runs and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/fairyhunter13/sneaker-drop-storefront/internal/model"
)

type Store struct {
	mu       sync.RWMutex
	products map[int64]model.Product
	ids      []int64
	waitlist []model.WaitlistEntry
}

func New() *Store {
	return &Store{products: make(map[int64]model.Product)}
}

// Upsert inserts or replaces a product row.
func (s *Store) Upsert(p model.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[p.ID]; !ok {
		s.ids = append(s.ids, p.ID)
		sort.Slice(s.ids, func(i, j int) bool { return s.ids[i] < s.ids[j] })
	}
	s.products[p.ID] = cloneProduct(p)
}

// SetStock updates the quantity of one size, adding the size when it is not offered yet.
func (s *Store) SetStock(id int64, size string, qty int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return false
	}
	p = cloneProduct(p)
	if p.Inventory == nil {
		p.Inventory = model.Inventory{}
	}
	p.Inventory[size] = qty
	s.products[id] = p
	return true
}

func (s *Store) ListProducts(ctx context.Context, page model.Page) ([]model.Product, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := len(s.ids)
	start := page.Offset
	if start < 0 {
		start = 0
	}
	if start > total {
		start = total
	}
	stop := total
	if page.Limit > 0 && start+page.Limit < total {
		stop = start + page.Limit
	}
	out := make([]model.Product, 0, stop-start)
	for _, id := range s.ids[start:stop] {
		out = append(out, cloneProduct(s.products[id]))
	}
	return out, total, nil
}

func (s *Store) InsertWaitlist(ctx context.Context, entry model.WaitlistEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waitlist = append(s.waitlist, entry)
	return nil
}

// Waitlist returns the inserted waitlist rows in insertion order.
func (s *Store) Waitlist() []model.WaitlistEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.WaitlistEntry, len(s.waitlist))
	copy(out, s.waitlist)
	return out
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) Close() error { return nil }

func cloneProduct(p model.Product) model.Product {
	if p.Inventory != nil {
		inv := make(model.Inventory, len(p.Inventory))
		for k, v := range p.Inventory {
			inv[k] = v
		}
		p.Inventory = inv
	}
	return p
}
