package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/fairyhunter13/sneaker-drop-storefront/internal/model"
)

func ids(ps []model.Product) []int64 {
	out := make([]int64, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.ID)
	}
	return out
}

func TestListProductsOrderedAndPaged(t *testing.T) {
	s := New()
	for _, id := range []int64{5, 1, 3, 2, 4} {
		s.Upsert(model.Product{ID: id, Inventory: model.Inventory{"40": 1}})
	}
	ctx := context.Background()
	got, total, err := s.ListProducts(ctx, model.Page{Offset: 1, Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 5 {
		t.Fatalf("total=%d want 5", total)
	}
	if g := ids(got); len(g) != 2 || g[0] != 2 || g[1] != 3 {
		t.Fatalf("unexpected page %v", g)
	}
	all, _, _ := s.ListProducts(ctx, model.Page{})
	if len(all) != 5 || all[0].ID != 1 || all[4].ID != 5 {
		t.Fatalf("unexpected full list %v", ids(all))
	}
	past, total, _ := s.ListProducts(ctx, model.Page{Offset: 10, Limit: 12})
	if len(past) != 0 || total != 5 {
		t.Fatalf("expected empty page past the end, got %v (total %d)", ids(past), total)
	}
}

func TestListReturnsCopies(t *testing.T) {
	s := New()
	s.Upsert(model.Product{ID: 1, Inventory: model.Inventory{"40": 1}})
	got, _, _ := s.ListProducts(context.Background(), model.Page{})
	got[0].Inventory["40"] = 99
	again, _, _ := s.ListProducts(context.Background(), model.Page{})
	if again[0].Inventory["40"] != 1 {
		t.Fatalf("list aliased stored inventory")
	}
}

func TestSetStock(t *testing.T) {
	s := New()
	if s.SetStock(1, "40", 3) {
		t.Fatalf("unknown product must not be updated")
	}
	s.Upsert(model.Product{ID: 1})
	if !s.SetStock(1, "40", 3) {
		t.Fatalf("expected update")
	}
	got, _, _ := s.ListProducts(context.Background(), model.Page{})
	if got[0].Inventory["40"] != 3 {
		t.Fatalf("unexpected inventory %v", got[0].Inventory)
	}
}

func TestWaitlistConcurrentInserts(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.InsertWaitlist(context.Background(), model.WaitlistEntry{ProductID: 1, Size: "40", Email: "a@b.co"})
		}()
	}
	wg.Wait()
	if n := len(s.Waitlist()); n != 50 {
		t.Fatalf("expected 50 rows, got %d", n)
	}
}

func TestCancelledContext(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := s.ListProducts(ctx, model.Page{}); err == nil {
		t.Fatalf("expected error on cancelled context")
	}
	if err := s.InsertWaitlist(ctx, model.WaitlistEntry{}); err == nil {
		t.Fatalf("expected error on cancelled context")
	}
}

func TestSeedDemo(t *testing.T) {
	s := New()
	SeedDemo(s, 30)
	got, total, _ := s.ListProducts(context.Background(), model.Page{Limit: 12})
	if total != 30 || len(got) != 12 {
		t.Fatalf("unexpected seed size: total=%d page=%d", total, len(got))
	}
	for _, p := range got {
		if len(p.Inventory) == 0 {
			t.Fatalf("product %d has no sizes", p.ID)
		}
	}
}
