package redisstore

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/sneaker-drop-storefront/internal/model"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	prefix := "test-" + uuid.NewString()
	s, err := Open(ctx, addr, prefix)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		s.client.Del(context.Background(), s.productsKey(), s.idsKey(), s.waitlistKey())
		s.Close()
	})
	return s
}

func TestListProductsOrderedByID(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	for _, id := range []int64{10, 2, 7} {
		p := model.Product{
			ID:        id,
			Name:      fmt.Sprintf("model %d", id),
			Price:     decimal.NewFromInt(100),
			Inventory: model.Inventory{"41": 2},
		}
		if err := s.Upsert(ctx, p); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	got, total, err := s.ListProducts(ctx, model.Page{Offset: 0, Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 || len(got) != 2 || got[0].ID != 2 || got[1].ID != 7 {
		t.Fatalf("unexpected page total=%d %+v", total, got)
	}
	rest, _, _ := s.ListProducts(ctx, model.Page{Offset: 2})
	if len(rest) != 1 || rest[0].ID != 10 || rest[0].Inventory["41"] != 2 {
		t.Fatalf("unexpected tail %+v", rest)
	}
}

func TestInsertWaitlistAppends(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	phone := "600000000"
	for _, e := range []model.WaitlistEntry{
		{ProductID: 1, Size: "40", Email: "a@b.co"},
		{ProductID: 1, Size: "41", Email: "c@d.co", Phone: &phone},
	} {
		if err := s.InsertWaitlist(ctx, e); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	if n := s.client.LLen(ctx, s.waitlistKey()).Val(); n != 2 {
		t.Fatalf("expected 2 rows, got %d", n)
	}
}
