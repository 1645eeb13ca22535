package storefront

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/sneaker-drop-storefront/internal/cart"
	"github.com/fairyhunter13/sneaker-drop-storefront/internal/model"
)

const QuickAddToastMessage = "¡AGREGADO! 🔥"

// upsellCache holds the raw candidates fetched for one trigger size.
type upsellCache struct {
	size string
	rows []model.Product
}

// Recommendation is one upsell tile.
type Recommendation struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	ImageURL string          `json:"image_url"`
	Stock    int             `json:"stock"`
}

// UpsellView lists recommendations for the size of the last cart line.
type UpsellView struct {
	Size            string           `json:"size"`
	Recommendations []Recommendation `json:"recommendations"`
}

// NormalizeSize strips an optional "EU" prefix and at most one whitespace rune after it.
func NormalizeSize(size string) string {
	rest, ok := strings.CutPrefix(size, "EU")
	if !ok {
		return size
	}
	if r, n := utf8.DecodeRuneInString(rest); n > 0 && unicode.IsSpace(r) {
		return rest[n:]
	}
	return rest
}

// stockFor looks the size up by its normalized label first, then verbatim.
func stockFor(inv model.Inventory, size string) int {
	if n := inv[NormalizeSize(size)]; n > 0 {
		return n
	}
	return inv[size]
}

// Recommend filters raw candidates: not already in the cart by product id, in stock for
// size, at most limit entries.
func Recommend(raw []model.Product, items []model.LineItem, size string, limit int) []Recommendation {
	exclude := make(map[int64]struct{}, len(items))
	for _, it := range items {
		exclude[it.ProductID] = struct{}{}
	}
	out := make([]Recommendation, 0)
	for _, p := range raw {
		if limit > 0 && len(out) >= limit {
			break
		}
		if _, in := exclude[p.ID]; in {
			continue
		}
		stock := stockFor(p.Inventory, size)
		if stock <= 0 {
			continue
		}
		out = append(out, Recommendation{ID: p.ID, Name: p.Name, Price: p.Price, ImageURL: p.ImageURL, Stock: stock})
	}
	return out
}

// candidates returns raw upsell rows for size, fetching only when the trigger size
// changed since the last fetch.
func (s *Session) candidates(ctx context.Context, size string) ([]model.Product, error) {
	s.mu.Lock()
	if s.upsell.size == size && s.upsell.rows != nil {
		rows := s.upsell.rows
		s.mu.Unlock()
		return rows, nil
	}
	s.mu.Unlock()

	rows, _, err := s.deps.Store.ListProducts(ctx, model.Page{Limit: s.deps.Cfg.UpsellFetchLimit})
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []model.Product{}
	}
	s.mu.Lock()
	if !s.closed {
		s.upsell = upsellCache{size: size, rows: rows}
	}
	s.mu.Unlock()
	return rows, nil
}

// Upsell returns recommendations for the last line item's size. An empty cart yields an
// empty view.
func (s *Session) Upsell(ctx context.Context) (UpsellView, error) {
	snap := s.Cart.Snapshot()
	if len(snap.Items) == 0 {
		return UpsellView{Recommendations: []Recommendation{}}, nil
	}
	size := snap.Items[len(snap.Items)-1].Size
	raw, err := s.candidates(ctx, size)
	if err != nil {
		return UpsellView{Size: size, Recommendations: []Recommendation{}}, err
	}
	return UpsellView{Size: size, Recommendations: Recommend(raw, snap.Items, size, s.deps.Cfg.UpsellMax)}, nil
}

// QuickAdd adds one pair of a recommended product in the trigger size.
func (s *Session) QuickAdd(ctx context.Context, productID int64) (bool, error) {
	view, err := s.Upsell(ctx)
	if err != nil {
		return false, err
	}
	for _, r := range view.Recommendations {
		if r.ID != productID {
			continue
		}
		s.Toast.Show(QuickAddToastMessage, fmt.Sprintf("%s (Talla %s)", r.Name, view.Size))
		return s.Cart.AddItem(cart.Candidate{
			ProductID: r.ID,
			Size:      view.Size,
			Name:      r.Name,
			Price:     r.Price,
			ImageURL:  r.ImageURL,
			MaxStock:  r.Stock,
		}), nil
	}
	return false, ErrProductNotFound
}
