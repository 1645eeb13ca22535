package storefront

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/fairyhunter13/sneaker-drop-storefront/internal/cart"
	"github.com/fairyhunter13/sneaker-drop-storefront/internal/inventory"
	"github.com/fairyhunter13/sneaker-drop-storefront/internal/model"
	"github.com/fairyhunter13/sneaker-drop-storefront/internal/obs"
	"github.com/fairyhunter13/sneaker-drop-storefront/internal/waitlist"
)

const (
	AddedToastMessage = "¡ASEGURADO! 🔥"
	EmptyCatalogMsg   = "no active drops"
)

// Card is everything a product card renders.
type Card struct {
	ID          int64               `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Price       decimal.Decimal     `json:"price"`
	RetailPrice decimal.NullDecimal `json:"retail_price"`
	Discount    int                 `json:"discount_percent"`
	ImageURL    string              `json:"image_url"`
	Inventory   model.Inventory     `json:"inventory"`
	inventory.View
}

// CatalogView is the product grid with its filter bar.
type CatalogView struct {
	Cards      []Card   `json:"cards"`
	Sizes      []string `json:"sizes"`
	SizeFilter string   `json:"size_filter"`
	HasMore    bool     `json:"has_more"`
	Total      int      `json:"total"`
	Message    string   `json:"message,omitempty"`
}

func (s *Session) card(p model.Product, selected string) Card {
	return Card{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		RetailPrice: p.RetailPrice,
		Discount:    inventory.Discount(p.Price, p.RetailPrice),
		ImageURL:    p.ImageURL,
		Inventory:   p.Inventory,
		View:        inventory.Derive(p.Inventory, selected),
	}
}

// Card returns the card of one loaded product.
func (s *Session) Card(productID int64) (Card, error) {
	p, ok := s.Catalog.Product(productID)
	if !ok {
		return Card{}, ErrProductNotFound
	}
	return s.card(p, s.SelectedSize(productID)), nil
}

// CatalogView renders the filtered grid.
func (s *Session) CatalogView() CatalogView {
	filter := s.Catalog.SizeFilter()
	products := s.Catalog.Filtered()
	v := CatalogView{
		Cards:      make([]Card, 0, len(products)),
		Sizes:      s.Catalog.AvailableSizes(),
		SizeFilter: filter,
		HasMore:    s.Catalog.HasMore(),
		Total:      s.Catalog.Total(),
	}
	s.mu.Lock()
	for _, p := range products {
		v.Cards = append(v.Cards, s.card(p, s.selectedLocked(p)))
	}
	s.mu.Unlock()
	switch {
	case len(s.Catalog.Products()) == 0:
		v.Message = EmptyCatalogMsg
	case len(v.Cards) == 0 && filter != "":
		v.Message = fmt.Sprintf("no matches for size %s", filter)
	}
	return v
}

// LoadMore appends the next catalog page.
func (s *Session) LoadMore(ctx context.Context) error {
	return s.Catalog.LoadMore(ctx)
}

type Outcome string

const (
	OutcomeAdded    Outcome = "added"
	OutcomeWaitlist Outcome = "waitlist"
)

// ActionResult reports what the card's main button did. Changed is false when the cart
// already held the whole available stock of that size.
type ActionResult struct {
	Outcome  Outcome        `json:"outcome"`
	Changed  bool           `json:"changed"`
	Waitlist *waitlist.View `json:"waitlist,omitempty"`
}

// MainAction runs the product card's main button: it needs a selected size, opens the
// waitlist for a sold-out selection, and otherwise shows the confirmation toast and adds
// one pair to the cart bounded by the selected size's stock.
func (s *Session) MainAction(productID int64) (ActionResult, error) {
	p, ok := s.Catalog.Product(productID)
	if !ok {
		return ActionResult{}, ErrProductNotFound
	}
	size := s.SelectedSize(productID)
	if size == "" {
		return ActionResult{}, ErrSizeRequired
	}
	view := inventory.Derive(p.Inventory, size)
	if view.SelectionSoldOut {
		f := s.OpenWaitlist(p, size)
		fv := f.View()
		return ActionResult{Outcome: OutcomeWaitlist, Waitlist: &fv}, nil
	}

	s.Toast.Show(AddedToastMessage, fmt.Sprintf("Talla %s reservada.", size))
	changed := s.Cart.AddItem(cart.Candidate{
		ProductID: p.ID,
		Size:      size,
		Name:      p.Name,
		Price:     p.Price,
		ImageURL:  p.ImageURL,
		MaxStock:  view.SelectedStock,
	})
	obs.Logger.WithFields(logrus.Fields{
		"session_id": s.ID,
		"product_id": p.ID,
		"size":       size,
		"changed":    changed,
	}).Debug("cart_item_added")
	return ActionResult{Outcome: OutcomeAdded, Changed: changed}, nil
}
