// Package backend is the port to the external data store that owns product inventory and
// the waitlist. The storefront only reads products and inserts waitlist rows.
package backend

import (
	"context"
	"errors"

	"github.com/fairyhunter13/sneaker-drop-storefront/internal/model"
)

// ErrUnavailable marks failures talking to the external store.
var ErrUnavailable = errors.New("backend unavailable")

// Store is the external products/waitlist service.
type Store interface {
	// ListProducts returns products ordered by id ascending starting at page.Offset.
	// A non-positive page.Limit returns every remaining row. total is the exact row count
	// of the products table.
	ListProducts(ctx context.Context, page model.Page) (products []model.Product, total int, err error)
	// InsertWaitlist writes one waitlist row.
	InsertWaitlist(ctx context.Context, entry model.WaitlistEntry) error
	Ping(ctx context.Context) error
	Close() error
}
