// Package inventory derives stock availability and labels from a per-size inventory.
package inventory

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/sneaker-drop-storefront/internal/model"
)

// SoldOutLabel is shown when nothing can be bought for the current selection.
const SoldOutLabel = "AGOTADO"

// View is the availability derived from an inventory and an optional selected size.
type View struct {
	AvailableSizes   []string `json:"available_sizes"`
	TotalStock       int      `json:"total_stock"`
	SelectedSize     string   `json:"selected_size,omitempty"`
	SelectedStock    int      `json:"selected_stock"`
	GloballySoldOut  bool     `json:"globally_sold_out"`
	SelectionSoldOut bool     `json:"selection_sold_out"`
	StockLabel       string   `json:"stock_label"`
}

// Derive computes the availability view. An empty selected means no size is chosen.
func Derive(inv model.Inventory, selected string) View {
	sizes := make([]string, 0, len(inv))
	total := 0
	for size, qty := range inv {
		sizes = append(sizes, size)
		total += qty
	}
	sort.Strings(sizes)

	v := View{
		AvailableSizes:  sizes,
		TotalStock:      total,
		SelectedSize:    selected,
		SelectedStock:   SizeStock(inv, selected),
		GloballySoldOut: total == 0,
	}
	v.SelectionSoldOut = v.GloballySoldOut || (selected != "" && v.SelectedStock == 0)
	v.StockLabel = stockLabel(v)
	return v
}

// SizeStock returns the stock for size, or 0 when the size is empty or not offered.
func SizeStock(inv model.Inventory, size string) int {
	if size == "" {
		return 0
	}
	return inv[size]
}

func stockLabel(v View) string {
	if v.GloballySoldOut {
		return SoldOutLabel
	}
	n := v.TotalStock
	if v.SelectedSize != "" {
		if v.SelectedStock == 0 {
			return SoldOutLabel
		}
		n = v.SelectedStock
	}
	if n == 1 {
		return "¡Solo queda 1 par!"
	}
	return fmt.Sprintf("¡Quedan %d pares!", n)
}

var hundred = decimal.NewFromInt(100)

// Discount returns the whole-number percentage off retail, or 0 when there is no discount.
func Discount(price decimal.Decimal, retail decimal.NullDecimal) int {
	if !retail.Valid || !retail.Decimal.GreaterThan(price) {
		return 0
	}
	pct := retail.Decimal.Sub(price).Div(retail.Decimal).Mul(hundred)
	return int(pct.Round(0).IntPart())
}
