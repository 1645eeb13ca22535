package inventory

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/sneaker-drop-storefront/internal/model"
)

func TestDeriveNoSelection(t *testing.T) {
	v := Derive(model.Inventory{"41": 3, "40": 0}, "")
	if v.GloballySoldOut {
		t.Fatalf("expected stock available")
	}
	if v.TotalStock != 3 {
		t.Fatalf("expected total 3, got %d", v.TotalStock)
	}
	if v.SelectionSoldOut {
		t.Fatalf("no selection must not be sold out while stock exists")
	}
	if v.StockLabel != "¡Quedan 3 pares!" {
		t.Fatalf("unexpected label %q", v.StockLabel)
	}
	if diff := cmp.Diff([]string{"40", "41"}, v.AvailableSizes); diff != "" {
		t.Fatalf("sizes mismatch (-want +got):\n%s", diff)
	}
}

func TestDeriveSelection(t *testing.T) {
	inv := model.Inventory{"40": 0, "41": 3, "42": 1}
	cases := []struct {
		name     string
		selected string
		soldOut  bool
		stock    int
		label    string
	}{
		{"sold out size", "40", true, 0, SoldOutLabel},
		{"in stock size", "41", false, 3, "¡Quedan 3 pares!"},
		{"last pair", "42", false, 1, "¡Solo queda 1 par!"},
		{"size not offered", "45", true, 0, SoldOutLabel},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := Derive(inv, tc.selected)
			if v.SelectionSoldOut != tc.soldOut {
				t.Fatalf("SelectionSoldOut=%v want %v", v.SelectionSoldOut, tc.soldOut)
			}
			if v.SelectedStock != tc.stock {
				t.Fatalf("SelectedStock=%d want %d", v.SelectedStock, tc.stock)
			}
			if v.StockLabel != tc.label {
				t.Fatalf("StockLabel=%q want %q", v.StockLabel, tc.label)
			}
			if v.GloballySoldOut {
				t.Fatalf("inventory has stock")
			}
		})
	}
}

func TestDeriveEmptyInventory(t *testing.T) {
	for _, sel := range []string{"", "40"} {
		for _, inv := range []model.Inventory{{}, nil} {
			v := Derive(inv, sel)
			if !v.GloballySoldOut || !v.SelectionSoldOut {
				t.Fatalf("empty inventory must be sold out (selection %q)", sel)
			}
			if v.StockLabel != SoldOutLabel {
				t.Fatalf("unexpected label %q", v.StockLabel)
			}
			if len(v.AvailableSizes) != 0 {
				t.Fatalf("expected no sizes")
			}
		}
	}
}

func TestDeriveSingleTotal(t *testing.T) {
	v := Derive(model.Inventory{"39": 1, "40": 0}, "")
	if v.StockLabel != "¡Solo queda 1 par!" {
		t.Fatalf("unexpected label %q", v.StockLabel)
	}
}

func TestDiscount(t *testing.T) {
	retail := func(s string) decimal.NullDecimal {
		return decimal.NewNullDecimal(decimal.RequireFromString(s))
	}
	cases := []struct {
		name   string
		price  string
		retail decimal.NullDecimal
		want   int
	}{
		{"twenty off", "80", retail("100"), 20},
		{"no discount", "80", retail("80"), 0},
		{"retail below price", "90", retail("80"), 0},
		{"no retail", "80", decimal.NullDecimal{}, 0},
		{"rounds half up", "179", retail("200"), 11},
		{"rounds down", "66.67", retail("100"), 33},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Discount(decimal.RequireFromString(tc.price), tc.retail)
			if got != tc.want {
				t.Fatalf("Discount=%d want %d", got, tc.want)
			}
		})
	}
}
