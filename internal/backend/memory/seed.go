package memory

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/sneaker-drop-storefront/internal/model"
)

var demoModels = []struct {
	name   string
	price  string
	retail string
}{
	{"Air Jordan 1 Retro High OG", "189.90", "229.90"},
	{"Nike Dunk Low Panda", "119.00", "139.00"},
	{"Adidas Samba OG", "99.90", ""},
	{"New Balance 550 White Green", "129.00", "150.00"},
	{"Yeezy Boost 350 V2 Onyx", "249.00", "299.00"},
	{"Asics Gel-Kayano 14", "159.00", ""},
	{"Nike Air Max 1 '86", "149.00", "170.00"},
	{"Salomon XT-6", "179.00", ""},
}

// DemoProducts builds n demo sneakers spread across EU sizes 38-45, with some sizes sold
// out and every fifth model fully sold out.
func DemoProducts(n int) []model.Product {
	out := make([]model.Product, 0, n)
	for i := 1; i <= n; i++ {
		m := demoModels[(i-1)%len(demoModels)]
		inv := model.Inventory{}
		for size := 38 + i%3; size <= 45; size += 1 + i%2 {
			qty := (i*size + size) % 6
			if i%5 == 0 {
				qty = 0
			}
			inv[fmt.Sprint(size)] = qty
		}
		p := model.Product{
			ID:          int64(i),
			Name:        fmt.Sprintf("%s #%d", m.name, i),
			Description: "Drop limitado. Un par por talla mientras dure el stock.",
			Price:       decimal.RequireFromString(m.price),
			ImageURL:    fmt.Sprintf("/images/drop-%02d.jpg", i),
			Inventory:   inv,
		}
		if m.retail != "" {
			p.RetailPrice = decimal.NewNullDecimal(decimal.RequireFromString(m.retail))
		}
		out = append(out, p)
	}
	return out
}

// SeedDemo upserts DemoProducts(n) into s.
func SeedDemo(s *Store, n int) {
	for _, p := range DemoProducts(n) {
		s.Upsert(p)
	}
}
