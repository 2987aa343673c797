package cart

import (
	"MiniCart/internal/catalog"
	"MiniCart/internal/order"
)

// ProductView is one card of the product grid. InCart selects the quantity
// stepper over the add-to-cart button.
type ProductView struct {
	catalog.Product
	Price  string `json:"price"`
	InCart bool   `json:"in_cart"`
}

type Line struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Qty       int    `json:"qty"`
	Price     string `json:"price"`
	LineTotal string `json:"line_total"`
}

type View struct {
	Lines      []Line `json:"lines"`
	ItemCount  int    `json:"item_count"`
	TotalCents int64  `json:"total_cents"`
	Total      string `json:"total"`
}

func (v View) Empty() bool { return len(v.Lines) == 0 }

type OrderLine struct {
	order.Line
	Price     string `json:"price"`
	LineTotal string `json:"line_total"`
}

type OrderView struct {
	ID        string      `json:"id"`
	Lines     []OrderLine `json:"lines"`
	ItemCount int         `json:"item_count"`
	Total     string      `json:"total"`
}

type PageView struct {
	Products []ProductView `json:"products"`
	Cart     View          `json:"cart"`
	Order    *OrderView    `json:"order,omitempty"`
}

func NewProductView(p catalog.Product) ProductView {
	return ProductView{
		Product: p,
		Price:   catalog.FormatCents(p.PriceCents),
		InCart:  p.InCart(),
	}
}

func cartView(products []catalog.Product) View {
	v := View{Lines: []Line{}}
	for _, p := range products {
		if !p.InCart() {
			continue
		}
		line := p.LineCents()
		v.Lines = append(v.Lines, Line{
			ID:        p.ID,
			Name:      p.Name,
			Qty:       p.ItemsSelected,
			Price:     catalog.FormatCents(p.PriceCents),
			LineTotal: catalog.FormatCents(line),
		})
		v.ItemCount += p.ItemsSelected
		v.TotalCents += line
	}
	v.Total = catalog.FormatCents(v.TotalCents)
	return v
}

func NewOrderView(s order.Summary) *OrderView {
	v := &OrderView{
		ID:        s.ID,
		Lines:     make([]OrderLine, 0, len(s.Lines)),
		ItemCount: s.ItemCount,
		Total:     catalog.FormatCents(s.TotalCents),
	}
	for _, l := range s.Lines {
		v.Lines = append(v.Lines, OrderLine{
			Line:      l,
			Price:     catalog.FormatCents(l.PriceCents),
			LineTotal: catalog.FormatCents(l.LineCents),
		})
	}
	return v
}
