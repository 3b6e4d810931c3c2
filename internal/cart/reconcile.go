package cart

import "github.com/shopspring/decimal"

// Reconcile joins a cart record against a catalog snapshot and produces the
// enriched view. Lines whose product id is missing from the catalog are
// dropped (catalog lag or a deleted product) and reported in the second
// return value so callers can log them; record order is preserved for the
// rest. Pure function: same inputs, same view.
func Reconcile(catalog *Catalog, rec Record) (View, []int) {
	view := View{Total: decimal.Zero}
	var dropped []int

	for _, ln := range rec.Lines {
		p, ok := catalog.Lookup(ln.ProductID)
		if !ok {
			dropped = append(dropped, ln.ProductID)
			continue
		}
		subtotal := p.Price.Mul(decimal.NewFromInt(int64(ln.Quantity))).Round(2)
		view.Lines = append(view.Lines, LineView{
			ProductID: p.ID,
			Title:     p.Title,
			Price:     p.Price,
			Image:     p.Image,
			Quantity:  ln.Quantity,
			Subtotal:  subtotal,
		})
		view.Total = view.Total.Add(subtotal)
	}

	view.Total = view.Total.Round(2)
	return view, dropped
}
