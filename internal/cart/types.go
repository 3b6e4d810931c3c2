package cart

import "github.com/shopspring/decimal"

// Product is a single catalog entry. Products are immutable for the
// lifetime of the catalog snapshot that carries them.
type Product struct {
	ID          int             `json:"id"`
	Title       string          `json:"title"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Image       string          `json:"image"`
	Rating      *Rating         `json:"rating,omitempty"`
}

type Rating struct {
	Rate  float64 `json:"rate"`
	Count int     `json:"count"`
}

// Catalog is a snapshot of the full product set with an id index for joins.
type Catalog struct {
	Products []Product
	byID     map[int]int
}

func NewCatalog(products []Product) *Catalog {
	c := &Catalog{
		Products: products,
		byID:     make(map[int]int, len(products)),
	}
	for i, p := range products {
		c.byID[p.ID] = i
	}
	return c
}

func (c *Catalog) Lookup(productID int) (Product, bool) {
	if c == nil {
		return Product{}, false
	}
	i, ok := c.byID[productID]
	if !ok {
		return Product{}, false
	}
	return c.Products[i], true
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Products)
}

// Line is one persisted cart entry. Product ids are unique within a record:
// a repeated add bumps the quantity of the existing line.
type Line struct {
	ProductID int `json:"product_id"`
	Quantity  int `json:"quantity"`
}

// Record is the server-persisted cart for one user. Revision is opaque to
// the client; the store bumps it on every write.
type Record struct {
	UserID   int    `json:"user_id"`
	Lines    []Line `json:"lines"`
	Revision string `json:"revision"`
}

// Clone returns a deep copy so callers can mutate lines without aliasing
// the cached record.
func (r Record) Clone() Record {
	out := r
	out.Lines = make([]Line, len(r.Lines))
	copy(out.Lines, r.Lines)
	return out
}

// LineView is a cart line joined with its product, ready for display.
type LineView struct {
	ProductID int             `json:"product_id"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// View is the enriched cart: joined lines in record order plus the total.
// Derived only, never persisted.
type View struct {
	Lines []LineView      `json:"lines"`
	Total decimal.Decimal `json:"total"`
}
