package devstore

import (
	"github.com/shopspring/decimal"

	"github.com/avelichko/storefront/internal/cart"
)

type Product struct {
	ID          int             `gorm:"primaryKey;autoIncrement" json:"id"`
	Title       string          `gorm:"not null"                 json:"title"`
	Price       decimal.Decimal `gorm:"type:numeric;not null"    json:"price"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Image       string          `json:"image"`
	RatingRate  float64         `json:"-"`
	RatingCount int             `json:"-"`
}

func (p Product) toWire() cart.Product {
	out := cart.Product{
		ID:          p.ID,
		Title:       p.Title,
		Price:       p.Price,
		Description: p.Description,
		Category:    p.Category,
		Image:       p.Image,
	}
	if p.RatingCount > 0 {
		out.Rating = &cart.Rating{Rate: p.RatingRate, Count: p.RatingCount}
	}
	return out
}

type User struct {
	ID           int    `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string `gorm:"unique;not null"          json:"username"`
	PasswordHash string `gorm:"not null"                 json:"-"`
	Role         string `gorm:"not null"                 json:"role"`
}

// Cart is one row per user: the line list as JSON plus a version the store
// bumps on every write. The version travels to clients as the record's
// opaque revision marker.
type Cart struct {
	UserID   int    `gorm:"primaryKey"`
	Lines    string `gorm:"not null"`
	Revision int    `gorm:"not null"`
}
