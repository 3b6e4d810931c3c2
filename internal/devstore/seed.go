package devstore

import (
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Seed fills an empty store with a small sample catalog so a fresh dev
// environment has something to browse.
func Seed(db *gorm.DB) error {
	var count int64
	if err := db.Model(&Product{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count products: %w", err)
	}
	if count > 0 {
		return nil
	}

	samples := []Product{
		{
			Title:       "Backpack, fits 15 inch laptops",
			Price:       decimal.RequireFromString("109.95"),
			Description: "Padded sleeve, water resistant shell.",
			Category:    "bags",
			Image:       "/img/backpack.jpg",
			RatingRate:  3.9,
			RatingCount: 120,
		},
		{
			Title:       "Slim fit t-shirt",
			Price:       decimal.RequireFromString("22.30"),
			Description: "Lightweight cotton, casual fit.",
			Category:    "clothing",
			Image:       "/img/tshirt.jpg",
			RatingRate:  4.1,
			RatingCount: 259,
		},
		{
			Title:       "Cotton jacket",
			Price:       decimal.RequireFromString("55.99"),
			Description: "Good for spring, autumn and winter.",
			Category:    "clothing",
			Image:       "/img/jacket.jpg",
			RatingRate:  4.7,
			RatingCount: 500,
		},
		{
			Title:       "1TB portable external hard drive",
			Price:       decimal.RequireFromString("64.00"),
			Description: "USB 3.0, compatible with most systems.",
			Category:    "electronics",
			Image:       "/img/drive.jpg",
			RatingRate:  3.3,
			RatingCount: 203,
		},
	}
	return db.Create(&samples).Error
}
