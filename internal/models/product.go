package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Amounts go over the wire as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// Category groups products in the catalog.
type Category string

const (
	CategoryFlowers Category = "flowers"
	CategoryPaints  Category = "paints"
)

// Product represents a sellable item in the store.
// Products are never hard-deleted; IsActive=false hides them from the catalog.
type Product struct {
	ID          string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name        string          `json:"name" gorm:"type:varchar(100);not null" validate:"required,min=3,max=100"`
	Description string          `json:"description" gorm:"type:text" validate:"omitempty,max=2000"`
	Price       decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null" validate:"gt=0"`
	Stock       int             `json:"stock" gorm:"not null" validate:"gte=0"`
	Category    Category        `json:"category" gorm:"type:varchar(20);index" validate:"required,oneof=flowers paints"`
	Images      []string        `json:"images" gorm:"type:text;serializer:json" validate:"omitempty,dive,required"`
	Featured    bool            `json:"featured" gorm:"index"`
	IsActive    bool            `json:"isActive" gorm:"index"`
	Rating      float64         `json:"rating" validate:"gte=0,lte=5"`
	CreatedAt   time.Time       `json:"createdAt" gorm:"index"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// FirstImage returns the cover image, or an empty string.
func (p *Product) FirstImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}
