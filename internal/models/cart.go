package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartItem is one (product, quantity, price snapshot) line of a cart.
type CartItem struct {
	ID        uint            `json:"-" gorm:"primaryKey"`
	CartID    string          `json:"-" gorm:"type:varchar(36);not null;uniqueIndex:idx_cart_product"`
	ProductID string          `json:"productId" gorm:"type:varchar(36);not null;uniqueIndex:idx_cart_product"`
	Product   *Product        `json:"product,omitempty" gorm:"foreignKey:ProductID"`
	Quantity  int             `json:"quantity" gorm:"not null"`
	Price     decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null"` // captured when the line was added
}

// Subtotal is quantity times the snapshot price.
func (i CartItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is the per-user shopping cart. There is at most one cart per user.
type Cart struct {
	ID         string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID     string          `json:"userId" gorm:"type:varchar(36);not null;uniqueIndex"`
	Items      []CartItem      `json:"items" gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	TotalPrice decimal.Decimal `json:"totalPrice" gorm:"type:decimal(12,2);not null"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// FindItem returns the index of the line for productID, or -1.
func (c *Cart) FindItem(productID string) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// Recalculate sets TotalPrice from each line's own snapshot price.
func (c *Cart) Recalculate() {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Subtotal())
	}
	c.TotalPrice = total
}

// Empty drops every line and zeroes the total.
func (c *Cart) Empty() {
	c.Items = []CartItem{}
	c.TotalPrice = decimal.Zero
}
