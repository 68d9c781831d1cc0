package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the fulfillment state of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// Cancellable reports whether an order in status s may still be cancelled.
func (s OrderStatus) Cancellable() bool {
	return s == OrderStatusPending || s == OrderStatusProcessing
}

// PaymentStatus tracks the external payment of an order.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
)

// ShippingAddress is where the order is delivered.
type ShippingAddress struct {
	FullName   string `json:"fullName" gorm:"type:varchar(150)" validate:"required,max=150"`
	Street     string `json:"street" gorm:"type:varchar(255)" validate:"required,max=255"`
	City       string `json:"city" gorm:"type:varchar(100)" validate:"required,max=100"`
	State      string `json:"state" gorm:"type:varchar(100)" validate:"omitempty,max=100"`
	PostalCode string `json:"postalCode" gorm:"type:varchar(20)" validate:"required,max=20"`
	Country    string `json:"country" gorm:"type:varchar(100)" validate:"required,max=100"`
	Phone      string `json:"phone" gorm:"type:varchar(30)" validate:"omitempty,max=30"`
}

// PaymentInfo links an order to the processor's payment intent.
type PaymentInfo struct {
	PaymentIntentID string        `json:"paymentIntentId" gorm:"type:varchar(255);index"`
	PaymentStatus   PaymentStatus `json:"paymentStatus" gorm:"type:varchar(20);not null"`
}

// OrderItem is an immutable snapshot of a purchased line. Later catalog
// edits do not change it.
type OrderItem struct {
	ID        uint            `json:"-" gorm:"primaryKey"`
	OrderID   string          `json:"-" gorm:"type:varchar(36);index;not null"`
	ProductID string          `json:"productId" gorm:"type:varchar(36);not null"`
	Product   *Product        `json:"product,omitempty" gorm:"foreignKey:ProductID"`
	Name      string          `json:"name" gorm:"type:varchar(100)"`
	Quantity  int             `json:"quantity" gorm:"not null"`
	Price     decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null"`
	Image     string          `json:"image"`
}

// StatusEntry is one row of the append-only status history.
type StatusEntry struct {
	ID        uint        `json:"-" gorm:"primaryKey"`
	OrderID   string      `json:"-" gorm:"type:varchar(36);index;not null"`
	Status    OrderStatus `json:"status" gorm:"type:varchar(20);not null"`
	Note      string      `json:"note"`
	Timestamp time.Time   `json:"timestamp"`
}

// Order represents a customer order.
type Order struct {
	ID              string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID          string          `json:"userId" gorm:"type:varchar(36);index;not null"`
	Items           []OrderItem     `json:"items" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	TotalAmount     decimal.Decimal `json:"totalAmount" gorm:"type:decimal(12,2);not null"`
	ShippingAddress ShippingAddress `json:"shippingAddress" gorm:"embedded;embeddedPrefix:shipping_"`
	PaymentInfo     PaymentInfo     `json:"paymentInfo" gorm:"embedded"`
	OrderStatus     OrderStatus     `json:"orderStatus" gorm:"type:varchar(20);index;not null"`
	TrackingNumber  string          `json:"trackingNumber,omitempty" gorm:"type:varchar(100)"`
	DeliveryDate    *time.Time      `json:"deliveryDate,omitempty"`
	StatusHistory   []StatusEntry   `json:"statusHistory" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time       `json:"createdAt" gorm:"index"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}
