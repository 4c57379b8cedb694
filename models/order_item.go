package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderItem is a named, quantified product line within an order. Its delivery
// flag is toggled independently of the order status and of other items.
type OrderItem struct {
	ID          string    `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID     string    `gorm:"type:uuid;not null;index" json:"-"`
	Name        string    `gorm:"not null" json:"name"`
	Quantity    int       `gorm:"not null" json:"quantity"`
	IsDelivered bool      `gorm:"not null;default:false" json:"isDelivered"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`
}

// TableName specifies the table name for the OrderItem model
func (OrderItem) TableName() string {
	return "order_items"
}

// BeforeCreate assigns the surrogate id
func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}
