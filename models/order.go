package models

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Order statuses. The only legal transitions are pending -> arrived -> delivered.
const (
	StatusPending   = "pending"
	StatusArrived   = "arrived"
	StatusDelivered = "delivered"
)

// Delivery types.
const (
	DeliveryOnSite   = "on-site"
	DeliveryDelivery = "delivery"
)

// Payment states derived from totalAmount/amountPaid, never stored.
const (
	PaymentPaid    = "paid"
	PaymentPartial = "partial"
	PaymentUnpaid  = "unpaid"
	PaymentNone    = "" // orders with no agreed price have no payment state
)

var (
	// ErrInvalidTransition is returned by the guarded lifecycle operations
	// when the order is not in the required status.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidAmount is returned by AddPayment for negative or non-finite amounts.
	ErrInvalidAmount = errors.New("payment amount must be a finite number >= 0")
)

// Order represents a customer pre-order tracked through the pickup/delivery lifecycle
type Order struct {
	ID               string      `gorm:"type:uuid;primaryKey" json:"id"`
	OrderNumber      string      `gorm:"uniqueIndex;not null" json:"orderNumber"` // human-facing display id, e.g. "#1234"
	CustomerName     string      `gorm:"not null" json:"customerName"`
	Status           string      `gorm:"not null;default:'pending'" json:"status"` // pending, arrived, delivered
	EstimatedArrival *string     `json:"estimatedArrival"`                         // free-text hint, never validated
	ArrivedAt        *time.Time  `json:"-"`                                        // set once on pending->arrived
	WaitTime         *int        `json:"waitTime"`                                 // seconds, set once on arrived->delivered
	DeliveryType     string      `gorm:"not null;default:'on-site'" json:"deliveryType"` // on-site, delivery
	Address          *string     `json:"address"`                                  // present iff deliveryType is delivery
	TotalAmount      float64     `gorm:"not null;default:0" json:"totalAmount"`
	AmountPaid       float64     `gorm:"not null;default:0" json:"amountPaid"`
	Items            []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt        time.Time   `json:"-"`
	UpdatedAt        time.Time   `json:"-"`
}

// TableName specifies the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

// BeforeCreate assigns the surrogate id
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}

// MarkArrived transitions the order from pending to arrived at the given time.
// ArrivedAt is set exactly once and never overwritten.
func (o *Order) MarkArrived(now time.Time) error {
	if o.Status != StatusPending {
		return fmt.Errorf("%w: order %s is %s, not pending", ErrInvalidTransition, o.OrderNumber, o.Status)
	}
	o.Status = StatusArrived
	o.ArrivedAt = &now
	return nil
}

// MarkDelivered transitions the order from arrived to delivered, fixing the
// wait time as whole seconds elapsed since arrival. When ArrivedAt was never
// set (reachable only through an unguarded generic edit) the wait time stays
// unset and the transition still succeeds.
func (o *Order) MarkDelivered(now time.Time) error {
	if o.Status != StatusArrived {
		return fmt.Errorf("%w: order %s is %s, not arrived", ErrInvalidTransition, o.OrderNumber, o.Status)
	}
	if o.ArrivedAt != nil {
		waitTime := int(now.Sub(*o.ArrivedAt) / time.Second)
		o.WaitTime = &waitTime
	}
	o.Status = StatusDelivered
	return nil
}

// AddPayment applies a payment on top of what has already been paid.
// Amounts are additive and monotone; there is no refund operation.
func (o *Order) AddPayment(amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		return ErrInvalidAmount
	}
	o.AmountPaid += amount
	return nil
}

// RemainingBalance is the agreed total minus cumulative payments. It can go
// negative: overpayment is representable and intentionally not capped.
func (o *Order) RemainingBalance() float64 {
	return o.TotalAmount - o.AmountPaid
}

// PaymentState classifies the order as paid, partial or unpaid.
// Orders with no total and no payments carry no payment state at all.
func (o *Order) PaymentState() string {
	if o.TotalAmount == 0 && o.AmountPaid == 0 {
		return PaymentNone
	}
	if o.RemainingBalance() <= 0 {
		return PaymentPaid
	}
	if o.AmountPaid > 0 {
		return PaymentPartial
	}
	return PaymentUnpaid
}

// AllItemsDelivered reports whether every line item has been handed over.
// An order without items counts as not delivered.
func (o *Order) AllItemsDelivered() bool {
	if len(o.Items) == 0 {
		return false
	}
	for _, item := range o.Items {
		if !item.IsDelivered {
			return false
		}
	}
	return true
}

// FormatWaitTime renders whole seconds as MM:SS, e.g. 125 -> "02:05".
func FormatWaitTime(seconds int) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// OrderResponse is the denormalized wire shape returned by every order endpoint.
type OrderResponse struct {
	ID               string      `json:"id"`
	OrderNumber      string      `json:"orderNumber"`
	CustomerName     string      `json:"customerName"`
	Items            []OrderItem `json:"items"`
	Status           string      `json:"status"`
	EstimatedArrival *string     `json:"estimatedArrival"`
	ArrivedAt        *int64      `json:"arrivedAt"` // epoch milliseconds
	WaitTime         *int        `json:"waitTime"`
	DeliveryType     string      `json:"deliveryType"`
	Address          *string     `json:"address"`
	TotalAmount      float64     `json:"totalAmount"`
	AmountPaid       float64     `json:"amountPaid"`
}

// ToResponse converts the stored order into its wire shape. Items are always
// an array and arrival is converted to epoch milliseconds.
func (o *Order) ToResponse() OrderResponse {
	items := o.Items
	if items == nil {
		items = []OrderItem{}
	}

	var arrivedAt *int64
	if o.ArrivedAt != nil {
		ms := o.ArrivedAt.UnixMilli()
		arrivedAt = &ms
	}

	return OrderResponse{
		ID:               o.ID,
		OrderNumber:      o.OrderNumber,
		CustomerName:     o.CustomerName,
		Items:            items,
		Status:           o.Status,
		EstimatedArrival: o.EstimatedArrival,
		ArrivedAt:        arrivedAt,
		WaitTime:         o.WaitTime,
		DeliveryType:     o.DeliveryType,
		Address:          o.Address,
		TotalAmount:      o.TotalAmount,
		AmountPaid:       o.AmountPaid,
	}
}
