package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category groups catalog items
type Category struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Item represents a catalog item
type Item struct {
	ID            int64               `db:"id" json:"id"`
	Title         string              `db:"title" json:"title"`
	Price         decimal.Decimal     `db:"price" json:"price"`
	DiscountPrice decimal.NullDecimal `db:"discount_price" json:"discount_price,omitempty"`
	CategoryID    *int64              `db:"category_id" json:"category_id,omitempty"`
	Slug          string              `db:"slug" json:"slug"`
	Description   string              `db:"description" json:"description,omitempty"`
	CreatedAt     time.Time           `db:"created_at" json:"created_at"`
}

// EffectivePrice returns the discount price when one is set, the unit price otherwise.
func (i *Item) EffectivePrice() decimal.Decimal {
	if i.DiscountPrice.Valid {
		return i.DiscountPrice.Decimal
	}
	return i.Price
}

// ItemImage is one of up to MaxImagesPerItem images attached to an item
type ItemImage struct {
	ID     int64  `db:"id" json:"id"`
	ItemID int64  `db:"item_id" json:"item_id"`
	URL    string `db:"url" json:"url"`
}

// MaxImagesPerItem caps how many images an item may carry.
const MaxImagesPerItem = 3

// OrderLine is one (item, quantity) pairing in a user's order. A line whose
// OrderID is nil has been detached from its order but the row survives.
type OrderLine struct {
	ID       int64  `db:"id" json:"id"`
	UserID   int64  `db:"user_id" json:"user_id"`
	ItemID   int64  `db:"item_id" json:"item_id"`
	OrderID  *int64 `db:"order_id" json:"order_id,omitempty"`
	Quantity int    `db:"quantity" json:"quantity"`
	Ordered  bool   `db:"ordered" json:"ordered"`
}

// LineTotal returns quantity x effective price for the given item.
func (l *OrderLine) LineTotal(item *Item) decimal.Decimal {
	return item.EffectivePrice().Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Order is a user's order. While Ordered is false it is the user's open cart;
// at most one open order exists per user (unique index at the store layer).
type Order struct {
	ID             int64      `db:"id" json:"id"`
	UserID         int64      `db:"user_id" json:"user_id"`
	Ordered        bool       `db:"ordered" json:"ordered"`
	BeingDelivered bool       `db:"being_delivered" json:"being_delivered"`
	Received       bool       `db:"received" json:"received"`
	RefCode        *string    `db:"ref_code" json:"ref_code,omitempty"`
	PaymentID      *int64     `db:"payment_id" json:"payment_id,omitempty"`
	StartDate      time.Time  `db:"start_date" json:"start_date"`
	OrderedDate    *time.Time `db:"ordered_date" json:"ordered_date,omitempty"`
}

// Payment is an append-only ledger entry. Rows are never updated or deleted.
type Payment struct {
	ID        int64           `db:"id" json:"id"`
	UserID    int64           `db:"user_id" json:"user_id"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// Profile holds a user's contact details, upserted at checkout
type Profile struct {
	UserID      int64     `db:"user_id" json:"user_id"`
	FirstName   string    `db:"first_name" json:"first_name"`
	LastName    string    `db:"last_name" json:"last_name"`
	Email       string    `db:"email" json:"email"`
	PhoneNumber string    `db:"phone_number" json:"phone_number"`
	Address     string    `db:"address" json:"address"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Delivery commands applied to ordered orders by the admin surface
const (
	DeliveryCommandDelivered    = "delivered"
	DeliveryCommandNotDelivered = "not_delivered"
	DeliveryCommandReceived     = "received"
	DeliveryCommandNotReceived  = "not_received"
)

// ProcessedEvent for consumer idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
