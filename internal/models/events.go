package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeOrderPlaced     = "ORDER_PLACED"
	EventTypeDeliveryUpdated = "DELIVERY_UPDATED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderPlacedEvent published when checkout flips an order to ordered
type OrderPlacedEvent struct {
	BaseEvent
	OrderID   int64           `json:"order_id"`
	UserID    int64           `json:"user_id"`
	RefCode   string          `json:"ref_code"`
	PaymentID int64           `json:"payment_id"`
	Total     decimal.Decimal `json:"total"`
	Items     []OrderLineData `json:"items"`
}

// DeliveryUpdatedEvent published when an admin delivery command is applied
type DeliveryUpdatedEvent struct {
	BaseEvent
	OrderID        int64  `json:"order_id"`
	Command        string `json:"command"`
	BeingDelivered bool   `json:"being_delivered"`
	Received       bool   `json:"received"`
}

// OrderLineData represents line data in events
type OrderLineData struct {
	ItemID    int64           `json:"item_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}
