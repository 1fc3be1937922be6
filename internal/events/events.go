package events

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCommitted        = "OrderCommitted"
	EventReturnSettled         = "ReturnSettled"
	EventRefundRequestReviewed = "RefundRequestReviewed"
)

const (
	TopicOrders  = "pos.orders"
	TopicReturns = "pos.returns"
)

// Envelope is the wire shape every published event shares. Payload carries
// the event-specific body as raw JSON so consumers can decode lazily.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// Publisher delivers domain events to downstream consumers. Delivery is
// best-effort: callers never fail a business operation on a publish error.
type Publisher interface {
	Publish(eventType string, correlationID string, payload any)
	Close()
}

type OrderCommittedPayload struct {
	OrderID      string `json:"order_id"`
	OrderToken   string `json:"order_token"`
	CustomerID   string `json:"customer_id,omitempty"`
	TotalCents   int64  `json:"total_cents"`
	PointsEarned int64  `json:"points_earned"`
}

type ReturnedLine struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

type ReturnSettledPayload struct {
	InvoiceNumber    string         `json:"invoice_number"`
	RequestID        string         `json:"request_id,omitempty"`
	RefundMethod     string         `json:"refund_method"`
	TotalRefundCents int64          `json:"total_refund_cents"`
	PointsDeducted   int64          `json:"points_deducted"`
	Lines            []ReturnedLine `json:"lines"`
}

type RefundRequestReviewedPayload struct {
	RequestID     string `json:"request_id"`
	InvoiceNumber string `json:"invoice_number"`
	Status        string `json:"status"`
}

// Noop discards every event. Used when no broker is configured.
type Noop struct{}

func (Noop) Publish(string, string, any) {}
func (Noop) Close()                      {}
