package events

import (
	"encoding/json"
	"time"

	"github.com/abgdnv/restaurant/pkg/messaging"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/propagation"
)

type OrderCreatedEvent struct {
	Carrier    propagation.MapCarrier `json:"carrier,omitempty"`
	OrderID    string                 `json:"order_id"`
	CustomerID string                 `json:"customer_id"`
	Total      decimal.Decimal        `json:"total"`
	Lines      int                    `json:"lines"`
	CreatedAt  time.Time              `json:"created_at"`
}

func (o OrderCreatedEvent) Subject() string {
	return messaging.OrdersCreatedSubject
}

func (o OrderCreatedEvent) Payload() ([]byte, error) {
	return json.Marshal(o)
}

type OrderStatusChangedEvent struct {
	Carrier   propagation.MapCarrier `json:"carrier,omitempty"`
	OrderID   string                 `json:"order_id"`
	From      string                 `json:"from"`
	To        string                 `json:"to"`
	Restocked bool                   `json:"restocked"`
	ChangedAt time.Time              `json:"changed_at"`
}

func (o OrderStatusChangedEvent) Subject() string {
	return messaging.OrdersStatusChangedSubject
}

func (o OrderStatusChangedEvent) Payload() ([]byte, error) {
	return json.Marshal(o)
}
