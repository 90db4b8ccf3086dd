package models

import (
	"encoding/json"
	"time"
)

// WebhookEvent is an audit record of an inbound gateway notification. The
// payload is stored as received; reconciliation never reads it back, it
// exists for investigation when a delivery is disputed.
type WebhookEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	PaymentProvider string          `gorm:"type:varchar(50);index" json:"payment_provider"`
	EventID         string          `gorm:"type:varchar(255);index" json:"event_id"`
	EventType       string          `gorm:"type:varchar(100)" json:"event_type"`
	Livemode        bool            `json:"livemode"`
	Payload         json.RawMessage `gorm:"type:jsonb" json:"payload"`
}
