package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProviderPaymentMethod is a saved instrument: the gateway-side payment
// method id plus enough card metadata to display it. Owned by exactly one
// ProviderCustomer.
type ProviderPaymentMethod struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Pid             string `gorm:"type:varchar(36);uniqueIndex" json:"pid"`
	PaymentProvider string `gorm:"type:varchar(50);index" json:"payment_provider"`

	CustomerID              uint   `gorm:"index" json:"customer_id"`
	ProviderPaymentMethodID string `gorm:"type:varchar(255);index" json:"provider_payment_method_id"`

	Type        string `gorm:"type:varchar(50)" json:"type"`
	Brand       string `gorm:"type:varchar(50)" json:"brand"`
	LastFour    string `gorm:"type:varchar(4)" json:"last_four"`
	CountryCode string `gorm:"type:varchar(2)" json:"country_code"`
	ExpMonth    int64  `json:"exp_month"`
	ExpYear     int64  `json:"exp_year"`
	Livemode    bool   `json:"livemode"`

	// Relationships
	Customer ProviderCustomer `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
}

// BeforeCreate assigns the public id.
func (m *ProviderPaymentMethod) BeforeCreate(tx *gorm.DB) error {
	if m.Pid == "" {
		m.Pid = uuid.NewString()
	}
	return nil
}
