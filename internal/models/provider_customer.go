package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProviderCustomer maps an internal (user_type, user_id) identity to the
// customer object the gateway holds for it. One mapping per provider.
type ProviderCustomer struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Pid                string `gorm:"type:varchar(36);uniqueIndex" json:"pid"`
	PaymentProvider    string `gorm:"type:varchar(50);uniqueIndex:idx_provider_customers_identity;uniqueIndex:idx_provider_customers_gateway" json:"payment_provider"`
	ProviderCustomerID string `gorm:"type:varchar(255);uniqueIndex:idx_provider_customers_gateway" json:"provider_customer_id"`

	UserType string `gorm:"type:varchar(100);uniqueIndex:idx_provider_customers_identity" json:"user_type"`
	UserID   string `gorm:"type:varchar(100);uniqueIndex:idx_provider_customers_identity" json:"user_id"`

	// Relationships
	PaymentMethods []ProviderPaymentMethod `gorm:"foreignKey:CustomerID" json:"payment_methods,omitempty"`
}

// BeforeCreate assigns the public id.
func (c *ProviderCustomer) BeforeCreate(tx *gorm.DB) error {
	if c.Pid == "" {
		c.Pid = uuid.NewString()
	}
	return nil
}
