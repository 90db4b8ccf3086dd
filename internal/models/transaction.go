package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TransactionFamily string

const (
	TransactionFamilyPayment TransactionFamily = "payment"
)

type LocalStatus string

const (
	LocalStatusInit     LocalStatus = "init"
	LocalStatusComplete LocalStatus = "complete"
)

// Transaction is one ledger row recording money movement (a payment, a refund
// or a failed attempt kept for visibility). Rows are never deleted; refunds
// are recorded as separate rows or as amendments of the originating row.
type Transaction struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Pid             string `gorm:"type:varchar(36);uniqueIndex" json:"pid"`
	PaymentProvider string `gorm:"type:varchar(50);index:idx_transactions_family" json:"payment_provider"`

	// TransactionFamilyID holds the gateway's parent object id (the payment
	// intent id) and TransactionChildID the leaf object id (a charge or
	// refund id). A pending row has no child id yet.
	TransactionFamily   TransactionFamily `gorm:"type:varchar(50);index:idx_transactions_family" json:"transaction_family"`
	TransactionFamilyID string            `gorm:"type:varchar(255);index:idx_transactions_family" json:"transaction_family_id"`
	TransactionChildID  *string           `gorm:"type:varchar(255)" json:"transaction_child_id"`

	// ParentID links a refund row back to the transaction it refunds.
	ParentID *uint `gorm:"index" json:"parent_id"`

	OrderableID     *uint `json:"orderable_id"`
	OrderableAmount int64 `json:"orderable_amount"`

	// Amount is the money actually captured, in minor units. AmountRefunded
	// is zero or negative. AmountEscrow is authorized but not yet captured.
	Amount         int64  `json:"amount"`
	AmountRefunded int64  `json:"amount_refunded"`
	AmountEscrow   int64  `json:"amount_escrow"`
	Currency       string `gorm:"type:varchar(3)" json:"currency"`

	Status      string      `gorm:"type:varchar(50)" json:"status"`
	Success     bool        `json:"success"`
	LocalStatus LocalStatus `gorm:"type:varchar(20);default:'init'" json:"local_status"`

	Refund         bool `json:"refund"`
	DisplayOnly    bool `json:"display_only"`
	Retrospective  bool `json:"retrospective"`
	ThroughWebhook bool `json:"through_webhook"`
	Livemode       bool `json:"livemode"`

	CashierID *string `gorm:"type:varchar(100)" json:"cashier_id"`
	UserType  *string `gorm:"type:varchar(100)" json:"user_type"`
	UserID    *string `gorm:"type:varchar(100)" json:"user_id"`

	LastFour        *string `gorm:"type:varchar(4)" json:"last_four"`
	CardType        *string `gorm:"type:varchar(50)" json:"card_type"`
	AddressMatched  bool    `json:"address_matched"`
	CvcMatched      bool    `json:"cvc_matched"`
	PostcodeMatched bool    `json:"postcode_matched"`
	ThreedSecure    bool    `json:"threed_secure"`
}

// BeforeCreate assigns the public id.
func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.Pid == "" {
		t.Pid = uuid.NewString()
	}
	return nil
}

// OrderableKey returns the orderable id with NULL collapsed to the
// distinguished zero value used by the ledger's natural key.
func (t *Transaction) OrderableKey() uint {
	if t.OrderableID == nil {
		return 0
	}
	return *t.OrderableID
}
