package handlers

import "paybridge/internal/provider"

// orderRequest is the payable order a payment is initiated for. It carries
// everything the gateway intent needs; the order itself lives in the caller's
// system.
type orderRequest struct {
	OrderID     uint   `json:"order_id"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description"`
	Email       string `json:"email"`

	UserType string `json:"user_type"`
	UserID   string `json:"user_id"`

	// Saved-instrument selection, highest priority first.
	PaymentMethodID       string `json:"payment_method_id,omitempty"`
	SavedPaymentMethodPid string `json:"saved_payment_method_pid,omitempty"`
	SavedPaymentMethodID  uint   `json:"saved_payment_method_id,omitempty"`

	// AmountOverride replaces the order amount for this intent (partial
	// payments, cashier adjustments).
	AmountOverride *int64 `json:"amount_override,omitempty"`
}

func (o *orderRequest) OrderableKey() uint       { return o.OrderID }
func (o *orderRequest) TotalAmount() int64       { return o.Amount }
func (o *orderRequest) OrderCurrency() string    { return o.Currency }
func (o *orderRequest) OrderDescription() string { return o.Description }

func (o *orderRequest) customerData() provider.CustomerData {
	return provider.CustomerData{
		UserType: o.UserType,
		UserID:   o.UserID,
		Email:    o.Email,
	}
}

// identityRequest names an internal identity for customer and saved-
// instrument operations.
type identityRequest struct {
	UserType string `json:"user_type"`
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
}

func (r *identityRequest) customerData() provider.CustomerData {
	return provider.CustomerData{
		UserType: r.UserType,
		UserID:   r.UserID,
		Email:    r.Email,
	}
}

// chargeRequest carries the options for confirming a payment.
type chargeRequest struct {
	SavePaymentMethod bool `json:"save_payment_method"`
}

// refundRequest carries the optional partial amount and audit description.
type refundRequest struct {
	Amount      *int64 `json:"amount,omitempty"`
	Description string `json:"description"`
}

// savePaymentMethodRequest names the gateway instrument to attach.
type savePaymentMethodRequest struct {
	identityRequest
	PaymentMethodID string `json:"payment_method_id"`
}
