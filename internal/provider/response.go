package provider

import "paybridge/internal/models"

// PaymentResponse is the structured result of a payment operation. Callers
// always get a success flag and a human message; internal error detail stays
// in the logs.
type PaymentResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Errors  []string `json:"errors,omitempty"`

	Transaction *models.Transaction `json:"transaction,omitempty"`

	// ClientSide carries bootstrap data (publishable key, client secret)
	// the caller needs to complete an interactive confirmation out-of-band.
	ClientSide map[string]string `json:"client_side,omitempty"`
}

func (r *PaymentResponse) setClientSide(key, val string) {
	if r.ClientSide == nil {
		r.ClientSide = map[string]string{}
	}
	r.ClientSide[key] = val
}

// SimpleResponse is the result of a lifecycle operation (up/down/ping).
type SimpleResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

// CustomerResponse is the result of a provider-customer operation.
type CustomerResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Errors  []string `json:"errors,omitempty"`

	Customer *models.ProviderCustomer `json:"customer,omitempty"`
}

// PaymentMethodResponse is the result of a saved-instrument operation.
type PaymentMethodResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Errors  []string `json:"errors,omitempty"`

	PaymentMethod *models.ProviderPaymentMethod `json:"payment_method,omitempty"`
}
