package gateway

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v76"
)

// Fake is a Client whose behavior is configured per test through function
// fields. Calls without a configured function fail loudly.
type Fake struct {
	Live bool

	CreateIntentFunc          func(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	RetrieveIntentFunc        func(id string) (*stripe.PaymentIntent, error)
	UpdateIntentFunc          func(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	ListIntentsFunc           func(limit int64) ([]*stripe.PaymentIntent, error)
	RetrievePaymentMethodFunc func(id string) (*stripe.PaymentMethod, error)
	AttachPaymentMethodFunc   func(id, customerID string) (*stripe.PaymentMethod, error)
	DetachPaymentMethodFunc   func(id string) (*stripe.PaymentMethod, error)
	ListChargesFunc           func(intentID string) ([]*stripe.Charge, error)
	CreateRefundFunc          func(params *stripe.RefundParams) (*stripe.Refund, error)
	ListRefundsFunc           func(intentID string) ([]*stripe.Refund, error)
	CreateCustomerFunc        func(params *stripe.CustomerParams) (*stripe.Customer, error)
	DeleteCustomerFunc        func(id string) error
	ListCustomerPMsFunc       func(customerID string) ([]*stripe.PaymentMethod, error)
	CreateWebhookFunc         func(params *stripe.WebhookEndpointParams) (*stripe.WebhookEndpoint, error)
	ListWebhooksFunc          func() ([]*stripe.WebhookEndpoint, error)
	DeleteWebhookFunc         func(id string) error

	// Calls counts invocations by operation name.
	Calls map[string]int
}

func (f *Fake) called(op string) {
	if f.Calls == nil {
		f.Calls = map[string]int{}
	}
	f.Calls[op]++
}

func (f *Fake) Livemode() bool { return f.Live }

func (f *Fake) CreateIntent(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	f.called("CreateIntent")
	if f.CreateIntentFunc == nil {
		return nil, fmt.Errorf("fake gateway: CreateIntent not configured")
	}
	return f.CreateIntentFunc(params)
}

func (f *Fake) RetrieveIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	f.called("RetrieveIntent")
	if f.RetrieveIntentFunc == nil {
		return nil, fmt.Errorf("fake gateway: RetrieveIntent not configured")
	}
	return f.RetrieveIntentFunc(id)
}

func (f *Fake) UpdateIntent(ctx context.Context, id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	f.called("UpdateIntent")
	if f.UpdateIntentFunc == nil {
		return nil, fmt.Errorf("fake gateway: UpdateIntent not configured")
	}
	return f.UpdateIntentFunc(id, params)
}

func (f *Fake) ListIntents(ctx context.Context, limit int64) ([]*stripe.PaymentIntent, error) {
	f.called("ListIntents")
	if f.ListIntentsFunc == nil {
		return nil, fmt.Errorf("fake gateway: ListIntents not configured")
	}
	return f.ListIntentsFunc(limit)
}

func (f *Fake) RetrievePaymentMethod(ctx context.Context, id string) (*stripe.PaymentMethod, error) {
	f.called("RetrievePaymentMethod")
	if f.RetrievePaymentMethodFunc == nil {
		return nil, fmt.Errorf("fake gateway: RetrievePaymentMethod not configured")
	}
	return f.RetrievePaymentMethodFunc(id)
}

func (f *Fake) AttachPaymentMethod(ctx context.Context, id, customerID string) (*stripe.PaymentMethod, error) {
	f.called("AttachPaymentMethod")
	if f.AttachPaymentMethodFunc == nil {
		return nil, fmt.Errorf("fake gateway: AttachPaymentMethod not configured")
	}
	return f.AttachPaymentMethodFunc(id, customerID)
}

func (f *Fake) DetachPaymentMethod(ctx context.Context, id string) (*stripe.PaymentMethod, error) {
	f.called("DetachPaymentMethod")
	if f.DetachPaymentMethodFunc == nil {
		return nil, fmt.Errorf("fake gateway: DetachPaymentMethod not configured")
	}
	return f.DetachPaymentMethodFunc(id)
}

func (f *Fake) ListCharges(ctx context.Context, intentID string) ([]*stripe.Charge, error) {
	f.called("ListCharges")
	if f.ListChargesFunc == nil {
		return nil, fmt.Errorf("fake gateway: ListCharges not configured")
	}
	return f.ListChargesFunc(intentID)
}

func (f *Fake) CreateRefund(ctx context.Context, params *stripe.RefundParams) (*stripe.Refund, error) {
	f.called("CreateRefund")
	if f.CreateRefundFunc == nil {
		return nil, fmt.Errorf("fake gateway: CreateRefund not configured")
	}
	return f.CreateRefundFunc(params)
}

func (f *Fake) ListRefunds(ctx context.Context, intentID string) ([]*stripe.Refund, error) {
	f.called("ListRefunds")
	if f.ListRefundsFunc == nil {
		return nil, fmt.Errorf("fake gateway: ListRefunds not configured")
	}
	return f.ListRefundsFunc(intentID)
}

func (f *Fake) CreateCustomer(ctx context.Context, params *stripe.CustomerParams) (*stripe.Customer, error) {
	f.called("CreateCustomer")
	if f.CreateCustomerFunc == nil {
		return nil, fmt.Errorf("fake gateway: CreateCustomer not configured")
	}
	return f.CreateCustomerFunc(params)
}

func (f *Fake) DeleteCustomer(ctx context.Context, id string) error {
	f.called("DeleteCustomer")
	if f.DeleteCustomerFunc == nil {
		return fmt.Errorf("fake gateway: DeleteCustomer not configured")
	}
	return f.DeleteCustomerFunc(id)
}

func (f *Fake) ListCustomerPaymentMethods(ctx context.Context, customerID string) ([]*stripe.PaymentMethod, error) {
	f.called("ListCustomerPaymentMethods")
	if f.ListCustomerPMsFunc == nil {
		return nil, fmt.Errorf("fake gateway: ListCustomerPaymentMethods not configured")
	}
	return f.ListCustomerPMsFunc(customerID)
}

func (f *Fake) CreateWebhookEndpoint(ctx context.Context, params *stripe.WebhookEndpointParams) (*stripe.WebhookEndpoint, error) {
	f.called("CreateWebhookEndpoint")
	if f.CreateWebhookFunc == nil {
		return nil, fmt.Errorf("fake gateway: CreateWebhookEndpoint not configured")
	}
	return f.CreateWebhookFunc(params)
}

func (f *Fake) ListWebhookEndpoints(ctx context.Context) ([]*stripe.WebhookEndpoint, error) {
	f.called("ListWebhookEndpoints")
	if f.ListWebhooksFunc == nil {
		return nil, fmt.Errorf("fake gateway: ListWebhookEndpoints not configured")
	}
	return f.ListWebhooksFunc()
}

func (f *Fake) DeleteWebhookEndpoint(ctx context.Context, id string) error {
	f.called("DeleteWebhookEndpoint")
	if f.DeleteWebhookFunc == nil {
		return fmt.Errorf("fake gateway: DeleteWebhookEndpoint not configured")
	}
	return f.DeleteWebhookFunc(id)
}
