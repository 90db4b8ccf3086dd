package gateway

import (
	"context"
	"errors"

	"github.com/stripe/stripe-go/v76"
)

// Client is the remote gateway surface the reconciliation core consumes.
// It is fallible and latent; only the operations the gateway itself documents
// as idempotent may be retried blindly.
type Client interface {
	CreateIntent(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	RetrieveIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error)
	UpdateIntent(ctx context.Context, id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	ListIntents(ctx context.Context, limit int64) ([]*stripe.PaymentIntent, error)

	RetrievePaymentMethod(ctx context.Context, id string) (*stripe.PaymentMethod, error)
	AttachPaymentMethod(ctx context.Context, id, customerID string) (*stripe.PaymentMethod, error)
	DetachPaymentMethod(ctx context.Context, id string) (*stripe.PaymentMethod, error)

	ListCharges(ctx context.Context, intentID string) ([]*stripe.Charge, error)

	CreateRefund(ctx context.Context, params *stripe.RefundParams) (*stripe.Refund, error)
	ListRefunds(ctx context.Context, intentID string) ([]*stripe.Refund, error)

	CreateCustomer(ctx context.Context, params *stripe.CustomerParams) (*stripe.Customer, error)
	DeleteCustomer(ctx context.Context, id string) error
	ListCustomerPaymentMethods(ctx context.Context, customerID string) ([]*stripe.PaymentMethod, error)

	CreateWebhookEndpoint(ctx context.Context, params *stripe.WebhookEndpointParams) (*stripe.WebhookEndpoint, error)
	ListWebhookEndpoints(ctx context.Context) ([]*stripe.WebhookEndpoint, error)
	DeleteWebhookEndpoint(ctx context.Context, id string) error

	// Livemode reports whether the client talks to the live environment.
	Livemode() bool
}

// IsAPIError reports whether err is an error the gateway itself reported,
// as opposed to a transport or programming fault.
func IsAPIError(err error) bool {
	var stripeErr *stripe.Error
	return errors.As(err, &stripeErr)
}
