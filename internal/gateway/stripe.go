package gateway

import (
	"context"
	"errors"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// ErrLiveKeyInTestMode guards against accidentally pointing a test-mode
// client at production credentials.
var ErrLiveKeyInTestMode = errors.New("gateway: refusing to use a non-test secret key in test mode")

// StripeGateway implements Client against the Stripe API.
type StripeGateway struct {
	api      *client.API
	livemode bool
}

// NewStripeGateway builds a gateway client for the given secret key.
func NewStripeGateway(secretKey string, livemode bool) (*StripeGateway, error) {
	if !livemode && secretKey != "" && !strings.HasPrefix(secretKey, "sk_test_") {
		return nil, ErrLiveKeyInTestMode
	}

	api := &client.API{}
	api.Init(secretKey, nil)

	return &StripeGateway{api: api, livemode: livemode}, nil
}

func (g *StripeGateway) Livemode() bool {
	return g.livemode
}

func (g *StripeGateway) CreateIntent(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	params.Context = ctx
	params.AddExpand("latest_charge")
	return g.api.PaymentIntents.New(params)
}

func (g *StripeGateway) RetrieveIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	// latest_charge carries the refunded amount the recorder needs; it is
	// only an id unless expanded.
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	params.AddExpand("latest_charge")
	return g.api.PaymentIntents.Get(id, params)
}

func (g *StripeGateway) UpdateIntent(ctx context.Context, id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	params.Context = ctx
	params.AddExpand("latest_charge")
	return g.api.PaymentIntents.Update(id, params)
}

func (g *StripeGateway) ListIntents(ctx context.Context, limit int64) ([]*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentListParams{}
	params.Context = ctx
	params.Limit = stripe.Int64(limit)

	var intents []*stripe.PaymentIntent
	iter := g.api.PaymentIntents.List(params)
	for iter.Next() {
		intents = append(intents, iter.PaymentIntent())
	}
	return intents, iter.Err()
}

func (g *StripeGateway) RetrievePaymentMethod(ctx context.Context, id string) (*stripe.PaymentMethod, error) {
	params := &stripe.PaymentMethodParams{}
	params.Context = ctx
	return g.api.PaymentMethods.Get(id, params)
}

func (g *StripeGateway) AttachPaymentMethod(ctx context.Context, id, customerID string) (*stripe.PaymentMethod, error) {
	params := &stripe.PaymentMethodAttachParams{Customer: stripe.String(customerID)}
	params.Context = ctx
	return g.api.PaymentMethods.Attach(id, params)
}

func (g *StripeGateway) DetachPaymentMethod(ctx context.Context, id string) (*stripe.PaymentMethod, error) {
	params := &stripe.PaymentMethodDetachParams{}
	params.Context = ctx
	return g.api.PaymentMethods.Detach(id, params)
}

func (g *StripeGateway) ListCharges(ctx context.Context, intentID string) ([]*stripe.Charge, error) {
	params := &stripe.ChargeListParams{PaymentIntent: stripe.String(intentID)}
	params.Context = ctx

	var charges []*stripe.Charge
	iter := g.api.Charges.List(params)
	for iter.Next() {
		charges = append(charges, iter.Charge())
	}
	return charges, iter.Err()
}

func (g *StripeGateway) CreateRefund(ctx context.Context, params *stripe.RefundParams) (*stripe.Refund, error) {
	params.Context = ctx
	return g.api.Refunds.New(params)
}

func (g *StripeGateway) ListRefunds(ctx context.Context, intentID string) ([]*stripe.Refund, error) {
	params := &stripe.RefundListParams{PaymentIntent: stripe.String(intentID)}
	params.Context = ctx

	var refunds []*stripe.Refund
	iter := g.api.Refunds.List(params)
	for iter.Next() {
		refunds = append(refunds, iter.Refund())
	}
	return refunds, iter.Err()
}

func (g *StripeGateway) CreateCustomer(ctx context.Context, params *stripe.CustomerParams) (*stripe.Customer, error) {
	params.Context = ctx
	return g.api.Customers.New(params)
}

func (g *StripeGateway) DeleteCustomer(ctx context.Context, id string) error {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	_, err := g.api.Customers.Del(id, params)
	return err
}

func (g *StripeGateway) ListCustomerPaymentMethods(ctx context.Context, customerID string) ([]*stripe.PaymentMethod, error) {
	params := &stripe.PaymentMethodListParams{
		Customer: stripe.String(customerID),
		Type:     stripe.String(string(stripe.PaymentMethodTypeCard)),
	}
	params.Context = ctx

	var methods []*stripe.PaymentMethod
	iter := g.api.PaymentMethods.List(params)
	for iter.Next() {
		methods = append(methods, iter.PaymentMethod())
	}
	return methods, iter.Err()
}

func (g *StripeGateway) CreateWebhookEndpoint(ctx context.Context, params *stripe.WebhookEndpointParams) (*stripe.WebhookEndpoint, error) {
	params.Context = ctx
	return g.api.WebhookEndpoints.New(params)
}

func (g *StripeGateway) ListWebhookEndpoints(ctx context.Context) ([]*stripe.WebhookEndpoint, error) {
	params := &stripe.WebhookEndpointListParams{}
	params.Context = ctx

	var endpoints []*stripe.WebhookEndpoint
	iter := g.api.WebhookEndpoints.List(params)
	for iter.Next() {
		endpoints = append(endpoints, iter.WebhookEndpoint())
	}
	return endpoints, iter.Err()
}

func (g *StripeGateway) DeleteWebhookEndpoint(ctx context.Context, id string) error {
	params := &stripe.WebhookEndpointParams{}
	params.Context = ctx
	_, err := g.api.WebhookEndpoints.Del(id, params)
	return err
}
