package provider

import (
	"context"
	"log"

	"github.com/stripe/stripe-go/v76"
	"gorm.io/gorm"

	"paybridge/internal/gateway"
	"paybridge/internal/models"
	"paybridge/internal/services"
)

// ProviderTag identifies this adapter on ledger rows.
const ProviderTag = "stripe_intent"

// stripeAPIVersion is pinned so webhook payloads keep the shape the
// handlers expect.
const stripeAPIVersion = "2023-10-16"

// webhookEvents are the event families the adapter subscribes to.
var webhookEvents = []string{
	"payment_intent.succeeded",
	"payment_method.attached",
	"payment_method.detached",
	"payment_method.updated",
	"payment_method.automatically_updated",
	"customer.deleted",
}

// CustomerData is the internal identity a payment is made for.
type CustomerData struct {
	UserType string `json:"user_type"`
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
}

// IsGuest reports whether the identity is anonymous. Guests get no gateway
// customer object and cannot save payment methods.
func (c CustomerData) IsGuest() bool {
	return c.UserID == ""
}

// Orderable is the business object being paid for.
type Orderable interface {
	OrderableKey() uint
	TotalAmount() int64
	OrderCurrency() string
	OrderDescription() string
}

// Provider reconciles the local transaction ledger with the state Stripe
// holds. Synchronous flows (init/charge/refund/sync) and webhook deliveries
// converge on the same matcher and recorder, so replays and redeliveries
// land on the same rows.
type Provider struct {
	db    *gorm.DB
	gw    gateway.Client
	cfg   Config
	cache *services.RedisCache
}

// New builds a provider. cache may be nil; reconciliation then runs without
// cross-process locks, relying on the ledger's uniqueness constraint alone.
func New(db *gorm.DB, gw gateway.Client, cache *services.RedisCache, cfg Config) *Provider {
	return &Provider{db: db, gw: gw, cache: cache, cfg: cfg}
}

// Tag returns the provider tag stamped on ledger rows.
func (p *Provider) Tag() string {
	return ProviderTag
}

// Livemode reports which gateway environment the provider acts against.
func (p *Provider) Livemode() bool {
	return p.cfg.Livemode
}

// Config returns the provider configuration.
func (p *Provider) Config() Config {
	return p.cfg
}

// authorizeTransaction applies the local precondition checks that gate every
// charge/refund operation. It returns nil when the transaction may proceed.
func (p *Provider) authorizeTransaction(txn *models.Transaction) *PaymentResponse {
	if txn.PaymentProvider != p.Tag() {
		return &PaymentResponse{
			Errors:      []string{"Unauthorised payment transaction with provider"},
			Transaction: txn,
		}
	}
	if txn.Livemode != p.Livemode() {
		return &PaymentResponse{
			Errors:      []string{"Livemode mismatch"},
			Transaction: txn,
		}
	}
	return nil
}

// Up registers the webhook endpoint at the gateway, replacing any endpoint
// already registered for the same URL.
func (p *Provider) Up(ctx context.Context) *SimpleResponse {
	resp := &SimpleResponse{}

	if err := p.deleteWebhookEndpoint(ctx); err != nil {
		resp.Message = "An error occurred"
		resp.Errors = []string{err.Error()}
		return resp
	}

	params := &stripe.WebhookEndpointParams{
		URL:        stripe.String(p.cfg.WebhookURL),
		APIVersion: stripe.String(stripeAPIVersion),
	}
	for _, ev := range webhookEvents {
		params.EnabledEvents = append(params.EnabledEvents, stripe.String(ev))
	}

	if _, err := p.gw.CreateWebhookEndpoint(ctx, params); err != nil {
		resp.Message = "An error occurred"
		resp.Errors = []string{err.Error()}
		return resp
	}

	resp.Success = true
	resp.Message = "The Stripe webhook was created successfully. Retrieve the webhook secret in your Stripe dashboard and set it in your Stripe config"
	return resp
}

// Down removes the webhook endpoint registered by Up.
func (p *Provider) Down(ctx context.Context) *SimpleResponse {
	resp := &SimpleResponse{}

	if err := p.deleteWebhookEndpoint(ctx); err != nil {
		resp.Message = "An error occurred"
		resp.Errors = []string{err.Error()}
		return resp
	}

	resp.Success = true
	resp.Message = "Webhooks has been deleted"
	return resp
}

// Ping makes a light authenticated call to confirm the credentials work.
func (p *Provider) Ping(ctx context.Context) *SimpleResponse {
	resp := &SimpleResponse{}

	if _, err := p.gw.ListIntents(ctx, 1); err != nil {
		resp.Message = err.Error()
		resp.Errors = []string{"There might be an issue with communicating with Stripe API with the current configurations"}
		return resp
	}

	resp.Success = true
	return resp
}

func (p *Provider) deleteWebhookEndpoint(ctx context.Context) error {
	endpoints, err := p.gw.ListWebhookEndpoints(ctx)
	if err != nil {
		return err
	}
	for _, ep := range endpoints {
		if ep.URL == p.cfg.WebhookURL {
			// At most one endpoint matches our URL.
			return p.gw.DeleteWebhookEndpoint(ctx, ep.ID)
		}
	}
	return nil
}

// lockIntent serializes reconciliation for one payment intent across
// processes. The returned release func is a no-op when no cache is wired.
func (p *Provider) lockIntent(ctx context.Context, intentID string) (func(), error) {
	if p.cache == nil || intentID == "" {
		return func() {}, nil
	}

	key := "paybridge:lock:intent:" + intentID
	release, err := p.cache.AcquireLock(ctx, key)
	if err != nil {
		// A lost lock degrades to constraint-only protection; the operation
		// itself must still go ahead.
		log.Printf("warning: could not acquire reconciliation lock for %s: %v", intentID, err)
		return func() {}, nil
	}
	return release, nil
}
