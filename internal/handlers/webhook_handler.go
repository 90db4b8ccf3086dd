package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"gorm.io/gorm"

	"paybridge/internal/models"
	"paybridge/internal/provider"
	"paybridge/internal/services"
)

// webhookEventFn handles one verified gateway event. It reports whether the
// ledger converged; the gateway retries deliveries that did not.
type webhookEventFn func(h *WebhookHandler, ctx context.Context, event *stripe.Event) bool

// webhookDispatch routes event types to their handlers. Event types the
// adapter never subscribed to are rejected so a misconfigured endpoint is
// visible at the gateway as delivery failures.
var webhookDispatch = map[string]webhookEventFn{
	"payment_intent.succeeded":             (*WebhookHandler).paymentIntentSucceeded,
	"payment_method.attached":              (*WebhookHandler).paymentMethodAttached,
	"payment_method.updated":               (*WebhookHandler).paymentMethodAttached,
	"payment_method.automatically_updated": (*WebhookHandler).paymentMethodAttached,
	"payment_method.detached":              (*WebhookHandler).paymentMethodDetached,
	"customer.deleted":                     (*WebhookHandler).customerDeleted,
}

// eventDedupTTL bounds how long an event id blocks redelivery processing.
const eventDedupTTL = 24 * time.Hour

type WebhookHandler struct {
	db       *gorm.DB
	cache    *services.RedisCache
	provider *provider.Provider
}

func NewWebhookHandler(db *gorm.DB, cache *services.RedisCache, p *provider.Provider) *WebhookHandler {
	return &WebhookHandler{db: db, cache: cache, provider: p}
}

// HandleWebhook receives a gateway event, verifies its signature, dedups
// redeliveries and dispatches it. Deliveries that fail precondition checks
// return 422 so the gateway retries them.
func (h *WebhookHandler) HandleWebhook(c echo.Context) error {
	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Could not read request body")
	}

	event, err := h.verifiedEvent(c, payload)
	if err != nil {
		log.Printf("webhook: rejected delivery: %v", err)
		return echo.NewHTTPError(http.StatusForbidden, "Invalid webhook signature")
	}

	if event.Livemode != h.provider.Livemode() {
		log.Printf("webhook: livemode mismatch on event %s (%s)", event.ID, event.Type)
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "There was an issue with processing the webhook")
	}

	fn, ok := webhookDispatch[string(event.Type)]
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "Unknown webhook - it may not have been set up")
	}
	if event.Data == nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "There was an issue with processing the webhook")
	}

	if h.alreadyHandled(c.Request().Context(), event.ID) {
		return c.JSON(http.StatusOK, map[string]string{"message": "Webhook Handled"})
	}

	h.auditEvent(event, payload)

	if !fn(h, c.Request().Context(), event) {
		// Let the gateway redeliver; the dedup mark must not block the retry.
		h.clearHandled(c.Request().Context(), event.ID)
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "There was an issue with processing the webhook")
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Webhook Handled"})
}

// verifiedEvent authenticates the payload. Without a configured secret the
// payload is parsed permissively; that mode exists for local development
// against the gateway CLI.
func (h *WebhookHandler) verifiedEvent(c echo.Context, payload []byte) (*stripe.Event, error) {
	cfg := h.provider.Config()

	if cfg.WebhookSecret != "" {
		event, err := webhook.ConstructEventWithTolerance(
			payload,
			c.Request().Header.Get("Stripe-Signature"),
			cfg.WebhookSecret,
			cfg.WebhookTolerance,
		)
		if err != nil {
			return nil, err
		}
		return &event, nil
	}

	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// alreadyHandled marks the event id and reports whether it was marked
// before. Without a cache every delivery is processed; reconciliation is
// idempotent, the dedup only saves gateway round-trips.
func (h *WebhookHandler) alreadyHandled(ctx context.Context, eventID string) bool {
	if h.cache == nil || eventID == "" {
		return false
	}
	ok, err := h.cache.SetNX(ctx, "paybridge:webhook:event:"+eventID, 1, eventDedupTTL)
	if err != nil {
		log.Printf("warning: webhook dedup unavailable for %s: %v", eventID, err)
		return false
	}
	return !ok
}

func (h *WebhookHandler) clearHandled(ctx context.Context, eventID string) {
	if h.cache == nil || eventID == "" {
		return
	}
	if err := h.cache.Delete(ctx, "paybridge:webhook:event:"+eventID); err != nil {
		log.Printf("warning: could not clear webhook dedup mark for %s: %v", eventID, err)
	}
}

// auditEvent stores the delivery for later investigation. Best effort.
func (h *WebhookHandler) auditEvent(event *stripe.Event, payload []byte) {
	row := models.WebhookEvent{
		PaymentProvider: h.provider.Tag(),
		EventID:         event.ID,
		EventType:       string(event.Type),
		Livemode:        event.Livemode,
		Payload:         json.RawMessage(payload),
	}
	if err := h.db.Create(&row).Error; err != nil {
		log.Printf("warning: could not store webhook event %s: %v", event.ID, err)
	}
}

func (h *WebhookHandler) paymentIntentSucceeded(ctx context.Context, event *stripe.Event) bool {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil || intent.ID == "" {
		log.Printf("webhook: malformed payment intent payload on event %s: %v", event.ID, err)
		return false
	}

	resp := h.provider.WebhookChargeByRetrieval(ctx, intent.ID)
	return resp.Success
}

func (h *WebhookHandler) paymentMethodAttached(ctx context.Context, event *stripe.Event) bool {
	var pm stripe.PaymentMethod
	if err := json.Unmarshal(event.Data.Raw, &pm); err != nil || pm.ID == "" {
		log.Printf("webhook: malformed payment method payload on event %s: %v", event.ID, err)
		return false
	}

	return h.provider.WebhookPaymentMethod().WebhookUpdatedOrAttached(ctx, &pm)
}

func (h *WebhookHandler) paymentMethodDetached(ctx context.Context, event *stripe.Event) bool {
	var pm stripe.PaymentMethod
	if err := json.Unmarshal(event.Data.Raw, &pm); err != nil || pm.ID == "" {
		log.Printf("webhook: malformed payment method payload on event %s: %v", event.ID, err)
		return false
	}

	return h.provider.WebhookPaymentMethod().WebhookDetached(ctx, &pm)
}

func (h *WebhookHandler) customerDeleted(ctx context.Context, event *stripe.Event) bool {
	var customer stripe.Customer
	if err := json.Unmarshal(event.Data.Raw, &customer); err != nil || customer.ID == "" {
		log.Printf("webhook: malformed customer payload on event %s: %v", event.ID, err)
		return false
	}

	return h.provider.Customer().WebhookDeleted(ctx, &customer)
}
