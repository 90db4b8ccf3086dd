package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/stripe/stripe-go/v76"

	"paybridge/internal/gateway"
	"paybridge/internal/models"
)

func TestWebhookChargeByRetrievalUsesStampedPid(t *testing.T) {
	p := newTestProvider(t, nil)

	txn := &models.Transaction{
		PaymentProvider:     p.Tag(),
		TransactionFamily:   models.TransactionFamilyPayment,
		TransactionFamilyID: "pi_1",
		OrderableID:         uintPtr(7),
		LocalStatus:         models.LocalStatusInit,
	}
	if err := p.db.Create(txn).Error; err != nil {
		t.Fatalf("seed transaction: %v", err)
	}

	fake := p.gw.(*gateway.Fake)
	fake.RetrieveIntentFunc = func(id string) (*stripe.PaymentIntent, error) {
		intent := succeededIntent(id, "ch_1", 2500)
		intent.Metadata = map[string]string{"transaction_pid": txn.Pid}
		return intent, nil
	}

	resp := p.WebhookChargeByRetrieval(context.Background(), "pi_1")
	if !resp.Success {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.Transaction.ID != txn.ID {
		t.Errorf("recorded onto row %d; want %d", resp.Transaction.ID, txn.ID)
	}
	if !resp.Transaction.Retrospective || !resp.Transaction.ThroughWebhook {
		t.Errorf("flags = %+v", resp.Transaction)
	}

	var count int64
	p.db.Model(&models.Transaction{}).Count(&count)
	if count != 1 {
		t.Errorf("expected 1 row, got %d", count)
	}
}

func TestWebhookChargeByRetrievalRebuildsRow(t *testing.T) {
	fake := &gateway.Fake{
		RetrieveIntentFunc: func(id string) (*stripe.PaymentIntent, error) {
			intent := succeededIntent(id, "ch_1", 2500)
			intent.Metadata = map[string]string{
				"transaction_pid":  "gone-pid",
				"orderable_id":     "7",
				"orderable_amount": "2500",
			}
			return intent, nil
		},
	}
	p := newTestProvider(t, fake)

	resp := p.WebhookChargeByRetrieval(context.Background(), "pi_1")
	if !resp.Success {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.Transaction.OrderableID == nil || *resp.Transaction.OrderableID != 7 {
		t.Errorf("orderable = %v; want 7", resp.Transaction.OrderableID)
	}
	if resp.Transaction.OrderableAmount != 2500 {
		t.Errorf("orderable amount = %d", resp.Transaction.OrderableAmount)
	}
	if resp.Transaction.Pid != "gone-pid" {
		t.Errorf("pid = %q; the stamped pid is reused", resp.Transaction.Pid)
	}
	if !resp.Transaction.ThroughWebhook {
		t.Error("webhook recording must be marked")
	}
}

func TestWebhookChargeByRetrievalRefusesNonSucceededIntent(t *testing.T) {
	fake := &gateway.Fake{
		RetrieveIntentFunc: func(id string) (*stripe.PaymentIntent, error) {
			intent := succeededIntent(id, "ch_1", 2500)
			intent.Status = stripe.PaymentIntentStatusRequiresPaymentMethod
			intent.Metadata = map[string]string{
				"orderable_id":     "7",
				"orderable_amount": "2500",
			}
			return intent, nil
		},
	}
	p := newTestProvider(t, fake)

	resp := p.WebhookChargeByRetrieval(context.Background(), "pi_1")
	if resp.Success {
		t.Error("a delivery whose re-retrieved intent has not succeeded must not succeed")
	}
	if resp.Message != string(stripe.PaymentIntentStatusRequiresPaymentMethod) {
		t.Errorf("message = %q; want the intent status", resp.Message)
	}
	if resp.Transaction != nil {
		t.Errorf("no transaction expected, got %+v", resp.Transaction)
	}

	var count int64
	p.db.Model(&models.Transaction{}).Count(&count)
	if count != 0 {
		t.Errorf("nothing may reach the ledger, got %d rows", count)
	}
}

func TestWebhookChargeByRetrievalRefusesAnonymousIntent(t *testing.T) {
	fake := &gateway.Fake{
		RetrieveIntentFunc: func(id string) (*stripe.PaymentIntent, error) {
			// No metadata at all: an intent created outside this system.
			return succeededIntent(id, "ch_1", 2500), nil
		},
	}
	p := newTestProvider(t, fake)

	resp := p.WebhookChargeByRetrieval(context.Background(), "pi_1")
	if resp.Success {
		t.Error("an unattributable intent must not be recorded")
	}
	if resp.Message != "Could not identify transaction" {
		t.Errorf("message = %q", resp.Message)
	}

	var count int64
	p.db.Model(&models.Transaction{}).Count(&count)
	if count != 0 {
		t.Errorf("no rows expected, got %d", count)
	}
}

func TestWebhookChargeByRetrievalSwallowsGatewayFailure(t *testing.T) {
	fake := &gateway.Fake{
		RetrieveIntentFunc: func(id string) (*stripe.PaymentIntent, error) {
			return nil, errors.New("gateway down")
		},
	}
	p := newTestProvider(t, fake)

	resp := p.WebhookChargeByRetrieval(context.Background(), "pi_1")
	if resp.Success {
		t.Error("expected failure")
	}
	if resp.Message != "Could not retrieve payment intent" {
		t.Errorf("message = %q", resp.Message)
	}
}

func TestUpReplacesExistingEndpoint(t *testing.T) {
	deleted := ""
	var created *stripe.WebhookEndpointParams
	fake := &gateway.Fake{
		ListWebhooksFunc: func() ([]*stripe.WebhookEndpoint, error) {
			return []*stripe.WebhookEndpoint{
				{ID: "we_old", URL: "https://pay.example.com/stripe/webhook"},
				{ID: "we_other", URL: "https://other.example.com/hook"},
			}, nil
		},
		DeleteWebhookFunc: func(id string) error {
			deleted = id
			return nil
		},
		CreateWebhookFunc: func(params *stripe.WebhookEndpointParams) (*stripe.WebhookEndpoint, error) {
			created = params
			return &stripe.WebhookEndpoint{ID: "we_new"}, nil
		},
	}
	db := testDB(t)
	p := New(db, fake, nil, Config{WebhookURL: "https://pay.example.com/stripe/webhook"})

	resp := p.Up(context.Background())
	if !resp.Success {
		t.Fatalf("resp = %+v", resp)
	}
	if deleted != "we_old" {
		t.Errorf("deleted = %q; only our URL's endpoint is replaced", deleted)
	}
	if created == nil || len(created.EnabledEvents) == 0 {
		t.Fatal("endpoint created without event subscriptions")
	}
}

func TestPingProbesWithOneIntent(t *testing.T) {
	var gotLimit int64
	fake := &gateway.Fake{
		ListIntentsFunc: func(limit int64) ([]*stripe.PaymentIntent, error) {
			gotLimit = limit
			return nil, nil
		},
	}
	p := newTestProvider(t, fake)

	resp := p.Ping(context.Background())
	if !resp.Success {
		t.Fatalf("resp = %+v", resp)
	}
	if gotLimit != 1 {
		t.Errorf("list limit = %d; a ping fetches at most one intent", gotLimit)
	}

	fake.ListIntentsFunc = func(limit int64) ([]*stripe.PaymentIntent, error) {
		return nil, errors.New("invalid api key")
	}
	resp = p.Ping(context.Background())
	if resp.Success {
		t.Error("a failing probe must not report success")
	}
	if len(resp.Errors) == 0 {
		t.Errorf("resp = %+v", resp)
	}
}
