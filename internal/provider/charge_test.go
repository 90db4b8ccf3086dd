package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/stripe/stripe-go/v76"

	"paybridge/internal/gateway"
	"paybridge/internal/models"
)

func TestChargeDeniesForeignTransaction(t *testing.T) {
	fake := &gateway.Fake{}
	p := newTestProvider(t, fake)

	txn := &models.Transaction{
		PaymentProvider:     "other_gateway",
		TransactionFamilyID: "pi_1",
	}

	resp, err := p.Charge(context.Background(), txn, ChargeOptions{})
	if err != nil {
		t.Fatalf("Charge: %v", err)
	}
	if resp.Success {
		t.Error("foreign transaction must be denied")
	}
	if len(resp.Errors) == 0 || resp.Errors[0] != "Unauthorised payment transaction with provider" {
		t.Errorf("errors = %v", resp.Errors)
	}
	if len(fake.Calls) != 0 {
		t.Errorf("denial must precede any gateway call, got %v", fake.Calls)
	}
}

func TestChargeDeniesLivemodeMismatch(t *testing.T) {
	fake := &gateway.Fake{}
	p := newTestProvider(t, fake)

	txn := &models.Transaction{
		PaymentProvider:     p.Tag(),
		TransactionFamilyID: "pi_1",
		Livemode:            true,
	}

	resp, err := p.Charge(context.Background(), txn, ChargeOptions{})
	if err != nil {
		t.Fatalf("Charge: %v", err)
	}
	if resp.Success || len(resp.Errors) == 0 || resp.Errors[0] != "Livemode mismatch" {
		t.Errorf("resp = %+v", resp)
	}
	if len(fake.Calls) != 0 {
		t.Errorf("denial must precede any gateway call, got %v", fake.Calls)
	}
}

func TestChargeWithoutIntentIsEmpty(t *testing.T) {
	fake := &gateway.Fake{}
	p := newTestProvider(t, fake)

	txn := &models.Transaction{PaymentProvider: p.Tag()}

	resp, err := p.Charge(context.Background(), txn, ChargeOptions{})
	if err != nil {
		t.Fatalf("Charge: %v", err)
	}
	if resp.Success || resp.Message != "" {
		t.Errorf("resp = %+v", resp)
	}
	if len(fake.Calls) != 0 {
		t.Errorf("no gateway calls expected, got %v", fake.Calls)
	}
}

func TestChargeGatewayErrorIsContained(t *testing.T) {
	fake := &gateway.Fake{
		RetrieveIntentFunc: func(id string) (*stripe.PaymentIntent, error) {
			return nil, &stripe.Error{Msg: "no such intent", Code: stripe.ErrorCodeResourceMissing}
		},
	}
	p := newTestProvider(t, fake)

	txn := &models.Transaction{
		PaymentProvider:     p.Tag(),
		TransactionFamilyID: "pi_1",
	}

	resp, err := p.Charge(context.Background(), txn, ChargeOptions{})
	if err != nil {
		t.Fatalf("recognized gateway errors must not escape: %v", err)
	}
	if resp.Success {
		t.Error("expected failure")
	}
	if len(resp.Errors) == 0 || resp.Errors[0] != "There was an error while confirming payment. Please try again" {
		t.Errorf("errors = %v", resp.Errors)
	}
}

func TestChargeUnexpectedErrorEscapes(t *testing.T) {
	boom := errors.New("connection reset")
	fake := &gateway.Fake{
		RetrieveIntentFunc: func(id string) (*stripe.PaymentIntent, error) {
			return nil, boom
		},
	}
	p := newTestProvider(t, fake)

	txn := &models.Transaction{
		PaymentProvider:     p.Tag(),
		TransactionFamilyID: "pi_1",
	}

	_, err := p.Charge(context.Background(), txn, ChargeOptions{})
	if !errors.Is(err, boom) {
		t.Fatalf("unrecognized errors must escape, got %v", err)
	}
}

func TestChargeDoesNotTrustTheCaller(t *testing.T) {
	fake := &gateway.Fake{
		RetrieveIntentFunc: func(id string) (*stripe.PaymentIntent, error) {
			return &stripe.PaymentIntent{
				ID:     id,
				Status: stripe.PaymentIntentStatusRequiresAction,
			}, nil
		},
	}
	p := newTestProvider(t, fake)

	txn := &models.Transaction{
		PaymentProvider:     p.Tag(),
		TransactionFamily:   models.TransactionFamilyPayment,
		TransactionFamilyID: "pi_1",
	}
	if err := p.db.Create(txn).Error; err != nil {
		t.Fatalf("seed transaction: %v", err)
	}

	resp, err := p.Charge(context.Background(), txn, ChargeOptions{})
	if err != nil {
		t.Fatalf("Charge: %v", err)
	}
	if resp.Success {
		t.Error("a non-succeeded intent must not be recorded as a charge")
	}
	if resp.Message != string(stripe.PaymentIntentStatusRequiresAction) {
		t.Errorf("message = %q; want intent status", resp.Message)
	}

	var reloaded models.Transaction
	if err := p.db.First(&reloaded, txn.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Success {
		t.Error("ledger row must stay pending")
	}
}

func TestChargeRecordsSucceededIntent(t *testing.T) {
	fake := &gateway.Fake{
		RetrieveIntentFunc: func(id string) (*stripe.PaymentIntent, error) {
			return succeededIntent(id, "ch_1", 2500), nil
		},
	}
	p := newTestProvider(t, fake)

	txn := &models.Transaction{
		PaymentProvider:     p.Tag(),
		TransactionFamily:   models.TransactionFamilyPayment,
		TransactionFamilyID: "pi_1",
		OrderableID:         uintPtr(7),
		OrderableAmount:     2500,
		LocalStatus:         models.LocalStatusInit,
	}
	if err := p.db.Create(txn).Error; err != nil {
		t.Fatalf("seed transaction: %v", err)
	}

	resp, err := p.CashierCharge(context.Background(), "cash-9", txn, ChargeOptions{})
	if err != nil {
		t.Fatalf("CashierCharge: %v", err)
	}
	if !resp.Success {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.Transaction == nil || !resp.Transaction.Retrospective || resp.Transaction.ThroughWebhook {
		t.Errorf("transaction flags wrong: %+v", resp.Transaction)
	}
	if resp.Transaction.CashierID == nil || *resp.Transaction.CashierID != "cash-9" {
		t.Errorf("cashier = %v", resp.Transaction.CashierID)
	}
}

func TestChargeSavePaymentMethodFailureIsSwallowed(t *testing.T) {
	intent := succeededIntent("pi_1", "ch_1", 2500)
	intent.PaymentMethod = &stripe.PaymentMethod{ID: "pm_1"}

	fake := &gateway.Fake{
		RetrieveIntentFunc: func(id string) (*stripe.PaymentIntent, error) {
			return intent, nil
		},
		RetrievePaymentMethodFunc: func(id string) (*stripe.PaymentMethod, error) {
			return nil, errors.New("unavailable")
		},
	}
	p := newTestProvider(t, fake)

	// No user identity on the row, so the save is refused for a guest.
	txn := &models.Transaction{
		PaymentProvider:     p.Tag(),
		TransactionFamily:   models.TransactionFamilyPayment,
		TransactionFamilyID: "pi_1",
	}
	if err := p.db.Create(txn).Error; err != nil {
		t.Fatalf("seed transaction: %v", err)
	}

	resp, err := p.Charge(context.Background(), txn, ChargeOptions{SavePaymentMethod: true})
	if err != nil {
		t.Fatalf("Charge: %v", err)
	}
	if !resp.Success {
		t.Fatalf("a failed instrument save must not downgrade the charge: %+v", resp)
	}
}
