package provider

import (
	"context"
	"log"

	"github.com/stripe/stripe-go/v76"

	"paybridge/internal/gateway"
	"paybridge/internal/models"
)

// ChargeOptions carries optional behavior for charge recording.
type ChargeOptions struct {
	// SavePaymentMethod saves the instrument used for the charge once the
	// charge itself has been recorded. A failure here never downgrades the
	// charge result.
	SavePaymentMethod bool
}

// Charge records a claimed charge for the transaction. The caller's belief
// that payment succeeded is never trusted: the intent is re-retrieved from
// the gateway and only its status decides the outcome.
//
// Gateway-reported errors come back inside the response; anything
// unrecognized is returned as err so it reaches the caller's boundary
// instead of being mistaken for a declined payment.
func (p *Provider) Charge(ctx context.Context, txn *models.Transaction, opts ChargeOptions) (*PaymentResponse, error) {
	return p.chargeByRetrieval(ctx, txn, nil, opts)
}

// CashierCharge is Charge performed on behalf of a cashier, whose id is
// recorded on the row.
func (p *Provider) CashierCharge(ctx context.Context, cashierID string, txn *models.Transaction, opts ChargeOptions) (*PaymentResponse, error) {
	return p.chargeByRetrieval(ctx, txn, &cashierID, opts)
}

func (p *Provider) chargeByRetrieval(ctx context.Context, txn *models.Transaction, cashierID *string, opts ChargeOptions) (*PaymentResponse, error) {
	if denied := p.authorizeTransaction(txn); denied != nil {
		return denied, nil
	}

	resp := &PaymentResponse{}

	intentID := txn.TransactionFamilyID
	if intentID == "" {
		return resp, nil
	}

	release, _ := p.lockIntent(ctx, intentID)
	defer release()

	intent, err := p.gw.RetrieveIntent(ctx, intentID)
	if err != nil {
		if gateway.IsAPIError(err) {
			log.Printf("charge: gateway error: %v (cashier=%s transaction=%s)", err, strOrEmpty(cashierID), txn.Pid)
			resp.Message = "Error occurred"
			resp.Errors = []string{"There was an error while confirming payment. Please try again"}
			return resp, nil
		}
		log.Printf("charge: unexpected error: %v (cashier=%s transaction=%s)", err, strOrEmpty(cashierID), txn.Pid)
		return nil, err
	}

	resp.Message = string(intent.Status)
	if intent.Status != stripe.PaymentIntentStatusSucceeded {
		return resp, nil
	}
	resp.Success = true

	charged, err := p.record(ctx, intent, txn, cashierID, true, false)
	if err != nil {
		log.Printf("charge: unexpected error while recording: %v (transaction=%s)", err, txn.Pid)
		return nil, err
	}

	if opts.SavePaymentMethod && intent.PaymentMethod != nil {
		p.savePaymentMethodUsed(ctx, intent.PaymentMethod.ID, charged, cashierID)
	}

	resp.Transaction = charged
	return resp, nil
}

// savePaymentMethodUsed is a best-effort secondary operation; its failures
// are logged only.
func (p *Provider) savePaymentMethodUsed(ctx context.Context, paymentMethodID string, txn *models.Transaction, cashierID *string) {
	customer := customerDataFromTransaction(txn)
	pmResp := p.PaymentMethod(customer).Save(ctx, paymentMethodID)
	if !pmResp.Success {
		log.Printf("warning: issue with saving %s payment method: %s (cashier=%s transaction=%s)", p.Tag(), pmResp.Message, strOrEmpty(cashierID), txn.Pid)
	}
}
