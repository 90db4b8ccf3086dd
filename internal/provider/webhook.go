package provider

import (
	"context"
	"errors"
	"log"
	"strconv"

	"github.com/stripe/stripe-go/v76"
	"gorm.io/gorm"

	"paybridge/internal/models"
)

// WebhookChargeByRetrieval converges the ledger for a payment_intent.succeeded
// delivery. The delivered payload is never trusted for money movement: only
// the intent id is taken from it, and the intent is re-retrieved from the
// gateway before anything is recorded.
//
// Deliveries are retried by the gateway, so every failure is swallowed into
// the response; the caller translates Success into an HTTP status.
func (p *Provider) WebhookChargeByRetrieval(ctx context.Context, intentID string) *PaymentResponse {
	resp := &PaymentResponse{}

	if intentID == "" {
		resp.Message = "Missing payment intent id"
		return resp
	}

	release, _ := p.lockIntent(ctx, intentID)
	defer release()

	intent, err := p.gw.RetrieveIntent(ctx, intentID)
	if err != nil {
		log.Printf("webhook: could not retrieve payment intent %s: %v", intentID, err)
		resp.Message = "Could not retrieve payment intent"
		return resp
	}

	// The delivery claimed success; only the re-retrieved status counts. A
	// premature or forged delivery must not put anything on the ledger.
	if intent.Status != stripe.PaymentIntentStatusSucceeded {
		log.Printf("webhook: payment intent %s is %s, not recording", intentID, intent.Status)
		resp.Message = string(intent.Status)
		return resp
	}

	txn, err := p.transactionForIntent(intent)
	if err != nil {
		log.Printf("webhook: transaction lookup failed for intent %s: %v", intentID, err)
		resp.Message = "Could not identify transaction"
		return resp
	}
	if txn == nil {
		log.Printf("ALERT: webhook for intent %s carries no transaction reference and cannot be reconstructed", intentID)
		resp.Message = "Could not identify transaction"
		return resp
	}

	if txn.ID != 0 {
		if denied := p.authorizeTransaction(txn); denied != nil {
			return denied
		}
	}

	var cashierID *string
	if v, ok := intent.Metadata["cashier_id"]; ok && v != "" {
		cashierID = &v
	}

	recorded, err := p.record(ctx, intent, txn, cashierID, true, true)
	if err != nil {
		log.Printf("webhook: could not record payment intent %s: %v", intentID, err)
		resp.Message = "Could not record payment intent"
		return resp
	}

	resp.Transaction = recorded
	resp.Success = true
	return resp
}

// transactionForIntent finds the ledger row a delivered intent belongs to.
// The pid stamped into the intent's metadata at init time is the primary
// reference; when the row is gone (or the intent was created before the pid
// was stamped) the row is rebuilt from metadata, upgrading a pending
// placeholder when one exists. Returns nil when the intent cannot be tied to
// an orderable at all.
func (p *Provider) transactionForIntent(intent *stripe.PaymentIntent) (*models.Transaction, error) {
	if pid, ok := intent.Metadata["transaction_pid"]; ok && pid != "" {
		var txn models.Transaction
		err := p.db.Where("pid = ?", pid).First(&txn).Error
		if err == nil {
			return &txn, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	candidate := p.paymentIntentToTransaction(intent)
	if candidate == nil {
		return nil, nil
	}

	existing, err := p.findExisting(candidate)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	return candidate, nil
}

// paymentIntentToTransaction rebuilds an unsaved ledger row from the intent's
// metadata. Without an orderable reference there is nothing to rebuild and
// nil is returned.
func (p *Provider) paymentIntentToTransaction(intent *stripe.PaymentIntent) *models.Transaction {
	v, ok := intent.Metadata["orderable_id"]
	if !ok || v == "" || v == "0" {
		return nil
	}
	id, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return nil
	}
	orderableID := uint(id)

	txn := &models.Transaction{
		PaymentProvider:     p.Tag(),
		TransactionFamily:   models.TransactionFamilyPayment,
		TransactionFamilyID: intent.ID,
		OrderableID:         &orderableID,
		LocalStatus:         models.LocalStatusInit,
		Livemode:            intent.Livemode,
	}
	if pid, ok := intent.Metadata["transaction_pid"]; ok && pid != "" {
		txn.Pid = pid
	}
	if v, ok := intent.Metadata["orderable_amount"]; ok && v != "" {
		if amt, err := strconv.ParseInt(v, 10, 64); err == nil {
			txn.OrderableAmount = amt
		}
	}
	return txn
}
