package provider

import (
	"context"
	"log"
	"strconv"

	"github.com/stripe/stripe-go/v76"

	"paybridge/internal/models"
)

// SyncTransaction pulls the full gateway state for the transaction's intent
// and reconciles it into the ledger. Sync success means "authoritative state
// was retrieved"; whether the payment itself succeeded is reflected on the
// row, not on the response.
//
// When the corresponding toggles are on, the intent's refunds and its
// unsuccessful charges are downloaded and reconciled as display-only rows.
// Both passes are enrichment: their failures are logged and swallowed.
func (p *Provider) SyncTransaction(ctx context.Context, txn *models.Transaction) *PaymentResponse {
	resp := &PaymentResponse{}

	intentID := txn.TransactionFamilyID
	if intentID == "" {
		resp.Message = "Missing payment intent id"
		return resp
	}

	release, _ := p.lockIntent(ctx, intentID)
	defer release()

	intent, err := p.gw.RetrieveIntent(ctx, intentID)
	if err != nil {
		log.Printf("sync: could not retrieve payment intent %s: %v (transaction=%s)", intentID, err, txn.Pid)
		resp.Message = "Could not retrieve payment intent"
		return resp
	}

	recorded, err := p.record(ctx, intent, txn, nil, false, false)
	if err != nil {
		log.Printf("sync: could not record payment intent %s: %v (transaction=%s)", intentID, err, txn.Pid)
		resp.Message = "Could not record payment intent"
		return resp
	}
	resp.Transaction = recorded
	resp.Success = true

	if p.cfg.SyncRefunds {
		if err := p.syncRefunds(ctx, intent); err != nil {
			log.Printf("sync: refund download failed: %v (intent=%s)", err, intent.ID)
		}
	}
	if p.cfg.SyncUnsuccessfulCharges {
		if err := p.syncUnsuccessfulCharges(ctx, intent); err != nil {
			log.Printf("sync: unsuccessful-charge download failed: %v (intent=%s)", err, intent.ID)
		}
	}

	return resp
}

// syncRefunds reconciles every refund the gateway holds for the intent into
// a display-only refund row.
func (p *Provider) syncRefunds(ctx context.Context, intent *stripe.PaymentIntent) error {
	refunds, err := p.gw.ListRefunds(ctx, intent.ID)
	if err != nil {
		return err
	}

	for _, refund := range refunds {
		childID := refund.ID
		candidate := &models.Transaction{
			PaymentProvider:     p.Tag(),
			TransactionFamily:   models.TransactionFamilyPayment,
			TransactionFamilyID: intent.ID,
			TransactionChildID:  &childID,

			OrderableAmount: 0,
			LocalStatus:     models.LocalStatusComplete,
			Status:          string(refund.Status),
			Success:         refund.Status == stripe.RefundStatusSucceeded,

			Currency:       string(refund.Currency),
			Amount:         0,
			AmountRefunded: -abs(refund.Amount),
			Refund:         true,
			DisplayOnly:    true,
			Livemode:       intent.Livemode,
		}

		// Metadata is absent when the refund was created outside this
		// system; such rows stay unlinked.
		if v, ok := refund.Metadata["orderable_id"]; ok && v != "" && v != "0" {
			if id, err := strconv.ParseUint(v, 10, 64); err == nil {
				orderableID := uint(id)
				candidate.OrderableID = &orderableID
			}
		}
		if v, ok := refund.Metadata["cashier_id"]; ok && v != "" {
			cashierID := v
			candidate.CashierID = &cashierID
		}
		if pid, ok := refund.Metadata["transaction_parent_pid"]; ok && pid != "" {
			var parent models.Transaction
			if err := p.db.Where("pid = ?", pid).First(&parent).Error; err == nil {
				candidate.ParentID = &parent.ID
			}
		}

		if _, err := p.reconcileCandidate(candidate); err != nil {
			return err
		}
	}
	return nil
}

// syncUnsuccessfulCharges reconciles the intent's failed charge attempts
// into display-only rows with zero amount; the attempted capture lands on
// orderable_amount.
func (p *Provider) syncUnsuccessfulCharges(ctx context.Context, intent *stripe.PaymentIntent) error {
	charges, err := p.gw.ListCharges(ctx, intent.ID)
	if err != nil {
		return err
	}

	for _, charge := range charges {
		if charge.Status == stripe.ChargeStatusSucceeded {
			continue
		}

		childID := charge.ID
		candidate := &models.Transaction{
			PaymentProvider:     p.Tag(),
			TransactionFamily:   models.TransactionFamilyPayment,
			TransactionFamilyID: intent.ID,
			TransactionChildID:  &childID,

			OrderableAmount: charge.Amount,
			LocalStatus:     models.LocalStatusComplete,
			Status:          string(charge.Status),
			Success:         false,

			Currency:    string(charge.Currency),
			Amount:      0,
			DisplayOnly: true,
			Livemode:    intent.Livemode,
		}

		p.resolveRecordedIdentity(intent, candidate)

		if v, ok := intent.Metadata["orderable_id"]; ok && v != "" && v != "0" {
			if id, err := strconv.ParseUint(v, 10, 64); err == nil {
				orderableID := uint(id)
				candidate.OrderableID = &orderableID
			}
		}
		if v, ok := intent.Metadata["cashier_id"]; ok && v != "" {
			cashierID := v
			candidate.CashierID = &cashierID
		}

		if _, err := p.reconcileCandidate(candidate); err != nil {
			return err
		}
	}
	return nil
}
