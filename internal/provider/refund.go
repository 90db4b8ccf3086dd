package provider

import (
	"context"
	"log"
	"strconv"

	"github.com/stripe/stripe-go/v76"

	"paybridge/internal/models"
)

// Refund issues a refund against the transaction's intent. amount, when
// nil, defaults to the full captured amount; the gateway is the authority on
// whether the amount exceeds what remains refundable, so over-refunds are
// surfaced as gateway failures rather than pre-validated locally.
//
// On gateway success the parent row is re-synced from authoritative state
// instead of patched locally, because the gateway may aggregate multiple
// refunds onto the charge.
func (p *Provider) Refund(ctx context.Context, cashierID string, txn *models.Transaction, amount *int64, description string) *PaymentResponse {
	if denied := p.authorizeTransaction(txn); denied != nil {
		return denied
	}

	resp := &PaymentResponse{}

	amt := txn.Amount
	if amount != nil {
		amt = *amount
	}

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(txn.TransactionFamilyID),
		Amount:        stripe.Int64(amt),
	}
	// The originating pid rides along so a later sync can re-link the
	// refund as a child of this row.
	params.AddMetadata("transaction_parent_pid", txn.Pid)
	params.AddMetadata("orderable_id", strconv.FormatUint(uint64(txn.OrderableKey()), 10))
	params.AddMetadata("cashier_id", cashierID)
	if description != "" {
		params.AddMetadata("description", description)
	}

	refund, err := p.gw.CreateRefund(ctx, params)
	if err != nil {
		log.Printf("refund: gateway error: %v (cashier=%s transaction=%s amount=%d)", err, cashierID, txn.Pid, amt)
		resp.Message = "Error occurred"
		resp.Errors = []string{"There was an error while refunding. Please try again"}
		return resp
	}

	if refund.Status != stripe.RefundStatusSucceeded {
		resp.Message = string(refund.Status)
		return resp
	}

	syncResp := p.SyncTransaction(ctx, txn)
	if syncResp.Transaction != nil {
		resp.Transaction = syncResp.Transaction
	}
	resp.Success = true
	return resp
}
