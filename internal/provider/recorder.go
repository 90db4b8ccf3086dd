package provider

import (
	"context"
	"log"

	"github.com/stripe/stripe-go/v76"

	"paybridge/internal/models"
)

// record writes the authoritative state of a payment intent onto a ledger
// row and persists it. The intent is the source of truth for amounts,
// status and card metadata; the local row never overrides it.
//
// Card metadata retrieval is an enrichment step: when the payment method
// cannot be fetched the recording proceeds with what it has.
func (p *Provider) record(ctx context.Context, intent *stripe.PaymentIntent, txn *models.Transaction, cashierID *string, retrospective, throughWebhook bool) (*models.Transaction, error) {
	var pm *stripe.PaymentMethod
	if intent.PaymentMethod != nil && intent.PaymentMethod.ID != "" {
		fetched, err := p.gw.RetrievePaymentMethod(ctx, intent.PaymentMethod.ID)
		if err != nil {
			log.Printf("warning: cannot retrieve payment method for recording purposes: %v (intent=%s)", err, intent.ID)
		} else {
			pm = fetched
		}
	}

	txn.Livemode = intent.Livemode
	txn.Currency = string(intent.Currency)
	// AmountReceived is the money actually captured; the authorized amount
	// stays on orderable_amount.
	txn.Amount = intent.AmountReceived
	txn.Refund = false
	txn.AmountEscrow = intent.AmountCapturable

	if cashierID != nil {
		txn.CashierID = cashierID
	}

	p.resolveRecordedIdentity(intent, txn)

	txn.Status = string(intent.Status)
	if intent.Status == stripe.PaymentIntentStatusSucceeded {
		txn.Success = true
		txn.LocalStatus = models.LocalStatusComplete

		// The intent carries only its latest charge, and a succeeded intent
		// has exactly one successful charge, so that latest charge is the
		// one to link.
		charge := intent.LatestCharge
		switch {
		case charge == nil:
			log.Printf("ALERT: payment intent succeeded but corresponding charge is missing (intent=%s)", intent.ID)
		case charge.Status != stripe.ChargeStatusSucceeded:
			log.Printf("ALERT: payment intent succeeded but corresponding charge did not (intent=%s charge=%s status=%s)", intent.ID, charge.ID, charge.Status)
		default:
			txn.AmountRefunded = -abs(charge.AmountRefunded)
			childID := charge.ID
			txn.TransactionChildID = &childID
		}
	} else {
		txn.Success = false
	}

	if pm != nil && intent.PaymentMethod != nil && pm.ID == intent.PaymentMethod.ID && pm.Card != nil {
		checks := pm.Card.Checks

		lastFour := pm.Card.Last4
		cardType := string(pm.Card.Brand)
		txn.LastFour = &lastFour
		txn.CardType = &cardType
		if checks != nil {
			txn.AddressMatched = checks.AddressLine1Check == stripe.PaymentMethodCardChecksAddressLine1CheckPass
			txn.CvcMatched = checks.CVCCheck == stripe.PaymentMethodCardChecksCVCCheckPass
			txn.PostcodeMatched = checks.AddressPostalCodeCheck == stripe.PaymentMethodCardChecksAddressPostalCodeCheckPass
		}
		txn.ThreedSecure = pm.Card.ThreeDSecureUsage != nil && pm.Card.ThreeDSecureUsage.Supported
	} else if pm != nil {
		// Risk fields stay untouched rather than being filled from the
		// wrong instrument.
		log.Printf("ALERT: payment method does not match the referenced payment intent (intent=%s)", intent.ID)
	}

	txn.Retrospective = retrospective
	txn.ThroughWebhook = throughWebhook

	if err := p.db.Save(txn).Error; err != nil {
		return nil, err
	}
	return txn, nil
}

// resolveRecordedIdentity refreshes the customer identity on the row. The
// mapped provider customer wins; intent metadata is the fallback, and blanks
// never overwrite an identity already on the row.
func (p *Provider) resolveRecordedIdentity(intent *stripe.PaymentIntent, txn *models.Transaction) {
	if intent.Customer != nil && intent.Customer.ID != "" {
		if pc, err := p.customerFromGatewayID(intent.Customer.ID); err == nil && pc != nil {
			txn.UserType = &pc.UserType
			txn.UserID = &pc.UserID
			return
		}
	}

	if v, ok := intent.Metadata["user_type"]; ok && v != "" {
		userType := v
		txn.UserType = &userType
	}
	if v, ok := intent.Metadata["user_id"]; ok && v != "" {
		userID := v
		txn.UserID = &userID
	}
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
