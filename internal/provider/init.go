package provider

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	"gorm.io/gorm"

	"paybridge/internal/models"
)

// InitOptions carries optional inputs for payment initiation.
type InitOptions struct {
	Customer  CustomerData
	CashierID *string

	// Saved-instrument selection, in precedence order: a direct gateway
	// payment method id wins over a saved method pid, which wins over a
	// saved method internal id. Later tiers are ignored once an earlier
	// one is supplied.
	PaymentMethodID       string
	SavedPaymentMethodPid string
	SavedPaymentMethodID  uint
}

// Init prepares (or refreshes) a payment intent for the orderable and binds
// it to a pending ledger row before any money moves. amount, when non-nil,
// overrides the orderable's computed total; explicit amounts are how split
// and partial payments are made.
//
// On success the response carries the publishable key and client secret the
// caller needs to complete confirmation out-of-band. Gateway failures come
// back as a generic error with the row still attached so the caller can
// retry.
func (p *Provider) Init(ctx context.Context, orderable Orderable, amount *int64, opts InitOptions, existing *models.Transaction) *PaymentResponse {
	resp := &PaymentResponse{}

	amt := orderable.TotalAmount()
	if amount != nil {
		amt = *amount
	}

	txn, err := p.initTransaction(orderable, amt, opts, existing)
	if err != nil {
		log.Printf("init: could not prepare ledger row: %v (orderable=%d amount=%d)", err, orderable.OrderableKey(), amt)
		resp.Message = "Error occurred"
		resp.Errors = []string{"A problem prevented initialising payment, please try again"}
		return resp
	}
	resp.Transaction = txn

	params := p.intentParams(txn, amt, orderable, opts.Customer)

	if !opts.Customer.IsGuest() {
		pc, err := p.Customer().OrCreate(ctx, opts.Customer)
		if err != nil {
			log.Printf("init: could not resolve provider customer: %v (cashier=%s orderable=%d customer=%+v)", err, strOrEmpty(opts.CashierID), orderable.OrderableKey(), opts.Customer)
			resp.Message = "Error occurred"
			resp.Errors = []string{"There was an error while initialising payment. Please contact us"}
			return resp
		}
		params.Customer = stripe.String(pc.ProviderCustomerID)
		// off_session causes more declines, so future usage stays on_session.
		params.SetupFutureUsage = stripe.String(string(stripe.PaymentIntentSetupFutureUsageOnSession))

		if pmID := p.resolvePaymentMethod(pc, opts); pmID != "" {
			params.PaymentMethod = stripe.String(pmID)
		}
	}

	intent, err := p.createOrReuseIntent(ctx, txn.TransactionFamilyID, params)
	if err != nil {
		log.Printf("init: gateway error: %v (cashier=%s orderable=%d amount=%d transaction=%s customer=%+v)", err, strOrEmpty(opts.CashierID), orderable.OrderableKey(), amt, txn.Pid, opts.Customer)
		resp.Message = "Error occurred"
		resp.Errors = []string{"There was an error while initialising payment. Please contact us"}
		return resp
	}

	// Persist only on material change: a fresh row, a new intent binding or
	// a changed amount.
	changed := txn.ID == 0
	if txn.TransactionFamilyID != intent.ID || txn.OrderableAmount != amt {
		txn.TransactionFamilyID = intent.ID
		txn.OrderableAmount = amt
		txn.Amount = 0
		changed = true
	}
	if changed {
		if err := p.db.Save(txn).Error; err != nil {
			log.Printf("init: could not persist ledger row: %v (transaction=%s)", err, txn.Pid)
			resp.Message = "Error occurred"
			resp.Errors = []string{"A problem prevented initialising payment, please try again"}
			return resp
		}
	}

	resp.Success = intent.ClientSecret != ""
	resp.setClientSide("publishable_key", p.cfg.ActivePublishableKey())
	resp.setClientSide("client_secret", intent.ClientSecret)
	return resp
}

// initTransaction locates the pending placeholder row for the orderable or
// builds a new one. A caller-supplied row is used as-is.
func (p *Provider) initTransaction(orderable Orderable, amount int64, opts InitOptions, existing *models.Transaction) (*models.Transaction, error) {
	if existing != nil {
		return existing, nil
	}

	orderableID := orderable.OrderableKey()

	var pending models.Transaction
	err := p.db.
		Where("payment_provider = ?", p.Tag()).
		Where("transaction_family = ?", models.TransactionFamilyPayment).
		Where("COALESCE(orderable_id, 0) = ?", orderableID).
		Where("transaction_child_id IS NULL AND success = ? AND refund = ?", false, false).
		Order("id").
		First(&pending).Error
	if err == nil {
		return &pending, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// The pid goes into intent metadata before the row is persisted, so it
	// is assigned here rather than left to the create hook.
	txn := &models.Transaction{
		Pid:               uuid.NewString(),
		PaymentProvider:   p.Tag(),
		TransactionFamily: models.TransactionFamilyPayment,
		OrderableAmount:   amount,
		Currency:          orderable.OrderCurrency(),
		LocalStatus:       models.LocalStatusInit,
		Livemode:          p.Livemode(),
		CashierID:         opts.CashierID,
	}
	if orderableID != 0 {
		txn.OrderableID = &orderableID
	}
	if !opts.Customer.IsGuest() {
		userType := opts.Customer.UserType
		userID := opts.Customer.UserID
		txn.UserType = &userType
		txn.UserID = &userID
	}
	return txn, nil
}

// intentParams assembles the intent payload. Metadata carries enough to
// reconstruct the ledger row purely from gateway state if local storage is
// ever lost.
func (p *Provider) intentParams(txn *models.Transaction, amount int64, orderable Orderable, customer CustomerData) *stripe.PaymentIntentParams {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(txn.Currency),
	}

	params.AddMetadata("transaction_pid", txn.Pid)
	params.AddMetadata("orderable_id", strconv.FormatUint(uint64(orderable.OrderableKey()), 10))
	params.AddMetadata("orderable_amount", strconv.FormatInt(txn.OrderableAmount, 10))
	if txn.CashierID != nil {
		params.AddMetadata("cashier_id", *txn.CashierID)
	}
	params.AddMetadata("user_type", customer.UserType)
	params.AddMetadata("user_id", customer.UserID)

	if desc := orderable.OrderDescription(); desc != "" {
		params.Description = stripe.String(desc)
	} else {
		params.Description = stripe.String(fmt.Sprintf("Order #%d", orderable.OrderableKey()))
	}
	if customer.Email != "" {
		params.ReceiptEmail = stripe.String(customer.Email)
	}

	return params
}

// resolvePaymentMethod picks the saved instrument for the intent from the
// three precedence tiers. The first supplied tier wins.
func (p *Provider) resolvePaymentMethod(pc *models.ProviderCustomer, opts InitOptions) string {
	switch {
	case opts.PaymentMethodID != "":
		var pm models.ProviderPaymentMethod
		err := p.db.
			Where("customer_id = ?", pc.ID).
			Where("provider_payment_method_id = ?", opts.PaymentMethodID).
			First(&pm).Error
		if err == nil {
			return pm.ProviderPaymentMethodID
		}
	case opts.SavedPaymentMethodPid != "":
		var pm models.ProviderPaymentMethod
		err := p.db.
			Where("customer_id = ?", pc.ID).
			Where("pid = ?", opts.SavedPaymentMethodPid).
			First(&pm).Error
		if err == nil {
			return pm.ProviderPaymentMethodID
		}
	case opts.SavedPaymentMethodID != 0:
		var pm models.ProviderPaymentMethod
		err := p.db.
			Where("customer_id = ?", pc.ID).
			Where("id = ?", opts.SavedPaymentMethodID).
			First(&pm).Error
		if err == nil {
			return pm.ProviderPaymentMethodID
		}
	}
	return ""
}

// createOrReuseIntent updates the intent a row already references instead of
// minting a new one. Update failure of any kind falls back to creation;
// availability beats strict reuse here.
func (p *Provider) createOrReuseIntent(ctx context.Context, intentID string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	if intentID != "" {
		intent, err := p.gw.UpdateIntent(ctx, intentID, params)
		if err == nil {
			return intent, nil
		}
		log.Printf("init: could not reuse intent %s, creating a new one: %v", intentID, err)
	}
	return p.gw.CreateIntent(ctx, params)
}
