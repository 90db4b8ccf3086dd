package provider

import (
	"context"
	"errors"
	"log"

	"github.com/stripe/stripe-go/v76"
	"gorm.io/gorm"

	"paybridge/internal/models"
)

// PaymentMethodService manages saved card instruments for one identity.
type PaymentMethodService struct {
	p        *Provider
	customer CustomerData
}

// PaymentMethod returns the saved-instrument capability scoped to an identity.
func (p *Provider) PaymentMethod(customer CustomerData) *PaymentMethodService {
	return &PaymentMethodService{p: p, customer: customer}
}

// WebhookPaymentMethod returns an identity-less service for mirroring
// gateway-originated payment method events.
func (p *Provider) WebhookPaymentMethod() *PaymentMethodService {
	return &PaymentMethodService{p: p}
}

// Init has no gateway work to do for card instruments; collection happens
// client side against the publishable key.
func (s *PaymentMethodService) Init(ctx context.Context) *PaymentMethodResponse {
	return &PaymentMethodResponse{Success: true}
}

// Save attaches the gateway payment method to the identity's customer and
// records it locally.
func (s *PaymentMethodService) Save(ctx context.Context, paymentMethodID string) *PaymentMethodResponse {
	resp := &PaymentMethodResponse{}

	if s.customer.IsGuest() {
		resp.Message = "Cannot save a payment method for a guest"
		return resp
	}

	pc, err := s.p.Customer().OrCreate(ctx, s.customer)
	if err != nil {
		log.Printf("payment method: could not resolve customer for save: %v (customer=%+v)", err, s.customer)
		resp.Message = "Could not save payment method"
		return resp
	}

	pm, err := s.p.gw.AttachPaymentMethod(ctx, paymentMethodID, pc.ProviderCustomerID)
	if err != nil {
		log.Printf("payment method: could not attach %s to %s: %v", paymentMethodID, pc.ProviderCustomerID, err)
		resp.Message = "Could not save payment method"
		return resp
	}

	local, err := s.upsert(pc, pm)
	if err != nil {
		log.Printf("payment method: could not record %s locally: %v", pm.ID, err)
		resp.Message = "Could not save payment method"
		return resp
	}

	resp.PaymentMethod = local
	resp.Success = true
	return resp
}

// Remove detaches the instrument at the gateway and deletes the local row.
func (s *PaymentMethodService) Remove(ctx context.Context, local *models.ProviderPaymentMethod) *PaymentMethodResponse {
	resp := &PaymentMethodResponse{}

	if _, err := s.p.gw.DetachPaymentMethod(ctx, local.ProviderPaymentMethodID); err != nil {
		log.Printf("payment method: could not detach %s: %v", local.ProviderPaymentMethodID, err)
		resp.Message = "Could not remove payment method"
		return resp
	}

	if err := s.p.db.Delete(local).Error; err != nil {
		log.Printf("payment method: could not delete local row %s: %v", local.Pid, err)
		resp.Message = "Could not remove payment method"
		return resp
	}

	resp.Success = true
	return resp
}

// SyncAll reconciles the local rows for the identity against the gateway's
// list of attached card instruments. Gateway state wins: unknown instruments
// are recorded and stale local rows are deleted.
func (s *PaymentMethodService) SyncAll(ctx context.Context) *PaymentMethodResponse {
	resp := &PaymentMethodResponse{}

	pc, err := s.p.Customer().OrCreate(ctx, s.customer)
	if err != nil {
		log.Printf("payment method: could not resolve customer for sync: %v (customer=%+v)", err, s.customer)
		resp.Message = "Could not sync payment methods"
		return resp
	}

	remote, err := s.p.gw.ListCustomerPaymentMethods(ctx, pc.ProviderCustomerID)
	if err != nil {
		log.Printf("payment method: could not list gateway methods for %s: %v", pc.ProviderCustomerID, err)
		resp.Message = "Could not sync payment methods"
		return resp
	}

	seen := map[string]bool{}
	for _, pm := range remote {
		seen[pm.ID] = true
		if _, err := s.upsert(pc, pm); err != nil {
			log.Printf("payment method: could not record %s during sync: %v", pm.ID, err)
			resp.Message = "Could not sync payment methods"
			return resp
		}
	}

	var stale []models.ProviderPaymentMethod
	if err := s.p.db.Where("customer_id = ?", pc.ID).Find(&stale).Error; err != nil {
		log.Printf("payment method: could not list local methods for %s: %v", pc.Pid, err)
		resp.Message = "Could not sync payment methods"
		return resp
	}
	for i := range stale {
		if seen[stale[i].ProviderPaymentMethodID] {
			continue
		}
		if err := s.p.db.Delete(&stale[i]).Error; err != nil {
			log.Printf("payment method: could not delete stale row %s: %v", stale[i].Pid, err)
			resp.Message = "Could not sync payment methods"
			return resp
		}
	}

	resp.Success = true
	return resp
}

// WebhookUpdatedOrAttached mirrors an attach/update event. The instrument is
// only recorded when its customer already maps to a local identity.
func (s *PaymentMethodService) WebhookUpdatedOrAttached(ctx context.Context, pm *stripe.PaymentMethod) bool {
	if pm == nil || pm.Customer == nil || pm.Customer.ID == "" {
		return false
	}

	pc, err := s.p.customerFromGatewayID(pm.Customer.ID)
	if err != nil {
		log.Printf("payment method: lookup failed for webhook attach of %s: %v", pm.ID, err)
		return false
	}
	if pc == nil {
		// Not a customer of ours; nothing to mirror.
		return true
	}

	if _, err := s.upsert(pc, pm); err != nil {
		log.Printf("payment method: could not record %s from webhook: %v", pm.ID, err)
		return false
	}
	return true
}

// WebhookDetached mirrors a detach event. The detached payload no longer
// carries the customer, so the local row is found by matching every card
// attribute; an ambiguous match is left alone and alerted on.
func (s *PaymentMethodService) WebhookDetached(ctx context.Context, pm *stripe.PaymentMethod) bool {
	if pm == nil {
		return false
	}

	var matches []models.ProviderPaymentMethod
	q := s.p.db.
		Where("provider_payment_method_id = ?", pm.ID).
		Where("type = ?", string(pm.Type))
	if pm.Card != nil {
		q = q.
			Where("last_four = ?", pm.Card.Last4).
			Where("country_code = ?", pm.Card.Country).
			Where("brand = ?", string(pm.Card.Brand)).
			Where("exp_month = ?", pm.Card.ExpMonth).
			Where("exp_year = ?", pm.Card.ExpYear)
	}
	if err := q.Find(&matches).Error; err != nil {
		log.Printf("payment method: lookup failed for webhook detach of %s: %v", pm.ID, err)
		return false
	}

	switch len(matches) {
	case 0:
		// Nothing to remove; already converged.
		return true
	case 1:
		if err := s.p.db.Delete(&matches[0]).Error; err != nil {
			log.Printf("payment method: could not delete %s on webhook detach: %v", matches[0].Pid, err)
			return false
		}
		return true
	default:
		log.Printf("ALERT: multiple local payment methods match detached instrument %s; none removed", pm.ID)
		return true
	}
}

// upsert records the gateway instrument under the customer, updating the row
// if the instrument is already known.
func (s *PaymentMethodService) upsert(pc *models.ProviderCustomer, pm *stripe.PaymentMethod) (*models.ProviderPaymentMethod, error) {
	var local models.ProviderPaymentMethod
	err := s.p.db.
		Where("customer_id = ?", pc.ID).
		Where("provider_payment_method_id = ?", pm.ID).
		First(&local).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	created := errors.Is(err, gorm.ErrRecordNotFound)

	local.PaymentProvider = s.p.Tag()
	local.CustomerID = pc.ID
	local.ProviderPaymentMethodID = pm.ID
	local.Type = string(pm.Type)
	local.Livemode = pm.Livemode
	if pm.Card != nil {
		local.Brand = string(pm.Card.Brand)
		local.LastFour = pm.Card.Last4
		local.CountryCode = pm.Card.Country
		local.ExpMonth = pm.Card.ExpMonth
		local.ExpYear = pm.Card.ExpYear
	}

	if created {
		if err := s.p.db.Create(&local).Error; err != nil {
			return nil, err
		}
		return &local, nil
	}
	if err := s.p.db.Save(&local).Error; err != nil {
		return nil, err
	}
	return &local, nil
}
