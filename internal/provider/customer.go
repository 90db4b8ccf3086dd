package provider

import (
	"context"
	"errors"
	"log"

	"github.com/stripe/stripe-go/v76"
	"gorm.io/gorm"

	"paybridge/internal/models"
)

// CustomerService manages the mapping between internal identities and
// gateway customer objects.
type CustomerService struct {
	p *Provider
}

// Customer returns the provider's customer capability.
func (p *Provider) Customer() *CustomerService {
	return &CustomerService{p: p}
}

// OrCreate returns the provider customer for the identity, creating the
// gateway customer and the local mapping on first use.
func (s *CustomerService) OrCreate(ctx context.Context, data CustomerData) (*models.ProviderCustomer, error) {
	pc, err := s.fromCustomerData(data)
	if err != nil {
		return nil, err
	}
	if pc != nil {
		return pc, nil
	}

	params := &stripe.CustomerParams{}
	params.AddMetadata("user_type", data.UserType)
	params.AddMetadata("user_id", data.UserID)
	if data.Email != "" {
		params.Email = stripe.String(data.Email)
	}

	stripeCustomer, err := s.p.gw.CreateCustomer(ctx, params)
	if err != nil {
		return nil, err
	}

	return s.recordCustomer(stripeCustomer, data)
}

// Create is the response-shaped wrapper around OrCreate.
func (s *CustomerService) Create(ctx context.Context, data CustomerData) *CustomerResponse {
	resp := &CustomerResponse{}

	pc, err := s.OrCreate(ctx, data)
	if err != nil {
		log.Printf("customer: could not create provider customer: %v (customer=%+v)", err, data)
		resp.Message = "Could not create or retrieve customer"
		return resp
	}

	resp.Customer = pc
	resp.Success = true
	return resp
}

// Delete removes the customer at the gateway and then deletes the local
// mapping.
func (s *CustomerService) Delete(ctx context.Context, pc *models.ProviderCustomer) *CustomerResponse {
	resp := &CustomerResponse{}

	if err := s.p.gw.DeleteCustomer(ctx, pc.ProviderCustomerID); err != nil {
		log.Printf("customer: could not delete gateway customer %s: %v", pc.ProviderCustomerID, err)
		resp.Message = "Could not delete customer"
		return resp
	}

	if err := s.deleteLocal(pc); err != nil {
		log.Printf("customer: could not delete local customer %s: %v", pc.Pid, err)
		resp.Message = "Could not delete customer"
		return resp
	}

	resp.Success = true
	return resp
}

// WebhookDeleted mirrors a customer deletion reported by the gateway. The
// embedded object is trusted directly; this is a state mirror, not a
// money-movement confirmation.
func (s *CustomerService) WebhookDeleted(ctx context.Context, customer *stripe.Customer) bool {
	if customer == nil || !customer.Deleted {
		return false
	}

	pc, err := s.p.customerFromGatewayID(customer.ID)
	if err != nil {
		log.Printf("customer: lookup failed for webhook deletion of %s: %v", customer.ID, err)
		return false
	}
	if pc == nil {
		// Already gone; nothing to mirror.
		return true
	}

	if err := s.deleteLocal(pc); err != nil {
		log.Printf("customer: could not delete local customer %s: %v", pc.Pid, err)
		return false
	}
	return true
}

func (s *CustomerService) deleteLocal(pc *models.ProviderCustomer) error {
	// Saved instruments belong to exactly one customer and go with it.
	if err := s.p.db.Where("customer_id = ?", pc.ID).Delete(&models.ProviderPaymentMethod{}).Error; err != nil {
		return err
	}
	return s.p.db.Delete(pc).Error
}

func (s *CustomerService) fromCustomerData(data CustomerData) (*models.ProviderCustomer, error) {
	var pc models.ProviderCustomer
	err := s.p.db.
		Where("payment_provider = ?", s.p.Tag()).
		Where("user_type = ? AND user_id = ?", data.UserType, data.UserID).
		First(&pc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pc, nil
}

func (s *CustomerService) recordCustomer(stripeCustomer *stripe.Customer, data CustomerData) (*models.ProviderCustomer, error) {
	pc, err := s.p.customerFromGatewayID(stripeCustomer.ID)
	if err != nil {
		return nil, err
	}
	if pc != nil {
		return pc, nil
	}

	pc = &models.ProviderCustomer{
		PaymentProvider:    s.p.Tag(),
		ProviderCustomerID: stripeCustomer.ID,
		UserType:           data.UserType,
		UserID:             data.UserID,
	}
	if err := s.p.db.Create(pc).Error; err != nil {
		return nil, err
	}
	return pc, nil
}

// customerFromGatewayID looks up the local mapping for a gateway customer id.
func (p *Provider) customerFromGatewayID(gatewayCustomerID string) (*models.ProviderCustomer, error) {
	var pc models.ProviderCustomer
	err := p.db.
		Where("payment_provider = ?", p.Tag()).
		Where("provider_customer_id = ?", gatewayCustomerID).
		First(&pc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pc, nil
}

// customerDataFromTransaction rebuilds the identity a row was recorded for.
func customerDataFromTransaction(txn *models.Transaction) CustomerData {
	var data CustomerData
	if txn.UserType != nil {
		data.UserType = *txn.UserType
	}
	if txn.UserID != nil {
		data.UserID = *txn.UserID
	}
	return data
}
