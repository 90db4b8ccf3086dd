package provider

import (
	"errors"

	"gorm.io/gorm"

	"paybridge/internal/models"
)

// findExisting locates the single ledger row a candidate transaction should
// update, or nil when the candidate is new.
//
// The natural key is (payment_provider, transaction_family,
// transaction_family_id, COALESCE(orderable_id,0)). Within that key a row
// matches when it is the pending placeholder (no child id, not successful)
// or when its child id equals the candidate's. A placeholder is therefore
// upgraded in place while distinct successful children (two refunds on the
// same intent) stay distinct rows.
func (p *Provider) findExisting(candidate *models.Transaction) (*models.Transaction, error) {
	q := p.db.
		Where("payment_provider = ?", candidate.PaymentProvider).
		Where("transaction_family = ?", candidate.TransactionFamily).
		Where("transaction_family_id = ?", candidate.TransactionFamilyID).
		Where("COALESCE(orderable_id, 0) = ?", candidate.OrderableKey())

	if candidate.TransactionChildID != nil {
		q = q.Where(
			p.db.Where("transaction_child_id IS NULL AND success = ?", false).
				Or("transaction_child_id = ?", *candidate.TransactionChildID),
		)
	} else {
		q = q.Where("transaction_child_id IS NULL AND success = ?", false)
	}

	var existing models.Transaction
	// The unique index on the natural key makes more than one match a schema
	// violation; ordering by id keeps the result deterministic regardless.
	err := q.Order("id").First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &existing, nil
}

// reconcileCandidate writes the candidate's gateway-derived fields onto the
// matching ledger row, or inserts the candidate when no row matches. It
// returns the persisted row.
func (p *Provider) reconcileCandidate(candidate *models.Transaction) (*models.Transaction, error) {
	existing, err := p.findExisting(candidate)
	if err != nil {
		return nil, err
	}

	row := candidate
	if existing != nil {
		existing.Currency = candidate.Currency
		existing.Amount = candidate.Amount
		existing.OrderableAmount = candidate.OrderableAmount
		existing.AmountRefunded = candidate.AmountRefunded
		existing.Refund = candidate.Refund
		existing.CashierID = candidate.CashierID
		existing.UserType = candidate.UserType
		existing.UserID = candidate.UserID
		existing.TransactionFamily = candidate.TransactionFamily
		existing.TransactionFamilyID = candidate.TransactionFamilyID
		existing.TransactionChildID = candidate.TransactionChildID
		existing.LocalStatus = candidate.LocalStatus
		existing.Status = candidate.Status
		existing.Success = candidate.Success
		existing.OrderableID = candidate.OrderableID
		existing.PaymentProvider = candidate.PaymentProvider
		existing.ParentID = candidate.ParentID
		existing.DisplayOnly = candidate.DisplayOnly
		existing.Livemode = candidate.Livemode
		row = existing
	}

	if err := p.db.Save(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}
