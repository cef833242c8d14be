package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/qbdsync/backend/internal/domain/qbd"
	"github.com/qbdsync/backend/internal/domain/shared"
	"github.com/qbdsync/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormInvoiceRepository implements qbd.InvoiceRepository using GORM.
// An invoice spans invoices, invoice_lines, bill_addresses and ship_addresses.
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

func (r *GormInvoiceRepository) findOne(ctx context.Context, query string, args ...any) (*qbd.Invoice, error) {
	db := r.db.WithContext(ctx)

	var header models.InvoiceModel
	if err := db.Where(query, args...).First(&header).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	inv := header.ToDomain()

	var lines []models.InvoiceLineModel
	if err := db.Where("invoice_id = ?", inv.ID).Order("position ASC").Find(&lines).Error; err != nil {
		return nil, err
	}
	inv.Lines = make([]qbd.InvoiceLine, len(lines))
	for i := range lines {
		inv.Lines[i] = lines[i].ToDomain()
	}

	var bill models.BillAddressModel
	if err := db.Where("invoice_id = ?", inv.ID).Limit(1).Find(&bill).Error; err != nil {
		return nil, err
	}
	if bill.ID != uuid.Nil {
		inv.BillAddress = bill.ToDomain()
	}

	var ship models.ShipAddressModel
	if err := db.Where("invoice_id = ?", inv.ID).Limit(1).Find(&ship).Error; err != nil {
		return nil, err
	}
	if ship.ID != uuid.Nil {
		inv.ShipAddress = ship.ToDomain()
	}
	return inv, nil
}

// FindByID finds an invoice with its lines and addresses
func (r *GormInvoiceRepository) FindByID(ctx context.Context, realmID, id uuid.UUID) (*qbd.Invoice, error) {
	return r.findOne(ctx, "realm_id = ? AND id = ?", realmID, id)
}

// FindByListID finds an invoice by its QuickBooks TxnID
func (r *GormInvoiceRepository) FindByListID(ctx context.Context, realmID uuid.UUID, txnID string) (*qbd.Invoice, error) {
	if txnID == "" {
		return nil, shared.ErrNotFound
	}
	return r.findOne(ctx, "realm_id = ? AND list_id = ?", realmID, txnID)
}

// Save writes the header, replaces removed lines and upserts the addresses
func (r *GormInvoiceRepository) Save(ctx context.Context, inv *qbd.Invoice) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(models.InvoiceModelFromDomain(inv)).Error; err != nil {
			return err
		}

		keep := make([]uuid.UUID, 0, len(inv.Lines))
		for i, line := range inv.Lines {
			if err := tx.Save(models.InvoiceLineModelFromDomain(line, i)).Error; err != nil {
				return err
			}
			keep = append(keep, line.ID)
		}
		removed := tx.Where("invoice_id = ?", inv.ID)
		if len(keep) > 0 {
			removed = removed.Where("id NOT IN ?", keep)
		}
		if err := removed.Delete(&models.InvoiceLineModel{}).Error; err != nil {
			return err
		}

		if err := saveAddress(tx, inv.ID, inv.BillAddress, &models.BillAddressModel{}); err != nil {
			return err
		}
		return saveAddress(tx, inv.ID, inv.ShipAddress, &models.ShipAddressModel{})
	})
}

// saveAddress upserts or removes the invoice's single address of one kind
func saveAddress(tx *gorm.DB, invoiceID uuid.UUID, a *qbd.Address, table any) error {
	if a == nil {
		return tx.Where("invoice_id = ?", invoiceID).Delete(table).Error
	}
	if err := tx.Where("invoice_id = ? AND id <> ?", invoiceID, a.ID).Delete(table).Error; err != nil {
		return err
	}
	base := models.AddressModelFromDomain(a)
	switch table.(type) {
	case *models.BillAddressModel:
		return tx.Save(&models.BillAddressModel{AddressModel: base}).Error
	case *models.ShipAddressModel:
		return tx.Save(&models.ShipAddressModel{AddressModel: base}).Error
	}
	return nil
}

var _ qbd.InvoiceRepository = (*GormInvoiceRepository)(nil)
