package qbd

import (
	"github.com/google/uuid"
	"github.com/qbdsync/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// maxRate is the exclusive bound of a decimal(8,2) column
var maxRate = decimal.NewFromInt(1_000_000)

// InvoiceLine is one charge on an invoice
type InvoiceLine struct {
	ID            uuid.UUID
	RealmID       uuid.UUID
	InvoiceID     uuid.UUID
	ItemServiceID *uuid.UUID
	Rate          decimal.Decimal
	Quantity      decimal.Decimal
	Note          string
	TxnLineID     *string
	ExternalID    string
}

// NewInvoiceLine creates a line with a unit quantity
func NewInvoiceLine(realmID, invoiceID uuid.UUID, itemServiceID *uuid.UUID, rate decimal.Decimal, note string) (*InvoiceLine, error) {
	if rate.IsNegative() || rate.Abs().GreaterThanOrEqual(maxRate) {
		return nil, shared.NewDomainError("INVALID_RATE", "Rate must be between 0 and 999999.99")
	}
	if len(note) > 150 {
		return nil, shared.NewDomainError("INVALID_NOTE", "Note cannot exceed 150 characters")
	}
	return &InvoiceLine{
		ID:            uuid.New(),
		RealmID:       realmID,
		InvoiceID:     invoiceID,
		ItemServiceID: itemServiceID,
		Rate:          rate.Round(2),
		Quantity:      decimal.NewFromInt(1),
		Note:          note,
	}, nil
}

// Amount is rate times quantity
func (l InvoiceLine) Amount() decimal.Decimal {
	return l.Rate.Mul(l.Quantity)
}

// TxnLineIDOrEmpty returns the QuickBooks line id, or "" for lines not yet synced
func (l InvoiceLine) TxnLineIDOrEmpty() string {
	if l.TxnLineID == nil {
		return ""
	}
	return *l.TxnLineID
}
