package qbd

import (
	"time"

	"github.com/google/uuid"
	"github.com/qbdsync/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Invoice is a QuickBooks sales transaction. ExternalRef.ListID holds the TxnID.
type Invoice struct {
	shared.RealmEntity
	ExternalRef
	CustomerID        uuid.UUID
	TxnDate           *time.Time
	DueDate           *time.Time
	IsPending         bool
	Memo              string
	RefNumber         string
	BillAddress       *Address
	ShipAddress       *Address
	Lines             []InvoiceLine
	TimeCreated       *time.Time
	TimeModified      *time.Time
	ExternalID        string
	ExternalUpdatedAt *time.Time
}

// NewInvoice creates an invoice for an existing customer
func NewInvoice(realmID, customerID uuid.UUID) (*Invoice, error) {
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Invoice requires a customer")
	}
	return &Invoice{
		RealmEntity: shared.NewRealmEntity(realmID),
		CustomerID:  customerID,
		Lines:       make([]InvoiceLine, 0),
	}, nil
}

// Resource implements Record
func (i *Invoice) Resource() ResourceType { return ResourceInvoice }

// External implements Record
func (i *Invoice) External() *ExternalRef { return &i.ExternalRef }

// TxnID returns the QuickBooks transaction id, or "" when not yet created
func (i *Invoice) TxnID() string {
	return i.ListIDOrEmpty()
}

// SetDates sets the transaction and due dates
func (i *Invoice) SetDates(txnDate, dueDate *time.Time) error {
	if txnDate != nil && dueDate != nil && dueDate.Before(*txnDate) {
		return shared.NewDomainError("INVALID_DUE_DATE", "Due date cannot be before the transaction date")
	}
	i.TxnDate = txnDate
	i.DueDate = dueDate
	i.Touch()
	return nil
}

// SetMemo sets the free-text memo
func (i *Invoice) SetMemo(memo string) error {
	if len(memo) > 4095 {
		return shared.NewDomainError("INVALID_MEMO", "Memo cannot exceed 4095 characters")
	}
	i.Memo = memo
	i.Touch()
	return nil
}

// SetPending marks the invoice as pending (non-posting) in QuickBooks
func (i *Invoice) SetPending(pending bool) {
	i.IsPending = pending
	i.Touch()
}

// SetBillAddress attaches the billing address
func (i *Invoice) SetBillAddress(a Address) {
	a.InvoiceID = i.ID
	if a.ID == uuid.Nil && i.BillAddress != nil {
		a.ID = i.BillAddress.ID
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	i.BillAddress = &a
	i.Touch()
}

// SetShipAddress attaches the shipping address
func (i *Invoice) SetShipAddress(a Address) {
	a.InvoiceID = i.ID
	if a.ID == uuid.Nil && i.ShipAddress != nil {
		a.ID = i.ShipAddress.ID
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	i.ShipAddress = &a
	i.Touch()
}

// AddLine appends a charge line. itemServiceID may be nil when the item was removed.
func (i *Invoice) AddLine(itemServiceID *uuid.UUID, rate decimal.Decimal, note string) (*InvoiceLine, error) {
	line, err := NewInvoiceLine(i.RealmID, i.ID, itemServiceID, rate, note)
	if err != nil {
		return nil, err
	}
	i.Lines = append(i.Lines, *line)
	i.Touch()
	return &i.Lines[len(i.Lines)-1], nil
}

// Total sums line amounts
func (i *Invoice) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range i.Lines {
		total = total.Add(l.Amount())
	}
	return total
}
