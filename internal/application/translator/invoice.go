package translator

import (
	"context"

	"github.com/google/uuid"
	"github.com/qbdsync/backend/internal/domain/qbd"
	"github.com/qbdsync/backend/internal/domain/qbxml"
	"github.com/qbdsync/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// unitQuantity is sent for every invoice line regardless of the stored
// quantity. TODO: send InvoiceLine.Quantity once the host application
// starts populating it.
var unitQuantity = decimal.NewFromInt(1)

type invoiceHandler struct {
	logger *zap.Logger
}

func (invoiceHandler) load(ctx context.Context, recs qbd.Records, realmID, id uuid.UUID) (qbd.Record, error) {
	return recs.Invoices().FindByID(ctx, realmID, id)
}

// customerRef nests the customer as a reference carrying only its ListID
func customerRef(ctx context.Context, recs qbd.Records, inv *qbd.Invoice) (*qbxml.Ref, error) {
	customer, err := recs.Customers().FindByID(ctx, inv.RealmID, inv.CustomerID)
	if err != nil {
		if isNotFound(err) {
			return nil, shared.NewLookupError("customer %s of invoice %s does not exist", inv.CustomerID, inv.ID)
		}
		return nil, err
	}
	if customer.ListIDOrEmpty() == "" {
		return nil, shared.NewLookupError("customer %s is not yet created in QuickBooks", customer.ID)
	}
	return qbxml.NewListRef(customer.ListIDOrEmpty()), nil
}

// wireAddress maps the flexible address map with empty-string fallbacks.
// A missing address still yields the base elements.
func wireAddress(a *qbd.Address) *qbxml.Address {
	if a == nil {
		return &qbxml.Address{}
	}
	return &qbxml.Address{
		Addr1:      a.Line("Addr1"),
		Addr2:      a.Line("Addr2"),
		Addr3:      a.Line("Addr3"),
		Addr4:      a.Line("Addr4"),
		Addr5:      a.Line("Addr5"),
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		Note:       a.Note,
	}
}

func shipAddress(inv *qbd.Invoice) *qbxml.Address {
	if inv.ShipAddress.IsEmpty() {
		return nil
	}
	return wireAddress(inv.ShipAddress)
}

// itemRef resolves a line's service item; lines without an item carry no ItemRef
func itemRef(ctx context.Context, recs qbd.Records, line qbd.InvoiceLine) (*qbxml.Ref, error) {
	if line.ItemServiceID == nil {
		return nil, nil
	}
	item, err := recs.ItemServices().FindByID(ctx, line.RealmID, *line.ItemServiceID)
	if err != nil {
		if isNotFound(err) {
			return nil, shared.NewLookupError("item service %s of invoice line %s does not exist", *line.ItemServiceID, line.ID)
		}
		return nil, err
	}
	if item.ListIDOrEmpty() == "" {
		return nil, shared.NewLookupError("item service %s is not yet created in QuickBooks", item.ID)
	}
	return qbxml.NewListRef(item.ListIDOrEmpty()), nil
}

func (invoiceHandler) addPayload(ctx context.Context, recs qbd.Records, rec qbd.Record) (any, error) {
	inv := rec.(*qbd.Invoice)
	ref, err := customerRef(ctx, recs, inv)
	if err != nil {
		return nil, err
	}

	lines := make([]qbxml.InvoiceLineAdd, 0, len(inv.Lines))
	for _, line := range inv.Lines {
		item, err := itemRef(ctx, recs, line)
		if err != nil {
			return nil, err
		}
		lines = append(lines, qbxml.InvoiceLineAdd{
			ItemRef:  item,
			Desc:     line.Note,
			Quantity: qbxml.NewQuantity(unitQuantity),
			Rate:     qbxml.NewAmount(line.Rate),
		})
	}

	return qbxml.InvoiceAdd{
		CustomerRef: ref,
		TxnDate:     qbxml.NewDate(inv.TxnDate),
		RefNumber:   inv.RefNumber,
		BillAddress: wireAddress(inv.BillAddress),
		ShipAddress: shipAddress(inv),
		IsPending:   inv.IsPending,
		DueDate:     qbxml.NewDate(inv.DueDate),
		Memo:        inv.Memo,
		Lines:       lines,
	}, nil
}

func (invoiceHandler) modPayload(ctx context.Context, recs qbd.Records, rec qbd.Record) (any, error) {
	inv := rec.(*qbd.Invoice)
	ref, err := customerRef(ctx, recs, inv)
	if err != nil {
		return nil, err
	}

	lines := make([]qbxml.InvoiceLineMod, 0, len(inv.Lines))
	for _, line := range inv.Lines {
		item, err := itemRef(ctx, recs, line)
		if err != nil {
			return nil, err
		}
		txnLineID := line.TxnLineIDOrEmpty()
		if txnLineID == "" {
			txnLineID = qbxml.NewLineID
		}
		lines = append(lines, qbxml.InvoiceLineMod{
			TxnLineID: txnLineID,
			ItemRef:   item,
			Desc:      line.Note,
			Quantity:  qbxml.NewQuantity(unitQuantity),
			Rate:      qbxml.NewAmount(line.Rate),
		})
	}

	return qbxml.InvoiceMod{
		TxnID:        inv.TxnID(),
		EditSequence: inv.EditSequenceOrEmpty(),
		CustomerRef:  ref,
		TxnDate:      qbxml.NewDate(inv.TxnDate),
		RefNumber:    inv.RefNumber,
		BillAddress:  wireAddress(inv.BillAddress),
		ShipAddress:  shipAddress(inv),
		IsPending:    inv.IsPending,
		DueDate:      qbxml.NewDate(inv.DueDate),
		Memo:         inv.Memo,
		Lines:        lines,
	}, nil
}

func (invoiceHandler) apply(_ context.Context, _ qbd.Records, rec qbd.Record, rs *qbxml.Response) error {
	if len(rs.Invoices) == 0 {
		return shared.NewProtocolError("%s carries no InvoiceRet", rs.XMLName.Local)
	}
	return applyInvoiceRet(rec.(*qbd.Invoice), &rs.Invoices[0])
}

// applyInvoiceRet copies a returned invoice. Line ids are matched by
// position, which is how QuickBooks echoes lines back.
func applyInvoiceRet(inv *qbd.Invoice, ret *qbxml.InvoiceRet) error {
	if err := inv.ApplyExternalState(ret.TxnID, ret.EditSequence); err != nil {
		return err
	}
	inv.TimeCreated = ret.TimeCreated.Ptr()
	inv.TimeModified = ret.TimeModified.Ptr()
	inv.IsPending = boolOr(ret.IsPending, inv.IsPending)
	if ret.TxnDate != nil {
		inv.TxnDate = ret.TxnDate.Ptr()
	}
	if ret.DueDate != nil {
		inv.DueDate = ret.DueDate.Ptr()
	}
	if ret.RefNumber != "" {
		inv.RefNumber = ret.RefNumber
	}
	if len(ret.Lines) == len(inv.Lines) {
		for i := range ret.Lines {
			if id := ret.Lines[i].TxnLineID; id != "" {
				inv.Lines[i].TxnLineID = &id
			}
		}
	}
	inv.Touch()
	return nil
}

// importAll refreshes invoices that are already linked. Invoices unknown
// locally are skipped; they have no local customer mapping to attach to.
func (h invoiceHandler) importAll(ctx context.Context, recs qbd.Records, realmID uuid.UUID, rs *qbxml.Response) (Outcome, error) {
	var out Outcome
	repo := recs.Invoices()

	for i := range rs.Invoices {
		ret := &rs.Invoices[i]
		inv, err := repo.FindByListID(ctx, realmID, ret.TxnID)
		if isNotFound(err) {
			h.logger.Debug("skipping invoice unknown locally", zap.String("txn_id", ret.TxnID))
			out.Skipped++
			continue
		}
		if err != nil {
			return out, err
		}
		if err := applyInvoiceRet(inv, ret); err != nil {
			out.Skipped++
			continue
		}
		if err := repo.Save(ctx, inv); err != nil {
			return out, err
		}
		out.Updated++
	}
	return out, nil
}
