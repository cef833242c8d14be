package translator

import (
	"context"

	"github.com/google/uuid"
	"github.com/qbdsync/backend/internal/domain/qbd"
	"github.com/qbdsync/backend/internal/domain/qbxml"
	"github.com/qbdsync/backend/internal/domain/shared"
)

type customerHandler struct{}

func (customerHandler) load(ctx context.Context, recs qbd.Records, realmID, id uuid.UUID) (qbd.Record, error) {
	return recs.Customers().FindByID(ctx, realmID, id)
}

func customerFields(c *qbd.Customer) qbxml.CustomerFields {
	active := c.IsActive
	return qbxml.CustomerFields{
		Name:        c.Name,
		IsActive:    &active,
		CompanyName: c.CompanyName,
		Phone:       c.Phone,
		AltPhone:    c.AltPhone,
		Fax:         c.Fax,
		Email:       c.Email,
		Contact:     c.Contact,
		AltContact:  c.AltContact,
	}
}

func (customerHandler) addPayload(_ context.Context, _ qbd.Records, rec qbd.Record) (any, error) {
	return qbxml.CustomerAdd{CustomerFields: customerFields(rec.(*qbd.Customer))}, nil
}

func (customerHandler) modPayload(_ context.Context, _ qbd.Records, rec qbd.Record) (any, error) {
	c := rec.(*qbd.Customer)
	return qbxml.CustomerMod{
		ListID:         c.ListIDOrEmpty(),
		EditSequence:   c.EditSequenceOrEmpty(),
		CustomerFields: customerFields(c),
	}, nil
}

func (customerHandler) apply(_ context.Context, _ qbd.Records, rec qbd.Record, rs *qbxml.Response) error {
	if len(rs.Customers) == 0 {
		return shared.NewProtocolError("%s carries no CustomerRet", rs.XMLName.Local)
	}
	return applyCustomerRet(rec.(*qbd.Customer), &rs.Customers[0])
}

// applyCustomerRet copies a returned customer onto the local record
func applyCustomerRet(c *qbd.Customer, ret *qbxml.CustomerRet) error {
	if err := c.ApplyExternalState(ret.ListID, ret.EditSequence); err != nil {
		return err
	}
	if ret.Name != "" {
		c.Name = ret.Name
	}
	if ret.FullName != "" {
		c.FullName = ret.FullName
	}
	c.IsActive = boolOr(ret.IsActive, c.IsActive)
	c.CompanyName = ret.CompanyName
	c.Phone = ret.Phone
	c.AltPhone = ret.AltPhone
	c.Fax = ret.Fax
	c.Email = ret.Email
	c.Contact = ret.Contact
	c.AltContact = ret.AltContact
	c.TimeCreated = ret.TimeCreated.Ptr()
	c.TimeModified = ret.TimeModified.Ptr()
	c.Touch()
	return nil
}

// importAll links returned customers to local ones by ListID, then by name,
// and creates the rest.
func (customerHandler) importAll(ctx context.Context, recs qbd.Records, realmID uuid.UUID, rs *qbxml.Response) (Outcome, error) {
	var out Outcome
	repo := recs.Customers()

	for i := range rs.Customers {
		ret := &rs.Customers[i]
		c, err := repo.FindByListID(ctx, realmID, ret.ListID)
		if isNotFound(err) {
			c, err = repo.FindByName(ctx, realmID, ret.Name)
		}
		created := false
		if isNotFound(err) {
			c, err = qbd.NewCustomer(realmID, ret.Name)
			if err != nil {
				out.Skipped++
				continue
			}
			created = true
		}
		if err != nil {
			return out, err
		}

		if err := applyCustomerRet(c, ret); err != nil {
			out.Skipped++
			continue
		}
		if err := repo.Save(ctx, c); err != nil {
			return out, err
		}
		if created {
			out.Created++
		} else {
			out.Updated++
		}
	}
	return out, nil
}
