package translator

import (
	"context"

	"github.com/google/uuid"
	"github.com/qbdsync/backend/internal/domain/qbd"
	"github.com/qbdsync/backend/internal/domain/qbxml"
	"github.com/qbdsync/backend/internal/domain/shared"
)

type itemServiceHandler struct{}

func (itemServiceHandler) load(ctx context.Context, recs qbd.Records, realmID, id uuid.UUID) (qbd.Record, error) {
	return recs.ItemServices().FindByID(ctx, realmID, id)
}

// salesOrPurchase resolves the income account, which must already exist in QuickBooks
func salesOrPurchase(ctx context.Context, recs qbd.Records, s *qbd.ItemService) (*qbxml.SalesOrPurchase, error) {
	if s.AccountID == nil {
		return nil, shared.NewLookupError("item service %s has no income account", s.ID)
	}
	account, err := recs.Accounts().FindByID(ctx, s.RealmID, *s.AccountID)
	if err != nil {
		if isNotFound(err) {
			return nil, shared.NewLookupError("account %s does not exist", *s.AccountID)
		}
		return nil, err
	}
	if account.ListIDOrEmpty() == "" {
		return nil, shared.NewLookupError("account %s is not yet created in QuickBooks", account.ID)
	}

	sp := &qbxml.SalesOrPurchase{
		Desc:       s.Description,
		AccountRef: qbxml.NewListRef(account.ListIDOrEmpty()),
	}
	if s.Price != nil {
		sp.Price = qbxml.NewAmount(*s.Price)
	}
	return sp, nil
}

func (itemServiceHandler) addPayload(ctx context.Context, recs qbd.Records, rec qbd.Record) (any, error) {
	s := rec.(*qbd.ItemService)
	sp, err := salesOrPurchase(ctx, recs, s)
	if err != nil {
		return nil, err
	}
	return qbxml.ItemServiceAdd{
		Name:            s.Name,
		IsActive:        s.IsActive,
		SalesOrPurchase: sp,
	}, nil
}

func (itemServiceHandler) modPayload(ctx context.Context, recs qbd.Records, rec qbd.Record) (any, error) {
	s := rec.(*qbd.ItemService)
	sp, err := salesOrPurchase(ctx, recs, s)
	if err != nil {
		return nil, err
	}
	return qbxml.ItemServiceMod{
		ListID:          s.ListIDOrEmpty(),
		EditSequence:    s.EditSequenceOrEmpty(),
		Name:            s.Name,
		IsActive:        s.IsActive,
		SalesOrPurchase: sp,
	}, nil
}

func (itemServiceHandler) apply(ctx context.Context, recs qbd.Records, rec qbd.Record, rs *qbxml.Response) error {
	if len(rs.ItemServices) == 0 {
		return shared.NewProtocolError("%s carries no ItemServiceRet", rs.XMLName.Local)
	}
	return applyItemServiceRet(ctx, recs, rec.(*qbd.ItemService), &rs.ItemServices[0])
}

// applyItemServiceRet copies a returned item and relinks its income account
// when that account is known locally.
func applyItemServiceRet(ctx context.Context, recs qbd.Records, s *qbd.ItemService, ret *qbxml.ItemServiceRet) error {
	if err := s.ApplyExternalState(ret.ListID, ret.EditSequence); err != nil {
		return err
	}
	if ret.Name != "" {
		s.Name = ret.Name
	}
	s.IsActive = boolOr(ret.IsActive, s.IsActive)

	if sp := ret.SalesOrPurchase; sp != nil {
		s.Description = sp.Desc
		if sp.Price != nil {
			price := sp.Price.Decimal
			s.Price = &price
		}
		if sp.AccountRef != nil && sp.AccountRef.ListID != "" {
			account, err := recs.Accounts().FindByListID(ctx, s.RealmID, sp.AccountRef.ListID)
			switch {
			case err == nil:
				s.AccountID = &account.ID
			case !isNotFound(err):
				return err
			}
		}
	}
	s.Touch()
	return nil
}

func (itemServiceHandler) importAll(ctx context.Context, recs qbd.Records, realmID uuid.UUID, rs *qbxml.Response) (Outcome, error) {
	var out Outcome
	repo := recs.ItemServices()

	for i := range rs.ItemServices {
		ret := &rs.ItemServices[i]
		if ret.ListID == "" {
			out.Skipped++
			continue
		}
		s, err := repo.FindByListID(ctx, realmID, ret.ListID)
		if isNotFound(err) {
			s, err = repo.FindByName(ctx, realmID, ret.Name)
		}
		created := false
		if isNotFound(err) {
			s, err = qbd.NewItemService(realmID, ret.Name, nil)
			if err != nil {
				out.Skipped++
				continue
			}
			created = true
		}
		if err != nil {
			return out, err
		}

		if err := applyItemServiceRet(ctx, recs, s, ret); err != nil {
			return out, err
		}
		if err := repo.Save(ctx, s); err != nil {
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
