package translator

import (
	"context"

	"github.com/google/uuid"
	"github.com/qbdsync/backend/internal/domain/qbd"
	"github.com/qbdsync/backend/internal/domain/qbxml"
	"github.com/qbdsync/backend/internal/domain/shared"
)

type accountHandler struct{}

func (accountHandler) load(ctx context.Context, recs qbd.Records, realmID, id uuid.UUID) (qbd.Record, error) {
	return recs.Accounts().FindByID(ctx, realmID, id)
}

func parentRef(a *qbd.ServiceAccount) *qbxml.Ref {
	if a.ParentListID() == "" {
		return nil
	}
	return qbxml.NewListRef(a.ParentListID())
}

func (accountHandler) addPayload(_ context.Context, _ qbd.Records, rec qbd.Record) (any, error) {
	a := rec.(*qbd.ServiceAccount)
	if a.AccountType == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Account type is required to create an account in QuickBooks")
	}
	return qbxml.AccountAdd{
		Name:          a.Name,
		IsActive:      a.IsActive,
		ParentRef:     parentRef(a),
		AccountType:   a.AccountType,
		AccountNumber: a.AccountNumber,
	}, nil
}

func (accountHandler) modPayload(_ context.Context, _ qbd.Records, rec qbd.Record) (any, error) {
	a := rec.(*qbd.ServiceAccount)
	return qbxml.AccountMod{
		ListID:        a.ListIDOrEmpty(),
		EditSequence:  a.EditSequenceOrEmpty(),
		Name:          a.Name,
		IsActive:      a.IsActive,
		ParentRef:     parentRef(a),
		AccountType:   a.AccountType,
		AccountNumber: a.AccountNumber,
	}, nil
}

func (accountHandler) apply(_ context.Context, _ qbd.Records, rec qbd.Record, rs *qbxml.Response) error {
	if len(rs.Accounts) == 0 {
		return shared.NewProtocolError("%s carries no AccountRet", rs.XMLName.Local)
	}
	return applyAccountRet(rec.(*qbd.ServiceAccount), &rs.Accounts[0])
}

// applyAccountRet copies a returned account. ParentRef is optional.
func applyAccountRet(a *qbd.ServiceAccount, ret *qbxml.AccountRet) error {
	if err := a.ApplyExternalState(ret.ListID, ret.EditSequence); err != nil {
		return err
	}
	if ret.Name != "" {
		a.Name = ret.Name
	}
	a.FullName = ret.FullName
	a.IsActive = boolOr(ret.IsActive, a.IsActive)
	a.ParentID = nil
	if ret.ParentRef != nil && ret.ParentRef.ListID != "" {
		parent := ret.ParentRef.ListID
		a.ParentID = &parent
	}
	if ret.AccountType != "" {
		a.AccountType = ret.AccountType
	}
	a.AccountNumber = ret.AccountNumber
	a.Touch()
	return nil
}

func (accountHandler) importAll(ctx context.Context, recs qbd.Records, realmID uuid.UUID, rs *qbxml.Response) (Outcome, error) {
	var out Outcome
	repo := recs.Accounts()

	for i := range rs.Accounts {
		ret := &rs.Accounts[i]
		a, err := repo.FindByListID(ctx, realmID, ret.ListID)
		created := false
		if isNotFound(err) {
			a, err = qbd.NewServiceAccount(realmID, ret.Name, ret.AccountType)
			if err != nil {
				out.Skipped++
				continue
			}
			created = true
		}
		if err != nil {
			return out, err
		}

		if err := applyAccountRet(a, ret); err != nil {
			out.Skipped++
			continue
		}
		if err := repo.Save(ctx, a); err != nil {
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
