package qbd

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/qbdsync/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestExternalRef_IsQBDObjCreated(t *testing.T) {
	tests := []struct {
		name     string
		ref      ExternalRef
		expected bool
	}{
		{"both nil", ExternalRef{}, false},
		{"only list id", ExternalRef{ListID: strPtr("80000001-123")}, false},
		{"only edit sequence", ExternalRef{EditSequence: strPtr("0")}, false},
		{"empty list id", ExternalRef{ListID: strPtr(""), EditSequence: strPtr("0")}, false},
		{"both set", ExternalRef{ListID: strPtr("80000001-123"), EditSequence: strPtr("0")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.ref.IsQBDObjCreated())
		})
	}
}

func TestExternalRef_ApplyExternalState(t *testing.T) {
	var ref ExternalRef

	err := ref.ApplyExternalState("", "1")
	assert.ErrorIs(t, err, shared.ErrProtocolSerialization)
	assert.False(t, ref.IsQBDObjCreated())

	require.NoError(t, ref.ApplyExternalState("80000001-123", "0"))
	assert.True(t, ref.IsQBDObjCreated())
	assert.Equal(t, "80000001-123", ref.ListIDOrEmpty())
	assert.Equal(t, "0", ref.EditSequenceOrEmpty())

	ref.RefreshEditSequence("")
	assert.Equal(t, "0", ref.EditSequenceOrEmpty())
	ref.RefreshEditSequence("1718")
	assert.Equal(t, "1718", ref.EditSequenceOrEmpty())

	ref.ClearExternalState()
	assert.False(t, ref.IsQBDObjCreated())
}

func TestResourceType(t *testing.T) {
	for _, rt := range AllResourceTypes() {
		assert.True(t, rt.IsValid())
		parsed, err := ParseResourceType(rt.String())
		require.NoError(t, err)
		assert.Equal(t, rt, parsed)
	}
	assert.True(t, ResourceInvoice.IsTransaction())
	assert.False(t, ResourceCustomer.IsTransaction())

	_, err := ParseResourceType("Vendor")
	assert.ErrorIs(t, err, shared.ErrOperationNotSupported)

	_, err = NewRecordRef(ResourceCustomer, uuid.Nil)
	assert.Error(t, err)
}

func TestCustomer(t *testing.T) {
	realmID := uuid.New()

	t.Run("new customer is not created upstream", func(t *testing.T) {
		c, err := NewCustomer(realmID, "Acme")
		require.NoError(t, err)
		assert.True(t, c.IsActive)
		assert.False(t, c.IsQBDObjCreated())
		assert.Equal(t, RecordRef{Type: ResourceCustomer, ID: c.ID}, RefOf(c))
	})

	t.Run("name limits", func(t *testing.T) {
		_, err := NewCustomer(realmID, " ")
		assert.Error(t, err)
		_, err = NewCustomer(realmID, strings.Repeat("x", 42))
		assert.Error(t, err)
	})

	t.Run("details validation", func(t *testing.T) {
		c, _ := NewCustomer(realmID, "Acme")
		assert.Error(t, c.SetDetails(CustomerDetails{Email: "not-an-email"}))
		assert.Error(t, c.SetDetails(CustomerDetails{Phone: strings.Repeat("1", 22)}))

		require.NoError(t, c.SetDetails(CustomerDetails{Email: "Billing@Acme.test", CompanyName: "Acme Inc"}))
		assert.Equal(t, "billing@acme.test", c.Email)
		assert.Equal(t, "Acme Inc", c.CompanyName)
	})

	t.Run("external link", func(t *testing.T) {
		c, _ := NewCustomer(realmID, "Acme")
		at := time.Now()
		c.LinkExternal("crm-42", at)
		assert.Equal(t, "crm-42", c.ExternalID)
		assert.Equal(t, at, *c.ExternalUpdatedAt)
	})
}

func TestInvoice(t *testing.T) {
	realmID := uuid.New()

	_, err := NewInvoice(realmID, uuid.Nil)
	assert.Error(t, err)

	inv, err := NewInvoice(realmID, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, "", inv.TxnID())

	itemID := uuid.New()
	line, err := inv.AddLine(&itemID, decimal.RequireFromString("150.456"), "consulting")
	require.NoError(t, err)
	assert.Equal(t, "150.46", line.Rate.StringFixed(2))
	assert.True(t, line.Quantity.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, inv.ID, line.InvoiceID)

	_, err = inv.AddLine(nil, decimal.NewFromInt(-1), "")
	assert.Error(t, err)
	_, err = inv.AddLine(nil, decimal.NewFromInt(1_000_000), "")
	assert.Error(t, err)

	_, err = inv.AddLine(nil, decimal.NewFromInt(50), "")
	require.NoError(t, err)
	assert.Equal(t, "200.46", inv.Total().StringFixed(2))

	txn := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	due := txn.AddDate(0, 0, -1)
	assert.Error(t, inv.SetDates(&txn, &due))
	due = txn.AddDate(0, 1, 0)
	require.NoError(t, inv.SetDates(&txn, &due))

	inv.SetBillAddress(Address{Lines: map[string]string{"Addr1": "1 Main St"}, City: "Springfield"})
	assert.Equal(t, inv.ID, inv.BillAddress.InvoiceID)
	assert.Equal(t, "1 Main St", inv.BillAddress.Line("Addr1"))
	assert.Equal(t, "", inv.BillAddress.Line("Addr2"))
	assert.False(t, inv.BillAddress.IsEmpty())
	assert.True(t, inv.ShipAddress.IsEmpty())
	assert.Equal(t, "", inv.ShipAddress.Line("Addr1"))
}

func TestItemService(t *testing.T) {
	realmID := uuid.New()

	_, err := NewItemService(realmID, strings.Repeat("x", 32), nil)
	assert.Error(t, err)

	item, err := NewItemService(realmID, "Consulting", nil)
	require.NoError(t, err)
	assert.Nil(t, item.AccountID)

	require.NoError(t, item.MapExternal("charge-1"))
	require.NoError(t, item.MapExternal("charge-1"))
	assert.Equal(t, []string{"charge-1"}, item.ExternalIDs)
	assert.Error(t, item.MapExternal(""))

	neg := decimal.NewFromInt(-5)
	assert.Error(t, item.SetPrice(&neg))
}

func TestServiceAccount(t *testing.T) {
	a, err := NewServiceAccount(uuid.New(), "Sales", "Income")
	require.NoError(t, err)
	assert.Equal(t, "", a.ParentListID())
	a.ParentID = strPtr("80000010-1")
	assert.Equal(t, "80000010-1", a.ParentListID())

	_, err = NewServiceAccount(uuid.New(), "", "Income")
	assert.Error(t, err)
}
