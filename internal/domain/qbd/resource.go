package qbd

import (
	"github.com/google/uuid"
	"github.com/qbdsync/backend/internal/domain/shared"
)

// ResourceType names a QuickBooks object kind. The value is the qbXML
// element prefix (CustomerAddRq, InvoiceQueryRq, ...).
type ResourceType string

const (
	ResourceCustomer    ResourceType = "Customer"
	ResourceInvoice     ResourceType = "Invoice"
	ResourceItemService ResourceType = "ItemService"
	ResourceAccount     ResourceType = "Account"
)

// AllResourceTypes lists every supported resource in registry order
func AllResourceTypes() []ResourceType {
	return []ResourceType{ResourceCustomer, ResourceInvoice, ResourceItemService, ResourceAccount}
}

// IsValid returns true if the resource type is supported
func (t ResourceType) IsValid() bool {
	switch t {
	case ResourceCustomer, ResourceInvoice, ResourceItemService, ResourceAccount:
		return true
	default:
		return false
	}
}

// IsTransaction reports whether QuickBooks identifies the resource by TxnID.
// Transactions are deleted and voided through the generic Txn envelopes,
// list objects through ListDel.
func (t ResourceType) IsTransaction() bool {
	return t == ResourceInvoice
}

// String returns the string representation of ResourceType
func (t ResourceType) String() string {
	return string(t)
}

// ParseResourceType validates a resource name coming from the API
func ParseResourceType(s string) (ResourceType, error) {
	t := ResourceType(s)
	if !t.IsValid() {
		return "", shared.NewUnsupportedOperationError("unknown resource type %q", s)
	}
	return t, nil
}

// RecordRef points a task at one domain record without a shared base type.
// Type is the tag resolved through the translator registry.
type RecordRef struct {
	Type ResourceType
	ID   uuid.UUID
}

// NewRecordRef builds a reference after validating the tag
func NewRecordRef(t ResourceType, id uuid.UUID) (RecordRef, error) {
	if !t.IsValid() {
		return RecordRef{}, shared.NewUnsupportedOperationError("unknown resource type %q", t)
	}
	if id == uuid.Nil {
		return RecordRef{}, shared.NewDomainError(shared.CodeInvalidInput, "Record reference requires an object id")
	}
	return RecordRef{Type: t, ID: id}, nil
}

// Record is implemented by every syncable domain record
type Record interface {
	GetID() uuid.UUID
	Resource() ResourceType
	External() *ExternalRef
}

// RefOf returns the tagged reference for a record
func RefOf(r Record) RecordRef {
	return RecordRef{Type: r.Resource(), ID: r.GetID()}
}
