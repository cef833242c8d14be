package qbd

import "github.com/qbdsync/backend/internal/domain/shared"

// ExternalRef is the QuickBooks-side identity of a record: the ListID (TxnID
// for transactions) and the EditSequence token QuickBooks uses to reject
// stale modifications. Both stay nil until QuickBooks accepts a create.
//
// Only the response translator writes these fields.
type ExternalRef struct {
	ListID       *string
	EditSequence *string
}

// IsQBDObjCreated reports whether the record already exists in QuickBooks
func (e ExternalRef) IsQBDObjCreated() bool {
	return e.ListID != nil && *e.ListID != "" &&
		e.EditSequence != nil && *e.EditSequence != ""
}

// ListIDOrEmpty returns the external id, or "" when unknown
func (e ExternalRef) ListIDOrEmpty() string {
	if e.ListID == nil {
		return ""
	}
	return *e.ListID
}

// EditSequenceOrEmpty returns the edit sequence, or "" when unknown
func (e ExternalRef) EditSequenceOrEmpty() string {
	if e.EditSequence == nil {
		return ""
	}
	return *e.EditSequence
}

// ApplyExternalState records the identity QuickBooks returned
func (e *ExternalRef) ApplyExternalState(listID, editSequence string) error {
	if listID == "" {
		return shared.NewProtocolError("response is missing the external identifier")
	}
	e.ListID = &listID
	if editSequence == "" {
		e.EditSequence = nil
	} else {
		e.EditSequence = &editSequence
	}
	return nil
}

// RefreshEditSequence replaces the token after a query returned a newer one
func (e *ExternalRef) RefreshEditSequence(editSequence string) {
	if editSequence == "" {
		return
	}
	e.EditSequence = &editSequence
}

// InvalidateEditSequence drops a token QuickBooks no longer accepts, e.g.
// after a void. The record counts as not created until the next import.
func (e *ExternalRef) InvalidateEditSequence() {
	e.EditSequence = nil
}

// ClearExternalState forgets the QuickBooks identity after a delete
func (e *ExternalRef) ClearExternalState() {
	e.ListID = nil
	e.EditSequence = nil
}
