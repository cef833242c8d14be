package qbd

import "github.com/google/uuid"

// Address is a bill-to or ship-to block. Free-form street lines live in
// Lines keyed by their qbXML names (Addr1..Addr5).
type Address struct {
	ID         uuid.UUID
	InvoiceID  uuid.UUID
	Lines      map[string]string
	City       string
	State      string
	PostalCode string
	Country    string
	Note       string
}

// Line returns the named street line, or "" when absent
func (a *Address) Line(key string) string {
	if a == nil || a.Lines == nil {
		return ""
	}
	return a.Lines[key]
}

// IsEmpty reports whether no component is populated
func (a *Address) IsEmpty() bool {
	if a == nil {
		return true
	}
	for _, v := range a.Lines {
		if v != "" {
			return false
		}
	}
	return a.City == "" && a.State == "" && a.PostalCode == "" && a.Country == "" && a.Note == ""
}
