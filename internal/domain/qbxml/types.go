// Package qbxml holds the wire-object schemas of the QuickBooks Desktop qbXML
// protocol (version 13.0) and the request/response envelopes exchanged with
// the Web Connector. Field order in every struct follows the qbXML schema;
// QuickBooks rejects elements out of sequence.
package qbxml

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Version is the qbXML specification version advertised in requests
const Version = "13.0"

// Ref is a list reference such as CustomerRef or AccountRef
type Ref struct {
	ListID   string `xml:"ListID,omitempty"`
	FullName string `xml:"FullName,omitempty"`
}

// NewListRef references a list object by ListID
func NewListRef(listID string) *Ref {
	return &Ref{ListID: listID}
}

// Amount is a qbXML AMTTYPE/PRICETYPE rendered with two decimals
type Amount struct {
	decimal.Decimal
}

// NewAmount wraps a decimal value
func NewAmount(d decimal.Decimal) *Amount {
	return &Amount{Decimal: d}
}

// MarshalText implements encoding.TextMarshaler
func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.StringFixed(2)), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (a *Amount) UnmarshalText(text []byte) error {
	return a.Decimal.UnmarshalText([]byte(strings.TrimSpace(string(text))))
}

// Quantity is a qbXML QUANTYPE
type Quantity struct {
	decimal.Decimal
}

// NewQuantity wraps a decimal value
func NewQuantity(d decimal.Decimal) *Quantity {
	return &Quantity{Decimal: d}
}

// MarshalText implements encoding.TextMarshaler
func (q Quantity) MarshalText() ([]byte, error) {
	return []byte(q.StringFixed(5)), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (q *Quantity) UnmarshalText(text []byte) error {
	return q.Decimal.UnmarshalText([]byte(strings.TrimSpace(string(text))))
}

const dateLayout = "2006-01-02"

// Date is a qbXML DATETYPE (YYYY-MM-DD)
type Date struct {
	time.Time
}

// NewDate converts an optional time to a wire date
func NewDate(t *time.Time) *Date {
	if t == nil {
		return nil
	}
	return &Date{Time: *t}
}

// MarshalText implements encoding.TextMarshaler
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.Format(dateLayout)), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Date) UnmarshalText(text []byte) error {
	t, err := time.Parse(dateLayout, strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// Ptr returns the time as a pointer, or nil for a nil date
func (d *Date) Ptr() *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}

// DateTime is a qbXML DATETIMETYPE, e.g. 2019-05-06T11:51:26-05:00
type DateTime struct {
	time.Time
}

// MarshalText implements encoding.TextMarshaler
func (d DateTime) MarshalText() ([]byte, error) {
	return []byte(d.Format(time.RFC3339)), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. QuickBooks omits the
// zone offset for some company files, so a local timestamp is accepted too.
func (d *DateTime) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t, err = time.Parse("2006-01-02T15:04:05", s)
		if err != nil {
			return err
		}
	}
	d.Time = t
	return nil
}

// Ptr returns the time as a pointer, or nil for a nil value
func (d *DateTime) Ptr() *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}
