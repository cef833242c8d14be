package qbxml

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/qbdsync/backend/internal/domain/shared"
)

// OnError values for QBXMLMsgsRq
const (
	OnErrorStop     = "stopOnError"
	OnErrorContinue = "continueOnError"
)

// Well-known status codes
const (
	StatusOK                = 0
	StatusNoMatch           = 1
	StatusStaleEditSequence = 3200
)

// Status severities
const (
	SeverityInfo  = "Info"
	SeverityWarn  = "Warn"
	SeverityError = "Error"
)

// inlineBody marks payloads whose fields sit directly under the Rq element
// (ListDel, TxnDel, TxnVoid) instead of inside a named payload element.
type inlineBody interface {
	inline()
}

func (ListDel) inline() {}
func (TxnDel) inline()  {}
func (TxnVoid) inline() {}

// Request is one qbXML message such as CustomerAddRq
type Request struct {
	// ID is echoed back by QuickBooks as the requestID of the response
	ID string
	// Type is the message name without the Rq suffix, e.g. "CustomerAdd"
	Type string
	// Body is the payload; nil for query-all requests
	Body any
}

// NewQueryRequest builds an unfiltered <{resource}QueryRq/>
func NewQueryRequest(id, resource string) Request {
	return Request{ID: id, Type: resource + "Query"}
}

// NewListDelRequest builds a ListDelRq
func NewListDelRequest(id string, del ListDel) Request {
	return Request{ID: id, Type: "ListDel", Body: del}
}

// NewTxnDelRequest builds a TxnDelRq
func NewTxnDelRequest(id string, del TxnDel) Request {
	return Request{ID: id, Type: "TxnDel", Body: del}
}

// NewTxnVoidRequest builds a TxnVoidRq
func NewTxnVoidRequest(id string, void TxnVoid) Request {
	return Request{ID: id, Type: "TxnVoid", Body: void}
}

// Element returns the request element name
func (r Request) Element() string {
	return r.Type + "Rq"
}

// MarshalXML implements xml.Marshaler
func (r Request) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	start := xml.StartElement{Name: xml.Name{Local: r.Element()}}
	if r.ID != "" {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "requestID"}, Value: r.ID})
	}

	if _, ok := r.Body.(inlineBody); ok {
		return e.EncodeElement(r.Body, start)
	}
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	if r.Body != nil {
		if err := e.Encode(r.Body); err != nil {
			return err
		}
	}
	return e.EncodeToken(start.End())
}

type requestEnvelope struct {
	XMLName xml.Name    `xml:"QBXML"`
	Msgs    requestMsgs `xml:"QBXMLMsgsRq"`
}

type requestMsgs struct {
	OnError  string    `xml:"onError,attr"`
	Requests []Request `xml:"Request"`
}

// MarshalRequests renders a complete qbXML request document
func MarshalRequests(onError string, reqs ...Request) ([]byte, error) {
	if len(reqs) == 0 {
		return nil, shared.NewProtocolError("qbXML document needs at least one request")
	}
	if onError == "" {
		onError = OnErrorStop
	}

	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="utf-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<?qbxml version="` + Version + `"?>`)
	buf.WriteString("\n")

	enc := xml.NewEncoder(&buf)
	if err := enc.Encode(requestEnvelope{Msgs: requestMsgs{OnError: onError, Requests: reqs}}); err != nil {
		return nil, shared.NewProtocolError("encode %s: %v", reqs[0].Element(), err)
	}
	if err := enc.Close(); err != nil {
		return nil, shared.NewProtocolError("encode %s: %v", reqs[0].Element(), err)
	}
	return buf.Bytes(), nil
}

// Response is one qbXML response message such as CustomerAddRs
type Response struct {
	XMLName        xml.Name
	RequestID      string `xml:"requestID,attr"`
	StatusCode     int    `xml:"statusCode,attr"`
	StatusSeverity string `xml:"statusSeverity,attr"`
	StatusMessage  string `xml:"statusMessage,attr"`

	Customers    []CustomerRet    `xml:"CustomerRet"`
	Invoices     []InvoiceRet     `xml:"InvoiceRet"`
	ItemServices []ItemServiceRet `xml:"ItemServiceRet"`
	Accounts     []AccountRet     `xml:"AccountRet"`

	ListDelType string `xml:"ListDelType"`
	TxnDelType  string `xml:"TxnDelType"`
	TxnVoidType string `xml:"TxnVoidType"`
	ListID      string `xml:"ListID"`
	TxnID       string `xml:"TxnID"`
}

// Type returns the message name without the Rs suffix
func (r *Response) Type() string {
	return strings.TrimSuffix(r.XMLName.Local, "Rs")
}

// Err returns a *StatusError when QuickBooks rejected the request
func (r *Response) Err() error {
	if r.StatusSeverity != "" {
		if strings.EqualFold(r.StatusSeverity, SeverityError) {
			return &StatusError{Code: r.StatusCode, Severity: r.StatusSeverity, Message: r.StatusMessage}
		}
		return nil
	}
	if r.StatusCode != StatusOK && r.StatusCode != StatusNoMatch {
		return &StatusError{Code: r.StatusCode, Severity: SeverityError, Message: r.StatusMessage}
	}
	return nil
}

// StatusError is a non-success qbXML status
type StatusError struct {
	Code     int
	Severity string
	Message  string
}

// Error implements the error interface
func (e *StatusError) Error() string {
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

// IsStaleEditSequence reports a rejected EditSequence
func (e *StatusError) IsStaleEditSequence() bool {
	return e.Code == StatusStaleEditSequence
}

type responseEnvelope struct {
	XMLName xml.Name `xml:"QBXML"`
	Msgs    struct {
		Responses []Response `xml:",any"`
	} `xml:"QBXMLMsgsRs"`
}

// ParseResponses decodes a qbXML response document. Documents declared in
// windows-1252 or ISO-8859-1 are transcoded on the fly.
func ParseResponses(data []byte) ([]Response, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, shared.NewProtocolError("empty qbXML response")
	}

	var env responseEnvelope
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = CharsetReader
	if err := dec.Decode(&env); err != nil {
		return nil, shared.NewProtocolError("decode qbXML response: %v", err)
	}
	if len(env.Msgs.Responses) == 0 {
		return nil, shared.NewProtocolError("qbXML response carries no messages")
	}
	for i := range env.Msgs.Responses {
		if !strings.HasSuffix(env.Msgs.Responses[i].XMLName.Local, "Rs") {
			return nil, shared.NewProtocolError("unexpected element %s in QBXMLMsgsRs", env.Msgs.Responses[i].XMLName.Local)
		}
	}
	return env.Msgs.Responses, nil
}
