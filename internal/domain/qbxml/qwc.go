package qbxml

import (
	"bytes"
	"encoding/xml"
	"fmt"
)

// QBType values accepted by the Web Connector
const (
	QBTypeFinancial = "QBFS"
	QBTypePOS       = "QBPOS"
)

// ConnectorDescriptor is the .qwc file a QuickBooks user imports into the
// Web Connector to register this server for one realm.
type ConnectorDescriptor struct {
	XMLName        xml.Name   `xml:"QBWCXML"`
	AppName        string     `xml:"AppName"`
	AppID          string     `xml:"AppID"`
	AppURL         string     `xml:"AppURL"`
	AppDescription string     `xml:"AppDescription"`
	AppSupport     string     `xml:"AppSupport"`
	UserName       string     `xml:"UserName"`
	OwnerID        string     `xml:"OwnerID"`
	FileID         string     `xml:"FileID"`
	QBType         string     `xml:"QBType"`
	Scheduler      *Scheduler `xml:"Scheduler,omitempty"`
	IsReadOnly     bool       `xml:"IsReadOnly"`
}

// Scheduler configures the polling interval. Without it the user starts
// every sync by hand.
type Scheduler struct {
	RunEveryNMinutes int `xml:"RunEveryNMinutes"`
}

// Marshal renders the descriptor as an indented XML document
func (d ConnectorDescriptor) Marshal() ([]byte, error) {
	if d.AppURL == "" || d.UserName == "" {
		return nil, fmt.Errorf("connector descriptor requires AppURL and UserName")
	}
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "    ")
	if err := enc.Encode(d); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	buf.WriteString("\n")
	return buf.Bytes(), nil
}
