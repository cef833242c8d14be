package qbxml

import "encoding/xml"

// Address is BillAddress / ShipAddress
type Address struct {
	Addr1      string `xml:"Addr1"`
	Addr2      string `xml:"Addr2,omitempty"`
	Addr3      string `xml:"Addr3,omitempty"`
	Addr4      string `xml:"Addr4,omitempty"`
	Addr5      string `xml:"Addr5,omitempty"`
	City       string `xml:"City"`
	State      string `xml:"State"`
	PostalCode string `xml:"PostalCode"`
	Country    string `xml:"Country"`
	Note       string `xml:"Note,omitempty"`
}

// ---------------------------------------------------------------------------
// Customer
// ---------------------------------------------------------------------------

// CustomerFields are the user-editable customer elements shared by Add and Mod
type CustomerFields struct {
	Name        string `xml:"Name"`
	IsActive    *bool  `xml:"IsActive,omitempty"`
	CompanyName string `xml:"CompanyName"`
	Phone       string `xml:"Phone"`
	AltPhone    string `xml:"AltPhone"`
	Fax         string `xml:"Fax"`
	Email       string `xml:"Email"`
	Contact     string `xml:"Contact"`
	AltContact  string `xml:"AltContact"`
}

// CustomerAdd is the payload of CustomerAddRq
type CustomerAdd struct {
	XMLName xml.Name `xml:"CustomerAdd"`
	CustomerFields
}

// CustomerMod is the payload of CustomerModRq
type CustomerMod struct {
	XMLName      xml.Name `xml:"CustomerMod"`
	ListID       string   `xml:"ListID"`
	EditSequence string   `xml:"EditSequence"`
	CustomerFields
}

// CustomerRet is a customer returned by QuickBooks
type CustomerRet struct {
	ListID       string    `xml:"ListID"`
	TimeCreated  *DateTime `xml:"TimeCreated"`
	TimeModified *DateTime `xml:"TimeModified"`
	EditSequence string    `xml:"EditSequence"`
	Name         string    `xml:"Name"`
	FullName     string    `xml:"FullName"`
	IsActive     *bool     `xml:"IsActive"`
	ParentRef    *Ref      `xml:"ParentRef"`
	CompanyName  string    `xml:"CompanyName"`
	Phone        string    `xml:"Phone"`
	AltPhone     string    `xml:"AltPhone"`
	Fax          string    `xml:"Fax"`
	Email        string    `xml:"Email"`
	Contact      string    `xml:"Contact"`
	AltContact   string    `xml:"AltContact"`
}

// ---------------------------------------------------------------------------
// Invoice
// ---------------------------------------------------------------------------

// InvoiceLineAdd is a line of InvoiceAdd
type InvoiceLineAdd struct {
	ItemRef  *Ref      `xml:"ItemRef"`
	Desc     string    `xml:"Desc,omitempty"`
	Quantity *Quantity `xml:"Quantity,omitempty"`
	Rate     *Amount   `xml:"Rate,omitempty"`
}

// InvoiceLineMod is a line of InvoiceMod. TxnLineID "-1" adds a new line.
type InvoiceLineMod struct {
	TxnLineID string    `xml:"TxnLineID"`
	ItemRef   *Ref      `xml:"ItemRef"`
	Desc      string    `xml:"Desc,omitempty"`
	Quantity  *Quantity `xml:"Quantity,omitempty"`
	Rate      *Amount   `xml:"Rate,omitempty"`
}

// NewLineID is the TxnLineID QuickBooks expects for lines added through InvoiceMod
const NewLineID = "-1"

// InvoiceAdd is the payload of InvoiceAddRq
type InvoiceAdd struct {
	XMLName     xml.Name         `xml:"InvoiceAdd"`
	CustomerRef *Ref             `xml:"CustomerRef"`
	TxnDate     *Date            `xml:"TxnDate,omitempty"`
	RefNumber   string           `xml:"RefNumber,omitempty"`
	BillAddress *Address         `xml:"BillAddress"`
	ShipAddress *Address         `xml:"ShipAddress,omitempty"`
	IsPending   bool             `xml:"IsPending"`
	DueDate     *Date            `xml:"DueDate,omitempty"`
	Memo        string           `xml:"Memo,omitempty"`
	Lines       []InvoiceLineAdd `xml:"InvoiceLineAdd"`
}

// InvoiceMod is the payload of InvoiceModRq
type InvoiceMod struct {
	XMLName      xml.Name         `xml:"InvoiceMod"`
	TxnID        string           `xml:"TxnID"`
	EditSequence string           `xml:"EditSequence"`
	CustomerRef  *Ref             `xml:"CustomerRef"`
	TxnDate      *Date            `xml:"TxnDate,omitempty"`
	RefNumber    string           `xml:"RefNumber,omitempty"`
	BillAddress  *Address         `xml:"BillAddress"`
	ShipAddress  *Address         `xml:"ShipAddress,omitempty"`
	IsPending    bool             `xml:"IsPending"`
	DueDate      *Date            `xml:"DueDate,omitempty"`
	Memo         string           `xml:"Memo,omitempty"`
	Lines        []InvoiceLineMod `xml:"InvoiceLineMod"`
}

// InvoiceLineRet is a line returned with an invoice
type InvoiceLineRet struct {
	TxnLineID string    `xml:"TxnLineID"`
	ItemRef   *Ref      `xml:"ItemRef"`
	Desc      string    `xml:"Desc"`
	Quantity  *Quantity `xml:"Quantity"`
	Rate      *Amount   `xml:"Rate"`
	Amount    *Amount   `xml:"Amount"`
}

// InvoiceRet is an invoice returned by QuickBooks
type InvoiceRet struct {
	TxnID        string           `xml:"TxnID"`
	TimeCreated  *DateTime        `xml:"TimeCreated"`
	TimeModified *DateTime        `xml:"TimeModified"`
	EditSequence string           `xml:"EditSequence"`
	TxnNumber    string           `xml:"TxnNumber"`
	CustomerRef  *Ref             `xml:"CustomerRef"`
	TxnDate      *Date            `xml:"TxnDate"`
	RefNumber    string           `xml:"RefNumber"`
	BillAddress  *Address         `xml:"BillAddress"`
	ShipAddress  *Address         `xml:"ShipAddress"`
	IsPending    *bool            `xml:"IsPending"`
	DueDate      *Date            `xml:"DueDate"`
	Memo         string           `xml:"Memo"`
	Lines        []InvoiceLineRet `xml:"InvoiceLineRet"`
}

// ---------------------------------------------------------------------------
// ItemService
// ---------------------------------------------------------------------------

// SalesOrPurchase holds the sales side of a service item
type SalesOrPurchase struct {
	Desc       string  `xml:"Desc,omitempty"`
	Price      *Amount `xml:"Price,omitempty"`
	AccountRef *Ref    `xml:"AccountRef"`
}

// ItemServiceAdd is the payload of ItemServiceAddRq
type ItemServiceAdd struct {
	XMLName         xml.Name         `xml:"ItemServiceAdd"`
	Name            string           `xml:"Name"`
	IsActive        bool             `xml:"IsActive"`
	SalesOrPurchase *SalesOrPurchase `xml:"SalesOrPurchase"`
}

// ItemServiceMod is the payload of ItemServiceModRq
type ItemServiceMod struct {
	XMLName         xml.Name         `xml:"ItemServiceMod"`
	ListID          string           `xml:"ListID"`
	EditSequence    string           `xml:"EditSequence"`
	Name            string           `xml:"Name"`
	IsActive        bool             `xml:"IsActive"`
	SalesOrPurchase *SalesOrPurchase `xml:"SalesOrPurchaseMod"`
}

// ItemServiceRet is a service item returned by QuickBooks
type ItemServiceRet struct {
	ListID          string           `xml:"ListID"`
	TimeCreated     *DateTime        `xml:"TimeCreated"`
	TimeModified    *DateTime        `xml:"TimeModified"`
	EditSequence    string           `xml:"EditSequence"`
	Name            string           `xml:"Name"`
	FullName        string           `xml:"FullName"`
	IsActive        *bool            `xml:"IsActive"`
	ParentRef       *Ref             `xml:"ParentRef"`
	SalesOrPurchase *SalesOrPurchase `xml:"SalesOrPurchase"`
}

// ---------------------------------------------------------------------------
// Account
// ---------------------------------------------------------------------------

// AccountAdd is the payload of AccountAddRq
type AccountAdd struct {
	XMLName       xml.Name `xml:"AccountAdd"`
	Name          string   `xml:"Name"`
	IsActive      bool     `xml:"IsActive"`
	ParentRef     *Ref     `xml:"ParentRef,omitempty"`
	AccountType   string   `xml:"AccountType"`
	AccountNumber string   `xml:"AccountNumber,omitempty"`
}

// AccountMod is the payload of AccountModRq
type AccountMod struct {
	XMLName       xml.Name `xml:"AccountMod"`
	ListID        string   `xml:"ListID"`
	EditSequence  string   `xml:"EditSequence"`
	Name          string   `xml:"Name"`
	IsActive      bool     `xml:"IsActive"`
	ParentRef     *Ref     `xml:"ParentRef,omitempty"`
	AccountType   string   `xml:"AccountType,omitempty"`
	AccountNumber string   `xml:"AccountNumber,omitempty"`
}

// AccountRet is an account returned by QuickBooks
type AccountRet struct {
	ListID        string    `xml:"ListID"`
	TimeCreated   *DateTime `xml:"TimeCreated"`
	TimeModified  *DateTime `xml:"TimeModified"`
	EditSequence  string    `xml:"EditSequence"`
	Name          string    `xml:"Name"`
	FullName      string    `xml:"FullName"`
	IsActive      *bool     `xml:"IsActive"`
	ParentRef     *Ref      `xml:"ParentRef"`
	AccountType   string    `xml:"AccountType"`
	AccountNumber string    `xml:"AccountNumber"`
}

// ---------------------------------------------------------------------------
// Generic deletion and void envelopes
// ---------------------------------------------------------------------------

// ListDel deletes a list object (customer, item, account)
type ListDel struct {
	ListDelType string `xml:"ListDelType"`
	ListID      string `xml:"ListID"`
}

// TxnDel deletes a transaction
type TxnDel struct {
	TxnDelType string `xml:"TxnDelType"`
	TxnID      string `xml:"TxnID"`
}

// TxnVoid voids a transaction
type TxnVoid struct {
	TxnVoidType string `xml:"TxnVoidType"`
	TxnID       string `xml:"TxnID"`
}
