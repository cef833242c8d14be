package handler

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
)

// Namespaces of the Web Connector SOAP 1.1 contract
const (
	QBWCNamespace = "http://developer.intuit.com/"
	soapNamespace = "http://schemas.xmlsoap.org/soap/envelope/"
	xsiNamespace  = "http://www.w3.org/2001/XMLSchema-instance"
	xsdNamespace  = "http://www.w3.org/2001/XMLSchema"
)

// SOAP fault codes
const (
	faultClient = "soap:Client"
	faultServer = "soap:Server"
)

var errEmptyBody = errors.New("soap body has no operation element")

// soapCall is the union of every callback's parameters. Elements are
// matched by local name only; the Web Connector qualifies them with the
// QBWC namespace.
type soapCall struct {
	XMLName         xml.Name
	Ticket          string `xml:"ticket"`
	UserName        string `xml:"strUserName"`
	Password        string `xml:"strPassword"`
	Version         string `xml:"strVersion"`
	HCPResponse     string `xml:"strHCPResponse"`
	CompanyFileName string `xml:"strCompanyFileName"`
	Country         string `xml:"qbXMLCountry"`
	MajorVersion    int    `xml:"qbXMLMajorVers"`
	MinorVersion    int    `xml:"qbXMLMinorVers"`
	Response        string `xml:"response"`
	HResult         string `xml:"hresult"`
	Message         string `xml:"message"`
}

// Action is the callback name, e.g. "sendRequestXML"
func (c *soapCall) Action() string {
	return c.XMLName.Local
}

type requestEnvelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		Content []byte `xml:",innerxml"`
	} `xml:"Body"`
}

// decodeCall reads a SOAP envelope and returns the single operation
// element of its body.
func decodeCall(r io.Reader) (*soapCall, error) {
	var env requestEnvelope
	if err := xml.NewDecoder(r).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode soap envelope: %w", err)
	}

	dec := xml.NewDecoder(bytes.NewReader(env.Body.Content))
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil, errEmptyBody
		}
		if err != nil {
			return nil, fmt.Errorf("decode soap body: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		var call soapCall
		if err := dec.DecodeElement(&call, &start); err != nil {
			return nil, fmt.Errorf("decode %s: %w", start.Name.Local, err)
		}
		return &call, nil
	}
}

type responseEnvelope struct {
	XMLName xml.Name `xml:"soap:Envelope"`
	Soap    string   `xml:"xmlns:soap,attr"`
	XSI     string   `xml:"xmlns:xsi,attr"`
	XSD     string   `xml:"xmlns:xsd,attr"`
	Body    struct {
		Content any
	} `xml:"soap:Body"`
}

// callResponse renders as <{action}Response xmlns="http://developer.intuit.com/">
// wrapping a single <{action}Result> element.
type callResponse struct {
	XMLName xml.Name
	Result  any
}

type stringResult struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

type intResult struct {
	XMLName xml.Name
	Value   int `xml:",chardata"`
}

type arrayResult struct {
	XMLName xml.Name
	Values  []string `xml:"string"`
}

type soapFault struct {
	XMLName xml.Name `xml:"soap:Fault"`
	Code    string   `xml:"faultcode"`
	String  string   `xml:"faultstring"`
}

func resultName(action string) xml.Name {
	return xml.Name{Local: action + "Result"}
}

func newStringResponse(action, value string) callResponse {
	return callResponse{
		XMLName: xml.Name{Space: QBWCNamespace, Local: action + "Response"},
		Result:  stringResult{XMLName: resultName(action), Value: value},
	}
}

func newIntResponse(action string, value int) callResponse {
	return callResponse{
		XMLName: xml.Name{Space: QBWCNamespace, Local: action + "Response"},
		Result:  intResult{XMLName: resultName(action), Value: value},
	}
}

func newArrayResponse(action string, values ...string) callResponse {
	return callResponse{
		XMLName: xml.Name{Space: QBWCNamespace, Local: action + "Response"},
		Result:  arrayResult{XMLName: resultName(action), Values: values},
	}
}

// encodeEnvelope wraps content (a callResponse or soapFault) in a SOAP 1.1
// envelope.
func encodeEnvelope(content any) ([]byte, error) {
	env := responseEnvelope{
		Soap: soapNamespace,
		XSI:  xsiNamespace,
		XSD:  xsdNamespace,
	}
	env.Body.Content = content

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	if err := xml.NewEncoder(&buf).Encode(env); err != nil {
		return nil, fmt.Errorf("encode soap envelope: %w", err)
	}
	return buf.Bytes(), nil
}
