// Package xmlrpc is the server side of XML-RPC: it reads method calls and
// writes responses and faults.
//
// Values decode to plain Go values: string, int, bool, float64, time.Time,
// []byte for base64, []any for arrays, map[string]any for structs and nil
// for <nil/>. Unmarshal copies such a value into typed Go structs using
// `xmlrpc` field tags; the encoder reads the same tags.
package xmlrpc

import "fmt"

// Standard fault codes from the XML-RPC fault code interoperability list.
const (
	FaultParse          = -32700
	FaultInvalidRequest = -32600
	FaultMethodNotFound = -32601
	FaultInvalidParams  = -32602
	FaultInternal       = -32603
)

// MethodCall is one decoded request.
type MethodCall struct {
	Method string
	Params []any
}

// Fault is an XML-RPC fault.
type Fault struct {
	Code    int    `xmlrpc:"faultCode"`
	Message string `xmlrpc:"faultString"`
}

func (f *Fault) Error() string {
	return fmt.Sprintf("xmlrpc fault %d: %s", f.Code, f.Message)
}
