package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const (
	Version = "2.0"

	// RequestID is the only id used on the wire: at most one structured
	// request is outstanding at a time.
	RequestID = 1

	LineTerminator = "\r\n"
)

const (
	MethodGetIP              = "get_ip"
	MethodGetMACAddress      = "get_mac_address"
	MethodSetWiFiCredentials = "set_wifi_creds"
)

// Request is the structured envelope written to the device. Field order
// matches the order the device firmware documents.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
	ID      int    `json:"id"`
}

type WiFiCredentials struct {
	SSID string `json:"ssid"`
	Pass string `json:"pass"`
}

func NewGetIPRequest() Request {
	return Request{JSONRPC: Version, Method: MethodGetIP, ID: RequestID}
}

func NewGetMACAddressRequest() Request {
	return Request{JSONRPC: Version, Method: MethodGetMACAddress, ID: RequestID}
}

// NewSetWiFiCredentialsRequest does not validate the SSID; callers reject an
// empty one before building the request.
func NewSetWiFiCredentialsRequest(ssid, pass string) Request {
	return Request{
		JSONRPC: Version,
		Method:  MethodSetWiFiCredentials,
		Params:  WiFiCredentials{SSID: ssid, Pass: pass},
		ID:      RequestID,
	}
}

// Encode serializes the request as one compact line ending with CRLF.
func (r Request) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return nil, fmt.Errorf("encode %s request: %w", r.Method, err)
	}

	line := bytes.TrimRight(buf.Bytes(), "\n")

	return append(line, LineTerminator...), nil
}

// EncodeLine frames a free-text line for the wire.
func EncodeLine(text string) []byte {
	out := make([]byte, 0, len(text)+len(LineTerminator))
	out = append(out, text...)

	return append(out, LineTerminator...)
}
