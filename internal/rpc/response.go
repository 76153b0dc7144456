package rpc

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

const (
	ResultKeyIP         = "ip"
	ResultKeyMACAddress = "mac_address"
)

// Response is a decoded structured reply whose envelope matched.
type Response struct {
	Result map[string]json.RawMessage
}

// DecodeResponse reports whether line is a structured response addressed to
// the single outstanding request. Malformed JSON and envelope mismatches are
// both reported as false; the caller treats the line as plain text.
func DecodeResponse(line string) (Response, bool) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal([]byte(line), &envelope); err != nil {
		return Response{}, false
	}

	var version string
	if err := json.Unmarshal(envelope["jsonrpc"], &version); err != nil || version != Version {
		return Response{}, false
	}

	var id float64
	if err := json.Unmarshal(envelope["id"], &id); err != nil || id != RequestID {
		return Response{}, false
	}

	rawResult, ok := envelope["result"]
	if !ok {
		return Response{}, false
	}
	// Only an object can carry ip or mac_address; null, scalars and arrays
	// fall through to plain text.
	var result map[string]json.RawMessage
	if err := json.Unmarshal(rawResult, &result); err != nil || result == nil {
		return Response{}, false
	}

	return Response{Result: result}, true
}

// IP returns the rendered result.ip value when the key is present.
func (r Response) IP() (string, bool) {
	return r.field(ResultKeyIP)
}

func (r Response) MACAddress() (string, bool) {
	return r.field(ResultKeyMACAddress)
}

func (r Response) field(key string) (string, bool) {
	raw, ok := r.Result[key]
	if !ok {
		return "", false
	}

	return renderValue(raw), true
}

// renderValue formats a result value the way a browser would coerce it to
// text: strings unquoted, numbers in shortest form, arrays joined by commas
// and objects as "[object Object]".
func renderValue(raw json.RawMessage) string {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}

	return coerceText(v, true)
}

func coerceText(v any, top bool) string {
	switch v := v.(type) {
	case nil:
		// Array elements that are null join as empty strings.
		if top {
			return "null"
		}

		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return formatNumber(v)
	case []any:
		parts := make([]string, len(v))
		for i, elem := range v {
			parts[i] = coerceText(elem, false)
		}

		return strings.Join(parts, ",")
	default:
		return "[object Object]"
	}
}

// formatNumber switches to exponent notation outside [1e-6, 1e21), with the
// exponent written without leading zeros.
func formatNumber(f float64) string {
	if f == 0 {
		return "0"
	}

	abs := math.Abs(f)
	if abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}

	text := strconv.FormatFloat(f, 'e', -1, 64)
	mantissa, exp, _ := strings.Cut(text, "e")
	sign, digits := exp[:1], strings.TrimLeft(exp[1:], "0")
	if digits == "" {
		digits = "0"
	}

	return mantissa + "e" + sign + digits
}
