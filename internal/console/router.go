package console

import "github.com/skobkin/serialwifi/internal/rpc"

type RouteKind int

const (
	// RoutePlain means the record is logged verbatim.
	RoutePlain RouteKind = iota
	RouteIP
	RouteMACAddress
)

// Route is the decision taken for one incoming record.
type Route struct {
	Kind  RouteKind
	Value string
}

// RouteRecord classifies a trimmed, non-empty record. Decode failures and
// envelope mismatches are both plain text. result.ip wins over
// result.mac_address when a reply carries both.
func RouteRecord(record string) Route {
	resp, ok := rpc.DecodeResponse(record)
	if !ok {
		return Route{Kind: RoutePlain}
	}
	if ip, ok := resp.IP(); ok {
		return Route{Kind: RouteIP, Value: ip}
	}
	if mac, ok := resp.MACAddress(); ok {
		return Route{Kind: RouteMACAddress, Value: mac}
	}

	return Route{Kind: RoutePlain}
}
