package console

import (
	"fmt"
	"testing"
	"time"

	"github.com/skobkin/serialwifi/internal/bus"
	"github.com/skobkin/serialwifi/internal/domain"
	"github.com/skobkin/serialwifi/internal/events"
)

func TestRouteRecord(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Route
	}{
		{name: "plain", line: "ok", want: Route{Kind: RoutePlain}},
		{name: "ip", line: `{"jsonrpc":"2.0","id":1,"result":{"ip":"192.168.1.5"}}`, want: Route{Kind: RouteIP, Value: "192.168.1.5"}},
		{name: "falsy ip", line: `{"jsonrpc":"2.0","id":1,"result":{"ip":""}}`, want: Route{Kind: RouteIP}},
		{name: "mac", line: `{"jsonrpc":"2.0","id":1,"result":{"mac_address":"aa:bb"}}`, want: Route{Kind: RouteMACAddress, Value: "aa:bb"}},
		{name: "ip wins", line: `{"jsonrpc":"2.0","id":1,"result":{"mac_address":"aa:bb","ip":"1.2.3.4"}}`, want: Route{Kind: RouteIP, Value: "1.2.3.4"}},
		{name: "unknown result", line: `{"jsonrpc":"2.0","id":1,"result":{"saved":true}}`, want: Route{Kind: RoutePlain}},
		{name: "wrong id", line: `{"jsonrpc":"2.0","id":7,"result":{"ip":"1.2.3.4"}}`, want: Route{Kind: RoutePlain}},
	}

	for _, tc := range tests {
		if got := RouteRecord(tc.line); got != tc.want {
			t.Fatalf("%s: got %+v want %+v", tc.name, got, tc.want)
		}
	}
}

func TestSession_HandleRecordFormatsValues(t *testing.T) {
	s := NewSession(10, nil)

	s.HandleRecord(`{"jsonrpc":"2.0","id":1,"result":{"ip":null}}`)
	s.HandleRecord(`{"jsonrpc":"2.0","id":1,"result":{"mac_address":"24:6F:28:AA:BB:CC"}}`)

	entries := s.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Text != "[ip] null" || entries[0].Kind != domain.LogKindIP {
		t.Fatalf("unexpected ip entry %+v", entries[0])
	}
	if entries[1].Text != "[mac] 24:6F:28:AA:BB:CC" || entries[1].Kind != domain.LogKindMAC {
		t.Fatalf("unexpected mac entry %+v", entries[1])
	}
	info := s.DeviceInfo()
	if info.IPOrDash() != "null" || info.MACAddressOrDash() != "24:6F:28:AA:BB:CC" {
		t.Fatalf("unexpected device info %+v", info)
	}
}

func TestSession_LogIsBounded(t *testing.T) {
	s := NewSession(500, nil)
	for i := 1; i <= 501; i++ {
		s.HandleRecord(fmt.Sprintf("line %d", i))
	}

	entries := s.Entries()
	if len(entries) != 500 || entries[0].Text != "line 2" || entries[499].Text != "line 501" {
		t.Fatalf("unexpected bounded log: len=%d first=%q", len(entries), entries[0].Text)
	}
}

func TestSession_PublishesInRevisionOrder(t *testing.T) {
	b := bus.New(nil)
	defer b.Close()
	sub := b.Subscribe(events.TopicConsoleLog, events.TopicDeviceInfo, events.TopicConnStatus)

	s := NewSession(10, b)
	s.SetStatus(events.ConnectionStatus{State: events.ConnectionStateConnected})
	s.HandleRecord(`{"jsonrpc":"2.0","id":1,"result":{"ip":"10.1.1.1"}}`)
	s.Sent("help")

	var revs []uint64
	var kinds []string
	timeout := time.After(2 * time.Second)
	for len(revs) < 4 {
		select {
		case msg := <-sub:
			switch ev := msg.(type) {
			case events.ConnectionStatus:
				revs = append(revs, ev.Rev)
				kinds = append(kinds, "status")
			case events.DeviceInfoChanged:
				revs = append(revs, ev.Rev)
				kinds = append(kinds, "device")
			case events.LogAppended:
				revs = append(revs, ev.Rev)
				kinds = append(kinds, ev.Entry.Text)
			}
		case <-timeout:
			t.Fatalf("timeout waiting for events, got %v", kinds)
		}
	}

	for i, rev := range revs {
		if rev != uint64(i+1) {
			t.Fatalf("unexpected revisions %v (%v)", revs, kinds)
		}
	}
	if kinds[1] != "device" || kinds[2] != "[ip] 10.1.1.1" || kinds[3] != "> help" {
		t.Fatalf("unexpected event order %v", kinds)
	}

	snap := s.Snapshot()
	if snap.Rev != 4 || len(snap.Entries) != 2 || snap.Status.State != events.ConnectionStateConnected {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestSession_SetStatusFillsTimestamp(t *testing.T) {
	s := NewSession(1, nil)
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	got := s.SetStatus(events.ConnectionStatus{State: events.ConnectionStateConnecting})
	if !got.Timestamp.Equal(fixed) || got.Rev != 1 {
		t.Fatalf("unexpected status %+v", got)
	}
}
