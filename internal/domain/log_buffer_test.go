package domain

import (
	"fmt"
	"testing"
)

func TestLogBuffer_EvictsOldestAtCapacity(t *testing.T) {
	b := NewLogBuffer(500)
	for i := 1; i <= 501; i++ {
		b.Append(LogKindRx, fmt.Sprintf("line %d", i))
	}

	entries := b.Entries()
	if len(entries) != 500 {
		t.Fatalf("expected 500 entries, got %d", len(entries))
	}
	if entries[0].Text != "line 2" {
		t.Fatalf("expected entry 1 to be evicted, first is %q", entries[0].Text)
	}
	if entries[499].Text != "line 501" {
		t.Fatalf("expected newest entry last, got %q", entries[499].Text)
	}
	if entries[0].Seq != 2 || entries[499].Seq != 501 {
		t.Fatalf("unexpected sequence range %d..%d", entries[0].Seq, entries[499].Seq)
	}
}

func TestLogBuffer_PreservesOrderBelowCapacity(t *testing.T) {
	b := NewLogBuffer(3)
	b.Append(LogKindSystem, "[system] connected…")
	b.Append(LogKindTx, "> get_ip request sent")

	entries := b.Entries()
	if len(entries) != 2 || b.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Kind != LogKindSystem || entries[1].Kind != LogKindTx {
		t.Fatalf("unexpected order: %+v", entries)
	}
}

func TestLogBuffer_WrapsRepeatedly(t *testing.T) {
	b := NewLogBuffer(2)
	for i := 1; i <= 7; i++ {
		b.Append(LogKindRx, fmt.Sprint(i))
	}

	entries := b.Entries()
	if len(entries) != 2 || entries[0].Text != "6" || entries[1].Text != "7" {
		t.Fatalf("unexpected entries after wrap: %+v", entries)
	}
}

func TestLogBuffer_EntriesIsACopy(t *testing.T) {
	b := NewLogBuffer(2)
	b.Append(LogKindRx, "a")

	entries := b.Entries()
	entries[0].Text = "mutated"

	if got := b.Entries()[0].Text; got != "a" {
		t.Fatalf("buffer was mutated through snapshot: %q", got)
	}
}

func TestDeviceInfo_WithValues(t *testing.T) {
	var info DeviceInfo
	if info.IPOrDash() != "-" || info.MACAddressOrDash() != "-" {
		t.Fatalf("expected unknown values to render as dash")
	}

	info = info.WithIP("192.168.1.5").WithMACAddress("AA:BB:CC:DD:EE:FF")
	if info.IPOrDash() != "192.168.1.5" {
		t.Fatalf("unexpected ip: %q", info.IPOrDash())
	}
	if info.MACAddressOrDash() != "AA:BB:CC:DD:EE:FF" {
		t.Fatalf("unexpected mac: %q", info.MACAddressOrDash())
	}

	empty := DeviceInfo{}.WithIP("")
	if empty.IP == nil || *empty.IP != "" {
		t.Fatalf("empty reported ip must still be known")
	}
}
