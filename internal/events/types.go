package events

import (
	"time"

	"github.com/skobkin/serialwifi/internal/domain"
)

// ConnectionState describes the device link lifecycle state shown in the console.
type ConnectionState string

const (
	ConnectionStateDisconnected  ConnectionState = "disconnected"
	ConnectionStateConnecting    ConnectionState = "connecting"
	ConnectionStateConnected     ConnectionState = "connected"
	ConnectionStateDisconnecting ConnectionState = "disconnecting"
)

// ConnectionStatus is a bus event snapshot of current link status.
//
// Rev orders every console event (status, log, device info) on one counter,
// so an observer holding a snapshot can drop anything at or below its Rev.
type ConnectionStatus struct {
	Rev           uint64          `json:"rev"`
	State         ConnectionState `json:"state"`
	Err           string          `json:"error,omitempty"`
	TransportName string          `json:"transport,omitempty"`
	Target        string          `json:"target,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
}

// LogAppended is published for every new console line.
type LogAppended struct {
	Rev   uint64          `json:"rev"`
	Entry domain.LogEntry `json:"entry"`
}

// DeviceInfoChanged carries the full DeviceInfo after a routed response.
type DeviceInfoChanged struct {
	Rev  uint64            `json:"rev"`
	Info domain.DeviceInfo `json:"device"`
}

// RawChunk carries byte-level diagnostics for debug output.
type RawChunk struct {
	Hex string
	Len int
}
