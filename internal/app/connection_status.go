package app

import (
	"strings"

	"github.com/skobkin/serialwifi/internal/config"
	"github.com/skobkin/serialwifi/internal/events"
)

func TransportNameFromConnector(connector config.ConnectorType) string {
	switch connector {
	case config.ConnectorIP:
		return "ip"
	case config.ConnectorSerial:
		return "serial"
	default:
		if value := strings.TrimSpace(string(connector)); value != "" {
			return value
		}
		return "unknown"
	}
}

func ConnectionTarget(cfg config.ConnectionConfig) string {
	switch cfg.Connector {
	case config.ConnectorIP:
		return strings.TrimSpace(cfg.Host)
	case config.ConnectorSerial:
		return strings.TrimSpace(cfg.SerialPort)
	default:
		return ""
	}
}

// InitialConnectionStatus describes the configured target before any
// connect attempt.
func InitialConnectionStatus(cfg config.ConnectionConfig) events.ConnectionStatus {
	return events.ConnectionStatus{
		State:         events.ConnectionStateDisconnected,
		TransportName: TransportNameFromConnector(cfg.Connector),
		Target:        ConnectionTarget(cfg),
	}
}
