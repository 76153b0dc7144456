package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/skobkin/serialwifi/internal/config"
	"github.com/skobkin/serialwifi/internal/console"
	"github.com/skobkin/serialwifi/internal/platform"
	"github.com/skobkin/serialwifi/internal/transport"
)

// ResolveConnection applies per-connect overrides to the configured target.
// For the ip connector the port override names the host.
func ResolveConnection(cfg config.ConnectionConfig, opts console.ConnectOptions) config.ConnectionConfig {
	if port := strings.TrimSpace(opts.Port); port != "" {
		if cfg.Connector == config.ConnectorIP {
			cfg.Host = port
		} else {
			cfg.SerialPort = port
		}
	}
	if opts.Baud > 0 {
		cfg.SerialBaud = opts.Baud
	}

	return cfg
}

func NewTransportForConnection(cfg config.ConnectionConfig) (transport.Transport, error) {
	if err := cfg.ValidateTarget(); err != nil {
		return nil, err
	}

	switch cfg.Connector {
	case config.ConnectorIP:
		return transport.NewIPTransport(strings.TrimSpace(cfg.Host))
	case config.ConnectorSerial:
		return transport.NewSerialTransport(strings.TrimSpace(cfg.SerialPort), cfg.SerialBaud), nil
	default:
		return nil, fmt.Errorf("unknown connector: %q", cfg.Connector)
	}
}

// NewTransportFactory builds transports from the current connection config.
// Serial transports additionally hold a per-port lock while open so a second
// process cannot interleave writes on the same device.
func NewTransportFactory(current func() config.ConnectionConfig) console.TransportFactory {
	return func(opts console.ConnectOptions) (transport.Transport, error) {
		cfg := ResolveConnection(current(), opts)
		tr, err := NewTransportForConnection(cfg)
		if err != nil {
			return nil, err
		}
		if cfg.Connector == config.ConnectorSerial {
			return newPortLockedTransport(tr, Name, strings.TrimSpace(cfg.SerialPort)), nil
		}

		return tr, nil
	}
}

type portLockedTransport struct {
	transport.Transport
	appID    string
	resource string

	mu   sync.Mutex
	lock platform.ResourceLock
}

func newPortLockedTransport(tr transport.Transport, appID, resource string) *portLockedTransport {
	return &portLockedTransport{Transport: tr, appID: appID, resource: resource}
}

func (t *portLockedTransport) StatusTarget() string {
	if resolver, ok := t.Transport.(transport.StatusTargetResolver); ok {
		return resolver.StatusTarget()
	}

	return t.resource
}

func (t *portLockedTransport) Connect(ctx context.Context) error {
	lock, err := platform.AcquireLock(t.appID, t.resource)
	switch {
	case errors.Is(err, platform.ErrLockUnsupported):
		slog.Debug("port lock unavailable", "port", t.resource, "error", err)
	case err != nil:
		return fmt.Errorf("lock %s: %w", t.resource, err)
	}

	if err := t.Transport.Connect(ctx); err != nil {
		if lock != nil {
			_ = lock.Release()
		}

		return err
	}

	t.mu.Lock()
	t.lock = lock
	t.mu.Unlock()

	return nil
}

func (t *portLockedTransport) Close() error {
	err := t.Transport.Close()

	t.mu.Lock()
	lock := t.lock
	t.lock = nil
	t.mu.Unlock()

	if lock != nil {
		if relErr := lock.Release(); relErr != nil {
			err = errors.Join(err, relErr)
		}
	}

	return err
}
