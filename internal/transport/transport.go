package transport

import (
	"context"
	"errors"
	"log/slog"
)

var ErrNotConnected = errors.New("transport is not connected")

// Transport is a duplex byte stream to the device.
//
// Read blocks until at least one byte is available, the stream ends (io.EOF)
// or ctx is done. Write sends the whole payload or fails.
type Transport interface {
	Name() string
	Connect(ctx context.Context) error
	Close() error
	Read(ctx context.Context, buf []byte) (int, error)
	Write(ctx context.Context, payload []byte) error
}

type StatusTargetResolver interface {
	StatusTarget() string
}

func transportLogger(name string, attrs ...any) *slog.Logger {
	logger := slog.With("component", "transport", "transport", name)
	if len(attrs) == 0 {
		return logger
	}

	return logger.With(attrs...)
}
