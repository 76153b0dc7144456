package console

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/skobkin/serialwifi/internal/transport"
)

var errPortClosed = errors.New("port closed")

type fakeRead struct {
	data []byte
	err  error
}

type fakeTransport struct {
	reads      chan fakeRead
	closed     chan struct{}
	closeOnce  sync.Once
	connectErr error
	writeErr   error
	closeErr   error

	mu      sync.Mutex
	written bytes.Buffer
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		reads:  make(chan fakeRead, 16),
		closed: make(chan struct{}),
	}
}

func (f *fakeTransport) Name() string { return "fake" }

func (f *fakeTransport) StatusTarget() string { return "/dev/ttyFAKE0" }

func (f *fakeTransport) Connect(context.Context) error { return f.connectErr }

func (f *fakeTransport) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return f.closeErr
}

func (f *fakeTransport) Read(ctx context.Context, buf []byte) (int, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-f.closed:
		return 0, errPortClosed
	case r := <-f.reads:
		return copy(buf, r.data), r.err
	}
}

func (f *fakeTransport) Write(_ context.Context, payload []byte) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.written.Write(payload)

	return nil
}

func (f *fakeTransport) Written() string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.written.String()
}

func (f *fakeTransport) feed(chunks ...string) {
	for _, c := range chunks {
		f.reads <- fakeRead{data: []byte(c)}
	}
}

func newTestController(t *testing.T, ft *fakeTransport, maxLine int) (*Controller, *Session) {
	t.Helper()

	session := NewSession(500, nil)
	ctrl := NewController(session, func(ConnectOptions) (transport.Transport, error) {
		return ft, nil
	}, ControllerOptions{Encoding: "utf-8", MaxLineBytes: maxLine}, nil)
	t.Cleanup(ctrl.Close)

	return ctrl, session
}

func logTexts(s *Session) []string {
	entries := s.Entries()
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Text)
	}

	return out
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", what)
}

func waitForLogLen(t *testing.T, s *Session, n int) {
	t.Helper()
	waitFor(t, "log entries", func() bool { return len(s.Entries()) >= n })
}
