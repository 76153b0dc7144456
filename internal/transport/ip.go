package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"
)

// Serial-to-network bridges on the ESP32 conventionally listen on telnet.
const defaultIPPort = 23

const (
	ipDialTimeout = 6 * time.Second
	ipReadPoll    = 300 * time.Millisecond
)

// IPTransport carries the console stream over a TCP socket exposed by a
// serial bridge.
type IPTransport struct {
	host string
	port int

	mu      sync.Mutex
	conn    net.Conn
	writeMu sync.Mutex
}

// NewIPTransport accepts "host" or "host:port".
func NewIPTransport(address string) (*IPTransport, error) {
	host, port, err := splitHostPort(address)
	if err != nil {
		return nil, err
	}

	return &IPTransport{host: host, port: port}, nil
}

func splitHostPort(address string) (string, int, error) {
	host, rawPort, err := net.SplitHostPort(address)
	if err != nil {
		// No port in the address.
		return address, defaultIPPort, nil
	}
	port, err := strconv.Atoi(rawPort)
	if err != nil || port <= 0 || port > 65535 {
		return "", 0, fmt.Errorf("invalid port in %q", address)
	}

	return host, port, nil
}

func (t *IPTransport) Name() string {
	return "ip"
}

func (t *IPTransport) StatusTarget() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.target()
}

func (t *IPTransport) target() string {
	if t.host == "" {
		return ""
	}

	return net.JoinHostPort(t.host, strconv.Itoa(t.port))
}

func (t *IPTransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	target := t.target()
	logger := transportLogger("ip", "target", target)

	if t.conn != nil {
		logger.Debug("connect skipped: already connected")

		return nil
	}
	if t.host == "" {
		logger.Warn("connect failed: host is empty")

		return errors.New("ip host is empty")
	}

	dialer := net.Dialer{Timeout: ipDialTimeout}
	logger.Info("connecting")
	conn, err := dialer.DialContext(ctx, "tcp", target)
	if err != nil {
		logger.Warn("connect failed", "error", err)

		return fmt.Errorf("dial tcp: %w", err)
	}
	t.conn = conn
	logger.Info("connected", "remote", conn.RemoteAddr().String())

	return nil
}

func (t *IPTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	logger := transportLogger("ip", "target", t.target())
	if t.conn == nil {
		logger.Debug("close skipped: not connected")

		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	if err != nil {
		logger.Warn("close failed", "error", err)

		return err
	}
	logger.Info("closed")

	return nil
}

// Read polls with a short deadline so ctx cancellation is observed even when
// the bridge is silent.
func (t *IPTransport) Read(ctx context.Context, buf []byte) (int, error) {
	conn, err := t.currentConn()
	if err != nil {
		return 0, err
	}

	return pollRead(ctx, deadlineReader{conn: conn}, buf)
}

func (t *IPTransport) Write(ctx context.Context, payload []byte) error {
	conn, err := t.currentConn()
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	} else {
		_ = conn.SetWriteDeadline(time.Time{})
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if err := writeFull(ctx, conn, payload); err != nil {
		transportLogger("ip").Warn("write failed", "len", len(payload), "error", err)

		return fmt.Errorf("write tcp: %w", err)
	}

	return nil
}

func (t *IPTransport) currentConn() (net.Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil, ErrNotConnected
	}

	return t.conn, nil
}

// deadlineReader turns read timeouts into empty reads for pollRead.
type deadlineReader struct {
	conn net.Conn
}

func (r deadlineReader) Read(buf []byte) (int, error) {
	_ = r.conn.SetReadDeadline(time.Now().Add(ipReadPoll))
	n, err := r.conn.Read(buf)
	var netErr net.Error
	if err != nil && n == 0 && errors.As(err, &netErr) && netErr.Timeout() {
		return 0, nil
	}

	return n, err
}
