package console

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/skobkin/serialwifi/internal/bus"
	"github.com/skobkin/serialwifi/internal/events"
	"github.com/skobkin/serialwifi/internal/rpc"
	"github.com/skobkin/serialwifi/internal/transport"
)

var (
	ErrNotConnected     = errors.New("not connected")
	ErrAlreadyConnected = errors.New("already connected")
)

const (
	defaultReadBufferSize = 1024
	defaultCloseWait      = 2 * time.Second
)

// ConnectOptions override the configured target for a single connect.
// Zero values mean "use the configured default".
type ConnectOptions struct {
	Port string `json:"port,omitempty"`
	Baud int    `json:"baud,omitempty"`
}

// TransportFactory builds an unopened transport for a connect attempt.
type TransportFactory func(opts ConnectOptions) (transport.Transport, error)

type ControllerOptions struct {
	Encoding     string
	MaxLineBytes int
	// Bus receives raw chunk diagnostics. Optional.
	Bus bus.MessageBus
	// CloseWait bounds how long disconnect waits for the read loop to exit.
	CloseWait time.Duration
}

// Controller drives the connection state machine and owns the single read
// loop of the active link.
type Controller struct {
	session *Session
	factory TransportFactory
	opts    ControllerOptions
	logger  *slog.Logger

	// opMu serializes connect and disconnect.
	opMu sync.Mutex
	mu   sync.Mutex
	link *link
}

type link struct {
	tr      transport.Transport
	name    string
	target  string
	cancel  context.CancelFunc
	done    chan struct{}
	closing atomic.Bool
}

func NewController(session *Session, factory TransportFactory, opts ControllerOptions, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default().With("component", "console.controller")
	}
	if opts.CloseWait <= 0 {
		opts.CloseWait = defaultCloseWait
	}

	return &Controller{
		session: session,
		factory: factory,
		opts:    opts,
		logger:  logger,
	}
}

func (c *Controller) Session() *Session {
	return c.session
}

func (c *Controller) Status() events.ConnectionStatus {
	return c.session.Status()
}

func (c *Controller) Connected() bool {
	return c.currentLink() != nil
}

// Connect opens a transport and starts the read loop. Failures are logged to
// the console as one error line and leave the controller disconnected.
func (c *Controller) Connect(ctx context.Context, opts ConnectOptions) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if c.currentLink() != nil {
		return ErrAlreadyConnected
	}

	decoder, err := transport.NewTextDecoder(c.opts.Encoding)
	if err != nil {
		return c.failConnect("", "", err)
	}
	tr, err := c.factory(opts)
	if err != nil {
		return c.failConnect("", "", err)
	}
	name, target := tr.Name(), statusTarget(tr)

	c.session.SetStatus(events.ConnectionStatus{
		State:         events.ConnectionStateConnecting,
		TransportName: name,
		Target:        target,
	})
	c.logger.Info("connecting", "transport", name, "target", target)
	if err := tr.Connect(ctx); err != nil {
		_ = tr.Close()

		return c.failConnect(name, target, err)
	}

	linkCtx, cancel := context.WithCancel(context.Background())
	l := &link{
		tr:     tr,
		name:   name,
		target: target,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	c.mu.Lock()
	c.link = l
	c.mu.Unlock()

	c.session.SetStatus(events.ConnectionStatus{
		State:         events.ConnectionStateConnected,
		TransportName: name,
		Target:        target,
	})
	c.session.System("connected…")
	c.logger.Info("connected", "transport", name, "target", target)

	go c.readLoop(linkCtx, l, decoder)

	return nil
}

func (c *Controller) failConnect(name, target string, err error) error {
	c.logger.Warn("connect failed", "transport", name, "target", target, "error", err)
	c.session.SetStatus(events.ConnectionStatus{
		State:         events.ConnectionStateDisconnected,
		Err:           err.Error(),
		TransportName: name,
		Target:        target,
	})
	c.session.Error(err.Error())

	return fmt.Errorf("connect: %w", err)
}

// Disconnect closes the active link. Close errors are never surfaced.
func (c *Controller) Disconnect() error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	l := c.currentLink()
	if l == nil {
		return ErrNotConnected
	}
	c.teardown(l)

	return nil
}

// Close disconnects if needed; used on shutdown.
func (c *Controller) Close() {
	if err := c.Disconnect(); err != nil && !errors.Is(err, ErrNotConnected) {
		c.logger.Debug("disconnect on close failed", "error", err)
	}
}

// dropLink tears l down unless it was already replaced or closed.
func (c *Controller) dropLink(l *link) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if c.currentLink() != l {
		return
	}
	c.teardown(l)
}

// teardown must be called with opMu held.
func (c *Controller) teardown(l *link) {
	c.session.SetStatus(events.ConnectionStatus{
		State:         events.ConnectionStateDisconnecting,
		TransportName: l.name,
		Target:        l.target,
	})

	l.closing.Store(true)
	l.cancel()
	if err := l.tr.Close(); err != nil {
		c.logger.Debug("transport close failed", "transport", l.name, "error", err)
	}

	select {
	case <-l.done:
	case <-time.After(c.opts.CloseWait):
		c.logger.Warn("read loop did not stop in time", "transport", l.name)
	}

	c.mu.Lock()
	if c.link == l {
		c.link = nil
	}
	c.mu.Unlock()

	c.session.SetStatus(events.ConnectionStatus{
		State:         events.ConnectionStateDisconnected,
		TransportName: l.name,
		Target:        l.target,
	})
	c.session.System("disconnected")
	c.logger.Info("disconnected", "transport", l.name, "target", l.target)
}

func (c *Controller) readLoop(ctx context.Context, l *link, decoder *transport.TextDecoder) {
	defer close(l.done)

	framer := transport.NewLineFramer(c.opts.MaxLineBytes)
	buf := make([]byte, defaultReadBufferSize)
	for {
		n, err := l.tr.Read(ctx, buf)
		if n > 0 {
			c.publishRaw(events.TopicRawChunkIn, buf[:n])
			records, frameErr := framer.Push(decoder.Decode(buf[:n]))
			for _, record := range records {
				c.session.HandleRecord(record)
			}
			if frameErr != nil {
				c.logger.Warn("dropping link", "transport", l.name, "error", frameErr)
				c.session.Error(frameErr.Error())
				go c.dropLink(l)

				return
			}
		}
		if err == nil {
			continue
		}

		switch {
		case l.closing.Load(), errors.Is(err, context.Canceled):
			c.logger.Debug("read loop stopped", "transport", l.name)
		case errors.Is(err, io.EOF):
			c.logger.Info("device stream ended", "transport", l.name)
		default:
			// The link stays connected; the operator decides when to disconnect.
			c.logger.Warn("read failed", "transport", l.name, "error", err)
			c.session.Error(err.Error())
		}

		return
	}
}

// SendLine writes free text followed by CRLF.
func (c *Controller) SendLine(ctx context.Context, text string) error {
	return c.send(ctx, rpc.EncodeLine(text), text)
}

func (c *Controller) QueryIP(ctx context.Context) error {
	return c.sendRequest(ctx, rpc.NewGetIPRequest())
}

func (c *Controller) QueryMACAddress(ctx context.Context) error {
	return c.sendRequest(ctx, rpc.NewGetMACAddressRequest())
}

// SetWiFiCredentials pushes credentials as given; an empty SSID is rejected
// by callers before reaching here.
func (c *Controller) SetWiFiCredentials(ctx context.Context, ssid, pass string) error {
	return c.sendRequest(ctx, rpc.NewSetWiFiCredentialsRequest(ssid, pass))
}

func (c *Controller) sendRequest(ctx context.Context, req rpc.Request) error {
	if c.currentLink() == nil {
		return ErrNotConnected
	}
	payload, err := req.Encode()
	if err != nil {
		c.session.Error(err.Error())

		return err
	}

	return c.send(ctx, payload, req.Method+" request sent")
}

func (c *Controller) send(ctx context.Context, payload []byte, sentText string) error {
	l := c.currentLink()
	if l == nil {
		return ErrNotConnected
	}

	if err := l.tr.Write(ctx, payload); err != nil {
		c.logger.Warn("write failed", "transport", l.name, "error", err)
		c.session.Error(err.Error())

		return fmt.Errorf("send: %w", err)
	}
	c.publishRaw(events.TopicRawChunkOut, payload)
	c.session.Sent(sentText)

	return nil
}

func (c *Controller) currentLink() *link {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.link
}

func (c *Controller) publishRaw(topic string, chunk []byte) {
	if c.opts.Bus == nil {
		return
	}
	c.opts.Bus.Publish(topic, events.RawChunk{Hex: strings.ToUpper(hex.EncodeToString(chunk)), Len: len(chunk)})
}

func statusTarget(tr transport.Transport) string {
	if resolver, ok := tr.(transport.StatusTargetResolver); ok {
		return resolver.StatusTarget()
	}

	return ""
}
