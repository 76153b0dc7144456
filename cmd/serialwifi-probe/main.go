package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/skobkin/serialwifi/internal/app"
	"github.com/skobkin/serialwifi/internal/bus"
	"github.com/skobkin/serialwifi/internal/config"
	"github.com/skobkin/serialwifi/internal/console"
	"github.com/skobkin/serialwifi/internal/events"
	"github.com/skobkin/serialwifi/internal/logging"
	"github.com/skobkin/serialwifi/internal/transport"
)

const (
	methodGetIP         = "get_ip"
	methodGetMACAddress = "get_mac_address"
	methodSetWiFiCreds  = "set_wifi_creds"
	methodSend          = "send"
	methodNone          = "none"

	maxHexPreviewLen = 64
)

// requester is the part of the console controller the probe drives.
type requester interface {
	SendLine(ctx context.Context, text string) error
	QueryIP(ctx context.Context) error
	QueryMACAddress(ctx context.Context) error
	SetWiFiCredentials(ctx context.Context, ssid, pass string) error
}

type probeRequest struct {
	Method string
	SSID   string
	Pass   string
	Text   string
}

func main() {
	if err := run(); err != nil {
		slog.Error("run probe", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "config file path (default: user config dir)")
	port := flag.String("port", "", "serial port (or host for the ip connector), overrides config")
	baud := flag.Int("baud", 0, "serial baud rate, overrides config")
	method := flag.String("method", methodGetIP, "get_ip|get_mac_address|set_wifi_creds|send|none")
	ssid := flag.String("ssid", "", "WiFi SSID for set_wifi_creds")
	pass := flag.String("pass", "", "WiFi password for set_wifi_creds")
	text := flag.String("text", "", "text line for send")
	wait := flag.Duration("wait", 3*time.Second, "how long to print device output after the request")
	listPorts := flag.Bool("list", false, "list serial ports and exit")
	verbose := flag.Bool("v", false, "debug logging with raw chunk dumps")
	flag.Parse()

	if *listPorts {
		return printPorts(os.Stdout)
	}

	req := probeRequest{Method: *method, SSID: *ssid, Pass: *pass, Text: *text}
	if err := req.validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	paths, err := app.ResolvePaths(*configPath)
	if err != nil {
		return fmt.Errorf("resolve paths: %w", err)
	}
	cfg, err := config.Load(paths.ConfigFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.Connection = app.ResolveConnection(cfg.Connection, console.ConnectOptions{Port: *port, Baud: *baud})

	logMgr := logging.NewManager()
	cfg.Logging.LogToFile = false
	cfg.Logging.Level = "warn"
	if *verbose {
		cfg.Logging.Level = "debug"
	}
	if err := logMgr.Configure(cfg.Logging, paths.LogFile); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer func() {
		if closeErr := logMgr.Close(); closeErr != nil {
			slog.Warn("close log manager", "error", closeErr)
		}
	}()
	logger := logMgr.Logger("probe")

	b := bus.New(logMgr.Logger("bus"))
	defer b.Close()

	logSub := b.Subscribe(events.TopicConsoleLog)
	printed := make(chan struct{})
	go func() {
		printLog(os.Stdout, logSub)
		close(printed)
	}()
	if *verbose {
		rawCtx, stopRaw := context.WithCancel(ctx)
		defer stopRaw()
		watchRaw(rawCtx, b, logger)
	}

	session := console.NewSession(cfg.Console.LogCapacity, b)
	controller := console.NewController(
		session,
		app.NewTransportFactory(func() config.ConnectionConfig { return cfg.Connection }),
		console.ControllerOptions{
			Encoding:     cfg.Connection.Encoding,
			MaxLineBytes: cfg.Console.MaxLineBytes,
			Bus:          b,
		},
		logMgr.Logger("console"),
	)
	// The final disconnect entry must reach stdout before the bus shuts down.
	defer func() {
		controller.Close()
		b.Unsubscribe(logSub, events.TopicConsoleLog)
		<-printed
	}()

	if err := controller.Connect(ctx, console.ConnectOptions{}); err != nil {
		return err
	}
	if err := req.dispatch(ctx, controller); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
	case <-time.After(*wait):
	}

	info := session.DeviceInfo()
	logger.Debug("probe finished", "ip", info.IPOrDash(), "mac_address", info.MACAddressOrDash())

	return nil
}

func (r probeRequest) validate() error {
	switch r.Method {
	case methodGetIP, methodGetMACAddress, methodNone:
		return nil
	case methodSetWiFiCreds:
		if r.SSID == "" {
			return errors.New("set_wifi_creds requires -ssid")
		}

		return nil
	case methodSend:
		if strings.TrimSpace(r.Text) == "" {
			return errors.New("send requires -text")
		}

		return nil
	default:
		return fmt.Errorf("unknown method: %q", r.Method)
	}
}

func (r probeRequest) dispatch(ctx context.Context, target requester) error {
	switch r.Method {
	case methodGetIP:
		return target.QueryIP(ctx)
	case methodGetMACAddress:
		return target.QueryMACAddress(ctx)
	case methodSetWiFiCreds:
		return target.SetWiFiCredentials(ctx, r.SSID, r.Pass)
	case methodSend:
		return target.SendLine(ctx, r.Text)
	default:
		return nil
	}
}

// printLog writes every entry until the subscription is closed by Unsubscribe.
func printLog(out io.Writer, sub bus.Subscription) {
	for raw := range sub {
		if appended, ok := raw.(events.LogAppended); ok {
			_, _ = fmt.Fprintln(out, appended.Entry.Text)
		}
	}
}

func printPorts(out io.Writer) error {
	ports, err := transport.ListPorts()
	if err != nil {
		return err
	}
	for _, p := range ports {
		line := p.Name
		if p.IsUSB {
			line = fmt.Sprintf("%s\t%s:%s\t%s", p.Name, p.VID, p.PID, p.Product)
		}
		_, _ = fmt.Fprintln(out, line)
	}

	return nil
}

func watchRaw(ctx context.Context, b bus.MessageBus, logger *slog.Logger) {
	rawInSub := b.Subscribe(events.TopicRawChunkIn)
	rawOutSub := b.Subscribe(events.TopicRawChunkOut)

	go func() {
		for {
			select {
			case <-ctx.Done():
				b.Unsubscribe(rawInSub, events.TopicRawChunkIn)
				b.Unsubscribe(rawOutSub, events.TopicRawChunkOut)
				return
			case raw := <-rawOutSub:
				if chunk, ok := raw.(events.RawChunk); ok {
					logger.Debug("raw-out", "len", chunk.Len, "hex", previewHex(chunk.Hex))
				}
			case raw := <-rawInSub:
				if chunk, ok := raw.(events.RawChunk); ok {
					logger.Debug("raw-in", "len", chunk.Len, "hex", previewHex(chunk.Hex))
				}
			}
		}
	}()
}

func previewHex(hex string) string {
	hex = strings.TrimSpace(hex)
	if len(hex) <= maxHexPreviewLen {
		return hex
	}
	return hex[:maxHexPreviewLen] + "..."
}
