package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/skobkin/serialwifi/internal/app"
	"github.com/skobkin/serialwifi/internal/console"
	"github.com/skobkin/serialwifi/internal/web"
)

func main() {
	if err := run(); err != nil {
		slog.Error("run serialwifi", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "config file path (default: user config dir)")
	listen := flag.String("listen", "", "web console listen address, overrides config")
	port := flag.String("port", "", "serial port (or host for the ip connector), overrides config")
	baud := flag.Int("baud", 0, "serial baud rate, overrides config")
	connect := flag.Bool("connect", false, "connect to the device on startup")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println(app.Name, app.CurrentBuild().String())

		return nil
	}
	if *baud < 0 {
		return fmt.Errorf("invalid baud rate: %d", *baud)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := app.Initialize(ctx, app.Options{
		ConfigPath: *configPath,
		Listen:     *listen,
		Port:       *port,
		Baud:       *baud,
	})
	if err != nil {
		return fmt.Errorf("initialize app runtime: %w", err)
	}
	defer func() {
		_ = rt.Close()
	}()

	deps := web.Dependencies{
		Controller: rt.Controller,
		Session:    rt.Session,
		Bus:        rt.Bus,
		Logger:     rt.LogManager.Logger("web"),
	}
	if rt.Transcript != nil {
		deps.Transcript = rt
	}
	server, err := web.NewServer(deps)
	if err != nil {
		return err
	}

	if *connect {
		// Failures are already on the console log; the server still starts.
		if err := rt.Controller.Connect(ctx, console.ConnectOptions{}); err != nil {
			slog.Warn("connect on startup failed", "error", err)
		}
	}

	err = server.Run(ctx, rt.CurrentConfig().Web.Listen)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}
