package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/skobkin/serialwifi/internal/config"
	"github.com/skobkin/serialwifi/internal/events"
)

func TestOptionsApply(t *testing.T) {
	cfg := config.Default()
	got := Options{Listen: " 0.0.0.0:9000 ", Port: "/dev/ttyACM0", Baud: 9600}.apply(cfg)

	if got.Web.Listen != "0.0.0.0:9000" {
		t.Fatalf("expected listen override, got %q", got.Web.Listen)
	}
	if got.Connection.SerialPort != "/dev/ttyACM0" || got.Connection.SerialBaud != 9600 {
		t.Fatalf("unexpected connection override: %+v", got.Connection)
	}

	untouched := Options{}.apply(cfg)
	if untouched != cfg {
		t.Fatalf("expected empty options to keep config, got %+v", untouched)
	}
}

func TestInitializeWithTranscript(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(t.TempDir(), "cfg"))
	cfgPath := filepath.Join(t.TempDir(), "config.json")
	cfg := config.Default()
	cfg.Transcript.Enabled = true
	cfg.Console.LogCapacity = 10
	if err := config.Save(cfgPath, cfg); err != nil {
		t.Fatalf("save config: %v", err)
	}

	rt, err := Initialize(context.Background(), Options{ConfigPath: cfgPath, Port: "/dev/ttyUSB3"})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	defer func() {
		_ = rt.Close()
	}()

	status := rt.Controller.Status()
	if status.State != events.ConnectionStateDisconnected || status.Target != "/dev/ttyUSB3" {
		t.Fatalf("unexpected initial status: %+v", status)
	}
	if rt.CurrentConfig().Console.LogCapacity != 10 {
		t.Fatalf("expected config from file, got %+v", rt.CurrentConfig().Console)
	}

	rt.Session.System("hello")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for {
		entries, err := rt.RecentTranscript(ctx, 10)
		if err != nil {
			t.Fatalf("recent transcript: %v", err)
		}
		if len(entries) == 1 {
			if entries[0].Text != "[system] hello" {
				t.Fatalf("unexpected transcript text: %q", entries[0].Text)
			}
			break
		}
		select {
		case <-ctx.Done():
			t.Fatalf("timed out waiting for transcript entry")
		case <-time.After(20 * time.Millisecond):
		}
	}

	removed, err := rt.ClearTranscript(ctx)
	if err != nil {
		t.Fatalf("clear transcript: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed row, got %d", removed)
	}
	if _, err := os.Stat(rt.Paths.DBFile); err != nil {
		t.Fatalf("expected db file: %v", err)
	}
}

func TestInitializeWithoutTranscript(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(t.TempDir(), "cfg"))

	rt, err := Initialize(context.Background(), Options{ConfigPath: filepath.Join(t.TempDir(), "missing.json")})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	defer func() {
		_ = rt.Close()
	}()

	if _, err := rt.RecentTranscript(context.Background(), 10); !errors.Is(err, ErrTranscriptDisabled) {
		t.Fatalf("expected ErrTranscriptDisabled, got %v", err)
	}
	if _, err := rt.ClearTranscript(context.Background()); !errors.Is(err, ErrTranscriptDisabled) {
		t.Fatalf("expected ErrTranscriptDisabled, got %v", err)
	}
}

func TestInitializeRejectsInvalidOverride(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(t.TempDir(), "cfg"))
	cfgPath := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(cfgPath, []byte(`{"connection":{"connector":"bluetooth"}}`), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Initialize(context.Background(), Options{ConfigPath: cfgPath}); err == nil {
		t.Fatalf("expected invalid connector error")
	}
}
