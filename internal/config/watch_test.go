package config

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestWatchDeliversSavedConfig(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	path := filepath.Join(t.TempDir(), "config.json")
	if err := Save(path, Default()); err != nil {
		t.Fatalf("save initial config: %v", err)
	}

	changes := make(chan AppConfig, 8)
	if err := Watch(ctx, path, nil, func(cfg AppConfig) { changes <- cfg }); err != nil {
		t.Fatalf("start watcher: %v", err)
	}

	updated := Default()
	updated.Logging.Level = "debug"
	if err := Save(path, updated); err != nil {
		t.Fatalf("save updated config: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-changes:
			if cfg.Logging.Level == "debug" {
				return
			}
		case <-deadline:
			t.Fatalf("timeout waiting for config reload")
		}
	}
}

func TestWatchFailsForMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "config.json")
	if err := Watch(context.Background(), path, nil, func(AppConfig) {}); err == nil {
		t.Fatalf("expected error for missing directory")
	}
}
