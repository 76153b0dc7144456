package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/skobkin/serialwifi/internal/bus"
	"github.com/skobkin/serialwifi/internal/config"
	"github.com/skobkin/serialwifi/internal/console"
	"github.com/skobkin/serialwifi/internal/domain"
	"github.com/skobkin/serialwifi/internal/logging"
	"github.com/skobkin/serialwifi/internal/notifications"
	"github.com/skobkin/serialwifi/internal/persistence"
)

// ErrTranscriptDisabled is returned by transcript accessors when the journal is off.
var ErrTranscriptDisabled = errors.New("transcript is disabled")

// Options carry command-line overrides. Zero values keep the config file value.
type Options struct {
	ConfigPath string
	Listen     string
	Port       string
	Baud       int
}

func (o Options) apply(cfg config.AppConfig) config.AppConfig {
	if listen := strings.TrimSpace(o.Listen); listen != "" {
		cfg.Web.Listen = listen
	}
	cfg.Connection = ResolveConnection(cfg.Connection, console.ConnectOptions{
		Port: o.Port,
		Baud: o.Baud,
	})

	return cfg
}

type Runtime struct {
	mu sync.RWMutex

	Ctx    context.Context
	cancel context.CancelFunc

	Paths     Paths
	Config    config.AppConfig
	StartedAt time.Time
	opts      Options

	LogManager *logging.Manager
	Bus        *bus.PubSubBus
	DB         *sql.DB

	Transcript  *persistence.TranscriptRepo
	WriterQueue *persistence.WriterQueue

	Session    *console.Session
	Controller *console.Controller

	Notifications *NotificationService
}

func Initialize(parent context.Context, opts Options) (*Runtime, error) {
	paths, err := ResolvePaths(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(paths.ConfigFile)
	if err != nil {
		return nil, err
	}
	cfg = opts.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(parent)
	rt := &Runtime{
		Ctx:       ctx,
		cancel:    cancel,
		Paths:     paths,
		Config:    cfg,
		StartedAt: time.Now(),
		opts:      opts,
	}

	logMgr := logging.NewManager()
	if err := logMgr.Configure(cfg.Logging, paths.LogFile); err != nil {
		_ = logMgr.Close()
		cancel()
		return nil, fmt.Errorf("configure logging: %w", err)
	}
	rt.LogManager = logMgr
	slog.Info("starting serialwifi runtime", "version", CurrentBuild().Version, "config", paths.ConfigFile)

	b := bus.New(logMgr.Logger("bus"))
	rt.Bus = b

	session := console.NewSession(cfg.Console.LogCapacity, b)
	session.SetStatus(InitialConnectionStatus(cfg.Connection))
	rt.Session = session

	if cfg.Transcript.Enabled {
		if err := rt.startTranscript(ctx); err != nil {
			_ = rt.Close()
			return nil, err
		}
	}

	rt.Controller = console.NewController(
		session,
		NewTransportFactory(rt.currentConnection),
		console.ControllerOptions{
			Encoding:     cfg.Connection.Encoding,
			MaxLineBytes: cfg.Console.MaxLineBytes,
			Bus:          b,
		},
		logMgr.Logger("console"),
	)

	rt.Notifications = NewNotificationService(
		b,
		rt.CurrentConfig,
		notifications.NewDesktopSender(Name, logMgr.Logger("notifications")),
		logMgr.Logger("app.notifications"),
	)
	rt.Notifications.Start(ctx)

	if err := config.Watch(ctx, paths.ConfigFile, logMgr.Logger("config"), rt.applyReloadedConfig); err != nil {
		slog.Warn("config watcher disabled", "error", err)
	}

	return rt, nil
}

func (r *Runtime) startTranscript(ctx context.Context) error {
	db, err := persistence.Open(ctx, r.Paths.DBFile)
	if err != nil {
		return err
	}
	r.DB = db
	r.Transcript = persistence.NewTranscriptRepo(db)

	writerQueue := persistence.NewWriterQueue(r.LogManager.Logger("persistence"), WriterCapacity)
	writerQueue.Start(ctx)
	r.WriterQueue = writerQueue
	StartTranscriptProjection(ctx, r.Bus, writerQueue, r.Transcript, r.StartedAt)

	return nil
}

// applyReloadedConfig keeps command-line overrides on top of the reloaded file.
// Console sizing and the transcript switch take effect on the next start.
func (r *Runtime) applyReloadedConfig(cfg config.AppConfig) {
	r.mu.Lock()
	cfg = r.opts.apply(cfg)
	r.Config = cfg
	r.mu.Unlock()

	if err := r.LogManager.Configure(cfg.Logging, r.Paths.LogFile); err != nil {
		slog.Warn("apply reloaded logging config", "error", err)
	}
}

func (r *Runtime) CurrentConfig() config.AppConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.Config
}

func (r *Runtime) currentConnection() config.ConnectionConfig {
	return r.CurrentConfig().Connection
}

func (r *Runtime) RecentTranscript(ctx context.Context, limit int) ([]domain.TranscriptEntry, error) {
	if r.Transcript == nil {
		return nil, ErrTranscriptDisabled
	}
	if r.WriterQueue != nil {
		if err := r.WriterQueue.Flush(ctx); err != nil {
			return nil, err
		}
	}

	return r.Transcript.Recent(ctx, limit)
}

func (r *Runtime) ClearTranscript(ctx context.Context) (int64, error) {
	if r.DB == nil {
		return 0, ErrTranscriptDisabled
	}
	if r.WriterQueue != nil {
		if err := r.WriterQueue.Flush(ctx); err != nil {
			return 0, err
		}
	}

	removed, err := persistence.ClearTranscript(ctx, r.DB)
	if err != nil {
		return 0, err
	}
	slog.Info("transcript cleared", "rows", removed)

	return removed, nil
}

func (r *Runtime) Close() error {
	if r.Controller != nil {
		r.Controller.Close()
	}
	if r.WriterQueue != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := r.WriterQueue.Flush(ctx); err != nil {
			slog.Warn("flush transcript on close", "error", err)
		}
		cancel()
	}
	if r.cancel != nil {
		r.cancel()
	}
	if r.Bus != nil {
		r.Bus.Close()
	}
	if r.DB != nil {
		_ = r.DB.Close()
	}
	if r.LogManager != nil {
		_ = r.LogManager.Close()
	}

	return nil
}
