package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"cloudctl/internal/arm"
	"cloudctl/internal/config"
	"cloudctl/internal/core"
	"cloudctl/internal/live"
	"cloudctl/internal/modules/cdn"
	"cloudctl/internal/modules/history"
	"cloudctl/internal/modules/host"
	"cloudctl/internal/modules/resource"
	"cloudctl/internal/recording"
	"cloudctl/internal/storage"
	"cloudctl/internal/storage/sqlite"
	"cloudctl/internal/transports/common"
)

// App агрегирует зависимости CLI.
type App struct {
	Registry *core.Registry
	Service  *common.Service
	Store    storage.Store
	Config   config.Config

	recorder *recording.Recorder
	replayer *recording.Replayer
}

// NewApp строит приложение: отправитель запросов, реестр команд и историю.
func NewApp(ctx context.Context, cfg config.Config, version string, lg *slog.Logger) (*App, error) {
	if lg == nil {
		lg = slog.Default()
	}
	a := &App{Config: cfg}

	info, err := host.Describe(ctx, version)
	if err != nil {
		lg.Debug("platform info is incomplete", "err", err)
	}
	opts := arm.Options{
		Endpoint:     cfg.Cloud.Endpoint,
		Subscription: cfg.Cloud.Subscription,
		Token:        cfg.Cloud.Token,
		UserAgent:    info.UserAgent(),
		PollInterval: time.Duration(cfg.Poll.IntervalSeconds) * time.Second,
		PollTimeout:  time.Duration(cfg.Poll.TimeoutSeconds) * time.Second,
		Logger:       lg,
	}

	sender, err := a.newSender(cfg, &opts, lg)
	if err != nil {
		return nil, err
	}
	lg.Debug("sender ready", "mode", cfg.Recording.Mode, "endpoint", opts.Endpoint)

	var (
		store storage.Store
		db    *sqlite.Store
	)
	if cfg.History.Enabled {
		if db, err = openHistory(ctx, cfg, lg); err != nil {
			a.Close()
			return nil, err
		}
		store = db
		a.Store = db
	}

	r := core.NewRegistry()
	factory := arm.NewFactory(sender, opts)
	if err := resource.Register(r, factory); err != nil {
		a.Close()
		return nil, fmt.Errorf("register resource module: %w", err)
	}
	if err := cdn.Register(r, factory); err != nil {
		a.Close()
		return nil, fmt.Errorf("register cdn module: %w", err)
	}
	if err := history.Register(r, store); err != nil {
		a.Close()
		return nil, fmt.Errorf("register history module: %w", err)
	}
	r.Freeze()

	svc := &common.Service{
		Source:    "cli",
		Registry:  r,
		Confirmer: core.FlagConfirmer{},
		Logger:    lg,
	}
	if db != nil {
		svc.History = db
	}
	a.Registry = r
	a.Service = svc
	return a, nil
}

// newSender выбирает отправителя по режиму записи.
func (a *App) newSender(cfg config.Config, opts *arm.Options, lg *slog.Logger) (core.Sender, error) {
	if cfg.Recording.Mode == config.ModeReplay {
		cassette, err := recording.Load(cfg.Recording.Cassette)
		if err != nil {
			return nil, fmt.Errorf("load cassette: %w", err)
		}
		if opts.Subscription == "" {
			opts.Subscription = arm.MockedSubscription
		}
		opts.PollInterval = 0
		a.replayer = recording.NewReplayer(cassette)
		return a.replayer, nil
	}

	network := live.NewSender(live.Options{
		Timeout:    time.Duration(cfg.HTTP.TimeoutMS) * time.Millisecond,
		MaxRetries: cfg.HTTP.MaxRetries,
		RPS:        cfg.HTTP.RPS,
		Burst:      cfg.HTTP.Burst,
		Logger:     lg,
	})
	if cfg.Recording.Mode != config.ModeRecord {
		return network, nil
	}
	var scrubbers []recording.Scrubber
	if cfg.Cloud.Subscription != "" {
		scrubbers = append(scrubbers, recording.ReplaceScrubber(cfg.Cloud.Subscription, arm.MockedSubscription))
	}
	if cfg.Cloud.Token != "" {
		scrubbers = append(scrubbers, recording.ReplaceScrubber(cfg.Cloud.Token, "<token>"))
	}
	a.recorder = recording.NewRecorder(network, cfg.Recording.Cassette, scrubbers...)
	return a.recorder, nil
}

func openHistory(ctx context.Context, cfg config.Config, lg *slog.Logger) (*sqlite.Store, error) {
	if dir := filepath.Dir(cfg.History.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}
	st, err := sqlite.Open(cfg.History.Path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	if cfg.History.RetentionDays > 0 {
		before := time.Now().UTC().AddDate(0, 0, -cfg.History.RetentionDays)
		if n, err := st.Prune(ctx, before); err != nil {
			lg.Warn("history prune failed", "err", err)
		} else if n > 0 {
			lg.Debug("history pruned", "deleted", n)
		}
	}
	return st, nil
}

// Unused возвращает неиспользованные взаимодействия в режиме воспроизведения.
func (a *App) Unused() []string {
	if a.replayer == nil {
		return nil
	}
	return a.replayer.Unused()
}

// Close сохраняет кассету и закрывает хранилище.
func (a *App) Close() error {
	var firstErr error
	if a.recorder != nil {
		if err := a.recorder.Close(); err != nil {
			firstErr = fmt.Errorf("save cassette: %w", err)
		}
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
