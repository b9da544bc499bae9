package scenario

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cloudctl/internal/arm"
	"cloudctl/internal/config"
	"cloudctl/internal/core"
	"cloudctl/internal/live"
	"cloudctl/internal/recording"
	"cloudctl/internal/transports/common"
	"cloudctl/pkg/logger"
)

// DefaultCassetteDir задан относительно пакета теста.
const DefaultCassetteDir = "testdata/recordings"

// RegisterFunc добавляет привязки модуля в реестр.
type RegisterFunc func(r *core.Registry, f arm.ClientFactory) error

// Config задает сценарный тест.
type Config struct {
	// Name задает имя кассеты без расширения; по умолчанию имя теста.
	Name        string
	CassetteDir string
	Register    []RegisterFunc
	// LiveOnly пропускает сценарий при воспроизведении, до загрузки кассеты.
	LiveOnly bool
	// LogOutput получает журнал вместо stderr; LogLevel задает его уровень,
	// по умолчанию CLOUDCTL_LOG_LEVEL.
	LogOutput io.Writer
	LogLevel  string
}

// T привязывает сценарий к testing.TB: ошибки команд и проверок
// проваливают тест.
type T struct {
	tb     testing.TB
	ctx    context.Context
	mode   Mode
	runner *Runner
	names  *Names
	subID  string
}

// New собирает отправитель для текущего режима, реестр и пайплайн.
func New(tb testing.TB, cfg Config) *T {
	tb.Helper()
	mode, err := CurrentMode()
	if err != nil {
		tb.Fatalf("scenario mode: %v", err)
	}
	if cfg.LiveOnly && !mode.IsLive() {
		tb.Skip("live-only scenario")
	}
	level := cfg.LogLevel
	if level == "" {
		level = os.Getenv("CLOUDCTL_LOG_LEVEL")
	}
	lg := logger.New(level, cfg.LogOutput)

	name := cfg.Name
	if name == "" {
		name = cassetteName(tb.Name())
	}
	dir := cfg.CassetteDir
	if dir == "" {
		dir = DefaultCassetteDir
	}
	path := filepath.Join(dir, name+".yaml")

	names := &Names{Mode: mode}
	opts := arm.Options{Subscription: arm.MockedSubscription, Logger: lg}
	var sender core.Sender
	switch mode {
	case ModeReplay:
		cassette, err := recording.Load(path)
		if err != nil {
			tb.Fatalf("load cassette (record it with %s=record): %v", ModeEnv, err)
		}
		replayer := recording.NewReplayer(cassette)
		tb.Cleanup(func() {
			if unused := replayer.Unused(); len(unused) > 0 {
				tb.Logf("%d recorded interactions were not used, first: %s", len(unused), unused[0])
			}
		})
		sender = replayer
	default:
		settings, err := config.Load(config.DefaultPath())
		if err != nil {
			tb.Fatalf("load config: %v", err)
		}
		if settings.Cloud.Subscription == "" {
			tb.Skipf("%s mode needs CLOUDCTL_SUBSCRIPTION", mode)
		}
		opts.Endpoint = settings.Cloud.Endpoint
		opts.Subscription = settings.Cloud.Subscription
		opts.Token = settings.Cloud.Token
		opts.PollInterval = time.Duration(settings.Poll.IntervalSeconds) * time.Second
		opts.PollTimeout = time.Duration(settings.Poll.TimeoutSeconds) * time.Second
		network := live.NewSender(live.Options{
			Timeout:    time.Duration(settings.HTTP.TimeoutMS) * time.Millisecond,
			MaxRetries: settings.HTTP.MaxRetries,
			RPS:        settings.HTTP.RPS,
			Burst:      settings.HTTP.Burst,
			Logger:     lg,
		})
		sender = network
		if mode == ModeRecord {
			rec := recording.NewRecorder(network, path,
				recording.ReplaceScrubber(settings.Cloud.Subscription, arm.MockedSubscription),
				recording.ReplaceScrubber(settings.Cloud.Token, "<token>"),
			)
			names.OnLive = func(liveName, moniker string) {
				rec.AddScrubber(recording.ReplaceScrubber(liveName, moniker))
			}
			tb.Cleanup(func() {
				if err := rec.Close(); err != nil {
					tb.Errorf("save cassette: %v", err)
				}
			})
			sender = rec
		}
	}

	registry := core.NewRegistry()
	factory := arm.NewFactory(sender, opts)
	for _, register := range cfg.Register {
		if err := register(registry, factory); err != nil {
			tb.Fatalf("register bindings: %v", err)
		}
	}
	registry.Freeze()

	svc := &common.Service{
		Source:    "scenario",
		Registry:  registry,
		Confirmer: core.FlagConfirmer{},
		Logger:    lg,
	}
	s := &T{
		tb:     tb,
		ctx:    context.Background(),
		mode:   mode,
		runner: NewRunner(svc, lg),
		names:  names,
		subID:  opts.Subscription,
	}
	tb.Cleanup(func() {
		var err error
		if tb.Failed() {
			err = errors.New(s.runner.Reason())
		}
		s.runner.Finish(err)
	})
	return s
}

// Mode возвращает режим прогона.
func (s *T) Mode() Mode { return s.mode }

// Subscription возвращает подписку, к которой обращаются команды.
func (s *T) Subscription() string { return s.subID }

// Runner возвращает исполнителя сценария.
func (s *T) Runner() *Runner { return s.runner }

// CreateName возвращает имя ресурса для текущего режима.
func (s *T) CreateName(prefix string, length int) string {
	return s.names.Create(prefix, length)
}

// Set задает значение подстановки {key}.
func (s *T) Set(key, value string) {
	s.runner.Set(key, value)
}

// Get возвращает значение подстановки.
func (s *T) Get(key string) string {
	return s.runner.Get(key)
}

// Cmd выполняет команду и проверки; ошибка проваливает тест.
func (s *T) Cmd(command string, checks ...Check) core.Result {
	s.tb.Helper()
	res, err := s.runner.Run(s.ctx, command, checks...)
	if err != nil {
		s.tb.Fatalf("%v", err)
	}
	return res
}

// CmdError выполняет команду, которая должна вернуть ошибку, принятую match.
func (s *T) CmdError(command string, match func(error) bool) {
	s.tb.Helper()
	if err := s.runner.RunExpectingError(s.ctx, command, match); err != nil {
		s.tb.Fatalf("%v", err)
	}
}

// ResourceGroup создает группу ресурсов, доступную как {rg}, на время body.
func (s *T) ResourceGroup(prefix string, body func(rg string)) {
	s.tb.Helper()
	p := &ResourceGroupPreparer{Prefix: prefix, Names: s.names}
	err := p.Use(s.ctx, s.runner, func(name string) error {
		body(name)
		return nil
	})
	if err != nil {
		s.tb.Fatalf("%v", err)
	}
}

func cassetteName(testName string) string {
	r := strings.NewReplacer("/", "_", " ", "_")
	return strings.ToLower(r.Replace(testName))
}
