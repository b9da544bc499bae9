package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloudctl/internal/app"
	"cloudctl/internal/config"
	"cloudctl/internal/core"
	"cloudctl/internal/scenario"
	"cloudctl/internal/transports/cli"
	"cloudctl/internal/transports/web"
	"cloudctl/pkg/logger"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Load(configPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: load config: %v\n", err)
		return 1
	}
	lg := logger.New(logLevel(cfg.CLI.LogLevel, args), os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.NewApp(ctx, cfg, buildVersion(), lg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return 1
	}
	defer func() {
		if err := a.Close(); err != nil {
			lg.Error("close failed", "err", err)
		}
	}()

	mode, err := scenario.ParseMode(cfg.Recording.Mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return 1
	}
	root := cli.New(a.Service, cli.Options{
		Version:       buildVersion(),
		DefaultOutput: cfg.CLI.Output,
		Mode:          mode,
		Logger:        lg,
		Web: web.Config{
			ListenAddr:      cfg.Web.ListenAddr,
			ReadTimeout:     time.Duration(cfg.Web.ReadTimeoutMS) * time.Millisecond,
			WriteTimeout:    time.Duration(cfg.Web.WriteTimeoutMS) * time.Millisecond,
			ShutdownTimeout: time.Duration(cfg.Web.ShutdownTimeoutS) * time.Second,
			MaxRequestBody:  cfg.Web.MaxBodyBytes,
		},
	})
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return exitCode(err)
	}
	if unused := a.Unused(); len(unused) > 0 {
		lg.Debug("recorded interactions left unused", "count", len(unused), "first", unused[0])
	}
	return 0
}

func configPath() string {
	if p := os.Getenv("CLOUDCTL_CONFIG"); p != "" {
		return p
	}
	return config.DefaultPath()
}

// logLevel учитывает --debug и --verbose до разбора команды.
func logLevel(configured string, args []string) string {
	level := configured
	for _, a := range args {
		switch a {
		case "--debug":
			return "debug"
		case "--verbose":
			level = "info"
		}
	}
	return level
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, core.ErrInvalidArguments),
		errors.Is(err, core.ErrUnknownCommand),
		errors.Is(err, core.ErrConfirmationRequired):
		return 2
	default:
		return 1
	}
}

func buildVersion() string {
	v := version
	if commit != "" {
		v += " (" + commit + ")"
	}
	if date != "" {
		v += " " + date
	}
	return v
}
