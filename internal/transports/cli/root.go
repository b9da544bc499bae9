package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"cloudctl/internal/core"
	"cloudctl/internal/modules/host"
	"cloudctl/internal/output"
	"cloudctl/internal/recording"
	"cloudctl/internal/scenario"
	"cloudctl/internal/transports/common"
	"cloudctl/internal/transports/web"
)

// Options задает параметры корневой команды.
type Options struct {
	Version string
	// DefaultOutput используется, если -o не задан явно.
	DefaultOutput string
	// Mode определяет имена ресурсов в сценариях.
	Mode   scenario.Mode
	Web    web.Config
	Logger *slog.Logger
}

// New создает корневую CLI-команду с деревом команд из реестра сервиса.
func New(svc *common.Service, opts Options) *cobra.Command {
	if opts.DefaultOutput == "" {
		opts.DefaultOutput = output.FormatJSON
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	root := &cobra.Command{
		Use:           "cloudctl",
		Short:         "Command-line client for the cloud resource management API",
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.ArbitraryArgs,
		RunE:          groupRunE,
	}
	root.CompletionOptions.DisableDefaultCmd = true

	groups := map[string]*cobra.Command{"": root}
	for _, b := range svc.Registry.Bindings() {
		parent := ensureGroup(groups, b.Group)
		parent.AddCommand(newBindingCmd(svc, b, opts))
	}

	root.AddCommand(newVersionCmd(opts))
	root.AddCommand(newReplayCmd(opts))
	root.AddCommand(newScenarioCmd(svc, opts))
	return root
}

// ensureGroup создает недостающие промежуточные команды для "cdn endpoint".
func ensureGroup(groups map[string]*cobra.Command, group string) *cobra.Command {
	if cmd, ok := groups[group]; ok {
		return cmd
	}
	words := strings.Fields(group)
	parentKey := strings.Join(words[:len(words)-1], " ")
	parent := ensureGroup(groups, parentKey)
	cmd := &cobra.Command{
		Use:   words[len(words)-1],
		Short: "Manage " + group + ".",
		Args:  cobra.ArbitraryArgs,
		RunE:  groupRunE,
	}
	parent.AddCommand(cmd)
	groups[group] = cmd
	return cmd
}

func groupRunE(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Help()
	}
	words := append(strings.Fields(cmd.CommandPath())[1:], args[0])
	return &core.UnknownCommandError{Command: strings.Join(words, " ")}
}

func newBindingCmd(svc *common.Service, b *core.Binding, opts Options) *cobra.Command {
	return &cobra.Command{
		Use:                b.Verb,
		Short:              b.Short,
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if wantsHelp(args) {
				return writeBindingHelp(cmd.OutOrStdout(), b)
			}
			outcome, err := svc.Run(cmd.Context(), b, args)
			if err != nil {
				return err
			}
			format := opts.DefaultOutput
			if explicitOutput(args) {
				format = outcome.Args.String(core.OutputParam.Name)
			}
			return output.Write(cmd.OutOrStdout(), outcome.Result, format)
		},
	}
}

func wantsHelp(args []string) bool {
	for _, a := range args {
		if a == "-h" || a == "--help" {
			return true
		}
	}
	return false
}

func explicitOutput(args []string) bool {
	for _, a := range args {
		if a == "-o" || a == "--output" || strings.HasPrefix(a, "--output=") || strings.HasPrefix(a, "-o=") {
			return true
		}
	}
	return false
}

func writeBindingHelp(w io.Writer, b *core.Binding) error {
	_, err := fmt.Fprintf(w, "%s\n\nUsage:\n  cloudctl %s [flags]\n\nFlags:\n%s", b.Short, b.Key(), b.FlagSet().FlagUsages())
	return err
}

func newVersionCmd(opts Options) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the CLI version and platform information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := host.Describe(cmd.Context(), opts.Version)
			if err != nil {
				opts.Logger.Warn("platform info is incomplete", "err", err)
			}
			res, err := core.NewResult(info)
			if err != nil {
				return err
			}
			return output.Write(cmd.OutOrStdout(), res, opts.DefaultOutput)
		},
	}
}

func newReplayCmd(opts Options) *cobra.Command {
	replay := &cobra.Command{
		Use:   "replay",
		Short: "Serve recorded interactions",
	}
	var cassette, listen string
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Answer HTTP requests from a cassette until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := recording.Load(cassette)
			if err != nil {
				return err
			}
			cfg := opts.Web
			if listen != "" {
				cfg.ListenAddr = listen
			}
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			adapter := web.NewAdapter(recording.NewReplayer(c), cfg, opts.Logger)
			if err := adapter.Start(ctx); err != nil {
				return err
			}
			<-ctx.Done()
			return nil
		},
	}
	serve.Flags().StringVar(&cassette, "cassette", "", "cassette file to serve")
	serve.Flags().StringVar(&listen, "listen", "", "listen address, e.g. 127.0.0.1:8089")
	_ = serve.MarkFlagRequired("cassette")
	replay.AddCommand(serve)
	return replay
}

// scenarioReport описывает итог прогона сценария.
type scenarioReport struct {
	Scenario string `json:"scenario"`
	State    string `json:"state"`
	Steps    int    `json:"steps"`
}

func newScenarioCmd(svc *common.Service, opts Options) *cobra.Command {
	sc := &cobra.Command{
		Use:   "scenario",
		Short: "Run scripted command scenarios",
	}
	var file string
	run := &cobra.Command{
		Use:   "run",
		Short: "Run the steps of a YAML scenario and verify their output",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := scenario.LoadScript(file)
			if err != nil {
				return err
			}
			runner := scenario.NewRunner(svc, opts.Logger)
			names := &scenario.Names{Mode: opts.Mode}
			if err := scenario.RunScript(cmd.Context(), runner, s, names); err != nil {
				return err
			}
			res, err := core.NewResult(scenarioReport{Scenario: s.Name, State: runner.State().String(), Steps: len(s.Steps)})
			if err != nil {
				return err
			}
			return output.Write(cmd.OutOrStdout(), res, opts.DefaultOutput)
		},
	}
	run.Flags().StringVarP(&file, "file", "f", "", "scenario YAML file")
	_ = run.MarkFlagRequired("file")
	sc.AddCommand(run)
	return sc
}
