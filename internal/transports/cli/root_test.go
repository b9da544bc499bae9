package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cloudctl/internal/core"
	"cloudctl/internal/scenario"
	"cloudctl/internal/transports/common"
)

type fakeWidgets struct {
	deleted []string
}

func newTestService(t *testing.T) (*common.Service, *fakeWidgets) {
	t.Helper()
	widgets := &fakeWidgets{}
	r := core.NewRegistry()
	bindings := []core.Binding{
		{
			Group:  "demo widget",
			Verb:   "show",
			Short:  "Show a widget.",
			Params: []core.Param{{Name: "name", Short: "n", Required: true, Help: "widget name"}},
			Operation: func(ctx context.Context, args core.Args) (any, error) {
				return map[string]any{"name": args.String("name"), "size": 3}, nil
			},
		},
		{
			Group:   "demo widget",
			Verb:    "delete",
			Short:   "Delete a widget.",
			Params:  []core.Param{{Name: "name", Short: "n", Required: true}},
			Confirm: true,
			Operation: func(ctx context.Context, args core.Args) (any, error) {
				widgets.deleted = append(widgets.deleted, args.String("name"))
				return nil, nil
			},
		},
	}
	for _, b := range bindings {
		if err := r.Register(b); err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	r.Freeze()
	return &common.Service{Source: "cli", Registry: r, Confirmer: core.FlagConfirmer{}}, widgets
}

func execute(t *testing.T, svc *common.Service, opts Options, args ...string) (string, error) {
	t.Helper()
	root := New(svc, opts)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestBindingCommandWritesJSON(t *testing.T) {
	svc, _ := newTestService(t)
	out, err := execute(t, svc, Options{}, "demo", "widget", "show", "-n", "w1")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if got["name"] != "w1" {
		t.Fatalf("unexpected output %v", got)
	}
}

func TestQueryAndOutputFormat(t *testing.T) {
	svc, _ := newTestService(t)
	out, err := execute(t, svc, Options{}, "demo", "widget", "show", "-n", "w1", "--query", "name", "-o", "tsv")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if strings.TrimSpace(out) != "w1" {
		t.Fatalf("expected tsv scalar, got %q", out)
	}
}

func TestDefaultOutputFromOptions(t *testing.T) {
	svc, _ := newTestService(t)
	out, err := execute(t, svc, Options{DefaultOutput: "yaml"}, "demo", "widget", "show", "-n", "w1")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, "name: w1") {
		t.Fatalf("expected yaml output, got %q", out)
	}

	out, err = execute(t, svc, Options{DefaultOutput: "yaml"}, "demo", "widget", "show", "-n", "w1", "-o", "json")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Fatalf("expected explicit -o json to win, got %q", out)
	}
}

func TestUnknownCommands(t *testing.T) {
	svc, _ := newTestService(t)
	cases := map[string][]string{
		"demo widget explode": {"demo", "widget", "explode"},
		"nothing":             {"nothing"},
	}
	for want, args := range cases {
		_, err := execute(t, svc, Options{}, args...)
		var unknown *core.UnknownCommandError
		if !errors.As(err, &unknown) {
			t.Fatalf("%v: expected UnknownCommandError, got %v", args, err)
		}
		if unknown.Command != want {
			t.Fatalf("%v: command = %q, want %q", args, unknown.Command, want)
		}
		if !errors.Is(err, core.ErrUnknownCommand) {
			t.Fatalf("%v: expected ErrUnknownCommand", args)
		}
	}
}

func TestGroupWithoutArgsShowsHelp(t *testing.T) {
	svc, _ := newTestService(t)
	out, err := execute(t, svc, Options{}, "demo", "widget")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, "show") || !strings.Contains(out, "delete") {
		t.Fatalf("expected subcommands in help, got %q", out)
	}
}

func TestBindingHelpListsFlags(t *testing.T) {
	svc, _ := newTestService(t)
	out, err := execute(t, svc, Options{}, "demo", "widget", "show", "--help")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	for _, want := range []string{"--name", "--query", "--output"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in help, got %q", want, out)
		}
	}
}

func TestConfirmationRequired(t *testing.T) {
	svc, widgets := newTestService(t)
	_, err := execute(t, svc, Options{}, "demo", "widget", "delete", "-n", "w1")
	if !errors.Is(err, core.ErrConfirmationRequired) {
		t.Fatalf("expected ErrConfirmationRequired, got %v", err)
	}
	if len(widgets.deleted) != 0 {
		t.Fatalf("operation must not run without --yes")
	}

	out, err := execute(t, svc, Options{}, "demo", "widget", "delete", "-n", "w1", "--yes")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if out != "" {
		t.Fatalf("expected no output for empty result, got %q", out)
	}
	if len(widgets.deleted) != 1 || widgets.deleted[0] != "w1" {
		t.Fatalf("unexpected deletes %v", widgets.deleted)
	}
}

func TestMissingRequiredFlag(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := execute(t, svc, Options{}, "demo", "widget", "show")
	if !errors.Is(err, core.ErrInvalidArguments) {
		t.Fatalf("expected ErrInvalidArguments, got %v", err)
	}
}

func TestVersionCommand(t *testing.T) {
	svc, _ := newTestService(t)
	out, err := execute(t, svc, Options{Version: "1.2.3"}, "version")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	var info map[string]any
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if info["cliVersion"] != "1.2.3" {
		t.Fatalf("unexpected version output %v", info)
	}
}

func TestScenarioRun(t *testing.T) {
	svc, widgets := newTestService(t)
	path := filepath.Join(t.TempDir(), "widgets.yaml")
	script := `
name: widgets
vars:
  widget: w9
steps:
  - command: demo widget show -n {widget}
    expect:
      name: w9
      size: 3
  - command: demo widget delete -n {widget} --yes
    none: true
`
	if err := os.WriteFile(path, []byte(script), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}
	out, err := execute(t, svc, Options{Mode: scenario.ModeReplay}, "scenario", "run", "--file", path)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	var report scenarioReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if report.State != scenario.StatePassed.String() || report.Steps != 2 {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(widgets.deleted) != 1 || widgets.deleted[0] != "w9" {
		t.Fatalf("unexpected deletes %v", widgets.deleted)
	}
}

func TestScenarioRunReportsFailedCheck(t *testing.T) {
	svc, _ := newTestService(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	script := `
name: bad
steps:
  - command: demo widget show -n w1
    expect:
      size: 4
`
	if err := os.WriteFile(path, []byte(script), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}
	_, err := execute(t, svc, Options{}, "scenario", "run", "-f", path)
	var failure *scenario.AssertionFailure
	if !errors.As(err, &failure) {
		t.Fatalf("expected AssertionFailure, got %v", err)
	}
	if failure.Path != "size" {
		t.Fatalf("unexpected failure %+v", failure)
	}
}
