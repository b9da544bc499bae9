package common

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"cloudctl/internal/core"
	"cloudctl/internal/storage"
)

type fakeHistory struct {
	records []storage.CommandRecord
}

func (f *fakeHistory) Write(ctx context.Context, rec storage.CommandRecord) error {
	f.records = append(f.records, rec)
	return nil
}

func newService(t *testing.T) (*Service, *fakeHistory) {
	t.Helper()
	r := core.NewRegistry()
	must := func(err error) {
		if err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	must(r.Register(core.Binding{
		Group:  "group",
		Verb:   "list",
		Params: []core.Param{{Name: "tag"}},
		Operation: func(ctx context.Context, args core.Args) (any, error) {
			return json.RawMessage(`[{"name":"rg1","tags":{"a":"b"}}]`), nil
		},
	}))
	must(r.Register(core.Binding{
		Group:   "group",
		Verb:    "delete",
		Params:  []core.Param{{Name: "name", Short: "n", Required: true}},
		Confirm: true,
		Operation: func(ctx context.Context, args core.Args) (any, error) {
			return nil, nil
		},
	}))
	must(r.Register(core.Binding{
		Group:  "login",
		Verb:   "set",
		Params: []core.Param{{Name: "token", Secret: true}},
		Operation: func(ctx context.Context, args core.Args) (any, error) {
			return nil, errors.New("rejected")
		},
	}))
	r.Freeze()
	h := &fakeHistory{}
	return &Service{Source: "test", Registry: r, Confirmer: core.FlagConfirmer{}, History: h}, h
}

func TestParseTextCommand(t *testing.T) {
	tokens, err := ParseTextCommand(`cloudctl group create -n rg1 --tags "a=b c" d`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"group", "create", "-n", "rg1", "--tags", "a=b c", "d"}
	if !reflect.DeepEqual(tokens, want) {
		t.Fatalf("unexpected tokens: %#v", tokens)
	}
}

func TestParseTextCommandInvalid(t *testing.T) {
	if _, err := ParseTextCommand("group"); err == nil {
		t.Fatalf("expected parse error")
	}
	if _, err := ParseTextCommand(`group create --name "unterminated`); !errors.Is(err, core.ErrInvalidArguments) {
		t.Fatalf("expected ErrInvalidArguments, got %v", err)
	}
}

func TestExecuteAppliesQuery(t *testing.T) {
	s, h := newService(t)
	out, err := s.ExecuteText(context.Background(), "group list --query 0.tags")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	tags, ok := out.Result.Output.(map[string]any)
	if !ok || tags["a"] != "b" {
		t.Fatalf("unexpected output: %#v", out.Result.Output)
	}
	if len(h.records) != 1 || h.records[0].Status != storage.StatusOK || h.records[0].Command != "group list" {
		t.Fatalf("unexpected history: %#v", h.records)
	}
}

func TestExecuteRequiresConfirmation(t *testing.T) {
	s, h := newService(t)
	_, err := s.ExecuteText(context.Background(), "group delete -n rg1")
	if !errors.Is(err, core.ErrConfirmationRequired) {
		t.Fatalf("expected ErrConfirmationRequired, got %v", err)
	}
	if len(h.records) != 1 || h.records[0].Status != storage.StatusDenied {
		t.Fatalf("expected denied record: %#v", h.records)
	}
	if _, err := s.ExecuteText(context.Background(), "group delete -n rg1 --yes"); err != nil {
		t.Fatalf("execute with --yes: %v", err)
	}
}

func TestExecuteRedactsSecrets(t *testing.T) {
	s, h := newService(t)
	_, err := s.ExecuteText(context.Background(), "login set --token supersecret")
	if err == nil {
		t.Fatalf("expected operation error")
	}
	if len(h.records) != 1 {
		t.Fatalf("expected one record")
	}
	rec := h.records[0]
	if strings.Contains(string(rec.Args), "supersecret") || rec.Status != storage.StatusError || rec.ErrorText != "rejected" {
		t.Fatalf("unexpected record: %s %#v", rec.Args, rec)
	}
}

func TestExecuteUnknown(t *testing.T) {
	s, h := newService(t)
	_, err := s.ExecuteText(context.Background(), "group explode -n x")
	if !errors.Is(err, core.ErrUnknownCommand) {
		t.Fatalf("expected ErrUnknownCommand, got %v", err)
	}
	if len(h.records) != 0 {
		t.Fatalf("unknown commands are not recorded")
	}
}
