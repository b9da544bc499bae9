package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloudctl/internal/core"
	"cloudctl/internal/storage"
	"cloudctl/internal/storage/sqlite"
)

func newRegistry(t *testing.T, store storage.Store) *core.Registry {
	t.Helper()
	r := core.NewRegistry()
	if err := Register(r, store); err != nil {
		t.Fatalf("Register: %v", err)
	}
	return r
}

func run(t *testing.T, r *core.Registry, verb string, tokens ...string) (core.Result, error) {
	t.Helper()
	b, err := r.Resolve("history", verb)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	args, err := b.Parse(tokens)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return r.Invoke(context.Background(), &core.Invocation{Binding: b, Args: args})
}

func TestListFiltersAndOrders(t *testing.T) {
	store, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	now := time.Now().UTC()
	records := []storage.CommandRecord{
		{Command: "group create", Args: []byte(`{"name":["rg1"]}`), Status: storage.StatusOK, TS: now.Add(-2 * time.Minute)},
		{Command: "group delete", Status: storage.StatusDenied, TS: now.Add(-time.Minute)},
		{Command: "group create", Status: storage.StatusError, ErrorText: "boom", TS: now},
	}
	for _, rec := range records {
		if err := store.SaveCommand(ctx, rec); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	r := newRegistry(t, store)
	res, err := run(t, r, "list", "--command", "group create")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	items, ok := res.Output.([]any)
	if !ok || len(items) != 2 {
		t.Fatalf("expected 2 records, got %#v", res.Output)
	}
	first := items[0].(map[string]any)
	if first["status"] != storage.StatusError || first["error"] != "boom" {
		t.Fatalf("newest record must come first: %#v", first)
	}

	res, err = run(t, r, "list", "--status", storage.StatusDenied)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if items := res.Output.([]any); len(items) != 1 {
		t.Fatalf("expected 1 denied record, got %d", len(items))
	}
}

func TestListRejectsBadLimit(t *testing.T) {
	store, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()
	r := newRegistry(t, store)
	if _, err := run(t, r, "list", "--limit", "x"); !errors.Is(err, core.ErrInvalidArguments) {
		t.Fatalf("expected ErrInvalidArguments, got %v", err)
	}
}

func TestPrune(t *testing.T) {
	store, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()
	ctx := context.Background()
	old := storage.CommandRecord{Command: "tag list", Status: storage.StatusOK, TS: time.Now().UTC().Add(-48 * time.Hour)}
	fresh := storage.CommandRecord{Command: "tag list", Status: storage.StatusOK, TS: time.Now().UTC()}
	for _, rec := range []storage.CommandRecord{old, fresh} {
		if err := store.SaveCommand(ctx, rec); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	r := newRegistry(t, store)
	res, err := run(t, r, "prune", "--older-than", "24h", "--yes")
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if got := res.Output.(map[string]any)["deleted"]; got != float64(1) {
		t.Fatalf("expected 1 deleted, got %v", got)
	}
}

func TestDisabledStore(t *testing.T) {
	r := newRegistry(t, nil)
	if _, err := run(t, r, "list"); !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
}
