package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"cloudctl/internal/core"
	"cloudctl/internal/storage"
)

// ErrDisabled возвращается, если хранилище истории не настроено.
var ErrDisabled = errors.New("command history is disabled")

// Entry описывает запись истории в выводе команды.
type Entry struct {
	Command    string          `json:"command"`
	Args       json.RawMessage `json:"args,omitempty"`
	Source     string          `json:"source,omitempty"`
	Status     string          `json:"status"`
	Error      string          `json:"error,omitempty"`
	RequestID  string          `json:"requestId,omitempty"`
	DurationMS int64           `json:"durationMs"`
	Timestamp  time.Time       `json:"timestamp"`
}

// Register добавляет команды истории поверх store. С nil store команды
// остаются видны, но завершаются ошибкой ErrDisabled.
func Register(r *core.Registry, store storage.Store) error {
	bindings := []core.Binding{
		{
			Group: "history",
			Verb:  "list",
			Short: "List recently executed commands.",
			Params: []core.Param{
				{Name: "limit", Default: "20", Help: "maximum number of records"},
				{Name: "command", Help: "only records of this command, e.g. \"group create\""},
				{Name: "status", Help: "only records with this status: ok, error or denied"},
				{Name: "since", Help: "only records newer than this duration, e.g. 24h"},
			},
			Operation: list(store),
		},
		{
			Group:     "history",
			Verb:      "prune",
			Short:     "Delete history records older than the given age.",
			Params:    []core.Param{{Name: "older-than", Default: "720h", Help: "age of the records to delete"}},
			Confirm:   true,
			Operation: prune(store),
		},
	}
	for _, b := range bindings {
		if err := r.Register(b); err != nil {
			return fmt.Errorf("register %s: %w", b.Key(), err)
		}
	}
	return nil
}

func list(store storage.Store) core.Operation {
	return func(ctx context.Context, args core.Args) (any, error) {
		if store == nil {
			return nil, ErrDisabled
		}
		limit, err := strconv.Atoi(args.String("limit"))
		if err != nil || limit <= 0 {
			return nil, fmt.Errorf("--limit must be a positive integer: %w", core.ErrInvalidArguments)
		}
		q := storage.CommandQuery{
			Command: args.String("command"),
			Status:  args.String("status"),
			Limit:   limit,
		}
		if since := args.String("since"); since != "" {
			d, err := time.ParseDuration(since)
			if err != nil {
				return nil, fmt.Errorf("--since: %v: %w", err, core.ErrInvalidArguments)
			}
			q.From = time.Now().UTC().Add(-d)
		}
		records, err := store.QueryCommands(ctx, q)
		if err != nil {
			return nil, err
		}
		entries := make([]Entry, 0, len(records))
		for _, rec := range records {
			e := Entry{
				Command:    rec.Command,
				Source:     rec.Source,
				Status:     rec.Status,
				Error:      rec.ErrorText,
				RequestID:  rec.RequestID,
				DurationMS: rec.Duration.Milliseconds(),
				Timestamp:  rec.TS,
			}
			if json.Valid(rec.Args) {
				e.Args = rec.Args
			}
			entries = append(entries, e)
		}
		return entries, nil
	}
}

func prune(store storage.Store) core.Operation {
	return func(ctx context.Context, args core.Args) (any, error) {
		if store == nil {
			return nil, ErrDisabled
		}
		age, err := time.ParseDuration(args.String("older-than"))
		if err != nil || age < 0 {
			return nil, fmt.Errorf("--older-than must be a non-negative duration: %w", core.ErrInvalidArguments)
		}
		n, err := store.Prune(ctx, time.Now().UTC().Add(-age))
		if err != nil {
			return nil, err
		}
		return map[string]int64{"deleted": n}, nil
	}
}
