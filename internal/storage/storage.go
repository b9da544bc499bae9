package storage

import (
	"context"
	"time"
)

// Статусы выполненной команды.
const (
	StatusOK     = "ok"
	StatusError  = "error"
	StatusDenied = "denied"
)

// CommandRecord фиксирует одну выполненную команду.
type CommandRecord struct {
	Command   string
	Args      []byte
	Source    string
	Status    string
	ErrorText string
	RequestID string
	Duration  time.Duration
	TS        time.Time
}

// CommandQuery задает фильтры выборки истории.
type CommandQuery struct {
	From    time.Time
	To      time.Time
	Command string
	Status  string
	Limit   int
}

// Store описывает операции хранилища истории.
type Store interface {
	SaveCommand(ctx context.Context, rec CommandRecord) error
	QueryCommands(ctx context.Context, q CommandQuery) ([]CommandRecord, error)
	Prune(ctx context.Context, before time.Time) (int64, error)
	Close() error
}

// HistoryWriter позволяет использовать Store как приемник истории.
type HistoryWriter interface {
	Write(ctx context.Context, rec CommandRecord) error
}
