package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite driver

	"cloudctl/internal/storage"
)

const (
	defaultQueryLimit = 20
	maxQueryLimit     = 500
)

// Store реализует storage.Store поверх SQLite.
type Store struct {
	db *sql.DB
}

// Open инициализирует соединение и выполняет миграции.
// Путь ":memory:" открывает временную базу.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_journal=WAL&_busy_timeout=5000", path)
	if path == ":memory:" {
		dsn = "file::memory:?cache=shared"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS command_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			command TEXT NOT NULL,
			args BLOB,
			source TEXT,
			status TEXT NOT NULL,
			error_text TEXT,
			request_id TEXT,
			duration_ms INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_history_ts ON command_history(ts);`,
		`CREATE INDEX IF NOT EXISTS idx_history_command_ts ON command_history(command, ts);`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// SaveCommand сохраняет запись истории.
func (s *Store) SaveCommand(ctx context.Context, rec storage.CommandRecord) error {
	ts := rec.TS
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO command_history(command, args, source, status, error_text, request_id, duration_ms, ts) VALUES(?,?,?,?,?,?,?,?)`,
		rec.Command, rec.Args, rec.Source, rec.Status, rec.ErrorText, rec.RequestID, rec.Duration.Milliseconds(), ts.UTC())
	if err != nil {
		return fmt.Errorf("insert command: %w", err)
	}
	return nil
}

// QueryCommands возвращает историю по фильтрам, новые записи первыми.
func (s *Store) QueryCommands(ctx context.Context, q storage.CommandQuery) ([]storage.CommandRecord, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	if limit > maxQueryLimit {
		limit = maxQueryLimit
	}

	from := q.From
	if from.IsZero() {
		from = time.Unix(0, 0).UTC()
	}
	to := q.To
	if to.IsZero() {
		to = time.Now().UTC().Add(time.Minute)
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT command, args, source, status, error_text, request_id, duration_ms, ts
FROM command_history
WHERE ts >= ? AND ts <= ? AND (? = '' OR command = ?) AND (? = '' OR status = ?)
ORDER BY ts DESC, id DESC
LIMIT ?`, from.UTC(), to.UTC(), q.Command, q.Command, q.Status, q.Status, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	records := make([]storage.CommandRecord, 0, limit)
	for rows.Next() {
		var (
			rec        storage.CommandRecord
			source     sql.NullString
			errText    sql.NullString
			requestID  sql.NullString
			durationMS int64
			ts         string
		)
		if err := rows.Scan(&rec.Command, &rec.Args, &source, &rec.Status, &errText, &requestID, &durationMS, &ts); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		parsedTS, err := parseSQLiteTS(ts)
		if err != nil {
			return nil, fmt.Errorf("parse history timestamp: %w", err)
		}
		rec.Source = source.String
		rec.ErrorText = errText.String
		rec.RequestID = requestID.String
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		rec.TS = parsedTS
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return records, nil
}

// Prune удаляет записи старше before.
func (s *Store) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM command_history WHERE ts < ?`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	return n, nil
}

func parseSQLiteTS(v string) (time.Time, error) {
	layouts := []string{
		time.RFC3339Nano,
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02 15:04:05",
	}
	for _, layout := range layouts {
		if ts, err := time.Parse(layout, v); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported sqlite time format: %q", v)
}

// Write реализует storage.HistoryWriter.
func (s *Store) Write(ctx context.Context, rec storage.CommandRecord) error {
	return s.SaveCommand(ctx, rec)
}

// Close закрывает соединение.
func (s *Store) Close() error {
	return s.db.Close()
}

// MarshalArgs сериализует аргументы команды для истории.
func MarshalArgs(args map[string][]string) ([]byte, error) {
	buf, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("marshal args: %w", err)
	}
	return buf, nil
}
