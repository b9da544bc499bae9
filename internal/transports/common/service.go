package common

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/shlex"
	"github.com/google/uuid"

	"cloudctl/internal/core"
	"cloudctl/internal/output"
	"cloudctl/internal/storage"
)

var errEmptyCommand = errors.New("empty command")

// Outcome описывает результат выполнения одной команды.
type Outcome struct {
	Binding *core.Binding
	Args    core.Args
	Result  core.Result
}

// Service объединяет общий пайплайн: разбор → подтверждение → вызов →
// --query → история.
type Service struct {
	Source    string
	Registry  *core.Registry
	Confirmer core.Confirmer
	History   HistorySink
	Logger    *slog.Logger
}

// ExecuteText разбирает строку команды и выполняет ее.
func (s *Service) ExecuteText(ctx context.Context, text string) (Outcome, error) {
	tokens, err := ParseTextCommand(text)
	if err != nil {
		return Outcome{}, err
	}
	return s.Execute(ctx, tokens)
}

// Execute находит привязку по словам команды и выполняет ее.
func (s *Service) Execute(ctx context.Context, tokens []string) (Outcome, error) {
	b, rest, err := s.Registry.Lookup(tokens)
	if err != nil {
		return Outcome{}, err
	}
	return s.Run(ctx, b, rest)
}

// Run выполняет привязку с оставшимися токенами флагов.
func (s *Service) Run(ctx context.Context, b *core.Binding, rest []string) (Outcome, error) {
	start := time.Now()
	out := Outcome{Binding: b}

	args, err := b.Parse(rest)
	if err != nil {
		return out, err
	}
	out.Args = args

	if s.Confirmer != nil {
		if err := s.Confirmer.Confirm(b, args); err != nil {
			s.writeHistory(ctx, b, args, storage.StatusDenied, err, start)
			return out, err
		}
	}

	s.logger().Debug("invoke", "command", b.Key(), "source", s.Source)
	res, err := s.Registry.Invoke(ctx, &core.Invocation{Text: b.Key() + " " + strings.Join(rest, " "), Binding: b, Args: args})
	if err == nil {
		res, err = output.Query(res, args.String(core.QueryParam.Name))
	}
	out.Result = res
	if err != nil {
		out.Result.Err = err
		s.writeHistory(ctx, b, args, storage.StatusError, err, start)
		return out, err
	}
	s.writeHistory(ctx, b, args, storage.StatusOK, nil, start)
	return out, nil
}

func (s *Service) writeHistory(ctx context.Context, b *core.Binding, args core.Args, status string, cmdErr error, start time.Time) {
	if s.History == nil {
		return
	}
	rec := storage.CommandRecord{
		Command:   b.Key(),
		Args:      redactArgs(b, args),
		Source:    s.Source,
		Status:    status,
		RequestID: uuid.NewString(),
		Duration:  time.Since(start),
	}
	if cmdErr != nil {
		rec.ErrorText = cmdErr.Error()
	}
	if err := s.History.Write(ctx, rec); err != nil {
		s.logger().Warn("history write failed", "command", b.Key(), "err", err)
	}
}

func (s *Service) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// ParseTextCommand разбивает строку команды на токены с учетом кавычек.
// Ведущие "cloudctl" и "/" отбрасываются.
func ParseTextCommand(text string) ([]string, error) {
	t := strings.TrimPrefix(strings.TrimSpace(text), "/")
	if t == "" {
		return nil, errEmptyCommand
	}
	tokens, err := shlex.Split(t)
	if err != nil {
		return nil, fmt.Errorf("tokenize %q: %v: %w", text, err, core.ErrInvalidArguments)
	}
	if len(tokens) > 0 && tokens[0] == "cloudctl" {
		tokens = tokens[1:]
	}
	if len(tokens) < 2 {
		return nil, fmt.Errorf("invalid command format: %w", errEmptyCommand)
	}
	return tokens, nil
}
