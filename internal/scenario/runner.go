package scenario

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sync"

	"cloudctl/internal/core"
	"cloudctl/internal/transports/common"
)

// State описывает стадию выполнения сценария.
type State int

const (
	StateSetup State = iota
	StateExecuting
	StateVerifying
	StateTeardown
	StatePassed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateSetup:
		return "setup"
	case StateExecuting:
		return "executing"
	case StateVerifying:
		return "verifying"
	case StateTeardown:
		return "teardown"
	case StatePassed:
		return "passed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal сообщает, что сценарий завершен.
func (s State) Terminal() bool {
	return s == StatePassed || s == StateFailed
}

var placeholder = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_-]*)\}`)

// Runner выполняет команды сценария через общий пайплайн и проверяет вывод.
type Runner struct {
	Service *common.Service
	Logger  *slog.Logger

	mu     sync.Mutex
	kwargs map[string]string
	state  State
	reason string
}

// NewRunner создает сценарий в состоянии Setup.
func NewRunner(svc *common.Service, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{Service: svc, Logger: logger, kwargs: map[string]string{}}
}

// Set задает значение подстановки {key}.
func (r *Runner) Set(key, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kwargs[key] = value
}

// Get возвращает значение подстановки.
func (r *Runner) Get(key string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.kwargs[key]
}

// Expand подставляет известные {key}; прочие фигурные скобки не трогает.
func (r *Runner) Expand(text string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return placeholder.ReplaceAllStringFunc(text, func(m string) string {
		if v, ok := r.kwargs[m[1:len(m)-1]]; ok {
			return v
		}
		return m
	})
}

// State возвращает текущую стадию.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Reason возвращает причину провала.
func (r *Runner) Reason() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reason
}

func (r *Runner) setState(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Terminal() {
		return
	}
	r.state = s
}

// Fail переводит сценарий в Failed с причиной err.
func (r *Runner) Fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Terminal() {
		return
	}
	r.state = StateFailed
	if err != nil {
		r.reason = err.Error()
	}
}

// Finish завершает сценарий: Passed, если err равна nil и провалов не было.
func (r *Runner) Finish(err error) State {
	if err != nil {
		r.Fail(err)
	}
	r.setState(StatePassed)
	return r.State()
}

// Run выполняет команду и проверяет вывод по порядку; первая невыполненная
// проверка прерывает проверку и переводит сценарий в Failed.
func (r *Runner) Run(ctx context.Context, command string, checks ...Check) (core.Result, error) {
	if st := r.State(); st.Terminal() {
		return core.Result{}, fmt.Errorf("scenario already %s", st)
	}
	res, err := r.exec(ctx, command)
	if err != nil {
		r.Fail(err)
		return res, err
	}
	if err := r.verify(res, checks); err != nil {
		r.Fail(err)
		return res, err
	}
	return res, nil
}

// RunExpectingError выполняет команду, которая должна завершиться ошибкой,
// принимаемой match. Ожидаемая ошибка не проваливает сценарий.
func (r *Runner) RunExpectingError(ctx context.Context, command string, match func(error) bool) error {
	_, err := r.exec(ctx, command)
	switch {
	case err == nil:
		failure := &AssertionFailure{Check: "expected error", Expected: "an error", Actual: "success"}
		r.Fail(failure)
		return failure
	case match != nil && !match(err):
		r.Fail(err)
		return err
	default:
		return nil
	}
}

func (r *Runner) exec(ctx context.Context, command string) (core.Result, error) {
	if r.State() != StateSetup && r.State() != StateTeardown {
		r.setState(StateExecuting)
	}
	text := r.Expand(command)
	r.Logger.Debug("scenario command", "command", text, "state", r.State().String())
	out, err := r.Service.ExecuteText(ctx, text)
	if err != nil {
		return out.Result, fmt.Errorf("%s: %w", text, err)
	}
	return out.Result, nil
}

func (r *Runner) verify(res core.Result, checks []Check) error {
	if len(checks) == 0 {
		return nil
	}
	if r.State() == StateExecuting {
		r.setState(StateVerifying)
	}
	for _, c := range checks {
		if err := c.Verify(res); err != nil {
			return err
		}
	}
	return nil
}

// beginTeardown переводит сценарий в Teardown, если он не завершен.
func (r *Runner) beginTeardown() {
	r.setState(StateTeardown)
}

// beginSetup возвращает сценарий в Setup для подготовки ресурсов.
func (r *Runner) beginSetup() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.state
	if !prev.Terminal() {
		r.state = StateSetup
	}
	return prev
}
