package core

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

var errNotReady = errors.New("not ready")

// Check проверяет условие ожидания; true завершает опрос.
type Check func(ctx context.Context) (bool, error)

// Poll опрашивает check с фиксированным интервалом до успеха или таймаута.
// Ошибка check прерывает опрос сразу. При нулевом timeout check выполняется
// один раз.
func Poll(ctx context.Context, name string, interval, timeout time.Duration, check Check) error {
	if interval < 0 {
		interval = 0
	}
	opts := []backoff.RetryOption{
		backoff.WithBackOff(backoff.NewConstantBackOff(interval)),
	}
	if timeout > 0 {
		opts = append(opts, backoff.WithMaxElapsedTime(timeout))
	} else {
		timeout = 0
		opts = append(opts, backoff.WithMaxTries(1))
	}

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		done, err := check(ctx)
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		if !done {
			return struct{}{}, errNotReady
		}
		return struct{}{}, nil
	}, opts...)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, errNotReady):
		return &TimeoutError{Operation: name, After: timeout}
	default:
		return err
	}
}
