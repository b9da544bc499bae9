package core

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	ErrDuplicateBinding     = errors.New("binding already registered")
	ErrRegistryFrozen       = errors.New("registry is frozen")
	ErrUnknownCommand       = errors.New("unknown command")
	ErrInvalidArguments     = errors.New("invalid arguments")
	ErrConfirmationRequired = errors.New("confirmation required")
)

// UnknownCommandError возвращается, если для команды нет привязки.
type UnknownCommandError struct {
	Command string
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("'%s' is not a known command", e.Command)
}

func (e *UnknownCommandError) Is(target error) bool {
	return target == ErrUnknownCommand
}

// TransportError описывает ответ удаленного API с кодом не из 2xx.
type TransportError struct {
	StatusCode int
	Code       string
	Message    string
	Method     string
	URL        string
}

func (e *TransportError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Code != "" {
		return fmt.Sprintf("(%s) %s", e.Code, msg)
	}
	return fmt.Sprintf("%d %s", e.StatusCode, msg)
}

// ResourceNotFoundError переводит ошибку 404 для конкретного вида ресурса.
type ResourceNotFoundError struct {
	Kind  string
	Cause *TransportError
}

func (e *ResourceNotFoundError) Error() string {
	return fmt.Sprintf("%s(s) not found. Please verify the resource(s), group or its parent resources exist.", e.Kind)
}

func (e *ResourceNotFoundError) Unwrap() error {
	if e.Cause == nil {
		return nil
	}
	return e.Cause
}

// TimeoutError возвращается, когда ожидание превысило отведенное время.
type TimeoutError struct {
	Operation string
	After     time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: timed out after %s", e.Operation, e.After)
}

// NotFound возвращает переводчик, заменяющий 404 на ResourceNotFoundError.
func NotFound(kind string) ErrorTranslator {
	return func(err error) error {
		var te *TransportError
		if !errors.As(err, &te) {
			return err
		}
		switch te.StatusCode {
		case http.StatusNotFound:
			return &ResourceNotFoundError{Kind: kind, Cause: te}
		default:
			return err
		}
	}
}
