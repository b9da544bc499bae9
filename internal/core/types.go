package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Operation выполняет удаленный вызов с разобранными аргументами.
type Operation func(ctx context.Context, args Args) (any, error)

// Transform преобразует результат операции перед выдачей.
type Transform func(out any) (any, error)

// ErrorTranslator переводит ошибку транспорта в пользовательскую.
type ErrorTranslator func(err error) error

// Binding связывает команду CLI с удаленной операцией.
type Binding struct {
	Group     string
	Verb      string
	Short     string
	Params    []Param
	Operation Operation
	Transform Transform
	Translate ErrorTranslator
	// Confirm требует --yes перед выполнением.
	Confirm bool
}

// Key возвращает полное имя команды: "cdn endpoint show".
func (b *Binding) Key() string {
	return bindingKey(b.Group, b.Verb)
}

func bindingKey(group, verb string) string {
	return strings.TrimSpace(group + " " + verb)
}

// Invocation описывает один вызов команды.
type Invocation struct {
	Text    string
	Binding *Binding
	Args    Args
}

// Result содержит вывод команды: разобранный JSON и исходные байты.
type Result struct {
	Output any
	Raw    []byte
	Err    error
}

// Empty сообщает, что команда не вернула данных.
func (r Result) Empty() bool {
	return r.Output == nil
}

// NewResult нормализует произвольный вывод операции в JSON.
func NewResult(out any) (Result, error) {
	var raw []byte
	switch v := out.(type) {
	case nil:
		return Result{}, nil
	case json.RawMessage:
		raw = v
	case []byte:
		raw = v
	default:
		buf, err := json.Marshal(v)
		if err != nil {
			return Result{}, fmt.Errorf("marshal output: %w", err)
		}
		raw = buf
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return Result{}, nil
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return Result{}, fmt.Errorf("decode output: %w", err)
	}
	if decoded == nil {
		return Result{}, nil
	}
	return Result{Output: decoded, Raw: raw}, nil
}
