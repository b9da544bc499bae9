package core

import (
	"context"
	"fmt"
	"strings"
)

// Option настраивает реестр.
type Option func(*Registry)

// WithStrictBindings запрещает повторную регистрацию команды.
func WithStrictBindings() Option {
	return func(r *Registry) { r.strict = true }
}

// Registry хранит таблицу команд и выполняет их.
type Registry struct {
	bindings map[string]*Binding
	order    []string
	groups   map[string]struct{}
	strict   bool
	frozen   bool
}

// NewRegistry создает пустую таблицу команд.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		bindings: make(map[string]*Binding),
		groups:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register добавляет привязку; повторная регистрация перезаписывает прежнюю,
// сохраняя ее позицию.
func (r *Registry) Register(b Binding) error {
	if r.frozen {
		return fmt.Errorf("%s: %w", b.Key(), ErrRegistryFrozen)
	}
	if strings.TrimSpace(b.Group) == "" || strings.TrimSpace(b.Verb) == "" {
		return fmt.Errorf("binding group and verb are required: %w", ErrInvalidArguments)
	}
	if b.Operation == nil {
		return fmt.Errorf("%s: operation is nil: %w", b.Key(), ErrInvalidArguments)
	}
	b.Group = strings.Join(strings.Fields(b.Group), " ")
	key := b.Key()
	if _, exists := r.bindings[key]; exists {
		if r.strict {
			return fmt.Errorf("%s: %w", key, ErrDuplicateBinding)
		}
	} else {
		r.order = append(r.order, key)
	}
	r.bindings[key] = &b

	words := strings.Fields(b.Group)
	for i := 1; i <= len(words); i++ {
		r.groups[strings.Join(words[:i], " ")] = struct{}{}
	}
	return nil
}

// Freeze завершает фазу построения; дальнейшая регистрация запрещена.
func (r *Registry) Freeze() {
	r.frozen = true
}

// Resolve возвращает привязку для (group, verb).
func (r *Registry) Resolve(group, verb string) (*Binding, error) {
	key := bindingKey(strings.Join(strings.Fields(group), " "), verb)
	b, ok := r.bindings[key]
	if !ok {
		return nil, &UnknownCommandError{Command: key}
	}
	return b, nil
}

// Lookup находит привязку по самому длинному префиксу слов команды и
// возвращает оставшиеся токены.
func (r *Registry) Lookup(tokens []string) (*Binding, []string, error) {
	words := 0
	for words < len(tokens) && !strings.HasPrefix(tokens[words], "-") {
		words++
	}
	if words == 0 {
		return nil, nil, &UnknownCommandError{Command: strings.Join(tokens, " ")}
	}
	for n := words; n >= 2; n-- {
		if b, err := r.Resolve(strings.Join(tokens[:n-1], " "), tokens[n-1]); err == nil {
			return b, tokens[n:], nil
		}
	}
	return nil, nil, &UnknownCommandError{Command: strings.Join(tokens[:words], " ")}
}

// IsGroup сообщает, является ли строка известной группой команд.
func (r *Registry) IsGroup(group string) bool {
	_, ok := r.groups[group]
	return ok
}

// Bindings возвращает привязки в порядке регистрации.
func (r *Registry) Bindings() []*Binding {
	out := make([]*Binding, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.bindings[key])
	}
	return out
}

// Invoke вызывает операцию привязки и применяет transform и переводчик ошибок.
func (r *Registry) Invoke(ctx context.Context, inv *Invocation) (Result, error) {
	if inv == nil || inv.Binding == nil {
		return Result{}, fmt.Errorf("invocation without binding: %w", ErrInvalidArguments)
	}
	b := inv.Binding
	args := inv.Args
	if args == nil {
		args = make(Args)
	}

	out, err := b.Operation(ctx, args)
	if err != nil {
		if b.Translate != nil {
			err = b.Translate(err)
		}
		return Result{Err: err}, err
	}
	if b.Transform != nil && out != nil {
		out, err = b.Transform(out)
		if err != nil {
			err = fmt.Errorf("%s: transform output: %w", b.Key(), err)
			return Result{Err: err}, err
		}
	}
	res, err := NewResult(out)
	if err != nil {
		err = fmt.Errorf("%s: %w", b.Key(), err)
		return Result{Err: err}, err
	}
	return res, nil
}
