package scenario

import (
	"encoding/json"
	"fmt"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/tidwall/gjson"

	"cloudctl/internal/core"
)

// Check проверяет результат команды.
type Check interface {
	Verify(res core.Result) error
}

// CheckFunc адаптирует функцию к Check.
type CheckFunc func(res core.Result) error

func (f CheckFunc) Verify(res core.Result) error { return f(res) }

// AssertionFailure описывает невыполненную проверку.
type AssertionFailure struct {
	Check    string
	Path     string
	Expected any
	Actual   any
	Diff     string
}

func (e *AssertionFailure) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %q: expected %v, got %v\n%s", e.Check, e.Path, e.Expected, e.Actual, e.Diff)
	}
	return fmt.Sprintf("%s: expected %v, got %v", e.Check, e.Expected, e.Actual)
}

type pathCheck struct {
	path     string
	expected any
}

// PathCheck сравнивает значение по пути gjson с ожидаемым. Отсутствующий
// путь дает null.
func PathCheck(path string, expected any) Check {
	return pathCheck{path: path, expected: expected}
}

func (c pathCheck) Verify(res core.Result) error {
	want, err := normalize(c.expected)
	if err != nil {
		return fmt.Errorf("path check %q: %w", c.path, err)
	}
	got := lookup(res, c.path)
	if cmp.Equal(want, got, cmpopts.EquateEmpty()) {
		return nil
	}
	return &AssertionFailure{
		Check:    "path check",
		Path:     c.path,
		Expected: want,
		Actual:   got,
		Diff:     cmp.Diff(want, got, cmpopts.EquateEmpty()),
	}
}

type noneCheck struct{}

// NoneCheck требует пустой вывод: null, "", false, [] или {}.
func NoneCheck() Check { return noneCheck{} }

func (noneCheck) Verify(res core.Result) error {
	if isNone(res.Output) {
		return nil
	}
	return &AssertionFailure{Check: "none check", Expected: nil, Actual: res.Output}
}

type boolCheck bool

// BoolCheck требует, чтобы вывод был логическим значением b.
func BoolCheck(b bool) Check { return boolCheck(b) }

func (c boolCheck) Verify(res core.Result) error {
	if got, ok := res.Output.(bool); ok && got == bool(c) {
		return nil
	}
	return &AssertionFailure{Check: "bool check", Expected: bool(c), Actual: res.Output}
}

func lookup(res core.Result, path string) any {
	if path == "" || path == "@this" {
		return res.Output
	}
	if len(res.Raw) == 0 {
		return nil
	}
	r := gjson.GetBytes(res.Raw, path)
	if !r.Exists() {
		return nil
	}
	return r.Value()
}

// normalize приводит ожидаемое значение к виду, который дает json.Unmarshal.
func normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func isNone(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case bool:
		return !x
	case []any:
		return len(x) == 0
	case map[string]any:
		return len(x) == 0
	default:
		return false
	}
}
