package arm

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"cloudctl/internal/core"
)

// UpdateParams возвращает флаги универсального обновления.
func UpdateParams() []core.Param {
	return []core.Param{
		{Name: "set", Kind: core.KindList, Help: "update a property: path=value"},
		{Name: "add", Kind: core.KindList, Help: "append to a list property: path=value"},
		{Name: "remove", Kind: core.KindList, Help: "remove a property or list element: path"},
	}
}

// ApplyUpdates применяет --set, --add и --remove к JSON-документу.
// Значение, являющееся корректным JSON, вставляется как есть, иначе как строка.
func ApplyUpdates(doc []byte, sets, adds, removes []string) ([]byte, error) {
	var err error
	out := append([]byte(nil), doc...)
	for _, s := range sets {
		path, value, ok := strings.Cut(s, "=")
		if !ok || path == "" {
			return nil, fmt.Errorf("--set %q: expected path=value: %w", s, core.ErrInvalidArguments)
		}
		out, err = setValue(out, path, value)
		if err != nil {
			return nil, fmt.Errorf("--set %s: %w", path, err)
		}
	}
	for _, a := range adds {
		path, value, ok := strings.Cut(a, "=")
		if !ok || path == "" {
			return nil, fmt.Errorf("--add %q: expected path=value: %w", a, core.ErrInvalidArguments)
		}
		if cur := gjson.GetBytes(out, path); cur.Exists() && !cur.IsArray() {
			return nil, fmt.Errorf("--add %s: property is not a list: %w", path, core.ErrInvalidArguments)
		}
		out, err = setValue(out, path+".-1", value)
		if err != nil {
			return nil, fmt.Errorf("--add %s: %w", path, err)
		}
	}
	for _, path := range removes {
		if !gjson.GetBytes(out, path).Exists() {
			return nil, fmt.Errorf("--remove %s: property not found: %w", path, core.ErrInvalidArguments)
		}
		out, err = sjson.DeleteBytes(out, path)
		if err != nil {
			return nil, fmt.Errorf("--remove %s: %w", path, err)
		}
	}
	return out, nil
}

func setValue(doc []byte, path, value string) ([]byte, error) {
	if gjson.Valid(value) {
		return sjson.SetRawBytes(doc, path, []byte(value))
	}
	return sjson.SetBytes(doc, path, value)
}
