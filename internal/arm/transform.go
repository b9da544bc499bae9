package arm

import (
	"encoding/json"
	"fmt"
)

// WithResourceGroup добавляет поле resourceGroup, вычисленное из id,
// к объекту или к каждому элементу списка.
func WithResourceGroup(out any) (any, error) {
	v, err := decode(out)
	if err != nil {
		return nil, err
	}
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			addResourceGroup(item)
		}
	default:
		addResourceGroup(t)
	}
	return v, nil
}

func addResourceGroup(item any) {
	obj, ok := item.(map[string]any)
	if !ok {
		return
	}
	if _, exists := obj["resourceGroup"]; exists {
		return
	}
	id, _ := obj["id"].(string)
	if rg := ResourceGroupOf(id); rg != "" {
		obj["resourceGroup"] = rg
	}
}

func decode(out any) (any, error) {
	var raw []byte
	switch v := out.(type) {
	case json.RawMessage:
		raw = v
	case []byte:
		raw = v
	default:
		return out, nil
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decode output: %w", err)
	}
	return decoded, nil
}
