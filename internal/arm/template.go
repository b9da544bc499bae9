package arm

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cloudctl/internal/core"
)

// DeploymentModeIncremental используется по умолчанию.
const DeploymentModeIncremental = "Incremental"

// DeploymentBody собирает тело запроса развертывания из флагов
// --template-file, --template-uri, --parameters и --mode.
func DeploymentBody(args core.Args) (map[string]any, error) {
	props := map[string]any{}
	mode := args.String("mode")
	if mode == "" {
		mode = DeploymentModeIncremental
	}
	props["mode"] = mode

	file, uri := args.String("template-file"), args.String("template-uri")
	switch {
	case file != "" && uri != "":
		return nil, fmt.Errorf("--template-file and --template-uri are mutually exclusive: %w", core.ErrInvalidArguments)
	case file != "":
		tmpl, err := readJSONFile(file)
		if err != nil {
			return nil, fmt.Errorf("template file: %w", err)
		}
		props["template"] = tmpl
	case uri != "":
		props["templateLink"] = map[string]any{"uri": uri}
	default:
		return nil, fmt.Errorf("one of --template-file or --template-uri is required: %w", core.ErrInvalidArguments)
	}

	params, err := ParseParameters(args.Strings("parameters"))
	if err != nil {
		return nil, err
	}
	if len(params) > 0 {
		props["parameters"] = params
	}
	return map[string]any{"properties": props}, nil
}

// DeploymentName возвращает --name или имя файла шаблона без расширения.
func DeploymentName(args core.Args) string {
	if name := args.String("name"); name != "" {
		return name
	}
	source := args.String("template-file")
	if source == "" {
		source = args.String("template-uri")
	}
	if source == "" {
		return ""
	}
	base := filepath.Base(source)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ParseParameters разбирает повторяемый --parameters. Поддерживаются
// "@file.json", встроенный JSON, "key=value" и "key=@file".
// Результат нормализован к виду {"name": {"value": ...}}.
func ParseParameters(values []string) (map[string]any, error) {
	out := map[string]any{}
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		switch {
		case strings.HasPrefix(v, "@"):
			doc, err := readJSONFile(v[1:])
			if err != nil {
				return nil, fmt.Errorf("parameters file: %w", err)
			}
			mergeParameters(out, doc)
		case strings.HasPrefix(v, "{"):
			var doc any
			if err := json.Unmarshal([]byte(v), &doc); err != nil {
				return nil, fmt.Errorf("parameters %q: %v: %w", v, err, core.ErrInvalidArguments)
			}
			mergeParameters(out, doc)
		default:
			kv := strings.SplitN(v, "=", 2)
			if len(kv) != 2 {
				return nil, fmt.Errorf("parameters %q: expected KEY=VALUE: %w", v, core.ErrInvalidArguments)
			}
			var value any = kv[1]
			if strings.HasPrefix(kv[1], "@") {
				doc, err := readJSONFile(kv[1][1:])
				if err != nil {
					return nil, fmt.Errorf("parameter %s: %w", kv[0], err)
				}
				value = doc
			}
			out[kv[0]] = map[string]any{"value": value}
		}
	}
	return out, nil
}

// mergeParameters принимает как файл параметров целиком ($schema, parameters),
// так и карту {"name": {"value": ...}} или {"name": value}.
func mergeParameters(dst map[string]any, doc any) {
	m, ok := doc.(map[string]any)
	if !ok {
		return
	}
	if inner, ok := m["parameters"].(map[string]any); ok {
		if _, schema := m["$schema"]; schema {
			m = inner
		}
	}
	for name, raw := range m {
		if obj, ok := raw.(map[string]any); ok {
			if _, hasValue := obj["value"]; hasValue {
				dst[name] = obj
				continue
			}
			if _, hasRef := obj["reference"]; hasRef {
				dst[name] = obj
				continue
			}
		}
		dst[name] = map[string]any{"value": raw}
	}
}

func readJSONFile(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%s: %v: %w", path, err, core.ErrInvalidArguments)
	}
	return doc, nil
}

// ParseJSONArg читает значение флага name как "@file", путь к файлу или
// встроенный JSON.
func ParseJSONArg(name, v string) (any, error) {
	v = strings.TrimSpace(v)
	switch {
	case strings.HasPrefix(v, "@"):
		return readJSONFile(strings.Trim(v[1:], `"`))
	case strings.HasPrefix(v, "{"), strings.HasPrefix(v, "["):
		var doc any
		if err := json.Unmarshal([]byte(v), &doc); err != nil {
			return nil, fmt.Errorf("--%s: %v: %w", name, err, core.ErrInvalidArguments)
		}
		return doc, nil
	}
	if _, err := os.Stat(v); err != nil {
		return nil, fmt.Errorf("--%s: expected JSON, @file or a file path, got %q: %w", name, v, core.ErrInvalidArguments)
	}
	return readJSONFile(v)
}
