package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	"cloudctl/internal/core"
)

// Форматы вывода.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatTSV  = "tsv"
	FormatNone = "none"
)

// Query применяет gjson-путь к результату; отсутствующее значение дает пустой результат.
func Query(res core.Result, expr string) (core.Result, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" || res.Empty() {
		return res, nil
	}
	if !gjson.ValidBytes(res.Raw) {
		return core.Result{}, fmt.Errorf("--query: output is not valid JSON")
	}
	r := gjson.GetBytes(res.Raw, expr)
	if !r.Exists() {
		return core.Result{}, nil
	}
	return core.NewResult(json.RawMessage(r.Raw))
}

// Write выводит результат в заданном формате. Пустой результат ничего не выводит.
func Write(w io.Writer, res core.Result, format string) error {
	if res.Empty() {
		return nil
	}
	switch strings.ToLower(format) {
	case "", FormatJSON:
		buf, err := json.MarshalIndent(res.Output, "", "  ")
		if err != nil {
			return fmt.Errorf("render json: %w", err)
		}
		_, err = fmt.Fprintln(w, string(buf))
		return err
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(res.Output); err != nil {
			return fmt.Errorf("render yaml: %w", err)
		}
		return enc.Close()
	case FormatTSV:
		return writeTSV(w, res.Raw)
	case FormatNone:
		return nil
	default:
		return fmt.Errorf("unknown output format %q: %w", format, core.ErrInvalidArguments)
	}
}

// writeTSV выводит скалярные поля в порядке их появления в JSON;
// список дает по строке на элемент.
func writeTSV(w io.Writer, raw []byte) error {
	root := gjson.ParseBytes(raw)
	rows := []gjson.Result{root}
	if root.IsArray() {
		rows = root.Array()
	}
	for _, row := range rows {
		var cells []string
		if row.IsObject() {
			row.ForEach(func(_, v gjson.Result) bool {
				if !v.IsObject() && !v.IsArray() {
					cells = append(cells, scalar(v))
				}
				return true
			})
		} else {
			cells = append(cells, scalar(row))
		}
		if _, err := fmt.Fprintln(w, strings.Join(cells, "\t")); err != nil {
			return err
		}
	}
	return nil
}

func scalar(v gjson.Result) string {
	if v.Type == gjson.Null {
		return ""
	}
	return v.String()
}
