package scenario

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Script описывает сценарий в YAML для запуска из командной строки.
type Script struct {
	Name          string            `yaml:"name"`
	Vars          map[string]string `yaml:"vars"`
	ResourceGroup *GroupSpec        `yaml:"resource_group"`
	Steps         []Step            `yaml:"steps"`
}

// GroupSpec описывает группу ресурсов, создаваемую на время сценария.
type GroupSpec struct {
	Prefix   string `yaml:"prefix"`
	Location string `yaml:"location"`
	Key      string `yaml:"key"`
}

// Step описывает одну команду и ожидания к ней.
type Step struct {
	Name    string `yaml:"name"`
	Command string `yaml:"command"`
	// Expect сопоставляет пути gjson и ожидаемые значения.
	Expect map[string]any `yaml:"expect"`
	None   bool           `yaml:"none"`
	Bool   *bool          `yaml:"bool"`
	// Capture сохраняет значения путей как подстановки для следующих шагов.
	Capture map[string]string `yaml:"capture"`
	// ExpectError задает подстроку ожидаемого сообщения об ошибке.
	ExpectError string `yaml:"expect_error"`
}

// LoadScript читает сценарий из файла.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse script %s: %w", path, err)
	}
	if len(s.Steps) == 0 {
		return nil, fmt.Errorf("script %s: no steps", path)
	}
	for i, st := range s.Steps {
		if strings.TrimSpace(st.Command) == "" {
			return nil, fmt.Errorf("script %s: step %d has no command", path, i+1)
		}
	}
	return &s, nil
}

// Checks возвращает проверки шага в порядке: none, bool, пути по алфавиту.
func (st Step) Checks() []Check {
	var checks []Check
	if st.None {
		checks = append(checks, NoneCheck())
	}
	if st.Bool != nil {
		checks = append(checks, BoolCheck(*st.Bool))
	}
	for _, path := range sortedKeys(st.Expect) {
		checks = append(checks, PathCheck(path, st.Expect[path]))
	}
	return checks
}

// RunScript выполняет шаги сценария; names задает режим имен группы.
func RunScript(ctx context.Context, r *Runner, s *Script, names *Names) error {
	for k, v := range s.Vars {
		r.Set(k, v)
	}
	steps := func() error {
		for i, st := range s.Steps {
			label := st.Name
			if label == "" {
				label = fmt.Sprintf("#%d", i+1)
			}
			if err := runStep(ctx, r, st); err != nil {
				return fmt.Errorf("step %s: %w", label, err)
			}
		}
		return nil
	}
	var err error
	if s.ResourceGroup != nil {
		p := &ResourceGroupPreparer{
			Prefix:   s.ResourceGroup.Prefix,
			Location: s.ResourceGroup.Location,
			Key:      s.ResourceGroup.Key,
			Names:    names,
		}
		err = p.Use(ctx, r, func(string) error { return steps() })
	} else {
		err = steps()
	}
	if st := r.Finish(err); st != StatePassed {
		if err == nil {
			err = fmt.Errorf("scenario %s: %s", s.Name, r.Reason())
		}
		return err
	}
	return nil
}

func runStep(ctx context.Context, r *Runner, st Step) error {
	if st.ExpectError != "" {
		want := strings.ToLower(st.ExpectError)
		return r.RunExpectingError(ctx, st.Command, func(err error) bool {
			return strings.Contains(strings.ToLower(err.Error()), want)
		})
	}
	res, err := r.Run(ctx, st.Command, st.Checks()...)
	if err != nil {
		return err
	}
	for _, key := range sortedKeys(st.Capture) {
		v := lookup(res, st.Capture[key])
		if v == nil {
			return fmt.Errorf("capture %s: path %q not found", key, st.Capture[key])
		}
		r.Set(key, fmt.Sprint(v))
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
