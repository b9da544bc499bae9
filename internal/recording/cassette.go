package recording

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// CassetteVersion задает версию формата файла.
const CassetteVersion = 1

// ErrNoInteraction возвращается, когда в записи нет подходящего ответа.
var ErrNoInteraction = errors.New("no recorded interaction matches request")

// Cassette хранит записанные взаимодействия в порядке записи.
type Cassette struct {
	Version      int           `yaml:"version"`
	Interactions []Interaction `yaml:"interactions"`
}

// Interaction связывает запрос и ответ.
type Interaction struct {
	Request  RecordedRequest  `yaml:"request"`
	Response RecordedResponse `yaml:"response"`
}

// RecordedRequest хранит только то, что нужно для сопоставления.
type RecordedRequest struct {
	Method string `yaml:"method"`
	URI    string `yaml:"uri"`
	Body   string `yaml:"body,omitempty"`
}

// RecordedResponse хранит записанный ответ.
type RecordedResponse struct {
	Status  int               `yaml:"status"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Body    string            `yaml:"body,omitempty"`
}

// Header возвращает заголовки ответа в виде http.Header.
func (r RecordedResponse) Header() http.Header {
	h := http.Header{}
	for k, v := range r.Headers {
		h.Set(k, v)
	}
	return h
}

// Load читает кассету из YAML-файла.
func Load(path string) (*Cassette, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cassette: %w", err)
	}
	var c Cassette
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse cassette %s: %w", path, err)
	}
	if c.Version == 0 {
		c.Version = CassetteVersion
	}
	if c.Version != CassetteVersion {
		return nil, fmt.Errorf("cassette %s: unsupported version %d", path, c.Version)
	}
	return &c, nil
}

// Save записывает кассету, создавая каталоги.
func (c *Cassette) Save(path string) error {
	if c.Version == 0 {
		c.Version = CassetteVersion
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal cassette: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create cassette dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write cassette: %w", err)
	}
	return nil
}

// Signature строит ключ сопоставления: метод, путь в нижнем регистре и
// отсортированная строка запроса.
func Signature(method, rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return strings.ToUpper(method) + " " + strings.ToLower(rawURL)
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	path, _ = url.PathUnescape(path)
	return strings.ToUpper(method) + " " + strings.ToLower(path) + canonicalQuery(u.Query())
}

func canonicalQuery(q url.Values) string {
	if len(q) == 0 {
		return ""
	}
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, strings.ToLower(k))
	}
	sort.Strings(keys)
	lowered := url.Values{}
	for k, vals := range q {
		lowered[strings.ToLower(k)] = append(lowered[strings.ToLower(k)], vals...)
	}
	parts := make([]string, 0, len(keys))
	seen := map[string]bool{}
	for _, k := range keys {
		if seen[k] {
			continue
		}
		seen[k] = true
		vals := append([]string(nil), lowered[k]...)
		sort.Strings(vals)
		for _, v := range vals {
			parts = append(parts, k+"="+v)
		}
	}
	return "?" + strings.Join(parts, "&")
}
