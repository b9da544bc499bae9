package recording

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"cloudctl/internal/core"
)

// keptHeaders попадают в кассету; остальные заголовки отбрасываются.
var keptHeaders = []string{"Location", "Azure-AsyncOperation", "Retry-After", "Content-Type"}

// Scrubber заменяет чувствительные или случайные значения перед записью.
type Scrubber func(s string) string

// ReplaceScrubber заменяет все вхождения old на new.
func ReplaceScrubber(old, new string) Scrubber {
	return func(s string) string {
		if old == "" {
			return s
		}
		return strings.ReplaceAll(s, old, new)
	}
}

// Recorder отправляет запросы через вложенный Sender и записывает
// очищенные взаимодействия; Close сохраняет кассету.
type Recorder struct {
	next      core.Sender
	path      string
	mu        sync.Mutex
	cassette  Cassette
	scrubbers []Scrubber
}

// NewRecorder создает записывающий Sender.
func NewRecorder(next core.Sender, path string, scrubbers ...Scrubber) *Recorder {
	return &Recorder{
		next:      next,
		path:      path,
		cassette:  Cassette{Version: CassetteVersion},
		scrubbers: scrubbers,
	}
}

// AddScrubber добавляет правило очистки; применяется при записи и при Close.
func (r *Recorder) AddScrubber(s Scrubber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scrubbers = append(r.scrubbers, s)
}

// Send реализует core.Sender.
func (r *Recorder) Send(ctx context.Context, req *core.Request) (*core.Response, error) {
	resp, err := r.next.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	headers := map[string]string{}
	for _, name := range keptHeaders {
		if v := resp.Header.Get(name); v != "" {
			headers[name] = v
		}
	}
	in := Interaction{
		Request: RecordedRequest{
			Method: req.Method,
			URI:    req.URL,
			Body:   string(req.Body),
		},
		Response: RecordedResponse{
			Status:  resp.StatusCode,
			Headers: headers,
			Body:    string(resp.Body),
		},
	}
	r.mu.Lock()
	r.cassette.Interactions = append(r.cassette.Interactions, in)
	r.mu.Unlock()
	return resp, nil
}

// Interactions возвращает очищенную копию записанного.
func (r *Recorder) Interactions() []Interaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Interaction, len(r.cassette.Interactions))
	for i, in := range r.cassette.Interactions {
		out[i] = r.scrub(in)
	}
	return out
}

// Close очищает записанные взаимодействия и сохраняет кассету.
func (r *Recorder) Close() error {
	c := Cassette{Version: CassetteVersion, Interactions: r.Interactions()}
	return c.Save(r.path)
}

func (r *Recorder) scrub(in Interaction) Interaction {
	apply := func(s string) string {
		for _, sc := range r.scrubbers {
			s = sc(s)
		}
		return s
	}
	in.Request.URI = apply(in.Request.URI)
	in.Request.Body = apply(in.Request.Body)
	in.Response.Body = apply(in.Response.Body)
	headers := make(map[string]string, len(in.Response.Headers))
	for k, v := range in.Response.Headers {
		if strings.EqualFold(k, "Authorization") {
			continue
		}
		headers[http.CanonicalHeaderKey(k)] = apply(v)
	}
	in.Response.Headers = headers
	return in
}
