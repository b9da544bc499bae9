package recording

import (
	"context"
	"fmt"
	"sync"

	"cloudctl/internal/core"
)

// Replayer отвечает на запросы из кассеты, не обращаясь к сети.
// Каждое взаимодействие используется один раз; из подходящих берется
// первое неиспользованное в порядке записи.
type Replayer struct {
	mu       sync.Mutex
	cassette *Cassette
	sigs     []string
	used     []bool
}

// NewReplayer создает воспроизводящий Sender.
func NewReplayer(c *Cassette) *Replayer {
	if c == nil {
		c = &Cassette{Version: CassetteVersion}
	}
	sigs := make([]string, len(c.Interactions))
	for i, in := range c.Interactions {
		sigs[i] = Signature(in.Request.Method, in.Request.URI)
	}
	return &Replayer{cassette: c, sigs: sigs, used: make([]bool, len(sigs))}
}

// Send реализует core.Sender.
func (r *Replayer) Send(ctx context.Context, req *core.Request) (*core.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sig := Signature(req.Method, req.URL)
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, s := range r.sigs {
		if r.used[i] || s != sig {
			continue
		}
		r.used[i] = true
		rec := r.cassette.Interactions[i].Response
		return &core.Response{
			StatusCode: rec.Status,
			Header:     rec.Header(),
			Body:       []byte(rec.Body),
		}, nil
	}
	return nil, fmt.Errorf("%s: %w", sig, ErrNoInteraction)
}

// Unused возвращает сигнатуры взаимодействий, к которым не было обращений.
func (r *Replayer) Unused() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for i, used := range r.used {
		if !used {
			out = append(out, r.sigs[i])
		}
	}
	return out
}

// Reset помечает все взаимодействия как неиспользованные.
func (r *Replayer) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.used {
		r.used[i] = false
	}
}

// Len возвращает число взаимодействий в кассете.
func (r *Replayer) Len() int {
	return len(r.sigs)
}
