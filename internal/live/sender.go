package live

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sethgrid/pester"
	"golang.org/x/time/rate"

	"cloudctl/internal/core"
)

// DefaultTries ограничивает число попыток для транзиентных ошибок.
const DefaultTries = 4

// Options задает параметры сетевого отправителя.
type Options struct {
	Timeout    time.Duration
	MaxRetries int
	// RPS ограничивает частоту запросов; 0 отключает ограничение.
	RPS    float64
	Burst  int
	Logger *slog.Logger
}

// HTTPDoer описывает минимальный HTTP-клиент.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Sender реализует core.Sender поверх HTTP с повторами и ограничением частоты.
type Sender struct {
	client  HTTPDoer
	limiter *rate.Limiter
	log     *slog.Logger
}

// NewPesterClient создает клиент с экспоненциальными повторами.
func NewPesterClient(opts Options, lg *slog.Logger) *pester.Client {
	hc := &http.Client{Timeout: opts.Timeout}
	client := pester.NewExtendedClient(hc)
	client.Backoff = pester.ExponentialBackoff
	client.MaxRetries = opts.MaxRetries
	if client.MaxRetries <= 0 {
		client.MaxRetries = DefaultTries
	}
	client.RetryOnHTTP429 = true
	client.LogHook = func(e pester.ErrEntry) {
		lg.Warn("retrying after failed attempt", "method", e.Method, "url", e.URL, "attempt", e.Attempt, "err", e.Err)
	}
	return client
}

// NewSender создает сетевой отправитель.
func NewSender(opts Options) *Sender {
	lg := opts.Logger
	if lg == nil {
		lg = slog.Default()
	}
	return NewSenderWithClient(NewPesterClient(opts, lg), opts)
}

// NewSenderWithClient позволяет подставить собственный HTTP-клиент.
func NewSenderWithClient(client HTTPDoer, opts Options) *Sender {
	lg := opts.Logger
	if lg == nil {
		lg = slog.Default()
	}
	limit := rate.Inf
	if opts.RPS > 0 {
		limit = rate.Limit(opts.RPS)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Sender{client: client, limiter: rate.NewLimiter(limit, burst), log: lg}
}

// Send реализует core.Sender.
func (s *Sender) Send(ctx context.Context, req *core.Request) (*core.Response, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	hreq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, vals := range req.Header {
		for _, v := range vals {
			hreq.Header.Add(k, v)
		}
	}

	start := time.Now()
	resp, err := s.client.Do(hreq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	s.log.Debug("http", "method", req.Method, "url", req.URL, "status", resp.StatusCode, "duration", time.Since(start))
	return &core.Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}
