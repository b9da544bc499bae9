package core

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"
)

func TestSenderFunc(t *testing.T) {
	var s Sender = SenderFunc(func(ctx context.Context, req *Request) (*Response, error) {
		return &Response{StatusCode: http.StatusOK, Body: []byte(req.Method)}, nil
	})
	resp, err := s.Send(context.Background(), &Request{Method: http.MethodGet})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if string(resp.Body) != http.MethodGet {
		t.Fatalf("unexpected body: %s", resp.Body)
	}
}

func TestPollSucceeds(t *testing.T) {
	var calls int32
	err := Poll(context.Background(), "wait", time.Millisecond, time.Second, func(ctx context.Context) (bool, error) {
		return atomic.AddInt32(&calls, 1) >= 3, nil
	})
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if c := atomic.LoadInt32(&calls); c != 3 {
		t.Fatalf("expected 3 calls, got %d", c)
	}
}

func TestPollTimeout(t *testing.T) {
	err := Poll(context.Background(), "group wait", 5*time.Millisecond, 30*time.Millisecond, func(ctx context.Context) (bool, error) {
		return false, nil
	})
	var te *TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("expected TimeoutError, got %v", err)
	}
	if te.Operation != "group wait" {
		t.Fatalf("unexpected operation: %s", te.Operation)
	}
}

func TestPollZeroTimeoutChecksOnce(t *testing.T) {
	var calls int32
	start := time.Now()
	err := Poll(context.Background(), "group wait", time.Millisecond, 0, func(ctx context.Context) (bool, error) {
		atomic.AddInt32(&calls, 1)
		return false, nil
	})
	var te *TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("expected TimeoutError, got %v", err)
	}
	if te.After != 0 {
		t.Fatalf("unexpected timeout %s", te.After)
	}
	if c := atomic.LoadInt32(&calls); c != 1 {
		t.Fatalf("expected single check, got %d", c)
	}
	if time.Since(start) > time.Second {
		t.Fatal("zero timeout must not fall back to a default deadline")
	}

	err = Poll(context.Background(), "group wait", time.Millisecond, 0, func(ctx context.Context) (bool, error) {
		return true, nil
	})
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
}

func TestPollStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	var calls int32
	err := Poll(context.Background(), "wait", time.Millisecond, time.Second, func(ctx context.Context) (bool, error) {
		atomic.AddInt32(&calls, 1)
		return false, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if c := atomic.LoadInt32(&calls); c != 1 {
		t.Fatalf("expected single call, got %d", c)
	}
}

func TestFlagConfirmer(t *testing.T) {
	b := &Binding{Group: "group", Verb: "delete", Confirm: true}
	if err := (FlagConfirmer{}).Confirm(b, Args{}); !errors.Is(err, ErrConfirmationRequired) {
		t.Fatalf("expected ErrConfirmationRequired, got %v", err)
	}
	if err := (FlagConfirmer{}).Confirm(b, Args{"yes": {"true"}}); err != nil {
		t.Fatalf("expected confirm with --yes, got %v", err)
	}
	if err := (AssumeYes{}).Confirm(b, Args{}); err != nil {
		t.Fatalf("assume yes: %v", err)
	}
}
