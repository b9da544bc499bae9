package arm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"cloudctl/internal/core"
)

type step struct {
	method string
	path   string
	status int
	header http.Header
	body   string
}

// scriptedSender отвечает по заранее заданному сценарию и проверяет порядок запросов.
type scriptedSender struct {
	t     *testing.T
	steps []step
	seen  []*core.Request
}

func (s *scriptedSender) Send(ctx context.Context, req *core.Request) (*core.Response, error) {
	s.t.Helper()
	s.seen = append(s.seen, req)
	if len(s.steps) == 0 {
		s.t.Fatalf("unexpected request %s %s", req.Method, req.URL)
	}
	next := s.steps[0]
	s.steps = s.steps[1:]
	u, err := url.Parse(req.URL)
	if err != nil {
		s.t.Fatalf("parse url: %v", err)
	}
	if req.Method != next.method || u.Path != next.path {
		s.t.Fatalf("expected %s %s, got %s %s", next.method, next.path, req.Method, u.Path)
	}
	h := next.header
	if h == nil {
		h = http.Header{}
	}
	return &core.Response{StatusCode: next.status, Header: h, Body: []byte(next.body)}, nil
}

func newTestClient(t *testing.T, steps ...step) (*Client, *scriptedSender) {
	s := &scriptedSender{t: t, steps: steps}
	c := NewClient(s, Options{Endpoint: "https://arm.test", Subscription: "sub1", Token: "tok"})
	return c, s
}

func TestExecuteMapsErrorBody(t *testing.T) {
	c, _ := newTestClient(t, step{
		method: http.MethodGet, path: "/subscriptions/sub1/resourcegroups/rg1", status: http.StatusNotFound,
		body: `{"error":{"code":"ResourceGroupNotFound","message":"Resource group 'rg1' could not be found."}}`,
	})
	_, err := c.Execute(context.Background(), Call{Method: http.MethodGet, Path: "/subscriptions/sub1/resourcegroups/rg1", APIVersion: ResourcesAPIVersion})
	var te *core.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if te.StatusCode != http.StatusNotFound || te.Code != "ResourceGroupNotFound" {
		t.Fatalf("unexpected error: %#v", te)
	}
	if !strings.Contains(te.URL, "api-version=2017-05-10") {
		t.Fatalf("api-version not sent: %s", te.URL)
	}
}

func TestRequestHeaders(t *testing.T) {
	c, s := newTestClient(t, step{method: http.MethodPut, path: "/x", status: http.StatusOK, body: `{}`})
	if _, err := c.Execute(context.Background(), Call{Method: http.MethodPut, Path: "/x", Body: map[string]string{"location": "westus"}}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	req := s.seen[0]
	if req.Header.Get("Authorization") != "Bearer tok" {
		t.Fatalf("missing bearer token")
	}
	if req.Header.Get("x-ms-client-request-id") == "" {
		t.Fatalf("missing client request id")
	}
	if !strings.HasPrefix(req.Header.Get("Content-Type"), "application/json") {
		t.Fatalf("unexpected content type %q", req.Header.Get("Content-Type"))
	}
	if string(req.Body) != `{"location":"westus"}` {
		t.Fatalf("unexpected body %s", req.Body)
	}
}

func TestListFollowsNextLink(t *testing.T) {
	c, _ := newTestClient(t,
		step{method: http.MethodGet, path: "/subscriptions/sub1/resourcegroups", status: http.StatusOK,
			body: `{"value":[{"name":"a"}],"nextLink":"https://arm.test/subscriptions/sub1/resourcegroups?page=2&api-version=2017-05-10"}`},
		step{method: http.MethodGet, path: "/subscriptions/sub1/resourcegroups", status: http.StatusOK,
			body: `{"value":[{"name":"b"}]}`},
	)
	out, err := c.List(context.Background(), Call{Method: http.MethodGet, Path: "/subscriptions/sub1/resourcegroups", APIVersion: ResourcesAPIVersion})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var items []map[string]string
	if err := json.Unmarshal(out, &items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 2 || items[0]["name"] != "a" || items[1]["name"] != "b" {
		t.Fatalf("unexpected items: %s", out)
	}
}

func TestListEmpty(t *testing.T) {
	c, _ := newTestClient(t, step{method: http.MethodGet, path: "/l", status: http.StatusOK, body: `{"value":[]}`})
	out, err := c.List(context.Background(), Call{Method: http.MethodGet, Path: "/l"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if string(out) != "[]" {
		t.Fatalf("expected empty list, got %s", out)
	}
}

func TestDeletePollsLocation(t *testing.T) {
	loc := http.Header{"Location": {"https://arm.test/subscriptions/sub1/operationresults/op1"}}
	c, _ := newTestClient(t,
		step{method: http.MethodDelete, path: "/subscriptions/sub1/resourcegroups/rg1", status: http.StatusAccepted, header: loc},
		step{method: http.MethodGet, path: "/subscriptions/sub1/operationresults/op1", status: http.StatusAccepted, header: loc},
		step{method: http.MethodGet, path: "/subscriptions/sub1/operationresults/op1", status: http.StatusOK},
	)
	out, err := c.Execute(context.Background(), Call{Method: http.MethodDelete, Path: "/subscriptions/sub1/resourcegroups/rg1", LongRunning: true})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if out != nil {
		t.Fatalf("expected no output, got %s", out)
	}
}

func TestNoWaitSkipsPolling(t *testing.T) {
	loc := http.Header{"Location": {"https://arm.test/op"}}
	c, s := newTestClient(t, step{method: http.MethodDelete, path: "/rg", status: http.StatusAccepted, header: loc})
	out, err := c.Execute(context.Background(), Call{Method: http.MethodDelete, Path: "/rg", LongRunning: true, NoWait: true})
	if err != nil || out != nil {
		t.Fatalf("unexpected result %s, %v", out, err)
	}
	if len(s.seen) != 1 {
		t.Fatalf("expected single request, got %d", len(s.seen))
	}
}

func TestPutPollsProvisioningState(t *testing.T) {
	c, _ := newTestClient(t,
		step{method: http.MethodPut, path: "/d", status: http.StatusCreated, body: `{"properties":{"provisioningState":"Accepted"}}`},
		step{method: http.MethodGet, path: "/d", status: http.StatusOK, body: `{"properties":{"provisioningState":"Running"}}`},
		step{method: http.MethodGet, path: "/d", status: http.StatusOK, body: `{"properties":{"provisioningState":"Succeeded"}}`},
	)
	out, err := c.Execute(context.Background(), Call{Method: http.MethodPut, Path: "/d", LongRunning: true})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if !strings.Contains(string(out), "Succeeded") {
		t.Fatalf("unexpected output %s", out)
	}
}

func TestPutLogsProvisioningProgress(t *testing.T) {
	const path = "/subscriptions/sub1/resourcegroups/rg1/providers/Microsoft.Resources/deployments/dep2"
	deployment := func(state string) string {
		return `{"name":"dep2","type":"Microsoft.Resources/deployments","properties":{"provisioningState":"` + state + `"}}`
	}
	s := &scriptedSender{t: t, steps: []step{
		{method: http.MethodPut, path: path, status: http.StatusCreated, body: deployment("Accepted")},
		{method: http.MethodGet, path: path, status: http.StatusOK, body: deployment("Accepted")},
		{method: http.MethodGet, path: path, status: http.StatusOK, body: deployment("Succeeded")},
	}}
	var buf bytes.Buffer
	lg := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	c := NewClient(s, Options{Endpoint: "https://arm.test", Subscription: "sub1", Logger: lg})
	if _, err := c.Execute(context.Background(), Call{Method: http.MethodPut, Path: path, LongRunning: true}); err != nil {
		t.Fatalf("put: %v", err)
	}

	var msgs []string
	dec := json.NewDecoder(&buf)
	for dec.More() {
		var rec struct {
			Msg   string `json:"msg"`
			State string `json:"state"`
		}
		if err := dec.Decode(&rec); err != nil {
			t.Fatalf("decode log: %v", err)
		}
		if rec.State != "" {
			msgs = append(msgs, rec.Msg)
		}
	}
	want := []string{
		"Accepted: dep2 (Microsoft.Resources/deployments)",
		"Succeeded: dep2 (Microsoft.Resources/deployments)",
	}
	if strings.Join(msgs, "\n") != strings.Join(want, "\n") {
		t.Fatalf("unexpected progress lines %q", msgs)
	}
}

func TestPutFailedProvisioning(t *testing.T) {
	c, _ := newTestClient(t,
		step{method: http.MethodPut, path: "/d", status: http.StatusOK,
			body: `{"properties":{"provisioningState":"Failed","error":{"code":"InvalidTemplate","message":"bad"}}}`},
	)
	_, err := c.Execute(context.Background(), Call{Method: http.MethodPut, Path: "/d", LongRunning: true})
	var pe *ProvisioningError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProvisioningError, got %v", err)
	}
	if pe.Code != "InvalidTemplate" {
		t.Fatalf("unexpected code %q", pe.Code)
	}
}

func TestPollTimeoutSurfacesTimeoutError(t *testing.T) {
	s := &scriptedSender{t: t}
	for i := 0; i < 1000; i++ {
		s.steps = append(s.steps, step{method: http.MethodGet, path: "/d", status: http.StatusOK, body: `{"properties":{"provisioningState":"Running"}}`})
	}
	s.steps = append([]step{{method: http.MethodPut, path: "/d", status: http.StatusCreated, body: `{"properties":{"provisioningState":"Running"}}`}}, s.steps...)
	c := NewClient(s, Options{Endpoint: "https://arm.test", Subscription: "sub1", PollInterval: time.Millisecond, PollTimeout: 20 * time.Millisecond})
	_, err := c.Execute(context.Background(), Call{Method: http.MethodPut, Path: "/d", LongRunning: true})
	var te *core.TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("expected TimeoutError, got %v", err)
	}
}

func TestExists(t *testing.T) {
	c, _ := newTestClient(t,
		step{method: http.MethodHead, path: "/rg", status: http.StatusNoContent},
		step{method: http.MethodHead, path: "/rg", status: http.StatusNotFound},
		step{method: http.MethodHead, path: "/rg", status: http.StatusForbidden},
	)
	ctx := context.Background()
	if ok, err := c.Exists(ctx, "/rg", ResourcesAPIVersion); err != nil || !ok {
		t.Fatalf("expected exists, got %v %v", ok, err)
	}
	if ok, err := c.Exists(ctx, "/rg", ResourcesAPIVersion); err != nil || ok {
		t.Fatalf("expected missing, got %v %v", ok, err)
	}
	if _, err := c.Exists(ctx, "/rg", ResourcesAPIVersion); err == nil {
		t.Fatalf("expected error for 403")
	}
}

func TestResolveAPIVersionCachesStable(t *testing.T) {
	c, s := newTestClient(t, step{
		method: http.MethodGet, path: "/subscriptions/sub1/providers/Microsoft.Compute", status: http.StatusOK,
		body: `{"namespace":"Microsoft.Compute","resourceTypes":[
			{"resourceType":"availabilitySets","apiVersions":["2017-03-30"]},
			{"resourceType":"virtualMachines","apiVersions":["2017-12-01-preview","2017-03-30","2016-04-30-preview"]}]}`,
	})
	for i := 0; i < 2; i++ {
		v, err := c.ResolveAPIVersion(context.Background(), "Microsoft.Compute", "virtualMachines")
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if v != "2017-03-30" {
			t.Fatalf("expected stable version, got %s", v)
		}
	}
	if len(s.seen) != 1 {
		t.Fatalf("expected cached lookup, got %d requests", len(s.seen))
	}
}

func TestExpand(t *testing.T) {
	c, _ := newTestClient(t)
	args := core.Args{"resource-group": {"rg 1"}, "name": {"ep"}}
	got, err := c.Expand("/subscriptions/{subscription}/resourcegroups/{resource-group}/x/{name}", args)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if got != "/subscriptions/sub1/resourcegroups/rg%201/x/ep" {
		t.Fatalf("unexpected path %s", got)
	}
	if _, err := c.Expand("/{profile-name}", args); !errors.Is(err, core.ErrInvalidArguments) {
		t.Fatalf("expected ErrInvalidArguments, got %v", err)
	}
}

func TestFactoryRequiresSubscription(t *testing.T) {
	f := NewFactory(core.SenderFunc(func(ctx context.Context, req *core.Request) (*core.Response, error) {
		return nil, errors.New("unreachable")
	}), Options{})
	if _, err := f(context.Background()); err == nil {
		t.Fatalf("expected error without subscription")
	}
}
