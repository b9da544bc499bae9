package arm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"cloudctl/internal/core"
)

const (
	// DefaultEndpoint задает адрес API управления по умолчанию.
	DefaultEndpoint = "https://management.azure.com"
	// MockedSubscription используется в записях вместо реальной подписки.
	MockedSubscription = "00000000-0000-0000-0000-000000000000"
	// ResourcesAPIVersion используется для групп, ресурсов, развертываний и тегов.
	ResourcesAPIVersion = "2017-05-10"
)

// Options задает параметры клиента.
type Options struct {
	Endpoint     string
	Subscription string
	Token        string
	UserAgent    string
	PollInterval time.Duration
	PollTimeout  time.Duration
	Logger       *slog.Logger
}

// Client выполняет запросы через core.Sender.
type Client struct {
	sender core.Sender
	opts   Options
	log    *slog.Logger

	mu          sync.Mutex
	apiVersions map[string]string
}

// ClientFactory лениво создает клиента для вызова операции.
type ClientFactory func(ctx context.Context) (*Client, error)

// NewClient создает клиента с заполненными значениями по умолчанию.
func NewClient(sender core.Sender, opts Options) *Client {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	opts.Endpoint = strings.TrimRight(opts.Endpoint, "/")
	if opts.PollInterval < 0 {
		opts.PollInterval = 0
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = time.Hour
	}
	lg := opts.Logger
	if lg == nil {
		lg = slog.Default()
	}
	return &Client{
		sender:      sender,
		opts:        opts,
		log:         lg,
		apiVersions: make(map[string]string),
	}
}

// NewFactory возвращает фабрику, создающую клиента один раз.
func NewFactory(sender core.Sender, opts Options) ClientFactory {
	var (
		once   sync.Once
		client *Client
	)
	return func(ctx context.Context) (*Client, error) {
		if sender == nil {
			return nil, errors.New("no sender configured")
		}
		once.Do(func() { client = NewClient(sender, opts) })
		if client.opts.Subscription == "" {
			return nil, errors.New("subscription is not configured; set CLOUDCTL_SUBSCRIPTION")
		}
		return client, nil
	}
}

// Subscription возвращает идентификатор подписки клиента.
func (c *Client) Subscription() string {
	return c.opts.Subscription
}

// PollInterval возвращает интервал опроса по умолчанию.
func (c *Client) PollInterval() time.Duration {
	return c.opts.PollInterval
}

// Call описывает один запрос.
type Call struct {
	Method      string
	Path        string
	APIVersion  string
	Query       url.Values
	Body        any
	LongRunning bool
	NoWait      bool
}

// Do отправляет запрос и превращает ответы с кодом >= 400 в TransportError.
func (c *Client) Do(ctx context.Context, call Call) (*core.Response, error) {
	req, err := c.newRequest(call)
	if err != nil {
		return nil, err
	}
	c.log.Debug("request", "method", req.Method, "url", req.URL)
	resp, err := c.sender.Send(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL, err)
	}
	c.log.Debug("response", "method", req.Method, "url", req.URL, "status", resp.StatusCode)
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, transportError(req, resp)
	}
	return resp, nil
}

// Execute выполняет запрос и при необходимости дожидается окончания
// длительной операции. С NoWait возвращает пустой результат.
func (c *Client) Execute(ctx context.Context, call Call) (json.RawMessage, error) {
	resp, err := c.Do(ctx, call)
	if err != nil {
		return nil, err
	}
	if call.NoWait {
		return nil, nil
	}
	if !call.LongRunning {
		return bodyOf(resp), nil
	}
	return c.complete(ctx, call, resp)
}

// Exists выполняет HEAD и сообщает, существует ли ресурс.
func (c *Client) Exists(ctx context.Context, path, apiVersion string) (bool, error) {
	_, err := c.Do(ctx, Call{Method: http.MethodHead, Path: path, APIVersion: apiVersion})
	if err == nil {
		return true, nil
	}
	var te *core.TransportError
	if errors.As(err, &te) && te.StatusCode == http.StatusNotFound {
		return false, nil
	}
	return false, err
}

// List собирает элементы "value" со всех страниц.
func (c *Client) List(ctx context.Context, call Call) (json.RawMessage, error) {
	items := make([]json.RawMessage, 0)
	for {
		resp, err := c.Do(ctx, call)
		if err != nil {
			return nil, err
		}
		page := gjson.ParseBytes(resp.Body)
		for _, item := range page.Get("value").Array() {
			items = append(items, json.RawMessage(item.Raw))
		}
		next := page.Get("nextLink").String()
		if next == "" {
			break
		}
		call = Call{Method: http.MethodGet, Path: next}
	}
	return json.Marshal(items)
}

// ResolveAPIVersion находит последнюю стабильную версию API для типа ресурса.
func (c *Client) ResolveAPIVersion(ctx context.Context, namespace, resourceType string) (string, error) {
	key := strings.ToLower(namespace + "/" + resourceType)
	c.mu.Lock()
	v, ok := c.apiVersions[key]
	c.mu.Unlock()
	if ok {
		return v, nil
	}

	path := fmt.Sprintf("/subscriptions/%s/providers/%s", url.PathEscape(c.opts.Subscription), url.PathEscape(namespace))
	resp, err := c.Do(ctx, Call{Method: http.MethodGet, Path: path, APIVersion: ResourcesAPIVersion})
	if err != nil {
		return "", fmt.Errorf("resolve api version for %s/%s: %w", namespace, resourceType, err)
	}
	var found []string
	for _, rt := range gjson.GetBytes(resp.Body, "resourceTypes").Array() {
		if !strings.EqualFold(rt.Get("resourceType").String(), resourceType) {
			continue
		}
		for _, av := range rt.Get("apiVersions").Array() {
			found = append(found, av.String())
		}
	}
	if len(found) == 0 {
		return "", fmt.Errorf("resource type %s/%s not found: %w", namespace, resourceType, core.ErrInvalidArguments)
	}
	version := found[0]
	for _, candidate := range found {
		if !strings.Contains(strings.ToLower(candidate), "preview") {
			version = candidate
			break
		}
	}
	c.mu.Lock()
	c.apiVersions[key] = version
	c.mu.Unlock()
	return version, nil
}

// Expand подставляет {subscription} и значения флагов в шаблон пути.
func (c *Client) Expand(tmpl string, args core.Args) (string, error) {
	var b strings.Builder
	rest := tmpl
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			b.WriteString(rest)
			break
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			return "", fmt.Errorf("unterminated placeholder in %q", tmpl)
		}
		b.WriteString(rest[:open])
		name := rest[open+1 : open+end]
		var value string
		if name == "subscription" {
			value = c.opts.Subscription
		} else {
			value = args.String(name)
		}
		if value == "" {
			return "", fmt.Errorf("missing value for --%s: %w", name, core.ErrInvalidArguments)
		}
		b.WriteString(url.PathEscape(value))
		rest = rest[open+end+1:]
	}
	return b.String(), nil
}

func (c *Client) newRequest(call Call) (*core.Request, error) {
	target := call.Path
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		target = c.opts.Endpoint + "/" + strings.TrimLeft(target, "/")
	}
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("parse url %q: %w", target, err)
	}
	q := u.Query()
	for k, vals := range call.Query {
		for _, v := range vals {
			q.Add(k, v)
		}
	}
	if call.APIVersion != "" && q.Get("api-version") == "" {
		q.Set("api-version", call.APIVersion)
	}
	u.RawQuery = q.Encode()

	header := http.Header{}
	header.Set("Accept", "application/json")
	header.Set("x-ms-client-request-id", uuid.NewString())
	if c.opts.UserAgent != "" {
		header.Set("User-Agent", c.opts.UserAgent)
	}
	if c.opts.Token != "" {
		header.Set("Authorization", "Bearer "+c.opts.Token)
	}

	var body []byte
	switch v := call.Body.(type) {
	case nil:
	case json.RawMessage:
		body = v
	case []byte:
		body = v
	default:
		body, err = json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
	}
	if body != nil {
		header.Set("Content-Type", "application/json; charset=utf-8")
	}
	return &core.Request{Method: call.Method, URL: u.String(), Header: header, Body: body}, nil
}

func transportError(req *core.Request, resp *core.Response) *core.TransportError {
	te := &core.TransportError{StatusCode: resp.StatusCode, Method: req.Method, URL: req.URL}
	parsed := gjson.ParseBytes(resp.Body)
	errObj := parsed.Get("error")
	if !errObj.Exists() {
		errObj = parsed
	}
	te.Code = errObj.Get("code").String()
	te.Message = errObj.Get("message").String()
	if te.Message == "" && !gjson.ValidBytes(resp.Body) {
		te.Message = strings.TrimSpace(string(resp.Body))
	}
	return te
}

func bodyOf(resp *core.Response) json.RawMessage {
	if resp == nil || len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil
	}
	return json.RawMessage(resp.Body)
}
