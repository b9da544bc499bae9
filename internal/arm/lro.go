package arm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"cloudctl/internal/core"
)

// Терминальные состояния provisioningState.
const (
	StateSucceeded = "Succeeded"
	StateFailed    = "Failed"
	StateCanceled  = "Canceled"
)

// ProvisioningError сообщает о длительной операции, завершившейся неуспехом.
type ProvisioningError struct {
	State  string
	Target string
	Code   string
	Detail string
}

func (e *ProvisioningError) Error() string {
	msg := fmt.Sprintf("%s: provisioning state %s", e.Target, e.State)
	if e.Code != "" {
		msg += fmt.Sprintf(" (%s)", e.Code)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// IsTerminal сообщает, что состояние больше не изменится.
func IsTerminal(state string) bool {
	switch {
	case state == "":
		return true
	case strings.EqualFold(state, StateSucceeded),
		strings.EqualFold(state, StateFailed),
		strings.EqualFold(state, StateCanceled):
		return true
	default:
		return false
	}
}

// complete дожидается окончания длительной операции по ответу на исходный
// запрос: 202 с Location опрашивается до кода, отличного от 202, а PUT с
// нетерминальным provisioningState опрашивается через GET самого ресурса.
func (c *Client) complete(ctx context.Context, call Call, resp *core.Response) (json.RawMessage, error) {
	location := resp.Header.Get("Location")
	if location == "" {
		location = resp.Header.Get("Azure-AsyncOperation")
	}

	if resp.StatusCode == http.StatusAccepted && location != "" {
		final, err := c.pollLocation(ctx, call, location)
		if err != nil {
			return nil, err
		}
		switch call.Method {
		case http.MethodDelete:
			return nil, nil
		case http.MethodPut, http.MethodPatch:
			return c.Execute(ctx, Call{Method: http.MethodGet, Path: call.Path, APIVersion: call.APIVersion})
		default:
			return final, nil
		}
	}

	body := bodyOf(resp)
	if call.Method != http.MethodPut && call.Method != http.MethodPatch {
		return body, nil
	}
	p := &progress{log: c.log}
	state := p.observe(body)
	if IsTerminal(state) {
		return body, checkState(call.Path, body)
	}
	return c.pollResource(ctx, call, p)
}

// progress пишет в лог каждую смену provisioningState ресурса в виде
// "Accepted: имя (тип)".
type progress struct {
	log  *slog.Logger
	last string
}

func (p *progress) observe(body []byte) string {
	doc := gjson.ParseBytes(body)
	state := doc.Get("properties.provisioningState").String()
	if state == "" || state == p.last {
		return state
	}
	p.last = state
	name, kind := doc.Get("name").String(), doc.Get("type").String()
	p.log.Info(fmt.Sprintf("%s: %s (%s)", state, name, kind), "state", state, "name", name, "type", kind)
	return state
}

func (c *Client) pollLocation(ctx context.Context, call Call, location string) (json.RawMessage, error) {
	var final json.RawMessage
	err := core.Poll(ctx, call.Method+" "+call.Path, c.opts.PollInterval, c.opts.PollTimeout, func(ctx context.Context) (bool, error) {
		r, err := c.Do(ctx, Call{Method: http.MethodGet, Path: location})
		if err != nil {
			return false, err
		}
		if r.StatusCode == http.StatusAccepted {
			return false, nil
		}
		final = bodyOf(r)
		status := gjson.GetBytes(final, "status").String()
		if status != "" && !IsTerminal(status) {
			return false, nil
		}
		return true, checkAsyncStatus(call.Path, final)
	})
	return final, err
}

func (c *Client) pollResource(ctx context.Context, call Call, p *progress) (json.RawMessage, error) {
	var final json.RawMessage
	err := core.Poll(ctx, call.Method+" "+call.Path, c.opts.PollInterval, c.opts.PollTimeout, func(ctx context.Context) (bool, error) {
		body, err := c.Execute(ctx, Call{Method: http.MethodGet, Path: call.Path, APIVersion: call.APIVersion})
		if err != nil {
			return false, err
		}
		if !IsTerminal(p.observe(body)) {
			return false, nil
		}
		final = body
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return final, checkState(call.Path, final)
}

func checkState(target string, body []byte) error {
	props := gjson.GetBytes(body, "properties")
	state := props.Get("provisioningState").String()
	if state == "" || strings.EqualFold(state, StateSucceeded) {
		return nil
	}
	return &ProvisioningError{
		State:  state,
		Target: target,
		Code:   props.Get("error.code").String(),
		Detail: props.Get("error.message").String(),
	}
}

func checkAsyncStatus(target string, body []byte) error {
	parsed := gjson.ParseBytes(body)
	status := parsed.Get("status").String()
	if status == "" || strings.EqualFold(status, StateSucceeded) {
		return nil
	}
	return &ProvisioningError{
		State:  status,
		Target: target,
		Code:   parsed.Get("error.code").String(),
		Detail: parsed.Get("error.message").String(),
	}
}
