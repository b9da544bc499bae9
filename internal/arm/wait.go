package arm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"cloudctl/internal/core"
)

// WaitParams возвращает флаги команд wait.
func WaitParams() []core.Param {
	return []core.Param{
		{Name: "created", Kind: core.KindBool, Help: "wait until created with provisioningState Succeeded"},
		{Name: "updated", Kind: core.KindBool, Help: "wait until updated with provisioningState Succeeded"},
		{Name: "deleted", Kind: core.KindBool, Help: "wait until deleted"},
		{Name: "exists", Kind: core.KindBool, Help: "wait until the resource exists"},
		{Name: "custom", Help: "wait until a gjson path is truthy or path==value holds, e.g. properties.provisioningState==Running"},
		{Name: "interval", Default: "30", Help: "polling interval in seconds"},
		{Name: "timeout", Default: "3600", Help: "maximum wait in seconds"},
	}
}

// Condition вычисляется по телу ресурса.
// found=false означает 404.
type Condition func(found bool, body []byte) (bool, error)

// WaitCondition строит условие из флагов wait.
func WaitCondition(args core.Args) (Condition, error) {
	var conds []Condition
	if args.Bool("created") || args.Bool("updated") {
		conds = append(conds, func(found bool, body []byte) (bool, error) {
			if !found {
				return false, nil
			}
			state := gjson.GetBytes(body, "properties.provisioningState").String()
			if strings.EqualFold(state, StateFailed) || strings.EqualFold(state, StateCanceled) {
				return false, checkState("wait", body)
			}
			return strings.EqualFold(state, StateSucceeded), nil
		})
	}
	if args.Bool("deleted") {
		conds = append(conds, func(found bool, _ []byte) (bool, error) { return !found, nil })
	}
	if args.Bool("exists") {
		conds = append(conds, func(found bool, _ []byte) (bool, error) { return found, nil })
	}
	if expr := args.String("custom"); expr != "" {
		conds = append(conds, func(found bool, body []byte) (bool, error) {
			return found && customMatch(body, expr), nil
		})
	}
	switch len(conds) {
	case 0:
		return nil, fmt.Errorf("one of --created, --updated, --deleted, --exists or --custom is required: %w", core.ErrInvalidArguments)
	case 1:
		return conds[0], nil
	default:
		return nil, fmt.Errorf("only one wait condition may be given: %w", core.ErrInvalidArguments)
	}
}

// Wait возвращает операцию, опрашивающую ресурс до выполнения условия.
// Вывод пустой.
func (f ClientFactory) Wait(pathTmpl, apiVersion string) core.Operation {
	return func(ctx context.Context, args core.Args) (any, error) {
		c, err := f(ctx)
		if err != nil {
			return nil, err
		}
		path, err := c.Expand(pathTmpl, args)
		if err != nil {
			return nil, err
		}
		cond, err := WaitCondition(args)
		if err != nil {
			return nil, err
		}
		interval, err := seconds(args, "interval", c.PollInterval())
		if err != nil {
			return nil, err
		}
		// при воспроизведении клиент опрашивает без пауз
		if c.PollInterval() == 0 {
			interval = 0
		}
		timeout, err := seconds(args, "timeout", time.Hour)
		if err != nil {
			return nil, err
		}
		return nil, c.WaitFor(ctx, path, apiVersion, interval, timeout, cond)
	}
}

// WaitFor опрашивает GET по пути, пока cond не вернет true.
func (c *Client) WaitFor(ctx context.Context, path, apiVersion string, interval, timeout time.Duration, cond Condition) error {
	return core.Poll(ctx, "wait "+path, interval, timeout, func(ctx context.Context) (bool, error) {
		resp, err := c.Do(ctx, Call{Method: http.MethodGet, Path: path, APIVersion: apiVersion})
		var te *core.TransportError
		switch {
		case err == nil:
			return cond(true, resp.Body)
		case errors.As(err, &te) && te.StatusCode == http.StatusNotFound:
			return cond(false, nil)
		default:
			return false, err
		}
	})
}

// seconds читает флаг в секундах; без значения возвращает fallback.
func seconds(args core.Args, name string, fallback time.Duration) (time.Duration, error) {
	raw := args.String(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("--%s: expected non-negative integer, got %q: %w", name, raw, core.ErrInvalidArguments)
	}
	return time.Duration(n) * time.Second, nil
}

func customMatch(body []byte, expr string) bool {
	path, want, cmp := strings.Cut(expr, "==")
	got := gjson.GetBytes(body, strings.TrimSpace(path))
	if !cmp {
		return truthy(got)
	}
	want = strings.Trim(strings.TrimSpace(want), `"'`)
	return got.Exists() && got.String() == want
}

func truthy(r gjson.Result) bool {
	switch r.Type {
	case gjson.True:
		return true
	case gjson.Number:
		return r.Num != 0
	case gjson.String:
		return r.Str != ""
	case gjson.JSON:
		return r.Raw != "[]" && r.Raw != "{}"
	default:
		return false
	}
}
