package arm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"cloudctl/internal/core"
)

// NoWaitParam отключает ожидание длительной операции.
var NoWaitParam = core.Param{Name: "no-wait", Kind: core.KindBool, Help: "do not wait for the long-running operation to finish"}

// Endpoint декларативно описывает REST-вызов, стоящий за командой.
type Endpoint struct {
	Method string
	// Path содержит шаблон пути с {subscription} и {имя-флага}.
	Path       string
	APIVersion string
	Query      func(args core.Args) (url.Values, error)
	Body       func(args core.Args) (any, error)
	// LongRunning включает ожидание 202/provisioningState.
	LongRunning bool
	// List собирает страницы "value"/"nextLink".
	List bool
	// Empty отбрасывает тело ответа.
	Empty bool
}

// Bind превращает описание в операцию реестра.
func (f ClientFactory) Bind(ep Endpoint) core.Operation {
	return func(ctx context.Context, args core.Args) (any, error) {
		c, err := f(ctx)
		if err != nil {
			return nil, err
		}
		path, err := c.Expand(ep.Path, args)
		if err != nil {
			return nil, err
		}
		call := Call{
			Method:      ep.Method,
			Path:        path,
			APIVersion:  ep.APIVersion,
			LongRunning: ep.LongRunning,
			NoWait:      ep.LongRunning && args.Bool(NoWaitParam.Name),
		}
		if call.Method == "" {
			call.Method = http.MethodGet
		}
		if ep.Query != nil {
			if call.Query, err = ep.Query(args); err != nil {
				return nil, err
			}
		}
		if ep.Body != nil {
			if call.Body, err = ep.Body(args); err != nil {
				return nil, err
			}
		}

		var out json.RawMessage
		if ep.List {
			out, err = c.List(ctx, call)
		} else {
			out, err = c.Execute(ctx, call)
		}
		if err != nil {
			return nil, err
		}
		if ep.Empty || len(out) == 0 {
			return nil, nil
		}
		return out, nil
	}
}

// Exists возвращает операцию HEAD, выдающую true или false.
func (f ClientFactory) Exists(pathTmpl, apiVersion string) core.Operation {
	return func(ctx context.Context, args core.Args) (any, error) {
		c, err := f(ctx)
		if err != nil {
			return nil, err
		}
		path, err := c.Expand(pathTmpl, args)
		if err != nil {
			return nil, err
		}
		return c.Exists(ctx, path, apiVersion)
	}
}

// Update возвращает операцию GET → --set/--add/--remove → PUT.
func (f ClientFactory) Update(pathTmpl, apiVersion string) core.Operation {
	return func(ctx context.Context, args core.Args) (any, error) {
		c, err := f(ctx)
		if err != nil {
			return nil, err
		}
		path, err := c.Expand(pathTmpl, args)
		if err != nil {
			return nil, err
		}
		out, err := c.UpdateResource(ctx, path, apiVersion, args)
		if err != nil || len(out) == 0 {
			return nil, err
		}
		return out, nil
	}
}

// UpdateResource выполняет универсальное обновление ресурса по пути.
func (c *Client) UpdateResource(ctx context.Context, path, apiVersion string, args core.Args) (json.RawMessage, error) {
	current, err := c.Execute(ctx, Call{Method: http.MethodGet, Path: path, APIVersion: apiVersion})
	if err != nil {
		return nil, err
	}
	if len(current) == 0 {
		return nil, fmt.Errorf("%s: empty resource body", path)
	}
	updated, err := ApplyUpdates(current, args.Strings("set"), args.Strings("add"), args.Strings("remove"))
	if err != nil {
		return nil, err
	}
	return c.Execute(ctx, Call{
		Method:      http.MethodPut,
		Path:        path,
		APIVersion:  apiVersion,
		Body:        json.RawMessage(updated),
		LongRunning: true,
		NoWait:      args.Bool(NoWaitParam.Name),
	})
}
