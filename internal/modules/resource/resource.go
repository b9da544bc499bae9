package resource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"cloudctl/internal/arm"
	"cloudctl/internal/core"
)

// idParams задают ресурс через --ids или по частям.
func idParams() []core.Param {
	return []core.Param{
		{Name: "ids", Kind: core.KindList, Help: "one or more resource IDs; other id arguments are ignored"},
		{Name: "id", Help: "resource ID"},
		arm.Optional(arm.ResourceGroupParam),
		{Name: "name", Short: "n", Help: "the resource name"},
		{Name: "namespace", Help: "provider namespace, e.g. Microsoft.Provider"},
		{Name: "parent", Help: "the parent path, e.g. resA/myA/resB/myB"},
		{Name: "resource-type", Help: "the resource type, e.g. Microsoft.Network/virtualNetworks"},
		{Name: "api-version", Help: "the api version of the resource; latest stable when omitted"},
	}
}

func resourceBindings(f arm.ClientFactory) []core.Binding {
	return []core.Binding{
		{
			Group: "resource",
			Verb:  "list",
			Short: "List resources.",
			Params: []core.Param{
				arm.Optional(arm.ResourceGroupParam),
				arm.LocationParam,
				{Name: "resource-type", Help: "filter by resource type"},
				{Name: "name", Short: "n", Help: "filter by resource name"},
				{Name: "tag", Help: "a single tag in key[=value] format"},
			},
			Operation: listResources(f),
			Transform: arm.WithResourceGroup,
		},
		{
			Group:     "resource",
			Verb:      "show",
			Short:     "Get the details of a resource.",
			Params:    idParams(),
			Operation: forEachResource(f, showResource),
			Transform: arm.WithResourceGroup,
		},
		{
			Group:     "resource",
			Verb:      "delete",
			Short:     "Delete a resource.",
			Params:    append(idParams(), arm.NoWaitParam),
			Operation: forEachResource(f, deleteResource),
		},
		{
			Group:     "resource",
			Verb:      "tag",
			Short:     "Tag a resource.",
			Params:    append(idParams(), arm.TagsParam),
			Operation: forEachResource(f, tagResource),
			Transform: arm.WithResourceGroup,
		},
		{
			Group:     "resource",
			Verb:      "update",
			Short:     "Update a resource.",
			Params:    append(idParams(), arm.UpdateParams()...),
			Operation: forEachResource(f, updateResource),
			Transform: arm.WithResourceGroup,
		},
		{
			Group: "resource",
			Verb:  "create",
			Short: "Create a resource.",
			Params: append(idParams(),
				core.Param{Name: "properties", Short: "p", Required: true, Help: "a JSON-formatted string containing resource properties"},
				core.Param{Name: "is-full-object", Kind: core.KindBool, Help: "the properties object includes other options such as location, tags, sku"},
				arm.LocationParam,
			),
			Operation: forEachResource(f, createResource),
			Transform: arm.WithResourceGroup,
		},
		{
			Group: "resource",
			Verb:  "invoke-action",
			Short: "Invoke an action on the resource.",
			Params: append(idParams(),
				core.Param{Name: "action", Required: true, Help: "the action that will be invoked on the resource, e.g. powerOff"},
				core.Param{Name: "request-body", Help: "JSON encoded parameter arguments for the action"},
			),
			Operation: forEachResource(f, invokeAction),
		},
		{
			Group: "resource",
			Verb:  "move",
			Short: "Move resources from one resource group to another.",
			Params: []core.Param{
				{Name: "ids", Kind: core.KindList, Required: true, Help: "space-separated resource ids to be moved"},
				{Name: "destination-group", Required: true, Help: "the destination resource group name"},
				{Name: "destination-subscription-id", Help: "the destination subscription identifier"},
			},
			Operation: moveResources(f),
		},
	}
}

type resourceFunc func(ctx context.Context, c *arm.Client, id arm.ResourceID, apiVersion string, args core.Args) (json.RawMessage, error)

// forEachResource применяет fn к каждому ресурсу из --ids или к единственному,
// заданному по частям. Один ресурс дает объект, несколько дают список.
func forEachResource(f arm.ClientFactory, fn resourceFunc) core.Operation {
	return func(ctx context.Context, args core.Args) (any, error) {
		c, err := f(ctx)
		if err != nil {
			return nil, err
		}
		ids, err := targetIDs(c, args)
		if err != nil {
			return nil, err
		}
		outputs := make([]json.RawMessage, 0, len(ids))
		for _, id := range ids {
			version, err := apiVersionFor(ctx, c, id, args)
			if err != nil {
				return nil, err
			}
			out, err := fn(ctx, c, id, version, args)
			if err != nil {
				return nil, err
			}
			if len(out) > 0 {
				outputs = append(outputs, out)
			}
		}
		switch {
		case len(outputs) == 0:
			return nil, nil
		case len(ids) == 1:
			return outputs[0], nil
		default:
			return json.Marshal(outputs)
		}
	}
}

func targetIDs(c *arm.Client, args core.Args) ([]arm.ResourceID, error) {
	raw := append([]string(nil), args.Strings("ids")...)
	if id := args.String("id"); id != "" {
		raw = append(raw, id)
	}
	if len(raw) > 0 {
		ids := make([]arm.ResourceID, 0, len(raw))
		for _, s := range raw {
			id, err := arm.ParseResourceID(s)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
		return ids, nil
	}
	if args.String("resource-group") == "" {
		return nil, fmt.Errorf("--resource-group is required without --ids: %w", core.ErrInvalidArguments)
	}
	id, err := arm.ResourceIDFromParts(c.Subscription(), args.String("resource-group"), args.String("namespace"),
		args.String("parent"), args.String("resource-type"), args.String("name"))
	if err != nil {
		return nil, err
	}
	return []arm.ResourceID{id}, nil
}

func apiVersionFor(ctx context.Context, c *arm.Client, id arm.ResourceID, args core.Args) (string, error) {
	if v := args.String("api-version"); v != "" {
		return v, nil
	}
	if id.Namespace == "" {
		return APIVersion, nil
	}
	return c.ResolveAPIVersion(ctx, id.Namespace, id.FullType())
}

func showResource(ctx context.Context, c *arm.Client, id arm.ResourceID, version string, _ core.Args) (json.RawMessage, error) {
	return c.Execute(ctx, arm.Call{Method: http.MethodGet, Path: id.String(), APIVersion: version})
}

func deleteResource(ctx context.Context, c *arm.Client, id arm.ResourceID, version string, args core.Args) (json.RawMessage, error) {
	_, err := c.Execute(ctx, arm.Call{
		Method:      http.MethodDelete,
		Path:        id.String(),
		APIVersion:  version,
		LongRunning: true,
		NoWait:      args.Bool(arm.NoWaitParam.Name),
	})
	return nil, err
}

func tagResource(ctx context.Context, c *arm.Client, id arm.ResourceID, version string, args core.Args) (json.RawMessage, error) {
	tags, err := json.Marshal(arm.ParseTags(args.Strings(arm.TagsParam.Name)))
	if err != nil {
		return nil, err
	}
	current, err := c.Execute(ctx, arm.Call{Method: http.MethodGet, Path: id.String(), APIVersion: version})
	if err != nil {
		return nil, err
	}
	updated, err := arm.ApplyUpdates(current, []string{"tags=" + string(tags)}, nil, nil)
	if err != nil {
		return nil, err
	}
	return c.Execute(ctx, arm.Call{
		Method:      http.MethodPut,
		Path:        id.String(),
		APIVersion:  version,
		Body:        json.RawMessage(updated),
		LongRunning: true,
	})
}

func updateResource(ctx context.Context, c *arm.Client, id arm.ResourceID, version string, args core.Args) (json.RawMessage, error) {
	return c.UpdateResource(ctx, id.String(), version, args)
}

func createResource(ctx context.Context, c *arm.Client, id arm.ResourceID, version string, args core.Args) (json.RawMessage, error) {
	props := args.String("properties")
	if !gjson.Valid(props) {
		return nil, fmt.Errorf("--properties must be valid JSON: %w", core.ErrInvalidArguments)
	}
	var body any = json.RawMessage(props)
	if !args.Bool("is-full-object") {
		obj := map[string]any{"properties": json.RawMessage(props)}
		if loc := args.String("location"); loc != "" {
			obj["location"] = loc
		}
		body = obj
	}
	return c.Execute(ctx, arm.Call{
		Method:      http.MethodPut,
		Path:        id.String(),
		APIVersion:  version,
		Body:        body,
		LongRunning: true,
	})
}

func invokeAction(ctx context.Context, c *arm.Client, id arm.ResourceID, version string, args core.Args) (json.RawMessage, error) {
	call := arm.Call{
		Method:      http.MethodPost,
		Path:        id.String() + "/" + url.PathEscape(args.String("action")),
		APIVersion:  version,
		LongRunning: true,
	}
	if body := args.String("request-body"); body != "" {
		if !gjson.Valid(body) {
			return nil, fmt.Errorf("--request-body must be valid JSON: %w", core.ErrInvalidArguments)
		}
		call.Body = json.RawMessage(body)
	}
	return c.Execute(ctx, call)
}

func listResources(f arm.ClientFactory) core.Operation {
	return func(ctx context.Context, args core.Args) (any, error) {
		c, err := f(ctx)
		if err != nil {
			return nil, err
		}
		path := "/subscriptions/{subscription}/resources"
		if args.String("resource-group") != "" {
			path = "/subscriptions/{subscription}/resourceGroups/{resource-group}/resources"
		}
		expanded, err := c.Expand(path, args)
		if err != nil {
			return nil, err
		}
		query := arm.ODataFilter(
			arm.Eq("location", args.String("location")),
			arm.Eq("resourceType", args.String("resource-type")),
			arm.Eq("name", args.String("name")),
			arm.TagFilter(args.String("tag")),
		)
		return c.List(ctx, arm.Call{Method: http.MethodGet, Path: expanded, APIVersion: APIVersion, Query: query})
	}
}

func moveResources(f arm.ClientFactory) core.Operation {
	return func(ctx context.Context, args core.Args) (any, error) {
		c, err := f(ctx)
		if err != nil {
			return nil, err
		}
		var source arm.ResourceID
		ids := args.Strings("ids")
		for i, raw := range ids {
			id, err := arm.ParseResourceID(raw)
			if err != nil {
				return nil, err
			}
			if i == 0 {
				source = id
				continue
			}
			if id.Subscription != source.Subscription || !strings.EqualFold(id.ResourceGroup, source.ResourceGroup) {
				return nil, fmt.Errorf("all resources must be in the same resource group: %w", core.ErrInvalidArguments)
			}
		}
		if len(ids) == 0 || source.ResourceGroup == "" {
			return nil, fmt.Errorf("--ids must reference resources in a resource group: %w", core.ErrInvalidArguments)
		}
		destSub := args.String("destination-subscription-id")
		if destSub == "" {
			destSub = source.Subscription
		}
		target := arm.ResourceID{Subscription: destSub, ResourceGroup: args.String("destination-group")}
		path := arm.ResourceID{Subscription: source.Subscription, ResourceGroup: source.ResourceGroup}.String() + "/moveResources"
		_, err = c.Execute(ctx, arm.Call{
			Method:      http.MethodPost,
			Path:        path,
			APIVersion:  APIVersion,
			Body:        map[string]any{"resources": ids, "targetResourceGroup": target.String()},
			LongRunning: true,
		})
		return nil, err
	}
}
