package resource

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"cloudctl/internal/arm"
	"cloudctl/internal/core"
)

const groupPath = "/subscriptions/{subscription}/resourcegroups/{name}"

func groupBindings(f arm.ClientFactory) []core.Binding {
	name := arm.NameParam("name of the resource group")
	return []core.Binding{
		{
			Group:  "group",
			Verb:   "create",
			Short:  "Create a new resource group.",
			Params: []core.Param{name, withRequired(arm.LocationParam), arm.TagsParam},
			Operation: f.Bind(arm.Endpoint{
				Method:      http.MethodPut,
				Path:        groupPath,
				APIVersion:  APIVersion,
				LongRunning: true,
				Body: func(args core.Args) (any, error) {
					body := arm.TagsBody(args)
					body["location"] = args.String("location")
					return body, nil
				},
			}),
		},
		{
			Group:     "group",
			Verb:      "show",
			Short:     "Get a resource group.",
			Params:    []core.Param{name},
			Operation: f.Bind(arm.Endpoint{Method: http.MethodGet, Path: groupPath, APIVersion: APIVersion}),
		},
		{
			Group:  "group",
			Verb:   "list",
			Short:  "List resource groups.",
			Params: []core.Param{{Name: "tag", Help: "a single tag in key[=value] format"}},
			Operation: f.Bind(arm.Endpoint{
				Method:     http.MethodGet,
				Path:       "/subscriptions/{subscription}/resourcegroups",
				APIVersion: APIVersion,
				List:       true,
				Query: func(args core.Args) (url.Values, error) {
					return arm.ODataFilter(arm.TagFilter(args.String("tag"))), nil
				},
			}),
		},
		{
			Group:   "group",
			Verb:    "delete",
			Short:   "Delete a resource group.",
			Params:  []core.Param{name, arm.NoWaitParam},
			Confirm: true,
			Operation: f.Bind(arm.Endpoint{
				Method:      http.MethodDelete,
				Path:        groupPath,
				APIVersion:  APIVersion,
				LongRunning: true,
				Empty:       true,
			}),
		},
		{
			Group:     "group",
			Verb:      "exists",
			Short:     "Check if a resource group exists.",
			Params:    []core.Param{name},
			Operation: f.Exists(groupPath, APIVersion),
		},
		{
			Group:     "group",
			Verb:      "wait",
			Short:     "Place the CLI in a waiting state until a condition of the resource group is met.",
			Params:    append([]core.Param{name}, arm.WaitParams()...),
			Operation: f.Wait(groupPath, APIVersion),
		},
		{
			Group:     "group",
			Verb:      "update",
			Short:     "Update a resource group.",
			Params:    append([]core.Param{name, arm.TagsParam}, arm.UpdateParams()...),
			Operation: groupUpdate(f),
		},
	}
}

// groupUpdate дополняет универсальное обновление заменой тегов через --tags.
func groupUpdate(f arm.ClientFactory) core.Operation {
	update := f.Update(groupPath, APIVersion)
	return func(ctx context.Context, args core.Args) (any, error) {
		if args.Has(arm.TagsParam.Name) {
			tags, err := json.Marshal(arm.ParseTags(args.Strings(arm.TagsParam.Name)))
			if err != nil {
				return nil, err
			}
			updated := make(core.Args, len(args))
			for k, v := range args {
				updated[k] = v
			}
			updated.Set("set", append([]string{"tags=" + string(tags)}, args.Strings("set")...)...)
			args = updated
		}
		return update(ctx, args)
	}
}

func withRequired(p core.Param) core.Param {
	p.Required = true
	return p
}
