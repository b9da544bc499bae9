package cdn

import (
	"context"
	"net/http"

	"github.com/tidwall/gjson"

	"cloudctl/internal/arm"
	"cloudctl/internal/core"
)

// DefaultSKU используется, если --sku не задан.
const DefaultSKU = "Standard_Akamai"

const profileByName = groupPath + "/profiles/{name}"

func profileBindings(f arm.ClientFactory) []core.Binding {
	rg := arm.ResourceGroupParam
	name := arm.NameParam("name of the CDN profile")
	return []core.Binding{
		{
			Group:     "cdn profile",
			Verb:      "show",
			Short:     "Get a CDN profile.",
			Params:    []core.Param{rg, name},
			Operation: f.Bind(arm.Endpoint{Method: http.MethodGet, Path: profileByName, APIVersion: APIVersion}),
		},
		{
			Group:     "cdn profile",
			Verb:      "usage",
			Short:     "Check the quota and usage of endpoints under a CDN profile.",
			Params:    []core.Param{rg, name},
			Operation: f.Bind(arm.Endpoint{Method: http.MethodPost, Path: profileByName + "/checkResourceUsage", APIVersion: APIVersion, List: true}),
		},
		{
			Group:  "cdn profile",
			Verb:   "delete",
			Short:  "Delete a CDN profile.",
			Params: []core.Param{rg, name, arm.NoWaitParam},
			Operation: f.Bind(arm.Endpoint{
				Method:      http.MethodDelete,
				Path:        profileByName,
				APIVersion:  APIVersion,
				LongRunning: true,
				Empty:       true,
			}),
		},
		{
			Group:     "cdn profile",
			Verb:      "list",
			Short:     "List CDN profiles of the subscription or of a resource group.",
			Params:    []core.Param{arm.Optional(rg)},
			Operation: listProfiles(f),
		},
		{
			Group: "cdn profile",
			Verb:  "create",
			Short: "Create a CDN profile.",
			Params: []core.Param{rg, name, arm.LocationParam, arm.TagsParam, arm.NoWaitParam,
				{Name: "sku", Default: DefaultSKU, Help: "the pricing tier, e.g. Standard_Akamai, Standard_Verizon, Premium_Verizon"},
			},
			Operation: createProfile(f),
		},
	}
}

func listProfiles(f arm.ClientFactory) core.Operation {
	all := f.Bind(arm.Endpoint{Method: http.MethodGet, Path: subscriptionPath + "/profiles", APIVersion: APIVersion, List: true})
	scoped := f.Bind(arm.Endpoint{Method: http.MethodGet, Path: groupPath + "/profiles", APIVersion: APIVersion, List: true})
	return func(ctx context.Context, args core.Args) (any, error) {
		if args.String(arm.ResourceGroupParam.Name) != "" {
			return scoped(ctx, args)
		}
		return all(ctx, args)
	}
}

// createProfile берет расположение группы ресурсов, если -l не задан.
func createProfile(f arm.ClientFactory) core.Operation {
	return func(ctx context.Context, args core.Args) (any, error) {
		location, err := locationOrGroup(ctx, f, args)
		if err != nil {
			return nil, err
		}
		return f.Bind(arm.Endpoint{
			Method:      http.MethodPut,
			Path:        profileByName,
			APIVersion:  APIVersion,
			LongRunning: true,
			Body: func(args core.Args) (any, error) {
				body := arm.TagsBody(args)
				body["location"] = location
				body["sku"] = map[string]string{"name": args.String("sku")}
				return body, nil
			},
		})(ctx, args)
	}
}

func locationOrGroup(ctx context.Context, f arm.ClientFactory, args core.Args) (string, error) {
	if loc := args.String(arm.LocationParam.Name); loc != "" {
		return loc, nil
	}
	return locationOf(ctx, f, "/subscriptions/{subscription}/resourcegroups/{resource-group}", arm.ResourcesAPIVersion, args)
}

// locationOf читает поле location ресурса по шаблону пути.
func locationOf(ctx context.Context, f arm.ClientFactory, pathTmpl, apiVersion string, args core.Args) (string, error) {
	c, err := f(ctx)
	if err != nil {
		return "", err
	}
	path, err := c.Expand(pathTmpl, args)
	if err != nil {
		return "", err
	}
	body, err := c.Execute(ctx, arm.Call{Method: http.MethodGet, Path: path, APIVersion: apiVersion})
	if err != nil {
		return "", err
	}
	return gjson.GetBytes(body, "location").String(), nil
}
