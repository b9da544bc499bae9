package cdn

import (
	"net/http"

	"cloudctl/internal/arm"
	"cloudctl/internal/core"
)

const (
	customDomainPath = endpointPath + "/customDomains/{name}"
	originPath       = endpointPath + "/origins/{name}"
)

var endpointNameParam = core.Param{Name: "endpoint-name", Required: true, Help: "name of the CDN endpoint"}

func customDomainBindings(f arm.ClientFactory) []core.Binding {
	ids := []core.Param{arm.ResourceGroupParam, profileNameParam, endpointNameParam, arm.NameParam("name of the custom domain")}
	return []core.Binding{
		{
			Group:     "cdn custom-domain",
			Verb:      "show",
			Short:     "Get a custom domain of a CDN endpoint.",
			Params:    ids,
			Operation: f.Bind(arm.Endpoint{Method: http.MethodGet, Path: customDomainPath, APIVersion: APIVersion}),
		},
		{
			Group:  "cdn custom-domain",
			Verb:   "delete",
			Short:  "Delete a custom domain of a CDN endpoint.",
			Params: append(append([]core.Param(nil), ids...), arm.NoWaitParam),
			Operation: f.Bind(arm.Endpoint{
				Method:      http.MethodDelete,
				Path:        customDomainPath,
				APIVersion:  APIVersion,
				LongRunning: true,
				Empty:       true,
			}),
		},
		{
			Group:     "cdn custom-domain",
			Verb:      "list",
			Short:     "List the custom domains of a CDN endpoint.",
			Params:    []core.Param{arm.ResourceGroupParam, profileNameParam, endpointNameParam},
			Operation: f.Bind(arm.Endpoint{Method: http.MethodGet, Path: endpointPath + "/customDomains", APIVersion: APIVersion, List: true}),
		},
		{
			Group:  "cdn custom-domain",
			Verb:   "create",
			Short:  "Create a custom domain for a CDN endpoint.",
			Params: append(append([]core.Param(nil), ids...), core.Param{Name: "hostname", Required: true, Help: "the host name of the custom domain"}),
			Operation: f.Bind(arm.Endpoint{
				Method:      http.MethodPut,
				Path:        customDomainPath,
				APIVersion:  APIVersion,
				LongRunning: true,
				Body: func(args core.Args) (any, error) {
					return map[string]any{"properties": map[string]string{"hostName": args.String("hostname")}}, nil
				},
			}),
		},
	}
}

func originBindings(f arm.ClientFactory) []core.Binding {
	return []core.Binding{
		{
			Group:     "cdn origin",
			Verb:      "show",
			Short:     "Get an origin of a CDN endpoint.",
			Params:    []core.Param{arm.ResourceGroupParam, profileNameParam, endpointNameParam, arm.NameParam("name of the origin")},
			Operation: f.Bind(arm.Endpoint{Method: http.MethodGet, Path: originPath, APIVersion: APIVersion}),
		},
		{
			Group:     "cdn origin",
			Verb:      "list",
			Short:     "List the origins of a CDN endpoint.",
			Params:    []core.Param{arm.ResourceGroupParam, profileNameParam, endpointNameParam},
			Operation: f.Bind(arm.Endpoint{Method: http.MethodGet, Path: endpointPath + "/origins", APIVersion: APIVersion, List: true}),
		},
	}
}
