package resource

import (
	"net/http"
	"net/url"

	"cloudctl/internal/arm"
	"cloudctl/internal/core"
)

const (
	providersPath         = "/subscriptions/{subscription}/providers"
	providerPath          = providersPath + "/{namespace}"
	providerOperationsDir = "/providers/Microsoft.Authorization/providerOperations"
)

func providerBindings(f arm.ClientFactory) []core.Binding {
	namespace := core.Param{Name: "namespace", Short: "n", Required: true, Help: "the resource namespace, e.g. Microsoft.Cdn"}
	apiVersion := core.Param{Name: "api-version", Default: OperationsVersion, Help: "the api version of the provider operations API"}
	expand := func(core.Args) (url.Values, error) {
		return url.Values{"$expand": {"resourceTypes"}}, nil
	}
	return []core.Binding{
		{
			Group:     "provider",
			Verb:      "list",
			Short:     "List resource providers.",
			Operation: f.Bind(arm.Endpoint{Method: http.MethodGet, Path: providersPath, APIVersion: APIVersion, List: true}),
		},
		{
			Group:     "provider",
			Verb:      "show",
			Short:     "Get a resource provider.",
			Params:    []core.Param{namespace},
			Operation: f.Bind(arm.Endpoint{Method: http.MethodGet, Path: providerPath, APIVersion: APIVersion}),
		},
		{
			Group:     "provider",
			Verb:      "register",
			Short:     "Register a provider.",
			Params:    []core.Param{namespace},
			Operation: f.Bind(arm.Endpoint{Method: http.MethodPost, Path: providerPath + "/register", APIVersion: APIVersion}),
		},
		{
			Group:     "provider",
			Verb:      "unregister",
			Short:     "Unregister a provider.",
			Params:    []core.Param{namespace},
			Operation: f.Bind(arm.Endpoint{Method: http.MethodPost, Path: providerPath + "/unregister", APIVersion: APIVersion}),
		},
		{
			Group:     "provider operation",
			Verb:      "show",
			Short:     "Get the operations of a provider.",
			Params:    []core.Param{namespace, apiVersion},
			Operation: versioned(f, arm.Endpoint{Method: http.MethodGet, Path: providerOperationsDir + "/{namespace}", Query: expand}),
		},
		{
			Group:     "provider operation",
			Verb:      "list",
			Short:     "Get the operations of all providers.",
			Params:    []core.Param{apiVersion},
			Operation: versioned(f, arm.Endpoint{Method: http.MethodGet, Path: providerOperationsDir, Query: expand, List: true}),
		},
	}
}
