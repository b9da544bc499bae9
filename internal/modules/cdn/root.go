package cdn

import (
	"net/http"

	"cloudctl/internal/arm"
	"cloudctl/internal/core"
)

// endpointResourceType проверяется командой name-exists.
const endpointResourceType = "Microsoft.Cdn/Profiles/Endpoints"

func rootBindings(f arm.ClientFactory) []core.Binding {
	return []core.Binding{
		{
			Group:  "cdn",
			Verb:   "name-exists",
			Short:  "Check the availability of a resource name for a CDN endpoint.",
			Params: []core.Param{{Name: "name", Required: true, Help: "the endpoint name to check"}},
			Operation: f.Bind(arm.Endpoint{
				Method:     http.MethodPost,
				Path:       providerPath + "/checkNameAvailability",
				APIVersion: APIVersion,
				Body: func(args core.Args) (any, error) {
					return map[string]string{"name": args.String("name"), "type": endpointResourceType}, nil
				},
			}),
		},
		{
			Group: "cdn",
			Verb:  "usage",
			Short: "Check the quota and actual usage of CDN profiles under the subscription.",
			Operation: f.Bind(arm.Endpoint{
				Method:     http.MethodPost,
				Path:       subscriptionPath + "/checkResourceUsage",
				APIVersion: APIVersion,
				List:       true,
			}),
		},
	}
}

func edgeNodeBindings(f arm.ClientFactory) []core.Binding {
	return []core.Binding{
		{
			Group:     "cdn edge-node",
			Verb:      "list",
			Short:     "List the edge nodes of the CDN service.",
			Operation: f.Bind(arm.Endpoint{Method: http.MethodGet, Path: providerPath + "/edgenodes", APIVersion: APIVersion, List: true}),
		},
	}
}
