package resource

import (
	"context"
	"net/http"

	"cloudctl/internal/arm"
	"cloudctl/internal/core"
)

const (
	featuresPath         = "/subscriptions/{subscription}/providers/Microsoft.Features/features"
	providerFeaturesPath = "/subscriptions/{subscription}/providers/Microsoft.Features/providers/{namespace}/features"
	featurePath          = providerFeaturesPath + "/{name}"
)

func featureBindings(f arm.ClientFactory) []core.Binding {
	namespace := core.Param{Name: "namespace", Required: true, Help: "the resource namespace, e.g. Microsoft.Network"}
	name := arm.NameParam("the feature name")
	return []core.Binding{
		{
			Group:     "feature",
			Verb:      "list",
			Short:     "List preview features.",
			Params:    []core.Param{arm.Optional(namespace)},
			Operation: listFeatures(f),
		},
		{
			Group:     "feature",
			Verb:      "show",
			Short:     "Get a preview feature.",
			Params:    []core.Param{namespace, name},
			Operation: f.Bind(arm.Endpoint{Method: http.MethodGet, Path: featurePath, APIVersion: FeaturesAPIVersion}),
		},
		{
			Group:     "feature",
			Verb:      "register",
			Short:     "Register a preview feature.",
			Params:    []core.Param{namespace, name},
			Operation: f.Bind(arm.Endpoint{Method: http.MethodPost, Path: featurePath + "/register", APIVersion: FeaturesAPIVersion}),
		},
	}
}

// listFeatures выбирает путь по наличию --namespace.
func listFeatures(f arm.ClientFactory) core.Operation {
	all := f.Bind(arm.Endpoint{Method: http.MethodGet, Path: featuresPath, APIVersion: FeaturesAPIVersion, List: true})
	scoped := f.Bind(arm.Endpoint{Method: http.MethodGet, Path: providerFeaturesPath, APIVersion: FeaturesAPIVersion, List: true})
	return func(ctx context.Context, args core.Args) (any, error) {
		if args.String("namespace") != "" {
			return scoped(ctx, args)
		}
		return all(ctx, args)
	}
}

// versioned берет версию API из --api-version.
func versioned(f arm.ClientFactory, ep arm.Endpoint) core.Operation {
	return func(ctx context.Context, args core.Args) (any, error) {
		ep := ep
		ep.APIVersion = args.String("api-version")
		if ep.APIVersion == "" {
			ep.APIVersion = OperationsVersion
		}
		return f.Bind(ep)(ctx, args)
	}
}
