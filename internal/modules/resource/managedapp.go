package resource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"cloudctl/internal/arm"
	"cloudctl/internal/core"
)

const (
	appDefinitionsPath = "/subscriptions/{subscription}/resourceGroups/{resource-group}/providers/Microsoft.Solutions/applicationDefinitions"
	appDefinitionPath  = appDefinitionsPath + "/{name}"
	applicationsPath   = "/subscriptions/{subscription}/resourceGroups/{resource-group}/providers/Microsoft.Solutions/applications"
	applicationPath    = applicationsPath + "/{name}"
)

// byIDParams задают объект через --ids или через группу и имя.
func byIDParams(help string) []core.Param {
	return []core.Param{
		{Name: "ids", Kind: core.KindList, Help: "one or more resource IDs; other id arguments are ignored"},
		arm.Optional(arm.ResourceGroupParam),
		arm.Optional(arm.NameParam(help)),
	}
}

func managedAppBindings(f arm.ClientFactory) []core.Binding {
	rg := arm.ResourceGroupParam
	return []core.Binding{
		{
			Group: "managedapp definition",
			Verb:  "create",
			Short: "Create a managed application definition.",
			Params: []core.Param{
				rg,
				arm.NameParam("name of the managed application definition"),
				withRequired(arm.LocationParam),
				{Name: "display-name", Required: true, Help: "the display name"},
				{Name: "description", Required: true, Help: "the description"},
				{Name: "authorizations", Short: "a", Kind: core.KindList, Required: true, Help: "space-separated principalId:roleDefinitionId pairs"},
				{Name: "lock-level", Required: true, Help: "ReadOnly, CanNotDelete or None"},
				{Name: "package-file-uri", Help: "the package file uri"},
				{Name: "create-ui-definition", Help: "JSON formatted string or a path to a file with the create UI definition"},
				{Name: "main-template", Help: "JSON formatted string or a path to a file with the main template"},
				arm.TagsParam,
			},
			Operation: f.Bind(arm.Endpoint{
				Method:      http.MethodPut,
				Path:        appDefinitionPath,
				APIVersion:  SolutionsAPIVersion,
				LongRunning: true,
				Body:        appDefinitionBody,
			}),
		},
		{
			Group:     "managedapp definition",
			Verb:      "list",
			Short:     "List managed application definitions.",
			Params:    []core.Param{rg},
			Operation: f.Bind(arm.Endpoint{Method: http.MethodGet, Path: appDefinitionsPath, APIVersion: SolutionsAPIVersion, List: true}),
		},
		{
			Group:     "managedapp definition",
			Verb:      "show",
			Short:     "Get a managed application definition.",
			Params:    byIDParams("name of the managed application definition"),
			Operation: byNameOrID(f, appDefinitionPath, http.MethodGet),
		},
		{
			Group:     "managedapp definition",
			Verb:      "delete",
			Short:     "Delete a managed application definition.",
			Params:    byIDParams("name of the managed application definition"),
			Operation: byNameOrID(f, appDefinitionPath, http.MethodDelete),
		},
		{
			Group: "managedapp",
			Verb:  "create",
			Short: "Create a managed application.",
			Params: []core.Param{
				rg,
				arm.NameParam("name of the managed application"),
				withRequired(arm.LocationParam),
				{Name: "kind", Required: true, Help: "ServiceCatalog or MarketPlace"},
				{Name: "managed-rg-id", Short: "m", Required: true, Help: "the managed resource group id"},
				{Name: "managedapp-definition-id", Short: "d", Help: "the definition id; required for ServiceCatalog"},
				{Name: "plan-name", Help: "the plan name; required for MarketPlace"},
				{Name: "plan-product", Help: "the plan product"},
				{Name: "plan-publisher", Help: "the plan publisher"},
				{Name: "plan-version", Help: "the plan version"},
				{Name: "parameters", Help: "JSON formatted string or a path to a file with parameter values"},
				arm.TagsParam,
			},
			Operation: f.Bind(arm.Endpoint{
				Method:      http.MethodPut,
				Path:        applicationPath,
				APIVersion:  SolutionsAPIVersion,
				LongRunning: true,
				Body:        applicationBody,
			}),
		},
		{
			Group:     "managedapp",
			Verb:      "list",
			Short:     "List managed applications.",
			Params:    []core.Param{arm.Optional(rg)},
			Operation: listApplications(f),
		},
		{
			Group:     "managedapp",
			Verb:      "show",
			Short:     "Get a managed application.",
			Params:    byIDParams("name of the managed application"),
			Operation: byNameOrID(f, applicationPath, http.MethodGet),
		},
		{
			Group:     "managedapp",
			Verb:      "delete",
			Short:     "Delete a managed application.",
			Params:    byIDParams("name of the managed application"),
			Operation: byNameOrID(f, applicationPath, http.MethodDelete),
		},
	}
}

func appDefinitionBody(args core.Args) (any, error) {
	auths := make([]map[string]string, 0, len(args.Strings("authorizations")))
	for _, a := range args.Strings("authorizations") {
		principal, role, ok := strings.Cut(a, ":")
		if !ok || principal == "" || role == "" {
			return nil, fmt.Errorf("--authorizations %q: expected principalId:roleDefinitionId: %w", a, core.ErrInvalidArguments)
		}
		auths = append(auths, map[string]string{"principalId": principal, "roleDefinitionId": role})
	}
	props := map[string]any{
		"lockLevel":      args.String("lock-level"),
		"displayName":    args.String("display-name"),
		"description":    args.String("description"),
		"authorizations": auths,
	}
	uri := args.String("package-file-uri")
	ui, tmpl := args.String("create-ui-definition"), args.String("main-template")
	switch {
	case uri != "":
		props["packageFileUri"] = uri
	case ui != "" && tmpl != "":
		uiDoc, err := arm.ParseJSONArg("create-ui-definition", ui)
		if err != nil {
			return nil, err
		}
		tmplDoc, err := arm.ParseJSONArg("main-template", tmpl)
		if err != nil {
			return nil, err
		}
		props["createUiDefinition"] = uiDoc
		props["mainTemplate"] = tmplDoc
	default:
		return nil, fmt.Errorf("pass --package-file-uri or both --create-ui-definition and --main-template: %w", core.ErrInvalidArguments)
	}
	body := arm.TagsBody(args)
	body["location"] = args.String("location")
	body["properties"] = props
	return body, nil
}

func applicationBody(args core.Args) (any, error) {
	kind := args.String("kind")
	props := map[string]any{"managedResourceGroupId": args.String("managed-rg-id")}
	body := arm.TagsBody(args)
	body["location"] = args.String("location")
	body["kind"] = kind
	switch {
	case strings.EqualFold(kind, "ServiceCatalog"):
		def := args.String("managedapp-definition-id")
		if def == "" {
			return nil, fmt.Errorf("--managedapp-definition-id is required for kind %s: %w", kind, core.ErrInvalidArguments)
		}
		props["applicationDefinitionId"] = def
	case strings.EqualFold(kind, "MarketPlace"):
		plan := map[string]string{}
		for _, field := range []string{"name", "product", "publisher", "version"} {
			v := args.String("plan-" + field)
			if v == "" {
				return nil, fmt.Errorf("--plan-%s is required for kind %s: %w", field, kind, core.ErrInvalidArguments)
			}
			plan[field] = v
		}
		body["plan"] = plan
	default:
		return nil, fmt.Errorf("--kind: expected ServiceCatalog or MarketPlace, got %q: %w", kind, core.ErrInvalidArguments)
	}
	if raw := args.String("parameters"); raw != "" {
		doc, err := arm.ParseJSONArg("parameters", raw)
		if err != nil {
			return nil, err
		}
		props["parameters"] = doc
	}
	body["properties"] = props
	return body, nil
}

func listApplications(f arm.ClientFactory) core.Operation {
	all := f.Bind(arm.Endpoint{Method: http.MethodGet, Path: "/subscriptions/{subscription}/providers/Microsoft.Solutions/applications", APIVersion: SolutionsAPIVersion, List: true})
	scoped := f.Bind(arm.Endpoint{Method: http.MethodGet, Path: applicationsPath, APIVersion: SolutionsAPIVersion, List: true})
	return func(ctx context.Context, args core.Args) (any, error) {
		if args.String("resource-group") != "" {
			return scoped(ctx, args)
		}
		return all(ctx, args)
	}
}

// byNameOrID выполняет method для каждого --ids или для пути из группы и
// имени. Удаление дожидается окончания операции и ничего не выводит.
func byNameOrID(f arm.ClientFactory, pathTmpl, method string) core.Operation {
	return func(ctx context.Context, args core.Args) (any, error) {
		c, err := f(ctx)
		if err != nil {
			return nil, err
		}
		paths := args.Strings("ids")
		for _, id := range paths {
			if _, err := arm.ParseResourceID(id); err != nil {
				return nil, err
			}
		}
		if len(paths) == 0 {
			if args.String("resource-group") == "" || args.String("name") == "" {
				return nil, fmt.Errorf("--ids or both --resource-group and --name are required: %w", core.ErrInvalidArguments)
			}
			path, err := c.Expand(pathTmpl, args)
			if err != nil {
				return nil, err
			}
			paths = []string{path}
		}
		outputs := make([]json.RawMessage, 0, len(paths))
		for _, path := range paths {
			out, err := c.Execute(ctx, arm.Call{
				Method:      method,
				Path:        path,
				APIVersion:  SolutionsAPIVersion,
				LongRunning: method == http.MethodDelete,
			})
			if err != nil {
				return nil, err
			}
			outputs = append(outputs, out)
		}
		switch {
		case method == http.MethodDelete:
			return nil, nil
		case len(outputs) == 1:
			return outputs[0], nil
		default:
			return json.Marshal(outputs)
		}
	}
}
