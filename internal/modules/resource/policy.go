package resource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"cloudctl/internal/arm"
	"cloudctl/internal/core"
)

const (
	policyDefinitionsPath = "/subscriptions/{subscription}/providers/Microsoft.Authorization/policyDefinitions"
	policyDefinitionPath  = policyDefinitionsPath + "/{name}"
	builtInPolicyPath     = "/providers/Microsoft.Authorization/policyDefinitions/"
	policyAssignmentsPart = "/providers/Microsoft.Authorization/policyAssignments"
)

func policyDefinitionParams(required bool) []core.Param {
	rules := core.Param{Name: "rules", Required: required, Help: "policy rules in JSON format, or a path to a file containing JSON rules"}
	return []core.Param{
		arm.NameParam("name of the policy definition"),
		rules,
		{Name: "params", Help: "JSON formatted string or a path to a file with parameter definitions"},
		{Name: "display-name", Help: "display name of the policy definition"},
		{Name: "description", Help: "description of the policy definition"},
		{Name: "mode", Short: "m", Help: "mode of the policy definition, e.g. All, Indexed"},
	}
}

func assignmentScopeParams() []core.Param {
	return []core.Param{
		arm.Optional(arm.ResourceGroupParam),
		{Name: "scope", Help: "scope at which the assignment applies; overrides --resource-group"},
	}
}

func policyBindings(f arm.ClientFactory) []core.Binding {
	name := arm.NameParam("name of the policy definition")
	assignment := arm.NameParam("name of the policy assignment")
	return []core.Binding{
		{
			Group:     "policy definition",
			Verb:      "create",
			Short:     "Create a policy definition.",
			Params:    policyDefinitionParams(true),
			Operation: writePolicyDefinition(f, false),
		},
		{
			Group:     "policy definition",
			Verb:      "update",
			Short:     "Update a policy definition.",
			Params:    policyDefinitionParams(false),
			Operation: writePolicyDefinition(f, true),
		},
		{
			Group:     "policy definition",
			Verb:      "list",
			Short:     "List policy definitions, including built-in ones.",
			Operation: f.Bind(arm.Endpoint{Method: http.MethodGet, Path: policyDefinitionsPath, APIVersion: PolicyAPIVersion, List: true}),
		},
		{
			Group:     "policy definition",
			Verb:      "show",
			Short:     "Get a policy definition.",
			Params:    []core.Param{name},
			Operation: showPolicyDefinition(f),
		},
		{
			Group:  "policy definition",
			Verb:   "delete",
			Short:  "Delete a policy definition.",
			Params: []core.Param{name},
			Operation: f.Bind(arm.Endpoint{
				Method:     http.MethodDelete,
				Path:       policyDefinitionPath,
				APIVersion: PolicyAPIVersion,
				Empty:      true,
			}),
		},
		{
			Group: "policy assignment",
			Verb:  "create",
			Short: "Create a policy assignment.",
			Params: append([]core.Param{
				{Name: "policy", Required: true, Help: "name or id of the policy definition"},
				arm.Optional(assignment),
				{Name: "display-name", Help: "display name of the policy assignment"},
				{Name: "params", Help: "JSON formatted string or a path to a file with parameter values"},
			}, assignmentScopeParams()...),
			Operation: createPolicyAssignment(f),
		},
		{
			Group: "policy assignment",
			Verb:  "list",
			Short: "List policy assignments.",
			Params: append([]core.Param{
				{Name: "disable-scope-strict-match", Kind: core.KindBool, Help: "include assignments from child scopes"},
			}, assignmentScopeParams()...),
			Operation: listPolicyAssignments(f),
		},
		{
			Group:     "policy assignment",
			Verb:      "show",
			Short:     "Show a policy assignment.",
			Params:    append([]core.Param{assignment}, assignmentScopeParams()...),
			Operation: policyAssignment(f, http.MethodGet),
		},
		{
			Group:     "policy assignment",
			Verb:      "delete",
			Short:     "Delete a policy assignment.",
			Params:    append([]core.Param{assignment}, assignmentScopeParams()...),
			Operation: policyAssignment(f, http.MethodDelete),
		},
	}
}

// writePolicyDefinition создает определение или, при update, меняет только
// переданные поля существующего.
func writePolicyDefinition(f arm.ClientFactory, update bool) core.Operation {
	return func(ctx context.Context, args core.Args) (any, error) {
		c, err := f(ctx)
		if err != nil {
			return nil, err
		}
		path, err := c.Expand(policyDefinitionPath, args)
		if err != nil {
			return nil, err
		}
		props := map[string]any{}
		if update {
			current, err := c.Execute(ctx, arm.Call{Method: http.MethodGet, Path: path, APIVersion: PolicyAPIVersion})
			if err != nil {
				return nil, err
			}
			if raw := gjson.GetBytes(current, "properties").Raw; raw != "" {
				if err := json.Unmarshal([]byte(raw), &props); err != nil {
					return nil, fmt.Errorf("%s: decode properties: %w", path, err)
				}
			}
		}
		for flag, field := range map[string]string{"rules": "policyRule", "params": "parameters"} {
			if raw := args.String(flag); raw != "" {
				doc, err := arm.ParseJSONArg(flag, raw)
				if err != nil {
					return nil, err
				}
				props[field] = doc
			}
		}
		for flag, field := range map[string]string{"display-name": "displayName", "description": "description", "mode": "mode"} {
			if v := args.String(flag); v != "" {
				props[field] = v
			}
		}
		if _, ok := props["mode"]; !ok {
			props["mode"] = "All"
		}
		return c.Execute(ctx, arm.Call{
			Method:     http.MethodPut,
			Path:       path,
			APIVersion: PolicyAPIVersion,
			Body:       map[string]any{"properties": props},
		})
	}
}

// showPolicyDefinition ищет определение в подписке, затем среди встроенных.
func showPolicyDefinition(f arm.ClientFactory) core.Operation {
	return func(ctx context.Context, args core.Args) (any, error) {
		c, err := f(ctx)
		if err != nil {
			return nil, err
		}
		return findPolicyDefinition(ctx, c, args.String("name"))
	}
}

func findPolicyDefinition(ctx context.Context, c *arm.Client, name string) (json.RawMessage, error) {
	path := "/subscriptions/" + url.PathEscape(c.Subscription()) + "/providers/Microsoft.Authorization/policyDefinitions/" + url.PathEscape(name)
	out, err := c.Execute(ctx, arm.Call{Method: http.MethodGet, Path: path, APIVersion: PolicyAPIVersion})
	var te *core.TransportError
	if !errors.As(err, &te) || te.StatusCode != http.StatusNotFound {
		return out, err
	}
	return c.Execute(ctx, arm.Call{Method: http.MethodGet, Path: builtInPolicyPath + url.PathEscape(name), APIVersion: PolicyAPIVersion})
}

// policyScope возвращает --scope, группу ресурсов или подписку.
func policyScope(c *arm.Client, args core.Args) string {
	if scope := args.String("scope"); scope != "" {
		return strings.TrimRight(scope, "/")
	}
	scope := "/subscriptions/" + url.PathEscape(c.Subscription())
	if rg := args.String("resource-group"); rg != "" {
		scope += "/resourceGroups/" + url.PathEscape(rg)
	}
	return scope
}

func createPolicyAssignment(f arm.ClientFactory) core.Operation {
	return func(ctx context.Context, args core.Args) (any, error) {
		c, err := f(ctx)
		if err != nil {
			return nil, err
		}
		definitionID := args.String("policy")
		if !strings.HasPrefix(definitionID, "/") {
			def, err := findPolicyDefinition(ctx, c, definitionID)
			if err != nil {
				return nil, err
			}
			definitionID = gjson.GetBytes(def, "id").String()
		}
		name := args.String("name")
		if name == "" {
			name = strings.ReplaceAll(uuid.NewString(), "-", "")
		}
		scope := policyScope(c, args)
		props := map[string]any{"policyDefinitionId": definitionID, "scope": scope}
		if v := args.String("display-name"); v != "" {
			props["displayName"] = v
		}
		if raw := args.String("params"); raw != "" {
			doc, err := arm.ParseJSONArg("params", raw)
			if err != nil {
				return nil, err
			}
			props["parameters"] = doc
		}
		return c.Execute(ctx, arm.Call{
			Method:     http.MethodPut,
			Path:       scope + policyAssignmentsPart + "/" + url.PathEscape(name),
			APIVersion: PolicyAPIVersion,
			Body:       map[string]any{"properties": props},
		})
	}
}

// listPolicyAssignments без --disable-scope-strict-match показывает только
// назначения самой области и областей выше нее.
func listPolicyAssignments(f arm.ClientFactory) core.Operation {
	return func(ctx context.Context, args core.Args) (any, error) {
		c, err := f(ctx)
		if err != nil {
			return nil, err
		}
		var query url.Values
		if !args.Bool("disable-scope-strict-match") {
			query = url.Values{"$filter": {"atScope()"}}
		}
		return c.List(ctx, arm.Call{
			Method:     http.MethodGet,
			Path:       policyScope(c, args) + policyAssignmentsPart,
			APIVersion: PolicyAPIVersion,
			Query:      query,
		})
	}
}

func policyAssignment(f arm.ClientFactory, method string) core.Operation {
	return func(ctx context.Context, args core.Args) (any, error) {
		c, err := f(ctx)
		if err != nil {
			return nil, err
		}
		out, err := c.Execute(ctx, arm.Call{
			Method:     method,
			Path:       policyScope(c, args) + policyAssignmentsPart + "/" + url.PathEscape(args.String("name")),
			APIVersion: PolicyAPIVersion,
		})
		if err != nil || method == http.MethodDelete || len(out) == 0 {
			return nil, err
		}
		return out, nil
	}
}
