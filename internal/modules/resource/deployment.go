package resource

import (
	"context"
	"fmt"
	"net/http"

	"cloudctl/internal/arm"
	"cloudctl/internal/core"
)

const (
	deploymentsPath = "/subscriptions/{subscription}/resourcegroups/{resource-group}/providers/Microsoft.Resources/deployments"
	deploymentPath  = deploymentsPath + "/{name}"
)

func templateParams() []core.Param {
	return []core.Param{
		{Name: "template-file", Help: "a template file path in the file system"},
		{Name: "template-uri", Help: "a uri to a remote template file"},
		{Name: "parameters", Kind: core.KindList, Help: "parameters as @file, inline JSON or KEY=VALUE; may be repeated"},
		{Name: "mode", Default: arm.DeploymentModeIncremental, Help: "Incremental or Complete"},
	}
}

func deploymentBindings(f arm.ClientFactory) []core.Binding {
	rg := arm.ResourceGroupParam
	name := arm.NameParam("the deployment name")
	optionalName := arm.Optional(core.Param{Name: "name", Short: "n", Help: "the deployment name; defaults to the template file base name"})
	return []core.Binding{
		{
			Group:     "group deployment",
			Verb:      "create",
			Short:     "Start a deployment.",
			Params:    append([]core.Param{rg, optionalName, arm.NoWaitParam}, templateParams()...),
			Operation: deploy(f, http.MethodPut, ""),
			Transform: arm.WithResourceGroup,
		},
		{
			Group:     "group deployment",
			Verb:      "validate",
			Short:     "Validate whether the specified template is syntactically correct.",
			Params:    append([]core.Param{rg, optionalName}, templateParams()...),
			Operation: deploy(f, http.MethodPost, "/validate"),
		},
		{
			Group:     "group deployment",
			Verb:      "show",
			Short:     "Get a deployment.",
			Params:    []core.Param{rg, name},
			Operation: f.Bind(arm.Endpoint{Method: http.MethodGet, Path: deploymentPath, APIVersion: APIVersion}),
			Transform: arm.WithResourceGroup,
		},
		{
			Group:     "group deployment",
			Verb:      "list",
			Short:     "List deployments of a resource group.",
			Params:    []core.Param{rg},
			Operation: f.Bind(arm.Endpoint{Method: http.MethodGet, Path: deploymentsPath + "/", APIVersion: APIVersion, List: true}),
			Transform: arm.WithResourceGroup,
		},
		{
			Group:  "group deployment",
			Verb:   "delete",
			Short:  "Delete a deployment.",
			Params: []core.Param{rg, name, arm.NoWaitParam},
			Operation: f.Bind(arm.Endpoint{
				Method:      http.MethodDelete,
				Path:        deploymentPath,
				APIVersion:  APIVersion,
				LongRunning: true,
				Empty:       true,
			}),
		},
		{
			Group:  "group deployment",
			Verb:   "export",
			Short:  "Export the template used for a deployment.",
			Params: []core.Param{rg, name},
			Operation: f.Bind(arm.Endpoint{
				Method:     http.MethodPost,
				Path:       deploymentPath + "/exportTemplate",
				APIVersion: APIVersion,
			}),
		},
		{
			Group:     "group deployment",
			Verb:      "wait",
			Short:     "Place the CLI in a waiting state until a deployment condition is met.",
			Params:    append([]core.Param{rg, name}, arm.WaitParams()...),
			Operation: f.Wait(deploymentPath, APIVersion),
		},
		{
			Group:     "group deployment operation",
			Verb:      "list",
			Short:     "List the operations of a deployment.",
			Params:    []core.Param{rg, name},
			Operation: f.Bind(arm.Endpoint{Method: http.MethodGet, Path: deploymentPath + "/operations", APIVersion: APIVersion, List: true}),
			Transform: arm.WithResourceGroup,
		},
	}
}

// deploy создает или проверяет развертывание; имя по умолчанию берется из
// имени файла шаблона.
func deploy(f arm.ClientFactory, method, suffix string) core.Operation {
	return func(ctx context.Context, args core.Args) (any, error) {
		body, err := arm.DeploymentBody(args)
		if err != nil {
			return nil, err
		}
		name := arm.DeploymentName(args)
		if name == "" {
			return nil, fmt.Errorf("deployment name could not be derived; pass --name: %w", core.ErrInvalidArguments)
		}
		withName := make(core.Args, len(args)+1)
		for k, v := range args {
			withName[k] = v
		}
		withName.Set("name", name)

		op := f.Bind(arm.Endpoint{
			Method:      method,
			Path:        deploymentPath + suffix,
			APIVersion:  APIVersion,
			LongRunning: method == http.MethodPut,
			Body:        func(core.Args) (any, error) { return body, nil },
		})
		return op(ctx, withName)
	}
}
