package resource

import (
	"net/http"

	"cloudctl/internal/arm"
	"cloudctl/internal/core"
)

const (
	tagNamesPath = "/subscriptions/{subscription}/tagNames"
	tagNamePath  = tagNamesPath + "/{name}"
	tagValuePath = tagNamePath + "/tagValues/{value}"
)

func tagBindings(f arm.ClientFactory) []core.Binding {
	name := arm.NameParam("the tag name")
	value := core.Param{Name: "value", Required: true, Help: "the tag value"}
	return []core.Binding{
		{
			Group:     "tag",
			Verb:      "list",
			Short:     "List the entire set of tags on a subscription.",
			Operation: f.Bind(arm.Endpoint{Method: http.MethodGet, Path: tagNamesPath, APIVersion: APIVersion, List: true}),
		},
		{
			Group:     "tag",
			Verb:      "create",
			Short:     "Create a tag in the subscription.",
			Params:    []core.Param{name},
			Operation: f.Bind(arm.Endpoint{Method: http.MethodPut, Path: tagNamePath, APIVersion: APIVersion}),
		},
		{
			Group:     "tag",
			Verb:      "delete",
			Short:     "Delete a tag in the subscription.",
			Params:    []core.Param{name},
			Operation: f.Bind(arm.Endpoint{Method: http.MethodDelete, Path: tagNamePath, APIVersion: APIVersion, Empty: true}),
		},
		{
			Group:     "tag",
			Verb:      "add-value",
			Short:     "Create a tag value.",
			Params:    []core.Param{name, value},
			Operation: f.Bind(arm.Endpoint{Method: http.MethodPut, Path: tagValuePath, APIVersion: APIVersion}),
		},
		{
			Group:     "tag",
			Verb:      "remove-value",
			Short:     "Delete a tag value.",
			Params:    []core.Param{name, value},
			Operation: f.Bind(arm.Endpoint{Method: http.MethodDelete, Path: tagValuePath, APIVersion: APIVersion, Empty: true}),
		},
	}
}
