package cdn

import (
	"fmt"

	"cloudctl/internal/arm"
	"cloudctl/internal/core"
)

// APIVersion задает версию API Microsoft.Cdn.
const APIVersion = "2017-04-02"

const (
	providerPath     = "/providers/Microsoft.Cdn"
	subscriptionPath = "/subscriptions/{subscription}/providers/Microsoft.Cdn"
	groupPath        = "/subscriptions/{subscription}/resourceGroups/{resource-group}/providers/Microsoft.Cdn"
	profilePath      = groupPath + "/profiles/{profile-name}"
	endpointPath     = profilePath + "/endpoints/{endpoint-name}"
)

// Register добавляет привязки cdn в r. Каждая группа получает переводчик
// ошибки "не найдено" для своего вида ресурса.
func Register(r *core.Registry, f arm.ClientFactory) error {
	groups := []struct {
		bindings  []core.Binding
		translate core.ErrorTranslator
	}{
		{bindings: rootBindings(f)},
		{bindings: endpointBindings(f), translate: core.NotFound("Endpoint")},
		{bindings: profileBindings(f), translate: core.NotFound("Profile")},
		{bindings: customDomainBindings(f), translate: core.NotFound("Custom Domain")},
		{bindings: originBindings(f), translate: core.NotFound("Origin")},
		{bindings: edgeNodeBindings(f)},
	}
	for _, g := range groups {
		for _, b := range g.bindings {
			if b.Translate == nil {
				b.Translate = g.translate
			}
			if err := r.Register(b); err != nil {
				return fmt.Errorf("register %s: %w", b.Key(), err)
			}
		}
	}
	return nil
}
