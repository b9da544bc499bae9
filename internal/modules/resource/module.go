package resource

import (
	"fmt"

	"cloudctl/internal/arm"
	"cloudctl/internal/core"
)

// Версии API привязок пакета.
const (
	APIVersion          = arm.ResourcesAPIVersion
	FeaturesAPIVersion  = "2015-12-01"
	OperationsVersion   = "2015-07-01"
	PolicyAPIVersion    = "2016-12-01"
	SolutionsAPIVersion = "2017-09-01"
)

// Register добавляет все привязки пакета в r.
func Register(r *core.Registry, f arm.ClientFactory) error {
	groups := [][]core.Binding{
		groupBindings(f),
		resourceBindings(f),
		deploymentBindings(f),
		tagBindings(f),
		providerBindings(f),
		featureBindings(f),
		policyBindings(f),
		managedAppBindings(f),
	}
	for _, bindings := range groups {
		for _, b := range bindings {
			if err := r.Register(b); err != nil {
				return fmt.Errorf("register %s: %w", b.Key(), err)
			}
		}
	}
	return nil
}
