package arm

import (
	"fmt"
	"strings"

	"cloudctl/internal/core"
)

// ResourceID хранит разобранный идентификатор ресурса вида
// /subscriptions/{s}/resourceGroups/{g}/providers/{ns}/{type}/{name}[/{type}/{name}...].
type ResourceID struct {
	Subscription  string
	ResourceGroup string
	Namespace     string
	Types         []string
	Names         []string
}

// ParseResourceID разбирает идентификатор ресурса.
func ParseResourceID(id string) (ResourceID, error) {
	var r ResourceID
	parts := make([]string, 0, 8)
	for _, p := range strings.Split(id, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	invalid := func() (ResourceID, error) {
		return ResourceID{}, fmt.Errorf("invalid resource id %q: %w", id, core.ErrInvalidArguments)
	}

	if len(parts) < 2 || !strings.EqualFold(parts[0], "subscriptions") {
		return invalid()
	}
	r.Subscription = parts[1]
	parts = parts[2:]

	if len(parts) >= 2 && strings.EqualFold(parts[0], "resourceGroups") {
		r.ResourceGroup = parts[1]
		parts = parts[2:]
	}
	if len(parts) == 0 {
		return r, nil
	}
	if !strings.EqualFold(parts[0], "providers") || len(parts) < 2 {
		return invalid()
	}
	r.Namespace = parts[1]
	parts = parts[2:]
	if len(parts) == 0 || len(parts)%2 != 0 {
		return invalid()
	}
	for i := 0; i < len(parts); i += 2 {
		r.Types = append(r.Types, parts[i])
		r.Names = append(r.Names, parts[i+1])
	}
	return r, nil
}

// ResourceIDFromParts собирает идентификатор из флагов команды resource.
// resourceType может содержать пространство имен: "Microsoft.Network/virtualNetworks".
// parent задается парами "type/name".
func ResourceIDFromParts(subscription, group, namespace, parent, resourceType, name string) (ResourceID, error) {
	r := ResourceID{Subscription: subscription, ResourceGroup: group, Namespace: namespace}
	if resourceType == "" || name == "" {
		return ResourceID{}, fmt.Errorf("--resource-type and --name are required without --ids: %w", core.ErrInvalidArguments)
	}
	typeParts := strings.Split(strings.Trim(resourceType, "/"), "/")
	if r.Namespace == "" {
		if len(typeParts) < 2 {
			return ResourceID{}, fmt.Errorf("--namespace is required for resource type %q: %w", resourceType, core.ErrInvalidArguments)
		}
		r.Namespace = typeParts[0]
		typeParts = typeParts[1:]
	}
	if parent != "" {
		pp := strings.Split(strings.Trim(parent, "/"), "/")
		if len(pp)%2 != 0 {
			return ResourceID{}, fmt.Errorf("--parent must be type/name pairs, got %q: %w", parent, core.ErrInvalidArguments)
		}
		for i := 0; i < len(pp); i += 2 {
			r.Types = append(r.Types, pp[i])
			r.Names = append(r.Names, pp[i+1])
		}
	}
	if len(typeParts) != 1 {
		return ResourceID{}, fmt.Errorf("nested resource type %q requires --parent: %w", resourceType, core.ErrInvalidArguments)
	}
	r.Types = append(r.Types, typeParts[0])
	r.Names = append(r.Names, name)
	return r, nil
}

// String возвращает каноническую форму идентификатора.
func (r ResourceID) String() string {
	var b strings.Builder
	b.WriteString("/subscriptions/")
	b.WriteString(r.Subscription)
	if r.ResourceGroup != "" {
		b.WriteString("/resourceGroups/")
		b.WriteString(r.ResourceGroup)
	}
	if r.Namespace != "" {
		b.WriteString("/providers/")
		b.WriteString(r.Namespace)
		for i := range r.Types {
			b.WriteString("/")
			b.WriteString(r.Types[i])
			b.WriteString("/")
			b.WriteString(r.Names[i])
		}
	}
	return b.String()
}

// Name возвращает имя самого вложенного ресурса.
func (r ResourceID) Name() string {
	if len(r.Names) == 0 {
		return r.ResourceGroup
	}
	return r.Names[len(r.Names)-1]
}

// FullType возвращает тип без пространства имен: "virtualNetworks/subnets".
func (r ResourceID) FullType() string {
	return strings.Join(r.Types, "/")
}

// ResourceGroupOf извлекает группу ресурсов из идентификатора; пустая строка,
// если идентификатор не относится к группе.
func ResourceGroupOf(id string) string {
	parts := strings.Split(id, "/")
	for i := 0; i+1 < len(parts); i++ {
		if strings.EqualFold(parts[i], "resourceGroups") {
			return parts[i+1]
		}
	}
	return ""
}
