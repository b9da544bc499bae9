package arm

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/tidwall/gjson"

	"cloudctl/internal/core"
)

func TestParseResourceID(t *testing.T) {
	id := "/subscriptions/sub1/resourceGroups/rg1/providers/Microsoft.Network/virtualNetworks/vnet1/subnets/default"
	r, err := ParseResourceID(id)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if r.Subscription != "sub1" || r.ResourceGroup != "rg1" || r.Namespace != "Microsoft.Network" {
		t.Fatalf("unexpected id: %#v", r)
	}
	if r.FullType() != "virtualNetworks/subnets" || r.Name() != "default" {
		t.Fatalf("unexpected type/name: %s %s", r.FullType(), r.Name())
	}
	if r.String() != id {
		t.Fatalf("round trip mismatch: %s", r.String())
	}
}

func TestParseResourceIDInvalid(t *testing.T) {
	for _, id := range []string{
		"",
		"/resourceGroups/rg1",
		"/subscriptions/sub1/resourceGroups/rg1/providers/Microsoft.Compute/virtualMachines",
		"/subscriptions/sub1/resourceGroups/rg1/extra/thing",
	} {
		if _, err := ParseResourceID(id); !errors.Is(err, core.ErrInvalidArguments) {
			t.Fatalf("%q: expected ErrInvalidArguments, got %v", id, err)
		}
	}
}

func TestResourceIDFromParts(t *testing.T) {
	r, err := ResourceIDFromParts("sub1", "rg1", "", "virtualNetworks/vnet1", "Microsoft.Network/subnets", "default")
	if err != nil {
		t.Fatalf("from parts: %v", err)
	}
	want := "/subscriptions/sub1/resourceGroups/rg1/providers/Microsoft.Network/virtualNetworks/vnet1/subnets/default"
	if r.String() != want {
		t.Fatalf("unexpected id %s", r.String())
	}

	r, err = ResourceIDFromParts("sub1", "rg1", "Microsoft.Compute", "", "virtualMachines", "vm1")
	if err != nil {
		t.Fatalf("from parts: %v", err)
	}
	if r.FullType() != "virtualMachines" || r.Name() != "vm1" {
		t.Fatalf("unexpected id %#v", r)
	}

	if _, err := ResourceIDFromParts("sub1", "rg1", "", "", "virtualMachines", "vm1"); !errors.Is(err, core.ErrInvalidArguments) {
		t.Fatalf("expected missing namespace error, got %v", err)
	}
}

func TestResourceGroupOf(t *testing.T) {
	if rg := ResourceGroupOf("/subscriptions/s/resourcegroups/MyRG/providers/x/y/z"); rg != "MyRG" {
		t.Fatalf("unexpected group %q", rg)
	}
	if rg := ResourceGroupOf("/subscriptions/s/providers/Microsoft.Features/features/f"); rg != "" {
		t.Fatalf("unexpected group %q", rg)
	}
}

func TestParseTags(t *testing.T) {
	got := ParseTags([]string{"a=b", "c"})
	if !reflect.DeepEqual(got, map[string]string{"a": "b", "c": ""}) {
		t.Fatalf("unexpected tags: %#v", got)
	}
	got = ParseTags([]string{"k=v=w"})
	if got["k"] != "v=w" {
		t.Fatalf("value must keep '=': %#v", got)
	}
	if len(ParseTags(nil)) != 0 {
		t.Fatalf("expected empty tags")
	}
}

func TestParseParameters(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "params.json")
	content := `{"$schema":"x","contentVersion":"1.0.0.0","parameters":{"storageAccountType":{"value":"Standard_LRS"}}}`
	if err := os.WriteFile(file, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	obj := filepath.Join(dir, "obj.json")
	if err := os.WriteFile(obj, []byte(`{"a":1}`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := ParseParameters([]string{"@" + file, `{"name":{"value":"vm1"}}`, "count=3", "config=@" + obj})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := map[string]any{
		"storageAccountType": map[string]any{"value": "Standard_LRS"},
		"name":               map[string]any{"value": "vm1"},
		"count":              map[string]any{"value": "3"},
		"config":             map[string]any{"value": map[string]any{"a": float64(1)}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected parameters: %#v", got)
	}

	if _, err := ParseParameters([]string{"novalue"}); !errors.Is(err, core.ErrInvalidArguments) {
		t.Fatalf("expected ErrInvalidArguments, got %v", err)
	}
}

func TestDeploymentBody(t *testing.T) {
	args := core.Args{"template-uri": {"https://example.com/azuredeploy.json"}}
	body, err := DeploymentBody(args)
	if err != nil {
		t.Fatalf("body: %v", err)
	}
	props := body["properties"].(map[string]any)
	if props["mode"] != DeploymentModeIncremental {
		t.Fatalf("unexpected mode: %v", props["mode"])
	}
	if DeploymentName(args) != "azuredeploy" {
		t.Fatalf("unexpected default name %q", DeploymentName(args))
	}
	if _, err := DeploymentBody(core.Args{}); !errors.Is(err, core.ErrInvalidArguments) {
		t.Fatalf("expected ErrInvalidArguments, got %v", err)
	}
}

func TestApplyUpdates(t *testing.T) {
	doc := []byte(`{"name":"n","tags":{"old":"x"},"properties":{"list":[1]}}`)
	out, err := ApplyUpdates(doc, []string{"tags.env=prod", "properties.count=3"}, []string{"properties.list=2"}, []string{"tags.old"})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if gjson.GetBytes(out, "tags.env").String() != "prod" {
		t.Fatalf("set string failed: %s", out)
	}
	if gjson.GetBytes(out, "properties.count").Type != gjson.Number {
		t.Fatalf("json value must stay a number: %s", out)
	}
	if gjson.GetBytes(out, "properties.list.#").Int() != 2 {
		t.Fatalf("add failed: %s", out)
	}
	if gjson.GetBytes(out, "tags.old").Exists() {
		t.Fatalf("remove failed: %s", out)
	}
	if _, err := ApplyUpdates(doc, nil, nil, []string{"missing"}); !errors.Is(err, core.ErrInvalidArguments) {
		t.Fatalf("expected ErrInvalidArguments, got %v", err)
	}
}

func TestWaitCondition(t *testing.T) {
	cond, err := WaitCondition(core.Args{"created": {"true"}})
	if err != nil {
		t.Fatalf("condition: %v", err)
	}
	if ok, _ := cond(true, []byte(`{"properties":{"provisioningState":"Running"}}`)); ok {
		t.Fatalf("running must not satisfy --created")
	}
	if ok, _ := cond(true, []byte(`{"properties":{"provisioningState":"Succeeded"}}`)); !ok {
		t.Fatalf("succeeded must satisfy --created")
	}
	if _, err := cond(true, []byte(`{"properties":{"provisioningState":"Failed"}}`)); err == nil {
		t.Fatalf("failed must stop waiting")
	}

	cond, _ = WaitCondition(core.Args{"custom": {`properties.provisioningState=="Running"`}})
	if ok, _ := cond(true, []byte(`{"properties":{"provisioningState":"Running"}}`)); !ok {
		t.Fatalf("custom condition must match")
	}

	if _, err := WaitCondition(core.Args{}); !errors.Is(err, core.ErrInvalidArguments) {
		t.Fatalf("expected ErrInvalidArguments, got %v", err)
	}
}

func TestWithResourceGroup(t *testing.T) {
	out, err := WithResourceGroup([]byte(`[{"id":"/subscriptions/s/resourceGroups/rg1/providers/a/b/c"},{"id":"/subscriptions/s"}]`))
	if err != nil {
		t.Fatalf("transform: %v", err)
	}
	items := out.([]any)
	if items[0].(map[string]any)["resourceGroup"] != "rg1" {
		t.Fatalf("missing resourceGroup: %#v", items[0])
	}
	if _, ok := items[1].(map[string]any)["resourceGroup"]; ok {
		t.Fatalf("unexpected resourceGroup: %#v", items[1])
	}
}
