package arm

import (
	"fmt"
	"net/url"
	"strings"

	"cloudctl/internal/core"
)

// Общие флаги команд.
var (
	ResourceGroupParam = core.Param{Name: "resource-group", Short: "g", Required: true, Help: "name of the resource group"}
	LocationParam      = core.Param{Name: "location", Short: "l", Help: "location, e.g. westus"}
	TagsParam          = core.Param{Name: "tags", Kind: core.KindList, Help: "space-separated tags: key[=value]; empty clears tags"}
)

// NameParam возвращает обязательный --name/-n с описанием.
func NameParam(help string) core.Param {
	return core.Param{Name: "name", Short: "n", Required: true, Help: help}
}

// Optional снимает признак обязательности.
func Optional(p core.Param) core.Param {
	p.Required = false
	return p
}

// ODataFilter собирает $filter из условий, объединенных "and".
func ODataFilter(conds ...string) url.Values {
	kept := make([]string, 0, len(conds))
	for _, c := range conds {
		if c != "" {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return url.Values{"$filter": {strings.Join(kept, " and ")}}
}

// Eq возвращает условие "field eq 'value'" или пустую строку для пустого значения.
func Eq(field, value string) string {
	if value == "" {
		return ""
	}
	return fmt.Sprintf("%s eq '%s'", field, strings.ReplaceAll(value, "'", "''"))
}

// TagFilter превращает "key[=value]" в условие фильтра по тегу.
func TagFilter(tag string) string {
	if tag == "" {
		return ""
	}
	key, value, hasValue := strings.Cut(tag, "=")
	if !hasValue {
		return Eq("tagname", key)
	}
	return Eq("tagname", key) + " and " + Eq("tagvalue", value)
}

// TagsBody возвращает {"tags": {...}}, если --tags задан, иначе пустую карту.
func TagsBody(args core.Args) map[string]any {
	body := map[string]any{}
	if args.Has(TagsParam.Name) {
		body["tags"] = ParseTags(args.Strings(TagsParam.Name))
	}
	return body
}
