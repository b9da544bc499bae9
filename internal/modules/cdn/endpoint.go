package cdn

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"cloudctl/internal/arm"
	"cloudctl/internal/core"
)

const endpointByName = profilePath + "/endpoints/{name}"

// Значения по умолчанию для создаваемых источников и конечных точек.
const (
	DefaultHTTPPort            = 80
	DefaultHTTPSPort           = 443
	DefaultQueryStringBehavior = "IgnoreQueryString"
)

var profileNameParam = core.Param{Name: "profile-name", Required: true, Help: "name of the CDN profile"}

func endpointBindings(f arm.ClientFactory) []core.Binding {
	rg := arm.ResourceGroupParam
	name := arm.NameParam("name of the CDN endpoint")
	ids := []core.Param{rg, profileNameParam, name}
	contentPaths := core.Param{Name: "content-paths", Kind: core.KindList, Required: true, Help: "space-separated paths, e.g. /pictures/city.png"}

	action := func(verb, short, suffix string, body func(core.Args) (any, error)) core.Binding {
		return core.Binding{
			Group:  "cdn endpoint",
			Verb:   verb,
			Short:  short,
			Params: append(append([]core.Param(nil), ids...), arm.NoWaitParam),
			Operation: f.Bind(arm.Endpoint{
				Method:      http.MethodPost,
				Path:        endpointByName + suffix,
				APIVersion:  APIVersion,
				LongRunning: true,
				Body:        body,
			}),
		}
	}
	paths := func(args core.Args) (any, error) {
		return map[string][]string{"contentPaths": args.Strings("content-paths")}, nil
	}

	start := action("start", "Start a stopped CDN endpoint.", "/start", nil)
	stop := action("stop", "Stop a running CDN endpoint.", "/stop", nil)
	load := action("load", "Pre-load content for a CDN endpoint.", "/load", paths)
	load.Params = append(load.Params, contentPaths)
	purge := action("purge", "Purge pre-loaded content for a CDN endpoint.", "/purge", paths)
	purge.Params = append(purge.Params, contentPaths)

	return []core.Binding{
		start,
		stop,
		{
			Group:  "cdn endpoint",
			Verb:   "delete",
			Short:  "Delete a CDN endpoint.",
			Params: append(append([]core.Param(nil), ids...), arm.NoWaitParam),
			Operation: f.Bind(arm.Endpoint{
				Method:      http.MethodDelete,
				Path:        endpointByName,
				APIVersion:  APIVersion,
				LongRunning: true,
				Empty:       true,
			}),
		},
		{
			Group:     "cdn endpoint",
			Verb:      "show",
			Short:     "Get a CDN endpoint.",
			Params:    ids,
			Operation: f.Bind(arm.Endpoint{Method: http.MethodGet, Path: endpointByName, APIVersion: APIVersion}),
		},
		{
			Group:     "cdn endpoint",
			Verb:      "list",
			Short:     "List the CDN endpoints of a profile.",
			Params:    []core.Param{rg, profileNameParam},
			Operation: f.Bind(arm.Endpoint{Method: http.MethodGet, Path: profilePath + "/endpoints", APIVersion: APIVersion, List: true}),
		},
		load,
		purge,
		{
			Group:  "cdn endpoint",
			Verb:   "validate-custom-domain",
			Short:  "Check whether a custom domain is mapped to a CDN endpoint.",
			Params: append(append([]core.Param(nil), ids...), core.Param{Name: "host-name", Required: true, Help: "the host name of the custom domain"}),
			Operation: f.Bind(arm.Endpoint{
				Method:     http.MethodPost,
				Path:       endpointByName + "/validateCustomDomain",
				APIVersion: APIVersion,
				Body: func(args core.Args) (any, error) {
					return map[string]string{"hostName": args.String("host-name")}, nil
				},
			}),
		},
		{
			Group: "cdn endpoint",
			Verb:  "create",
			Short: "Create a CDN endpoint.",
			Params: append(append([]core.Param(nil), ids...),
				core.Param{Name: "origin", Kind: core.KindList, Required: true, Help: "endpoint origin: host [http-port] [https-port]; may be repeated"},
				core.Param{Name: "origin-host-header", Help: "the host header sent to the origin"},
				core.Param{Name: "origin-path", Help: "a directory path on the origin"},
				core.Param{Name: "content-types-to-compress", Kind: core.KindList, Help: "MIME types to compress"},
				core.Param{Name: "enable-compression", Kind: core.KindBool, Help: "compress content served by the endpoint"},
				core.Param{Name: "no-http", Kind: core.KindBool, Help: "disable HTTP traffic"},
				core.Param{Name: "no-https", Kind: core.KindBool, Help: "disable HTTPS traffic"},
				core.Param{Name: "query-string-caching-behavior", Default: DefaultQueryStringBehavior, Help: "IgnoreQueryString, BypassCaching or UseQueryString"},
				arm.LocationParam,
				arm.TagsParam,
				arm.NoWaitParam,
			),
			Operation: createEndpoint(f),
		},
	}
}

// Origin описывает источник содержимого конечной точки.
type Origin struct {
	Name      string
	HostName  string
	HTTPPort  int
	HTTPSPort int
}

// ParseOrigins разбирает значения --origin: имя хоста начинает новый
// источник, следующие за ним числа задают порты HTTP и HTTPS.
func ParseOrigins(values []string) ([]Origin, error) {
	var origins []Origin
	ports := 0
	for _, v := range values {
		port, err := strconv.Atoi(v)
		if err != nil {
			origins = append(origins, Origin{
				Name:      strings.ReplaceAll(v, ".", "-"),
				HostName:  v,
				HTTPPort:  DefaultHTTPPort,
				HTTPSPort: DefaultHTTPSPort,
			})
			ports = 0
			continue
		}
		if len(origins) == 0 {
			return nil, fmt.Errorf("--origin must start with a host name, got %q: %w", v, core.ErrInvalidArguments)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("--origin port %d out of range: %w", port, core.ErrInvalidArguments)
		}
		last := &origins[len(origins)-1]
		switch ports {
		case 0:
			last.HTTPPort = port
		case 1:
			last.HTTPSPort = port
		default:
			return nil, fmt.Errorf("--origin %s: too many ports: %w", last.HostName, core.ErrInvalidArguments)
		}
		ports++
	}
	if len(origins) == 0 {
		return nil, fmt.Errorf("at least one --origin is required: %w", core.ErrInvalidArguments)
	}
	return origins, nil
}

// EndpointBody собирает тело PUT для новой конечной точки.
func EndpointBody(args core.Args, location string) (map[string]any, error) {
	origins, err := ParseOrigins(args.Strings("origin"))
	if err != nil {
		return nil, err
	}
	deep := make([]map[string]any, 0, len(origins))
	for _, o := range origins {
		deep = append(deep, map[string]any{
			"name": o.Name,
			"properties": map[string]any{
				"hostName":  o.HostName,
				"httpPort":  o.HTTPPort,
				"httpsPort": o.HTTPSPort,
			},
		})
	}
	props := map[string]any{
		"origins":                    deep,
		"isCompressionEnabled":       args.Bool("enable-compression"),
		"isHttpAllowed":              !args.Bool("no-http"),
		"isHttpsAllowed":             !args.Bool("no-https"),
		"queryStringCachingBehavior": args.String("query-string-caching-behavior"),
	}
	if v := args.String("origin-host-header"); v != "" {
		props["originHostHeader"] = v
	}
	if v := args.String("origin-path"); v != "" {
		props["originPath"] = v
	}
	if v := args.Strings("content-types-to-compress"); len(v) > 0 {
		props["contentTypesToCompress"] = v
	}
	body := arm.TagsBody(args)
	body["location"] = location
	body["properties"] = props
	return body, nil
}

// createEndpoint берет расположение профиля, если -l не задан.
func createEndpoint(f arm.ClientFactory) core.Operation {
	return func(ctx context.Context, args core.Args) (any, error) {
		location := args.String(arm.LocationParam.Name)
		if location == "" {
			var err error
			if location, err = locationOf(ctx, f, profilePath, APIVersion, args); err != nil {
				return nil, err
			}
		}
		body, err := EndpointBody(args, location)
		if err != nil {
			return nil, err
		}
		return f.Bind(arm.Endpoint{
			Method:      http.MethodPut,
			Path:        endpointByName,
			APIVersion:  APIVersion,
			LongRunning: true,
			Body:        func(core.Args) (any, error) { return body, nil },
		})(ctx, args)
	}
}
