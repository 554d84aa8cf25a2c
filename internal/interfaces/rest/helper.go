package rest

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// endpoint versioned API root
type endpoint struct {
	apiVersion  string
	middlewares []echo.MiddlewareFunc
	groups      []*apiGroup
}

// apiGroup resources sharing a prefix and middlewares, eg. auth
type apiGroup struct {
	prefix      string
	middlewares []echo.MiddlewareFunc
	routes      []*route
}

type route struct {
	method      string
	path        string
	handler     echo.HandlerFunc
	middlewares []echo.MiddlewareFunc
}

// methods the gateway serves, PATCH mirrors the platform's partial updates
var routeMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// createEndpoint register every route of def, panics on an unsupported method or
// a path registered twice so a bad route table fails at startup
func createEndpoint(app *echo.Echo, def *endpoint) []*echo.Route {
	root := app.Group("/"+strings.TrimPrefix(def.apiVersion, "/"), def.middlewares...)

	seen := make(map[string]bool)
	var routes []*echo.Route
	for _, group := range def.groups {
		echoGroup := root.Group(group.prefix, group.middlewares...)
		for _, api := range group.routes {
			if !routeMethods[api.method] {
				panic(fmt.Errorf("createEndpoint: unsupported method %s for %s%s", api.method, group.prefix, api.path))
			}
			key := api.method + " " + group.prefix + api.path
			if seen[key] {
				panic(fmt.Errorf("createEndpoint: duplicated route %s", key))
			}
			seen[key] = true
			routes = append(routes, echoGroup.Add(api.method, api.path, api.handler, api.middlewares...))
		}
	}
	return routes
}
