// Package openapi describes the mounted HTTP routes as an OpenAPI 3.0
// document.
package openapi

import (
	"net/http"
	"sort"
	"strings"

	"github.com/labstack/echo/v4"
)

var methods = map[string]bool{
	http.MethodGet: true, http.MethodPost: true, http.MethodPut: true,
	http.MethodPatch: true, http.MethodDelete: true,
}

// Generator builds the document from the routes registered on an echo
// instance.
type Generator struct {
	routes  func() []*echo.Route
	version string
	baseURL string
	public  func(method, path string) bool
}

// NewGenerator returns a Generator over e's routes. public reports which
// routes need no bearer token; nil marks every route as protected.
func NewGenerator(e *echo.Echo, version, baseURL string, public func(method, path string) bool) *Generator {
	if public == nil {
		public = func(string, string) bool { return false }
	}
	return &Generator{routes: e.Routes, version: version, baseURL: baseURL, public: public}
}

// GenerateSpec produces the OpenAPI document as a map.
func (g *Generator) GenerateSpec() map[string]interface{} {
	paths := make(map[string]map[string]interface{})
	tagSet := make(map[string]bool)

	for _, r := range g.routes() {
		if !methods[r.Method] || strings.HasSuffix(r.Path, "*") {
			continue
		}
		path, params := convertPath(r.Path)
		tag := tagFor(r.Path)
		tagSet[tag] = true

		op := map[string]interface{}{
			"operationId": operationID(r.Method, r.Path),
			"tags":        []string{tag},
			"responses":   responsesFor(r.Method),
		}
		if len(params) > 0 {
			op["parameters"] = params
		}
		if !g.public(r.Method, r.Path) {
			op["security"] = []map[string][]string{{"bearerAuth": {}}}
		}
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			op["requestBody"] = map[string]interface{}{
				"content": map[string]interface{}{
					"application/json": map[string]interface{}{
						"schema": map[string]string{"type": "object"},
					},
				},
			}
		}

		if paths[path] == nil {
			paths[path] = make(map[string]interface{})
		}
		paths[path][strings.ToLower(r.Method)] = op
	}

	tags := make([]map[string]string, 0, len(tagSet))
	for name := range tagSet {
		tags = append(tags, map[string]string{"name": name})
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i]["name"] < tags[j]["name"] })

	return map[string]interface{}{
		"openapi": "3.0.3",
		"info": map[string]interface{}{
			"title":       "Appointix API",
			"version":     g.version,
			"description": "Doctor directory and appointment booking",
		},
		"servers": []map[string]string{{"url": g.baseURL}},
		"paths":   paths,
		"tags":    tags,
		"components": map[string]interface{}{
			"securitySchemes": map[string]interface{}{
				"bearerAuth": map[string]string{
					"type":         "http",
					"scheme":       "bearer",
					"bearerFormat": "JWT",
				},
			},
			"schemas": map[string]interface{}{
				"Error": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"message": map[string]string{"type": "string"},
					},
				},
			},
		},
	}
}

// convertPath turns echo's ":name" segments into "{name}" and returns the
// matching path parameters.
func convertPath(p string) (string, []map[string]interface{}) {
	segs := strings.Split(p, "/")
	var params []map[string]interface{}
	for i, s := range segs {
		if strings.HasPrefix(s, ":") {
			name := s[1:]
			segs[i] = "{" + name + "}"
			params = append(params, map[string]interface{}{
				"name":     name,
				"in":       "path",
				"required": true,
				"schema":   map[string]string{"type": "string"},
			})
		}
	}
	return strings.Join(segs, "/"), params
}

func tagFor(p string) string {
	rest := strings.TrimPrefix(p, "/api/")
	if rest == p {
		return "system"
	}
	if i := strings.Index(rest, "/"); i >= 0 {
		rest = rest[:i]
	}
	switch rest {
	case "register", "login":
		return "auth"
	}
	return rest
}

func operationID(method, p string) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(method))
	for _, s := range strings.Split(p, "/") {
		s = strings.TrimPrefix(s, ":")
		if s == "" || s == "api" {
			continue
		}
		for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == '-' || r == '_' }) {
			b.WriteString(strings.ToUpper(part[:1]) + part[1:])
		}
	}
	return b.String()
}

func responsesFor(method string) map[string]interface{} {
	errRef := map[string]interface{}{
		"content": map[string]interface{}{
			"application/json": map[string]interface{}{
				"schema": map[string]string{"$ref": "#/components/schemas/Error"},
			},
		},
	}
	ok := "200"
	if method == http.MethodPost {
		ok = "201"
	}
	return map[string]interface{}{
		ok:        map[string]string{"description": "Success"},
		"400":     withDescription(errRef, "Invalid input"),
		"default": withDescription(errRef, "Error"),
	}
}

func withDescription(base map[string]interface{}, desc string) map[string]interface{} {
	out := map[string]interface{}{"description": desc}
	for k, v := range base {
		out[k] = v
	}
	return out
}

const swaggerUIHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>Appointix API Docs</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({
      url: "/openapi.json",
      dom_id: "#swagger-ui",
      presets: [SwaggerUIBundle.presets.apis],
    })
  </script>
</body>
</html>`

// RegisterRoutes registers the OpenAPI endpoints.
func (g *Generator) RegisterRoutes(e *echo.Echo) {
	e.GET("/openapi.json", func(c echo.Context) error {
		return c.JSON(http.StatusOK, g.GenerateSpec())
	})
	e.GET("/docs", func(c echo.Context) error {
		return c.HTML(http.StatusOK, swaggerUIHTML)
	})
}
