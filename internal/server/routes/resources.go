package routes

import (
	"sort"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/bandradio/radio-cache/internal/resource"
	"github.com/bandradio/radio-cache/internal/server"
)

// RegisterResourceRoutes 暴露 /-/resources 诊断接口，供运维查询资源种类与配置绑定关系。
func RegisterResourceRoutes(app *fiber.App, registry *server.ResourceRegistry) {
	if app == nil || registry == nil {
		return
	}

	app.Get("/-/resources", func(c fiber.Ctx) error {
		payload := fiber.Map{
			"kinds":     encodeKinds(resource.List()),
			"resources": encodeBindings(registry.List()),
		}
		return c.JSON(payload)
	})

	app.Get("/-/resources/:name", func(c fiber.Ctx) error {
		name := strings.TrimSpace(c.Params("name"))
		if name == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "resource_name_required"})
		}
		route, ok := registry.Lookup(name)
		if !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "resource_not_found"})
		}
		return c.JSON(encodeBinding(*route))
	})
}

type kindPayload struct {
	Key           string `json:"key"`
	Description   string `json:"description"`
	DefaultPolicy string `json:"default_policy"`
	RequiresID    bool   `json:"requires_id"`
}

type bindingPayload struct {
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	URL    string `json:"url"`
	Policy string `json:"policy"`
	Path   string `json:"path"`
}

func encodeKinds(kinds []resource.KindMetadata) []kindPayload {
	if len(kinds) == 0 {
		return nil
	}
	sort.Slice(kinds, func(i, j int) bool {
		return kinds[i].Key < kinds[j].Key
	})
	result := make([]kindPayload, 0, len(kinds))
	for _, meta := range kinds {
		result = append(result, kindPayload{
			Key:           meta.Key,
			Description:   meta.Description,
			DefaultPolicy: string(meta.DefaultPolicy),
			RequiresID:    meta.RequiresID,
		})
	}
	return result
}

func encodeBindings(routes []server.ResourceRoute) []bindingPayload {
	if len(routes) == 0 {
		return nil
	}
	sort.Slice(routes, func(i, j int) bool {
		return routes[i].Config.Name < routes[j].Config.Name
	})
	result := make([]bindingPayload, 0, len(routes))
	for _, route := range routes {
		result = append(result, encodeBinding(route))
	}
	return result
}

func encodeBinding(route server.ResourceRoute) bindingPayload {
	path := "/api/" + route.Config.Name
	if route.Kind.RequiresID {
		path += "/:id"
	}
	return bindingPayload{
		Name:   route.Config.Name,
		Kind:   route.Kind.Key,
		URL:    route.Config.URL,
		Policy: string(route.Policy),
		Path:   path,
	}
}
