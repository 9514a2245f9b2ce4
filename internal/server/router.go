package server

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// AppOptions controls how the Fiber application should behave on a specific port.
type AppOptions struct {
	Logger     *logrus.Logger
	Registry   *ResourceRegistry
	Handler    ResourceHandler
	ListenPort int
}

const (
	contextKeyRoute     = "_radiocache_route"
	contextKeyRequestID = "_radiocache_request_id"
)

// NewApp builds a Fiber application with request-ID middleware, resource
// lookup by name and structured error handling.
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Registry == nil {
		return nil, errors.New("resource registry is required")
	}
	if opts.Handler == nil {
		return nil, errors.New("resource handler is required")
	}
	if opts.ListenPort <= 0 {
		return nil, fmt.Errorf("invalid listen port: %d", opts.ListenPort)
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
		ErrorHandler:  errorHandler(opts.Logger),
	})

	app.Use(recover.New())
	app.Use(requestIDMiddleware())

	resolve := resolveResource(opts)
	serve := func(c fiber.Ctx) error {
		route, _ := getRouteFromContext(c)
		if route == nil {
			return renderResourceUnknown(c, opts.Logger, c.Params("name"), opts.ListenPort)
		}
		return opts.Handler.Handle(c, route)
	}
	app.Get("/api/:name", resolve, serve)
	app.Get("/api/:name/:id", resolve, serve)

	return app, nil
}

// requestIDMiddleware 为每个请求生成 ID，并写入响应头。
func requestIDMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		reqID := uuid.NewString()
		c.Locals(contextKeyRequestID, reqID)
		c.Set("X-Request-ID", reqID)
		return c.Next()
	}
}

// resolveResource 根据 :name 查找 ResourceRoute，并校验路径形态与资源种类是否匹配。
func resolveResource(opts AppOptions) fiber.Handler {
	return func(c fiber.Ctx) error {
		name := c.Params("name")
		route, ok := opts.Registry.Lookup(name)
		if !ok {
			return renderResourceUnknown(c, opts.Logger, name, opts.ListenPort)
		}
		hasID := c.Params("id") != ""
		if hasID != route.Kind.RequiresID {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "resource_kind_mismatch",
				"kind":  route.Kind.Key,
			})
		}

		c.Locals(contextKeyRoute, route)
		return c.Next()
	}
}

func renderResourceUnknown(c fiber.Ctx, logger *logrus.Logger, name string, port int) error {
	logger.WithFields(logrus.Fields{
		"action":     "resource_lookup",
		"resource":   name,
		"port":       port,
		"request_id": RequestID(c),
	}).Warn("resource unknown")

	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error": "resource_unknown",
	})
}

// errorHandler 统一以 JSON 输出 Fiber 内部错误（未匹配路由、panic 等）。
func errorHandler(logger *logrus.Logger) fiber.ErrorHandler {
	return func(c fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			code = fiberErr.Code
		}
		if code == fiber.StatusNotFound {
			return c.Status(code).JSON(fiber.Map{"error": "not_found"})
		}
		logger.WithError(err).
			WithFields(logrus.Fields{"action": "http", "status": code, "request_id": RequestID(c)}).
			Error("request failed")
		return c.Status(code).JSON(fiber.Map{"error": "internal_error"})
	}
}

func getRouteFromContext(c fiber.Ctx) (*ResourceRoute, bool) {
	if value := c.Locals(contextKeyRoute); value != nil {
		if route, ok := value.(*ResourceRoute); ok {
			return route, true
		}
	}
	return nil, false
}

// RequestID returns the request identifier stored by the router middleware.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}
