package server

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/bandradio/radio-cache/internal/logging"
	"github.com/bandradio/radio-cache/internal/station"
)

// ResourceHandler 负责把一个已解析的资源请求渲染为响应，测试时可注入假实现。
type ResourceHandler interface {
	Handle(fiber.Ctx, *ResourceRoute) error
}

// ResourceHandlerFunc adapts a function to the ResourceHandler interface.
type ResourceHandlerFunc func(fiber.Ctx, *ResourceRoute) error

// Handle makes ResourceHandlerFunc satisfy ResourceHandler.
func (f ResourceHandlerFunc) Handle(c fiber.Ctx, route *ResourceRoute) error {
	return f(c, route)
}

// Dispatcher 根据 ResourceRoute 的种类选择对应的 ResourceHandler。
type Dispatcher struct {
	handlers sync.Map
	logger   *logrus.Logger
}

// NewDispatcher 创建 Dispatcher 并注册内置种类（station-list、stream-info）的处理器。
func NewDispatcher(logger *logrus.Logger) *Dispatcher {
	d := &Dispatcher{logger: logger}
	d.MustRegister(station.KindList, ResourceHandlerFunc(d.serveStationList))
	d.MustRegister(station.KindStream, ResourceHandlerFunc(d.serveStreamInfo))
	return d
}

// Register 为种类绑定处理器，重复注册返回错误。
func (d *Dispatcher) Register(kind string, handler ResourceHandler) error {
	key := normalizeKindKey(kind)
	if key == "" {
		return fmt.Errorf("kind is required")
	}
	if handler == nil {
		return fmt.Errorf("kind %s: handler is required", key)
	}
	if _, loaded := d.handlers.LoadOrStore(key, handler); loaded {
		return fmt.Errorf("kind %s already has a handler", key)
	}
	return nil
}

// MustRegister 在注册失败时 panic。
func (d *Dispatcher) MustRegister(kind string, handler ResourceHandler) {
	if err := d.Register(kind, handler); err != nil {
		panic(err)
	}
}

// Handle 实现 ResourceHandler，根据 route.Kind 选择 handler。
func (d *Dispatcher) Handle(c fiber.Ctx, route *ResourceRoute) error {
	requestID := RequestID(c)
	handler := d.lookup(route)
	if handler == nil {
		return d.respondMissingHandler(c, route, requestID)
	}
	return d.invokeHandler(c, route, handler, requestID)
}

func (d *Dispatcher) lookup(route *ResourceRoute) ResourceHandler {
	if route == nil {
		return nil
	}
	if value, ok := d.handlers.Load(normalizeKindKey(route.Kind.Key)); ok {
		if handler, ok := value.(ResourceHandler); ok {
			return handler
		}
	}
	return nil
}

func (d *Dispatcher) respondMissingHandler(c fiber.Ctx, route *ResourceRoute, requestID string) error {
	d.logKindError(route, "kind_handler_missing", nil, requestID)
	return c.Status(fiber.StatusInternalServerError).
		JSON(fiber.Map{"error": "kind_handler_missing"})
}

func (d *Dispatcher) invokeHandler(c fiber.Ctx, route *ResourceRoute, handler ResourceHandler, requestID string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logKindError(route, "kind_handler_panic", fmt.Errorf("panic: %v", r), requestID)
			err = c.Status(fiber.StatusInternalServerError).
				JSON(fiber.Map{"error": "kind_handler_panic"})
		}
	}()
	return handler.Handle(c, route)
}

func (d *Dispatcher) logKindError(route *ResourceRoute, code string, err error, requestID string) {
	if d.logger == nil {
		return
	}
	fields := logrus.Fields{"action": "dispatch", "error": code}
	if route != nil {
		fields = logging.RequestFields(route.Config.Name, route.Kind.Key, string(route.Policy), requestID)
		fields["error"] = code
	}
	if err != nil {
		fields["detail"] = err.Error()
	}
	d.logger.WithFields(fields).Error("dispatch_failed")
}

func normalizeKindKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
