package server

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/bandradio/radio-cache/internal/config"
	"github.com/bandradio/radio-cache/internal/datasource"
	"github.com/bandradio/radio-cache/internal/radiocache"
	"github.com/bandradio/radio-cache/internal/resource"
	"github.com/bandradio/radio-cache/internal/station"
)

// ResourceRoute 将资源配置与派生属性（种类元数据、生效策略、专属 Cache）聚合在一起，
// 供路由/分发层直接复用，避免重复解析配置。
type ResourceRoute struct {
	// Config 是用户在 config.toml 中声明的 Resource 字段副本。
	Config config.ResourceConfig
	// ListenPort 记录当前监听端口，方便日志输出。
	ListenPort int
	// Kind 记录资源种类的静态元数据。
	Kind resource.KindMetadata
	// Policy 是种类默认策略与资源覆盖后的最终结果。
	Policy resource.Policy
	// Cache 按 Policy 构造，多个资源共享同一个 Loader 与磁盘目录。
	Cache *radiocache.Cache
}

// ResourceRegistry 提供名称到 ResourceRoute 的查询能力。
type ResourceRegistry struct {
	routes  map[string]*ResourceRoute
	ordered []*ResourceRoute
}

// NewResourceRegistry 根据配置构建名称映射。调用方应在启动阶段创建一次并复用。
func NewResourceRegistry(cfg *config.Config, loader *datasource.Loader, logger *logrus.Logger) (*ResourceRegistry, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if loader == nil {
		return nil, errors.New("loader is nil")
	}

	registry := &ResourceRegistry{
		routes: make(map[string]*ResourceRoute, len(cfg.Resources)),
	}

	for _, res := range cfg.Resources {
		name := normalizeName(res.Name)
		if name == "" {
			return nil, errors.New("resource name is required")
		}
		if _, exists := registry.routes[name]; exists {
			return nil, fmt.Errorf("duplicate resource name detected for %s", name)
		}

		route, err := buildResourceRoute(cfg, res, loader, logger)
		if err != nil {
			return nil, err
		}

		registry.routes[name] = route
		registry.ordered = append(registry.ordered, route)
	}

	return registry, nil
}

// Lookup 根据资源名称查找 ResourceRoute，名称比较忽略大小写。
func (r *ResourceRegistry) Lookup(name string) (*ResourceRoute, bool) {
	if r == nil {
		return nil, false
	}
	route, ok := r.routes[normalizeName(name)]
	return route, ok
}

// List 返回当前注册的 ResourceRoute 列表（按配置定义的顺序），用于诊断输出。
func (r *ResourceRegistry) List() []ResourceRoute {
	if r == nil || len(r.ordered) == 0 {
		return nil
	}

	result := make([]ResourceRoute, len(r.ordered))
	for i, route := range r.ordered {
		result[i] = *route
	}
	return result
}

// Wait 等待所有资源上已调度的后台加载结束，用于优雅退出。
func (r *ResourceRegistry) Wait() {
	if r == nil {
		return
	}
	for _, route := range r.ordered {
		route.Cache.Wait()
	}
}

func buildResourceRoute(cfg *config.Config, res config.ResourceConfig, loader *datasource.Loader, logger *logrus.Logger) (*ResourceRoute, error) {
	meta, ok := resource.Resolve(res.Kind)
	if !ok {
		return nil, fmt.Errorf("resource %s: unknown kind %q", res.Name, res.Kind)
	}

	policy := res.PolicyValue()
	opts := radiocache.Options{Loader: loader, Logger: logger}
	switch meta.Key {
	case station.KindList:
		opts.ListPolicy = policy
	case station.KindStream:
		opts.StreamPolicy = policy
	}

	fetcher, err := radiocache.New(opts)
	if err != nil {
		return nil, fmt.Errorf("resource %s: %w", res.Name, err)
	}

	return &ResourceRoute{
		Config:     res,
		ListenPort: cfg.Global.ListenPort,
		Kind:       meta,
		Policy:     policy,
		Cache:      fetcher,
	}, nil
}

func normalizeName(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
