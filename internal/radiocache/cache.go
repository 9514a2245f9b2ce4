// Package radiocache orchestrates the local-first lookup for station lists and
// per-station stream descriptors. A lookup resolves the cache path, serves the
// local copy on a hit, and depending on the resource policy also refreshes
// from the network. Results are delivered through completion callbacks that
// run on background goroutines; the list variant with the refresh policy
// invokes its completion twice on a hit, in no particular order.
package radiocache

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/bandradio/radio-cache/internal/cache"
	"github.com/bandradio/radio-cache/internal/datasource"
	"github.com/bandradio/radio-cache/internal/logging"
	"github.com/bandradio/radio-cache/internal/metrics"
	"github.com/bandradio/radio-cache/internal/resource"
	"github.com/bandradio/radio-cache/internal/station"
)

// Options 汇总 Cache 的依赖与策略。策略为空时取资源种类的默认值。
type Options struct {
	Loader       *datasource.Loader
	Logger       *logrus.Logger
	ListPolicy   resource.Policy
	StreamPolicy resource.Policy
}

// Cache 是电台列表与流信息的本地优先读取入口。
type Cache struct {
	loader       *datasource.Loader
	store        cache.Store
	logger       *logrus.Logger
	listPolicy   resource.Policy
	streamPolicy resource.Policy

	inflight sync.WaitGroup
}

// New 构造 Cache；Loader 不能为空。
func New(opts Options) (*Cache, error) {
	if opts.Loader == nil {
		return nil, errors.New("loader is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	listPolicy, err := policyOrDefault(opts.ListPolicy, station.KindList)
	if err != nil {
		return nil, err
	}
	streamPolicy, err := policyOrDefault(opts.StreamPolicy, station.KindStream)
	if err != nil {
		return nil, err
	}

	return &Cache{
		loader:       opts.Loader,
		store:        opts.Loader.Store(),
		logger:       logger,
		listPolicy:   listPolicy,
		streamPolicy: streamPolicy,
	}, nil
}

// CachePathFor 返回 url（及可选 id）对应的本地缓存路径，并确保缓存目录存在。
func (c *Cache) CachePathFor(rawURL string, id *int) (string, error) {
	locator := cache.NewLocator(rawURL)
	if id != nil {
		locator = locator.WithID(*id)
	}
	return c.store.Resolve(locator)
}

// GetStationList 读取电台列表。本地命中时先回调本地结果；refresh 策略下无论
// 是否命中都会回源并再次回调。completion 在后台 goroutine 中执行。
func (c *Cache) GetStationList(ctx context.Context, rawURL string, completion func(resource.Result[[]station.Station])) {
	schedule(c, ctx, station.ListResource(rawURL), c.listPolicy, completion)
}

// GetStreamInfo 读取单台流信息。cache-first 策略下本地命中即不再回源，
// 整个调用只回调一次。
func (c *Cache) GetStreamInfo(ctx context.Context, rawURL string, id int, completion func(resource.Result[station.Stream])) {
	schedule(c, ctx, station.StreamResource(rawURL, id), c.streamPolicy, completion)
}

// FirstStationList 阻塞直到出现第一份可用列表；若所有加载都不可用，返回最后一次结果。
func (c *Cache) FirstStationList(ctx context.Context, rawURL string) resource.Result[[]station.Station] {
	return first(c, ctx, station.ListResource(rawURL), c.listPolicy)
}

// FirstStreamInfo 是 FirstStationList 的流信息版本。
func (c *Cache) FirstStreamInfo(ctx context.Context, rawURL string, id int) resource.Result[station.Stream] {
	return first(c, ctx, station.StreamResource(rawURL, id), c.streamPolicy)
}

// Wait 阻塞直到所有已调度的加载（及其回调）结束。
func (c *Cache) Wait() {
	c.inflight.Wait()
}

// Policies 返回列表与流信息当前生效的策略。
func (c *Cache) Policies() (list, stream resource.Policy) {
	return c.listPolicy, c.streamPolicy
}

// schedule 按策略安排本地/网络加载，返回将会触发的回调次数。
func schedule[T any](c *Cache, ctx context.Context, res resource.Resource[T], policy resource.Policy, completion func(resource.Result[T])) int {
	locator := datasource.LocatorFor(res)

	path, err := c.store.Resolve(locator)
	if err != nil {
		c.logger.WithError(err).
			WithFields(logrus.Fields{"kind": res.Kind, "locator": locator.String()}).
			Warn("cache_resolve_failed")
		result := resource.LoadFailed[T](resource.SourceLocal, err)
		c.spawn(func() { completion(result) })
		return 1
	}

	hit := c.store.Exists(locator)
	metrics.RecordLookup(res.Kind, hit)
	c.logger.WithFields(logging.LookupFields(res.Kind, locator.String(), path, hit)).
		WithField("policy", string(policy)).
		Debug("cache_lookup")

	scheduled := 0
	if hit {
		c.spawn(func() { completion(datasource.LoadLocal(ctx, c.loader, res)) })
		scheduled++
		if policy == resource.PolicyCacheFirst {
			return scheduled
		}
	}

	c.spawn(func() { completion(datasource.Load(ctx, c.loader, res)) })
	return scheduled + 1
}

func first[T any](c *Cache, ctx context.Context, res resource.Resource[T], policy resource.Policy) resource.Result[T] {
	// 缓冲区足够容纳所有回调，调用方提前返回后 goroutine 也不会阻塞。
	results := make(chan resource.Result[T], 2)
	expected := schedule(c, ctx, res, policy, func(r resource.Result[T]) { results <- r })

	var last resource.Result[T]
	for i := 0; i < expected; i++ {
		select {
		case r := <-results:
			if r.OK() {
				return r
			}
			last = r
		case <-ctx.Done():
			return resource.LoadFailed[T](resource.SourceNetwork, ctx.Err())
		}
	}
	return last
}

func (c *Cache) spawn(fn func()) {
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		fn()
	}()
}

func policyOrDefault(policy resource.Policy, kind string) (resource.Policy, error) {
	if policy != "" {
		return resource.ParsePolicy(string(policy))
	}
	meta, ok := resource.Resolve(kind)
	if !ok {
		return "", errors.New("resource kind not registered: " + kind)
	}
	return meta.DefaultPolicy, nil
}
