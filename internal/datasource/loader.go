// Package datasource 负责把字节从网络或本地缓存搬运到解析函数：
// 网络加载成功且解析通过后，由同一个组件把原始正文写回缓存路径。
package datasource

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bandradio/radio-cache/internal/cache"
	"github.com/bandradio/radio-cache/internal/logging"
	"github.com/bandradio/radio-cache/internal/metrics"
	"github.com/bandradio/radio-cache/internal/resource"
)

// maxBodyBytes 限制单个响应体积，防止异常上游占满内存。
const maxBodyBytes = 8 << 20

// StatusError 表示上游返回了非 2xx 状态码。
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
}

// Loader 共享 http.Client 与磁盘缓存，所有资源种类复用同一实例。
type Loader struct {
	client    *http.Client
	store     cache.Store
	logger    *logrus.Logger
	userAgent string
}

// Option 调整 Loader 的可选行为。
type Option func(*Loader)

// WithUserAgent 设置回源请求的 User-Agent。
func WithUserAgent(ua string) Option {
	return func(l *Loader) { l.userAgent = ua }
}

// NewLoader constructs a loader with a shared HTTP client, store and logger.
func NewLoader(client *http.Client, store cache.Store, logger *logrus.Logger, opts ...Option) (*Loader, error) {
	if store == nil {
		return nil, errors.New("cache store is required")
	}
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = logging.Discard()
	}
	l := &Loader{
		client: client,
		store:  store,
		logger: logger,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Store 返回 Loader 写入的缓存实例。
func (l *Loader) Store() cache.Store {
	return l.store
}

// Fetch 通过网络获取 locator.URL 的正文。非 2xx 返回 *StatusError。
func (l *Loader) Fetch(ctx context.Context, locator cache.Locator) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if l.userAgent != "" {
		req.Header.Set("User-Agent", l.userAgent)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{URL: locator.URL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, err
	}
	if len(body) > maxBodyBytes {
		return nil, fmt.Errorf("GET %s: body exceeds %d bytes", locator.URL, maxBodyBytes)
	}
	return body, nil
}

// ReadLocal 读取 locator 对应的缓存文件。
func (l *Loader) ReadLocal(ctx context.Context, locator cache.Locator) ([]byte, error) {
	result, err := l.store.Get(ctx, locator)
	if err != nil {
		return nil, err
	}
	defer result.Reader.Close()
	return io.ReadAll(result.Reader)
}

// Persist 把网络正文写回缓存路径。
func (l *Loader) Persist(ctx context.Context, locator cache.Locator, body []byte) error {
	_, err := l.store.Put(ctx, locator, bytes.NewReader(body), cache.PutOptions{})
	return err
}

// Load 从网络加载并解析资源；解析成功后写回缓存，写入失败只记录日志。
func Load[T any](ctx context.Context, l *Loader, res resource.Resource[T]) resource.Result[T] {
	locator := LocatorFor(res)
	started := time.Now()

	body, err := l.Fetch(ctx, locator)
	if err != nil {
		result := resource.LoadFailed[T](resource.SourceNetwork, err)
		l.finish(res.Kind, locator, result.Outcome, result.Source, result.Err, result.Dropped, started)
		return result
	}

	result := res.Parse(body)
	result.Source = resource.SourceNetwork

	if result.OK() {
		if err := l.Persist(ctx, locator, body); err != nil {
			metrics.PersistFailuresTotal.WithLabelValues(res.Kind).Inc()
			l.logger.WithError(err).
				WithFields(logrus.Fields{"kind": res.Kind, "locator": locator.String()}).
				Warn("cache_persist_failed")
		}
	}

	l.finish(res.Kind, locator, result.Outcome, result.Source, result.Err, result.Dropped, started)
	return result
}

// LoadLocal 从缓存文件加载并解析资源。
func LoadLocal[T any](ctx context.Context, l *Loader, res resource.Resource[T]) resource.Result[T] {
	locator := LocatorFor(res)
	started := time.Now()

	body, err := l.ReadLocal(ctx, locator)
	if err != nil {
		result := resource.LoadFailed[T](resource.SourceLocal, err)
		l.finish(res.Kind, locator, result.Outcome, result.Source, result.Err, result.Dropped, started)
		return result
	}

	result := res.Parse(body)
	result.Source = resource.SourceLocal
	l.finish(res.Kind, locator, result.Outcome, result.Source, result.Err, result.Dropped, started)
	return result
}

// LocatorFor 把资源描述转换为缓存 Locator。
func LocatorFor[T any](res resource.Resource[T]) cache.Locator {
	locator := cache.NewLocator(res.URL)
	if res.ID != nil {
		locator = locator.WithID(*res.ID)
	}
	return locator
}

func (l *Loader) finish(kind string, locator cache.Locator, outcome resource.Outcome, source resource.Source, err error, dropped int, started time.Time) {
	metrics.RecordLoad(kind, source, outcome)
	if dropped > 0 {
		metrics.DroppedStationsTotal.Add(float64(dropped))
	}

	entry := l.logger.WithFields(logging.LoadFields(kind, locator.String(), string(source), string(outcome))).
		WithField("duration_ms", time.Since(started).Milliseconds())
	if dropped > 0 {
		entry = entry.WithField("dropped", dropped)
	}

	switch outcome {
	case resource.OutcomeOK:
		entry.Debug("load_completed")
	case resource.OutcomeEmpty:
		entry.Info("load_empty")
	default:
		entry.WithError(err).Warn("load_failed")
	}
}
