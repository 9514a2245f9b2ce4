package resource

import (
	"fmt"
	"strings"
)

// Policy 描述本地命中后是否仍然回源。
type Policy string

const (
	// PolicyRefresh 本地命中后立即回调，同时无条件回源并再次回调。
	PolicyRefresh Policy = "refresh"
	// PolicyCacheFirst 本地命中即结束，仅在未命中时回源。
	PolicyCacheFirst Policy = "cache-first"
)

// ParsePolicy 将配置中的策略字段标准化。
func ParsePolicy(raw string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(raw))) {
	case PolicyRefresh:
		return PolicyRefresh, nil
	case PolicyCacheFirst:
		return PolicyCacheFirst, nil
	default:
		return "", fmt.Errorf("unsupported policy %q (refresh|cache-first)", raw)
	}
}

// KindMetadata 记录一种资源的静态信息，供配置校验、路由和诊断端使用。
type KindMetadata struct {
	Key           string
	Description   string
	DefaultPolicy Policy
	// RequiresID 为 true 时缓存文件名带 "-<id>" 后缀，HTTP 路由也需要 id。
	RequiresID bool
}

// Source 标记一次结果来自磁盘还是网络。
type Source string

const (
	SourceLocal   Source = "local"
	SourceNetwork Source = "network"
)

// Outcome 区分“没有数据”和“数据有问题”。
type Outcome string

const (
	OutcomeOK         Outcome = "ok"
	OutcomeEmpty      Outcome = "empty"
	OutcomeParseError Outcome = "parse_error"
	OutcomeLoadError  Outcome = "load_error"
)

// Result 是一次加载的类型化结果。Value 仅在 Outcome 为 OutcomeOK 时有意义。
type Result[T any] struct {
	Value   T
	Outcome Outcome
	Source  Source
	Err     error
	// Dropped 记录列表解析时被丢弃的元素个数。
	Dropped int
}

// OK 表示结果可用。
func (r Result[T]) OK() bool {
	return r.Outcome == OutcomeOK
}

// Ok 构造成功结果。
func Ok[T any](value T) Result[T] {
	return Result[T]{Value: value, Outcome: OutcomeOK}
}

// Empty 构造“缺少预期字段”的结果。
func Empty[T any](err error) Result[T] {
	return Result[T]{Outcome: OutcomeEmpty, Err: err}
}

// ParseFailed 构造 JSON 无法解析的结果。
func ParseFailed[T any](err error) Result[T] {
	return Result[T]{Outcome: OutcomeParseError, Err: err}
}

// LoadFailed 构造读取或网络失败的结果。
func LoadFailed[T any](source Source, err error) Result[T] {
	return Result[T]{Outcome: OutcomeLoadError, Source: source, Err: err}
}

// Resource 描述一个可从本地或网络加载的类型化负载。
type Resource[T any] struct {
	Kind  string
	URL   string
	ID    *int
	Parse func([]byte) Result[T]
}
