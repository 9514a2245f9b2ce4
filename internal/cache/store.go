package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strconv"
	"time"
)

// Store 负责管理磁盘缓存的路径解析与读写。磁盘布局遵循：
//
//	<StoragePath>/<AppID>/<segment>        # 无 id 的资源（例如电台列表）
//	<StoragePath>/<AppID>/<segment>-<id>   # 带 id 的资源（例如单个电台的流信息）
//
// 每个条目仅由原始正文组成，没有元数据文件；文件存在即视为命中。
type Store interface {
	// Resolve 计算 locator 对应的本地路径，并在每次调用时确保缓存目录存在。
	// 目录创建失败会被忽略，只有 locator 本身非法时才返回错误。
	Resolve(locator Locator) (string, error)

	// Exists 判断解析后的路径上是否存在普通文件。
	Exists(locator Locator) bool

	// Get 返回一个可流式读取的缓存条目。若不存在则返回 ErrNotFound。
	Get(ctx context.Context, locator Locator) (*ReadResult, error)

	// Put 将上游响应写入缓存，并产出新的 Entry 描述。写入通过 pending file +
	// rename 完成，失败时清理临时文件。可选地根据 opts.ModTime 设置文件时间戳。
	Put(ctx context.Context, locator Locator, body io.Reader, opts PutOptions) (*Entry, error)

	// Dir 返回当前应用的缓存目录。
	Dir() string
}

// PutOptions 控制写入过程中的可选属性。
type PutOptions struct {
	ModTime time.Time
}

// Locator 唯一定位一个缓存条目：远端 URL + 可选的数字 id。
type Locator struct {
	URL string
	ID  *int
}

// NewLocator 构造不带 id 的 Locator。
func NewLocator(rawURL string) Locator {
	return Locator{URL: rawURL}
}

// WithID 返回附带 id 的副本，原 Locator 不受影响。
func (l Locator) WithID(id int) Locator {
	l.ID = &id
	return l
}

// Key 生成缓存文件名：URL 最后一段，或 "最后一段-id"。
// 最后一段保持转义后的原样，不做百分号解码或大小写折叠。
func (l Locator) Key() (string, error) {
	u, err := url.Parse(l.URL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidLocator, err)
	}

	segment := path.Base(u.EscapedPath())
	switch segment {
	case "", ".", "..", "/":
		return "", fmt.Errorf("%w: %q has no final path segment", ErrInvalidLocator, l.URL)
	}

	if l.ID == nil {
		return segment, nil
	}
	if *l.ID < 0 {
		return "", fmt.Errorf("%w: negative id %d", ErrInvalidLocator, *l.ID)
	}
	return segment + "-" + strconv.Itoa(*l.ID), nil
}

// String 输出便于日志记录的形式。
func (l Locator) String() string {
	if l.ID == nil {
		return l.URL
	}
	return l.URL + "#" + strconv.Itoa(*l.ID)
}

// Entry 表示一次缓存命中结果，包含绝对文件路径及文件信息。
type Entry struct {
	Locator   Locator `json:"locator"`
	FilePath  string  `json:"file_path"`
	SizeBytes int64   `json:"size_bytes"`
	ModTime   time.Time
}

// ReadResult 组合 Entry 与正文 Reader。
type ReadResult struct {
	Entry  Entry
	Reader io.ReadSeekCloser
}

var (
	// ErrNotFound 表示缓存不存在。
	ErrNotFound = errors.New("cache entry not found")
	// ErrInvalidLocator 表示 URL 无法映射成缓存文件名。
	ErrInvalidLocator = errors.New("invalid cache locator")
)
