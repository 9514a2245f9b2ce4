package station

import "github.com/bandradio/radio-cache/internal/resource"

const (
	// KindList 是电台列表资源的种类键。
	KindList = "station-list"
	// KindStream 是单台流信息资源的种类键。
	KindStream = "stream-info"
)

// 列表默认 refresh：先给出本地副本，再用网络结果刷新；
// 流信息默认 cache-first：命中本地即不再回源。
func init() {
	resource.MustRegister(resource.KindMetadata{
		Key:           KindList,
		Description:   "station list at resultData.data, cached by URL segment",
		DefaultPolicy: resource.PolicyRefresh,
	})
	resource.MustRegister(resource.KindMetadata{
		Key:           KindStream,
		Description:   "per-station stream descriptor at resultData, cached by URL segment + station id",
		DefaultPolicy: resource.PolicyCacheFirst,
		RequiresID:    true,
	})
}

// ListResource 构造电台列表资源描述。
func ListResource(rawURL string) resource.Resource[[]Station] {
	return resource.Resource[[]Station]{
		Kind:  KindList,
		URL:   rawURL,
		Parse: ExtractStations,
	}
}

// StreamResource 构造单台流信息资源描述。
func StreamResource(rawURL string, id int) resource.Resource[Stream] {
	return resource.Resource[Stream]{
		Kind:  KindStream,
		URL:   rawURL,
		ID:    &id,
		Parse: ParseStream,
	}
}
