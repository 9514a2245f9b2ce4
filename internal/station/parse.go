package station

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bandradio/radio-cache/internal/resource"
)

var (
	// ErrMissingResultData 表示响应中没有 resultData 对象。
	ErrMissingResultData = errors.New("resultData object missing")
	// ErrMissingData 表示 resultData 中没有对象数组 data。
	ErrMissingData = errors.New("resultData.data array of objects missing")
	// ErrInvalidStream 表示 resultData 无法构造出 Stream。
	ErrInvalidStream = errors.New("resultData is not a playable stream")
)

// ExtractStations 解析列表响应。resultData 或 data 缺失/类型不符时返回 Empty，
// data 中无法构造的电台对象被丢弃并计入 Dropped。
func ExtractStations(data []byte) resource.Result[[]Station] {
	resultData, err := decodeResultData(data)
	if err != nil {
		return resource.ParseFailed[[]Station](err)
	}
	if resultData == nil {
		return resource.Empty[[]Station](ErrMissingResultData)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(resultData, &fields); err != nil {
		return resource.Empty[[]Station](ErrMissingData)
	}
	items, ok := objectArray(fields["data"])
	if !ok {
		return resource.Empty[[]Station](ErrMissingData)
	}

	stations := make([]Station, 0, len(items))
	dropped := 0
	for _, item := range items {
		s, ok := NewStation(item)
		if !ok {
			dropped++
			continue
		}
		stations = append(stations, s)
	}

	result := resource.Ok(stations)
	result.Dropped = dropped
	return result
}

// ParseStream 解析单台流信息响应。
func ParseStream(data []byte) resource.Result[Stream] {
	resultData, err := decodeResultData(data)
	if err != nil {
		return resource.ParseFailed[Stream](err)
	}
	if resultData == nil || !isObject(resultData) {
		return resource.Empty[Stream](ErrMissingResultData)
	}

	stream, ok := NewStream(resultData)
	if !ok {
		return resource.Empty[Stream](ErrInvalidStream)
	}
	return resource.Ok(stream)
}

// decodeResultData 要求顶层是 JSON 对象，返回其中的 resultData（不存在时为 nil）。
func decodeResultData(data []byte) (json.RawMessage, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if top == nil {
		return nil, errors.New("decode response: top-level value is null")
	}
	raw, ok := top["resultData"]
	if !ok || !isObject(raw) {
		return nil, nil
	}
	return raw, nil
}

// objectArray 仅在 raw 是“全部元素都是对象”的数组时返回 true。
func objectArray(raw json.RawMessage) ([]json.RawMessage, bool) {
	if raw == nil {
		return nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil || items == nil {
		return nil, false
	}
	for _, item := range items {
		if !isObject(item) {
			return nil, false
		}
	}
	return items, true
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}
