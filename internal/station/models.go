// Package station 定义电台列表与单台流信息的领域模型，以及从
// {"resultData": ...} 响应中提取它们的解析函数。
package station

import (
	"encoding/json"
	"strings"
)

// Station 对应列表响应 resultData.data 中的一个元素。
type Station struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Dial  string `json:"dial,omitempty"`
	City  string `json:"city,omitempty"`
	State string `json:"state,omitempty"`
	Logo  string `json:"logo,omitempty"`
}

// NewStation 从单个 JSON 对象构造 Station；缺少 id 或 name 时返回 false。
func NewStation(raw json.RawMessage) (Station, bool) {
	var s Station
	if err := json.Unmarshal(raw, &s); err != nil {
		return Station{}, false
	}
	s.Name = strings.TrimSpace(s.Name)
	if s.ID <= 0 || s.Name == "" {
		return Station{}, false
	}
	return s, true
}

// Stream 对应单台响应中的 resultData 对象。
type Stream struct {
	ID        int    `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	StreamURL string `json:"streamUrl"`
	Program   string `json:"program,omitempty"`
	Bitrate   int    `json:"bitrate,omitempty"`
}

// NewStream 从 resultData 对象构造 Stream；没有可播放地址时返回 false。
func NewStream(raw json.RawMessage) (Stream, bool) {
	var s Stream
	if err := json.Unmarshal(raw, &s); err != nil {
		return Stream{}, false
	}
	s.StreamURL = strings.TrimSpace(s.StreamURL)
	if s.StreamURL == "" {
		return Stream{}, false
	}
	return s, true
}
