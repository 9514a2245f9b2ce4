package config

import (
	// 注册内置资源种类（station-list / stream-info），供 Validate 查询。
	_ "github.com/bandradio/radio-cache/internal/station"
)
