package config

import (
	"testing"
	"time"
)

func TestLoadFailsWithMissingFields(t *testing.T) {
	if _, err := Load(testConfigPath(t, "missing.toml")); err == nil {
		t.Fatalf("缺失字段的配置应返回错误")
	}
}

func TestLoadRejectsInvalidDuration(t *testing.T) {
	cfg := `
LogLevel = "info"
StoragePath = "./data"
AppID = "radio"
UpstreamTimeout = "boom"

[[Resource]]
Name = "stations"
Kind = "station-list"
URL = "https://api.example.com/stations.json"
`
	path := writeTempConfig(t, cfg)
	if _, err := Load(path); err == nil {
		t.Fatalf("无效 Duration 应失败")
	}
}

func TestLoadAcceptsSecondsDuration(t *testing.T) {
	cfg := `
StoragePath = "./data"
AppID = "radio"
UpstreamTimeout = 5

[[Resource]]
Name = "stream"
Kind = "stream-info"
URL = "https://api.example.com/stream"
Policy = "REFRESH"
`
	loaded, err := Load(writeTempConfig(t, cfg))
	if err != nil {
		t.Fatalf("Load 返回错误: %v", err)
	}
	if loaded.Global.UpstreamTimeout.DurationValue() != 5*time.Second {
		t.Fatalf("整数秒应解析为 5s, got %s", loaded.Global.UpstreamTimeout.DurationValue())
	}
	if loaded.Resources[0].Policy != "refresh" {
		t.Fatalf("Policy 应被标准化, got %s", loaded.Resources[0].Policy)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("RADIO_CACHE_APPID", "from-env")
	loaded, err := Load(testConfigPath(t, "valid.toml"))
	if err != nil {
		t.Fatalf("Load 返回错误: %v", err)
	}
	if loaded.Global.AppID != "from-env" {
		t.Fatalf("环境变量应覆盖 AppID, got %s", loaded.Global.AppID)
	}
}

func TestDurationUnmarshalText(t *testing.T) {
	var d Duration
	if err := d.UnmarshalText([]byte("90")); err != nil || d.DurationValue() != 90*time.Second {
		t.Fatalf("unexpected result: %s, %v", d.DurationValue(), err)
	}
	if err := d.UnmarshalText([]byte("1m30s")); err != nil || d.DurationValue() != 90*time.Second {
		t.Fatalf("unexpected result: %s, %v", d.DurationValue(), err)
	}
	if err := d.UnmarshalText([]byte("soon")); err == nil {
		t.Fatalf("invalid duration should fail")
	}
}
