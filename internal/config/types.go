package config

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bandradio/radio-cache/internal/resource"
)

// Duration 提供更灵活的反序列化能力，同时兼容纯秒整数与 Go Duration 字符串。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别诸如 "30s"、"5m" 或纯数字秒值等配置写法。
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}

	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}

	if seconds, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*d = Duration(time.Duration(seconds) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// GlobalConfig 描述进程级行为，所有资源共享同一份参数。
type GlobalConfig struct {
	ListenPort    int    `mapstructure:"ListenPort"`
	LogLevel      string `mapstructure:"LogLevel"`
	LogFormat     string `mapstructure:"LogFormat"`
	LogFilePath   string `mapstructure:"LogFilePath"`
	LogMaxSize    int    `mapstructure:"LogMaxSize"`
	LogMaxBackups int    `mapstructure:"LogMaxBackups"`
	LogCompress   bool   `mapstructure:"LogCompress"`
	// StoragePath 是缓存根目录，AppID 为其下的应用专属子目录。
	StoragePath     string   `mapstructure:"StoragePath"`
	AppID           string   `mapstructure:"AppID"`
	UpstreamTimeout Duration `mapstructure:"UpstreamTimeout"`
	UserAgent       string   `mapstructure:"UserAgent"`
}

// ResourceConfig 声明一个可缓存的远端资源。
type ResourceConfig struct {
	Name   string `mapstructure:"Name"`
	Kind   string `mapstructure:"Kind"`
	URL    string `mapstructure:"URL"`
	Policy string `mapstructure:"Policy"`
}

// Config 是 TOML 文件映射的整体结构。
type Config struct {
	Global    GlobalConfig     `mapstructure:",squash"`
	Resources []ResourceConfig `mapstructure:"Resource"`
}

// CacheDir 返回 <StoragePath>/<AppID>。
func (g GlobalConfig) CacheDir() string {
	return filepath.Join(g.StoragePath, g.AppID)
}

// Resource 按名称查找资源配置，名称比较忽略大小写。
func (c *Config) Resource(name string) (ResourceConfig, bool) {
	if c == nil {
		return ResourceConfig{}, false
	}
	normalized := strings.ToLower(strings.TrimSpace(name))
	for _, res := range c.Resources {
		if strings.ToLower(res.Name) == normalized {
			return res, true
		}
	}
	return ResourceConfig{}, false
}

// PolicyValue 返回生效的策略（假定 Validate 已经通过）。未填写时取资源种类默认值。
func (r ResourceConfig) PolicyValue() resource.Policy {
	if policy, err := resource.ParsePolicy(r.Policy); err == nil {
		return policy
	}
	if meta, ok := resource.Resolve(r.Kind); ok {
		return meta.DefaultPolicy
	}
	return resource.PolicyCacheFirst
}

// ResourceSummaries 返回所有资源的 name:kind:policy 摘要，供启动日志使用。
func ResourceSummaries(resources []ResourceConfig) []string {
	if len(resources) == 0 {
		return nil
	}
	result := make([]string, len(resources))
	for i, res := range resources {
		result[i] = fmt.Sprintf("%s:%s:%s", res.Name, res.Kind, res.PolicyValue())
	}
	return result
}
