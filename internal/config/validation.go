package config

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/bandradio/radio-cache/internal/resource"
)

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError("Global.ListenPort", "必须在 1-65535")
	}
	if g.StoragePath == "" {
		return newFieldError("Global.StoragePath", "不能为空")
	}
	if err := validateAppID(g.AppID); err != nil {
		return newFieldError("Global.AppID", err.Error())
	}
	if g.UpstreamTimeout.DurationValue() <= 0 {
		return newFieldError("Global.UpstreamTimeout", "必须大于 0")
	}

	if len(c.Resources) == 0 {
		return errors.New("至少需要配置一个 Resource")
	}

	seenNames := map[string]struct{}{}
	for i := range c.Resources {
		res := &c.Resources[i]
		if res.Name == "" {
			return newFieldError("Resource[].Name", "不能为空")
		}
		if strings.ContainsAny(res.Name, "/ ") {
			return newFieldError(resourceField(res.Name, "Name"), "不允许包含 / 或空格")
		}
		key := strings.ToLower(res.Name)
		if _, exists := seenNames[key]; exists {
			return newFieldError(resourceField(res.Name, "Name"), "重复")
		}
		seenNames[key] = struct{}{}

		kind := strings.ToLower(strings.TrimSpace(res.Kind))
		if kind == "" {
			return newFieldError(resourceField(res.Name, "Kind"), "不能为空")
		}
		if _, ok := resource.Resolve(kind); !ok {
			return newFieldError(resourceField(res.Name, "Kind"), "仅支持 "+strings.Join(resource.Keys(), "|"))
		}
		res.Kind = kind

		if res.Policy != "" {
			policy, err := resource.ParsePolicy(res.Policy)
			if err != nil {
				return newFieldError(resourceField(res.Name, "Policy"), "仅支持 refresh/cache-first")
			}
			res.Policy = string(policy)
		}

		if err := validateResourceURL(res.URL); err != nil {
			return fmt.Errorf("%s: %w", resourceField(res.Name, "URL"), err)
		}
	}

	return nil
}

func validateAppID(appID string) error {
	if appID == "" {
		return errors.New("不能为空")
	}
	if strings.ContainsAny(appID, `/\`) || appID == "." || appID == ".." {
		return errors.New("必须是单级目录名")
	}
	return nil
}

func validateResourceURL(raw string) error {
	if raw == "" {
		return errors.New("URL 不能为空")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("无法解析 URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.New("仅支持 http/https")
	}
	if parsed.Host == "" {
		return errors.New("缺少 Host")
	}
	switch path.Base(parsed.EscapedPath()) {
	case "", ".", "..", "/":
		return errors.New("URL 路径缺少末段，无法生成缓存文件名")
	}
	return nil
}
