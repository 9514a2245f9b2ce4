package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// LoadFields 提供 kind/locator/source/outcome 字段，供加载日志复用。
func LoadFields(kind, locator, source, outcome string) logrus.Fields {
	return logrus.Fields{
		"action":  "load",
		"kind":    kind,
		"locator": locator,
		"source":  source,
		"outcome": outcome,
	}
}

// LookupFields 描述一次缓存路径解析与命中判断。
func LookupFields(kind, locator, path string, cacheHit bool) logrus.Fields {
	return logrus.Fields{
		"action":    "lookup",
		"kind":      kind,
		"locator":   locator,
		"path":      path,
		"cache_hit": cacheHit,
	}
}

// RequestFields 描述一次 HTTP 请求命中的资源，供路由与分发日志复用。
func RequestFields(resourceName, kind, policy, requestID string) logrus.Fields {
	fields := logrus.Fields{
		"action":   "serve",
		"resource": resourceName,
		"kind":     kind,
		"policy":   policy,
	}
	if requestID != "" {
		fields["request_id"] = requestID
	}
	return fields
}
