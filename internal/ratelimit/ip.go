package ratelimit

import (
	"net"
	"net/http"
	"strings"

	"github.com/flowfence/flowfence-go/internal/constants"
)

// KeyFunc 代表客户端键提取函数，从HTTP请求派生限流主体标识
type KeyFunc func(req *http.Request) string

// DefaultKeyFunc 默认的客户端键提取函数
//
// 依次尝试X-Forwarded-For链中最左侧的条目（须为有效IP）、X-Real-IP头部、
// 对端地址，全部失败时返回"unknown"。注意：X-Forwarded-For链
// 只有在服务器明确知道自己的前置代理时才可信，直接暴露在公网
// 的部署应使用自定义KeyFunc。
func DefaultKeyFunc(req *http.Request) string {
	// 优先检查X-Forwarded-For头部
	if xff := req.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := parseFirstIP(xff); ip != "" {
			return ip
		}
	}

	// 检查X-Real-IP头部
	if xri := req.Header.Get("X-Real-IP"); xri != "" {
		if ip := net.ParseIP(strings.TrimSpace(xri)); ip != nil {
			return ip.String()
		}
	}

	// 使用对端地址
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		host = req.RemoteAddr
	}
	if host != "" {
		return host
	}

	return constants.UnknownClientKey
}

// parseFirstIP 解析转发链中第一个非空条目，该条目是有效IP时返回它，
// 否则返回空字符串（不会继续尝试后续条目）
func parseFirstIP(xff string) string {
	for _, part := range strings.Split(xff, ",") {
		candidate := strings.TrimSpace(part)
		if candidate == "" {
			continue
		}
		if ip := net.ParseIP(candidate); ip != nil {
			return ip.String()
		}
		// 链中首个条目无效时不再信任后续条目
		break
	}
	return ""
}
