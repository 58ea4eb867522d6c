// Package auth 提供管理端点的请求认证
package auth

import (
	"net/http"

	"github.com/flowfence/flowfence-go/internal/config"
)

// Authenticator 代表认证器接口，定义HTTP请求认证的行为
type Authenticator interface {
	// Verify 校验HTTP请求携带的认证信息
	// req: 待校验的HTTP请求
	Verify(req *http.Request) error

	// Type 获取认证器类型
	Type() string
}

// AuthenticatorFactory 代表认证器工厂接口
type AuthenticatorFactory interface {
	// Create 根据配置创建认证器
	// authConfig: 认证配置信息
	Create(authConfig *config.AuthConfig) (Authenticator, error)
}
