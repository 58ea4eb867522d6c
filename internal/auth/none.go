package auth

import (
	"net/http"
)

// noneAuthenticator 代表无认证实现
type noneAuthenticator struct{}

// NewNoneAuthenticator 创建新的无认证认证器
func NewNoneAuthenticator() Authenticator {
	return &noneAuthenticator{}
}

// Verify 无认证实现，任何请求都通过校验
func (a *noneAuthenticator) Verify(req *http.Request) error {
	return nil
}

// Type 获取认证器类型
func (a *noneAuthenticator) Type() string {
	return "none"
}
