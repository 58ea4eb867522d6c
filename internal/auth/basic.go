package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"
)

// 认证相关错误定义
var (
	ErrEmptyUsername = errors.New("username cannot be empty")
	ErrEmptyPassword = errors.New("password cannot be empty")
)

// basicAuthenticator 代表Basic Auth认证实现
type basicAuthenticator struct {
	username string // 期望的用户名
	password string // 期望的密码
}

// NewBasicAuthenticator 创建新的Basic Auth认证器
// username: 期望的用户名
// password: 期望的密码
func NewBasicAuthenticator(username, password string) (Authenticator, error) {
	if username == "" {
		return nil, ErrEmptyUsername
	}
	if password == "" {
		return nil, ErrEmptyPassword
	}

	return &basicAuthenticator{
		username: username,
		password: password,
	}, nil
}

// Verify 校验HTTP请求携带的Basic Auth凭据
// req: 待校验的HTTP请求
func (a *basicAuthenticator) Verify(req *http.Request) error {
	if req == nil {
		return errors.New("request cannot be nil")
	}

	username, password, ok := req.BasicAuth()
	if !ok {
		return ErrMissingCredentials
	}

	// 常量时间比较，避免时序侧信道
	usernameMatch := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
	passwordMatch := subtle.ConstantTimeCompare([]byte(password), []byte(a.password)) == 1
	if !usernameMatch || !passwordMatch {
		return ErrInvalidCredentials
	}
	return nil
}

// Type 获取认证器类型
func (a *basicAuthenticator) Type() string {
	return "basic"
}
