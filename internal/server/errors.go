package server

import (
	"errors"

	"github.com/flowfence/flowfence-go/internal/constants"
)

// 服务器相关错误定义
var (
	ErrServerAlreadyStarted = errors.New(constants.ErrMsgServerAlreadyStarted)
	ErrServerNotStarted     = errors.New(constants.ErrMsgServerNotStarted)
	ErrUnknownLimiter       = errors.New("unknown limiter")
	ErrNoLimiters           = errors.New("at least one limiter must be configured")
)
