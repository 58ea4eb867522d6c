package constants

const (
	// Error messages - 错误消息

	// ErrMsgServerAlreadyStarted 服务器已启动错误消息
	ErrMsgServerAlreadyStarted = "server already started"

	// ErrMsgServerNotStarted 服务器未启动错误消息
	ErrMsgServerNotStarted = "server not started"

	// ErrMsgNilBackend 空存储后端错误消息
	ErrMsgNilBackend = "storage backend cannot be nil"

	// ErrMsgNilConfig 空配置错误消息
	ErrMsgNilConfig = "config cannot be nil"

	// ErrMsgNilClock 空时钟错误消息
	ErrMsgNilClock = "clock cannot be nil"

	// ErrMsgBackendClosed 存储后端已关闭错误消息
	ErrMsgBackendClosed = "storage backend is closed"
)

const (
	// Error types for metrics - 指标错误类型

	// ErrorTypeBackend 存储后端错误类型
	ErrorTypeBackend = "backend_error"

	// ErrorTypeBreakerOpen 熔断器开启错误类型
	ErrorTypeBreakerOpen = "breaker_open"

	// ErrorTypeUnknown 未知错误类型
	ErrorTypeUnknown = "unknown"
)
