package constants

const (
	// Algorithm identifiers - 限流算法标识符

	// AlgorithmTokenBucket 令牌桶算法
	AlgorithmTokenBucket = "TOKEN_BUCKET"

	// AlgorithmLeakingBucket 漏桶算法
	AlgorithmLeakingBucket = "LEAKING_BUCKET"

	// AlgorithmFixedWindow 固定窗口计数算法
	AlgorithmFixedWindow = "FIXED_WINDOW"

	// AlgorithmSlidingWindowLog 滑动窗口日志算法
	AlgorithmSlidingWindowLog = "SLIDING_WINDOW_LOG"

	// AlgorithmSlidingWindowCounter 滑动窗口计数算法
	AlgorithmSlidingWindowCounter = "SLIDING_WINDOW_COUNTER"
)

const (
	// Rate limit response headers - 限流响应头部

	// HeaderRateLimitLimit 限流上限头部
	HeaderRateLimitLimit = "X-RateLimit-Limit"

	// HeaderRateLimitRemaining 剩余配额头部
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"

	// HeaderRateLimitReset 配额重置时间头部（Unix 秒）
	HeaderRateLimitReset = "X-RateLimit-Reset"

	// HeaderRetryAfter 重试等待时间头部（秒）
	HeaderRetryAfter = "Retry-After"
)

const (
	// Rate limit defaults - 限流默认值

	// DefaultRateLimitStatusCode 默认拒绝响应状态码
	DefaultRateLimitStatusCode = 429

	// DefaultRateLimitMessage 默认拒绝响应消息
	DefaultRateLimitMessage = "Too many requests, please try again later."

	// UnknownClientKey 无法识别客户端时使用的键
	UnknownClientKey = "unknown"
)

const (
	// Storage backend types - 存储后端类型

	// StorageTypeMemory 进程内存储后端
	StorageTypeMemory = "memory"

	// StorageTypeRedis Redis分布式存储后端
	StorageTypeRedis = "redis"
)
