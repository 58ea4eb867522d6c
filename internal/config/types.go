package config

// Config 代表主配置结构体，包含HTTP服务器、存储后端和限流器的完整配置
type Config struct {
	Server   ServerConfig    `yaml:"server" validate:"required"`
	Storage  StorageConfig   `yaml:"storage"`
	Limiters []LimiterConfig `yaml:"limiters" validate:"required,min=1,dive"`
	Routes   []RouteConfig   `yaml:"routes" validate:"omitempty,dive"`
	Metrics  *MetricsConfig  `yaml:"metrics,omitempty"`
}

// ServerConfig 代表HTTP服务器配置，包含API服务和管理服务设置
type ServerConfig struct {
	API   ListenConfig `yaml:"api"`
	Admin AdminConfig  `yaml:"admin"`
}

// ListenConfig 代表监听配置，定义单个HTTP服务实例的参数
type ListenConfig struct {
	Port    int            `yaml:"port" validate:"omitempty,min=1,max=65535"`
	Address string         `yaml:"address"`
	Timeout *TimeoutConfig `yaml:"timeout,omitempty"`
}

// AdminConfig 代表管理服务配置，用于健康检查、统计快照和监控指标暴露
type AdminConfig struct {
	Port    int            `yaml:"port" validate:"omitempty,min=1,max=65535"`
	Address string         `yaml:"address"`
	Timeout *TimeoutConfig `yaml:"timeout,omitempty"`
	Auth    *AuthConfig    `yaml:"auth,omitempty"`
}

// AuthConfig 代表管理端点的认证配置，支持Bearer Token和Basic Auth
type AuthConfig struct {
	Type     string `yaml:"type,omitempty" validate:"oneof='' none bearer basic,auth_conditional"`
	Token    string `yaml:"token,omitempty"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
}

// TimeoutConfig 代表超时配置，定义各种操作的超时时间（单位：毫秒）
type TimeoutConfig struct {
	Idle  int `yaml:"idle,omitempty" validate:"omitempty,min=1000,max=86400000"`
	Read  int `yaml:"read,omitempty" validate:"omitempty,min=1000,max=86400000"`
	Write int `yaml:"write,omitempty" validate:"omitempty,min=1000,max=86400000"`
}

// StorageConfig 代表存储后端配置
type StorageConfig struct {
	Type              string         `yaml:"type" validate:"omitempty,oneof=memory redis"`
	JanitorIntervalMs int64          `yaml:"janitorIntervalMs,omitempty" validate:"omitempty,min=1000"`
	Redis             *RedisConfig   `yaml:"redis,omitempty"`
	Breaker           *BreakerConfig `yaml:"breaker,omitempty"`
}

// RedisConfig 代表Redis连接配置
type RedisConfig struct {
	Addr         string `yaml:"addr" validate:"required,hostname_port"`
	Password     string `yaml:"password,omitempty"`
	DB           int    `yaml:"db,omitempty" validate:"omitempty,min=0,max=15"`
	PoolSize     int    `yaml:"poolSize,omitempty" validate:"omitempty,min=1,max=1024"`
	MinIdleConns int    `yaml:"minIdleConns,omitempty" validate:"omitempty,min=0,max=1024"`
	DialTimeout  int    `yaml:"dialTimeout,omitempty" validate:"omitempty,min=100,max=60000"`
	ReadTimeout  int    `yaml:"readTimeout,omitempty" validate:"omitempty,min=100,max=60000"`
	WriteTimeout int    `yaml:"writeTimeout,omitempty" validate:"omitempty,min=100,max=60000"`
}

// BreakerConfig 代表存储后端熔断器配置，控制故障时的快速失败行为
type BreakerConfig struct {
	Threshold   float64 `yaml:"threshold,omitempty" validate:"omitempty,gt=0,lte=1"`
	Cooldown    int     `yaml:"cooldown,omitempty" validate:"omitempty,min=1000,max=3600000"`
	MaxRequests uint32  `yaml:"maxRequests,omitempty" validate:"omitempty,min=1,max=100"`
	Interval    int     `yaml:"interval,omitempty" validate:"omitempty,min=1000,max=3600000"`
}

// LimiterConfig 代表单个限流器配置，一个限流器绑定一种算法
type LimiterConfig struct {
	Name          string               `yaml:"name" validate:"required"`
	Algorithm     string               `yaml:"algorithm" validate:"required,oneof=TOKEN_BUCKET LEAKING_BUCKET FIXED_WINDOW SLIDING_WINDOW_LOG SLIDING_WINDOW_COUNTER"`
	WindowMs      int64                `yaml:"windowMs" validate:"required,min=1"`
	MaxRequests   int                  `yaml:"maxRequests" validate:"required,min=1"`
	TokenBucket   *TokenBucketConfig   `yaml:"tokenBucket,omitempty"`
	LeakingBucket *LeakingBucketConfig `yaml:"leakingBucket,omitempty"`
	Response      *ResponseConfig      `yaml:"response,omitempty"`
}

// TokenBucketConfig 代表令牌桶算法的专属配置
type TokenBucketConfig struct {
	BucketSize       int   `yaml:"bucketSize,omitempty" validate:"omitempty,min=1"`
	RefillRate       int   `yaml:"refillRate,omitempty" validate:"omitempty,min=1"`
	RefillIntervalMs int64 `yaml:"refillIntervalMs,omitempty" validate:"omitempty,min=1"`
}

// LeakingBucketConfig 代表漏桶算法的专属配置
type LeakingBucketConfig struct {
	QueueSize      int     `yaml:"queueSize,omitempty" validate:"omitempty,min=1"`
	ProcessingRate float64 `yaml:"processingRate,omitempty" validate:"omitempty,gt=0"`
}

// ResponseConfig 代表限流拒绝响应的呈现配置
type ResponseConfig struct {
	StatusCode int    `yaml:"statusCode,omitempty" validate:"omitempty,min=400,max=599"`
	Message    string `yaml:"message,omitempty"`
	Headers    *bool  `yaml:"headers,omitempty"`
}

// RouteConfig 代表受限流保护的路由配置
type RouteConfig struct {
	Path    string `yaml:"path" validate:"required"`
	Method  string `yaml:"method,omitempty" validate:"omitempty,oneof=GET POST PUT PATCH DELETE HEAD OPTIONS ANY"`
	Limiter string `yaml:"limiter" validate:"required"`
}

// MetricsConfig 代表指标收集配置
type MetricsConfig struct {
	Type    string `yaml:"type,omitempty" validate:"omitempty,oneof=prometheus noop"`
	Enabled bool   `yaml:"enabled"`
}
