package ratelimit

import (
	"errors"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/flowfence/flowfence-go/internal/clock"
	"github.com/flowfence/flowfence-go/internal/constants"
	"github.com/flowfence/flowfence-go/internal/metrics"
	"github.com/flowfence/flowfence-go/internal/stats"
)

// 中间件相关错误定义
var (
	ErrNilAlgorithm  = errors.New("algorithm cannot be nil")
	ErrNilAggregator = errors.New("stats aggregator cannot be nil")
	ErrEmptyName     = errors.New("limiter name cannot be empty")
)

// 故障日志限速参数，防止后端持续故障时日志刷屏
const (
	errorLogPerSecond = 1
	errorLogBurst     = 5
)

// MiddlewareConfig 代表限流中间件的呈现配置
type MiddlewareConfig struct {
	// Name 限流器名称，用于日志和指标标签
	Name string

	// StatusCode 拒绝响应状态码，0时使用默认值429
	StatusCode int

	// Message 拒绝响应消息，空时使用默认消息
	Message string

	// Headers 是否发送X-RateLimit-*头部
	Headers bool

	// KeyFunc 客户端键提取函数，nil时使用DefaultKeyFunc
	KeyFunc KeyFunc
}

// rejectionBody 代表限流拒绝响应体
type rejectionBody struct {
	Error      string `json:"error"`
	RetryAfter int    `json:"retryAfter"`
	Limit      int    `json:"limit"`
	Remaining  int    `json:"remaining"`
	ResetTime  string `json:"resetTime"`
}

// Middleware 代表限流中间件，把算法、统计和指标绑定到gin请求管道
//
// 存储后端故障时放行请求（fail-open）：限流器失效时用户体验优先，
// 故障暴露窗口很小。被放行的故障请求不发送头部、不计入统计。
type Middleware struct {
	name        string
	algorithm   Algorithm
	clk         clock.Clock
	keyFunc     KeyFunc
	aggregator  *stats.Aggregator
	collector   metrics.MetricsCollector
	logger      *logr.Logger
	errorLogLim *rate.Limiter
	statusCode  int
	message     string
	emitHeaders bool
	enabled     atomic.Bool
}

// NewMiddleware 创建新的限流中间件实例
// config: 呈现配置
// algorithm: 限流决策算法
// clk: 时间源
// aggregator: 统计聚合器
// collector: 指标收集器，nil时使用空操作收集器
// logger: 日志记录器
func NewMiddleware(config *MiddlewareConfig, algorithm Algorithm, clk clock.Clock, aggregator *stats.Aggregator, collector metrics.MetricsCollector, logger *logr.Logger) (*Middleware, error) {
	if config == nil {
		return nil, ErrNilConfig
	}
	if config.Name == "" {
		return nil, ErrEmptyName
	}
	if algorithm == nil {
		return nil, ErrNilAlgorithm
	}
	if aggregator == nil {
		return nil, ErrNilAggregator
	}
	if clk == nil {
		clk = clock.NewSystemClock()
	}
	if collector == nil {
		collector = metrics.NewNoopCollector()
	}

	keyFunc := config.KeyFunc
	if keyFunc == nil {
		keyFunc = DefaultKeyFunc
	}
	statusCode := config.StatusCode
	if statusCode == 0 {
		statusCode = constants.DefaultRateLimitStatusCode
	}
	message := config.Message
	if message == "" {
		message = constants.DefaultRateLimitMessage
	}

	m := &Middleware{
		name:        config.Name,
		algorithm:   algorithm,
		clk:         clk,
		keyFunc:     keyFunc,
		aggregator:  aggregator,
		collector:   collector,
		logger:      logger,
		errorLogLim: rate.NewLimiter(rate.Limit(errorLogPerSecond), errorLogBurst),
		statusCode:  statusCode,
		message:     message,
		emitHeaders: config.Headers,
	}
	m.enabled.Store(true)
	return m, nil
}

// Handler 返回gin中间件函数
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.enabled.Load() {
			c.Next()
			return
		}

		// 提取失败等价于"unknown"键，请求照常处理
		key := m.keyFunc(c.Request)
		if key == "" {
			key = constants.UnknownClientKey
		}

		decision, err := m.algorithm.Check(c.Request.Context(), key, m.clk.Now())
		if err != nil {
			// fail-open：放行请求，不发送头部，不计入统计
			if m.logger != nil && m.errorLogLim.Allow() {
				m.logger.Error(err, "Rate limit check failed, failing open",
					"limiter", m.name, "algorithm", m.algorithm.Type(), "key", key)
			}
			m.collector.RecordBackendError(m.name, classifyError(err))
			c.Next()
			return
		}

		m.aggregator.Record(m.algorithm.Type(), key, decision.Allowed)
		m.collector.RecordDecision(m.name, m.algorithm.Type(), decision.Allowed)

		if m.emitHeaders {
			m.writeHeaders(c, decision)
		}

		if !decision.Allowed {
			c.AbortWithStatusJSON(m.statusCode, rejectionBody{
				Error:      m.message,
				RetryAfter: decision.RetryAfter,
				Limit:      decision.Limit,
				Remaining:  0,
				ResetTime:  time.Unix(decision.ResetAt, 0).UTC().Format(time.RFC3339),
			})
			return
		}

		c.Next()
	}
}

// writeHeaders 写入标准限流响应头部
func (m *Middleware) writeHeaders(c *gin.Context, decision *Decision) {
	c.Header(constants.HeaderRateLimitLimit, strconv.Itoa(decision.Limit))
	c.Header(constants.HeaderRateLimitRemaining, strconv.Itoa(decision.Remaining))
	c.Header(constants.HeaderRateLimitReset, strconv.FormatInt(decision.ResetAt, 10))
	if !decision.Allowed {
		c.Header(constants.HeaderRetryAfter, strconv.Itoa(decision.RetryAfter))
	}
}

// Enable 启用限流
func (m *Middleware) Enable() {
	m.enabled.Store(true)
}

// Disable 禁用限流
func (m *Middleware) Disable() {
	m.enabled.Store(false)
}

// IsEnabled 检查是否启用限流
func (m *Middleware) IsEnabled() bool {
	return m.enabled.Load()
}

// Name 获取限流器名称
func (m *Middleware) Name() string {
	return m.name
}

// Algorithm 获取绑定的限流算法
func (m *Middleware) Algorithm() Algorithm {
	return m.algorithm
}

// classifyError 将后端错误归类为指标错误类型
func classifyError(err error) string {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return constants.ErrorTypeBreakerOpen
	}
	return constants.ErrorTypeBackend
}
