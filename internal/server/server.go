package server

import (
	"github.com/go-logr/logr"

	"github.com/flowfence/flowfence-go/internal/clock"
	"github.com/flowfence/flowfence-go/internal/config"
	"github.com/flowfence/flowfence-go/internal/constants"
	"github.com/flowfence/flowfence-go/internal/metrics"
	"github.com/flowfence/flowfence-go/internal/ratelimit"
	"github.com/flowfence/flowfence-go/internal/stats"
	"github.com/flowfence/flowfence-go/internal/storage"
)

// Server 代表主服务器，管理API服务器和管理服务器
type Server struct {
	apiServer   *APIServer               // API服务器实例
	adminServer *AdminServer             // 管理服务器实例
	backend     storage.Backend          // 共享的存储后端
	collector   metrics.MetricsCollector // 指标收集器
	logger      *logr.Logger             // 日志记录器
}

// NewServer 创建新的服务器实例并装配全部组件
// debug: 是否启用调试模式
// logger: 日志记录器
// cfg: 全局配置
func NewServer(debug bool, logger *logr.Logger, cfg *config.Config) (*Server, error) {
	clk := clock.NewSystemClock()

	// 创建存储后端
	backend, err := storage.NewFactory(logger).Create(&cfg.Storage, clk)
	if err != nil {
		return nil, err
	}

	// 创建统计聚合器，Reset时一并清空后端状态
	aggregator := stats.NewAggregator(backend)

	// 创建指标收集器
	collector, err := newCollector(cfg)
	if err != nil {
		backend.Close()
		return nil, err
	}

	// 为每个配置的限流器创建算法和中间件
	algorithmFactory := ratelimit.NewFactory()
	middlewares := make(map[string]*ratelimit.Middleware, len(cfg.Limiters))
	for _, limiterConfig := range cfg.Limiters {
		algorithm, err := algorithmFactory.Create(toAlgorithmConfig(&limiterConfig), backend)
		if err != nil {
			backend.Close()
			return nil, err
		}

		middleware, err := ratelimit.NewMiddleware(&ratelimit.MiddlewareConfig{
			Name:       limiterConfig.Name,
			StatusCode: limiterConfig.Response.StatusCode,
			Message:    limiterConfig.Response.Message,
			Headers:    *limiterConfig.Response.Headers,
		}, algorithm, clk, aggregator, collector, logger)
		if err != nil {
			backend.Close()
			return nil, err
		}
		middlewares[limiterConfig.Name] = middleware
	}

	apiServer, err := NewAPIServer(debug, logger, cfg, middlewares)
	if err != nil {
		backend.Close()
		return nil, err
	}

	adminServer, err := NewAdminServer(debug, logger, cfg, aggregator, collector, middlewares)
	if err != nil {
		backend.Close()
		return nil, err
	}

	return &Server{
		apiServer:   apiServer,
		adminServer: adminServer,
		backend:     backend,
		collector:   collector,
		logger:      logger,
	}, nil
}

// newCollector 根据配置创建指标收集器
func newCollector(cfg *config.Config) (metrics.MetricsCollector, error) {
	metricsConfig := metrics.DefaultConfig()
	if cfg.Metrics != nil {
		metricsConfig.Enabled = cfg.Metrics.Enabled
		if cfg.Metrics.Type != "" {
			metricsConfig.Type = cfg.Metrics.Type
		}
	}
	metricsConfig.Namespace = constants.MetricsNamespace
	return metrics.NewFactory().Create(metricsConfig)
}

// toAlgorithmConfig 将限流器配置翻译为算法配置
func toAlgorithmConfig(limiterConfig *config.LimiterConfig) *ratelimit.Config {
	algorithmConfig := &ratelimit.Config{
		Algorithm:   limiterConfig.Algorithm,
		WindowMs:    limiterConfig.WindowMs,
		MaxRequests: limiterConfig.MaxRequests,
	}
	if limiterConfig.TokenBucket != nil {
		algorithmConfig.BucketSize = limiterConfig.TokenBucket.BucketSize
		algorithmConfig.RefillRate = limiterConfig.TokenBucket.RefillRate
		algorithmConfig.RefillIntervalMs = limiterConfig.TokenBucket.RefillIntervalMs
	}
	if limiterConfig.LeakingBucket != nil {
		algorithmConfig.QueueSize = limiterConfig.LeakingBucket.QueueSize
		algorithmConfig.ProcessingRate = limiterConfig.LeakingBucket.ProcessingRate
	}
	return algorithmConfig
}

// Start 启动所有服务器（API服务器和管理服务器）
func (s *Server) Start() {
	s.logger.Info("Starting all servers")

	s.apiServer.Start()
	s.adminServer.Start()
}

// Stop 停止所有服务器并释放存储后端资源
func (s *Server) Stop() {
	s.logger.Info("Stopping all servers")

	s.apiServer.Stop()
	s.adminServer.Stop()

	if err := s.backend.Close(); err != nil {
		s.logger.Error(err, "Failed to close storage backend")
	}
	if err := s.collector.Close(); err != nil {
		s.logger.Error(err, "Failed to close metrics collector")
	}

	s.logger.Info("All servers stopped")
}

// IsRunning 检查是否有任一服务器正在运行
func (s *Server) IsRunning() bool {
	return s.apiServer.IsRunning() || s.adminServer.IsRunning()
}

// GetAPIServer 获取API服务器实例
func (s *Server) GetAPIServer() *APIServer {
	return s.apiServer
}

// GetAdminServer 获取管理服务器实例
func (s *Server) GetAdminServer() *AdminServer {
	return s.adminServer
}
