package server

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flowfence/flowfence-go/internal/auth"
	"github.com/flowfence/flowfence-go/internal/config"
	"github.com/flowfence/flowfence-go/internal/constants"
	"github.com/flowfence/flowfence-go/internal/metrics"
	"github.com/flowfence/flowfence-go/internal/ratelimit"
	"github.com/flowfence/flowfence-go/internal/stats"
)

// AdminServer 代表管理服务器，提供健康检查、统计快照和监控指标等管理功能
type AdminServer struct {
	*httpServer
	globalConfig  *config.Config
	aggregator    *stats.Aggregator
	collector     metrics.MetricsCollector
	middlewares   map[string]*ratelimit.Middleware
	authenticator auth.Authenticator
	startTime     time.Time
}

// NewAdminServer 创建新的管理服务器实例
// debug: 是否启用调试模式
// logger: 日志记录器
// cfg: 全局配置
// aggregator: 统计聚合器
// collector: 指标收集器
// middlewares: 按名称索引的限流中间件集合
func NewAdminServer(debug bool, logger *logr.Logger, cfg *config.Config, aggregator *stats.Aggregator, collector metrics.MetricsCollector, middlewares map[string]*ratelimit.Middleware) (*AdminServer, error) {
	authenticator, err := auth.NewFactory().Create(cfg.Server.Admin.Auth)
	if err != nil {
		return nil, err
	}

	if debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	listen := config.ListenConfig{
		Port:    cfg.Server.Admin.Port,
		Address: cfg.Server.Admin.Address,
		Timeout: cfg.Server.Admin.Timeout,
	}

	srv := &AdminServer{
		httpServer:    newHTTPServer("admin", &listen, engine, logger),
		globalConfig:  cfg,
		aggregator:    aggregator,
		collector:     collector,
		middlewares:   middlewares,
		authenticator: authenticator,
		startTime:     time.Now(),
	}

	srv.registerRoutes(engine)
	return srv, nil
}

// registerRoutes 注册管理端点
func (s *AdminServer) registerRoutes(engine *gin.Engine) {
	engine.GET("/healthz", s.handleHealth)
	engine.GET("/stats", s.handleStats)
	engine.POST("/stats/reset", s.requireAuth, s.handleStatsReset)
	engine.GET("/config", s.handleConfig)
	engine.GET("/status", s.handleStatus)
	engine.GET("/limiters", s.handleLimiters)
	engine.POST("/limiters/:name/enable", s.requireAuth, s.handleLimiterEnable)
	engine.POST("/limiters/:name/disable", s.requireAuth, s.handleLimiterDisable)
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.collector.GetRegistry(), promhttp.HandlerOpts{})))
}

// requireAuth 管理端点的认证中间件
func (s *AdminServer) requireAuth(c *gin.Context) {
	if err := s.authenticator.Verify(c.Request); err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Next()
}

// handleHealth 处理健康检查请求
func (s *AdminServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleStats 处理统计快照请求
func (s *AdminServer) handleStats(c *gin.Context) {
	snapshot := s.aggregator.Snapshot()

	// 顺带刷新指标中的键基数估计
	s.collector.RecordUniqueKeys(snapshot.UniqueKeys)

	c.JSON(http.StatusOK, snapshot)
}

// handleStatsReset 处理统计清零请求，同时清空存储后端的限流状态
func (s *AdminServer) handleStatsReset(c *gin.Context) {
	if err := s.aggregator.Reset(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reset backend state"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}

// handleConfig 处理配置查看请求
func (s *AdminServer) handleConfig(c *gin.Context) {
	c.JSON(http.StatusOK, s.globalConfig)
}

// handleStatus 处理详细状态请求
func (s *AdminServer) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": gin.H{
			"name":       constants.AppName,
			"uptime":     time.Since(s.startTime).Seconds(),
			"start_time": s.startTime.Format(time.RFC3339),
		},
		"runtime": gin.H{
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	})
}

// handleLimiters 处理限流器列表请求
func (s *AdminServer) handleLimiters(c *gin.Context) {
	limiters := make([]gin.H, 0, len(s.middlewares))
	for name, middleware := range s.middlewares {
		limiters = append(limiters, gin.H{
			"name":      name,
			"algorithm": middleware.Algorithm().Type(),
			"enabled":   middleware.IsEnabled(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"limiters": limiters})
}

// handleLimiterEnable 处理限流器启用请求
func (s *AdminServer) handleLimiterEnable(c *gin.Context) {
	middleware, ok := s.middlewares[c.Param("name")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "limiter not found"})
		return
	}
	middleware.Enable()
	c.JSON(http.StatusOK, gin.H{"name": middleware.Name(), "enabled": true})
}

// handleLimiterDisable 处理限流器禁用请求
func (s *AdminServer) handleLimiterDisable(c *gin.Context) {
	middleware, ok := s.middlewares[c.Param("name")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "limiter not found"})
		return
	}
	middleware.Disable()
	c.JSON(http.StatusOK, gin.H{"name": middleware.Name(), "enabled": false})
}
