package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"

	"github.com/flowfence/flowfence-go/internal/config"
	"github.com/flowfence/flowfence-go/internal/ratelimit"
)

// APIServer 代表API服务器，负责处理受限流保护的业务请求
type APIServer struct {
	*httpServer
	middlewares map[string]*ratelimit.Middleware // 按名称索引的限流中间件
}

// NewAPIServer 创建新的API服务器实例
// debug: 是否启用调试模式
// logger: 日志记录器
// cfg: 全局配置
// middlewares: 按名称索引的限流中间件集合
func NewAPIServer(debug bool, logger *logr.Logger, cfg *config.Config, middlewares map[string]*ratelimit.Middleware) (*APIServer, error) {
	if len(middlewares) == 0 {
		return nil, ErrNoLimiters
	}

	if debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	srv := &APIServer{
		httpServer:  newHTTPServer("api", &cfg.Server.API, engine, logger),
		middlewares: middlewares,
	}

	if err := srv.registerRoutes(engine, cfg); err != nil {
		return nil, err
	}

	return srv, nil
}

// registerRoutes 注册受限流保护的路由
//
// 没有配置任何路由时挂载一个由首个限流器保护的演示端点，
// 方便快速验证限流行为。
func (s *APIServer) registerRoutes(engine *gin.Engine, cfg *config.Config) error {
	if len(cfg.Routes) == 0 {
		first := cfg.Limiters[0].Name
		engine.GET("/ping", s.middlewares[first].Handler(), handleEcho)
		return nil
	}

	for _, route := range cfg.Routes {
		middleware, ok := s.middlewares[route.Limiter]
		if !ok {
			return ErrUnknownLimiter
		}

		handlers := gin.HandlersChain{middleware.Handler(), handleEcho}
		if route.Method == "ANY" || route.Method == "" {
			engine.Any(route.Path, handlers...)
		} else {
			engine.Handle(route.Method, route.Path, handlers...)
		}
	}
	return nil
}

// handleEcho 演示端点处理器，放行的请求收到简单的确认响应
func handleEcho(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "ok",
		"path":    c.Request.URL.Path,
	})
}

// GetMiddleware 获取指定名称的限流中间件
func (s *APIServer) GetMiddleware(name string) (*ratelimit.Middleware, bool) {
	middleware, ok := s.middlewares[name]
	return middleware, ok
}
