package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"

	"github.com/flowfence/flowfence-go/internal/config"
)

// stopTimeout 优雅关闭的等待上限
const stopTimeout = 10 * time.Second

// httpServer 代表单个HTTP服务实例，封装gin引擎和net/http服务器的生命周期
type httpServer struct {
	name      string       // 服务器名称
	endpoint  string       // 服务器监听地址
	engine    *gin.Engine  // HTTP 引擎实例
	server    *http.Server // 底层 HTTP 服务器
	running   atomic.Bool  // 运行状态标志
	closeOnce sync.Once    // 确保只关闭一次
	logger    *logr.Logger // 日志记录器
}

// newHTTPServer 创建新的HTTP服务实例
// name: 服务器名称
// listen: 监听配置
// engine: 已注册路由的gin引擎
// logger: 日志记录器
func newHTTPServer(name string, listen *config.ListenConfig, engine *gin.Engine, logger *logr.Logger) *httpServer {
	endpoint := fmt.Sprintf("%s:%d", listen.Address, listen.Port)

	server := &http.Server{
		Addr:         endpoint,
		Handler:      engine,
		IdleTimeout:  time.Duration(listen.Timeout.Idle) * time.Millisecond,
		ReadTimeout:  time.Duration(listen.Timeout.Read) * time.Millisecond,
		WriteTimeout: time.Duration(listen.Timeout.Write) * time.Millisecond,
	}

	return &httpServer{
		name:     name,
		endpoint: endpoint,
		engine:   engine,
		server:   server,
		logger:   logger,
	}
}

// Start 启动HTTP服务器
func (s *httpServer) Start() {
	if s.running.Load() {
		s.logger.Error(ErrServerAlreadyStarted, "Server is already started", "name", s.name)
		return
	}

	s.logger.Info("Starting server", "name", s.name, "endpoint", s.endpoint)
	s.running.Store(true)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.running.Store(false)
			s.logger.Error(err, "Server terminated unexpectedly", "name", s.name)
		}
	}()

	// 重置关闭标志
	s.closeOnce = sync.Once{}

	s.logger.Info("Server started successfully", "name", s.name, "endpoint", s.endpoint)
}

// Stop 停止HTTP服务器
func (s *httpServer) Stop() {
	if !s.running.Load() {
		s.logger.Info("Server is not running", "name", s.name)
		return
	}

	s.logger.Info("Stopping server", "name", s.name)

	s.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()

		if err := s.server.Shutdown(ctx); err != nil {
			s.logger.Error(err, "Failed to shut down server gracefully", "name", s.name)
		}
		s.running.Store(false)

		s.logger.Info("Server stopped successfully", "name", s.name)
	})
}

// IsRunning 检查HTTP服务器是否正在运行
func (s *httpServer) IsRunning() bool {
	return s.running.Load()
}

// GetEndpoint 获取服务器监听地址
func (s *httpServer) GetEndpoint() string {
	return s.endpoint
}
