package main

import (
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/shengyanli1982/gs"
	"github.com/shengyanli1982/law"

	"github.com/flowfence/flowfence-go/internal/config"
	"github.com/flowfence/flowfence-go/internal/constants"
	"github.com/flowfence/flowfence-go/internal/server"
)

// Version 通过 ldflags 在编译时设置
var Version = "0.1.0"

const ASCII_LOGO = `
███████╗██╗      ██████╗ ██╗    ██╗███████╗███████╗███╗   ██╗ ██████╗███████╗
██╔════╝██║     ██╔═══██╗██║    ██║██╔════╝██╔════╝████╗  ██║██╔════╝██╔════╝
█████╗  ██║     ██║   ██║██║ █╗ ██║█████╗  █████╗  ██╔██╗ ██║██║     █████╗
██╔══╝  ██║     ██║   ██║██║███╗██║██╔══╝  ██╔══╝  ██║╚██╗██║██║     ██╔══╝
██║     ███████╗╚██████╔╝╚███╔███╔╝██║     ███████╗██║ ╚████║╚██████╗███████╗
╚═╝     ╚══════╝ ╚═════╝  ╚══╝╚══╝ ╚═╝     ╚══════╝╚═╝  ╚═══╝ ╚═════╝╚══════╝
	`

// ServiceContext 服务上下文结构体，用于管理服务所需的所有组件
type ServiceContext struct {
	logger      *logr.Logger      // 日志记录器
	asyncWriter *law.WriteAsyncer // 异步写入器
	config      *config.Config    // 服务配置
	configMgr   *config.Manager   // 配置管理器
	rateServer  *server.Server    // 限流服务器
}

// isReleaseMode 判断是否为发布模式
// releaseMode: 是否为发布模式
func isReleaseMode(releaseMode bool) bool {
	return releaseMode || gin.Mode() == gin.ReleaseMode
}

// newZapLogger 构造zap日志实例并包装为logr.Logger
// sink: 日志输出目标
// jsonOutput: 是否输出 JSON 格式日志
func newZapLogger(sink zapcore.WriteSyncer, jsonOutput bool) *logr.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if jsonOutput {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, sink, zapcore.InfoLevel)
	logger := zapr.NewLogger(zap.New(core))
	return &logger
}

// initLogger 初始化日志系统
// releaseMode: 是否为发布模式
// jsonOutput: 是否输出 JSON 格式日志
func initLogger(releaseMode, jsonOutput bool) (*logr.Logger, *law.WriteAsyncer) {
	// 在发布模式下使用异步写入器
	if isReleaseMode(releaseMode) {
		asyncWriter := law.NewWriteAsyncer(os.Stdout, law.DefaultConfig())
		return newZapLogger(zapcore.AddSync(asyncWriter), jsonOutput), asyncWriter
	}

	// 开发模式直接使用标准输出
	return newZapLogger(zapcore.AddSync(os.Stdout), jsonOutput), nil
}

// initConfig 初始化配置管理器
// configPath: 配置文件路径
func initConfig(configPath string) (*config.Manager, *config.Config, error) {
	configManager, err := config.NewManager()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create configuration manager: %w", err)
	}
	if err := configManager.LoadFromFile(configPath); err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	cfg := configManager.GetConfig()
	return configManager, cfg, nil
}

// setupGracefulShutdown 设置优雅关闭机制
// ctx: 服务上下文
// releaseMode: 是否为发布模式
func setupGracefulShutdown(ctx *ServiceContext, releaseMode bool) {
	// 创建服务器终止信号
	serverSignal := gs.NewTerminateSignal()
	serverSignal.RegisterCancelHandles(ctx.rateServer.Stop)

	// 创建写入器终止信号
	writerSignal := gs.NewTerminateSignal()
	if isReleaseMode(releaseMode) && ctx.asyncWriter != nil {
		writerSignal.RegisterCancelHandles(ctx.asyncWriter.Stop)
	}

	// 等待所有终止信号完成
	gs.WaitForSync(serverSignal, writerSignal)
}

func main() {
	// 定义命令行参数
	var (
		configPath  string
		releaseMode bool
		jsonOutput  bool
	)

	// 设置命令行参数
	cmd := cobra.Command{
		Use:     "flowfence",
		Version: Version,
		Short:   "FlowFence is a pluggable HTTP rate limiting service",
		Long: `FlowFence is a standalone HTTP rate limiting service with pluggable algorithms.

Core Features:
- Five decision algorithms: token bucket, leaking bucket, fixed window,
  sliding window log and sliding window counter
- In-memory and Redis storage backends behind one abstraction
- Standard X-RateLimit-* response headers and JSON 429 responses
- Fail-open behavior on storage failure
- Process-wide statistics with unique-key cardinality estimation
- Prometheus metrics and admin endpoints
- Graceful shutdown support`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// 创建服务上下文
			ctx := &ServiceContext{}

			// 初始化日志系统
			ctx.logger, ctx.asyncWriter = initLogger(releaseMode, jsonOutput)

			// 加载服务配置
			var err error
			ctx.configMgr, ctx.config, err = initConfig(configPath)
			if err != nil {
				ctx.logger.Error(err, "Failed to load service configuration")
				return err
			}

			ctx.logger.Info("Configuration loaded successfully", "path", ctx.configMgr.GetConfigPath())

			// 输出 ASCII 标志（只有在配置加载成功后才显示）
			fmt.Println(ASCII_LOGO)

			// 创建限流服务器
			ctx.rateServer, err = server.NewServer(!releaseMode, ctx.logger, ctx.config)
			if err != nil {
				ctx.logger.Error(err, "Failed to create server")
				return err
			}

			// 启动限流服务
			ctx.rateServer.Start()
			ctx.logger.Info("FlowFence started successfully")

			// 设置优雅关闭机制
			setupGracefulShutdown(ctx, releaseMode)

			ctx.logger.Info("FlowFence stopped")
			return nil
		},
	}

	// 注册命令行参数
	cmd.Flags().StringVarP(&configPath, "config", "c", constants.DefaultConfigPath, "Path to configuration file")
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Enable JSON format logging output")
	cmd.Flags().BoolVarP(&releaseMode, "release", "r", false, "Enable release mode for performance optimizations and async logging")

	// 执行命令
	if err := cmd.Execute(); err != nil {
		fmt.Printf("Failed to execute command: %v\n", err)
		os.Exit(constants.ExitFailure)
	}
}
