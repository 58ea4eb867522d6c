package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// 全局验证器实例，用于配置验证
var validate = validator.New()

// Manager 代表配置管理器，负责配置文件的加载、验证和管理
type Manager struct {
	config     *Config             // 当前加载的配置实例
	configPath string              // 配置文件的绝对路径
	validator  *validator.Validate // 配置验证器
}

// NewManager 创建新的配置管理器实例
func NewManager() (*Manager, error) {
	// 注册自定义验证器
	if err := validate.RegisterValidation("auth_conditional", validateAuthConditional); err != nil {
		return nil, err
	}

	return &Manager{
		validator: validate,
	}, nil
}

// LoadFromFile 从指定路径加载配置文件并进行验证
// configPath: 配置文件路径
func (m *Manager) LoadFromFile(configPath string) error {
	// 检查文件是否存在
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s", configPath)
	}

	// 读取配置文件
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// 解析 YAML 配置
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	// 设置默认值
	m.SetDefaults(&config)

	// 验证配置结构
	if err := m.validator.Struct(&config); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	// 验证引用关系
	if err := m.validateReferences(&config); err != nil {
		return fmt.Errorf("config reference validation failed: %w", err)
	}

	// 保存配置和路径
	m.config = &config
	m.configPath, _ = filepath.Abs(configPath)

	return nil
}

// validateReferences 验证配置中的引用关系是否正确
// config: 待验证的配置实例
func (m *Manager) validateReferences(config *Config) error {
	// 构建限流器名称映射，用于快速查找
	limiterNames := make(map[string]bool)
	for _, limiter := range config.Limiters {
		if limiterNames[limiter.Name] {
			return fmt.Errorf("duplicate limiter name '%s'", limiter.Name)
		}
		limiterNames[limiter.Name] = true
	}

	// 验证路由中引用的限流器是否存在
	for _, route := range config.Routes {
		if !limiterNames[route.Limiter] {
			return fmt.Errorf("route '%s' references unknown limiter '%s'",
				route.Path, route.Limiter)
		}
	}

	// 验证Redis后端配置的完整性
	if config.Storage.Type == "redis" && config.Storage.Redis == nil {
		return fmt.Errorf("storage type is redis but no redis configuration provided")
	}

	return nil
}

// GetConfig 返回当前加载的配置实例
func (m *Manager) GetConfig() *Config {
	return m.config
}

// GetConfigPath 返回当前配置文件的绝对路径
func (m *Manager) GetConfigPath() string {
	return m.configPath
}

// SetDefaults 为配置设置默认值，确保所有必需字段都有合理的默认值
// config: 待设置默认值的配置实例
func (m *Manager) SetDefaults(config *Config) {
	// 设置API服务默认值
	m.setServerDefaults(config)

	// 设置存储后端默认值
	m.setStorageDefaults(config)

	// 设置限流器默认值
	m.setLimiterDefaults(config)

	// 设置路由默认值
	for i := range config.Routes {
		if config.Routes[i].Method == "" {
			config.Routes[i].Method = "ANY"
		}
	}
}

// setServerDefaults 设置HTTP服务器的默认值
func (m *Manager) setServerDefaults(config *Config) {
	if config.Server.API.Port == 0 {
		config.Server.API.Port = 8080
	}
	if config.Server.API.Address == "" {
		config.Server.API.Address = "0.0.0.0"
	}
	config.Server.API.Timeout = timeoutWithDefaults(config.Server.API.Timeout)

	if config.Server.Admin.Port == 0 {
		config.Server.Admin.Port = 9000
	}
	if config.Server.Admin.Address == "" {
		config.Server.Admin.Address = "0.0.0.0"
	}
	config.Server.Admin.Timeout = timeoutWithDefaults(config.Server.Admin.Timeout)

	if config.Server.Admin.Auth == nil {
		config.Server.Admin.Auth = &AuthConfig{Type: "none"}
	} else if config.Server.Admin.Auth.Type == "" {
		config.Server.Admin.Auth.Type = "none"
	}
}

// timeoutWithDefaults 补全超时配置中的零值字段
func timeoutWithDefaults(timeout *TimeoutConfig) *TimeoutConfig {
	if timeout == nil {
		return &TimeoutConfig{
			Idle:  60000,
			Read:  30000,
			Write: 30000,
		}
	}
	if timeout.Idle == 0 {
		timeout.Idle = 60000
	}
	if timeout.Read == 0 {
		timeout.Read = 30000
	}
	if timeout.Write == 0 {
		timeout.Write = 30000
	}
	return timeout
}

// setStorageDefaults 设置存储后端的默认值
func (m *Manager) setStorageDefaults(config *Config) {
	if config.Storage.Type == "" {
		config.Storage.Type = "memory"
	}
	if config.Storage.Redis != nil {
		redis := config.Storage.Redis
		if redis.PoolSize == 0 {
			redis.PoolSize = 10
		}
		if redis.DialTimeout == 0 {
			redis.DialTimeout = 5000
		}
		if redis.ReadTimeout == 0 {
			redis.ReadTimeout = 3000
		}
		if redis.WriteTimeout == 0 {
			redis.WriteTimeout = 3000
		}
	}
	if config.Storage.Breaker != nil {
		breaker := config.Storage.Breaker
		if breaker.Threshold == 0 {
			breaker.Threshold = 0.5
		}
		if breaker.Cooldown == 0 {
			breaker.Cooldown = 30000
		}
		if breaker.MaxRequests == 0 {
			breaker.MaxRequests = 3
		}
		if breaker.Interval == 0 {
			breaker.Interval = 10000
		}
	}
}

// setLimiterDefaults 设置限流器的默认值
//
// 算法专属字段的默认值派生自通用字段：令牌桶默认容量和补充速率等于
// maxRequests、补充周期等于窗口时长；漏桶默认队列长度等于maxRequests、
// 处理速率等于maxRequests/窗口秒数。
func (m *Manager) setLimiterDefaults(config *Config) {
	for i := range config.Limiters {
		limiter := &config.Limiters[i]

		// 算法标识符统一为大写形式
		limiter.Algorithm = strings.ToUpper(strings.TrimSpace(limiter.Algorithm))

		if limiter.Algorithm == "TOKEN_BUCKET" {
			if limiter.TokenBucket == nil {
				limiter.TokenBucket = &TokenBucketConfig{}
			}
			if limiter.TokenBucket.BucketSize == 0 {
				limiter.TokenBucket.BucketSize = limiter.MaxRequests
			}
			if limiter.TokenBucket.RefillRate == 0 {
				limiter.TokenBucket.RefillRate = limiter.MaxRequests
			}
			if limiter.TokenBucket.RefillIntervalMs == 0 {
				limiter.TokenBucket.RefillIntervalMs = limiter.WindowMs
			}
		}

		if limiter.Algorithm == "LEAKING_BUCKET" {
			if limiter.LeakingBucket == nil {
				limiter.LeakingBucket = &LeakingBucketConfig{}
			}
			if limiter.LeakingBucket.QueueSize == 0 {
				limiter.LeakingBucket.QueueSize = limiter.MaxRequests
			}
			if limiter.LeakingBucket.ProcessingRate == 0 {
				limiter.LeakingBucket.ProcessingRate = float64(limiter.MaxRequests) / (float64(limiter.WindowMs) / 1000.0)
			}
		}

		if limiter.Response == nil {
			limiter.Response = &ResponseConfig{}
		}
		if limiter.Response.StatusCode == 0 {
			limiter.Response.StatusCode = 429
		}
		if limiter.Response.Message == "" {
			limiter.Response.Message = "Too many requests, please try again later."
		}
		if limiter.Response.Headers == nil {
			enabled := true
			limiter.Response.Headers = &enabled
		}
	}
}

// validateAuthConditional 验证认证配置的条件完整性
// bearer类型必须提供token，basic类型必须提供用户名和密码
func validateAuthConditional(fl validator.FieldLevel) bool {
	auth, ok := fl.Parent().Interface().(AuthConfig)
	if !ok {
		return true
	}

	switch auth.Type {
	case "bearer":
		return auth.Token != ""
	case "basic":
		return auth.Username != "" && auth.Password != ""
	}
	return true
}
