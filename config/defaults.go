// =============================================================================
// 📦 AgentCore 默认配置
// =============================================================================
package config

import "time"

// DefaultConfig 返回带有默认值的完整配置
func DefaultConfig() *Config {
	return &Config{
		Server:       DefaultServerConfig(),
		Pool:         DefaultPoolConfig(),
		Orchestrator: DefaultOrchestratorConfig(),
		Roles:        DefaultRolesConfig(),
		LLM:          DefaultLLMConfig(),
		Audit:        DefaultAuditConfig(),
		Redis:        DefaultRedisConfig(),
		Database:     DefaultDatabaseConfig(),
		Log:          DefaultLogConfig(),
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        8080,
		MetricsPort:     9091,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    120 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		RateLimitRPS:    100,
		RateLimitBurst:  200,
	}
}

// DefaultPoolConfig 返回默认 Worker 池配置
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxWorkers:    10,
		WorkerTimeout: 60 * time.Second,
		Adapters:      map[string]string{},
	}
}

// DefaultOrchestratorConfig 返回默认编排配置
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		DefaultVertical:  "",
		DefaultRegion:    "india",
		HistoryCapacity:  100,
		ScanEnabled:      true,
		RetrievalEnabled: false,
	}
}

// DefaultRolesConfig 返回默认角色配置
func DefaultRolesConfig() RolesConfig {
	return RolesConfig{
		Dir: "",
	}
}

// DefaultLLMConfig 返回默认生成后端配置
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Provider:          "stub",
		Timeout:           60 * time.Second,
		MaxRetries:        3,
		RetryInitialDelay: 500 * time.Millisecond,
		RetryMaxDelay:     10 * time.Second,
	}
}

// DefaultAuditConfig 返回默认审计存储配置
func DefaultAuditConfig() AuditConfig {
	return AuditConfig{
		Store:      "memory",
		SQLitePath: "agentcore.db",
	}
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:      "localhost:6379",
		Password:  "",
		DB:        0,
		KeyPrefix: "agentcore:",
	}
}

// DefaultDatabaseConfig 返回默认数据库配置
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Host:    "localhost",
		Port:    5432,
		User:    "agentcore",
		Name:    "agentcore",
		SSLMode: "disable",
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:       "info",
		Format:      "json",
		OutputPaths: []string{"stdout"},
	}
}
