package main

import (
	"fmt"
	"os"
	"time"

	"debugoj/internal/common/cache"
	commonmw "debugoj/internal/common/http/middleware"
	"debugoj/internal/common/mq"
	"debugoj/internal/common/storage"
	"debugoj/internal/validator/catalog"
	"debugoj/internal/validator/quota"
	"debugoj/internal/validator/runtime"
	"debugoj/internal/validator/sandbox"
	"debugoj/internal/validator/service"
	"debugoj/internal/validator/structural"
	"debugoj/pkg/utils/logger"

	"gopkg.in/yaml.v3"
)

const (
	defaultHTTPAddr        = "0.0.0.0:8090"
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 90 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultMaxCodeBytes    = 64 << 10
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	IdleTimeout  time.Duration `yaml:"idleTimeout"`
	MaxCodeBytes int           `yaml:"maxCodeBytes"`
}

// KafkaConfig holds verdict event settings. No brokers disables publishing.
type KafkaConfig struct {
	mq.KafkaConfig `yaml:",inline"`
	VerdictTopic   string `yaml:"verdictTopic"`
}

// CatalogConfig selects the question source: a local bundle file or object storage.
type CatalogConfig struct {
	File   string               `yaml:"file"`
	Object catalog.ObjectConfig `yaml:"object"`
}

// RuntimesConfig enables the execution substrates.
type RuntimesConfig struct {
	Python     runtime.ProcessConfig     `yaml:"python"`
	JavaScript runtime.ProcessConfig     `yaml:"javascript"`
	Lua        runtime.LuaConfig         `yaml:"lua"`
	Remote     runtime.RemoteConfig      `yaml:"remote"`
	Database   runtime.DatabaseConfig    `yaml:"database"`
	Simulation runtime.SimulationConfig  `yaml:"simulation"`
	Dispatch   runtime.DispatcherOptions `yaml:"dispatch"`
}

// ValidationConfig holds grading thresholds.
type ValidationConfig struct {
	Orchestrator service.Config    `yaml:"orchestrator"`
	Structural   structural.Config `yaml:"structural"`
}

// AppConfig holds validator-service config.
type AppConfig struct {
	Server     ServerConfig        `yaml:"server"`
	Logger     logger.Config       `yaml:"logger"`
	Auth       commonmw.AuthConfig `yaml:"auth"`
	Redis      cache.RedisConfig   `yaml:"redis"`
	Kafka      KafkaConfig         `yaml:"kafka"`
	MinIO      storage.MinIOConfig `yaml:"minio"`
	Catalog    CatalogConfig       `yaml:"catalog"`
	Runtimes   RuntimesConfig      `yaml:"runtimes"`
	Sandbox    sandbox.Config      `yaml:"sandbox"`
	Quota      quota.Config        `yaml:"quota"`
	Validation ValidationConfig    `yaml:"validation"`
}

func loadYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file failed: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse config file failed: %w", err)
	}
	return nil
}

func loadAppConfig(path string) (*AppConfig, error) {
	cfg := AppConfig{
		Runtimes: RuntimesConfig{Remote: runtime.DefaultRemoteConfig()},
	}
	if err := loadYAML(path, &cfg); err != nil {
		return nil, err
	}
	applyServerDefaults(&cfg.Server)
	if cfg.Redis.Addr != "" {
		applyRedisDefaults(&cfg.Redis)
	}
	if cfg.Kafka.VerdictTopic == "" {
		cfg.Kafka.VerdictTopic = "validator.verdict"
	}
	if cfg.Catalog.Object.Bucket == "" {
		cfg.Catalog.Object.Bucket = cfg.MinIO.Bucket
	}
	if cfg.Runtimes.Remote.APIKey == "" {
		cfg.Runtimes.Remote.APIKey = os.Getenv("JUDGE0_API_KEY")
	}
	if cfg.Runtimes.Database.Pool.DSN == "" {
		cfg.Runtimes.Database.Pool.DSN = os.Getenv("VALIDATOR_SQL_DSN")
	}
	if cfg.Runtimes.Database.Enabled && cfg.Runtimes.Database.Pool.DSN == "" {
		return nil, fmt.Errorf("runtimes.database.pool.dsn is required when the database runtime is enabled")
	}
	if cfg.Catalog.File == "" && cfg.MinIO.Endpoint == "" {
		return nil, fmt.Errorf("catalog.file or minio.endpoint is required")
	}
	return &cfg, nil
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.Addr == "" {
		cfg.Addr = defaultHTTPAddr
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = defaultIdleTimeout
	}
	if cfg.MaxCodeBytes <= 0 {
		cfg.MaxCodeBytes = defaultMaxCodeBytes
	}
}

func applyRedisDefaults(cfg *cache.RedisConfig) {
	def := cache.DefaultRedisConfig()
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = def.DialTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = def.ReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.PoolSize == 0 {
		cfg.PoolSize = def.PoolSize
	}
}
