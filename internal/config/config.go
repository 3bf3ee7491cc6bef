// Package config 统一配置管理
//
// 配置加载策略：
//  1. 从 .env 加载敏感信息（密码、密钥）和 APP_ENV
//  2. 根据 APP_ENV 加载对应的 configs/{env}.yaml 配置文件
//  3. 环境变量可覆盖 YAML 配置
//
// 凭据单一数据源：密码/密钥只存在 .env 文件中（YAML 中不存储任何密码）。
//
// 使用方式：
//   - 开发环境: APP_ENV=dev (默认)
//   - 测试环境: APP_ENV=test
//   - 生产环境: APP_ENV=prod
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment 环境类型
type Environment string

const (
	EnvProduction  Environment = "prod"
	EnvTest        Environment = "test"
	EnvDevelopment Environment = "dev"
)

// YAMLConfig YAML 配置文件结构
type YAMLConfig struct {
	Server  ServerConfig      `yaml:"server"`
	Solver  SolverConfig      `yaml:"solver"`
	Redis   RedisConfig       `yaml:"redis"`
	MinIO   MinIOConfig       `yaml:"minio"`
	Lockout LockoutYAMLConfig `yaml:"lockout"`
}

// ServerConfig API Server 配置
type ServerConfig struct {
	Port string `yaml:"port"` // 监听端口
}

// SolverConfig 求解器目录布局配置
type SolverConfig struct {
	OutputDir      string `yaml:"output_dir"`      // 结果基目录（Result_<N> 的父目录）
	PackageDir     string `yaml:"package_dir"`     // 本地求解器分发包源目录
	PackageArchive string `yaml:"package_archive"` // 分发包 zip 输出路径
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	DB       int    `yaml:"db"`
	Password string `yaml:"-"`   // 只从 REDIS_PASSWORD 环境变量读取
	URL      string `yaml:"url"` // 直接指定 URL（优先于 host/port/db）
}

// MinIOConfig MinIO 对象存储配置
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"` // 例如 localhost:9000
	AccessKey string `yaml:"-"`        // 只从 MINIO_ROOT_USER 环境变量读取
	SecretKey string `yaml:"-"`        // 只从 MINIO_ROOT_PASSWORD 环境变量读取
	UseSSL    bool   `yaml:"use_ssl"`  // 是否使用 HTTPS
	Bucket    string `yaml:"bucket"`   // 默认 bucket 名称
}

// LockoutYAMLConfig 登录锁定策略配置（YAML，时长为 "15m" 风格字符串）
type LockoutYAMLConfig struct {
	MaxAttempts int    `yaml:"max_attempts"` // 窗口内允许的失败次数
	Window      string `yaml:"window"`       // 失败计数观察窗口，例如 "15m"
	Cooldown    string `yaml:"cooldown"`     // 锁定冷却时长，例如 "5m"
}

// LockoutConfig 登录锁定策略配置（解析后）
type LockoutConfig struct {
	MaxAttempts int
	Window      time.Duration
	Cooldown    time.Duration
}

// Config 应用配置（最终使用的配置）
type Config struct {
	Env      Environment
	APIPort  string
	Solver   SolverConfig
	RedisURL string
	MinIO    MinIOConfig
	Lockout  LockoutConfig
}

var configPaths = []string{
	"configs",
	"../configs",
	"../../configs",
	"../../../configs",
}

var envPaths = []string{
	".env",
	"../.env",
	"../../.env",
	"../../../.env",
}

// Load 加载配置
// 1. 加载 .env（敏感信息 + APP_ENV）
// 2. 根据 APP_ENV 加载 configs/{env}.yaml
// 3. 构建最终配置
func Load() *Config {
	// 加载 .env
	for _, p := range envPaths {
		if err := godotenv.Load(p); err == nil {
			break
		}
	}

	// 解析环境
	env := parseEnv(getEnv("APP_ENV", "dev"))

	// 加载 YAML 配置
	yamlCfg := loadYAMLConfig(env)

	// 从环境变量获取敏感信息
	yamlCfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	yamlCfg.MinIO.AccessKey = getEnv("MINIO_ROOT_USER", "minioadmin")
	yamlCfg.MinIO.SecretKey = getEnv("MINIO_ROOT_PASSWORD", "minioadmin")

	// 构建最终配置
	cfg := &Config{
		Env:      env,
		APIPort:  getEnv("API_PORT", yamlCfg.Server.Port),
		Solver:   yamlCfg.Solver,
		RedisURL: buildRedisURL(yamlCfg.Redis),
		MinIO:    yamlCfg.MinIO,
		Lockout: LockoutConfig{
			MaxAttempts: yamlCfg.Lockout.MaxAttempts,
			Window:      parseDuration(yamlCfg.Lockout.Window),
			Cooldown:    parseDuration(yamlCfg.Lockout.Cooldown),
		},
	}

	// 环境变量覆盖求解器目录
	if dir := os.Getenv("SOLVER_OUTPUT_DIR"); dir != "" {
		cfg.Solver.OutputDir = dir
	}

	// 验证并填充锁定策略默认值
	cfg.Lockout.validate()

	return cfg
}

// loadYAMLConfig 加载 YAML 配置文件
// 加载顺序：默认值 → {env}.yaml
func loadYAMLConfig(env Environment) *YAMLConfig {
	// 1. 初始化默认值
	cfg := &YAMLConfig{
		Server: ServerConfig{Port: "8080"},
		Solver: SolverConfig{
			OutputDir:      "solver_output",
			PackageDir:     filepath.Join("public", "local-solver-package"),
			PackageArchive: filepath.Join("public", "local-solver-package.zip"),
		},
		Redis:   RedisConfig{Host: "localhost", Port: 6379, DB: 0},
		MinIO:   MinIOConfig{Endpoint: "localhost:9000", Bucket: "solver-admin"},
		Lockout: LockoutYAMLConfig{MaxAttempts: 5, Window: "15m", Cooldown: "5m"},
	}

	// 2. 加载 {env}.yaml（覆盖默认值）
	filename := fmt.Sprintf("%s.yaml", env)
	for _, base := range configPaths {
		path := filepath.Join(base, filename)
		if data, err := os.ReadFile(path); err == nil {
			yaml.Unmarshal(data, cfg)
			break
		}
	}

	return cfg
}

// buildRedisURL 构建 Redis 连接 URL
func buildRedisURL(r RedisConfig) string {
	if r.URL != "" {
		return r.URL
	}
	if r.Password != "" {
		return fmt.Sprintf("redis://:%s@%s:%d/%d", r.Password, r.Host, r.Port, r.DB)
	}
	return fmt.Sprintf("redis://%s:%d/%d", r.Host, r.Port, r.DB)
}

// parseDuration 解析时长字符串，无法解析时返回 0（由 validate 填默认值）
func parseDuration(s string) time.Duration {
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}

// parseEnv 解析环境名
func parseEnv(s string) Environment {
	switch s {
	case "test":
		return EnvTest
	case "prod", "production":
		return EnvProduction
	default:
		return EnvDevelopment
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// IsTest 是否为测试环境
func (c *Config) IsTest() bool {
	return c.Env == EnvTest
}

// String 返回配置摘要（隐藏密码）
func (c *Config) String() string {
	return fmt.Sprintf("Config{Env: %s, Port: %s, OutputDir: %s, Redis: %s, MinIO: %s/%s}",
		c.Env, c.APIPort, c.Solver.OutputDir, maskPassword(c.RedisURL), c.MinIO.Endpoint, c.MinIO.Bucket)
}

// maskPassword 隐藏密码
func maskPassword(url string) string {
	re := regexp.MustCompile(`(://[^:]*:)([^@]+)(@)`)
	return re.ReplaceAllString(url, "${1}***${3}")
}

// validate 验证并填充锁定策略默认值
func (l *LockoutConfig) validate() {
	if l.MaxAttempts <= 0 {
		l.MaxAttempts = 5
	}
	if l.Window <= 0 {
		l.Window = 15 * time.Minute
	}
	if l.Cooldown <= 0 {
		l.Cooldown = 5 * time.Minute
	}
}
