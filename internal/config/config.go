package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"

	"github.com/startdusk/go-batis/batis"
	"github.com/startdusk/go-batis/batis/statement"
)

// Config 是进程级别的配置, 从环境变量读取
type Config struct {
	// Driver 是 database/sql 的驱动名, 默认 sqlite3
	Driver string
	DSN    string
	// Dialect 为空的时候按驱动名推断
	Dialect string

	MapUnderscoreToCamelCase bool
	CallSettersOnNulls       bool
	MetricsEnabled           bool
	// MetricsAddr 不为空的时候暴露 /metrics
	MetricsAddr string

	// PoolMaxCap 大于 0 的时候使用有界连接池
	PoolMaxCap      int
	PoolMaxIdle     int
	PoolIdleTimeout time.Duration
}

// Load 先加载 .env 文件(不存在就跳过), 再读取环境变量.
// 已经存在的环境变量不会被 .env 覆盖
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: 读取 env 文件失败: %w", batis.ErrConfiguration, err)
	}
	cfg := &Config{
		Driver:                   getEnv("BATIS_DRIVER", "sqlite3"),
		DSN:                      getEnv("BATIS_DSN", ""),
		Dialect:                  getEnv("BATIS_DIALECT", ""),
		MapUnderscoreToCamelCase: getEnvBool("BATIS_MAP_UNDERSCORE_TO_CAMEL_CASE", false),
		CallSettersOnNulls:       getEnvBool("BATIS_CALL_SETTERS_ON_NULLS", false),
		MetricsEnabled:           getEnvBool("BATIS_METRICS_ENABLED", false),
		MetricsAddr:              getEnv("BATIS_METRICS_ADDR", ""),
		PoolMaxCap:               getEnvInt("BATIS_POOL_MAX_CAP", 0),
		PoolMaxIdle:              getEnvInt("BATIS_POOL_MAX_IDLE", 0),
		PoolIdleTimeout:          getEnvDuration("BATIS_POOL_IDLE_TIMEOUT", 5*time.Minute),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DSN == "" {
		return fmt.Errorf("%w: 缺少配置项 BATIS_DSN", batis.ErrConfiguration)
	}
	if _, err := c.StatementDialect(); err != nil {
		return err
	}
	if c.Driver == "mysql" {
		if _, err := mysql.ParseDSN(c.DSN); err != nil {
			return fmt.Errorf("%w: BATIS_DSN: %w", batis.ErrConfiguration, err)
		}
	}
	if c.PoolMaxCap > 0 && c.PoolMaxIdle > c.PoolMaxCap {
		return fmt.Errorf("%w: BATIS_POOL_MAX_IDLE 不能大于 BATIS_POOL_MAX_CAP", batis.ErrConfiguration)
	}
	return nil
}

// StatementDialect 没有声明方言的时候按驱动名推断
func (c *Config) StatementDialect() (statement.Dialect, error) {
	name := c.Dialect
	if name == "" {
		name = c.Driver
	}
	d, ok := statement.DialectOf(name)
	if !ok {
		return nil, fmt.Errorf("%w: 未知方言 %s", batis.ErrConfiguration, name)
	}
	return d, nil
}

func (c *Config) Engine() batis.Configuration {
	res := batis.DefaultConfiguration()
	res.MapUnderscoreToCamelCase = c.MapUnderscoreToCamelCase
	res.CallSettersOnNulls = c.CallSettersOnNulls
	res.MetricsEnabled = c.MetricsEnabled
	return res
}

// Pool 返回有界连接池的配置, 第二个返回值代表是否启用
func (c *Config) Pool() (batis.PoolConfig, bool) {
	if c.PoolMaxCap <= 0 {
		return batis.PoolConfig{}, false
	}
	maxIdle := c.PoolMaxIdle
	if maxIdle <= 0 {
		maxIdle = c.PoolMaxCap
	}
	return batis.PoolConfig{
		InitialCap:  0,
		MaxCap:      c.PoolMaxCap,
		MaxIdle:     maxIdle,
		IdleTimeout: c.PoolIdleTimeout,
	}, true
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}
