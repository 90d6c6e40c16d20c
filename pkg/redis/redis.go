package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Package-level singleton instance
var (
	clientInstance redis.UniversalClient
	keyPrefix      string
)

// Config Redis 配置，Addrs 多于一个时按集群或哨兵模式连接
type Config struct {
	Enabled    bool     `toml:"enabled"`
	Addr       string   `toml:"addr"`
	Addrs      []string `toml:"addrs"`
	MasterName string   `toml:"master_name"` // 哨兵模式
	Password   string   `toml:"password"`
	DB         int      `toml:"db"`
	KeyPrefix  string   `toml:"key_prefix"` // 批次日志的 key 前缀
}

// Validate 验证配置
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Addr == "" && len(c.Addrs) == 0 {
		return fmt.Errorf("addr or addrs is required when redis is enabled")
	}
	if c.Addr != "" && len(c.Addrs) > 0 {
		return fmt.Errorf("addr and addrs are mutually exclusive")
	}
	return nil
}

func (c *Config) options() *redis.UniversalOptions {
	addrs := c.Addrs
	if c.Addr != "" {
		addrs = []string{c.Addr}
	}
	return &redis.UniversalOptions{
		Addrs:      addrs,
		MasterName: c.MasterName,
		Password:   c.Password,
		DB:         c.DB,
	}
}

// Init initializes the Redis client singleton with config.
func Init(cfg Config) error {
	if !cfg.Enabled {
		return nil
	}

	client := redis.NewUniversalClient(cfg.options())

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	clientInstance = client
	keyPrefix = cfg.KeyPrefix
	return nil
}

// Client returns the singleton Redis client instance.
// Returns nil if Redis is not enabled or not initialized.
func Client() redis.UniversalClient {
	return clientInstance
}

// KeyPrefix returns the configured key prefix, empty when unset.
func KeyPrefix() string {
	return keyPrefix
}

// Close closes the Redis client connection.
func Close() error {
	if clientInstance == nil {
		return nil
	}
	err := clientInstance.Close()
	clientInstance = nil
	return err
}
