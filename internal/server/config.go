package server

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/Zereker/cvstore/internal/action"
	"github.com/Zereker/cvstore/pkg/blob"
	"github.com/Zereker/cvstore/pkg/extract"
	"github.com/Zereker/cvstore/pkg/genkit"
	"github.com/Zereker/cvstore/pkg/log"
	"github.com/Zereker/cvstore/pkg/mq"
	"github.com/Zereker/cvstore/pkg/redis"
	"github.com/Zereker/cvstore/pkg/vector"
)

// Config holds all configuration values
type Config struct {
	Server  ServerConfig   `toml:"server"`
	Log     log.Config     `toml:"log"`
	Models  genkit.Config  `toml:"genkit"`
	Vector  vector.Config  `toml:"vector"`
	Blob    blob.Config    `toml:"blob"`
	Extract extract.Config `toml:"extract"`
	Redis   redis.Config   `toml:"redis"`
	Kafka   mq.KafkaConfig `toml:"kafka"`
	Files   action.Config  `toml:"files"`
}

// ServerConfig contains server configuration
type ServerConfig struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	MaxBodyMB       int    `toml:"max_body_mb"`
	RecoverInterval string `toml:"recover_interval"` // 空表示只在启动时恢复
}

// Validate checks server configuration
func (s *ServerConfig) Validate() error {
	if s.Port <= 0 || s.Port > 65535 {
		return fmt.Errorf("port is required and must be between 1 and 65535")
	}
	if s.MaxBodyMB < 0 {
		return fmt.Errorf("max_body_mb must not be negative")
	}
	if s.RecoverInterval != "" {
		d, err := time.ParseDuration(s.RecoverInterval)
		if err != nil {
			return fmt.Errorf("recover_interval is invalid: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("recover_interval must be positive")
		}
	}
	return nil
}

// Validate checks all configuration fields
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}

	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}

	if err := c.Models.Validate(); err != nil {
		return fmt.Errorf("genkit: %w", err)
	}

	if err := c.Vector.Validate(); err != nil {
		return fmt.Errorf("vector: %w", err)
	}

	if err := c.Blob.Validate(); err != nil {
		return fmt.Errorf("blob: %w", err)
	}

	if err := c.Extract.Validate(); err != nil {
		return fmt.Errorf("extract: %w", err)
	}

	if err := c.Redis.Validate(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	if err := c.Kafka.Validate(); err != nil {
		return fmt.Errorf("kafka: %w", err)
	}

	if err := c.Files.Validate(); err != nil {
		return fmt.Errorf("files: %w", err)
	}

	return nil
}

// FilesConfig returns the files config completed from the other sections
func (c *Config) FilesConfig() action.Config {
	files := c.Files
	files.Collection = c.Vector.Collection
	files.Container = c.Blob.Container
	files.EmbeddingDim = c.Vector.EmbeddingDim
	files.MaxFileSize = c.Extract.MaxFileSize()
	files.DefaultLanguage = c.Extract.Language()
	if c.Kafka.Enabled {
		files.EventsTopic = c.Kafka.Topic
	}
	return files
}

// LoadConfig reads and parses the configuration file.
// Variables from a .env file next to the working directory are loaded first, and
// ${VAR} references in the file are expanded from the environment.
func LoadConfig(filename string) (Config, error) {
	var cfg Config

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return cfg, fmt.Errorf("read config file: %w", err)
	}

	if err := toml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}
