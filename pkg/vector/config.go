package vector

import "fmt"

// Engine drivers.
const (
	DriverOpenSearch = "opensearch"
	DriverMemory     = "memory"
)

// Package-level singleton instance
var engineInstance Engine

// Config holds vector store configuration
type Config struct {
	Driver       string           `toml:"driver"`
	Collection   string           `toml:"collection"`
	EmbeddingDim int              `toml:"embedding_dim"`
	OpenSearch   OpenSearchConfig `toml:"opensearch"`
}

// Validate checks vector store configuration
func (c *Config) Validate() error {
	if c.Collection == "" {
		return fmt.Errorf("collection is required")
	}
	if c.EmbeddingDim <= 0 {
		return fmt.Errorf("embedding_dim must be positive")
	}

	switch c.Driver {
	case DriverOpenSearch:
		if err := c.OpenSearch.Validate(); err != nil {
			return fmt.Errorf("opensearch: %w", err)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown driver %q", c.Driver)
	}
	return nil
}

// Init initializes the engine singleton with config.
func Init(cfg Config) error {
	switch cfg.Driver {
	case DriverOpenSearch:
		engine, err := NewOpenSearchEngine(cfg.OpenSearch)
		if err != nil {
			return err
		}
		engineInstance = engine
	case DriverMemory:
		engineInstance = NewMemoryEngine()
	default:
		return fmt.Errorf("unknown driver %q", cfg.Driver)
	}
	return nil
}

// NewEngine returns the singleton engine instance.
func NewEngine() Engine {
	return engineInstance
}

// Close closes the singleton engine.
func Close() error {
	if engineInstance == nil {
		return nil
	}
	return engineInstance.Close()
}
