package genkit

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/core/api"
	"github.com/firebase/genkit/go/genkit"
	"github.com/pkg/errors"
)

type ModelType string

// Model type constants
const (
	ModelTypeLLM       ModelType = "llm"
	ModelTypeEmbedding ModelType = "embedding"
)

// ModelConfig holds configuration for a single model (shared by all vendors)
type ModelConfig struct {
	Name  string    `toml:"name"`  // Model name for registration
	Type  ModelType `toml:"type"`  // ModelTypeLLM or ModelTypeEmbedding
	Model string    `toml:"model"` // Actual model identifier
	Dim   int       `toml:"dim"`   // Embedding dimension (required for embedding models)
}

// Validate validates a model config
func (m *ModelConfig) Validate(index int) error {
	if m.Name == "" {
		return fmt.Errorf("models[%d].name is required", index)
	}

	if m.Type != ModelTypeLLM && m.Type != ModelTypeEmbedding {
		return fmt.Errorf("models[%d].type must be '%s' or '%s'", index, ModelTypeLLM, ModelTypeEmbedding)
	}

	if m.Model == "" {
		return fmt.Errorf("models[%d].model is required", index)
	}

	if m.Type == ModelTypeEmbedding && m.Dim <= 0 {
		return fmt.Errorf("models[%d].dim is required for embedding model", index)
	}

	return nil
}

// Config holds unified genkit configuration with all vendors
type Config struct {
	Ark ArkConfig `toml:"ark"`

	// Registered action names, e.g. "ark/doubao-embedding".
	Embedder string `toml:"embedder"`
	Chat     string `toml:"chat"`
}

// Validate checks genkit configuration
func (c *Config) Validate() error {
	if c.Embedder == "" {
		return fmt.Errorf("embedder is required")
	}

	if len(c.Ark.Models) > 0 {
		if err := c.Ark.Validate(); err != nil {
			return fmt.Errorf("ark: %w", err)
		}
	}

	return nil
}

var (
	g          *genkit.Genkit
	configured Config
)

// Init initializes the genkit package with multi-vendor config
func Init(ctx context.Context, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return errors.WithMessage(err, "invalid config")
	}

	var plugins []api.Plugin

	if len(cfg.Ark.Models) > 0 {
		plugins = append(plugins, NewArkPlugin(cfg.Ark))
	}

	g = genkit.Init(ctx, genkit.WithPlugins(plugins...))
	configured = cfg

	return nil
}

// InitForTest initializes genkit with a mock plugin for testing.
// Returns the mock plugin for configuring responses.
func InitForTest(ctx context.Context, cfg MockConfig) *MockPlugin {
	mockPlugin := NewMockPlugin(cfg)

	g = genkit.Init(ctx, genkit.WithPlugins(mockPlugin))

	return mockPlugin
}

// Genkit returns the Genkit instance
func Genkit() *genkit.Genkit {
	return g
}

// DefaultEmbedder returns the embedder named by Config.Embedder.
func DefaultEmbedder() *Embedder {
	return NewEmbedder(configured.Embedder)
}

// DefaultChat returns the chat model named by Config.Chat, or nil when none is set.
func DefaultChat() *Chat {
	if configured.Chat == "" {
		return nil
	}
	return NewChat(configured.Chat)
}
