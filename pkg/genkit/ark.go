package genkit

import (
	"context"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"github.com/firebase/genkit/go/plugins/compat_oai"
	"github.com/openai/openai-go/option"
)

const arkProvider = "ark"

// ArkConfig Ark (豆包) 接入配置，走 OpenAI 兼容接口
type ArkConfig struct {
	APIKey     string        `toml:"api_key"`
	BaseURL    string        `toml:"base_url"`
	Timeout    string        `toml:"timeout"`     // 单次请求超时，空表示不限
	MaxRetries int           `toml:"max_retries"` // 0 使用 SDK 默认值
	Models     []ModelConfig `toml:"models"`
}

func (c *ArkConfig) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("api_key is required")
	}
	if c.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}
	if c.Timeout != "" {
		if d, err := time.ParseDuration(c.Timeout); err != nil || d <= 0 {
			return fmt.Errorf("timeout must be a positive duration")
		}
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative")
	}
	if len(c.Models) == 0 {
		return fmt.Errorf("at least one model is required")
	}
	for i := range c.Models {
		if err := c.Models[i].Validate(i); err != nil {
			return err
		}
	}
	return nil
}

func (c *ArkConfig) requestOptions() []option.RequestOption {
	var opts []option.RequestOption
	if d, err := time.ParseDuration(c.Timeout); err == nil && d > 0 {
		opts = append(opts, option.WithRequestTimeout(d))
	}
	if c.MaxRetries > 0 {
		opts = append(opts, option.WithMaxRetries(c.MaxRetries))
	}
	return opts
}

// ArkPlugin registers the configured Ark models as "ark/<model>".
// The summarizer only needs single-turn text, the embedder only dimensions.
type ArkPlugin struct {
	compat_oai.OpenAICompatible
	models []ModelConfig
}

func NewArkPlugin(cfg ArkConfig) *ArkPlugin {
	return &ArkPlugin{
		OpenAICompatible: compat_oai.OpenAICompatible{
			APIKey:   cfg.APIKey,
			BaseURL:  cfg.BaseURL,
			Provider: arkProvider,
			Opts:     cfg.requestOptions(),
		},
		models: cfg.Models,
	}
}

func (p *ArkPlugin) Name() string {
	return arkProvider
}

func (p *ArkPlugin) Init(ctx context.Context) []api.Action {
	p.OpenAICompatible.Init(ctx)

	actions := make([]api.Action, 0, len(p.models))
	for _, m := range p.models {
		switch m.Type {
		case ModelTypeLLM:
			actions = append(actions, p.defineSummarizer(m).(api.Action))
		case ModelTypeEmbedding:
			actions = append(actions, p.defineEmbedder(m).(api.Action))
		}
	}
	return actions
}

func (p *ArkPlugin) defineSummarizer(m ModelConfig) ai.Model {
	return p.DefineModel(p.Provider, m.Model, ai.ModelOptions{
		Label:    "Ark " + m.Name,
		Supports: &ai.ModelSupports{SystemRole: true},
	})
}

func (p *ArkPlugin) defineEmbedder(m ModelConfig) ai.Embedder {
	return p.DefineEmbedder(p.Provider, m.Model, &ai.EmbedderOptions{
		Label:      "Ark " + m.Name,
		Dimensions: m.Dim,
	})
}
