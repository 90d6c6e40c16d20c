package genkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArkConfig_Validate(t *testing.T) {
	embedding := ModelConfig{Name: "emb", Type: ModelTypeEmbedding, Model: "emb", Dim: 8}

	tests := []struct {
		name    string
		cfg     ArkConfig
		wantErr bool
	}{
		{name: "valid", cfg: ArkConfig{APIKey: "k", BaseURL: "http://ark", Models: []ModelConfig{embedding}}},
		{name: "with timeout", cfg: ArkConfig{APIKey: "k", BaseURL: "http://ark", Timeout: "30s", MaxRetries: 2, Models: []ModelConfig{embedding}}},
		{name: "no api key", cfg: ArkConfig{BaseURL: "http://ark", Models: []ModelConfig{embedding}}, wantErr: true},
		{name: "bad timeout", cfg: ArkConfig{APIKey: "k", BaseURL: "http://ark", Timeout: "soon", Models: []ModelConfig{embedding}}, wantErr: true},
		{name: "negative retries", cfg: ArkConfig{APIKey: "k", BaseURL: "http://ark", MaxRetries: -1, Models: []ModelConfig{embedding}}, wantErr: true},
		{name: "no models", cfg: ArkConfig{APIKey: "k", BaseURL: "http://ark"}, wantErr: true},
		{name: "embedding without dim", cfg: ArkConfig{APIKey: "k", BaseURL: "http://ark", Models: []ModelConfig{{Name: "e", Type: ModelTypeEmbedding, Model: "e"}}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestArkConfig_RequestOptions(t *testing.T) {
	assert.Empty(t, (&ArkConfig{}).requestOptions())
	assert.Len(t, (&ArkConfig{Timeout: "30s", MaxRetries: 3}).requestOptions(), 2)
}
