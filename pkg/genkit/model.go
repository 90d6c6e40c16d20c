package genkit

import (
	"context"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// Embedder generates embeddings with a registered genkit embedder.
type Embedder struct {
	g    *genkit.Genkit
	name string
}

// NewEmbedder returns an embedder bound to the package Genkit instance.
func NewEmbedder(name string) *Embedder {
	return &Embedder{g: g, name: name}
}

// Embed 生成文本的向量表示
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := genkit.Embed(ctx, e.g, ai.WithEmbedderName(e.name), ai.WithTextDocs(text))
	if err != nil {
		return nil, err
	}

	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding response")
	}

	return resp.Embeddings[0].Embedding, nil
}

// Chat runs single-turn generations against a registered model.
type Chat struct {
	g    *genkit.Genkit
	name string
}

// NewChat returns a chat client bound to the package Genkit instance.
func NewChat(name string) *Chat {
	return &Chat{g: g, name: name}
}

// Summarize sends text as the user message under systemPrompt and returns the reply.
func (c *Chat) Summarize(ctx context.Context, systemPrompt, text string) (string, error) {
	resp, err := genkit.Generate(ctx, c.g,
		ai.WithModelName(c.name),
		ai.WithMessages(ai.NewSystemTextMessage(systemPrompt), ai.NewUserTextMessage(text)),
		ai.WithConfig(&ai.GenerationCommonConfig{Temperature: 0}),
	)
	if err != nil {
		return "", fmt.Errorf("generate failed: %w", err)
	}

	if resp == nil {
		return "", fmt.Errorf("empty response")
	}

	out := strings.TrimSpace(resp.Text())
	if out == "" {
		return "", fmt.Errorf("empty response")
	}
	return out, nil
}
