package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	appErr "github.com/xxxsen/docdigest/internal/pkg/errors"
)

type GeneratorEntry struct {
	Name      string
	Generator IGenerator
}

type EmbedderEntry struct {
	Name     string
	Embedder IEmbedder
}

// firstSuccess tries each configured entry in order and returns the first
// result. A done context ends the chain with the error that surfaced it.
func firstSuccess[T any](ctx context.Context, kind string, names []string, calls []func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	tried := 0
	for i, call := range calls {
		if call == nil {
			continue
		}
		tried++
		res, err := call()
		if err == nil {
			return res, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return zero, lastErr
		}
		logutil.GetLogger(ctx).Warn(kind+" failed, trying next",
			zap.Int("index", i),
			zap.String("name", names[i]),
			zap.Error(err))
	}
	if tried == 0 {
		return zero, fmt.Errorf("%s not configured: %w", kind, appErr.ErrUnavailable)
	}
	return zero, lastErr
}

type groupGenerator struct {
	items []GeneratorEntry
}

func NewGroupGenerator(items []GeneratorEntry) IGenerator {
	if len(items) == 0 {
		return nil
	}
	return &groupGenerator{items: items}
}

func (g *groupGenerator) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	names := make([]string, len(g.items))
	calls := make([]func() (string, error), len(g.items))
	for i, item := range g.items {
		names[i] = item.Name
		if item.Generator == nil {
			continue
		}
		gen := item.Generator
		calls[i] = func() (string, error) { return gen.Generate(ctx, prompt, maxTokens) }
	}
	return firstSuccess(ctx, "generator", names, calls)
}

type groupEmbedder struct {
	items []EmbedderEntry
	name  string
}

// NewGroupEmbedder names the group after its members joined by "|", so cache
// keys change whenever the chain does.
func NewGroupEmbedder(items []EmbedderEntry) IEmbedder {
	if len(items) == 0 {
		return nil
	}
	names := make([]string, 0, len(items))
	for _, item := range items {
		if item.Name != "" {
			names = append(names, item.Name)
		}
	}
	return &groupEmbedder{items: items, name: strings.Join(names, "|")}
}

func (g *groupEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	names := make([]string, len(g.items))
	calls := make([]func() ([]float32, error), len(g.items))
	for i, item := range g.items {
		names[i] = item.Name
		if item.Embedder == nil {
			continue
		}
		emb := item.Embedder
		calls[i] = func() ([]float32, error) { return emb.Embed(ctx, text, taskType) }
	}
	return firstSuccess(ctx, "embedder", names, calls)
}

func (g *groupEmbedder) ModelName() string {
	return g.name
}
