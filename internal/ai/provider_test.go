package ai

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xxxsen/docdigest/internal/config"
	appErr "github.com/xxxsen/docdigest/internal/pkg/errors"
)

type failingEmbedder struct{ name string }

func (f failingEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	return nil, errors.New("backend down")
}

func (f failingEmbedder) ModelName() string { return f.name }

func norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func TestHashEmbedder(t *testing.T) {
	ctx := context.Background()
	e := NewHashEmbedder(0)
	require.Equal(t, "hash", e.ModelName())

	a, err := e.Embed(ctx, "The quick brown fox jumps over the lazy dog", TaskTypeDocument)
	require.NoError(t, err)
	require.Len(t, a, defaultHashDims)
	require.InDelta(t, 1.0, norm(a), 1e-5)

	again, err := e.Embed(ctx, "the QUICK brown fox jumps over the lazy dog!", TaskTypeQuery)
	require.NoError(t, err)
	require.Equal(t, a, again)

	near, err := e.Embed(ctx, "quick brown fox", TaskTypeQuery)
	require.NoError(t, err)
	far, err := e.Embed(ctx, "quarterly revenue forecast spreadsheet", TaskTypeQuery)
	require.NoError(t, err)
	require.Greater(t, dot(a, near), dot(a, far))

	empty, err := e.Embed(ctx, "  ", TaskTypeQuery)
	require.NoError(t, err)
	require.Len(t, empty, defaultHashDims)
	require.Zero(t, norm(empty))
}

func TestGroupEmbedderFallsBack(t *testing.T) {
	g := NewGroupEmbedder([]EmbedderEntry{
		{Name: "remote", Embedder: failingEmbedder{name: "remote"}},
		{Name: "hash", Embedder: NewHashEmbedder(8)},
	})
	vec, err := g.Embed(context.Background(), "hello world", TaskTypeQuery)
	require.NoError(t, err)
	require.Len(t, vec, 8)
	require.Equal(t, "remote|hash", g.ModelName())

	_, err = NewGroupEmbedder([]EmbedderEntry{{Name: "only", Embedder: failingEmbedder{name: "only"}}}).Embed(context.Background(), "x", TaskTypeQuery)
	require.EqualError(t, err, "backend down")
}

func TestGroupGeneratorStopsOnDoneContext(t *testing.T) {
	second := &fakeGenerator{reply: "ok"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g := NewGroupGenerator([]GeneratorEntry{{Name: "a", Generator: blockingGenerator{}}, {Name: "b", Generator: second}})
	_, err := g.Generate(ctx, "p", 5)
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, second.calls)
}

func TestGroupGeneratorFallsBack(t *testing.T) {
	first := &fakeGenerator{failFirst: 1}
	second := &fakeGenerator{reply: "ok"}
	g := NewGroupGenerator([]GeneratorEntry{{Name: "a", Generator: first}, {Name: "b", Generator: second}})
	out, err := g.Generate(context.Background(), "p", 5)
	require.NoError(t, err)
	require.Equal(t, "ok", out)
	require.Equal(t, []int{5}, second.maxTokens)

	require.Nil(t, NewGroupGenerator(nil))
	_, err = NewGroupGenerator([]GeneratorEntry{{Name: "empty"}}).Generate(context.Background(), "p", 5)
	require.ErrorIs(t, err, appErr.ErrUnavailable)
}

func TestBuildFromConfig(t *testing.T) {
	emb, err := BuildEmbedder([]config.AIProviderConfig{{Provider: "hash", Data: map[string]interface{}{"dims": 16}}})
	require.NoError(t, err)
	require.Equal(t, "hash", emb.ModelName())
	vec, err := emb.Embed(context.Background(), "text", TaskTypeDocument)
	require.NoError(t, err)
	require.Len(t, vec, 16)

	_, err = BuildEmbedder([]config.AIProviderConfig{{Provider: "nope"}})
	require.Error(t, err)
	_, err = BuildGenerator([]config.AIProviderConfig{{Provider: "hash"}})
	require.Error(t, err)

	gen, err := BuildGenerator([]config.AIProviderConfig{
		{Provider: "openai", Model: "gpt-4o-mini"},
		{Provider: "openrouter", Model: "x", Data: map[string]interface{}{"x_title": "docdigest"}},
		{Provider: "gemini", Model: "gemini-2.0-flash"},
	})
	require.NoError(t, err)
	_, err = gen.Generate(context.Background(), "p", 10)
	require.ErrorIs(t, err, appErr.ErrUnavailable)

	none, err := BuildGenerator(nil)
	require.NoError(t, err)
	require.Nil(t, none)
}
