package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/docdigest/internal/model"
	appErr "github.com/xxxsen/docdigest/internal/pkg/errors"
	"go.uber.org/zap"
)

const (
	defaultRetryInterval     = 500 * time.Millisecond
	defaultChunkContentLimit = 16000
	defaultChunkMaxTokens    = 1000
	relevanceMaxTokens       = 50
	answerMaxTokens          = 1000
)

type ManagerConfig struct {
	Timeout           time.Duration
	Retries           int
	RetryInterval     time.Duration
	MaxEmbedChars     int
	ChunkContentLimit int
	ChunkMaxTokens    int
}

// Manager fronts the configured generator and embedder with per-call timeouts,
// retries and input limits.
type Manager struct {
	generator IGenerator
	embedder  IEmbedder
	cfg       ManagerConfig
}

func NewManager(generator IGenerator, embedder IEmbedder, cfg ManagerConfig) *Manager {
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = defaultRetryInterval
	}
	if cfg.ChunkContentLimit <= 0 {
		cfg.ChunkContentLimit = defaultChunkContentLimit
	}
	if cfg.ChunkMaxTokens <= 0 {
		cfg.ChunkMaxTokens = defaultChunkMaxTokens
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	return &Manager{generator: generator, embedder: embedder, cfg: cfg}
}

func (m *Manager) HasGenerator() bool {
	return m.generator != nil
}

// Summarize runs a single reduction prompt with an output token budget.
func (m *Manager) Summarize(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if m.generator == nil {
		return "", fmt.Errorf("generator not configured: %w", appErr.ErrUnavailable)
	}
	return withRetry(ctx, m, "generate", func(ctx context.Context) (string, error) {
		resp, err := m.generator.Generate(ctx, prompt, maxTokens)
		if err != nil {
			return "", err
		}
		text := strings.TrimSpace(resp)
		if text == "" {
			return "", fmt.Errorf("empty ai response")
		}
		return text, nil
	})
}

// SummarizeChunk summarizes one chunk. Blank chunks yield an empty summary.
func (m *Manager) SummarizeChunk(ctx context.Context, chunk *model.Chunk) (string, error) {
	if strings.TrimSpace(chunk.Content) == "" {
		return "", nil
	}
	content := truncateRunes(chunk.Content, m.cfg.ChunkContentLimit)
	return m.Summarize(ctx, chunkSummaryPrompt(chunk, content), m.cfg.ChunkMaxTokens)
}

func (m *Manager) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	if m.embedder == nil {
		return nil, fmt.Errorf("embedder not configured: %w", appErr.ErrUnavailable)
	}
	if m.cfg.MaxEmbedChars > 0 {
		text = truncateRunes(text, m.cfg.MaxEmbedChars)
	}
	return withRetry(ctx, m, "embed", func(ctx context.Context) ([]float32, error) {
		vec, err := m.embedder.Embed(ctx, text, taskType)
		if err != nil {
			return nil, err
		}
		if len(vec) == 0 {
			return nil, fmt.Errorf("empty embedding")
		}
		return vec, nil
	})
}

func (m *Manager) EmbedChunk(ctx context.Context, chunk *model.Chunk) ([]float32, error) {
	return m.Embed(ctx, chunk.Content, TaskTypeDocument)
}

func (m *Manager) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	return m.Embed(ctx, query, TaskTypeQuery)
}

// CheckRelevance asks the generator whether the passages can answer the question.
func (m *Manager) CheckRelevance(ctx context.Context, question string, passages string) (bool, error) {
	verdict, err := m.Summarize(ctx, relevancePrompt(question, passages), relevanceMaxTokens)
	if err != nil {
		return false, err
	}
	return !strings.Contains(strings.ToUpper(verdict), NotRelevantVerdict), nil
}

// Answer generates a grounded answer. fallback is the text the model is told to
// reply with when the context is insufficient.
func (m *Manager) Answer(ctx context.Context, question string, passages string, fallback string) (string, error) {
	return m.Summarize(ctx, answerPrompt(question, passages, fallback), answerMaxTokens)
}

func (m *Manager) EmbeddingModelName() string {
	if m.embedder == nil {
		return ""
	}
	return m.embedder.ModelName()
}

func withRetry[T any](ctx context.Context, m *Manager, op string, fn func(context.Context) (T, error)) (T, error) {
	attempt := 0
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = m.cfg.RetryInterval
	return backoff.Retry(ctx, func() (T, error) {
		attempt++
		callCtx := ctx
		if m.cfg.Timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, m.cfg.Timeout)
			defer cancel()
		}
		res, err := fn(callCtx)
		if err == nil {
			return res, nil
		}
		if errors.Is(err, appErr.ErrUnavailable) {
			return res, backoff.Permanent(err)
		}
		logutil.GetLogger(ctx).Debug("ai call failed",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		return res, err
	}, backoff.WithBackOff(eb), backoff.WithMaxTries(uint(m.cfg.Retries+1)))
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
