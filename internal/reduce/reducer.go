package reduce

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xxxsen/docdigest/internal/model"
)

const (
	TruncationMarker = "\n\n[Content truncated due to size limits]"
	EmptySummary     = "No section summaries were available for this document."
	BatchFallbackTag = "(Fallback concatenation: batch summarization was unavailable)"

	defaultBatchThreshold    = 8
	defaultBatchSize         = 6
	defaultFinalBudget       = 16000
	defaultBatchBudget       = 6000
	defaultFromBatchesBudget = 8000
	defaultFinalMaxTokens    = 2000
	defaultBatchMaxTokens    = 1500
)

// Summarizer compresses a prompt into at most maxTokens of output. It must be
// safe to call again with the same input.
type Summarizer interface {
	Summarize(ctx context.Context, prompt string, maxTokens int) (string, error)
}

type SummarizerFunc func(ctx context.Context, prompt string, maxTokens int) (string, error)

func (f SummarizerFunc) Summarize(ctx context.Context, prompt string, maxTokens int) (string, error) {
	return f(ctx, prompt, maxTokens)
}

type Config struct {
	BatchThreshold    int
	BatchSize         int
	FinalBudget       int
	BatchBudget       int
	FromBatchesBudget int
	FinalMaxTokens    int
	BatchMaxTokens    int
}

type Result struct {
	Summary   string        `json:"summary"`
	Calls     int           `json:"calls"`
	Fallbacks int           `json:"fallbacks"`
	Levels    int           `json:"levels"`
	Inputs    int           `json:"inputs"`
	Duration  time.Duration `json:"duration"`
}

type Reducer struct {
	cfg    Config
	sum    Summarizer
	tracer trace.Tracer
}

func New(sum Summarizer, cfg Config) *Reducer {
	if cfg.BatchThreshold <= 0 {
		cfg.BatchThreshold = defaultBatchThreshold
	}
	if cfg.BatchSize < 2 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.FinalBudget <= 0 {
		cfg.FinalBudget = defaultFinalBudget
	}
	if cfg.BatchBudget <= 0 {
		cfg.BatchBudget = defaultBatchBudget
	}
	if cfg.FromBatchesBudget <= 0 {
		cfg.FromBatchesBudget = defaultFromBatchesBudget
	}
	if cfg.FinalMaxTokens <= 0 {
		cfg.FinalMaxTokens = defaultFinalMaxTokens
	}
	if cfg.BatchMaxTokens <= 0 {
		cfg.BatchMaxTokens = defaultBatchMaxTokens
	}
	return &Reducer{
		cfg:    cfg,
		sum:    sum,
		tracer: otel.Tracer("github.com/xxxsen/docdigest/internal/reduce"),
	}
}

type section struct {
	label string
	text  string
}

// Reduce folds chunk summaries into one document summary. Nil entries are
// skipped. While more than BatchThreshold sections remain they are reduced
// in batches of BatchSize, one level at a time; the survivors get one final
// call. A failed call at any level is replaced by a labelled concatenation of
// that call's inputs, so Reduce always returns text.
func (r *Reducer) Reduce(ctx context.Context, summaries []*model.ChunkSummary) *Result {
	start := time.Now()
	logger := logutil.GetLogger(ctx)
	items := make([]section, 0, len(summaries))
	for _, s := range summaries {
		if s == nil || strings.TrimSpace(s.Summary) == "" {
			continue
		}
		items = append(items, section{label: sectionLabel(s), text: s.Summary})
	}
	res := &Result{Inputs: len(items)}
	defer func() { res.Duration = time.Since(start) }()
	if len(items) == 0 {
		res.Summary = EmptySummary
		return res
	}

	for len(items) > r.cfg.BatchThreshold {
		res.Levels++
		batches := partition(items, r.cfg.BatchSize)
		logger.Info("reducing summaries in batches",
			zap.Int("level", res.Levels),
			zap.Int("inputs", len(items)),
			zap.Int("batches", len(batches)))
		next := make([]section, 0, len(batches))
		for i, batch := range batches {
			name := fmt.Sprintf("Batch %d", i+1)
			prompt := batchPrompt(name, truncate(join(batch), r.cfg.BatchBudget))
			text, err := r.call(ctx, res, "batch", prompt, r.cfg.BatchMaxTokens)
			if err != nil {
				logger.Warn("batch reduction failed, using concatenation",
					zap.Int("level", res.Levels), zap.Int("batch", i+1), zap.Error(err))
				res.Fallbacks++
				text = batchFallback(batch)
			}
			next = append(next, section{label: "[" + name + "]", text: text})
		}
		items = next
	}
	if len(items) == 1 && res.Levels > 0 {
		res.Summary = items[0].text
		return res
	}

	var prompt string
	if res.Levels == 0 {
		prompt = finalPrompt(len(items), truncate(join(items), r.cfg.FinalBudget))
	} else {
		prompt = finalFromBatchesPrompt(truncate(join(items), r.cfg.FromBatchesBudget))
	}
	text, err := r.call(ctx, res, "final", prompt, r.cfg.FinalMaxTokens)
	if err != nil {
		logger.Warn("final reduction failed, using fallback summary", zap.Int("sections", len(items)), zap.Error(err))
		res.Fallbacks++
		text = fallbackSummary(items)
	}
	res.Summary = text
	return res
}

func (r *Reducer) call(ctx context.Context, res *Result, stage string, prompt string, maxTokens int) (string, error) {
	ctx, span := r.tracer.Start(ctx, "reduce."+stage, trace.WithAttributes(
		attribute.Int("level", res.Levels),
		attribute.Int("prompt_chars", len(prompt)),
	))
	defer span.End()
	res.Calls++
	if r.sum == nil {
		return "", fmt.Errorf("summarizer not configured")
	}
	text, err := r.sum.Summarize(ctx, prompt, maxTokens)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("empty reduction response")
	}
	return text, nil
}

func sectionLabel(s *model.ChunkSummary) string {
	chunkType := s.Metadata.ChunkType
	if chunkType == "" {
		chunkType = "unknown"
	}
	pageRange := s.Metadata.PageRange
	if pageRange == "" {
		pageRange = "unknown"
	}
	return fmt.Sprintf("[Section %d: %s — %s]", s.ChunkIndex+1, chunkType, pageRange)
}

func partition(items []section, size int) [][]section {
	out := make([][]section, 0, (len(items)+size-1)/size)
	for i := 0; i < len(items); i += size {
		out = append(out, items[i:min(i+size, len(items))])
	}
	return out
}

func join(items []section) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, it.label+"\n"+it.text)
	}
	return strings.Join(parts, "\n\n")
}

// truncate cuts text to budget runes and says so in the text.
func truncate(text string, budget int) string {
	r := []rune(text)
	if len(r) <= budget {
		return text
	}
	return string(r[:budget]) + TruncationMarker
}
