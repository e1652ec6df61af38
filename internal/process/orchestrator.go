package process

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/xxxsen/docdigest/internal/model"
	appErr "github.com/xxxsen/docdigest/internal/pkg/errors"
)

const (
	TaskSummarize = "summarize"
	TaskEmbed     = "embed"

	defaultTimeout = 300 * time.Second
	maxWorkers     = 16
)

type SummarizeFunc func(ctx context.Context, chunk *model.Chunk) (string, error)
type EmbedFunc func(ctx context.Context, chunk *model.Chunk) ([]float32, error)

type Config struct {
	Workers int
	Timeout time.Duration
}

type UnitFailure struct {
	ChunkIndex int
	Task       string
	Err        error
}

type TaskStats struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	TimedOut  int `json:"timed_out"`
}

// Result holds one slot per input chunk. Failed slots stay nil.
type Result struct {
	Summaries  []*model.ChunkSummary
	Embeddings [][]float32
	Summarize  TaskStats
	Embed      TaskStats
	Failures   []UnitFailure
	Success    bool
	Duration   time.Duration
}

func (r *Result) UsableSummaries() []*model.ChunkSummary {
	out := make([]*model.ChunkSummary, 0, r.Summarize.Succeeded)
	for _, s := range r.Summaries {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

type Orchestrator struct {
	workers int
	timeout time.Duration
	calls   *semaphore.Weighted
	tracer  trace.Tracer
}

func DefaultWorkers() int {
	return min(runtime.NumCPU(), maxWorkers)
}

func New(cfg Config) *Orchestrator {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Orchestrator{
		workers: cfg.Workers,
		timeout: cfg.Timeout,
		calls:   semaphore.NewWeighted(int64(cfg.Workers)),
		tracer:  otel.Tracer("github.com/xxxsen/docdigest/internal/process"),
	}
}

// Process runs one summarize and one embed unit per chunk on a bounded pool
// and returns once every unit has finished. A unit failure only empties its
// own slot. Caller cancellation does not reach the units; each is bounded by
// the per-unit timeout alone. At most Workers collaborator calls are in
// flight per Orchestrator, counting calls abandoned after a timeout.
func (o *Orchestrator) Process(ctx context.Context, chunks []*model.Chunk, summarize SummarizeFunc, embed EmbedFunc) *Result {
	start := time.Now()
	n := len(chunks)
	res := &Result{
		Summaries:  make([]*model.ChunkSummary, n),
		Embeddings: make([][]float32, n),
	}
	if n == 0 {
		return res
	}
	base := context.WithoutCancel(ctx)
	sumErrs := make([]error, n)
	embErrs := make([]error, n)

	var g errgroup.Group
	g.SetLimit(o.workers)
	for i, chunk := range chunks {
		g.Go(func() error {
			text, err := runUnit(base, o, TaskSummarize, i, func(uctx context.Context) (string, error) {
				s, err := summarize(uctx, chunk)
				if err == nil && strings.TrimSpace(s) == "" {
					err = appErr.ErrEmptyResult
				}
				return strings.TrimSpace(s), err
			})
			if err != nil {
				sumErrs[i] = err
				return nil
			}
			res.Summaries[i] = &model.ChunkSummary{
				ChunkIndex: chunk.Metadata.ChunkIndex,
				Metadata:   chunk.Metadata,
				Summary:    text,
			}
			return nil
		})
		g.Go(func() error {
			vec, err := runUnit(base, o, TaskEmbed, i, func(uctx context.Context) ([]float32, error) {
				v, err := embed(uctx, chunk)
				if err == nil && len(v) == 0 {
					err = appErr.ErrEmptyResult
				}
				return v, err
			})
			if err != nil {
				embErrs[i] = err
				return nil
			}
			res.Embeddings[i] = vec
			return nil
		})
	}
	_ = g.Wait()

	for i := 0; i < n; i++ {
		collect(&res.Summarize, &res.Failures, chunks[i].Metadata.ChunkIndex, TaskSummarize, sumErrs[i])
		collect(&res.Embed, &res.Failures, chunks[i].Metadata.ChunkIndex, TaskEmbed, embErrs[i])
	}
	res.Success = res.Summarize.Succeeded > 0 || res.Embed.Succeeded > 0
	res.Duration = time.Since(start)

	logutil.GetLogger(ctx).Info("chunk processing finished",
		zap.Int("chunks", n),
		zap.Int("workers", o.workers),
		zap.Int("summaries_succeeded", res.Summarize.Succeeded),
		zap.Int("summaries_failed", res.Summarize.Failed),
		zap.Int("embeddings_succeeded", res.Embed.Succeeded),
		zap.Int("embeddings_failed", res.Embed.Failed),
		zap.Bool("success", res.Success),
		zap.Duration("duration", res.Duration))
	return res
}

func collect(st *TaskStats, failures *[]UnitFailure, chunkIndex int, task string, err error) {
	if err == nil {
		st.Succeeded++
		return
	}
	st.Failed++
	if appErr.IsTimeout(err) {
		st.TimedOut++
	}
	*failures = append(*failures, UnitFailure{ChunkIndex: chunkIndex, Task: task, Err: err})
}

// runUnit enforces the timeout even when fn ignores its context; the
// abandoned call finishes in the background, keeps its call slot until then,
// and its result is dropped. Waiting for a slot counts against the timeout.
func runUnit[T any](base context.Context, o *Orchestrator, task string, idx int, fn func(context.Context) (T, error)) (T, error) {
	uctx, cancel := context.WithTimeout(base, o.timeout)
	defer cancel()
	uctx, span := o.tracer.Start(uctx, "process."+task, trace.WithAttributes(
		attribute.Int("chunk_position", idx),
	))
	defer span.End()

	type outcome struct {
		v   T
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{err: fmt.Errorf("%s unit panic: %v", task, r)}
			}
		}()
		if err := o.calls.Acquire(uctx, 1); err != nil {
			ch <- outcome{err: err}
			return
		}
		defer o.calls.Release(1)
		v, err := fn(uctx)
		ch <- outcome{v: v, err: err}
	}()

	var out outcome
	select {
	case out = <-ch:
		if out.err != nil && errors.Is(out.err, context.DeadlineExceeded) {
			out.err = fmt.Errorf("%w: %w", appErr.ErrTaskTimeout, out.err)
		}
	case <-uctx.Done():
		out.err = fmt.Errorf("%w: %s unit exceeded %s", appErr.ErrTaskTimeout, task, o.timeout)
	}
	if out.err != nil {
		span.RecordError(out.err)
		span.SetStatus(codes.Error, out.err.Error())
		logutil.GetLogger(base).Warn("unit failed",
			zap.String("task", task),
			zap.Int("position", idx),
			zap.Error(out.err))
		var zero T
		return zero, out.err
	}
	return out.v, nil
}
