package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docdigest/internal/chunkcache"
	"github.com/xxxsen/docdigest/internal/extract"
	"github.com/xxxsen/docdigest/internal/model"
	appErr "github.com/xxxsen/docdigest/internal/pkg/errors"
	"github.com/xxxsen/docdigest/internal/process"
	"github.com/xxxsen/docdigest/internal/rank"
	"github.com/xxxsen/docdigest/internal/reduce"
	"github.com/xxxsen/docdigest/internal/segment"
	"github.com/xxxsen/docdigest/internal/vectorstore"
)

const (
	NoInformationAnswer = "I don't have enough information in the uploaded documents to answer this question. Please upload relevant documents or ask a different question."
	UnavailableAnswer   = "Sorry, I couldn't process your request at the moment."

	askTopK               = 3
	defaultCandidateLimit = 50
)

// AIClient is what the pipeline needs from the model backends.
type AIClient interface {
	SummarizeChunk(ctx context.Context, chunk *model.Chunk) (string, error)
	EmbedChunk(ctx context.Context, chunk *model.Chunk) ([]float32, error)
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
	CheckRelevance(ctx context.Context, question string, passages string) (bool, error)
	Answer(ctx context.Context, question string, passages string, fallback string) (string, error)
}

type summaryRepo interface {
	Upsert(ctx context.Context, item *model.DocumentSummary) error
}

type Options struct {
	Extractor    extract.Extractor
	Segmenter    *segment.Segmenter
	Cache        chunkcache.Cache
	Orchestrator *process.Orchestrator
	Reducer      *reduce.Reducer
	Ranker       *rank.Ranker
	AI           AIClient
	Store        vectorstore.Store
	// Summaries is optional; without it summaries are only returned.
	Summaries         summaryRepo
	CandidateLimit    int
	RelevanceOverride bool
	Now               func() time.Time
}

type DocumentService struct {
	opts Options
}

func NewDocumentService(opts Options) *DocumentService {
	if opts.Extractor == nil {
		opts.Extractor = extract.New()
	}
	if opts.Cache == nil {
		opts.Cache = chunkcache.NewNop()
	}
	if opts.Store == nil {
		opts.Store = vectorstore.NewMemory()
	}
	if opts.CandidateLimit <= 0 {
		opts.CandidateLimit = defaultCandidateLimit
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &DocumentService{opts: opts}
}

type IngestResult struct {
	RunID               string                `json:"run_id"`
	SourceID            string                `json:"source_id"`
	ContentHash         string                `json:"content_hash"`
	FromCache           bool                  `json:"from_cache"`
	ChunkCount          int                   `json:"chunk_count"`
	SummariesSucceeded  int                   `json:"summaries_succeeded"`
	SummariesFailed     int                   `json:"summaries_failed"`
	EmbeddingsSucceeded int                   `json:"embeddings_succeeded"`
	EmbeddingsFailed    int                   `json:"embeddings_failed"`
	Failures            []process.UnitFailure `json:"-"`
	Summary             string                `json:"summary"`
	Reduction           *reduce.Result        `json:"reduction,omitempty"`
	Stats               segment.Stats         `json:"stats"`
	Success             bool                  `json:"success"`
	Duration            time.Duration         `json:"duration"`
}

// Ingest extracts, segments, processes and summarizes one file.
func (s *DocumentService) Ingest(ctx context.Context, path string) (*IngestResult, error) {
	text, pages, raw, err := extract.ExtractFile(ctx, s.opts.Extractor, path)
	if err != nil {
		return nil, err
	}
	return s.ingest(ctx, filepath.Base(path), hashBytes(raw), text, pages)
}

// IngestText runs the pipeline on already extracted text. Pages are separated by form feeds.
func (s *DocumentService) IngestText(ctx context.Context, sourceID string, text string, pageCount int) (*IngestResult, error) {
	if strings.TrimSpace(sourceID) == "" {
		return nil, fmt.Errorf("source id is required: %w", appErr.ErrInvalid)
	}
	return s.ingest(ctx, sourceID, hashBytes([]byte(text)), text, pageCount)
}

func (s *DocumentService) ingest(ctx context.Context, sourceID, contentHash, text string, pageCount int) (*IngestResult, error) {
	start := s.opts.Now()
	res := &IngestResult{RunID: newRunID(), SourceID: sourceID, ContentHash: contentHash}
	logger := logutil.GetLogger(ctx).With(zap.String("run_id", res.RunID), zap.String("source_id", sourceID))

	chunks, hit := s.opts.Cache.Get(ctx, contentHash)
	if hit {
		for _, c := range chunks {
			c.Metadata.SourceID = sourceID
		}
	} else {
		chunks = s.opts.Segmenter.SegmentText(ctx, sourceID, text, pageCount)
		if len(chunks) > 0 {
			s.opts.Cache.Put(ctx, contentHash, chunks)
		}
	}
	res.FromCache = hit
	res.ChunkCount = len(chunks)
	res.Stats = segment.ComputeStats(chunks)
	logger.Info("document segmented",
		zap.Bool("from_cache", hit),
		zap.Int("chunks", len(chunks)),
		zap.Int("pages", pageCount))
	if len(chunks) == 0 {
		return res, fmt.Errorf("%s produced no chunks: %w", sourceID, appErr.ErrTotalFailure)
	}

	processed := s.opts.Orchestrator.Process(ctx, chunks, s.opts.AI.SummarizeChunk, s.opts.AI.EmbedChunk)
	res.SummariesSucceeded = processed.Summarize.Succeeded
	res.SummariesFailed = processed.Summarize.Failed
	res.EmbeddingsSucceeded = processed.Embed.Succeeded
	res.EmbeddingsFailed = processed.Embed.Failed
	res.Failures = processed.Failures

	if err := s.storeChunks(ctx, sourceID, chunks, processed.Embeddings); err != nil {
		return res, err
	}

	usable := processed.UsableSummaries()
	if len(usable) == 0 {
		res.Duration = s.opts.Now().Sub(start)
		logger.Error("all chunk summaries failed", zap.Int("chunks", len(chunks)))
		return res, fmt.Errorf("%s: no chunk summary succeeded: %w", sourceID, appErr.ErrTotalFailure)
	}

	reduced := s.opts.Reducer.Reduce(ctx, usable)
	res.Reduction = reduced
	res.Summary = reduced.Summary
	res.Success = true

	if s.opts.Summaries != nil {
		if err := s.opts.Summaries.Upsert(ctx, &model.DocumentSummary{
			SourceID:   sourceID,
			RunID:      res.RunID,
			Summary:    reduced.Summary,
			ChunkCount: len(chunks),
			Ctime:      s.opts.Now().Unix(),
		}); err != nil {
			return res, fmt.Errorf("save summary of %s: %w", sourceID, err)
		}
	}
	res.Duration = s.opts.Now().Sub(start)
	logger.Info("document ingested",
		zap.Int("summaries_succeeded", res.SummariesSucceeded),
		zap.Int("embeddings_succeeded", res.EmbeddingsSucceeded),
		zap.Int("reduce_calls", reduced.Calls),
		zap.Duration("duration", res.Duration))
	return res, nil
}

func (s *DocumentService) storeChunks(ctx context.Context, sourceID string, chunks []*model.Chunk, embeddings [][]float32) error {
	if err := s.opts.Store.DeleteSource(ctx, sourceID); err != nil {
		return err
	}
	now := s.opts.Now().Unix()
	for i, c := range chunks {
		meta, err := json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("encode chunk metadata: %w", err)
		}
		doc := &model.DocumentChunk{
			DocumentID: vectorstore.DocumentID(sourceID, c.Metadata.ChunkIndex),
			SourceID:   sourceID,
			ChunkIndex: c.Metadata.ChunkIndex,
			Content:    c.Content,
			Metadata:   string(meta),
			Ctime:      now,
		}
		if i < len(embeddings) {
			doc.Embedding = embeddings[i]
		}
		if err := s.opts.Store.Put(ctx, doc); err != nil {
			return err
		}
	}
	return nil
}

type BatchItem struct {
	Path   string        `json:"path"`
	Result *IngestResult `json:"result,omitempty"`
	Err    error         `json:"-"`
	Error  string        `json:"error,omitempty"`
}

// IngestBatch ingests files one after another. A failing file is reported in its
// item and does not stop the batch; only cancellation does.
func (s *DocumentService) IngestBatch(ctx context.Context, paths []string) ([]*BatchItem, error) {
	items := make([]*BatchItem, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return items, err
		}
		res, err := s.Ingest(ctx, path)
		if err != nil {
			level := logutil.GetLogger(ctx).Error
			if appErr.IsExtraction(err) {
				level = logutil.GetLogger(ctx).Warn
			}
			level("ingest failed", zap.String("path", path), zap.Error(err))
		}
		item := &BatchItem{Path: path, Result: res, Err: err}
		if err != nil {
			item.Error = err.Error()
		}
		items = append(items, item)
	}
	return items, nil
}

// Search ranks stored chunk documents against the query. A failed query embedding
// degrades to keyword-only ranking.
func (s *DocumentService) Search(ctx context.Context, query string, k int) ([]*model.RankedResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query is required: %w", appErr.ErrInvalid)
	}
	logger := logutil.GetLogger(ctx).With(zap.String("query", query))
	queryEmb, err := s.opts.AI.EmbedQuery(ctx, query)
	if err != nil {
		logger.Warn("query embedding failed, using keyword ranking only", zap.Error(err))
		queryEmb = nil
	}
	docs, err := s.opts.Store.Query(ctx, s.opts.CandidateLimit)
	if err != nil {
		return nil, err
	}
	results := s.opts.Ranker.Rank(ctx, rank.Request{
		Query:          query,
		QueryEmbedding: queryEmb,
		Documents:      docs,
		K:              k,
	})
	logger.Debug("search finished", zap.Int("candidates", len(docs)), zap.Int("results", len(results)))
	return results, nil
}

type Answer struct {
	Question string                `json:"question"`
	Answer   string                `json:"answer"`
	Sources  []*model.RankedResult `json:"sources"`
	// Overridden is set when a NOT_RELEVANT verdict was ignored because the
	// ranker had hits.
	Overridden bool `json:"overridden"`
}

// Ask answers a question from the top ranked chunks.
//
// Relevance override: when the model judges the retrieved passages not relevant but
// the ranker returned at least one hit, the verdict is ignored (and logged) if
// RelevanceOverride is enabled. A failed relevance check proceeds to answering, and a
// failed answer call yields UnavailableAnswer instead of an error.
func (s *DocumentService) Ask(ctx context.Context, question string) (*Answer, error) {
	results, err := s.Search(ctx, question, askTopK)
	if err != nil {
		return nil, err
	}
	out := &Answer{Question: question, Sources: results}
	if len(results) == 0 {
		out.Answer = NoInformationAnswer
		return out, nil
	}
	logger := logutil.GetLogger(ctx).With(zap.Int("snippets", len(results)))
	passages := buildPassages(results)

	relevant, err := s.opts.AI.CheckRelevance(ctx, question, passages)
	switch {
	case err != nil:
		logger.Warn("relevance check failed, proceeding with answer generation", zap.Error(err))
	case !relevant && s.opts.RelevanceOverride:
		logger.Warn("relevance check returned NOT_RELEVANT but ranked snippets exist, proceeding")
		out.Overridden = true
	case !relevant:
		out.Answer = NoInformationAnswer
		return out, nil
	}

	answer, err := s.opts.AI.Answer(ctx, question, passages, NoInformationAnswer)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		logger.Error("answer generation failed", zap.Error(err))
		out.Answer = UnavailableAnswer
		return out, nil
	}
	out.Answer = answer
	return out, nil
}

func buildPassages(results []*model.RankedResult) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		text := r.Snippet
		if text == "" {
			text = r.Document.Content
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n\n")
}

func hashBytes(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
