package segment

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/docdigest/internal/model"
	"go.uber.org/zap"
)

const (
	defaultPagesPerChunk = 10
	defaultMaxChunkSize  = 4000
	defaultOverlapSize   = 200
	defaultMinChunkSize  = 500

	// PageSeparator delimits pages inside extracted text.
	PageSeparator = "\f"

	paragraphSep = "\n\n"
	fullRange    = "all"
)

var (
	paragraphSplitRe = regexp.MustCompile(`\n\s*\n`)
	horizontalWSRe   = regexp.MustCompile(`[ \t\v\f\r\x{00a0}]+`)
	pageNumberLineRe = regexp.MustCompile(`(?m)^ *\d+ *$`)
	lineEdgeSpaceRe  = regexp.MustCompile(`(?m)^ +| +$`)
	manyNewlinesRe   = regexp.MustCompile(`\n{3,}`)
)

type Config struct {
	PagesPerChunk int
	MaxChunkSize  int
	OverlapSize   int
	MinChunkSize  int
}

type Segmenter struct {
	cfg Config
}

func New(cfg Config) *Segmenter {
	if cfg.PagesPerChunk <= 0 {
		cfg.PagesPerChunk = defaultPagesPerChunk
	}
	if cfg.MaxChunkSize <= 0 {
		cfg.MaxChunkSize = defaultMaxChunkSize
	}
	if cfg.OverlapSize < 0 {
		cfg.OverlapSize = 0
	}
	if cfg.OverlapSize >= cfg.MaxChunkSize {
		cfg.OverlapSize = cfg.MaxChunkSize / 2
	}
	if cfg.MinChunkSize < 0 {
		cfg.MinChunkSize = 0
	}
	if cfg.MinChunkSize > cfg.MaxChunkSize {
		cfg.MinChunkSize = cfg.MaxChunkSize
	}
	return &Segmenter{cfg: cfg}
}

func (s *Segmenter) Config() Config {
	return s.cfg
}

// SegmentText splits text whose pages are separated by PageSeparator.
// pageCount is what the extractor reported; when the text carries no page
// separators it can only be treated as a single document.
func (s *Segmenter) SegmentText(ctx context.Context, sourceID string, text string, pageCount int) []*model.Chunk {
	if pageCount <= 0 {
		return nil
	}
	pages := strings.Split(text, PageSeparator)
	if pageCount <= s.cfg.PagesPerChunk || len(pages) <= 1 {
		return s.finish(ctx, s.fullDocument(sourceID, strings.Join(pages, paragraphSep), max(pageCount, len(pages))))
	}
	return s.finish(ctx, s.pageRanges(sourceID, pages, max(pageCount, len(pages))))
}

// Segment splits an already paginated document.
func (s *Segmenter) Segment(ctx context.Context, sourceID string, pages []string) []*model.Chunk {
	if len(pages) == 0 {
		return nil
	}
	if len(pages) <= s.cfg.PagesPerChunk {
		return s.finish(ctx, s.fullDocument(sourceID, strings.Join(pages, paragraphSep), len(pages)))
	}
	return s.finish(ctx, s.pageRanges(sourceID, pages, len(pages)))
}

func (s *Segmenter) fullDocument(sourceID string, text string, totalPages int) []*model.Chunk {
	content := strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
	if content == "" {
		return nil
	}
	return []*model.Chunk{{
		Content: content,
		Metadata: model.ChunkMetadata{
			SourceID:     sourceID,
			ChunkType:    model.ChunkTypeFullDocument,
			PageRange:    fullRange,
			TotalPages:   totalPages,
			PagesInChunk: totalPages,
		},
	}}
}

func (s *Segmenter) pageRanges(sourceID string, pages []string, totalPages int) []*model.Chunk {
	var out []*model.Chunk
	for start := 0; start < len(pages); start += s.cfg.PagesPerChunk {
		end := min(start+s.cfg.PagesPerChunk, len(pages))
		content := Normalize(strings.Join(pages[start:end], paragraphSep))
		if content == "" {
			continue
		}
		out = append(out, &model.Chunk{
			Content: content,
			Metadata: model.ChunkMetadata{
				SourceID:     sourceID,
				ChunkType:    model.ChunkTypePageRange,
				PageRange:    fmt.Sprintf("%d-%d", start+1, end),
				TotalPages:   totalPages,
				PagesInChunk: end - start,
			},
		})
	}
	return out
}

// finish re-splits oversized chunks and assigns dense indices.
func (s *Segmenter) finish(ctx context.Context, chunks []*model.Chunk) []*model.Chunk {
	logger := logutil.GetLogger(ctx)
	out := make([]*model.Chunk, 0, len(chunks))
	for _, c := range chunks {
		if runeLen(c.Content) <= s.cfg.MaxChunkSize {
			out = append(out, c)
			continue
		}
		parts := s.splitParagraphs(c)
		logger.Debug("chunk re-split by paragraph",
			zap.String("page_range", c.Metadata.PageRange),
			zap.Int("length", runeLen(c.Content)),
			zap.Int("parts", len(parts)))
		out = append(out, parts...)
	}
	for i, c := range out {
		c.Metadata.ChunkIndex = i
		c.Metadata.TotalChunks = len(out)
		c.Metadata.TextLength = runeLen(c.Content)
	}
	return out
}

func (s *Segmenter) splitParagraphs(base *model.Chunk) []*model.Chunk {
	var (
		out     []*model.Chunk
		buf     string
		overlap int
	)
	sepLen := runeLen(paragraphSep)
	emit := func() {
		meta := base.Metadata
		meta.ChunkType = model.ChunkTypeTextSegment
		meta.OverlapChars = overlap
		out = append(out, &model.Chunk{Content: buf, Metadata: meta})
	}
	for _, p := range splitParagraphText(base.Content) {
		if buf == "" {
			buf = p
			continue
		}
		bufLen, pLen := runeLen(buf), runeLen(p)
		if bufLen+sepLen+pLen <= s.cfg.MaxChunkSize || bufLen < s.cfg.MinChunkSize {
			// too small to close: merge forward even past the limit
			buf += paragraphSep + p
			continue
		}
		emit()
		tail := tailRunes(buf, min(s.cfg.OverlapSize, s.cfg.MaxChunkSize-sepLen-pLen))
		if tail == "" {
			buf, overlap = p, 0
			continue
		}
		buf, overlap = tail+paragraphSep+p, runeLen(tail)
	}
	if buf != "" {
		emit()
	}
	return out
}

// Normalize collapses horizontal whitespace, drops bare page-number lines
// and squeezes runs of blank lines into one.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = horizontalWSRe.ReplaceAllString(text, " ")
	text = pageNumberLineRe.ReplaceAllString(text, "")
	text = lineEdgeSpaceRe.ReplaceAllString(text, "")
	text = manyNewlinesRe.ReplaceAllString(text, paragraphSep)
	return strings.TrimSpace(text)
}

func splitParagraphText(text string) []string {
	raw := paragraphSplitRe.Split(text, -1)
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func tailRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if n >= len(r) {
		return s
	}
	return string(r[len(r)-n:])
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
