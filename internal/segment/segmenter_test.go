package segment

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xxxsen/docdigest/internal/model"
)

func paragraph(ch byte, n int) string {
	return strings.Repeat(string(ch), n)
}

func TestSegmentText_TwoParagraphsWithOverlap(t *testing.T) {
	s := New(Config{PagesPerChunk: 10, MaxChunkSize: 100, OverlapSize: 10, MinChunkSize: 20})
	p1 := strings.Repeat("abcdefghij", 8)
	p2 := paragraph('z', 80)
	chunks := s.SegmentText(context.Background(), "doc", p1+"\n\n"+p2, 1)
	require.Len(t, chunks, 2)
	require.Equal(t, p1, chunks[0].Content)
	require.True(t, strings.HasPrefix(chunks[1].Content, p1[len(p1)-10:]))
	require.Equal(t, 10, chunks[1].Metadata.OverlapChars)
	require.Equal(t, model.ChunkTypeTextSegment, chunks[1].Metadata.ChunkType)
	require.Equal(t, 0, chunks[0].Metadata.ChunkIndex)
	require.Equal(t, 1, chunks[1].Metadata.ChunkIndex)
	require.Equal(t, 2, chunks[1].Metadata.TotalChunks)
}

func TestSegmentText_ZeroPages(t *testing.T) {
	s := New(Config{})
	require.Empty(t, s.SegmentText(context.Background(), "doc", "anything", 0))
	require.Empty(t, s.Segment(context.Background(), "doc", nil))
}

func TestSegment_SmallDocumentIsFullDocument(t *testing.T) {
	s := New(Config{PagesPerChunk: 3, MaxChunkSize: 1000, OverlapSize: 10, MinChunkSize: 10})
	chunks := s.Segment(context.Background(), "doc", []string{"page one", "page two"})
	require.Len(t, chunks, 1)
	require.Equal(t, model.ChunkTypeFullDocument, chunks[0].Metadata.ChunkType)
	require.Equal(t, "all", chunks[0].Metadata.PageRange)
	require.Equal(t, "page one\n\npage two", chunks[0].Content)
	require.Equal(t, 2, chunks[0].Metadata.TotalPages)
}

func TestSegment_PageRanges(t *testing.T) {
	s := New(Config{PagesPerChunk: 2, MaxChunkSize: 1000, OverlapSize: 10, MinChunkSize: 10})
	pages := []string{"alpha  text", "12", "gamma\ttext", "delta", "epsilon"}
	chunks := s.Segment(context.Background(), "doc", pages)
	require.Len(t, chunks, 3)
	require.Equal(t, "1-2", chunks[0].Metadata.PageRange)
	require.Equal(t, "alpha text", chunks[0].Content)
	require.Equal(t, "3-4", chunks[1].Metadata.PageRange)
	require.Equal(t, "gamma text\n\ndelta", chunks[1].Content)
	require.Equal(t, "5-5", chunks[2].Metadata.PageRange)
	require.Equal(t, 1, chunks[2].Metadata.PagesInChunk)
	for i, c := range chunks {
		require.Equal(t, model.ChunkTypePageRange, c.Metadata.ChunkType)
		require.Equal(t, i, c.Metadata.ChunkIndex)
		require.Equal(t, 3, c.Metadata.TotalChunks)
		require.Equal(t, 5, c.Metadata.TotalPages)
	}
}

func TestSegmentText_SplitsPagesOnFormFeed(t *testing.T) {
	s := New(Config{PagesPerChunk: 1, MaxChunkSize: 1000, OverlapSize: 10, MinChunkSize: 10})
	chunks := s.SegmentText(context.Background(), "doc", "first\fsecond", 2)
	require.Len(t, chunks, 2)
	require.Equal(t, "first", chunks[0].Content)
	require.Equal(t, "second", chunks[1].Content)
}

func TestSegment_OversizedParagraphKeptWhole(t *testing.T) {
	s := New(Config{PagesPerChunk: 10, MaxChunkSize: 100, OverlapSize: 10, MinChunkSize: 20})
	big := paragraph('b', 250)
	text := paragraph('a', 60) + "\n\n" + big + "\n\n" + paragraph('c', 60)
	chunks := s.Segment(context.Background(), "doc", []string{text})
	require.Len(t, chunks, 3)
	require.Equal(t, big, chunks[1].Content)
	require.Equal(t, 0, chunks[1].Metadata.OverlapChars)
	require.True(t, strings.HasSuffix(chunks[2].Content, paragraph('c', 60)))
}

func TestSegment_SizeBoundsAndReconstruction(t *testing.T) {
	const maxSize, overlap, minSize = 120, 15, 30
	s := New(Config{PagesPerChunk: 10, MaxChunkSize: maxSize, OverlapSize: overlap, MinChunkSize: minSize})
	var paras []string
	for i := 0; i < 40; i++ {
		paras = append(paras, fmt.Sprintf("paragraph %d %s", i, strings.Repeat("w", 10+(i*7)%60)))
	}
	text := strings.Join(paras, "\n\n")
	chunks := s.Segment(context.Background(), "doc", []string{text})
	require.Greater(t, len(chunks), 1)

	var rebuilt []string
	for i, c := range chunks {
		require.LessOrEqual(t, runeLen(c.Content), maxSize)
		if i < len(chunks)-1 {
			require.GreaterOrEqual(t, runeLen(c.Content), minSize)
		}
		body := string([]rune(c.Content)[c.Metadata.OverlapChars:])
		rebuilt = append(rebuilt, strings.TrimSpace(body))
	}
	require.Equal(t, strings.Join(strings.Fields(text), " "), strings.Join(strings.Fields(strings.Join(rebuilt, "\n\n")), " "))
}

func TestSegment_Idempotent(t *testing.T) {
	s := New(Config{PagesPerChunk: 2, MaxChunkSize: 50, OverlapSize: 5, MinChunkSize: 10})
	pages := []string{"one two three four five six seven\n\neight nine ten eleven twelve", "thirteen", "fourteen fifteen"}
	a := s.Segment(context.Background(), "doc", pages)
	b := s.Segment(context.Background(), "doc", pages)
	require.Equal(t, a, b)
}

func TestNormalize(t *testing.T) {
	in := "Title\t\t here \r\n\n\n\n  42  \nbody   line\n"
	require.Equal(t, "Title here\n\nbody line", Normalize(in))
}

func TestComputeStats(t *testing.T) {
	chunks := []*model.Chunk{
		{Content: "aaaa", Metadata: model.ChunkMetadata{ChunkType: model.ChunkTypeTextSegment, PageRange: "1-10", PagesInChunk: 10}},
		{Content: "bb", Metadata: model.ChunkMetadata{ChunkType: model.ChunkTypeTextSegment, PageRange: "1-10", PagesInChunk: 10}},
		{Content: "cccccc", Metadata: model.ChunkMetadata{ChunkType: model.ChunkTypePageRange, PageRange: "11-12", PagesInChunk: 2}},
	}
	st := ComputeStats(chunks)
	require.Equal(t, 3, st.TotalChunks)
	require.Equal(t, 12, st.TotalChars)
	require.Equal(t, 12, st.TotalPages)
	require.Equal(t, 4, st.AverageChunkSize)
	require.Equal(t, 2, st.ByType[model.ChunkTypeTextSegment])
	require.Contains(t, Describe(chunks), "page_range (11-12) - 6 chars")
}
