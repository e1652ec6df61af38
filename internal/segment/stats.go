package segment

import (
	"fmt"
	"strings"

	"github.com/xxxsen/docdigest/internal/model"
)

type Stats struct {
	TotalChunks      int            `json:"total_chunks"`
	TotalChars       int            `json:"total_chars"`
	TotalPages       int            `json:"total_pages"`
	AverageChunkSize int            `json:"average_chunk_size"`
	ByType           map[string]int `json:"by_type"`
}

// ComputeStats counts each page range once, so paragraph splits of the same range
// do not inflate the page total.
func ComputeStats(chunks []*model.Chunk) Stats {
	st := Stats{ByType: make(map[string]int)}
	seen := make(map[string]struct{})
	for _, c := range chunks {
		if c == nil {
			continue
		}
		st.TotalChunks++
		st.TotalChars += runeLen(c.Content)
		st.ByType[c.Metadata.ChunkType]++
		if _, ok := seen[c.Metadata.PageRange]; ok {
			continue
		}
		seen[c.Metadata.PageRange] = struct{}{}
		st.TotalPages += max(c.Metadata.PagesInChunk, 1)
	}
	if st.TotalChunks > 0 {
		st.AverageChunkSize = st.TotalChars / st.TotalChunks
	}
	return st
}

func Describe(chunks []*model.Chunk) string {
	st := ComputeStats(chunks)
	sb := strings.Builder{}
	fmt.Fprintf(&sb, "chunks: %d, pages: %d, chars: %d, avg chunk: %d\n",
		st.TotalChunks, st.TotalPages, st.TotalChars, st.AverageChunkSize)
	for i, c := range chunks {
		fmt.Fprintf(&sb, "  %d. %s (%s) - %d chars\n", i+1, c.Metadata.ChunkType, c.Metadata.PageRange, runeLen(c.Content))
	}
	return sb.String()
}
