package model

const (
	ChunkTypeFullDocument = "full_document"
	ChunkTypePageRange    = "page_range"
	ChunkTypeTextSegment  = "text_segment"
)

type ChunkMetadata struct {
	SourceID     string `json:"source_id"`
	ChunkType    string `json:"chunk_type"`
	PageRange    string `json:"page_range"`
	ChunkIndex   int    `json:"chunk_index"`
	TotalChunks  int    `json:"total_chunks"`
	TotalPages   int    `json:"total_pages,omitempty"`
	PagesInChunk int    `json:"pages_in_chunk,omitempty"`
	OverlapChars int    `json:"overlap_chars,omitempty"`
	TextLength   int    `json:"text_length"`
}

// Chunk is a contiguous slice of a source document plus where it came from.
type Chunk struct {
	Content  string        `json:"content"`
	Metadata ChunkMetadata `json:"metadata"`
}

func (c *Chunk) Clone() *Chunk {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

func CloneChunks(in []*Chunk) []*Chunk {
	if in == nil {
		return nil
	}
	out := make([]*Chunk, len(in))
	for i, c := range in {
		out[i] = c.Clone()
	}
	return out
}
