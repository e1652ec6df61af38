package model

type DocumentChunk struct {
	DocumentID string    `json:"document_id"`
	SourceID   string    `json:"source_id"`
	ChunkIndex int       `json:"chunk_index"`
	Content    string    `json:"content"`
	Metadata   string    `json:"metadata"`
	Embedding  []float32 `json:"embedding"`
	Ctime      int64     `json:"ctime"`
}
