package model

type ChunkSummary struct {
	ChunkIndex int           `json:"chunk_index"`
	Metadata   ChunkMetadata `json:"metadata"`
	Summary    string        `json:"summary"`
}

type DocumentSummary struct {
	SourceID   string `json:"source_id"`
	RunID      string `json:"run_id"`
	Summary    string `json:"summary"`
	ChunkCount int    `json:"chunk_count"`
	Ctime      int64  `json:"ctime"`
}
