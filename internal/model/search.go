package model

// Document is the unit the ranker scores. Embedding may be empty.
type Document struct {
	DocumentID string    `json:"document_id"`
	Content    string    `json:"content"`
	Embedding  []float32 `json:"embedding,omitempty"`
}

type RankedResult struct {
	Document    *Document `json:"document"`
	BM25Raw     float64   `json:"bm25_raw"`
	BM25Score   float64   `json:"bm25_score"`
	VectorScore float64   `json:"vector_score"`
	HybridScore float64   `json:"hybrid_score"`
	Snippet     string    `json:"snippet"`
}
