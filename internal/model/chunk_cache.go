package model

type CacheEntry struct {
	Timestamp int64    `json:"timestamp"`
	Chunks    []*Chunk `json:"chunks"`
}
