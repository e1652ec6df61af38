package vectorstore

import (
	"context"
	"sort"
	"sync"

	"github.com/xxxsen/docdigest/internal/model"
)

type memoryStore struct {
	mu    sync.RWMutex
	items map[string]*model.DocumentChunk
}

func NewMemory() Store {
	return &memoryStore{items: make(map[string]*model.DocumentChunk)}
}

func (m *memoryStore) Put(ctx context.Context, doc *model.DocumentChunk) error {
	cp := *doc
	cp.Embedding = append([]float32(nil), doc.Embedding...)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[doc.DocumentID] = &cp
	return nil
}

func (m *memoryStore) Query(ctx context.Context, limit int) ([]*model.Document, error) {
	m.mu.RLock()
	all := make([]*model.DocumentChunk, 0, len(m.items))
	for _, item := range m.items {
		all = append(all, item)
	}
	m.mu.RUnlock()
	sort.Slice(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if a.Ctime != b.Ctime {
			return a.Ctime > b.Ctime
		}
		if a.SourceID != b.SourceID {
			return a.SourceID < b.SourceID
		}
		return a.ChunkIndex < b.ChunkIndex
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	out := make([]*model.Document, 0, len(all))
	for _, item := range all {
		out = append(out, toDocument(item))
	}
	return out, nil
}

func (m *memoryStore) DeleteSource(ctx context.Context, sourceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, item := range m.items {
		if item.SourceID == sourceID {
			delete(m.items, id)
		}
	}
	return nil
}
