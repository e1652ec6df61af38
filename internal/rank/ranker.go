package rank

import (
	"context"
	"math"
	"slices"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docdigest/internal/model"
)

const (
	defaultK1     = 1.2
	defaultB      = 0.75
	defaultTopK   = 5
	bm25ScoreCap  = 10.0
	candidateMult = 2
)

type Config struct {
	K1           float64
	B            float64
	BM25Weight   float64
	VectorWeight float64
	TopK         int
}

type Ranker struct {
	cfg Config
}

func New(cfg Config) *Ranker {
	if cfg.K1 <= 0 {
		cfg.K1 = defaultK1
	}
	if cfg.B < 0 || cfg.B > 1 {
		cfg.B = defaultB
	}
	if cfg.BM25Weight == 0 && cfg.VectorWeight == 0 {
		cfg.BM25Weight = 0.5
		cfg.VectorWeight = 0.5
	}
	if cfg.TopK <= 0 {
		cfg.TopK = defaultTopK
	}
	return &Ranker{cfg: cfg}
}

// Request overrides the configured weights and k when Weights is set or
// K is positive.
type Request struct {
	Query          string
	QueryEmbedding []float32
	Documents      []*model.Document
	Weights        *Weights
	K              int
}

type Weights struct {
	BM25   float64
	Vector float64
}

type scored struct {
	doc    *model.Document
	pos    int
	raw    float64
	vector float64
}

// Rank returns at most k results ordered by descending hybrid score. Each
// signal nominates its best 2k documents and the union is fused. With no
// query embedding, or no embedded document, ordering is by BM25 alone.
func (r *Ranker) Rank(ctx context.Context, req Request) []*model.RankedResult {
	k := req.K
	if k <= 0 {
		k = r.cfg.TopK
	}
	w := Weights{BM25: r.cfg.BM25Weight, Vector: r.cfg.VectorWeight}
	if req.Weights != nil {
		w = *req.Weights
	}
	docs := req.Documents
	if len(docs) == 0 {
		return nil
	}
	queryTokens := Tokenize(req.Query)
	raw := BM25Scores(queryTokens, docs, r.cfg.K1, r.cfg.B)

	bm25Pool := make([]scored, 0, len(docs))
	for i, d := range docs {
		if raw[i] > 0 {
			bm25Pool = append(bm25Pool, scored{doc: d, pos: i, raw: raw[i]})
		}
	}
	sortDesc(bm25Pool, func(s scored) float64 { return s.raw })

	vectorMode := len(req.QueryEmbedding) > 0 && anyEmbedded(docs)
	if !vectorMode {
		logutil.GetLogger(ctx).Debug("no vectors available, ranking by keywords only",
			zap.Int("documents", len(docs)), zap.Int("bm25_hits", len(bm25Pool)))
		out := make([]*model.RankedResult, 0, min(k, len(bm25Pool)))
		for _, s := range bm25Pool[:min(k, len(bm25Pool))] {
			norm := normalizeBM25(s.raw)
			out = append(out, &model.RankedResult{
				Document:    s.doc,
				BM25Raw:     s.raw,
				BM25Score:   norm,
				HybridScore: norm,
				Snippet:     Snippet(s.doc.Content, queryTokens),
			})
		}
		return out
	}

	vecPool := make([]scored, 0, len(docs))
	for i, d := range docs {
		if len(d.Embedding) == 0 {
			continue
		}
		vecPool = append(vecPool, scored{doc: d, pos: i, vector: clamp01(Cosine(req.QueryEmbedding, d.Embedding))})
	}
	sortDesc(vecPool, func(s scored) float64 { return s.vector })

	pool := candidateMult * k
	union := make(map[int]*scored)
	for _, s := range bm25Pool[:min(pool, len(bm25Pool))] {
		union[s.pos] = &scored{doc: s.doc, pos: s.pos, raw: s.raw}
	}
	for _, s := range vecPool[:min(pool, len(vecPool))] {
		if u, ok := union[s.pos]; ok {
			u.vector = s.vector
			continue
		}
		union[s.pos] = &scored{doc: s.doc, pos: s.pos, vector: s.vector}
	}

	results := make([]*model.RankedResult, 0, len(union))
	for i := range docs {
		s, ok := union[i]
		if !ok {
			continue
		}
		norm := normalizeBM25(s.raw)
		results = append(results, &model.RankedResult{
			Document:    s.doc,
			BM25Raw:     s.raw,
			BM25Score:   norm,
			VectorScore: s.vector,
			HybridScore: w.BM25*norm + w.Vector*s.vector,
		})
	}
	slices.SortStableFunc(results, func(a, b *model.RankedResult) int {
		switch {
		case a.HybridScore > b.HybridScore:
			return -1
		case a.HybridScore < b.HybridScore:
			return 1
		}
		return 0
	})
	results = results[:min(k, len(results))]
	for _, res := range results {
		res.Snippet = Snippet(res.Document.Content, queryTokens)
	}
	return results
}

// BM25Scores scores every document against the query terms. There is no
// idf factor: each matching term contributes its saturated, length
// normalised frequency times its frequency in the query.
func BM25Scores(queryTokens []string, docs []*model.Document, k1, b float64) []float64 {
	scores := make([]float64, len(docs))
	if len(queryTokens) == 0 || len(docs) == 0 {
		return scores
	}
	qtf := termFreq(queryTokens)
	docTF := make([]map[string]int, len(docs))
	docLen := make([]int, len(docs))
	total := 0
	for i, d := range docs {
		toks := Tokenize(d.Content)
		docTF[i] = termFreq(toks)
		docLen[i] = len(toks)
		total += len(toks)
	}
	if total == 0 {
		return scores
	}
	avg := float64(total) / float64(len(docs))
	for i := range docs {
		var score float64
		for term, qf := range qtf {
			tf := float64(docTF[i][term])
			if tf == 0 {
				continue
			}
			denom := tf + k1*(1-b+b*float64(docLen[i])/avg)
			score += tf * (k1 + 1) / denom * float64(qf)
		}
		scores[i] = score
	}
	return scores
}

// Cosine compares the common prefix when dimensions differ.
func Cosine(a, b []float32) float64 {
	n := min(len(a), len(b))
	if n == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func normalizeBM25(raw float64) float64 {
	if raw <= 0 {
		return 0
	}
	return math.Min(raw/bm25ScoreCap, 1)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func anyEmbedded(docs []*model.Document) bool {
	for _, d := range docs {
		if len(d.Embedding) > 0 {
			return true
		}
	}
	return false
}

func sortDesc(items []scored, key func(scored) float64) {
	slices.SortStableFunc(items, func(a, b scored) int {
		ka, kb := key(a), key(b)
		switch {
		case ka > kb:
			return -1
		case ka < kb:
			return 1
		}
		return 0
	})
}
