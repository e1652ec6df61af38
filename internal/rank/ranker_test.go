package rank

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/docdigest/internal/model"
)

func ids(results []*model.RankedResult) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.Document.DocumentID)
	}
	return out
}

func TestTokenize(t *testing.T) {
	require.Equal(t, []string{"quick", "brown", "fox", "jumps", "über"},
		Tokenize("The quick, brown fox is at it; jumps über to me"))
}

func TestBM25_SingleDocumentExample(t *testing.T) {
	docs := []*model.Document{{DocumentID: "d1", Content: "apple banana apple"}}
	scores := BM25Scores(Tokenize("apple"), docs, 1.2, 0.75)
	require.InDelta(t, 1.375, scores[0], 1e-9)

	res := New(Config{}).Rank(context.Background(), Request{Query: "apple", Documents: docs})
	require.Equal(t, []string{"d1"}, ids(res))
	require.InDelta(t, 1.375, res[0].BM25Raw, 1e-9)
	require.InDelta(t, 0.1375, res[0].BM25Score, 1e-9)
}

func TestBM25_QueryTermFrequencyAndLength(t *testing.T) {
	docs := []*model.Document{
		{DocumentID: "short", Content: "apple pie"},
		{DocumentID: "long", Content: "apple pie with cream sugar flour butter"},
		{DocumentID: "none", Content: "banana"},
	}
	single := BM25Scores(Tokenize("apple"), docs, 1.2, 0.75)
	double := BM25Scores(Tokenize("apple apple"), docs, 1.2, 0.75)
	require.Greater(t, single[0], single[1])
	require.Zero(t, single[2])
	require.InDelta(t, 2*single[0], double[0], 1e-9)
}

func TestRank_KeywordOnlyExcludesZeroScores(t *testing.T) {
	docs := []*model.Document{
		{DocumentID: "a", Content: "golang channels and goroutines"},
		{DocumentID: "b", Content: "python generators"},
		{DocumentID: "c", Content: "goroutines goroutines goroutines"},
	}
	res := New(Config{}).Rank(context.Background(), Request{Query: "goroutines", Documents: docs, K: 5})
	require.Equal(t, []string{"c", "a"}, ids(res))
	for _, r := range res {
		require.Zero(t, r.VectorScore)
		require.Equal(t, r.BM25Score, r.HybridScore)
	}
}

func TestRank_VectorOnlyWhenNoKeywordMatches(t *testing.T) {
	docs := []*model.Document{
		{DocumentID: "far", Content: "nothing relevant", Embedding: []float32{0, 1}},
		{DocumentID: "near", Content: "still nothing", Embedding: []float32{1, 0.1}},
		{DocumentID: "mid", Content: "nothing here", Embedding: []float32{1, 1}},
	}
	w := &Weights{BM25: 0.5, Vector: 0.5}
	res := New(Config{}).Rank(context.Background(), Request{Query: "zebra", QueryEmbedding: []float32{1, 0}, Documents: docs, Weights: w, K: 3})
	require.Equal(t, []string{"near", "mid", "far"}, ids(res))
	for _, r := range res {
		require.Zero(t, r.BM25Score)
		require.InDelta(t, 0.5*r.VectorScore, r.HybridScore, 1e-9)
	}
}

func TestRank_FusesBothSignals(t *testing.T) {
	docs := []*model.Document{
		{DocumentID: "kw", Content: "kubernetes kubernetes kubernetes kubernetes", Embedding: []float32{0, 1}},
		{DocumentID: "vec", Content: "container orchestration", Embedding: []float32{1, 0}},
		{DocumentID: "both", Content: "kubernetes orchestration", Embedding: []float32{0.9, 0.1}},
	}
	res := New(Config{}).Rank(context.Background(), Request{Query: "kubernetes", QueryEmbedding: []float32{1, 0}, Documents: docs, K: 2})
	require.Len(t, res, 2)
	require.Equal(t, "both", res[0].Document.DocumentID)
	for _, r := range res {
		require.InDelta(t, 0.5*r.BM25Score+0.5*r.VectorScore, r.HybridScore, 1e-9)
		require.GreaterOrEqual(t, r.HybridScore, 0.0)
		require.LessOrEqual(t, r.HybridScore, 1.0)
	}
}

func TestRank_DocumentsWithoutEmbeddingDegrade(t *testing.T) {
	docs := []*model.Document{
		{DocumentID: "a", Content: "raft consensus"},
		{DocumentID: "b", Content: "paxos consensus consensus"},
	}
	res := New(Config{}).Rank(context.Background(), Request{Query: "consensus", QueryEmbedding: []float32{1, 2}, Documents: docs})
	require.Equal(t, []string{"b", "a"}, ids(res))
}

func TestRank_TopK(t *testing.T) {
	var docs []*model.Document
	for i := 0; i < 10; i++ {
		docs = append(docs, &model.Document{DocumentID: strings.Repeat("x", i+1), Content: "shared term", Embedding: []float32{1, float32(i)}})
	}
	res := New(Config{TopK: 3}).Rank(context.Background(), Request{Query: "shared", QueryEmbedding: []float32{1, 0}, Documents: docs})
	require.Len(t, res, 3)
	require.Equal(t, "x", res[0].Document.DocumentID)
	require.Empty(t, New(Config{}).Rank(context.Background(), Request{Query: "shared"}))
}

func TestCosine(t *testing.T) {
	require.InDelta(t, 1.0, Cosine([]float32{1, 2}, []float32{2, 4}), 1e-9)
	require.InDelta(t, 1.0, Cosine([]float32{1, 0, 5}, []float32{3, 0}), 1e-9)
	require.Zero(t, Cosine(nil, []float32{1}))
	require.Zero(t, Cosine([]float32{0, 0}, []float32{1, 1}))
	require.InDelta(t, -1.0, Cosine([]float32{1}, []float32{-1}), 1e-9)
}

func TestSnippet(t *testing.T) {
	content := strings.Repeat("a", 1000) + " needle haystack " + strings.Repeat("b", 1000)
	s := Snippet(content, []string{"needle", "haystack"})
	require.True(t, strings.HasPrefix(s, "..."))
	require.True(t, strings.HasSuffix(s, "..."))
	require.Contains(t, s, "needle haystack")
	require.LessOrEqual(t, len([]rune(s)), 600+6)

	short := "a short needle text"
	require.Equal(t, short, Snippet(short, []string{"needle"}))

	noHit := strings.Repeat("z", 500)
	require.Equal(t, strings.Repeat("z", 300)+"...", Snippet(noHit, []string{"needle"}))
	require.Equal(t, "tiny", Snippet("tiny", []string{"needle"}))
}

func TestSnippet_CaseInsensitive(t *testing.T) {
	require.Contains(t, Snippet("Some NEEDLE here", []string{"needle"}), "NEEDLE")
}
