package ai

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

const defaultHashDims = 384

type hashConfig struct {
	Dims int `json:"dims"`
}

// hashProvider builds deterministic feature-hashed vectors locally. Each word and
// adjacent word pair lands in a signed bucket; the result is L2 normalised.
type hashProvider struct {
	dims int
}

func NewHashEmbedder(dims int) IEmbedder {
	if dims <= 0 {
		dims = defaultHashDims
	}
	return NewEmbedder(&hashProvider{dims: dims}, "")
}

func (p *hashProvider) Name() string {
	return "hash"
}

func (p *hashProvider) Embed(ctx context.Context, model string, text string, taskType string) ([]float32, error) {
	vec := make([]float64, p.dims)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for i, w := range words {
		p.add(vec, w)
		if i > 0 {
			p.add(vec, words[i-1]+" "+w)
		}
	}
	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	out := make([]float32, p.dims)
	if norm == 0 {
		return out, nil
	}
	norm = math.Sqrt(norm)
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out, nil
}

func (p *hashProvider) add(vec []float64, feature string) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()
	idx := int(sum % uint64(p.dims))
	if sum>>63 == 1 {
		vec[idx]--
		return
	}
	vec[idx]++
}

func createHashEmbedFactory(args interface{}) (IEmbedProvider, error) {
	cfg := &hashConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	dims := cfg.Dims
	if dims <= 0 {
		dims = defaultHashDims
	}
	return &hashProvider{dims: dims}, nil
}

func init() {
	RegisterEmbed("hash", createHashEmbedFactory)
}
