package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
)

// DefaultLocalDimension is used when no dimension is configured.
const DefaultLocalDimension = 384

var tokenPattern = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)

// Local is a deterministic feature-hashing embedder. Words and word
// bigrams are hashed into a fixed number of buckets and the result is
// L2-normalized, so texts sharing vocabulary have high cosine similarity.
// It needs no network and no corpus preparation.
type Local struct {
	dim int
}

// NewLocal creates a local embedder producing vectors of length dim.
func NewLocal(dim int) *Local {
	if dim <= 0 {
		dim = DefaultLocalDimension
	}
	return &Local{dim: dim}
}

func (l *Local) Name() string   { return "local" }
func (l *Local) Dimension() int { return l.dim }

func (l *Local) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vec := make([]float32, l.dim)
	tokens := tokenPattern.FindAllString(strings.ToLower(text), -1)
	for i, tok := range tokens {
		l.add(vec, tok, 1)
		if i > 0 {
			l.add(vec, tokens[i-1]+" "+tok, 0.5)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec, nil
	}
	inv := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= inv
	}
	return vec, nil
}

func (l *Local) add(vec []float32, feature string, weight float32) {
	h := fnv.New64a()
	h.Write([]byte(feature))
	sum := h.Sum64()
	idx := int(sum % uint64(l.dim))
	if sum>>63 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}
