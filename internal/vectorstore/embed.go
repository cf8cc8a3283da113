package vectorstore

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// Embedder turns documents or query texts into vectors of a fixed dimension.
// Name identifies the vector space; two embedders with the same name must
// produce comparable vectors.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// HashingEmbedder is a local embedder: lower-cased word and character-trigram
// features are hashed into a fixed number of buckets and L2-normalized.
// It needs no network and is stable across processes.
type HashingEmbedder struct {
	dims int
}

// NewHashingEmbedder returns an embedder producing dims-dimensional vectors.
func NewHashingEmbedder(dims int) *HashingEmbedder {
	if dims <= 0 {
		dims = 512
	}
	return &HashingEmbedder{dims: dims}
}

func (h *HashingEmbedder) Name() string { return fmt.Sprintf("hashing-%d", h.dims) }

// Embed never fails; the context is accepted to satisfy Embedder.
func (h *HashingEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = h.vector(t)
	}
	return out, nil
}

func (h *HashingEmbedder) vector(text string) []float32 {
	v := make([]float32, h.dims)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#'
	})
	for _, w := range words {
		h.add(v, "w:"+w, 1)
		padded := []rune(" " + w + " ")
		for i := 0; i+3 <= len(padded); i++ {
			h.add(v, "t:"+string(padded[i:i+3]), 0.5)
		}
	}
	normalize(v)
	return v
}

func (h *HashingEmbedder) add(v []float32, feature string, weight float32) {
	f := fnv.New32a()
	f.Write([]byte(feature))
	sum := f.Sum32()
	idx := int(sum % uint32(h.dims))
	// Sign bit spreads collisions around zero.
	if sum&(1<<31) != 0 {
		weight = -weight
	}
	v[idx] += weight
}

func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	n := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= n
	}
}

// cosineDistance returns 1 - cosine similarity; 0 means identical direction.
func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}
