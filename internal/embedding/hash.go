package embedding

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"
)

// DefaultHashDimension matches the width of the small sentence-transformer
// models the service is usually pointed at.
const DefaultHashDimension = 384

// HashEmbedder is an offline embedder using signed feature hashing over word
// tokens, single CJK characters and CJK bigrams. Equal texts always map to
// equal vectors, so it is deterministic across runs.
type HashEmbedder struct {
	dim int
}

// NewHashEmbedder returns a hashing embedder; dim <= 0 selects the default.
func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = DefaultHashDimension
	}
	return &HashEmbedder{dim: dim}
}

func (e *HashEmbedder) Name() string { return "hashing" }

func (e *HashEmbedder) Dimension() int { return e.dim }

func (e *HashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.vector(t)
	}
	return out, nil
}

func (e *HashEmbedder) vector(text string) []float32 {
	v := make([]float32, e.dim)
	for _, tok := range hashTokens(text) {
		h := fnv.New64a()
		h.Write([]byte(tok))
		sum := h.Sum64()
		idx := int(sum % uint64(e.dim))
		if sum&(1<<63) != 0 {
			v[idx]--
		} else {
			v[idx]++
		}
	}
	return Normalize(v)
}

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) || unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) || unicode.Is(unicode.Hangul, r)
}

// hashTokens lowercases text and splits it into alphanumeric words. Runs of
// CJK characters contribute each character and each adjacent pair.
func hashTokens(text string) []string {
	var tokens []string
	var word strings.Builder
	var cjk []rune

	flushWord := func() {
		if word.Len() > 0 {
			tokens = append(tokens, word.String())
			word.Reset()
		}
	}
	flushCJK := func() {
		for i, r := range cjk {
			tokens = append(tokens, string(r))
			if i > 0 {
				tokens = append(tokens, string(cjk[i-1:i+1]))
			}
		}
		cjk = cjk[:0]
	}

	for _, r := range strings.ToLower(text) {
		switch {
		case isCJK(r):
			flushWord()
			cjk = append(cjk, r)
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			flushCJK()
			word.WriteRune(r)
		default:
			flushWord()
			flushCJK()
		}
	}
	flushWord()
	flushCJK()
	return tokens
}
