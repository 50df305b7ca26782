package search

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shirokuma-kb/shirokuma/internal/database"
	"github.com/shirokuma-kb/shirokuma/internal/enrich"
	"github.com/shirokuma-kb/shirokuma/pkg/config"
)

// Engine is the search engine: structured query parsing, FTS-backed
// keyword search, suggest, and the four get_related_items strategies. A
// SearchType-enum dispatch shape with a structured key:value query
// language, rather than per-field filter structs.
type Engine struct {
	cfg *config.SearchConfig
}

// NewEngine constructs the search engine from the resolved search config.
func NewEngine(cfg *config.SearchConfig) *Engine {
	return &Engine{cfg: cfg}
}

// Hit is a single search result: an item id plus a relevance score in
// [0,1] whose scale is consistent within one call but not across strategies.
type Hit struct {
	ItemID    int64
	Relevance float64
}

// Search runs the structured query parser and dispatches to FTS keyword
// search, falling back to legacy substring search when no token parses.
func (e *Engine) Search(ex database.Execer, query string, types []string, limit, offset int) ([]Hit, error) {
	pq, err := ParseQuery(query)
	if err != nil {
		return nil, err
	}

	filters := database.FTSSearchFilters{
		Types:    mergeTypes(types, pq.Types),
		Statuses: pq.Statuses,
		Priority: pq.Priority,
		Limit:    limit,
		Offset:   offset,
	}
	if pq.IsOpen != nil {
		filters.OnlyClosedStatuses = *pq.IsOpen
	}

	if !pq.Matched {
		ids, err := database.LegacySubstringSearch(ex, strings.TrimSpace(query), filters)
		if err != nil {
			return nil, fmt.Errorf("legacy substring search: %w", err)
		}
		hits := make([]Hit, len(ids))
		for i, id := range ids {
			hits[i] = Hit{ItemID: id, Relevance: 1.0}
		}
		return hits, nil
	}

	if len(pq.Keywords) == 0 {
		// Pure filter query (e.g. "status:Open type:issues") with no
		// keyword term to rank by: fall back to the unweighted list path
		// via a keyword-less FTS-equivalent substring scan so structured
		// filters still apply to every row.
		ids, err := database.LegacySubstringSearch(ex, "", filters)
		if err != nil {
			return nil, fmt.Errorf("structured filter-only search: %w", err)
		}
		hits := make([]Hit, len(ids))
		for i, id := range ids {
			hits[i] = Hit{ItemID: id, Relevance: 1.0}
		}
		return hits, nil
	}

	results, err := database.SearchFTS(ex, pq.Keywords, filters)
	if err != nil {
		return nil, fmt.Errorf("FTS search: %w", err)
	}
	hits := make([]Hit, len(results))
	for i, r := range results {
		hits[i] = Hit{ItemID: r.ItemID, Relevance: r.Relevance}
	}
	return hits, nil
}

func mergeTypes(a, b []string) []string {
	if len(a) == 0 {
		return b
	}
	if len(b) == 0 {
		return a
	}
	return append(append([]string{}, a...), b...)
}

// Suggest returns up to limit titles whose prefix matches.
func (e *Engine) Suggest(ex database.Execer, prefix string, types []string, limit int) ([]database.ItemSummary, error) {
	return database.SuggestTitles(ex, prefix, types, limit)
}

// RelatedStrategy names one of the four get_related_items strategies.
type RelatedStrategy string

const (
	StrategyKeywords  RelatedStrategy = "keywords"
	StrategyConcepts  RelatedStrategy = "concepts"
	StrategyEmbedding RelatedStrategy = "embedding"
	StrategyHybrid    RelatedStrategy = "hybrid"
)

// HybridWeights carries per-strategy weights for StrategyHybrid. Any
// strategy omitted (zero value) contributes 0.
type HybridWeights struct {
	Keywords  float64
	Concepts  float64
	Embedding float64
}

// FindRelated ranks candidates for the given strategy, excluding the anchor
// itself, and returns the top limit by score descending.
func (e *Engine) FindRelated(ex database.Execer, anchorID int64, strategy RelatedStrategy, weights HybridWeights, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = 10
	}

	switch strategy {
	case StrategyKeywords:
		return e.byKeywords(ex, anchorID, limit)
	case StrategyConcepts:
		return e.byConcepts(ex, anchorID, limit)
	case StrategyEmbedding:
		return e.byEmbedding(ex, anchorID, limit)
	case StrategyHybrid:
		return e.byHybrid(ex, anchorID, weights, limit)
	default:
		return nil, fmt.Errorf("unrecognized relatedness strategy %q", strategy)
	}
}

func (e *Engine) byKeywords(ex database.Execer, anchorID int64, limit int) ([]Hit, error) {
	scored, err := database.ItemsSharingKeywords(ex, anchorID, limit)
	if err != nil {
		return nil, err
	}
	return scoredToHits(scored), nil
}

func (e *Engine) byConcepts(ex database.Execer, anchorID int64, limit int) ([]Hit, error) {
	scored, err := database.ItemsSharingConcepts(ex, anchorID, limit)
	if err != nil {
		return nil, err
	}
	return scoredToHits(scored), nil
}

func scoredToHits(scored []database.ScoredItem) []Hit {
	hits := make([]Hit, len(scored))
	for i, s := range scored {
		hits[i] = Hit{ItemID: s.ItemID, Relevance: s.Score}
	}
	return hits
}

const conceptPrefilterTopN = 3

// byEmbedding computes inner-product similarity between the anchor's
// dequantized embedding and each candidate's, pre-filtered by shared tags
// or shared top-3 concepts, falling back to a full scan bounded by
// EmbeddingCandidateCeiling when no prefilter yields candidates.
func (e *Engine) byEmbedding(ex database.Execer, anchorID int64, limit int) ([]Hit, error) {
	anchorBlob, err := database.ItemEmbedding(ex, anchorID)
	if err != nil {
		return nil, fmt.Errorf("loading anchor embedding: %w", err)
	}
	if anchorBlob == nil {
		return nil, nil
	}
	anchor := enrich.Dequantize(anchorBlob)

	candidates, err := e.embeddingCandidates(ex, anchorID)
	if err != nil {
		return nil, err
	}

	blobs, err := database.ItemEmbeddings(ex, candidates)
	if err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(blobs))
	for id, blob := range blobs {
		vec := enrich.Dequantize(blob)
		hits = append(hits, Hit{ItemID: id, Relevance: innerProduct(anchor, vec)})
	}
	sortHitsDesc(hits)
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (e *Engine) embeddingCandidates(ex database.Execer, anchorID int64) ([]int64, error) {
	ceiling := 10000
	if e.cfg != nil && e.cfg.EmbeddingCandidateCeiling > 0 {
		ceiling = e.cfg.EmbeddingCandidateCeiling
	}

	byTag, err := database.CandidatesByTagOverlap(ex, anchorID, ceiling)
	if err != nil {
		return nil, err
	}
	byConcept, err := database.CandidatesByTopConcepts(ex, anchorID, conceptPrefilterTopN, ceiling)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]bool, len(byTag)+len(byConcept))
	var merged []int64
	for _, id := range append(byTag, byConcept...) {
		if seen[id] {
			continue
		}
		seen[id] = true
		merged = append(merged, id)
	}
	if len(merged) > 0 {
		return merged, nil
	}

	return database.AllItemIDsWithEmbedding(ex, anchorID, ceiling)
}

// byHybrid linearly combines the three scoring strategies. Weights must be
// validated (sum to 1.0 within epsilon) by the caller before reaching here;
// an omitted strategy contributes 0.
func (e *Engine) byHybrid(ex database.Execer, anchorID int64, weights HybridWeights, limit int) ([]Hit, error) {
	combined := make(map[int64]float64)

	if weights.Keywords > 0 {
		hits, err := e.byKeywords(ex, anchorID, limit*4)
		if err != nil {
			return nil, err
		}
		addWeighted(combined, hits, weights.Keywords)
	}
	if weights.Concepts > 0 {
		hits, err := e.byConcepts(ex, anchorID, limit*4)
		if err != nil {
			return nil, err
		}
		addWeighted(combined, hits, weights.Concepts)
	}
	if weights.Embedding > 0 {
		hits, err := e.byEmbedding(ex, anchorID, limit*4)
		if err != nil {
			return nil, err
		}
		addWeighted(combined, hits, weights.Embedding)
	}

	hits := make([]Hit, 0, len(combined))
	for id, score := range combined {
		hits = append(hits, Hit{ItemID: id, Relevance: score})
	}
	sortHitsDesc(hits)
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func addWeighted(into map[int64]float64, hits []Hit, weight float64) {
	for _, h := range hits {
		into[h.ItemID] += h.Relevance * weight
	}
}

func innerProduct(a, b [enrich.EmbeddingDim]float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func sortHitsDesc(hits []Hit) {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Relevance != hits[j].Relevance {
			return hits[i].Relevance > hits[j].Relevance
		}
		return hits[i].ItemID < hits[j].ItemID
	})
}
