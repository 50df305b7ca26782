package engine

import (
	"errors"
	"math"

	"github.com/shirokuma-kb/shirokuma/internal/database"
	"github.com/shirokuma-kb/shirokuma/internal/search"
)

// SearchResult pairs a search.Hit's relevance score with its full item
// projection, preserving the engine's relevance ordering.
type SearchResult struct {
	Item      database.ItemSummary
	Relevance float64
}

func hitsToResults(ex database.Execer, hits []search.Hit) ([]SearchResult, error) {
	ids := make([]int64, len(hits))
	for i, h := range hits {
		ids[i] = h.ItemID
	}
	summaries, err := database.ItemSummariesByIDs(ex, ids)
	if err != nil {
		return nil, err
	}
	out := make([]SearchResult, 0, len(hits))
	for _, h := range hits {
		if s, ok := summaries[h.ItemID]; ok {
			out = append(out, SearchResult{Item: s, Relevance: h.Relevance})
		}
	}
	return out, nil
}

// SearchItems runs the structured-query keyword search, clamping limit
// to the configured page size.
func (e *Engine) SearchItems(query string, types []string, limit, offset int) ([]SearchResult, error) {
	limit = e.clampLimit(limit)
	hits, err := e.search.Search(e.db, query, types, limit, offset)
	if err != nil {
		var invalidQueryErr search.InvalidQueryError
		if errors.As(err, &invalidQueryErr) {
			return nil, invalidQuery(invalidQueryErr.Error())
		}
		return nil, internalError("search_items", err)
	}
	return hitsToResults(e.db, hits)
}

// SearchItemsByTag returns every item carrying tag, optionally filtered
// by type, grouped by type.
func (e *Engine) SearchItemsByTag(tag string, types []string) (map[string][]database.ItemSummary, error) {
	items, err := database.ListItems(e.db, database.ItemFilters{
		Tags:                  []string{tag},
		Types:                 types,
		IncludeClosedStatuses: true,
		Limit:                 e.cfg.Search.MaxListLimit,
	})
	if err != nil {
		return nil, internalError("search_items_by_tag", err)
	}
	grouped := make(map[string][]database.ItemSummary)
	for _, item := range items {
		grouped[item.Type] = append(grouped[item.Type], item)
	}
	return grouped, nil
}

// SearchSuggest returns up to limit title-prefix matches.
func (e *Engine) SearchSuggest(prefix string, types []string, limit int) ([]database.ItemSummary, error) {
	limit = e.clampLimit(limit)
	items, err := e.search.Suggest(e.db, prefix, types, limit)
	if err != nil {
		return nil, internalError("search_suggest", err)
	}
	return items, nil
}

// GetRelatedItems ranks candidates related to anchorID by the given
// strategy. For StrategyHybrid, an all-zero weights value falls back to
// the configured defaults; any other non-normalized weights are
// rejected as InvalidQuery.
func (e *Engine) GetRelatedItems(anchorID int64, strategy search.RelatedStrategy, weights search.HybridWeights, limit int) ([]SearchResult, error) {
	if _, err := database.GetItem(e.db, anchorID); err != nil {
		return nil, translate("get_related_items", "item", err)
	}
	limit = e.clampLimit(limit)

	if strategy == search.StrategyHybrid {
		if weights == (search.HybridWeights{}) {
			weights = search.HybridWeights{
				Keywords:  e.cfg.Search.HybridKeywordWeight,
				Concepts:  e.cfg.Search.HybridConceptWeight,
				Embedding: e.cfg.Search.HybridEmbeddingWeight,
			}
		} else if sum := weights.Keywords + weights.Concepts + weights.Embedding; math.Abs(sum-1.0) > 0.01 {
			return nil, invalidQuery("hybrid weights must sum to 1.0")
		}
	}

	hits, err := e.search.FindRelated(e.db, anchorID, strategy, weights, limit)
	if err != nil {
		return nil, internalError("get_related_items", err)
	}
	return hitsToResults(e.db, hits)
}

func (e *Engine) clampLimit(limit int) int {
	if limit <= 0 {
		return e.cfg.Search.DefaultListLimit
	}
	if limit > e.cfg.Search.MaxListLimit {
		return e.cfg.Search.MaxListLimit
	}
	return limit
}
