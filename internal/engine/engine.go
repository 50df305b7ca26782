// Package engine implements the Engine Facade: the operation contract
// coordinating the Type Registry, Status Registry, Tag Store, Item
// Store, Enricher, Search Engine, Relation Graph, and Current-State
// Singleton under one transactional API — a thin struct wiring db +
// config + collaborators, with Options/Result types per operation.
package engine

import (
	"context"
	"time"

	"github.com/shirokuma-kb/shirokuma/internal/database"
	"github.com/shirokuma-kb/shirokuma/internal/enrich"
	"github.com/shirokuma-kb/shirokuma/internal/itemtype"
	"github.com/shirokuma-kb/shirokuma/internal/logging"
	"github.com/shirokuma-kb/shirokuma/internal/ratelimit"
	"github.com/shirokuma-kb/shirokuma/internal/relgraph"
	"github.com/shirokuma-kb/shirokuma/internal/search"
	"github.com/shirokuma-kb/shirokuma/internal/state"
	"github.com/shirokuma-kb/shirokuma/internal/statusreg"
	"github.com/shirokuma-kb/shirokuma/internal/tagstore"
	"github.com/shirokuma-kb/shirokuma/pkg/config"
)

var log = logging.GetLogger("engine")

// Engine is the coordinated entry point for every operation. Each public
// method wraps its writes in a single transaction so that an item and
// its side rows commit atomically.
type Engine struct {
	db        *database.Database
	cfg       *config.Config
	types     *itemtype.Registry
	statuses  *statusreg.Registry
	tags      *tagstore.Store
	relations *relgraph.Service
	state     *state.Service
	search    *search.Engine
	enricher  enrich.Enricher

	// enrichSlots bounds enricher concurrency: a Bucket repurposed as a
	// counting semaphore (burst size = cfg.Enricher.QueueDepth, no
	// time-based refill). Acquire via TryConsume, release via Release.
	enrichSlots *ratelimit.Bucket
}

// New wires an Engine over an already-open database and enricher
// implementation.
func New(db *database.Database, cfg *config.Config, enricher enrich.Enricher) *Engine {
	return &Engine{
		db:          db,
		cfg:         cfg,
		types:       itemtype.New(db),
		statuses:    statusreg.New(db),
		tags:        tagstore.New(db),
		relations:   relgraph.NewService(db),
		state:       state.NewService(db),
		search:      search.NewEngine(&cfg.Search),
		enricher:    enricher,
		enrichSlots: ratelimit.NewBucket(float64(cfg.Enricher.QueueDepth), 0),
	}
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// runEnricher invokes the enricher under the in-flight semaphore and a
// per-call timeout. A full semaphore yields Busy immediately. Any other
// enrichment failure (error or timeout) degrades to an empty result
// rather than failing the write — the caller's create/update still
// succeeds with null derived fields, reindexed later.
func (e *Engine) runEnricher(title, content string, tags []string) (enrich.Result, *Error) {
	if !e.enrichSlots.TryConsume(1) {
		return enrich.Result{}, busy("enrich")
	}
	defer e.enrichSlots.Release(1)

	timeout := time.Duration(e.cfg.Enricher.TimeoutMS) * time.Millisecond
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	result, err := e.enricher.Enrich(ctx, title, content, tags)
	if err != nil {
		log.Warn("enrichment failed, proceeding with empty enrichment", "error", err)
		return enrich.Result{}, nil
	}
	return result, nil
}

func toWeightedTerms(terms []enrich.Term) []database.WeightedTerm {
	out := make([]database.WeightedTerm, len(terms))
	for i, t := range terms {
		out[i] = database.WeightedTerm{Term: t.Term, Weight: t.Weight}
	}
	return out
}

// resolveStatus maps an optional status name to its id, defaulting to the
// "Open" seed status when name is empty.
func (e *Engine) resolveStatus(name string) (int64, *Error) {
	if name == "" {
		id, err := e.statuses.DefaultID()
		if err != nil {
			return 0, internalError("resolve_status", err)
		}
		return id, nil
	}
	s, err := e.statuses.GetByName(name)
	if err != nil {
		return 0, notFound("status", name)
	}
	return s.ID, nil
}

// buildItemView assembles the full read projection get_item returns: the
// raw row plus resolved status name, tags, keywords, concepts, and related
// ids.
func buildItemView(ex database.Execer, item *database.Item) (*database.ItemView, error) {
	status, err := database.GetStatusByID(ex, item.StatusID)
	if err != nil {
		return nil, err
	}
	tags, err := database.TagsForItem(ex, item.ID)
	if err != nil {
		return nil, err
	}
	keywords, err := database.KeywordsForItem(ex, item.ID)
	if err != nil {
		return nil, err
	}
	concepts, err := database.ConceptsForItem(ex, item.ID)
	if err != nil {
		return nil, err
	}
	related, err := database.RelationsOf(ex, item.ID)
	if err != nil {
		return nil, err
	}

	return &database.ItemView{
		Item:       *item,
		StatusName: status.Name,
		Tags:       tags,
		Keywords:   keywords,
		Concepts:   concepts,
		Related:    related,
	}, nil
}
