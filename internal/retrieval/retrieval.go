package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jaehoon-lim/mnemos/internal/models"
	"github.com/jaehoon-lim/mnemos/internal/store"
)

// overfetchCap bounds the per-collection fetch when re-ranking is active.
const overfetchCap = 100

// Query describes one weighted multi-collection retrieval.
type Query struct {
	Vector      []float32
	UserID      string
	Collections []models.MemoryCategory
	Limit       uint64
	Filters     *store.SearchFilters

	// Weights multiply raw similarity per collection. Nil means neutral.
	Weights models.CollectionWeights

	// UseDecay blends a time-decay multiplier into the adjusted score.
	UseDecay    bool
	DecayWeight float64
	DecayRatio  float64

	// Reference is the decay reference time. Zero means time.Now.
	Reference time.Time
}

// CollectionFailure records one collection that could not be searched.
type CollectionFailure struct {
	Collection models.MemoryCategory `json:"collection"`
	Err        error                 `json:"-"`
}

// Result is the merged, re-ranked output of a Query.
type Result struct {
	Hits     []models.SearchHit  `json:"hits"`
	Failures []CollectionFailure `json:"failures,omitempty"`
}

// Coordinator fans a query out across category collections, re-scores the
// hits with collection weights and optional time decay, and merges them
// into a single ranking.
type Coordinator struct {
	store  store.Store
	logger *slog.Logger
}

// NewCoordinator creates a retrieval coordinator over the given store.
func NewCoordinator(st store.Store, logger *slog.Logger) *Coordinator {
	return &Coordinator{store: st, logger: logger}
}

// Search executes the query. Collections are searched concurrently; a
// failing collection is recorded in Result.Failures without aborting its
// siblings. Only when every collection fails does Search return an error.
// No collections or a zero limit short-circuits to an empty result.
func (c *Coordinator) Search(ctx context.Context, q Query) (*Result, error) {
	if len(q.Collections) == 0 || q.Limit == 0 {
		return &Result{}, nil
	}

	fetch := q.Limit
	if c.rescoring(q) {
		// Over-fetch so a strong tail in one collection can survive the
		// weighted merge.
		fetch = min(3*q.Limit, overfetchCap)
	}

	type collectionResult struct {
		hits []models.SearchHit
		err  error
	}
	results := make([]collectionResult, len(q.Collections))

	g, gctx := errgroup.WithContext(ctx)
	for i, category := range q.Collections {
		g.Go(func() error {
			hits, err := c.store.Search(gctx, q.Vector, q.UserID, category, fetch, q.Filters)
			// Errors are captured, not returned, so one broken collection
			// does not cancel the others.
			results[i] = collectionResult{hits: hits, err: err}
			return nil
		})
	}
	_ = g.Wait()

	ref := q.Reference
	if ref.IsZero() {
		ref = time.Now().UTC()
	}

	res := &Result{}
	var failed []error
	for i, category := range q.Collections {
		if results[i].err != nil {
			c.logger.Warn("collection search failed", "collection", category, "error", results[i].err)
			res.Failures = append(res.Failures, CollectionFailure{Collection: category, Err: results[i].err})
			failed = append(failed, fmt.Errorf("%s: %w", category, results[i].err))
			continue
		}
		for _, hit := range results[i].hits {
			hit.AdjustedScore = c.adjust(hit, q, ref)
			res.Hits = append(res.Hits, hit)
		}
	}

	if len(failed) == len(q.Collections) {
		return nil, fmt.Errorf("all collections failed: %w", errors.Join(failed...))
	}

	sort.SliceStable(res.Hits, func(i, j int) bool {
		return res.Hits[i].AdjustedScore > res.Hits[j].AdjustedScore
	})
	if uint64(len(res.Hits)) > q.Limit {
		res.Hits = res.Hits[:q.Limit]
	}

	return res, nil
}

// adjust computes the final ranking score for one hit.
func (c *Coordinator) adjust(hit models.SearchHit, q Query, ref time.Time) float64 {
	adjusted := hit.Score * q.Weights.Weight(hit.Collection)

	// Records without a timestamp keep their weighted score unchanged
	// rather than being blended against a meaningless decay value.
	if q.UseDecay && hit.Record.HasTimestamp() {
		decay := Decay(hit.Record.Timestamp, ref, q.DecayWeight)
		adjusted = (1-q.DecayRatio)*adjusted + q.DecayRatio*decay
	}

	return adjusted
}

// rescoring reports whether any re-ranking beyond raw similarity applies.
func (c *Coordinator) rescoring(q Query) bool {
	if q.UseDecay {
		return true
	}
	for _, category := range q.Collections {
		if q.Weights.Weight(category) != 1.0 {
			return true
		}
	}
	return false
}
