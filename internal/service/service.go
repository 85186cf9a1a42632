// Package service orchestrates classification, embedding, storage, and
// retrieval behind a single API used by the HTTP server, the MCP server,
// and the CLI.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jaehoon-lim/mnemos/internal/classifier"
	"github.com/jaehoon-lim/mnemos/internal/embedder"
	"github.com/jaehoon-lim/mnemos/internal/metrics"
	"github.com/jaehoon-lim/mnemos/internal/models"
	"github.com/jaehoon-lim/mnemos/internal/retrieval"
	"github.com/jaehoon-lim/mnemos/internal/store"
)

// Service wires the classifier pipeline to the vector store.
type Service struct {
	classifier  *classifier.Classifier
	refiner     *classifier.Refiner
	embedder    embedder.Embedder
	store       store.Store
	coordinator *retrieval.Coordinator

	decayWeight float64
	decayRatio  float64

	logger *slog.Logger
}

// Options carries retrieval tuning defaults.
type Options struct {
	DecayWeight float64
	DecayRatio  float64
}

// New creates a Service over the given collaborators.
func New(emb embedder.Embedder, st store.Store, opts Options, logger *slog.Logger) *Service {
	return &Service{
		classifier:  classifier.New(logger),
		refiner:     classifier.NewRefiner(logger),
		embedder:    emb,
		store:       st,
		coordinator: retrieval.NewCoordinator(st, logger),
		decayWeight: opts.DecayWeight,
		decayRatio:  opts.DecayRatio,
		logger:      logger,
	}
}

// Classify runs the full pipeline: feature scoring followed by the business
// rule pass.
func (s *Service) Classify(text string, hints classifier.Hints) models.ClassificationResult {
	metrics.Inc(metrics.ClassifyTotal)
	result := s.classifier.Classify(text, hints)
	refined := s.refiner.Refine(text, hints, result)
	if len(refined.RulesApplied) > 0 {
		metrics.Inc(metrics.RulesFiredTotal)
	}
	return refined
}

// BatchClassify classifies each text independently with shared hints.
func (s *Service) BatchClassify(texts []string, hints classifier.Hints) []models.ClassificationResult {
	results := make([]models.ClassificationResult, len(texts))
	for i, text := range texts {
		results[i] = s.Classify(text, hints)
	}
	return results
}

// RememberRequest describes one memory to store.
type RememberRequest struct {
	Text   string `json:"text"`
	UserID string `json:"user_id"`

	// Category forces a collection; empty means classify automatically.
	Category models.MemoryCategory `json:"category,omitempty"`

	// Timestamp of the remembered event. Zero means no event time;
	// such records are exempt from decay at search time.
	Timestamp time.Time `json:"timestamp,omitzero"`

	Source string `json:"source,omitempty"`

	// Importance overrides the heuristic when > 0.
	Importance float64 `json:"importance,omitempty"`

	Hints classifier.Hints `json:"hints,omitzero"`
}

// RememberResponse reports where a memory was stored and how it was
// classified.
type RememberResponse struct {
	ID             string                       `json:"id"`
	Category       models.MemoryCategory        `json:"category"`
	Importance     float64                      `json:"importance"`
	Classification *models.ClassificationResult `json:"classification,omitempty"`
}

// Remember classifies, embeds, and stores one memory. An explicit category
// in the request skips classification.
func (s *Service) Remember(ctx context.Context, req RememberRequest) (*RememberResponse, error) {
	if req.Text == "" {
		return nil, fmt.Errorf("text is required")
	}
	if req.UserID == "" {
		return nil, fmt.Errorf("user_id is required")
	}

	resp := &RememberResponse{Category: req.Category}
	if req.Category == "" {
		result := s.Classify(req.Text, req.Hints)
		resp.Category = result.Category
		resp.Classification = &result
	} else if !req.Category.IsValid() {
		return nil, fmt.Errorf("invalid category %q", req.Category)
	}

	resp.Importance = req.Importance
	if resp.Importance <= 0 {
		resp.Importance = Importance(req.Text)
	}

	vector, err := s.embedder.Embed(ctx, req.Text)
	if err != nil {
		return nil, fmt.Errorf("embedding memory: %w", err)
	}

	record := models.MemoryRecord{
		Text:       req.Text,
		UserID:     req.UserID,
		Category:   resp.Category,
		Timestamp:  req.Timestamp,
		Importance: resp.Importance,
		Source:     req.Source,
	}
	switch resp.Category {
	case models.CategoryEpisodic:
		record.Episodic = &models.EpisodicAttributes{
			Speaker: req.Hints.Speaker,
			Emotion: req.Hints.Emotion,
		}
		if req.Hints.ConversationID != "" {
			record.Episodic.Context = map[string]string{"conversation_id": req.Hints.ConversationID}
		}
	case models.CategorySemantic:
		record.Semantic = &models.SemanticAttributes{FactType: req.Hints.FactType}
		if resp.Classification != nil {
			record.Semantic.Confidence = resp.Classification.Confidence
		}
	}

	id, err := s.store.Insert(ctx, record, vector)
	if err != nil {
		return nil, fmt.Errorf("storing memory: %w", err)
	}
	resp.ID = id

	metrics.Inc(metrics.RememberTotal)
	s.logger.Info("remembered", "id", id, "user_id", req.UserID, "category", resp.Category)
	return resp, nil
}

// SearchRequest describes one retrieval across collections.
type SearchRequest struct {
	Query       string                   `json:"query"`
	UserID      string                   `json:"user_id"`
	Collections []models.MemoryCategory  `json:"collections,omitempty"`
	Limit       uint64                   `json:"limit,omitempty"`
	Weights     models.CollectionWeights `json:"weights,omitempty"`
	UseDecay    bool                     `json:"use_decay,omitempty"`
	DecayWeight float64                  `json:"decay_weight,omitempty"`
	DecayRatio  float64                  `json:"decay_ratio,omitempty"`
	Filters     *store.SearchFilters     `json:"filters,omitempty"`
}

const defaultSearchLimit = 5

// Search embeds the query and fans it out across the requested collections.
func (s *Service) Search(ctx context.Context, req SearchRequest) (*retrieval.Result, error) {
	if req.Query == "" {
		return nil, fmt.Errorf("query is required")
	}
	if req.UserID == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	for _, c := range req.Collections {
		if !c.IsValid() {
			return nil, fmt.Errorf("invalid collection %q", c)
		}
	}
	if len(req.Collections) == 0 {
		req.Collections = models.ValidCategories
	}
	if req.Limit == 0 {
		req.Limit = defaultSearchLimit
	}

	vector, err := s.embedder.Embed(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	q := retrieval.Query{
		Vector:      vector,
		UserID:      req.UserID,
		Collections: req.Collections,
		Limit:       req.Limit,
		Filters:     req.Filters,
		Weights:     req.Weights,
		UseDecay:    req.UseDecay,
		DecayWeight: req.DecayWeight,
		DecayRatio:  req.DecayRatio,
	}
	if q.UseDecay {
		if q.DecayWeight == 0 {
			q.DecayWeight = s.decayWeight
		}
		if q.DecayRatio == 0 {
			q.DecayRatio = s.decayRatio
		}
	}

	result, err := s.coordinator.Search(ctx, q)
	if err != nil {
		return nil, err
	}

	metrics.Inc(metrics.SearchTotal)
	if len(result.Failures) > 0 {
		metrics.Inc(metrics.SearchPartialFails)
	}
	return result, nil
}

// SmartSearch classifies the query first and biases collection weights
// toward the predicted category in proportion to the classifier's
// confidence.
func (s *Service) SmartSearch(ctx context.Context, req SearchRequest) (*retrieval.Result, models.ClassificationResult, error) {
	result := s.Classify(req.Query, classifier.Hints{})

	weights := models.CollectionWeights{}
	for _, c := range models.ValidCategories {
		if c == result.Category {
			weights[c] = 1 + 0.5*result.Confidence
		} else {
			weights[c] = 1 - 0.3*result.Confidence
		}
	}
	req.Weights = weights

	hits, err := s.Search(ctx, req)
	if err != nil {
		return nil, result, err
	}
	return hits, result, nil
}

// UserStats counts a user's memories per category.
func (s *Service) UserStats(ctx context.Context, userID string) (*models.UserStats, error) {
	stats := &models.UserStats{
		UserID:       userID,
		ByCategory:   make(map[models.MemoryCategory]int64, len(models.ValidCategories)),
		Distribution: make(map[models.MemoryCategory]float64, len(models.ValidCategories)),
	}

	for _, c := range models.ValidCategories {
		n, err := s.store.Count(ctx, userID, c)
		if err != nil {
			return nil, fmt.Errorf("counting %s memories: %w", c, err)
		}
		stats.ByCategory[c] = n
		stats.TotalMemories += n
	}

	for c, n := range stats.ByCategory {
		if stats.TotalMemories > 0 {
			stats.Distribution[c] = float64(n) / float64(stats.TotalMemories)
		}
	}

	return stats, nil
}

// DeleteUserMemories removes a user's memories. An empty category deletes
// from every collection.
func (s *Service) DeleteUserMemories(ctx context.Context, userID string, category models.MemoryCategory) error {
	categories := models.ValidCategories
	if category != "" {
		if !category.IsValid() {
			return fmt.Errorf("invalid category %q", category)
		}
		categories = []models.MemoryCategory{category}
	}

	for _, c := range categories {
		if err := s.store.DeleteUser(ctx, userID, c); err != nil {
			return err
		}
	}

	metrics.Inc(metrics.ForgetTotal)
	s.logger.Info("forgot user memories", "user_id", userID, "category", category)
	return nil
}

// CollectionStats reports statistics for one category collection.
func (s *Service) CollectionStats(ctx context.Context, category models.MemoryCategory) (*models.CollectionStats, error) {
	if !category.IsValid() {
		return nil, fmt.Errorf("invalid category %q", category)
	}
	return s.store.Stats(ctx, category)
}

// ResetCollection drops and recreates one category collection.
func (s *Service) ResetCollection(ctx context.Context, category models.MemoryCategory) error {
	if !category.IsValid() {
		return fmt.Errorf("invalid category %q", category)
	}
	return s.store.Reset(ctx, category)
}
