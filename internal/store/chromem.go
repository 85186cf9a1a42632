package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"

	"github.com/jaehoon-lim/mnemos/internal/models"
)

// ChromemStore implements Store on chromem-go, a pure Go embedded vector
// database. It needs no external service, which makes it the default for
// local development and tests. One chromem collection per memory category.
type ChromemStore struct {
	db        *chromem.DB
	prefix    string
	dimension uint64
	logger    *slog.Logger

	mu     sync.RWMutex
	colls  map[models.MemoryCategory]*chromem.Collection
	counts map[models.MemoryCategory]map[string]int64
}

// NewChromemStore creates an in-memory chromem backend.
func NewChromemStore(prefix string, dimension uint64, logger *slog.Logger) *ChromemStore {
	return &ChromemStore{
		db:        chromem.NewDB(),
		prefix:    prefix,
		dimension: dimension,
		logger:    logger,
		colls:     make(map[models.MemoryCategory]*chromem.Collection),
		counts:    make(map[models.MemoryCategory]map[string]int64),
	}
}

func (s *ChromemStore) collectionName(category models.MemoryCategory) string {
	return s.prefix + "_" + string(category)
}

func (s *ChromemStore) EnsureCollections(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, category := range models.ValidCategories {
		if _, ok := s.colls[category]; ok {
			continue
		}
		// Embeddings are supplied by the caller, so no embedding func.
		col, err := s.db.CreateCollection(s.collectionName(category), nil, nil)
		if err != nil {
			return fmt.Errorf("creating collection %s: %w", s.collectionName(category), err)
		}
		s.colls[category] = col
		s.counts[category] = make(map[string]int64)
		s.logger.Info("created collection", "name", s.collectionName(category))
	}

	return nil
}

func (s *ChromemStore) collection(category models.MemoryCategory) (*chromem.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	col, ok := s.colls[category]
	if !ok {
		return nil, fmt.Errorf("collection %s not initialized: %w", s.collectionName(category), ErrUnavailable)
	}
	return col, nil
}

func (s *ChromemStore) Insert(ctx context.Context, record models.MemoryRecord, vector []float32) (string, error) {
	col, err := s.collection(record.Category)
	if err != nil {
		return "", err
	}

	if record.ID == "" {
		record.ID = uuid.NewString()
	}

	meta, err := recordToMetadata(record)
	if err != nil {
		return "", err
	}

	if err := col.AddDocument(ctx, chromem.Document{
		ID:        record.ID,
		Content:   record.Text,
		Embedding: vector,
		Metadata:  meta,
	}); err != nil {
		return "", fmt.Errorf("adding document %s: %w", record.ID, err)
	}

	s.mu.Lock()
	s.counts[record.Category][record.UserID]++
	s.mu.Unlock()

	s.logger.Debug("inserted memory", "id", record.ID, "category", record.Category, "user_id", record.UserID)
	return record.ID, nil
}

func (s *ChromemStore) Search(ctx context.Context, vector []float32, userID string, category models.MemoryCategory, limit uint64, extra *SearchFilters) ([]models.SearchHit, error) {
	col, err := s.collection(category)
	if err != nil {
		return nil, err
	}

	where := map[string]string{"user_id": userID}
	if extra != nil {
		if extra.Source != nil {
			where["source"] = *extra.Source
		}
		if extra.Speaker != nil {
			where["speaker"] = *extra.Speaker
		}
		if extra.FactType != nil {
			where["fact_type"] = *extra.FactType
		}
	}

	// chromem requires nResults <= collection size, so shrink the request
	// until it fits. An empty collection yields no hits, not an error.
	var results []chromem.Result
	for n := int(limit); n >= 1; n-- {
		results, err = col.QueryEmbedding(ctx, vector, n, where, nil)
		if err == nil {
			break
		}
		if isTooFewDocsError(err) {
			if n == 1 {
				return nil, nil
			}
			continue
		}
		return nil, fmt.Errorf("querying %s: %w", s.collectionName(category), err)
	}

	hits := make([]models.SearchHit, 0, len(results))
	for _, res := range results {
		rec, err := metadataToRecord(res, category)
		if err != nil {
			s.logger.Warn("parsing search result", "error", err)
			continue
		}
		hits = append(hits, models.SearchHit{
			Record:     *rec,
			Score:      float64(res.Similarity),
			Collection: category,
		})
	}

	return hits, nil
}

func (s *ChromemStore) Count(_ context.Context, userID string, category models.MemoryCategory) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byUser, ok := s.counts[category]
	if !ok {
		return 0, fmt.Errorf("collection %s not initialized: %w", s.collectionName(category), ErrUnavailable)
	}
	return byUser[userID], nil
}

func (s *ChromemStore) DeleteUser(ctx context.Context, userID string, category models.MemoryCategory) error {
	col, err := s.collection(category)
	if err != nil {
		return err
	}

	if err := col.Delete(ctx, map[string]string{"user_id": userID}, nil); err != nil {
		return fmt.Errorf("deleting %s memories for %s: %w", category, userID, err)
	}

	s.mu.Lock()
	delete(s.counts[category], userID)
	s.mu.Unlock()

	s.logger.Debug("deleted user memories", "user_id", userID, "category", category)
	return nil
}

func (s *ChromemStore) Stats(_ context.Context, category models.MemoryCategory) (*models.CollectionStats, error) {
	col, err := s.collection(category)
	if err != nil {
		return nil, err
	}

	return &models.CollectionStats{
		Category:       category,
		PointCount:     uint64(col.Count()),
		VectorDim:      s.dimension,
		DistanceMetric: "cosine",
	}, nil
}

func (s *ChromemStore) Reset(_ context.Context, category models.MemoryCategory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := s.collectionName(category)
	if err := s.db.DeleteCollection(name); err != nil {
		return fmt.Errorf("dropping collection %s: %w", name, err)
	}

	col, err := s.db.CreateCollection(name, nil, nil)
	if err != nil {
		return fmt.Errorf("recreating collection %s: %w", name, err)
	}
	s.colls[category] = col
	s.counts[category] = make(map[string]int64)

	s.logger.Info("reset collection", "name", name)
	return nil
}

func (s *ChromemStore) Close() error {
	// Everything lives in memory.
	return nil
}

func recordToMetadata(r models.MemoryRecord) (map[string]string, error) {
	meta := map[string]string{
		"user_id":    r.UserID,
		"importance": fmt.Sprintf("%g", r.Importance),
		"source":     r.Source,
	}
	if r.HasTimestamp() {
		meta["timestamp"] = r.Timestamp.Format(time.RFC3339)
	}
	if r.Episodic != nil {
		if r.Episodic.Speaker != "" {
			meta["speaker"] = r.Episodic.Speaker
		}
		b, err := json.Marshal(r.Episodic)
		if err != nil {
			return nil, fmt.Errorf("marshaling episodic attributes: %w", err)
		}
		meta["episodic"] = string(b)
	}
	if r.Semantic != nil {
		if r.Semantic.FactType != "" {
			meta["fact_type"] = r.Semantic.FactType
		}
		b, err := json.Marshal(r.Semantic)
		if err != nil {
			return nil, fmt.Errorf("marshaling semantic attributes: %w", err)
		}
		meta["semantic"] = string(b)
	}
	return meta, nil
}

func metadataToRecord(res chromem.Result, category models.MemoryCategory) (*models.MemoryRecord, error) {
	r := &models.MemoryRecord{
		ID:       res.ID,
		Text:     res.Content,
		UserID:   res.Metadata["user_id"],
		Category: category,
		Source:   res.Metadata["source"],
	}

	if imp := res.Metadata["importance"]; imp != "" {
		if _, err := fmt.Sscanf(imp, "%g", &r.Importance); err != nil {
			return nil, fmt.Errorf("parsing importance for %s: %w", res.ID, err)
		}
	}
	if ts := res.Metadata["timestamp"]; ts != "" {
		t, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			return nil, fmt.Errorf("parsing timestamp for %s: %w", res.ID, err)
		}
		r.Timestamp = t
	}
	if epStr := res.Metadata["episodic"]; epStr != "" {
		var ep models.EpisodicAttributes
		if err := json.Unmarshal([]byte(epStr), &ep); err == nil {
			r.Episodic = &ep
		}
	}
	if seStr := res.Metadata["semantic"]; seStr != "" {
		var se models.SemanticAttributes
		if err := json.Unmarshal([]byte(seStr), &se); err == nil {
			r.Semantic = &se
		}
	}

	return r, nil
}

func isTooFewDocsError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "nResults must be") || strings.Contains(msg, "number of documents")
}
