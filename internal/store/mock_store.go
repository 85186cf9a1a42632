package store

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/jaehoon-lim/mnemos/internal/models"
)

// MockStore is an in-memory implementation of Store for testing.
type MockStore struct {
	mu      sync.RWMutex
	records map[models.MemoryCategory]map[string]*storedRecord

	// FailCategories lists categories whose operations return ErrUnavailable,
	// for exercising partial-failure paths.
	FailCategories map[models.MemoryCategory]bool
}

type storedRecord struct {
	record models.MemoryRecord
	vector []float32
}

// NewMockStore creates a new mock store with both category collections.
func NewMockStore() *MockStore {
	m := &MockStore{
		records:        make(map[models.MemoryCategory]map[string]*storedRecord),
		FailCategories: make(map[models.MemoryCategory]bool),
	}
	for _, c := range models.ValidCategories {
		m.records[c] = make(map[string]*storedRecord)
	}
	return m
}

func (m *MockStore) failing(category models.MemoryCategory) bool {
	return m.FailCategories[category]
}

// EnsureCollections is a no-op for the mock store.
func (m *MockStore) EnsureCollections(_ context.Context) error {
	return nil
}

func (m *MockStore) Insert(_ context.Context, record models.MemoryRecord, vector []float32) (string, error) {
	if m.failing(record.Category) {
		return "", ErrUnavailable
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	v := make([]float32, len(vector))
	copy(v, vector)
	m.records[record.Category][record.ID] = &storedRecord{record: record, vector: v}
	return record.ID, nil
}

func (m *MockStore) Search(_ context.Context, vector []float32, userID string, category models.MemoryCategory, limit uint64, extra *SearchFilters) ([]models.SearchHit, error) {
	if m.failing(category) {
		return nil, ErrUnavailable
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var hits []models.SearchHit
	for _, sr := range m.records[category] {
		if sr.record.UserID != userID || !matchesFilters(sr.record, extra) {
			continue
		}
		hits = append(hits, models.SearchHit{
			Record:     sr.record,
			Score:      cosineSimilarity(vector, sr.vector),
			Collection: category,
		})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if uint64(len(hits)) > limit {
		hits = hits[:limit]
	}

	return hits, nil
}

func (m *MockStore) Count(_ context.Context, userID string, category models.MemoryCategory) (int64, error) {
	if m.failing(category) {
		return 0, ErrUnavailable
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var n int64
	for _, sr := range m.records[category] {
		if sr.record.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (m *MockStore) DeleteUser(_ context.Context, userID string, category models.MemoryCategory) error {
	if m.failing(category) {
		return ErrUnavailable
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for id, sr := range m.records[category] {
		if sr.record.UserID == userID {
			delete(m.records[category], id)
		}
	}
	return nil
}

func (m *MockStore) Stats(_ context.Context, category models.MemoryCategory) (*models.CollectionStats, error) {
	if m.failing(category) {
		return nil, ErrUnavailable
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	return &models.CollectionStats{
		Category:       category,
		PointCount:     uint64(len(m.records[category])),
		VectorDim:      0,
		DistanceMetric: "cosine",
	}, nil
}

func (m *MockStore) Reset(_ context.Context, category models.MemoryCategory) error {
	if m.failing(category) {
		return ErrUnavailable
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[category] = make(map[string]*storedRecord)
	return nil
}

// Close is a no-op for the mock store.
func (m *MockStore) Close() error {
	return nil
}

// --- helpers ---

func matchesFilters(rec models.MemoryRecord, f *SearchFilters) bool {
	if f == nil {
		return true
	}
	if f.Source != nil && rec.Source != *f.Source {
		return false
	}
	if f.Speaker != nil && (rec.Episodic == nil || rec.Episodic.Speaker != *f.Speaker) {
		return false
	}
	if f.FactType != nil && (rec.Semantic == nil || rec.Semantic.FactType != *f.FactType) {
		return false
	}
	return true
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
