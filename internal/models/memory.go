package models

import (
	"time"
)

// MemoryCategory is the two-way classification of a stored memory.
type MemoryCategory string

const (
	// CategoryEpisodic marks time-, place-, or emotion-anchored personal
	// experience.
	CategoryEpisodic MemoryCategory = "episodic"

	// CategorySemantic marks time-independent facts, knowledge, and
	// profile data.
	CategorySemantic MemoryCategory = "semantic"
)

// ValidCategories is the closed set of memory categories. Adding a category
// requires extending both the classifier pattern sets and the collection
// configuration.
var ValidCategories = []MemoryCategory{
	CategoryEpisodic,
	CategorySemantic,
}

// IsValid returns true if the category is recognized.
func (c MemoryCategory) IsValid() bool {
	for _, v := range ValidCategories {
		if c == v {
			return true
		}
	}
	return false
}

// Feature names produced by the extractor. Each maps to one pattern family.
const (
	FeatureTemporal       = "temporal"
	FeatureEmotional      = "emotional"
	FeatureConversational = "conversational"
	FeatureFactual        = "factual"
	FeatureProfile        = "profile"
)

// FeatureVector maps a feature name to the number of distinct matchers in
// that family that fired. Counts are always >= 0. Produced fresh per
// classification call, never persisted.
type FeatureVector map[string]int

// ClassificationResult is the full output of classify + refine.
type ClassificationResult struct {
	Category      MemoryCategory `json:"category"`
	Confidence    float64        `json:"confidence"`
	EpisodicScore float64        `json:"episodic_score"`
	SemanticScore float64        `json:"semantic_score"`
	Features      FeatureVector  `json:"features"`
	RulesApplied  []string       `json:"rules_applied,omitempty"`

	// NeedsReview is set when confidence falls below the manual
	// classification threshold.
	NeedsReview bool `json:"needs_review,omitempty"`
}

// Emotion describes emotion metadata attached to an episodic memory.
type Emotion struct {
	Label     string  `json:"label"`
	Intensity float64 `json:"intensity,omitempty"`
}

// EpisodicAttributes are the fields that only exist on episodic memories.
type EpisodicAttributes struct {
	Speaker string            `json:"speaker,omitempty"`
	Emotion *Emotion          `json:"emotion,omitempty"`
	Context map[string]string `json:"context,omitempty"`
	Links   []string          `json:"links,omitempty"`
}

// SemanticAttributes are the fields that only exist on semantic memories.
type SemanticAttributes struct {
	FactType   string  `json:"fact_type,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// MemoryRecord is the unit of storage. Exactly one of Episodic/Semantic is
// non-nil, matching Category; the category-specific payload is a tagged
// variant, not a loose metadata map.
type MemoryRecord struct {
	ID         string         `json:"id"`
	Text       string         `json:"text"`
	UserID     string         `json:"user_id"`
	Category   MemoryCategory `json:"category"`
	Timestamp  time.Time      `json:"timestamp"`
	Importance float64        `json:"importance"`
	Source     string         `json:"source"`

	Episodic *EpisodicAttributes `json:"episodic,omitempty"`
	Semantic *SemanticAttributes `json:"semantic,omitempty"`
}

// HasTimestamp reports whether the record carries a usable timestamp.
// Absence is a checked branch, not a parse failure.
func (m *MemoryRecord) HasTimestamp() bool {
	return !m.Timestamp.IsZero()
}

// SearchHit wraps a MemoryRecord returned from a similarity query with its
// raw similarity score, the adjusted score after weighting/decay, and the
// collection it came from. Created transiently per search call.
type SearchHit struct {
	Record        MemoryRecord   `json:"record"`
	Score         float64        `json:"score"`
	AdjustedScore float64        `json:"adjusted_score"`
	Collection    MemoryCategory `json:"collection"`
}

// CollectionWeights maps a category to the non-negative multiplier applied
// to that category's similarity scores during the multi-collection merge.
type CollectionWeights map[MemoryCategory]float64

// NeutralWeights returns the default weight map: 1.0 for every category.
func NeutralWeights() CollectionWeights {
	w := make(CollectionWeights, len(ValidCategories))
	for _, c := range ValidCategories {
		w[c] = 1.0
	}
	return w
}

// Weight returns the multiplier for the category, defaulting to 1.0 when
// the map is nil or the category is absent.
func (w CollectionWeights) Weight(c MemoryCategory) float64 {
	if w == nil {
		return 1.0
	}
	if v, ok := w[c]; ok {
		return v
	}
	return 1.0
}

// CollectionStats holds statistics about one category collection.
type CollectionStats struct {
	Category       MemoryCategory `json:"category"`
	PointCount     uint64         `json:"point_count"`
	VectorDim      uint64         `json:"vector_dim"`
	DistanceMetric string         `json:"distance_metric"`
}

// UserStats summarizes one user's memories across all categories.
type UserStats struct {
	UserID        string                     `json:"user_id"`
	TotalMemories int64                      `json:"total_memories"`
	ByCategory    map[MemoryCategory]int64   `json:"by_category"`
	Distribution  map[MemoryCategory]float64 `json:"distribution"`
}
