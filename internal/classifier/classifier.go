// Package classifier assigns memories to a category using lexical feature
// extraction, weighted two-way scoring, and an ordered set of business rules.
package classifier

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/jaehoon-lim/mnemos/internal/models"
)

// Feature weights for the two-way score.
const (
	temporalWeight       = 2
	emotionalWeight      = 3
	conversationalWeight = 2
	factualWeight        = 2
	profileWeight        = 3

	conversationHintBonus = 2
	emotionHintBonus      = 3
	factTypeHintBonus     = 5

	interrogativeBonus = 2
	declarativeBonus   = 1
	shortTextBonus     = 1

	// shortTextRunes is the length below which text leans episodic.
	shortTextRunes = 10
)

// ReviewThreshold is the confidence below which a classification should be
// flagged for manual review.
const ReviewThreshold = 0.6

// Hints carries optional out-of-band context for classification. A non-empty
// FactType implies semantic; a conversation or speaker reference and emotion
// metadata imply episodic.
type Hints struct {
	FactType       string          `json:"fact_type,omitempty"`
	ConversationID string          `json:"conversation_id,omitempty"`
	Speaker        string          `json:"speaker,omitempty"`
	Emotion        *models.Emotion `json:"emotion,omitempty"`
}

// HasConversation reports whether the hints reference a conversation.
func (h Hints) HasConversation() bool {
	return h.ConversationID != "" || h.Speaker != ""
}

// interrogative matches question marks and interrogative lexemes anywhere in
// the text; declarativeSuffix matches a copula ending.
var (
	interrogative     = regexp.MustCompile(`\?|뭐|어떻|언제|어디|왜|누구|어느`)
	declarativeSuffix = regexp.MustCompile(`(이다|입니다|됩니다|다)$`)
)

// Classifier computes a two-way episodic/semantic score from lexical
// features and context hints. It holds no mutable state and is safe for
// concurrent use.
type Classifier struct {
	logger *slog.Logger
}

// New creates a classifier.
func New(logger *slog.Logger) *Classifier {
	return &Classifier{logger: logger}
}

// Classify scores text against both categories and returns the predicted
// category with a normalized confidence. Ties resolve to semantic, the more
// general category; an all-zero score yields semantic with confidence 0.
// Pure function of its inputs.
func (c *Classifier) Classify(text string, hints Hints) models.ClassificationResult {
	features := Extract(text)

	episodic := float64(temporalWeight*features[models.FeatureTemporal] +
		emotionalWeight*features[models.FeatureEmotional] +
		conversationalWeight*features[models.FeatureConversational])
	semantic := float64(factualWeight*features[models.FeatureFactual] +
		profileWeight*features[models.FeatureProfile])

	if hints.HasConversation() {
		episodic += conversationHintBonus
	}
	if hints.Emotion != nil {
		episodic += emotionHintBonus
	}
	if hints.FactType != "" {
		semantic += factTypeHintBonus
	}

	trimmed := strings.TrimSpace(text)
	if interrogative.MatchString(trimmed) {
		episodic += interrogativeBonus
	}
	if declarativeSuffix.MatchString(trimmed) {
		semantic += declarativeBonus
	}
	if len([]rune(text)) < shortTextRunes {
		episodic += shortTextBonus
	}

	category := models.CategorySemantic
	winning := semantic
	if episodic > semantic {
		category = models.CategoryEpisodic
		winning = episodic
	}

	total := episodic + semantic
	if total < 1 {
		total = 1
	}
	confidence := winning / total

	result := models.ClassificationResult{
		Category:      category,
		Confidence:    confidence,
		EpisodicScore: episodic,
		SemanticScore: semantic,
		Features:      features,
		NeedsReview:   confidence < ReviewThreshold,
	}

	c.logger.Debug("classified text",
		"category", category,
		"confidence", confidence,
		"episodic", episodic,
		"semantic", semantic,
	)

	return result
}
