package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaehoon-lim/mnemos/internal/models"
)

func baseResult(category models.MemoryCategory, confidence float64) models.ClassificationResult {
	return models.ClassificationResult{
		Category:   category,
		Confidence: confidence,
		Features:   models.FeatureVector{},
	}
}

func TestRefine_ShortTextFragment(t *testing.T) {
	r := NewRefiner(testLogger())

	out := r.Refine("ok sure", Hints{}, baseResult(models.CategorySemantic, 0.55))

	assert.Equal(t, models.CategoryEpisodic, out.Category)
	assert.InDelta(t, 0.7, out.Confidence, 1e-9)
	assert.Contains(t, out.RulesApplied, RuleShortText)
}

func TestRefine_ShortTextSkippedWhenConfident(t *testing.T) {
	r := NewRefiner(testLogger())

	out := r.Refine("ok sure", Hints{}, baseResult(models.CategorySemantic, 0.9))

	assert.Equal(t, models.CategorySemantic, out.Category)
	assert.NotContains(t, out.RulesApplied, RuleShortText)
}

func TestRefine_FactTypeOverridesShortText(t *testing.T) {
	r := NewRefiner(testLogger())

	out := r.Refine("water boils", Hints{FactType: "physics"}, baseResult(models.CategoryEpisodic, 0.5))

	assert.Equal(t, models.CategorySemantic, out.Category)
	assert.InDelta(t, 0.95, out.Confidence, 1e-9)
	// Both rules fire; the later one wins.
	assert.Contains(t, out.RulesApplied, RuleShortText)
	assert.Contains(t, out.RulesApplied, RuleExplicitFactType)
}

func TestRefine_ConversationReinforcesEpisodic(t *testing.T) {
	r := NewRefiner(testLogger())

	out := r.Refine("she told me about the trip we took last summer",
		Hints{ConversationID: "conv-1"}, baseResult(models.CategoryEpisodic, 0.7))

	assert.Equal(t, models.CategoryEpisodic, out.Category)
	assert.InDelta(t, 0.9, out.Confidence, 1e-9)
	assert.Contains(t, out.RulesApplied, RuleConversationContext)
}

func TestRefine_ConversationFlipsWeakSemantic(t *testing.T) {
	r := NewRefiner(testLogger())

	out := r.Refine("the capital is a city somewhere far away",
		Hints{Speaker: "bob"}, baseResult(models.CategorySemantic, 0.6))

	assert.Equal(t, models.CategoryEpisodic, out.Category)
	assert.InDelta(t, 0.75, out.Confidence, 1e-9)
}

func TestRefine_ConversationLeavesStrongSemantic(t *testing.T) {
	r := NewRefiner(testLogger())

	out := r.Refine("the capital is a city somewhere far away",
		Hints{Speaker: "bob"}, baseResult(models.CategorySemantic, 0.9))

	assert.Equal(t, models.CategorySemantic, out.Category)
	assert.InDelta(t, 0.9, out.Confidence, 1e-9)
}

func TestRefine_ConfidenceCappedAtOne(t *testing.T) {
	r := NewRefiner(testLogger())

	out := r.Refine("she told me about the trip we took last summer",
		Hints{ConversationID: "conv-1"}, baseResult(models.CategoryEpisodic, 0.95))

	assert.InDelta(t, 1.0, out.Confidence, 1e-9)
}

func TestRefine_HighEmotionFlipsWeakSemantic(t *testing.T) {
	r := NewRefiner(testLogger())

	in := baseResult(models.CategorySemantic, 0.7)
	in.Features = models.FeatureVector{models.FeatureEmotional: 2}

	out := r.Refine("some long enough emotional text goes right here", Hints{}, in)

	assert.Equal(t, models.CategoryEpisodic, out.Category)
	assert.InDelta(t, 0.8, out.Confidence, 1e-9)
	assert.Contains(t, out.RulesApplied, RuleHighEmotion)
}

func TestRefine_HighEmotionSkippedWhenConfident(t *testing.T) {
	r := NewRefiner(testLogger())

	in := baseResult(models.CategorySemantic, 0.85)
	in.Features = models.FeatureVector{models.FeatureEmotional: 3}

	out := r.Refine("some long enough emotional text goes right here", Hints{}, in)

	assert.Equal(t, models.CategorySemantic, out.Category)
	assert.NotContains(t, out.RulesApplied, RuleHighEmotion)
}

func TestRefine_ProfileForcesSemanticsLast(t *testing.T) {
	r := NewRefiner(testLogger())

	in := baseResult(models.CategoryEpisodic, 0.8)
	in.Features = models.FeatureVector{models.FeatureProfile: 2}

	out := r.Refine("my birthday is in march and my hobby is hiking", Hints{}, in)

	assert.Equal(t, models.CategorySemantic, out.Category)
	assert.InDelta(t, 1.0, out.Confidence, 1e-9)
	assert.Contains(t, out.RulesApplied, RuleProfileInformation)
}

// TestRefine_RuleOrdering runs the full pipeline on a short text carrying
// both emotional and profile signal: the short-text rule fires first, the
// profile rule runs last and wins.
func TestRefine_RuleOrdering(t *testing.T) {
	c := New(testLogger())
	r := NewRefiner(testLogger())

	text := "happy birthday name"
	out := r.Refine(text, Hints{}, c.Classify(text, Hints{}))

	assert.Equal(t, models.CategorySemantic, out.Category)
	assert.GreaterOrEqual(t, out.Confidence, 0.8)
	require.Equal(t, []string{RuleShortText, RuleProfileInformation}, out.RulesApplied)
}

func TestRefine_DoesNotMutateInput(t *testing.T) {
	r := NewRefiner(testLogger())

	in := baseResult(models.CategorySemantic, 0.5)
	in.Features = models.FeatureVector{models.FeatureProfile: 2}

	_ = r.Refine("my birthday is in march and my hobby is hiking", Hints{}, in)

	assert.Equal(t, models.CategorySemantic, in.Category)
	assert.InDelta(t, 0.5, in.Confidence, 1e-9)
	assert.Empty(t, in.RulesApplied)
}

func TestRefine_NeedsReviewRecomputed(t *testing.T) {
	r := NewRefiner(testLogger())

	in := baseResult(models.CategorySemantic, 0.55)
	in.NeedsReview = true

	// Short text raises confidence above the review threshold.
	out := r.Refine("ok sure", Hints{}, in)

	assert.False(t, out.NeedsReview)
}
