package classifier

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaehoon-lim/mnemos/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestExtract_TemporalAndEmotional(t *testing.T) {
	fv := Extract("오늘 기분이 좋아")

	assert.Equal(t, 1, fv[models.FeatureTemporal])
	assert.Equal(t, 1, fv[models.FeatureEmotional])
	assert.Equal(t, 0, fv[models.FeatureFactual])
	assert.Equal(t, 0, fv[models.FeatureProfile])
}

func TestExtract_English(t *testing.T) {
	fv := Extract("Yesterday I was so happy when she said yes")

	assert.Equal(t, 1, fv[models.FeatureTemporal], "yesterday")
	assert.Equal(t, 1, fv[models.FeatureEmotional], "happy")
	assert.Equal(t, 1, fv[models.FeatureConversational], "said")
}

func TestExtract_CountsMatchersNotOccurrences(t *testing.T) {
	// Two words from the same matcher count once.
	fv := Extract("information and more information about this fact")
	assert.Equal(t, 1, fv[models.FeatureFactual])
}

func TestExtract_Empty(t *testing.T) {
	fv := Extract("")
	for _, name := range []string{
		models.FeatureTemporal, models.FeatureEmotional, models.FeatureConversational,
		models.FeatureFactual, models.FeatureProfile,
	} {
		assert.Equal(t, 0, fv[name], name)
	}
}

func TestClassify_KoreanEpisodic(t *testing.T) {
	c := New(testLogger())

	// Temporal + emotional + short text: strongly episodic.
	result := c.Classify("오늘 기분이 좋아", Hints{})

	assert.Equal(t, models.CategoryEpisodic, result.Category)
	assert.GreaterOrEqual(t, result.Confidence, 0.7)
	assert.InDelta(t, 6.0, result.EpisodicScore, 1e-9)
	assert.InDelta(t, 0.0, result.SemanticScore, 1e-9)
}

func TestClassify_DeclarativeFactIsSemantic(t *testing.T) {
	c := New(testLogger())

	result := c.Classify("서울은 한국의 수도이다", Hints{})

	assert.Equal(t, models.CategorySemantic, result.Category)
	assert.Greater(t, result.SemanticScore, result.EpisodicScore)
}

func TestClassify_FactTypeHintBoostsSemantic(t *testing.T) {
	c := New(testLogger())

	without := c.Classify("서울은 한국의 수도이다", Hints{})
	with := c.Classify("서울은 한국의 수도이다", Hints{FactType: "geography"})

	assert.Equal(t, with.SemanticScore, without.SemanticScore+5)
}

func TestClassify_ZeroFeaturesDefaultsSemantic(t *testing.T) {
	c := New(testLogger())

	// No pattern family fires and the text is long enough to avoid the
	// short-text bonus. Ties and all-zero scores resolve to semantic.
	result := c.Classify("the quick brown fox jumps", Hints{})

	assert.Equal(t, models.CategorySemantic, result.Category)
	assert.Zero(t, result.Confidence)
	assert.True(t, result.NeedsReview)
}

func TestClassify_InterrogativeLeansEpisodic(t *testing.T) {
	c := New(testLogger())

	result := c.Classify("뭐 먹을까?", Hints{})

	assert.Equal(t, models.CategoryEpisodic, result.Category)
}

func TestClassify_ConversationHintRaisesEpisodicScore(t *testing.T) {
	c := New(testLogger())

	without := c.Classify("the quick brown fox jumps", Hints{})
	with := c.Classify("the quick brown fox jumps", Hints{Speaker: "앨리스"})

	assert.Equal(t, with.EpisodicScore, without.EpisodicScore+2)
}

func TestClassify_EmotionHintRaisesEpisodicScore(t *testing.T) {
	c := New(testLogger())

	with := c.Classify("the quick brown fox jumps", Hints{
		Emotion: &models.Emotion{Label: "joy", Intensity: 0.9},
	})

	assert.InDelta(t, 3.0, with.EpisodicScore, 1e-9)
}

func TestClassify_ConfidenceBounds(t *testing.T) {
	c := New(testLogger())

	texts := []string{
		"",
		"오늘 기분이 좋아",
		"서울은 한국의 수도이다",
		"뭐 먹을까?",
		"the quick brown fox jumps",
		"yesterday my friend said something hilarious and I was so happy",
		"제 생일은 3월이고 취미는 등산입니다",
	}
	for _, text := range texts {
		result := c.Classify(text, Hints{})
		assert.GreaterOrEqual(t, result.Confidence, 0.0, "text %q", text)
		assert.LessOrEqual(t, result.Confidence, 1.0, "text %q", text)
	}
}

func TestClassify_Deterministic(t *testing.T) {
	c := New(testLogger())

	first := c.Classify("오늘 기분이 좋아", Hints{})
	second := c.Classify("오늘 기분이 좋아", Hints{})

	require.Equal(t, first, second)
}
