package classifier

import (
	"log/slog"
	"strings"

	"github.com/jaehoon-lim/mnemos/internal/models"
)

// Rule identifiers recorded on the result when a rule fires.
const (
	RuleShortText           = "short_text_rule"
	RuleExplicitFactType    = "explicit_fact_type"
	RuleConversationContext = "conversation_context"
	RuleHighEmotion         = "high_emotion_rule"
	RuleProfileInformation  = "profile_information"
)

// Refiner applies a fixed-order set of override rules on top of the raw
// classifier output to correct systematic bias. Rules are not commutative:
// a later rule takes priority over an earlier one when they conflict, so the
// execution order below must not be rearranged.
type Refiner struct {
	logger *slog.Logger
}

// NewRefiner creates a refiner.
func NewRefiner(logger *slog.Logger) *Refiner {
	return &Refiner{logger: logger}
}

// Refine runs the business rules against a classification result and returns
// the refined result. The input is not mutated.
func (r *Refiner) Refine(text string, hints Hints, in models.ClassificationResult) models.ClassificationResult {
	out := in
	out.RulesApplied = append([]string(nil), in.RulesApplied...)

	// Rule 1: three words or fewer with weak confidence is almost always a
	// conversational fragment.
	if len(strings.Fields(text)) <= 3 && out.Confidence < 0.7 {
		out.Category = models.CategoryEpisodic
		out.Confidence = max(out.Confidence, 0.7)
		out.RulesApplied = append(out.RulesApplied, RuleShortText)
	}

	// Rule 2: an explicit fact type forces semantic, overriding rule 1.
	if hints.FactType != "" {
		out.Category = models.CategorySemantic
		out.Confidence = 0.95
		out.RulesApplied = append(out.RulesApplied, RuleExplicitFactType)
	}

	// Rule 3: a conversation or speaker reference reinforces an episodic
	// prediction, or flips a weak semantic one.
	if hints.HasConversation() {
		if out.Category == models.CategoryEpisodic {
			out.Confidence = min(out.Confidence+0.2, 1.0)
		} else if out.Confidence < 0.8 {
			out.Category = models.CategoryEpisodic
			out.Confidence = 0.75
		}
		out.RulesApplied = append(out.RulesApplied, RuleConversationContext)
	}

	// Rule 4: strong emotional signal flips a weak semantic prediction.
	if out.Features[models.FeatureEmotional] >= 2 &&
		out.Category == models.CategorySemantic && out.Confidence < 0.8 {
		out.Category = models.CategoryEpisodic
		out.Confidence = 0.8
		out.RulesApplied = append(out.RulesApplied, RuleHighEmotion)
	}

	// Rule 5: repeated profile signal is definitively semantic. Runs last
	// so it can override rule 4.
	if out.Features[models.FeatureProfile] >= 2 {
		out.Category = models.CategorySemantic
		out.Confidence = min(out.Confidence+0.3, 1.0)
		out.RulesApplied = append(out.RulesApplied, RuleProfileInformation)
	}

	out.NeedsReview = out.Confidence < ReviewThreshold

	if len(out.RulesApplied) > len(in.RulesApplied) {
		r.logger.Debug("business rules applied",
			"rules", out.RulesApplied,
			"category", out.Category,
			"confidence", out.Confidence,
		)
	}

	return out
}
