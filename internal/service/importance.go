package service

import "strings"

// Keyword groups that raise a memory's importance score. English and
// Korean terms are matched the same way.
var (
	importantKeywords = []string{
		"important", "critical", "essential", "warning", "caution", "urgent", "key point",
		"중요", "필수", "주의", "경고", "핵심", "긴급", "필수적",
	}
	urgentKeywords = []string{
		"immediately", "right now", "asap",
		"즉시", "당장", "지금", "바로",
	}
	emphasisMarks = []string{"!", "?", "*", "**", "___"}
	emotionalWords = []string{
		"love", "hate", "happy", "sad", "angry", "scared",
		"사랑", "미워", "기쁘", "슬프", "화나", "무서워",
	}
)

// Importance scores how much a text is worth keeping, in [0.5, 1.0].
// The baseline is 0.5; keyword cues, emphasis, emotion, and length each
// add to it.
func Importance(text string) float64 {
	score := 0.5

	lower := strings.ToLower(text)
	for _, kw := range importantKeywords {
		if strings.Contains(lower, kw) {
			score += 0.1
		}
	}
	for _, kw := range urgentKeywords {
		if strings.Contains(lower, kw) {
			score += 0.2
		}
	}

	if len([]rune(text)) > 100 {
		score += 0.1
	}

	for _, mark := range emphasisMarks {
		if strings.Contains(text, mark) {
			score += 0.05
		}
	}

	for _, word := range emotionalWords {
		if strings.Contains(lower, word) {
			score += 0.15
		}
	}

	return min(score, 1.0)
}
