package classifier

import (
	"regexp"

	"github.com/jaehoon-lim/mnemos/internal/models"
)

// Each pattern family is an ordered list of matchers. Extraction counts how
// many distinct matchers in a family fire at least once, not total
// occurrences. The Korean alternations mirror the expressions the service was
// originally tuned on; the English alternations cover the same signal in
// English text. Korean branches avoid \b because RE2 word boundaries are
// ASCII-only.

// temporalPatterns match expressions that anchor text to a point in time.
var temporalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(today|yesterday|tomorrow|right now|just now|earlier|later)\b|오늘|어제|내일|지금|현재|방금|아까|나중에`),
	regexp.MustCompile(`(?i)\b(morning|noon|evening|tonight|\d{1,2}(am|pm))\b|\d{1,2}시|\d{1,2}분|아침|점심|저녁|밤`),
	regexp.MustCompile(`(?i)\b(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b|월요일|화요일|수요일|목요일|금요일|토요일|일요일`),
	regexp.MustCompile(`\d{4}년|\d{1,2}월|\d{1,2}일|(?i)\b(january|february|march|april|june|july|august|september|october|november|december)\b`),
	regexp.MustCompile(`(?i)\b(recently|before|after|during|last week|last month)\b|최근|이전|전에|후에|동안`),
}

// emotionalPatterns match expressions of feeling or mood.
var emotionalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(happy|glad|joyful|excited|satisfied|grateful)\b|기쁘|행복|즐거|신나|좋|만족|감사`),
	regexp.MustCompile(`(?i)\b(sad|depressed|hurt|miserable|frustrated|upset)\b|슬프|우울|힘들|아프|괴로|답답|속상`),
	regexp.MustCompile(`(?i)\b(angry|annoyed|furious|stressed)\b|화나|짜증|분노|열받|빡치|스트레스`),
	regexp.MustCompile(`(?i)\b(anxious|worried|afraid|scared|nervous)\b|불안|걱정|두려|무서|긴장|초조`),
	regexp.MustCompile(`(?i)\b(tired|exhausted|sick|worn out)\b|피곤|지치|컨디션|몸살`),
	regexp.MustCompile(`(?i)\b(funny|hilarious|surprising|amazing|wow)\b|재밌|웃겨|놀라|신기|대박`),
}

// conversationPatterns match reported speech and chat artifacts.
var conversationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(said|told|talked|asked|answered|replied|mentioned)\b|말했|얘기했|대화했|이야기했|물어봤|답했`),
	regexp.MustCompile(`라고|다고|냐고|니까|거든|잖아`),
	regexp.MustCompile(`[?!]|\.{2,}|ㅋㅋ|ㅎㅎ|ㅠㅠ|ㅜㅜ`),
}

// factualPatterns match declarative knowledge statements.
var factualPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(is a|are a|means|refers to|defined as)\b|이다|입니다|됩니다|이었|였`),
	regexp.MustCompile(`(?i)\b(information|fact|knowledge|concept|definition|explanation)\b|정보|사실|지식|개념|정의|설명`),
	regexp.MustCompile(`(?i)\b(noun|verb|adjective|adverb|grammar|rule)\b|명사|동사|형용사|부사|문법|규칙`),
	regexp.MustCompile(`(?i)\b(history|science|math|technology|politics|economics)\b|역사|과학|수학|기술|정치|경제`),
	regexp.MustCompile(`\d+%|\d+개|\d+명|\d+원|\d+kg|\d+cm|\d+ ?(percent|items|people)`),
}

// profilePatterns match personal profile attributes.
var profilePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(birthday|age|job|occupation|hobby|hobbies|major)\b|생일|나이|직업|취미|좋아하|싫어하|전공`),
	regexp.MustCompile(`(?i)\b(lives in|address|home|family|parents|brother|sister)\b|살고|거주|주소|가족|부모|형제|자매`),
	regexp.MustCompile(`(?i)\b(name|personality|trait|habit|preference)\b|이름|성격|특징|습관|버릇|취향`),
	regexp.MustCompile(`(?i)\b(phone|contact|email|account)\b|전화|연락|메일|SNS|계정`),
}

var featureFamilies = map[string][]*regexp.Regexp{
	models.FeatureTemporal:       temporalPatterns,
	models.FeatureEmotional:      emotionalPatterns,
	models.FeatureConversational: conversationPatterns,
	models.FeatureFactual:        factualPatterns,
	models.FeatureProfile:        profilePatterns,
}

// Extract scans text against all five pattern families and returns the
// per-family count of matchers that fired. Empty text yields an all-zero
// vector; there are no error conditions at this layer.
func Extract(text string) models.FeatureVector {
	fv := make(models.FeatureVector, len(featureFamilies))
	for name, patterns := range featureFamilies {
		count := 0
		for _, p := range patterns {
			if p.MatchString(text) {
				count++
			}
		}
		fv[name] = count
	}
	return fv
}
