package domain

import "strings"

// Test type vocabulary. Catalog pages encode these as single-letter keys.
const (
	TestTypeAbility     = "Ability & Aptitude"
	TestTypeBiodata     = "Biodata & Situational Judgement"
	TestTypeCompetency  = "Competencies"
	TestTypeDevelopment = "Development & 360"
	TestTypeExercises   = "Assessment Exercises"
	TestTypeKnowledge   = "Knowledge & Skills"
	TestTypePersonality = "Personality & Behavior"
	TestTypeSimulations = "Simulations"
)

var testTypeCodes = map[string]string{
	"A": TestTypeAbility,
	"B": TestTypeBiodata,
	"C": TestTypeCompetency,
	"D": TestTypeDevelopment,
	"E": TestTypeExercises,
	"K": TestTypeKnowledge,
	"P": TestTypePersonality,
	"S": TestTypeSimulations,
}

var vocabulary = map[string]struct{}{
	TestTypeAbility: {}, TestTypeBiodata: {}, TestTypeCompetency: {}, TestTypeDevelopment: {},
	TestTypeExercises: {}, TestTypeKnowledge: {}, TestTypePersonality: {}, TestTypeSimulations: {},
}

// NormalizeTestType maps a catalog key ("K") or a vocabulary name to the vocabulary name.
// Unknown values are returned trimmed and unchanged.
func NormalizeTestType(s string) string {
	s = strings.TrimSpace(s)
	if name, ok := testTypeCodes[s]; ok {
		return name
	}
	return s
}

// IsKnownTestType reports whether s is part of the vocabulary.
func IsKnownTestType(s string) bool {
	_, ok := vocabulary[s]
	return ok
}

// Bucket is the balancing category of a record.
type Bucket int

const (
	// Other holds records matching no rule; used only as fallback fill.
	Other Bucket = iota
	// Technical holds knowledge and skills tests.
	Technical
	// Behavioral holds personality and competency assessments.
	Behavioral
)

func (b Bucket) String() string {
	switch b {
	case Technical:
		return "technical"
	case Behavioral:
		return "behavioral"
	default:
		return "other"
	}
}

type classificationRule struct {
	bucket Bucket
	tags   []string
}

// Rules are evaluated in order; the first match wins.
var classificationRules = []classificationRule{
	{bucket: Technical, tags: []string{TestTypeKnowledge}},
	{bucket: Behavioral, tags: []string{TestTypePersonality, TestTypeCompetency}},
}

// Classify returns the bucket of a record. Tag matching is exact and case-sensitive.
func Classify(a *Assessment) Bucket {
	for _, rule := range classificationRules {
		for _, tag := range rule.tags {
			if a.HasTag(tag) {
				return rule.bucket
			}
		}
	}
	return Other
}
