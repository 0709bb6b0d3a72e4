package domain

// Assessment is one catalog entry. Records are loaded once from the index
// artifact and never mutated afterwards.
type Assessment struct {
	Name            string   `json:"name"`
	URL             string   `json:"url"`
	Description     string   `json:"description"`
	TestTypes       []string `json:"test_type"`
	JobLevels       string   `json:"job_levels"`
	Languages       string   `json:"languages"`
	Length          int      `json:"assessment_length"` // minutes, 0 when unknown
	RemoteSupport   string   `json:"remote_testing"`    // "Yes" / "No"
	AdaptiveSupport string   `json:"adaptive_irt"`      // "Yes" / "No"
	Category        string   `json:"category,omitempty"`
}

// HasTag reports whether the record carries the given test type tag (exact match).
func (a *Assessment) HasTag(tag string) bool {
	for _, t := range a.TestTypes {
		if t == tag {
			return true
		}
	}
	return false
}

// Hit is a search result: a record with its rank and raw distance to the query.
// Distance never leaves the search boundary in API responses.
type Hit struct {
	Assessment Assessment
	Position   int // row in the index artifact
	Rank       int // 0-based, nearest first
	Distance   float32
}

// Assessments strips search annotations, preserving order.
func Assessments(hits []Hit) []Assessment {
	out := make([]Assessment, len(hits))
	for i := range hits {
		out[i] = hits[i].Assessment
	}
	return out
}

// DefaultTopK is the number of recommendations returned when the caller does not ask.
const DefaultTopK = 10
