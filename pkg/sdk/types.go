package recommender

import "github.com/kailas-cloud/recommender/internal/domain"

// Test type vocabulary used for category balancing.
const (
	TestTypeKnowledge   = domain.TestTypeKnowledge
	TestTypePersonality = domain.TestTypePersonality
	TestTypeCompetency  = domain.TestTypeCompetency
)

// Assessment is one recommended catalog entry.
type Assessment struct {
	Name            string
	URL             string
	Description     string
	TestTypes       []string
	JobLevels       string
	Languages       string
	DurationMinutes int // 0 when unknown
	RemoteSupport   string
	AdaptiveSupport string
}

func assessmentFromDomain(a *domain.Assessment) Assessment {
	return Assessment{
		Name:            a.Name,
		URL:             a.URL,
		Description:     a.Description,
		TestTypes:       append([]string(nil), a.TestTypes...),
		JobLevels:       a.JobLevels,
		Languages:       a.Languages,
		DurationMinutes: a.Length,
		RemoteSupport:   a.RemoteSupport,
		AdaptiveSupport: a.AdaptiveSupport,
	}
}
