package health

import (
	"context"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all configured components are operational.
	Healthy Status = "healthy"
	// Degraded indicates at least one component failed its check.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
	// CheckNotLoaded means the index loads lazily and nobody has asked for it yet.
	CheckNotLoaded CheckResult = "not_loaded"
)

const defaultCheckTimeout = 3 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	index     IndexState
	cache     CachePinger
	embedding EmbeddingChecker
	// eager marks an unloaded index as a failure instead of a pending lazy load.
	eager bool
}

// New creates a Service. cache and embedding can be nil.
func New(index IndexState, cache CachePinger, embedding EmbeddingChecker, eager bool) *Service {
	return &Service{index: index, cache: cache, embedding: embedding, eager: eager}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	ctx, cancel := context.WithTimeout(ctx, defaultCheckTimeout)
	defer cancel()

	checks := make(map[string]CheckResult)

	switch {
	case s.index.Loaded():
		checks["index"] = CheckOK
	case s.eager:
		checks["index"] = CheckError
	default:
		checks["index"] = CheckNotLoaded
	}

	if s.cache != nil {
		checks["cache"] = result(s.cache.Ping(ctx))
	}
	if s.embedding != nil {
		checks["embedding"] = result(s.embedding.HealthCheck(ctx))
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}

func result(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}
