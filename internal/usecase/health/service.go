// Package health aggregates dependency checks for the health endpoint.
package health

import (
	"context"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates an optional component is failing.
	Degraded Status = "degraded"
	// Unhealthy indicates the catalog database is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// DefaultCheckTimeout bounds each component check.
const DefaultCheckTimeout = 3 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	db      DBPinger
	cache   DBPinger
	tokens  TokenChecker
	embed   EmbeddingChecker
	timeout time.Duration
}

// New creates a Service. cache and tokens can be nil.
func New(db DBPinger, cache DBPinger, tokens TokenChecker) *Service {
	return &Service{db: db, cache: cache, tokens: tokens, timeout: DefaultCheckTimeout}
}

// WithEmbeddingChecker adds an "embedding" check. A failure degrades the report.
func (s *Service) WithEmbeddingChecker(c EmbeddingChecker) *Service {
	s.embed = c
	return s
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	checks["database"] = s.run(ctx, s.db.Ping)

	if s.cache != nil {
		checks["cache"] = s.run(ctx, s.cache.Ping)
	}

	if s.tokens != nil {
		checks["auth"] = s.run(ctx, func(ctx context.Context) error {
			_, err := s.tokens.Token(ctx)
			return err
		})
	}

	if s.embed != nil {
		checks["embedding"] = s.run(ctx, s.embed.HealthCheck)
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}
	if checks["database"] == CheckError {
		status = Unhealthy
	}

	return Report{Status: status, Checks: checks}
}

func (s *Service) run(ctx context.Context, check func(context.Context) error) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := check(ctx); err != nil {
		return CheckError
	}
	return CheckOK
}
