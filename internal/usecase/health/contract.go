package health

import "context"

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// TokenChecker verifies that an access token can be obtained.
type TokenChecker interface {
	Token(ctx context.Context) (string, error)
}

// EmbeddingChecker verifies the embedding provider is reachable.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}
