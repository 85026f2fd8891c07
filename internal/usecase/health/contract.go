package health

import "context"

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// BackendChecker checks an inference backend's availability.
type BackendChecker interface {
	HealthCheck(ctx context.Context) error
}
