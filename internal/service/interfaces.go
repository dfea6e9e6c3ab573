package service

import (
	"context"

	"maintenance-task-service/internal/domain"
)

type HealthService interface {
	CheckHealth(ctx context.Context) domain.HealthStatus
}

// Pinger is satisfied by the redis store; nil means redis is not configured.
type Pinger interface {
	Ping(ctx context.Context) error
}
