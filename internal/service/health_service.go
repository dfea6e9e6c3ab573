package service

import (
	"context"
	"fmt"

	"maintenance-task-service/internal/domain"
	"maintenance-task-service/internal/repository"
)

type healthService struct {
	repo  repository.HealthRepository
	redis Pinger
}

func NewHealthService(repo repository.HealthRepository, redis Pinger) HealthService {
	return &healthService{
		repo:  repo,
		redis: redis,
	}
}

func (s *healthService) CheckHealth(ctx context.Context) domain.HealthStatus {
	status := domain.HealthStatus{
		System: "operational",
	}

	if err := s.repo.PingDB(ctx); err != nil {
		status.Database = fmt.Sprintf("down: %v", err)
		status.System = "degraded"
	} else {
		status.Database = "up"
	}

	if s.redis != nil {
		if err := s.redis.Ping(ctx); err != nil {
			status.Redis = fmt.Sprintf("down: %v", err)
			status.System = "degraded"
		} else {
			status.Redis = "up"
		}
	}

	return status
}
