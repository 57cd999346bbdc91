package service

import (
	"context"
	"errors"
	"fmt"

	"catalog-service/internal/models"
	"catalog-service/internal/redisclient"
	"catalog-service/internal/util"

	"go.uber.org/zap"
)

// JobStore reads bulk jobs
type JobStore interface {
	GetImportJob(ctx context.Context, id string) (*models.ImportJob, error)
}

// JobCache reads cached bulk job status
type JobCache interface {
	GetJobStatus(ctx context.Context, id string) (*models.ImportJob, error)
}

// JobService answers "how is my import doing"
type JobService struct {
	store  JobStore
	cache  JobCache
	logger *zap.Logger
}

// NewJobService creates a new job service. cache may be nil.
func NewJobService(store JobStore, cache JobCache) *JobService {
	return &JobService{
		store:  store,
		cache:  cache,
		logger: util.GetLogger(),
	}
}

// GetJob returns the cached status of a job, falling back to the database
func (s *JobService) GetJob(ctx context.Context, id string) (*models.ImportJob, error) {
	ctx, span := util.StartSpan(ctx, "JobService.GetJob")
	defer span.End()

	if s.cache != nil {
		job, err := s.cache.GetJobStatus(ctx, id)
		if err == nil {
			return job, nil
		}
		if !errors.Is(err, redisclient.ErrCacheMiss) {
			s.logger.Warn("Job cache read failed", zap.String("job_id", id), zap.Error(err))
		}
	}

	job, err := s.store.GetImportJob(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get import job: %w", err)
	}
	return job, nil
}
