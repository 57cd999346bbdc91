package store

import (
	"context"
	"database/sql"
	"fmt"

	"catalog-service/internal/models"
)

// CreateImportJob inserts a bulk job record
func (s *Store) CreateImportJob(ctx context.Context, job *models.ImportJob) error {
	query := `
		INSERT INTO bulk_jobs (id, type, status, file_name, total_rows, errors)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING started_at`

	err := s.db.QueryRowxContext(ctx, query,
		job.ID, job.Type, job.Status, job.FileName, job.TotalRows, job.Errors,
	).Scan(&job.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to create import job: %w", mapError(err))
	}
	return nil
}

// FinishImportJob records the final status and counts of a job
func (s *Store) FinishImportJob(ctx context.Context, job *models.ImportJob) error {
	query := `
		UPDATE bulk_jobs SET status = $1, processed_rows = $2, success_count = $3,
			error_count = $4, errors = $5, finished_at = NOW()
		WHERE id = $6
		RETURNING finished_at`

	err := s.db.QueryRowxContext(ctx, query,
		job.Status, job.ProcessedRows, job.SuccessCount, job.ErrorCount, job.Errors, job.ID,
	).Scan(&job.FinishedAt)
	if err == sql.ErrNoRows {
		return fmt.Errorf("import job %s: %w", job.ID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to finish import job: %w", err)
	}
	return nil
}

// GetImportJob retrieves a bulk job by id
func (s *Store) GetImportJob(ctx context.Context, id string) (*models.ImportJob, error) {
	var job models.ImportJob
	err := s.db.GetContext(ctx, &job, "SELECT * FROM bulk_jobs WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("import job %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}
