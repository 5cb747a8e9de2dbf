package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"dispatch/internal/domain"
	"dispatch/pkg/apperror"
)

func createJob(ctx context.Context, q querier, job *domain.Job) error {
	_, err := q.Exec(ctx, `
		INSERT INTO jobs (
			id, kind, target_key, submitter, status, input, progress,
			progress_note, error_message, result_handle, created_at,
			started_at, finished_at, last_progress_at, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		job.ID, job.Kind, job.TargetKey, job.Submitter, job.Status, job.Input, job.Progress,
		job.ProgressNote, job.ErrorMessage, job.ResultHandle, job.CreatedAt,
		job.StartedAt, job.FinishedAt, job.LastProgressAt, job.Version,
	)
	if err != nil {
		return apperror.Wrap(err, apperror.CodeInternal, "inserting job")
	}
	return nil
}

func getJob(ctx context.Context, q querier, id string) (*domain.Job, error) {
	row := q.QueryRow(ctx, `
		SELECT id, kind, target_key, submitter, status, input, progress,
		       progress_note, error_message, result_handle, created_at,
		       started_at, finished_at, last_progress_at, version
		FROM jobs WHERE id = $1`, id)
	return scanJob(row)
}

func saveJob(ctx context.Context, q querier, job *domain.Job) error {
	tag, err := q.Exec(ctx, `
		UPDATE jobs SET
			status = $2, progress = $3, progress_note = $4, error_message = $5,
			result_handle = $6, started_at = $7, finished_at = $8,
			last_progress_at = $9, version = $10
		WHERE id = $1`,
		job.ID, job.Status, job.Progress, job.ProgressNote, job.ErrorMessage,
		job.ResultHandle, job.StartedAt, job.FinishedAt, job.LastProgressAt, job.Version,
	)
	if err != nil {
		return apperror.Wrap(err, apperror.CodeInternal, "saving job")
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewWithField(apperror.CodeNotFound, "job not found", "job_id")
	}
	return nil
}

func listRunningJobs(ctx context.Context, q querier) ([]*domain.Job, error) {
	rows, err := q.Query(ctx, `
		SELECT id, kind, target_key, submitter, status, input, progress,
		       progress_note, error_message, result_handle, created_at,
		       started_at, finished_at, last_progress_at, version
		FROM jobs WHERE status = $1`, domain.JobRunning)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInternal, "querying running jobs")
	}
	defer rows.Close()

	var out []*domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

func scanJob(row rowScanner) (*domain.Job, error) {
	var job domain.Job
	err := row.Scan(
		&job.ID, &job.Kind, &job.TargetKey, &job.Submitter, &job.Status, &job.Input, &job.Progress,
		&job.ProgressNote, &job.ErrorMessage, &job.ResultHandle, &job.CreatedAt,
		&job.StartedAt, &job.FinishedAt, &job.LastProgressAt, &job.Version,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewWithField(apperror.CodeNotFound, "job not found", "job_id")
		}
		return nil, apperror.Wrap(err, apperror.CodeInternal, "scanning job")
	}
	return &job, nil
}
