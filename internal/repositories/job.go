package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/driveclone/internal/models"
	"github.com/desertthunder/driveclone/internal/shared"
)

const jobColumns = `id, source_url, file_name, file_type, status, progress, error_message, error_code, created_at, updated_at`

// JobRepository persists [models.CloneJob] rows. It satisfies store.Journal.
type JobRepository struct {
	db *sql.DB
}

// NewJobRepository creates a new JobRepository with the given database connection
func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Save writes the current state of job, inserting it with a new sequence number when it is not stored yet.
func (r *JobRepository) Save(job models.CloneJob) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	return inTx(r.db, func(tx *sql.Tx) error {
		result, err := tx.Exec(`
			UPDATE clone_jobs
			SET file_name = ?, status = ?, progress = ?, error_message = ?, error_code = ?, updated_at = ?
			WHERE id = ? AND deleted_at IS NULL
		`,
			job.FileName,
			string(job.Status),
			job.Progress,
			nullString(job.Error),
			nullString(job.ErrorCode),
			job.UpdatedAt,
			job.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update job: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get affected rows: %w", err)
		}
		if rows > 0 {
			return nil
		}

		sequence, err := NextSequence(tx, "clone_jobs")
		if err != nil {
			return fmt.Errorf("failed to generate sequence: %w", err)
		}

		_, err = tx.Exec(`
			INSERT INTO clone_jobs (id, sequence, source_url, file_name, file_type, status, progress, error_message, error_code, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			job.ID,
			sequence,
			job.SourceURL,
			job.FileName,
			string(job.FileType),
			string(job.Status),
			job.Progress,
			nullString(job.Error),
			nullString(job.ErrorCode),
			job.CreatedAt,
			job.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert job: %w", err)
		}
		return nil
	})
}

// Get retrieves a job by ID, excluding soft-deleted jobs
func (r *JobRepository) Get(id string) (models.CloneJob, error) {
	row := r.db.QueryRow(`SELECT `+jobColumns+` FROM clone_jobs WHERE id = ? AND deleted_at IS NULL`, id)

	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.CloneJob{}, fmt.Errorf("%w: %s", shared.ErrJobNotFound, id)
	}
	return job, err
}

// List retrieves jobs in insertion order. An empty status lists every job.
func (r *JobRepository) List(status models.JobStatus) ([]models.CloneJob, error) {
	query := `SELECT ` + jobColumns + ` FROM clone_jobs WHERE deleted_at IS NULL`
	args := []any{}

	if status != "" {
		query += " AND status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.CloneJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return jobs, nil
}

// Delete soft-deletes a job by ID
func (r *JobRepository) Delete(id string) error {
	result, err := r.db.Exec(`UPDATE clone_jobs SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrJobNotFound, id)
	}
	return nil
}

// Clear soft-deletes every job.
func (r *JobRepository) Clear() error {
	if _, err := r.db.Exec(`UPDATE clone_jobs SET deleted_at = ? WHERE deleted_at IS NULL`, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to clear jobs: %w", err)
	}
	return nil
}

// Purge permanently removes soft-deleted rows and returns how many were removed.
func (r *JobRepository) Purge() (int64, error) {
	result, err := r.db.Exec(`DELETE FROM clone_jobs WHERE deleted_at IS NOT NULL`)
	if err != nil {
		return 0, fmt.Errorf("failed to purge jobs: %w", err)
	}
	return result.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

// scanJob scans a row from either [sql.Row] or [sql.Rows] into a [models.CloneJob]
func scanJob(s scanner) (models.CloneJob, error) {
	var (
		job       models.CloneJob
		fileType  string
		status    string
		errMsg    sql.NullString
		errCode   sql.NullString
		createdAt time.Time
		updatedAt time.Time
	)

	err := s.Scan(&job.ID, &job.SourceURL, &job.FileName, &fileType, &status, &job.Progress, &errMsg, &errCode, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return job, err
	}
	if err != nil {
		return job, fmt.Errorf("failed to scan job: %w", err)
	}

	job.FileType = models.FileType(fileType)
	job.Status = models.JobStatus(status)
	job.Error = errMsg.String
	job.ErrorCode = errCode.String
	job.CreatedAt = createdAt.UTC()
	job.UpdatedAt = updatedAt.UTC()
	return job, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
