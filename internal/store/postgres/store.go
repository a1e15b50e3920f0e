// Package postgres implements the job and credential stores over PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/socailstream/social-stream-backend/internal/api"
	"github.com/socailstream/social-stream-backend/internal/dispatcher"
	"github.com/socailstream/social-stream-backend/internal/domain"
	"github.com/socailstream/social-stream-backend/internal/scheduler"
	"github.com/socailstream/social-stream-backend/internal/sweeper"
)

// Store implements the scheduler, dispatcher, sweeper, and api store
// interfaces using PostgreSQL.
type Store struct {
	db        *sql.DB
	opTimeout time.Duration
}

// New creates a new PostgreSQL store. Every operation is bounded by opTimeout
// on top of the caller's context.
func New(db *sql.DB, opTimeout time.Duration) *Store {
	if opTimeout <= 0 {
		opTimeout = 5 * time.Second
	}
	return &Store{db: db, opTimeout: opTimeout}
}

func (s *Store) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opTimeout)
}

// ClaimDueJobs atomically transitions up to limit due pending jobs to Claimed
// and returns them, oldest due first.
func (s *Store) ClaimDueJobs(ctx context.Context, now time.Time, limit int) ([]domain.Job, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, queryClaimDueJobs, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs, err := scanJobs(rows)
	if err != nil {
		return nil, err
	}

	// UPDATE ... RETURNING does not guarantee row order; restore due order.
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].DueAt.Before(jobs[j].DueAt) })
	return jobs, nil
}

// CompleteJob atomically writes the terminal status and results.
// Returns dispatcher.ErrTransitionDenied if the job is no longer Claimed.
func (s *Store) CompleteJob(ctx context.Context, jobID uuid.UUID, status domain.JobStatus, results map[string]domain.PlatformResult, now time.Time) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	encoded, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}

	result, err := s.db.ExecContext(ctx, queryCompleteJob, string(status), encoded, now, jobID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		// Either: (a) job not found, or (b) already terminal.
		// Distinguish by checking if the row exists.
		var current string
		err := s.db.QueryRowContext(ctx, queryGetJobStatus, jobID).Scan(&current)
		if err == sql.ErrNoRows {
			return sql.ErrNoRows
		}
		if err != nil {
			return err
		}
		return dispatcher.ErrTransitionDenied
	}

	return nil
}

// GetStaleClaimedJobs returns claimed jobs whose claim is older than the
// threshold, oldest claim first.
func (s *Store) GetStaleClaimedJobs(ctx context.Context, olderThan time.Time, limit int) ([]domain.Job, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, queryGetStaleClaimedJobs, olderThan, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanJobs(rows)
}

// GetCredential returns the owner's credential for a platform, or
// dispatcher.ErrCredentialNotFound.
func (s *Store) GetCredential(ctx context.Context, ownerID uuid.UUID, platform string) (domain.Credential, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var cred domain.Credential
	var expiresAt sql.NullTime

	err := s.db.QueryRowContext(ctx, queryGetCredential, ownerID, platform).Scan(
		&cred.OwnerID,
		&cred.Platform,
		&cred.AccessToken,
		&expiresAt,
		&cred.RoutingTarget,
		&cred.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return domain.Credential{}, dispatcher.ErrCredentialNotFound
	}
	if err != nil {
		return domain.Credential{}, err
	}
	if expiresAt.Valid {
		cred.ExpiresAt = expiresAt.Time
	}
	return cred, nil
}

// UpsertCredential inserts or replaces the owner's credential for a platform.
func (s *Store) UpsertCredential(ctx context.Context, cred domain.Credential) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var expiresAt any
	if !cred.ExpiresAt.IsZero() {
		expiresAt = cred.ExpiresAt
	}

	_, err := s.db.ExecContext(ctx, queryUpsertCredential,
		cred.OwnerID,
		cred.Platform,
		cred.AccessToken,
		expiresAt,
		cred.RoutingTarget,
		cred.UpdatedAt,
	)
	return err
}

// InsertJob creates a new publish job.
func (s *Store) InsertJob(ctx context.Context, job domain.Job) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	media, err := json.Marshal(job.Content.Media)
	if err != nil {
		return fmt.Errorf("marshal media: %w", err)
	}
	results, err := json.Marshal(job.PerPlatformResult)
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}

	_, err = s.db.ExecContext(ctx, queryInsertJob,
		job.ID,
		job.OwnerID,
		job.Content.Text,
		job.Content.LinkURL,
		media,
		pq.Array(job.TargetPlatforms),
		job.DueAt,
		string(job.Status),
		results,
		job.Recurrence,
		job.Timezone,
		job.CreatedAt,
		job.UpdatedAt,
	)
	return err
}

// GetJob returns a job by its ID.
func (s *Store) GetJob(ctx context.Context, jobID uuid.UUID) (domain.Job, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	row := s.db.QueryRowContext(ctx, queryGetJob, jobID)
	return scanJob(row)
}

// ListJobs returns an owner's jobs, newest due first, paginated.
func (s *Store) ListJobs(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]domain.Job, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, queryListJobs, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanJobs(rows)
}

// InsertPublishAttempt records one adapter invocation.
func (s *Store) InsertPublishAttempt(ctx context.Context, attempt domain.PublishAttempt) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx, queryInsertPublishAttempt,
		attempt.ID,
		attempt.JobID,
		attempt.Platform,
		attempt.Attempt,
		attempt.OK,
		attempt.ExternalID,
		attempt.ErrorKind,
		attempt.Detail,
		attempt.StartedAt,
		attempt.FinishedAt,
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (domain.Job, error) {
	var job domain.Job
	var status string
	var media, results []byte
	var platforms pq.StringArray
	var claimedAt sql.NullTime

	err := row.Scan(
		&job.ID,
		&job.OwnerID,
		&job.Content.Text,
		&job.Content.LinkURL,
		&media,
		&platforms,
		&job.DueAt,
		&status,
		&results,
		&job.Recurrence,
		&job.Timezone,
		&claimedAt,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		return domain.Job{}, err
	}

	job.Status = domain.JobStatus(status)
	job.TargetPlatforms = platforms
	if claimedAt.Valid {
		t := claimedAt.Time
		job.ClaimedAt = &t
	}
	if len(media) > 0 {
		if err := json.Unmarshal(media, &job.Content.Media); err != nil {
			return domain.Job{}, fmt.Errorf("unmarshal media: %w", err)
		}
	}
	if len(results) > 0 {
		if err := json.Unmarshal(results, &job.PerPlatformResult); err != nil {
			return domain.Job{}, fmt.Errorf("unmarshal results: %w", err)
		}
	}
	return job, nil
}

func scanJobs(rows *sql.Rows) ([]domain.Job, error) {
	var jobs []domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return jobs, nil
}

// Compile-time interface assertions
var (
	_ scheduler.Store  = (*Store)(nil)
	_ dispatcher.Store = (*Store)(nil)
	_ sweeper.Store    = (*Store)(nil)
	_ api.Store        = (*Store)(nil)
)
