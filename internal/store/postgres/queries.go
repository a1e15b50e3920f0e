package postgres

const jobColumns = `
    id, owner_id, body, link_url, media, target_platforms,
    due_at, status, per_platform_result, recurrence, timezone,
    claimed_at, created_at, updated_at`

// queryClaimDueJobs atomically claims one batch of due pending jobs.
// FOR UPDATE SKIP LOCKED makes overlapping ticks and concurrent instances
// skip each other's rows instead of blocking or double-claiming.
const queryClaimDueJobs = `
WITH due AS (
    SELECT id FROM publish_jobs
    WHERE status = 'pending'
      AND due_at <= $1
    ORDER BY due_at ASC
    LIMIT $2
    FOR UPDATE SKIP LOCKED
)
UPDATE publish_jobs j
SET status = 'claimed', claimed_at = $1, updated_at = $1
FROM due
WHERE j.id = due.id
RETURNING j.id, j.owner_id, j.body, j.link_url, j.media, j.target_platforms,
          j.due_at, j.status, j.per_platform_result, j.recurrence, j.timezone,
          j.claimed_at, j.created_at, j.updated_at
`

// queryCompleteJob is the single atomic terminal write. The status guard in
// the WHERE clause enforces monotonic transitions: only a Claimed job can be
// completed, and a second writer is denied.
const queryCompleteJob = `
UPDATE publish_jobs
SET status = $1, per_platform_result = $2, updated_at = $3
WHERE id = $4
  AND status = 'claimed'
`

const queryGetJobStatus = `
SELECT status FROM publish_jobs WHERE id = $1
`

const queryInsertJob = `
INSERT INTO publish_jobs (id, owner_id, body, link_url, media, target_platforms,
                          due_at, status, per_platform_result, recurrence, timezone,
                          created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
`

const queryGetJob = `
SELECT` + jobColumns + `
FROM publish_jobs
WHERE id = $1
`

const queryListJobs = `
SELECT` + jobColumns + `
FROM publish_jobs
WHERE owner_id = $1
ORDER BY due_at DESC
LIMIT $2 OFFSET $3
`

const queryGetStaleClaimedJobs = `
SELECT` + jobColumns + `
FROM publish_jobs
WHERE status = 'claimed'
  AND claimed_at < $1
ORDER BY claimed_at ASC
LIMIT $2
`

const queryGetCredential = `
SELECT owner_id, platform, access_token, expires_at, routing_target, updated_at
FROM credentials
WHERE owner_id = $1 AND platform = $2
`

const queryUpsertCredential = `
INSERT INTO credentials (owner_id, platform, access_token, expires_at, routing_target, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (owner_id, platform)
DO UPDATE SET access_token = EXCLUDED.access_token,
              expires_at = EXCLUDED.expires_at,
              routing_target = EXCLUDED.routing_target,
              updated_at = EXCLUDED.updated_at
`

const queryInsertPublishAttempt = `
INSERT INTO publish_attempts (id, job_id, platform, attempt, ok, external_id,
                              error_kind, detail, started_at, finished_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`
