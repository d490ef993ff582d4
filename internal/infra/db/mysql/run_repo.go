package mysql

import (
	"context"
	"database/sql"
	"time"

	"github.com/bryanwahyu/imagegate/internal/domain/findings"
	domain "github.com/bryanwahyu/imagegate/internal/domain/pipeline"
)

type RunRepository struct {
	db *sql.DB
}

func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Save insert/update Run record
func (r *RunRepository) Save(ctx context.Context, run *domain.Run) error {
	const q = `
INSERT INTO gate_runs
(id, tenant_id, triggered_at, state, context_path, tag, destination, digest, pass,
 critical, high, medium, low, findings_total,
 artifact_url, duration_ms, source, commit_sha, branch, error)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
 state=VALUES(state), digest=VALUES(digest), pass=VALUES(pass),
 critical=VALUES(critical), high=VALUES(high), medium=VALUES(medium), low=VALUES(low),
 findings_total=VALUES(findings_total),
 artifact_url=VALUES(artifact_url), duration_ms=VALUES(duration_ms), error=VALUES(error);
`
	// Ensure non-nullable string fields have safe defaults
	tenant := stringOrDash(run.TenantID)
	state := stringOrDash(string(run.State))
	tag := stringOrDash(run.Tag)
	triggered := run.TriggeredAt
	if triggered.IsZero() {
		triggered = time.Now()
	}

	_, err := r.db.ExecContext(ctx, q,
		run.ID, tenant, triggered, state, run.ContextPath, tag, run.Destination, run.Digest, run.Pass,
		run.Counts.Critical, run.Counts.High, run.Counts.Medium, run.Counts.Low, run.Counts.Total,
		run.ArtifactURL, run.DurationMS, run.Source, run.CommitSHA, run.Branch, run.Error,
	)
	return err
}

// Get by ID + Tenant
func (r *RunRepository) Get(ctx context.Context, tenant string, id domain.RunID) (*domain.Run, error) {
	const q = `
SELECT id, tenant_id, triggered_at, state, context_path, tag, destination, digest, pass,
       critical, high, medium, low, findings_total,
       artifact_url, duration_ms, source, commit_sha, branch, error
FROM gate_runs
WHERE tenant_id=? AND id=? LIMIT 1;
`
	row := r.db.QueryRowContext(ctx, q, tenant, id)

	var run domain.Run
	var crit, hi, med, lo, tot int
	if err := row.Scan(
		&run.ID, &run.TenantID, &run.TriggeredAt, &run.State, &run.ContextPath, &run.Tag,
		&run.Destination, &run.Digest, &run.Pass,
		&crit, &hi, &med, &lo, &tot,
		&run.ArtifactURL, &run.DurationMS, &run.Source, &run.CommitSHA, &run.Branch, &run.Error,
	); err != nil {
		return nil, err
	}
	run.Counts = findings.SeverityCounts{Critical: crit, High: hi, Medium: med, Low: lo, Total: tot}
	return &run, nil
}

// Latest runs per tenant
func (r *RunRepository) Latest(ctx context.Context, tenant string, limit int) ([]*domain.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, tenant_id, triggered_at, state, context_path, tag, destination, digest, pass,
       critical, high, medium, low, findings_total,
       artifact_url, duration_ms, source, commit_sha, branch, error
FROM gate_runs
WHERE tenant_id=? ORDER BY triggered_at DESC LIMIT ?;
`
	rows, err := r.db.QueryContext(ctx, q, tenant, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Run
	for rows.Next() {
		var run domain.Run
		var crit, hi, med, lo, tot int
		if err := rows.Scan(
			&run.ID, &run.TenantID, &run.TriggeredAt, &run.State, &run.ContextPath, &run.Tag,
			&run.Destination, &run.Digest, &run.Pass,
			&crit, &hi, &med, &lo, &tot,
			&run.ArtifactURL, &run.DurationMS, &run.Source, &run.CommitSHA, &run.Branch, &run.Error,
		); err != nil {
			return nil, err
		}
		run.Counts = findings.SeverityCounts{Critical: crit, High: hi, Medium: med, Low: lo, Total: tot}
		out = append(out, &run)
	}
	return out, rows.Err()
}

// Summary aggregates run outcomes since N days
func (r *RunRepository) Summary(ctx context.Context, tenant string, sinceDays int) (domain.Summary, error) {
	if sinceDays <= 0 {
		sinceDays = 7
	}
	cut := time.Now().AddDate(0, 0, -sinceDays)

	const q = `
SELECT COUNT(*) AS total_runs,
       COALESCE(SUM(pass),0)          AS passed,
       COALESCE(SUM(1-pass),0)        AS failed,
       COALESCE(SUM(critical),0)      AS critical,
       COALESCE(SUM(high),0)          AS high
FROM gate_runs
WHERE tenant_id=? AND triggered_at >= ?;
`
	var s domain.Summary
	if err := r.db.QueryRowContext(ctx, q, tenant, cut).Scan(
		&s.TotalRuns, &s.Passed, &s.Failed, &s.Critical, &s.High,
	); err != nil {
		return domain.Summary{}, err
	}
	return s, nil
}
