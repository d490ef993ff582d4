package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/bryanwahyu/imagegate/internal/domain/findings"
	domain "github.com/bryanwahyu/imagegate/internal/domain/pipeline"
)

type RunRepository struct{ db *sql.DB }

func NewRunRepository(db *sql.DB) *RunRepository { return &RunRepository{db: db} }

// Save insert/update Run record
func (r *RunRepository) Save(ctx context.Context, run *domain.Run) error {
	const q = `
INSERT INTO gate_runs
(id, tenant_id, triggered_at, state, context_path, tag, destination, digest, pass,
 critical, high, medium, low, findings_total,
 artifact_url, duration_ms, source, commit_sha, branch, error)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,
        $10,$11,$12,$13,$14,
        $15,$16,$17,$18,$19,$20)
ON CONFLICT (id) DO UPDATE SET
 state = EXCLUDED.state,
 digest = EXCLUDED.digest,
 pass = EXCLUDED.pass,
 critical = EXCLUDED.critical,
 high = EXCLUDED.high,
 medium = EXCLUDED.medium,
 low = EXCLUDED.low,
 findings_total = EXCLUDED.findings_total,
 artifact_url = EXCLUDED.artifact_url,
 duration_ms = EXCLUDED.duration_ms,
 error = EXCLUDED.error;`

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
WHERE tenant_id=$1 AND id=$2
LIMIT 1;`
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
WHERE tenant_id=$1 ORDER BY triggered_at DESC
LIMIT $2;`
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
SELECT COUNT(*)                              AS total_runs,
       COUNT(*) FILTER (WHERE pass)          AS passed,
       COUNT(*) FILTER (WHERE NOT pass)      AS failed,
       COALESCE(SUM(critical),0)             AS critical,
       COALESCE(SUM(high),0)                 AS high
FROM gate_runs
WHERE tenant_id=$1 AND triggered_at >= $2;`
	var s domain.Summary
	if err := r.db.QueryRowContext(ctx, q, tenant, cut).Scan(
		&s.TotalRuns, &s.Passed, &s.Failed, &s.Critical, &s.High,
	); err != nil {
		return domain.Summary{}, err
	}
	return s, nil
}

// stringOrDash returns "-" when the input is empty/whitespace
func stringOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
