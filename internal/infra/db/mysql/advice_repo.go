package mysql

import (
	"context"
	"database/sql"
	"strings"
	"time"

	domain "github.com/bryanwahyu/imagegate/internal/domain/advice"
)

type AdviceRepository struct {
	db *sql.DB
}

func NewAdviceRepository(db *sql.DB) *AdviceRepository {
	return &AdviceRepository{db: db}
}

// Save inserts an advice record
func (r *AdviceRepository) Save(ctx context.Context, a *domain.Advice) error {
	const q = `
INSERT INTO gate_advice
  (id, tenant_id, run_id, digest, result_json, created_at)
VALUES (?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
  tenant_id=VALUES(tenant_id), run_id=VALUES(run_id), digest=VALUES(digest), result_json=VALUES(result_json);
`
	tenant := stringOrDash(a.TenantID)
	result := a.Result
	if strings.TrimSpace(result) == "" {
		// result_json column requires valid JSON; use empty object
		result = "{}"
	}
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, q, a.ID, tenant, a.RunID, a.Digest, result, createdAt)
	return err
}

// Paginate returns a page of advice records ordered by created_at desc
func (r *AdviceRepository) Paginate(ctx context.Context, tenant string, page, pageSize int) ([]*domain.Advice, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	const q = `
SELECT id, tenant_id, run_id, digest, result_json, created_at
FROM gate_advice
WHERE tenant_id=?
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?;
`
	rows, err := r.db.QueryContext(ctx, q, tenant, pageSize, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Advice
	for rows.Next() {
		var a domain.Advice
		var created time.Time
		if err := rows.Scan(&a.ID, &a.TenantID, &a.RunID, &a.Digest, &a.Result, &created); err != nil {
			return nil, err
		}
		a.CreatedAt = created
		out = append(out, &a)
	}
	return out, rows.Err()
}

// LatestByRun returns the newest advice stored for a run
func (r *AdviceRepository) LatestByRun(ctx context.Context, tenant string, runID string) (*domain.Advice, error) {
	const q = `
SELECT id, tenant_id, run_id, digest, result_json, created_at
FROM gate_advice
WHERE tenant_id=? AND run_id=?
ORDER BY created_at DESC, id DESC
LIMIT 1;
`
	row := r.db.QueryRowContext(ctx, q, tenant, runID)
	var a domain.Advice
	var created time.Time
	if err := row.Scan(&a.ID, &a.TenantID, &a.RunID, &a.Digest, &a.Result, &created); err != nil {
		return nil, err
	}
	a.CreatedAt = created
	return &a, nil
}
