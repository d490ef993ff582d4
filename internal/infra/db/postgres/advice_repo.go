package postgres

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
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (id) DO UPDATE SET
  tenant_id = EXCLUDED.tenant_id,
  run_id = EXCLUDED.run_id,
  digest = EXCLUDED.digest,
  result_json = EXCLUDED.result_json;`

	tenant := stringOrDash(a.TenantID)
	result := a.Result
	if strings.TrimSpace(result) == "" {
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
WHERE tenant_id=$1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3;`
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
WHERE tenant_id=$1 AND run_id=$2
ORDER BY created_at DESC, id DESC
LIMIT 1;`
	row := r.db.QueryRowContext(ctx, q, tenant, runID)
	var a domain.Advice
	var created time.Time
	if err := row.Scan(&a.ID, &a.TenantID, &a.RunID, &a.Digest, &a.Result, &created); err != nil {
		return nil, err
	}
	a.CreatedAt = created
	return &a, nil
}
