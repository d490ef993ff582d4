package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	domain "github.com/bryanwahyu/imagegate/internal/domain/pipeline"
)

type EventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) *EventRepository { return &EventRepository{db: db} }

func (r *EventRepository) Save(ctx context.Context, e *domain.Event) error {
	const q = `
INSERT INTO gate_run_events
  (tenant_id, run_id, stage, scanner, message, details_json, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7);`
	tenant := stringOrDash(e.TenantID)
	run := stringOrDash(e.RunID)
	stage := stringOrDash(e.Stage)
	scanner := stringOrDash(e.Scanner)
	msg := e.Message
	if strings.TrimSpace(msg) == "" {
		msg = "-"
	}
	details := e.DetailsJSON
	if strings.TrimSpace(details) == "" {
		details = "{}"
	} else {
		// ensure valid json; if invalid, wrap as string field
		var js any
		if json.Unmarshal([]byte(details), &js) != nil {
			b, _ := json.Marshal(map[string]string{"raw": details})
			details = string(b)
		}
	}
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := r.db.ExecContext(ctx, q, tenant, run, stage, scanner, msg, details, created)
	return err
}

func (r *EventRepository) ListByRun(ctx context.Context, tenant string, runID string, limit int) ([]*domain.Event, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, tenant_id, run_id, stage, scanner, message, details_json, created_at
FROM gate_run_events
WHERE tenant_id = $1 AND run_id = $2
ORDER BY created_at DESC, id DESC
LIMIT $3;`
	rows, err := r.db.QueryContext(ctx, q, tenant, runID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Event
	for rows.Next() {
		var e domain.Event
		var created time.Time
		if err := rows.Scan(&e.ID, &e.TenantID, &e.RunID, &e.Stage, &e.Scanner, &e.Message, &e.DetailsJSON, &created); err != nil {
			return nil, err
		}
		e.CreatedAt = created
		out = append(out, &e)
	}
	return out, rows.Err()
}
