package pipeline

import "time"

// Event is a persisted per-stage record for a run, used to reproduce a gate
// decision without re-running the pipeline.
type Event struct {
	ID          int64     `json:"id"`
	TenantID    string    `json:"tenant_id"`
	RunID       string    `json:"run_id"`
	Stage       string    `json:"stage,omitempty"` // build | scan | evaluate | publish
	Scanner     string    `json:"scanner,omitempty"`
	Message     string    `json:"message"`
	DetailsJSON string    `json:"details_json,omitempty"` // raw JSON string
	CreatedAt   time.Time `json:"created_at"`
}
