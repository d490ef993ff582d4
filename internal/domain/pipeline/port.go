package pipeline

import "context"

// Repository port (interface for run persistence)
type Repository interface {
	Save(ctx context.Context, r *Run) error
	Get(ctx context.Context, tenant string, id RunID) (*Run, error)
	Latest(ctx context.Context, tenant string, limit int) ([]*Run, error)
	Summary(ctx context.Context, tenant string, sinceDays int) (Summary, error)
}

// Summary aggregates run outcomes over a window
type Summary struct {
	TotalRuns int `json:"total_runs"`
	Passed    int `json:"passed"`
	Failed    int `json:"failed"`
	Critical  int `json:"critical"`
	High      int `json:"high"`
}

// EventRepository port (interface for per-stage event persistence)
type EventRepository interface {
	Save(ctx context.Context, e *Event) error
	ListByRun(ctx context.Context, tenant string, runID string, limit int) ([]*Event, error)
}

// ArtifactStore port (interface for raw report storage)
type ArtifactStore interface {
	Upload(ctx context.Context, localPath, key string) (string, error)
	UploadAndCleanup(ctx context.Context, localPath, key string) (string, error)
	UploadBytes(ctx context.Context, data []byte, key, contentType string) (string, error)
}
