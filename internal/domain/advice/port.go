package advice

import "context"

// Client port for the AI provider
type Client interface {
	Advise(ctx context.Context, verdictJSON string) (string, error)
}

// Repository port for persisting and querying advice
type Repository interface {
	Save(ctx context.Context, a *Advice) error
	Paginate(ctx context.Context, tenant string, page, pageSize int) ([]*Advice, error)
	LatestByRun(ctx context.Context, tenant string, runID string) (*Advice, error)
}
