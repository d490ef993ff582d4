package gate

import (
	"context"
	"fmt"

	"github.com/bryanwahyu/imagegate/internal/domain/pipeline"
)

// RunUntilDone executes the pipeline with context.Background(), meant to be
// called from a goroutine in the router so it survives the request lifetime.
func (s *Service) RunUntilDone(cmd RunCommand) (RunResult, error) {
	return s.Run(context.Background(), cmd)
}

// Latest returns the last N runs for a tenant
func (s *Service) Latest(ctx context.Context, tenant string, limit int) ([]*pipeline.Run, error) {
	if s.Repo == nil {
		return nil, fmt.Errorf("run repository not configured")
	}
	return s.Repo.Latest(ctx, tenant, limit)
}

// Get returns one run by id
func (s *Service) Get(ctx context.Context, tenant string, id pipeline.RunID) (*pipeline.Run, error) {
	if s.Repo == nil {
		return nil, fmt.Errorf("run repository not configured")
	}
	return s.Repo.Get(ctx, tenant, id)
}

// Summary aggregates run outcomes over the last N days
func (s *Service) Summary(ctx context.Context, tenant string, sinceDays int) (pipeline.Summary, error) {
	if s.Repo == nil {
		return pipeline.Summary{}, fmt.Errorf("run repository not configured")
	}
	return s.Repo.Summary(ctx, tenant, sinceDays)
}

// RunEvents lists the per-stage events recorded for a run
func (s *Service) RunEvents(ctx context.Context, tenant, runID string, limit int) ([]*pipeline.Event, error) {
	if s.Events == nil {
		return nil, fmt.Errorf("event repository not configured")
	}
	return s.Events.ListByRun(ctx, tenant, runID, limit)
}
