package advice

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	domain "github.com/bryanwahyu/imagegate/internal/domain/advice"
)

// Service implements AI remediation advice use-cases. Advice is generated
// from a stored verdict after the gate has decided; it never changes a verdict.
type Service struct {
	Client domain.Client
	Repo   domain.Repository
	Clock  Clock
}

// Clock abstraction to make the service testable
type Clock interface {
	Now() time.Time
}

// AdviseAndStore asks the AI provider to summarize a failed verdict and
// persists the result for later retrieval.
func (s *Service) AdviseAndStore(ctx context.Context, tenant, runID, digest, verdictJSON string) (*domain.Advice, error) {
	if verdictJSON == "" {
		return nil, fmt.Errorf("verdict payload is required")
	}
	result, err := s.Client.Advise(ctx, verdictJSON)
	if err != nil {
		return nil, err
	}
	a := &domain.Advice{
		ID:        domain.AdviceID(uuid.New().String()),
		TenantID:  tenant,
		RunID:     runID,
		Digest:    digest,
		Result:    result,
		CreatedAt: s.Clock.Now(),
	}
	if s.Repo != nil {
		if err := s.Repo.Save(ctx, a); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// List returns stored advice for a tenant, paginated
func (s *Service) List(ctx context.Context, tenant string, page, pageSize int) ([]*domain.Advice, error) {
	if s.Repo == nil {
		return nil, fmt.Errorf("advice repository not configured")
	}
	return s.Repo.Paginate(ctx, tenant, page, pageSize)
}

// LatestByRun returns the newest advice recorded for a run
func (s *Service) LatestByRun(ctx context.Context, tenant, runID string) (*domain.Advice, error) {
	if s.Repo == nil {
		return nil, fmt.Errorf("advice repository not configured")
	}
	return s.Repo.LatestByRun(ctx, tenant, runID)
}
