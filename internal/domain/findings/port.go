package findings

import "context"

// Scanner port (interface for one vulnerability scanner). One implementation
// per tool; the pipeline never branches on tool identity.
type Scanner interface {
	Name() string
	Scan(ctx context.Context, image, digest string) (ScanReport, error)
}
