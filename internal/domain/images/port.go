package images

import "context"

// Builder port (interface for the external image builder)
type Builder interface {
	Build(ctx context.Context, contextPath, tag string) (BuildResult, error)
}

// Publisher port (interface for registry push + optional signing)
type Publisher interface {
	Publish(ctx context.Context, req PublishRequest) (PublishResult, error)
}
