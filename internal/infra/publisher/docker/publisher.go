package docker

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/bryanwahyu/imagegate/internal/domain/images"
	"github.com/bryanwahyu/imagegate/internal/domain/pipeline"
)

// Publisher tags and pushes a locally built image. Before pushing it
// re-resolves the local digest and refuses to push anything other than the
// digest the verdict was issued for.
type Publisher struct {
	Signer Signer // optional

	// resolveDigest looks up the current local digest for a reference,
	// swappable in tests
	resolveDigest func(ctx context.Context, ref string) (string, error)
}

// Signer signs a pushed reference
type Signer interface {
	Sign(ctx context.Context, ref string) error
}

func NewPublisher(signer Signer) *Publisher {
	return &Publisher{Signer: signer, resolveDigest: localDigest}
}

func (p *Publisher) Publish(ctx context.Context, req images.PublishRequest) (images.PublishResult, error) {
	start := time.Now()

	if err := images.ValidateRef(req.DestinationRef); err != nil {
		return images.PublishResult{}, err
	}
	if err := images.ValidateDigest(req.Digest); err != nil {
		return images.PublishResult{}, err
	}

	// digest pinning: the local image must still be the one that was scanned
	resolve := p.resolveDigest
	if resolve == nil {
		resolve = localDigest
	}
	actual, err := resolve(ctx, req.SourceRef)
	if err != nil {
		return images.PublishResult{}, err
	}
	if actual != req.Digest {
		return images.PublishResult{}, &pipeline.DigestMismatchError{Expected: req.Digest, Actual: actual}
	}

	if out, err := exec.CommandContext(ctx, "docker", "tag", req.SourceRef, req.DestinationRef).CombinedOutput(); err != nil {
		return images.PublishResult{}, fmt.Errorf("docker tag: %v, output=%s", err, string(out))
	}
	if out, err := exec.CommandContext(ctx, "docker", "push", req.DestinationRef).CombinedOutput(); err != nil {
		return images.PublishResult{}, fmt.Errorf("docker push: %v, output=%s", err, string(out))
	}

	res := images.PublishResult{
		PushedRef:  req.DestinationRef,
		Digest:     req.Digest,
		DurationMS: time.Since(start).Milliseconds(),
	}

	if req.Sign {
		if p.Signer == nil {
			return res, fmt.Errorf("signing requested but no signer configured")
		}
		if err := p.Signer.Sign(ctx, req.DestinationRef); err != nil {
			return res, fmt.Errorf("sign %s: %w", req.DestinationRef, err)
		}
		res.Signed = true
	}
	return res, nil
}

func localDigest(ctx context.Context, ref string) (string, error) {
	cmd := exec.CommandContext(ctx, "docker", "image", "inspect", "--format", "{{.Id}}", ref)
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("docker inspect %s: %w", ref, err)
	}
	return strings.TrimSpace(string(out)), nil
}
