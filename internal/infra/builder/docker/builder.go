package docker

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/bryanwahyu/imagegate/internal/domain/images"
)

// Builder drives the docker CLI to turn a build context into a local image
// and pins the resulting content digest.
type Builder struct{}

func NewBuilder() *Builder { return &Builder{} }

func (b *Builder) Build(ctx context.Context, contextPath, tag string) (images.BuildResult, error) {
	start := time.Now()

	info, err := os.Stat(contextPath)
	if err != nil {
		return images.BuildResult{}, fmt.Errorf("build context %s: %w", contextPath, err)
	}
	if !info.IsDir() {
		return images.BuildResult{}, fmt.Errorf("build context %s is not a directory", contextPath)
	}
	if _, err := os.Stat(filepath.Join(contextPath, "Dockerfile")); err != nil {
		return images.BuildResult{}, fmt.Errorf("build context %s has no Dockerfile: %w", contextPath, err)
	}

	cmd := exec.CommandContext(ctx, "docker", "build", "-t", tag, contextPath)
	out, err := cmd.CombinedOutput()
	duration := time.Since(start).Milliseconds()
	if err != nil {
		exitCode := -1
		if ee, ok := err.(*exec.ExitError); ok {
			exitCode = ee.ExitCode()
		}
		return images.BuildResult{ExitCode: exitCode, DurationMS: duration},
			fmt.Errorf("docker build exited %d: %s", exitCode, tail(out, 2048))
	}

	digest, err := b.Inspect(ctx, tag)
	if err != nil {
		return images.BuildResult{}, err
	}

	return images.BuildResult{
		Ref:        tag,
		Digest:     digest,
		ExitCode:   0,
		DurationMS: duration,
	}, nil
}

// Inspect resolves a local image reference to its content digest. The same
// lookup is used by the publisher to re-verify the digest before pushing.
func (b *Builder) Inspect(ctx context.Context, ref string) (string, error) {
	cmd := exec.CommandContext(ctx, "docker", "image", "inspect", "--format", "{{.Id}}", ref)
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("docker inspect %s: %w", ref, err)
	}
	digest := strings.TrimSpace(string(out))
	if err := images.ValidateDigest(digest); err != nil {
		return "", fmt.Errorf("docker inspect %s returned %q: %w", ref, digest, err)
	}
	return digest, nil
}

// tail keeps the end of tool output for error messages
func tail(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
