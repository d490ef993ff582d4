package images

import (
	"fmt"
	"regexp"
	"strings"
)

// BuildResult describes a completed local image build
type BuildResult struct {
	Ref        string `json:"ref"`
	Digest     string `json:"digest"`
	ExitCode   int    `json:"exit_code"`
	DurationMS int64  `json:"duration_ms"`
}

// PublishRequest asks for a scanned digest to be pushed to its destination.
// Digest is the digest bound to the passing verdict; the publisher re-verifies
// the local image still resolves to it before pushing.
type PublishRequest struct {
	SourceRef      string `json:"source_ref"`
	Digest         string `json:"digest"`
	DestinationRef string `json:"destination_ref"`
	Sign           bool   `json:"sign"`
}

// PublishResult reports a completed push
type PublishResult struct {
	PushedRef  string `json:"pushed_ref"`
	Digest     string `json:"digest"`
	Signed     bool   `json:"signed"`
	DurationMS int64  `json:"duration_ms"`
}

var (
	refPattern    = regexp.MustCompile(`^([a-z0-9]+([._-][a-z0-9]+)*(/[a-z0-9]+([._-][a-z0-9]+)*)*(:[a-zA-Z0-9._-]+)?(@sha256:[a-f0-9]{64})?)$`)
	digestPattern = regexp.MustCompile(`^sha256:[a-f0-9]{64}$`)
)

// ValidateRef validates an image reference [registry/]name[:tag][@digest]
func ValidateRef(ref string) error {
	if strings.TrimSpace(ref) == "" {
		return fmt.Errorf("image reference cannot be empty")
	}
	if !refPattern.MatchString(strings.ToLower(ref)) {
		return fmt.Errorf("invalid image reference: %s", ref)
	}
	return nil
}

// ValidateDigest validates a sha256 content digest
func ValidateDigest(digest string) error {
	if !digestPattern.MatchString(digest) {
		return fmt.Errorf("invalid image digest: %s", digest)
	}
	return nil
}
