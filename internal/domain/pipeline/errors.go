package pipeline

import "fmt"

// TransitionError reports an illegal state change
type TransitionError struct {
	From State
	To   State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal pipeline transition %s -> %s", e.From, e.To)
}

// BuildError is fatal: build failures are deterministic given the context,
// so the pipeline never retries them past the configured attempt budget.
type BuildError struct {
	ContextPath string
	Tag         string
	Err         error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build failed for %s (context %s): %v", e.Tag, e.ContextPath, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// ScannerUnavailableError marks a scanner that could not produce a report
// after retries. It degrades to a tool-error scan report rather than aborting
// the pipeline.
type ScannerUnavailableError struct {
	Scanner string
	Digest  string
	Err     error
}

func (e *ScannerUnavailableError) Error() string {
	return fmt.Sprintf("scanner %s unavailable for %s: %v", e.Scanner, e.Digest, e.Err)
}

func (e *ScannerUnavailableError) Unwrap() error { return e.Err }

// PublishError is fatal and never auto-retried: a partial push must be
// surfaced, not silently repeated.
type PublishError struct {
	Destination string
	Digest      string
	Err         error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish of %s to %s failed: %v", e.Digest, e.Destination, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// DigestMismatchError means the local image changed between scan and publish
type DigestMismatchError struct {
	Expected string
	Actual   string
}

func (e *DigestMismatchError) Error() string {
	return fmt.Sprintf("digest mismatch: verdict is for %s but local image resolves to %s", e.Expected, e.Actual)
}
