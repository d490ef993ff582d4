package docker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/imagegate/internal/domain/images"
	"github.com/bryanwahyu/imagegate/internal/domain/pipeline"
)

const (
	scannedDigest = "sha256:4b825dc642cb6eb9a060e54bf8d69288fbee4904f745a4bcf4c0916cf10e8a97"
	driftedDigest = "sha256:aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
)

func stubResolver(digest string, err error) func(context.Context, string) (string, error) {
	return func(context.Context, string) (string, error) { return digest, err }
}

func TestPublishRefusesDriftedDigest(t *testing.T) {
	// the local tag was rebuilt after the scan; its digest no longer matches
	// the one the verdict was issued for
	p := &Publisher{resolveDigest: stubResolver(driftedDigest, nil)}

	_, err := p.Publish(context.Background(), images.PublishRequest{
		SourceRef:      "app:test",
		Digest:         scannedDigest,
		DestinationRef: "registry.example.com/acme/app:test",
	})

	require.Error(t, err)
	var mismatch *pipeline.DigestMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, scannedDigest, mismatch.Expected)
	assert.Equal(t, driftedDigest, mismatch.Actual)
}

func TestPublishDigestLookupFailure(t *testing.T) {
	p := &Publisher{resolveDigest: stubResolver("", errors.New("no such image"))}

	_, err := p.Publish(context.Background(), images.PublishRequest{
		SourceRef:      "app:test",
		Digest:         scannedDigest,
		DestinationRef: "registry.example.com/acme/app:test",
	})

	assert.Error(t, err)
}

func TestPublishValidatesInputs(t *testing.T) {
	p := &Publisher{resolveDigest: stubResolver(scannedDigest, nil)}

	_, err := p.Publish(context.Background(), images.PublishRequest{
		SourceRef:      "app:test",
		Digest:         scannedDigest,
		DestinationRef: "",
	})
	assert.Error(t, err)

	_, err = p.Publish(context.Background(), images.PublishRequest{
		SourceRef:      "app:test",
		Digest:         "not-a-digest",
		DestinationRef: "registry.example.com/acme/app:test",
	})
	assert.Error(t, err)
}
