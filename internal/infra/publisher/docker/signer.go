package docker

import (
	"context"
	"fmt"
	"os/exec"
)

// CosignSigner signs pushed references with the cosign CLI
type CosignSigner struct {
	KeyPath string
}

func NewCosignSigner(keyPath string) *CosignSigner {
	return &CosignSigner{KeyPath: keyPath}
}

func (s *CosignSigner) Sign(ctx context.Context, ref string) error {
	args := []string{"sign", "--yes"}
	if s.KeyPath != "" {
		args = append(args, "--key", s.KeyPath)
	}
	args = append(args, ref)

	out, err := exec.CommandContext(ctx, "cosign", args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("cosign sign: %v, output=%s", err, string(out))
	}
	return nil
}
