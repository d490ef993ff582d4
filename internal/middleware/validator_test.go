package middleware

import (
	"strings"
	"testing"
)

func TestValidateScanner(t *testing.T) {
	for _, name := range []string{"trivy", "grype", "Trivy"} {
		if err := ValidateScanner(name); err != nil {
			t.Errorf("ValidateScanner(%q) = %v, want nil", name, err)
		}
	}
	for _, name := range []string{"", "snyk", "trivy; rm -rf /"} {
		if err := ValidateScanner(name); err == nil {
			t.Errorf("ValidateScanner(%q) = nil, want error", name)
		}
	}
}

func TestValidateImageRef(t *testing.T) {
	valid := []string{
		"alpine:3.20",
		"registry.example.com/team/app:v1.2.3",
		"app@sha256:4b825dc642cb6eb9a060e54bf8d69288fbee4904f745a4bcf4c0916cf10e8a97",
	}
	for _, ref := range valid {
		if err := ValidateImageRef(ref); err != nil {
			t.Errorf("ValidateImageRef(%q) = %v, want nil", ref, err)
		}
	}

	invalid := []string{
		"",
		"app$(whoami)",
		"app`id`",
		"app;ls",
		"app|cat",
	}
	for _, ref := range invalid {
		if err := ValidateImageRef(ref); err == nil {
			t.Errorf("ValidateImageRef(%q) = nil, want error", ref)
		}
	}
}

func TestValidateContextPath(t *testing.T) {
	for _, p := range []string{".", "./build", "services/api"} {
		if err := ValidateContextPath(p); err != nil {
			t.Errorf("ValidateContextPath(%q) = %v, want nil", p, err)
		}
	}
	for _, p := range []string{"", "../secrets", "/etc/passwd", "/proc/self", "build;ls", "build$(id)"} {
		if err := ValidateContextPath(p); err == nil {
			t.Errorf("ValidateContextPath(%q) = nil, want error", p)
		}
	}
}

func TestValidateTenantID(t *testing.T) {
	for _, tn := range []string{"acme", "team_1", "a-b-c"} {
		if err := ValidateTenantID(tn); err != nil {
			t.Errorf("ValidateTenantID(%q) = %v, want nil", tn, err)
		}
	}
	for _, tn := range []string{"", "acme corp", "tenant/evil", strings.Repeat("a", 65)} {
		if err := ValidateTenantID(tn); err == nil {
			t.Errorf("ValidateTenantID(%q) = nil, want error", tn)
		}
	}
}

func TestValidateRunID(t *testing.T) {
	good := "0bd61ac4-9d6e-4a41-8fe3-7c9e08d9a001-gate"
	if err := ValidateRunID(good); err != nil {
		t.Fatalf("ValidateRunID: %v", err)
	}
	for _, id := range []string{"", "not-a-uuid", "0bd61ac4-9d6e-4a41-8fe3-7c9e08d9a001"} {
		if err := ValidateRunID(id); err == nil {
			t.Errorf("ValidateRunID(%q) = nil, want error", id)
		}
	}
}

func TestValidateLimitAndDays(t *testing.T) {
	if got := ValidateLimit(0); got != 20 {
		t.Errorf("ValidateLimit(0) = %d, want 20", got)
	}
	if got := ValidateLimit(500); got != 100 {
		t.Errorf("ValidateLimit(500) = %d, want 100", got)
	}
	if got := ValidateLimit(35); got != 35 {
		t.Errorf("ValidateLimit(35) = %d, want 35", got)
	}
	if got := ValidateDays(0); got != 7 {
		t.Errorf("ValidateDays(0) = %d, want 7", got)
	}
	if got := ValidateDays(1000); got != 365 {
		t.Errorf("ValidateDays(1000) = %d, want 365", got)
	}
}
