package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePolicy = `
rules:
  - name: accepted-risk
    action: ignore
    match:
      vuln_ids: [CVE-2025-0001]
  - name: block-high
    action: fail
    match:
      min_severity: high
  - name: warn-stale
    action: warn
    match:
      min_severity: low
      max_age_days: 90
on_scanner_error: fail
scanner_overrides:
  grype: warn
`

func writePolicy(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	rs, err := Load(writePolicy(t, samplePolicy))
	require.NoError(t, err)

	require.Len(t, rs.Rules, 3)
	assert.Equal(t, "accepted-risk", rs.Rules[0].Name)
	assert.Equal(t, ActionIgnore, rs.Rules[0].Action)
	assert.Equal(t, []string{"CVE-2025-0001"}, rs.Rules[0].Match.VulnIDs)
	assert.Equal(t, "high", rs.Rules[1].Match.MinSeverity)
	assert.Equal(t, 90, rs.Rules[2].Match.MaxAgeDays)
	assert.Equal(t, ActionFail, rs.OnScannerError)
	assert.Equal(t, ActionWarn, rs.ScannerOverrides["grype"])
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalidSet(t *testing.T) {
	cases := []struct {
		name   string
		policy string
	}{
		{"bad action", "rules:\n  - name: r\n    action: block\n    match: {min_severity: high}\n"},
		{"bad severity", "rules:\n  - name: r\n    action: fail\n    match: {min_severity: severe}\n"},
		{"empty match", "rules:\n  - name: r\n    action: fail\n    match: {}\n"},
		{"missing name", "rules:\n  - action: fail\n    match: {min_severity: high}\n"},
		{"bad override", "scanner_overrides: {trivy: nope}\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writePolicy(t, tc.policy))
			assert.Error(t, err)
		})
	}
}

func TestScannerErrorActionDefaultsToFail(t *testing.T) {
	var rs RuleSet
	assert.Equal(t, ActionFail, rs.scannerErrorAction("trivy"))

	rs.OnScannerError = ActionWarn
	assert.Equal(t, ActionWarn, rs.scannerErrorAction("trivy"))

	rs.ScannerOverrides = map[string]Action{"trivy": ActionIgnore}
	assert.Equal(t, ActionIgnore, rs.scannerErrorAction("trivy"))
	assert.Equal(t, ActionWarn, rs.scannerErrorAction("grype"))
}
