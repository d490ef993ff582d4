package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/imagegate/internal/domain/findings"
)

const testDigest = "sha256:4b825dc642cb6eb9a060e54bf8d69288fbee4904f745a4bcf4c0916cf10e8a97"

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func cleanReport(scanner string, fs ...findings.Finding) findings.ScanReport {
	return findings.ScanReport{
		Scanner:  scanner,
		Digest:   testDigest,
		Findings: fs,
		Status:   findings.ScanSucceeded,
	}
}

func finding(pkg, id string, sev findings.Severity) findings.Finding {
	return findings.Finding{
		Package:          pkg,
		InstalledVersion: "1.0.0",
		VulnerabilityID:  id,
		Severity:         sev,
	}
}

func TestEvaluateNoFindingsPasses(t *testing.T) {
	reports := []findings.ScanReport{cleanReport("trivy"), cleanReport("grype")}

	v := Evaluate(testDigest, reports, RuleSet{}, now)

	assert.True(t, v.Pass)
	assert.Empty(t, v.Reasons)
	assert.Equal(t, testDigest, v.Digest)
	assert.Equal(t, 0, v.Counts.Total)
}

func TestEvaluateSeverityThreshold(t *testing.T) {
	rs := RuleSet{Rules: []Rule{
		{Name: "block-high", Action: ActionFail, Match: Match{MinSeverity: "high"}},
	}}

	critical := finding("openssl", "CVE-2025-0001", findings.SeverityCritical)
	reports := []findings.ScanReport{cleanReport("trivy", critical)}

	v := Evaluate(testDigest, reports, rs, now)

	require.False(t, v.Pass)
	require.Len(t, v.Reasons, 1)
	assert.Equal(t, "block-high", v.Reasons[0].Rule)
	require.Len(t, v.Reasons[0].Findings, 1)
	assert.Equal(t, "CVE-2025-0001", v.Reasons[0].Findings[0].VulnerabilityID)
}

func TestEvaluateBelowThresholdPasses(t *testing.T) {
	rs := RuleSet{Rules: []Rule{
		{Name: "block-high", Action: ActionFail, Match: Match{MinSeverity: "high"}},
	}}

	medium := finding("bash", "CVE-2025-0002", findings.SeverityMedium)
	v := Evaluate(testDigest, []findings.ScanReport{cleanReport("trivy", medium)}, rs, now)

	assert.True(t, v.Pass)
	assert.Empty(t, v.Reasons)
	assert.Equal(t, 1, v.Counts.Medium)
}

func TestEvaluateCollectsAllReasons(t *testing.T) {
	rs := RuleSet{Rules: []Rule{
		{Name: "block-critical", Action: ActionFail, Match: Match{MinSeverity: "critical"}},
		{Name: "block-cve", Action: ActionFail, Match: Match{VulnIDs: []string{"CVE-2025-0002"}}},
	}}

	reports := []findings.ScanReport{cleanReport("trivy",
		finding("openssl", "CVE-2025-0001", findings.SeverityCritical),
		finding("bash", "CVE-2025-0002", findings.SeverityLow),
	)}

	v := Evaluate(testDigest, reports, rs, now)

	require.False(t, v.Pass)
	// first matching fail rule flips the verdict but evaluation continues
	require.Len(t, v.Reasons, 2)
	assert.Equal(t, "block-critical", v.Reasons[0].Rule)
	assert.Equal(t, "block-cve", v.Reasons[1].Rule)
}

func TestEvaluateIgnoreRuleConsumesFindings(t *testing.T) {
	rs := RuleSet{Rules: []Rule{
		{Name: "accepted-risk", Action: ActionIgnore, Match: Match{VulnIDs: []string{"CVE-2025-0001"}}},
		{Name: "block-high", Action: ActionFail, Match: Match{MinSeverity: "high"}},
	}}

	reports := []findings.ScanReport{cleanReport("trivy",
		finding("openssl", "CVE-2025-0001", findings.SeverityCritical),
	)}

	v := Evaluate(testDigest, reports, rs, now)

	assert.True(t, v.Pass)
	assert.Empty(t, v.Findings) // consumed by the ignore rule
}

func TestEvaluateRuleOrderMatters(t *testing.T) {
	// same rules, ignore declared after fail: the fail rule sees the finding
	rs := RuleSet{Rules: []Rule{
		{Name: "block-high", Action: ActionFail, Match: Match{MinSeverity: "high"}},
		{Name: "accepted-risk", Action: ActionIgnore, Match: Match{VulnIDs: []string{"CVE-2025-0001"}}},
	}}

	reports := []findings.ScanReport{cleanReport("trivy",
		finding("openssl", "CVE-2025-0001", findings.SeverityCritical),
	)}

	v := Evaluate(testDigest, reports, rs, now)

	assert.False(t, v.Pass)
}

func TestEvaluateWarnRule(t *testing.T) {
	rs := RuleSet{Rules: []Rule{
		{Name: "warn-medium", Action: ActionWarn, Match: Match{MinSeverity: "medium"}},
	}}

	reports := []findings.ScanReport{cleanReport("trivy",
		finding("bash", "CVE-2025-0002", findings.SeverityMedium),
	)}

	v := Evaluate(testDigest, reports, rs, now)

	assert.True(t, v.Pass)
	require.Len(t, v.Reasons, 1)
	assert.Equal(t, ActionWarn, v.Reasons[0].Action)
}

func TestEvaluateScannerTimeoutFailsClosed(t *testing.T) {
	reports := []findings.ScanReport{
		cleanReport("trivy"),
		{Scanner: "grype", Digest: testDigest, Status: findings.ScanTimedOut},
	}

	v := Evaluate(testDigest, reports, RuleSet{}, now)

	require.False(t, v.Pass)
	require.Len(t, v.Reasons, 1)
	assert.Equal(t, "scanner-state", v.Reasons[0].Rule)
	assert.Contains(t, v.Reasons[0].Message, "timeout, fail-closed")
}

func TestEvaluateScannerErrorWarnOverride(t *testing.T) {
	rs := RuleSet{OnScannerError: ActionWarn}
	reports := []findings.ScanReport{
		cleanReport("trivy"),
		{Scanner: "grype", Digest: testDigest, Status: findings.ScanToolError, Error: "registry unreachable"},
	}

	v := Evaluate(testDigest, reports, rs, now)

	assert.True(t, v.Pass)
	require.Len(t, v.Reasons, 1)
	assert.Equal(t, ActionWarn, v.Reasons[0].Action)
}

func TestEvaluatePerScannerOverride(t *testing.T) {
	rs := RuleSet{ScannerOverrides: map[string]Action{"grype": ActionIgnore}}
	reports := []findings.ScanReport{
		cleanReport("trivy"),
		{Scanner: "grype", Digest: testDigest, Status: findings.ScanToolError},
	}

	v := Evaluate(testDigest, reports, rs, now)

	assert.True(t, v.Pass)
	assert.Empty(t, v.Reasons)
}

func TestEvaluateUnfixedOnly(t *testing.T) {
	rs := RuleSet{Rules: []Rule{
		{Name: "block-unfixed", Action: ActionFail, Match: Match{MinSeverity: "high", UnfixedOnly: true}},
	}}

	fixed := finding("openssl", "CVE-2025-0001", findings.SeverityHigh)
	fixed.FixedIn = "1.0.1"
	unfixed := finding("zlib", "CVE-2025-0003", findings.SeverityHigh)

	v := Evaluate(testDigest, []findings.ScanReport{cleanReport("trivy", fixed, unfixed)}, rs, now)

	require.False(t, v.Pass)
	require.Len(t, v.Reasons, 1)
	require.Len(t, v.Reasons[0].Findings, 1)
	assert.Equal(t, "CVE-2025-0003", v.Reasons[0].Findings[0].VulnerabilityID)
}

func TestEvaluateMaxAge(t *testing.T) {
	rs := RuleSet{Rules: []Rule{
		{Name: "block-stale", Action: ActionFail, Match: Match{MinSeverity: "low", MaxAgeDays: 30}},
	}}

	old := finding("openssl", "CVE-2024-9999", findings.SeverityHigh)
	old.PublishedAt = now.AddDate(0, 0, -90)
	fresh := finding("bash", "CVE-2025-0002", findings.SeverityHigh)
	fresh.PublishedAt = now.AddDate(0, 0, -5)
	undated := finding("zlib", "CVE-2025-0003", findings.SeverityHigh)

	v := Evaluate(testDigest, []findings.ScanReport{cleanReport("trivy", old, fresh, undated)}, rs, now)

	require.False(t, v.Pass)
	require.Len(t, v.Reasons, 1)
	require.Len(t, v.Reasons[0].Findings, 1)
	assert.Equal(t, "CVE-2024-9999", v.Reasons[0].Findings[0].VulnerabilityID)
}

func TestEvaluateIsDeterministic(t *testing.T) {
	rs := RuleSet{Rules: []Rule{
		{Name: "block-high", Action: ActionFail, Match: Match{MinSeverity: "high"}},
		{Name: "warn-medium", Action: ActionWarn, Match: Match{MinSeverity: "medium"}},
	}}
	reports := []findings.ScanReport{
		cleanReport("trivy",
			finding("openssl", "CVE-2025-0001", findings.SeverityCritical),
			finding("bash", "CVE-2025-0002", findings.SeverityMedium),
		),
		cleanReport("grype",
			finding("openssl", "CVE-2025-0001", findings.SeverityHigh),
		),
	}

	first := Evaluate(testDigest, reports, rs, now)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Evaluate(testDigest, reports, rs, now))
	}
}
