package findings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeDeduplicatesByPackageAndVulnID(t *testing.T) {
	trivy := ScanReport{
		Scanner: "trivy",
		Status:  ScanSucceeded,
		Findings: []Finding{
			{Package: "openssl", VulnerabilityID: "CVE-2025-0001", Severity: SeverityHigh},
			{Package: "bash", VulnerabilityID: "CVE-2025-0002", Severity: SeverityLow},
		},
	}
	grype := ScanReport{
		Scanner: "grype",
		Status:  ScanSucceeded,
		Findings: []Finding{
			{Package: "openssl", VulnerabilityID: "CVE-2025-0001", Severity: SeverityCritical},
		},
	}

	merged := Merge([]ScanReport{trivy, grype})

	require.Len(t, merged, 2)
	assert.Equal(t, "CVE-2025-0001", merged[0].VulnerabilityID)
	// highest severity wins on conflict
	assert.Equal(t, SeverityCritical, merged[0].Severity)
}

func TestMergeKeepsFixVersion(t *testing.T) {
	withFix := ScanReport{
		Scanner: "trivy",
		Status:  ScanSucceeded,
		Findings: []Finding{
			{Package: "openssl", VulnerabilityID: "CVE-2025-0001", Severity: SeverityHigh, FixedIn: "3.0.9"},
		},
	}
	withoutFix := ScanReport{
		Scanner: "grype",
		Status:  ScanSucceeded,
		Findings: []Finding{
			{Package: "openssl", VulnerabilityID: "CVE-2025-0001", Severity: SeverityCritical},
		},
	}

	// the side with the higher severity has no fix version; the fix survives anyway
	merged := Merge([]ScanReport{withFix, withoutFix})
	require.Len(t, merged, 1)
	assert.Equal(t, SeverityCritical, merged[0].Severity)
	assert.Equal(t, "3.0.9", merged[0].FixedIn)

	// same result with the reports in the opposite order
	merged = Merge([]ScanReport{withoutFix, withFix})
	require.Len(t, merged, 1)
	assert.Equal(t, SeverityCritical, merged[0].Severity)
	assert.Equal(t, "3.0.9", merged[0].FixedIn)
}

func TestMergeSkipsIncompleteReports(t *testing.T) {
	reports := []ScanReport{
		{Scanner: "trivy", Status: ScanTimedOut, Findings: []Finding{
			{Package: "openssl", VulnerabilityID: "CVE-2025-0001", Severity: SeverityCritical},
		}},
		{Scanner: "grype", Status: ScanToolError, Findings: []Finding{
			{Package: "bash", VulnerabilityID: "CVE-2025-0002", Severity: SeverityHigh},
		}},
	}

	assert.Empty(t, Merge(reports))
}

func TestMergeOrderIsDeterministic(t *testing.T) {
	a := ScanReport{Scanner: "trivy", Status: ScanSucceeded, Findings: []Finding{
		{Package: "zlib", VulnerabilityID: "CVE-2025-0003", Severity: SeverityMedium},
		{Package: "openssl", VulnerabilityID: "CVE-2025-0001", Severity: SeverityCritical},
	}}
	b := ScanReport{Scanner: "grype", Status: ScanSucceeded, Findings: []Finding{
		{Package: "bash", VulnerabilityID: "CVE-2025-0002", Severity: SeverityMedium},
	}}

	want := Merge([]ScanReport{a, b})
	got := Merge([]ScanReport{b, a})
	assert.Equal(t, want, got)

	// severity descending, then vulnerability id
	require.Len(t, want, 3)
	assert.Equal(t, SeverityCritical, want[0].Severity)
	assert.Equal(t, "CVE-2025-0002", want[1].VulnerabilityID)
	assert.Equal(t, "CVE-2025-0003", want[2].VulnerabilityID)
}

func TestCount(t *testing.T) {
	c := Count([]Finding{
		{Severity: SeverityCritical},
		{Severity: SeverityCritical},
		{Severity: SeverityHigh},
		{Severity: SeverityLow},
		{Severity: Severity("bogus")},
	})

	assert.Equal(t, SeverityCounts{Critical: 2, High: 1, Low: 1, Unknown: 1, Total: 5}, c)
}
