package grype

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/imagegate/internal/domain/findings"
)

const sampleReport = `{
  "matches": [
    {
      "vulnerability": {
        "id": "CVE-2024-5535",
        "dataSource": "https://nvd.nist.gov/vuln/detail/CVE-2024-5535",
        "severity": "Critical",
        "description": "openssl: SSL_select_next_proto buffer overread",
        "fix": {
          "versions": ["3.3.1-r0"],
          "state": "fixed"
        }
      },
      "artifact": {
        "name": "libcrypto3",
        "version": "3.3.0-r2",
        "type": "apk"
      }
    },
    {
      "vulnerability": {
        "id": "CVE-2024-4741",
        "severity": "Negligible",
        "fix": {
          "versions": [],
          "state": "not-fixed"
        }
      },
      "artifact": {
        "name": "libssl3",
        "version": "3.3.0-r2",
        "type": "apk"
      }
    }
  ]
}`

func TestNormalize(t *testing.T) {
	var rep Report
	require.NoError(t, json.Unmarshal([]byte(sampleReport), &rep))

	out := normalize(rep, nil)
	require.Len(t, out, 2)

	first := out[0]
	assert.Equal(t, "libcrypto3", first.Package)
	assert.Equal(t, "CVE-2024-5535", first.VulnerabilityID)
	assert.Equal(t, findings.SeverityCritical, first.Severity)
	assert.Equal(t, "3.3.1-r0", first.FixedIn)
	assert.Equal(t, Name, first.Scanner)

	// grype's negligible maps onto the shared low tier
	second := out[1]
	assert.Equal(t, findings.SeverityLow, second.Severity)
	// fix state not-fixed never yields a fix version
	assert.Empty(t, second.FixedIn)
}

func TestNormalizeSeverityMapOverride(t *testing.T) {
	var rep Report
	require.NoError(t, json.Unmarshal([]byte(sampleReport), &rep))

	out := normalize(rep, findings.SeverityMap{"negligible": findings.SeverityUnknown})
	require.Len(t, out, 2)
	assert.Equal(t, findings.SeverityUnknown, out[1].Severity)
}

func TestParseArtifactRemovesFileOnFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grype-bad.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	_, err := parseArtifact(path)
	require.Error(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "broken artifact must be removed")
}
