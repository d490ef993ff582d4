package grype

import "github.com/bryanwahyu/imagegate/internal/domain/findings"

// Report mirrors grype's JSON match output
type Report struct {
	Matches []Match `json:"matches"`
}

type Match struct {
	Vulnerability Vulnerability `json:"vulnerability"`
	Artifact      Artifact      `json:"artifact"`
}

type Vulnerability struct {
	ID          string `json:"id"`
	DataSource  string `json:"dataSource"`
	// Critical / High / Medium / Low / Negligible / Unknown
	Severity    string `json:"severity"`
	Description string `json:"description"`
	Fix         Fix    `json:"fix"`
}

type Fix struct {
	Versions []string `json:"versions"`
	State    string   `json:"state"`
}

type Artifact struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Type    string `json:"type"`
}

// normalize flattens grype matches into the shared finding schema
func normalize(rep Report, sevMap findings.SeverityMap) []findings.Finding {
	var out []findings.Finding
	for _, m := range rep.Matches {
		f := findings.Finding{
			Package:          m.Artifact.Name,
			InstalledVersion: m.Artifact.Version,
			VulnerabilityID:  m.Vulnerability.ID,
			Severity:         sevMap.Resolve(m.Vulnerability.Severity),
			Title:            m.Vulnerability.Description,
			Scanner:          Name,
		}
		if m.Vulnerability.Fix.State == "fixed" && len(m.Vulnerability.Fix.Versions) > 0 {
			f.FixedIn = m.Vulnerability.Fix.Versions[0]
		}
		out = append(out, f)
	}
	return out
}
