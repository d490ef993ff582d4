package trivy

import (
	"time"

	"github.com/bryanwahyu/imagegate/internal/domain/findings"
)

// Report mirrors the fields of trivy's JSON output the gate cares about
type Report struct {
	Results []Result `json:"Results"`
}

type Result struct {
	Target          string          `json:"Target"`
	Vulnerabilities []Vulnerability `json:"Vulnerabilities"`
}

type Vulnerability struct {
	VulnerabilityID  string     `json:"VulnerabilityID"`
	PkgName          string     `json:"PkgName"`
	InstalledVersion string     `json:"InstalledVersion"`
	FixedVersion     string     `json:"FixedVersion"`
	Title            string     `json:"Title"`
	// CRITICAL / HIGH / MEDIUM / LOW / UNKNOWN
	Severity         string     `json:"Severity"`
	PublishedDate    *time.Time `json:"PublishedDate"`
}

// normalize flattens a trivy report into the shared finding schema
func normalize(rep Report, sevMap findings.SeverityMap) []findings.Finding {
	var out []findings.Finding
	for _, res := range rep.Results {
		for _, v := range res.Vulnerabilities {
			f := findings.Finding{
				Package:          v.PkgName,
				InstalledVersion: v.InstalledVersion,
				VulnerabilityID:  v.VulnerabilityID,
				Severity:         sevMap.Resolve(v.Severity),
				FixedIn:          v.FixedVersion,
				Title:            v.Title,
				Scanner:          Name,
			}
			if v.PublishedDate != nil {
				f.PublishedAt = *v.PublishedDate
			}
			out = append(out, f)
		}
	}
	return out
}
