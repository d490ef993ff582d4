package findings

import "time"

// Finding is one reported vulnerability instance tied to a package/version
type Finding struct {
	Package          string    `json:"package"`
	InstalledVersion string    `json:"installed_version"`
	VulnerabilityID  string    `json:"vulnerability_id"`
	Severity         Severity  `json:"severity"`
	FixedIn          string    `json:"fixed_in,omitempty"`
	Title            string    `json:"title,omitempty"`
	PublishedAt      time.Time `json:"published_at,omitempty"`
	Scanner          string    `json:"scanner,omitempty"`
}

// Key identifies a finding for dedup across scanners
func (f Finding) Key() string {
	return f.Package + "@" + f.VulnerabilityID
}

// SeverityCounts value object
type SeverityCounts struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
	Unknown  int `json:"unknown"`
	Total    int `json:"total"`
}

// Count tallies findings per severity
func Count(list []Finding) SeverityCounts {
	var c SeverityCounts
	for _, f := range list {
		switch f.Severity {
		case SeverityCritical:
			c.Critical++
		case SeverityHigh:
			c.High++
		case SeverityMedium:
			c.Medium++
		case SeverityLow:
			c.Low++
		default:
			c.Unknown++
		}
		c.Total++
	}
	return c
}
