package findings

import "strings"

// Severity enum, ordered from Unknown (lowest) to Critical
type Severity string

const (
	SeverityUnknown  Severity = "unknown"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severityRank = map[Severity]int{
	SeverityUnknown:  0,
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// Rank returns the ordering weight of a severity. Unrecognized values rank as unknown.
func (s Severity) Rank() int {
	return severityRank[s]
}

// AtLeast reports whether s is equal to or more severe than min
func (s Severity) AtLeast(min Severity) bool {
	return s.Rank() >= min.Rank()
}

// ParseSeverity normalizes a free-form severity label to the shared scale
func ParseSeverity(raw string) Severity {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "critical":
		return SeverityCritical
	case "high":
		return SeverityHigh
	case "medium", "moderate":
		return SeverityMedium
	case "low", "negligible":
		return SeverityLow
	default:
		return SeverityUnknown
	}
}

// SeverityMap translates one scanner's severity taxonomy to the shared scale.
// Keys are the scanner's own labels, lowercased. Labels without an entry fall
// back to ParseSeverity.
type SeverityMap map[string]Severity

// Resolve maps a scanner-native label through the table
func (m SeverityMap) Resolve(raw string) Severity {
	if m != nil {
		if s, ok := m[strings.ToLower(strings.TrimSpace(raw))]; ok {
			return s
		}
	}
	return ParseSeverity(raw)
}

// Normalized returns a copy with lowercased keys and canonical severity
// values, so a config entry like "Critical: High" still matches at Resolve
// time. Call it once when the map is loaded.
func (m SeverityMap) Normalized() SeverityMap {
	if len(m) == 0 {
		return m
	}
	out := make(SeverityMap, len(m))
	for k, v := range m {
		out[strings.ToLower(strings.TrimSpace(k))] = ParseSeverity(string(v))
	}
	return out
}
