package findings

import (
	"sort"
	"time"
)

// ScanStatus enum
type ScanStatus string

const (
	ScanSucceeded ScanStatus = "succeeded"
	ScanTimedOut  ScanStatus = "timed-out"
	ScanToolError ScanStatus = "tool-error"
)

// ScanReport is one scanner's normalized result for a single image digest
type ScanReport struct {
	Scanner    string     `json:"scanner"`
	Image      string     `json:"image"`
	Digest     string     `json:"digest"`
	ScannedAt  time.Time  `json:"scanned_at"`
	Findings   []Finding  `json:"findings"`
	Status     ScanStatus `json:"status"`
	Error      string     `json:"error,omitempty"`
	DurationMS int64      `json:"duration_ms"`

	// RawPath is the local path of the tool's raw output, set by connectors
	// so the raw artifact can be archived. Not part of the wire format.
	RawPath string `json:"-"`
}

// Clean reports whether the scan ran to completion
func (r ScanReport) Clean() bool {
	return r.Status == ScanSucceeded
}

// Merge unions findings across reports, deduplicated by (package, vulnerability id).
// On conflict the highest severity wins, and a non-empty fix version is kept.
// Timed-out and tool-error reports contribute zero findings. Output is sorted
// by severity descending, then vulnerability id, then package, so merged
// results are deterministic regardless of scanner completion order.
func Merge(reports []ScanReport) []Finding {
	byKey := make(map[string]Finding)
	for _, rep := range reports {
		if !rep.Clean() {
			continue
		}
		for _, f := range rep.Findings {
			prev, seen := byKey[f.Key()]
			if !seen {
				byKey[f.Key()] = f
				continue
			}
			if f.Severity.Rank() > prev.Severity.Rank() {
				// keep the fix version from whichever side has one
				if f.FixedIn == "" {
					f.FixedIn = prev.FixedIn
				}
				byKey[f.Key()] = f
			} else if prev.FixedIn == "" && f.FixedIn != "" {
				prev.FixedIn = f.FixedIn
				byKey[f.Key()] = prev
			}
		}
	}

	out := make([]Finding, 0, len(byKey))
	for _, f := range byKey {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Severity.Rank() != out[j].Severity.Rank() {
			return out[i].Severity.Rank() > out[j].Severity.Rank()
		}
		if out[i].VulnerabilityID != out[j].VulnerabilityID {
			return out[i].VulnerabilityID < out[j].VulnerabilityID
		}
		return out[i].Package < out[j].Package
	})
	return out
}
