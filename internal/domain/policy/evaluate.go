package policy

import (
	"fmt"
	"strings"
	"time"

	"github.com/bryanwahyu/imagegate/internal/domain/findings"
)

// Evaluate applies a rule set to the merged scan reports for one digest and
// returns the verdict. It is a pure function: no clock, no IO. The caller
// supplies now for age-based conditions.
//
// Rules run in declaration order. Findings matched by an ignore rule are
// removed before later rules see them. The first matching fail rule flips the
// verdict to fail, but every later match is still collected so the verdict
// explains the whole decision. Scanners that timed out or errored fail the
// verdict unless the rule set overrides that to warn or ignore.
func Evaluate(digest string, reports []findings.ScanReport, rs RuleSet, now time.Time) Verdict {
	merged := findings.Merge(reports)

	v := Verdict{
		Pass:   true,
		Digest: digest,
	}

	remaining := merged
	for _, rule := range rs.Rules {
		matched, rest := partition(remaining, rule.Match, now)
		if len(matched) == 0 {
			continue
		}
		switch rule.Action {
		case ActionIgnore:
			remaining = rest
		case ActionWarn:
			v.Reasons = append(v.Reasons, Reason{
				Rule:     rule.Name,
				Action:   ActionWarn,
				Message:  fmt.Sprintf("rule %q matched %d finding(s)", rule.Name, len(matched)),
				Findings: matched,
			})
		case ActionFail:
			v.Pass = false
			v.Reasons = append(v.Reasons, Reason{
				Rule:     rule.Name,
				Action:   ActionFail,
				Message:  fmt.Sprintf("rule %q matched %d finding(s)", rule.Name, len(matched)),
				Findings: matched,
			})
		}
	}

	// incomplete scanners: fail-closed unless overridden
	for _, rep := range reports {
		if rep.Clean() {
			continue
		}
		action := rs.scannerErrorAction(rep.Scanner)
		if action == ActionIgnore {
			continue
		}
		msg := scannerErrorMessage(rep)
		if action == ActionFail {
			v.Pass = false
		}
		v.Reasons = append(v.Reasons, Reason{
			Rule:    "scanner-state",
			Action:  action,
			Message: msg,
		})
	}

	v.Findings = remaining
	v.Counts = findings.Count(remaining)
	return v
}

func scannerErrorMessage(rep findings.ScanReport) string {
	switch rep.Status {
	case findings.ScanTimedOut:
		return fmt.Sprintf("scanner %s: timeout, fail-closed", rep.Scanner)
	default:
		if rep.Error != "" {
			return fmt.Sprintf("scanner %s: tool error, fail-closed: %s", rep.Scanner, rep.Error)
		}
		return fmt.Sprintf("scanner %s: tool error, fail-closed", rep.Scanner)
	}
}

// partition splits list into findings matched by m and the rest
func partition(list []findings.Finding, m Match, now time.Time) (matched, rest []findings.Finding) {
	for _, f := range list {
		if matches(f, m, now) {
			matched = append(matched, f)
		} else {
			rest = append(rest, f)
		}
	}
	return matched, rest
}

func matches(f findings.Finding, m Match, now time.Time) bool {
	if m.MinSeverity != "" && !f.Severity.AtLeast(findings.ParseSeverity(m.MinSeverity)) {
		return false
	}
	if len(m.VulnIDs) > 0 && !containsFold(m.VulnIDs, f.VulnerabilityID) {
		return false
	}
	if len(m.Packages) > 0 && !containsFold(m.Packages, f.Package) {
		return false
	}
	if m.UnfixedOnly && f.FixedIn != "" {
		return false
	}
	if m.MaxAgeDays > 0 {
		// age condition only applies when the advisory date is known
		if f.PublishedAt.IsZero() {
			return false
		}
		cutoff := now.AddDate(0, 0, -m.MaxAgeDays)
		if f.PublishedAt.After(cutoff) {
			return false
		}
	}
	return true
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
