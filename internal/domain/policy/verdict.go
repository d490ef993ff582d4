package policy

import "github.com/bryanwahyu/imagegate/internal/domain/findings"

// Reason explains one contribution to a verdict: the rule (or scanner state)
// that matched and the findings it matched on.
type Reason struct {
	Rule     string             `json:"rule"`
	Action   Action             `json:"action"`
	Message  string             `json:"message"`
	Findings []findings.Finding `json:"findings,omitempty"`
}

// Verdict is the pass/fail decision for one digest. It is derived solely from
// the scan reports and the rule set, so re-evaluating the same inputs always
// yields the same verdict.
type Verdict struct {
	Pass     bool                    `json:"pass"`
	Digest   string                  `json:"digest"`
	Counts   findings.SeverityCounts `json:"counts"`
	Findings []findings.Finding      `json:"findings,omitempty"`
	Reasons  []Reason                `json:"reasons,omitempty"`
}

// FailReasons returns only the reasons that caused a fail
func (v Verdict) FailReasons() []Reason {
	var out []Reason
	for _, r := range v.Reasons {
		if r.Action == ActionFail {
			out = append(out, r)
		}
	}
	return out
}
