package policy

import (
	"fmt"
	"strings"

	"github.com/bryanwahyu/imagegate/internal/domain/findings"
)

// Action enum
type Action string

const (
	ActionFail   Action = "fail"
	ActionWarn   Action = "warn"
	ActionIgnore Action = "ignore"
)

// Match is the condition side of a rule. All set fields must hold for a
// finding to match; an empty Match matches nothing.
type Match struct {
	MinSeverity string   `yaml:"min_severity,omitempty" json:"min_severity,omitempty"`
	VulnIDs     []string `yaml:"vuln_ids,omitempty" json:"vuln_ids,omitempty"`
	Packages    []string `yaml:"packages,omitempty" json:"packages,omitempty"`
	UnfixedOnly bool     `yaml:"unfixed_only,omitempty" json:"unfixed_only,omitempty"`
	MaxAgeDays  int      `yaml:"max_age_days,omitempty" json:"max_age_days,omitempty"`
}

// Rule pairs a condition with an action. Rules apply in declaration order;
// findings consumed by an earlier ignore rule are invisible to later rules.
type Rule struct {
	Name   string `yaml:"name" json:"name"`
	Action Action `yaml:"action" json:"action"`
	Match  Match  `yaml:"match" json:"match"`
}

// RuleSet is an ordered rule list plus the behavior for scanners that did
// not complete. OnScannerError defaults to fail (fail-closed); warn downgrades
// an incomplete scanner to a warning, ignore suppresses it entirely.
// ScannerOverrides overrides that default per scanner name.
type RuleSet struct {
	Rules            []Rule            `yaml:"rules" json:"rules"`
	OnScannerError   Action            `yaml:"on_scanner_error,omitempty" json:"on_scanner_error,omitempty"`
	ScannerOverrides map[string]Action `yaml:"scanner_overrides,omitempty" json:"scanner_overrides,omitempty"`
}

// Validate checks actions and severity labels before the set is used
func (rs RuleSet) Validate() error {
	for i, r := range rs.Rules {
		if strings.TrimSpace(r.Name) == "" {
			return fmt.Errorf("rule %d: name is required", i)
		}
		if err := validAction(r.Action); err != nil {
			return fmt.Errorf("rule %q: %w", r.Name, err)
		}
		if r.Match.MinSeverity != "" && findings.ParseSeverity(r.Match.MinSeverity) == findings.SeverityUnknown {
			return fmt.Errorf("rule %q: unknown severity %q", r.Name, r.Match.MinSeverity)
		}
		if emptyMatch(r.Match) {
			return fmt.Errorf("rule %q: match has no conditions", r.Name)
		}
	}
	if rs.OnScannerError != "" {
		if err := validAction(rs.OnScannerError); err != nil {
			return fmt.Errorf("on_scanner_error: %w", err)
		}
	}
	for name, a := range rs.ScannerOverrides {
		if err := validAction(a); err != nil {
			return fmt.Errorf("scanner_overrides[%s]: %w", name, err)
		}
	}
	return nil
}

// scannerErrorAction resolves the action for an incomplete scanner
func (rs RuleSet) scannerErrorAction(scanner string) Action {
	if a, ok := rs.ScannerOverrides[scanner]; ok {
		return a
	}
	if rs.OnScannerError != "" {
		return rs.OnScannerError
	}
	return ActionFail
}

func validAction(a Action) error {
	switch a {
	case ActionFail, ActionWarn, ActionIgnore:
		return nil
	}
	return fmt.Errorf("invalid action %q (allowed: fail, warn, ignore)", a)
}

func emptyMatch(m Match) bool {
	return m.MinSeverity == "" && len(m.VulnIDs) == 0 && len(m.Packages) == 0 &&
		!m.UnfixedOnly && m.MaxAgeDays == 0
}
