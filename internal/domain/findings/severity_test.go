package findings

import "testing"

func TestParseSeverity(t *testing.T) {
	cases := []struct {
		raw  string
		want Severity
	}{
		{"critical", SeverityCritical},
		{"CRITICAL", SeverityCritical},
		{"High", SeverityHigh},
		{"medium", SeverityMedium},
		{"Moderate", SeverityMedium},
		{"low", SeverityLow},
		{"negligible", SeverityLow},
		{" high ", SeverityHigh},
		{"", SeverityUnknown},
		{"informational", SeverityUnknown},
	}
	for _, tc := range cases {
		if got := ParseSeverity(tc.raw); got != tc.want {
			t.Errorf("ParseSeverity(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestSeverityAtLeast(t *testing.T) {
	if !SeverityCritical.AtLeast(SeverityHigh) {
		t.Error("critical should be at least high")
	}
	if !SeverityHigh.AtLeast(SeverityHigh) {
		t.Error("high should be at least high")
	}
	if SeverityMedium.AtLeast(SeverityHigh) {
		t.Error("medium should not be at least high")
	}
	if !Severity("bogus").AtLeast(SeverityUnknown) {
		t.Error("unrecognized severities rank as unknown")
	}
}

func TestSeverityMapResolve(t *testing.T) {
	m := SeverityMap{"important": SeverityHigh, "defcon1": SeverityCritical}

	cases := []struct {
		raw  string
		want Severity
	}{
		{"Important", SeverityHigh},
		{"defcon1", SeverityCritical},
		{"medium", SeverityMedium}, // falls through to the shared scale
		{"nonsense", SeverityUnknown},
	}
	for _, tc := range cases {
		if got := m.Resolve(tc.raw); got != tc.want {
			t.Errorf("Resolve(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}

	var nilMap SeverityMap
	if got := nilMap.Resolve("high"); got != SeverityHigh {
		t.Errorf("nil map Resolve = %v, want high", got)
	}
}

func TestSeverityMapNormalized(t *testing.T) {
	m := SeverityMap{
		" Critical ": Severity("High"),
		"UNKNOWN":    SeverityLow,
	}.Normalized()

	if got := m.Resolve("critical"); got != SeverityHigh {
		t.Errorf("Resolve(critical) = %v, want high", got)
	}
	if got := m.Resolve("Critical"); got != SeverityHigh {
		t.Errorf("Resolve(Critical) = %v, want high", got)
	}
	if got := m.Resolve("unknown"); got != SeverityLow {
		t.Errorf("Resolve(unknown) = %v, want low", got)
	}

	var empty SeverityMap
	if got := empty.Normalized(); got != nil {
		t.Errorf("Normalized of nil map = %v, want nil", got)
	}
}
