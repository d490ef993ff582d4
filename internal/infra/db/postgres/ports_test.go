package postgres

import (
	"testing"

	"github.com/bryanwahyu/imagegate/internal/domain/advice"
	"github.com/bryanwahyu/imagegate/internal/domain/pipeline"
)

// the postgres adapters must cover the same ports the mysql ones do, so a
// driver switch in config never changes which endpoints work
var (
	_ pipeline.Repository      = (*RunRepository)(nil)
	_ pipeline.EventRepository = (*EventRepository)(nil)
	_ advice.Repository        = (*AdviceRepository)(nil)
)

func TestStringOrDash(t *testing.T) {
	if got := stringOrDash(""); got != "-" {
		t.Errorf("stringOrDash(\"\") = %q, want -", got)
	}
	if got := stringOrDash("  "); got != "-" {
		t.Errorf("stringOrDash(blank) = %q, want -", got)
	}
	if got := stringOrDash("acme"); got != "acme" {
		t.Errorf("stringOrDash(acme) = %q", got)
	}
}
