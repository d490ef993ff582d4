package advice

import "time"

// AdviceID identifier type
type AdviceID string

// Advice is a stored AI remediation summary for one gate run. It is advisory
// only and never feeds back into a verdict.
type Advice struct {
	ID        AdviceID  `json:"id"`
	TenantID  string    `json:"tenant_id"`
	RunID     string    `json:"run_id,omitempty"`
	Digest    string    `json:"digest,omitempty"`
	Result    string    `json:"result"` // JSON string from AI
	CreatedAt time.Time `json:"created_at"`
}
