package models

// Verdict is the outcome of comparing full content of both sides
type Verdict string

const (
	// VerdictEqual indicates both payloads are byte-identical
	VerdictEqual Verdict = "EQUAL"
	// VerdictDifferent indicates the payloads differ
	VerdictDifferent Verdict = "DIFFERENT"
	// VerdictUnknown indicates no content comparison has completed
	VerdictUnknown Verdict = "UNKNOWN"
)

// ComparisonResult is the transient outcome of a content comparison.
// It is never persisted beyond the current display.
type ComparisonResult struct {
	Category string `json:"category"`
	Entry    string `json:"entry"`
	FilePath string `json:"file_path,omitempty"`
	EnvA     string `json:"env_a"`
	EnvB     string `json:"env_b"`

	// ContentA and ContentB are the raw payloads of each side
	ContentA string `json:"content_a"`
	ContentB string `json:"content_b"`

	// DigestA and DigestB are short content digests for display
	DigestA string `json:"digest_a,omitempty"`
	DigestB string `json:"digest_b,omitempty"`

	Verdict Verdict `json:"verdict"`
}

// Equal reports whether the verdict is EQUAL
func (r *ComparisonResult) Equal() bool {
	return r != nil && r.Verdict == VerdictEqual
}
