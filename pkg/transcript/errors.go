package transcript

import "fmt"

// ParseError is returned by Parse when the transcript fails one of the
// structural invariants in spec.md §3. Each Kind maps to a distinct
// TranscriptParseError reason, and all of them leave integrity.status at
// INDETERMINATE rather than TAMPERED (spec.md §4.3) — a transcript that
// cannot be parsed gives no evidence of tampering, only of not conforming.
type ParseError struct {
	Kind    string
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("transcript: %s: %s", e.Kind, e.Message)
}

// ErrorKind implements the taxonomy seam described in SPEC_FULL.md §3.3.
func (e *ParseError) ErrorKind() string { return "TranscriptParseError" }

const (
	KindBadVersion            = "BadVersion"
	KindEmptyRounds           = "EmptyRounds"
	KindBadRoundShape         = "BadRoundShape"
	KindNonMonotonicTimestamp = "NonMonotonicTimestamp"
	KindSparseRoundIndex      = "SparseRoundIndex"
)

func newParseError(kind, format string, args ...interface{}) *ParseError {
	return &ParseError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
