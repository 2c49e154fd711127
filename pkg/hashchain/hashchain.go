// Package hashchain verifies the structural integrity of a Pact
// transcript's round-to-round hash chain, per spec.md §4.4.
package hashchain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/pactaudit/verifier/pkg/canonicalize"
	"github.com/pactaudit/verifier/pkg/transcript"
)

// Status is the aggregate hash-chain verification outcome.
type Status string

const (
	StatusValid   Status = "VALID"
	StatusInvalid Status = "INVALID"
)

// BrokenLinkError is a hard tamper signal: some round's previous_round_hash
// does not match the hash the chain actually produced up to that point.
type BrokenLinkError struct {
	RoundNumber int
	Expected    string
	Got         string
}

func (e *BrokenLinkError) Error() string {
	return fmt.Sprintf("hash_chain: round %d: previous_round_hash %s does not match expected %s", e.RoundNumber, e.Got, e.Expected)
}

// Report is the HashChainVerifier outcome, carrying both the hard
// verdict and every informational warning about self-attested hashes
// (spec.md §4.4 steps 4, 6, 7 — never promoted to tamper per §9).
type Report struct {
	Status       Status
	Broken       *BrokenLinkError
	Warnings     []string
	lastValidHash string
}

// LastValidHash returns the hash of the last round still inside the
// intact prefix of the chain — the anchor Judgment.LastValidHash reports
// when a broken link cuts the chain short.
func (r Report) LastValidHash() string {
	return r.lastValidHash
}

// Genesis computes prev₀ = SHA-256(intent_id || ":" || decimal(created_at_ms)),
// the seed every chain is anchored to (spec.md invariant, §4.4 step 1).
func Genesis(intentID string, createdAtMs int64) string {
	payload := fmt.Sprintf("%s:%d", intentID, createdAtMs)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// Verify walks every round checking previous_round_hash linkage against
// the chain computed so far. It never stops at the first broken link
// alone — it halts chain validation as spec.md §4.4 step 2 prescribes,
// but still evaluates the advisory final_hash / failure_event checks so
// every warning that can be produced, is.
func Verify(t *transcript.Transcript) Report {
	report := Report{Status: StatusValid}

	expectedPrev := Genesis(t.IntentID, t.CreatedAtMs)
	chainIntact := true
	report.lastValidHash = expectedPrev

	for i := range t.Rounds {
		r := &t.Rounds[i]

		if chainIntact && r.PreviousRoundHash != expectedPrev {
			report.Status = StatusInvalid
			report.Broken = &BrokenLinkError{RoundNumber: r.RoundNumber, Expected: expectedPrev, Got: r.PreviousRoundHash}
			chainIntact = false
		}

		computed, err := computedRoundHash(r)
		if err != nil {
			// A round whose canonical form can't be computed can't be
			// chained further; treat remaining links as broken too.
			chainIntact = false
			continue
		}

		if r.RoundHash != "" && !equalHex(r.RoundHash, computed) {
			report.Warnings = append(report.Warnings, fmt.Sprintf("round %d: claimed round_hash does not match computed hash", r.RoundNumber))
		}

		if chainIntact {
			if r.RoundHash != "" {
				expectedPrev = r.RoundHash
			} else {
				expectedPrev = computed
			}
			report.lastValidHash = expectedPrev
		}
	}

	if t.FinalHash != "" {
		computed, err := computedTranscriptHash(t, "final_hash")
		if err == nil && !equalHex(t.FinalHash, computed) {
			report.Warnings = append(report.Warnings, "claimed final_hash does not match computed hash")
		}
	}

	if t.FailureEvent != nil && t.FailureEvent.TranscriptHash != "" && chainIntact {
		computed, err := computedTranscriptHash(t, "failure_event", "final_hash")
		if err == nil && !equalHex(t.FailureEvent.TranscriptHash, computed) {
			report.Warnings = append(report.Warnings, "claimed failure_event.transcript_hash does not match computed hash")
		}
	}

	return report
}

// computedRoundHash recomputes SHA-256(canonicalize(round with round_hash
// removed)) — spec.md §4.4 step 3 — operating on the round's raw JSON
// object so fields this type doesn't model are preserved in the hash input.
func computedRoundHash(r *transcript.Round) (string, error) {
	if r.Raw == nil {
		return "", fmt.Errorf("hash_chain: round %d has no raw JSON to canonicalize", r.RoundNumber)
	}
	stripped := make(map[string]interface{}, len(r.Raw))
	for k, v := range r.Raw {
		if k == "round_hash" {
			continue
		}
		stripped[k] = v
	}
	return canonicalize.CanonicalHash(stripped)
}

// computedTranscriptHash recomputes SHA-256(canonicalize(transcript
// without the named top-level fields)) for the two advisory top-level
// hashes (spec.md §4.4 steps 6-7).
func computedTranscriptHash(t *transcript.Transcript, dropFields ...string) (string, error) {
	if t.Raw == nil {
		return "", fmt.Errorf("hash_chain: transcript has no raw JSON to canonicalize")
	}
	drop := make(map[string]bool, len(dropFields))
	for _, f := range dropFields {
		drop[f] = true
	}
	stripped := make(map[string]interface{}, len(t.Raw))
	for k, v := range t.Raw {
		if drop[k] {
			continue
		}
		stripped[k] = v
	}
	return canonicalize.CanonicalHash(stripped)
}

func equalHex(a, b string) bool {
	return strings.EqualFold(a, b)
}
