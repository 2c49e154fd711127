package signature

import (
	"fmt"

	"github.com/pactaudit/verifier/pkg/transcript"
)

// Status is the aggregate outcome of verifying every round's signature.
type Status string

const (
	StatusValid        Status = "VALID"
	StatusInvalid      Status = "INVALID"
	StatusUnverifiable Status = "UNVERIFIABLE"
)

// Report is the aggregate SignatureVerifier outcome, per spec.md §3
// IntegrityResult.signatures.
type Report struct {
	Status        Status
	VerifiedCount int
	TotalCount    int
	Failures      []string
}

// VerifyRounds checks every round's signature per spec.md §4.5 and
// aggregates to one Status: VALID only if every round verified and at
// least one round exists; UNVERIFIABLE if no round had a usable key at
// all; INVALID (a hard tamper signal) on any mix or any outright
// verification failure.
func VerifyRounds(rounds []transcript.Round) Report {
	report := Report{TotalCount: len(rounds)}

	allUnverifiable := true
	anyFailure := false

	for _, r := range rounds {
		pubKey := r.PublicKey()
		if pubKey == "" {
			report.Failures = append(report.Failures, fmt.Sprintf("Round %d (type %s): no public key present (unverifiable)", r.RoundNumber, r.RoundType))
			continue
		}

		scheme := ""
		var signatureB58 string
		if r.Signature != nil {
			signatureB58 = r.Signature.SignatureB58
			scheme = r.Signature.Scheme
		}
		if signatureB58 == "" {
			report.Failures = append(report.Failures, fmt.Sprintf("Round %d (type %s): no signature present (unverifiable)", r.RoundNumber, r.RoundType))
			continue
		}

		allUnverifiable = false

		ok, err := Verify(r.EnvelopeHash, signatureB58, pubKey, scheme)
		if err != nil {
			anyFailure = true
			report.Failures = append(report.Failures, fmt.Sprintf("Round %d (type %s): signature verification failed: %v", r.RoundNumber, r.RoundType, err))
			continue
		}
		if !ok {
			anyFailure = true
			report.Failures = append(report.Failures, fmt.Sprintf("Round %d (type %s): signature verification failed", r.RoundNumber, r.RoundType))
			continue
		}
		report.VerifiedCount++
	}

	switch {
	case allUnverifiable:
		report.Status = StatusUnverifiable
	case anyFailure || report.VerifiedCount != report.TotalCount:
		report.Status = StatusInvalid
	case report.TotalCount > 0:
		report.Status = StatusValid
	default:
		report.Status = StatusUnverifiable
	}

	return report
}
