package rederive

import (
	"fmt"

	"github.com/pactaudit/verifier/pkg/constitution"
	"github.com/pactaudit/verifier/pkg/hashchain"
	"github.com/pactaudit/verifier/pkg/signature"
	"github.com/pactaudit/verifier/pkg/transcript"
)

// failureClass is one row of the closed policy table mapping a
// transcript's terminal failure_event.code to the fault attribution
// spec.md §4.7 describes only by example (scenarios B and C). No
// library models this: it is pure, hand-maintained Pact policy, grounded
// on the teacher's core/pkg/pack/grader.go tiering-by-evidence shape.
type failureClass struct {
	status      string
	fault       FaultDomain
	nextActor   string
	action      string
	recommend   string
	confidence  float64
}

var knownFailureCodes = map[string]failureClass{
	"PACT-101": {
		status:     "ABORTED_POLICY",
		fault:      FaultBuyer,
		nextActor:  "buyer",
		action:     "resubmit_with_corrected_terms",
		recommend:  "buyer must resubmit the intent with terms that satisfy the governing constitution",
		confidence: 0.95,
	},
	"PACT-420": {
		status:     "FAILED_PROVIDER_UNREACHABLE",
		fault:      FaultProvider,
		nextActor:  "provider",
		action:     "restore_connectivity_and_retry",
		recommend:  "provider must restore availability before the negotiation can be retried",
		confidence: 0.9,
	},
}

var unclassifiedFailure = failureClass{
	status:     "FAILED_UNSPECIFIED",
	fault:      FaultNone,
	nextActor:  "auditor",
	action:     "manual_review",
	recommend:  "the terminal failure code is not in the known policy table; route to manual review",
	confidence: 0.4,
}

// Input gathers everything the derivation engine needs. It takes the
// already-computed independent integrity signals rather than
// recomputing them, so rederive and the Report's own signal sections are
// always looking at the same evidence (spec.md §5: components are
// independent, not layered).
type Input struct {
	Transcript       *transcript.Transcript
	ConstitutionGate constitution.Gate
	HashChain        hashchain.Report
	Signatures       signature.Report
	AllowNonstandard bool
	ConstitutionVersion string
}

// Output bundles the three derived artifacts.
type Output struct {
	GCView         GCView
	Judgment       Judgment
	InsurerSummary InsurerSummary
}

// Derive regenerates the GC View, Judgment, and Insurer Summary purely
// from the inputs above (spec.md §4.7). It never consults the packed
// derived/*.json files — those are only read by the caller for
// comparison against this output (pkg/compare).
func Derive(in Input) Output {
	t := in.Transcript
	terminal := t.Rounds[len(t.Rounds)-1]

	fc, code := classify(t)
	terminalIsAccept := terminal.RoundType == transcript.RoundAccept
	moneyMoved := terminalIsAccept && t.FailureEvent == nil

	status := fc.status
	if terminalIsAccept && t.FailureEvent == nil {
		status = "COMPLETED"
	}

	judgment := Judgment{
		Version:           "pact-judgment/1",
		Status:            status,
		FailureCode:       code,
		LastValidRound:    terminal.RoundNumber,
		LastValidSummary:  fmt.Sprintf("round %d (%s) is the last round present in the transcript", terminal.RoundNumber, terminal.RoundType),
		LastValidHash:     in.HashChain.LastValidHash(),
		RequiredNextActor: fc.nextActor,
		RequiredAction:    fc.action,
		Terminal:          terminalIsAccept || terminal.RoundType == transcript.RoundReject || terminal.RoundType == transcript.RoundAbort,
		DblDetermination:  fc.fault,
		Confidence:        fc.confidence,
		Recommendation:    fc.recommend,
		EvidenceRefs:       evidenceRefs(t),
		ClaimedEvidenceRefs: evidenceRefs(t),
		Notes:              []string{},
		RecommendedActions: []string{fc.action},
	}
	if in.HashChain.Status == hashchain.StatusInvalid || in.Signatures.Status == signature.StatusInvalid {
		judgment.DblDetermination = FaultIndeterminate
		judgment.Confidence = 0
		judgment.RequiredNextActor = "auditor"
		judgment.RequiredAction = "manual_tamper_investigation"
		judgment.Notes = append(judgment.Notes, "integrity signal failure overrides the policy-table fault attribution")
	}
	judgment.PassportImpact = map[string]interface{}{
		"rules_version": JudgmentRulesVersion,
		"buyer_delta":   passportDelta(judgment.DblDetermination, "buyer"),
		"provider_delta": passportDelta(judgment.DblDetermination, "provider"),
	}

	buyerTier := tierFromDelta(passportDelta(judgment.DblDetermination, "buyer"))
	providerTier := tierFromDelta(passportDelta(judgment.DblDetermination, "provider"))

	insurer := deriveInsurerSummary(in, judgment, buyerTier, providerTier)
	gcView := deriveGCView(in, judgment, status, moneyMoved)

	return Output{GCView: gcView, Judgment: judgment, InsurerSummary: insurer}
}

func classify(t *transcript.Transcript) (failureClass, string) {
	if t.FailureEvent == nil {
		return failureClass{status: "COMPLETED", fault: FaultNone, nextActor: "", action: "", confidence: 1}, ""
	}
	if fc, ok := knownFailureCodes[t.FailureEvent.Code]; ok {
		return fc, t.FailureEvent.Code
	}
	return unclassifiedFailure, t.FailureEvent.Code
}

// passportDelta derives a deterministic, single-transcript reputation
// delta for one party from the fault determination (spec.md §4.7: "a
// passport delta... computed per party"). At-fault parties take the
// penalty; the counterparty and uninvolved rails are credited lightly.
func passportDelta(fault FaultDomain, party string) float64 {
	switch fault {
	case FaultNone:
		return 0.25
	case FaultBuyer:
		if party == "buyer" {
			return -0.30
		}
		return 0.10
	case FaultProvider:
		if party == "provider" {
			return -0.30
		}
		return 0.10
	case FaultBuyerRail:
		if party == "buyer" {
			return -0.05
		}
		return 0.15
	case FaultProviderRail:
		if party == "provider" {
			return -0.05
		}
		return 0.15
	case FaultIndeterminate:
		return -1
	default:
		return 0
	}
}

// tierFromDelta implements spec.md §4.7's tier thresholds: A >= 0.20,
// B >= -0.10, else C.
func tierFromDelta(delta float64) Tier {
	switch {
	case delta >= 0.20:
		return TierA
	case delta >= -0.10:
		return TierB
	default:
		return TierC
	}
}

func evidenceRefs(t *transcript.Transcript) []string {
	refs := make([]string, 0, len(t.Rounds))
	for _, r := range t.Rounds {
		refs = append(refs, fmt.Sprintf("round:%d", r.RoundNumber))
	}
	return refs
}

func deriveInsurerSummary(in Input, j Judgment, buyerTier, providerTier Tier) InsurerSummary {
	coverage, riskFactors, surcharges := coverageDecision(in, j, buyerTier, providerTier)

	confidence := j.Confidence
	if coverage == CoverageExcluded {
		confidence = 0
	}
	return InsurerSummary{
		Version:      "pact-insurer-summary/1",
		Coverage:     coverage,
		RiskFactors:  riskFactors,
		Surcharges:   surcharges,
		BuyerTier:    buyerTier,
		ProviderTier: providerTier,
		Confidence:   confidence,
	}
}

// coverageDecision implements the spec.md §4.7.1 coverage rule table in
// priority order: integrity failure excludes unconditionally, then
// non-standard-and-disallowed constitution excludes, then the worse of
// the two party tiers drives escrow/surcharge, else plain coverage.
func coverageDecision(in Input, j Judgment, buyerTier, providerTier Tier) (Coverage, []string, []string) {
	var risk, surcharges []string

	if in.HashChain.Status == hashchain.StatusInvalid {
		risk = append(risk, "hash chain broken")
		return CoverageExcluded, risk, nil
	}
	if in.Signatures.Status == signature.StatusInvalid {
		risk = append(risk, "one or more round signatures failed verification")
		return CoverageExcluded, risk, nil
	}
	if !in.ConstitutionGate.ConstitutionOK {
		risk = append(risk, "non-standard constitution not permitted for this run")
		return CoverageExcluded, risk, nil
	}
	if in.ConstitutionGate.Mismatch != "" {
		risk = append(risk, "non-standard constitution accepted by operator override")
	}

	worst := worstTier(buyerTier, providerTier)
	switch worst {
	case TierC:
		risk = append(risk, "at-fault party's passport delta fell to tier C")
		return CoverageEscrowRequired, risk, nil
	case TierB:
		surcharges = append(surcharges, "tier-B passport delta surcharge")
		return CoverageCoveredWithSurcharge, risk, surcharges
	default:
		return CoverageCovered, risk, nil
	}
}

func worstTier(a, b Tier) Tier {
	rank := map[Tier]int{TierA: 0, TierB: 1, TierC: 2}
	if rank[a] >= rank[b] {
		return a
	}
	return b
}

func deriveGCView(in Input, j Judgment, execStatus string, moneyMoved bool) GCView {
	t := in.Transcript
	terminal := t.Rounds[len(t.Rounds)-1]

	timeline := make([]TimelineEntry, 0, len(t.Rounds))
	for _, r := range t.Rounds {
		timeline = append(timeline, TimelineEntry{
			RoundNumber: r.RoundNumber,
			RoundType:   string(r.RoundType),
			TimestampMs: r.TimestampMs,
		})
	}

	whatHappened := fmt.Sprintf("negotiation %s ran %d round(s) and ended in %s", t.IntentID, len(t.Rounds), terminal.RoundType)
	if t.FailureEvent != nil {
		whatHappened = fmt.Sprintf("%s (failure code %s: %s)", whatHappened, t.FailureEvent.Code, t.FailureEvent.Message)
	}

	return GCView{
		Version: "pact-gc-view/1",
		Constitution: ConstitutionRef{
			Version:      in.ConstitutionVersion,
			Hash:         in.ConstitutionGate.PackedHash,
			RulesApplied: []string{},
		},
		Subject: t.IntentID,
		ExecutiveSummary: ExecutiveSummary{
			Status:              execStatus,
			WhatHappened:        whatHappened,
			MoneyMoved:          moneyMoved,
			FinalOutcome:        string(terminal.RoundType),
			SettlementAttempted: terminal.RoundType == transcript.RoundAccept,
		},
		Integrity: GCIntegrity{
			HashChain: string(in.HashChain.Status),
			SignaturesVerified: SignaturesVerified{
				Verified: in.Signatures.VerifiedCount,
				Total:    in.Signatures.TotalCount,
			},
			FinalHashValidation: string(in.HashChain.Status),
			Notes:               in.HashChain.Warnings,
		},
		Policy: Policy{
			ConstitutionOK:   in.ConstitutionGate.ConstitutionOK,
			AllowNonstandard: in.AllowNonstandard,
			Mismatch:         in.ConstitutionGate.Mismatch,
		},
		Responsibility: Responsibility{
			Judgment: JudgmentRef{
				FaultDomain:       j.DblDetermination,
				RequiredNextActor: j.RequiredNextActor,
				RequiredAction:    j.RequiredAction,
				Terminal:          j.Terminal,
				Confidence:        j.Confidence,
			},
			LastValidSignedHash: in.HashChain.LastValidHash(),
			BlameExplanation:    j.Recommendation,
		},
		ResponsibilityTrace: responsibilityTrace(t),
		GcTakeaways: map[string]interface{}{
			"approval_risk": string(j.DblDetermination),
		},
		Timeline:      timeline,
		EvidenceIndex: evidenceRefs(t),
		ChainOfCustody: ChainOfCustody{
			SealedAtMs: terminal.TimestampMs,
		},
	}
}

// responsibilityTrace lists the evidence that specifically backs the
// fault determination, distinct from EvidenceIndex's whole-transcript
// listing: the terminal round, plus the failure event code if present.
func responsibilityTrace(t *transcript.Transcript) []string {
	terminal := t.Rounds[len(t.Rounds)-1]
	trace := []string{fmt.Sprintf("round:%d", terminal.RoundNumber)}
	if t.FailureEvent != nil {
		trace = append(trace, fmt.Sprintf("failure_event:%s", t.FailureEvent.Code))
	}
	return trace
}
