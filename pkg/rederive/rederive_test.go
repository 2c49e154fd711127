package rederive

import (
	"testing"

	"github.com/pactaudit/verifier/pkg/constitution"
	"github.com/pactaudit/verifier/pkg/hashchain"
	"github.com/pactaudit/verifier/pkg/signature"
	"github.com/pactaudit/verifier/pkg/transcript"
)

func sampleTranscript(terminal transcript.RoundType, failure *transcript.FailureEvent) *transcript.Transcript {
	return &transcript.Transcript{
		TranscriptVersion: transcript.ExpectedTranscriptVersion,
		IntentID:          "intent-001",
		CreatedAtMs:       1000,
		Rounds: []transcript.Round{
			{RoundNumber: 0, RoundType: transcript.RoundIntent, TimestampMs: 1000},
			{RoundNumber: 1, RoundType: terminal, TimestampMs: 2000},
		},
		FailureEvent: failure,
	}
}

func cleanInputs(tr *transcript.Transcript) Input {
	return Input{
		Transcript:          tr,
		ConstitutionGate:    constitution.Gate{ConstitutionOK: true, PackedHash: "deadbeef"},
		HashChain:           hashchain.Report{Status: hashchain.StatusValid},
		Signatures:          signature.Report{Status: signature.StatusValid, VerifiedCount: 2, TotalCount: 2},
		ConstitutionVersion: "v1",
	}
}

func TestDerive_SuccessfulCompletion(t *testing.T) {
	tr := sampleTranscript(transcript.RoundAccept, nil)
	out := Derive(cleanInputs(tr))

	if out.GCView.ExecutiveSummary.Status != "COMPLETED" {
		t.Errorf("expected COMPLETED status, got %q", out.GCView.ExecutiveSummary.Status)
	}
	if !out.GCView.ExecutiveSummary.MoneyMoved {
		t.Error("expected money_moved=true for a clean ACCEPT")
	}
	if out.Judgment.DblDetermination != FaultNone {
		t.Errorf("expected NO_FAULT, got %s", out.Judgment.DblDetermination)
	}
	if out.InsurerSummary.Coverage != CoverageCovered {
		t.Errorf("expected COVERED, got %s", out.InsurerSummary.Coverage)
	}
}

func TestDerive_PolicyAbort(t *testing.T) {
	tr := sampleTranscript(transcript.RoundAbort, &transcript.FailureEvent{Code: "PACT-101", Message: "terms violate rule 3"})
	out := Derive(cleanInputs(tr))

	if out.Judgment.DblDetermination != FaultBuyer {
		t.Errorf("expected BUYER_AT_FAULT, got %s", out.Judgment.DblDetermination)
	}
	if out.Judgment.RequiredNextActor != "buyer" {
		t.Errorf("expected buyer as next actor, got %s", out.Judgment.RequiredNextActor)
	}
	if out.GCView.ExecutiveSummary.MoneyMoved {
		t.Error("expected money_moved=false for a policy abort")
	}
}

func TestDerive_ProviderUnreachable(t *testing.T) {
	tr := sampleTranscript(transcript.RoundAbort, &transcript.FailureEvent{Code: "PACT-420", Message: "no response"})
	out := Derive(cleanInputs(tr))

	if out.Judgment.DblDetermination != FaultProvider {
		t.Errorf("expected PROVIDER_AT_FAULT, got %s", out.Judgment.DblDetermination)
	}
	if out.InsurerSummary.Coverage != CoverageEscrowRequired && out.InsurerSummary.Coverage != CoverageCoveredWithSurcharge {
		t.Errorf("expected an at-fault coverage outcome, got %s", out.InsurerSummary.Coverage)
	}
}

func TestDerive_BrokenChainForcesIndeterminateAndExcluded(t *testing.T) {
	tr := sampleTranscript(transcript.RoundAccept, nil)
	in := cleanInputs(tr)
	in.HashChain = hashchain.Report{Status: hashchain.StatusInvalid}

	out := Derive(in)

	if out.Judgment.DblDetermination != FaultIndeterminate {
		t.Errorf("expected INDETERMINATE_TAMPER, got %s", out.Judgment.DblDetermination)
	}
	if out.Judgment.Confidence != 0 {
		t.Errorf("expected zero confidence on tamper, got %v", out.Judgment.Confidence)
	}
	if out.InsurerSummary.Coverage != CoverageExcluded {
		t.Errorf("expected EXCLUDED coverage on broken chain, got %s", out.InsurerSummary.Coverage)
	}
}

func TestDerive_NonStandardConstitutionDisallowedExcludesCoverage(t *testing.T) {
	tr := sampleTranscript(transcript.RoundAccept, nil)
	in := cleanInputs(tr)
	in.ConstitutionGate = constitution.Gate{ConstitutionOK: false, PackedHash: "rogue", Mismatch: "NON_STANDARD_RULES: constitution hash mismatch (got rogue, expected deadbeef)"}

	out := Derive(in)
	if out.InsurerSummary.Coverage != CoverageExcluded {
		t.Errorf("expected EXCLUDED coverage for disallowed non-standard constitution, got %s", out.InsurerSummary.Coverage)
	}
	if out.InsurerSummary.Confidence != 0 {
		t.Errorf("expected zero insurer confidence for disallowed non-standard constitution, got %v", out.InsurerSummary.Confidence)
	}
}

func TestDerive_GCViewPopulatesKeepListSections(t *testing.T) {
	tr := sampleTranscript(transcript.RoundAccept, nil)
	in := cleanInputs(tr)
	in.AllowNonstandard = true

	out := Derive(in).GCView

	if !out.Policy.ConstitutionOK || !out.Policy.AllowNonstandard {
		t.Errorf("expected policy to echo the constitution gate, got %+v", out.Policy)
	}
	if len(out.ResponsibilityTrace) == 0 {
		t.Error("expected a non-empty responsibility_trace")
	}
	if out.ChainOfCustody.SealedAtMs == 0 {
		t.Error("expected chain_of_custody.sealed_at_ms to be populated")
	}
}

func TestDerive_UnknownFailureCodeRoutesToManualReview(t *testing.T) {
	tr := sampleTranscript(transcript.RoundAbort, &transcript.FailureEvent{Code: "PACT-999", Message: "unmapped"})
	out := Derive(cleanInputs(tr))

	if out.Judgment.RequiredNextActor != "auditor" {
		t.Errorf("expected auditor routing for unknown failure code, got %s", out.Judgment.RequiredNextActor)
	}
}

func TestDerive_Idempotent(t *testing.T) {
	tr := sampleTranscript(transcript.RoundAccept, nil)
	in := cleanInputs(tr)

	a := Derive(in)
	b := Derive(in)
	if a.Judgment.DblDetermination != b.Judgment.DblDetermination || a.InsurerSummary.Coverage != b.InsurerSummary.Coverage {
		t.Error("expected repeated derivation from identical inputs to agree")
	}
}

func TestTierFromDelta(t *testing.T) {
	cases := []struct {
		delta float64
		want  Tier
	}{
		{0.25, TierA}, {0.20, TierA}, {0.0, TierB}, {-0.10, TierB}, {-0.11, TierC}, {-1, TierC},
	}
	for _, c := range cases {
		if got := tierFromDelta(c.delta); got != c.want {
			t.Errorf("tierFromDelta(%v) = %s, want %s", c.delta, got, c.want)
		}
	}
}
