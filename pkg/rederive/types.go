// Package rederive regenerates the three derived Pact artifacts — GC
// View, Judgment, and Insurer Summary — purely from a parsed transcript,
// the already-computed integrity signals and the constitution-gate
// outcome, per spec.md §4.7 and §4.7.1.
//
// Per spec.md §9's design note on dynamic typing, these are modeled as
// closed structs over the fixed enumerations (FaultDomain, Coverage,
// Tier) rather than raw maps, so ArtifactComparator's
// strip-then-compare step (§4.8) operates on a restricted canonical
// projection instead of an open-ended document.
package rederive

// FaultDomain is the closed set of values Judgment.DblDetermination may
// take (spec.md §4.7).
type FaultDomain string

const (
	FaultNone             FaultDomain = "NO_FAULT"
	FaultBuyer            FaultDomain = "BUYER_AT_FAULT"
	FaultProvider         FaultDomain = "PROVIDER_AT_FAULT"
	FaultBuyerRail        FaultDomain = "BUYER_RAIL_AT_FAULT"
	FaultProviderRail     FaultDomain = "PROVIDER_RAIL_AT_FAULT"
	FaultIndeterminate    FaultDomain = "INDETERMINATE_TAMPER"
)

// Coverage is the closed set of Insurer Summary coverage decisions
// (spec.md §4.7, §4.7.1).
type Coverage string

const (
	CoverageCovered              Coverage = "COVERED"
	CoverageCoveredWithSurcharge Coverage = "COVERED_WITH_SURCHARGE"
	CoverageEscrowRequired       Coverage = "ESCROW_REQUIRED"
	CoverageExcluded             Coverage = "EXCLUDED"
)

// Tier is a single-transcript passport-delta tier (spec.md §4.7).
type Tier string

const (
	TierA Tier = "A"
	TierB Tier = "B"
	TierC Tier = "C"
)

// ConstitutionRef is the GC View's embedded constitution identity.
type ConstitutionRef struct {
	Version      string   `json:"version"`
	Hash         string   `json:"hash"`
	RulesApplied []string `json:"rules_applied"`
}

// ExecutiveSummary summarizes the transcript's outcome in human terms.
type ExecutiveSummary struct {
	Status              string `json:"status"`
	WhatHappened        string `json:"what_happened"`
	MoneyMoved          bool   `json:"money_moved"`
	FinalOutcome        string `json:"final_outcome"`
	SettlementAttempted bool   `json:"settlement_attempted"`
}

// SignaturesVerified reports the round-signature tally.
type SignaturesVerified struct {
	Verified int `json:"verified"`
	Total    int `json:"total"`
}

// GCIntegrity is the GC View's own echo of the integrity signals, for
// human auditors reading the artifact without the full Report.
type GCIntegrity struct {
	HashChain           string             `json:"hash_chain"`
	SignaturesVerified  SignaturesVerified `json:"signatures_verified"`
	FinalHashValidation string             `json:"final_hash_validation"`
	Notes               []string           `json:"notes"`
}

// JudgmentRef is the GC View's embedded summary of the fault
// determination (the full Judgment artifact carries more detail).
type JudgmentRef struct {
	FaultDomain       FaultDomain `json:"fault_domain"`
	RequiredNextActor string      `json:"required_next_actor"`
	RequiredAction    string      `json:"required_action"`
	Terminal          bool        `json:"terminal"`
	Confidence        float64     `json:"confidence"`
}

// Responsibility is the GC View's fault-attribution section.
type Responsibility struct {
	Judgment             JudgmentRef `json:"judgment"`
	LastValidSignedHash  string      `json:"last_valid_signed_hash"`
	BlameExplanation     string      `json:"blame_explanation"`
}

// Policy is the GC View's auditor-facing echo of the constitution-gate
// decision (the full constitution.Gate carries more plumbing than an
// auditor needs).
type Policy struct {
	ConstitutionOK   bool   `json:"constitution_ok"`
	AllowNonstandard bool   `json:"allow_nonstandard"`
	Mismatch         string `json:"mismatch,omitempty"`
}

// ChainOfCustody records how the evidence behind this GC View was
// sealed. EvidenceBundleHash is a storage-layer detail stamped by the
// producer; ArtifactComparator strips it before comparison (spec.md
// §4.8) since the rederivation engine has no storage layer to hash.
type ChainOfCustody struct {
	SealedAtMs         int64  `json:"sealed_at_ms"`
	EvidenceBundleHash string `json:"evidence_bundle_hash,omitempty"`
}

// TimelineEntry is one row of the GC View's round-by-round timeline.
type TimelineEntry struct {
	RoundNumber int    `json:"round_number"`
	RoundType   string `json:"round_type"`
	TimestampMs int64  `json:"timestamp_ms"`
}

// GCView is the derived, human-readable interpretation of the
// transcript (spec.md §3, §4.7).
//
// gc_takeaways.approval_risk is treated as opaque per spec.md §9's open
// question: it is populated here deterministically (derivation must be
// reproducible to satisfy idempotence) but ArtifactComparator never
// pattern-matches its contents, only compares its canonical hash.
type GCView struct {
	Version             string                 `json:"version"`
	Constitution        ConstitutionRef        `json:"constitution"`
	Subject             string                 `json:"subject"`
	ExecutiveSummary    ExecutiveSummary       `json:"executive_summary"`
	Integrity           GCIntegrity            `json:"integrity"`
	Policy              Policy                 `json:"policy"`
	Responsibility      Responsibility         `json:"responsibility"`
	ResponsibilityTrace []string               `json:"responsibility_trace"`
	GcTakeaways         map[string]interface{} `json:"gc_takeaways"`
	Timeline            []TimelineEntry        `json:"timeline"`
	EvidenceIndex       []string               `json:"evidence_index"`
	ChainOfCustody      ChainOfCustody         `json:"chain_of_custody"`
}

// PassportImpact is pinned to one fixed rule version per spec.md §9's
// second open question: implementations should not cross-compare across
// hypothetical rule-set revisions.
const JudgmentRulesVersion = "pact-judgment-rules/1"

// Judgment is the derived fault/responsibility determination artifact.
type Judgment struct {
	Version             string                 `json:"version"`
	Status              string                 `json:"status"`
	FailureCode         string                 `json:"failureCode,omitempty"`
	LastValidRound      int                    `json:"lastValidRound"`
	LastValidSummary    string                 `json:"lastValidSummary"`
	LastValidHash       string                 `json:"lastValidHash"`
	RequiredNextActor   string                 `json:"requiredNextActor"`
	RequiredAction      string                 `json:"requiredAction"`
	Terminal            bool                   `json:"terminal"`
	DblDetermination    FaultDomain            `json:"dblDetermination"`
	PassportImpact      map[string]interface{} `json:"passportImpact"`
	Confidence          float64                `json:"confidence"`
	Recommendation      string                 `json:"recommendation"`
	EvidenceRefs        []string               `json:"evidenceRefs"`
	ClaimedEvidenceRefs []string               `json:"claimedEvidenceRefs"`
	Notes               []string               `json:"notes"`
	RecommendedActions  []string               `json:"recommendedActions"`
}

// InsurerSummary is the derived underwriting view.
type InsurerSummary struct {
	Version      string   `json:"version"`
	Coverage     Coverage `json:"coverage"`
	RiskFactors  []string `json:"risk_factors"`
	Surcharges   []string `json:"surcharges,omitempty"`
	BuyerTier    Tier     `json:"buyer_tier"`
	ProviderTier Tier     `json:"provider_tier"`
	Confidence   float64  `json:"confidence"`

	// Fields stripped by ArtifactComparator (spec.md §4.8) before
	// comparison. They mirror what a real producer stamps; Derive leaves
	// them empty, so omitempty keeps them out of the rederived document.
	GeneratedFrom string `json:"generated_from,omitempty"`
	CreatedAtMs   int64  `json:"created_at_ms,omitempty"`
	IssuedAtMs    int64  `json:"issued_at_ms,omitempty"`
	ToolVersion   string `json:"tool_version,omitempty"`
}
