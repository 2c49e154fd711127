// Package transcript holds the typed shape of a Pact negotiation transcript
// and the strict parser that turns raw JSON bytes into it, per spec.md §3
// and §4.3.
package transcript

// RoundType enumerates the closed set of protocol message kinds a Round
// may carry.
type RoundType string

const (
	RoundIntent  RoundType = "INTENT"
	RoundAsk     RoundType = "ASK"
	RoundBid     RoundType = "BID"
	RoundCounter RoundType = "COUNTER"
	RoundAccept  RoundType = "ACCEPT"
	RoundReject  RoundType = "REJECT"
	RoundAbort   RoundType = "ABORT"
)

func (t RoundType) Valid() bool {
	switch t {
	case RoundIntent, RoundAsk, RoundBid, RoundCounter, RoundAccept, RoundReject, RoundAbort:
		return true
	}
	return false
}

// ExpectedTranscriptVersion is the one literal value transcript_version
// must equal, per spec.md §3.
const ExpectedTranscriptVersion = "pact-transcript/4.0"

// Signature carries the Ed25519 signature over a Round's envelope_hash,
// wire-encoded as spec.md §3 mandates: base58 signature and public key.
type Signature struct {
	SignatureB58       string `json:"signature_b58"`
	SignerPublicKeyB58 string `json:"signer_public_key_b58"`
	Scheme             string `json:"scheme,omitempty"`
}

// Round is a single protocol message within a Transcript.
type Round struct {
	RoundNumber       int        `json:"round_number"`
	RoundType         RoundType  `json:"round_type"`
	EnvelopeHash      string     `json:"envelope_hash"`
	PreviousRoundHash string     `json:"previous_round_hash"`
	RoundHash         string     `json:"round_hash,omitempty"`
	Signature         *Signature `json:"signature,omitempty"`
	PublicKeyB58      string     `json:"public_key_b58,omitempty"`
	TimestampMs       int64      `json:"timestamp_ms"`

	// Raw holds the round's own JSON object as decoded, round_hash
	// included; HashChainVerifier drops round_hash from a copy of it to
	// recompute computed_round_hash_i (spec.md §4.4 step 3).
	Raw map[string]interface{} `json:"-"`
}

// PublicKey returns the key that should be used to verify this round's
// signature: the signature-scoped key if present, else the round-level
// fallback key (spec.md §4.5 step 1).
func (r Round) PublicKey() string {
	if r.Signature != nil && r.Signature.SignerPublicKeyB58 != "" {
		return r.Signature.SignerPublicKeyB58
	}
	return r.PublicKeyB58
}

// FailureEvent is the optional advisory record of how/why a transcript
// terminated abnormally.
type FailureEvent struct {
	Code            string `json:"code,omitempty"`
	TranscriptHash  string `json:"transcript_hash,omitempty"`
	Message         string `json:"message,omitempty"`
}

// Transcript is the signed, hash-chained negotiation record a Pact pack
// bundles under input/transcript.json.
type Transcript struct {
	TranscriptVersion string        `json:"transcript_version"`
	IntentID          string        `json:"intent_id"`
	CreatedAtMs       int64         `json:"created_at_ms"`
	Rounds            []Round       `json:"rounds"`
	FinalHash         string        `json:"final_hash,omitempty"`
	FailureEvent      *FailureEvent `json:"failure_event,omitempty"`

	// Raw is the full decoded document, used by HashChainVerifier to
	// recompute SHA-256(canonicalize(transcript without X)) for the two
	// advisory top-level hashes (spec.md §4.4 steps 6-7).
	Raw map[string]interface{} `json:"-"`
}
