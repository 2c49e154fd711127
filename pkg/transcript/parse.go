package transcript

import (
	"bytes"
	"encoding/json"
)

// Parse strictly decodes transcript bytes into a Transcript, enforcing
// every structural invariant in spec.md §3 and failing with one of the
// five distinct ParseError kinds (spec.md §4.3) on the first violation
// found. None of these in themselves indicate tampering — only that the
// caller has something that isn't a well-formed Pact transcript.
func Parse(data []byte) (*Transcript, error) {
	var generic interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return nil, newParseError(KindBadRoundShape, "invalid JSON: %v", err)
	}
	if err := validateSchema(generic); err != nil {
		return nil, newParseError(KindBadRoundShape, "schema validation failed: %v", err)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, newParseError(KindBadRoundShape, "invalid JSON: %v", err)
	}

	var t Transcript
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, newParseError(KindBadRoundShape, "%v", err)
	}
	t.Raw = raw

	if t.TranscriptVersion != ExpectedTranscriptVersion {
		return nil, newParseError(KindBadVersion, "got %q, want %q", t.TranscriptVersion, ExpectedTranscriptVersion)
	}
	if len(t.Rounds) == 0 {
		return nil, newParseError(KindEmptyRounds, "transcript has no rounds")
	}

	rawRounds, _ := raw["rounds"].([]interface{})

	for i := range t.Rounds {
		r := &t.Rounds[i]

		if !r.RoundType.Valid() {
			return nil, newParseError(KindBadRoundShape, "round %d: invalid round_type %q", i, r.RoundType)
		}
		if r.EnvelopeHash == "" {
			return nil, newParseError(KindBadRoundShape, "round %d: missing envelope_hash", i)
		}
		if r.PreviousRoundHash == "" {
			return nil, newParseError(KindBadRoundShape, "round %d: missing previous_round_hash", i)
		}
		if r.RoundNumber != i {
			return nil, newParseError(KindSparseRoundIndex, "round %d: round_number=%d (expected dense zero-based indices)", i, r.RoundNumber)
		}
		if i > 0 && r.TimestampMs < t.Rounds[i-1].TimestampMs {
			return nil, newParseError(KindNonMonotonicTimestamp, "round %d timestamp %d precedes round %d timestamp %d", i, r.TimestampMs, i-1, t.Rounds[i-1].TimestampMs)
		}
		if i < len(rawRounds) {
			if rm, ok := rawRounds[i].(map[string]interface{}); ok {
				r.Raw = rm
			}
		}
	}

	return &t, nil
}
