package constitution

import "testing"

func TestNormalize_CRLFAndTrailingWhitespace(t *testing.T) {
	a := Normalize([]byte("Rule one.   \r\nRule two.\t\r\n"))
	b := Normalize([]byte("Rule one.\nRule two.\n"))
	if string(a) != string(b) {
		t.Errorf("expected CRLF+trailing-whitespace text to normalize identically:\n%q\n%q", a, b)
	}
}

func TestNormalize_NFC(t *testing.T) {
	// precomposed: the single codepoint U+00E9 ("e with acute accent").
	// decomposed: the base letter 'e' (U+0065) followed by a combining
	// acute accent (U+0301) — visually and semantically the same
	// character, encoded differently.
	precomposed := []byte("caf" + string(rune(0x00E9)))
	decomposed := []byte("caf" + string(rune(0x0065)) + string(rune(0x0301)))

	if string(precomposed) == string(decomposed) {
		t.Fatal("test fixture bug: precomposed and decomposed forms must differ at the byte level")
	}
	if Hash(precomposed) != Hash(decomposed) {
		t.Error("expected NFC-equivalent text to hash identically")
	}
}

func TestHash_Deterministic(t *testing.T) {
	text := []byte("# Constitution\n\nRule 1.\n")
	if Hash(text) != Hash(text) {
		t.Error("hash must be deterministic")
	}
}

func TestCheck_OnAcceptList(t *testing.T) {
	standard := []byte("# Standard Constitution\n")
	accept := NewAcceptList(standard)

	gate := Check(standard, accept, false)
	if !gate.ConstitutionOK {
		t.Error("expected accepted constitution to pass")
	}
	if gate.Mismatch != "" {
		t.Errorf("expected no mismatch, got %q", gate.Mismatch)
	}
}

func TestCheck_OffListDisallowed(t *testing.T) {
	standard := []byte("# Standard Constitution\n")
	nonstandard := []byte("# Rogue Constitution\n")
	accept := NewAcceptList(standard)

	gate := Check(nonstandard, accept, false)
	if gate.ConstitutionOK {
		t.Error("expected off-list constitution to fail when allow_nonstandard=false")
	}
	if gate.Mismatch == "" {
		t.Error("expected a mismatch message")
	}
}

func TestCheck_OffListAllowed(t *testing.T) {
	standard := []byte("# Standard Constitution\n")
	nonstandard := []byte("# Rogue Constitution\n")
	accept := NewAcceptList(standard)

	gate := Check(nonstandard, accept, true)
	if !gate.ConstitutionOK {
		t.Error("expected off-list constitution to pass when allow_nonstandard=true")
	}
	if gate.Mismatch == "" {
		t.Error("mismatch should still be recorded informationally even when allowed")
	}
}
