// Package constitution normalizes and hashes the Pact governing document
// ("Constitution") and checks its identity against a compiled-in
// accept-list, per spec.md §4.9.
package constitution

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalize applies the canonical text transform a Constitution document
// must go through before hashing: CRLF → LF, trailing whitespace per line
// stripped, then NFC Unicode normalization so visually- and
// semantically-identical text composed with different combining sequences
// still hashes identically (SPEC_FULL.md §3, supplementing spec.md §4.9,
// whose own canonicalize/artifact_impl.go never implements the NFC step
// its comments call for).
func Normalize(text []byte) []byte {
	s := string(text)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	s = strings.Join(lines, "\n")

	s = norm.NFC.String(s)
	return []byte(s)
}

// Hash returns the SHA-256 hex digest of the normalized Constitution text.
func Hash(text []byte) string {
	sum := sha256.Sum256(Normalize(text))
	return hex.EncodeToString(sum[:])
}

// AcceptList is the set of Constitution hashes one run recognizes as
// standard. It is built at run time by NewAcceptList from the texts the
// caller supplies via Options.StandardConstitutionText and is not changed
// afterwards; no hashes are compiled in. Current holds the
// hash reported as "expected" in a mismatch message — the text a caller
// names first via NewAcceptList.
type AcceptList struct {
	hashes  map[string]bool
	Current string
}

// NewAcceptList builds an accept-list from one or more known-standard
// Constitution texts; the first is the "current" one named in mismatch
// messages, later ones are historical versions still accepted silently.
func NewAcceptList(standardTexts ...[]byte) AcceptList {
	al := AcceptList{hashes: make(map[string]bool, len(standardTexts))}
	for i, t := range standardTexts {
		h := Hash(t)
		al.hashes[h] = true
		if i == 0 {
			al.Current = h
		}
	}
	return al
}

func (al AcceptList) accepts(hash string) bool {
	return al.hashes[hash]
}

// Gate is the outcome of checking a packed Constitution's hash against
// the accept-list.
type Gate struct {
	ConstitutionOK bool
	PackedHash     string
	Mismatch       string // non-empty iff off-list
}

// Check implements spec.md §4.9's three behaviors. allowNonstandard only
// changes whether off-list is tolerated downstream (in the coverage rule,
// §4.7.1) — the mismatch is recorded either way.
func Check(packedText []byte, accept AcceptList, allowNonstandard bool) Gate {
	hash := Hash(packedText)
	if accept.accepts(hash) {
		return Gate{ConstitutionOK: true, PackedHash: hash}
	}

	return Gate{
		ConstitutionOK: allowNonstandard,
		PackedHash:     hash,
		Mismatch:       "NON_STANDARD_RULES: constitution hash mismatch (got " + hash + ", expected " + accept.Current + ")",
	}
}
