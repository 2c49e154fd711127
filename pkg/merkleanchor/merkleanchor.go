// Package merkleanchor checks the optional derived/merkle_digest.json
// additive anchor over a pack's checksummed member set. Per spec.md's
// Data Model table, its presence never strengthens the verdict — a
// mismatch or absence is informational only (SPEC_FULL.md §6, adapted
// from the teacher's Merkle inclusion-proof machinery).
package merkleanchor

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/pactaudit/verifier/pkg/canonicalize"
)

const (
	leafDomain = "pact:checksum:leaf:v1"
	nodeDomain = "pact:checksum:node:v1"
)

// Digest is the shape of derived/merkle_digest.json.
type Digest struct {
	Root string `json:"root"`
}

// ParseDigest decodes the optional anchor file. A malformed digest is
// reported as a warning by the caller, never as tamper.
func ParseDigest(data []byte) (*Digest, error) {
	var d Digest
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("merkleanchor: invalid merkle_digest.json: %w", err)
	}
	return &d, nil
}

// ComputeRoot builds a Merkle tree over the given path→content-hash pairs
// (typically the SHA-256 hashes of the members listed in
// checksums.sha256) and returns its root hash.
func ComputeRoot(pathHashes map[string]string) string {
	paths := make([]string, 0, len(pathHashes))
	for p := range pathHashes {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	if len(paths) == 0 {
		return ""
	}

	level := make([]string, len(paths))
	for i, p := range paths {
		level[i] = leafHash(p, pathHashes[p])
	}

	for len(level) > 1 {
		level = nextLevel(level)
	}
	return level[0]
}

func leafHash(path, contentHash string) string {
	var buf bytes.Buffer
	buf.WriteString(leafDomain)
	buf.WriteByte(0)
	buf.WriteString(path)
	buf.WriteByte(0)
	buf.WriteString(contentHash)
	sum := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:])
}

func nextLevel(level []string) []string {
	if len(level)%2 != 0 {
		level = append(level, level[len(level)-1])
	}
	next := make([]string, len(level)/2)
	for i := 0; i < len(level); i += 2 {
		next[i/2] = nodeHash(level[i], level[i+1])
	}
	return next
}

func nodeHash(left, right string) string {
	var buf bytes.Buffer
	buf.WriteString(nodeDomain)
	buf.WriteByte(0)
	l, _ := hex.DecodeString(left)
	r, _ := hex.DecodeString(right)
	buf.Write(l)
	buf.Write(r)
	sum := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:])
}

// Check recomputes the root from the checksummed member set and compares
// it to the packed digest's claimed root. It always returns a warning
// string on mismatch, never an error — this signal is additive-only.
func Check(digest *Digest, pathHashes map[string]string) (warning string) {
	computed := ComputeRoot(pathHashes)
	if digest.Root == "" {
		return "derived/merkle_digest.json present but has no root field"
	}
	if computed != digest.Root {
		return fmt.Sprintf("merkle anchor mismatch (recomputed: %s, claimed: %s) — informational only, does not affect verdict", computed, digest.Root)
	}
	return ""
}

// CanonicalLeafBytes exposes the hash function used to mix a value into
// the anchor, via the shared canonicalizer, for callers that want to
// anchor arbitrary JSON values rather than raw content hashes.
func CanonicalLeafBytes(path string, v interface{}) (string, error) {
	h, err := canonicalize.CanonicalHash(v)
	if err != nil {
		return "", err
	}
	return leafHash(path, h), nil
}
