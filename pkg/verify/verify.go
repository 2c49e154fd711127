// Package verify is the public entry point: it wires archive loading,
// transcript parsing, the three independent integrity checks, artifact
// rederivation and comparison, the constitution gate, and the optional
// Merkle anchor into the single VerdictReducer call, per spec.md §6.
// Grounded on the teacher's core/cmd/helm/verify_cmd.go orchestration of
// verifier.VerifyBundle plus additional checks, generalized here into a
// reusable library function instead of being wired directly into a CLI.
package verify

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/pactaudit/verifier/pkg/archive"
	"github.com/pactaudit/verifier/pkg/checksum"
	"github.com/pactaudit/verifier/pkg/compare"
	"github.com/pactaudit/verifier/pkg/constitution"
	"github.com/pactaudit/verifier/pkg/hashchain"
	"github.com/pactaudit/verifier/pkg/merkleanchor"
	"github.com/pactaudit/verifier/pkg/rederive"
	"github.com/pactaudit/verifier/pkg/signature"
	"github.com/pactaudit/verifier/pkg/transcript"
	"github.com/pactaudit/verifier/pkg/verdict"
)

// ToolVersion is stamped into every Report's tool_version field.
const ToolVersion = "pact-verify 1.0.0"

// Options configures a single Verify call (spec.md §6's language-neutral
// options struct). Sha256 is an injectable hashing seam for hosts whose
// sha256 primitive is asynchronous; nil uses crypto/sha256 directly. It is
// applied only to the member hashes behind the optional Merkle anchor
// check; checksum, hash-chain, canonical and constitution hashes always
// use crypto/sha256.
type Options struct {
	AllowNonstandard         bool
	StandardConstitutionText [][]byte
	Sha256                   func([]byte) [32]byte
}

// Verify is a pure function from archive bytes to Report: no I/O beyond
// the supplied buffer, no persisted state, no environment reads
// (spec.md §5, §6).
func Verify(archiveBytes []byte, opts Options) verdict.Report {
	ark, err := archive.Open(archiveBytes)
	if err != nil {
		return indeterminate(fmt.Sprintf("PackMalformed: %v", err))
	}

	resolved, err := archive.Resolve(ark)
	if err != nil {
		return indeterminate(err.Error())
	}

	manifest, err := archive.ParseManifest(resolved.Members["manifest"].Bytes)
	if err != nil {
		return indeterminate(fmt.Sprintf("PackMalformed: %v", err))
	}
	var warnings []string
	if w := archive.SchemaVersionWarning(manifest); w != "" {
		warnings = append(warnings, w)
	}

	tr, err := transcript.Parse(resolved.Members["transcript"].Bytes)
	if err != nil {
		return indeterminate(fmt.Sprintf("TranscriptParseError: %v", err))
	}

	chainReport := hashchain.Verify(tr)
	warnings = append(warnings, chainReport.Warnings...)

	sigReport := signature.VerifyRounds(tr.Rounds)

	checksumReport := checksum.Verify(resolved.Members["checksums"].Bytes, ark.Get)

	accept := constitution.NewAcceptList(opts.StandardConstitutionText...)
	gate := constitution.Check(resolved.Members["constitution"].Bytes, accept, opts.AllowNonstandard)
	if gate.Mismatch != "" {
		warnings = append(warnings, gate.Mismatch)
	}
	if manifest.ConstitutionHash != "" && manifest.ConstitutionHash != gate.PackedHash {
		warnings = append(warnings, fmt.Sprintf("manifest.constitution_hash (%s) does not match the packed constitution's hash (%s)", manifest.ConstitutionHash, gate.PackedHash))
	}

	rederived := rederive.Derive(rederive.Input{
		Transcript:          tr,
		ConstitutionGate:    gate,
		HashChain:           chainReport,
		Signatures:          sigReport,
		AllowNonstandard:    opts.AllowNonstandard,
		ConstitutionVersion: manifest.ConstitutionVersion,
	})

	packedDocs, decodeWarnings := decodePackedArtifacts(resolved)
	warnings = append(warnings, decodeWarnings...)

	rederivedDocs := map[compare.Kind]interface{}{
		compare.KindGCView:         rederived.GCView,
		compare.KindJudgment:       rederived.Judgment,
		compare.KindInsurerSummary: rederived.InsurerSummary,
	}
	mismatches, err := compare.CompareAll(packedDocs, rederivedDocs)
	if err != nil {
		return indeterminate(fmt.Sprintf("RederivationMismatch: %v", err))
	}

	hasher := opts.Sha256
	if hasher == nil {
		hasher = sha256.Sum256
	}

	if dm, ok := resolved.Members["merkle_digest"]; ok {
		if w := checkMerkleAnchor(dm.Bytes, resolved.Members["checksums"].Bytes, ark.Get, hasher); w != "" {
			warnings = append(warnings, w)
		}
	} else {
		warnings = append(warnings, "derived/merkle_digest.json not present (optional)")
	}

	mismatchStrings := make([]string, 0, len(mismatches)+len(chainBrokenMismatch(chainReport))+len(sigFailureMismatches(sigReport))+len(checksumReport.Failures))
	mismatchStrings = append(mismatchStrings, chainBrokenMismatch(chainReport)...)
	mismatchStrings = append(mismatchStrings, sigFailureMismatches(sigReport)...)
	mismatchStrings = append(mismatchStrings, checksumReport.Failures...)
	for _, m := range mismatches {
		mismatchStrings = append(mismatchStrings, m.String())
	}

	signals := verdict.Signals{
		ChecksumsStatus:  string(checksumReport.Status),
		HashChainStatus:  string(chainReport.Status),
		SignaturesStatus: string(sigReport.Status),
		RecomputeMatched: len(mismatches) == 0,
		ConstitutionOK:   gate.ConstitutionOK,
		AllowNonstandard: opts.AllowNonstandard,
	}

	report := verdict.Reduce(signals, mismatchStrings, dedupeSorted(warnings), ToolVersion)
	report.MoneyMoved = rederived.GCView.ExecutiveSummary.MoneyMoved
	report.Judgment = string(rederived.Judgment.DblDetermination)
	report.Confidence = rederived.Judgment.Confidence
	return report
}

func indeterminate(reason string) verdict.Report {
	return verdict.Report{
		Version:     verdict.ReportVersion,
		OK:          false,
		ChecksumsOK: false,
		RecomputeOK: false,
		Mismatches:  []string{reason},
		ToolVersion: ToolVersion,
		Status:      verdict.StatusIndeterminate,
	}
}

func chainBrokenMismatch(r hashchain.Report) []string {
	if r.Broken == nil {
		return nil
	}
	return []string{r.Broken.Error()}
}

func sigFailureMismatches(r signature.Report) []string {
	if r.Status != signature.StatusInvalid {
		return nil
	}
	return r.Failures
}

func decodePackedArtifacts(resolved *archive.Resolved) (map[compare.Kind]interface{}, []string) {
	docs := make(map[compare.Kind]interface{})
	var warnings []string

	pairs := []struct {
		key  string
		kind compare.Kind
	}{
		{"gc_view", compare.KindGCView},
		{"judgment", compare.KindJudgment},
		{"insurer_summary", compare.KindInsurerSummary},
	}
	for _, p := range pairs {
		member, ok := resolved.Members[p.key]
		if !ok {
			warnings = append(warnings, fmt.Sprintf("derived/%s.json not present", p.key))
			continue
		}
		var doc map[string]interface{}
		if err := json.Unmarshal(member.Bytes, &doc); err != nil {
			warnings = append(warnings, fmt.Sprintf("derived/%s.json is not valid JSON: %v", p.key, err))
			continue
		}
		docs[p.kind] = doc
	}
	return docs, warnings
}

func checkMerkleAnchor(data, checksumsData []byte, lookup func(string) ([]byte, bool), hasher func([]byte) [32]byte) string {
	digest, err := merkleanchor.ParseDigest(data)
	if err != nil {
		return fmt.Sprintf("derived/merkle_digest.json malformed: %v", err)
	}

	entries, _ := checksum.Parse(checksumsData)
	if len(entries) == 0 {
		return "derived/merkle_digest.json present but no checksummed members to anchor against"
	}
	pathHashes := make(map[string]string, len(entries))
	for _, e := range entries {
		if b, ok := lookup(e.Path); ok {
			sum := hasher(b)
			pathHashes[e.Path] = hex.EncodeToString(sum[:])
		}
	}
	return merkleanchor.Check(digest, pathHashes)
}

func dedupeSorted(warnings []string) []string {
	seen := make(map[string]bool, len(warnings))
	out := make([]string, 0, len(warnings))
	for _, w := range warnings {
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}
