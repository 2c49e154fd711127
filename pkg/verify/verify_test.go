package verify

import (
	"archive/zip"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"testing"

	"github.com/pactaudit/verifier/pkg/canonicalize"
	"github.com/pactaudit/verifier/pkg/constitution"
	"github.com/pactaudit/verifier/pkg/hashchain"
	"github.com/pactaudit/verifier/pkg/rederive"
	"github.com/pactaudit/verifier/pkg/signature"
	"github.com/pactaudit/verifier/pkg/transcript"
	"github.com/pactaudit/verifier/pkg/verdict"
)

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// buildPack assembles a minimal, self-consistent pact auditor pack in
// memory: a two-round transcript (INTENT -> ACCEPT) with a correctly
// chained hash sequence, an accepted Constitution, matching checksums,
// and derived artifacts produced by calling the same rederivation engine
// Verify uses, so the rederived/packed comparison has nothing to flag.
func buildPack(t *testing.T) (packBytes []byte, constitutionText []byte) {
	t.Helper()

	intentID := "intent-test-1"
	createdAtMs := int64(1000)
	constitutionText = []byte("# Standard Constitution\n\nRule 1: be honest.\n")

	genesis := hashchain.Genesis(intentID, createdAtMs)

	round0 := map[string]interface{}{
		"round_number":        0,
		"round_type":          "INTENT",
		"envelope_hash":       "aa" + strings.Repeat("0", 62),
		"previous_round_hash": genesis,
		"timestamp_ms":        1000,
	}
	h0, err := canonicalize.CanonicalHash(round0)
	if err != nil {
		t.Fatalf("canonicalize round0: %v", err)
	}

	round1 := map[string]interface{}{
		"round_number":        1,
		"round_type":          "ACCEPT",
		"envelope_hash":       "bb" + strings.Repeat("0", 62),
		"previous_round_hash": h0,
		"timestamp_ms":        2000,
	}

	transcriptDoc := map[string]interface{}{
		"transcript_version": transcript.ExpectedTranscriptVersion,
		"intent_id":          intentID,
		"created_at_ms":      createdAtMs,
		"rounds":             []interface{}{round0, round1},
	}
	transcriptBytes, err := json.Marshal(transcriptDoc)
	if err != nil {
		t.Fatalf("marshal transcript: %v", err)
	}

	tr, err := transcript.Parse(transcriptBytes)
	if err != nil {
		t.Fatalf("parse constructed transcript: %v", err)
	}

	chainReport := hashchain.Verify(tr)
	if chainReport.Status != hashchain.StatusValid {
		t.Fatalf("constructed transcript has a broken chain: %+v", chainReport.Broken)
	}
	sigReport := signature.VerifyRounds(tr.Rounds)

	constitutionHash := constitution.Hash(constitutionText)
	gate := constitution.Check(constitutionText, constitution.NewAcceptList(constitutionText), false)

	rederived := rederive.Derive(rederive.Input{
		Transcript:          tr,
		ConstitutionGate:    gate,
		HashChain:           chainReport,
		Signatures:          sigReport,
		AllowNonstandard:    false,
		ConstitutionVersion: "v1",
	})

	gcViewBytes, _ := json.Marshal(rederived.GCView)
	judgmentBytes, _ := json.Marshal(rederived.Judgment)
	insurerBytes, _ := json.Marshal(rederived.InsurerSummary)

	manifestDoc := map[string]interface{}{
		"transcript_id":        intentID,
		"constitution_version": "v1",
		"constitution_hash":    constitutionHash,
		"created_at_ms":        createdAtMs,
		"tool_version":         "pact-test-producer 0.0.1",
	}
	manifestBytes, _ := json.Marshal(manifestDoc)

	checksumLines := bytes.Buffer{}
	checksumLines.WriteString(sha256Hex(constitutionText) + "  constitution/CONSTITUTION_v1.md\n")
	checksumLines.WriteString(sha256Hex(transcriptBytes) + "  input/transcript.json\n")

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	files := map[string][]byte{
		"manifest.json":                    manifestBytes,
		"checksums.sha256":                 checksumLines.Bytes(),
		"constitution/CONSTITUTION_v1.md":  constitutionText,
		"input/transcript.json":            transcriptBytes,
		"derived/gc_view.json":             gcViewBytes,
		"derived/judgment.json":            judgmentBytes,
		"derived/insurer_summary.json":     insurerBytes,
	}
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := w.Write(content); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}

	return buf.Bytes(), constitutionText
}

func TestVerify_CleanPackIsValid(t *testing.T) {
	packBytes, constitutionText := buildPack(t)

	report := Verify(packBytes, Options{StandardConstitutionText: [][]byte{constitutionText}})

	if report.Status != verdict.StatusValid || !report.OK {
		t.Fatalf("expected VALID/ok, got status=%s ok=%v mismatches=%v warnings=%v", report.Status, report.OK, report.Mismatches, report.Warnings)
	}
	if !report.MoneyMoved {
		t.Error("expected money_moved=true for a clean ACCEPT")
	}
}

func TestVerify_MalformedArchiveIsIndeterminate(t *testing.T) {
	report := Verify([]byte("not a zip file"), Options{})
	if report.Status != verdict.StatusIndeterminate || report.OK {
		t.Errorf("expected INDETERMINATE/false, got %s/%v", report.Status, report.OK)
	}
}

func TestVerify_MissingRequiredMemberIsIndeterminate(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("manifest.json")
	_, _ = w.Write([]byte(`{}`))
	_ = zw.Close()

	report := Verify(buf.Bytes(), Options{})
	if report.Status != verdict.StatusIndeterminate || report.OK {
		t.Errorf("expected INDETERMINATE/false, got %s/%v", report.Status, report.OK)
	}
}

func TestVerify_TamperedChecksumMemberIsTampered(t *testing.T) {
	packBytes, constitutionText := buildPack(t)

	zr, err := zip.NewReader(bytes.NewReader(packBytes), int64(len(packBytes)))
	if err != nil {
		t.Fatalf("reopen zip: %v", err)
	}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range zr.File {
		rc, _ := f.Open()
		content := new(bytes.Buffer)
		_, _ = content.ReadFrom(rc)
		_ = rc.Close()

		data := content.Bytes()
		if f.Name == "input/transcript.json" {
			data = append(data, ' ') // single extra byte breaks its listed checksum
		}
		w, _ := zw.Create(f.Name)
		_, _ = w.Write(data)
	}
	_ = zw.Close()

	report := Verify(buf.Bytes(), Options{StandardConstitutionText: [][]byte{constitutionText}})
	if report.Status != verdict.StatusTampered || report.OK {
		t.Errorf("expected TAMPERED/false after tampering a checksummed member, got %s/%v", report.Status, report.OK)
	}
	if report.ChecksumsOK {
		t.Error("expected checksums_ok=false")
	}
}
