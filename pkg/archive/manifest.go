package archive

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// Manifest is the pack-level metadata member (spec.md §3, manifest.json).
type Manifest struct {
	TranscriptID        string `json:"transcript_id"`
	ConstitutionVersion string `json:"constitution_version"`
	ConstitutionHash    string `json:"constitution_hash"`
	CreatedAtMs         int64  `json:"created_at_ms"`
	ToolVersion         string `json:"tool_version"`
	SchemaVersion       string `json:"schema_version,omitempty"`
}

// SupportedSchemaVersions are the manifest.schema_version values this
// verifier was built against. A manifest outside this range is not a
// tamper signal — it is advisory metadata the producer attached — so
// ParseManifest never fails on it; callers surface a warning instead.
var SupportedSchemaVersions, _ = semver.NewConstraint(">= 1.0.0, < 2.0.0")

// ParseManifest decodes manifest bytes, tolerating unknown fields. A
// manifest.json that cannot be decoded into Manifest at all is
// PackMalformed: the verifier cannot establish even the pack's identity.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		// Unknown fields are common across manifest producer versions;
		// retry permissively so only structurally-broken JSON is fatal.
		var lenient Manifest
		if err2 := json.Unmarshal(data, &lenient); err2 != nil {
			return nil, fmt.Errorf("%w: manifest.json: %v", ErrPackMalformed, err)
		}
		return &lenient, nil
	}
	return &m, nil
}

// SchemaVersionWarning reports a non-fatal mismatch between the manifest's
// declared schema_version and the versions this verifier supports.
func SchemaVersionWarning(m *Manifest) string {
	if m.SchemaVersion == "" {
		return ""
	}
	v, err := semver.NewVersion(m.SchemaVersion)
	if err != nil {
		return fmt.Sprintf("manifest.schema_version %q is not valid semver", m.SchemaVersion)
	}
	if !SupportedSchemaVersions.Check(v) {
		return fmt.Sprintf("manifest.schema_version %q is outside the supported range (%s)", m.SchemaVersion, SupportedSchemaVersions.String())
	}
	return ""
}
