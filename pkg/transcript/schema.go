package transcript

import (
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// transcriptSchemaText is a loose JSON Schema pre-check: it only enforces
// the shapes that encoding/json's strict decode can't express cheaply
// (e.g. that round_type is one of the closed enum values). The typed
// decode in parse.go remains the source of truth for every structural
// invariant in spec.md §3 — this schema exists to surface malformed
// documents with a schema-shaped error before the stricter decode runs.
const transcriptSchemaText = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["transcript_version", "intent_id", "created_at_ms", "rounds"],
  "properties": {
    "transcript_version": {"type": "string"},
    "intent_id": {"type": "string"},
    "created_at_ms": {"type": "integer"},
    "rounds": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["round_number", "round_type", "envelope_hash", "previous_round_hash", "timestamp_ms"],
        "properties": {
          "round_number": {"type": "integer"},
          "round_type": {
            "type": "string",
            "enum": ["INTENT", "ASK", "BID", "COUNTER", "ACCEPT", "REJECT", "ABORT"]
          },
          "envelope_hash": {"type": "string"},
          "previous_round_hash": {"type": "string"},
          "timestamp_ms": {"type": "integer"}
        }
      }
    }
  }
}`

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func compiledTranscriptSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		const schemaURL = "https://pactaudit.local/schema/transcript.schema.json"
		if err := c.AddResource(schemaURL, strings.NewReader(transcriptSchemaText)); err != nil {
			compileErr = err
			return
		}
		compiledSchema, compileErr = c.Compile(schemaURL)
	})
	return compiledSchema, compileErr
}

// validateSchema pre-validates a generically-decoded transcript document
// against the embedded schema, before the strict typed parse in parse.go.
func validateSchema(doc interface{}) error {
	schema, err := compiledTranscriptSchema()
	if err != nil {
		return err
	}
	return schema.Validate(doc)
}
