package sessionstore

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/session.schema.json
var recordSchemaJSON string

const recordSchemaURL = "https://voxelquarry.ai/schemas/session.schema.json"

var (
	recordSchemaOnce sync.Once
	recordSchema     *jsonschema.Schema
	recordSchemaErr  error
)

// RecordSchema returns the compiled schema every persisted record must satisfy.
func RecordSchema() (*jsonschema.Schema, error) {
	recordSchemaOnce.Do(func() {
		recordSchema, recordSchemaErr = jsonschema.CompileString(recordSchemaURL, recordSchemaJSON)
	})
	return recordSchema, recordSchemaErr
}

func validateRecord(msg json.RawMessage) error {
	s, err := RecordSchema()
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(msg))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	return s.Validate(v)
}
