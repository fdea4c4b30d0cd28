package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"voxelquarry.ai/internal/protocol"
)

func TestSchemas_ValidateSamples(t *testing.T) {
	compile := func(name string) *jsonschema.Schema {
		t.Helper()
		p := filepath.Join("..", "..", "schemas", name)
		s, err := jsonschema.Compile(p)
		if err != nil {
			t.Fatalf("compile %s: %v", name, err)
		}
		return s
	}

	// Round-trips through JSON so the schema sees what a client would.
	validate := func(s *jsonschema.Schema, msg any) {
		t.Helper()
		b, err := json.Marshal(msg)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		var v any
		if err := json.Unmarshal(b, &v); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if err := s.Validate(v); err != nil {
			t.Fatalf("validate %s: %v", b, err)
		}
	}

	validate(compile("hello.schema.json"), protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		Owner:           "alice",
	})
	validate(compile("status.schema.json"), protocol.StatusMsg{
		Type:            protocol.TypeStatus,
		ProtocolVersion: protocol.Version,
		Tick:            42,
		Owner:           "alice",
		Sessions: []protocol.SessionStatus{{
			SessionID: "S1",
			World:     "OVERWORLD",
			Pattern:   "QUARRY",
			Speed:     "NORMAL",
			Phase:     "IDLE",
			Layer:     30,
			Percent:   12.5,
		}},
	})
	validate(compile("notice.schema.json"), protocol.NoticeMsg{
		Type:            protocol.TypeNotice,
		ProtocolVersion: protocol.Version,
		Tick:            43,
		SessionID:       "S1",
		World:           "OVERWORLD",
		Kind:            "STORAGE_BLOCKED",
	})
	validate(compile("error.schema.json"), protocol.NewError(protocol.ErrNotFound, "no such session"))

	var bad any
	_ = json.Unmarshal([]byte(`{"type":"NOTICE","protocol_version":"1.0","tick":1,"session_id":"S1","world":"W","kind":"EXPLODED"}`), &bad)
	if err := compile("notice.schema.json").Validate(bad); err == nil {
		t.Fatalf("expected unknown kind to be rejected")
	}
}
