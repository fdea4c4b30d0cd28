package ids

import "testing"

func TestContainerIDRoundTrip(t *testing.T) {
	id := ContainerID("CHEST", 12, 40, -9)
	typ, x, y, z, ok := ParseContainerID(id)
	if !ok {
		t.Fatalf("ParseContainerID failed for %q", id)
	}
	if typ != "CHEST" || x != 12 || y != 40 || z != -9 {
		t.Fatalf("unexpected parse result: typ=%q x=%d y=%d z=%d", typ, x, y, z)
	}
}

func TestParseContainerIDRejectsInvalid(t *testing.T) {
	tests := []string{
		"",
		"CHEST",
		"@1,2,3",
		"CHEST@1,2",
		"CHEST@1,2,x",
	}
	for _, tc := range tests {
		if _, _, _, _, ok := ParseContainerID(tc); ok {
			t.Fatalf("expected parse failure for %q", tc)
		}
	}
}

func TestEntityIDParsesBack(t *testing.T) {
	id := EntityID("W", 42)
	if id != "W000042" {
		t.Fatalf("unexpected id %q", id)
	}
	n, ok := ParseUintAfterPrefix("W", id)
	if !ok || n != 42 {
		t.Fatalf("parse mismatch: n=%d ok=%v", n, ok)
	}
	if _, ok := ParseUintAfterPrefix("I", id); ok {
		t.Fatalf("expected prefix mismatch")
	}
}
