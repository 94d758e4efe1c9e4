package doses

import (
	"testing"
	"time"
)

func TestKey_TruncatesToMinute(t *testing.T) {
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	a := NewKey("med-1", base.Add(3*time.Second))
	b := NewKey("med-1", base.Add(42*time.Second))
	if a != b {
		t.Fatalf("timestamps within the same minute must map to the same key: %v vs %v", a, b)
	}

	c := NewKey("med-1", base.Add(time.Minute))
	if a == c {
		t.Fatalf("different minutes must map to different keys")
	}
}

func TestKey_StringRoundTrip(t *testing.T) {
	key := NewKey("med-1", time.Date(2026, 3, 1, 20, 30, 0, 0, time.UTC))

	parsed, err := ParseKey(key.String())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed != key {
		t.Fatalf("round trip mismatch: %v vs %v", parsed, key)
	}
}

func TestParseKey_Invalid(t *testing.T) {
	for _, s := range []string{"", "med-1", "@2026-03-01T08:00:00Z", "med-1@", "med-1@not-a-time"} {
		if _, err := ParseKey(s); err == nil {
			t.Fatalf("expected error parsing %q", s)
		}
	}
}
