package logger

import "testing"

func TestSanitizeKVsRedactsSecrets(t *testing.T) {
	out := sanitizeKVs([]interface{}{
		"api_key", "gsk_live_123",
		"course_id", "c1",
		"header", "Bearer abc.def.ghi",
		"dangling",
	})
	if len(out) != 7 {
		t.Fatalf("len: want=7 got=%d", len(out))
	}
	if out[1] != "[REDACTED]" {
		t.Fatalf("api_key not redacted: %v", out[1])
	}
	if out[3] != "c1" {
		t.Fatalf("course_id changed: %v", out[3])
	}
	if out[5] != "[REDACTED]" {
		t.Fatalf("bearer header not redacted: %v", out[5])
	}
	if out[6] != "dangling" {
		t.Fatalf("dangling key dropped: %v", out[6])
	}
}

func TestSanitizeValueNestedMap(t *testing.T) {
	got := sanitizeValue("meta", map[string]interface{}{"password": "x", "size": 12})
	m, ok := got.(map[string]interface{})
	if !ok {
		t.Fatalf("expected map, got %T", got)
	}
	if m["password"] != "[REDACTED]" || m["size"] != 12 {
		t.Fatalf("unexpected map: %#v", m)
	}
}

func TestLevelFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	if lvl := levelFromEnv(0); lvl.String() != "warn" {
		t.Fatalf("level: want=warn got=%s", lvl)
	}
	t.Setenv("LOG_LEVEL", "loud")
	if lvl := levelFromEnv(0); lvl.String() != "info" {
		t.Fatalf("invalid level should fall back, got=%s", lvl)
	}
}
