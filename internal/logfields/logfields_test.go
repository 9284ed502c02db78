package logfields

import (
	"log/slog"
	"testing"
	"time"
)

// TestHelperKeyNames verifies string-based helper key/value stability.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		attrKey string
		attrVal string
		attr    interface{}
	}{
		{"BuildID", KeyBuildID, "b-123", BuildID("b-123")},
		{"Source", KeySource, "/srv/notes", Source("/srv/notes")},
		{"Output", KeyOutput, "/srv/public", Output("/srv/public")},
		{"Path", KeyPath, "notes/a.md", Path("notes/a.md")},
		{"Target", KeyTarget, "notes/a.html", Target("notes/a.html")},
		{"Stage", KeyStage, "render", Stage("render")},
		{"Trigger", KeyTrigger, "watch", Trigger("watch")},
		{"Addr", KeyAddr, "127.0.0.1:8080", Addr("127.0.0.1:8080")},
	}

	for _, tc := range cases {
		a := tc.attr.(slog.Attr)
		if a.Key != tc.attrKey {
			// Key drift would break log ingestion schemas.
			t.Fatalf("%s: expected key %s, got %s", tc.name, tc.attrKey, a.Key)
		}
		if got := a.Value.String(); got != tc.attrVal { // Value is slog.Value
			t.Fatalf("%s: expected value %s, got %v", tc.name, tc.attrVal, got)
		}
	}
}

// TestNumericHelpers verifies keys for counter and duration helpers.
func TestNumericHelpers(t *testing.T) {
	if v := Jobs(4); v.Key != KeyJobs {
		t.Fatalf("Jobs key mismatch: %s", v.Key)
	}
	if v := Pages(10); v.Key != KeyPages {
		t.Fatalf("Pages key mismatch: %s", v.Key)
	}
	if v := Assets(3); v.Key != KeyAssets {
		t.Fatalf("Assets key mismatch: %s", v.Key)
	}
	if v := Warnings(2); v.Key != KeyWarnings {
		t.Fatalf("Warnings key mismatch: %s", v.Key)
	}
	if v := Failed(1); v.Key != KeyFailed {
		t.Fatalf("Failed key mismatch: %s", v.Key)
	}
	if v := Port(8080); v.Key != KeyPort {
		t.Fatalf("Port key mismatch: %s", v.Key)
	}
	if v := Clients(2); v.Key != KeyClients {
		t.Fatalf("Clients key mismatch: %s", v.Key)
	}
	v := DurationMS(12500 * time.Microsecond)
	if v.Key != KeyDurationMS {
		t.Fatalf("DurationMS key mismatch: %s", v.Key)
	}
	if ms := v.Value.Float64(); ms != 12.5 {
		t.Fatalf("DurationMS value mismatch: %v", ms)
	}
}

// TestErrorHelper ensures Error() handles nil and non-nil errors predictably.
func TestErrorHelper(t *testing.T) {
	attr := Error(nil)
	if attr.Key != KeyError {
		t.Fatalf("Error key mismatch: %s", attr.Key)
	}
	if attr.Value.String() != "" {
		t.Fatalf("Expected empty error string, got %s", attr.Value.String())
	}
	attr = Error(errTest{})
	if attr.Value.String() != "err-test" {
		t.Fatalf("Expected 'err-test', got %s", attr.Value.String())
	}
}

type errTest struct{}

func (e errTest) Error() string { return "err-test" }
