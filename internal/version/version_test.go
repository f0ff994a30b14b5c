package version

import "testing"

func TestString(t *testing.T) {
	Version, Commit, Date = "1.2.3", "abc123", "2026-01-01"
	t.Cleanup(func() { Version, Commit, Date = "dev", "unknown", "unknown" })

	if got, want := String(), "1.2.3 (commit abc123, built 2026-01-01)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
