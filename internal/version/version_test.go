package version

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	Version, Commit = "v1.2.3", "abc123"
	got := String()
	if !strings.HasPrefix(got, "recyclewatch v1.2.3\n") || !strings.Contains(got, "commit: abc123") {
		t.Fatalf("unexpected version string %q", got)
	}
}
