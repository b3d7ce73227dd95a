package version

import (
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	info := Get()
	switch {
	case info.Version == "":
		t.Error("version should not be empty")
	case info.Commit == "":
		t.Error("commit should not be empty")
	case info.Date == "":
		t.Error("date should not be empty")
	}

	if Version() != info.Version {
		t.Errorf("Version (%s) should match Get().Version (%s)", Version(), info.Version)
	}
}

func TestString(t *testing.T) {
	s := String()
	for _, part := range []string{"version=", "commit=", "date="} {
		if !strings.Contains(s, part) {
			t.Errorf("String should contain %q, got %q", part, s)
		}
	}
}
