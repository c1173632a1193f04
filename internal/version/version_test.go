package version

import (
	"strings"
	"testing"
)

func TestInfo(t *testing.T) {
	v, c, d := Info()
	switch {
	case v == "":
		t.Error("version should not be empty")
	case c == "":
		t.Error("commit should not be empty")
	case d == "":
		t.Error("date should not be empty")
	}
}

func TestString(t *testing.T) {
	s := String()
	for _, part := range []string{Service, "version=", "commit=", "date="} {
		if !strings.Contains(s, part) {
			t.Errorf("String should contain %q, got %q", part, s)
		}
	}
}

func TestFields(t *testing.T) {
	fields := Fields()
	v, _, _ := Info()
	if fields["service"] != Service || fields["version"] != v {
		t.Fatalf("unexpected fields: %+v", fields)
	}
}
