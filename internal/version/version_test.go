package version

import "testing"

func TestForTestingRestoresOriginal(t *testing.T) {
	original := String()

	restore := ForTesting("9.9.9")
	if String() != "9.9.9" {
		t.Errorf("String() = %s; want 9.9.9", String())
	}

	restore()
	if String() != original {
		t.Errorf("String() = %s after restore; want %s", String(), original)
	}
}

func TestFormatVersion(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"dev", "dev"},
		{"0.1.0", "v0.1.0"},
		{"v0.1.0", "v0.1.0"},
	}

	for _, tt := range tests {
		if got := FormatVersion(tt.input); got != tt.want {
			t.Errorf("FormatVersion(%q) = %q; want %q", tt.input, got, tt.want)
		}
	}
}
