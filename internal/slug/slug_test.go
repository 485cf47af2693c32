//go:build unit

package slug

import "testing"

func TestMake(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "Dragon Lore", "dragon-lore"},
		{"diacritics", "Orta Çağ Tarihi", "orta-cag-tarihi"},
		{"whitespace runs", "a \t b\n\nc", "a-b-c"},
		{"invalid chars", "Hello, World! (v2)", "hello-world-v2"},
		{"dash runs", "a -- b --- c", "a-b-c"},
		{"leading trailing", " -trimmed- ", "trimmed"},
		{"underscore kept", "snake_case title", "snake_case-title"},
		{"empty", "", ""},
		{"only invalid", "???", ""},
		{"already slug", "dragon-lore", "dragon-lore"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Make(tc.in); got != tc.want {
				t.Errorf("Make(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestMakeIdempotent(t *testing.T) {
	inputs := []string{"Dragon Lore", "Orta Çağ Tarihi", "  weird -- Input ??", "çöğüşı", ""}
	for _, in := range inputs {
		once := Make(in)
		twice := Make(once)
		if once != twice {
			t.Errorf("Make not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestMakeAlphabet(t *testing.T) {
	inputs := []string{"Dragon Lore", "-- edge --", "Ünlü Şarkılar", "a   b", "x!@#$%^&*()y"}
	for _, in := range inputs {
		got := Make(in)
		if len(got) > 0 && (got[0] == '-' || got[len(got)-1] == '-') {
			t.Errorf("Make(%q) = %q has leading/trailing hyphen", in, got)
		}
		for _, r := range got {
			valid := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_'
			if !valid {
				t.Errorf("Make(%q) = %q contains invalid rune %q", in, got, r)
			}
		}
	}
}
