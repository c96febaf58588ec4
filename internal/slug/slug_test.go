package slug

import "testing"

func TestGenerate(t *testing.T) {
	tests := map[string]string{
		"Launch Notes":                  "launch-notes",
		"  Launch   notes  ":            "launch-notes",
		"Go 1.22: what's new?":          "go-122-whats-new",
		"Tabs\tand\nnewlines":           "tabs-and-newlines",
		"--Release--Day--":              "release-day",
		"before - after":                "before-after",
		"Café Résumé Noël":              "cafe-resume-noel",
		"Über die Brücke":               "uber-die-brucke",
		"Q&A with the editors":          "qa-with-the-editors",
		"2026-10-19 changelog":          "2026-10-19-changelog",
		"Frontend/Backend":              "frontendbackend",
		"日本語":                           "",
		"!!!":                           "",
		"":                              "",
		"x":                             "x",
		"Already-a-slug":                "already-a-slug",
		"HTMX, Go & Valkey: a tutorial": "htmx-go-valkey-a-tutorial",
	}

	for in, want := range tests {
		if got := Generate(in); got != want {
			t.Errorf("Generate(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGenerateIsStable(t *testing.T) {
	for _, in := range []string{"Launch Notes", "Crème brûlée recipes", "a -- b", "Tech & Science"} {
		once := Generate(in)
		if twice := Generate(once); twice != once {
			t.Errorf("Generate not stable for %q: %q then %q", in, once, twice)
		}
		if once != "" && !Valid(once) {
			t.Errorf("Generate(%q) = %q is not a valid slug", in, once)
		}
	}
}

func TestGenerateMax(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"Writing fast Go services", 100, "writing-fast-go-services"},
		{"Writing fast Go services", 12, "writing-fast"},
		{"Writing fast Go services", 10, "writing"},
		{"Supercalifragilistic", 5, "super"},
		{"Go", 2, "go"},
	}

	for _, tt := range tests {
		got := GenerateMax(tt.in, tt.max)
		if got != tt.want {
			t.Errorf("GenerateMax(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
		if len(got) > tt.max {
			t.Errorf("GenerateMax(%q, %d) exceeds limit: %q", tt.in, tt.max, got)
		}
	}
}

func TestValid(t *testing.T) {
	tests := map[string]bool{
		"hello-world":  true,
		"a":            true,
		"2026-plans":   true,
		"":             false,
		"Hello":        false,
		"-lead":        false,
		"trail-":       false,
		"double--dash": false,
		"under_score":  false,
		"café":         false,
		"with space":   false,
	}

	for in, want := range tests {
		if got := Valid(in); got != want {
			t.Errorf("Valid(%q) = %v, want %v", in, got, want)
		}
	}
}
