package weblog

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestLimitLength(t *testing.T) {
	tests := []struct {
		name string
		text string
		max  int
		want string
	}{
		{name: "short", text: "hello", max: 10, want: "hello"},
		{name: "exact", text: "hello", max: 5, want: "hello"},
		{name: "cut", text: "hello world", max: 8, want: "hello..."},
		{name: "tiny max", text: "hello", max: 2, want: "he"},
		{name: "runes", text: "ääääääää", max: 6, want: "äää..."},
		{name: "no limit", text: "hello", max: 0, want: "hello"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LimitLength(tt.text, tt.max); got != tt.want {
				t.Fatalf("LimitLength(%q, %d) = %q, want %q", tt.text, tt.max, got, tt.want)
			}
		})
	}
}

func TestCleanTitle(t *testing.T) {
	if got := cleanTitle("  Fish &amp; Chips &lt;3 ", 100); got != "Fish & Chips <3" {
		t.Fatalf("unexpected title %q", got)
	}
	long := strings.Repeat("x", 250)
	got := cleanTitle(long, 100)
	if utf8.RuneCountInString(got) != 100 || !strings.HasSuffix(got, "...") {
		t.Fatalf("expected 100 runes ending in ellipsis, got %d %q", utf8.RuneCountInString(got), got)
	}
}

func TestTagsString(t *testing.T) {
	got := tagsString([]string{" go ", "", `say "hi"`, "xml"})
	if got != `"go","say hi","xml"` {
		t.Fatalf("unexpected tags string %s", got)
	}
	if tagsString(nil) != "" {
		t.Fatal("expected empty tags string")
	}
}

func TestReferencedGUIDs(t *testing.T) {
	summary := `see ~/getfile?guid=0F8FAD5B-D9CB-469F-A165-70867728950E`
	body := "<img src=\"https://x/getfile?guid=7c9e6679-7425-40de-944b-e07fc1f90ae7\">\n<a href=\"/GetFile?guid=not-a-guid\">x</a>"

	got := referencedGUIDs(summary, body)
	if len(got) != 2 {
		t.Fatalf("expected 2 guids, got %v", got)
	}
	for _, guid := range []string{"0f8fad5b-d9cb-469f-a165-70867728950e", "7c9e6679-7425-40de-944b-e07fc1f90ae7"} {
		if _, ok := got[guid]; !ok {
			t.Fatalf("expected %s in %v", guid, got)
		}
	}
}
