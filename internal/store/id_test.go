package store

import (
	"strings"
	"testing"
	"time"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "Hello World", want: "hello-world"},
		{name: "punctuation", in: "  Go: tips & tricks!  ", want: "go-tips-tricks"},
		{name: "accents", in: "Café crème", want: "cafe-creme"},
		{name: "empty", in: "???", want: "post"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Slugify(tt.in); got != tt.want {
				t.Fatalf("Slugify(%q)=%q want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestMonthAlias(t *testing.T) {
	alias, name := MonthAlias(time.Date(2024, time.March, 9, 0, 0, 0, 0, time.UTC))
	if alias != "2024-03" || name != "March 2024" {
		t.Fatalf("unexpected month alias %s (%s)", alias, name)
	}
}

func TestUniqueAlias(t *testing.T) {
	t.Run("free", func(t *testing.T) {
		got, err := UniqueAlias("hello", func(string) (bool, error) { return false, nil })
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "hello" {
			t.Fatalf("expected hello, got %s", got)
		}
	})

	t.Run("empty", func(t *testing.T) {
		if _, err := UniqueAlias("", nil); err == nil {
			t.Fatal("expected error for empty alias")
		}
	})

	t.Run("retries on collision", func(t *testing.T) {
		calls := 0
		exists := func(string) (bool, error) {
			calls++
			return calls < 3, nil
		}
		got, err := UniqueAlias("hello", exists)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.HasPrefix(got, "hello-") || len(got) != len("hello-")+aliasSuffixLen {
			t.Fatalf("unexpected alias %q", got)
		}
		if calls != 3 {
			t.Fatalf("expected 3 calls, got %d", calls)
		}
	})

	t.Run("gives up", func(t *testing.T) {
		if _, err := UniqueAlias("hello", func(string) (bool, error) { return true, nil }); err == nil {
			t.Fatal("expected error when every alias is taken")
		}
	})
}
