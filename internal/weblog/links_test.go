package weblog

import (
	"testing"

	"weblogd/internal/models"
)

func TestNewLinks(t *testing.T) {
	links, err := NewLinks("https://example.com/blogs/")
	if err != nil {
		t.Fatalf("new links: %v", err)
	}
	if links.Root() != "https://example.com/blogs" {
		t.Fatalf("unexpected root %s", links.Root())
	}
	if got := links.DocumentURL(&models.Document{AliasPath: "/tech/2024-03/hello"}); got != "https://example.com/blogs/tech/2024-03/hello" {
		t.Fatalf("unexpected document url %s", got)
	}
	if got := links.AttachmentURL("abc"); got != "https://example.com/blogs/getfile?guid=abc" {
		t.Fatalf("unexpected attachment url %s", got)
	}

	for _, raw := range []string{"", "/relative", "example.com"} {
		if _, err := NewLinks(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestUnresolveAndMakeAbsolute(t *testing.T) {
	links, err := NewLinks("https://example.com/blogs")
	if err != nil {
		t.Fatalf("new links: %v", err)
	}

	tests := []struct {
		name     string
		body     string
		stored   string
		absolute string
	}{
		{
			name:     "image below root",
			body:     `<p>Hi <img src="https://example.com/blogs/getfile?guid=1" alt="x"></p>`,
			stored:   `<p>Hi <img src="~/getfile?guid=1" alt="x"></p>`,
			absolute: `<p>Hi <img src="https://example.com/blogs/getfile?guid=1" alt="x"></p>`,
		},
		{
			name:     "other host untouched",
			body:     `<a href="https://other.org/x">x</a>`,
			stored:   `<a href="https://other.org/x">x</a>`,
			absolute: `<a href="https://other.org/x">x</a>`,
		},
		{
			name:     "plain text",
			body:     "no markup & more",
			stored:   "no markup & more",
			absolute: "no markup & more",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stored := links.Unresolve(tt.body)
			if stored != tt.stored {
				t.Fatalf("Unresolve = %s, want %s", stored, tt.stored)
			}
			if got := links.MakeAbsolute(stored); got != tt.absolute {
				t.Fatalf("MakeAbsolute = %s, want %s", got, tt.absolute)
			}
		})
	}

	if got := links.MakeAbsolute(`<a href="/about">a</a>`); got != `<a href="https://example.com/about">a</a>` {
		t.Fatalf("expected root-relative link to use the origin, got %s", got)
	}
	if got := links.MakeAbsolute(`<a href="//cdn.example.com/x">a</a>`); got != `<a href="//cdn.example.com/x">a</a>` {
		t.Fatalf("expected protocol-relative link untouched, got %s", got)
	}
}

func TestStripTags(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{body: "<p>Hello <b>world</b></p><p>again</p>", want: "Hello world again"},
		{body: "a &amp; b", want: "a & b"},
		{body: "<script>alert(1)</script>text<style>p{}</style>", want: "text"},
		{body: "line<br/>break", want: "line break"},
		{body: "", want: ""},
	}
	for _, tt := range tests {
		if got := StripTags(tt.body); got != tt.want {
			t.Fatalf("StripTags(%q) = %q, want %q", tt.body, got, tt.want)
		}
	}
}
