package main

import (
	"testing"
	"time"
)

func TestParsePostMarkdown(t *testing.T) {
	input := `---
title: "  Hello, world  "
categories: [go, blogging]
tags:
  - release
slug: hello-world
date: 2024-03-01
publish: true
---

<p>First post.</p>
`
	post, publish, err := parsePostMarkdown(input)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if post.Title != "Hello, world" || post.Slug != "hello-world" {
		t.Fatalf("unexpected post %+v", post)
	}
	if len(post.Categories) != 3 || post.Categories[2] != "release" {
		t.Fatalf("unexpected categories %v", post.Categories)
	}
	if !post.DateCreated.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date %v", post.DateCreated)
	}
	if publish == nil || !*publish {
		t.Fatalf("expected publish=true, got %v", publish)
	}
	if post.Description != "<p>First post.</p>" {
		t.Fatalf("unexpected body %q", post.Description)
	}
}

func TestParsePostMarkdownErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "unclosed", input: "---\ntitle: x\n"},
		{name: "bad yaml", input: "---\ntitle: [x\n---\nbody"},
		{name: "bad date", input: "---\ntitle: x\ndate: yesterday\n---\nbody"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := parsePostMarkdown(tt.input); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestParsePostMarkdownWithoutFrontMatter(t *testing.T) {
	post, publish, err := parsePostMarkdown("just a body\n")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if publish != nil || post.Title != "" || post.Description != "just a body" {
		t.Fatalf("unexpected result %+v publish=%v", post, publish)
	}
}
