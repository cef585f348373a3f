package main

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"weblogd/internal/weblog"
)

// postFrontMatter is the YAML header of a post file.
type postFrontMatter struct {
	Title      string   `yaml:"title"`
	Categories []string `yaml:"categories"`
	Tags       []string `yaml:"tags"`
	Slug       string   `yaml:"slug"`
	Date       string   `yaml:"date"`
	Publish    *bool    `yaml:"publish"`
}

var frontMatterDateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parsePostMarkdown splits an optional front matter block from the body.
// The returned publish flag is nil when the header does not set one.
func parsePostMarkdown(input string) (weblog.Post, *bool, error) {
	var post weblog.Post
	content := input

	lines := strings.Split(input, "\n")
	if len(lines) >= 2 && strings.TrimSpace(lines[0]) == "---" {
		end := -1
		for i := 1; i < len(lines); i++ {
			if strings.TrimSpace(lines[i]) == "---" {
				end = i
				break
			}
		}
		if end == -1 {
			return post, nil, fmt.Errorf("front matter not closed")
		}

		var front postFrontMatter
		if err := yaml.Unmarshal([]byte(strings.Join(lines[1:end], "\n")), &front); err != nil {
			return post, nil, fmt.Errorf("front matter: %w", err)
		}
		content = strings.Join(lines[end+1:], "\n")

		post.Title = strings.TrimSpace(front.Title)
		post.Slug = strings.TrimSpace(front.Slug)
		post.Categories = append(append([]string{}, front.Categories...), front.Tags...)
		if front.Date != "" {
			date, err := parseFrontMatterDate(front.Date)
			if err != nil {
				return post, nil, err
			}
			post.DateCreated = date
		}
		post.Description = strings.TrimSpace(content)
		return post, front.Publish, nil
	}

	post.Description = strings.TrimSpace(content)
	return post, nil, nil
}

func parseFrontMatterDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range frontMatterDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", raw)
}
