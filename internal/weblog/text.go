package weblog

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

const ellipsis = "..."

// attachmentRef matches download links as written by AttachmentURL.
var attachmentRef = regexp.MustCompile(`(?im)getfile\?guid=([0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12})`)

// LimitLength cuts text to at most max runes, ending a cut text with "...".
// A non-positive max leaves text unchanged.
func LimitLength(text string, max int) string {
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	if max <= len(ellipsis) {
		return string(runes[:max])
	}
	return string(runes[:max-len(ellipsis)]) + ellipsis
}

// cleanTitle trims and entity-decodes a client title and limits its length.
func cleanTitle(title string, max int) string {
	return LimitLength(html.UnescapeString(strings.TrimSpace(title)), max)
}

// tagsString joins categories into the quoted list the tag parser reads.
func tagsString(categories []string) string {
	parts := make([]string, 0, len(categories))
	for _, category := range categories {
		name := strings.TrimSpace(strings.ReplaceAll(category, `"`, ""))
		if name == "" {
			continue
		}
		parts = append(parts, `"`+name+`"`)
	}
	return strings.Join(parts, ",")
}

// referencedGUIDs returns the lower-cased attachment guids linked from texts.
func referencedGUIDs(texts ...string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, text := range texts {
		for _, match := range attachmentRef.FindAllStringSubmatch(text, -1) {
			out[strings.ToLower(match[1])] = struct{}{}
		}
	}
	return out
}
