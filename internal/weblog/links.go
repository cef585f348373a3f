package weblog

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"weblogd/internal/models"
)

// appRelativePrefix marks a stored link relative to the public root.
const appRelativePrefix = "~/"

// Links resolves public URLs below one root, such as https://example.com/blogs.
type Links struct {
	root   string
	origin string
}

// NewLinks parses the public root URL of the site.
func NewLinks(publicURL string) (*Links, error) {
	u, err := url.Parse(strings.TrimSpace(publicURL))
	if err != nil {
		return nil, fmt.Errorf("parse public url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("public url %q must be absolute", publicURL)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return &Links{root: u.String(), origin: u.Scheme + "://" + u.Host}, nil
}

// Root returns the public root without a trailing slash.
func (l *Links) Root() string { return l.root }

// DocumentURL returns the public address of doc.
func (l *Links) DocumentURL(doc *models.Document) string {
	if doc == nil {
		return l.root + "/"
	}
	return l.root + doc.AliasPath
}

// AttachmentURL returns the download address of an attachment.
func (l *Links) AttachmentURL(guid string) string {
	return l.root + "/getfile?guid=" + guid
}

// Unresolve rewrites href and src values pointing below the public root
// into "~/" form so stored bodies survive a change of host.
func (l *Links) Unresolve(body string) string {
	return rewriteLinks(body, l.unresolveURL)
}

// MakeAbsolute rewrites "~/" and root-relative href and src values into
// absolute URLs.
func (l *Links) MakeAbsolute(body string) string {
	return rewriteLinks(body, l.absoluteURL)
}

func (l *Links) unresolveURL(value string) string {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) < len(l.root) || !strings.EqualFold(trimmed[:len(l.root)], l.root) {
		return value
	}
	rest := trimmed[len(l.root):]
	switch {
	case rest == "":
		return appRelativePrefix
	case strings.HasPrefix(rest, "/"):
		return "~" + rest
	}
	return value
}

func (l *Links) absoluteURL(value string) string {
	trimmed := strings.TrimSpace(value)
	switch {
	case strings.HasPrefix(trimmed, appRelativePrefix):
		return l.root + trimmed[1:]
	case trimmed == "~":
		return l.root + "/"
	case strings.HasPrefix(trimmed, "/") && !strings.HasPrefix(trimmed, "//"):
		return l.origin + trimmed
	}
	return value
}

func isLinkAttr(key string) bool {
	return key == "href" || key == "src"
}

// rewriteLinks applies fn to link attributes and copies everything else verbatim.
func rewriteLinks(body string, fn func(string) string) string {
	if !strings.Contains(body, "<") {
		return body
	}
	var out bytes.Buffer
	z := html.NewTokenizer(strings.NewReader(body))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if z.Err() != io.EOF {
				return body
			}
			return out.String()
		}
		raw := append([]byte(nil), z.Raw()...)
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			out.Write(raw)
			continue
		}
		tok := z.Token()
		changed := false
		for i, attr := range tok.Attr {
			if attr.Namespace != "" || !isLinkAttr(attr.Key) {
				continue
			}
			if rewritten := fn(attr.Val); rewritten != attr.Val {
				tok.Attr[i].Val = rewritten
				changed = true
			}
		}
		if changed {
			out.WriteString(tok.String())
		} else {
			out.Write(raw)
		}
	}
}

var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Br: true, atom.Div: true, atom.Li: true, atom.Tr: true, atom.Td: true, atom.Th: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Blockquote: true, atom.Pre: true, atom.Hr: true,
}

// StripTags returns the text content of an HTML fragment with whitespace
// collapsed. Script and style content is dropped.
func StripTags(body string) string {
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(body))
	skip := atom.Atom(0)
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			if tt == html.StartTagToken && (a == atom.Script || a == atom.Style) {
				skip = a
			}
			if blockElements[a] {
				b.WriteByte(' ')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			if a == skip {
				skip = 0
			}
			if blockElements[a] {
				b.WriteByte(' ')
			}
		}
	}
}
