package store

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

const (
	base36Alphabet  = "0123456789abcdefghijklmnopqrstuvwxyz"
	aliasSuffixLen  = 4
	aliasMaxAttempt = 20
	aliasMaxLength  = 80
	defaultAlias    = "post"
)

// NewGUID returns a new random document or attachment GUID.
func NewGUID() string {
	return uuid.NewString()
}

// Slugify turns a document name into a URL path segment.
func Slugify(name string) string {
	decomposed := norm.NFKD.String(strings.ToLower(strings.TrimSpace(name)))
	var b strings.Builder
	dash := false
	for _, r := range decomposed {
		switch {
		case unicode.Is(unicode.Mn, r):
			continue
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		default:
			if b.Len() > 0 && !dash {
				b.WriteByte('-')
				dash = true
			}
		}
		if b.Len() >= aliasMaxLength {
			break
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return defaultAlias
	}
	return slug
}

// MonthAlias returns the alias and display name of the month folder holding posts dated t.
func MonthAlias(t time.Time) (string, string) {
	return fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month())), t.Format("January 2006")
}

// UniqueAlias returns base, or base with a random suffix when base is taken.
func UniqueAlias(base string, exists func(string) (bool, error)) (string, error) {
	if base == "" {
		return "", fmt.Errorf("alias is required")
	}
	if exists == nil {
		return base, nil
	}
	taken, err := exists(base)
	if err != nil {
		return "", err
	}
	if !taken {
		return base, nil
	}

	for i := 0; i < aliasMaxAttempt; i++ {
		suffix, err := randomBase36(aliasSuffixLen)
		if err != nil {
			return "", err
		}
		candidate := fmt.Sprintf("%s-%s", base, suffix)
		taken, err := exists(candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("unable to generate unique alias for %q", base)
}

func randomBase36(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	out := make([]byte, length)
	for i := 0; i < length; i++ {
		out[i] = base36Alphabet[int(b[i])%len(base36Alphabet)]
	}
	return string(out), nil
}
