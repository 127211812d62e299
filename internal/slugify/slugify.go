// Package slugify derives unique URL slugs for orders.
package slugify

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"unicode"

	"github.com/bwmarrin/snowflake"
	gosimpleslug "github.com/gosimple/slug"
	"golang.org/x/text/unicode/norm"
)

// MaxLength is the width of the slug column.
const MaxLength = 255

// MaxBaseLength leaves room for "-<id>" suffixes inside MaxLength.
const MaxBaseLength = 200

// DefaultMaxAttempts bounds the number of owner lookups per slug.
const DefaultMaxAttempts = 8

var (
	ErrTooManyAttempts = errors.New("slugify: too many collisions")
	ErrTooLong         = errors.New("slugify: candidate exceeds max length")
)

// punctuation matches what Make drops outright instead of turning into a
// word break.
var punctuation = regexp.MustCompile(`[^\w\s-]`)

// Lookup finds the persisted order already using a slug.
type Lookup interface {
	// FindSlugOwner returns the lowest id of an order whose slug equals slug.
	FindSlugOwner(ctx context.Context, slug string) (snowflake.ID, bool, error)
}

// LookupFunc adapts a plain function to Lookup.
type LookupFunc func(ctx context.Context, slug string) (snowflake.ID, bool, error)

func (f LookupFunc) FindSlugOwner(ctx context.Context, slug string) (snowflake.ID, bool, error) {
	return f(ctx, slug)
}

// Make normalises source into a URL-safe slug: lowercase ASCII, digits,
// dashes and underscores. Accents fold to their base letter, other non-ASCII
// characters and punctuation are removed.
func Make(source string) string {
	ascii := strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, norm.NFKD.String(source))

	s := gosimpleslug.Make(punctuation.ReplaceAllString(ascii, ""))
	s = strings.Trim(s, "-_")
	if runes := []rune(s); len(runes) > MaxBaseLength {
		s = strings.TrimRight(string(runes[:MaxBaseLength]), "-_")
	}
	return s
}

// Unique returns a slug for source that no persisted order uses. A taken
// candidate gets the conflicting order's id appended and is checked again.
// An empty base falls back to fallback. A candidate longer than MaxLength is
// ErrTooLong.
func Unique(ctx context.Context, source, fallback string, lookup Lookup, maxAttempts int) (string, error) {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	candidate := Make(source)
	if candidate == "" {
		candidate = Make(fallback)
	}
	if candidate == "" {
		return "", errors.New("slugify: empty source and fallback")
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if len(candidate) > MaxLength {
			return "", ErrTooLong
		}
		owner, found, err := lookup.FindSlugOwner(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !found {
			return candidate, nil
		}
		candidate = candidate + "-" + owner.String()
	}

	return "", ErrTooManyAttempts
}
