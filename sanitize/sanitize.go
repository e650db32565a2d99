package sanitize

import (
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/xeptore/ytmdl/must"
	"github.com/xeptore/ytmdl/types"
)

const DefaultSubstitute = "_"

var (
	spaces         = regexp.MustCompile(`[\s\p{Zs}]+`)
	disambiguation = regexp.MustCompile(`^(.*?)\s*\((\d+)\)$`)
	illegal        = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f\x7f]`)
)

// Clean is text that already went through String. Feeding it back to String
// returns it untouched, so entities are never decoded twice.
type Clean string

func String[S ~string](s S) Clean {
	if c, ok := any(s).(Clean); ok {
		return c
	}

	return Clean(normalizeSpace(html.UnescapeString(string(s))))
}

// Decoded is String for text whose entities were already decoded by an HTML
// parser. Only whitespace is normalized.
func Decoded(s string) Clean {
	return Clean(normalizeSpace(s))
}

func Strings(ss []string) []string {
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		if c := String(s); c != "" {
			out = append(out, string(c))
		}
	}

	return out
}

// ParseArtist splits a trailing "(n)" index off the name. A Clean input is
// not decoded again.
func ParseArtist[S ~string](s S) types.ArtistRef {
	name := string(String(s))

	m := disambiguation.FindStringSubmatch(name)
	if nil == m || m[1] == "" {
		return types.ArtistRef{Name: name, Disambiguation: nil}
	}

	n, err := strconv.Atoi(m[2])
	if nil != err || n <= 0 {
		return types.ArtistRef{Name: name, Disambiguation: nil}
	}

	return types.ArtistRef{Name: m[1], Disambiguation: &n}
}

func ValidSubstitute(sub string) bool {
	return !illegal.MatchString(sub)
}

// FileName makes s usable as a single path component. Whitespace runs become
// one space, then each remaining illegal character is replaced by substitute.
func FileName(s, substitute string) string {
	must.Be(ValidSubstitute(substitute), "filename substitute contains illegal characters")

	out := illegal.ReplaceAllLiteralString(normalizeSpace(s), substitute)
	out = normalizeSpace(out)
	out = strings.TrimRight(out, ". ")
	if out == "" {
		return DefaultSubstitute
	}

	return out
}

func normalizeSpace(s string) string {
	return strings.TrimSpace(spaces.ReplaceAllLiteralString(s, " "))
}
