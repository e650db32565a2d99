package reconcile

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

var titleNoise = regexp.MustCompile(`(?i)[(\[]\s*(official|lyrics?|audio|video|visuali[sz]er|m/?v|hd|hq|4k|remaster(ed)?|explicit)[^)\]]*[)\]]|\s-\s*topic$`)

func normalizeTitle(s string) string {
	s = titleNoise.ReplaceAllString(strings.ToLower(s), " ")

	return strings.Join(strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	}), " ")
}

// similarity scores two titles in [0, 1]. Titles where one contains the
// other, such as a track name and its video title with a translation
// appended, score 1.
func similarity(a, b string) float64 {
	a, b = normalizeTitle(a), normalizeTitle(b)
	if a == "" || b == "" {
		return 0
	}

	if strings.Contains(a, b) || strings.Contains(b, a) {
		return 1
	}

	maxLen := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))

	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(maxLen)
}
