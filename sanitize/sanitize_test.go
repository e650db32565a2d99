package sanitize_test

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"

	"github.com/xeptore/ytmdl/sanitize"
	"github.com/xeptore/ytmdl/types"
)

var corpus = []string{
	"",
	"   ",
	"A &amp; B",
	"A &amp;amp; B",
	"&lt;Version Up&gt;",
	"Album title stylized as &amp;quot;ODD EYE CIRCLE&amp;quot;",
	"  Did   You\tWait?  ",
	"Non\u00a0breaking",
	"AC/DC: Back In Black?",
	"Boards (2)",
	"trailing dots...",
	"..",
	"tab\x00null",
	"Beyoncé & Jay-Z",
	"5 &lt; 6 &amp;&amp; 7 &gt; 6",
}

func TestString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected sanitize.Clean
	}{
		{name: "decodes entity", input: "A &amp; B", expected: "A & B"},
		{name: "decodes exactly once", input: "A &amp;amp; B", expected: "A &amp; B"},
		{name: "named entities", input: "&lt;Version Up&gt;", expected: "<Version Up>"},
		{name: "numeric entity", input: "Caf&#233;", expected: "Café"},
		{name: "collapses whitespace", input: "  Did   You\tWait?  ", expected: "Did You Wait?"},
		{name: "non breaking space", input: "Non\u00a0breaking", expected: "Non breaking"},
		{name: "keeps literal ampersand", input: "Simon & Garfunkel", expected: "Simon & Garfunkel"},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, sanitize.String(tt.input))
		})
	}
}

func TestStringIdempotent(t *testing.T) {
	t.Parallel()

	for _, s := range corpus {
		once := sanitize.String(s)
		assert.Equal(t, once, sanitize.String(once), "input: %q", s)
	}
}

func TestStrings(t *testing.T) {
	t.Parallel()

	got := sanitize.Strings([]string{"Electronic", " ", "Hip &amp; Hop"})
	assert.Exactly(t, []string{"Electronic", "Hip & Hop"}, got)
}

func TestParseArtist(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected types.ArtistRef
	}{
		{
			name:     "with disambiguation suffix",
			input:    "Boards (2)",
			expected: types.ArtistRef{Name: "Boards", Disambiguation: lo.ToPtr(2)},
		},
		{
			name:     "without suffix",
			input:    "Boards",
			expected: types.ArtistRef{Name: "Boards", Disambiguation: nil},
		},
		{
			name:     "escaped name with suffix",
			input:    "Earth, Wind &amp; Fire (3)",
			expected: types.ArtistRef{Name: "Earth, Wind & Fire", Disambiguation: lo.ToPtr(3)},
		},
		{
			name:     "zero is not an index",
			input:    "Band (0)",
			expected: types.ArtistRef{Name: "Band (0)", Disambiguation: nil},
		},
		{
			name:     "non numeric parenthetical",
			input:    "Prince (Live)",
			expected: types.ArtistRef{Name: "Prince (Live)", Disambiguation: nil},
		},
		{
			name:     "suffix only",
			input:    "(2)",
			expected: types.ArtistRef{Name: "(2)", Disambiguation: nil},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, sanitize.ParseArtist(tt.input))
		})
	}
}

func TestParseArtistDecodedInput(t *testing.T) {
	t.Parallel()

	a := sanitize.ParseArtist(sanitize.Decoded(" Tom &amp; Jerry (2) "))
	assert.Equal(t, types.ArtistRef{Name: "Tom &amp; Jerry", Disambiguation: lo.ToPtr(2)}, a)
}

func TestArtistKeyKeepsDisambiguation(t *testing.T) {
	t.Parallel()

	a := sanitize.ParseArtist("Boards (2)")
	b := sanitize.ParseArtist("Boards")

	assert.Equal(t, a.Name, b.Name)
	assert.NotEqual(t, a.Key(), b.Key())
	assert.Equal(t, "Boards (2)", a.Key())
}

func TestFileName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		input      string
		substitute string
		expected   string
	}{
		{name: "slash", input: "AC/DC", substitute: "_", expected: "AC_DC"},
		{name: "many illegal", input: `a<b>c:d"e\f|g?h*i`, substitute: "_", expected: "a_b_c_d_e_f_g_h_i"},
		{name: "remove", input: "What?", substitute: "", expected: "What"},
		{name: "trailing dots", input: "Vol. 1...", substitute: "_", expected: "Vol. 1"},
		{name: "whitespace", input: "  a \t b  ", substitute: "_", expected: "a b"},
		{name: "line breaks", input: "Side A\r\nIntro\n", substitute: "_", expected: "Side A Intro"},
		{name: "space substitute", input: "AC/DC: Live", substitute: " ", expected: "AC DC Live"},
		{name: "control char", input: "a\x00b", substitute: "-", expected: "a-b"},
		{name: "empty result", input: "...", substitute: "_", expected: "_"},
		{name: "unicode kept", input: "Björk – Jóga", substitute: "_", expected: "Björk – Jóga"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, sanitize.FileName(tt.input, tt.substitute))
		})
	}
}

func TestFileNameIdempotent(t *testing.T) {
	t.Parallel()

	for _, sub := range []string{"_", "", "-", " "} {
		for _, s := range corpus {
			once := sanitize.FileName(s, sub)
			assert.Equal(t, once, sanitize.FileName(once, sub), "input: %q, substitute: %q", s, sub)
		}
	}
}

func TestFileNamePanicsOnIllegalSubstitute(t *testing.T) {
	t.Parallel()

	assert.False(t, sanitize.ValidSubstitute("/"))
	assert.Panics(t, func() { sanitize.FileName("a/b", "/") })
}

func TestDecodedDoesNotUnescape(t *testing.T) {
	t.Parallel()

	assert.Equal(t, sanitize.Clean("A &amp; B"), sanitize.Decoded("  A &amp;   B "))
}
