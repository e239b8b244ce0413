// Package textutil holds the string repairs shared by the scraper: cleaning
// scraped display text, repairing embedded JSON and deriving slugs.
package textutil

import (
	"html"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	unicodeEscape = regexp.MustCompile(`\\u([0-9a-fA-F]{4})(?:\\u([0-9a-fA-F]{4}))?`)
	spaceRun      = regexp.MustCompile(`[ \t\x{00A0}]+`)
	blankLines    = regexp.MustCompile(`\n{3,}`)
)

// Common UTF-8-read-as-Latin-1 sequences seen in scraped taglines.
var mojibake = strings.NewReplacer(
	"â€™", "’",
	"â€˜", "‘",
	"â€œ", "“",
	"â€“", "–",
	"â€”", "—",
	"â€¦", "…",
	"Ã©", "é",
	"Ã¨", "è",
	"Ã¼", "ü",
	"Ã¶", "ö",
)

var stripControl = runes.Remove(runes.Predicate(func(r rune) bool {
	if r == '\n' || r == '\t' {
		return false
	}
	return unicode.IsControl(r) || r == '\u200b' || r == '\ufeff'
}))

// CleanText normalises a scraped display string: literal \uXXXX escapes and
// HTML entities are decoded, control and zero-width characters dropped, the
// result NFC-normalised and whitespace collapsed. Empty input yields "".
func CleanText(s string) string {
	if s == "" {
		return ""
	}

	s = decodeUnicodeEscapes(s)
	for i := 0; i < 2; i++ {
		u := html.UnescapeString(s)
		if u == s {
			break
		}
		s = u
	}
	s = mojibake.Replace(s)

	if out, _, err := transform.String(transform.Chain(stripControl, norm.NFC), s); err == nil {
		s = out
	}

	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(spaceRun.ReplaceAllString(l, " "))
	}
	s = blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(s)
}

func decodeUnicodeEscapes(s string) string {
	if !strings.Contains(s, `\u`) {
		return s
	}
	return unicodeEscape.ReplaceAllStringFunc(s, func(m string) string {
		parts := unicodeEscape.FindStringSubmatch(m)
		hi := parseHex(parts[1])
		if parts[2] == "" {
			return string(rune(hi))
		}
		lo := parseHex(parts[2])
		if utf16.IsSurrogate(rune(hi)) {
			if r := utf16.DecodeRune(rune(hi), rune(lo)); r != unicode.ReplacementChar {
				return string(r)
			}
		}
		return string(rune(hi)) + string(rune(lo))
	})
}

func parseHex(h string) uint64 {
	v, _ := strconv.ParseUint(h, 16, 32)
	return v
}
