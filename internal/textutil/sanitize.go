package textutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// maxPrefixAttempts bounds how many closed prefixes are validated when
// recovering a truncated payload.
const maxPrefixAttempts = 64

// SanitizeJSON repairs a near-valid JSON fragment cut out of a <script> tag.
//
// The basic repairs turn bare undefined into null, escape raw control
// characters and stray backslashes inside strings and drop trailing commas.
// If the result still does not parse it is, in order, cut at the decoder's
// error offset, reduced to the last balanced top-level array, reduced to its
// longest prefix that can be closed into valid JSON, and finally stripped
// down aggressively and repaired once more. The returned string may still
// be invalid JSON.
//
// ok is false only for empty input. SanitizeJSON never panics.
func SanitizeJSON(raw string) (out string, ok bool) {
	if raw == "" {
		return "", false
	}

	repaired := repairJSON(raw)
	if json.Valid([]byte(repaired)) {
		return repaired, true
	}
	if s, found := cutAtSyntaxError(repaired); found {
		return s, true
	}
	if s, found := lastBalancedArray(repaired); found {
		return s, true
	}
	if s, found := closeLongestPrefix(repaired); found {
		return s, true
	}
	stripped := aggressiveStrip(repaired)
	if again := repairJSON(stripped); json.Valid([]byte(again)) {
		return again, true
	}
	return stripped, true
}

func repairJSON(s string) string {
	out := make([]byte, 0, len(s)+16)
	inString := false

	for i := 0; i < len(s); i++ {
		c := s[i]

		if inString {
			switch {
			case c == '\\':
				if i+1 >= len(s) {
					out = append(out, '\\', '\\')
					continue
				}
				switch n := s[i+1]; n {
				case '"', '\\', '/', 'b', 'f', 'n', 'r', 't':
					out = append(out, c, n)
					i++
				case 'u':
					if i+6 <= len(s) && isHex(s[i+2:i+6]) {
						out = append(out, s[i:i+6]...)
						i += 5
					} else {
						out = append(out, '\\', '\\')
					}
				default:
					out = append(out, '\\', '\\')
				}
			case c == '"':
				inString = false
				out = append(out, c)
			case c < 0x20:
				out = append(out, escapeControl(c)...)
			default:
				out = append(out, c)
			}
			continue
		}

		switch {
		case c == '"':
			inString = true
			out = append(out, c)
		case c == ']' || c == '}':
			out = dropTrailingCommas(out)
			out = append(out, c)
		case c == 'u' && wordAt(s, i, "undefined"):
			out = append(out, "null"...)
			i += len("undefined") - 1
		default:
			out = append(out, c)
		}
	}
	return string(out)
}

func dropTrailingCommas(out []byte) []byte {
	j := len(out) - 1
	comma := false
	for ; j >= 0; j-- {
		switch out[j] {
		case ',':
			comma = true
		case ' ', '\t', '\n', '\r':
		default:
			if comma {
				return out[:j+1]
			}
			return out
		}
	}
	if comma {
		return out[:0]
	}
	return out
}

func escapeControl(c byte) string {
	switch c {
	case '\n':
		return `\n`
	case '\r':
		return `\r`
	case '\t':
		return `\t`
	case '\b':
		return `\b`
	case '\f':
		return `\f`
	}
	return fmt.Sprintf(`\u%04x`, c)
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}

func isIdent(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func wordAt(s string, i int, word string) bool {
	if !strings.HasPrefix(s[i:], word) {
		return false
	}
	if i > 0 && isIdent(s[i-1]) {
		return false
	}
	end := i + len(word)
	return end == len(s) || !isIdent(s[end])
}

func cutAtSyntaxError(s string) (string, bool) {
	var v any
	err := json.Unmarshal([]byte(s), &v)
	var se *json.SyntaxError
	if !errors.As(err, &se) {
		return "", false
	}
	for _, off := range []int64{se.Offset - 1, se.Offset} {
		if off <= 0 || off > int64(len(s)) {
			continue
		}
		cut := strings.TrimSpace(s[:off])
		if cut != "" && json.Valid([]byte(cut)) {
			return cut, true
		}
	}
	return "", false
}

// scanBrackets walks s outside of string literals and reports every closing
// bracket that matches its opener. It stops at the first mismatch.
func scanBrackets(s string, visit func(end int, stack []byte)) {
	var stack []byte
	inString := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			if c == '\\' {
				i++
			} else if c == '"' {
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[', '{':
			stack = append(stack, c)
		case ']', '}':
			if len(stack) == 0 || !pairs(stack[len(stack)-1], c) {
				return
			}
			stack = stack[:len(stack)-1]
			visit(i+1, stack)
		}
	}
}

func pairs(open, close byte) bool {
	return (open == '[' && close == ']') || (open == '{' && close == '}')
}

func lastBalancedArray(s string) (string, bool) {
	type span struct{ start, end int }
	var spans []span

	start := -1
	var stack []byte
	inString := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			if c == '\\' {
				i++
			} else if c == '"' {
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[', '{':
			if len(stack) == 0 && c == '[' {
				start = i
			}
			stack = append(stack, c)
		case ']', '}':
			if len(stack) == 0 || !pairs(stack[len(stack)-1], c) {
				stack = stack[:0]
				start = -1
				continue
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 && c == ']' && start >= 0 {
				spans = append(spans, span{start, i + 1})
				start = -1
			}
		}
	}

	for k := len(spans) - 1; k >= 0 && k >= len(spans)-maxPrefixAttempts; k-- {
		cand := s[spans[k].start:spans[k].end]
		if json.Valid([]byte(cand)) {
			return cand, true
		}
	}
	return "", false
}

func closeLongestPrefix(s string) (string, bool) {
	type checkpoint struct {
		end     int
		closers string
	}
	var cps []checkpoint

	scanBrackets(s, func(end int, stack []byte) {
		if len(stack) == 0 {
			return
		}
		closers := make([]byte, len(stack))
		for i := range stack {
			if stack[len(stack)-1-i] == '[' {
				closers[i] = ']'
			} else {
				closers[i] = '}'
			}
		}
		cps = append(cps, checkpoint{end: end, closers: string(closers)})
		if len(cps) > 4*maxPrefixAttempts {
			cps = cps[len(cps)-maxPrefixAttempts:]
		}
	})

	for k := len(cps) - 1; k >= 0 && k >= len(cps)-maxPrefixAttempts; k-- {
		cand := s[:cps[k].end] + cps[k].closers
		if json.Valid([]byte(cand)) {
			return cand, true
		}
	}
	return "", false
}

func aggressiveStrip(s string) string {
	b := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= 0x20 && c < 0x7f {
			b = append(b, c)
		}
	}
	if end := strings.LastIndexAny(string(b), "]}"); end >= 0 {
		b = b[:end+1]
	}
	return string(b)
}
