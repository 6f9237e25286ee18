package synth

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	defaultMeta = `\.*+?|()[]`
	bracketMeta = `\^-]`
)

type PatternError struct {
	Pattern string
	Cause   string
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("%v: %v", e.Cause, e.Pattern)
}

// normalizePattern rewrites a flex-style pattern into the lexer's regular
// expression dialect. Escapes the dialect lacks turn into code point
// expressions, and a double-quoted run matches its characters literally.
func normalizePattern(pattern string) (string, error) {
	var b strings.Builder
	inBracket := false
	inQuote := false
	rest := pattern
	next := func() (rune, bool) {
		if rest == "" {
			return 0, false
		}
		r, size := utf8.DecodeRuneInString(rest)
		rest = rest[size:]
		return r, true
	}

	for {
		r, ok := next()
		if !ok {
			break
		}

		if r == '\\' {
			e, ok := next()
			if !ok {
				return "", &PatternError{Pattern: pattern, Cause: "incomplete escape sequence"}
			}
			if !inQuote && (e == 'u' || e == 'p') {
				b.WriteRune('\\')
				b.WriteRune(e)
				continue
			}
			lit, err := unescape(e, &rest)
			if err != nil {
				return "", &PatternError{Pattern: pattern, Cause: err.Error()}
			}
			writeLiteral(&b, lit, inBracket)
			continue
		}

		switch {
		case inQuote:
			if r == '"' {
				inQuote = false
				continue
			}
			writeLiteral(&b, r, false)
		case inBracket:
			if r == ']' {
				inBracket = false
			}
			b.WriteRune(r)
		case r == '"':
			inQuote = true
		case r == '[':
			inBracket = true
			b.WriteRune(r)
			if strings.HasPrefix(rest, "^") {
				b.WriteByte('^')
				rest = rest[1:]
			}
		default:
			b.WriteRune(r)
		}
	}
	if inQuote {
		return "", &PatternError{Pattern: pattern, Cause: "unclosed quoted string"}
	}

	return b.String(), nil
}

// unescape resolves the character an escape sequence stands for.
func unescape(e rune, rest *string) (rune, error) {
	switch e {
	case 't':
		return '\t', nil
	case 'n':
		return '\n', nil
	case 'r':
		return '\r', nil
	case 'f':
		return '\f', nil
	case 'v':
		return '\v', nil
	case 'x':
		if len(*rest) < 2 {
			return 0, fmt.Errorf("\\x needs two hexadecimal digits")
		}
		n, err := strconv.ParseUint((*rest)[:2], 16, 8)
		if err != nil {
			return 0, fmt.Errorf("\\x needs two hexadecimal digits")
		}
		*rest = (*rest)[2:]
		return rune(n), nil
	}
	if isAlnum(e) {
		return 0, fmt.Errorf("unsupported escape sequence \\%c", e)
	}
	return e, nil
}

func writeLiteral(b *strings.Builder, r rune, inBracket bool) {
	meta := defaultMeta
	if inBracket {
		meta = bracketMeta
	}
	switch {
	case strings.ContainsRune(meta, r):
		b.WriteRune('\\')
		b.WriteRune(r)
	case r < utf8.RuneSelf && !isAlnum(r):
		writeCodePoint(b, r)
	default:
		b.WriteRune(r)
	}
}

func writeCodePoint(b *strings.Builder, r rune) {
	if r > 0xFFFF {
		fmt.Fprintf(b, `\u{%06X}`, r)
		return
	}
	fmt.Fprintf(b, `\u{%04X}`, r)
}

func isAlnum(r rune) bool {
	return 'a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' || '0' <= r && r <= '9'
}
