package value

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// unquote decodes a single- or double-quoted string literal.
func unquote(lit string) any {
	if len(lit) < 2 {
		return NotResolved
	}
	body := lit[1 : len(lit)-1]
	switch lit[0] {
	case '\'':
		return strings.NewReplacer(`\\`, `\`, `\'`, `'`).Replace(body)
	case '"':
		return unescapeDouble(body, '"')
	}
	return NotResolved
}

// heredoc decodes a heredoc or nowdoc literal including its markers.
func heredoc(lit string) any {
	header, rest, ok := strings.Cut(lit, "\n")
	if !ok {
		return NotResolved
	}
	label := strings.TrimSpace(strings.TrimPrefix(header, "<<<"))
	nowdoc := strings.HasPrefix(label, "'")
	label = strings.Trim(label, `'"`)

	lines := strings.Split(rest, "\n")
	closing := lines[len(lines)-1]
	indent := closing[:len(closing)-len(strings.TrimLeft(closing, " \t"))]
	if strings.TrimLeft(closing, " \t") != label {
		return NotResolved
	}
	body := lines[:len(lines)-1]
	for i, line := range body {
		body[i] = strings.TrimPrefix(line, indent)
	}
	text := strings.Join(body, "\n")
	if nowdoc {
		return text
	}
	if strings.Contains(text, "{$") || hasVariable(text) {
		return NotResolved
	}
	return unescapeDouble(text, 0)
}

func hasVariable(s string) bool {
	for i := 0; i+1 < len(s); i++ {
		if s[i] == '\\' {
			i++
			continue
		}
		if s[i] == '$' {
			c := s[i+1]
			if c == '{' || c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80 {
				return true
			}
		}
	}
	return false
}

func unescapeDouble(s string, quote byte) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}
		next := s[i+1]
		switch next {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'v':
			b.WriteByte('\v')
		case 'e':
			b.WriteByte(0x1b)
		case 'f':
			b.WriteByte('\f')
		case '\\':
			b.WriteByte('\\')
		case '$':
			b.WriteByte('$')
		case 'x':
			j := i + 2
			for j < len(s) && j < i+4 && isHexDigit(s[j]) {
				j++
			}
			if j == i+2 {
				b.WriteString(`\x`)
				i++
				continue
			}
			n, _ := strconv.ParseUint(s[i+2:j], 16, 8)
			b.WriteByte(byte(n))
			i = j - 1
			continue
		case 'u':
			if i+2 < len(s) && s[i+2] == '{' {
				if end := strings.IndexByte(s[i+3:], '}'); end > 0 {
					if n, err := strconv.ParseUint(s[i+3:i+3+end], 16, 32); err == nil {
						var buf [utf8.UTFMax]byte
						w := utf8.EncodeRune(buf[:], rune(n))
						b.Write(buf[:w])
						i += 3 + end
						continue
					}
				}
			}
			b.WriteString(`\u`)
		default:
			if next >= '0' && next <= '7' {
				j := i + 1
				for j < len(s) && j < i+4 && s[j] >= '0' && s[j] <= '7' {
					j++
				}
				n, _ := strconv.ParseUint(s[i+1:j], 8, 16)
				b.WriteByte(byte(n))
				i = j - 1
				continue
			}
			if quote != 0 && next == quote {
				b.WriteByte(quote)
			} else {
				b.WriteByte('\\')
				b.WriteByte(next)
			}
		}
		i++
	}
	return b.String()
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
