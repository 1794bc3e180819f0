package parser

import "strings"

// StripComments removes // and /* */ comments while leaving string and
// template literals intact. Newlines inside block comments are kept so line
// anchored patterns still see the original line structure.
func StripComments(src string) string {
	if !strings.Contains(src, "/") {
		return src
	}

	var b strings.Builder
	b.Grow(len(src))

	const (
		stateCode = iota
		stateLine
		stateBlock
		stateString
	)

	state := stateCode
	var quote byte
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch state {
		case stateCode:
			if c == '/' && i+1 < len(src) {
				next := src[i+1]
				if next == '/' {
					state = stateLine
					i++
					continue
				}
				if next == '*' {
					state = stateBlock
					i++
					continue
				}
			}
			if c == '"' || c == '\'' || c == '`' {
				state = stateString
				quote = c
			}
			b.WriteByte(c)
		case stateLine:
			if c == '\n' {
				state = stateCode
				b.WriteByte(c)
			}
		case stateBlock:
			if c == '*' && i+1 < len(src) && src[i+1] == '/' {
				state = stateCode
				i++
				continue
			}
			if c == '\n' {
				b.WriteByte(c)
			}
		case stateString:
			b.WriteByte(c)
			if c == '\\' && i+1 < len(src) {
				i++
				b.WriteByte(src[i])
				continue
			}
			if c == quote {
				state = stateCode
			} else if c == '\n' && quote != '`' {
				// Unterminated single-line string; recover at the line break.
				state = stateCode
			}
		}
	}
	return b.String()
}
