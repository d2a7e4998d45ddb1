package extract

import (
	"fmt"
	"strings"
	"unicode"
)

// Repair rewrites a nearly-JSON object span into parseable form. It only
// accepts input that already looks like a single object literal (begins
// with '{', ends with '}') so unrelated text is rejected outright.
//
// The repairs are the ones models actually produce: unescaped quotes inside
// string values, raw control characters inside strings, trailing commas,
// and unbalanced braces. A quote inside a string is treated as the closing
// quote only when the next non-space character is a structural one; a
// string value holding a quoted word directly before a comma will still
// close early.
func Repair(span string) (string, bool) {
	span = strings.TrimSpace(span)
	if !strings.HasPrefix(span, "{") || !strings.HasSuffix(span, "}") {
		return "", false
	}

	runes := []rune(span)
	var out strings.Builder
	out.Grow(len(span) + 16)

	var stack []rune
	inString := false
	pendingComma := false

	flushComma := func(closing bool) {
		if pendingComma && !closing {
			out.WriteRune(',')
		}
		pendingComma = false
	}

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if inString {
			switch {
			case r == '\\' && i+1 < len(runes):
				out.WriteRune(r)
				out.WriteRune(runes[i+1])
				i++
			case r == '"':
				if closesString(runes, i+1) {
					inString = false
					out.WriteRune('"')
				} else {
					out.WriteString(`\"`)
				}
			case r == '\n':
				out.WriteString(`\n`)
			case r == '\r':
				out.WriteString(`\r`)
			case r == '\t':
				out.WriteString(`\t`)
			case r < 0x20:
				out.WriteString(fmt.Sprintf(`\u%04x`, r))
			default:
				out.WriteRune(r)
			}
			continue
		}

		switch r {
		case ',':
			// Held back so a trailing comma before '}' or ']' can be dropped.
			pendingComma = true
		case '{', '[':
			flushComma(false)
			if r == '{' {
				stack = append(stack, '}')
			} else {
				stack = append(stack, ']')
			}
			out.WriteRune(r)
		case '}', ']':
			flushComma(true)
			if !stackHas(stack, r) {
				// Stray closer with no matching opener, drop it.
				continue
			}
			// Unwind to the matching opener, closing any levels the
			// model forgot to close on the way.
			for len(stack) > 0 {
				top := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				out.WriteRune(top)
				if top == r {
					break
				}
			}
		case '"':
			flushComma(false)
			inString = true
			out.WriteRune(r)
		default:
			if !unicode.IsSpace(r) {
				flushComma(false)
			}
			out.WriteRune(r)
		}
	}

	if inString {
		out.WriteRune('"')
	}
	for i := len(stack) - 1; i >= 0; i-- {
		out.WriteRune(stack[i])
	}

	return out.String(), true
}

func stackHas(stack []rune, r rune) bool {
	for _, s := range stack {
		if s == r {
			return true
		}
	}
	return false
}

// closesString reports whether a quote at this position plausibly ends a
// string: the next non-space character must be structural or the input must
// end here.
func closesString(runes []rune, next int) bool {
	for i := next; i < len(runes); i++ {
		r := runes[i]
		if unicode.IsSpace(r) {
			continue
		}
		switch r {
		case ',', '}', ']', ':':
			return true
		default:
			return false
		}
	}
	return true
}
