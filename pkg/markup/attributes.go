package markup

import "strings"

// ParseAttributes extracts key=value pairs from a single element span.
//
// Three forms are recognised: name="value", name='value' and name=value,
// where an unquoted value is limited to ASCII letters, digits, '_' and '-'.
// The name is the run of ASCII letters immediately before '=', so
// data-id="x" is read as id. A quoted value ends at the next matching quote
// on the same line; when there is none the pair is dropped and scanning
// resumes after its '='.
//
// Later duplicates overwrite earlier ones. Pairs without '=' are ignored.
func ParseAttributes(span string) map[string]string {
	attrs := make(map[string]string)

	for i := 0; i < len(span); {
		eq := strings.IndexByte(span[i:], '=')
		if eq < 0 {
			break
		}
		eq += i

		nameStart := eq
		for nameStart > i && isLetter(span[nameStart-1]) {
			nameStart--
		}
		if nameStart == eq {
			i = eq + 1
			continue
		}

		end, ok := valueEnd(span, eq+1)
		if !ok {
			i = eq + 1
			continue
		}

		key, value := splitPair(span[nameStart:end])
		attrs[key] = value
		i = end
	}

	return attrs
}

// valueEnd returns the offset just past the value starting at pos.
func valueEnd(span string, pos int) (int, bool) {
	if pos >= len(span) {
		return 0, false
	}

	switch quote := span[pos]; quote {
	case '"', '\'':
		for j := pos + 1; j < len(span); j++ {
			switch span[j] {
			case quote:
				return j + 1, true
			case '\n':
				return 0, false
			}
		}
		return 0, false
	default:
		j := pos
		for j < len(span) && isValueByte(span[j]) {
			j++
		}
		return j, j > pos
	}
}

// splitPair splits a matched attribute once on its first '=' and strips one
// layer of matching quotes and the surrounding whitespace from the value.
func splitPair(pair string) (string, string) {
	key, value, _ := strings.Cut(pair, "=")
	if n := len(value); n >= 2 && (value[0] == '"' || value[0] == '\'') && value[n-1] == value[0] {
		value = value[1 : n-1]
	}
	return key, strings.Trim(value, " \t\n\r\x00\x0b")
}

func isLetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isValueByte(c byte) bool {
	return isLetter(c) || ('0' <= c && c <= '9') || c == '_' || c == '-'
}
