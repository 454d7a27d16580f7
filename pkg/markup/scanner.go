// Package markup extracts <input> elements and their attributes from
// untrusted HTML fragments. It is a targeted extractor, not an HTML parser:
// anything it does not recognise is skipped rather than reported.
package markup

import "strings"

const inputTag = "<input"

// ScanInputs returns the raw text of every <input ...> element in content,
// in document order. The element name is matched case-insensitively and a
// span ends at the first '>' after it, so adjacent elements never merge.
//
// A span never crosses a line feed. An element still open at the end of its
// line, or at the end of content, is skipped.
func ScanInputs(content string) []string {
	var spans []string
	for i := 0; i < len(content); {
		start := IndexFold(content[i:], inputTag)
		if start < 0 {
			break
		}
		start += i

		body := start + len(inputTag)
		end := strings.IndexAny(content[body:], ">\n")
		if end < 0 {
			break
		}
		end += body

		if content[end] == '\n' {
			// every other candidate before this line feed fails the same way
			i = end + 1
			continue
		}
		spans = append(spans, content[start:end+1])
		i = end + 1
	}
	return spans
}

// IndexFold returns the index of the first ASCII case-insensitive instance
// of substr in s, or -1 if substr is not present.
func IndexFold(s, substr string) int {
	n := len(substr)
	if n == 0 {
		return 0
	}
	first := lower(substr[0])
	for i := 0; i+n <= len(s); i++ {
		if lower(s[i]) != first {
			continue
		}
		if equalFold(s[i:i+n], substr) {
			return i
		}
	}
	return -1
}

// ContainsFold reports whether substr is within s, ignoring ASCII case.
func ContainsFold(s, substr string) bool {
	return IndexFold(s, substr) >= 0
}

func equalFold(a, b string) bool {
	for i := 0; i < len(a); i++ {
		if lower(a[i]) != lower(b[i]) {
			return false
		}
	}
	return true
}

func lower(c byte) byte {
	if 'A' <= c && c <= 'Z' {
		return c + 'a' - 'A'
	}
	return c
}
