// Package frontmatter reads the YAML metadata block at the top of a content
// file.
package frontmatter

import (
	"bytes"
	"errors"

	"gopkg.in/yaml.v3"
)

const delimiter = "---"

// ErrUnterminated is returned when a document opens a metadata block that
// is never closed.
var ErrUnterminated = errors.New("frontmatter block is opened with --- but never closed")

var bom = []byte("\xef\xbb\xbf")

// Split separates the metadata block from the body. The block is the text
// between a first line of exactly "---" and the next such line; found is
// false when the document does not start with one. LF and CRLF line endings
// are accepted, as is a leading UTF-8 byte order mark.
func Split(doc []byte) (block, body []byte, found bool, err error) {
	rest := bytes.TrimPrefix(doc, bom)
	first, rest, _ := cutLine(rest)
	if string(first) != delimiter {
		return nil, doc, false, nil
	}

	start := rest
	offset := 0
	for len(rest) > 0 {
		line, next, _ := cutLine(rest)
		if string(line) == delimiter {
			return start[:offset], next, true, nil
		}
		offset += len(rest) - len(next)
		rest = next
	}
	return nil, nil, false, ErrUnterminated
}

// cutLine returns the first line of b without its line ending, and the
// remainder after it. ok is false when b has no line ending.
func cutLine(b []byte) (line, rest []byte, ok bool) {
	line, rest, ok = bytes.Cut(b, []byte("\n"))
	return bytes.TrimSuffix(line, []byte("\r")), rest, ok
}

// Decode unmarshals a metadata block into a map. An empty block yields an
// empty map.
func Decode(block []byte) (map[string]any, error) {
	fields := map[string]any{}
	if len(bytes.TrimSpace(block)) == 0 {
		return fields, nil
	}
	if err := yaml.Unmarshal(block, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, nil
}
