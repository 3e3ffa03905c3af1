// Package frontmatter splits Markdown documents into a YAML metadata block
// and a body, and decodes the block into a key/value mapping.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Delimiter marks the start and end of a front-matter block. It must occupy
// a line of its own; a "---" embedded in a value never terminates the block.
const Delimiter = "---"

// ErrMalformed reports a structurally broken front-matter block: an opening
// delimiter without a matching closing delimiter, or a block that cannot be
// decoded as YAML.
var ErrMalformed = errors.New("malformed front matter")

// Document is the output of parsing a single Markdown source.
type Document struct {
	// Meta holds the decoded front-matter mapping. Nil when the document
	// has no front-matter block at all. Keys are passed through as-is;
	// unrecognized keys are preserved for downstream consumers.
	Meta map[string]any
	Body string
}

// Parse splits raw Markdown bytes into front matter and body.
//
// A document that starts directly with body content is valid and yields a
// nil Meta. An opening delimiter that is never closed, or a block that is
// not valid YAML, yields ErrMalformed.
func Parse(data []byte) (*Document, error) {
	trimmed := bytes.TrimLeft(data, "\n\r")

	first, rest, _ := bytes.Cut(trimmed, []byte("\n"))
	if !isDelimiterLine(string(first)) {
		return &Document{Body: string(data)}, nil
	}

	block, body, ok := splitAtClosing(rest)
	if !ok {
		return nil, fmt.Errorf("frontmatter: unterminated block: %w", ErrMalformed)
	}

	var meta map[string]any
	if err := yaml.Unmarshal(block, &meta); err != nil {
		return nil, fmt.Errorf("frontmatter: decode block: %v: %w", err, ErrMalformed)
	}
	if meta == nil {
		// Empty block between delimiters decodes to nothing.
		meta = map[string]any{}
	}

	return &Document{
		Meta: meta,
		Body: strings.TrimLeft(string(body), "\n\r"),
	}, nil
}

// splitAtClosing scans rest line by line for a closing delimiter on its own
// line, returning the block before it and the body after it.
func splitAtClosing(rest []byte) (block, body []byte, ok bool) {
	offset := 0
	for offset <= len(rest) {
		lineEnd := bytes.IndexByte(rest[offset:], '\n')
		var line []byte
		next := len(rest) + 1
		if lineEnd >= 0 {
			line = rest[offset : offset+lineEnd]
			next = offset + lineEnd + 1
		} else {
			line = rest[offset:]
		}
		if isDelimiterLine(string(line)) {
			if next > len(rest) {
				return rest[:offset], nil, true
			}
			return rest[:offset], rest[next:], true
		}
		if lineEnd < 0 {
			break
		}
		offset = next
	}
	return nil, nil, false
}

// isDelimiterLine reports whether line is exactly the delimiter, allowing a
// trailing carriage return and surrounding spaces only.
func isDelimiterLine(line string) bool {
	return strings.TrimRight(line, " \r") == Delimiter
}
