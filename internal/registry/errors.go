package registry

import (
	"fmt"
	"strings"
)

// DocumentError records a single source that failed to parse or validate.
type DocumentError struct {
	Source string
	Err    error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

func (e *DocumentError) Unwrap() error { return e.Err }

// DuplicateSlugError records two or more valid sources that resolve to the
// same slug.
type DuplicateSlugError struct {
	Slug    string
	Sources []string
}

func (e *DuplicateSlugError) Error() string {
	return fmt.Sprintf("duplicate slug %q: %s", e.Slug, strings.Join(e.Sources, ", "))
}

// BuildError is the aggregate failure of a registry build: every
// per-document error plus any duplicate-slug collisions.
type BuildError struct {
	Documents  []*DocumentError
	Duplicates []*DuplicateSlugError
}

func (e *BuildError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "registry: build failed with %d error(s)", len(e.Documents)+len(e.Duplicates))
	for _, d := range e.Documents {
		b.WriteString("\n  ")
		b.WriteString(d.Error())
	}
	for _, d := range e.Duplicates {
		b.WriteString("\n  ")
		b.WriteString(d.Error())
	}
	return b.String()
}

func (e *BuildError) empty() bool {
	return len(e.Documents) == 0 && len(e.Duplicates) == 0
}
