// Package post defines the canonical post record and the builder that
// validates decoded front matter into one.
package post

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Validation sentinels, matched with errors.Is.
var (
	ErrMissingField = errors.New("missing required field")
	ErrInvalidDate  = errors.New("invalid date")
)

// ValidationError reports a front-matter field that failed semantic checks.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("post: field %q: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Image holds structured image metadata.
type Image struct {
	Path string `json:"path" yaml:"path"`
}

// FrontMatter is the validated, normalized metadata of a post.
//
// Title and Date are mandatory. Categories preserve source order; Tags are
// deduplicated in source order. Extra carries unrecognized keys through
// untouched so future content can add metadata without breaking the build.
type FrontMatter struct {
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Author      string         `json:"author,omitempty"`
	Date        time.Time      `json:"date"`
	Categories  []string       `json:"categories,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	Image       *Image         `json:"image,omitempty"`
	TOC         bool           `json:"toc,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"`
}

// Post is the canonical record for one Markdown source. Immutable after Build.
type Post struct {
	FrontMatter FrontMatter `json:"front_matter"`
	Body        string      `json:"body"`
	Slug        string      `json:"slug"`
	Source      string      `json:"source"`
}

// HasTag reports whether the post carries the given tag.
func (p *Post) HasTag(tag string) bool {
	for _, t := range p.FrontMatter.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// HasCategory reports whether the post belongs to the given category.
func (p *Post) HasCategory(category string) bool {
	for _, c := range p.FrontMatter.Categories {
		if c == category {
			return true
		}
	}
	return false
}

// recognized front-matter keys; everything else goes to Extra.
var recognizedKeys = map[string]struct{}{
	"title":       {},
	"description": {},
	"author":      {},
	"date":        {},
	"categories":  {},
	"tags":        {},
	"image":       {},
	"toc":         {},
}

// dateLayouts are tried in order. The corpus mixes numeric offsets
// (+0000, +0530), offset-less timestamps, and bare calendar dates.
var dateLayouts = []string{
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05 -07:00",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Build validates a decoded front-matter mapping and constructs a Post.
//
// It fails with a *ValidationError wrapping ErrMissingField when title or
// date is absent, and ErrInvalidDate when the date matches no accepted
// layout. Scalar categories/tags values are normalized to single-element
// lists.
func Build(meta map[string]any, body, source string) (*Post, error) {
	title := stringValue(meta["title"])
	if title == "" {
		return nil, &ValidationError{Field: "title", Err: ErrMissingField}
	}

	rawDate, ok := meta["date"]
	if !ok || rawDate == nil {
		return nil, &ValidationError{Field: "date", Err: ErrMissingField}
	}
	date, err := parseDate(rawDate)
	if err != nil {
		return nil, &ValidationError{Field: "date", Err: err}
	}

	fm := FrontMatter{
		Title:       title,
		Description: stringValue(meta["description"]),
		Author:      stringValue(meta["author"]),
		Date:        date,
		Categories:  stringList(meta["categories"]),
		Tags:        dedupe(stringList(meta["tags"])),
		Image:       imageValue(meta["image"]),
		TOC:         boolValue(meta["toc"]),
	}

	for k, v := range meta {
		if _, known := recognizedKeys[k]; known {
			continue
		}
		if fm.Extra == nil {
			fm.Extra = make(map[string]any)
		}
		fm.Extra[k] = v
	}

	return &Post{
		FrontMatter: fm,
		Body:        body,
		Slug:        Slug(date, title),
		Source:      source,
	}, nil
}

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)

// Slug derives the canonical slug from the calendar date and a kebab-cased
// title: "2024-06-02-ckad-guide".
func Slug(date time.Time, title string) string {
	kebab := nonAlnumRe.ReplaceAllString(strings.ToLower(title), "-")
	kebab = strings.Trim(kebab, "-")
	return date.Format("2006-01-02") + "-" + kebab
}

// parseDate accepts either a time.Time (yaml.v3 resolves offset-less
// timestamps natively) or a string in one of the known layouts.
func parseDate(v any) (time.Time, error) {
	switch d := v.(type) {
	case time.Time:
		return d, nil
	case string:
		s := strings.TrimSpace(d)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	default:
		return time.Time{}, fmt.Errorf("%w: unexpected type %T", ErrInvalidDate, v)
	}
}

// stringList normalizes a scalar or list value to a []string.
// "DevOps" and ["DevOps"] are equivalent inputs.
func stringList(v any) []string {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return nil
		}
		return []string{s}
	case []any:
		var out []string
		for _, item := range val {
			if s := stringValue(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return val
	default:
		return nil
	}
}

func dedupe(in []string) []string {
	if len(in) < 2 {
		return in
	}
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, s := range in {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func stringValue(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case fmt.Stringer:
		return s.String()
	default:
		return ""
	}
}

func boolValue(v any) bool {
	b, _ := v.(bool)
	return b
}

// imageValue accepts either a structured {path: ...} mapping or a bare
// string path.
func imageValue(v any) *Image {
	switch val := v.(type) {
	case string:
		if val == "" {
			return nil
		}
		return &Image{Path: val}
	case map[string]any:
		if p := stringValue(val["path"]); p != "" {
			return &Image{Path: p}
		}
		return nil
	default:
		return nil
	}
}
