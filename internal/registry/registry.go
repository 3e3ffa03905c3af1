// Package registry builds and queries the immutable post registry: every
// valid Markdown source parsed, validated, and indexed by slug, tag, and
// category.
package registry

import (
	"context"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/starford/ansuz/internal/frontmatter"
	"github.com/starford/ansuz/internal/post"
)

// Source is one raw Markdown document to index. ID identifies the document
// in error reports (typically its path relative to the content root).
type Source struct {
	ID   string
	Data []byte
}

// Registry is the built, immutable aggregate. There is no partial state: a
// Registry either exists fully built or not at all.
type Registry struct {
	posts      []*post.Post
	bySlug     map[string]*post.Post
	byTag      map[string][]*post.Post
	byCategory map[string][]*post.Post
}

type buildOptions struct {
	workers int
}

// Option configures a registry build.
type Option func(*buildOptions)

// WithWorkers caps the number of concurrent per-document parse workers.
func WithWorkers(n int) Option {
	return func(o *buildOptions) {
		if n > 0 {
			o.workers = n
		}
	}
}

// Build parses and validates every source and assembles the registry.
//
// Per-document failures are collected, never returned eagerly: a single
// malformed post must not prevent the rest of the corpus from building.
// Duplicate slugs are a cross-document invariant checked after all sources
// validate. Any failure at all yields a *BuildError and no registry.
//
// Documents are parsed concurrently; aggregation happens single-threaded
// after all workers join.
func Build(ctx context.Context, sources []Source, opts ...Option) (*Registry, error) {
	o := buildOptions{workers: runtime.NumCPU()}
	for _, opt := range opts {
		opt(&o)
	}

	type result struct {
		post *post.Post
		err  error
	}
	results := make([]result, len(sources))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for i, src := range sources {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			p, err := parseOne(src)
			results[i] = result{post: p, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	buildErr := &BuildError{}
	valid := make([]*post.Post, 0, len(sources))
	for i, r := range results {
		if r.err != nil {
			buildErr.Documents = append(buildErr.Documents, &DocumentError{
				Source: sources[i].ID,
				Err:    r.err,
			})
			continue
		}
		valid = append(valid, r.post)
	}

	buildErr.Duplicates = findDuplicates(valid)
	if !buildErr.empty() {
		return nil, buildErr
	}

	return assemble(valid), nil
}

func parseOne(src Source) (*post.Post, error) {
	doc, err := frontmatter.Parse(src.Data)
	if err != nil {
		return nil, err
	}
	return post.Build(doc.Meta, doc.Body, src.ID)
}

// findDuplicates groups valid posts by slug and reports every collision.
func findDuplicates(posts []*post.Post) []*DuplicateSlugError {
	bySlug := make(map[string][]string, len(posts))
	for _, p := range posts {
		bySlug[p.Slug] = append(bySlug[p.Slug], p.Source)
	}

	var slugs []string
	for slug, srcs := range bySlug {
		if len(srcs) > 1 {
			slugs = append(slugs, slug)
		}
	}
	sort.Strings(slugs)

	var out []*DuplicateSlugError
	for _, slug := range slugs {
		srcs := bySlug[slug]
		sort.Strings(srcs)
		out = append(out, &DuplicateSlugError{Slug: slug, Sources: srcs})
	}
	return out
}

// assemble sorts the posts and derives the tag/category mappings. Every
// post reachable from a mapping is also present in the primary list.
func assemble(posts []*post.Post) *Registry {
	sortPosts(posts)

	r := &Registry{
		posts:      posts,
		bySlug:     make(map[string]*post.Post, len(posts)),
		byTag:      make(map[string][]*post.Post),
		byCategory: make(map[string][]*post.Post),
	}
	for _, p := range posts {
		r.bySlug[p.Slug] = p
		for _, t := range p.FrontMatter.Tags {
			r.byTag[t] = append(r.byTag[t], p)
		}
		for _, c := range p.FrontMatter.Categories {
			r.byCategory[c] = append(r.byCategory[c], p)
		}
	}
	return r
}

// sortPosts orders by descending date, ties broken by ascending slug for
// determinism.
func sortPosts(posts []*post.Post) {
	sort.Slice(posts, func(i, j int) bool {
		di, dj := posts[i].FrontMatter.Date, posts[j].FrontMatter.Date
		if !di.Equal(dj) {
			return di.After(dj)
		}
		return posts[i].Slug < posts[j].Slug
	})
}

// Len returns the number of posts in the registry.
func (r *Registry) Len() int { return len(r.posts) }

// All returns every post, newest first. Callers must not modify the
// returned slice.
func (r *Registry) All() []*post.Post { return r.posts }

// Get returns the post with the given slug, or nil.
func (r *Registry) Get(slug string) *post.Post { return r.bySlug[slug] }

// ByTag returns the posts carrying tag, newest first. An unknown tag yields
// an empty result, not an error.
func (r *Registry) ByTag(tag string) []*post.Post {
	posts := r.byTag[tag]
	if posts == nil {
		return []*post.Post{}
	}
	return posts
}

// ByCategory returns the posts in category, newest first.
func (r *Registry) ByCategory(category string) []*post.Post {
	posts := r.byCategory[category]
	if posts == nil {
		return []*post.Post{}
	}
	return posts
}

// NameCount pairs a tag or category name with its post count.
type NameCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Tags lists every tag with its post count, sorted by name.
func (r *Registry) Tags() []NameCount { return nameCounts(r.byTag) }

// Categories lists every category with its post count, sorted by name.
func (r *Registry) Categories() []NameCount { return nameCounts(r.byCategory) }

func nameCounts(m map[string][]*post.Post) []NameCount {
	out := make([]NameCount, 0, len(m))
	for name, posts := range m {
		out = append(out, NameCount{Name: name, Count: len(posts)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
