// Package siteservice coordinates the content store, the in-memory registry,
// and the persisted site index for the serving surfaces.
package siteservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/checksum"
	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/post"
	"github.com/starford/ansuz/internal/registry"
	"github.com/starford/ansuz/internal/render"
	"github.com/starford/ansuz/internal/storage"
)

// PostListItem is a lightweight item in a list response.
type PostListItem struct {
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Author      string    `json:"author,omitempty"`
	Date        time.Time `json:"date"`
	Tags        []string  `json:"tags"`
	Categories  []string  `json:"categories"`
}

// PostDetail is the full representation of a post.
type PostDetail struct {
	Slug        string         `json:"slug"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Author      string         `json:"author,omitempty"`
	Date        time.Time      `json:"date"`
	Tags        []string       `json:"tags"`
	Categories  []string       `json:"categories"`
	Image       *post.Image    `json:"image,omitempty"`
	TOC         bool           `json:"toc"`
	Extra       map[string]any `json:"extra,omitempty"`
	Body        string         `json:"body"`
	BodyHTML    string         `json:"body_html,omitempty"`
	Source      string         `json:"source"`
}

// Service owns the currently served registry and rebuilds it from the
// content store. The registry pointer is swapped atomically; readers always
// see either the previous complete build or the new one, never a partial
// state.
type Service struct {
	store    storage.Provider
	db       *index.DB
	renderer *render.Renderer
	logger   *slog.Logger
	workers  int

	current     atomic.Pointer[registry.Registry]
	fingerprint atomic.Pointer[string]
}

// New creates a site service. db may be nil when index persistence is not
// wanted (tests, ephemeral serving).
func New(store storage.Provider, db *index.DB, logger *slog.Logger, workers int) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    store,
		db:       db,
		renderer: render.New(),
		logger:   logger,
		workers:  workers,
	}
}

// Registry returns the currently served registry.
func (s *Service) Registry() (*registry.Registry, error) {
	reg := s.current.Load()
	if reg == nil {
		return nil, apperr.ErrNotBuilt
	}
	return reg, nil
}

// Rebuild reads every Markdown source, builds a fresh registry wholesale,
// persists it to the site index, and swaps it in. On build failure the
// previous registry keeps serving and the aggregate error is returned.
func (s *Service) Rebuild(ctx context.Context) (*registry.Registry, error) {
	metas, err := s.store.List("")
	if err != nil {
		return nil, fmt.Errorf("siteservice: list content: %w", err)
	}

	sums := make(map[string]string, len(metas))
	sources := make([]registry.Source, 0, len(metas))
	for _, m := range metas {
		data, err := s.store.Read(m.Path)
		if err != nil {
			return nil, fmt.Errorf("siteservice: read %s: %w", m.Path, err)
		}
		sums[m.Path] = m.Checksum
		sources = append(sources, registry.Source{ID: m.Path, Data: data})
	}

	var opts []registry.Option
	if s.workers > 0 {
		opts = append(opts, registry.WithWorkers(s.workers))
	}
	reg, err := registry.Build(ctx, sources, opts...)
	if err != nil {
		return nil, err
	}

	fp := checksum.Fingerprint(sums)
	if s.db != nil {
		if err := s.db.ReplaceAll(reg, fp); err != nil {
			return nil, err
		}
	}

	s.current.Store(reg)
	s.fingerprint.Store(&fp)
	s.logger.Info("registry rebuilt",
		slog.Int("posts", reg.Len()),
		slog.String("fingerprint", fp))
	return reg, nil
}

// RebuildIfChanged rebuilds only when the corpus fingerprint differs from
// the currently served build. Returns whether a rebuild happened.
func (s *Service) RebuildIfChanged(ctx context.Context) (bool, error) {
	metas, err := s.store.List("")
	if err != nil {
		return false, fmt.Errorf("siteservice: list content: %w", err)
	}
	sums := make(map[string]string, len(metas))
	for _, m := range metas {
		sums[m.Path] = m.Checksum
	}
	fp := checksum.Fingerprint(sums)

	if cur := s.fingerprint.Load(); cur != nil && *cur == fp {
		return false, nil
	}
	if _, err := s.Rebuild(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Fingerprint returns the corpus fingerprint of the served build, or empty
// string before the first successful build.
func (s *Service) Fingerprint() string {
	if fp := s.fingerprint.Load(); fp != nil {
		return *fp
	}
	return ""
}

// ListPosts returns posts newest first, optionally filtered by tag or
// category, with limit/offset pagination.
func (s *Service) ListPosts(_ context.Context, tag, category string, limit, offset int) ([]PostListItem, int, error) {
	reg, err := s.Registry()
	if err != nil {
		return nil, 0, err
	}

	var posts []*post.Post
	switch {
	case tag != "":
		posts = reg.ByTag(tag)
	case category != "":
		posts = reg.ByCategory(category)
	default:
		posts = reg.All()
	}

	total := len(posts)
	posts = paginate(posts, limit, offset)

	items := make([]PostListItem, len(posts))
	for i, p := range posts {
		items[i] = PostListItem{
			Slug:        p.Slug,
			Title:       p.FrontMatter.Title,
			Description: p.FrontMatter.Description,
			Author:      p.FrontMatter.Author,
			Date:        p.FrontMatter.Date,
			Tags:        nonNilSlice(p.FrontMatter.Tags),
			Categories:  nonNilSlice(p.FrontMatter.Categories),
		}
	}
	return items, total, nil
}

// GetPost returns one post by slug. When renderHTML is set the Markdown
// body is also rendered to HTML.
func (s *Service) GetPost(_ context.Context, slug string, renderHTML bool) (*PostDetail, error) {
	reg, err := s.Registry()
	if err != nil {
		return nil, err
	}
	p := reg.Get(slug)
	if p == nil {
		return nil, apperr.ErrNotFound
	}

	detail := &PostDetail{
		Slug:        p.Slug,
		Title:       p.FrontMatter.Title,
		Description: p.FrontMatter.Description,
		Author:      p.FrontMatter.Author,
		Date:        p.FrontMatter.Date,
		Tags:        nonNilSlice(p.FrontMatter.Tags),
		Categories:  nonNilSlice(p.FrontMatter.Categories),
		Image:       p.FrontMatter.Image,
		TOC:         p.FrontMatter.TOC,
		Extra:       p.FrontMatter.Extra,
		Body:        p.Body,
		Source:      p.Source,
	}
	if renderHTML {
		html, err := s.renderer.HTML(p.Body)
		if err != nil {
			return nil, err
		}
		detail.BodyHTML = html
	}
	return detail, nil
}

// Tags lists every tag with its post count.
func (s *Service) Tags(_ context.Context) ([]registry.NameCount, error) {
	reg, err := s.Registry()
	if err != nil {
		return nil, err
	}
	return reg.Tags(), nil
}

// Categories lists every category with its post count.
func (s *Service) Categories(_ context.Context) ([]registry.NameCount, error) {
	reg, err := s.Registry()
	if err != nil {
		return nil, err
	}
	return reg.Categories(), nil
}

// scaffoldTemplate is the front-matter block written by ScaffoldPost.
const scaffoldTemplate = `---
title: %s
date: %s
categories: []
tags: []
---

Write here.
`

// ScaffoldPost writes a new Markdown source for the given title, named after
// its would-be slug. Fails with ErrAlreadyExists when the file is present.
func (s *Service) ScaffoldPost(_ context.Context, title string, now time.Time) (string, error) {
	if title == "" {
		return "", errors.New("siteservice: title is required")
	}
	path := post.Slug(now, title) + ".md"
	if _, err := s.store.Read(path); err == nil {
		return "", fmt.Errorf("%s: %w", path, apperr.ErrAlreadyExists)
	}

	content := fmt.Sprintf(scaffoldTemplate, title, now.Format("2006-01-02 15:04:05 -0700"))
	if err := s.store.Write(path, []byte(content)); err != nil {
		return "", err
	}
	return path, nil
}

func paginate(posts []*post.Post, limit, offset int) []*post.Post {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(posts) {
		return nil
	}
	posts = posts[offset:]
	if limit <= 0 {
		limit = 50
	}
	if limit < len(posts) {
		posts = posts[:limit]
	}
	return posts
}

func nonNilSlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
