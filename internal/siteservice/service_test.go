package siteservice

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/registry"
	"github.com/starford/ansuz/internal/testutil"
)

func testService(t *testing.T) (*Service, string) {
	t.Helper()
	dir, store := testutil.TestContent(t)
	return New(store, nil, nil, 0), dir
}

func writePost(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

const ckadDoc = "---\ntitle: CKAD Guide\ndate: 2024-06-02 12:09:45 +0000\ntags: [ckad, kubernetes]\ncategories: DevOps\n---\n# Prep\nNotes.\n"
const gitDoc = "---\ntitle: Git Guide\ndate: 2026-02-08 21:00:00 +0530\ntags: [git]\n---\nBranching.\n"

func TestRegistry_NotBuilt(t *testing.T) {
	svc, _ := testService(t)
	if _, err := svc.Registry(); !errors.Is(err, apperr.ErrNotBuilt) {
		t.Fatalf("err = %v, want ErrNotBuilt", err)
	}
}

func TestRebuild_ServesPosts(t *testing.T) {
	svc, dir := testService(t)
	writePost(t, dir, "ckad.md", ckadDoc)
	writePost(t, dir, "git.md", gitDoc)

	reg, err := svc.Rebuild(context.Background())
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if reg.Len() != 2 {
		t.Fatalf("len = %d, want 2", reg.Len())
	}

	items, total, err := svc.ListPosts(context.Background(), "", "", 0, 0)
	if err != nil {
		t.Fatalf("ListPosts: %v", err)
	}
	if total != 2 || items[0].Title != "Git Guide" {
		t.Errorf("total = %d, first = %q", total, items[0].Title)
	}
}

func TestRebuild_FailureKeepsPreviousRegistry(t *testing.T) {
	svc, dir := testService(t)
	writePost(t, dir, "ckad.md", ckadDoc)
	if _, err := svc.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	writePost(t, dir, "bad.md", "---\ndate: 2024-01-01\n---\nno title\n")
	_, err := svc.Rebuild(context.Background())
	var berr *registry.BuildError
	if !errors.As(err, &berr) {
		t.Fatalf("err = %T, want *BuildError", err)
	}

	// Old registry still serves.
	reg, err := svc.Registry()
	if err != nil {
		t.Fatalf("Registry: %v", err)
	}
	if reg.Len() != 1 {
		t.Errorf("len = %d, want previous build of 1", reg.Len())
	}
}

func TestRebuild_PersistsToIndex(t *testing.T) {
	dir, store := testutil.TestContent(t)
	db := testutil.TestDB(t)
	svc := New(store, db, nil, 0)
	writePost(t, dir, "ckad.md", ckadDoc)
	writePost(t, dir, "git.md", gitDoc)

	if _, err := svc.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	n, err := db.CountPosts()
	if err != nil {
		t.Fatalf("CountPosts: %v", err)
	}
	if n != 2 {
		t.Errorf("persisted posts = %d, want 2", n)
	}
	fp, err := db.Fingerprint()
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	if fp != svc.Fingerprint() {
		t.Errorf("index fingerprint %q != served %q", fp, svc.Fingerprint())
	}
}

func TestRebuildIfChanged_SkipsUnchanged(t *testing.T) {
	svc, dir := testService(t)
	writePost(t, dir, "ckad.md", ckadDoc)

	rebuilt, err := svc.RebuildIfChanged(context.Background())
	if err != nil || !rebuilt {
		t.Fatalf("first pass: rebuilt=%v err=%v", rebuilt, err)
	}
	rebuilt, err = svc.RebuildIfChanged(context.Background())
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if rebuilt {
		t.Error("unchanged corpus should not rebuild")
	}

	writePost(t, dir, "git.md", gitDoc)
	rebuilt, err = svc.RebuildIfChanged(context.Background())
	if err != nil || !rebuilt {
		t.Fatalf("third pass: rebuilt=%v err=%v", rebuilt, err)
	}
}

func TestListPosts_TagFilterAndPagination(t *testing.T) {
	svc, dir := testService(t)
	writePost(t, dir, "ckad.md", ckadDoc)
	writePost(t, dir, "git.md", gitDoc)
	if _, err := svc.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	items, total, err := svc.ListPosts(context.Background(), "kubernetes", "", 0, 0)
	if err != nil {
		t.Fatalf("ListPosts: %v", err)
	}
	if total != 1 || items[0].Slug != "2024-06-02-ckad-guide" {
		t.Errorf("tag filter: total=%d items=%v", total, items)
	}

	items, total, err = svc.ListPosts(context.Background(), "", "", 1, 1)
	if err != nil {
		t.Fatalf("ListPosts: %v", err)
	}
	if total != 2 || len(items) != 1 || items[0].Title != "CKAD Guide" {
		t.Errorf("pagination: total=%d items=%v", total, items)
	}
}

func TestGetPost_RenderedHTML(t *testing.T) {
	svc, dir := testService(t)
	writePost(t, dir, "ckad.md", ckadDoc)
	if _, err := svc.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	detail, err := svc.GetPost(context.Background(), "2024-06-02-ckad-guide", true)
	if err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	if !strings.Contains(detail.BodyHTML, "<h1") {
		t.Errorf("body_html = %q", detail.BodyHTML)
	}

	if _, err := svc.GetPost(context.Background(), "nope", false); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing slug err = %v, want ErrNotFound", err)
	}
}

func TestScaffoldPost(t *testing.T) {
	svc, dir := testService(t)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	path, err := svc.ScaffoldPost(context.Background(), "My New Post", now)
	if err != nil {
		t.Fatalf("ScaffoldPost: %v", err)
	}
	if path != "2026-03-01-my-new-post.md" {
		t.Errorf("path = %q", path)
	}

	data, err := os.ReadFile(filepath.Join(dir, path))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "title: My New Post") {
		t.Errorf("scaffold content = %q", data)
	}

	// Scaffolded post must survive a registry build.
	if _, err := svc.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild after scaffold: %v", err)
	}

	if _, err := svc.ScaffoldPost(context.Background(), "My New Post", now); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("second scaffold err = %v, want ErrAlreadyExists", err)
	}
}

func TestTagsAndCategories(t *testing.T) {
	svc, dir := testService(t)
	writePost(t, dir, "ckad.md", ckadDoc)
	writePost(t, dir, "git.md", gitDoc)
	if _, err := svc.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	tags, err := svc.Tags(context.Background())
	if err != nil {
		t.Fatalf("Tags: %v", err)
	}
	if len(tags) != 3 {
		t.Errorf("tags = %v, want 3", tags)
	}
	cats, err := svc.Categories(context.Background())
	if err != nil {
		t.Fatalf("Categories: %v", err)
	}
	if len(cats) != 1 || cats[0].Name != "DevOps" || cats[0].Count != 1 {
		t.Errorf("categories = %v", cats)
	}
}
