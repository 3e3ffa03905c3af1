package index

import (
	"context"
	"os"
	"testing"

	"github.com/starford/ansuz/internal/registry"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "ansuz-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	sources := []registry.Source{
		{ID: "ckad.md", Data: []byte("---\ntitle: CKAD Guide\ndate: 2024-06-02 12:09:45 +0000\ntags: [ckad, kubernetes]\ncategories: DevOps\n---\nExam notes.\n")},
		{ID: "git.md", Data: []byte("---\ntitle: Git Guide\ndate: 2026-02-08 21:00:00 +0530\ntags: [git]\n---\nBranching.\n")},
	}
	r, err := registry.Build(context.Background(), sources)
	if err != nil {
		t.Fatalf("registry.Build: %v", err)
	}
	return r
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM posts`).Scan(&count); err != nil {
		t.Fatalf("posts table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM builds`).Scan(&count); err != nil {
		t.Fatalf("builds table missing: %v", err)
	}
}

func TestReplaceAll_PersistsAndReadsBack(t *testing.T) {
	db := testDB(t)
	reg := testRegistry(t)

	if err := db.ReplaceAll(reg, "fp1"); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}

	n, err := db.CountPosts()
	if err != nil {
		t.Fatalf("CountPosts: %v", err)
	}
	if n != 2 {
		t.Fatalf("count = %d, want 2", n)
	}

	row, err := db.GetPost("2024-06-02-ckad-guide")
	if err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	if row.Title != "CKAD Guide" {
		t.Errorf("title = %q", row.Title)
	}
	if len(row.Tags) != 2 || row.Tags[0] != "ckad" {
		t.Errorf("tags = %v", row.Tags)
	}
	if len(row.Categories) != 1 || row.Categories[0] != "DevOps" {
		t.Errorf("categories = %v", row.Categories)
	}
}

func TestReplaceAll_Wholesale(t *testing.T) {
	db := testDB(t)
	reg := testRegistry(t)

	if err := db.ReplaceAll(reg, "fp1"); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}

	smaller, err := registry.Build(context.Background(), []registry.Source{
		{ID: "only.md", Data: []byte("---\ntitle: Only\ndate: 2024-01-01\n---\nx\n")},
	})
	if err != nil {
		t.Fatalf("registry.Build: %v", err)
	}
	if err := db.ReplaceAll(smaller, "fp2"); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}

	n, _ := db.CountPosts()
	if n != 1 {
		t.Fatalf("count = %d, want 1 after wholesale replace", n)
	}
	fp, err := db.Fingerprint()
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	if fp != "fp2" {
		t.Errorf("fingerprint = %q, want fp2", fp)
	}
}

func TestFingerprint_EmptyBeforeFirstBuild(t *testing.T) {
	db := testDB(t)
	fp, err := db.Fingerprint()
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	if fp != "" {
		t.Errorf("fingerprint = %q, want empty", fp)
	}
}

func TestSlugs_NewestFirst(t *testing.T) {
	db := testDB(t)
	if err := db.ReplaceAll(testRegistry(t), "fp"); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
	slugs, err := db.Slugs()
	if err != nil {
		t.Fatalf("Slugs: %v", err)
	}
	if len(slugs) != 2 || slugs[0] != "2026-02-08-git-guide" {
		t.Errorf("slugs = %v", slugs)
	}
}
