package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func testFS(t *testing.T) (*FS, string) {
	t.Helper()
	dir := t.TempDir()
	f, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return f, dir
}

func TestNewFS_MissingRoot(t *testing.T) {
	if _, err := NewFS("/does/not/exist"); err == nil {
		t.Fatal("expected error for missing root")
	}
}

func TestList_OnlyMarkdown(t *testing.T) {
	f, dir := testFS(t)
	files := map[string]string{
		"a.md":            "# A",
		"sub/b.md":        "# B",
		"ignore.txt":      "nope",
		"sub/ignore.yaml": "nope",
	}
	for p, content := range files {
		full := filepath.Join(dir, p)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	metas, err := f.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(metas) != 2 {
		t.Fatalf("len = %d, want 2", len(metas))
	}
	for _, m := range metas {
		if m.Checksum == "" {
			t.Errorf("empty checksum for %s", m.Path)
		}
	}
}

func TestReadWrite_RoundTrip(t *testing.T) {
	f, _ := testFS(t)
	if err := f.Write("posts/hello.md", []byte("# Hello")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	data, err := f.Read("posts/hello.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(data) != "# Hello" {
		t.Errorf("content = %q", data)
	}
}

func TestSafePath_TraversalRejected(t *testing.T) {
	f, _ := testFS(t)
	if _, err := f.Read("../outside.md"); err == nil {
		t.Error("expected traversal rejection")
	}
	if _, err := f.Read("/etc/passwd"); err == nil {
		t.Error("expected absolute path rejection")
	}
}

func TestWrite_NoTempFileLeftBehind(t *testing.T) {
	f, dir := testFS(t)
	if err := f.Write("x.md", []byte("content")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.Name() != "x.md" {
			t.Errorf("unexpected file: %s", e.Name())
		}
	}
}
