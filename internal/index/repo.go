package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/registry"
)

// PostRow is a post as read back from the index.
type PostRow struct {
	Slug        string
	Title       string
	Description string
	Author      string
	Date        time.Time
	Categories  []string
	Tags        []string
	ImagePath   string
	TOC         bool
	Body        string
	Source      string
}

// ReplaceAll persists a built registry wholesale inside one transaction:
// the previous snapshot is dropped, every post is inserted, and the corpus
// fingerprint is recorded. Partial writes never become visible.
func (db *DB) ReplaceAll(reg *registry.Registry, fingerprint string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if _, err := tx.Exec(`DELETE FROM posts`); err != nil {
		return fmt.Errorf("index: clear posts: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO posts (slug, title, description, author, date, categories, tags, image_path, toc, body, source)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("index: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range reg.All() {
		fm := p.FrontMatter
		catsJSON, _ := json.Marshal(nonNil(fm.Categories))
		tagsJSON, _ := json.Marshal(nonNil(fm.Tags))
		imagePath := ""
		if fm.Image != nil {
			imagePath = fm.Image.Path
		}
		// Dates are normalized to UTC so ORDER BY date compares instants,
		// not mixed-offset strings.
		if _, err := stmt.Exec(p.Slug, fm.Title, fm.Description, fm.Author, fm.Date.UTC(),
			string(catsJSON), string(tagsJSON), imagePath, fm.TOC, p.Body, p.Source); err != nil {
			return fmt.Errorf("index: insert %s: %w", p.Slug, err)
		}
	}

	_, err = tx.Exec(`
		INSERT INTO builds (id, fingerprint, built_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET fingerprint = excluded.fingerprint, built_at = excluded.built_at
	`, fingerprint, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("index: record build: %w", err)
	}

	return tx.Commit()
}

// Fingerprint returns the corpus fingerprint of the last persisted build,
// or empty string when the index has never been written.
func (db *DB) Fingerprint() (string, error) {
	var fp string
	err := db.conn.QueryRow(`SELECT fingerprint FROM builds WHERE id = 1`).Scan(&fp)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: fingerprint: %w", err)
	}
	return fp, nil
}

// CountPosts returns the number of persisted posts.
func (db *DB) CountPosts() (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT count(*) FROM posts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("index: count: %w", err)
	}
	return n, nil
}

// GetPost reads one persisted post by slug.
func (db *DB) GetPost(slug string) (*PostRow, error) {
	row := db.conn.QueryRow(`
		SELECT slug, title, description, author, date, categories, tags, image_path, toc, body, source
		FROM posts WHERE slug = ?
	`, slug)

	var r PostRow
	var catsJSON, tagsJSON string
	err := row.Scan(&r.Slug, &r.Title, &r.Description, &r.Author, &r.Date,
		&catsJSON, &tagsJSON, &r.ImagePath, &r.TOC, &r.Body, &r.Source)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("index: get %s: %w", slug, err)
	}
	_ = json.Unmarshal([]byte(catsJSON), &r.Categories)
	_ = json.Unmarshal([]byte(tagsJSON), &r.Tags)
	return &r, nil
}

// Slugs returns every persisted slug, newest first.
func (db *DB) Slugs() ([]string, error) {
	rows, err := db.conn.Query(`SELECT slug FROM posts ORDER BY date DESC, slug ASC`)
	if err != nil {
		return nil, fmt.Errorf("index: slugs: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
