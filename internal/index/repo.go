package index

import (
	"fmt"
	"time"

	"github.com/starford/graphlint/internal/models"
)

// GraphNode is a persisted document.
type GraphNode struct {
	Path  string `json:"path"`
	Rel   string `json:"rel"`
	ID    string `json:"id,omitempty"`
	Title string `json:"title,omitempty"`
}

// GraphLink is an edge between two persisted documents.
type GraphLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// UpsertDocument inserts or replaces a document and its links within a
// transaction.
func (db *DB) UpsertDocument(d models.Document) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var meta models.Metadata
	if d.Metadata != nil {
		meta = *d.Metadata
	}
	_, err = tx.Exec(`
		INSERT INTO documents (path, rel, doc_id, type, title, status, checksum, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			rel        = excluded.rel,
			doc_id     = excluded.doc_id,
			type       = excluded.type,
			title      = excluded.title,
			status     = excluded.status,
			checksum   = excluded.checksum,
			updated_at = excluded.updated_at
	`, d.Path, d.Rel, meta.ID, meta.Type, meta.Title, meta.Status, d.Checksum, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("index: upsert document: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM links WHERE source = ?`, d.Path); err != nil {
		return fmt.Errorf("index: clear links: %w", err)
	}
	if len(d.Links) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO links (source, target, resolved) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare link insert: %w", err)
		}
		defer stmt.Close()
		for _, l := range d.Links {
			if _, err := stmt.Exec(d.Path, l.Target, l.Resolved); err != nil {
				return fmt.Errorf("index: insert link: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteDocument removes a document, its outgoing links and its findings.
func (db *DB) DeleteDocument(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, q := range []string{
		`DELETE FROM links WHERE source = ?`,
		`DELETE FROM findings WHERE path = ?`,
		`DELETE FROM documents WHERE path = ?`,
	} {
		if _, err := tx.Exec(q, path); err != nil {
			return fmt.Errorf("index: delete document: %w", err)
		}
	}

	return tx.Commit()
}

// ReplaceFindings swaps the stored findings for the given set.
func (db *DB) ReplaceFindings(findings []models.Finding) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`DELETE FROM findings`); err != nil {
		return fmt.Errorf("index: clear findings: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO findings (path, rel, code) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("index: prepare finding insert: %w", err)
	}
	defer stmt.Close()
	for _, f := range findings {
		if _, err := stmt.Exec(f.Path, f.Rel, f.Code); err != nil {
			return fmt.Errorf("index: insert finding: %w", err)
		}
	}
	return tx.Commit()
}

// AllChecksums returns path → checksum for every stored document.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// Backlinks returns the rendered paths of documents linking to resolved.
// Self-links are excluded.
func (db *DB) Backlinks(resolved string) ([]string, error) {
	rows, err := db.conn.Query(`
		SELECT DISTINCT d.rel
		FROM links l
		JOIN documents d ON d.path = l.source
		WHERE l.resolved = ? AND l.source <> l.resolved
		ORDER BY d.rel
	`, resolved)
	if err != nil {
		return nil, fmt.Errorf("index: backlinks: %w", err)
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

// Graph returns all documents and the links between them.
func (db *DB) Graph() ([]GraphNode, []GraphLink, error) {
	rows, err := db.conn.Query(`SELECT path, rel, doc_id, title FROM documents ORDER BY rel`)
	if err != nil {
		return nil, nil, fmt.Errorf("index: graph nodes: %w", err)
	}
	var nodes []GraphNode
	for rows.Next() {
		var n GraphNode
		if err := rows.Scan(&n.Path, &n.Rel, &n.ID, &n.Title); err != nil {
			rows.Close()
			return nil, nil, err
		}
		nodes = append(nodes, n)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	rows, err = db.conn.Query(`
		SELECT DISTINCT s.rel, t.rel
		FROM links l
		JOIN documents s ON s.path = l.source
		JOIN documents t ON t.path = l.resolved
		WHERE l.source <> l.resolved
		ORDER BY s.rel, t.rel
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("index: graph links: %w", err)
	}
	defer rows.Close()
	var links []GraphLink
	for rows.Next() {
		var l GraphLink
		if err := rows.Scan(&l.Source, &l.Target); err != nil {
			return nil, nil, err
		}
		links = append(links, l)
	}
	return nodes, links, rows.Err()
}

// Findings returns the stored findings ordered by rendered path and code.
func (db *DB) Findings() ([]models.Finding, error) {
	rows, err := db.conn.Query(`SELECT path, rel, code FROM findings ORDER BY rel, code`)
	if err != nil {
		return nil, fmt.Errorf("index: findings: %w", err)
	}
	defer rows.Close()
	var out []models.Finding
	for rows.Next() {
		var f models.Finding
		if err := rows.Scan(&f.Path, &f.Rel, &f.Code); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// DuplicateIDs returns ids declared by more than one stored document, with
// the rendered paths of their claimants.
func (db *DB) DuplicateIDs() (map[string][]string, error) {
	rows, err := db.conn.Query(`
		SELECT doc_id, rel FROM documents
		WHERE doc_id IN (
			SELECT doc_id FROM documents WHERE doc_id <> '' GROUP BY doc_id HAVING count(*) > 1
		)
		ORDER BY doc_id, rel
	`)
	if err != nil {
		return nil, fmt.Errorf("index: duplicate ids: %w", err)
	}
	defer rows.Close()
	out := make(map[string][]string)
	for rows.Next() {
		var id, rel string
		if err := rows.Scan(&id, &rel); err != nil {
			return nil, err
		}
		out[id] = append(out[id], rel)
	}
	return out, rows.Err()
}
