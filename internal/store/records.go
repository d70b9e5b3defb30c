package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // pure Go SQLite driver
)

const chunksSchema = `
CREATE TABLE IF NOT EXISTS chunks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL,
	repo_id TEXT NOT NULL,
	file_path TEXT NOT NULL,
	content TEXT NOT NULL,
	line_start INTEGER NOT NULL,
	line_end INTEGER NOT NULL,
	chunk_type TEXT NOT NULL,
	vector BLOB NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_chunks_tenant ON chunks(user_id, repo_id);
`

// recordsDB stores chunk rows, including their raw embeddings so the
// vector index can be rebuilt from SQLite alone.
type recordsDB struct {
	db *sql.DB
}

// openRecordsDB opens (or creates) the chunks database at path.
func openRecordsDB(path string) (*recordsDB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single connection: SQLite allows one writer, and the store
	// serializes access anyway
	db.SetMaxOpenConns(1)

	// modernc.org/sqlite ignores mattn-style DSN params; pragmas must
	// be set via statements. WAL for read concurrency, busy timeout
	// for lock contention.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(chunksSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &recordsDB{db: db}, nil
}

// insert stores records in one transaction and returns their rowids in
// input order.
func (r *recordsDB) insert(ctx context.Context, recs []Record) ([]int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (user_id, repo_id, file_path, content, line_start, line_end, chunk_type, vector)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	ids := make([]int64, 0, len(recs))
	for _, rec := range recs {
		res, err := stmt.ExecContext(ctx,
			rec.UserID, rec.RepoID, rec.FilePath, rec.Content,
			rec.LineStart, rec.LineEnd, rec.ChunkType, encodeVector(rec.Vector))
		if err != nil {
			return nil, fmt.Errorf("failed to insert chunk: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("failed to get rowid: %w", err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return ids, nil
}

// getByIDs fetches records (without vectors) for the given rowids.
func (r *recordsDB) getByIDs(ctx context.Context, ids []int64) (map[int64]Record, error) {
	if len(ids) == 0 {
		return map[int64]Record{}, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, repo_id, file_path, content, line_start, line_end, chunk_type
		FROM chunks WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[int64]Record, len(ids))
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.RepoID, &rec.FilePath,
			&rec.Content, &rec.LineStart, &rec.LineEnd, &rec.ChunkType); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		out[rec.ID] = rec
	}
	return out, rows.Err()
}

// allWithVectors returns every record including its embedding, optionally
// excluding one repo. Used to rebuild the vector index.
func (r *recordsDB) allWithVectors(ctx context.Context, excludeRepoID string) ([]Record, error) {
	query := `SELECT id, user_id, repo_id, file_path, content, line_start, line_end, chunk_type, vector FROM chunks`
	var args []any
	if excludeRepoID != "" {
		query += ` WHERE repo_id != ?`
		args = append(args, excludeRepoID)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Record
	for rows.Next() {
		var rec Record
		var blob []byte
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.RepoID, &rec.FilePath,
			&rec.Content, &rec.LineStart, &rec.LineEnd, &rec.ChunkType, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		vec, err := decodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("corrupt vector for chunk %d: %w", rec.ID, err)
		}
		rec.Vector = vec
		out = append(out, rec)
	}
	return out, rows.Err()
}

// deleteRepo removes all rows for a repo and returns how many.
func (r *recordsDB) deleteRepo(ctx context.Context, repoID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM chunks WHERE repo_id = ?`, repoID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete repo chunks: %w", err)
	}
	return res.RowsAffected()
}

// deleteAll removes every row.
func (r *recordsDB) deleteAll(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM chunks`)
	if err != nil {
		return fmt.Errorf("failed to delete all chunks: %w", err)
	}
	return nil
}

// count returns the total number of chunks, optionally for one repo.
func (r *recordsDB) count(ctx context.Context, repoID string) (int, error) {
	query := `SELECT COUNT(*) FROM chunks`
	var args []any
	if repoID != "" {
		query += ` WHERE repo_id = ?`
		args = append(args, repoID)
	}

	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return n, nil
}

// repoIDs returns the distinct repo IDs present in the store.
func (r *recordsDB) repoIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT repo_id FROM chunks ORDER BY repo_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query repo ids: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Close closes the database.
func (r *recordsDB) Close() error {
	return r.db.Close()
}
