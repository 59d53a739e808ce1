package artifact

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

// schema is applied on every Open; CREATE IF NOT EXISTS keeps it
// idempotent across restarts.
const schema = `
CREATE TABLE IF NOT EXISTS artifacts (
	conversation TEXT NOT NULL,
	id           TEXT NOT NULL,
	title        TEXT NOT NULL,
	type         TEXT NOT NULL,
	content      TEXT NOT NULL,
	language     TEXT NOT NULL DEFAULT '',
	created_at   INTEGER NOT NULL,
	PRIMARY KEY (conversation, id)
);
CREATE INDEX IF NOT EXISTS idx_artifacts_conversation
	ON artifacts (conversation, created_at);
`

// Store caches extracted artifacts in SQLite so fragments observed in
// separate extraction calls can be stitched together later.
//
// Each cached record is identified by (conversation, artifact ID).
// The cache is advisory: losing it only disables deferred stitching,
// it never affects single-call pipeline correctness.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenStore opens (creating if needed) the artifact cache at path.
// Use ":memory:" for an ephemeral store in tests.
func OpenStore(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open artifact cache %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply artifact cache schema: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close artifact cache: %w", err)
	}
	return nil
}

// Ping verifies the cache is reachable. Used by readiness checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Save inserts or replaces a cached artifact for a conversation.
func (s *Store) Save(ctx context.Context, conversation string, a Artifact) error {
	if a.ID == "" {
		return fmt.Errorf("save artifact: empty ID")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO artifacts
			(conversation, id, title, type, content, language, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		conversation, a.ID, a.Title, string(a.Type), a.Content, a.Language,
		a.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("save artifact %s: %w", a.ID, err)
	}

	s.logger.Debug("cached artifact",
		"conversation", conversation,
		"id", a.ID,
		"type", a.Type)
	return nil
}

// Get retrieves one cached artifact.
// Returns ErrNotFound if the artifact does not exist.
func (s *Store) Get(ctx context.Context, conversation, id string) (Artifact, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, type, content, language, created_at
		FROM artifacts
		WHERE conversation = ? AND id = ?`,
		conversation, id)

	a, err := scanArtifact(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Artifact{}, ErrNotFound
		}
		return Artifact{}, fmt.Errorf("get artifact %s: %w", id, err)
	}
	return a, nil
}

// ListByConversation returns all cached artifacts for a conversation,
// ordered oldest first so callers can feed them straight into stitching.
func (s *Store) ListByConversation(ctx context.Context, conversation string) ([]Artifact, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, type, content, language, created_at
		FROM artifacts
		WHERE conversation = ?
		ORDER BY created_at ASC`,
		conversation)
	if err != nil {
		return nil, fmt.Errorf("list artifacts for %s: %w", conversation, err)
	}
	defer func() { _ = rows.Close() }()

	var out []Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan artifact row: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate artifacts for %s: %w", conversation, err)
	}
	return out, nil
}

// DeleteByConversation removes all cached artifacts for a conversation.
// Called after a deferred-stitch download completes.
func (s *Store) DeleteByConversation(ctx context.Context, conversation string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM artifacts WHERE conversation = ?`, conversation); err != nil {
		return fmt.Errorf("delete artifacts for %s: %w", conversation, err)
	}

	s.logger.Debug("dropped cached artifacts", "conversation", conversation)
	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanArtifact(sc scanner) (Artifact, error) {
	var (
		a   Artifact
		typ string
		ns  int64
	)
	if err := sc.Scan(&a.ID, &a.Title, &typ, &a.Content, &a.Language, &ns); err != nil {
		return Artifact{}, err
	}
	a.Type = Type(typ)
	a.CreatedAt = time.Unix(0, ns).UTC()
	return a, nil
}
