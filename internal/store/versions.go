package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
)

// Version is a persisted frontend payload version row.
type Version struct {
	ID            int64
	GameID        string
	VersionNumber int
	PayloadHash   string
	Content       []byte
	IsActive      bool
	CreatedAt     time.Time
}

// ErrVersionConflict is returned when another finalizer published a version
// for the game after the caller observed baseVersion. The caller lost
// cleanly: nothing was written, the winner's row is intact, and the caller
// may re-read the active version and decide whether to retry.
var ErrVersionConflict = errors.New("store: concurrent version publish for game")

// PublishVersion appends payload version baseVersion+1 for a game and
// atomically moves the active flag onto it. baseVersion is the highest
// version number the caller observed before building the payload (0 when
// the game had none); if anything was published since, nothing is written
// and the error wraps ErrVersionConflict.
//
// All inside one transaction: flip the previous active row off, check the
// observed number still holds, insert the new row active. The deactivate
// runs first so the transaction takes the write lock before reading; a
// loser that was queued behind the winner then sees the winner's commit
// and aborts instead of reading a stale snapshot. The partial unique index
// on (game_id) WHERE is_active backstops the single-active invariant at
// the storage level. Historical rows are never touched.
func (s *Store) PublishVersion(ctx context.Context, gameID, payloadHash string, content []byte, baseVersion int) (*Version, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("publish version: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed; restores the active flag on conflict

	_, err = tx.ExecContext(ctx, `
		UPDATE payload_versions SET is_active = 0
		WHERE game_id = ? AND is_active = 1
	`, gameID)
	if err != nil {
		return nil, fmt.Errorf("publish version: deactivate previous: %w", err)
	}

	var current int
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(version_number), 0) FROM payload_versions
		WHERE game_id = ?
	`, gameID).Scan(&current)
	if err != nil {
		return nil, fmt.Errorf("publish version: current number: %w", err)
	}
	if current != baseVersion {
		return nil, fmt.Errorf("publish version for %s: observed v%d, now v%d: %w",
			gameID, baseVersion, current, ErrVersionConflict)
	}
	next := baseVersion + 1

	createdAt := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO payload_versions (game_id, version_number, payload_hash, content, is_active, created_at)
		VALUES (?, ?, ?, ?, 1, ?)
	`, gameID, next, payloadHash, content, createdAt.Format(time.RFC3339))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("publish version for %s: %w", gameID, ErrVersionConflict)
		}
		return nil, fmt.Errorf("publish version: insert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("publish version: last insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("publish version for %s: %w", gameID, ErrVersionConflict)
		}
		return nil, fmt.Errorf("publish version: commit: %w", err)
	}

	return &Version{
		ID:            id,
		GameID:        gameID,
		VersionNumber: next,
		PayloadHash:   payloadHash,
		Content:       content,
		IsActive:      true,
		CreatedAt:     createdAt,
	}, nil
}

// isUniqueViolation detects a SQLite uniqueness constraint failure.
func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// ActiveVersion returns the active version for a game, or nil when no
// version has been published.
func (s *Store) ActiveVersion(ctx context.Context, gameID string) (*Version, error) {
	v, err := s.scanVersion(s.db.QueryRowContext(ctx, `
		SELECT id, game_id, version_number, payload_hash, content, is_active, created_at
		FROM payload_versions
		WHERE game_id = ? AND is_active = 1
	`, gameID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return v, err
}

// GetVersion returns one version of a game by number, or nil when the
// game has no such version.
func (s *Store) GetVersion(ctx context.Context, gameID string, number int) (*Version, error) {
	v, err := s.scanVersion(s.db.QueryRowContext(ctx, `
		SELECT id, game_id, version_number, payload_hash, content, is_active, created_at
		FROM payload_versions
		WHERE game_id = ? AND version_number = ?
	`, gameID, number))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return v, err
}

// ListVersions returns a game's full version history, oldest first.
// History is retained forever; this is the audit/rollback surface.
func (s *Store) ListVersions(ctx context.Context, gameID string) ([]Version, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, game_id, version_number, payload_hash, content, is_active, created_at
		FROM payload_versions
		WHERE game_id = ?
		ORDER BY version_number ASC
	`, gameID)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	versions := []Version{}
	for rows.Next() {
		v, err := s.scanVersion(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate versions: %w", err)
	}
	return versions, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanVersion.
type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanVersion(row rowScanner) (*Version, error) {
	var v Version
	var active int
	var createdAt string
	if err := row.Scan(&v.ID, &v.GameID, &v.VersionNumber, &v.PayloadHash, &v.Content, &active, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan version: %w", err)
	}
	v.IsActive = active != 0
	if ts, err := time.Parse(time.RFC3339, createdAt); err == nil {
		v.CreatedAt = ts
	}
	return &v, nil
}
