package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"kickoff/internal/domain"
	"kickoff/internal/ports"

	_ "modernc.org/sqlite"
)

// ErrPlayerNotFound is returned by GetPlayer for users without a stored profile.
var ErrPlayerNotFound = errors.New("player profile not found")

// Store keeps the standalone host's persisted state: the current match per
// user and the local player profiles.
type Store struct {
	db *sql.DB
}

var (
	_ ports.MatchStorePort = (*Store)(nil)
	_ ports.PlayerPort     = (*Store)(nil)
	_ ports.AccountPort    = (*Store)(nil)
)

// Open opens (or creates) the database at path and applies the schema.
// Use ":memory:" for a throwaway store.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create db directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps :memory: databases alive and serialises writers.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	schema := `
		CREATE TABLE IF NOT EXISTS current_match (
			user_id TEXT PRIMARY KEY,
			match_id TEXT NOT NULL,
			team_name TEXT NOT NULL DEFAULT '',
			opponent_name TEXT NOT NULL DEFAULT '',
			started_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS player_profile (
			user_id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			player_type TEXT NOT NULL DEFAULT '',
			stamina INTEGER NOT NULL DEFAULT 0,
			team_name TEXT NOT NULL DEFAULT '',
			opponent_name TEXT NOT NULL DEFAULT ''
		);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) SaveCurrentMatch(ctx context.Context, userID string, match ports.CurrentMatch) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO current_match (user_id, match_id, team_name, opponent_name, started_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			match_id = excluded.match_id,
			team_name = excluded.team_name,
			opponent_name = excluded.opponent_name,
			started_at = excluded.started_at
	`, userID, match.MatchID, match.TeamName, match.OpponentName, match.StartedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save current match for %s: %w", userID, err)
	}
	return nil
}

func (s *Store) LoadCurrentMatch(ctx context.Context, userID string) (ports.CurrentMatch, bool, error) {
	var (
		match     ports.CurrentMatch
		startedAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT match_id, team_name, opponent_name, started_at
		FROM current_match WHERE user_id = ?
	`, userID).Scan(&match.MatchID, &match.TeamName, &match.OpponentName, &startedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ports.CurrentMatch{}, false, nil
	}
	if err != nil {
		return ports.CurrentMatch{}, false, fmt.Errorf("load current match for %s: %w", userID, err)
	}
	if t, err := time.Parse(time.RFC3339Nano, startedAt); err == nil {
		match.StartedAt = t
	}
	return match, true, nil
}

func (s *Store) ClearCurrentMatch(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM current_match WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("clear current match for %s: %w", userID, err)
	}
	return nil
}

// GetPlayer returns the stored profile, or ErrPlayerNotFound.
func (s *Store) GetPlayer(ctx context.Context, userID string) (domain.PlayerProfile, error) {
	p := domain.PlayerProfile{UserID: userID}
	err := s.db.QueryRowContext(ctx, `
		SELECT name, player_type, stamina, team_name, opponent_name
		FROM player_profile WHERE user_id = ?
	`, userID).Scan(&p.Name, &p.PlayerType, &p.Stamina, &p.TeamName, &p.OpponentName)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PlayerProfile{}, ErrPlayerNotFound
	}
	if err != nil {
		return domain.PlayerProfile{}, fmt.Errorf("load player %s: %w", userID, err)
	}
	return p, nil
}

// UpdateProfile upserts the profile row for profile.UserID.
func (s *Store) UpdateProfile(ctx context.Context, profile domain.PlayerProfile) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO player_profile (user_id, name, player_type, stamina, team_name, opponent_name)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			name = excluded.name,
			player_type = excluded.player_type,
			stamina = excluded.stamina,
			team_name = excluded.team_name,
			opponent_name = excluded.opponent_name
	`, profile.UserID, profile.Name, profile.PlayerType, profile.Stamina, profile.TeamName, profile.OpponentName)
	if err != nil {
		return fmt.Errorf("save player %s: %w", profile.UserID, err)
	}
	return nil
}
