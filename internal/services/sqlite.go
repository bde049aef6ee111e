package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"fair-casino-backend/internal/apperrors"
	"fair-casino-backend/internal/models"
)

// SQLiteRoundStore persists rounds in a SQLite database.
type SQLiteRoundStore struct {
	db *sql.DB
}

func NewSQLiteRoundStore(path string) (*SQLiteRoundStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serialises
	// writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &SQLiteRoundStore{db: db}
	if err := store.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteRoundStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteRoundStore) Migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS rounds (
			round_id TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			game_id TEXT NOT NULL,
			currency TEXT NOT NULL,
			bet_amount TEXT NOT NULL,
			payout TEXT NOT NULL,
			multiplier TEXT NOT NULL,
			options TEXT NOT NULL,
			outcome TEXT NOT NULL,
			server_seed_hash TEXT NOT NULL,
			client_seed TEXT NOT NULL,
			nonce INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rounds_user_created ON rounds(user_id, created_at DESC)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_rounds_seed_nonce ON rounds(server_seed_hash, nonce)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

func (s *SQLiteRoundStore) RecordRound(ctx context.Context, round *models.RoundRecord) (string, error) {
	if round.RoundID == "" {
		round.RoundID = models.GenerateRoundID()
	}
	options := string(round.Options)
	if options == "" {
		options = "null"
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rounds (
			round_id, user_id, game_id, currency, bet_amount, payout, multiplier,
			options, outcome, server_seed_hash, client_seed, nonce, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		round.RoundID, round.UserID, round.GameID, round.Currency,
		round.BetAmount.String(), round.Payout.String(), round.Multiplier.String(),
		options, string(round.Outcome), round.ServerSeedHash, round.ClientSeed,
		round.Nonce, round.CreatedAt.UnixNano(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert round: %w", err)
	}
	return round.RoundID, nil
}

func (s *SQLiteRoundStore) DeleteRound(ctx context.Context, roundID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM rounds WHERE round_id = ?`, roundID); err != nil {
		return fmt.Errorf("failed to delete round: %w", err)
	}
	return nil
}

const roundColumns = `round_id, user_id, game_id, currency, bet_amount, payout, multiplier,
	options, outcome, server_seed_hash, client_seed, nonce, created_at`

func (s *SQLiteRoundStore) Round(ctx context.Context, roundID string) (*models.RoundRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+roundColumns+` FROM rounds WHERE round_id = ?`, roundID)
	round, err := scanRound(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.New(apperrors.KindRoundNotFound, "round %s not found", roundID)
	}
	if err != nil {
		return nil, err
	}
	return round, nil
}

func (s *SQLiteRoundStore) UserRounds(ctx context.Context, userID int64, limit int) ([]*models.RoundRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+roundColumns+` FROM rounds WHERE user_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		userID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query rounds: %w", err)
	}
	defer rows.Close()

	rounds := []*models.RoundRecord{}
	for rows.Next() {
		round, err := scanRound(rows)
		if err != nil {
			return nil, err
		}
		rounds = append(rounds, round)
	}
	return rounds, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRound(row rowScanner) (*models.RoundRecord, error) {
	var (
		r                       models.RoundRecord
		bet, payout, multiplier string
		options, outcome        string
		createdAt               int64
	)
	err := row.Scan(&r.RoundID, &r.UserID, &r.GameID, &r.Currency, &bet, &payout, &multiplier,
		&options, &outcome, &r.ServerSeedHash, &r.ClientSeed, &r.Nonce, &createdAt)
	if err != nil {
		return nil, err
	}

	if r.BetAmount, err = decimal.NewFromString(bet); err != nil {
		return nil, fmt.Errorf("round %s: bad bet amount: %w", r.RoundID, err)
	}
	if r.Payout, err = decimal.NewFromString(payout); err != nil {
		return nil, fmt.Errorf("round %s: bad payout: %w", r.RoundID, err)
	}
	if r.Multiplier, err = decimal.NewFromString(multiplier); err != nil {
		return nil, fmt.Errorf("round %s: bad multiplier: %w", r.RoundID, err)
	}
	r.Options = []byte(options)
	r.Outcome = []byte(outcome)
	r.CreatedAt = time.Unix(0, createdAt).UTC()
	return &r, nil
}
