package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ErrRefreshInvalid covers unknown, expired, revoked and already used
// refresh tokens alike.
var ErrRefreshInvalid = errors.New("refresh token invalid")

// TokenRepo keeps refresh token hashes; the raw token never reaches the
// database.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Store records a new refresh token for userID.
func (r *TokenRepo) Store(ctx context.Context, userID, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)",
		userID, tokenHash, exp.UTC())
	return err
}

// Owner returns the user a live token belongs to.
func (r *TokenRepo) Owner(ctx context.Context, tokenHash string) (string, error) {
	var userID string
	err := r.DB.QueryRowContext(ctx,
		`SELECT user_id FROM refresh_tokens
		 WHERE token_hash = ? AND revoked_at IS NULL AND expires_at > UTC_TIMESTAMP() LIMIT 1`,
		tokenHash).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrRefreshInvalid
	}
	return userID, err
}

// Consume revokes a live token and returns its owner. When two requests
// race on the same token only one of them gets the owner back.
func (r *TokenRepo) Consume(ctx context.Context, tokenHash string) (string, error) {
	userID, err := r.Owner(ctx, tokenHash)
	if err != nil {
		return "", err
	}
	res, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at = UTC_TIMESTAMP() WHERE token_hash = ? AND revoked_at IS NULL",
		tokenHash)
	if err != nil {
		return "", err
	}
	if err := requireRow(res, ErrRefreshInvalid); err != nil {
		return "", err
	}
	return userID, nil
}

// RevokeAll ends every session of userID.
func (r *TokenRepo) RevokeAll(ctx context.Context, userID string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at = UTC_TIMESTAMP() WHERE user_id = ? AND revoked_at IS NULL",
		userID)
	return err
}
