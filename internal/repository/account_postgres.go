package repository

import (
	"database/sql"
	"fmt"
	"time"

	"gatewarden/internal/models"

	"github.com/google/uuid"
)

type AccountPostgres struct {
	db *sql.DB
}

func NewAccountPostgres(db *sql.DB) *AccountPostgres {
	return &AccountPostgres{db: db}
}

func (r *AccountPostgres) AllAccounts() ([]models.LinkedAccount, error) {
	rows, err := r.db.Query(`
		SELECT chat_id, game_uuid, game_username, activity_count, last_updated
		FROM linked_accounts
	`)
	if err != nil {
		return nil, unavailable("load linked accounts", err)
	}
	defer rows.Close()

	var accounts []models.LinkedAccount
	for rows.Next() {
		var a models.LinkedAccount
		if err := rows.Scan(&a.ChatID, &a.GameUUID, &a.GameUsername, &a.ActivityCount, &a.LastUpdated); err != nil {
			return nil, fmt.Errorf("scan linked account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *AccountPostgres) AllPending() ([]models.PendingLink, error) {
	rows, err := r.db.Query(`
		SELECT game_uuid, display_name, code, created_at FROM pending_links
	`)
	if err != nil {
		return nil, unavailable("load pending links", err)
	}
	defer rows.Close()

	var links []models.PendingLink
	for rows.Next() {
		var l models.PendingLink
		if err := rows.Scan(&l.GameUUID, &l.DisplayName, &l.Code, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending link: %w", err)
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

// CreatePending replaces any outstanding link for the same game identity.
// A code collision with another pending entry surfaces as ErrConflict so the
// registry can regenerate.
func (r *AccountPostgres) CreatePending(link models.PendingLink) error {
	tx, err := r.db.Begin()
	if err != nil {
		return unavailable("create pending link", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM pending_links WHERE game_uuid = $1`, link.GameUUID); err != nil {
		return unavailable("replace pending link", err)
	}

	_, err = tx.Exec(`
		INSERT INTO pending_links (game_uuid, display_name, code, created_at)
		VALUES ($1, $2, $3, $4)
	`, link.GameUUID, link.DisplayName, link.Code, link.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("code already pending: %w", models.ErrConflict)
		}
		return unavailable("insert pending link", err)
	}

	if err := tx.Commit(); err != nil {
		return unavailable("commit pending link", err)
	}
	return nil
}

func (r *AccountPostgres) DeletePending(gameUUID uuid.UUID) error {
	if _, err := r.db.Exec(`DELETE FROM pending_links WHERE game_uuid = $1`, gameUUID); err != nil {
		return unavailable("delete pending link", err)
	}
	return nil
}

// Redeem consumes the pending link and upserts the linked account in one
// transaction. The DELETE is keyed by both uuid and code so a concurrently
// replaced code cannot be redeemed.
func (r *AccountPostgres) Redeem(chatID string, link models.PendingLink) (models.LinkedAccount, error) {
	var account models.LinkedAccount

	tx, err := r.db.Begin()
	if err != nil {
		return account, unavailable("redeem", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		DELETE FROM pending_links WHERE game_uuid = $1 AND code = $2
	`, link.GameUUID, link.Code)
	if err != nil {
		return account, unavailable("consume pending link", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return account, fmt.Errorf("pending link already consumed: %w", models.ErrNotFound)
	}

	err = tx.QueryRow(`
		INSERT INTO linked_accounts (chat_id, game_uuid, game_username, last_updated)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (chat_id) DO UPDATE SET
			game_uuid = EXCLUDED.game_uuid,
			game_username = EXCLUDED.game_username,
			last_updated = NOW()
		RETURNING chat_id, game_uuid, game_username, activity_count, last_updated
	`, chatID, link.GameUUID, link.DisplayName).Scan(
		&account.ChatID, &account.GameUUID, &account.GameUsername,
		&account.ActivityCount, &account.LastUpdated,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return account, fmt.Errorf("game identity already linked: %w", models.ErrConflict)
		}
		return account, unavailable("upsert linked account", err)
	}

	if err := tx.Commit(); err != nil {
		return account, unavailable("commit redeem", err)
	}
	return account, nil
}

func (r *AccountPostgres) UpdateUsername(chatID, gameUsername string) error {
	_, err := r.db.Exec(`
		UPDATE linked_accounts SET game_username = $2, last_updated = NOW()
		WHERE chat_id = $1
	`, chatID, gameUsername)
	if err != nil {
		return unavailable("update username", err)
	}
	return nil
}

func (r *AccountPostgres) IncrementActivity(chatID string) (int64, time.Time, error) {
	var count int64
	var updated time.Time
	err := r.db.QueryRow(`
		UPDATE linked_accounts
		SET activity_count = activity_count + 1, last_updated = NOW()
		WHERE chat_id = $1
		RETURNING activity_count, last_updated
	`, chatID).Scan(&count, &updated)
	if err == sql.ErrNoRows {
		return 0, updated, fmt.Errorf("no linked account for %s: %w", chatID, models.ErrNotFound)
	}
	if err != nil {
		return 0, updated, unavailable("increment activity", err)
	}
	return count, updated, nil
}

// Delete removes the account and every derived row so no orphaned whitelist
// or reward state survives an unlink.
func (r *AccountPostgres) Delete(chatID string, gameUUID uuid.UUID) error {
	tx, err := r.db.Begin()
	if err != nil {
		return unavailable("unlink", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM cached_rewards WHERE game_uuid = $1`,
		`DELETE FROM pending_links WHERE game_uuid = $1`,
	} {
		if _, err := tx.Exec(q, gameUUID); err != nil {
			return unavailable("unlink cascade", err)
		}
	}
	for _, q := range []string{
		`DELETE FROM reward_records WHERE chat_id = $1`,
		`DELETE FROM whitelist WHERE chat_id = $1`,
		`DELETE FROM failed_attempts WHERE chat_id = $1`,
		`DELETE FROM linked_accounts WHERE chat_id = $1`,
	} {
		if _, err := tx.Exec(q, chatID); err != nil {
			return unavailable("unlink cascade", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return unavailable("commit unlink", err)
	}
	return nil
}

func (r *AccountPostgres) IncrementFailedAttempts(chatID string) error {
	_, err := r.db.Exec(`
		INSERT INTO failed_attempts (chat_id, attempts) VALUES ($1, 1)
		ON CONFLICT (chat_id) DO UPDATE SET attempts = failed_attempts.attempts + 1
	`, chatID)
	if err != nil {
		return unavailable("increment failed attempts", err)
	}
	return nil
}

func (r *AccountPostgres) GetFailedAttempts(chatID string) (int64, error) {
	var attempts int64
	err := r.db.QueryRow(`SELECT attempts FROM failed_attempts WHERE chat_id = $1`, chatID).Scan(&attempts)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, unavailable("get failed attempts", err)
	}
	return attempts, nil
}

func (r *AccountPostgres) ResetFailedAttempts(chatID string) error {
	if _, err := r.db.Exec(`DELETE FROM failed_attempts WHERE chat_id = $1`, chatID); err != nil {
		return unavailable("reset failed attempts", err)
	}
	return nil
}
