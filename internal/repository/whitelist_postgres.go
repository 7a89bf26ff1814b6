package repository

import (
	"database/sql"
	"fmt"

	"gatewarden/internal/models"
)

type WhitelistPostgres struct {
	db *sql.DB
}

func NewWhitelistPostgres(db *sql.DB) *WhitelistPostgres {
	return &WhitelistPostgres{db: db}
}

func (r *WhitelistPostgres) Upsert(entry models.WhitelistEntry) error {
	_, err := r.db.Exec(`
		INSERT INTO whitelist (chat_id, game_username, bedrock_username)
		VALUES ($1, $2, $3)
		ON CONFLICT (game_username) DO UPDATE SET
			chat_id = EXCLUDED.chat_id,
			bedrock_username = EXCLUDED.bedrock_username
	`, entry.ChatID, entry.GameUsername, entry.BedrockUsername)
	if err != nil {
		return unavailable("upsert whitelist entry", err)
	}
	return nil
}

// ContainsUsername matches either username form, so bedrock players pass the
// same gate as java players.
func (r *WhitelistPostgres) ContainsUsername(username string) (bool, error) {
	var n int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM whitelist
		WHERE game_username = $1 OR bedrock_username = $1
	`, username).Scan(&n)
	if err != nil {
		return false, unavailable("check whitelist", err)
	}
	return n > 0, nil
}

func (r *WhitelistPostgres) All() ([]models.WhitelistEntry, error) {
	rows, err := r.db.Query(`SELECT chat_id, game_username, bedrock_username FROM whitelist`)
	if err != nil {
		return nil, unavailable("load whitelist", err)
	}
	defer rows.Close()

	var entries []models.WhitelistEntry
	for rows.Next() {
		var e models.WhitelistEntry
		if err := rows.Scan(&e.ChatID, &e.GameUsername, &e.BedrockUsername); err != nil {
			return nil, fmt.Errorf("scan whitelist entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
