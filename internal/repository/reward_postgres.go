package repository

import (
	"database/sql"
	"fmt"

	"gatewarden/internal/models"

	"github.com/google/uuid"
)

type RewardPostgres struct {
	db *sql.DB
}

func NewRewardPostgres(db *sql.DB) *RewardPostgres {
	return &RewardPostgres{db: db}
}

func (r *RewardPostgres) AddToRecord(chatID string, gameUUID uuid.UUID, rewardType string, count int64) error {
	_, err := r.db.Exec(`
		INSERT INTO reward_records (chat_id, game_uuid, reward_type, reward_count, last_updated)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (chat_id, game_uuid, reward_type) DO UPDATE SET
			reward_count = reward_records.reward_count + EXCLUDED.reward_count,
			last_updated = NOW()
	`, chatID, gameUUID, rewardType, count)
	if err != nil {
		return unavailable("add reward record", err)
	}
	return nil
}

func (r *RewardPostgres) AddToCache(gameUUID uuid.UUID, rewardType string, count int64) error {
	_, err := r.db.Exec(`
		INSERT INTO cached_rewards (game_uuid, reward_type, reward_count)
		VALUES ($1, $2, $3)
		ON CONFLICT (game_uuid, reward_type) DO UPDATE SET
			reward_count = cached_rewards.reward_count + EXCLUDED.reward_count
	`, gameUUID, rewardType, count)
	if err != nil {
		return unavailable("cache reward", err)
	}
	return nil
}

// ClaimCached deletes and returns the cached rows in one statement, so two
// concurrent reconciles for the same player cannot both apply a reward.
func (r *RewardPostgres) ClaimCached(gameUUID uuid.UUID) ([]models.CachedReward, error) {
	rows, err := r.db.Query(`
		DELETE FROM cached_rewards WHERE game_uuid = $1
		RETURNING game_uuid, reward_type, reward_count
	`, gameUUID)
	if err != nil {
		return nil, unavailable("claim cached rewards", err)
	}
	defer rows.Close()

	var rewards []models.CachedReward
	for rows.Next() {
		var c models.CachedReward
		if err := rows.Scan(&c.GameUUID, &c.RewardType, &c.RewardCount); err != nil {
			return nil, fmt.Errorf("scan cached reward: %w", err)
		}
		rewards = append(rewards, c)
	}
	return rewards, rows.Err()
}

func (r *RewardPostgres) RecordsByChatID(chatID string) ([]models.RewardRecord, error) {
	return r.queryRecords(`
		SELECT chat_id, game_uuid, reward_type, reward_count, last_updated
		FROM reward_records WHERE chat_id = $1
	`, chatID)
}

func (r *RewardPostgres) AllRecords() ([]models.RewardRecord, error) {
	return r.queryRecords(`
		SELECT chat_id, game_uuid, reward_type, reward_count, last_updated
		FROM reward_records
	`)
}

func (r *RewardPostgres) queryRecords(query string, args ...interface{}) ([]models.RewardRecord, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, unavailable("load reward records", err)
	}
	defer rows.Close()

	var records []models.RewardRecord
	for rows.Next() {
		var rec models.RewardRecord
		if err := rows.Scan(&rec.ChatID, &rec.GameUUID, &rec.RewardType, &rec.RewardCount, &rec.LastUpdated); err != nil {
			return nil, fmt.Errorf("scan reward record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
