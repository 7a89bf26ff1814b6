package repository

import (
	"database/sql"
	"time"

	"gatewarden/internal/models"

	"github.com/google/uuid"
)

type Accounts interface {
	AllAccounts() ([]models.LinkedAccount, error)
	AllPending() ([]models.PendingLink, error)

	CreatePending(link models.PendingLink) error
	DeletePending(gameUUID uuid.UUID) error
	Redeem(chatID string, link models.PendingLink) (models.LinkedAccount, error)

	UpdateUsername(chatID, gameUsername string) error
	IncrementActivity(chatID string) (int64, time.Time, error)
	Delete(chatID string, gameUUID uuid.UUID) error

	IncrementFailedAttempts(chatID string) error
	GetFailedAttempts(chatID string) (int64, error)
	ResetFailedAttempts(chatID string) error
}

type Whitelist interface {
	Upsert(entry models.WhitelistEntry) error
	ContainsUsername(username string) (bool, error)
	All() ([]models.WhitelistEntry, error)
}

type Rewards interface {
	AddToRecord(chatID string, gameUUID uuid.UUID, rewardType string, count int64) error
	AddToCache(gameUUID uuid.UUID, rewardType string, count int64) error
	ClaimCached(gameUUID uuid.UUID) ([]models.CachedReward, error)
	RecordsByChatID(chatID string) ([]models.RewardRecord, error)
	AllRecords() ([]models.RewardRecord, error)
}

type Repository struct {
	Accounts
	Whitelist
	Rewards
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Accounts:  NewAccountPostgres(db),
		Whitelist: NewWhitelistPostgres(db),
		Rewards:   NewRewardPostgres(db),
		db:        db,
	}
}
