package models

import (
	"time"

	"github.com/google/uuid"
)

type LinkedAccount struct {
	ChatID        string    `json:"chat_id"`
	GameUUID      uuid.UUID `json:"game_uuid"`
	GameUsername  string    `json:"game_username"`
	ActivityCount int64     `json:"activity_count"`
	LastUpdated   time.Time `json:"last_updated"`
}

type PendingLink struct {
	GameUUID    uuid.UUID `json:"game_uuid"`
	DisplayName string    `json:"display_name"`
	Code        string    `json:"code"`
	CreatedAt   time.Time `json:"created_at"`
}

type WhitelistEntry struct {
	ChatID          string `json:"chat_id"`
	GameUsername    string `json:"game_username"`
	BedrockUsername string `json:"bedrock_username"`
}

type FailedAttempts struct {
	ChatID   string `json:"chat_id"`
	Attempts int64  `json:"attempts"`
}
