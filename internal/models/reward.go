package models

import (
	"time"

	"github.com/google/uuid"
)

type RewardRecord struct {
	ChatID      string    `json:"chat_id"`
	GameUUID    uuid.UUID `json:"game_uuid"`
	RewardType  string    `json:"reward_type"`
	RewardCount int64     `json:"reward_count"`
	LastUpdated time.Time `json:"last_updated"`
}

// CachedReward holds a reward earned while the player was offline; it is
// claimed and deleted on the next join.
type CachedReward struct {
	GameUUID    uuid.UUID `json:"game_uuid"`
	RewardType  string    `json:"reward_type"`
	RewardCount int64     `json:"reward_count"`
}

// RewardSpec is a configured reward attached to an activity threshold.
// Command is a game console command template; {player_name} is replaced
// with the recipient's username before execution.
type RewardSpec struct {
	Type    string `yaml:"type"`
	Count   int64  `yaml:"count"`
	Command string `yaml:"command"`
}
