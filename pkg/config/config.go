package config

import (
	"gatewarden/internal/repository"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Repo         repository.Config `envPrefix:"REPO_"`
	DiscordToken string            `env:"DISCORD_TOKEN" envDefault:""`
	GuildID      string            `env:"GUILD_ID" envDefault:""`
	LogLevel     string            `env:"LOGGER_LEVEL" envDefault:"debug"`

	LinkChannelID string   `env:"LINK_CHANNEL_ID" envDefault:""`
	AdminUserIDs  []string `env:"ADMIN_USER_IDS" envSeparator:"," envDefault:""`

	BridgeAddr  string `env:"BRIDGE_ADDR" envDefault:":8765"`
	BridgeToken string `env:"BRIDGE_TOKEN" envDefault:""`

	TelegramToken  string `env:"TELEGRAM_TOKEN" envDefault:""`
	TelegramChatID int64  `env:"TELEGRAM_CHAT_ID" envDefault:"0"`
}

func ReadEnvConfig(cfg *Config) error {
	return env.Parse(cfg)
}
