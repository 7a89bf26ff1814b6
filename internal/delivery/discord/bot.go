package discord

import (
	"context"
	"strings"

	"gatewarden/internal/application"
	"gatewarden/pkg/config"

	"github.com/bwmarrin/discordgo"
)

type Bot struct {
	session  *discordgo.Session
	services *application.Service
	rules    *config.Rules
	presence application.Presence
	logger   application.Logger

	guildID       string
	adminIDs      map[string]struct{}
	linkChannelID string
}

func NewBot(cfg *config.Config, rules *config.Rules, services *application.Service,
	presence application.Presence, logger application.Logger) *Bot {
	s, _ := discordgo.New("Bot " + cfg.DiscordToken)

	admins := make(map[string]struct{})
	for _, id := range cfg.AdminUserIDs {
		cleanID := strings.TrimSpace(id)
		if cleanID != "" {
			admins[cleanID] = struct{}{}
		}
	}

	return &Bot{
		session:       s,
		services:      services,
		rules:         rules,
		presence:      presence,
		logger:        logger,
		guildID:       cfg.GuildID,
		adminIDs:      admins,
		linkChannelID: cfg.LinkChannelID,
	}
}

func (b *Bot) Init() error {
	b.session.AddHandler(b.onInteraction)
	b.session.AddHandler(b.onMessage)
	b.services.Rewards.SetAnnouncer(b)
	return nil
}

func (b *Bot) Run(ctx context.Context) {
	if err := b.session.Open(); err != nil {
		b.logger.Error("discord session open: %v", err)
		return
	}

	b.logger.Info("discord bot started, registering slash commands")

	_, err := b.session.ApplicationCommandBulkOverwrite(b.session.State.User.ID, b.guildID, commands)
	if err != nil {
		b.logger.Error("failed to register commands: %v", err)
	} else {
		b.logger.Info("slash commands registered")
	}

	<-ctx.Done()
}

func (b *Bot) Stop() {
	b.session.Close()
}

func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	name := i.ApplicationCommandData().Name

	switch name {
	case "link":
		b.handleLink(s, i.Interaction)
		return
	case "redeem":
		b.handleRedeem(s, i.Interaction)
		return
	case "unlink":
		b.handleUnlink(s, i.Interaction)
		return
	case "profile":
		b.handleProfile(s, i.Interaction)
		return
	}

	if !b.isAdmin(interactionUserID(i.Interaction)) {
		b.respondMessage(s, i.Interaction, "You do not have permission to use this command.", true)
		return
	}

	switch name {
	case "instructions":
		b.handleInstructions(s, i.Interaction)
	case "attempts":
		b.handleAttempts(s, i.Interaction)
	case "reset_attempts":
		b.handleResetAttempts(s, i.Interaction)
	case "export":
		b.handleExport(s, i.Interaction)
	}
}

// onMessage feeds chat activity of linked users into the reward ledger.
func (b *Bot) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.ID == s.State.User.ID || m.Author.Bot {
		return
	}

	if b.linkChannelID != "" && m.ChannelID != b.linkChannelID {
		return
	}

	if err := b.services.Rewards.HandleChatActivity(m.Author.ID); err != nil {
		b.logger.Error("record chat activity for %s: %v", m.Author.ID, err)
	}
}
