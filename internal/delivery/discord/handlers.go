package discord

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gatewarden/internal/application"
	"gatewarden/internal/models"

	"github.com/bwmarrin/discordgo"
)

const (
	colorGreen = 0x2ECC71
	colorBlue  = 0x3498DB
	colorRed   = 0xE74C3C
)

// genericCodeReply is used for every redemption miss so replies cannot be
// used to probe which codes exist.
const genericCodeReply = "That code is not valid."

func (b *Bot) handleLink(s *discordgo.Session, i *discordgo.Interaction) {
	opts := commandOptions(i)
	username := strings.TrimSpace(opts["username"].StringValue())
	if username == "" {
		b.respondMessage(s, i, "Please provide a Minecraft username.", true)
		return
	}

	gameUUID, online := b.presence.ResolveUUID(username)
	if !online {
		gameUUID = application.OfflineUUID(username)
	}

	code, err := b.services.Links.RequestLink(gameUUID, username)
	if err != nil {
		if errors.Is(err, models.ErrUnavailable) {
			b.respondMessage(s, i, "Storage is unavailable right now, please try again.", true)
			return
		}
		b.logger.Error("request link for %s: %v", username, err)
		b.respondMessage(s, i, "Could not create a linking code, please try again.", true)
		return
	}

	embed := &discordgo.MessageEmbed{
		Title: "Linking code for " + username,
		Description: fmt.Sprintf(
			"Your code: `%s`\n\nRun `/redeem %s` from the Discord account that should own this Minecraft account. "+
				"Any previous code for this player is no longer valid.", code, code),
		Color: colorBlue,
	}
	s.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  discordgo.MessageFlagsEphemeral,
		},
	})
}

func (b *Bot) handleRedeem(s *discordgo.Session, i *discordgo.Interaction) {
	opts := commandOptions(i)
	code := opts["code"].StringValue()
	userID := interactionUserID(i)

	account, err := b.services.Links.Redeem(userID, code)
	if err != nil {
		if errors.Is(err, models.ErrUnavailable) {
			b.respondMessage(s, i, "Storage is unavailable right now, please try again.", true)
			return
		}
		b.respondMessage(s, i, genericCodeReply, true)
		return
	}

	msg := fmt.Sprintf(
		"Linked to **%s**. Join the server and say `%s` within %s of joining to unlock permanent access.",
		account.GameUsername, b.rules.VerificationPhrase, b.rules.ProvisionalDuration)
	b.respondMessage(s, i, msg, true)
}

func (b *Bot) handleUnlink(s *discordgo.Session, i *discordgo.Interaction) {
	userID := interactionUserID(i)
	target := userID

	opts := commandOptions(i)
	if opt, ok := opts["user"]; ok {
		requested := opt.UserValue(s).ID
		if requested != userID && !b.isAdmin(userID) {
			b.respondMessage(s, i, "You can only unlink your own account.", true)
			return
		}
		target = requested
	}

	if err := b.services.Links.Unlink(target); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			b.respondMessage(s, i, "No linked account found.", true)
			return
		}
		b.logger.Error("unlink %s: %v", target, err)
		b.respondMessage(s, i, "Could not unlink right now, please try again.", true)
		return
	}

	b.respondMessage(s, i, "The Minecraft account has been unlinked.", true)
}

func (b *Bot) handleProfile(s *discordgo.Session, i *discordgo.Interaction) {
	userID := interactionUserID(i)

	account, ok := b.services.Links.Lookup(userID)
	if !ok {
		b.respondMessage(s, i, "No linked account. Use `/link` to get started.", true)
		return
	}

	attempts, err := b.services.Links.FailedAttempts(userID)
	if err != nil {
		b.logger.Warn("failed attempts lookup for %s: %v", userID, err)
	}

	var rewardLines []string
	records, err := b.services.Rewards.RecordsFor(userID)
	if err != nil {
		b.logger.Warn("reward records lookup for %s: %v", userID, err)
	}
	for _, r := range records {
		rewardLines = append(rewardLines, fmt.Sprintf("%s × %d", r.RewardType, r.RewardCount))
	}
	rewardText := "none yet"
	if len(rewardLines) > 0 {
		rewardText = strings.Join(rewardLines, "\n")
	}

	state := b.services.Access.State(account.GameUUID)

	embed := &discordgo.MessageEmbed{
		Title: "Profile: " + account.GameUsername,
		Color: colorGreen,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Access", Value: state.String(), Inline: true},
			{Name: "Messages", Value: fmt.Sprintf("%d", account.ActivityCount), Inline: true},
			{Name: "Failed attempts", Value: fmt.Sprintf("%d", attempts), Inline: true},
			{Name: "Rewards", Value: rewardText, Inline: false},
		},
	}
	s.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  discordgo.MessageFlagsEphemeral,
		},
	})
}

func (b *Bot) handleInstructions(s *discordgo.Session, i *discordgo.Interaction) {
	embed := &discordgo.MessageEmbed{
		Title: "How to link your Minecraft account",
		Description: fmt.Sprintf(
			"1. Run `/link <your minecraft username>` to get a code.\n"+
				"2. Run `/redeem <code>` from your own Discord account.\n"+
				"3. Join the server. You will have temporary access for %s.\n"+
				"4. Say `%s` in game chat to unlock permanent access.",
			b.rules.ProvisionalDuration, b.rules.VerificationPhrase),
		Color: colorBlue,
	}
	s.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{embed}},
	})
}

func (b *Bot) handleAttempts(s *discordgo.Session, i *discordgo.Interaction) {
	opts := commandOptions(i)
	user := opts["user"].UserValue(s)

	attempts, err := b.services.Links.FailedAttempts(user.ID)
	if err != nil {
		b.respondMessage(s, i, "Could not read attempts: "+err.Error(), true)
		return
	}
	b.respondMessage(s, i, fmt.Sprintf("<@%s> has %d failed verification attempts.", user.ID, attempts), true)
}

func (b *Bot) handleResetAttempts(s *discordgo.Session, i *discordgo.Interaction) {
	opts := commandOptions(i)
	user := opts["user"].UserValue(s)

	if err := b.services.Links.ResetFailedAttempts(user.ID); err != nil {
		b.respondMessage(s, i, "Could not reset attempts: "+err.Error(), true)
		return
	}
	b.respondMessage(s, i, fmt.Sprintf("Failed attempts for <@%s> reset.", user.ID), true)
}

func (b *Bot) handleExport(s *discordgo.Session, i *discordgo.Interaction) {
	s.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})

	data, err := b.services.Reports.ExportReport()
	if err != nil {
		b.logger.Error("export error: %v", err)
		msg := "Export failed: " + err.Error()
		s.InteractionResponseEdit(i, &discordgo.WebhookEdit{Content: &msg})
		return
	}

	msg := "Here is the current registry export."
	s.InteractionResponseEdit(i, &discordgo.WebhookEdit{
		Content: &msg,
		Files: []*discordgo.File{
			{Name: "gatewarden.xlsx", Reader: bytes.NewReader(data)},
		},
	})
}

// AnnounceReward implements application.RewardAnnouncer.
func (b *Bot) AnnounceReward(chatID string, spec models.RewardSpec, count int64) {
	if b.linkChannelID == "" {
		return
	}
	msg := fmt.Sprintf("<@%s> reached %d messages and earned **%s**!", chatID, count, spec.Type)
	if _, err := b.session.ChannelMessageSend(b.linkChannelID, msg); err != nil {
		b.logger.Warn("announce reward: %v", err)
	}
}
