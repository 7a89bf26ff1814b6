package discord

import "github.com/bwmarrin/discordgo"

var commands = []*discordgo.ApplicationCommand{
	{
		Name:        "link",
		Description: "Get a linking code for a Minecraft account",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionString, Name: "username", Description: "Minecraft username", Required: true},
		},
	},
	{
		Name:        "redeem",
		Description: "Redeem a linking code and bind this Discord account",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionString, Name: "code", Description: "The code you received", Required: true},
		},
	},
	{
		Name:        "unlink",
		Description: "Unlink your Minecraft account from your Discord account",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "User to unlink (admins only)", Required: false},
		},
	},
	{
		Name:        "profile",
		Description: "Show your linked account, activity and rewards",
	},
	{
		Name:        "instructions",
		Description: "Post the linking instructions (admins only)",
	},
	{
		Name:        "attempts",
		Description: "Show failed verification attempts for a user (admins only)",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "User to inspect", Required: true},
		},
	},
	{
		Name:        "reset_attempts",
		Description: "Reset failed verification attempts for a user (admins only)",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "User to reset", Required: true},
		},
	},
	{
		Name:        "export",
		Description: "Export linked accounts, whitelist and rewards to Excel (admins only)",
	},
}
