package bot

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// registerCommands registers all slash commands with Discord
func (b *Bot) registerCommands() error {
	commands := []*discordgo.ApplicationCommand{
		{
			Name:        "start",
			Description: "Register with the bot and open the menu",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "referrer",
					Description: "ID of the friend who invited you",
					Required:    false,
				},
			},
		},
		{
			Name:        "balance",
			Description: "Check your current point balance",
		},
		{
			Name:        "rewards",
			Description: "List the rewards you can redeem",
		},
		{
			Name:        "referrals",
			Description: "List the friends who joined through your link",
		},
		{
			Name:        "invite",
			Description: "Get your personal referral link",
		},
		{
			Name:        "redeem",
			Description: "Redeem a reward with your points",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "item_id",
					Description: "ID of the reward to redeem",
					Required:    true,
				},
			},
		},
		{
			Name:        "help",
			Description: "Learn how the referral program works",
		},
	}

	for _, command := range commands {
		_, err := b.session.ApplicationCommandCreate(b.session.State.User.ID, b.config.GuildID, command)
		if err != nil {
			return fmt.Errorf("failed to register command %s: %w", command.Name, err)
		}
	}

	return nil
}
