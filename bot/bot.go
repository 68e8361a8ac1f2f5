package bot

import (
	"context"
	"fmt"
	"strconv"

	log "github.com/sirupsen/logrus"

	"invitepal/events"
	"invitepal/service"

	"github.com/bwmarrin/discordgo"
)

// Config holds bot configuration
type Config struct {
	Token         string
	GuildID       string
	InviteBaseURL string
}

type Bot struct {
	config            Config
	session           *discordgo.Session
	ledgerService     service.LedgerService
	redemptionService service.RedemptionService
	oracle            service.MembershipOracle
	eventBus          *events.Bus
}

func New(config Config, ledgerService service.LedgerService, redemptionService service.RedemptionService, eventBus *events.Bus) (*Bot, error) {
	dg, err := discordgo.New("Bot " + config.Token)
	if err != nil {
		return nil, fmt.Errorf("error creating discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers | discordgo.IntentsDirectMessages

	bot := &Bot{
		config:            config,
		session:           dg,
		ledgerService:     ledgerService,
		redemptionService: redemptionService,
		oracle:            NewGuildMembershipOracle(dg, config.GuildID),
		eventBus:          eventBus,
	}

	// Register slash command and component handlers
	dg.AddHandler(bot.handleInteraction)

	// Open websocket connection
	if err := dg.Open(); err != nil {
		return nil, fmt.Errorf("error opening connection: %w", err)
	}

	// Register slash commands with Discord
	if err := bot.registerCommands(); err != nil {
		dg.Close()
		return nil, fmt.Errorf("error registering commands: %w", err)
	}

	// Notify referrers when their bonus lands
	eventBus.Subscribe(events.EventTypeReferralCredited, func(ctx context.Context, event events.Event) {
		if credited, ok := event.(events.ReferralCreditedEvent); ok {
			bot.notifyReferrer(credited)
		}
	})

	return bot, nil
}

func (b *Bot) Close() error {
	return b.session.Close()
}

// notifyReferrer sends the referrer a direct message about the bonus. Fire
// and forget: a delivery failure is logged, never propagated to the ledger.
func (b *Bot) notifyReferrer(event events.ReferralCreditedEvent) {
	channel, err := b.session.UserChannelCreate(strconv.FormatInt(event.ReferrerID, 10))
	if err != nil {
		log.Errorf("Failed to open DM channel with referrer %d: %v", event.ReferrerID, err)
		return
	}

	name := event.ReferredUsername
	if name == "" {
		name = "your friend"
	}
	message := fmt.Sprintf("**Good news! %s is with us now.**\nI've given you **%d points** for bringing them in. Keep it up!", name, event.Bonus)
	if _, err := b.session.ChannelMessageSend(channel.ID, message); err != nil {
		log.Errorf("Failed to notify referrer %d: %v", event.ReferrerID, err)
	}
}
