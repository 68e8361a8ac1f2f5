package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"invitepal/bot/common"
	"invitepal/models"
	"invitepal/service"

	"github.com/bwmarrin/discordgo"
)

func (b *Bot) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		b.handleCommand(s, i)
	case discordgo.InteractionMessageComponent:
		b.handleMenuSelection(s, i)
	}
}

func (b *Bot) handleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.ApplicationCommandData().Name {
	case "start":
		b.handleStart(s, i)
	case "balance":
		b.gated(s, i, b.handleBalance)
	case "rewards":
		b.gated(s, i, b.handleRewards)
	case "referrals":
		b.gated(s, i, b.handleReferrals)
	case "invite":
		b.gated(s, i, b.handleInvite)
	case "redeem":
		b.gated(s, i, b.handleRedeem)
	case "help":
		b.handleHelp(s, i)
	}
}

// handleMenuSelection routes menu button presses to the matching command
// handler
func (b *Bot) handleMenuSelection(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.MessageComponentData().CustomID {
	case "menu_rewards":
		b.gated(s, i, b.handleRewards)
	case "menu_invite":
		b.gated(s, i, b.handleInvite)
	case "menu_referrals":
		b.gated(s, i, b.handleReferrals)
	case "menu_balance":
		b.gated(s, i, b.handleBalance)
	case "menu_redeem":
		common.RespondWithMessage(s, i, "Use `/redeem <item-id>` to redeem a reward.", true)
	case "menu_help":
		b.handleHelp(s, i)
	}
}

// gated runs the handler only after a fresh membership check. Non-members
// get the join prompt; an oracle failure is reported as such, never treated
// as membership.
func (b *Bot) gated(s *discordgo.Session, i *discordgo.InteractionCreate, handler func(*discordgo.Session, *discordgo.InteractionCreate, int64)) {
	ctx := context.Background()

	userID, err := interactionUserID(i)
	if err != nil {
		log.Errorf("Error parsing interaction user ID: %v", err)
		common.RespondWithError(s, i, "Unable to process request. Please try again.")
		return
	}

	if err := service.RequireMember(ctx, b.oracle, userID); err != nil {
		if errors.Is(err, service.ErrNotMember) {
			b.promptJoin(s, i)
			return
		}
		log.Errorf("Membership check failed for user %d: %v", userID, err)
		common.RespondWithError(s, i, "Couldn't verify your channel membership right now. Please try again.")
		return
	}

	handler(s, i, userID)
}

func (b *Bot) handleStart(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()

	userID, err := interactionUserID(i)
	if err != nil {
		log.Errorf("Error parsing interaction user ID: %v", err)
		common.RespondWithError(s, i, "Unable to process request. Please try again.")
		return
	}

	var referrerID *int64
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "referrer" {
			if id, err := strconv.ParseInt(opt.StringValue(), 10, 64); err == nil {
				referrerID = &id
			}
		}
	}

	isMember, err := b.oracle.IsMember(ctx, userID)
	if err != nil {
		log.Errorf("Membership check failed for user %d: %v", userID, err)
		common.RespondWithError(s, i, "Couldn't verify your channel membership right now. Please try again.")
		return
	}

	result, err := b.ledgerService.Enter(ctx, userID, interactionUsername(i), referrerID, isMember)
	if err != nil {
		log.Errorf("Error processing entry for user %d: %v", userID, err)
		common.RespondWithError(s, i, "Something went wrong. Please try again.")
		return
	}

	if result.State == models.EntryStateAwaitingMembership {
		b.promptJoin(s, i)
		return
	}

	b.displayMenu(s, i)
}

func (b *Bot) handleBalance(s *discordgo.Session, i *discordgo.InteractionCreate, userID int64) {
	ctx := context.Background()

	balance, err := b.ledgerService.Balance(ctx, userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			common.RespondWithMessage(s, i, "I don't know you yet. Press `/start` first.", true)
			return
		}
		log.Errorf("Error getting balance for user %d: %v", userID, err)
		common.RespondWithError(s, i, "Unable to retrieve balance. Please try again.")
		return
	}

	message := fmt.Sprintf("You have a balance of %s.", common.Spoiler(fmt.Sprintf("%s points", common.FormatPoints(balance))))
	common.RespondWithMessage(s, i, message, true)
}

func (b *Bot) handleRewards(s *discordgo.Session, i *discordgo.InteractionCreate, userID int64) {
	ctx := context.Background()

	listings, err := b.redemptionService.ListRewards(ctx)
	if err != nil {
		log.Errorf("Error listing rewards for user %d: %v", userID, err)
		common.RespondWithError(s, i, "Unable to list rewards. Please try again.")
		return
	}

	if len(listings) == 0 {
		common.RespondWithMessage(s, i, "**No rewards available at the moment.**", true)
		return
	}

	var sb strings.Builder
	for _, listing := range listings {
		fmt.Fprintf(&sb, "**Item ID:** %d\n**Name: %s**\n**Slots: %d** out of %d available\n**Points Required:** %s\n\n",
			listing.ItemID, listing.Description, listing.SlotsRemaining, listing.MaxCount, common.FormatPoints(listing.PointsRequired))
	}
	sb.WriteString("**When you have enough points, you can redeem any item above at any time.**")
	common.RespondWithMessage(s, i, sb.String(), true)
}

func (b *Bot) handleReferrals(s *discordgo.Session, i *discordgo.InteractionCreate, userID int64) {
	ctx := context.Background()

	referralIDs, err := b.ledgerService.ReferralsOf(ctx, userID)
	if err != nil {
		log.Errorf("Error getting referrals for user %d: %v", userID, err)
		common.RespondWithError(s, i, "Unable to list your referrals. Please try again.")
		return
	}

	if len(referralIDs) == 0 {
		common.RespondWithMessage(s, i, "**Hmm... Seems like we need more people here.**", true)
		return
	}

	var sb strings.Builder
	sb.WriteString("**Friends who have joined us:**\n\n")
	for _, id := range referralIDs {
		fmt.Fprintf(&sb, "- <@%d>\n", id)
	}
	common.RespondWithMessage(s, i, sb.String(), true)
}

func (b *Bot) handleInvite(s *discordgo.Session, i *discordgo.InteractionCreate, userID int64) {
	link := fmt.Sprintf("%s?start=%d", b.config.InviteBaseURL, userID)
	message := fmt.Sprintf("**Your referral link:**\n%s\n\n**Share it with your friends!**", link)
	common.RespondWithMessage(s, i, message, true)
}

func (b *Bot) handleRedeem(s *discordgo.Session, i *discordgo.InteractionCreate, userID int64) {
	ctx := context.Background()

	var itemID int64
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "item_id" {
			itemID = opt.IntValue()
		}
	}

	result, err := b.redemptionService.Redeem(ctx, userID, itemID)
	if err != nil {
		log.Errorf("Error redeeming item %d for user %d: %v", itemID, userID, err)
		common.RespondWithError(s, i, "Unable to redeem right now. Please try again.")
		return
	}

	switch result.Outcome {
	case models.RedemptionSuccess:
		var sb strings.Builder
		fmt.Fprintf(&sb, "**Reward redeemed:\n%s**\n\n**Credentials:**\n", result.Description)
		for _, secret := range result.Secrets {
			sb.WriteString(common.Spoiler(secret))
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "\nNew balance: **%s points**", common.FormatPoints(result.NewBalance))
		common.RespondWithMessage(s, i, sb.String(), true)
	case models.RedemptionUserNotFound:
		common.RespondWithMessage(s, i, "I don't know you yet. Press `/start` first.", true)
	case models.RedemptionItemNotFound:
		common.RespondWithMessage(s, i, "**Sorry, item id seems to be incorrect.**", true)
	case models.RedemptionSoldOut:
		common.RespondWithMessage(s, i, "**Sorry, this reward is no longer available.**", true)
	case models.RedemptionInsufficientPoints:
		common.RespondWithMessage(s, i, "**Sorry, you don't have enough points to redeem this item.**", true)
	}
}

func (b *Bot) handleHelp(s *discordgo.Session, i *discordgo.InteractionCreate) {
	description := "👋 **Hello there!**\n\n" +
		"I'm **InvitePal**, your partner in earning rewards effortlessly.\n\n" +
		"✨ **Here's how it works:**\n\n" +
		"1. Share your personal link with your friends (`/invite`).\n" +
		"2. For every friend who joins through your link, you earn reward points.\n" +
		"3. Use those points to unlock rewards (`/redeem`).\n\n" +
		"Hit `/start` to explore your options. I'll handle the rest!"
	common.RespondWithMessage(s, i, description, true)
}

// displayMenu shows the main menu with one button per action
func (b *Bot) displayMenu(s *discordgo.Session, i *discordgo.InteractionCreate) {
	components := []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{Label: "List Rewards", Style: discordgo.PrimaryButton, CustomID: "menu_rewards"},
				discordgo.Button{Label: "Get Referral Link", Style: discordgo.PrimaryButton, CustomID: "menu_invite"},
			},
		},
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{Label: "My Referrals", Style: discordgo.SecondaryButton, CustomID: "menu_referrals"},
				discordgo.Button{Label: "My Balance", Style: discordgo.SecondaryButton, CustomID: "menu_balance"},
			},
		},
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{Label: "Redeem Rewards", Style: discordgo.SuccessButton, CustomID: "menu_redeem"},
				discordgo.Button{Label: "Get Help", Style: discordgo.SecondaryButton, CustomID: "menu_help"},
			},
		},
	}

	message := fmt.Sprintf("**Hello %s!**\nSelect what you want me to do:", interactionUsername(i))
	if err := common.RespondWithComponents(s, i, message, components, true); err != nil {
		log.Errorf("Error displaying menu: %v", err)
	}
}

// promptJoin asks the user to join the target channel before using the bot
func (b *Bot) promptJoin(s *discordgo.Session, i *discordgo.InteractionCreate) {
	message := "**Please join our channel to use this feature.\nOnce joined, press `/start` again.**"
	if err := common.RespondWithMessage(s, i, message, true); err != nil {
		log.Errorf("Error prompting user to join: %v", err)
	}
}

// interactionUserID extracts the numeric user identity from either a guild
// or a DM interaction
func interactionUserID(i *discordgo.InteractionCreate) (int64, error) {
	user := interactionUser(i)
	if user == nil {
		return 0, fmt.Errorf("interaction has no user")
	}
	return strconv.ParseInt(user.ID, 10, 64)
}

func interactionUsername(i *discordgo.InteractionCreate) string {
	if user := interactionUser(i); user != nil {
		return user.Username
	}
	return ""
}

func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil {
		return i.Member.User
	}
	return i.User
}
