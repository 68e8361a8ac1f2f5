package bot

import (
	"context"
	"errors"
	"strconv"

	"github.com/bwmarrin/discordgo"
)

// GuildMembershipOracle answers membership queries against a Discord guild.
// It implements service.MembershipOracle.
type GuildMembershipOracle struct {
	session *discordgo.Session
	guildID string
}

// NewGuildMembershipOracle creates a membership oracle for the given guild
func NewGuildMembershipOracle(session *discordgo.Session, guildID string) *GuildMembershipOracle {
	return &GuildMembershipOracle{
		session: session,
		guildID: guildID,
	}
}

// IsMember reports whether the user currently belongs to the target guild.
// Only a definitive "unknown member" answer maps to false; transport errors
// propagate so the caller never mistakes an outage for a non-member.
func (o *GuildMembershipOracle) IsMember(ctx context.Context, userID int64) (bool, error) {
	_, err := o.session.GuildMember(o.guildID, strconv.FormatInt(userID, 10), discordgo.WithContext(ctx))
	if err != nil {
		var restErr *discordgo.RESTError
		if errors.As(err, &restErr) && restErr.Message != nil {
			switch restErr.Message.Code {
			case discordgo.ErrCodeUnknownMember, discordgo.ErrCodeUnknownUser:
				return false, nil
			}
		}
		return false, err
	}
	return true, nil
}
