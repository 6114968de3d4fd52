package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/nickfine05/TikTok-Post-Tracker/internal/domain"
	"github.com/nickfine05/TikTok-Post-Tracker/internal/logging"
)

// parseCommand splits a prefixed message into a command name and its
// arguments. ok is false when the message is not a command for us.
func parseCommand(content, prefix string) (name string, args []string, ok bool) {
	if !strings.HasPrefix(content, prefix) {
		return "", nil, false
	}
	fields := strings.Fields(content[len(prefix):])
	if len(fields) == 0 {
		return "", nil, false
	}
	return strings.ToLower(fields[0]), fields[1:], true
}

func (a *Adapter) dispatchCommand(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate) {
	name, args, ok := parseCommand(m.Content, a.prefix)
	if !ok {
		return
	}

	switch name {
	case "setup":
		a.cmdSetup(ctx, s, m)
	case "unsetup":
		a.cmdUnsetup(ctx, s, m)
	case "channels":
		a.cmdChannels(ctx, s, m)
	case "dashboard":
		a.cmdDashboard(ctx, s, m)
	case "weekly":
		a.cmdWeekly(ctx, s, m)
	case "stats":
		a.cmdStats(ctx, s, m, args)
	case "tracker":
		a.send(s, m.ChannelID, helpEmbed(a.prefix))
	}
}

func (a *Adapter) send(s *discordgo.Session, channelID string, embed *discordgo.MessageEmbed) {
	if _, err := s.ChannelMessageSendEmbed(channelID, embed); err != nil {
		logging.WithChannel(channelID).Warn("Failed to send embed", "error", err)
	}
}

func (a *Adapter) sendText(s *discordgo.Session, channelID, text string) {
	if _, err := s.ChannelMessageSend(channelID, text); err != nil {
		logging.WithChannel(channelID).Warn("Failed to send message", "error", err)
	}
}

func (a *Adapter) requireManageChannels(s *discordgo.Session, m *discordgo.MessageCreate) bool {
	perms, err := s.UserChannelPermissions(m.Author.ID, m.ChannelID)
	if err != nil {
		slog.Error("Failed to resolve permissions", "channel_id", m.ChannelID, "user_id", m.Author.ID, "error", err)
		return false
	}
	if perms&discordgo.PermissionManageChannels == 0 {
		a.sendText(s, m.ChannelID, "You need the Manage Channels permission to do that.")
		return false
	}
	return true
}

func (a *Adapter) guildName(s *discordgo.Session, guildID string) string {
	if g, err := s.State.Guild(guildID); err == nil {
		return g.Name
	}
	return guildID
}

func (a *Adapter) cmdSetup(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate) {
	if !a.requireManageChannels(s, m) {
		return
	}
	if len(m.Mentions) == 0 {
		a.sendText(s, m.ChannelID, fmt.Sprintf("Usage: `%ssetup @creator`", a.prefix))
		return
	}
	member := m.Mentions[0]

	reg := domain.ChannelRegistration{
		ChannelID:     m.ChannelID,
		CreatorID:     member.ID,
		CreatorName:   member.Username,
		WorkspaceID:   m.GuildID,
		WorkspaceName: a.guildName(s, m.GuildID),
		RegisteredBy:  m.Author.ID,
		RegisteredAt:  domain.DateOf(m.Timestamp),
	}

	existing, err := a.ledger.RegisterChannel(ctx, reg)
	switch {
	case errors.Is(err, domain.ErrChannelAlreadyRegistered):
		a.send(s, m.ChannelID, alreadySetupEmbed(existing.CreatorName))
	case err != nil:
		slog.Error("Failed to register channel", "channel_id", m.ChannelID, "error", err)
		a.sendText(s, m.ChannelID, "Something went wrong, try again later.")
	default:
		a.send(s, m.ChannelID, setupCompleteEmbed(member.Username, member.Mention(), reg.WorkspaceName))
	}
}

func (a *Adapter) cmdUnsetup(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate) {
	if !a.requireManageChannels(s, m) {
		return
	}

	removed, err := a.ledger.UnregisterChannel(ctx, m.ChannelID)
	switch {
	case errors.Is(err, domain.ErrChannelNotRegistered):
		a.sendText(s, m.ChannelID, "This channel isn't being tracked.")
	case err != nil:
		slog.Error("Failed to unregister channel", "channel_id", m.ChannelID, "error", err)
		a.sendText(s, m.ChannelID, "Something went wrong, try again later.")
	default:
		a.send(s, m.ChannelID, trackingRemovedEmbed(removed.CreatorName))
	}
}

func (a *Adapter) cmdChannels(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate) {
	if !a.requireManageChannels(s, m) {
		return
	}

	channels, err := a.queries.ListChannels(ctx, m.GuildID)
	if err != nil {
		slog.Error("Failed to list channels", "guild_id", m.GuildID, "error", err)
		a.sendText(s, m.ChannelID, "Something went wrong, try again later.")
		return
	}
	if len(channels) == 0 {
		a.sendText(s, m.ChannelID, fmt.Sprintf("No channels are being tracked in this server. Use `%ssetup @creator` in a channel to start.", a.prefix))
		return
	}

	nameOf := func(id string) string {
		if ch, err := s.State.Channel(id); err == nil {
			return ch.Name
		}
		return "Unknown Channel"
	}
	a.send(s, m.ChannelID, channelsEmbed(a.guildName(s, m.GuildID), channels, nameOf))
}

func (a *Adapter) cmdDashboard(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate) {
	rows, err := a.queries.Dashboard(ctx, m.GuildID)
	if err != nil {
		slog.Error("Failed to build dashboard", "guild_id", m.GuildID, "error", err)
		a.sendText(s, m.ChannelID, "Something went wrong, try again later.")
		return
	}
	if len(rows) == 0 {
		a.sendText(s, m.ChannelID, fmt.Sprintf("No creators being tracked in this server! Use `%ssetup @creator` in their channel.", a.prefix))
		return
	}
	a.send(s, m.ChannelID, dashboardEmbed(a.guildName(s, m.GuildID), rows))
}

func (a *Adapter) cmdWeekly(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate) {
	report, err := a.queries.WeeklyReport(ctx, m.GuildID)
	if err != nil {
		slog.Error("Failed to build weekly report", "guild_id", m.GuildID, "error", err)
		a.sendText(s, m.ChannelID, "Something went wrong, try again later.")
		return
	}
	if report.TrackedCreators == 0 {
		a.sendText(s, m.ChannelID, "No creators to report on in this server!")
		return
	}
	a.send(s, m.ChannelID, weeklyEmbed(a.guildName(s, m.GuildID), report))
}

func (a *Adapter) cmdStats(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	member := m.Author
	if len(m.Mentions) > 0 {
		member = m.Mentions[0]
	} else if len(args) > 0 {
		a.sendText(s, m.ChannelID, fmt.Sprintf("Usage: `%sstats [@user]`", a.prefix))
		return
	}

	stats, err := a.queries.CreatorStats(ctx, m.GuildID, member.ID)
	switch {
	case errors.Is(err, domain.ErrCreatorNotFound):
		a.sendText(s, m.ChannelID, fmt.Sprintf("No tracking data for %s in this server. They need to be set up with `%ssetup @%s`", member.Mention(), a.prefix, member.Username))
	case err != nil:
		slog.Error("Failed to load creator stats", "guild_id", m.GuildID, "creator_id", member.ID, "error", err)
		a.sendText(s, m.ChannelID, "Something went wrong, try again later.")
	default:
		a.send(s, m.ChannelID, statsEmbed(member.Username, a.guildName(s, m.GuildID), stats))
	}
}
