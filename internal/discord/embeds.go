package discord

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/nickfine05/TikTok-Post-Tracker/internal/domain"
	"github.com/nickfine05/TikTok-Post-Tracker/internal/query"
)

const (
	colorGreen  = 0x2ecc71
	colorOrange = 0xe67e22
	colorBlue   = 0x3498db
	colorGold   = 0xf1c40f
)

// Embed-size caps imposed by the platform.
const (
	maxDashboardRows = 20
	maxReportNames   = 10
)

func displayDate(d domain.Date) string {
	if d.IsZero() {
		return "Never"
	}
	return string(d)
}

func postTrackedEmbed(workspaceName string, res domain.RecordResult) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "✅ Post Tracked!",
		Color: colorGreen,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Server", Value: workspaceName, Inline: true},
			{Name: "Streak", Value: fmt.Sprintf("🔥 %d days", res.Streak), Inline: true},
			{Name: "Week", Value: fmt.Sprintf("%d/7", res.WeekCount), Inline: true},
			{Name: "Month", Value: fmt.Sprintf("%d posts", res.MonthCount), Inline: true},
		},
	}
}

func reminderEmbed(intent domain.ReminderIntent, channelMention string) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       "📱 Posting Reminder",
		Description: fmt.Sprintf("You haven't posted in %d days!", intent.DaysSincePost),
		Color:       colorOrange,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Server", Value: intent.WorkspaceName, Inline: true},
		},
	}
	if channelMention != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Your Channel",
			Value: fmt.Sprintf("Post 'posted' in %s when done!", channelMention),
		})
	}
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:   "Last Post",
		Value:  displayDate(intent.LastPosted),
		Inline: true,
	})
	return embed
}

func setupCompleteEmbed(creatorName, creatorMention, workspaceName string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "✅ Channel Setup Complete!",
		Description: fmt.Sprintf("Now tracking **%s** in this channel\nServer: **%s**", creatorName, workspaceName),
		Color:       colorGreen,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:  "How it works",
				Value: fmt.Sprintf("%s just needs to type 'posted' after uploading to TikTok", creatorMention),
			},
			{
				Name:  "Important",
				Value: "Tracking is separate for each server - posts here won't count in other servers!",
			},
		},
	}
}

func alreadySetupEmbed(currentCreator string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "Channel Already Setup",
		Description: fmt.Sprintf("This channel is tracking **%s**\nUse `!unsetup` first to change.", currentCreator),
		Color:       colorOrange,
	}
}

func trackingRemovedEmbed(creatorName string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "✅ Tracking Removed",
		Description: fmt.Sprintf("No longer tracking **%s** in this channel", creatorName),
		Color:       colorOrange,
	}
}

func channelsEmbed(workspaceName string, channels []query.ChannelStatus, channelName func(id string) string) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("📍 Tracked Channels in %s", workspaceName),
		Description: fmt.Sprintf("Tracking %d channels in this server", len(channels)),
		Color:       colorBlue,
	}
	for _, ch := range channels {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   "#" + channelName(ch.ChannelID),
			Value:  fmt.Sprintf("Creator: **%s**\nLast post: %s", ch.CreatorName, displayDate(ch.LastPosted)),
			Inline: true,
		})
	}
	return embed
}

func dashboardEmbed(workspaceName string, rows []query.DashboardRow) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("📊 %s Dashboard", workspaceName),
		Description: fmt.Sprintf("Tracking %d creators in this server", len(rows)),
		Color:       colorBlue,
		Footer:      &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Data for %s only", workspaceName)},
	}
	if len(rows) > maxDashboardRows {
		rows = rows[:maxDashboardRows]
	}
	for _, row := range rows {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("%s %s", statusEmoji(row.Status), row.Name),
			Value: fmt.Sprintf("Week: %d/7 | Streak: 🔥%d\nLast: %s", row.WeekCount, row.CurrentStreak, displayDate(row.LastPosted)),
		})
	}
	return embed
}

func statusEmoji(s query.Status) string {
	switch s {
	case query.StatusFresh:
		return "✅"
	case query.StatusWarning:
		return "⚠️"
	case query.StatusLapsed:
		return "❌"
	default:
		return "❓"
	}
}

func weeklyEmbed(workspaceName string, report *query.WeeklyReport) *discordgo.MessageEmbed {
	avg := 0.0
	if report.TrackedCreators > 0 {
		avg = float64(report.TotalPosts) / float64(report.TrackedCreators)
	}

	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("📅 Weekly Report - %s", workspaceName),
		Description: "Performance for the last 7 days",
		Color:       colorGreen,
		Footer:      &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Server-specific data for %s", workspaceName)},
		Fields: []*discordgo.MessageEmbedField{
			{
				Name: "📊 Overview",
				Value: fmt.Sprintf("Total Posts: %d\nActive Creators: %d/%d\nAvg/Creator: %.1f",
					report.TotalPosts, report.ActiveCreators, report.TrackedCreators, avg),
			},
		},
	}

	if len(report.PerfectWeek) > 0 {
		names := report.PerfectWeek
		if len(names) > maxReportNames {
			names = names[:maxReportNames]
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   "🌟 Perfect Week (7/7)",
			Value:  strings.Join(names, "\n"),
			Inline: true,
		})
	}

	if len(report.NeedsImprovement) > 0 {
		lines := make([]string, 0, len(report.NeedsImprovement))
		for _, cw := range report.NeedsImprovement {
			lines = append(lines, fmt.Sprintf("%s (%d/7)", cw.Name, cw.WeekCount))
		}
		if len(lines) > maxReportNames {
			lines = lines[:maxReportNames]
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   "⚠️ Needs Improvement",
			Value:  strings.Join(lines, "\n"),
			Inline: true,
		})
	}

	return embed
}

func statsEmbed(memberName, workspaceName string, stats *query.CreatorStats) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:  fmt.Sprintf("📊 Stats for %s in %s", memberName, workspaceName),
		Color:  colorGold,
		Footer: &discordgo.MessageEmbedFooter{Text: "Stats are specific to this server only"},
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Server", Value: workspaceName},
			{Name: "Week Total", Value: fmt.Sprintf("%d/7", stats.WeekCount), Inline: true},
			{Name: "Month Total", Value: fmt.Sprintf("%d", stats.MonthCount), Inline: true},
			{Name: "All Time (This Server)", Value: fmt.Sprintf("%d", stats.TotalPosts), Inline: true},
			{Name: "Current Streak", Value: fmt.Sprintf("🔥 %d days", stats.CurrentStreak), Inline: true},
			{Name: "Best Streak", Value: fmt.Sprintf("🏆 %d days", stats.BestStreak), Inline: true},
			{Name: "Last Posted", Value: displayDate(stats.LastPosted), Inline: true},
		},
	}
}

func helpEmbed(prefix string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "📱 Server-Specific Tracker Commands",
		Description: "Track posts separately per server",
		Color:       colorBlue,
		Footer:      &discordgo.MessageEmbedFooter{Text: "Posts are tracked separately for each server!"},
		Fields: []*discordgo.MessageEmbedField{
			{Name: "**Setup (Admin)**", Value: "​"},
			{Name: prefix + "setup @creator", Value: "Setup tracking in current channel"},
			{Name: prefix + "unsetup", Value: "Remove tracking from current channel"},
			{Name: prefix + "channels", Value: "List tracked channels in this server"},
			{Name: "**Reports (Server-Specific)**", Value: "​"},
			{Name: prefix + "dashboard", Value: "View this server's creators"},
			{Name: prefix + "weekly", Value: "Weekly report for this server"},
			{Name: prefix + "stats [@user]", Value: "Individual stats in this server"},
			{Name: "**Tracking**", Value: "​"},
			{Name: "Type 'posted'", Value: "Creators type this to track"},
		},
	}
}
