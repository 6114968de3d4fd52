// Package discord adapts the tracker to the Discord gateway: it feeds
// inbound messages through the classifier into the ledger, serves the
// prefix commands, and delivers reminder DMs.
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/nickfine05/TikTok-Post-Tracker/internal/classifier"
	"github.com/nickfine05/TikTok-Post-Tracker/internal/ledger"
	"github.com/nickfine05/TikTok-Post-Tracker/internal/logging"
	"github.com/nickfine05/TikTok-Post-Tracker/internal/query"
)

type Adapter struct {
	session    *discordgo.Session
	ledger     *ledger.Ledger
	classifier *classifier.Classifier
	queries    *query.Queries
	prefix     string
}

func New(token, prefix string, led *ledger.Ledger, cls *classifier.Classifier, q *query.Queries) (*Adapter, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentMessageContent

	a := &Adapter{
		session:    session,
		ledger:     led,
		classifier: cls,
		queries:    q,
		prefix:     prefix,
	}
	session.AddHandler(a.onReady)
	session.AddHandler(a.onMessageCreate)
	return a, nil
}

// Session exposes the underlying gateway session, e.g. for the reminder
// delivery path.
func (a *Adapter) Session() *discordgo.Session {
	return a.session
}

func (a *Adapter) Open() error {
	if err := a.session.Open(); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}
	return nil
}

func (a *Adapter) Close() error {
	return a.session.Close()
}

func (a *Adapter) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	slog.Info("Discord gateway ready", "user", r.User.Username, "guilds", len(r.Guilds))
}

func (a *Adapter) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	// DMs carry no guild.
	if m.GuildID == "" {
		return
	}

	ctx := context.Background()

	if strings.HasPrefix(m.Content, a.prefix) {
		a.dispatchCommand(ctx, s, m)
		return
	}

	a.trackPost(ctx, s, m)
}

func (a *Adapter) trackPost(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate) {
	reg, matched, err := a.classifier.Classify(ctx, m.ChannelID, m.Content)
	if err != nil {
		logging.WithChannel(m.ChannelID).Error("Failed to classify message", "error", err)
		return
	}
	if !matched {
		return
	}

	channelName := m.ChannelID
	if ch, err := s.State.Channel(m.ChannelID); err == nil {
		channelName = ch.Name
	}
	// Refresh the stored guild name; servers rename themselves.
	if g, err := s.State.Guild(m.GuildID); err == nil {
		reg.WorkspaceName = g.Name
	}

	res, err := a.ledger.RecordEvent(ctx, reg, channelName, m.Timestamp)
	if err != nil {
		logging.WithCreator(reg.Key()).Error("Failed to record post", "error", err)
		return
	}

	if !res.Accepted {
		if _, err := s.ChannelMessageSendReply(m.ChannelID, "Already tracked your post for today in this server! 👍", m.Reference()); err != nil {
			logging.WithChannel(m.ChannelID).Warn("Failed to send duplicate reply", "error", err)
		}
		return
	}

	if err := s.MessageReactionAdd(m.ChannelID, m.ID, "✅"); err != nil {
		logging.WithChannel(m.ChannelID).Warn("Failed to add reaction", "error", err)
	}
	if _, err := s.ChannelMessageSendEmbed(m.ChannelID, postTrackedEmbed(reg.WorkspaceName, res)); err != nil {
		logging.WithChannel(m.ChannelID).Warn("Failed to send confirmation", "error", err)
	}
}
