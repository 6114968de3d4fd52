package discord

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"golang.org/x/time/rate"

	"github.com/nickfine05/TikTok-Post-Tracker/internal/domain"
)

// dmSession is the slice of the Discord session the delivery path uses.
type dmSession interface {
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// ReminderDelivery sends reminder DMs. Sends are best effort: every
// failure is reported in the DeliveryResult, never as an error, and the
// next scheduled pass is the only retry. A circuit breaker sheds load
// when the API keeps failing, and a rate limiter keeps a big reminder
// batch under the platform's DM limits.
type ReminderDelivery struct {
	session dmSession
	limiter *rate.Limiter
	cb      circuitbreaker.CircuitBreaker[any]
}

var _ domain.ReminderSender = (*ReminderDelivery)(nil)

func NewReminderDelivery(session dmSession) *ReminderDelivery {
	cb := circuitbreaker.Builder[any]().
		WithFailureRateThreshold(50, 5, time.Minute).
		WithDelay(5 * time.Minute).
		WithSuccessThreshold(1).
		OnStateChanged(func(e circuitbreaker.StateChangedEvent) {
			slog.Warn("Circuit breaker state changed",
				"component", "reminder_delivery",
				"from", e.OldState.String(),
				"to", e.NewState.String(),
			)
		}).
		Build()

	return &ReminderDelivery{
		session: session,
		limiter: rate.NewLimiter(rate.Every(time.Second), 5),
		cb:      cb,
	}
}

func (d *ReminderDelivery) SendReminder(ctx context.Context, intent domain.ReminderIntent) domain.DeliveryResult {
	if err := d.limiter.Wait(ctx); err != nil {
		return domain.DeliveryResult{Reason: fmt.Errorf("rate limiter wait: %w", err)}
	}

	if !d.cb.TryAcquirePermit() {
		return domain.DeliveryResult{Reason: fmt.Errorf("reminder delivery: %w", circuitbreaker.ErrOpen)}
	}

	dm, err := d.session.UserChannelCreate(intent.Key.CreatorID)
	if err != nil {
		d.cb.RecordError(err)
		return domain.DeliveryResult{Reason: fmt.Errorf("open dm channel: %w", err)}
	}

	mention := ""
	if intent.ChannelID != "" {
		mention = "<#" + intent.ChannelID + ">"
	}

	if _, err := d.session.ChannelMessageSendEmbed(dm.ID, reminderEmbed(intent, mention)); err != nil {
		d.cb.RecordError(err)
		return domain.DeliveryResult{Reason: fmt.Errorf("send dm: %w", err)}
	}

	d.cb.RecordSuccess()
	slog.Debug("Reminder delivered",
		"reminder_id", intent.ID,
		"creator_id", intent.Key.CreatorID,
		"guild_id", intent.Key.WorkspaceID,
	)
	return domain.DeliveryResult{Delivered: true}
}
