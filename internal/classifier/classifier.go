// Package classifier decides whether an inbound message is a qualifying
// posting event.
//
// A message qualifies when its channel is registered and its text
// contains one of a small fixed marker vocabulary. A miss is the common
// case for ordinary chat, not an error: the message flows on to command
// processing untouched.
package classifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/nickfine05/TikTok-Post-Tracker/internal/domain"
	"github.com/nickfine05/TikTok-Post-Tracker/internal/metrics"
)

// postedMarkers is the qualifying vocabulary, matched case-insensitively
// as substrings. The date-qualified variants are listed for clarity even
// though plain "posted" already covers them.
var postedMarkers = []string{
	"posted",
	"done",
	"uploaded",
	"posted for today",
	"posted today",
}

// MatchesMarker reports whether text contains a qualifying marker.
func MatchesMarker(text string) bool {
	lowered := strings.ToLower(text)
	for _, marker := range postedMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}

type Classifier struct {
	store domain.Store
}

func New(store domain.Store) *Classifier {
	return &Classifier{store: store}
}

// Classify returns the channel's registration and whether the message
// qualifies as a posting event. matched is false for unregistered
// channels and for registered channels without a marker; only a store
// failure is an error.
func (c *Classifier) Classify(ctx context.Context, channelID, text string) (domain.ChannelRegistration, bool, error) {
	snap, err := c.store.Load(ctx)
	if err != nil {
		return domain.ChannelRegistration{}, false, fmt.Errorf("load state: %w", err)
	}

	reg, ok := snap.Channels[channelID]
	if !ok {
		return domain.ChannelRegistration{}, false, nil
	}

	if !MatchesMarker(text) {
		return domain.ChannelRegistration{}, false, nil
	}

	metrics.ClassifierMatchesTotal.Inc()
	result := *reg
	result.ChannelID = channelID
	return result, true, nil
}
