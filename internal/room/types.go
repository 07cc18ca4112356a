// internal/room/types.go
package room

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Limits applied when normalizing client-supplied fields.
const (
	MaxTopics      = 50
	MaxTopicName   = 80
	MaxPlayerName  = 32
	MinBudget      = 1
	MaxBudget      = 10000
	MinCapacity    = 1
	MaxCapacity    = 20
	DefaultBudget  = 100
	defaultName    = "Player"
	defaultTopic   = "Topic"
)

// Config holds the host-tunable room settings.
type Config struct {
	Budget             int  `json:"budget"`
	RevealBids         bool `json:"revealBids"`
	AllowJoinAfterLock bool `json:"allowJoinAfterLock"`
}

// ConfigUpdate is a partial config change; nil fields keep their previous
// values. RevealBids and AllowJoinAfterLock are only applied when the client
// actually sent a boolean.
type ConfigUpdate struct {
	Budget             *int
	RevealBids         *bool
	AllowJoinAfterLock *bool
}

// Topic is one allocatable item with a limited number of seats.
type Topic struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
}

// TopicInput is one entry of a wholesale topic-list replacement. A missing
// ID means a fresh one is generated; a missing Capacity defaults to the
// minimum.
type TopicInput struct {
	ID       string
	Name     string
	Capacity *int
}

// Participant is a member of a room. Spent is derived from the current bid
// set and recomputed after every bid mutation; it is never set directly.
// Participant records carry no transport state; live connections are owned
// by the session registry.
type Participant struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Spent int    `json:"spent"`
}

// Bid is one participant's point commitment toward one topic. PlacedAt is a
// unix-millisecond stamp, non-decreasing per write; the budget clamp rewrites
// it wholesale to the clamp instant.
type Bid struct {
	Amount   int   `json:"amount"`
	PlacedAt int64 `json:"ts"`
}

// nowMillis is swappable in tests that need fixed timestamps.
var nowMillis = func() int64 { return time.Now().UnixMilli() }

// NormalizeCode canonicalizes a client-supplied room code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func normalizePlayerName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return defaultName
	}
	return truncate(name, MaxPlayerName)
}

func normalizeTopicName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return defaultTopic
	}
	return truncate(name, MaxTopicName)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func newTopicID() string {
	return uuid.NewString()
}
