package events

import (
	"strings"
	"time"
)

// Kind tags a recognized game event. Unrecognized tags decode to KindUnknown
// and are skipped by the replay engine, keeping old logs forward-compatible.
type Kind string

const (
	KindTask          Kind = "Task"
	KindPlayerVote    Kind = "PlayerVote"
	KindDeath         Kind = "Death"
	KindBodyReport    Kind = "BodyReport"
	KindMeetingStart  Kind = "MeetingStart"
	KindExiled        Kind = "Exiled"
	KindMeetingEnd    Kind = "MeetingEnd"
	KindGameCancel    Kind = "GameCancel"
	KindManualGameEnd Kind = "ManualGameEnd"
	KindDisconnect    Kind = "Disconnect"
	KindUnknown       Kind = "Unknown"
)

// MeetingEnd result values.
const (
	MeetingResultExiled  = "Exiled"
	MeetingResultTie     = "Tie"
	MeetingResultSkipped = "Skipped"
)

// Event is one decoded game event. Only the fields relevant to the event's
// kind are populated; name-like fields are already cleaned of trailing
// decoration.
type Event struct {
	Kind       Kind
	Name       string
	Player     string
	Target     string
	Killer     string
	DeadPlayer string
	Result     string
	Time       time.Time
	HasTime    bool
	RawTag     string
}

// MatchInfo is the match input record consumed from the file store.
type MatchInfo struct {
	MatchID       int
	GameStarted   string
	StartTime     time.Time
	Result        string
	Players       []string
	Impostors     []string
	EventsLogFile string
}

// CleanName strips the trailing " |" decoration some logger versions append
// to player name fields.
func CleanName(name string) string {
	name = strings.TrimSuffix(name, " |")
	return strings.TrimSpace(name)
}

// IsSkipTarget reports whether a vote target string means a skipped vote.
func IsSkipTarget(target string) bool {
	return target == "" || strings.EqualFold(target, "none")
}

var timeLayouts = []string{
	"1/2/2006 15:04:05",
	"1/2/2006 3:04:05 PM",
}

// ParseTime parses a match/event timestamp. Missing or malformed values
// yield the zero time and ok=false; callers fall back to a sentinel rather
// than failing the match.
func ParseTime(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
