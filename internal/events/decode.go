package events

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// DecodeMatchInfo parses a match input record. Field names are matched
// case-insensitively; the comma-joined rosters are split and trimmed.
func DecodeMatchInfo(data []byte) (MatchInfo, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return MatchInfo{}, fmt.Errorf("decoding match record: %w", err)
	}
	fields := lowerKeys(raw)

	var info MatchInfo
	id, err := intField(fields, "matchid")
	if err != nil {
		return MatchInfo{}, fmt.Errorf("decoding match record: %w", err)
	}
	info.MatchID = id
	info.GameStarted = stringField(fields, "gamestarted")
	if t, ok := ParseTime(info.GameStarted); ok {
		info.StartTime = t
	}
	info.Result = stringField(fields, "result")
	info.Players = splitRoster(stringField(fields, "players"))
	info.Impostors = splitRoster(stringField(fields, "impostors"))
	info.EventsLogFile = stringField(fields, "eventslogfile")
	return info, nil
}

// DecodeEvents parses an ordered event log. A single-object file decodes as
// a one-event sequence. Unknown tags come back as KindUnknown.
func DecodeEvents(data []byte) ([]Event, error) {
	var rawList []map[string]json.RawMessage
	if err := json.Unmarshal(data, &rawList); err != nil {
		var single map[string]json.RawMessage
		if err2 := json.Unmarshal(data, &single); err2 != nil {
			return nil, fmt.Errorf("decoding event log: %w", err)
		}
		rawList = []map[string]json.RawMessage{single}
	}

	out := make([]Event, 0, len(rawList))
	for _, raw := range rawList {
		out = append(out, decodeOne(lowerKeys(raw)))
	}
	return out, nil
}

func decodeOne(fields map[string]json.RawMessage) Event {
	tag := stringField(fields, "event")
	ev := Event{RawTag: tag}

	switch strings.ToLower(tag) {
	case "task":
		ev.Kind = KindTask
		ev.Name = CleanName(stringField(fields, "name"))
	case "playervote":
		ev.Kind = KindPlayerVote
		ev.Player = CleanName(stringField(fields, "player"))
		ev.Target = CleanName(stringField(fields, "target"))
	case "death":
		ev.Kind = KindDeath
		ev.Name = CleanName(stringField(fields, "name"))
		ev.Killer = CleanName(stringField(fields, "killer"))
	case "bodyreport":
		ev.Kind = KindBodyReport
		ev.Player = CleanName(stringField(fields, "player"))
		ev.DeadPlayer = CleanName(stringField(fields, "deadplayer"))
	case "meetingstart":
		ev.Kind = KindMeetingStart
		ev.Player = CleanName(stringField(fields, "player"))
	case "exiled":
		ev.Kind = KindExiled
		ev.Player = CleanName(stringField(fields, "player"))
	case "meetingend":
		ev.Kind = KindMeetingEnd
		ev.Result = stringField(fields, "result")
	case "gamecancel":
		ev.Kind = KindGameCancel
	case "manualgameend":
		ev.Kind = KindManualGameEnd
	case "disconnect":
		ev.Kind = KindDisconnect
		ev.Name = CleanName(stringField(fields, "name"))
	default:
		ev.Kind = KindUnknown
	}

	if t, ok := ParseTime(stringField(fields, "time")); ok {
		ev.Time = t
		ev.HasTime = true
	}
	return ev
}

func lowerKeys(raw map[string]json.RawMessage) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(raw))
	for k, v := range raw {
		out[strings.ToLower(k)] = v
	}
	return out
}

func stringField(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	// Some loggers emit bare numbers for fields we read as strings.
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func intField(fields map[string]json.RawMessage, key string) (int, error) {
	raw, ok := fields[key]
	if !ok {
		return 0, fmt.Errorf("missing field %q", key)
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		v, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return 0, fmt.Errorf("field %q: %w", key, err)
		}
		return v, nil
	}
	return 0, fmt.Errorf("field %q is not a number", key)
}

func splitRoster(joined string) []string {
	if strings.TrimSpace(joined) == "" {
		return nil
	}
	parts := strings.Split(joined, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		name := CleanName(p)
		if name != "" {
			out = append(out, name)
		}
	}
	return out
}
