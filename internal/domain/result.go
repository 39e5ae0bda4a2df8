package domain

import "strings"

// MatchResult is the declared outcome of a match. Older logs carry variant
// spellings ("HumansByVote", "HumansByTask") which normalize to a crew win.
type MatchResult string

const (
	ResultCrewmatesWin MatchResult = "Crewmates Win"
	ResultImpostorsWin MatchResult = "Impostors Win"
	ResultCanceled     MatchResult = "Canceled"
	ResultUnknown      MatchResult = "Unknown"
)

// ParseResult normalizes a raw result string from a match file.
func ParseResult(raw string) MatchResult {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "crewmates win", "humansbyvote", "humansbytask":
		return ResultCrewmatesWin
	case "canceled", "cancelled":
		return ResultCanceled
	case "unknown", "":
		return ResultUnknown
	default:
		if strings.HasPrefix(strings.ToLower(raw), "impostor") {
			return ResultImpostorsWin
		}
		return MatchResult(raw)
	}
}

// CrewWin reports whether the result counts as a crewmate victory.
func (r MatchResult) CrewWin() bool {
	return r == ResultCrewmatesWin
}

// ImpWin reports whether the result counts as an impostor victory.
func (r MatchResult) ImpWin() bool {
	return strings.HasPrefix(strings.ToLower(string(r)), "impostor")
}

// Rated reports whether MMR deltas apply for this result. Canceled and
// Unknown matches are ledgered but never move ratings.
func (r MatchResult) Rated() bool {
	lower := strings.ToLower(string(r))
	return lower != "canceled" && lower != "cancelled" && lower != "unknown" && lower != ""
}

// WonBy reports whether the given team won under this result.
func (r MatchResult) WonBy(team Team) bool {
	switch team {
	case TeamCrewmate:
		return r.CrewWin()
	case TeamImpostor:
		return r.ImpWin()
	}
	return false
}
