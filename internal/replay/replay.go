// Package replay turns an ordered match event stream into a populated Match
// with per-player statistics. A replay is a pure function of its input: no
// I/O, no clock, no hidden state. Determinism here is what makes match
// corrections safe to re-run.
package replay

import (
	"fmt"
	"time"

	"amongus-ranked/internal/domain"
	"amongus-ranked/internal/events"
	"amongus-ranked/internal/names"
)

// Warning records an event that could not be applied, with enough context to
// reconstruct the decision. Warnings surface to the caller instead of being
// silently discarded.
type Warning struct {
	MatchID int
	Player  string
	Event   string
	Reason  string
}

func (w Warning) String() string {
	return fmt.Sprintf("match %d: %s event for %q dropped: %s", w.MatchID, w.Event, w.Player, w.Reason)
}

// Engine replays event streams. Roster lookups tolerate minor misspellings
// through the injected matcher.
type Engine struct {
	matcher *names.Matcher
}

func NewEngine(matcher *names.Matcher) *Engine {
	if matcher == nil {
		matcher = names.NewMatcher(nil, 0)
	}
	return &Engine{matcher: matcher}
}

// run holds the mutable state of one replay pass.
type run struct {
	engine *Engine
	match  *domain.Match
	roster []string

	playersAlive            int
	impsAlive               int
	deathHappened           bool
	meetingCalledAfterDeath bool

	warnings []Warning
}

// Replay consumes the match metadata and its ordered event sequence and
// returns the populated match plus any dropped-event warnings.
func (e *Engine) Replay(info events.MatchInfo, evs []events.Event, k float64) (*domain.Match, []Warning, error) {
	if len(info.Players) == 0 {
		return nil, nil, fmt.Errorf("match %d has an empty roster", info.MatchID)
	}

	match := &domain.Match{
		ID:            info.MatchID,
		StartTime:     info.StartTime,
		EndTime:       info.StartTime,
		Result:        domain.ParseResult(info.Result),
		EventFileName: info.EventsLogFile,
		Rounds:        1,
		K:             k,
	}

	impostors := make(map[string]bool, len(info.Impostors))
	for _, name := range info.Impostors {
		impostors[name] = true
	}
	for _, name := range info.Players {
		team := domain.TeamCrewmate
		if impostors[name] {
			team = domain.TeamImpostor
		}
		p := domain.NewPlayerInMatch(name, team)
		p.MatchID = match.ID
		p.Won = match.Result.WonBy(team)
		match.Players = append(match.Players, p)
		if team == domain.TeamImpostor {
			match.ImpostorsCount++
		} else {
			match.CrewmatesCount++
		}
	}

	r := &run{
		engine:       e,
		match:        match,
		roster:       info.Players,
		playersAlive: len(info.Players),
		impsAlive:    match.ImpostorsCount,
	}

loop:
	for _, ev := range evs {
		switch ev.Kind {
		case events.KindTask:
			r.onTask(ev)
		case events.KindDeath:
			r.onDeath(ev)
		case events.KindBodyReport:
			r.meetingCalledAfterDeath = true
		case events.KindMeetingStart:
			if r.deathHappened {
				r.meetingCalledAfterDeath = true
			}
		case events.KindPlayerVote:
			r.onVote(ev)
		case events.KindExiled:
			r.onExiled(ev)
		case events.KindMeetingEnd:
			r.onMeetingEnd(ev)
		case events.KindDisconnect:
			if p := r.find(ev.Name); p != nil {
				p.Connected = false
			}
		case events.KindGameCancel, events.KindManualGameEnd:
			break loop
		case events.KindUnknown:
			// Forward compatibility: unrecognized tags are ignored.
		}
	}

	r.finalize()
	return match, r.warnings, nil
}

// find resolves a roster name, exact first and fuzzy second. A miss records
// a warning and returns nil; the caller drops the event.
func (r *run) find(name string) *domain.PlayerInMatch {
	if name == "" {
		return nil
	}
	if idx, ok := r.engine.matcher.Find(name, r.roster); ok {
		return r.match.Players[idx]
	}
	return nil
}

func (r *run) findOrWarn(name, event string) *domain.PlayerInMatch {
	p := r.find(name)
	if p == nil {
		r.warnings = append(r.warnings, Warning{
			MatchID: r.match.ID,
			Player:  name,
			Event:   event,
			Reason:  "no roster name within similarity threshold",
		})
	}
	return p
}

func (r *run) isImpostor(name string) bool {
	if events.IsSkipTarget(name) {
		return false
	}
	p := r.find(name)
	return p != nil && p.Team == domain.TeamImpostor
}

func (r *run) bumpEndTime(ev events.Event) {
	if ev.HasTime && ev.Time.After(r.match.EndTime) {
		r.match.EndTime = ev.Time
	}
}

func (r *run) onTask(ev events.Event) {
	p := r.findOrWarn(ev.Name, "Task")
	if p == nil {
		return
	}
	p.FinishedTask()
	if p.TasksComplete == 10 {
		if p.Alive {
			p.FinishedTasksAlive = true
		} else {
			p.FinishedTasksDead = true
		}
	}
}

func (r *run) onDeath(ev events.Event) {
	p := r.findOrWarn(ev.Name, "Death")
	if p == nil {
		return
	}
	if !p.Alive {
		return // duplicate death reports are a no-op
	}
	r.playersAlive--
	r.deathHappened = true
	p.Alive = false
	if ev.HasTime {
		t := ev.Time
		p.TimeOfDeath = &t
	}
	p.RoundsSurvived = r.match.Rounds
	p.DiedFirstRound = !r.meetingCalledAfterDeath

	if ev.Killer != "" {
		if killer := r.find(ev.Killer); killer != nil {
			killer.GotAKill()
			if killer.SoloImp {
				killer.KillsAsSoloImp++
			}
		}
	}
	r.bumpEndTime(ev)
}

func (r *run) onVote(ev events.Event) {
	if r.deathHappened {
		r.meetingCalledAfterDeath = true
	}
	p := r.findOrWarn(ev.Player, "PlayerVote")
	if p == nil {
		return
	}
	switch {
	case events.IsSkipTarget(ev.Target):
		p.SkippedVote()
	case r.isImpostor(ev.Target):
		p.CorrectVote()
	default:
		p.IncorrectVote()
	}
	p.LastVoted = ev.Target
	r.bumpEndTime(ev)
}

func (r *run) onExiled(ev events.Event) {
	ejected := r.findOrWarn(ev.Player, "Exiled")
	if ejected == nil {
		return
	}
	if !ejected.Alive {
		return
	}
	ejected.Alive = false
	if ev.HasTime {
		t := ev.Time
		ejected.TimeOfDeath = &t
	}
	ejected.RoundsSurvived = r.match.Rounds
	ejected.EjectedInMeeting = true

	if ejected.Team == domain.TeamImpostor {
		r.impsAlive--
		if r.playersAlive >= 7 {
			// Early co-impostor ejection: the survivor plays the rest solo.
			for _, imp := range r.match.PlayersByTeam(domain.TeamImpostor) {
				if imp.Name == ejected.Name {
					imp.EjectedEarlyAsImp = true
				} else {
					imp.SoloImp = true
					r.match.SoloImpGame = true
				}
			}
		}
		for _, crew := range r.match.PlayersByTeam(domain.TeamCrewmate) {
			if crew.LastVoted == ejected.Name && crew.Alive {
				crew.CorrectVoteOnEject = append(crew.CorrectVoteOnEject,
					domain.EjectCredit{PlayersAlive: r.playersAlive, Weight: 1})
			}
		}
	} else {
		for _, p := range r.match.Players {
			if !p.Alive {
				continue
			}
			if p.LastVoted == ejected.Name && p.Team == domain.TeamCrewmate {
				p.GotCrewVoted = append(p.GotCrewVoted,
					domain.EjectCredit{PlayersAlive: r.playersAlive, Weight: 1})
			} else if p.Team == domain.TeamImpostor {
				p.GotCrewVoted = append(p.GotCrewVoted,
					domain.EjectCredit{PlayersAlive: r.playersAlive, Weight: 1})
			}
			r.classifyCritOnEject(p)
		}
	}

	r.playersAlive--
	if r.gameEnded() {
		return
	}
	r.match.Rounds++
}

// classifyCritOnEject applies the critical-round rule on a crewmate
// ejection, evaluated with the counts before the ejection. The alive-count
// thresholds here intentionally differ from the MeetingEnd branch; see
// DESIGN.md.
func (r *run) classifyCritOnEject(p *domain.PlayerInMatch) {
	crit := contains([]int{3, 4}, r.playersAlive) ||
		(contains([]int{5, 6, 7}, r.playersAlive) && r.impsAlive == 2)
	if !crit || p.Team != domain.TeamCrewmate || p.Won {
		return
	}
	switch {
	case r.isImpostor(p.LastVoted):
		p.RightVoteOnCritLost = true
	case contains([]int{3, 5, 6}, r.playersAlive):
		p.VotedWrongOnCrit = true
	case contains([]int{4, 7}, r.playersAlive) && p.LastVoted != "Skipped" && p.LastVoted != "none":
		p.VotedWrongOnCrit = true
	}
}

func (r *run) onMeetingEnd(ev events.Event) {
	if ev.Result != events.MeetingResultSkipped && ev.Result != events.MeetingResultTie {
		return
	}
	r.match.Rounds++
	crit := (contains([]int{5, 6}, r.playersAlive) && r.impsAlive == 2) || r.playersAlive == 3
	if !crit {
		return
	}
	for _, p := range r.match.Players {
		if !p.Alive || p.Team != domain.TeamCrewmate || p.Won {
			continue
		}
		if p.LastVoted == "" || p.LastVoted == "none" || p.LastVoted == "missed" || !r.isImpostor(p.LastVoted) {
			p.VotedWrongOnCrit = true
		} else {
			p.RightVoteOnCritLost = true
		}
	}
}

func (r *run) gameEnded() bool {
	return r.impsAlive == 0 ||
		(r.playersAlive == 1 && r.impsAlive == 1) ||
		(r.playersAlive == 2 && r.impsAlive == 2)
}

func (r *run) finalize() {
	m := r.match
	if m.EndTime.After(m.StartTime) {
		m.Duration = m.EndTime.Sub(m.StartTime)
	}
	m.AlivePlayers = r.playersAlive
	m.AliveImpostors = r.impsAlive

	for _, p := range m.Players {
		p.TotalRounds = m.Rounds
		if p.Team == domain.TeamCrewmate {
			if denom := p.PlacedVotes - p.SkipVotes; denom != 0 {
				p.VotingAccuracy = float64(p.CorrectVotes) / float64(denom)
			}
		}
		if p.TimeOfDeath == nil {
			end := m.EndTime
			p.TimeOfDeath = &end
		}
		p.AliveTime = clampDuration(p.TimeOfDeath.Sub(m.StartTime))
		p.MatchTime = m.Duration
		if m.Result.ImpWin() && p.SoloImp {
			p.WonAsSoloImp = true
		}
		if p.RoundsSurvived == 0 {
			p.RoundsSurvived = m.Rounds
		}
	}
}

func clampDuration(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}

func contains(set []int, v int) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
