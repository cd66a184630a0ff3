package sim

import (
	"fmt"
	"sort"
)

// TieWinner is the sentinel stored in Game.Winner when a game ended level.
const TieWinner = "TIE"

// Record tracks wins, losses and ties for one scope (overall, division or
// conference games).
type Record struct {
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
	Ties   int `json:"ties"`
}

// Games returns the number of games counted by the record.
func (r Record) Games() int {
	return r.Wins + r.Losses + r.Ties
}

// Pct returns the winning percentage with ties counted as half a win.
// A record with no games is exactly 0, never NaN.
func (r Record) Pct() float64 {
	games := r.Games()
	if games == 0 {
		return 0
	}
	return (float64(r.Wins) + 0.5*float64(r.Ties)) / float64(games)
}

// Team is the static description of a league member plus its real-season
// record. The simulator never mutates a Team; per-trial counters live in
// SeasonStats.
type Team struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation"`
	Conference   string `json:"conference"`
	Division     string `json:"division"`

	Overall      Record `json:"overall"`
	InDivision   Record `json:"in_division"`
	InConference Record `json:"in_conference"`
}

// Game is one schedule entry. Winner holds a team ID, TieWinner, or "" while
// the game is unplayed.
type Game struct {
	ID        string `json:"id"`
	Week      int    `json:"week"`
	HomeID    string `json:"home_id"`
	AwayID    string `json:"away_id"`
	Completed bool   `json:"completed"`
	Winner    string `json:"winner,omitempty"`
}

// OpponentGame is one edge of the per-team schedule graph: a single game
// against Opp and how it ended. Duplicate opponents appear once per game.
type OpponentGame struct {
	Opp  int
	Won  bool
	Tied bool
}

// SeasonStats holds the mutable per-trial counters for one team, mirroring
// Team's record fields, plus the derived schedule-strength scores and the
// played-opponents graph the tiebreaker engine walks.
type SeasonStats struct {
	Overall      Record
	InDivision   Record
	InConference Record

	SOV float64
	SOS float64

	Played []OpponentGame
}

// League is the dense-index view of a season: teams in a fixed order, games
// sorted by week, and an ID lookup built once so the simulation loop never
// touches a map per game.
type League struct {
	Teams []Team
	Games []Game

	index map[string]int

	// conference -> division -> team indexes, in first-appearance order.
	conferences []string
	divisions   map[string][]string
	members     map[string][]int // division -> team indexes
}

// NewLeague validates team and game references, builds the team index and
// sorts games into ascending week order (stable within a week).
func NewLeague(teams []Team, games []Game) (*League, error) {
	if len(teams) == 0 {
		return nil, fmt.Errorf("league: no teams supplied")
	}

	l := &League{
		Teams:     append([]Team(nil), teams...),
		Games:     append([]Game(nil), games...),
		index:     make(map[string]int, len(teams)),
		divisions: make(map[string][]string),
		members:   make(map[string][]int),
	}

	for i, t := range l.Teams {
		if t.ID == "" {
			return nil, fmt.Errorf("league: team %d has no id", i)
		}
		if _, dup := l.index[t.ID]; dup {
			return nil, fmt.Errorf("league: duplicate team id %q", t.ID)
		}
		l.index[t.ID] = i

		if _, seen := l.divisions[t.Conference]; !seen {
			l.conferences = append(l.conferences, t.Conference)
		}
		divKey := t.Conference + "/" + t.Division
		if len(l.members[divKey]) == 0 {
			l.divisions[t.Conference] = append(l.divisions[t.Conference], divKey)
		}
		l.members[divKey] = append(l.members[divKey], i)
	}

	for _, g := range l.Games {
		if _, ok := l.index[g.HomeID]; !ok {
			return nil, fmt.Errorf("league: game %s references unknown home team %q", g.ID, g.HomeID)
		}
		if _, ok := l.index[g.AwayID]; !ok {
			return nil, fmt.Errorf("league: game %s references unknown away team %q", g.ID, g.AwayID)
		}
		if g.Completed && g.Winner != TieWinner && g.Winner != g.HomeID && g.Winner != g.AwayID {
			return nil, fmt.Errorf("league: game %s has winner %q not playing in it", g.ID, g.Winner)
		}
	}

	sort.SliceStable(l.Games, func(i, j int) bool {
		return l.Games[i].Week < l.Games[j].Week
	})

	return l, nil
}

// TeamIndex resolves a team ID to its dense index.
func (l *League) TeamIndex(id string) (int, bool) {
	i, ok := l.index[id]
	return i, ok
}

// Conferences returns conference labels in first-appearance order.
func (l *League) Conferences() []string {
	return l.conferences
}

// Divisions returns the division keys of a conference in first-appearance order.
func (l *League) Divisions(conference string) []string {
	return l.divisions[conference]
}

// DivisionMembers returns the team indexes of one division.
func (l *League) DivisionMembers(divKey string) []int {
	return l.members[divKey]
}

// CurrentStats folds the completed games into per-team season stats with
// schedule strength filled in, the standings view of the season so far.
func (l *League) CurrentStats() []SeasonStats {
	stats := l.baseStats()
	ComputeScheduleStrength(stats)
	return stats
}

// baseStats folds the completed games into a fresh SeasonStats slice, the
// template every trial clones from.
func (l *League) baseStats() []SeasonStats {
	stats := make([]SeasonStats, len(l.Teams))

	// Size the Played slices for the full season up front so trial clones
	// never reallocate mid-loop.
	perTeam := make([]int, len(l.Teams))
	for _, g := range l.Games {
		perTeam[l.index[g.HomeID]]++
		perTeam[l.index[g.AwayID]]++
	}
	for i := range stats {
		stats[i].Played = make([]OpponentGame, 0, perTeam[i])
	}

	for _, g := range l.Games {
		if !g.Completed {
			continue
		}
		winner := tieOutcome
		if g.Winner != TieWinner {
			winner = l.index[g.Winner]
		}
		applyOutcome(stats, l, l.index[g.HomeID], l.index[g.AwayID], winner)
	}
	return stats
}

// tieOutcome is the index-form tie sentinel used inside the simulation loop.
const tieOutcome = -1

// applyOutcome updates both teams' counters and schedule graphs for one
// decided game. winner is a team index or tieOutcome.
func applyOutcome(stats []SeasonStats, l *League, home, away, winner int) {
	ht := &l.Teams[home]
	at := &l.Teams[away]
	sameConf := ht.Conference == at.Conference
	sameDiv := sameConf && ht.Division == at.Division

	if winner == tieOutcome {
		stats[home].Overall.Ties++
		stats[away].Overall.Ties++
		if sameConf {
			stats[home].InConference.Ties++
			stats[away].InConference.Ties++
		}
		if sameDiv {
			stats[home].InDivision.Ties++
			stats[away].InDivision.Ties++
		}
		stats[home].Played = append(stats[home].Played, OpponentGame{Opp: away, Tied: true})
		stats[away].Played = append(stats[away].Played, OpponentGame{Opp: home, Tied: true})
		return
	}

	loser := away
	if winner == away {
		loser = home
	}
	stats[winner].Overall.Wins++
	stats[loser].Overall.Losses++
	if sameConf {
		stats[winner].InConference.Wins++
		stats[loser].InConference.Losses++
	}
	if sameDiv {
		stats[winner].InDivision.Wins++
		stats[loser].InDivision.Losses++
	}
	stats[winner].Played = append(stats[winner].Played, OpponentGame{Opp: loser, Won: true})
	stats[loser].Played = append(stats[loser].Played, OpponentGame{Opp: winner})
}
