package fight

import (
	"fmt"
	"strings"

	"cagefight/utils"
)

type VictoryMethod int

const (
	MethodKO VictoryMethod = iota
	MethodTKO
	MethodSubmission
	MethodDecisionUnanimous
	MethodDecisionSplit
	MethodDecisionMajority
	MethodDraw
	MethodNoContest
	MethodDisqualification
)

var methodNames = []string{
	MethodKO:                "ko",
	MethodTKO:               "tko",
	MethodSubmission:        "submission",
	MethodDecisionUnanimous: "unanimous_decision",
	MethodDecisionSplit:     "split_decision",
	MethodDecisionMajority:  "majority_decision",
	MethodDraw:              "draw",
	MethodNoContest:         "no_contest",
	MethodDisqualification:  "disqualification",
}

func (m VictoryMethod) String() string {
	if int(m) >= 0 && int(m) < len(methodNames) {
		return methodNames[m]
	}
	return fmt.Sprintf("method(%d)", int(m))
}

// Label is the human form used in announcements
func (m VictoryMethod) Label() string {
	switch m {
	case MethodKO:
		return "KO"
	case MethodTKO:
		return "TKO"
	case MethodNoContest:
		return "No Contest"
	}
	words := strings.Split(m.String(), "_")
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func ParseVictoryMethod(s string) (VictoryMethod, error) {
	for i, name := range methodNames {
		if name == s {
			return VictoryMethod(i), nil
		}
	}
	return 0, fmt.Errorf("unknown victory method %q", s)
}

func (m VictoryMethod) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *VictoryMethod) UnmarshalText(text []byte) error {
	parsed, err := ParseVictoryMethod(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func (m VictoryMethod) IsDecision() bool {
	return m == MethodDecisionUnanimous || m == MethodDecisionSplit || m == MethodDecisionMajority
}

// HasWinner is false for draws and no contests
func (m VictoryMethod) HasWinner() bool {
	return m != MethodDraw && m != MethodNoContest
}

// EventType is the billing of a bout on the card
type EventType int

const (
	RegularFight EventType = iota + 1
	PrelimFight
	MainCard
	CoMainEvent
	MainEvent
	TitleFight
)

var eventTypeNames = map[EventType]string{
	RegularFight: "regular",
	PrelimFight:  "prelim",
	MainCard:     "main_card",
	CoMainEvent:  "co_main",
	MainEvent:    "main_event",
	TitleFight:   "title",
}

func (e EventType) String() string {
	if name, ok := eventTypeNames[e]; ok {
		return name
	}
	return "regular"
}

func ParseEventType(s string) (EventType, error) {
	if s == "" {
		return RegularFight, nil
	}
	for e, name := range eventTypeNames {
		if name == s {
			return e, nil
		}
	}
	return RegularFight, fmt.Errorf("unknown event type %q", s)
}

func (e EventType) MarshalText() ([]byte, error) { return []byte(e.String()), nil }

func (e *EventType) UnmarshalText(text []byte) error {
	parsed, err := ParseEventType(string(text))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// Purse is the base show money for the billing
func (e EventType) Purse() int {
	switch e {
	case PrelimFight:
		return 5000
	case MainCard:
		return 25000
	case CoMainEvent:
		return 50000
	case MainEvent:
		return 100000
	case TitleFight:
		return 250000
	default:
		return 10000
	}
}

// EstimatedAttendance grows with billing and how popular both fighters are
func (e EventType) EstimatedAttendance(red, blue Record) int {
	draw := (red.Popularity + blue.Popularity) * 100
	return 5000 + draw + int(e)*5000
}

// RoundTally counts what a fighter did in one round
type RoundTally struct {
	SignificantStrikes int     `json:"significant_strikes"`
	Takedowns          int     `json:"takedowns"`
	ControlTime        float64 `json:"control_time"`
	Knockdowns         int     `json:"knockdowns"`
	Fouls              int     `json:"fouls"`
	DamageDealt        int     `json:"damage_dealt"`
}

const foulDeduction = 3

func (t RoundTally) Score() float64 {
	return 2*float64(t.SignificantStrikes) + 3*float64(t.Takedowns) + t.ControlTime/10 - foulDeduction*float64(t.Fouls)
}

// RoundRecord is the scorecard of one round. Winner is nil for an even round.
// Complete is false for the round a stoppage happened in.
type RoundRecord struct {
	Round    int        `json:"round"`
	Red      RoundTally `json:"red"`
	Blue     RoundTally `json:"blue"`
	Winner   *Corner    `json:"winner,omitempty"`
	Complete bool       `json:"complete"`
}

func (r RoundRecord) Score(c Corner) float64 {
	if c == Red {
		return r.Red.Score()
	}
	return r.Blue.Score()
}

func (r RoundRecord) Tally(c Corner) RoundTally {
	if c == Red {
		return r.Red
	}
	return r.Blue
}

// ScoreRound builds a scorecard; an exact tie is an even round.
func ScoreRound(round int, red, blue RoundTally, complete bool) RoundRecord {
	rec := RoundRecord{Round: round, Red: red, Blue: blue, Complete: complete}
	rs, bs := red.Score(), blue.Score()
	switch {
	case rs > bs:
		w := Red
		rec.Winner = &w
	case bs > rs:
		w := Blue
		rec.Winner = &w
	}
	return rec
}

// MatchResult is the final word on a bout
type MatchResult struct {
	RedID      string        `json:"red_id"`
	BlueID     string        `json:"blue_id"`
	Winner     *Corner       `json:"winner,omitempty"`
	WinnerID   string        `json:"winner_id,omitempty"`
	LoserID    string        `json:"loser_id,omitempty"`
	Method     VictoryMethod `json:"method"`
	Round      int           `json:"round"`
	Clock      float64       `json:"clock"`
	Rounds     []RoundRecord `json:"rounds"`
	EventType  EventType     `json:"event_type"`
	Purse      int           `json:"purse"`
	Attendance int           `json:"attendance"`
	RedHP      int           `json:"red_hp"`
	BlueHP     int           `json:"blue_hp"`
}

func (r MatchResult) IsWinner(c Corner) bool {
	return r.Winner != nil && *r.Winner == c
}

// Summary reads like a results line
func (r MatchResult) Summary(red, blue Profile) string {
	if r.Winner == nil {
		return fmt.Sprintf("%s vs %s: %s", red.Name, blue.Name, r.Method.Label())
	}
	winner, loser := red, blue
	if *r.Winner == Blue {
		winner, loser = blue, red
	}
	return fmt.Sprintf("%s def. %s by %s (R%d %s)", winner.Name, loser.Name, r.Method.Label(), r.Round, utils.FormatClock(r.Clock))
}

// Ending carries the state of the bout at the moment it was resolved
type Ending struct {
	Round  int
	Clock  float64
	Rounds []RoundRecord
	RedHP  int
	BlueHP int
}

// Resolver decides a bout and applies records. The first resolution latches;
// later calls return it unchanged.
type Resolver struct {
	red, blue Profile
	eventType EventType
	result    *MatchResult
	applied   bool
}

func NewResolver(red, blue Profile, eventType EventType) *Resolver {
	if eventType == 0 {
		eventType = RegularFight
	}
	return &Resolver{red: red, blue: blue, eventType: eventType}
}

func (r *Resolver) Resolved() bool { return r.result != nil }

func (r *Resolver) Result() (MatchResult, bool) {
	if r.result == nil {
		return MatchResult{}, false
	}
	return *r.result, true
}

// Stoppage ends the bout inside the distance
func (r *Resolver) Stoppage(method VictoryMethod, winner Corner, end Ending) MatchResult {
	if r.result != nil {
		return *r.result
	}
	res := r.base(end)
	res.Method = method
	r.setWinner(&res, winner)
	r.result = &res
	return res
}

// Decision goes to the scorecards. Only completed rounds count.
func (r *Resolver) Decision(end Ending) MatchResult {
	if r.result != nil {
		return *r.result
	}
	res := r.base(end)
	winner, method := DecideRounds(end.Rounds)
	res.Method = method
	if winner != nil {
		r.setWinner(&res, *winner)
	}
	r.result = &res
	return res
}

// NoContest voids the bout
func (r *Resolver) NoContest(end Ending) MatchResult {
	if r.result != nil {
		return *r.result
	}
	res := r.base(end)
	res.Method = MethodNoContest
	r.result = &res
	return res
}

// ApplyRecords updates both records from the latched result. It reports false
// when there is no result yet or records were already applied.
func (r *Resolver) ApplyRecords(red, blue *Record) bool {
	if r.result == nil || r.applied {
		return false
	}
	ApplyResult(*r.result, red, blue)
	r.applied = true
	return true
}

func (r *Resolver) base(end Ending) MatchResult {
	return MatchResult{
		RedID:      r.red.ID,
		BlueID:     r.blue.ID,
		Round:      end.Round,
		Clock:      end.Clock,
		Rounds:     end.Rounds,
		EventType:  r.eventType,
		Purse:      r.eventType.Purse(),
		Attendance: r.eventType.EstimatedAttendance(r.red.Record, r.blue.Record),
		RedHP:      end.RedHP,
		BlueHP:     end.BlueHP,
	}
}

func (r *Resolver) setWinner(res *MatchResult, winner Corner) {
	w := winner
	res.Winner = &w
	if winner == Red {
		res.WinnerID, res.LoserID = r.red.ID, r.blue.ID
	} else {
		res.WinnerID, res.LoserID = r.blue.ID, r.red.ID
	}
}

// DecideRounds tallies round wins. Equal round counts are a draw; a loser who
// took a round makes it split; even rounds without a loser's round make it majority.
func DecideRounds(rounds []RoundRecord) (*Corner, VictoryMethod) {
	var won [2]int
	even := 0
	for _, rr := range rounds {
		if !rr.Complete {
			continue
		}
		if rr.Winner == nil {
			even++
			continue
		}
		won[*rr.Winner]++
	}

	if won[Red] == won[Blue] {
		return nil, MethodDraw
	}
	winner := Red
	if won[Blue] > won[Red] {
		winner = Blue
	}
	switch {
	case won[winner.Opponent()] > 0:
		return &winner, MethodDecisionSplit
	case even > 0:
		return &winner, MethodDecisionMajority
	default:
		return &winner, MethodDecisionUnanimous
	}
}

// ApplyResult writes a result into both fighters' records
func ApplyResult(res MatchResult, red, blue *Record) {
	switch {
	case res.Method == MethodNoContest:
		red.NoContests++
		blue.NoContests++
		return
	case res.Winner == nil:
		red.Draws++
		blue.Draws++
		return
	}

	winner, loser := red, blue
	if *res.Winner == Blue {
		winner, loser = blue, red
	}
	winner.Wins++
	loser.Losses++
	winner.Popularity = clampInt(winner.Popularity+winPopularity, 0, MaxPopularity)
	loser.Popularity = clampInt(loser.Popularity-lossPopularity, 0, MaxPopularity)
	switch {
	case res.Method == MethodKO || res.Method == MethodTKO:
		winner.KOWins++
	case res.Method == MethodSubmission:
		winner.SubmissionWins++
	case res.Method.IsDecision():
		winner.DecisionWins++
	}
}
