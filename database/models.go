package database

import (
	"database/sql"
	"time"

	"cagefight/fight"
)

const (
	StatusScheduled = "scheduled"
	StatusLive      = "live"
	StatusCompleted = "completed"
	StatusNoContest = "no_contest"
)

const (
	ModeFastForward = "fast_forward"
	ModeLive        = "live"
)

// Card bouts are booked by the matchmaker; exhibitions are booked on request.
const (
	BookingCard       = "card"
	BookingExhibition = "exhibition"
)

type Fighter struct {
	ID             string    `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Nickname       string    `db:"nickname" json:"nickname,omitempty"`
	Strength       int       `db:"strength" json:"strength"`
	Technique      int       `db:"technique" json:"technique"`
	Speed          int       `db:"speed" json:"speed"`
	Stamina        int       `db:"stamina" json:"stamina"`
	Defense        int       `db:"defense" json:"defense"`
	Wrestling      int       `db:"wrestling" json:"wrestling"`
	Grappling      int       `db:"grappling" json:"grappling"`
	Strategy       string    `db:"strategy" json:"strategy"`
	Wins           int       `db:"wins" json:"wins"`
	Losses         int       `db:"losses" json:"losses"`
	Draws          int       `db:"draws" json:"draws"`
	NoContests     int       `db:"no_contests" json:"no_contests"`
	KOWins         int       `db:"ko_wins" json:"ko_wins"`
	SubmissionWins int       `db:"submission_wins" json:"submission_wins"`
	DecisionWins   int       `db:"decision_wins" json:"decision_wins"`
	WeightClass    string    `db:"weight_class" json:"weight_class"`
	Popularity     int       `db:"popularity" json:"popularity"`
	Health         int       `db:"health" json:"health"`
	Condition      int       `db:"condition" json:"condition"`
	Fatigue        int       `db:"fatigue" json:"fatigue"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

func (f Fighter) Attributes() fight.Attributes {
	return fight.Attributes{
		Strength:  f.Strength,
		Technique: f.Technique,
		Speed:     f.Speed,
		Stamina:   f.Stamina,
		Defense:   f.Defense,
		Wrestling: f.Wrestling,
		Grappling: f.Grappling,
	}
}

func (f Fighter) Record() fight.Record {
	return fight.Record{
		Wins:           f.Wins,
		Losses:         f.Losses,
		Draws:          f.Draws,
		KOWins:         f.KOWins,
		SubmissionWins: f.SubmissionWins,
		DecisionWins:   f.DecisionWins,
		NoContests:     f.NoContests,
		Popularity:     f.Popularity,
	}
}

func (f *Fighter) setRecord(r fight.Record) {
	f.Wins, f.Losses, f.Draws = r.Wins, r.Losses, r.Draws
	f.KOWins, f.SubmissionWins, f.DecisionWins = r.KOWins, r.SubmissionWins, r.DecisionWins
	f.NoContests = r.NoContests
	f.Popularity = r.Popularity
}

func (f Fighter) Readiness() fight.Readiness {
	return fight.Readiness{Health: f.Health, Condition: f.Condition, Fatigue: f.Fatigue}
}

func (f *Fighter) setReadiness(r fight.Readiness) {
	f.Health, f.Condition, f.Fatigue = r.Health, r.Condition, r.Fatigue
}

// Class reads the stored weight class; anything unreadable is the default
func (f Fighter) Class() fight.WeightClass {
	w, _ := fight.ParseWeightClass(f.WeightClass)
	return w
}

func (f Fighter) Ready() bool {
	return f.Readiness().Ready()
}

// Profile converts the row into the simulation's view of the fighter. An
// unreadable strategy falls back to auto.
func (f Fighter) Profile() fight.Profile {
	p := fight.NewProfile(f.ID, f.Name, f.Attributes())
	p.Nickname = f.Nickname
	p.Strategy, _ = fight.ParseStrategy(f.Strategy)
	p.Record = f.Record()
	p.Class = f.Class()
	p.Readiness = f.Readiness()
	return p
}

func FighterFromProfile(p fight.Profile) Fighter {
	a := p.Attrs.Clamp()
	f := Fighter{
		ID:          p.ID,
		Name:        p.Name,
		Nickname:    p.Nickname,
		Strength:    a.Strength,
		Technique:   a.Technique,
		Speed:       a.Speed,
		Stamina:     a.Stamina,
		Defense:     a.Defense,
		Wrestling:   a.Wrestling,
		Grappling:   a.Grappling,
		Strategy:    p.Strategy.String(),
		WeightClass: p.Class.String(),
	}
	f.setRecord(p.Record)
	f.setReadiness(p.Readiness)
	return f
}

type Match struct {
	ID             string          `db:"id" json:"id"`
	RedID          string          `db:"red_id" json:"red_id"`
	BlueID         string          `db:"blue_id" json:"blue_id"`
	RedName        string          `db:"red_name" json:"red_name"`
	BlueName       string          `db:"blue_name" json:"blue_name"`
	EventType      string          `db:"event_type" json:"event_type"`
	Mode           string          `db:"mode" json:"mode"`
	Booking        string          `db:"booking" json:"booking"`
	Status         string          `db:"status" json:"status"`
	ScheduledTime  time.Time       `db:"scheduled_time" json:"scheduled_time"`
	Seed           int64           `db:"seed" json:"seed"`
	WinnerID       sql.NullString  `db:"winner_id" json:"-"`
	Method         sql.NullString  `db:"method" json:"-"`
	EndRound       sql.NullInt64   `db:"end_round" json:"-"`
	EndClock       sql.NullFloat64 `db:"end_clock" json:"-"`
	RedHP          sql.NullInt64   `db:"red_hp" json:"-"`
	BlueHP         sql.NullInt64   `db:"blue_hp" json:"-"`
	Purse          sql.NullInt64   `db:"purse" json:"-"`
	Attendance     sql.NullInt64   `db:"attendance" json:"-"`
	RecordsApplied bool            `db:"records_applied" json:"records_applied"`
	VoidedReason   sql.NullString  `db:"voided_reason" json:"voided_reason,omitempty"`
	CompletedAt    sql.NullTime    `db:"completed_at" json:"-"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}

func (m Match) Finished() bool {
	return m.Status == StatusCompleted || m.Status == StatusNoContest
}

func (m Match) Event() fight.EventType {
	e, _ := fight.ParseEventType(m.EventType)
	return e
}

// Result rebuilds the stored result. It reports false until the match is
// finished.
func (m Match) Result(rounds []MatchRound) (fight.MatchResult, bool) {
	if !m.Finished() || !m.Method.Valid {
		return fight.MatchResult{}, false
	}
	method, err := fight.ParseVictoryMethod(m.Method.String)
	if err != nil {
		return fight.MatchResult{}, false
	}

	res := fight.MatchResult{
		RedID:      m.RedID,
		BlueID:     m.BlueID,
		Method:     method,
		Round:      int(m.EndRound.Int64),
		Clock:      m.EndClock.Float64,
		EventType:  m.Event(),
		Purse:      int(m.Purse.Int64),
		Attendance: int(m.Attendance.Int64),
		RedHP:      int(m.RedHP.Int64),
		BlueHP:     int(m.BlueHP.Int64),
	}
	if m.WinnerID.Valid {
		winner := fight.Red
		res.WinnerID, res.LoserID = m.RedID, m.BlueID
		if m.WinnerID.String == m.BlueID {
			winner = fight.Blue
			res.WinnerID, res.LoserID = m.BlueID, m.RedID
		}
		res.Winner = &winner
	}
	for _, r := range rounds {
		res.Rounds = append(res.Rounds, r.Record())
	}
	return res, true
}

// MatchRound is one stored scorecard
type MatchRound struct {
	MatchID        string         `db:"match_id"`
	Round          int            `db:"round"`
	Winner         sql.NullString `db:"winner"`
	Complete       bool           `db:"complete"`
	RedStrikes     int            `db:"red_strikes"`
	RedTakedowns   int            `db:"red_takedowns"`
	RedControl     float64        `db:"red_control"`
	RedKnockdowns  int            `db:"red_knockdowns"`
	RedFouls       int            `db:"red_fouls"`
	RedDamage      int            `db:"red_damage"`
	BlueStrikes    int            `db:"blue_strikes"`
	BlueTakedowns  int            `db:"blue_takedowns"`
	BlueControl    float64        `db:"blue_control"`
	BlueKnockdowns int            `db:"blue_knockdowns"`
	BlueFouls      int            `db:"blue_fouls"`
	BlueDamage     int            `db:"blue_damage"`
}

func newMatchRound(matchID string, r fight.RoundRecord) MatchRound {
	row := MatchRound{
		MatchID:        matchID,
		Round:          r.Round,
		Complete:       r.Complete,
		RedStrikes:     r.Red.SignificantStrikes,
		RedTakedowns:   r.Red.Takedowns,
		RedControl:     r.Red.ControlTime,
		RedKnockdowns:  r.Red.Knockdowns,
		RedFouls:       r.Red.Fouls,
		RedDamage:      r.Red.DamageDealt,
		BlueStrikes:    r.Blue.SignificantStrikes,
		BlueTakedowns:  r.Blue.Takedowns,
		BlueControl:    r.Blue.ControlTime,
		BlueKnockdowns: r.Blue.Knockdowns,
		BlueFouls:      r.Blue.Fouls,
		BlueDamage:     r.Blue.DamageDealt,
	}
	if r.Winner != nil {
		row.Winner = sql.NullString{String: r.Winner.String(), Valid: true}
	}
	return row
}

func (r MatchRound) Record() fight.RoundRecord {
	rec := fight.RoundRecord{
		Round:    r.Round,
		Complete: r.Complete,
		Red: fight.RoundTally{
			SignificantStrikes: r.RedStrikes,
			Takedowns:          r.RedTakedowns,
			ControlTime:        r.RedControl,
			Knockdowns:         r.RedKnockdowns,
			Fouls:              r.RedFouls,
			DamageDealt:        r.RedDamage,
		},
		Blue: fight.RoundTally{
			SignificantStrikes: r.BlueStrikes,
			Takedowns:          r.BlueTakedowns,
			ControlTime:        r.BlueControl,
			Knockdowns:         r.BlueKnockdowns,
			Fouls:              r.BlueFouls,
			DamageDealt:        r.BlueDamage,
		},
	}
	if r.Winner.Valid {
		var c fight.Corner
		if err := c.UnmarshalText([]byte(r.Winner.String)); err == nil {
			rec.Winner = &c
		}
	}
	return rec
}
