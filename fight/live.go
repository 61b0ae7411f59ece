package fight

import (
	"errors"
	"math"
)

const (
	StartDistance = 4.0
	minDistance   = 0.5
	maxDistance   = 9.0

	// fouls in one bout that end it
	FoulLimit = 3
)

var (
	ErrNoEngine       = errors.New("decision engine is required")
	ErrNoRand         = errors.New("random source is required")
	ErrMissingFighter = errors.New("both corners need a fighter")
	ErrSameFighter    = errors.New("a fighter cannot face themselves")
)

func checkCorners(red, blue Profile) error {
	if red.ID == "" || blue.ID == "" {
		return ErrMissingFighter
	}
	if red.ID == blue.ID {
		return ErrSameFighter
	}
	return nil
}

// LiveConfig describes a bout to run tick by tick
type LiveConfig struct {
	Red       Profile
	Blue      Profile
	EventType EventType
	Engine    *DecisionEngine
	Rand      Rand
	Sink      EventSink
	Rounds    int
}

// LiveMatch runs a bout against an external clock. Exchanges resolve exactly
// as in Simulate; the live part is who moves where and when each exchange
// makes contact. It is not safe for concurrent use; one goroutine owns it and
// calls Tick.
type LiveMatch struct {
	*cage

	red  *Agent
	blue *Agent

	distance float64
	tiedUp   bool

	// opening is the fighter allowed to commit the next exchange, handed out
	// once the round clock passes nextOpening
	opening     *Agent
	nextOpening float64

	started bool
	ended   bool
	ticks   int
}

func NewLiveMatch(cfg LiveConfig) (*LiveMatch, error) {
	if cfg.Engine == nil {
		return nil, ErrNoEngine
	}
	if cfg.Rand == nil {
		return nil, ErrNoRand
	}
	if err := checkCorners(cfg.Red, cfg.Blue); err != nil {
		return nil, err
	}

	m := &LiveMatch{
		cage:     newCage(cfg.Engine, cfg.Rand, cfg.Sink, cfg.Red, cfg.Blue, cfg.EventType),
		distance: StartDistance,
	}
	m.rounds = NewRoundScheduler(liveRounds{m}, cfg.Rounds)
	m.red = newAgent(m, m.fighters[Red])
	m.blue = newAgent(m, m.fighters[Blue])
	m.red.opponent, m.blue.opponent = m.blue, m.red

	m.zeroHP = MethodKO
	m.guarded = func(def, _ *combatant) bool {
		return m.agent(def).Is(StateDefending)
	}
	m.hurt = func(def *combatant, dmg int) {
		m.agent(def).takeHit(dmg)
	}
	m.knockedOut = func(def *combatant) {
		m.agent(def).knockOut()
	}
	return m, nil
}

// Start rings the bell for round one. It reports false if the bout was
// already started.
func (m *LiveMatch) Start() bool {
	if m.started {
		return false
	}
	m.started = true
	m.rounds.StartFight()
	return true
}

// Tick advances the bout by dt simulated seconds. It returns false once the
// bout is over.
func (m *LiveMatch) Tick(dt float64) bool {
	if !m.started || m.ended {
		return false
	}
	m.rounds.Advance(dt)
	if m.ended {
		return false
	}
	if !m.rounds.InRound() {
		return true
	}

	m.accrue(dt)
	m.offerOpening()

	// alternate who acts first so neither corner gets the earlier contact every tick
	first, second := m.red, m.blue
	if m.ticks%2 == 1 {
		first, second = m.blue, m.red
	}
	m.ticks++

	first.update(dt)
	if !m.ended {
		second.update(dt)
	}
	m.syncDistance()
	return !m.ended
}

// Abort ends the bout as a no contest
func (m *LiveMatch) Abort() {
	if m.ended {
		return
	}
	m.resolver.NoContest(m.ending(false))
	m.rounds.EndFight()
	if !m.ended {
		m.finish()
	}
}

func (m *LiveMatch) Ended() bool                 { return m.ended }
func (m *LiveMatch) Result() (MatchResult, bool) { return m.resolver.Result() }
func (m *LiveMatch) Round() int                  { return m.rounds.Round() }
func (m *LiveMatch) Clock() float64              { return m.rounds.Clock() }
func (m *LiveMatch) Distance() float64           { return m.distance }
func (m *LiveMatch) Fighter(c Corner) *Agent {
	if c == Red {
		return m.red
	}
	return m.blue
}

func (m *LiveMatch) agent(f *combatant) *Agent {
	return m.Fighter(f.corner)
}

// ApplyRecords updates both records once the bout is resolved
func (m *LiveMatch) ApplyRecords(red, blue *Record) bool {
	return m.resolver.ApplyRecords(red, blue)
}

// FighterSnapshot is a fighter's visible state
type FighterSnapshot struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	HP       int     `json:"hp"`
	MaxHP    int     `json:"max_hp"`
	State    State   `json:"state"`
	Position string  `json:"position"`
	Action   string  `json:"action,omitempty"`
	Strategy string  `json:"strategy"`
	HPRatio  float64 `json:"hp_ratio"`
}

type Snapshot struct {
	Round      int             `json:"round"`
	Clock      float64         `json:"clock"`
	RoundState string          `json:"round_state"`
	Distance   float64         `json:"distance"`
	Red        FighterSnapshot `json:"red"`
	Blue       FighterSnapshot `json:"blue"`
	Ended      bool            `json:"ended"`
}

func (m *LiveMatch) Snapshot() Snapshot {
	return Snapshot{
		Round:      m.rounds.Round(),
		Clock:      m.rounds.Clock(),
		RoundState: m.rounds.State().String(),
		Distance:   math.Round(m.distance*100) / 100,
		Red:        m.red.snapshot(),
		Blue:       m.blue.snapshot(),
		Ended:      m.ended,
	}
}

func (a *Agent) snapshot() FighterSnapshot {
	return FighterSnapshot{
		ID:       a.c.profile.ID,
		Name:     a.c.profile.Name,
		HP:       a.c.hp,
		MaxHP:    a.c.maxHP,
		State:    a.State(),
		Position: a.c.pos.String(),
		Action:   a.CurrentAction(),
		Strategy: a.c.strategy.String(),
		HPRatio:  a.HPRatio(),
	}
}

func (m *LiveMatch) moveApart(delta float64) {
	if m.tiedUp {
		return
	}
	m.distance = clamp(m.distance+delta, minDistance, maxDistance)
}

// offerOpening hands the next exchange to whoever wins the initiative roll
// once the gap since the last one has run out
func (m *LiveMatch) offerOpening() {
	if m.opening != nil || m.rounds.Clock() < m.nextOpening {
		return
	}
	att, _ := m.initiative()
	m.opening = m.agent(att)
}

// lead spends a's opening on an action from its position. The gap to the
// next opening is drawn the same way Simulate spaces its exchanges.
func (m *LiveMatch) lead(a *Agent, band Band) (Action, bool) {
	m.opening = nil
	m.nextOpening = m.rounds.Clock() + uniform(m.rng, minStep, maxStep)
	m.now = m.rounds.Clock()
	action, ok := m.open(a.c, band)
	m.syncDistance()
	return action, ok
}

// contact is called at an attack's contact point. On the feet the target
// has to be in reach; tied up it always is.
func (m *LiveMatch) contact(att *Agent, action Action) {
	def := att.opponent
	if def.Is(StateKO) || m.ended || m.over() {
		return
	}
	m.now = m.rounds.Clock()

	if att.standing() && def.standing() {
		reach := AttackRange + contactSlack
		if action.Reach == BandMid {
			reach = CloseRange + contactSlack
		}
		if m.distance > reach {
			m.emit(att.c, action, OutcomeMissed, 0, 0)
			return
		}
	}

	m.resolve(att.c, def.c, action)
	m.syncDistance()
}

// syncDistance locks the fighters together while either is off the feet or
// in the clinch and steps them back into striking range when they come apart
func (m *LiveMatch) syncDistance() {
	tied := !m.red.standing() || !m.blue.standing()
	switch {
	case tied && !m.tiedUp:
		m.tiedUp = true
		m.distance = minDistance
		for _, a := range []*Agent{m.red, m.blue} {
			a.motion = nil
			if a.Is(StateApproaching) {
				_ = a.fire(evArrive)
			}
		}
	case !tied && m.tiedUp:
		m.tiedUp = false
		m.distance = AttackRange
	}
}

func (m *LiveMatch) finish() {
	if m.ended {
		return
	}
	m.ended = true
	m.opening = nil
	m.red.stopFighting()
	m.blue.stopFighting()
	res, _ := m.resolver.Result()
	m.sink.OnFightEnd(res)
}

// liveRounds receives the round scheduler's notifications for a live match
type liveRounds struct{ m *LiveMatch }

func (l liveRounds) RoundStarted(round int) {
	m := l.m
	m.roundStarted(round)
	m.distance = StartDistance
	m.tiedUp = false
	m.opening = nil
	m.nextOpening = uniform(m.rng, minStep, maxStep)
	m.red.prepareRound(m.rng)
	m.blue.prepareRound(m.rng)
	m.sink.OnRoundStart(round)
}

func (l liveRounds) RoundEnded(round int) {
	m := l.m
	m.roundEnded(round)
	m.opening = nil
	m.red.stopFighting()
	m.blue.stopFighting()
	m.sink.OnRoundEnd(round)
}

func (l liveRounds) FightEnded() {
	m := l.m
	m.decide()
	m.finish()
}
