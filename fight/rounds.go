package fight

// Bout timing in simulated seconds.
const (
	RoundDuration = 300.0
	RestDuration  = 60.0
	RoundsPerBout = 3

	// float slack when a caller advances by exactly the time remaining
	clockEpsilon = 1e-9
)

type RoundState int

const (
	RoundIdle RoundState = iota
	RoundActive
	RoundResting
	RoundsOver
)

func (s RoundState) String() string {
	switch s {
	case RoundIdle:
		return "idle"
	case RoundActive:
		return "active"
	case RoundResting:
		return "resting"
	default:
		return "over"
	}
}

// RoundListener is notified by the scheduler as the bout moves through its rounds
type RoundListener interface {
	RoundStarted(round int)
	RoundEnded(round int)
	FightEnded()
}

// RoundScheduler owns the round and rest clocks. It does not know how a round
// is fought; the live match and the fast-forward simulator both drive it.
type RoundScheduler struct {
	listener    RoundListener
	totalRounds int
	state       RoundState
	round       int
	clock       float64
	restClock   float64
}

// NewRoundScheduler runs totalRounds rounds; anything outside 1..RoundsPerBout
// gets the full bout.
func NewRoundScheduler(listener RoundListener, totalRounds int) *RoundScheduler {
	if totalRounds < 1 || totalRounds > RoundsPerBout {
		totalRounds = RoundsPerBout
	}
	return &RoundScheduler{listener: listener, totalRounds: totalRounds}
}

// StartFight enters round one. Returns false if the fight already started.
func (s *RoundScheduler) StartFight() bool {
	if s.state != RoundIdle {
		return false
	}
	s.startRound(1)
	return true
}

// Advance moves the active clock forward by dt seconds. Time left over when a
// round or rest period ends is dropped.
func (s *RoundScheduler) Advance(dt float64) {
	if dt <= 0 {
		return
	}
	switch s.state {
	case RoundActive:
		s.clock += dt
		if s.clock >= RoundDuration-clockEpsilon {
			s.clock = RoundDuration
			s.endRound()
		}
	case RoundResting:
		s.restClock += dt
		if s.restClock >= RestDuration-clockEpsilon {
			s.startRound(s.round + 1)
		}
	}
}

// EndFight stops the bout. Only the first call notifies the listener.
func (s *RoundScheduler) EndFight() bool {
	if s.state == RoundsOver {
		return false
	}
	s.state = RoundsOver
	if s.listener != nil {
		s.listener.FightEnded()
	}
	return true
}

func (s *RoundScheduler) startRound(n int) {
	s.round = n
	s.clock = 0
	s.restClock = 0
	s.state = RoundActive
	if s.listener != nil {
		s.listener.RoundStarted(n)
	}
}

func (s *RoundScheduler) endRound() {
	s.state = RoundResting
	s.restClock = 0
	if s.listener != nil {
		s.listener.RoundEnded(s.round)
	}
	// the listener may have stopped the fight already
	if s.state == RoundResting && s.round >= s.totalRounds {
		s.EndFight()
	}
}

func (s *RoundScheduler) State() RoundState  { return s.state }
func (s *RoundScheduler) Round() int         { return s.round }
func (s *RoundScheduler) Clock() float64     { return s.clock }
func (s *RoundScheduler) RestClock() float64 { return s.restClock }
func (s *RoundScheduler) TotalRounds() int   { return s.totalRounds }
func (s *RoundScheduler) InRound() bool      { return s.state == RoundActive }
func (s *RoundScheduler) Over() bool         { return s.state == RoundsOver }

// Remaining is the time left in the current round
func (s *RoundScheduler) Remaining() float64 {
	if s.state != RoundActive {
		return 0
	}
	return RoundDuration - s.clock
}
