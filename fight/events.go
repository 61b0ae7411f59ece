package fight

// EventSink observes a match. Implementations must not block; live runners
// call it from the simulation goroutine.
type EventSink interface {
	OnDamage(fighterID string, amount int)
	OnKnockout(fighterID string)
	OnRoundStart(round int)
	OnRoundEnd(round int)
	OnFightEnd(result MatchResult)
}

// PlayByPlaySink is optionally implemented by sinks that want every exchange
type PlayByPlaySink interface {
	OnExchange(ex Exchange)
}

// Outcome describes how an exchange resolved
type Outcome string

const (
	OutcomeLanded     Outcome = "landed"
	OutcomeBlocked    Outcome = "blocked"
	OutcomeMissed     Outcome = "missed"
	OutcomeClinch     Outcome = "clinch"
	OutcomeTakedown   Outcome = "takedown"
	OutcomeStuffed    Outcome = "stuffed"
	OutcomeSubmission Outcome = "submission"
	OutcomeEscaped    Outcome = "escaped"
	OutcomeSweep      Outcome = "sweep"
	OutcomeMount      Outcome = "mount"
	OutcomeKnockdown  Outcome = "knockdown"
	OutcomeFoul       Outcome = "foul"
	OutcomeSeparated  Outcome = "separated"
	OutcomeNearFinish Outcome = "near_finish"
	OutcomeDefended   Outcome = "defended"
	OutcomeFailed     Outcome = "failed"
)

// Exchange is one resolved action in either mode
type Exchange struct {
	Round     int     `json:"round"`
	Clock     float64 `json:"clock"`
	Attacker  Corner  `json:"attacker"`
	Action    string  `json:"action"`
	Category  string  `json:"category"`
	Outcome   Outcome `json:"outcome"`
	Damage    int     `json:"damage"`
	Closeness float64 `json:"closeness,omitempty"`
	RedHP     int     `json:"red_hp"`
	BlueHP    int     `json:"blue_hp"`
}

// NopSink discards every event
type NopSink struct{}

func (NopSink) OnDamage(string, int)   {}
func (NopSink) OnKnockout(string)      {}
func (NopSink) OnRoundStart(int)       {}
func (NopSink) OnRoundEnd(int)         {}
func (NopSink) OnFightEnd(MatchResult) {}

// MultiSink fans events out to several sinks in order
type MultiSink []EventSink

func (m MultiSink) OnDamage(id string, amount int) {
	for _, s := range m {
		s.OnDamage(id, amount)
	}
}

func (m MultiSink) OnKnockout(id string) {
	for _, s := range m {
		s.OnKnockout(id)
	}
}

func (m MultiSink) OnRoundStart(round int) {
	for _, s := range m {
		s.OnRoundStart(round)
	}
}

func (m MultiSink) OnRoundEnd(round int) {
	for _, s := range m {
		s.OnRoundEnd(round)
	}
}

func (m MultiSink) OnFightEnd(result MatchResult) {
	for _, s := range m {
		s.OnFightEnd(result)
	}
}

func (m MultiSink) OnExchange(ex Exchange) {
	for _, s := range m {
		if p, ok := s.(PlayByPlaySink); ok {
			p.OnExchange(ex)
		}
	}
}

func sinkOrNop(s EventSink) EventSink {
	if s == nil {
		return NopSink{}
	}
	return s
}

func emitExchange(s EventSink, ex Exchange) {
	if p, ok := s.(PlayByPlaySink); ok {
		p.OnExchange(ex)
	}
}
