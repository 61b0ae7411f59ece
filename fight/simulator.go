package fight

// Simulator resolves whole bouts synchronously. It holds no per-bout state and
// may be shared by goroutines as long as each call gets its own Rand.
type Simulator struct {
	engine *DecisionEngine
	sink   EventSink
	rounds int
}

type SimOption func(*Simulator)

// WithSink sends every bout's events to sink. A sink shared across goroutines
// must be safe for concurrent use.
func WithSink(sink EventSink) SimOption {
	return func(s *Simulator) { s.sink = sink }
}

func WithRounds(n int) SimOption {
	return func(s *Simulator) { s.rounds = n }
}

func NewSimulator(engine *DecisionEngine, opts ...SimOption) *Simulator {
	s := &Simulator{engine: engine, rounds: RoundsPerBout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Simulate runs a bout to completion. The result is a pure function of the
// profiles and the sequence rng produces.
func (s *Simulator) Simulate(red, blue Profile, eventType EventType, rng Rand) (MatchResult, error) {
	if s.engine == nil {
		return MatchResult{}, ErrNoEngine
	}
	if rng == nil {
		return MatchResult{}, ErrNoRand
	}
	if err := checkCorners(red, blue); err != nil {
		return MatchResult{}, err
	}

	b := &bout{cage: newCage(s.engine, rng, s.sink, red, blue, eventType)}
	b.rounds = NewRoundScheduler(b, s.rounds)

	b.rounds.StartFight()
	for !b.rounds.Over() {
		if b.rounds.InRound() {
			b.exchange()
		} else {
			b.rounds.Advance(RestDuration)
		}
	}

	res, _ := b.resolver.Result()
	return res, nil
}

// bout is one fast-forward match: exchanges at random intervals, each led
// by whoever wins the initiative roll
type bout struct {
	*cage
}

func (b *bout) exchange() {
	dt := uniform(b.rng, minStep, maxStep)
	if rem := b.rounds.Remaining(); dt > rem {
		dt = rem
	}
	b.now = b.rounds.Clock() + dt
	b.accrue(dt)

	att, def := b.initiative()
	if action, ok := b.open(att, BandClose); ok {
		b.resolve(att, def, action)
	}

	if b.over() {
		return
	}
	b.rounds.Advance(dt)
}

func (b *bout) RoundStarted(round int) {
	b.roundStarted(round)
	b.sink.OnRoundStart(round)
}

func (b *bout) RoundEnded(round int) {
	b.roundEnded(round)
	b.sink.OnRoundEnd(round)
}

func (b *bout) FightEnded() {
	b.decide()
	res, _ := b.resolver.Result()
	b.sink.OnFightEnd(res)
}
