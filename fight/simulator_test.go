package fight

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// countingSink records how often each event fired
type countingSink struct {
	damage     int
	knockouts  map[string]int
	starts     []int
	ends       []int
	fightEnds  int
	exchanges  []Exchange
	lastResult MatchResult
}

func newCountingSink() *countingSink {
	return &countingSink{knockouts: make(map[string]int)}
}

func (s *countingSink) OnDamage(string, int)   { s.damage++ }
func (s *countingSink) OnKnockout(id string)   { s.knockouts[id]++ }
func (s *countingSink) OnRoundStart(round int) { s.starts = append(s.starts, round) }
func (s *countingSink) OnRoundEnd(round int)   { s.ends = append(s.ends, round) }
func (s *countingSink) OnExchange(ex Exchange) { s.exchanges = append(s.exchanges, ex) }

func (s *countingSink) OnFightEnd(result MatchResult) {
	s.fightEnds++
	s.lastResult = result
}

func striker() Profile {
	p := NewProfile("striker", "Fighter A", Attributes{Strength: 90, Technique: 85, Speed: 80, Stamina: 70, Defense: 60, Wrestling: 30, Grappling: 25})
	p.Strategy = StrategyAggressive
	return p
}

func grappler() Profile {
	p := NewProfile("grappler", "Fighter B", Attributes{Strength: 60, Technique: 65, Speed: 60, Stamina: 85, Defense: 75, Wrestling: 90, Grappling: 88})
	p.Strategy = StrategyTakedown
	return p
}

func newTestSimulator(opts ...SimOption) *Simulator {
	return NewSimulator(NewDecisionEngine(MustLoadCatalog()), opts...)
}

func TestSimulateGrapplerBeatsStriker(t *testing.T) {
	sim := newTestSimulator()
	a, b := striker(), grappler()

	const runs = 1000
	wins := 0
	methods := make(map[VictoryMethod]int)
	for i := 0; i < runs; i++ {
		res, err := sim.Simulate(a, b, RegularFight, rand.New(rand.NewSource(int64(1000+i))))
		require.NoError(t, err)
		if res.IsWinner(Blue) {
			wins++
			methods[res.Method]++
		}
	}

	assert.Greater(t, float64(wins)/runs, 0.6, "grappler win rate")
	for m, n := range methods {
		if m != MethodSubmission {
			assert.Greater(t, methods[MethodSubmission], n, "submissions should outnumber %s", m)
		}
	}
}

func TestSimulateMirrorMatchHasNoSlotBias(t *testing.T) {
	sim := newTestSimulator()
	red := NewProfile("red", "Red", attrsAll(70))
	blue := NewProfile("blue", "Blue", attrsAll(70))

	const runs = 400
	var redWins, blueWins int
	for i := 0; i < runs; i++ {
		res, err := sim.Simulate(red, blue, RegularFight, rand.New(rand.NewSource(int64(i+1))))
		require.NoError(t, err)
		switch {
		case res.IsWinner(Red):
			redWins++
		case res.IsWinner(Blue):
			blueWins++
		}
	}

	decided := redWins + blueWins
	require.Greater(t, decided, runs/2)
	assert.InDelta(t, 0.5, float64(redWins)/float64(decided), 0.12)
}

func TestSimulateIsDeterministic(t *testing.T) {
	sim := newTestSimulator()
	a, b := striker(), grappler()

	for seed := int64(1); seed <= 20; seed++ {
		first, err := sim.Simulate(a, b, MainCard, rand.New(rand.NewSource(seed)))
		require.NoError(t, err)
		second, err := sim.Simulate(a, b, MainCard, rand.New(rand.NewSource(seed)))
		require.NoError(t, err)
		assert.Equal(t, first, second, "seed %d", seed)
	}
}

func TestSimulateRejectsBadInput(t *testing.T) {
	sim := newTestSimulator()
	p := striker()

	_, err := sim.Simulate(p, p, RegularFight, rand.New(rand.NewSource(1)))
	assert.ErrorIs(t, err, ErrSameFighter)

	_, err = sim.Simulate(striker(), grappler(), RegularFight, nil)
	assert.ErrorIs(t, err, ErrNoRand)

	_, err = NewSimulator(nil).Simulate(striker(), grappler(), RegularFight, rand.New(rand.NewSource(1)))
	assert.ErrorIs(t, err, ErrNoEngine)

	_, err = sim.Simulate(striker(), Profile{Name: "No ID"}, RegularFight, rand.New(rand.NewSource(1)))
	assert.ErrorIs(t, err, ErrMissingFighter)

	_, err = sim.Simulate(Profile{}, grappler(), RegularFight, rand.New(rand.NewSource(1)))
	assert.ErrorIs(t, err, ErrMissingFighter)
}

func TestSimulateEventsAndScorecards(t *testing.T) {
	sink := newCountingSink()
	sim := newTestSimulator(WithSink(sink))
	red := NewProfile("red", "Red", attrsAll(50))
	blue := NewProfile("blue", "Blue", attrsAll(50))

	res, err := sim.Simulate(red, blue, RegularFight, rand.New(rand.NewSource(99)))
	require.NoError(t, err)

	assert.Equal(t, 1, sink.fightEnds)
	assert.Equal(t, res, sink.lastResult)
	assert.NotEmpty(t, sink.exchanges)
	require.NotEmpty(t, sink.starts)
	assert.Equal(t, 1, sink.starts[0])
	assert.Equal(t, res.Round, sink.starts[len(sink.starts)-1])

	if res.Method.IsDecision() || res.Method == MethodDraw {
		assert.Equal(t, []int{1, 2, 3}, sink.ends)
		assert.Len(t, res.Rounds, 3)
		assert.Equal(t, RoundDuration, res.Clock)
	} else {
		assert.LessOrEqual(t, res.Clock, RoundDuration+1e-6)
		last := res.Rounds[len(res.Rounds)-1]
		assert.False(t, last.Complete, "stoppage round is partial")
	}

	for _, ex := range sink.exchanges {
		assert.GreaterOrEqual(t, ex.RedHP, 0)
		assert.GreaterOrEqual(t, ex.BlueHP, 0)
		assert.GreaterOrEqual(t, ex.Clock, 0.0)
		assert.LessOrEqual(t, ex.Clock, RoundDuration+1e-6)
	}
}

func TestSimulateSingleRound(t *testing.T) {
	sink := newCountingSink()
	sim := newTestSimulator(WithSink(sink), WithRounds(1))
	red := NewProfile("red", "Red", attrsAll(40))
	blue := NewProfile("blue", "Blue", attrsAll(40))

	res, err := sim.Simulate(red, blue, RegularFight, rand.New(rand.NewSource(5)))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Round)
	assert.Equal(t, []int{1}, sink.starts)
}

func TestMultiSinkFansOut(t *testing.T) {
	a, b := newCountingSink(), newCountingSink()
	sim := newTestSimulator(WithSink(MultiSink{a, NopSink{}, b}))
	red := NewProfile("red", "Red", attrsAll(55))
	blue := NewProfile("blue", "Blue", attrsAll(45))

	res, err := sim.Simulate(red, blue, RegularFight, rand.New(rand.NewSource(3)))
	require.NoError(t, err)

	for _, s := range []*countingSink{a, b} {
		assert.Equal(t, 1, s.fightEnds)
		assert.Equal(t, res, s.lastResult)
		assert.NotEmpty(t, s.exchanges)
	}
	assert.Equal(t, a.exchanges, b.exchanges)
	assert.Equal(t, a.starts, b.starts)
	assert.Equal(t, a.damage, b.damage)
}

func TestPropertySimulateTerminatesCleanly(t *testing.T) {
	engine := NewDecisionEngine(MustLoadCatalog())
	rapid.Check(t, func(rt *rapid.T) {
		sink := newCountingSink()
		sim := NewSimulator(engine, WithSink(sink))
		red := NewProfile("red", "Red", drawAttrs(rt, "red."))
		blue := NewProfile("blue", "Blue", drawAttrs(rt, "blue."))
		red.Strategy = Strategy(rapid.IntRange(0, 6).Draw(rt, "redStrategy"))
		blue.Strategy = Strategy(rapid.IntRange(0, 6).Draw(rt, "blueStrategy"))
		seed := rapid.Int64().Draw(rt, "seed")

		res, err := sim.Simulate(red, blue, RegularFight, rand.New(rand.NewSource(seed)))
		if err != nil {
			rt.Fatalf("simulate: %v", err)
		}
		if res.Round < 1 || res.Round > RoundsPerBout {
			rt.Fatalf("ended in round %d", res.Round)
		}
		if res.RedHP < 0 || res.BlueHP < 0 {
			rt.Fatalf("negative hp %d/%d", res.RedHP, res.BlueHP)
		}
		if sink.fightEnds != 1 {
			rt.Fatalf("fight ended %d times", sink.fightEnds)
		}
		for id, n := range sink.knockouts {
			if n > 1 {
				rt.Fatalf("%s knocked out %d times", id, n)
			}
		}
		if (res.Method.IsDecision() || res.Method == MethodDraw) && (res.Round != RoundsPerBout || len(res.Rounds) != RoundsPerBout) {
			rt.Fatalf("%s after %d rounds", res.Method, res.Round)
		}
		if (res.RedHP == 0 || res.BlueHP == 0) && res.Method != MethodTKO {
			rt.Fatalf("hp hit zero but method is %s", res.Method)
		}
	})
}
