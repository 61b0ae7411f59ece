package balance

import (
	"context"
	"testing"

	"cagefight/fight"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var engine = fight.NewDecisionEngine(fight.MustLoadCatalog())

func pair() (fight.Profile, fight.Profile) {
	red := fight.NewProfile("red", "Striker", fight.Attributes{Strength: 85, Technique: 75, Speed: 70, Stamina: 60, Defense: 50, Wrestling: 30, Grappling: 25})
	blue := fight.NewProfile("blue", "Grappler", fight.Attributes{Strength: 60, Technique: 50, Speed: 50, Stamina: 75, Defense: 60, Wrestling: 85, Grappling: 90})
	return red, blue
}

func TestRunIsIndependentOfWorkers(t *testing.T) {
	red, blue := pair()
	ctx := context.Background()

	one, err := Run(ctx, engine, red, blue, Options{Runs: 40, Seed: 11, Workers: 1})
	require.NoError(t, err)
	many, err := Run(ctx, engine, red, blue, Options{Runs: 40, Seed: 11, Workers: 6})
	require.NoError(t, err)

	assert.Equal(t, one, many)
	assert.Equal(t, 40, one.RedWins+one.BlueWins+one.Draws)
	assert.InDelta(t, 1.0, one.RedRate+one.BlueRate+one.DrawRate, 1e-9)
	assert.GreaterOrEqual(t, one.AvgRounds, 1.0)
	assert.LessOrEqual(t, one.AvgRounds, float64(fight.RoundsPerBout))
}

func TestRunRejectsEmptyBatch(t *testing.T) {
	red, blue := pair()
	_, err := Run(context.Background(), engine, red, blue, Options{Runs: 0})
	assert.ErrorIs(t, err, ErrNoRuns)
}

func TestRunHonoursCancellation(t *testing.T) {
	red, blue := pair()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, engine, red, blue, Options{Runs: 1000, Seed: 1, Workers: 2})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSortedMethods(t *testing.T) {
	r := Report{Methods: map[fight.VictoryMethod]int{
		fight.MethodKO:         3,
		fight.MethodSubmission: 7,
		fight.MethodDraw:       3,
	}}
	got := r.SortedMethods()
	require.Len(t, got, 3)
	assert.Equal(t, fight.MethodSubmission, got[0].Method)
	assert.Equal(t, fight.MethodKO, got[1].Method)
	assert.Equal(t, fight.MethodDraw, got[2].Method)
}

func TestRunCountsEveryBout(t *testing.T) {
	red, blue := pair()
	rapid.Check(t, func(t *rapid.T) {
		runs := rapid.IntRange(1, 8).Draw(t, "runs")
		seed := rapid.Int64Range(1, 1<<40).Draw(t, "seed")
		workers := rapid.IntRange(1, 4).Draw(t, "workers")

		rep, err := Run(context.Background(), engine, red, blue, Options{Runs: runs, Seed: seed, Workers: workers, EventType: fight.MainEvent})
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}
		if rep.RedWins+rep.BlueWins+rep.Draws != runs {
			t.Fatalf("outcomes %d+%d+%d != %d", rep.RedWins, rep.BlueWins, rep.Draws, runs)
		}
		total := 0
		for _, n := range rep.Methods {
			total += n
		}
		if total != runs {
			t.Fatalf("methods sum to %d, want %d", total, runs)
		}
	})
}
