package fight

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type roundLog struct {
	events []string
}

func (l *roundLog) RoundStarted(round int) {
	l.events = append(l.events, fmt.Sprintf("start %d", round))
}
func (l *roundLog) RoundEnded(round int) { l.events = append(l.events, fmt.Sprintf("end %d", round)) }
func (l *roundLog) FightEnded()          { l.events = append(l.events, "fight over") }

func TestRoundSchedulerRoundEndThenRest(t *testing.T) {
	log := &roundLog{}
	s := NewRoundScheduler(log, 3)

	require.True(t, s.StartFight())
	assert.False(t, s.StartFight(), "second start is a no-op")
	assert.Equal(t, []string{"start 1"}, log.events)

	s.Advance(299)
	assert.Equal(t, RoundActive, s.State())
	assert.InDelta(t, 1.0, s.Remaining(), 1e-9)

	s.Advance(1)
	assert.Equal(t, RoundResting, s.State())
	assert.Equal(t, []string{"start 1", "end 1"}, log.events)

	s.Advance(59.5)
	assert.Equal(t, RoundResting, s.State())
	s.Advance(0.5)
	assert.Equal(t, RoundActive, s.State())
	assert.Equal(t, 2, s.Round())
	assert.Equal(t, []string{"start 1", "end 1", "start 2"}, log.events)
}

func TestRoundSchedulerFullBout(t *testing.T) {
	log := &roundLog{}
	s := NewRoundScheduler(log, 3)
	s.StartFight()

	for i := 0; i < 3000 && !s.Over(); i++ {
		s.Advance(0.5)
	}

	assert.True(t, s.Over())
	assert.Equal(t, 3, s.Round())
	assert.Equal(t, []string{
		"start 1", "end 1",
		"start 2", "end 2",
		"start 3", "end 3",
		"fight over",
	}, log.events)

	s.Advance(100)
	assert.Len(t, log.events, 7, "no events after the fight is over")
}

func TestRoundSchedulerEndFightOnce(t *testing.T) {
	log := &roundLog{}
	s := NewRoundScheduler(log, 3)
	s.StartFight()
	s.Advance(42)

	assert.True(t, s.EndFight())
	assert.False(t, s.EndFight())
	assert.False(t, s.EndFight())
	assert.Equal(t, []string{"start 1", "fight over"}, log.events)
	assert.Equal(t, 0.0, s.Remaining())
}

func TestRoundSchedulerDefaultsToThreeRounds(t *testing.T) {
	assert.Equal(t, RoundsPerBout, NewRoundScheduler(nil, 0).TotalRounds())
	assert.Equal(t, RoundsPerBout, NewRoundScheduler(nil, -2).TotalRounds())
	assert.Equal(t, 2, NewRoundScheduler(nil, 2).TotalRounds())
	assert.Equal(t, RoundsPerBout, NewRoundScheduler(nil, 5).TotalRounds(), "no bout runs past three rounds")
}

func TestPropertyRoundSchedulerNeverExceedsRounds(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		requested := rapid.IntRange(-1, 6).Draw(rt, "rounds")
		total := requested
		if total < 1 || total > RoundsPerBout {
			total = RoundsPerBout
		}
		steps := rapid.SliceOfN(rapid.Float64Range(0.01, 120), 1, 200).Draw(rt, "steps")

		log := &roundLog{}
		s := NewRoundScheduler(log, requested)
		s.StartFight()
		for _, dt := range steps {
			s.Advance(dt)
			if s.Round() < 1 || s.Round() > total {
				rt.Fatalf("round %d outside 1..%d", s.Round(), total)
			}
			if s.Clock() > RoundDuration {
				rt.Fatalf("clock %v past the round", s.Clock())
			}
		}

		ended := 0
		for _, e := range log.events {
			if e == "fight over" {
				ended++
			}
		}
		if ended > 1 {
			rt.Fatalf("fight ended %d times", ended)
		}
		if s.Over() != (ended == 1) {
			rt.Fatalf("over=%v but fight ended %d times", s.Over(), ended)
		}
	})
}
