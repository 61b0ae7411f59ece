package fight

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentatorExchange(t *testing.T) {
	c := NewCommentator(striker(), grappler(), 7)

	landed := c.Exchange(Exchange{Round: 2, Clock: 83, Attacker: Red, Action: "Hook", Outcome: OutcomeLanded, Damage: 12, RedHP: 100, BlueHP: 88})
	assert.Equal(t, "exchange", landed.Type)
	assert.Equal(t, "Fighter A lands a Hook on Fighter B for 12", landed.Action)
	assert.Equal(t, "Fighter A", landed.Attacker)
	assert.Equal(t, "Fighter B", landed.Victim)
	assert.Equal(t, "1:23", landed.Clock)
	assert.Equal(t, 88, landed.BlueHP)
	assert.NotEmpty(t, landed.Commentary)
	assert.NotEmpty(t, landed.Announcer)
	assert.Equal(t, 1, landed.Sequence)

	down := c.Exchange(Exchange{Attacker: Blue, Action: "Overhand", Outcome: OutcomeKnockdown})
	assert.Equal(t, "knockdown", down.Type)
	assert.Equal(t, "Fighter B drops Fighter A with a Overhand", down.Action)
	assert.Equal(t, 2, down.Sequence)
}

func TestCommentatorDescribesDefenses(t *testing.T) {
	sub := Exchange{Attacker: Blue, Action: "Armbar", Category: CategorySubmission.String(), Outcome: OutcomeDefended}
	assert.Equal(t, "Fighter A defends the Armbar", describe("Fighter B", "Fighter A", sub))

	strike := Exchange{Attacker: Blue, Action: "Elbow", Category: CategoryGroundStrike.String(), Outcome: OutcomeDefended}
	assert.Equal(t, "Fighter A covers up against the Elbow", describe("Fighter B", "Fighter A", strike))

	assert.Equal(t, "The referee separates the fighters", describe("x", "y", Exchange{Outcome: OutcomeSeparated}))
}

func TestCommentatorIsSeeded(t *testing.T) {
	ex := Exchange{Attacker: Red, Action: "Jab", Outcome: OutcomeMissed}
	a := NewCommentator(striker(), grappler(), 11)
	b := NewCommentator(striker(), grappler(), 11)
	for i := 0; i < 20; i++ {
		assert.Equal(t, a.Exchange(ex), b.Exchange(ex))
	}
}

func TestCommentatorRoundsAndResult(t *testing.T) {
	red, blue := striker(), grappler()
	c := NewCommentator(red, blue, 1)

	start := c.RoundStart(1, 120, 130)
	assert.Equal(t, "round_start", start.Type)
	assert.Equal(t, "0:00", start.Clock)
	end := c.RoundEnd(1, 110, 125)
	assert.Equal(t, "round_end", end.Type)
	assert.Equal(t, "5:00", end.Clock)
	assert.Equal(t, start.Sequence+1, end.Sequence)

	winner := Blue
	sub := c.Result(MatchResult{Winner: &winner, Method: MethodSubmission, Round: 2, Clock: 200})
	assert.Equal(t, "finish", sub.Type)
	assert.Equal(t, "Fighter B", sub.Attacker)
	assert.Equal(t, sub.Action, MatchResult{Winner: &winner, Method: MethodSubmission, Round: 2, Clock: 200}.Summary(red, blue))
	assert.Contains(t, sub.Commentary, "Fighter B")

	dec := c.Result(MatchResult{Winner: &winner, Method: MethodDecisionSplit, Round: 3, Clock: RoundDuration})
	assert.Equal(t, "result", dec.Type)

	nc := c.Result(MatchResult{Method: MethodNoContest})
	require.Equal(t, "result", nc.Type)
	assert.Empty(t, nc.Attacker)
	assert.Equal(t, "Nobody wanted it to end like this.", nc.Commentary)
}
