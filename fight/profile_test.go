package fight

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func attrsAll(v int) Attributes {
	return Attributes{Strength: v, Technique: v, Speed: v, Stamina: v, Defense: v, Wrestling: v, Grappling: v}
}

func TestNewProfileClampsAttributes(t *testing.T) {
	p := NewProfile("f1", "Overflow", Attributes{Strength: 150, Technique: -20, Speed: 100, Stamina: 0, Defense: 101, Wrestling: 50, Grappling: -1})

	assert.Equal(t, 100, p.Attrs.Strength)
	assert.Equal(t, 0, p.Attrs.Technique)
	assert.Equal(t, 100, p.Attrs.Speed)
	assert.Equal(t, 0, p.Attrs.Stamina)
	assert.Equal(t, 100, p.Attrs.Defense)
	assert.Equal(t, 50, p.Attrs.Wrestling)
	assert.Equal(t, 0, p.Attrs.Grappling)
}

func TestDerivedStats(t *testing.T) {
	weak := NewProfile("w", "Weak", attrsAll(0))
	assert.Equal(t, 80, weak.MaxHP())
	assert.InDelta(t, 2.5, weak.BaseDecisionInterval(), 1e-9)
	assert.InDelta(t, 1.5, weak.BaseMoveSpeed(), 1e-9)

	strong := NewProfile("s", "Strong", attrsAll(100))
	assert.Equal(t, 80+33+25, strong.MaxHP())
	assert.InDelta(t, 0.6, strong.BaseDecisionInterval(), 1e-9)
	assert.InDelta(t, 3.5, strong.BaseMoveSpeed(), 1e-9)
	assert.Equal(t, 100, strong.Overall())
}

func TestPropertyDerivedStatsStayInRange(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		attrs := Attributes{
			Strength:  rapid.IntRange(-50, 200).Draw(rt, "str"),
			Technique: rapid.IntRange(-50, 200).Draw(rt, "tec"),
			Speed:     rapid.IntRange(-50, 200).Draw(rt, "spd"),
			Stamina:   rapid.IntRange(-50, 200).Draw(rt, "sta"),
		}
		p := NewProfile("p", "P", attrs)
		if hp := p.MaxHP(); hp < 80 || hp > 150 {
			rt.Fatalf("MaxHP %d outside [80,150]", hp)
		}
		if d := p.BaseDecisionInterval(); d < 0.6 || d > 2.5 {
			rt.Fatalf("decision interval %v outside [0.6,2.5]", d)
		}
		if s := p.BaseMoveSpeed(); s < 1.5 || s > 3.5 {
			rt.Fatalf("move speed %v outside [1.5,3.5]", s)
		}
	})
}

func TestHPBands(t *testing.T) {
	tests := []struct {
		ratio    float64
		interval float64
		speed    float64
		damage   float64
	}{
		{1.0, 1.0, 1.0, 1.0},
		{0.61, 1.0, 1.0, 1.0},
		{0.6, 1.2, 0.85, 0.9},
		{0.31, 1.2, 0.85, 0.9},
		{0.3, 1.4, 0.7, 0.8},
		{0.0, 1.4, 0.7, 0.8},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.interval, DecisionIntervalMod(tt.ratio), "interval at %v", tt.ratio)
		assert.Equal(t, tt.speed, MoveSpeedMod(tt.ratio), "speed at %v", tt.ratio)
		assert.Equal(t, tt.damage, DamageMod(tt.ratio), "damage at %v", tt.ratio)
	}
}

func TestSuggestStrategy(t *testing.T) {
	grappler := NewProfile("g", "Grappler", Attributes{Strength: 60, Technique: 60, Wrestling: 90, Grappling: 90})
	striker := NewProfile("s", "Striker", Attributes{Strength: 90, Technique: 90, Wrestling: 40, Grappling: 40})
	even := NewProfile("e", "Even", attrsAll(70))

	assert.Equal(t, StrategyTakedown, SuggestStrategy(grappler, striker))
	assert.Equal(t, StrategyAggressive, SuggestStrategy(striker, grappler))
	assert.Equal(t, StrategyBalanced, SuggestStrategy(even, even))
}

func TestCornerAdvice(t *testing.T) {
	assert.Equal(t, StrategyFinish, CornerAdvice(StrategyBalanced, 0.8, 0.2))
	assert.Equal(t, StrategyDefensive, CornerAdvice(StrategyBalanced, 0.2, 0.9))
	assert.Equal(t, StrategyTakedown, CornerAdvice(StrategyTakedown, 0.7, 0.7))
}

func TestStrategyText(t *testing.T) {
	for _, s := range []Strategy{StrategyAuto, StrategyBalanced, StrategyAggressive, StrategyDefensive, StrategyFinish, StrategyTakedown, StrategyBodyWork} {
		parsed, err := ParseStrategy(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}

	_, err := ParseStrategy("berserk")
	assert.Error(t, err)

	var p Profile
	require.NoError(t, json.Unmarshal([]byte(`{"id":"x","name":"X","strategy":"body_work"}`), &p))
	assert.Equal(t, StrategyBodyWork, p.Strategy)
}

func TestCorner(t *testing.T) {
	assert.Equal(t, Blue, Red.Opponent())
	assert.Equal(t, Red, Blue.Opponent())

	var c Corner
	require.NoError(t, c.UnmarshalText([]byte("blue")))
	assert.Equal(t, Blue, c)
	assert.Error(t, c.UnmarshalText([]byte("green")))
}
