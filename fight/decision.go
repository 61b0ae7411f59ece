package fight

import "math"

// Arena distances in meters.
const (
	AttackRange = 1.8
	CloseRange  = 2.5
	FarRange    = 4.5

	// contact is checked this far past the nominal range
	contactSlack = 0.5

	HeavyHitThreshold = 7
	MinDamage         = 2.0
	MaxDamage         = 20.0
	BlockedDamageRate = 0.25
)

// Rand is the slice of math/rand the simulation draws from. Injected per match
// so a seeded source reproduces a bout exactly.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

func uniform(rng Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

// Modifiers scale the live decision probabilities for a strategy
type Modifiers struct {
	Attack   float64
	Block    float64
	Retreat  float64
	Approach float64
}

func StrategyModifiers(s Strategy) Modifiers {
	m := Modifiers{Attack: 1, Block: 1, Retreat: 1, Approach: 1}
	switch s {
	case StrategyAggressive:
		m = Modifiers{Attack: 1.25, Block: 0.7, Retreat: 0.5, Approach: 1.2}
	case StrategyDefensive:
		m = Modifiers{Attack: 0.7, Block: 1.4, Retreat: 1.5, Approach: 0.7}
	case StrategyFinish:
		m = Modifiers{Attack: 1.4, Block: 0.5, Retreat: 0.5, Approach: 1.3}
	case StrategyTakedown:
		m.Approach = 1.2
		m.Attack = 1.1
	case StrategyBodyWork:
		m.Attack = 1.1
	}
	return m
}

// BandOf classifies a separation distance
func BandOf(distance float64) Band {
	switch {
	case distance > FarRange:
		return BandFar
	case distance > CloseRange:
		return BandMid
	default:
		return BandClose
	}
}

// CategoryWeight is the base selection weight of one catalog entry
func CategoryWeight(c Category, a Attributes) float64 {
	switch c {
	case CategoryJab:
		return 3.0
	case CategoryHook:
		return 2.0 + float64(a.Strength)/120
	case CategoryBodyStrike:
		return 1.5 + float64(a.Technique)/120
	case CategoryKick:
		return 1.5 + float64(a.Technique)/120
	case CategoryCombo:
		return 0.7 + float64(a.Technique)/150
	case CategorySpecialCombo:
		return 0.2
	case CategoryTakedown:
		return 0.4 + float64(a.Wrestling)/80
	case CategoryIllegal:
		return 0.6 + float64(a.Strength)/150
	case CategoryGroundStrike:
		return 1.0 + float64(a.Strength)/50
	case CategorySubmission:
		return 0.5 + float64(a.Grappling)/40
	case CategoryAdvance:
		return 0.5 + float64(a.Wrestling)/100
	case CategorySweep:
		return 0.5 + float64(a.Grappling)/50
	case CategoryEscape:
		return 0.5 + float64(a.Speed)/100
	}
	return 1.0
}

// ActionWeight applies the strategy and HP adjustments on top of the category weight.
func ActionWeight(a Action, p Profile, s Strategy, hpRatio float64) float64 {
	w := CategoryWeight(a.Category, p.Attrs)
	combo := a.Category == CategoryCombo || a.Category == CategorySpecialCombo

	switch s {
	case StrategyBodyWork:
		if a.Zone == ZoneBody {
			w *= 3
		} else if a.Zone == ZoneHead {
			w *= 0.5
		}
	case StrategyTakedown:
		if a.Category == CategoryTakedown {
			w *= 5
		}
	case StrategyFinish:
		if combo {
			w *= 3
		}
	}

	if hpRatio < 0.3 && combo {
		w *= 0.5
	}
	return w
}

// DecisionEngine picks and prices actions for both operating modes
type DecisionEngine struct {
	catalog *Catalog
}

func NewDecisionEngine(catalog *Catalog) *DecisionEngine {
	return &DecisionEngine{catalog: catalog}
}

func (d *DecisionEngine) Catalog() *Catalog {
	return d.catalog
}

// ChooseAction rolls a weighted pick among the actions available from pos at band.
// ok is false only when nothing is available.
func (d *DecisionEngine) ChooseAction(rng Rand, p Profile, s Strategy, hpRatio float64, pos Position, band Band) (Action, bool) {
	available := d.catalog.Available(pos, band)
	if len(available) == 0 {
		return Action{}, false
	}
	return WeightedPick(rng, available, p, s, hpRatio), true
}

// WeightedPick returns the first entry whose cumulative weight reaches the roll,
// falling back to the first entry.
func WeightedPick(rng Rand, actions []Action, p Profile, s Strategy, hpRatio float64) Action {
	weights := make([]float64, len(actions))
	total := 0.0
	for i, a := range actions {
		weights[i] = ActionWeight(a, p, s, hpRatio)
		total += weights[i]
	}

	roll := rng.Float64() * total
	cumul := 0.0
	for i, w := range weights {
		cumul += w
		if roll <= cumul {
			return actions[i]
		}
	}
	return actions[0]
}

// CalculateDamage returns the raw damage of a landed action, clamped to [2,20]
// before rounding. Draws exactly one value from rng.
func CalculateDamage(rng Rand, attacker, defender Profile, a Action, attackerHPRatio float64) float64 {
	base := float64(attacker.Attrs.Strength+attacker.Attrs.Technique) / 10
	durationBonus := lerp(0.8, 1.3, (a.Duration-0.7)/(1.8-0.7))
	defReduce := float64(defender.Attrs.Defense) / 15
	jitter := uniform(rng, 0.85, 1.15)

	raw := (base*a.Multiplier*durationBonus*DamageMod(attackerHPRatio) - defReduce) * jitter
	return clamp(raw, MinDamage, MaxDamage)
}

func RealizedDamage(raw float64) int {
	return int(math.Round(raw))
}

func BlockedDamage(raw float64) int {
	return int(math.Round(raw * BlockedDamageRate))
}

func IsHeavy(damage int) bool {
	return damage > HeavyHitThreshold
}

// BlockChance is the defender's chance to read an incoming attack
func BlockChance(defender, attacker Profile) float64 {
	def := float64(defender.Attrs.Defense+defender.Attrs.Wrestling+defender.Attrs.Grappling) / 3
	spd := float64(attacker.Attrs.Speed)
	if def+spd == 0 {
		return 0
	}
	return clamp01(def / (def + spd))
}

func AttackChance(self Profile, distance, opponentHPRatio float64) float64 {
	chance := 0.45
	chance += (CloseRange - distance) / CloseRange * 0.2
	chance += float64(self.Attrs.Technique) / 300
	if opponentHPRatio < 0.3 {
		chance += 0.15
	}
	return clamp01(chance)
}

func TakedownSuccess(attacker, defender Profile) float64 {
	a, d := attacker.Attrs, defender.Attrs
	off := 0.6*float64(a.Wrestling) + 0.2*float64(a.Strength) + 0.2*float64(a.Technique)
	def := 0.5*float64(d.Wrestling) + 0.3*float64(d.Defense) + 0.2*float64(d.Speed)
	return clamp((off-def+50)/150, 0.1, 0.8)
}

// SubmissionSuccess takes the defender's stamina normalized to 0..1.
func SubmissionSuccess(attacker, defender Profile, defenderStamina float64) float64 {
	a, d := attacker.Attrs, defender.Attrs
	off := 0.6*float64(a.Grappling) + 0.2*float64(a.Wrestling) + 0.2*float64(a.Technique)
	def := 0.5*float64(d.Grappling) + 0.2*float64(d.Defense) + 0.1*float64(d.Strength)
	def *= 1 - 0.5*clamp01(defenderStamina)
	return clamp01((off - def + 50) / 150)
}

func SweepSuccess(attacker, defender Profile) float64 {
	a, d := attacker.Attrs, defender.Attrs
	off := 0.5*float64(a.Grappling) + 0.3*float64(a.Wrestling)
	def := 0.4*float64(d.Wrestling) + 0.2*float64(d.Grappling) + 0.2*float64(d.Strength)
	return clamp((off-def+40)/140, 0.1, 0.7)
}

// EscapeSuccess is the bottom fighter's chance to get back to the feet
func EscapeSuccess(bottom, top Profile) float64 {
	b, t := bottom.Attrs, top.Attrs
	off := 0.5*float64(b.Wrestling) + 0.3*float64(b.Speed) + 0.2*float64(b.Strength)
	def := 0.5*float64(t.Wrestling) + 0.3*float64(t.Grappling) + 0.2*float64(t.Strength)
	return clamp((off-def+40)/140, 0.1, 0.7)
}

// AdvanceSuccess is the top fighter's chance to pass into mount
func AdvanceSuccess(top, bottom Profile) float64 {
	t, b := top.Attrs, bottom.Attrs
	off := 0.5*float64(t.Grappling) + 0.3*float64(t.Wrestling) + 0.2*float64(t.Technique)
	def := 0.5*float64(b.Grappling) + 0.3*float64(b.Defense) + 0.2*float64(b.Speed)
	return clamp((off-def+50)/150, 0.2, 0.9)
}

// StrikingOdds rates how cleanly an exchange goes for the attacker. Draws one value.
func StrikingOdds(rng Rand, attacker, defender Profile) float64 {
	a, d := attacker.Attrs, defender.Attrs
	off := 0.4*float64(a.Technique) + 0.3*float64(a.Speed) + 0.3*float64(a.Strength)
	def := 0.3*float64(d.Defense) + 0.3*float64(d.Speed)
	return off - def + uniform(rng, -20, 20)
}

// Aggression is the initiative score before jitter; fatigue is 0..1.
func Aggression(p Profile, fatigue float64) float64 {
	a := p.Attrs
	score := 0.3*float64(a.Strength) + 0.3*float64(a.Speed) + 0.2*float64(a.Technique)
	return score * (1 - 0.3*clamp01(fatigue))
}

func KnockdownChance(attacker Profile, damage int, defenderHPRatio float64) float64 {
	power := math.Max(0, float64(attacker.Attrs.Strength-50)) / 100
	return clamp01(power * float64(damage) / MaxDamage * (1.2 - defenderHPRatio) * 0.5)
}

// CounterGrappleChance is how often a fighter who blocks shoots on the opening.
func CounterGrappleChance(defender Profile, s Strategy) float64 {
	c := float64(defender.Attrs.Wrestling) / 150
	if s == StrategyTakedown {
		c *= 1.3
	}
	return clamp(c, 0, 0.9)
}
