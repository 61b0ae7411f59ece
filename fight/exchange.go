package fight

import "math"

// Exchange resolution tuning, shared by both modes.
const (
	minStep = 5.0
	maxStep = 30.0

	initiativeJitter = 15.0
	staminaDrainRate = 0.08

	missOdds      = -10.0
	tieUpOdds     = 10.0
	knockdownOdds = 30.0
	knockdownStop = 0.7

	clinchTripBonus  = 0.1
	refereeBreak     = 0.2
	groundStrikeLand = 0.6
	mountDamage      = 1.2
	mountSubBonus    = 0.1

	finishCloseness = 0.8
	nearCloseness   = 0.4
	closenessJitter = 0.25

	takedownCost   = 3.0
	submissionCost = 2.0
	stuffedClinch  = 0.5
)

// combatant is what an exchange needs to know about one fighter
type combatant struct {
	profile  Profile
	corner   Corner
	strategy Strategy
	auto     bool

	hp      int
	maxHP   int
	stamina float64
	pos     Position
	mounted bool
}

func newCombatant(p Profile, c Corner) *combatant {
	return &combatant{
		profile:  p,
		corner:   c,
		strategy: p.Strategy,
		hp:       p.MaxHP(),
		maxHP:    p.MaxHP(),
		stamina:  100,
		pos:      Standing,
	}
}

func (f *combatant) hpRatio() float64 { return float64(f.hp) / float64(f.maxHP) }
func (f *combatant) fatigue() float64 { return 1 - f.stamina/100 }

func (f *combatant) spend(amount float64) {
	f.stamina = clamp(f.stamina-amount, 0, 100)
}

// cage resolves the exchanges of one bout. The fast-forward simulator and the
// live match each own one; they differ in timing and in the hooks below, not
// in how an exchange plays out.
type cage struct {
	engine   *DecisionEngine
	rng      Rand
	sink     EventSink
	rounds   *RoundScheduler
	resolver *Resolver

	fighters [2]*combatant
	tally    [2]RoundTally
	fouls    [2]int
	records  []RoundRecord

	// clock of the exchange being resolved
	now float64

	// zeroHP is the method when damage empties a fighter's HP
	zeroHP VictoryMethod
	// guarded reports whether def stops a strike that got past the odds check
	guarded func(def, att *combatant) bool
	// hurt and knockedOut are called after damage lands and on a knockout
	hurt       func(def *combatant, dmg int)
	knockedOut func(def *combatant)
}

func newCage(engine *DecisionEngine, rng Rand, sink EventSink, red, blue Profile, eventType EventType) *cage {
	c := &cage{
		engine:   engine,
		rng:      rng,
		sink:     sinkOrNop(sink),
		resolver: NewResolver(red, blue, eventType),
		zeroHP:   MethodTKO,
	}
	c.guarded = c.blockRoll
	c.fighters[Red] = newCombatant(red, Red)
	c.fighters[Blue] = newCombatant(blue, Blue)
	for _, f := range c.fighters {
		if f.strategy == StrategyAuto {
			f.auto = true
			f.strategy = SuggestStrategy(f.profile, c.opponent(f).profile)
		}
	}
	return c
}

func (c *cage) opponent(f *combatant) *combatant {
	return c.fighters[f.corner.Opponent()]
}

func (c *cage) over() bool { return c.resolver.Resolved() }

// accrue charges dt seconds of fighting: control time to whoever is on top,
// stamina from everyone
func (c *cage) accrue(dt float64) {
	for _, f := range c.fighters {
		if f.pos == Top {
			c.tally[f.corner].ControlTime += dt
		}
		f.spend(staminaDrainRate * dt * (1.5 - float64(f.profile.Attrs.Stamina)/100))
	}
}

// initiative decides who leads the next exchange. Ties go to red.
func (c *cage) initiative() (att, def *combatant) {
	red, blue := c.fighters[Red], c.fighters[Blue]
	if c.initiativeScore(blue) > c.initiativeScore(red) {
		return blue, red
	}
	return red, blue
}

func (c *cage) initiativeScore(f *combatant) float64 {
	mods := StrategyModifiers(f.strategy)
	score := Aggression(f.profile, f.fatigue()) * (1 + 0.5*(mods.Attack-1))
	if f.pos == Top {
		score += 0.25*float64(f.profile.Attrs.Grappling) + 0.15*float64(f.profile.Attrs.Wrestling)
	}
	return score + uniform(c.rng, -initiativeJitter, initiativeJitter)
}

// choose picks an action for f from its position; a mounted fighter has
// nothing left to advance to.
func (c *cage) choose(f *combatant, band Band) (Action, bool) {
	var options []Action
	for _, a := range c.engine.Catalog().Available(f.pos, band) {
		if f.mounted && a.Category == CategoryAdvance {
			continue
		}
		options = append(options, a)
	}
	if len(options) == 0 {
		return Action{}, false
	}
	return WeightedPick(c.rng, options, f.profile, f.strategy, f.hpRatio()), true
}

func (c *cage) firstOf(pos Position, cat Category) (Action, bool) {
	for _, a := range c.engine.Catalog().Available(pos, BandClose) {
		if a.Category == cat {
			return a, true
		}
	}
	return Action{}, false
}

// open gives att the lead. In the clinch the referee may separate the
// fighters first, in which case there is no action to take.
func (c *cage) open(att *combatant, band Band) (Action, bool) {
	if att.pos == Clinch && c.rng.Float64() < refereeBreak {
		c.standUp()
		c.emit(att, Action{}, OutcomeSeparated, 0, 0)
		return Action{}, false
	}
	return c.choose(att, band)
}

// resolve plays out action from att's current position
func (c *cage) resolve(att, def *combatant, action Action) {
	if !action.AvailableFrom(att.pos) {
		// the position changed while the action was on its way
		c.emit(att, action, OutcomeMissed, 0, 0)
		return
	}
	switch att.pos {
	case Standing:
		c.standing(att, def, action)
	case Clinch:
		c.clinch(att, def, action)
	case Top:
		c.topGame(att, def, action)
	case Bottom:
		c.bottomGame(att, def, action)
	}
}

func (c *cage) standing(att, def *combatant, action Action) {
	if action.Category == CategoryTakedown {
		c.takedown(att, def, action, 0)
		return
	}
	if !action.Category.IsStrike() {
		return
	}

	odds := StrikingOdds(c.rng, att.profile, def.profile)
	switch {
	case odds <= missOdds:
		c.emit(att, action, OutcomeMissed, 0, 0)
	case odds <= tieUpOdds:
		att.pos, def.pos = Clinch, Clinch
		c.emit(att, action, OutcomeClinch, 0, 0)
	default:
		c.strike(att, def, action, odds)
	}
}

func (c *cage) clinch(att, def *combatant, action Action) {
	switch {
	case action.Category == CategoryTakedown:
		c.takedown(att, def, action, clinchTripBonus)
	case action.Category == CategoryEscape:
		c.standUp()
		c.emit(att, action, OutcomeEscaped, 0, 0)
	case action.Category.IsStrike():
		odds := StrikingOdds(c.rng, att.profile, def.profile)
		if odds <= missOdds {
			c.emit(att, action, OutcomeMissed, 0, 0)
			return
		}
		c.strike(att, def, action, odds)
	}
}

func (c *cage) topGame(top, bottom *combatant, action Action) {
	switch action.Category {
	case CategoryGroundStrike:
		if c.rng.Float64() >= groundStrikeLand {
			c.emit(top, action, OutcomeDefended, 0, 0)
			return
		}
		raw := CalculateDamage(c.rng, top.profile, bottom.profile, action, top.hpRatio())
		if top.mounted {
			raw = math.Min(raw*mountDamage, MaxDamage)
		}
		c.tally[top.corner].SignificantStrikes++
		c.damage(top, bottom, action, RealizedDamage(raw), OutcomeLanded)
	case CategorySubmission:
		c.submission(top, bottom, action)
	case CategoryAdvance:
		if c.rng.Float64() < AdvanceSuccess(top.profile, bottom.profile) {
			top.mounted = true
			c.emit(top, action, OutcomeMount, 0, 0)
			return
		}
		c.emit(top, action, OutcomeFailed, 0, 0)
	}
}

func (c *cage) bottomGame(bottom, top *combatant, action Action) {
	switch action.Category {
	case CategorySweep:
		if c.rng.Float64() < SweepSuccess(bottom.profile, top.profile) {
			bottom.pos, top.pos = Top, Bottom
			bottom.mounted, top.mounted = false, false
			c.emit(bottom, action, OutcomeSweep, 0, 0)
			return
		}
		c.emit(bottom, action, OutcomeFailed, 0, 0)
	case CategoryEscape:
		if c.rng.Float64() < EscapeSuccess(bottom.profile, top.profile) {
			c.standUp()
			c.emit(bottom, action, OutcomeEscaped, 0, 0)
			return
		}
		c.emit(bottom, action, OutcomeFailed, 0, 0)
	case CategorySubmission:
		c.submission(bottom, top, action)
	}
}

// blockRoll is the fast-forward guard: the defender's block chance, worse
// when hurt
func (c *cage) blockRoll(def, att *combatant) bool {
	block := BlockChance(def.profile, att.profile) * StrategyModifiers(def.strategy).Block
	if def.hpRatio() < 0.3 {
		block *= 0.8
	}
	return c.rng.Float64() < block
}

// strike resolves a strike that got past the odds check
func (c *cage) strike(att, def *combatant, action Action, odds float64) {
	raw := CalculateDamage(c.rng, att.profile, def.profile, action, att.hpRatio())

	if action.Foul > 0 && c.rng.Float64() < action.Foul {
		c.foul(att, def, action)
		return
	}

	if c.guarded(def, att) {
		c.damage(att, def, action, BlockedDamage(raw), OutcomeBlocked)
		if c.over() {
			return
		}
		if c.rng.Float64() < CounterGrappleChance(def.profile, def.strategy) {
			if td, ok := c.firstOf(def.pos, CategoryTakedown); ok {
				c.takedown(def, att, td, 0)
			}
		}
		return
	}

	dmg := RealizedDamage(raw)
	c.tally[att.corner].SignificantStrikes++
	c.damage(att, def, action, dmg, OutcomeLanded)
	if c.over() {
		return
	}

	if odds > knockdownOdds && IsHeavy(dmg) && c.rng.Float64() < KnockdownChance(att.profile, dmg, def.hpRatio()) {
		c.tally[att.corner].Knockdowns++
		c.emit(att, action, OutcomeKnockdown, 0, 0)
		if c.rng.Float64() < knockdownStop {
			c.knockout(def)
			c.stop(MethodKO, att.corner)
		}
	}
}

func (c *cage) takedown(att, def *combatant, action Action, bonus float64) {
	att.spend(takedownCost)
	chance := math.Min(TakedownSuccess(att.profile, def.profile)+bonus, 0.8)
	if c.rng.Float64() < chance {
		att.pos, def.pos = Top, Bottom
		att.mounted, def.mounted = false, false
		c.tally[att.corner].Takedowns++
		c.emit(att, action, OutcomeTakedown, 0, 0)
		return
	}

	if c.rng.Float64() < stuffedClinch {
		att.pos, def.pos = Clinch, Clinch
	} else {
		att.pos, def.pos = Standing, Standing
	}
	c.emit(att, action, OutcomeStuffed, 0, 0)
}

func (c *cage) submission(att, def *combatant, action Action) {
	att.spend(submissionCost)
	chance := SubmissionSuccess(att.profile, def.profile, def.stamina/100)
	if att.pos == Top && att.mounted {
		chance += mountSubBonus
	}
	closeness := clamp01(chance + uniform(c.rng, -closenessJitter, closenessJitter))

	switch {
	case closeness > finishCloseness:
		c.emit(att, action, OutcomeSubmission, 0, closeness)
		c.stop(MethodSubmission, att.corner)
	case closeness > nearCloseness:
		def.spend(closeness * 20)
		c.emit(att, action, OutcomeNearFinish, 0, closeness)
	default:
		if att.pos == Top {
			att.mounted = false
		}
		c.emit(att, action, OutcomeDefended, 0, closeness)
	}
}

func (c *cage) foul(att, def *combatant, action Action) {
	c.tally[att.corner].Fouls++
	c.fouls[att.corner]++
	c.emit(att, action, OutcomeFoul, 0, 0)
	if c.fouls[att.corner] >= FoulLimit {
		c.stop(MethodDisqualification, def.corner)
	}
}

// damage applies dmg to def. HP bottoming out ends the bout.
func (c *cage) damage(att, def *combatant, action Action, dmg int, outcome Outcome) {
	def.hp = clampInt(def.hp-dmg, 0, def.maxHP)
	c.tally[att.corner].DamageDealt += dmg
	if c.hurt != nil {
		c.hurt(def, dmg)
	}
	c.sink.OnDamage(def.profile.ID, dmg)
	c.emit(att, action, outcome, dmg, 0)

	if def.hp == 0 {
		c.knockout(def)
		c.stop(c.zeroHP, att.corner)
	}
}

func (c *cage) knockout(def *combatant) {
	if c.knockedOut != nil {
		c.knockedOut(def)
	}
	c.sink.OnKnockout(def.profile.ID)
}

func (c *cage) standUp() {
	for _, f := range c.fighters {
		f.pos = Standing
		f.mounted = false
	}
}

func (c *cage) emit(att *combatant, action Action, outcome Outcome, dmg int, closeness float64) {
	ex := Exchange{
		Round:     c.rounds.Round(),
		Clock:     c.now,
		Attacker:  att.corner,
		Action:    action.Name,
		Outcome:   outcome,
		Damage:    dmg,
		Closeness: math.Round(closeness*100) / 100,
		RedHP:     c.fighters[Red].hp,
		BlueHP:    c.fighters[Blue].hp,
	}
	if action.Name != "" {
		ex.Category = action.Category.String()
	}
	emitExchange(c.sink, ex)
}

// stop ends the bout inside the distance. The round scheduler's FightEnded
// notification finishes it.
func (c *cage) stop(method VictoryMethod, winner Corner) {
	if c.over() {
		return
	}
	c.resolver.Stoppage(method, winner, c.ending(true))
	c.rounds.EndFight()
}

// ending snapshots the bout; partial adds the unfinished round's scorecard
func (c *cage) ending(partial bool) Ending {
	rounds := append([]RoundRecord(nil), c.records...)
	if partial && c.rounds.InRound() {
		rounds = append(rounds, ScoreRound(c.rounds.Round(), c.tally[Red], c.tally[Blue], false))
	}
	clock := c.rounds.Clock()
	if partial {
		clock = c.now
	}
	return Ending{
		Round:  c.rounds.Round(),
		Clock:  clock,
		Rounds: rounds,
		RedHP:  c.fighters[Red].hp,
		BlueHP: c.fighters[Blue].hp,
	}
}

// roundStarted resets the tallies and positions and, after round one, gives
// the corners their minute: stamina back and new instructions for Auto corners
func (c *cage) roundStarted(round int) {
	c.tally = [2]RoundTally{}
	c.now = 0
	c.standUp()
	if round > 1 {
		for _, f := range c.fighters {
			f.stamina = math.Min(100, f.stamina+20+float64(f.profile.Attrs.Stamina)/5)
			if f.auto {
				f.strategy = CornerAdvice(f.strategy, f.hpRatio(), c.opponent(f).hpRatio())
			}
		}
	}
}

func (c *cage) roundEnded(round int) {
	c.records = append(c.records, ScoreRound(round, c.tally[Red], c.tally[Blue], true))
}

// decide settles a bout that went the distance
func (c *cage) decide() {
	if !c.resolver.Resolved() {
		c.resolver.Decision(c.ending(false))
	}
}
