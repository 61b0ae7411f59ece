package fight

import (
	"context"
	"errors"
	"math"

	"github.com/looplab/fsm"
)

// State is a fighter's live combat state
type State string

const (
	StateIdle        State = "idle"
	StateApproaching State = "approaching"
	StateAttacking   State = "attacking"
	StateDefending   State = "defending"
	StateHit         State = "hit"
	StateKO          State = "ko"
)

const (
	evApproach = "approach"
	evArrive   = "arrive"
	evAttack   = "attack"
	evDefend   = "defend"
	evRecover  = "recover"
	evHit      = "hit"
	evKnockout = "knockout"
	evReset    = "reset"
)

// Live timings in seconds.
const (
	StunHeavy      = 0.8
	StunLight      = 0.5
	BlockRecovery  = 0.8
	ContactPoint   = 0.4
	approachAngle  = 0.95
	retreatSlide   = 0.6
	walkBackSlide  = 0.4
	feintForward   = 0.25
	feintBack      = 0.35
	closeBobAmount = 0.15
)

func newCombatFSM(onEnter fsm.Callback) *fsm.FSM {
	idle, approaching := string(StateIdle), string(StateApproaching)
	attacking, defending := string(StateAttacking), string(StateDefending)
	hit, ko := string(StateHit), string(StateKO)
	standing := []string{idle, approaching, attacking, defending, hit}

	return fsm.NewFSM(
		idle,
		fsm.Events{
			{Name: evApproach, Src: []string{idle}, Dst: approaching},
			{Name: evArrive, Src: []string{approaching}, Dst: idle},
			{Name: evAttack, Src: []string{idle, approaching}, Dst: attacking},
			{Name: evDefend, Src: []string{idle, approaching}, Dst: defending},
			{Name: evRecover, Src: []string{attacking, defending, hit}, Dst: idle},
			{Name: evHit, Src: standing, Dst: hit},
			{Name: evKnockout, Src: standing, Dst: ko},
			{Name: evReset, Src: standing, Dst: idle},
		},
		fsm.Callbacks{
			"enter_state": onEnter,
		},
	)
}

type pendingKind int

const (
	pendingAttack pendingKind = iota
	pendingBlock
	pendingStun
)

// pendingAction is the one timed action a fighter is committed to. Clearing it
// cancels the action: an attack cleared before its contact point never lands.
type pendingAction struct {
	kind        pendingKind
	action      Action
	elapsed     float64
	contactAt   float64
	completeAt  float64
	contactDone bool
}

// motion is a timed slide; positive speed opens the distance
type motion struct {
	remaining float64
	speed     float64
	next      *motion
}

// Agent is one fighter in a live match: the combat state machine and its
// timing around the shared combatant state
type Agent struct {
	c *combatant

	match    *LiveMatch
	opponent *Agent

	machine     *fsm.FSM
	transitions int

	pending *pendingAction
	motion  *motion

	fighting         bool
	decisionTimer    float64
	decisionInterval float64
	moveSpeed        float64

	circleDir      float64
	circleTimer    float64
	circleInterval float64
	bobTimer       float64
}

func newAgent(m *LiveMatch, c *combatant) *Agent {
	a := &Agent{
		c:                c,
		match:            m,
		decisionInterval: c.profile.BaseDecisionInterval(),
		moveSpeed:        c.profile.BaseMoveSpeed(),
		circleDir:        1,
	}
	a.machine = newCombatFSM(func(_ context.Context, _ *fsm.Event) {
		a.transitions++
	})
	return a
}

func (a *Agent) Profile() Profile          { return a.c.profile }
func (a *Agent) Corner() Corner            { return a.c.corner }
func (a *Agent) HP() int                   { return a.c.hp }
func (a *Agent) MaxHP() int                { return a.c.maxHP }
func (a *Agent) Strategy() Strategy        { return a.c.strategy }
func (a *Agent) Position() Position        { return a.c.pos }
func (a *Agent) Stamina() float64          { return a.c.stamina }
func (a *Agent) DecisionInterval() float64 { return a.decisionInterval }

func (a *Agent) State() State {
	return State(a.machine.Current())
}

func (a *Agent) Is(s State) bool {
	return a.machine.Is(string(s))
}

func (a *Agent) HPRatio() float64 {
	return a.c.hpRatio()
}

// CurrentAction names the attack in progress, if any
func (a *Agent) CurrentAction() string {
	if a.pending == nil || a.pending.kind != pendingAttack {
		return ""
	}
	return a.pending.action.Name
}

// fire triggers an FSM event. A self-transition is not an error here.
func (a *Agent) fire(event string) error {
	err := a.machine.Event(context.Background(), event)
	var noTransition fsm.NoTransitionError
	if err != nil && !errors.As(err, &noTransition) {
		return err
	}
	return nil
}

func (a *Agent) standing() bool {
	return a.c.pos == Standing
}

// leads reports whether the match gave this fighter the next exchange
func (a *Agent) leads() bool {
	return a.match.opening == a
}

// prepareRound puts the fighter back in its corner ready to fight
func (a *Agent) prepareRound(rng Rand) {
	a.pending = nil
	a.motion = nil
	if !a.Is(StateKO) {
		_ = a.fire(evReset)
	}
	a.fighting = true
	a.applyHPPenalties()
	a.decisionTimer = uniform(rng, 0, a.decisionInterval*0.5)
	if rng.Float64() < 0.5 {
		a.circleDir = -1
	} else {
		a.circleDir = 1
	}
	a.circleInterval = uniform(rng, 2, 4)
	a.circleTimer = 0
	a.bobTimer = uniform(rng, 0, 2*math.Pi)
}

// stand down at the bell
func (a *Agent) stopFighting() {
	a.fighting = false
	a.pending = nil
	a.motion = nil
	if !a.Is(StateKO) {
		_ = a.fire(evReset)
	}
}

func (a *Agent) applyHPPenalties() {
	r := a.HPRatio()
	a.moveSpeed = a.c.profile.BaseMoveSpeed() * MoveSpeedMod(r)
	a.decisionInterval = a.c.profile.BaseDecisionInterval() * DecisionIntervalMod(r)
}

func (a *Agent) update(dt float64) {
	if !a.fighting || a.Is(StateKO) {
		return
	}
	a.applyHPPenalties()
	if a.standing() {
		a.advanceMotion(dt)
	}

	if a.pending != nil {
		a.advancePending(dt)
		return
	}

	a.decisionTimer += dt
	if a.decisionTimer >= a.decisionInterval {
		a.decide()
		a.decisionTimer = 0
		if a.pending != nil {
			return
		}
	}

	if !a.standing() {
		return
	}
	a.footwork(dt)
	if a.Is(StateApproaching) {
		a.moveToward(dt)
	}
}

func (a *Agent) advancePending(dt float64) {
	p := a.pending
	p.elapsed += dt

	if p.kind == pendingAttack && !p.contactDone && p.elapsed >= p.contactAt {
		p.contactDone = true
		a.match.contact(a, p.action)
		if a.pending != p || a.match.ended {
			return
		}
	}

	if p.elapsed >= p.completeAt {
		a.pending = nil
		_ = a.fire(evRecover)
	}
}

func (a *Agent) advanceMotion(dt float64) {
	for a.motion != nil && dt > 0 {
		step := math.Min(dt, a.motion.remaining)
		a.match.moveApart(a.motion.speed * step)
		a.motion.remaining -= step
		dt -= step
		if a.motion.remaining <= 0 {
			a.motion = a.motion.next
		}
	}
}

func (a *Agent) decide() {
	if !a.standing() {
		a.decideTiedUp()
		return
	}

	m := a.match
	rng := m.rng
	dist := m.distance
	mods := StrategyModifiers(a.c.strategy)

	switch BandOf(dist) {
	case BandFar:
		_ = a.fire(evApproach)
		return

	case BandMid:
		if a.leads() && len(m.engine.Catalog().Available(Standing, BandMid)) > 0 && rng.Float64() < 0.15*mods.Attack {
			a.beginAttack(BandMid)
			return
		}
		roll := rng.Float64()
		rush := clamp01(0.45 * mods.Approach)
		switch {
		case roll < rush:
			_ = a.fire(evApproach)
		case roll < rush+0.20:
			a.beginFeint()
		case roll < rush+0.40:
			a.circleDir = -a.circleDir
		default:
			a.motion = &motion{remaining: walkBackSlide, speed: a.moveSpeed * 0.4}
		}
		return
	}

	if a.opponent.Is(StateAttacking) && a.blockRoll() {
		a.beginDefend()
		return
	}

	if a.leads() && rng.Float64() < AttackChance(a.c.profile, dist, a.opponent.HPRatio())*mods.Attack {
		a.beginAttack(BandClose)
		return
	}

	if rng.Float64() < 0.3*mods.Retreat {
		a.beginRetreat()
		return
	}

	if a.HPRatio() < 0.3 && rng.Float64() < 0.5*mods.Retreat {
		a.beginRetreat()
		return
	}

	if rng.Float64() < 0.4 {
		a.circleDir = -a.circleDir
	}
}

// decideTiedUp covers the clinch and the ground, where there is no footwork:
// cover up against an attack or take the lead when it comes
func (a *Agent) decideTiedUp() {
	if a.opponent.Is(StateAttacking) && a.blockRoll() {
		a.beginDefend()
		return
	}
	if a.leads() {
		a.beginAttack(BandClose)
	}
}

func (a *Agent) blockRoll() bool {
	chance := BlockChance(a.c.profile, a.opponent.c.profile) * StrategyModifiers(a.c.strategy).Block
	if a.HPRatio() < 0.3 {
		chance *= 0.8
	}
	return a.match.rng.Float64() < chance
}

// beginAttack spends the lead on an action from the fighter's position
func (a *Agent) beginAttack(band Band) {
	m := a.match
	action, ok := m.lead(a, band)
	if !ok {
		return
	}
	if err := a.fire(evAttack); err != nil {
		return
	}
	a.pending = &pendingAction{
		kind:       pendingAttack,
		action:     action,
		contactAt:  action.Duration * ContactPoint,
		completeAt: action.Duration,
	}
	a.opponent.react()
}

// react gives a fighter who sees an attack coming the chance to cover up
func (a *Agent) react() {
	if !a.fighting || a.pending != nil || !(a.Is(StateIdle) || a.Is(StateApproaching)) {
		return
	}
	if a.blockRoll() {
		a.beginDefend()
	}
}

func (a *Agent) beginDefend() {
	if err := a.fire(evDefend); err != nil {
		return
	}
	a.motion = nil
	a.pending = &pendingAction{kind: pendingBlock, completeAt: BlockRecovery}
}

func (a *Agent) beginRetreat() {
	// diagonal retreat, only the backward component changes the distance
	a.motion = &motion{remaining: retreatSlide, speed: a.moveSpeed * 0.6 * 0.7}
}

func (a *Agent) beginFeint() {
	a.motion = &motion{
		remaining: feintForward,
		speed:     -a.moveSpeed * 0.8,
		next:      &motion{remaining: feintBack, speed: a.moveSpeed * 0.6},
	}
}

func (a *Agent) footwork(dt float64) {
	a.circleTimer += dt
	if a.circleTimer >= a.circleInterval {
		a.circleDir = -a.circleDir
		a.circleInterval = uniform(a.match.rng, 2, 5)
		a.circleTimer = 0
	}

	// circling keeps the distance; only the close-range bob changes it
	dist := a.match.distance
	if dist <= CloseRange && dist > AttackRange*0.8 {
		a.bobTimer += dt * 2
		a.match.moveApart(-math.Sin(a.bobTimer) * closeBobAmount * a.moveSpeed * dt)
	}
}

func (a *Agent) moveToward(dt float64) {
	if a.match.distance <= AttackRange {
		_ = a.fire(evArrive)
		return
	}
	a.match.moveApart(-a.moveSpeed * approachAngle * dt)
}

// takeHit interrupts whatever the fighter was doing after damage has been
// taken off its HP. Reports true when the fighter is out.
func (a *Agent) takeHit(dmg int) bool {
	if a.c.hp <= 0 {
		a.knockOut()
		return true
	}

	a.pending = nil
	a.motion = nil
	stun := StunLight
	if IsHeavy(dmg) {
		stun = StunHeavy
	}
	a.pending = &pendingAction{kind: pendingStun, completeAt: stun}
	_ = a.fire(evHit)
	return false
}

// knockOut is terminal and safe to call twice
func (a *Agent) knockOut() {
	a.pending = nil
	a.motion = nil
	a.fighting = false
	if !a.Is(StateKO) {
		_ = a.fire(evKnockout)
	}
}
