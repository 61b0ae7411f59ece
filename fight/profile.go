package fight

import (
	"fmt"
	"strings"
)

const (
	AttributeMin = 0
	AttributeMax = 100
)

// Attributes are the seven rated skills of a fighter, each 0..100
type Attributes struct {
	Strength  int `json:"strength"`
	Technique int `json:"technique"`
	Speed     int `json:"speed"`
	Stamina   int `json:"stamina"`
	Defense   int `json:"defense"`
	Wrestling int `json:"wrestling"`
	Grappling int `json:"grappling"`
}

// Clamp returns a copy with every attribute forced into range
func (a Attributes) Clamp() Attributes {
	return Attributes{
		Strength:  clampInt(a.Strength, AttributeMin, AttributeMax),
		Technique: clampInt(a.Technique, AttributeMin, AttributeMax),
		Speed:     clampInt(a.Speed, AttributeMin, AttributeMax),
		Stamina:   clampInt(a.Stamina, AttributeMin, AttributeMax),
		Defense:   clampInt(a.Defense, AttributeMin, AttributeMax),
		Wrestling: clampInt(a.Wrestling, AttributeMin, AttributeMax),
		Grappling: clampInt(a.Grappling, AttributeMin, AttributeMax),
	}
}

func (a Attributes) total() int {
	return a.Strength + a.Technique + a.Speed + a.Stamina + a.Defense + a.Wrestling + a.Grappling
}

// strikeComposite and grappleComposite drive the corner's default game plan
func (a Attributes) strikeComposite() float64 {
	return float64(a.Strength+a.Technique) / 2
}

func (a Attributes) grappleComposite() float64 {
	return float64(a.Wrestling+a.Grappling) / 2
}

// Strategy is the corner's instruction for the bout
type Strategy int

const (
	StrategyAuto Strategy = iota
	StrategyBalanced
	StrategyAggressive
	StrategyDefensive
	StrategyFinish
	StrategyTakedown
	StrategyBodyWork
)

var strategyNames = map[Strategy]string{
	StrategyAuto:       "auto",
	StrategyBalanced:   "balanced",
	StrategyAggressive: "aggressive",
	StrategyDefensive:  "defensive",
	StrategyFinish:     "finish",
	StrategyTakedown:   "takedown",
	StrategyBodyWork:   "body_work",
}

func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

// ParseStrategy accepts the names produced by String; empty means auto
func ParseStrategy(name string) (Strategy, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == "none" {
		return StrategyAuto, nil
	}
	for s, n := range strategyNames {
		if n == name {
			return s, nil
		}
	}
	return StrategyAuto, fmt.Errorf("unknown strategy %q", name)
}

func (s Strategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Strategy) UnmarshalText(text []byte) error {
	parsed, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Record is a fighter's professional record
type Record struct {
	Wins           int `json:"wins"`
	Losses         int `json:"losses"`
	Draws          int `json:"draws"`
	KOWins         int `json:"ko_wins"`
	SubmissionWins int `json:"submission_wins"`
	DecisionWins   int `json:"decision_wins"`
	NoContests     int `json:"no_contests"`
	Popularity     int `json:"popularity"`
}

func (r Record) String() string {
	return fmt.Sprintf("%d-%d-%d", r.Wins, r.Losses, r.Draws)
}

// Profile is everything the simulation needs to know about a competitor
type Profile struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Nickname string     `json:"nickname,omitempty"`
	Attrs    Attributes `json:"attributes"`
	Strategy Strategy   `json:"strategy"`
	Record   Record     `json:"record"`

	Class     WeightClass `json:"weight_class"`
	Readiness Readiness   `json:"readiness"`
}

// NewProfile starts a fighter fresh and unknown in the default weight class
func NewProfile(id, name string, attrs Attributes) Profile {
	return Profile{
		ID:        id,
		Name:      name,
		Attrs:     attrs.Clamp(),
		Record:    Record{Popularity: DefaultPopularity},
		Class:     DefaultWeightClass,
		Readiness: FreshReadiness(),
	}
}

func (p Profile) DisplayName() string {
	if p.Nickname == "" {
		return p.Name
	}
	return fmt.Sprintf("%s \"%s\"", p.Name, p.Nickname)
}

// MaxHP uses integer division on the attribute terms.
func (p Profile) MaxHP() int {
	return clampInt(80+p.Attrs.Strength/3+p.Attrs.Stamina/4, 80, 150)
}

// BaseDecisionInterval is the seconds between decisions at full health
func (p Profile) BaseDecisionInterval() float64 {
	return clamp(3-float64(p.Attrs.Speed)/40, 0.6, 2.5)
}

func (p Profile) BaseMoveSpeed() float64 {
	return clamp(1.5+float64(p.Attrs.Speed)/50, 1.5, 3.5)
}

func (p Profile) Overall() int {
	return p.Attrs.total() / 7
}

// HP-ratio bands shared by both modes.

func DecisionIntervalMod(hpRatio float64) float64 {
	switch {
	case hpRatio > 0.6:
		return 1.0
	case hpRatio > 0.3:
		return 1.2
	default:
		return 1.4
	}
}

func MoveSpeedMod(hpRatio float64) float64 {
	switch {
	case hpRatio > 0.6:
		return 1.0
	case hpRatio > 0.3:
		return 0.85
	default:
		return 0.7
	}
}

func DamageMod(hpRatio float64) float64 {
	switch {
	case hpRatio > 0.6:
		return 1.0
	case hpRatio > 0.3:
		return 0.9
	default:
		return 0.8
	}
}

const gamePlanMargin = 15

// SuggestStrategy is the corner's pick when the profile leaves strategy on auto
func SuggestStrategy(self, opp Profile) Strategy {
	strike, grapple := self.Attrs.strikeComposite(), self.Attrs.grappleComposite()
	switch {
	case grapple-strike >= gamePlanMargin && grapple > opp.Attrs.grappleComposite():
		return StrategyTakedown
	case strike-grapple >= gamePlanMargin && strike > opp.Attrs.strikeComposite():
		return StrategyAggressive
	default:
		return StrategyBalanced
	}
}

// CornerAdvice adjusts an auto corner's plan between rounds.
func CornerAdvice(current Strategy, selfHPRatio, oppHPRatio float64) Strategy {
	switch {
	case oppHPRatio < 0.3 && selfHPRatio >= oppHPRatio:
		return StrategyFinish
	case selfHPRatio < 0.3:
		return StrategyDefensive
	default:
		return current
	}
}

// Corner identifies a slot in the bout: red is slot A, blue is slot B
type Corner int

const (
	Red Corner = iota
	Blue
)

func (c Corner) Opponent() Corner {
	return 1 - c
}

func (c Corner) String() string {
	if c == Red {
		return "red"
	}
	return "blue"
}

func (c Corner) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Corner) UnmarshalText(text []byte) error {
	switch string(text) {
	case "red":
		*c = Red
	case "blue":
		*c = Blue
	default:
		return fmt.Errorf("unknown corner %q", string(text))
	}
	return nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clamp01(v float64) float64 {
	return clamp(v, 0, 1)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*clamp01(t)
}
