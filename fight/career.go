package fight

import (
	"fmt"
	"strings"
)

// WeightClass is the division a fighter competes in. Bouts are only made
// inside one class.
type WeightClass int

const (
	Atomweight WeightClass = iota
	Strawweight
	Flyweight
	Bantamweight
	Featherweight
	Lightweight
	Welterweight
	Middleweight
	LightHeavyweight
	Cruiserweight
	Heavyweight
)

// DefaultWeightClass is used when a fighter is created without one
const DefaultWeightClass = Lightweight

var weightClasses = []struct {
	name  string
	limit int
}{
	{"atomweight", 105},
	{"strawweight", 115},
	{"flyweight", 125},
	{"bantamweight", 135},
	{"featherweight", 145},
	{"lightweight", 155},
	{"welterweight", 170},
	{"middleweight", 185},
	{"light_heavyweight", 205},
	{"cruiserweight", 225},
	{"heavyweight", 265},
}

func (w WeightClass) valid() bool {
	return w >= 0 && int(w) < len(weightClasses)
}

func (w WeightClass) String() string {
	if !w.valid() {
		return fmt.Sprintf("weight_class(%d)", int(w))
	}
	return weightClasses[w].name
}

// LimitLbs is the class's upper weight limit in pounds
func (w WeightClass) LimitLbs() int {
	if !w.valid() {
		return 0
	}
	return weightClasses[w].limit
}

// ParseWeightClass accepts the names produced by String; empty is the default
// class
func ParseWeightClass(name string) (WeightClass, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return DefaultWeightClass, nil
	}
	name = strings.NewReplacer(" ", "_", "-", "_").Replace(name)
	for i, c := range weightClasses {
		if c.name == name {
			return WeightClass(i), nil
		}
	}
	return DefaultWeightClass, fmt.Errorf("unknown weight class %q", name)
}

func (w WeightClass) MarshalText() ([]byte, error) {
	return []byte(w.String()), nil
}

func (w *WeightClass) UnmarshalText(text []byte) error {
	parsed, err := ParseWeightClass(string(text))
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}

// Popularity moves with results and draws the crowd
const (
	DefaultPopularity = 20
	MaxPopularity     = 100
	winPopularity     = 5
	lossPopularity    = 3
)

// Readiness is a fighter's physical state between bouts, each part 0..100
type Readiness struct {
	Health    int `json:"health"`
	Condition int `json:"condition"`
	Fatigue   int `json:"fatigue"`
}

// Readiness floors for booking a fighter
const (
	ReadyHealth     = 70
	ReadyCondition  = 50
	ReadyMaxFatigue = 50
)

// DailyRecovery is what a day off gives back
const DailyRecovery = 25

func FreshReadiness() Readiness {
	return Readiness{Health: 100, Condition: 100}
}

func (r Readiness) Ready() bool {
	return r.Health >= ReadyHealth && r.Condition >= ReadyCondition && r.Fatigue <= ReadyMaxFatigue
}

func (r Readiness) Recover(amount int) Readiness {
	return Readiness{
		Health:    clampInt(r.Health+amount, 0, 100),
		Condition: clampInt(r.Condition+amount, 0, 100),
		Fatigue:   clampInt(r.Fatigue-amount, 0, 100),
	}
}

// AfterBout wears a fighter down by the HP they finished with and the rounds
// they fought
func (r Readiness) AfterBout(hpLeft float64, rounds int) Readiness {
	rounds = clampInt(rounds, 1, RoundsPerBout)
	lost := int(60*(1-clamp01(hpLeft)) + 0.5)
	return Readiness{
		Health:    clampInt(r.Health-lost, 0, 100),
		Condition: clampInt(r.Condition-10*rounds, 0, 100),
		Fatigue:   clampInt(r.Fatigue+15*rounds, 0, 100),
	}
}
