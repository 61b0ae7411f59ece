package fight

import (
	_ "embed"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownCategory = errors.New("unknown action category")
	ErrUnknownZone     = errors.New("unknown hit zone")
	ErrUnknownReach    = errors.New("unknown reach")
	ErrUnknownPosition = errors.New("unknown position")
	ErrInvalidAction   = errors.New("invalid action")
	ErrEmptyCatalog    = errors.New("action catalog is empty")
)

//go:embed catalog.yaml
var defaultCatalog []byte

type Category int

const (
	CategoryJab Category = iota
	CategoryHook
	CategoryBodyStrike
	CategoryKick
	CategoryCombo
	CategorySpecialCombo
	CategoryTakedown
	CategorySubmission
	CategoryIllegal
	CategoryGroundStrike
	CategorySweep
	CategoryEscape
	CategoryAdvance
)

var categoryNames = map[string]Category{
	"jab":           CategoryJab,
	"hook":          CategoryHook,
	"body_strike":   CategoryBodyStrike,
	"kick":          CategoryKick,
	"combo":         CategoryCombo,
	"special_combo": CategorySpecialCombo,
	"takedown":      CategoryTakedown,
	"submission":    CategorySubmission,
	"illegal":       CategoryIllegal,
	"ground_strike": CategoryGroundStrike,
	"sweep":         CategorySweep,
	"escape":        CategoryEscape,
	"advance":       CategoryAdvance,
}

func (c Category) String() string {
	for name, cat := range categoryNames {
		if cat == c {
			return name
		}
	}
	return fmt.Sprintf("category(%d)", int(c))
}

func (c Category) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// IsStrike reports whether the action deals damage when it lands
func (c Category) IsStrike() bool {
	switch c {
	case CategoryJab, CategoryHook, CategoryBodyStrike, CategoryKick, CategoryCombo,
		CategorySpecialCombo, CategoryIllegal, CategoryGroundStrike:
		return true
	}
	return false
}

type Zone int

const (
	ZoneHead Zone = iota
	ZoneBody
	ZoneLegs
)

var zoneNames = map[string]Zone{"head": ZoneHead, "body": ZoneBody, "legs": ZoneLegs}

func (z Zone) String() string {
	switch z {
	case ZoneHead:
		return "head"
	case ZoneBody:
		return "body"
	default:
		return "legs"
	}
}

func (z Zone) MarshalText() ([]byte, error) { return []byte(z.String()), nil }

// Band classifies the distance between fighters
type Band int

const (
	BandClose Band = iota
	BandMid
	BandFar
)

func (b Band) String() string {
	switch b {
	case BandClose:
		return "close"
	case BandMid:
		return "mid"
	default:
		return "far"
	}
}

// Position is where a fighter is relative to the opponent
type Position int

const (
	Standing Position = iota
	Clinch
	Top
	Bottom
)

var positionNames = map[string]Position{
	"standing": Standing,
	"clinch":   Clinch,
	"top":      Top,
	"bottom":   Bottom,
}

func (p Position) String() string {
	switch p {
	case Standing:
		return "standing"
	case Clinch:
		return "clinch"
	case Top:
		return "top"
	default:
		return "bottom"
	}
}

func (p Position) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// Action is one catalog entry.
type Action struct {
	Name       string     `json:"name"`
	Category   Category   `json:"category"`
	Zone       Zone       `json:"zone"`
	Duration   float64    `json:"duration"`
	Multiplier float64    `json:"multiplier"`
	Reach      Band       `json:"-"`
	Positions  []Position `json:"positions"`
	Foul       float64    `json:"foul,omitempty"`
}

func (a Action) AvailableFrom(pos Position) bool {
	for _, p := range a.Positions {
		if p == pos {
			return true
		}
	}
	return false
}

// ReachesFrom reports whether the action can be started at the given band.
// Close-reach actions need the close band; mid-reach actions work from either.
func (a Action) ReachesFrom(band Band) bool {
	return band <= a.Reach
}

// Catalog is the registry of actions available to fighters
type Catalog struct {
	actions []Action
}

type catalogFile struct {
	Actions []catalogEntry `yaml:"actions"`
}

type catalogEntry struct {
	Name      string   `yaml:"name"`
	Category  string   `yaml:"category"`
	Zone      string   `yaml:"zone"`
	Duration  float64  `yaml:"duration"`
	Damage    float64  `yaml:"damage"`
	Reach     string   `yaml:"reach"`
	Positions []string `yaml:"positions"`
	Foul      float64  `yaml:"foul"`
}

// LoadCatalog parses the embedded default action table
func LoadCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalog)
}

func MustLoadCatalog() *Catalog {
	c, err := LoadCatalog()
	if err != nil {
		panic(fmt.Sprintf("failed to load action catalog: %v", err))
	}
	return c
}

// ParseCatalog validates a YAML action table. Any unregistered category, zone,
// reach or position rejects the whole table.
func ParseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse action catalog: %w", err)
	}
	if len(file.Actions) == 0 {
		return nil, ErrEmptyCatalog
	}

	actions := make([]Action, 0, len(file.Actions))
	seen := make(map[string]bool, len(file.Actions))
	for i, e := range file.Actions {
		a, err := e.toAction()
		if err != nil {
			return nil, fmt.Errorf("action %d (%q): %w", i, e.Name, err)
		}
		if seen[a.Name] {
			return nil, fmt.Errorf("action %d: duplicate name %q: %w", i, a.Name, ErrInvalidAction)
		}
		seen[a.Name] = true
		actions = append(actions, a)
	}
	return &Catalog{actions: actions}, nil
}

func (e catalogEntry) toAction() (Action, error) {
	if e.Name == "" {
		return Action{}, fmt.Errorf("missing name: %w", ErrInvalidAction)
	}
	cat, ok := categoryNames[e.Category]
	if !ok {
		return Action{}, fmt.Errorf("%w: %q", ErrUnknownCategory, e.Category)
	}
	zone, ok := zoneNames[e.Zone]
	if !ok {
		return Action{}, fmt.Errorf("%w: %q", ErrUnknownZone, e.Zone)
	}
	var reach Band
	switch e.Reach {
	case "", "close":
		reach = BandClose
	case "mid":
		reach = BandMid
	default:
		return Action{}, fmt.Errorf("%w: %q", ErrUnknownReach, e.Reach)
	}
	if e.Duration <= 0 {
		return Action{}, fmt.Errorf("duration must be positive: %w", ErrInvalidAction)
	}
	if e.Damage < 0 {
		return Action{}, fmt.Errorf("damage multiplier must not be negative: %w", ErrInvalidAction)
	}
	if e.Foul < 0 || e.Foul > 1 {
		return Action{}, fmt.Errorf("foul chance outside [0,1]: %w", ErrInvalidAction)
	}
	if len(e.Positions) == 0 {
		return Action{}, fmt.Errorf("no positions: %w", ErrInvalidAction)
	}
	positions := make([]Position, 0, len(e.Positions))
	for _, name := range e.Positions {
		p, ok := positionNames[name]
		if !ok {
			return Action{}, fmt.Errorf("%w: %q", ErrUnknownPosition, name)
		}
		positions = append(positions, p)
	}

	return Action{
		Name:       e.Name,
		Category:   cat,
		Zone:       zone,
		Duration:   e.Duration,
		Multiplier: e.Damage,
		Reach:      reach,
		Positions:  positions,
		Foul:       e.Foul,
	}, nil
}

// Actions returns a copy of every entry in table order
func (c *Catalog) Actions() []Action {
	out := make([]Action, len(c.actions))
	copy(out, c.actions)
	return out
}

func (c *Catalog) Len() int { return len(c.actions) }

// Available lists entries that can be started from pos at band, in table order
func (c *Catalog) Available(pos Position, band Band) []Action {
	var out []Action
	for _, a := range c.actions {
		if a.AvailableFrom(pos) && a.ReachesFrom(band) {
			out = append(out, a)
		}
	}
	return out
}

func (c *Catalog) Lookup(name string) (Action, bool) {
	for _, a := range c.actions {
		if a.Name == name {
			return a, true
		}
	}
	return Action{}, false
}
