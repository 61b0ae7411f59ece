package fight

import (
	"fmt"
	"math/rand"

	"cagefight/utils"
)

// Announcer represents a broadcast commentator
type Announcer struct {
	Name  string
	Style string // hype, analyst or veteran
}

// LiveAction is one line of play-by-play as streamed to viewers
type LiveAction struct {
	Type       string `json:"type"`       // "exchange", "knockdown", "round_start", "round_end", "finish", "result"
	Action     string `json:"action"`     // what happened
	Damage     int    `json:"damage"`     // damage dealt, if any
	Attacker   string `json:"attacker"`   // fighter who acted
	Victim     string `json:"victim"`     // fighter on the receiving end
	Commentary string `json:"commentary"` // announcer comment
	Announcer  string `json:"announcer"`  // which announcer said it
	RedHP      int    `json:"red_hp"`
	BlueHP     int    `json:"blue_hp"`
	Round      int    `json:"round"`
	Clock      string `json:"clock"`
	Sequence   int    `json:"sequence"`
}

var announcers = []Announcer{
	{"Rico Delgado", "hype"},
	{"Dr. Lena Voss", "analyst"},
	{"Big Tom Halloran", "veteran"},
}

var comments = map[string]map[Outcome][]string{
	"hype": {
		OutcomeLanded:     {"OH! That one found a home!", "Right down the middle!", "Felt that one all the way down to the socks!"},
		OutcomeKnockdown:  {"DOWN GOES THE FIGHTER!", "DROPPED! WHAT A SHOT!"},
		OutcomeTakedown:   {"And we're going to the mat!", "Beautiful takedown, full extension!"},
		OutcomeSubmission: {"IT'S IN DEEP! THE TAP! THE TAP!", "NOWHERE TO GO! IT'S OVER!"},
		OutcomeNearFinish: {"That's tight! That's really tight!", "Fighting for survival in there!"},
		OutcomeSweep:      {"What a reversal!", "Bottom to top in a heartbeat!"},
	},
	"analyst": {
		OutcomeLanded:    {"Clean shot. Watch the shoulder drop on the setup.", "The timing on the entry is there now."},
		OutcomeBlocked:   {"Good high guard, most of that was absorbed.", "Read it early, forearms took the force."},
		OutcomeStuffed:   {"Hips back, great sprawl.", "Level change was telegraphed there."},
		OutcomeClinch:    {"Underhooks are the goal from here.", "Interesting choice to tie up."},
		OutcomeMount:     {"That's the dominant position in the sport.", "Knee slides across, full mount."},
		OutcomeDefended:  {"Hand fighting kept that from getting tight.", "Good defensive posture."},
		OutcomeEscaped:   {"Textbook wall walk back to the feet.", "Created space and got out."},
		OutcomeFoul:      {"The referee won't like that one.", "That's illegal, no question."},
		OutcomeSeparated: {"Referee breaks them up for inactivity.", "Back to the center."},
	},
	"veteran": {
		OutcomeMissed:  {"Swing and a miss, reaching with that one.", "Too far out, nothing there."},
		OutcomeLanded:  {"Back in my day we called that a wake up call.", "That's a veteran's punch."},
		OutcomeBlocked: {"Caught it on the gloves.", "Nothing clean there."},
		OutcomeFailed:  {"Not this time.", "Tried it, didn't get it."},
	},
}

var fallbackComments = []string{
	"Both corners are screaming instructions.",
	"The crowd is on its feet.",
	"This pace is something else.",
	"Every second counts in there.",
}

// Commentator turns match events into play-by-play. It draws from its own
// random source so commentary never changes how a bout goes.
type Commentator struct {
	red, blue Profile
	rng       *rand.Rand
	seq       int
}

func NewCommentator(red, blue Profile, seed int64) *Commentator {
	return &Commentator{red: red, blue: blue, rng: utils.NewSeededRNG(seed)}
}

func (c *Commentator) profile(corner Corner) Profile {
	if corner == Red {
		return c.red
	}
	return c.blue
}

func (c *Commentator) next(a LiveAction) LiveAction {
	c.seq++
	a.Sequence = c.seq
	return a
}

func (c *Commentator) comment(style string, outcome Outcome) string {
	if lines := comments[style][outcome]; len(lines) > 0 {
		return lines[c.rng.Intn(len(lines))]
	}
	return fallbackComments[c.rng.Intn(len(fallbackComments))]
}

// Exchange describes one resolved exchange
func (c *Commentator) Exchange(ex Exchange) LiveAction {
	att, def := c.profile(ex.Attacker), c.profile(ex.Attacker.Opponent())
	action := LiveAction{
		Type:     "exchange",
		Damage:   ex.Damage,
		Attacker: att.Name,
		Victim:   def.Name,
		RedHP:    ex.RedHP,
		BlueHP:   ex.BlueHP,
		Round:    ex.Round,
		Clock:    utils.FormatClock(ex.Clock),
	}
	if ex.Outcome == OutcomeKnockdown {
		action.Type = "knockdown"
	}
	action.Action = describe(att.Name, def.Name, ex)

	announcer := announcers[c.rng.Intn(len(announcers))]
	action.Announcer = announcer.Name
	action.Commentary = c.comment(announcer.Style, ex.Outcome)
	return c.next(action)
}

func describe(att, def string, ex Exchange) string {
	move := ex.Action
	switch ex.Outcome {
	case OutcomeLanded:
		return fmt.Sprintf("%s lands a %s on %s for %d", att, move, def, ex.Damage)
	case OutcomeBlocked:
		return fmt.Sprintf("%s blocks the %s from %s, takes %d", def, move, att, ex.Damage)
	case OutcomeMissed:
		return fmt.Sprintf("%s misses with a %s", att, move)
	case OutcomeClinch:
		return fmt.Sprintf("%s and %s tie up in the clinch", att, def)
	case OutcomeTakedown:
		return fmt.Sprintf("%s completes a %s, %s is on the mat", att, move, def)
	case OutcomeStuffed:
		return fmt.Sprintf("%s stuffs the %s from %s", def, move, att)
	case OutcomeSubmission:
		return fmt.Sprintf("%s taps to the %s from %s", def, move, att)
	case OutcomeNearFinish:
		return fmt.Sprintf("%s sinks in a %s, %s is in trouble (%.0f%%)", att, move, def, ex.Closeness*100)
	case OutcomeDefended:
		if ex.Category == CategorySubmission.String() {
			return fmt.Sprintf("%s defends the %s", def, move)
		}
		return fmt.Sprintf("%s covers up against the %s", def, move)
	case OutcomeEscaped:
		return fmt.Sprintf("%s escapes and the fighters are standing", att)
	case OutcomeSweep:
		return fmt.Sprintf("%s hits a %s and ends up on top", att, move)
	case OutcomeMount:
		return fmt.Sprintf("%s passes to full mount", att)
	case OutcomeKnockdown:
		return fmt.Sprintf("%s drops %s with a %s", att, def, move)
	case OutcomeFoul:
		return fmt.Sprintf("Foul! %s with an illegal %s, the referee steps in", att, move)
	case OutcomeSeparated:
		return "The referee separates the fighters"
	case OutcomeFailed:
		return fmt.Sprintf("%s tries a %s but %s shuts it down", att, move, def)
	}
	return fmt.Sprintf("%s throws a %s", att, move)
}

func (c *Commentator) RoundStart(round, redHP, blueHP int) LiveAction {
	return c.next(LiveAction{
		Type:       "round_start",
		Action:     fmt.Sprintf("Round %d! %s and %s touch gloves", round, c.red.Name, c.blue.Name),
		RedHP:      redHP,
		BlueHP:     blueHP,
		Round:      round,
		Clock:      utils.FormatClock(0),
		Announcer:  announcers[0].Name,
		Commentary: "Here we go!",
	})
}

func (c *Commentator) RoundEnd(round, redHP, blueHP int) LiveAction {
	return c.next(LiveAction{
		Type:       "round_end",
		Action:     fmt.Sprintf("That's the end of round %d", round),
		RedHP:      redHP,
		BlueHP:     blueHP,
		Round:      round,
		Clock:      utils.FormatClock(RoundDuration),
		Announcer:  announcers[1].Name,
		Commentary: "Let's see what the corners have to say.",
	})
}

// Result announces the verdict
func (c *Commentator) Result(res MatchResult) LiveAction {
	action := LiveAction{
		Type:   "result",
		Action: res.Summary(c.red, c.blue),
		RedHP:  res.RedHP,
		BlueHP: res.BlueHP,
		Round:  res.Round,
		Clock:  utils.FormatClock(res.Clock),
	}
	if res.Winner != nil {
		action.Attacker = c.profile(*res.Winner).Name
		action.Victim = c.profile(res.Winner.Opponent()).Name
		if !res.Method.IsDecision() {
			action.Type = "finish"
		}
	}
	action.Announcer = announcers[2].Name
	switch {
	case res.Method == MethodNoContest:
		action.Commentary = "Nobody wanted it to end like this."
	case res.Winner == nil:
		action.Commentary = "Dead even. Nobody goes home with the win tonight."
	case res.Method.IsDecision():
		action.Commentary = "It goes to the judges, and they got it right."
	default:
		action.Commentary = fmt.Sprintf("What a finish by %s!", action.Attacker)
	}
	return c.next(action)
}
