package scheduler

import (
	"errors"
	"sort"
	"time"

	"cagefight/database"
	"cagefight/fight"
	"cagefight/utils"

	"github.com/google/uuid"
)

var ErrNotEnoughFighters = errors.New("need two fighters in one weight class to build a card")

// titleShotWins is how many wins both main event fighters need for the belt
const titleShotWins = 5

// Matchmaker books a daily card from the roster
type Matchmaker struct {
	cardSize int
	start    int
	spacing  time.Duration
}

func NewMatchmaker(cardSize, startHour int, spacing time.Duration) *Matchmaker {
	if cardSize < 1 {
		cardSize = 1
	}
	return &Matchmaker{cardSize: cardSize, start: startHour, spacing: spacing}
}

// SelectFighters picks who fights on date with a shuffle seeded by the date.
// Only fighters ready to fight are considered, and they are taken in pairs
// from the same weight class.
func (mm *Matchmaker) SelectFighters(fighters []database.Fighter, date time.Time) []database.Fighter {
	rng := utils.NewSeededRNG(utils.DailyCardSeed(date))

	available := make([]database.Fighter, 0, len(fighters))
	for _, f := range fighters {
		if f.Ready() {
			available = append(available, f)
		}
	}
	// shuffle from a fixed order so the roster query order does not matter
	sort.Slice(available, func(i, j int) bool { return available[i].ID < available[j].ID })
	rng.Shuffle(len(available), func(i, j int) {
		available[i], available[j] = available[j], available[i]
	})

	waiting := make(map[fight.WeightClass]database.Fighter)
	picked := make([]database.Fighter, 0, mm.cardSize*2)
	for _, f := range available {
		if len(picked) >= mm.cardSize*2 {
			break
		}
		class := f.Class()
		partner, ok := waiting[class]
		if !ok {
			waiting[class] = f
			continue
		}
		delete(waiting, class)
		picked = append(picked, partner, f)
	}
	return picked
}

type pairing struct {
	red, blue database.Fighter
	overall   int
}

// BuildCard pairs fighters of similar overall rating inside each weight
// class. Bouts run from the weakest pairing up to the main event, spaced
// through the day.
func (mm *Matchmaker) BuildCard(fighters []database.Fighter, date time.Time) ([]database.Match, error) {
	byClass := make(map[fight.WeightClass][]database.Fighter)
	for _, f := range fighters {
		byClass[f.Class()] = append(byClass[f.Class()], f)
	}

	var pairs []pairing
	for _, pool := range byClass {
		// an odd fighter out sits the day
		pool = pool[:len(pool)-len(pool)%2]
		sort.Slice(pool, func(i, j int) bool {
			oi, oj := pool[i].Profile().Overall(), pool[j].Profile().Overall()
			if oi == oj {
				return pool[i].ID < pool[j].ID
			}
			return oi < oj
		})
		for i := 0; i+1 < len(pool); i += 2 {
			red, blue := pool[i], pool[i+1]
			// the better record takes the red corner
			if blue.Wins-blue.Losses > red.Wins-red.Losses {
				red, blue = blue, red
			}
			pairs = append(pairs, pairing{
				red:     red,
				blue:    blue,
				overall: red.Profile().Overall() + blue.Profile().Overall(),
			})
		}
	}
	if len(pairs) == 0 {
		return nil, ErrNotEnoughFighters
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].overall == pairs[j].overall {
			return pairs[i].red.ID < pairs[j].red.ID
		}
		return pairs[i].overall < pairs[j].overall
	})

	bouts := len(pairs)
	start := time.Date(date.Year(), date.Month(), date.Day(), mm.start, 0, 0, 0, date.Location())
	card := make([]database.Match, 0, bouts)
	for i, p := range pairs {
		event := billing(i, bouts, p.red, p.blue)
		mode := database.ModeFastForward
		if event >= fight.CoMainEvent {
			mode = database.ModeLive
		}

		id := uuid.NewString()
		card = append(card, database.Match{
			ID:            id,
			RedID:         p.red.ID,
			BlueID:        p.blue.ID,
			RedName:       p.red.Name,
			BlueName:      p.blue.Name,
			EventType:     event.String(),
			Mode:          mode,
			Status:        database.StatusScheduled,
			ScheduledTime: start.Add(time.Duration(i) * mm.spacing),
			Seed:          utils.MatchSeed(id),
		})
	}
	return card, nil
}

// billing places bout i of n on the card; the last bout is the main event
func billing(i, n int, red, blue database.Fighter) fight.EventType {
	fromTop := n - 1 - i
	switch {
	case fromTop == 0 && n > 1 && red.Wins >= titleShotWins && blue.Wins >= titleShotWins:
		return fight.TitleFight
	case fromTop == 0 && n > 1:
		return fight.MainEvent
	case fromTop == 1 && n > 2:
		return fight.CoMainEvent
	case fromTop <= 3:
		return fight.MainCard
	case fromTop <= 5:
		return fight.PrelimFight
	default:
		return fight.RegularFight
	}
}
