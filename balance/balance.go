// Package balance runs many fast-forward bouts between the same two fighters
// to see how an attribute or strategy change moves the odds.
package balance

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"cagefight/fight"
	"cagefight/utils"

	"golang.org/x/sync/errgroup"
)

var ErrNoRuns = errors.New("runs must be positive")

type Options struct {
	Runs      int
	Seed      int64
	Workers   int
	EventType fight.EventType
}

// Report aggregates a batch. Rates are fractions of Runs.
type Report struct {
	Runs      int                         `json:"runs"`
	Seed      int64                       `json:"seed"`
	RedID     string                      `json:"red_id"`
	BlueID    string                      `json:"blue_id"`
	RedWins   int                         `json:"red_wins"`
	BlueWins  int                         `json:"blue_wins"`
	Draws     int                         `json:"draws"`
	RedRate   float64                     `json:"red_rate"`
	BlueRate  float64                     `json:"blue_rate"`
	DrawRate  float64                     `json:"draw_rate"`
	Methods   map[fight.VictoryMethod]int `json:"methods"`
	AvgRounds float64                     `json:"avg_rounds"`
}

// MethodCount is one row of Report.SortedMethods
type MethodCount struct {
	Method fight.VictoryMethod
	Count  int
}

// SortedMethods lists the method counts, most common first
func (r Report) SortedMethods() []MethodCount {
	out := make([]MethodCount, 0, len(r.Methods))
	for m, n := range r.Methods {
		out = append(out, MethodCount{Method: m, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Method < out[j].Method
		}
		return out[i].Count > out[j].Count
	})
	return out
}

// Run simulates opts.Runs bouts. Run i uses seed BatchSeed(opts.Seed, i), so
// the report does not depend on the worker count.
func Run(ctx context.Context, engine *fight.DecisionEngine, red, blue fight.Profile, opts Options) (Report, error) {
	if opts.Runs <= 0 {
		return Report{}, ErrNoRuns
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > opts.Runs {
		workers = opts.Runs
	}
	if opts.EventType == 0 {
		opts.EventType = fight.RegularFight
	}

	sim := fight.NewSimulator(engine)
	report := Report{
		Runs:    opts.Runs,
		Seed:    opts.Seed,
		RedID:   red.ID,
		BlueID:  blue.ID,
		Methods: make(map[fight.VictoryMethod]int),
	}

	var mu sync.Mutex
	rounds := 0
	jobs := make(chan int)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(jobs)
		for i := 0; i < opts.Runs; i++ {
			select {
			case jobs <- i:
			case <-gCtx.Done():
				return gCtx.Err()
			}
		}
		return nil
	})

	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for i := range jobs {
				res, err := sim.Simulate(red, blue, opts.EventType, utils.NewSeededRNG(utils.BatchSeed(opts.Seed, i)))
				if err != nil {
					return fmt.Errorf("failed to simulate run %d: %w", i, err)
				}

				mu.Lock()
				switch {
				case res.IsWinner(fight.Red):
					report.RedWins++
				case res.IsWinner(fight.Blue):
					report.BlueWins++
				default:
					report.Draws++
				}
				report.Methods[res.Method]++
				rounds += res.Round
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	n := float64(opts.Runs)
	report.RedRate = float64(report.RedWins) / n
	report.BlueRate = float64(report.BlueWins) / n
	report.DrawRate = float64(report.Draws) / n
	report.AvgRounds = float64(rounds) / n
	return report, nil
}
