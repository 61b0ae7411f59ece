package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cagefight/database"
	"cagefight/fight"
	"cagefight/utils"

	"github.com/rs/zerolog"
)

var ErrAlreadyRunning = errors.New("match is already running")

// MatchFeed receives one live match's events for viewers
type MatchFeed interface {
	fight.EventSink
	fight.PlayByPlaySink
	Snapshot(snap fight.Snapshot)
	Close()
}

// Broadcaster opens a feed per live match
type Broadcaster interface {
	Open(matchID string, red, blue fight.Profile) MatchFeed
}

// ResultSink persists and announces a finished match
type ResultSink interface {
	Finish(ctx context.Context, m database.Match, res fight.MatchResult) error
}

// LiveRunner drives live matches against the wall clock. Each match owns a
// goroutine; every tick advances it by step simulated seconds.
type LiveRunner struct {
	engine      *fight.DecisionEngine
	broadcaster Broadcaster
	results     ResultSink
	interval    time.Duration
	step        float64
	logger      zerolog.Logger

	// matches outlive the request that started them
	base      context.Context
	cancelAll context.CancelFunc

	mu      sync.Mutex
	running map[string]*liveBout
	wg      sync.WaitGroup
}

type liveBout struct {
	match  database.Match
	cancel context.CancelFunc

	mu   sync.Mutex
	live *fight.LiveMatch
}

func NewLiveRunner(engine *fight.DecisionEngine, broadcaster Broadcaster, interval time.Duration, step float64, logger zerolog.Logger) *LiveRunner {
	base, cancel := context.WithCancel(context.Background())
	return &LiveRunner{
		engine:      engine,
		broadcaster: broadcaster,
		interval:    interval,
		step:        step,
		logger:      logger,
		base:        base,
		cancelAll:   cancel,
		running:     make(map[string]*liveBout),
	}
}

// SetResultSink is called once during wiring, before any match starts
func (r *LiveRunner) SetResultSink(results ResultSink) {
	r.results = results
}

// Start rings the bell on a live match and returns immediately
func (r *LiveRunner) Start(m database.Match, red, blue fight.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.running[m.ID]; ok {
		return ErrAlreadyRunning
	}

	var feed MatchFeed
	var sink fight.EventSink
	if r.broadcaster != nil {
		feed = r.broadcaster.Open(m.ID, red, blue)
		sink = feed
	}

	live, err := fight.NewLiveMatch(fight.LiveConfig{
		Red:       red,
		Blue:      blue,
		EventType: m.Event(),
		Engine:    r.engine,
		Rand:      utils.NewSeededRNG(m.Seed),
		Sink:      sink,
	})
	if err != nil {
		if feed != nil {
			feed.Close()
		}
		return fmt.Errorf("failed to create live match: %w", err)
	}

	if !live.Start() {
		r.logger.Warn().Str("match_id", m.ID).Msg("live match was already started")
	}

	runCtx, cancel := context.WithCancel(r.base)
	bout := &liveBout{match: m, cancel: cancel, live: live}
	r.running[m.ID] = bout

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.run(runCtx, bout, feed)
	}()

	r.logger.Info().
		Str("match_id", m.ID).
		Str("red", red.Name).
		Str("blue", blue.Name).
		Msg("live match started")
	return nil
}

func (r *LiveRunner) run(ctx context.Context, b *liveBout, feed MatchFeed) {
	defer func() {
		r.mu.Lock()
		delete(r.running, b.match.ID)
		r.mu.Unlock()
		b.cancel()
		if feed != nil {
			feed.Close()
		}
	}()

	log := r.logger.With().Str("match_id", b.match.ID).Logger()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for running := true; running; {
		select {
		case <-ctx.Done():
			b.mu.Lock()
			b.live.Abort()
			b.mu.Unlock()
			log.Warn().Msg("live match interrupted, recording no contest")
			running = false
		case <-ticker.C:
			b.mu.Lock()
			running = b.live.Tick(r.step)
			snap := b.live.Snapshot()
			b.mu.Unlock()
			if feed != nil {
				feed.Snapshot(snap)
			}
		}
	}

	res, ok := b.live.Result()
	if !ok {
		log.Error().Msg("live match ended without a result")
		return
	}
	if r.results == nil {
		return
	}

	// the run context may already be cancelled; saving must still happen
	saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := r.results.Finish(saveCtx, b.match, res); err != nil {
		log.Error().Err(err).Msg("failed to record live result")
	}
}

// Snapshot returns the current state of a running match
func (r *LiveRunner) Snapshot(matchID string) (fight.Snapshot, bool) {
	r.mu.Lock()
	b, ok := r.running[matchID]
	r.mu.Unlock()
	if !ok {
		return fight.Snapshot{}, false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.live.Snapshot(), true
}

// Running lists the matches currently in progress, earliest booking first
func (r *LiveRunner) Running() []database.Match {
	r.mu.Lock()
	defer r.mu.Unlock()
	matches := make([]database.Match, 0, len(r.running))
	for _, b := range r.running {
		matches = append(matches, b.match)
	}
	sortMatches(matches)
	return matches
}

// Stop aborts every running match and waits for their results to be saved
func (r *LiveRunner) Stop() {
	r.cancelAll()
	r.wg.Wait()
}

// Wait blocks until no match is running
func (r *LiveRunner) Wait() {
	r.wg.Wait()
}
