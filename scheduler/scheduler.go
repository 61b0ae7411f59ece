package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"cagefight/config"
	"cagefight/database"
	"cagefight/fight"
	"cagefight/utils"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var ErrSameFighter = errors.New("a fighter cannot be booked against themselves")

// Announcer tells the outside world about a result
type Announcer interface {
	AnnounceResult(ctx context.Context, m database.Match, res fight.MatchResult) error
}

type Scheduler struct {
	repo       *database.Repository
	simulator  *fight.Simulator
	matchmaker *Matchmaker
	recovery   *Recovery
	runner     *LiveRunner
	announcer  Announcer
	loc        *time.Location
	interval   time.Duration
	lateAfter  time.Duration
	logger     zerolog.Logger
}

func NewScheduler(cfg *config.Config, repo *database.Repository, engine *fight.DecisionEngine, broadcaster Broadcaster, announcer Announcer, logger zerolog.Logger) (*Scheduler, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	s := &Scheduler{
		repo:       repo,
		simulator:  fight.NewSimulator(engine),
		matchmaker: NewMatchmaker(cfg.CardSize, cfg.CardStartHour, cfg.BoutSpacing),
		recovery:   NewRecovery(repo, logger),
		runner:     NewLiveRunner(engine, broadcaster, cfg.TickInterval, cfg.SimStep(), logger),
		announcer:  announcer,
		loc:        loc,
		interval:   cfg.ScheduleInterval,
		lateAfter:  cfg.BoutSpacing,
		logger:     logger,
	}
	s.runner.SetResultSink(s)
	return s, nil
}

// Run recovers from a previous crash and then ticks until ctx is done
func (s *Scheduler) Run(ctx context.Context) error {
	if _, err := s.recovery.RecoverInterrupted(ctx, time.Now()); err != nil {
		return fmt.Errorf("failed to recover interrupted matches: %w", err)
	}

	if err := s.Tick(ctx, time.Now()); err != nil {
		s.logger.Error().Err(err).Msg("scheduler tick failed")
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.Tick(ctx, time.Now()); err != nil {
				s.logger.Error().Err(err).Msg("scheduler tick failed")
			}
		}
	}
}

// Stop aborts live matches and waits for their results to be saved
func (s *Scheduler) Stop() {
	s.runner.Stop()
}

// Tick makes sure today's card exists and starts every bout that is due
func (s *Scheduler) Tick(ctx context.Context, now time.Time) error {
	if _, err := s.EnsureTodaysCard(ctx, now); err != nil {
		return err
	}

	due, err := s.repo.GetDueMatches(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to get due matches: %w", err)
	}

	for _, m := range due {
		late := now.Sub(m.ScheduledTime) > s.lateAfter
		if m.Mode == database.ModeLive && !late {
			if err := s.startLive(ctx, m); err != nil && !errors.Is(err, database.ErrNotScheduled) {
				s.logger.Error().Err(err).Str("match_id", m.ID).Msg("failed to start live match")
			}
			continue
		}
		if late && m.Mode == database.ModeLive {
			s.logger.Info().Str("match_id", m.ID).Msg("live slot missed, simulating instead")
		}
		if _, err := s.runFastForward(ctx, m); err != nil {
			s.logger.Error().Err(err).Str("match_id", m.ID).Msg("failed to simulate match")
		}
	}
	return nil
}

// EnsureTodaysCard books today's card if it does not exist yet
func (s *Scheduler) EnsureTodaysCard(ctx context.Context, now time.Time) ([]database.Match, error) {
	today, tomorrow := utils.GetDayBounds(now.In(s.loc))

	existing, err := s.repo.GetCardBetween(ctx, today, tomorrow)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing matches: %w", err)
	}
	if len(existing) > 0 {
		return existing, nil
	}

	// a new card means a new day: everyone gets a day's rest first
	if err := s.repo.RecoverFighters(ctx, fight.DailyRecovery); err != nil {
		return nil, err
	}

	roster, err := s.repo.ListFighters(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list fighters: %w", err)
	}
	if len(roster) < 2 {
		s.logger.Debug().Int("fighters", len(roster)).Msg("roster too small for a card")
		return nil, nil
	}

	selected := s.matchmaker.SelectFighters(roster, today)
	if len(selected) < 2 {
		s.logger.Info().Int("fighters", len(roster)).Msg("no two ready fighters share a weight class, no card today")
		return nil, nil
	}
	card, err := s.matchmaker.BuildCard(selected, today)
	if err != nil {
		return nil, fmt.Errorf("failed to build card: %w", err)
	}
	if err := s.repo.InsertMatches(ctx, card); err != nil {
		return nil, fmt.Errorf("failed to insert card: %w", err)
	}

	s.logger.Info().
		Str("date", today.Format("2006-01-02")).
		Int("bouts", len(card)).
		Msg("booked today's card")
	return card, nil
}

// TodaysCard returns the bouts booked for the day containing now
func (s *Scheduler) TodaysCard(ctx context.Context, now time.Time) ([]database.Match, error) {
	today, tomorrow := utils.GetDayBounds(now.In(s.loc))
	return s.repo.GetCardBetween(ctx, today, tomorrow)
}

// SimulateNow books a bout between two fighters and resolves it immediately.
// A zero seed derives one from the new match id.
func (s *Scheduler) SimulateNow(ctx context.Context, redID, blueID string, event fight.EventType, seed int64) (*database.Match, fight.MatchResult, error) {
	m, err := s.book(ctx, redID, blueID, event, database.ModeFastForward, seed)
	if err != nil {
		return nil, fight.MatchResult{}, err
	}
	res, err := s.runFastForward(ctx, *m)
	if err != nil {
		return nil, fight.MatchResult{}, err
	}
	stored, err := s.repo.GetMatch(ctx, m.ID)
	if err != nil {
		return nil, fight.MatchResult{}, err
	}
	return stored, res, nil
}

// StartLiveNow books a bout and streams it live
func (s *Scheduler) StartLiveNow(ctx context.Context, redID, blueID string, event fight.EventType, seed int64) (*database.Match, error) {
	m, err := s.book(ctx, redID, blueID, event, database.ModeLive, seed)
	if err != nil {
		return nil, err
	}
	if err := s.startLive(ctx, *m); err != nil {
		return nil, err
	}
	m.Status = database.StatusLive
	return m, nil
}

func (s *Scheduler) book(ctx context.Context, redID, blueID string, event fight.EventType, mode string, seed int64) (*database.Match, error) {
	if redID == blueID {
		return nil, ErrSameFighter
	}
	red, err := s.repo.GetFighter(ctx, redID)
	if err != nil {
		return nil, fmt.Errorf("failed to load red corner: %w", err)
	}
	blue, err := s.repo.GetFighter(ctx, blueID)
	if err != nil {
		return nil, fmt.Errorf("failed to load blue corner: %w", err)
	}

	id := uuid.NewString()
	if seed == 0 {
		seed = utils.MatchSeed(id)
	}
	m := &database.Match{
		ID:            id,
		RedID:         red.ID,
		BlueID:        blue.ID,
		RedName:       red.Name,
		BlueName:      blue.Name,
		EventType:     event.String(),
		Mode:          mode,
		Booking:       database.BookingExhibition,
		ScheduledTime: time.Now(),
		Seed:          seed,
	}
	if err := s.repo.InsertMatch(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Scheduler) profiles(ctx context.Context, m database.Match) (fight.Profile, fight.Profile, error) {
	red, err := s.repo.GetFighter(ctx, m.RedID)
	if err != nil {
		return fight.Profile{}, fight.Profile{}, fmt.Errorf("failed to load red corner: %w", err)
	}
	blue, err := s.repo.GetFighter(ctx, m.BlueID)
	if err != nil {
		return fight.Profile{}, fight.Profile{}, fmt.Errorf("failed to load blue corner: %w", err)
	}
	return red.Profile(), blue.Profile(), nil
}

func (s *Scheduler) runFastForward(ctx context.Context, m database.Match) (fight.MatchResult, error) {
	red, blue, err := s.profiles(ctx, m)
	if err != nil {
		return fight.MatchResult{}, err
	}
	res, err := s.simulator.Simulate(red, blue, m.Event(), utils.NewSeededRNG(m.Seed))
	if err != nil {
		return fight.MatchResult{}, fmt.Errorf("failed to simulate match: %w", err)
	}
	if err := s.Finish(ctx, m, res); err != nil {
		return fight.MatchResult{}, err
	}
	return res, nil
}

func (s *Scheduler) startLive(ctx context.Context, m database.Match) error {
	red, blue, err := s.profiles(ctx, m)
	if err != nil {
		return err
	}
	if err := s.repo.MarkLive(ctx, m.ID); err != nil {
		return err
	}
	m.Status = database.StatusLive
	if err := s.runner.Start(m, red, blue); err != nil {
		if voidErr := s.repo.VoidMatch(ctx, m.ID, "live runner refused the match"); voidErr != nil {
			s.logger.Error().Err(voidErr).Str("match_id", m.ID).Msg("failed to void match")
		}
		return err
	}
	return nil
}

// Finish stores a result and announces it. The live runner calls it when a
// streamed match ends.
func (s *Scheduler) Finish(ctx context.Context, m database.Match, res fight.MatchResult) error {
	if err := s.repo.SaveResult(ctx, m.ID, res); err != nil {
		return fmt.Errorf("failed to save result for match %s: %w", m.ID, err)
	}

	s.logger.Info().
		Str("match_id", m.ID).
		Str("mode", m.Mode).
		Str("method", res.Method.String()).
		Str("winner_id", res.WinnerID).
		Int("round", res.Round).
		Msg("match finished")

	if s.announcer != nil {
		if err := s.announcer.AnnounceResult(ctx, m, res); err != nil {
			s.logger.Warn().Err(err).Str("match_id", m.ID).Msg("failed to announce result")
		}
	}
	return nil
}

// LiveSnapshot is the state of a match being streamed right now
func (s *Scheduler) LiveSnapshot(matchID string) (fight.Snapshot, bool) {
	return s.runner.Snapshot(matchID)
}

// CurrentMatches lists the live matches in progress
func (s *Scheduler) CurrentMatches() []database.Match {
	return s.runner.Running()
}

func sortMatches(matches []database.Match) {
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].ScheduledTime.Equal(matches[j].ScheduledTime) {
			return matches[i].ID < matches[j].ID
		}
		return matches[i].ScheduledTime.Before(matches[j].ScheduledTime)
	})
}
