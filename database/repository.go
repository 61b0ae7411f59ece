package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cagefight/fight"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrAlreadyApplied = errors.New("match result already applied")
	ErrNotScheduled   = errors.New("match is not scheduled")
)

type Repository struct {
	db     *sqlx.DB
	logger zerolog.Logger
}

func NewRepository(db *sqlx.DB, logger zerolog.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// CreateFighter inserts a fighter, assigning an id when it has none
func (r *Repository) CreateFighter(ctx context.Context, f *Fighter) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.Strategy == "" {
		f.Strategy = fight.StrategyAuto.String()
	}
	f.WeightClass = f.Class().String()
	// a row built without readiness has never fought
	if f.Readiness() == (fight.Readiness{}) {
		f.setReadiness(fight.FreshReadiness())
	}
	f.CreatedAt = time.Now().UTC().Truncate(time.Second)

	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO fighters (id, name, nickname, strength, technique, speed, stamina, defense,
			wrestling, grappling, strategy, wins, losses, draws, no_contests, ko_wins,
			submission_wins, decision_wins, weight_class, popularity, health, condition,
			fatigue, created_at)
		VALUES (:id, :name, :nickname, :strength, :technique, :speed, :stamina, :defense,
			:wrestling, :grappling, :strategy, :wins, :losses, :draws, :no_contests, :ko_wins,
			:submission_wins, :decision_wins, :weight_class, :popularity, :health, :condition,
			:fatigue, :created_at)`, f)
	if err != nil {
		return fmt.Errorf("failed to insert fighter: %w", err)
	}
	return nil
}

func (r *Repository) GetFighter(ctx context.Context, id string) (*Fighter, error) {
	var f Fighter
	if err := r.db.GetContext(ctx, &f, "SELECT * FROM fighters WHERE id = ?", id); err != nil {
		return nil, notFound(err)
	}
	return &f, nil
}

func (r *Repository) ListFighters(ctx context.Context) ([]Fighter, error) {
	var fighters []Fighter
	err := r.db.SelectContext(ctx, &fighters, "SELECT * FROM fighters ORDER BY id")
	return fighters, err
}

// ListFightersByRecord orders the roster like a rankings page
func (r *Repository) ListFightersByRecord(ctx context.Context) ([]Fighter, error) {
	var fighters []Fighter
	err := r.db.SelectContext(ctx, &fighters, `
		SELECT * FROM fighters
		ORDER BY wins DESC, losses ASC, draws DESC, name ASC`)
	return fighters, err
}

// RecoverFighters gives every fighter a day of rest
func (r *Repository) RecoverFighters(ctx context.Context, amount int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE fighters
		SET health = MIN(100, MAX(0, health + ?)),
			condition = MIN(100, MAX(0, condition + ?)),
			fatigue = MIN(100, MAX(0, fatigue - ?))`,
		amount, amount, amount)
	if err != nil {
		return fmt.Errorf("failed to recover fighters: %w", err)
	}
	return nil
}

type namedExecer interface {
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
}

// InsertMatch books a match, assigning an id when it has none
func (r *Repository) InsertMatch(ctx context.Context, m *Match) error {
	return insertMatch(ctx, r.db, m)
}

// InsertMatches books a whole card atomically
func (r *Repository) InsertMatches(ctx context.Context, matches []Match) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i := range matches {
		if err := insertMatch(ctx, tx, &matches[i]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func insertMatch(ctx context.Context, ex namedExecer, m *Match) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Status == "" {
		m.Status = StatusScheduled
	}
	if m.Mode == "" {
		m.Mode = ModeFastForward
	}
	if m.EventType == "" {
		m.EventType = fight.RegularFight.String()
	}
	if m.Booking == "" {
		m.Booking = BookingCard
	}
	m.ScheduledTime = m.ScheduledTime.UTC()
	m.CreatedAt = time.Now().UTC().Truncate(time.Second)

	_, err := ex.NamedExecContext(ctx, `
		INSERT INTO matches (id, red_id, blue_id, red_name, blue_name, event_type, mode, booking,
			status, scheduled_time, seed, created_at)
		VALUES (:id, :red_id, :blue_id, :red_name, :blue_name, :event_type, :mode, :booking,
			:status, :scheduled_time, :seed, :created_at)`, m)
	if err != nil {
		return fmt.Errorf("failed to insert match: %w", err)
	}
	return nil
}

func (r *Repository) GetMatch(ctx context.Context, id string) (*Match, error) {
	var m Match
	if err := r.db.GetContext(ctx, &m, "SELECT * FROM matches WHERE id = ?", id); err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

func (r *Repository) GetMatchRounds(ctx context.Context, matchID string) ([]MatchRound, error) {
	var rounds []MatchRound
	err := r.db.SelectContext(ctx, &rounds, "SELECT * FROM match_rounds WHERE match_id = ? ORDER BY round", matchID)
	return rounds, err
}

// GetMatchesBetween returns the card booked in [from, to)
func (r *Repository) GetMatchesBetween(ctx context.Context, from, to time.Time) ([]Match, error) {
	var matches []Match
	err := r.db.SelectContext(ctx, &matches,
		"SELECT * FROM matches WHERE scheduled_time >= ? AND scheduled_time < ? ORDER BY scheduled_time, id",
		from.UTC(), to.UTC())
	return matches, err
}

// GetCardBetween returns only the matchmaker's bouts booked in [from, to)
func (r *Repository) GetCardBetween(ctx context.Context, from, to time.Time) ([]Match, error) {
	var matches []Match
	err := r.db.SelectContext(ctx, &matches,
		"SELECT * FROM matches WHERE booking = ? AND scheduled_time >= ? AND scheduled_time < ? ORDER BY scheduled_time, id",
		BookingCard, from.UTC(), to.UTC())
	return matches, err
}

// GetDueMatches returns card bouts still scheduled whose start time has passed
func (r *Repository) GetDueMatches(ctx context.Context, now time.Time) ([]Match, error) {
	var matches []Match
	err := r.db.SelectContext(ctx, &matches,
		"SELECT * FROM matches WHERE booking = ? AND status = ? AND scheduled_time <= ? ORDER BY scheduled_time, id",
		BookingCard, StatusScheduled, now.UTC())
	return matches, err
}

func (r *Repository) GetLiveMatches(ctx context.Context) ([]Match, error) {
	var matches []Match
	err := r.db.SelectContext(ctx, &matches, "SELECT * FROM matches WHERE status = ? ORDER BY scheduled_time", StatusLive)
	return matches, err
}

// RecentMatches lists finished matches, newest first
func (r *Repository) RecentMatches(ctx context.Context, limit int) ([]Match, error) {
	var matches []Match
	err := r.db.SelectContext(ctx, &matches,
		"SELECT * FROM matches WHERE status IN (?, ?) ORDER BY completed_at DESC LIMIT ?",
		StatusCompleted, StatusNoContest, limit)
	return matches, err
}

// MarkLive moves a scheduled match to live. Only one caller wins the race.
func (r *Repository) MarkLive(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE matches SET status = ? WHERE id = ? AND status = ?",
		StatusLive, id, StatusScheduled)
	if err != nil {
		return fmt.Errorf("failed to mark match live: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotScheduled
	}
	return nil
}

// SaveResult stores the result and scorecards and applies it to both records
// in one transaction. A match is applied at most once.
func (r *Repository) SaveResult(ctx context.Context, matchID string, res fight.MatchResult) error {
	return r.saveResult(ctx, matchID, res, "")
}

// VoidMatch closes a match as a no contest
func (r *Repository) VoidMatch(ctx context.Context, matchID, reason string) error {
	m, err := r.GetMatch(ctx, matchID)
	if err != nil {
		return err
	}
	res := fight.MatchResult{
		RedID:     m.RedID,
		BlueID:    m.BlueID,
		Method:    fight.MethodNoContest,
		EventType: m.Event(),
	}
	return r.saveResult(ctx, matchID, res, reason)
}

func (r *Repository) saveResult(ctx context.Context, matchID string, res fight.MatchResult, reason string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var m Match
	if err := tx.GetContext(ctx, &m, "SELECT * FROM matches WHERE id = ?", matchID); err != nil {
		return notFound(err)
	}
	if m.RecordsApplied {
		return ErrAlreadyApplied
	}

	red, err := fighterTx(ctx, tx, m.RedID)
	if err != nil {
		return err
	}
	blue, err := fighterTx(ctx, tx, m.BlueID)
	if err != nil {
		return err
	}

	redRecord, blueRecord := red.Record(), blue.Record()
	fight.ApplyResult(res, &redRecord, &blueRecord)
	red.setRecord(redRecord)
	blue.setRecord(blueRecord)
	// a voided bout leaves no marks
	if res.Method != fight.MethodNoContest {
		wear(red, res.RedHP, res.Round)
		wear(blue, res.BlueHP, res.Round)
	}
	for _, f := range []*Fighter{red, blue} {
		if _, err := tx.NamedExecContext(ctx, `
			UPDATE fighters SET wins = :wins, losses = :losses, draws = :draws,
				no_contests = :no_contests, ko_wins = :ko_wins,
				submission_wins = :submission_wins, decision_wins = :decision_wins,
				popularity = :popularity, health = :health, condition = :condition,
				fatigue = :fatigue
			WHERE id = :id`, f); err != nil {
			return fmt.Errorf("failed to update fighter record: %w", err)
		}
	}

	status := StatusCompleted
	if res.Method == fight.MethodNoContest {
		status = StatusNoContest
	}
	var winner sql.NullString
	if res.WinnerID != "" {
		winner = sql.NullString{String: res.WinnerID, Valid: true}
	}
	var voided sql.NullString
	if reason != "" {
		voided = sql.NullString{String: reason, Valid: true}
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE matches
		SET status = ?, winner_id = ?, method = ?, end_round = ?, end_clock = ?,
			red_hp = ?, blue_hp = ?, purse = ?, attendance = ?, records_applied = TRUE,
			voided_reason = ?, completed_at = ?
		WHERE id = ?`,
		status, winner, res.Method.String(), res.Round, res.Clock,
		res.RedHP, res.BlueHP, res.Purse, res.Attendance, voided, time.Now().UTC().Truncate(time.Second), matchID)
	if err != nil {
		return fmt.Errorf("failed to update match: %w", err)
	}

	for _, rec := range res.Rounds {
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO match_rounds (match_id, round, winner, complete,
				red_strikes, red_takedowns, red_control, red_knockdowns, red_fouls, red_damage,
				blue_strikes, blue_takedowns, blue_control, blue_knockdowns, blue_fouls, blue_damage)
			VALUES (:match_id, :round, :winner, :complete,
				:red_strikes, :red_takedowns, :red_control, :red_knockdowns, :red_fouls, :red_damage,
				:blue_strikes, :blue_takedowns, :blue_control, :blue_knockdowns, :blue_fouls, :blue_damage)`,
			newMatchRound(matchID, rec)); err != nil {
			return fmt.Errorf("failed to insert round %d: %w", rec.Round, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit result: %w", err)
	}

	r.logger.Info().
		Str("match_id", matchID).
		Str("method", res.Method.String()).
		Str("winner_id", res.WinnerID).
		Int("round", res.Round).
		Msg("match result saved")
	return nil
}

func wear(f *Fighter, hp, rounds int) {
	maxHP := f.Profile().MaxHP()
	f.setReadiness(f.Readiness().AfterBout(float64(hp)/float64(maxHP), rounds))
}

func fighterTx(ctx context.Context, tx *sqlx.Tx, id string) (*Fighter, error) {
	var f Fighter
	if err := tx.GetContext(ctx, &f, "SELECT * FROM fighters WHERE id = ?", id); err != nil {
		return nil, fmt.Errorf("failed to load fighter %s: %w", id, notFound(err))
	}
	return &f, nil
}
