package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cagefight/database"
	"cagefight/utils"

	"github.com/rs/zerolog"
)

var voidReasons = []string{
	"Bout stopped when the arena lost power",
	"Referee waved it off after the broadcast dropped",
	"Commission ruled the bout incomplete after a restart",
	"Cage door jammed mid-round and the bout was called",
	"Judges' feed cut out before the final bell",
	"Bout halted by the athletic commission",
}

// Recovery cleans up after a process that died with matches on air
type Recovery struct {
	repo   *database.Repository
	logger zerolog.Logger
}

func NewRecovery(repo *database.Repository, logger zerolog.Logger) *Recovery {
	return &Recovery{repo: repo, logger: logger}
}

// RecoverInterrupted voids every match still marked live. Nothing can be
// running yet when this is called, so a live row means the process stopped
// mid-bout. Both fighters get a no contest.
func (r *Recovery) RecoverInterrupted(ctx context.Context, now time.Time) (int, error) {
	matches, err := r.repo.GetLiveMatches(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get live matches: %w", err)
	}
	if len(matches) == 0 {
		return 0, nil
	}

	r.logger.Warn().Int("matches", len(matches)).Msg("voiding matches interrupted by a restart")

	rng := utils.NewSeededRNG(utils.VoidReasonSeed(now))
	voided := 0
	for _, m := range matches {
		reason := voidReasons[rng.Intn(len(voidReasons))]
		err := r.repo.VoidMatch(ctx, m.ID, reason)
		if errors.Is(err, database.ErrAlreadyApplied) {
			continue
		}
		if err != nil {
			return voided, fmt.Errorf("failed to void match %s: %w", m.ID, err)
		}
		voided++
	}
	return voided, nil
}
