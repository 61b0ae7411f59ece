package utils

import (
	"hash/fnv"
	"math/rand"
	"time"
)

// NewSeededRNG returns a deterministic source. Seed 0 is bumped to 1 so a
// zero-valued seed field still yields a usable, repeatable stream.
func NewSeededRNG(seed int64) *rand.Rand {
	if seed == 0 {
		seed = 1
	}
	return rand.New(rand.NewSource(seed))
}

// DailyCardSeed keys matchmaking to the calendar day
func DailyCardSeed(date time.Time) int64 {
	return int64(date.Year()*10000 + date.YearDay())
}

// MatchSeed derives a stable seed from a match id
func MatchSeed(matchID string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(matchID))
	return int64(h.Sum64() & 0x7fffffffffffffff)
}

// BatchSeed is the seed of run i in a batch started from base. Zero is
// skipped since NewSeededRNG folds it into 1, which would repeat a run.
func BatchSeed(base int64, i int) int64 {
	seed := base + int64(i)
	if seed >= 0 {
		seed++
	}
	return seed
}

// VoidReasonSeed keys the wording of recovery voids to the restart time
func VoidReasonSeed(now time.Time) int64 {
	return now.Unix()
}
