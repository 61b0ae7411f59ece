package config

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresSessionSecret(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")
	_, err := Load(zerolog.Nop())
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", "shh")
	t.Setenv("TICK_INTERVAL", "")
	t.Setenv("SIM_SPEED", "")
	t.Setenv("CARD_SIZE", "")
	t.Setenv("TIMEZONE", "")

	cfg, err := Load(zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "shh", cfg.SessionSecret)
	assert.Equal(t, 100*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, 6, cfg.CardSize)
	assert.Equal(t, "America/Chicago", cfg.Timezone)
	assert.InDelta(t, 0.1, cfg.SimStep(), 1e-12)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SESSION_SECRET", "shh")
	t.Setenv("TICK_INTERVAL", "250ms")
	t.Setenv("SIM_SPEED", "4")
	t.Setenv("CARD_SIZE", "10")
	t.Setenv("TIMEZONE", "UTC")

	cfg, err := Load(zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.CardSize)
	assert.InDelta(t, 1.0, cfg.SimStep(), 1e-12)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("SESSION_SECRET", "shh")
	t.Setenv("SIM_SPEED", "-1")
	_, err := Load(zerolog.Nop())
	assert.Error(t, err)

	t.Setenv("SIM_SPEED", "1")
	t.Setenv("TIMEZONE", "Mars/Olympus_Mons")
	_, err = Load(zerolog.Nop())
	assert.Error(t, err)
}
