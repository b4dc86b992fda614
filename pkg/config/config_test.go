package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api", cfg.APIPrefix)
	assert.Equal(t, 2, cfg.Allocation.ObserversPerSection)
	assert.Equal(t, 5, cfg.Allocation.EveningShift)
	assert.Equal(t, 5, cfg.Allocation.MaxShift)
	assert.Equal(t, 5*time.Minute, cfg.Cache.AssignmentTTL)
}

func TestLoadAllocationOverrides(t *testing.T) {
	t.Setenv("ALLOCATION_OBSERVERS_PER_SECTION", "1")
	t.Setenv("ALLOCATION_EVENING_SHIFT", "4")
	t.Setenv("ALLOCATION_MAX_SHIFT", "4")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.Allocation.ObserversPerSection)
	assert.Equal(t, 4, cfg.Allocation.EveningShift)
	assert.Equal(t, 4, cfg.Allocation.MaxShift)
}

func TestLoadQuotaFloor(t *testing.T) {
	t.Setenv("ALLOCATION_OBSERVERS_PER_SECTION", "0")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Allocation.ObserversPerSection)
}
