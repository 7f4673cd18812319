package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePeriod(t *testing.T) {
	for in, want := range map[string]Period{
		"period_15m": Period15M,
		"FourHours":  Period4H,
		"240":        Period4H,
		" 1D ":       Period1D,
	} {
		got, err := ParsePeriod(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParsePeriod("period_2m")
	assert.Error(t, err)
}

func TestPeriodStartTime(t *testing.T) {
	at := time.Date(2024, 10, 1, 13, 47, 31, 0, time.UTC)

	assert.Equal(t, time.Date(2024, 10, 1, 13, 47, 0, 0, time.UTC), PeriodStartTime(at, Period1M))
	assert.Equal(t, time.Date(2024, 10, 1, 13, 45, 0, 0, time.UTC), PeriodStartTime(at, Period15M))
	assert.Equal(t, time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC), PeriodStartTime(at, Period4H))
	assert.Equal(t, time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC), PeriodStartTime(at, Period1D))
	assert.Equal(t, at, PeriodStartTime(at, "weekly"))
}
