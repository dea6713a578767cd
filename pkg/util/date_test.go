package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToday(t *testing.T) {
	now := time.Date(2024, 3, 10, 23, 30, 0, 0, time.UTC)
	tokyo := time.FixedZone("JST", 9*3600)

	assert.Equal(t, "2024-03-10", Today(now, time.UTC))
	assert.Equal(t, "2024-03-11", Today(now, tokyo))
}

func TestAddDays(t *testing.T) {
	got, err := AddDays("2024-02-28", 2)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", got)

	_, err = AddDays("28/02/2024", 1)
	assert.Error(t, err)
}

func TestDaysBetween(t *testing.T) {
	n, err := DaysBetween("2024-03-30", "2024-04-02")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestDateRange(t *testing.T) {
	got, err := DateRange("2024-12-30", "2025-01-02", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-12-30", "2024-12-31", "2025-01-01", "2025-01-02"}, got)

	_, err = DateRange("2024-01-05", "2024-01-01", 10)
	assert.Error(t, err)

	_, err = DateRange("2024-01-01", "2024-03-01", 31)
	assert.ErrorContains(t, err, "exceeds limit")
}

func TestParseIntDefault(t *testing.T) {
	assert.Equal(t, 8080, ParseIntDefault("", 8080))
	assert.Equal(t, 8080, ParseIntDefault("x", 8080))
	assert.Equal(t, 9000, ParseIntDefault("9000", 8080))
}
