package timespec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

func TestParse(t *testing.T) {
	got, err := Parse("1h30m", now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(-90*time.Minute), got)

	got, err = Parse("2026-10-01T08:00:00Z", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC), got)

	_, err = Parse("", now)
	assert.ErrorContains(t, err, "empty")
	_, err = Parse("-1h", now)
	assert.ErrorContains(t, err, "must be positive")
	_, err = Parse("yesterday", now)
	assert.ErrorContains(t, err, "invalid time specification")
}

func TestParseRange(t *testing.T) {
	r, err := ParseRange("2h", "1h", now)
	require.NoError(t, err)
	assert.True(t, r.ContainsMs(now.Add(-90*time.Minute).UnixMilli()))
	assert.False(t, r.ContainsMs(now.Add(-3*time.Hour).UnixMilli()))
	assert.False(t, r.ContainsMs(now.UnixMilli()))

	open, err := ParseRange("", "", now)
	require.NoError(t, err)
	assert.True(t, open.ContainsMs(0))

	_, err = ParseRange("1h", "2h", now)
	assert.EqualError(t, err, "--since must be before --until")

	_, err = ParseRange("soon", "", now)
	assert.ErrorContains(t, err, "invalid --since")
}
