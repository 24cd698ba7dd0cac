package store

import (
	"sync"
	"testing"
	"time"

	"github.com/berfenger/kwlsim/internal/core/catalog"
	. "github.com/berfenger/kwlsim/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore() *Store {
	return New(DefaultUnit(time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)))
}

func TestEveryCatalogPropertyHasAccessor(t *testing.T) {

	assert := assert.New(t)

	s := newTestStore()
	for _, d := range catalog.Default().Descriptors() {
		assert.True(s.Has(d.Name), "missing accessor for %s", d.Name)
	}
	assert.Len(s.Names(), len(catalog.Default().Descriptors()))
}

func TestGetSet(t *testing.T) {

	assert := assert.New(t)
	require := require.New(t)

	s := newTestStore()

	v, err := s.Get("FanStage")
	require.NoError(err)
	assert.Equal(int64(2), v)

	require.NoError(s.Set("FanStage", int64(3)))
	v, err = s.Get("FanStage")
	require.NoError(err)
	assert.Equal(int64(3), v)

	require.NoError(s.Set("OperationMode", 1))
	assert.Equal(int64(1), s.Snapshot().OperationMode)

	require.NoError(s.Set("SupplyAirTemp", 19.5))
	require.NoError(s.Set("Description", "Bathroom"))
	require.NoError(s.Set("PreheaterEnabled", false))
	snap := s.Snapshot()
	assert.Equal(19.5, snap.SupplyAirTemp)
	assert.Equal("Bathroom", snap.Description)
	assert.False(snap.PreheaterEnabled)

	d := time.Date(2030, 1, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(s.Set("Date", d))
	v, _ = s.Get("Date")
	assert.Equal(d, v)
}

func TestUnknownAndMismatch(t *testing.T) {

	assert := assert.New(t)

	s := newTestStore()

	_, err := s.Get("Nope")
	assert.ErrorIs(err, ErrUnknownProperty)
	assert.ErrorIs(s.Set("Nope", true), ErrUnknownProperty)

	assert.ErrorIs(s.Set("FanStage", "3"), ErrTypeMismatch)
	assert.ErrorIs(s.Set("PartyMode", int64(1)), ErrTypeMismatch)
	assert.ErrorIs(s.Set("SupplyAirTemp", int64(1)), ErrTypeMismatch)
	assert.ErrorIs(s.Set("Date", "01.01.2020"), ErrTypeMismatch)
	assert.ErrorIs(s.Set("FilterReset", "yes"), ErrTypeMismatch)
}

func TestPartyModeStartsCountdown(t *testing.T) {

	assert := assert.New(t)
	require := require.New(t)

	s := newTestStore()
	require.NoError(s.Set("PartyDuration", int64(45)))
	require.NoError(s.Set("PartyMode", true))
	assert.Equal(int64(45), s.Snapshot().PartyRemaining)

	require.NoError(s.Set("PartyMode", false))
	assert.Equal(int64(0), s.Snapshot().PartyRemaining)
}

func TestFilterReset(t *testing.T) {

	assert := assert.New(t)
	require := require.New(t)

	s := newTestStore()
	s.Update(func(u *VentilationUnit) []string {
		u.FilterRemainingDays = 3
		return []string{"FilterRemainingDays"}
	})
	require.NoError(s.Set("FilterChangeMonths", int64(4)))

	require.NoError(s.Set("FilterReset", false))
	assert.Equal(int64(3), s.Snapshot().FilterRemainingDays)

	require.NoError(s.Set("FilterReset", true))
	assert.Equal(int64(120), s.Snapshot().FilterRemainingDays)

	v, err := s.Get("FilterReset")
	require.NoError(err)
	assert.Equal(false, v)
}

func TestChangeListeners(t *testing.T) {

	assert := assert.New(t)
	require := require.New(t)

	s := newTestStore()

	var mu sync.Mutex
	changes := map[string]any{}
	s.OnChange(func(name string, value any) {
		// listeners run outside the lock, reading back must not deadlock
		_, _ = s.Get(name)
		mu.Lock()
		defer mu.Unlock()
		changes[name] = value
	})

	require.NoError(s.Set("PartyMode", true))
	assert.Equal(true, changes["PartyMode"])
	assert.Equal(int64(60), changes["PartyRemaining"])

	s.Update(func(u *VentilationUnit) []string {
		u.OperatingHours++
		return []string{"OperatingHours", "NotAProperty"}
	})
	assert.Equal(int64(1), changes["OperatingHours"])
	assert.NotContains(changes, "NotAProperty")

	// failed sets do not notify
	delete(changes, "FanStage")
	assert.Error(s.Set("FanStage", 1.5))
	assert.NotContains(changes, "FanStage")
}

func TestListProperty(t *testing.T) {

	assert := assert.New(t)
	require := require.New(t)

	s := newTestStore()

	n, err := s.Len("WeekProgram")
	require.NoError(err)
	assert.Equal(7, n)

	var notified any
	s.OnChange(func(name string, value any) {
		if name == "WeekProgram" {
			notified = value
		}
	})

	require.NoError(s.SetIndex("WeekProgram", 3, int64(4)))
	v, err := s.GetIndex("WeekProgram", 3)
	require.NoError(err)
	assert.Equal(int64(4), v)
	assert.Equal(int64(4), s.Snapshot().WeekProgram[3])
	assert.Equal([]int64{1, 2, 2, 4, 2, 2, 1}, notified)

	_, err = s.GetIndex("WeekProgram", 7)
	assert.ErrorIs(err, ErrIndexOutOfRange)
	assert.ErrorIs(s.SetIndex("WeekProgram", -1, int64(1)), ErrIndexOutOfRange)
	assert.ErrorIs(s.SetIndex("WeekProgram", 0, "1"), ErrTypeMismatch)
	_, err = s.GetIndex("FanStage", 0)
	assert.ErrorIs(err, ErrUnknownProperty)
	_, err = s.Len("Nope")
	assert.ErrorIs(err, ErrUnknownProperty)
}
