package service

import (
	"math"
	"sync"
	"time"

	"github.com/berfenger/kwlsim/internal/core/store"
	"go.uber.org/zap"
)

const (
	EXTRACT_AIR_TARGET  = 21.5
	HUMIDITY_BASELINE   = 50
	RPM_PER_STAGE       = 600
	PERCENT_PER_STAGE   = 25
	TEMPERATURE_TAU     = 10 * time.Minute
	MAX_RECOVERY        = 0.9
	RECOVERY_LOSS_STAGE = 0.05
	PREHEATER_THRESHOLD = -3.0
	SECONDS_PER_HOUR    = 3600
	SECONDS_PER_DAY     = 24 * SECONDS_PER_HOUR
	SECONDS_PER_MINUTE  = 60
)

// Simulator advances the emulated device between ticks: fan stage from the
// active program, heat recovery temperatures, counters and the device clock.
type Simulator struct {
	store  *store.Store
	logger *zap.Logger

	mu   sync.Mutex
	last time.Time
	// sub-unit progress carried between ticks, in seconds
	running float64
	party   float64
	filter  float64
}

func NewSimulator(s *store.Store, logger *zap.Logger) *Simulator {
	return &Simulator{store: s, logger: logger}
}

// Tick advances the simulation to now. The first call only records the time.
func (sim *Simulator) Tick(now time.Time) {
	sim.mu.Lock()
	defer sim.mu.Unlock()

	if sim.last.IsZero() || !now.After(sim.last) {
		sim.last = now
		return
	}
	elapsed := now.Sub(sim.last)
	sim.last = now

	sim.store.Update(func(u *store.VentilationUnit) []string {
		var changed []string
		set := func(name string, dirty bool) {
			if dirty {
				changed = append(changed, name)
			}
		}

		if sim.advanceClock(u, elapsed) {
			changed = append(changed, "Date", "Time")
		}
		if sim.countdownParty(u, elapsed) {
			changed = append(changed, "PartyRemaining")
			if !u.PartyMode {
				changed = append(changed, "PartyMode")
			}
		}

		stage := activeStage(u)
		if u.OperationMode == store.OPERATION_MODE_AUTO && !u.PartyMode && u.FanStage != stage {
			u.FanStage = stage
			changed = append(changed, "FanStage")
		}
		set("FanStagePercent", assign(&u.FanStagePercent, stage*PERCENT_PER_STAGE))
		set("SupplyFanRpm", assign(&u.SupplyFanRpm, stage*RPM_PER_STAGE))
		set("ExtractFanRpm", assign(&u.ExtractFanRpm, stage*RPM_PER_STAGE))

		if stage > 0 {
			sim.running += elapsed.Seconds()
		}
		if hours := int64(sim.running / SECONDS_PER_HOUR); hours > 0 {
			sim.running -= float64(hours * SECONDS_PER_HOUR)
			u.OperatingHours += hours
			changed = append(changed, "OperatingHours")
		}

		sim.filter += elapsed.Seconds()
		if days := int64(sim.filter / SECONDS_PER_DAY); days > 0 {
			sim.filter -= float64(days * SECONDS_PER_DAY)
			set("FilterRemainingDays", assign(&u.FilterRemainingDays, max(0, u.FilterRemainingDays-days)))
		}

		changed = append(changed, sim.driftTemperatures(u, stage, elapsed)...)
		return changed
	})
}

// advanceClock moves the device date and time forward. Reports whether the
// displayed minute changed.
func (sim *Simulator) advanceClock(u *store.VentilationUnit, elapsed time.Duration) bool {
	clock := time.Date(u.Date.Year(), u.Date.Month(), u.Date.Day(), u.Time.Hour(), u.Time.Minute(), u.Time.Second(), 0, time.UTC)
	next := clock.Add(elapsed)
	u.Date = time.Date(next.Year(), next.Month(), next.Day(), 0, 0, 0, 0, time.UTC)
	u.Time = time.Date(0, 1, 1, next.Hour(), next.Minute(), next.Second(), 0, time.UTC)
	return next.Truncate(time.Minute) != clock.Truncate(time.Minute)
}

func (sim *Simulator) countdownParty(u *store.VentilationUnit, elapsed time.Duration) bool {
	if !u.PartyMode {
		sim.party = 0
		return false
	}
	sim.party += elapsed.Seconds()
	minutes := int64(sim.party / SECONDS_PER_MINUTE)
	if minutes == 0 {
		return false
	}
	sim.party -= float64(minutes * SECONDS_PER_MINUTE)
	u.PartyRemaining = max(0, u.PartyRemaining-minutes)
	if u.PartyRemaining == 0 {
		u.PartyMode = false
		sim.logger.Info("simulator@party: party mode expired")
	}
	return true
}

func (sim *Simulator) driftTemperatures(u *store.VentilationUnit, stage int64, elapsed time.Duration) []string {
	alpha := 1 - math.Exp(-elapsed.Seconds()/TEMPERATURE_TAU.Seconds())
	approach := func(current float64, target float64) float64 {
		return round1(current + (target-current)*alpha)
	}

	// coldest at 3am, warmest at 3pm, on the device clock
	hour := float64(u.Time.Hour()) + float64(u.Time.Minute())/60
	outside := 10 - 6*math.Cos(2*math.Pi*(hour-3)/24)

	intake := outside
	if u.PreheaterEnabled && intake < PREHEATER_THRESHOLD {
		intake = PREHEATER_THRESHOLD
	}
	recovery := 0.0
	if stage > 0 {
		recovery = MAX_RECOVERY - RECOVERY_LOSS_STAGE*float64(stage)
	}
	supply := intake + recovery*(EXTRACT_AIR_TARGET-intake)
	exhaust := EXTRACT_AIR_TARGET - (supply - intake)
	humidity := float64(HUMIDITY_BASELINE - 3*stage)

	var changed []string
	for _, t := range []struct {
		name   string
		field  *float64
		target float64
	}{
		{"OutsideAirTemp", &u.OutsideAirTemp, outside},
		{"SupplyAirTemp", &u.SupplyAirTemp, supply},
		{"ExtractAirTemp", &u.ExtractAirTemp, EXTRACT_AIR_TARGET},
		{"ExhaustAirTemp", &u.ExhaustAirTemp, exhaust},
	} {
		next := approach(*t.field, t.target)
		if next != *t.field {
			*t.field = next
			changed = append(changed, t.name)
		}
	}
	if assign(&u.ExtractHumidity, int64(math.Round(float64(u.ExtractHumidity)+(humidity-float64(u.ExtractHumidity))*alpha))) {
		changed = append(changed, "ExtractHumidity")
	}
	return changed
}

// activeStage resolves the fan stage currently driving the fans.
func activeStage(u *store.VentilationUnit) int64 {
	switch {
	case u.PartyMode:
		return u.PartyFanStage
	case u.OperationMode == store.OPERATION_MODE_AUTO:
		return u.WeekProgram[u.Date.Weekday()]
	}
	return u.FanStage
}

func assign(field *int64, value int64) bool {
	if *field == value {
		return false
	}
	*field = value
	return true
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
