package store

import "time"

// VentilationUnit is the typed state of the emulated device.
type VentilationUnit struct {
	Description     string
	ArticleNumber   string
	SoftwareVersion string
	Date            time.Time
	Time            time.Time

	PreheaterEnabled bool
	OperationMode    int64
	FanStage         int64
	FanStagePercent  int64

	PartyMode      bool
	PartyDuration  int64
	PartyFanStage  int64
	PartyRemaining int64

	OutsideAirTemp  float64
	SupplyAirTemp   float64
	ExtractAirTemp  float64
	ExhaustAirTemp  float64
	ExtractHumidity int64

	FilterChangeMonths  int64
	FilterRemainingDays int64

	SupplyFanRpm   int64
	ExtractFanRpm  int64
	OperatingHours int64

	// fan stage per weekday, Sunday first, applied in automatic mode
	WeekProgram [7]int64
}

const DAYS_PER_FILTER_MONTH = 30

const (
	OPERATION_MODE_AUTO   = 0
	OPERATION_MODE_MANUAL = 1
)

func DefaultUnit(now time.Time) *VentilationUnit {
	return &VentilationUnit{
		Description:         "KWL simulator",
		ArticleNumber:       "KWL EC 300 W",
		SoftwareVersion:     "2.27",
		Date:                time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
		Time:                time.Date(0, 1, 1, now.Hour(), now.Minute(), 0, 0, time.UTC),
		PreheaterEnabled:    true,
		OperationMode:       0,
		FanStage:            2,
		FanStagePercent:     50,
		PartyDuration:       60,
		PartyFanStage:       4,
		OutsideAirTemp:      8.5,
		SupplyAirTemp:       18.9,
		ExtractAirTemp:      21.5,
		ExhaustAirTemp:      11.1,
		ExtractHumidity:     45,
		FilterChangeMonths:  6,
		FilterRemainingDays: 6 * DAYS_PER_FILTER_MONTH,
		SupplyFanRpm:        1200,
		ExtractFanRpm:       1200,
		WeekProgram:         [7]int64{1, 2, 2, 2, 2, 2, 1},
	}
}
