package catalog

import (
	. "github.com/berfenger/kwlsim/internal/core/domain"
)

const (
	DATE_LAYOUT = "02.01.2006"
	TIME_LAYOUT = "15:04"
)

var fanStages = []int64{0, 1, 2, 3, 4}

// VentilationUnitTable is the subset of the vendor variable list the simulator emulates.
var VentilationUnitTable = []PropertyDescriptor{
	{VariableID: "00000", Name: "Description", Type: TypeString, Size: 2, Count: 10, Access: ReadWrite, Label: "Description"},
	{VariableID: "00001", Name: "ArticleNumber", Type: TypeString, Size: 2, Count: 8, Access: ReadOnly, Label: "Article number"},
	{VariableID: "00003", Name: "SoftwareVersion", Type: TypeString, Size: 2, Count: 4, Access: ReadOnly, Label: "Software version"},
	{VariableID: "00004", Name: "Date", Type: TypeDate, Size: 10, Count: 5, Access: ReadWrite, Format: Format{Layout: DATE_LAYOUT}, Label: "Date"},
	{VariableID: "00005", Name: "Time", Type: TypeTime, Size: 5, Count: 3, Access: ReadWrite, Format: Format{Layout: TIME_LAYOUT}, Label: "Time"},
	{VariableID: "00024", Name: "PreheaterEnabled", Type: TypeBool, Size: 1, Count: 1, Access: ReadWrite, Label: "Preheater"},
	{VariableID: "00091", Name: "PartyDuration", Type: TypeInteger, Size: 3, Count: 2, Access: ReadWrite, Unit: "min",
		Format: Format{Range: &Range{Min: 5, Max: 180}}, Label: "Party duration"},
	{VariableID: "00092", Name: "PartyFanStage", Type: TypeEnum, Size: 1, Count: 1, Access: ReadWrite, Format: Format{Members: fanStages}, Label: "Party fan stage"},
	{VariableID: "00093", Name: "PartyRemaining", Type: TypeInteger, Size: 3, Count: 2, Access: ReadOnly, Unit: "min", Label: "Party remaining"},
	{VariableID: "00094", Name: "PartyMode", Type: TypeBool, Size: 1, Count: 1, Access: ReadWrite, Label: "Party mode"},
	{VariableID: "00101", Name: "OperationMode", Type: TypeInteger, Size: 1, Count: 1, Access: ReadWrite, Label: "Operation mode"},
	{VariableID: "00102", Name: "FanStage", Type: TypeEnum, Size: 1, Count: 1, Access: ReadWrite, Format: Format{Members: fanStages}, Label: "Fan stage"},
	{VariableID: "00103", Name: "FanStagePercent", Type: TypeInteger, Size: 3, Count: 2, Access: ReadOnly, Unit: "%", Label: "Fan level"},
	{VariableID: "00104", Name: "OutsideAirTemp", Type: TypeDouble, Size: 7, Count: 4, Access: ReadOnly, Unit: "°C", Format: Format{Precision: 1}, Label: "Outside air"},
	{VariableID: "00105", Name: "SupplyAirTemp", Type: TypeDouble, Size: 7, Count: 4, Access: ReadOnly, Unit: "°C", Format: Format{Precision: 1}, Label: "Supply air"},
	{VariableID: "00106", Name: "ExtractAirTemp", Type: TypeDouble, Size: 7, Count: 4, Access: ReadOnly, Unit: "°C", Format: Format{Precision: 1}, Label: "Extract air"},
	{VariableID: "00107", Name: "ExhaustAirTemp", Type: TypeDouble, Size: 7, Count: 4, Access: ReadOnly, Unit: "°C", Format: Format{Precision: 1}, Label: "Exhaust air"},
	{VariableID: "00201", Name: "FilterChangeMonths", Type: TypeInteger, Size: 2, Count: 2, Access: ReadWrite, Unit: "months",
		Format: Format{Range: &Range{Min: 1, Max: 12}}, Label: "Filter change interval"},
	{VariableID: "00221", Name: "FilterRemainingDays", Type: TypeInteger, Size: 3, Count: 2, Access: ReadOnly, Unit: "d", Label: "Filter remaining"},
	{VariableID: "00222", Name: "FilterReset", Type: TypeBool, Size: 1, Count: 1, Access: WriteOnly, Label: "Reset filter"},
	{VariableID: "00303", Name: "SupplyFanRpm", Type: TypeInteger, Size: 4, Count: 2, Access: ReadOnly, Unit: "rpm", Label: "Supply fan"},
	{VariableID: "00304", Name: "ExtractFanRpm", Type: TypeInteger, Size: 4, Count: 2, Access: ReadOnly, Unit: "rpm", Label: "Extract fan"},
	{VariableID: "00348", Name: "ExtractHumidity", Type: TypeInteger, Size: 3, Count: 2, Access: ReadOnly, Unit: "%", Label: "Extract humidity"},
	{VariableID: "01300", Name: "OperatingHours", Type: TypeInteger, Size: 8, Count: 4, Access: ReadOnly, Unit: "h", Label: "Operating hours"},
}

// VentilationUnitLists holds the element descriptors of list properties.
var VentilationUnitLists = []PropertyDescriptor{
	{Name: "WeekProgram", Type: TypeEnum, Size: 1, Count: 1, Access: ReadWrite, Format: Format{Members: fanStages}, Label: "Week program"},
}

// Default builds the catalog of the emulated ventilation unit.
func Default() *Catalog {
	c, err := New(VentilationUnitTable, VentilationUnitLists...)
	if err != nil {
		panic(err)
	}
	return c
}
