// Package nbi decodes National Bridge Inventory delimited files and maps raw
// coded survey rows onto cleaned, labelled bridge records.
package nbi

import (
	"github.com/jszwec/csvutil"
)

// RawRecord is one row of an NBI delimited file. Every value is kept as text;
// coercion happens in Transform.
type RawRecord struct {
	StateCode          string `csv:"STATE_CODE_001"`
	CountyCode         string `csv:"COUNTY_CODE_003"`
	RoutePrefix        string `csv:"ROUTE_PREFIX_005B"`
	ServiceLevel       string `csv:"SERVICE_LEVEL_005C"`
	FeaturesDesc       string `csv:"FEATURES_DESC_006A"`
	FacilityCarried    string `csv:"FACILITY_CARRIED_007"`
	StructureNumber    string `csv:"STRUCTURE_NUMBER_008"`
	Location           string `csv:"LOCATION_009"`
	Latitude           string `csv:"LAT_016"`
	Longitude          string `csv:"LONG_017"`
	Maintenance        string `csv:"MAINTENANCE_021"`
	Owner              string `csv:"OWNER_022"`
	YearBuilt          string `csv:"YEAR_BUILT_027"`
	ADT                string `csv:"ADT_029"`
	YearADT            string `csv:"YEAR_ADT_030"`
	History            string `csv:"HISTORY_037"`
	OpenClosedPosted   string `csv:"OPEN_CLOSED_POSTED_041"`
	DeckCond           string `csv:"DECK_COND_058"`
	SuperstructureCond string `csv:"SUPERSTRUCTURE_COND_059"`
	SubstructureCond   string `csv:"SUBSTRUCTURE_COND_060"`
	CulvertCond        string `csv:"CULVERT_COND_062"`
	StructuralEval     string `csv:"STRUCTURAL_EVAL_067"`
	WaterwayEval       string `csv:"WATERWAY_EVAL_071"`
	WorkProposed       string `csv:"WORK_PROPOSED_075A"`
	WorkDoneBy         string `csv:"WORK_DONE_BY_075B"`
	DateOfInspect      string `csv:"DATE_OF_INSPECT_090"`
	BridgeImpCost      string `csv:"BRIDGE_IMP_COST_094"`
	RoadwayImpCost     string `csv:"ROADWAY_IMP_COST_095"`
	TotalImpCost       string `csv:"TOTAL_IMP_COST_096"`
	YearOfImp          string `csv:"YEAR_OF_IMP_097"`
	YearReconstructed  string `csv:"YEAR_RECONSTRUCTED_106"`
	PercentADTTruck    string `csv:"PERCENT_ADT_TRUCK_109"`
	ScourCritical      string `csv:"SCOUR_CRITICAL_113"`
	FutureADT          string `csv:"FUTURE_ADT_114"`
	YearOfFutureADT    string `csv:"YEAR_OF_FUTURE_ADT_115"`
}

// CleanRecord is the analysis-ready projection of a RawRecord. Nil pointers
// and empty label strings mean the value is absent.
type CleanRecord struct {
	Year            int    `csv:"year" json:"year"`
	StructureNumber string `csv:"structure_number" json:"structure_number"`
	StateCode       string `csv:"state_code" json:"state_code"`
	CountyCode      string `csv:"county_code" json:"county_code"`
	CombinedFIPS    string `csv:"combined_fips" json:"combined_fips"`
	CountyName      string `csv:"county_name" json:"county_name,omitempty"`

	RouteType                 string `csv:"route_type" json:"route_type,omitempty"`
	ServiceLevel              string `csv:"service_level" json:"service_level,omitempty"`
	MaintenanceResponsibility string `csv:"maintenance_responsibility" json:"maintenance_responsibility,omitempty"`
	Owner                     string `csv:"owner" json:"owner,omitempty"`
	HistoricalSignificance    string `csv:"historical_significance" json:"historical_significance,omitempty"`
	OperationalStatus         string `csv:"operational_status" json:"operational_status,omitempty"`
	ScourCritical             string `csv:"scour_critical" json:"scour_critical,omitempty"`
	WorkProposed              string `csv:"work_proposed" json:"work_proposed"`
	WorkPerformer             string `csv:"work_performer" json:"work_performer"`

	DeckCondition           *int `csv:"deck_condition" json:"deck_condition"`
	SuperstructureCondition *int `csv:"superstructure_condition" json:"superstructure_condition"`
	SubstructureCondition   *int `csv:"substructure_condition" json:"substructure_condition"`
	CulvertCondition        *int `csv:"culvert_condition" json:"culvert_condition"`
	StructuralEvaluation    *int `csv:"structural_evaluation" json:"structural_evaluation"`
	WaterwayAdequacy        *int `csv:"waterway_adequacy" json:"waterway_adequacy"`

	DeckPoor              bool      `csv:"deck_poor" json:"deck_poor"`
	SuperstructurePoor    bool      `csv:"superstructure_poor" json:"superstructure_poor"`
	SubstructurePoor      bool      `csv:"substructure_poor" json:"substructure_poor"`
	CulvertPoor           bool      `csv:"culvert_poor" json:"culvert_poor"`
	StructDeficient       bool      `csv:"struct_deficient" json:"struct_deficient"`
	StructDeficientLegacy bool      `csv:"struct_deficient_legacy" json:"struct_deficient_legacy"`
	LowestConditionRating *int      `csv:"lowest_condition_rating" json:"lowest_condition_rating"`
	TotalPoorConditions   int       `csv:"total_poor_conditions" json:"total_poor_conditions"`
	BridgeCondition       Condition `csv:"bridge_condition" json:"bridge_condition,omitempty"`

	InspectionMonth string `csv:"inspection_month" json:"inspection_month"`
	InspectionYear  string `csv:"inspection_year" json:"inspection_year"`

	YearBuilt                 *int64 `csv:"year_built" json:"year_built"`
	YearReconstructed         *int64 `csv:"year_reconstructed" json:"year_reconstructed"`
	AvgDailyTraffic           *int64 `csv:"avg_daily_traffic" json:"avg_daily_traffic"`
	YearADT                   *int64 `csv:"year_adt" json:"year_adt"`
	PctTruckTraffic           *int64 `csv:"pct_truck_traffic" json:"pct_truck_traffic"`
	FutureAvgDailyTraffic     *int64 `csv:"future_avg_daily_traffic" json:"future_avg_daily_traffic"`
	YearFutureADT             *int64 `csv:"year_future_adt" json:"year_future_adt"`
	BridgeImprovementCost     *int64 `csv:"bridge_improvement_cost" json:"bridge_improvement_cost"`
	RoadwayImprovementCost    *int64 `csv:"roadway_improvement_cost" json:"roadway_improvement_cost"`
	TotalImprovementCost      *int64 `csv:"total_improvement_cost" json:"total_improvement_cost"`
	YearOfImprovementEstimate *int64 `csv:"year_of_improvement_estimate" json:"year_of_improvement_estimate"`

	Location            string   `csv:"location" json:"location"`
	FeaturesIntersected string   `csv:"features_intersected" json:"features_intersected"`
	FacilityCarried     string   `csv:"facility_carried" json:"facility_carried"`
	LatitudeDMS         string   `csv:"latitude_dms" json:"latitude_dms"`
	LongitudeDMS        string   `csv:"longitude_dms" json:"longitude_dms"`
	Latitude            *float64 `csv:"latitude" json:"latitude"`
	Longitude           *float64 `csv:"longitude" json:"longitude"`
}

// RequiredColumns returns the raw column names a file must carry, in
// RawRecord field order.
func RequiredColumns() []string {
	cols, err := csvutil.Header(RawRecord{}, "csv")
	if err != nil {
		// RawRecord is a fixed struct of string fields; Header cannot fail on it.
		panic(err)
	}
	return cols
}

// Columns returns the CleanRecord output column names in order.
func Columns() []string {
	cols, err := csvutil.Header(CleanRecord{}, "csv")
	if err != nil {
		panic(err)
	}
	return cols
}

// Components returns the four structural component ratings.
func (r CleanRecord) Components() Components {
	return Components{
		Deck:           r.DeckCondition,
		Superstructure: r.SuperstructureCondition,
		Substructure:   r.SubstructureCondition,
		Culvert:        r.CulvertCondition,
	}
}

// CodedValue returns the raw value behind the coded output field, or "" for
// fields that are not coded.
func (r RawRecord) CodedValue(field string) string {
	switch field {
	case "route_type":
		return r.RoutePrefix
	case "service_level":
		return r.ServiceLevel
	case "maintenance_responsibility":
		return r.Maintenance
	case "owner":
		return r.Owner
	case "historical_significance":
		return r.History
	case "operational_status":
		return r.OpenClosedPosted
	case "scour_critical":
		return r.ScourCritical
	case "work_proposed":
		return r.WorkProposed
	case "work_performer":
		return r.WorkDoneBy
	}
	return ""
}
