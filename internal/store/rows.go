package store

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"github.com/fagan2888/bridge-data/internal/nbi"
)

// bridgeKey is the natural key of a stored bridge. Structure numbers are
// unique only within a state.
var bridgeKey = []string{"year", "state_code", "structure_number"}

// bridgeColumnTypes lists the non-text columns of the bridges table.
var bridgeColumnTypes = map[string]string{
	"year":                         "INTEGER",
	"deck_condition":               "INTEGER",
	"superstructure_condition":     "INTEGER",
	"substructure_condition":       "INTEGER",
	"culvert_condition":            "INTEGER",
	"structural_evaluation":        "INTEGER",
	"waterway_adequacy":            "INTEGER",
	"deck_poor":                    "BOOLEAN",
	"superstructure_poor":          "BOOLEAN",
	"substructure_poor":            "BOOLEAN",
	"culvert_poor":                 "BOOLEAN",
	"struct_deficient":             "BOOLEAN",
	"struct_deficient_legacy":      "BOOLEAN",
	"lowest_condition_rating":      "INTEGER",
	"total_poor_conditions":        "INTEGER",
	"year_built":                   "BIGINT",
	"year_reconstructed":           "BIGINT",
	"avg_daily_traffic":            "BIGINT",
	"year_adt":                     "BIGINT",
	"pct_truck_traffic":            "BIGINT",
	"future_avg_daily_traffic":     "BIGINT",
	"year_future_adt":              "BIGINT",
	"bridge_improvement_cost":      "BIGINT",
	"roadway_improvement_cost":     "BIGINT",
	"total_improvement_cost":       "BIGINT",
	"year_of_improvement_estimate": "BIGINT",
	"latitude":                     "DOUBLE PRECISION",
	"longitude":                    "DOUBLE PRECISION",
}

// columnType returns the SQL type of a bridges column.
func columnType(name string) string {
	if t, ok := bridgeColumnTypes[name]; ok {
		return t
	}
	return "TEXT"
}

// bridgeRow flattens a record into values in nbi.Columns order. Absent
// values become nil.
func bridgeRow(r *nbi.CleanRecord) []any {
	return []any{
		r.Year,
		r.StructureNumber,
		r.StateCode,
		nullString(r.CountyCode),
		nullString(r.CombinedFIPS),
		nullString(r.CountyName),

		nullString(r.RouteType),
		nullString(r.ServiceLevel),
		nullString(r.MaintenanceResponsibility),
		nullString(r.Owner),
		nullString(r.HistoricalSignificance),
		nullString(r.OperationalStatus),
		nullString(r.ScourCritical),
		nullString(r.WorkProposed),
		nullString(r.WorkPerformer),

		nullInt(r.DeckCondition),
		nullInt(r.SuperstructureCondition),
		nullInt(r.SubstructureCondition),
		nullInt(r.CulvertCondition),
		nullInt(r.StructuralEvaluation),
		nullInt(r.WaterwayAdequacy),

		r.DeckPoor,
		r.SuperstructurePoor,
		r.SubstructurePoor,
		r.CulvertPoor,
		r.StructDeficient,
		r.StructDeficientLegacy,
		nullInt(r.LowestConditionRating),
		r.TotalPoorConditions,
		nullString(string(r.BridgeCondition)),

		nullString(r.InspectionMonth),
		nullString(r.InspectionYear),

		nullInt64(r.YearBuilt),
		nullInt64(r.YearReconstructed),
		nullInt64(r.AvgDailyTraffic),
		nullInt64(r.YearADT),
		nullInt64(r.PctTruckTraffic),
		nullInt64(r.FutureAvgDailyTraffic),
		nullInt64(r.YearFutureADT),
		nullInt64(r.BridgeImprovementCost),
		nullInt64(r.RoadwayImprovementCost),
		nullInt64(r.TotalImprovementCost),
		nullInt64(r.YearOfImprovementEstimate),

		nullString(r.Location),
		nullString(r.FeaturesIntersected),
		nullString(r.FacilityCarried),
		nullString(r.LatitudeDMS),
		nullString(r.LongitudeDMS),
		nullFloat(r.Latitude),
		nullFloat(r.Longitude),
	}
}

// dedupeByKey keeps the last record for each (state, structure number) so a
// single upsert statement never touches the same row twice.
func dedupeByKey(records []nbi.CleanRecord) []nbi.CleanRecord {
	seen := make(map[[2]string]int, len(records))
	out := make([]nbi.CleanRecord, 0, len(records))
	for _, r := range records {
		k := [2]string{r.StateCode, r.StructureNumber}
		if i, ok := seen[k]; ok {
			out[i] = r
			continue
		}
		seen[k] = len(out)
		out = append(out, r)
	}
	return out
}

// PointEWKB encodes a WGS84 point as EWKB with SRID 4326. It returns nil when
// either coordinate is absent.
func PointEWKB(lat, lon *float64) ([]byte, error) {
	if lat == nil || lon == nil {
		return nil, nil
	}
	g := geom.NewPointFlat(geom.XY, []float64{*lon, *lat}).SetSRID(4326)
	data, err := ewkb.Marshal(g, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "store: encode point EWKB")
	}
	return data, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
