package output

import (
	"io"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/ipc"
	"github.com/apache/arrow/go/v18/arrow/memory"
	"github.com/rotisserie/eris"

	"github.com/fagan2888/bridge-data/internal/nbi"
)

// arrowBatchSize bounds the rows held in one record batch.
const arrowBatchSize = 65536

// arrowColumn maps one CleanRecord field to a typed Arrow column.
type arrowColumn struct {
	name   string
	typ    arrow.DataType
	append func(b array.Builder, r *nbi.CleanRecord)
}

func stringColumn(name string, get func(r *nbi.CleanRecord) string) arrowColumn {
	return arrowColumn{name: name, typ: arrow.BinaryTypes.String, append: func(b array.Builder, r *nbi.CleanRecord) {
		v := get(r)
		if v == "" {
			b.AppendNull()
			return
		}
		b.(*array.StringBuilder).Append(v)
	}}
}

func intColumn(name string, get func(r *nbi.CleanRecord) int) arrowColumn {
	return arrowColumn{name: name, typ: arrow.PrimitiveTypes.Int32, append: func(b array.Builder, r *nbi.CleanRecord) {
		b.(*array.Int32Builder).Append(int32(get(r)))
	}}
}

func ratingColumn(name string, get func(r *nbi.CleanRecord) *int) arrowColumn {
	return arrowColumn{name: name, typ: arrow.PrimitiveTypes.Int32, append: func(b array.Builder, r *nbi.CleanRecord) {
		v := get(r)
		if v == nil {
			b.AppendNull()
			return
		}
		b.(*array.Int32Builder).Append(int32(*v))
	}}
}

func int64Column(name string, get func(r *nbi.CleanRecord) *int64) arrowColumn {
	return arrowColumn{name: name, typ: arrow.PrimitiveTypes.Int64, append: func(b array.Builder, r *nbi.CleanRecord) {
		v := get(r)
		if v == nil {
			b.AppendNull()
			return
		}
		b.(*array.Int64Builder).Append(*v)
	}}
}

func floatColumn(name string, get func(r *nbi.CleanRecord) *float64) arrowColumn {
	return arrowColumn{name: name, typ: arrow.PrimitiveTypes.Float64, append: func(b array.Builder, r *nbi.CleanRecord) {
		v := get(r)
		if v == nil {
			b.AppendNull()
			return
		}
		b.(*array.Float64Builder).Append(*v)
	}}
}

func boolColumn(name string, get func(r *nbi.CleanRecord) bool) arrowColumn {
	return arrowColumn{name: name, typ: arrow.FixedWidthTypes.Boolean, append: func(b array.Builder, r *nbi.CleanRecord) {
		b.(*array.BooleanBuilder).Append(get(r))
	}}
}

// arrowColumns follows the CSV column order of nbi.Columns.
var arrowColumns = []arrowColumn{
	intColumn("year", func(r *nbi.CleanRecord) int { return r.Year }),
	stringColumn("structure_number", func(r *nbi.CleanRecord) string { return r.StructureNumber }),
	stringColumn("state_code", func(r *nbi.CleanRecord) string { return r.StateCode }),
	stringColumn("county_code", func(r *nbi.CleanRecord) string { return r.CountyCode }),
	stringColumn("combined_fips", func(r *nbi.CleanRecord) string { return r.CombinedFIPS }),
	stringColumn("county_name", func(r *nbi.CleanRecord) string { return r.CountyName }),

	stringColumn("route_type", func(r *nbi.CleanRecord) string { return r.RouteType }),
	stringColumn("service_level", func(r *nbi.CleanRecord) string { return r.ServiceLevel }),
	stringColumn("maintenance_responsibility", func(r *nbi.CleanRecord) string { return r.MaintenanceResponsibility }),
	stringColumn("owner", func(r *nbi.CleanRecord) string { return r.Owner }),
	stringColumn("historical_significance", func(r *nbi.CleanRecord) string { return r.HistoricalSignificance }),
	stringColumn("operational_status", func(r *nbi.CleanRecord) string { return r.OperationalStatus }),
	stringColumn("scour_critical", func(r *nbi.CleanRecord) string { return r.ScourCritical }),
	stringColumn("work_proposed", func(r *nbi.CleanRecord) string { return r.WorkProposed }),
	stringColumn("work_performer", func(r *nbi.CleanRecord) string { return r.WorkPerformer }),

	ratingColumn("deck_condition", func(r *nbi.CleanRecord) *int { return r.DeckCondition }),
	ratingColumn("superstructure_condition", func(r *nbi.CleanRecord) *int { return r.SuperstructureCondition }),
	ratingColumn("substructure_condition", func(r *nbi.CleanRecord) *int { return r.SubstructureCondition }),
	ratingColumn("culvert_condition", func(r *nbi.CleanRecord) *int { return r.CulvertCondition }),
	ratingColumn("structural_evaluation", func(r *nbi.CleanRecord) *int { return r.StructuralEvaluation }),
	ratingColumn("waterway_adequacy", func(r *nbi.CleanRecord) *int { return r.WaterwayAdequacy }),

	boolColumn("deck_poor", func(r *nbi.CleanRecord) bool { return r.DeckPoor }),
	boolColumn("superstructure_poor", func(r *nbi.CleanRecord) bool { return r.SuperstructurePoor }),
	boolColumn("substructure_poor", func(r *nbi.CleanRecord) bool { return r.SubstructurePoor }),
	boolColumn("culvert_poor", func(r *nbi.CleanRecord) bool { return r.CulvertPoor }),
	boolColumn("struct_deficient", func(r *nbi.CleanRecord) bool { return r.StructDeficient }),
	boolColumn("struct_deficient_legacy", func(r *nbi.CleanRecord) bool { return r.StructDeficientLegacy }),
	ratingColumn("lowest_condition_rating", func(r *nbi.CleanRecord) *int { return r.LowestConditionRating }),
	intColumn("total_poor_conditions", func(r *nbi.CleanRecord) int { return r.TotalPoorConditions }),
	stringColumn("bridge_condition", func(r *nbi.CleanRecord) string { return string(r.BridgeCondition) }),

	stringColumn("inspection_month", func(r *nbi.CleanRecord) string { return r.InspectionMonth }),
	stringColumn("inspection_year", func(r *nbi.CleanRecord) string { return r.InspectionYear }),

	int64Column("year_built", func(r *nbi.CleanRecord) *int64 { return r.YearBuilt }),
	int64Column("year_reconstructed", func(r *nbi.CleanRecord) *int64 { return r.YearReconstructed }),
	int64Column("avg_daily_traffic", func(r *nbi.CleanRecord) *int64 { return r.AvgDailyTraffic }),
	int64Column("year_adt", func(r *nbi.CleanRecord) *int64 { return r.YearADT }),
	int64Column("pct_truck_traffic", func(r *nbi.CleanRecord) *int64 { return r.PctTruckTraffic }),
	int64Column("future_avg_daily_traffic", func(r *nbi.CleanRecord) *int64 { return r.FutureAvgDailyTraffic }),
	int64Column("year_future_adt", func(r *nbi.CleanRecord) *int64 { return r.YearFutureADT }),
	int64Column("bridge_improvement_cost", func(r *nbi.CleanRecord) *int64 { return r.BridgeImprovementCost }),
	int64Column("roadway_improvement_cost", func(r *nbi.CleanRecord) *int64 { return r.RoadwayImprovementCost }),
	int64Column("total_improvement_cost", func(r *nbi.CleanRecord) *int64 { return r.TotalImprovementCost }),
	int64Column("year_of_improvement_estimate", func(r *nbi.CleanRecord) *int64 { return r.YearOfImprovementEstimate }),

	stringColumn("location", func(r *nbi.CleanRecord) string { return r.Location }),
	stringColumn("features_intersected", func(r *nbi.CleanRecord) string { return r.FeaturesIntersected }),
	stringColumn("facility_carried", func(r *nbi.CleanRecord) string { return r.FacilityCarried }),
	stringColumn("latitude_dms", func(r *nbi.CleanRecord) string { return r.LatitudeDMS }),
	stringColumn("longitude_dms", func(r *nbi.CleanRecord) string { return r.LongitudeDMS }),
	floatColumn("latitude", func(r *nbi.CleanRecord) *float64 { return r.Latitude }),
	floatColumn("longitude", func(r *nbi.CleanRecord) *float64 { return r.Longitude }),
}

// ArrowSchema returns the schema used for Arrow output. Every column except
// year, the flags and total_poor_conditions is nullable; empty strings are
// written as nulls.
func ArrowSchema() *arrow.Schema {
	fields := make([]arrow.Field, len(arrowColumns))
	for i, c := range arrowColumns {
		nullable := true
		switch c.typ.ID() {
		case arrow.BOOL:
			nullable = false
		case arrow.INT32:
			nullable = c.name != "year" && c.name != "total_poor_conditions"
		}
		fields[i] = arrow.Field{Name: c.name, Type: c.typ, Nullable: nullable}
	}
	return arrow.NewSchema(fields, nil)
}

// WriteArrow writes records as an Arrow IPC file in batches.
func WriteArrow(w io.Writer, records []nbi.CleanRecord, mem memory.Allocator) error {
	schema := ArrowSchema()

	fw, err := ipc.NewFileWriter(w, ipc.WithSchema(schema), ipc.WithAllocator(mem))
	if err != nil {
		return eris.Wrap(err, "output: create arrow writer")
	}

	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	for start := 0; start < len(records); start += arrowBatchSize {
		end := min(start+arrowBatchSize, len(records))
		for i := start; i < end; i++ {
			for j, c := range arrowColumns {
				c.append(b.Field(j), &records[i])
			}
		}

		rec := b.NewRecord()
		err := fw.Write(rec)
		rec.Release()
		if err != nil {
			_ = fw.Close()
			return eris.Wrapf(err, "output: write arrow batch at row %d", start)
		}
	}

	if err := fw.Close(); err != nil {
		return eris.Wrap(err, "output: close arrow writer")
	}
	return nil
}
