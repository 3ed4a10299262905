package nbi

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/fagan2888/bridge-data/internal/fips"
)

// transformChunkSize is the number of records each worker maps per task.
const transformChunkSize = 2048

// Transform maps one raw record to its cleaned projection. It is pure: the
// output depends only on raw, year and the read-only lookup.
func Transform(raw RawRecord, year int, lookup fips.Lookup) CleanRecord {
	state := fips.NormalizeState(unquote(raw.StateCode))
	county := fips.NormalizeCounty(unquote(raw.CountyCode))
	combined := fips.Combine(state, county)
	countyName, _ := lookup.Name(combined)

	comp := Components{
		Deck:           ParseRating(raw.DeckCond),
		Superstructure: ParseRating(raw.SuperstructureCond),
		Substructure:   ParseRating(raw.SubstructureCond),
		Culvert:        ParseRating(raw.CulvertCond),
	}
	structEval := ParseRating(raw.StructuralEval)
	waterway := ParseRating(raw.WaterwayEval)
	lowest := comp.Lowest()
	month, yy := SplitInspectionDate(raw.DateOfInspect)

	return CleanRecord{
		Year:            year,
		StructureNumber: unquote(raw.StructureNumber),
		StateCode:       state,
		CountyCode:      county,
		CombinedFIPS:    combined,
		CountyName:      countyName,

		RouteType:                 RouteTable.Label(raw.RoutePrefix),
		ServiceLevel:              ServiceTable.Label(raw.ServiceLevel),
		MaintenanceResponsibility: MaintenanceTable.Label(raw.Maintenance),
		Owner:                     OwnerTable.Label(raw.Owner),
		HistoricalSignificance:    HistoryTable.Label(raw.History),
		OperationalStatus:         StatusTable.Label(raw.OpenClosedPosted),
		ScourCritical:             ScourTable.Label(raw.ScourCritical),
		WorkProposed:              WorkProposedTable.Label(raw.WorkProposed),
		WorkPerformer:             WorkPerformerTable.Label(raw.WorkDoneBy),

		DeckCondition:           comp.Deck,
		SuperstructureCondition: comp.Superstructure,
		SubstructureCondition:   comp.Substructure,
		CulvertCondition:        comp.Culvert,
		StructuralEvaluation:    structEval,
		WaterwayAdequacy:        waterway,

		DeckPoor:              IsPoor(comp.Deck),
		SuperstructurePoor:    IsPoor(comp.Superstructure),
		SubstructurePoor:      IsPoor(comp.Substructure),
		CulvertPoor:           IsPoor(comp.Culvert),
		StructDeficient:       comp.StructDeficient(),
		StructDeficientLegacy: comp.StructDeficientLegacy(structEval, waterway),
		LowestConditionRating: lowest,
		TotalPoorConditions:   comp.CountPoor(),
		BridgeCondition:       Classify(lowest),

		InspectionMonth: month,
		InspectionYear:  yy,

		YearBuilt:                 parseOptionalInt(raw.YearBuilt),
		YearReconstructed:         parseOptionalInt(raw.YearReconstructed),
		AvgDailyTraffic:           parseOptionalInt(raw.ADT),
		YearADT:                   parseOptionalInt(raw.YearADT),
		PctTruckTraffic:           parseOptionalInt(raw.PercentADTTruck),
		FutureAvgDailyTraffic:     parseOptionalInt(raw.FutureADT),
		YearFutureADT:             parseOptionalInt(raw.YearOfFutureADT),
		BridgeImprovementCost:     parseOptionalInt(raw.BridgeImpCost),
		RoadwayImprovementCost:    parseOptionalInt(raw.RoadwayImpCost),
		TotalImprovementCost:      parseOptionalInt(raw.TotalImpCost),
		YearOfImprovementEstimate: parseOptionalInt(raw.YearOfImp),

		Location:            CleanText(raw.Location),
		FeaturesIntersected: CleanText(raw.FeaturesDesc),
		FacilityCarried:     CleanText(raw.FacilityCarried),
		LatitudeDMS:         unquote(raw.Latitude),
		LongitudeDMS:        unquote(raw.Longitude),
		Latitude:            ParseLatitude(raw.Latitude),
		Longitude:           ParseLongitude(raw.Longitude),
	}
}

// TransformAll maps every raw record, preserving order. Work is split into
// chunks across up to workers goroutines; workers <= 1 runs inline.
func TransformAll(ctx context.Context, raws []RawRecord, year int, lookup fips.Lookup, workers int) ([]CleanRecord, error) {
	out := make([]CleanRecord, len(raws))

	if workers <= 1 {
		for i := range raws {
			if i%transformChunkSize == 0 && ctx.Err() != nil {
				return nil, ctx.Err()
			}
			out[i] = Transform(raws[i], year, lookup)
		}
		return out, nil
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for start := 0; start < len(raws); start += transformChunkSize {
		end := min(start+transformChunkSize, len(raws))
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			for i := start; i < end; i++ {
				out[i] = Transform(raws[i], year, lookup)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
