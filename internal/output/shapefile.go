package output

import (
	"os"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"

	"github.com/fagan2888/bridge-data/internal/nbi"
)

// wgs84PRJ is written beside the shapefile so GIS tools pick up EPSG:4326.
const wgs84PRJ = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`

// DBF field names are limited to 10 characters.
var shapeFields = []shp.Field{
	shp.StringField("STRUCNUM", 15),
	shp.NumberField("YEAR", 4),
	shp.StringField("FIPS", 5),
	shp.StringField("COUNTY", 60),
	shp.StringField("CONDITION", 4),
	shp.NumberField("LOWEST", 2),
	shp.NumberField("NPOOR", 1),
	shp.StringField("SD", 1),
	shp.NumberField("ADT", 9),
}

// WriteShapefile writes one point per record with decoded coordinates.
// Records without a latitude or longitude are skipped and counted.
func WriteShapefile(path string, records []nbi.CleanRecord) (*Result, error) {
	w, err := shp.Create(path, shp.POINT)
	if err != nil {
		return nil, eris.Wrapf(err, "output: create shapefile %s", path)
	}
	defer w.Close()

	if err := w.SetFields(shapeFields); err != nil {
		return nil, eris.Wrap(err, "output: set shapefile fields")
	}

	res := &Result{Path: path}
	for i := range records {
		r := &records[i]
		if r.Latitude == nil || r.Longitude == nil {
			res.Skipped++
			continue
		}

		row := int(w.Write(&shp.Point{X: *r.Longitude, Y: *r.Latitude}))
		for field, v := range shapeAttributes(r) {
			if err := w.WriteAttribute(row, field, v); err != nil {
				return nil, eris.Wrapf(err, "output: write attribute %d for %s", field, r.StructureNumber)
			}
		}
		res.Rows++
	}

	prj := strings.TrimSuffix(path, ".shp") + ".prj"
	if err := os.WriteFile(prj, []byte(wgs84PRJ), 0o644); err != nil {
		return nil, eris.Wrapf(err, "output: write %s", prj)
	}
	return res, nil
}

// shapeAttributes returns DBF values in shapeFields order. Absent numbers
// are written as empty strings.
func shapeAttributes(r *nbi.CleanRecord) []any {
	lowest := any("")
	if r.LowestConditionRating != nil {
		lowest = *r.LowestConditionRating
	}
	adt := any("")
	if r.AvgDailyTraffic != nil {
		adt = int(*r.AvgDailyTraffic)
	}
	sd := "N"
	if r.StructDeficient {
		sd = "Y"
	}
	return []any{
		r.StructureNumber,
		r.Year,
		r.CombinedFIPS,
		r.CountyName,
		string(r.BridgeCondition),
		lowest,
		r.TotalPoorConditions,
		sd,
		adt,
	}
}
