package metrics

import "github.com/fagan2888/bridge-data/internal/nbi"

// componentNames labels the four structural components in Components.All order.
var componentNames = [4]string{"deck", "superstructure", "substructure", "culvert"}

// Summary holds the silent outcomes of transforming one year: absent
// ratings, county lookup misses and coded values with no label.
type Summary struct {
	Records       int
	FIPSMisses    int
	RatingAbsent  map[string]int // component -> count
	UnmappedCodes map[string]int // output field -> count
}

// Summarize counts outcomes for clean records and the raw records they were
// built from. raw may be nil, in which case unmapped codes are not counted.
func Summarize(clean []nbi.CleanRecord, raw []nbi.RawRecord) Summary {
	s := Summary{
		Records:       len(clean),
		RatingAbsent:  make(map[string]int),
		UnmappedCodes: make(map[string]int),
	}

	for i := range clean {
		r := &clean[i]
		if r.CountyName == "" {
			s.FIPSMisses++
		}
		for j, v := range r.Components().All() {
			if v == nil {
				s.RatingAbsent[componentNames[j]]++
			}
		}
	}

	if len(raw) != len(clean) {
		return s
	}
	tables := nbi.CodeTables()
	for i := range raw {
		for _, t := range tables {
			v := raw[i].CodedValue(t.Field)
			if t.Canonical(v) == "" {
				continue
			}
			if _, ok := t.Lookup(v); !ok {
				s.UnmappedCodes[t.Field]++
			}
		}
	}
	return s
}
