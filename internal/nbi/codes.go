package nbi

import (
	"sort"
	"strings"
)

// NoWorkProposed is the label for work codes outside their table. Unlike
// other tables, an unknown work code means nothing is scheduled.
const NoWorkProposed = "no work proposed"

// CodeTable is a closed code → label mapping for one coded NBI item.
type CodeTable struct {
	Field    string            // output column the label is written to
	Item     string            // NBI coding guide item number
	Width    int               // canonical code width; numeric codes are zero-padded to it
	Labels   map[string]string // canonical code → label
	Fallback string            // label for codes outside Labels; "" = absent
}

// Lookup returns the label for a raw code. ok is false when the code is not
// in the table; label is then the table's fallback.
func (t CodeTable) Lookup(raw string) (label string, ok bool) {
	code := t.Canonical(raw)
	if code == "" {
		return t.Fallback, false
	}
	if l, found := t.Labels[code]; found {
		return l, true
	}
	return t.Fallback, false
}

// Label returns only the label from Lookup.
func (t CodeTable) Label(raw string) string {
	l, _ := t.Lookup(raw)
	return l
}

// Canonical normalizes a raw code: quotes and blanks trimmed, letters
// upper-cased, numeric codes zero-padded (or zero-trimmed) to Width.
func (t CodeTable) Canonical(raw string) string {
	code := strings.ToUpper(unquote(raw))
	code = dropZeroFraction(code)
	if code == "" || !isDigits(code) {
		return code
	}
	for len(code) > t.Width && code[0] == '0' {
		code = code[1:]
	}
	if len(code) < t.Width {
		code = strings.Repeat("0", t.Width-len(code)) + code
	}
	return code
}

// Codes returns the table's codes in sorted order.
func (t CodeTable) Codes() []string {
	out := make([]string, 0, len(t.Labels))
	for c := range t.Labels {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// agencyLabels covers both the maintenance (item 21) and owner (item 22) codes.
var agencyLabels = map[string]string{
	"01": "state highway agency",
	"02": "county highway agency",
	"03": "town or township highway agency",
	"04": "city or municipal highway agency",
	"11": "state park, forest, or reservation agency",
	"12": "local park, forest, or reservation agency",
	"21": "other state agencies",
	"25": "other local agencies",
	"26": "private (other than railroad)",
	"27": "railroad",
	"31": "state toll authority",
	"32": "local toll authority",
	"60": "other federal agencies",
	"61": "indian tribal government",
	"62": "bureau of indian affairs",
	"63": "bureau of fish and wildlife",
	"64": "u.s. forest service",
	"66": "national park service",
	"67": "tennessee valley authority",
	"68": "bureau of land management",
	"69": "bureau of reclamation",
	"70": "corps of engineers (civil)",
	"71": "corps of engineers (military)",
	"72": "air force",
	"73": "navy/marines",
	"74": "army",
	"75": "nasa",
	"76": "metropolitan washington airports service",
	"80": "unknown",
}

var (
	// MaintenanceTable decodes item 21, the agency responsible for maintenance.
	MaintenanceTable = CodeTable{
		Field:  "maintenance_responsibility",
		Item:   "021",
		Width:  2,
		Labels: agencyLabels,
	}

	// OwnerTable decodes item 22, the owning agency.
	OwnerTable = CodeTable{
		Field:  "owner",
		Item:   "022",
		Width:  2,
		Labels: agencyLabels,
	}

	// HistoryTable decodes item 37, historical significance.
	HistoryTable = CodeTable{
		Field: "historical_significance",
		Item:  "037",
		Width: 1,
		Labels: map[string]string{
			"1": "on the national register of historic places",
			"2": "eligible for the national register of historic places",
			"3": "possibly eligible for the national register",
			"4": "historical significance not determinable",
			"5": "not eligible for the national register",
		},
	}

	// StatusTable decodes item 41, open/posted/closed status.
	StatusTable = CodeTable{
		Field: "operational_status",
		Item:  "041",
		Width: 1,
		Labels: map[string]string{
			"A": "open, no restriction",
			"B": "open, posting recommended but not legally implemented",
			"D": "open, would be posted or closed except for temporary shoring",
			"E": "open, temporary structure in place",
			"G": "new structure not yet open to traffic",
			"K": "closed to all traffic",
			"P": "posted for load",
			"R": "posted for other load-capacity restriction",
		},
	}

	// ScourTable decodes item 113, scour critical bridges.
	ScourTable = CodeTable{
		Field: "scour_critical",
		Item:  "113",
		Width: 1,
		Labels: map[string]string{
			"N": "not over waterway",
			"U": "unknown foundation",
			"T": "tidal waters, not evaluated for scour",
			"0": "scour critical, failed and closed to traffic",
			"1": "scour critical, failure imminent",
			"2": "scour critical, extensive scour has occurred",
			"3": "scour critical, foundations unstable",
			"4": "stable, action required to protect exposed foundations",
			"5": "stable, scour within limits of footings or piles",
			"6": "scour evaluation not made",
			"7": "countermeasures installed for a previous scour problem",
			"8": "stable, scour above top of footing",
			"9": "foundations on dry land above flood elevations",
		},
	}

	// RouteTable decodes item 5B, the route signing prefix.
	RouteTable = CodeTable{
		Field: "route_type",
		Item:  "005B",
		Width: 1,
		Labels: map[string]string{
			"1": "interstate highway",
			"2": "u.s. numbered highway",
			"3": "state highway",
			"4": "county highway",
			"5": "city street",
			"6": "federal lands road",
			"7": "state lands road",
			"8": "other",
		},
	}

	// ServiceTable decodes item 5C, the designated level of service.
	ServiceTable = CodeTable{
		Field: "service_level",
		Item:  "005C",
		Width: 1,
		Labels: map[string]string{
			"0": "none",
			"1": "mainline",
			"2": "alternate",
			"3": "bypass",
			"4": "spur",
			"6": "business",
			"7": "ramp, wye, connector",
			"8": "service or unclassified frontage road",
		},
	}

	// WorkProposedTable decodes item 75A, the type of work proposed.
	WorkProposedTable = CodeTable{
		Field: "work_proposed",
		Item:  "075A",
		Width: 2,
		Labels: map[string]string{
			"31": "replacement for substandard load capacity or geometry",
			"32": "replacement due to road relocation",
			"33": "widening without deck rehabilitation or replacement",
			"34": "widening with deck rehabilitation or replacement",
			"35": "rehabilitation for general deterioration or inadequate strength",
			"36": "deck rehabilitation with incidental widening",
			"37": "deck replacement with incidental widening",
			"38": "other structural work",
		},
		Fallback: NoWorkProposed,
	}

	// WorkPerformerTable decodes item 75B, who performs the proposed work.
	WorkPerformerTable = CodeTable{
		Field: "work_performer",
		Item:  "075B",
		Width: 1,
		Labels: map[string]string{
			"1": "contract",
			"2": "owner's forces",
		},
		Fallback: NoWorkProposed,
	}
)

// CodeTables returns every recoding table in output column order.
func CodeTables() []CodeTable {
	return []CodeTable{
		RouteTable,
		ServiceTable,
		MaintenanceTable,
		OwnerTable,
		HistoryTable,
		StatusTable,
		ScourTable,
		WorkProposedTable,
		WorkPerformerTable,
	}
}

// CodeTableByField returns the table writing to the given output column.
func CodeTableByField(field string) (CodeTable, bool) {
	for _, t := range CodeTables() {
		if t.Field == field {
			return t, true
		}
	}
	return CodeTable{}, false
}
