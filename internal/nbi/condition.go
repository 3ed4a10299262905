package nbi

// Condition is the three-way bridge condition classification.
type Condition string

const (
	ConditionGood Condition = "Good"
	ConditionFair Condition = "Fair"
	ConditionPoor Condition = "Poor"
)

const (
	poorComponentMax = 4 // component rating at or below this is poor
	fairMin          = 5
	goodMin          = 7
	legacyAppraisal  = 2 // structural/waterway appraisal at or below this is deficient (legacy)
)

// Components holds the four structural component ratings; nil = not applicable.
type Components struct {
	Deck           *int
	Superstructure *int
	Substructure   *int
	Culvert        *int
}

// All returns the ratings in deck, superstructure, substructure, culvert order.
func (c Components) All() [4]*int {
	return [4]*int{c.Deck, c.Superstructure, c.Substructure, c.Culvert}
}

// IsPoor reports whether a rating is present and at most 4.
func IsPoor(r *int) bool {
	return r != nil && *r <= poorComponentMax
}

// Lowest returns the minimum present rating, or nil if none is present.
func (c Components) Lowest() *int {
	var low *int
	for _, r := range c.All() {
		if r == nil {
			continue
		}
		if low == nil || *r < *low {
			v := *r
			low = &v
		}
	}
	return low
}

// CountPoor returns how many present ratings are poor.
func (c Components) CountPoor() int {
	n := 0
	for _, r := range c.All() {
		if IsPoor(r) {
			n++
		}
	}
	return n
}

// StructDeficient is the current definition: any component rated poor.
func (c Components) StructDeficient() bool {
	return c.CountPoor() > 0
}

// StructDeficientLegacy adds the pre-2018 appraisal criteria: structural
// evaluation or waterway adequacy at most 2.
func (c Components) StructDeficientLegacy(structuralEval, waterway *int) bool {
	if c.StructDeficient() {
		return true
	}
	return atMost(structuralEval, legacyAppraisal) || atMost(waterway, legacyAppraisal)
}

func atMost(r *int, limit int) bool {
	return r != nil && *r <= limit
}

// Classify maps the lowest component rating to Good (≥7), Fair (5-6) or
// Poor (≤4). A nil rating yields "".
func Classify(lowest *int) Condition {
	switch {
	case lowest == nil:
		return ""
	case *lowest >= goodMin:
		return ConditionGood
	case *lowest >= fairMin:
		return ConditionFair
	default:
		return ConditionPoor
	}
}
