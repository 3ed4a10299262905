package fips

// Lookup maps a combined state+county code to a county display name.
// It is built once and never written afterwards, so concurrent readers
// need no locking.
type Lookup struct {
	names map[string]string
}

// NewLookup copies names into a new Lookup.
func NewLookup(names map[string]string) Lookup {
	m := make(map[string]string, len(names))
	for k, v := range names {
		m[k] = v
	}
	return Lookup{names: m}
}

// Name returns the county name for a combined code.
func (l Lookup) Name(combined string) (string, bool) {
	name, ok := l.names[combined]
	return name, ok
}

// Len returns the number of entries.
func (l Lookup) Len() int {
	return len(l.names)
}
