package pipeline

import (
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Dataset is one inventory year and the raw NBI file that holds it.
type Dataset struct {
	Year    int    `yaml:"year" mapstructure:"year"`
	RawPath string `yaml:"raw_path" mapstructure:"raw_path"`
}

// Name returns the year as a string.
func (d Dataset) Name() string { return strconv.Itoa(d.Year) }

// Registry maps inventory years to their datasets.
type Registry struct {
	datasets map[int]Dataset
	order    []int // insertion order for deterministic iteration
}

// NewRegistry creates a registry populated with the given datasets.
func NewRegistry(datasets ...Dataset) (*Registry, error) {
	r := &Registry{datasets: make(map[int]Dataset)}
	for _, d := range datasets {
		if err := r.Register(d); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a dataset. A year may be registered once.
func (r *Registry) Register(d Dataset) error {
	if d.Year <= 0 {
		return eris.Errorf("pipeline: invalid year %d", d.Year)
	}
	if d.RawPath == "" {
		return eris.Errorf("pipeline: year %d has no raw path", d.Year)
	}
	if _, ok := r.datasets[d.Year]; ok {
		return eris.Errorf("pipeline: year %d registered twice", d.Year)
	}
	r.datasets[d.Year] = d
	r.order = append(r.order, d.Year)
	return nil
}

// Get returns the dataset for a year.
func (r *Registry) Get(year int) (Dataset, error) {
	d, ok := r.datasets[year]
	if !ok {
		return Dataset{}, eris.Errorf("pipeline: unknown year %d (registered: %s)", year, r.yearList())
	}
	return d, nil
}

// Select returns the datasets for years, or all datasets when years is empty.
func (r *Registry) Select(years []int) ([]Dataset, error) {
	if len(years) == 0 {
		return r.All(), nil
	}
	result := make([]Dataset, 0, len(years))
	seen := make(map[int]bool, len(years))
	for _, y := range years {
		if seen[y] {
			continue
		}
		seen[y] = true
		d, err := r.Get(y)
		if err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, nil
}

// All returns all datasets in registration order.
func (r *Registry) All() []Dataset {
	result := make([]Dataset, 0, len(r.order))
	for _, y := range r.order {
		result = append(result, r.datasets[y])
	}
	return result
}

// Years returns the registered years in ascending order.
func (r *Registry) Years() []int {
	out := make([]int, len(r.order))
	copy(out, r.order)
	sort.Ints(out)
	return out
}

func (r *Registry) yearList() string {
	years := r.Years()
	parts := make([]string, len(years))
	for i, y := range years {
		parts[i] = strconv.Itoa(y)
	}
	return strings.Join(parts, ", ")
}
