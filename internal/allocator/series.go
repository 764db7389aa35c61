package allocator

import (
	"fmt"
	"sort"
	"sync"

	"shopseq/domain/core"
)

// Strategy selects how a series derives its next number
type Strategy string

const (
	// StrategyCounter increments a per-(tenant, series) counter row.
	StrategyCounter Strategy = "counter"
	// StrategyScan takes the series lock and scans existing records for the max suffix.
	StrategyScan Strategy = "scan"
)

// ParseStrategy validates a configured strategy name
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyCounter, StrategyScan:
		return Strategy(s), nil
	default:
		return "", fmt.Errorf("unknown sequence strategy %q", s)
	}
}

// Series describes where a series' identifiers live and how they are derived
type Series struct {
	Name     core.SeriesName
	Table    string
	Column   string
	Width    int
	Strategy Strategy
}

// Registry maps series names to their definitions. Table and column names are
// only ever taken from the registry, never from callers.
type Registry struct {
	mu     sync.RWMutex
	series map[core.SeriesName]Series
}

// Built-in series of the shop backend
const (
	SeriesJob       core.SeriesName = "JOB"
	SeriesPart      core.SeriesName = "PART"
	SeriesPurchase  core.SeriesName = "PUR"
	SeriesQuotation core.SeriesName = "QUO"
)

// NewRegistry returns a registry holding the built-in series
func NewRegistry(strategy Strategy, width int) *Registry {
	if width <= 0 {
		width = core.DefaultWidth
	}
	r := &Registry{series: make(map[core.SeriesName]Series)}
	for _, s := range []Series{
		{Name: SeriesJob, Table: "jobs", Column: "job_number"},
		{Name: SeriesPart, Table: "inventory_parts", Column: "part_number"},
		{Name: SeriesPurchase, Table: "purchases", Column: "purchase_number"},
		{Name: SeriesQuotation, Table: "quotations", Column: "quotation_number"},
	} {
		s.Width = width
		s.Strategy = strategy
		r.series[s.Name] = s
	}
	return r
}

// Register adds or replaces a series definition
func (r *Registry) Register(s Series) error {
	name, err := core.ParseSeriesName(string(s.Name))
	if err != nil {
		return err
	}
	if s.Table == "" || s.Column == "" {
		return fmt.Errorf("series %s: table and column are required", name)
	}
	if _, err := ParseStrategy(string(s.Strategy)); err != nil {
		return err
	}
	if s.Width <= 0 {
		s.Width = core.DefaultWidth
	}
	s.Name = name

	r.mu.Lock()
	defer r.mu.Unlock()
	r.series[name] = s
	return nil
}

// Lookup returns the definition of a series
func (r *Registry) Lookup(name core.SeriesName) (Series, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.series[name]
	if !ok {
		return Series{}, fmt.Errorf("%w: %s", core.ErrUnknownSeries, name)
	}
	return s, nil
}

// Names lists the registered series in alphabetical order
func (r *Registry) Names() []core.SeriesName {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]core.SeriesName, 0, len(r.series))
	for name := range r.series {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}
