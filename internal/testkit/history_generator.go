package testkit

import (
	"fmt"
	"math/rand"
	"strings"

	"shopseq/domain/core"
)

// HistoryGeneratorConfig configures the identifier history generator
type HistoryGeneratorConfig struct {
	Tenants          []core.TenantID `json:"tenants"`
	Series           core.SeriesName `json:"series"`
	RecordsPerTenant int             `json:"records_per_tenant"`
	Width            int             `json:"width"`
	GapRate          float64         `json:"gap_rate"`
	MalformedRate    float64         `json:"malformed_rate"`
	Seed             int64           `json:"seed"`
}

// DefaultHistoryConfig returns a small mixed history for the JOB series
func DefaultHistoryConfig() HistoryGeneratorConfig {
	return HistoryGeneratorConfig{
		Tenants:          []core.TenantID{3, 7, 31},
		Series:           "JOB",
		RecordsPerTenant: 40,
		Width:            core.DefaultWidth,
		GapRate:          0.15,
		MalformedRate:    0.1,
		Seed:             42,
	}
}

// History is a generated set of pre-existing identifiers
type History struct {
	// Identifiers per tenant, in issue order, including malformed legacy codes
	Identifiers map[core.TenantID][]string
	// Highest well-formed suffix per tenant
	Max map[core.TenantID]int64
}

// Next returns the identifier an allocator must issue after the history
func (h *History) Next(tenant core.TenantID, series core.SeriesName, width int) core.Identifier {
	return core.FormatIdentifier(core.SeriesPrefix(tenant, series), h.Max[tenant]+1, width)
}

// HistoryGenerator produces realistic identifier histories: numbers with gaps left by
// deleted records, and legacy codes that share the prefix but are not well formed.
type HistoryGenerator struct {
	config HistoryGeneratorConfig
	rng    *rand.Rand
}

// NewHistoryGenerator creates a new history generator
func NewHistoryGenerator(config HistoryGeneratorConfig) *HistoryGenerator {
	if config.Width <= 0 {
		config.Width = core.DefaultWidth
	}
	return &HistoryGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// Generate builds the history. The same seed always yields the same history.
func (g *HistoryGenerator) Generate() *History {
	h := &History{
		Identifiers: make(map[core.TenantID][]string, len(g.config.Tenants)),
		Max:         make(map[core.TenantID]int64, len(g.config.Tenants)),
	}

	for _, tenant := range g.config.Tenants {
		prefix := core.SeriesPrefix(tenant, g.config.Series)
		var seq int64
		for i := 0; i < g.config.RecordsPerTenant; i++ {
			if g.rng.Float64() < g.config.MalformedRate {
				h.Identifiers[tenant] = append(h.Identifiers[tenant], g.malformed(prefix, i))
				continue
			}

			seq++
			// Skip a few numbers, as if records had been deleted.
			if g.rng.Float64() < g.config.GapRate {
				seq += int64(1 + g.rng.Intn(3))
			}
			h.Identifiers[tenant] = append(h.Identifiers[tenant], core.FormatIdentifier(prefix, seq, g.config.Width).String())
			h.Max[tenant] = seq
		}
	}
	return h
}

// malformed returns a legacy code sharing prefix that ParseSuffix must reject.
// Codes are unique per record index.
func (g *HistoryGenerator) malformed(prefix string, index int) string {
	switch g.rng.Intn(4) {
	case 0:
		return fmt.Sprintf("%s%d-A", prefix, index+1000)
	case 1:
		return fmt.Sprintf("%sX%03d", prefix, index)
	case 2:
		return fmt.Sprintf("%s %d", prefix, index+5000)
	default:
		return strings.ToLower(prefix) + fmt.Sprintf("%04d", index+9000)
	}
}
