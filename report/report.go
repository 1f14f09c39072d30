// Package report generates the per-field resolution report: which strategy
// populated which field, with aggregate completeness statistics. Reports are
// derived purely from a record's provenance and the strategy registry; no
// additional computation or I/O happens here.
package report

import (
	"time"

	"github.com/c360studio/metacast/record"
	"github.com/c360studio/metacast/schema"
	"github.com/c360studio/metacast/strategy"
)

// FieldReport is one output field's resolution status.
type FieldReport struct {
	// Field is the output field name.
	Field string `json:"field"`

	// Strategy is the bound strategy's display name, or "" when no strategy
	// is bound.
	Strategy string `json:"strategy,omitempty"`

	// Value is the final resolved value.
	Value string `json:"value,omitempty"`

	// Empty reports whether the field ended the pass without a value.
	Empty bool `json:"empty"`

	// Origin classifies the value's source when populated.
	Origin record.Origin `json:"origin,omitempty"`

	// Source is the provenance detail (config level, source field, prompt
	// key, repair name).
	Source string `json:"source,omitempty"`

	// RawCompletion is the completion service's raw value before fallback
	// substitution, when the field went through the completion path.
	RawCompletion string `json:"raw_completion,omitempty"`
}

// StrategyStats aggregates fields by strategy kind.
type StrategyStats struct {
	Bound     int `json:"bound"`
	Populated int `json:"populated"`
}

// Stats are the aggregate statistics for one report.
type Stats struct {
	TotalFields  int     `json:"total_fields"`
	Populated    int     `json:"populated"`
	Empty        int     `json:"empty"`
	Unbound      int     `json:"unbound"`
	Completeness float64 `json:"completeness"`

	// ByKind breaks the bound fields down per strategy kind.
	ByKind map[string]StrategyStats `json:"by_kind"`
}

// Report enumerates every output field's resolution status for one item.
type Report struct {
	ItemID      string        `json:"item_id,omitempty"`
	GeneratedAt time.Time     `json:"generated_at"`
	Fields      []FieldReport `json:"fields"`
	Stats       Stats         `json:"stats"`
}

// Generate builds the report for a resolved record. The record is frozen:
// reporting is the last stage to touch it.
func Generate(itemID string, rec *record.Record, s *schema.Schema, reg *strategy.Registry) *Report {
	rec.Freeze()

	r := &Report{
		ItemID:      itemID,
		GeneratedAt: time.Now(),
		Stats: Stats{
			TotalFields: s.Len(),
			ByKind:      make(map[string]StrategyStats),
		},
	}

	for _, f := range s.Fields() {
		fr := FieldReport{Field: f.Name}

		var kind string
		if strat, ok := reg.Lookup(f.Name); ok {
			fr.Strategy = strat.Name()
			kind = string(strat.Kind)
		} else {
			r.Stats.Unbound++
		}

		value, present := rec.Get(f.Name)
		fr.Value = value
		fr.Empty = !present || value == ""

		if prov, ok := rec.Provenance(f.Name); ok && present {
			fr.Origin = prov.Origin
			fr.Source = prov.Source
			fr.RawCompletion = prov.RawCompletion
		}

		if fr.Empty {
			r.Stats.Empty++
		} else {
			r.Stats.Populated++
		}

		if kind != "" {
			ks := r.Stats.ByKind[kind]
			ks.Bound++
			if !fr.Empty {
				ks.Populated++
			}
			r.Stats.ByKind[kind] = ks
		}

		r.Fields = append(r.Fields, fr)
	}

	if r.Stats.TotalFields > 0 {
		r.Stats.Completeness = float64(r.Stats.Populated) / float64(r.Stats.TotalFields) * 100
	}

	return r
}
