// Package stats computes grouped statistics over listing sequences.
package stats

import (
	"sort"

	"github.com/apimgr/idealista/src/model"
)

// UnknownKey is the group key for listings whose grouping field is missing
// or not a scalar.
const UnknownKey = "(unknown)"

// DefaultValueField is the numeric field aggregated when none is given.
const DefaultValueField = "price"

// Group holds the statistics for one distinct grouping-field value. Count
// is the number of listings that contributed a numeric value; listings
// missing the value field form the group but add no moments.
type Group struct {
	Key     string  `json:"key"`
	Count   int     `json:"count"`
	Sum     float64 `json:"sum"`
	Average float64 `json:"average"`
	Median  float64 `json:"median"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
}

// Result is a set of groups in first-seen key order.
type Result struct {
	GroupBy    string
	ValueField string

	order  []string
	groups map[string]*accumulator
}

type accumulator struct {
	values []float64
}

// Aggregate folds the listings into per-group statistics in a single pass.
// Sums are accumulated incrementally; averages and medians are computed
// once at the end.
func Aggregate(listings []model.Listing, groupBy, valueField string) *Result {
	if valueField == "" {
		valueField = DefaultValueField
	}

	r := &Result{
		GroupBy:    groupBy,
		ValueField: valueField,
		groups:     make(map[string]*accumulator),
	}

	for _, l := range listings {
		key := "all"
		if groupBy != "" {
			k, ok := l.Field(groupBy)
			if !ok {
				k = UnknownKey
			}
			key = k
		}

		acc, exists := r.groups[key]
		if !exists {
			acc = &accumulator{}
			r.groups[key] = acc
			r.order = append(r.order, key)
		}

		if v, ok := l.Number(valueField); ok {
			acc.values = append(acc.values, v)
		}
	}

	return r
}

// Keys returns the group keys in first-seen order.
func (r *Result) Keys() []string {
	keys := make([]string, len(r.order))
	copy(keys, r.order)
	return keys
}

// Group returns the statistics for one key, or nil when the key never
// appeared.
func (r *Result) Group(key string) *Group {
	acc, ok := r.groups[key]
	if !ok {
		return nil
	}
	return acc.finalize(key)
}

// Groups returns all groups in first-seen order.
func (r *Result) Groups() []*Group {
	out := make([]*Group, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.groups[key].finalize(key))
	}
	return out
}

// ByKey returns the groups as a map for JSON output.
func (r *Result) ByKey() map[string]*Group {
	out := make(map[string]*Group, len(r.order))
	for _, key := range r.order {
		out[key] = r.groups[key].finalize(key)
	}
	return out
}

func (a *accumulator) finalize(key string) *Group {
	g := &Group{Key: key, Count: len(a.values)}
	if g.Count == 0 {
		return g
	}

	g.Min = a.values[0]
	g.Max = a.values[0]
	for _, v := range a.values {
		g.Sum += v
		if v < g.Min {
			g.Min = v
		}
		if v > g.Max {
			g.Max = v
		}
	}
	g.Average = g.Sum / float64(g.Count)
	g.Median = median(a.values)
	return g
}

func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
