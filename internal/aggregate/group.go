// Package aggregate reduces fetched record lists into grouped totals, rankings
// and heatmaps. Every function is pure and works on in-memory slices.
package aggregate

import "github.com/shopspring/decimal"

// Totals holds the accumulated values for one group.
type Totals struct {
	Count int
	Sums  map[string]decimal.Decimal
}

// Sum returns the accumulated value for the named sum, zero when absent.
func (t *Totals) Sum(name string) decimal.Decimal {
	if t == nil || t.Sums == nil {
		return decimal.Zero
	}
	return t.Sums[name]
}

// Accumulator folds one record into a group's totals.
type Accumulator[T any] struct {
	name  string
	apply func(*Totals, T)
}

// Name identifies the accumulator.
func (a Accumulator[T]) Name() string {
	return a.name
}

// Count increments the group counter once per record.
func Count[T any]() Accumulator[T] {
	return Accumulator[T]{
		name:  "count",
		apply: func(t *Totals, _ T) { t.Count++ },
	}
}

// Sum adds field(record) into the named sum.
func Sum[T any](name string, field func(T) decimal.Decimal) Accumulator[T] {
	return Accumulator[T]{
		name: name,
		apply: func(t *Totals, rec T) {
			if t.Sums == nil {
				t.Sums = make(map[string]decimal.Decimal)
			}
			t.Sums[name] = t.Sums[name].Add(field(rec))
		},
	}
}

// SumIf adds field(record) into the named sum only when keep(record) holds.
func SumIf[T any](name string, keep func(T) bool, field func(T) decimal.Decimal) Accumulator[T] {
	return Accumulator[T]{
		name: name,
		apply: func(t *Totals, rec T) {
			if t.Sums == nil {
				t.Sums = make(map[string]decimal.Decimal)
			}
			current := t.Sums[name]
			if keep(rec) {
				current = current.Add(field(rec))
			}
			t.Sums[name] = current
		},
	}
}

// GroupBy buckets records by key and applies every accumulator to each bucket.
// Records for which key reports false (missing key) are skipped. The order of the
// returned map carries no meaning; callers rank it explicitly.
func GroupBy[T any, K comparable](records []T, key func(T) (K, bool), accs ...Accumulator[T]) map[K]*Totals {
	out := make(map[K]*Totals)
	for _, rec := range records {
		k, ok := key(rec)
		if !ok {
			continue
		}
		totals, exists := out[k]
		if !exists {
			totals = &Totals{}
			out[k] = totals
		}
		for _, acc := range accs {
			acc.apply(totals, rec)
		}
	}
	return out
}

// StringKey adapts a string field into a GroupBy key, treating blank values as missing.
func StringKey[T any](field func(T) string) func(T) (string, bool) {
	return func(rec T) (string, bool) {
		v := field(rec)
		return v, v != ""
	}
}
