// Package features turns merged sessions into the numeric vectors the model
// consumes and keeps the feature list that makes those vectors portable
// across training and scoring.
package features

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/AllahuRodrigues/truffle-pig-dashboard/internal/domain"
)

var (
	// ErrDuplicateFeature indicates a feature list names the same feature
	// twice.
	ErrDuplicateFeature = errors.New("duplicate feature name")

	// ErrFeatureMismatch indicates a vector or feature list does not match
	// the schema it is used against.
	ErrFeatureMismatch = errors.New("feature mismatch")
)

// missingCategory is the reserved category a group falls back to when the
// underlying value is absent. Each one-hot group carries a trailing
// "<column>_missing" flag.
const missingCategory = "missing"

// numericNames are the leading numeric features, in vector order.
var numericNames = []string{"spend", "hour_of_day", "day_of_week", "month"}

// categoricalColumns are the one-hot encoded columns, in vector order.
var categoricalColumns = []string{
	"utm_source", "utm_medium",
	"creative_format", "creative_theme", "effectiveness_tier",
}

func columnValue(m *domain.MergedSession, col string) string {
	switch col {
	case "utm_source":
		return m.UTMSource
	case "utm_medium":
		return m.UTMMedium
	case "creative_format":
		return m.CreativeFormat
	case "creative_theme":
		return m.CreativeTheme
	case "effectiveness_tier":
		return m.EffectivenessTier
	}
	return ""
}

// Encoder maps merged sessions to fixed-width numeric vectors. Categories
// are discovered once at Fit and frozen; rows seen later with categories the
// encoder never saw encode as all zeros within that group.
type Encoder struct {
	categories map[string][]string
	names      []string
	index      map[string]int
}

// Fit discovers the categorical vocabulary from the given sessions and
// returns an encoder with a frozen feature list. Categories within each
// group are sorted lexicographically and followed by the group's missing
// flag.
func Fit(sessions []domain.MergedSession) (*Encoder, error) {
	seen := make(map[string]map[string]struct{}, len(categoricalColumns))
	for _, col := range categoricalColumns {
		seen[col] = make(map[string]struct{})
	}
	for i := range sessions {
		for _, col := range categoricalColumns {
			v := columnValue(&sessions[i], col)
			if v == "" || v == missingCategory {
				continue
			}
			seen[col][v] = struct{}{}
		}
	}

	categories := make(map[string][]string, len(categoricalColumns))
	for _, col := range categoricalColumns {
		cats := make([]string, 0, len(seen[col]))
		for v := range seen[col] {
			cats = append(cats, v)
		}
		sort.Strings(cats)
		categories[col] = cats
	}
	return newEncoder(categories)
}

func newEncoder(categories map[string][]string) (*Encoder, error) {
	names := make([]string, 0, len(numericNames))
	names = append(names, numericNames...)
	for _, col := range categoricalColumns {
		for _, cat := range categories[col] {
			names = append(names, col+"_"+cat)
		}
		names = append(names, col+"_"+missingCategory)
	}

	index := make(map[string]int, len(names))
	for i, name := range names {
		if _, ok := index[name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateFeature, name)
		}
		index[name] = i
	}
	return &Encoder{categories: categories, names: names, index: index}, nil
}

// FromNames rebuilds an encoder from a persisted feature list, preserving
// the list's order exactly.
func FromNames(names []string) (*Encoder, error) {
	if err := checkUnique(names); err != nil {
		return nil, err
	}

	rest := names
	for _, want := range numericNames {
		if len(rest) == 0 || rest[0] != want {
			return nil, fmt.Errorf("%w: expected numeric feature %q", ErrFeatureMismatch, want)
		}
		rest = rest[1:]
	}

	categories := make(map[string][]string, len(categoricalColumns))
	for _, col := range categoricalColumns {
		prefix := col + "_"
		group := make([]string, 0)
		closed := false
		for len(rest) > 0 && strings.HasPrefix(rest[0], prefix) {
			cat := strings.TrimPrefix(rest[0], prefix)
			rest = rest[1:]
			if cat == missingCategory {
				closed = true
				break
			}
			group = append(group, cat)
		}
		if !closed {
			return nil, fmt.Errorf("%w: group %q not terminated by its missing flag", ErrFeatureMismatch, col)
		}
		categories[col] = group
	}
	if len(rest) > 0 {
		return nil, fmt.Errorf("%w: unrecognized feature %q", ErrFeatureMismatch, rest[0])
	}

	enc, err := newEncoder(categories)
	if err != nil {
		return nil, err
	}
	return enc, nil
}

func checkUnique(names []string) error {
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, ok := seen[name]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateFeature, name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// FeatureNames returns a copy of the frozen feature list.
func (e *Encoder) FeatureNames() []string {
	out := make([]string, len(e.names))
	copy(out, e.names)
	return out
}

// Width returns the length of encoded vectors.
func (e *Encoder) Width() int {
	return len(e.names)
}

// TransformOne encodes a single merged session.
func (e *Encoder) TransformOne(m *domain.MergedSession) []float64 {
	x := make([]float64, len(e.names))
	x[0] = m.Spend
	x[1] = float64(m.Start.Hour())
	x[2] = float64((int(m.Start.Weekday()) + 6) % 7) // Monday = 0
	x[3] = float64(int(m.Start.Month()))

	for _, col := range categoricalColumns {
		v := columnValue(m, col)
		if v == "" {
			v = missingCategory
		}
		if i, ok := e.index[col+"_"+v]; ok {
			x[i] = 1
		}
	}
	return x
}

// Transform encodes sessions into a design matrix and its label vector.
func (e *Encoder) Transform(sessions []domain.MergedSession) ([][]float64, []float64) {
	x := make([][]float64, len(sessions))
	y := make([]float64, len(sessions))
	for i := range sessions {
		x[i] = e.TransformOne(&sessions[i])
		y[i] = sessions[i].Label()
	}
	return x, y
}

// Align reorders the vector x, laid out as from, into the layout of to.
// Features absent from the source are filled with zero and features absent
// from the target are dropped. The persisted target list is authoritative.
func Align(x []float64, from, to []string) ([]float64, error) {
	if len(x) != len(from) {
		return nil, fmt.Errorf("%w: vector has %d values for %d features", ErrFeatureMismatch, len(x), len(from))
	}
	if err := checkUnique(from); err != nil {
		return nil, err
	}
	if err := checkUnique(to); err != nil {
		return nil, err
	}

	byName := make(map[string]float64, len(from))
	for i, name := range from {
		byName[name] = x[i]
	}
	out := make([]float64, len(to))
	for i, name := range to {
		out[i] = byName[name]
	}
	return out, nil
}
