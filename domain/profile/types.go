// Package profile holds the statistical summary of a single CSV file: a
// small-sample analysis plus a full-scan aggregate per column.
package profile

import (
	"encoding/json"
	"sort"
)

// Profile is the full statistical summary of one CSV file. It is built fresh
// for every file and never persisted. A Profile with no columns means
// profiling failed and the file should be skipped.
type Profile struct {
	Columns        []string                  `json:"columns"`
	SampleAnalysis map[string]SampleAnalysis `json:"sample_analysis"`
	FullProfile    []*ColumnProfile          `json:"-"`
}

// SampleAnalysis describes one column as seen in the first few rows only. It
// is not reconciled with the full-scan aggregate.
type SampleAnalysis struct {
	InferredType         string   `json:"inferred_type"`
	UniqueValuesInSample int      `json:"unique_values_in_sample"`
	SampleValues         []string `json:"sample_values"`
}

// NumericStats is the running numeric state of a column. Count is the number
// of values folded in so far; Min and Max are meaningless while it is zero.
type NumericStats struct {
	Min   float64
	Max   float64
	Sum   float64
	Count int64
}

// ColumnProfile is the per-column accumulator folded across all chunks of a
// file, plus the statistics derived from it at finalization.
type ColumnProfile struct {
	Name       string
	TotalCount int64
	NullCount  int64

	// Distinct holds every observed non-null value. It is unbounded.
	Distinct map[string]struct{}

	// Numeric is nil once the column has seen a value that does not coerce
	// to a number. It never becomes non-nil again.
	Numeric *NumericStats

	// DateCandidate stays true while every non-null value parses as a date.
	DateCandidate bool
	DateDetected  bool

	// MaxLength is the longest non-null value in runes.
	MaxLength int

	// Set by finalization; nil when the denominator was zero.
	NullPercentage *float64
	Mean           *float64
}

// NewColumnProfile returns an empty accumulator for a column
func NewColumnProfile(name string) *ColumnProfile {
	return &ColumnProfile{
		Name:          name,
		Distinct:      make(map[string]struct{}),
		Numeric:       &NumericStats{},
		DateCandidate: true,
	}
}

// IsNumeric reports whether the column is still treated as numeric
func (c *ColumnProfile) IsNumeric() bool {
	return c.Numeric != nil
}

// MarkNonNumeric drops numeric tracking for good
func (c *ColumnProfile) MarkNonNumeric() {
	c.Numeric = nil
}

// DistinctValues returns the distinct values in sorted order
func (c *ColumnProfile) DistinctValues() []string {
	values := make([]string, 0, len(c.Distinct))
	for v := range c.Distinct {
		values = append(values, v)
	}
	sort.Strings(values)
	return values
}

// Min returns the running minimum when the column is numeric and has values
func (c *ColumnProfile) Min() (float64, bool) {
	if c.Numeric == nil || c.Numeric.Count == 0 {
		return 0, false
	}
	return c.Numeric.Min, true
}

// Max returns the running maximum when the column is numeric and has values
func (c *ColumnProfile) Max() (float64, bool) {
	if c.Numeric == nil || c.Numeric.Count == 0 {
		return 0, false
	}
	return c.Numeric.Max, true
}

// Sum returns the running sum when the column is numeric
func (c *ColumnProfile) Sum() (float64, bool) {
	if c.Numeric == nil {
		return 0, false
	}
	return c.Numeric.Sum, true
}

// NonNullCount is the number of non-null cells seen
func (c *ColumnProfile) NonNullCount() int64 {
	return c.TotalCount - c.NullCount
}

// Empty returns the profile of a file that could not be profiled
func Empty() *Profile {
	return &Profile{
		Columns:        []string{},
		SampleAnalysis: map[string]SampleAnalysis{},
		FullProfile:    []*ColumnProfile{},
	}
}

// IsEmpty reports whether profiling failed for this file
func (p *Profile) IsEmpty() bool {
	return p == nil || len(p.Columns) == 0
}

// Column looks up a column of the full profile by name
func (p *Profile) Column(name string) (*ColumnProfile, bool) {
	if p == nil {
		return nil, false
	}
	for _, c := range p.FullProfile {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// ColumnSummary is the serialized form of a ColumnProfile
type ColumnSummary struct {
	TotalCount     int64    `json:"total_count"`
	NullCount      int64    `json:"null_count"`
	NullPercentage *float64 `json:"null_percentage"`
	UniqueCount    int      `json:"unique_count"`
	UniqueValues   []string `json:"unique_values"`
	Numeric        bool     `json:"numeric"`
	Min            *float64 `json:"min,omitempty"`
	Max            *float64 `json:"max,omitempty"`
	Sum            *float64 `json:"sum,omitempty"`
	Mean           *float64 `json:"mean,omitempty"`
	DateDetected   bool     `json:"date_detected"`
}

// Summary converts the column to its serialized form. maxValues caps the
// number of distinct values listed; zero or less lists all of them.
func (c *ColumnProfile) Summary(maxValues int) ColumnSummary {
	values := c.DistinctValues()
	if maxValues > 0 && len(values) > maxValues {
		values = values[:maxValues]
	}

	s := ColumnSummary{
		TotalCount:     c.TotalCount,
		NullCount:      c.NullCount,
		NullPercentage: c.NullPercentage,
		UniqueCount:    len(c.Distinct),
		UniqueValues:   values,
		Numeric:        c.IsNumeric(),
		Mean:           c.Mean,
		DateDetected:   c.DateDetected,
	}
	if v, ok := c.Min(); ok {
		s.Min = &v
	}
	if v, ok := c.Max(); ok {
		s.Max = &v
	}
	if v, ok := c.Sum(); ok {
		s.Sum = &v
	}
	return s
}

// Summary is the serialized form of a Profile
type Summary struct {
	Columns        []string                  `json:"columns"`
	SampleAnalysis map[string]SampleAnalysis `json:"sample_analysis"`
	FullProfile    map[string]ColumnSummary  `json:"full_profile"`
}

// Summarize converts the profile to its serialized form. Distinct values
// are sorted so the same file always serializes identically.
func (p *Profile) Summarize(maxValues int) Summary {
	s := Summary{
		Columns:        []string{},
		SampleAnalysis: map[string]SampleAnalysis{},
		FullProfile:    map[string]ColumnSummary{},
	}
	if p == nil {
		return s
	}
	s.Columns = append(s.Columns, p.Columns...)
	for k, v := range p.SampleAnalysis {
		s.SampleAnalysis[k] = v
	}
	for _, c := range p.FullProfile {
		s.FullProfile[c.Name] = c.Summary(maxValues)
	}
	return s
}

// MarshalJSON serializes the full profile, distinct values included
func (p *Profile) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Summarize(0))
}
