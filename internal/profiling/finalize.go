package profiling

import "datapipe/domain/profile"

// Finalize derives null percentages and means once every chunk has been
// folded, and returns the columns in first-seen order. Ratios with a zero
// denominator are left unset.
func (a *Accumulator) Finalize() []*profile.ColumnProfile {
	out := make([]*profile.ColumnProfile, 0, len(a.order))
	for _, name := range a.order {
		col := a.columns[name]

		col.NullPercentage = nil
		col.Mean = nil

		if col.TotalCount > 0 {
			pct := float64(col.NullCount) / float64(col.TotalCount) * 100
			col.NullPercentage = &pct
		}

		if col.IsNumeric() {
			if nonNull := col.NonNullCount(); nonNull > 0 {
				mean := col.Numeric.Sum / float64(nonNull)
				col.Mean = &mean
			}
		}

		col.DateDetected = !col.IsNumeric() && col.DateCandidate && col.NonNullCount() > 0

		out = append(out, col)
	}
	return out
}
