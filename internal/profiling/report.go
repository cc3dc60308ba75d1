package profiling

import (
	"fmt"
	"strconv"
	"strings"

	"datapipe/domain/profile"
)

// GenerateReport renders a finalized profile as human-readable text, one
// block per column of the full profile. Missing sample data degrades to
// placeholders.
func GenerateReport(p *profile.Profile) string {
	var b strings.Builder
	b.WriteString("Data Profiling Report\n")
	b.WriteString("=====================\n\n")
	if p == nil {
		return b.String()
	}

	for _, col := range p.FullProfile {
		sample, hasSample := p.SampleAnalysis[col.Name]
		inferred := "Unknown"
		if hasSample && sample.InferredType != "" {
			inferred = sample.InferredType
		}

		fmt.Fprintf(&b, "Column: %s\n", col.Name)
		fmt.Fprintf(&b, "  Inferred Type: %s\n", inferred)
		fmt.Fprintf(&b, "  Total Count: %d\n", col.TotalCount)
		fmt.Fprintf(&b, "  Null Count: %d\n", col.NullCount)
		fmt.Fprintf(&b, "  Null Percentage: %s\n", formatPercent(col.NullPercentage))
		fmt.Fprintf(&b, "  Unique Values: %d\n", len(col.Distinct))

		if col.IsNumeric() {
			fmt.Fprintf(&b, "  Minimum: %s\n", formatValue(col.Min()))
			fmt.Fprintf(&b, "  Maximum: %s\n", formatValue(col.Max()))
			fmt.Fprintf(&b, "  Mean: %s\n", formatFixed(col.Mean))
		}

		fmt.Fprintf(&b, "  Sample Values: %s\n", strings.Join(sample.SampleValues, ", "))
		b.WriteString("\n")
	}

	return b.String()
}

func formatPercent(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", *v)
}

func formatFixed(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", *v)
}

func formatValue(v float64, ok bool) string {
	if !ok {
		return "n/a"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
