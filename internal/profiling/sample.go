package profiling

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"datapipe/domain/profile"
	"datapipe/domain/table"
)

// sampleValueCount is how many raw values each column keeps from the sample
const sampleValueCount = 5

// Sample is the first rows of a file together with its header
type Sample struct {
	Columns []string
	Rows    [][]string
}

// ReadSample reads the header and at most n data rows. encoding/csv pulls
// from a buffered reader, so only the leading bytes needed for those rows
// are read.
func ReadSample(path string, n int) (*Sample, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	cr := csv.NewReader(file)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("parse header: %w", err)
	}
	if len(header) == 1 && header[0] == "" {
		return nil, fmt.Errorf("header has no columns")
	}

	sample := &Sample{Columns: table.NormalizeHeader(header)}
	for len(sample.Rows) < n {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse sample row %d: %w", len(sample.Rows)+1, err)
		}
		sample.Rows = append(sample.Rows, rec)
	}
	return sample, nil
}

// AnalyzeSample infers a type per column from the sample rows, counts the
// distinct non-null values and keeps the first few raw values in order.
func AnalyzeSample(sample *Sample) map[string]profile.SampleAnalysis {
	analysis := make(map[string]profile.SampleAnalysis)
	if sample == nil {
		return analysis
	}

	for i, column := range sample.Columns {
		values := make([]string, len(sample.Rows))
		for r, row := range sample.Rows {
			if i < len(row) {
				values[r] = row[i]
			}
		}

		unique := make(map[string]struct{})
		for _, v := range values {
			if !IsNull(v) {
				unique[v] = struct{}{}
			}
		}

		head := values
		if len(head) > sampleValueCount {
			head = head[:sampleValueCount]
		}

		analysis[column] = profile.SampleAnalysis{
			InferredType:         inferType(values),
			UniqueValuesInSample: len(unique),
			SampleValues:         append([]string{}, head...),
		}
	}
	return analysis
}

// inferType names the dominant type of the values the way a dataframe
// reader would: integers with gaps widen to float64, anything mixed or
// without a single value is an object column.
func inferType(values []string) string {
	allInt, allFloat, allBool := true, true, true
	nonNull := 0
	for _, v := range values {
		if IsNull(v) {
			continue
		}
		nonNull++
		if _, ok := ParseInt(v); !ok {
			allInt = false
		}
		if _, ok := ParseNumber(v); !ok {
			allFloat = false
		}
		if _, ok := ParseBool(v); !ok {
			allBool = false
		}
	}
	hasNull := nonNull < len(values)

	switch {
	case nonNull == 0:
		return "object"
	case allInt && !hasNull:
		return "int64"
	case allFloat:
		return "float64"
	case allBool && !hasNull:
		return "bool"
	default:
		return "object"
	}
}
