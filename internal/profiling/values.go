package profiling

import (
	"strconv"
	"strings"
	"time"
)

// nullTokens are the cell values treated as missing, matching the usual
// spreadsheet and dataframe conventions.
var nullTokens = map[string]struct{}{
	"":         {},
	"#N/A":     {},
	"#N/A N/A": {},
	"#NA":      {},
	"-1.#IND":  {},
	"-1.#QNAN": {},
	"-NaN":     {},
	"-nan":     {},
	"1.#IND":   {},
	"1.#QNAN":  {},
	"<NA>":     {},
	"N/A":      {},
	"NA":       {},
	"NULL":     {},
	"NaN":      {},
	"None":     {},
	"n/a":      {},
	"nan":      {},
	"null":     {},
}

// IsNull reports whether a raw cell counts as missing
func IsNull(raw string) bool {
	_, ok := nullTokens[strings.TrimSpace(raw)]
	return ok
}

// ParseNumber coerces a raw cell to a float
func ParseNumber(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseInt coerces a raw cell to an integer
func ParseInt(raw string) (int64, bool) {
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseBool accepts the spellings a dataframe reader treats as booleans
func ParseBool(raw string) (bool, bool) {
	switch strings.TrimSpace(raw) {
	case "True", "true", "TRUE":
		return true, true
	case "False", "false", "FALSE":
		return false, true
	}
	return false, false
}

// DateLayouts are the layouts a column must match to be detected as a date
var DateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
}

// ParseDate parses a raw cell using DateLayouts
func ParseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
