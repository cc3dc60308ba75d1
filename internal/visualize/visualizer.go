// Package visualize renders summary charts of a cleaned table into an Excel
// workbook.
package visualize

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"

	"datapipe/domain/table"
	"datapipe/internal/errors"
	"datapipe/internal/profiling"

	"github.com/xuri/excelize/v2"
)

const (
	sheetCorrelation = "Correlation"
	sheetSummary     = "Summary"
	sheetHistograms  = "Histograms"
	sheetCategories  = "Categories"

	histogramBins = 10
	topCategories = 20

	// rows reserved per chart block so charts do not overlap
	histogramBlockRows = 18
	categoryBlockRows  = 24
)

// Visualizer writes one workbook of charts per table into OutputDir
type Visualizer struct {
	OutputDir string
}

// NewVisualizer creates a visualizer writing into outputDir
func NewVisualizer(outputDir string) *Visualizer {
	return &Visualizer{OutputDir: outputDir}
}

// CreateVisualizations writes <name>_visualizations.xlsx holding a
// correlation heatmap, summary statistics, histograms of the numeric columns
// and bar charts of the most frequent text values. A table without numeric
// columns is skipped: the returned path is empty and no error is reported.
func (v *Visualizer) CreateVisualizations(ctx context.Context, t *table.Clean, name string) (string, error) {
	numeric := t.ColumnsOfKind(table.KindNumeric)
	if len(numeric) == 0 {
		log.Printf("[Visualizer] No numeric columns found in %s. Skipping visualizations.", name)
		return "", nil
	}

	if err := os.MkdirAll(v.OutputDir, 0o755); err != nil {
		return "", errors.Wrapf(err, "failed to create output directory %s", v.OutputDir)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetCorrelation); err != nil {
		return "", err
	}

	steps := []struct {
		name string
		fn   func() error
	}{
		{"correlation heatmap", func() error { return writeCorrelation(f, t, numeric, name) }},
		{"summary statistics", func() error { return writeSummary(f, t, numeric) }},
		{"histograms", func() error { return writeHistograms(f, t, numeric) }},
		{"category charts", func() error { return writeCategories(f, t, t.ColumnsOfKind(table.KindText)) }},
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if err := step.fn(); err != nil {
			return "", errors.Wrapf(err, "failed to write %s for %s", step.name, name)
		}
	}

	path := filepath.Join(v.OutputDir, name+"_visualizations.xlsx")
	if err := f.SaveAs(path); err != nil {
		return "", errors.Wrapf(err, "failed to save %s", path)
	}

	log.Printf("[Visualizer] Visualization created for %s", name)
	return path, nil
}

func cellName(col, row int) string {
	cell, _ := excelize.CoordinatesToCellName(col, row)
	return cell
}

func absRef(sheet string, col, row int) string {
	cell, _ := excelize.CoordinatesToCellName(col, row, true)
	return fmt.Sprintf("'%s'!%s", sheet, cell)
}

func absRange(sheet string, col, fromRow, toRow int) string {
	from, _ := excelize.CoordinatesToCellName(col, fromRow, true)
	to, _ := excelize.CoordinatesToCellName(col, toRow, true)
	return fmt.Sprintf("'%s'!%s:%s", sheet, from, to)
}

func boldStyle(f *excelize.File) (int, error) {
	return f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
}

func writeCorrelation(f *excelize.File, t *table.Clean, cols []int, name string) error {
	sheet := sheetCorrelation
	matrix := CorrelationMatrix(t, cols)

	if err := f.SetCellValue(sheet, "A1", "Correlation Heatmap for "+name); err != nil {
		return err
	}

	// matrix starts at B3 with column names along row 2 and down column A
	for i, c := range cols {
		if err := f.SetCellValue(sheet, cellName(i+2, 2), t.Columns[c]); err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cellName(1, i+3), t.Columns[c]); err != nil {
			return err
		}
		for j := range cols {
			r := matrix[i][j]
			if math.IsNaN(r) {
				continue
			}
			if err := f.SetCellValue(sheet, cellName(j+2, i+3), math.Round(r*100)/100); err != nil {
				return err
			}
		}
	}

	bold, err := boldStyle(f)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", "A1", bold); err != nil {
		return err
	}

	rangeRef := cellName(2, 3) + ":" + cellName(len(cols)+1, len(cols)+2)
	return f.SetConditionalFormat(sheet, rangeRef, []excelize.ConditionalFormatOptions{{
		Type:     "3_color_scale",
		Criteria: "=",
		MinType:  "num",
		MidType:  "num",
		MaxType:  "num",
		MinValue: "-1",
		MidValue: "0",
		MaxValue: "1",
		MinColor: "#3B4CC0",
		MidColor: "#F7F7F7",
		MaxColor: "#B40426",
	}})
}

func writeSummary(f *excelize.File, t *table.Clean, cols []int) error {
	sheet := sheetSummary
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	header := []any{"column", "count", "mean", "std", "min", "25%", "50%", "75%", "max"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	for i, c := range cols {
		row := []any{t.Columns[c]}
		values := t.Float64s(c)
		if len(values) == 0 {
			row = append(row, 0)
		} else {
			s, err := profiling.Describe(values)
			if err != nil {
				return err
			}
			row = append(row, s.Count, s.Mean, s.StdDev, s.Min, s.Q25, s.Median, s.Q75, s.Max)
		}
		if err := f.SetSheetRow(sheet, cellName(1, i+2), &row); err != nil {
			return err
		}
	}

	bold, err := boldStyle(f)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", "I1", bold); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", "A", 24)
}

func writeHistograms(f *excelize.File, t *table.Clean, cols []int) error {
	sheet := sheetHistograms
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	top := 1
	for _, c := range cols {
		bins := Histogram(t.Float64s(c), histogramBins)
		if len(bins) == 0 {
			continue
		}

		name := t.Columns[c]
		if err := f.SetSheetRow(sheet, cellName(1, top), &[]any{name, "count"}); err != nil {
			return err
		}
		for i, b := range bins {
			label := fmt.Sprintf("%.4g to %.4g", b.Lower, b.Upper)
			if err := f.SetSheetRow(sheet, cellName(1, top+1+i), &[]any{label, b.Count}); err != nil {
				return err
			}
		}

		first, last := top+1, top+len(bins)
		if err := f.AddChart(sheet, cellName(4, top), &excelize.Chart{
			Type: excelize.Col,
			Series: []excelize.ChartSeries{{
				Name:       absRef(sheet, 1, top),
				Categories: absRange(sheet, 1, first, last),
				Values:     absRange(sheet, 2, first, last),
			}},
			Title:     []excelize.RichTextRun{{Text: "Distribution of " + name}},
			Legend:    excelize.ChartLegend{Position: "none"},
			Dimension: excelize.ChartDimension{Width: 640, Height: 320},
		}); err != nil {
			return err
		}

		top += histogramBlockRows
	}
	return f.SetColWidth(sheet, "A", "A", 24)
}

func writeCategories(f *excelize.File, t *table.Clean, cols []int) error {
	sheet := sheetCategories
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	top := 1
	for _, c := range cols {
		cats := TopCategories(t, c, topCategories)
		if len(cats) == 0 {
			continue
		}

		name := t.Columns[c]
		if err := f.SetSheetRow(sheet, cellName(1, top), &[]any{name, "count"}); err != nil {
			return err
		}
		for i, cat := range cats {
			if err := f.SetSheetRow(sheet, cellName(1, top+1+i), &[]any{cat.Value, cat.Count}); err != nil {
				return err
			}
		}

		first, last := top+1, top+len(cats)
		if err := f.AddChart(sheet, cellName(4, top), &excelize.Chart{
			Type: excelize.Bar,
			Series: []excelize.ChartSeries{{
				Name:       absRef(sheet, 1, top),
				Categories: absRange(sheet, 1, first, last),
				Values:     absRange(sheet, 2, first, last),
			}},
			Title:     []excelize.RichTextRun{{Text: "Distribution of " + name}},
			Legend:    excelize.ChartLegend{Position: "none"},
			Dimension: excelize.ChartDimension{Width: 640, Height: 440},
		}); err != nil {
			return err
		}

		top += categoryBlockRows
	}
	return f.SetColWidth(sheet, "A", "A", 24)
}
