// Package profiling computes column statistics over a CSV file without
// loading it into memory: a cheap analysis of the first rows plus a chunked
// full scan folded into a per-column accumulator.
package profiling

import (
	"context"
	"io"
	"log"

	"github.com/dustin/go-humanize"

	"datapipe/domain/profile"
	"datapipe/internal/errors"
)

// DataProfiler profiles CSV files. It holds no per-file state, so one value
// may profile many files concurrently.
type DataProfiler struct {
	SampleSize int
	ChunkSize  int
}

// NewDataProfiler creates a profiler reading sampleSize rows for the sample
// analysis and chunkSize bytes per full-scan chunk
func NewDataProfiler(sampleSize, chunkSize int) *DataProfiler {
	return &DataProfiler{
		SampleSize: sampleSize,
		ChunkSize:  chunkSize,
	}
}

// ProfileCSV profiles the file at path. It never fails: any error is logged
// and an empty profile is returned, which callers treat as "skip this file".
func (dp *DataProfiler) ProfileCSV(ctx context.Context, path string) *profile.Profile {
	result, err := dp.Profile(ctx, path)
	if err != nil {
		log.Printf("[Profiler] Error profiling CSV file: %v", err)
		return profile.Empty()
	}
	return result
}

// Profile is ProfileCSV with the error surfaced
func (dp *DataProfiler) Profile(ctx context.Context, path string) (*profile.Profile, error) {
	sample, err := ReadSample(path, dp.SampleSize)
	if err != nil {
		return nil, errors.ProfilingFailed(path, err)
	}

	full, err := dp.ProfileFullFile(ctx, path)
	if err != nil {
		return nil, errors.ProfilingFailed(path, err)
	}

	return &profile.Profile{
		Columns:        sample.Columns,
		SampleAnalysis: AnalyzeSample(sample),
		FullProfile:    full,
	}, nil
}

// ProfileFullFile scans the whole file chunk by chunk and returns the
// finalized column profiles in first-seen order
func (dp *DataProfiler) ProfileFullFile(ctx context.Context, path string) ([]*profile.ColumnProfile, error) {
	reader, err := OpenChunks(path, dp.ChunkSize)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	acc := NewAccumulator(reader.Columns())
	var scanned uint64
	for {
		chunk, err := reader.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		acc.Fold(chunk)
		scanned += uint64(chunk.Bytes)
	}

	log.Printf("[Profiler] Scanned %s: %d chunks, %s", path, acc.Chunks(), humanize.Bytes(scanned))
	return acc.Finalize(), nil
}
