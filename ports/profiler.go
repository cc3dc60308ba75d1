package ports

import (
	"context"

	"datapipe/domain/profile"
)

// ProfilerPort profiles a CSV file on disk. An empty profile means the file
// could not be profiled and should be skipped.
type ProfilerPort interface {
	ProfileCSV(ctx context.Context, path string) *profile.Profile
}
