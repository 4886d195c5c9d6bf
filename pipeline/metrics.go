// Copyright © 2024 The Mago authors

package pipeline

import (
	"context"
	"time"

	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"

	"github.com/magophp/mago/diagnostic"
)

const (
	phaseIndex   = "index"
	phaseAnalyze = "analyze"
)

var (
	// MeasureFiles counts files processed by a phase.
	MeasureFiles = stats.Int64("mago/files", "Number of files processed", stats.UnitDimensionless)
	// MeasurePhaseLatency is the wall time of a phase.
	MeasurePhaseLatency = stats.Float64("mago/phase_latency", "Wall time of a pipeline phase", stats.UnitMilliseconds)
	// MeasureIssues counts reported issues.
	MeasureIssues = stats.Int64("mago/issues", "Number of reported issues", stats.UnitDimensionless)

	// KeyPhase tags measurements with the pipeline phase.
	KeyPhase = tag.MustNewKey("phase")
	// KeyLevel tags issue counts with their level.
	KeyLevel = tag.MustNewKey("level")
)

// Views aggregates the pipeline measures.  Embedders register them with
// view.Register to export pipeline metrics.
var Views = []*view.View{
	{
		Name:        "mago/files",
		Measure:     MeasureFiles,
		Description: "Files processed per phase",
		TagKeys:     []tag.Key{KeyPhase},
		Aggregation: view.Sum(),
	},
	{
		Name:        "mago/phase_latency",
		Measure:     MeasurePhaseLatency,
		Description: "Distribution of phase wall time",
		TagKeys:     []tag.Key{KeyPhase},
		Aggregation: view.Distribution(1, 5, 10, 50, 100, 500, 1000, 5000, 10000, 60000),
	},
	{
		Name:        "mago/issues",
		Measure:     MeasureIssues,
		Description: "Issues reported per level",
		TagKeys:     []tag.Key{KeyLevel},
		Aggregation: view.Sum(),
	},
}

func recordPhase(ctx context.Context, phase string, files int, elapsed time.Duration) {
	_ = stats.RecordWithTags(ctx, []tag.Mutator{tag.Upsert(KeyPhase, phase)},
		MeasureFiles.M(int64(files)),
		MeasurePhaseLatency.M(float64(elapsed)/float64(time.Millisecond)))
}

func recordIssues(ctx context.Context, c *diagnostic.IssueCollection) {
	for _, level := range []diagnostic.Level{diagnostic.LevelHelp, diagnostic.LevelNote, diagnostic.LevelWarning, diagnostic.LevelError} {
		n := c.Count(level)
		if n == 0 {
			continue
		}
		_ = stats.RecordWithTags(ctx, []tag.Mutator{tag.Upsert(KeyLevel, level.String())}, MeasureIssues.M(int64(n)))
	}
}
