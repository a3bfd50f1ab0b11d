package engine

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestRunningAverage(t *testing.T) {
	tests := []struct {
		name   string
		oldAvg float64
		count  int64
		latest float64
		want   float64
	}{
		{"first event", 0, 1, 800, 800},
		{"zero count degenerates to latest", 500, 0, 800, 800},
		{"second event averages", 800, 2, 400, 600},
		{"later event converges slowly", 600, 10, 1600, 700},
		{"constant series stays put", 500, 42, 500, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RunningAverage(tt.oldAvg, tt.count, tt.latest)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("RunningAverage(%v, %d, %v) = %v, want %v", tt.oldAvg, tt.count, tt.latest, got, tt.want)
			}
		})
	}
}

func TestRunningAverageProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("result stays within [min, max] of inputs", prop.ForAll(
		func(oldAvg float64, count int64, latest float64) bool {
			got := RunningAverage(oldAvg, count, latest)
			lo, hi := math.Min(oldAvg, latest), math.Max(oldAvg, latest)
			return got >= lo-1e-9 && got <= hi+1e-9
		},
		gen.Float64Range(0, 1e6),
		gen.Int64Range(1, 1e6),
		gen.Float64Range(0, 1e6),
	))

	properties.Property("folding a full series matches the plain mean", prop.ForAll(
		func(series []float64) bool {
			if len(series) == 0 {
				return true
			}
			var avg, sum float64
			for i, v := range series {
				avg = RunningAverage(avg, int64(i+1), v)
				sum += v
			}
			mean := sum / float64(len(series))
			return math.Abs(avg-mean) < 1e-6*math.Max(1, mean)
		},
		gen.SliceOf(gen.Float64Range(0, 1e5)),
	))

	properties.TestingRun(t)
}
