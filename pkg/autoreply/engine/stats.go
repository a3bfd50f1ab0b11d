package engine

// RunningAverage folds the latest response time into the rule's running
// average: new_avg = ((old_avg * (count-1)) + latest) / count, where count
// is the trigger count after this event. Under concurrent triggers the
// count may already include a racing request; the resulting bias is an
// accepted approximation.
func RunningAverage(oldAvg float64, count int64, latest float64) float64 {
	if count <= 1 {
		return latest
	}
	return (oldAvg*float64(count-1) + latest) / float64(count)
}
