// Per-task duration and error aggregation over a trace tree
package tracetree

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// TaskSummary aggregates all spans of one task name within a trace.
type TaskSummary struct {
	Task       string
	Count      int
	ErrorCount int
	Durations  []time.Duration
}

// Summarize walks the tree (orphans included) and accumulates per-task
// statistics, returned sorted by task name.
func Summarize(tree *Tree) []TaskSummary {
	if tree == nil {
		return nil
	}
	byTask := make(map[string]*TaskSummary)
	walkSummary(tree.Root, byTask)
	for _, o := range tree.Orphans {
		walkSummary(o, byTask)
	}

	summaries := make([]TaskSummary, 0, len(byTask))
	for _, s := range byTask {
		summaries = append(summaries, *s)
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Task < summaries[j].Task })
	return summaries
}

func walkSummary(node *Node, byTask map[string]*TaskSummary) {
	s, ok := byTask[node.Span.Task]
	if !ok {
		s = &TaskSummary{Task: node.Span.Task}
		byTask[node.Span.Task] = s
	}
	s.Count++
	if node.Span.IsError() {
		s.ErrorCount++
	}
	s.Durations = append(s.Durations, time.Duration(node.Span.ExecutionDurationMs*float64(time.Millisecond)))

	for _, child := range node.Children {
		walkSummary(child, byTask)
	}
}

// MeanDuration computes the mean of a duration slice.
// Uses float64 accumulator to avoid int64 overflow on large inputs.
func MeanDuration(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}
	var sum float64
	for _, d := range durations {
		sum += float64(d)
	}
	return time.Duration(sum / float64(len(durations)))
}

// StdDevDuration computes the sample standard deviation of a duration slice.
func StdDevDuration(durations []time.Duration) time.Duration {
	if len(durations) < 2 {
		return 0
	}
	mean := float64(MeanDuration(durations))
	var sumSq float64
	for _, d := range durations {
		diff := float64(d) - mean
		sumSq += diff * diff
	}
	return time.Duration(math.Sqrt(sumSq / float64(len(durations)-1)))
}

// FormatDistribution produces a human-friendly distribution string.
// Returns "Xms +/- Yms" when stddev is significant, or "Xms" when negligible.
func FormatDistribution(durations []time.Duration) string {
	mean := MeanDuration(durations)
	stddev := StdDevDuration(durations)

	meanStr := roundDuration(mean).String()
	if stddev == 0 || float64(stddev) < float64(mean)*0.01 {
		return meanStr
	}
	return meanStr + " +/- " + roundDuration(stddev).String()
}

// roundDuration rounds a duration to a human-friendly precision.
func roundDuration(d time.Duration) time.Duration {
	switch {
	case d >= time.Second:
		return d.Round(100 * time.Millisecond)
	case d >= 100*time.Millisecond:
		return d.Round(10 * time.Millisecond)
	case d >= 10*time.Millisecond:
		return d.Round(time.Millisecond)
	case d >= time.Millisecond:
		return d.Round(100 * time.Microsecond)
	case d >= 100*time.Microsecond:
		return d.Round(10 * time.Microsecond)
	default:
		return d.Round(time.Microsecond)
	}
}

// FormatErrorRate returns a percentage string like "0.10%" or empty if zero.
func FormatErrorRate(errors, total int) string {
	if errors == 0 || total == 0 {
		return ""
	}
	rate := float64(errors) / float64(total) * 100
	if rate >= 1.0 {
		return fmt.Sprintf("%.0f%%", rate)
	}
	return fmt.Sprintf("%.2f%%", rate)
}
