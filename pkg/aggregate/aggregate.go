// Package aggregate folds per-file analysis results into the single
// AggregateContext consumed by strategy generation: category distribution,
// a dominant-category verdict, and event/project clusters detected from
// capture dates and shared topics.
package aggregate

import (
	"sort"

	"github.com/sortd-ai/sortd/pkg/types/organizer"
)

// minProjectSize is the smallest topic group worth surfacing: a "shared"
// keyword needs at least two files. Event clusters have no minimum; a lone
// dated photo is still a date cluster.
const minProjectSize = 2

// dominantThreshold is the share of files a category must exceed to be
// reported as dominant.
const dominantThreshold = 0.5

// Build computes the aggregate context over a run's analysis results.
// Output is deterministic: clusters and their member paths are sorted.
func Build(results []organizer.AnalysisResult) organizer.AggregateContext {
	agg := organizer.AggregateContext{
		TotalFiles:     len(results),
		CategoryCounts: map[organizer.Category]int{},
	}

	for _, res := range results {
		agg.TotalBytes += res.File.Size
		agg.CategoryCounts[res.File.Category]++
		if res.Degraded {
			agg.DegradedCount++
		}
	}

	agg.DominantCategory = dominant(agg.CategoryCounts, agg.TotalFiles)
	agg.EventClusters = eventClusters(results)
	agg.ProjectClusters = projectClusters(results)

	return agg
}

// dominant returns the category holding a strict majority of files, or
// "mixed" when no category does.
func dominant(counts map[organizer.Category]int, total int) string {
	if total == 0 {
		return "mixed"
	}
	for cat, n := range counts {
		if float64(n) > dominantThreshold*float64(total) {
			return string(cat)
		}
	}
	return "mixed"
}

// eventClusters groups images by capture day. Images without a capture date
// never join an event.
func eventClusters(results []organizer.AnalysisResult) []organizer.Cluster {
	byDay := map[string][]string{}
	for _, res := range results {
		if res.Image == nil || res.Image.CaptureDate == nil {
			continue
		}
		day := res.Image.CaptureDate.Format("2006-01-02")
		byDay[day] = append(byDay[day], res.File.Path)
	}
	return collect(byDay, "event", 1)
}

// projectClusters groups text files by shared topic keyword. A file may
// belong to several projects.
func projectClusters(results []organizer.AnalysisResult) []organizer.Cluster {
	byTopic := map[string][]string{}
	for _, res := range results {
		if res.Text == nil {
			continue
		}
		for _, topic := range res.Text.Topics {
			byTopic[topic] = append(byTopic[topic], res.File.Path)
		}
	}
	return collect(byTopic, "project", minProjectSize)
}

func collect(groups map[string][]string, kind string, minSize int) []organizer.Cluster {
	clusters := make([]organizer.Cluster, 0, len(groups))
	for label, paths := range groups {
		if len(paths) < minSize {
			continue
		}
		sort.Strings(paths)
		clusters = append(clusters, organizer.Cluster{Label: label, Kind: kind, Paths: paths})
	}
	sort.Slice(clusters, func(i, j int) bool { return clusters[i].Label < clusters[j].Label })
	if len(clusters) == 0 {
		return nil
	}
	return clusters
}
