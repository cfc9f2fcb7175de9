package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sortd-ai/sortd/pkg/types/organizer"
)

func imageResult(path string, day string) organizer.AnalysisResult {
	res := organizer.AnalysisResult{
		File:       organizer.FileRecord{Path: path, Category: organizer.CategoryImage, Size: 1024},
		Image:      &organizer.ImageAnalysis{},
		Confidence: 0.9,
	}
	if day != "" {
		tm, _ := time.Parse("2006-01-02", day)
		res.Image.CaptureDate = &tm
	}
	return res
}

func textResult(path string, topics ...string) organizer.AnalysisResult {
	return organizer.AnalysisResult{
		File:       organizer.FileRecord{Path: path, Category: organizer.CategoryText, Size: 512},
		Text:       &organizer.TextAnalysis{Topics: topics},
		Confidence: 0.9,
	}
}

func TestBuildCountsAndBytes(t *testing.T) {
	agg := Build([]organizer.AnalysisResult{
		imageResult("/p/a.jpg", ""),
		imageResult("/p/b.jpg", ""),
		textResult("/p/c.txt"),
	})

	assert.Equal(t, 3, agg.TotalFiles)
	assert.Equal(t, int64(2*1024+512), agg.TotalBytes)
	assert.Equal(t, 2, agg.CategoryCounts[organizer.CategoryImage])
	assert.Equal(t, 1, agg.CategoryCounts[organizer.CategoryText])
}

func TestDominantCategoryRequiresStrictMajority(t *testing.T) {
	// 3 of 4 images: dominant.
	agg := Build([]organizer.AnalysisResult{
		imageResult("/p/a.jpg", ""),
		imageResult("/p/b.jpg", ""),
		imageResult("/p/c.jpg", ""),
		textResult("/p/d.txt"),
	})
	assert.Equal(t, "image", agg.DominantCategory)

	// Exactly half is not a majority.
	agg = Build([]organizer.AnalysisResult{
		imageResult("/p/a.jpg", ""),
		textResult("/p/b.txt"),
	})
	assert.Equal(t, "mixed", agg.DominantCategory)
}

func TestEventClustersGroupByCaptureDay(t *testing.T) {
	agg := Build([]organizer.AnalysisResult{
		imageResult("/p/b.jpg", "2024-07-15"),
		imageResult("/p/a.jpg", "2024-07-15"),
		imageResult("/p/c.jpg", "2024-07-16"),
		imageResult("/p/d.jpg", ""), // no capture date
	})

	require.Len(t, agg.EventClusters, 2)
	first := agg.EventClusters[0]
	assert.Equal(t, "2024-07-15", first.Label)
	assert.Equal(t, "event", first.Kind)
	assert.Equal(t, []string{"/p/a.jpg", "/p/b.jpg"}, first.Paths)
	// A lone dated photo is still a date cluster.
	assert.Equal(t, []string{"/p/c.jpg"}, agg.EventClusters[1].Paths)
}

func TestTwoDatedImagesAndAPDF(t *testing.T) {
	pdf := organizer.AnalysisResult{
		File:  organizer.FileRecord{Path: "/p/doc.pdf", Category: organizer.CategoryDocument, Size: 2048},
		Other: &organizer.OtherAnalysis{DetailedType: "pdf", SizeBucket: "tiny"},
	}
	agg := Build([]organizer.AnalysisResult{
		imageResult("/p/a.jpg", "2023-01-01"),
		imageResult("/p/b.jpg", "2023-01-02"),
		pdf,
	})

	require.Len(t, agg.EventClusters, 2)
	assert.Equal(t, "2023-01-01", agg.EventClusters[0].Label)
	assert.Equal(t, "2023-01-02", agg.EventClusters[1].Label)
	assert.Equal(t, 1, agg.CategoryCounts[organizer.CategoryDocument])
	assert.Equal(t, "image", agg.DominantCategory)
}

func TestProjectClustersGroupBySharedTopic(t *testing.T) {
	agg := Build([]organizer.AnalysisResult{
		textResult("/p/budget-q1.xlsx.txt", "budget", "finance"),
		textResult("/p/budget-q2.txt", "budget"),
		textResult("/p/recipe.txt", "cooking"),
	})

	require.Len(t, agg.ProjectClusters, 1)
	cluster := agg.ProjectClusters[0]
	assert.Equal(t, "budget", cluster.Label)
	assert.Equal(t, "project", cluster.Kind)
	assert.Len(t, cluster.Paths, 2)
}

func TestDegradedCount(t *testing.T) {
	degraded := imageResult("/p/a.jpg", "")
	degraded.Degraded = true
	degraded.Confidence = 0.3

	agg := Build([]organizer.AnalysisResult{degraded, textResult("/p/b.txt")})
	assert.Equal(t, 1, agg.DegradedCount)
}

func TestBuildEmptyInput(t *testing.T) {
	agg := Build(nil)
	assert.Equal(t, 0, agg.TotalFiles)
	assert.Equal(t, "mixed", agg.DominantCategory)
	assert.Empty(t, agg.EventClusters)
	assert.Empty(t, agg.ProjectClusters)
}
