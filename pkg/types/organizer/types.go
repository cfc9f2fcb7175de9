// Package organizer defines the shared domain types that flow through the
// file-organization pipeline: file records produced by scanning and metadata
// extraction, per-file analysis results, the aggregate context fed to
// strategy generation, and the organization strategies themselves.
package organizer

import (
	"path"
	"strings"
	"time"
)

// Category is the enumerated content category a file is dispatched on.
// The set is closed: analyzer dispatch is a pure function of this value.
type Category string

const (
	CategoryImage    Category = "image"
	CategoryText     Category = "text"
	CategoryDocument Category = "document"
	CategoryOther    Category = "other"
)

// FileRecord holds everything the pipeline knows about a single file.
// Immutable once produced by the metadata extractor; owned by the run that
// created it.
type FileRecord struct {
	Path      string            `json:"path"`
	Name      string            `json:"name"`
	Ext       string            `json:"ext"`
	ParentDir string            `json:"parent_dir"`
	Size      int64             `json:"size"`
	ModTime   time.Time         `json:"mod_time"`
	Category  Category          `json:"category"`
	MIME      string            `json:"mime"`
	Preview   string            `json:"preview,omitempty"`
	EXIF      map[string]string `json:"exif,omitempty"`
	// Unreadable marks files whose content could not be read. They are
	// excluded from analysis but still surfaced in the run summary.
	Unreadable bool   `json:"unreadable,omitempty"`
	ReadError  string `json:"read_error,omitempty"`
}

// ImageAnalysis is the vision-model output for an image, possibly degraded
// to EXIF-only fields when the vision call failed.
type ImageAnalysis struct {
	Scene         string     `json:"scene,omitempty"`
	Objects       []string   `json:"objects,omitempty"`
	PeopleCount   int        `json:"people_count"`
	IndoorOutdoor string     `json:"indoor_outdoor,omitempty"`
	CaptureDate   *time.Time `json:"capture_date,omitempty"`
	CameraMake    string     `json:"camera_make,omitempty"`
	CameraModel   string     `json:"camera_model,omitempty"`
}

// TextAnalysis summarizes a text-like file.
type TextAnalysis struct {
	Summary string   `json:"summary,omitempty"`
	Topics  []string `json:"topics,omitempty"`
}

// OtherAnalysis carries the heuristic classification for files outside the
// image/text categories.
type OtherAnalysis struct {
	DetailedType string `json:"detailed_type"`
	SizeBucket   string `json:"size_bucket"`
}

// AnalysisResult is the tagged variant over the three analyzer outputs.
// Exactly one of Image, Text, Other is non-nil, matching File.Category.
type AnalysisResult struct {
	File       FileRecord     `json:"file"`
	Image      *ImageAnalysis `json:"image,omitempty"`
	Text       *TextAnalysis  `json:"text,omitempty"`
	Other      *OtherAnalysis `json:"other,omitempty"`
	Confidence float64        `json:"confidence"`
	// Degraded is set when fallback analysis ran after an external model
	// call failed; Confidence carries the fixed degraded value.
	Degraded    bool   `json:"degraded,omitempty"`
	DegradedErr string `json:"degraded_err,omitempty"`
}

// Cluster is a group of related files detected by the aggregator, either an
// event (shared capture date window) or a project (shared keyword or
// directory locality).
type Cluster struct {
	Label string   `json:"label"`
	Kind  string   `json:"kind"` // "event" or "project"
	Paths []string `json:"paths"`
}

// AggregateContext is the read-only summary over all analysis results that
// strategy generation consumes. It exists only for the duration of the
// generation stage.
type AggregateContext struct {
	TotalFiles       int              `json:"total_files"`
	TotalBytes       int64            `json:"total_bytes"`
	CategoryCounts   map[Category]int `json:"category_counts"`
	DominantCategory string           `json:"dominant_category"`
	EventClusters    []Cluster        `json:"event_clusters,omitempty"`
	ProjectClusters  []Cluster        `json:"project_clusters,omitempty"`
	DegradedCount    int              `json:"degraded_count"`
}

// StrategyType labels the organizing principle of a strategy. Used as the
// preference-store key.
type StrategyType string

const (
	StrategyByContent StrategyType = "by_content"
	StrategyByDate    StrategyType = "by_date"
	StrategyByType    StrategyType = "by_type"
)

// FileAssignment maps one source file to a destination path relative to the
// organization root.
type FileAssignment struct {
	Source string `json:"source"`
	Dest   string `json:"dest"`
}

// Strategy is one candidate organization proposal. Produced by the
// generator, reordered and rescored by the ranker, and treated as read-only
// by the executor.
type Strategy struct {
	ID          string           `json:"id"`
	Type        StrategyType     `json:"type"`
	Description string           `json:"description"`
	Rationale   string           `json:"rationale"`
	Confidence  float64          `json:"confidence"`
	Assignments []FileAssignment `json:"assignments"`
	// Fallback marks the deterministic built-in strategy used when
	// generation failed validation on every attempt.
	Fallback bool `json:"fallback,omitempty"`
	// Score is the combined ranking score set by the ranker.
	Score float64 `json:"score,omitempty"`
}

// FolderNames returns the distinct destination directory tokens proposed by
// the strategy, used for preference learning. Destination paths are
// slash-separated and relative to the organization root.
func (s Strategy) FolderNames() []string {
	seen := map[string]bool{}
	var names []string
	for _, a := range s.Assignments {
		dir := path.Dir(a.Dest)
		if dir == "." || dir == "/" {
			continue
		}
		for _, tok := range strings.Split(dir, "/") {
			if tok == "" || tok == "." || seen[tok] {
				continue
			}
			seen[tok] = true
			names = append(names, tok)
		}
	}
	return names
}

// OutcomeStatus is the per-assignment execution outcome.
type OutcomeStatus string

const (
	OutcomeApplied OutcomeStatus = "applied"
	OutcomeSkipped OutcomeStatus = "skipped"
	OutcomeFailed  OutcomeStatus = "failed"
)

// AssignmentOutcome records what happened to one file assignment.
type AssignmentOutcome struct {
	Source string        `json:"source"`
	Dest   string        `json:"dest"`
	Status OutcomeStatus `json:"status"`
	Reason string        `json:"reason,omitempty"`
}

// ExecutionReport summarizes an executor pass, real or simulated.
type ExecutionReport struct {
	DryRun      bool                `json:"dry_run"`
	Copied      bool                `json:"copied"`
	Outcomes    []AssignmentOutcome `json:"outcomes"`
	Applied     int                 `json:"applied"`
	Skipped     int                 `json:"skipped"`
	Failed      int                 `json:"failed"`
	DirsCreated int                 `json:"dirs_created"`
}
