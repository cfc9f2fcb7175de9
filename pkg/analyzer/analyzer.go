// Package analyzer produces one AnalysisResult per readable FileRecord.
// Dispatch is a pure function of the file's category: images go to the
// vision model with EXIF-only fallback, text files get an LLM summary with
// a keyword-heuristic fallback, and everything else is classified from
// extension and size alone. A fault in one file's analysis never affects
// another's, and no analyzer failure fails the run.
package analyzer

import (
	"context"
	"encoding/json"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/sortd-ai/sortd/pkg/llm"
	"github.com/sortd-ai/sortd/pkg/logger"
	"github.com/sortd-ai/sortd/pkg/metadata"
	"github.com/sortd-ai/sortd/pkg/types/organizer"
	"github.com/sortd-ai/sortd/pkg/utils"
	"github.com/sortd-ai/sortd/pkg/vision"
)

// Confidence levels attached to analysis results. DegradedConfidence is the
// fixed value for results produced via fallback after a model failure.
const (
	ModelConfidence     = 0.9
	HeuristicConfidence = 0.7
	DegradedConfidence  = 0.3
)

// Vision requests cap the image payload; anything larger falls back to
// EXIF-only analysis instead of shipping hundreds of megabytes to the model.
const maxVisionBytes = 5 * 1024 * 1024

// Analyzer runs the per-file analysis stage.
type Analyzer struct {
	vision  vision.Client
	llm     llm.Client
	workers int
}

// New builds an Analyzer. Either client may be nil, in which case the
// corresponding fallback path is used unconditionally.
func New(visionClient vision.Client, llmClient llm.Client, workers int) *Analyzer {
	if workers <= 0 {
		workers = 1
	}
	return &Analyzer{vision: visionClient, llm: llmClient, workers: workers}
}

// AnalyzeAll analyzes every record on a bounded worker pool and returns
// exactly one result per input record, in input order. It blocks until all
// workers have reported.
func (a *Analyzer) AnalyzeAll(ctx context.Context, recs []organizer.FileRecord) []organizer.AnalysisResult {
	results := make([]organizer.AnalysisResult, len(recs))

	g := &errgroup.Group{}
	g.SetLimit(a.workers)
	for i, rec := range recs {
		i, rec := i, rec
		g.Go(func() error {
			results[i] = a.Analyze(ctx, rec)
			return nil
		})
	}
	// Analyze absorbs all failures, so Wait only serves as the join
	// barrier before aggregation.
	_ = g.Wait()

	return results
}

// Analyze produces the AnalysisResult for a single record.
func (a *Analyzer) Analyze(ctx context.Context, rec organizer.FileRecord) organizer.AnalysisResult {
	switch rec.Category {
	case organizer.CategoryImage:
		return a.analyzeImage(ctx, rec)
	case organizer.CategoryText:
		return a.analyzeText(ctx, rec)
	default:
		return analyzeOther(rec)
	}
}

func (a *Analyzer) analyzeImage(ctx context.Context, rec organizer.FileRecord) organizer.AnalysisResult {
	img := &organizer.ImageAnalysis{
		CaptureDate: metadata.CaptureDate(rec),
		CameraMake:  rec.EXIF[metadata.ExifCameraMake],
		CameraModel: rec.EXIF[metadata.ExifCameraModel],
	}

	degrade := func(reason error) organizer.AnalysisResult {
		logger.G(ctx).WithError(reason).WithField("path", rec.Path).Warn("image analysis degraded to EXIF only")
		return organizer.AnalysisResult{
			File:        rec,
			Image:       img,
			Confidence:  DegradedConfidence,
			Degraded:    true,
			DegradedErr: reason.Error(),
		}
	}

	if a.vision == nil {
		return degrade(errNoVisionClient)
	}
	if rec.Size > maxVisionBytes {
		return degrade(errImageTooLarge)
	}

	data, err := os.ReadFile(rec.Path)
	if err != nil {
		return degrade(err)
	}

	result, err := a.vision.AnalyzeImage(ctx, data, rec.MIME)
	if err != nil {
		return degrade(err)
	}

	img.Scene = result.Scene
	img.Objects = result.Objects
	img.PeopleCount = result.PeopleCount
	img.IndoorOutdoor = result.IndoorOutdoor

	return organizer.AnalysisResult{File: rec, Image: img, Confidence: ModelConfidence}
}

const textPrompt = `Summarize the file content below. Respond with a single JSON object:
{"summary": "<one sentence>", "topics": ["<up to 5 topic keywords>"]}
Respond with the JSON object only.`

func (a *Analyzer) analyzeText(ctx context.Context, rec organizer.FileRecord) organizer.AnalysisResult {
	if a.llm != nil && rec.Preview != "" {
		raw, err := a.llm.CompleteJSON(ctx, textPrompt, "File: "+rec.Name+"\n\n"+rec.Preview)
		if err == nil {
			if text, perr := parseTextAnalysis(raw); perr == nil {
				return organizer.AnalysisResult{File: rec, Text: text, Confidence: ModelConfidence}
			} else {
				err = perr
			}
		}

		logger.G(ctx).WithError(err).WithField("path", rec.Path).Warn("text analysis degraded to keyword heuristic")
		text := heuristicTextAnalysis(rec)
		return organizer.AnalysisResult{
			File:        rec,
			Text:        text,
			Confidence:  DegradedConfidence,
			Degraded:    true,
			DegradedErr: err.Error(),
		}
	}

	return organizer.AnalysisResult{File: rec, Text: heuristicTextAnalysis(rec), Confidence: HeuristicConfidence}
}

func parseTextAnalysis(raw string) (*organizer.TextAnalysis, error) {
	payload := utils.ExtractJSONObject(raw)
	if payload == "" {
		return nil, errNoJSONInResponse
	}
	var text organizer.TextAnalysis
	if err := json.Unmarshal([]byte(payload), &text); err != nil {
		return nil, err
	}
	return &text, nil
}

func analyzeOther(rec organizer.FileRecord) organizer.AnalysisResult {
	return organizer.AnalysisResult{
		File: rec,
		Other: &organizer.OtherAnalysis{
			DetailedType: detailedType(rec),
			SizeBucket:   sizeBucket(rec.Size),
		},
		Confidence: HeuristicConfidence,
	}
}
