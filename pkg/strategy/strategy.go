// Package strategy turns an aggregate context into concrete organization
// proposals. The generator asks the LLM for candidate strategies against an
// embedded JSON schema, validates the response strictly, retries with the
// failure reason attached, and falls back to a deterministic by-type layout
// when every attempt fails.
package strategy

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"

	"github.com/sortd-ai/sortd/pkg/llm"
	"github.com/sortd-ai/sortd/pkg/logger"
	"github.com/sortd-ai/sortd/pkg/types/organizer"
	"github.com/sortd-ai/sortd/pkg/utils"
)

const (
	defaultAttempts = 3
	minStrategies   = 1
	maxStrategies   = 3
)

// GenerationError reports that every generation attempt produced an
// unusable response. Callers switch to the fallback strategy on it.
type GenerationError struct {
	Attempts int
	LastErr  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("strategy generation failed after %d attempts: %v", e.Attempts, e.LastErr)
}

func (e *GenerationError) Unwrap() error { return e.LastErr }

// Wire format the model is asked to produce.
type assignmentPayload struct {
	Source string `json:"source" jsonschema_description:"absolute path of the source file, copied verbatim from the file listing"`
	Dest   string `json:"dest" jsonschema_description:"destination path relative to the organization root, forward slashes"`
}

type strategyPayload struct {
	Type        string              `json:"type" jsonschema:"enum=by_content,enum=by_date,enum=by_type"`
	Description string              `json:"description"`
	Rationale   string              `json:"rationale"`
	Confidence  float64             `json:"confidence" jsonschema:"minimum=0,maximum=1"`
	Assignments []assignmentPayload `json:"assignments"`
}

type strategiesPayload struct {
	Strategies []strategyPayload `json:"strategies"`
}

func generateSchema[T any]() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

var responseSchema = func() string {
	raw, err := json.MarshalIndent(generateSchema[strategiesPayload](), "", "  ")
	if err != nil {
		panic(err)
	}
	return string(raw)
}()

const systemPromptTemplate = `You are a file organization assistant. Given a summary of a
directory's contents and the full file listing, propose 2 to 3 alternative
organization strategies. Each strategy must assign EVERY listed file to a
destination path relative to the organization root, and each file exactly
once. Prefer shallow, human-readable folder names. Never invent files.

Respond with a single JSON object matching this schema:

%s

Respond with the JSON object only, no prose.`

// Generator produces candidate strategies via the LLM.
type Generator struct {
	llm      llm.Client
	attempts uint
}

// NewGenerator builds a Generator. The client must be non-nil; callers with
// no LLM skip generation and use Fallback directly.
func NewGenerator(client llm.Client) *Generator {
	return &Generator{llm: client, attempts: defaultAttempts}
}

// Generate asks the model for strategies over the run's files. Each failed
// attempt feeds its validation error back into the next prompt. On
// exhaustion it returns a *GenerationError.
func (g *Generator) Generate(ctx context.Context, agg organizer.AggregateContext, results []organizer.AnalysisResult) ([]organizer.Strategy, error) {
	sources := sourceSet(results)
	user := buildUserPrompt(agg, results)
	system := fmt.Sprintf(systemPromptTemplate, responseSchema)

	var strategies []organizer.Strategy
	var lastFailure string
	attempt := 0

	err := retry.Do(
		func() error {
			attempt++
			prompt := user
			if lastFailure != "" {
				prompt += "\n\nYour previous response was rejected: " + lastFailure + "\nFix the problem and respond again."
			}

			raw, err := g.llm.CompleteJSON(ctx, system, prompt)
			if err != nil {
				lastFailure = err.Error()
				return err
			}

			parsed, err := parseStrategies(raw, sources)
			if err != nil {
				logger.G(ctx).WithError(err).WithField("attempt", attempt).Warn("rejected strategy response")
				lastFailure = err.Error()
				return err
			}

			strategies = parsed
			return nil
		},
		retry.Attempts(g.attempts),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, &GenerationError{Attempts: attempt, LastErr: err}
	}
	return strategies, nil
}

func sourceSet(results []organizer.AnalysisResult) map[string]bool {
	set := make(map[string]bool, len(results))
	for _, res := range results {
		set[res.File.Path] = true
	}
	return set
}

// buildUserPrompt renders the aggregate context plus one compact line per
// file with the analysis hints the model needs to group them.
func buildUserPrompt(agg organizer.AggregateContext, results []organizer.AnalysisResult) string {
	var b strings.Builder

	ctxJSON, _ := json.Marshal(agg)
	b.WriteString("Directory summary:\n")
	b.Write(ctxJSON)
	b.WriteString("\n\nFiles:\n")

	for _, res := range results {
		fmt.Fprintf(&b, "- %s [%s]", res.File.Path, res.File.Category)
		switch {
		case res.Image != nil:
			if res.Image.CaptureDate != nil {
				fmt.Fprintf(&b, " captured=%s", res.Image.CaptureDate.Format("2006-01-02"))
			}
			if res.Image.Scene != "" {
				fmt.Fprintf(&b, " scene=%q", utils.Truncate(res.Image.Scene, 80))
			}
		case res.Text != nil:
			if res.Text.Summary != "" {
				fmt.Fprintf(&b, " summary=%q", utils.Truncate(res.Text.Summary, 80))
			}
			if len(res.Text.Topics) > 0 {
				fmt.Fprintf(&b, " topics=%s", strings.Join(res.Text.Topics, ","))
			}
		case res.Other != nil:
			fmt.Fprintf(&b, " type=%s size=%s", res.Other.DetailedType, res.Other.SizeBucket)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// parseStrategies validates the raw model response against the run. Every
// violation is a hard reject so a retry can correct it.
func parseStrategies(raw string, sources map[string]bool) ([]organizer.Strategy, error) {
	payload := utils.ExtractJSONObject(raw)
	if payload == "" {
		return nil, errors.New("response contains no JSON object")
	}

	var parsed strategiesPayload
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return nil, errors.Wrap(err, "response is not valid strategy JSON")
	}

	if len(parsed.Strategies) < minStrategies || len(parsed.Strategies) > maxStrategies {
		return nil, errors.Errorf("expected between %d and %d strategies, got %d", minStrategies, maxStrategies, len(parsed.Strategies))
	}

	strategies := make([]organizer.Strategy, 0, len(parsed.Strategies))
	for i, sp := range parsed.Strategies {
		s, err := convertStrategy(sp, sources)
		if err != nil {
			return nil, errors.Wrapf(err, "strategy %d (%s)", i, sp.Type)
		}
		strategies = append(strategies, s)
	}
	return strategies, nil
}

func convertStrategy(sp strategyPayload, sources map[string]bool) (organizer.Strategy, error) {
	var zero organizer.Strategy

	st := organizer.StrategyType(sp.Type)
	switch st {
	case organizer.StrategyByContent, organizer.StrategyByDate, organizer.StrategyByType:
	default:
		return zero, errors.Errorf("unknown strategy type %q", sp.Type)
	}
	if sp.Confidence < 0 || sp.Confidence > 1 {
		return zero, errors.Errorf("confidence %v outside [0, 1]", sp.Confidence)
	}

	assigned := map[string]bool{}
	assignments := make([]organizer.FileAssignment, 0, len(sp.Assignments))
	for _, ap := range sp.Assignments {
		if !sources[ap.Source] {
			return zero, errors.Errorf("assignment references unknown source %q", ap.Source)
		}
		if assigned[ap.Source] {
			return zero, errors.Errorf("source %q assigned more than once", ap.Source)
		}
		if err := validateDest(ap.Dest); err != nil {
			return zero, errors.Wrapf(err, "bad destination for %q", ap.Source)
		}
		assigned[ap.Source] = true
		assignments = append(assignments, organizer.FileAssignment{Source: ap.Source, Dest: path.Clean(ap.Dest)})
	}
	if len(assigned) != len(sources) {
		return zero, errors.Errorf("strategy covers %d of %d files", len(assigned), len(sources))
	}

	return organizer.Strategy{
		ID:          uuid.NewString(),
		Type:        st,
		Description: sp.Description,
		Rationale:   sp.Rationale,
		Confidence:  sp.Confidence,
		Assignments: assignments,
	}, nil
}

func validateDest(dest string) error {
	if dest == "" {
		return errors.New("empty destination")
	}
	if strings.HasPrefix(dest, "/") || strings.Contains(dest, "\\") {
		return errors.Errorf("%q is not a relative slash path", dest)
	}
	cleaned := path.Clean(dest)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return errors.Errorf("%q escapes the organization root", dest)
	}
	return nil
}

// categoryFolders is the deterministic fallback layout.
var categoryFolders = map[organizer.Category]string{
	organizer.CategoryImage:    "Images",
	organizer.CategoryText:     "Documents",
	organizer.CategoryDocument: "Documents",
	organizer.CategoryOther:    "Other",
}

// Fallback builds the built-in by-type strategy used when generation fails
// or no LLM is configured. Output is fully deterministic for a given input.
func Fallback(results []organizer.AnalysisResult) organizer.Strategy {
	assignments := make([]organizer.FileAssignment, 0, len(results))
	for _, res := range results {
		folder, ok := categoryFolders[res.File.Category]
		if !ok {
			folder = "Other"
		}
		assignments = append(assignments, organizer.FileAssignment{
			Source: res.File.Path,
			Dest:   path.Join(folder, res.File.Name),
		})
	}
	sort.Slice(assignments, func(i, j int) bool { return assignments[i].Source < assignments[j].Source })

	return organizer.Strategy{
		ID:          uuid.NewString(),
		Type:        organizer.StrategyByType,
		Description: "Group files into folders by file type",
		Rationale:   "Built-in fallback used when no generated strategy was usable",
		Confidence:  0.5,
		Assignments: assignments,
		Fallback:    true,
	}
}
