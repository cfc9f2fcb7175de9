package strategy

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sortd-ai/sortd/pkg/types/organizer"
)

type scriptedLLM struct {
	responses []string
	errs      []error
	prompts   []string
}

func (s *scriptedLLM) CompleteJSON(ctx context.Context, system, user string) (string, error) {
	i := len(s.prompts)
	s.prompts = append(s.prompts, user)
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	var resp string
	if i < len(s.responses) {
		resp = s.responses[i]
	}
	return resp, err
}

func sampleResults() []organizer.AnalysisResult {
	return []organizer.AnalysisResult{
		{File: organizer.FileRecord{Path: "/in/a.jpg", Name: "a.jpg", Category: organizer.CategoryImage}},
		{File: organizer.FileRecord{Path: "/in/b.txt", Name: "b.txt", Category: organizer.CategoryText}},
	}
}

func validResponse() string {
	payload := strategiesPayload{Strategies: []strategyPayload{
		{
			Type:        "by_type",
			Description: "By file type",
			Rationale:   "Clear split between photos and notes",
			Confidence:  0.8,
			Assignments: []assignmentPayload{
				{Source: "/in/a.jpg", Dest: "Images/a.jpg"},
				{Source: "/in/b.txt", Dest: "Documents/b.txt"},
			},
		},
		{
			Type:        "by_content",
			Description: "By subject",
			Rationale:   "Subject folders",
			Confidence:  0.7,
			Assignments: []assignmentPayload{
				{Source: "/in/a.jpg", Dest: "Vacation/a.jpg"},
				{Source: "/in/b.txt", Dest: "Vacation/b.txt"},
			},
		},
	}}
	raw, _ := json.Marshal(payload)
	return string(raw)
}

func TestGenerateAcceptsValidResponse(t *testing.T) {
	client := &scriptedLLM{responses: []string{validResponse()}}
	got, err := NewGenerator(client).Generate(context.Background(), organizer.AggregateContext{}, sampleResults())

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, organizer.StrategyByType, got[0].Type)
	assert.NotEmpty(t, got[0].ID)
	assert.Len(t, got[0].Assignments, 2)
	assert.False(t, got[0].Fallback)
}

func TestGenerateRetriesWithFailureReason(t *testing.T) {
	bad := `{"strategies": [{"type": "by_type", "description": "d", "rationale": "r",
		"confidence": 0.8, "assignments": [{"source": "/in/ghost.png", "dest": "Images/ghost.png"}]}]}`
	client := &scriptedLLM{responses: []string{bad, validResponse()}}

	got, err := NewGenerator(client).Generate(context.Background(), organizer.AggregateContext{}, sampleResults())

	require.NoError(t, err)
	assert.Len(t, got, 2)
	require.Len(t, client.prompts, 2)
	assert.Contains(t, client.prompts[1], "previous response was rejected")
	assert.Contains(t, client.prompts[1], "ghost.png")
}

func TestGenerateReturnsGenerationErrorAfterExhaustion(t *testing.T) {
	client := &scriptedLLM{responses: []string{"no json here", "still none", "nope"}}

	_, err := NewGenerator(client).Generate(context.Background(), organizer.AggregateContext{}, sampleResults())

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, 3, genErr.Attempts)
}

func TestGeneratePropagatesTransportErrors(t *testing.T) {
	transportErr := errors.New("connection refused")
	client := &scriptedLLM{errs: []error{transportErr, transportErr, transportErr}}

	_, err := NewGenerator(client).Generate(context.Background(), organizer.AggregateContext{}, sampleResults())

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.ErrorContains(t, genErr.LastErr, "connection refused")
}

func TestParseStrategiesRejections(t *testing.T) {
	sources := map[string]bool{"/in/a.jpg": true, "/in/b.txt": true}

	wrap := func(strategies string) string {
		return fmt.Sprintf(`{"strategies": [%s]}`, strategies)
	}
	one := func(typ, assignments string) string {
		return fmt.Sprintf(`{"type": %q, "description": "d", "rationale": "r", "confidence": 0.8, "assignments": [%s]}`, typ, assignments)
	}

	tests := []struct {
		name    string
		raw     string
		wantErr string
	}{
		{"no JSON", "sorry, I cannot help", "no JSON object"},
		{"empty strategies", wrap(""), "expected between"},
		{"unknown type", wrap(one("alphabetical", `{"source": "/in/a.jpg", "dest": "A/a.jpg"}, {"source": "/in/b.txt", "dest": "B/b.txt"}`)), "unknown strategy type"},
		{"duplicate source", wrap(one("by_type", `{"source": "/in/a.jpg", "dest": "A/a.jpg"}, {"source": "/in/a.jpg", "dest": "B/a.jpg"}`)), "assigned more than once"},
		{"incomplete coverage", wrap(one("by_type", `{"source": "/in/a.jpg", "dest": "A/a.jpg"}`)), "covers 1 of 2"},
		{"absolute dest", wrap(one("by_type", `{"source": "/in/a.jpg", "dest": "/etc/a.jpg"}, {"source": "/in/b.txt", "dest": "B/b.txt"}`)), "not a relative"},
		{"escaping dest", wrap(one("by_type", `{"source": "/in/a.jpg", "dest": "../a.jpg"}, {"source": "/in/b.txt", "dest": "B/b.txt"}`)), "escapes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseStrategies(tt.raw, sources)
			require.Error(t, err)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestParseStrategiesAcceptsFencedJSON(t *testing.T) {
	raw := "```json\n" + validResponse() + "\n```"
	got, err := parseStrategies(raw, map[string]bool{"/in/a.jpg": true, "/in/b.txt": true})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestFallbackIsDeterministicAndComplete(t *testing.T) {
	results := []organizer.AnalysisResult{
		{File: organizer.FileRecord{Path: "/in/z.zip", Name: "z.zip", Category: organizer.CategoryOther}},
		{File: organizer.FileRecord{Path: "/in/a.jpg", Name: "a.jpg", Category: organizer.CategoryImage}},
		{File: organizer.FileRecord{Path: "/in/n.txt", Name: "n.txt", Category: organizer.CategoryText}},
		{File: organizer.FileRecord{Path: "/in/r.pdf", Name: "r.pdf", Category: organizer.CategoryDocument}},
	}

	s := Fallback(results)

	assert.True(t, s.Fallback)
	assert.Equal(t, organizer.StrategyByType, s.Type)
	require.Len(t, s.Assignments, 4)
	// Sorted by source, category folders applied.
	assert.Equal(t, organizer.FileAssignment{Source: "/in/a.jpg", Dest: "Images/a.jpg"}, s.Assignments[0])
	assert.Equal(t, organizer.FileAssignment{Source: "/in/n.txt", Dest: "Documents/n.txt"}, s.Assignments[1])
	assert.Equal(t, organizer.FileAssignment{Source: "/in/r.pdf", Dest: "Documents/r.pdf"}, s.Assignments[2])
	assert.Equal(t, organizer.FileAssignment{Source: "/in/z.zip", Dest: "Other/z.zip"}, s.Assignments[3])

	again := Fallback(results)
	assert.Equal(t, s.Assignments, again.Assignments)
}
