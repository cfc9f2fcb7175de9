// Package vision defines the vision-model client port used by image
// analysis, with one implementation backed by an OpenAI-compatible
// multimodal chat API. Images are sent inline as base64 data URIs.
package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/pkg/errors"

	"github.com/sortd-ai/sortd/pkg/config"
	"github.com/sortd-ai/sortd/pkg/logger"
	"github.com/sortd-ai/sortd/pkg/utils"
)

// Result is what the vision model reports about one image.
type Result struct {
	Scene         string   `json:"scene"`
	Objects       []string `json:"objects"`
	PeopleCount   int      `json:"people_count"`
	IndoorOutdoor string   `json:"indoor_outdoor"`
}

// Client is the narrow contract the pipeline has with a vision model.
type Client interface {
	// AnalyzeImage sends the raw image bytes and returns the structured
	// scene description, or an error that triggers EXIF-only fallback.
	AnalyzeImage(ctx context.Context, imageData []byte, mime string) (Result, error)
}

const visionPrompt = `Analyze this image and respond with a single JSON object:
{"scene": "<one short scene label, e.g. beach, office, screenshot>",
 "objects": ["<up to 8 prominent objects>"],
 "people_count": <number of people visible, 0 if none>,
 "indoor_outdoor": "<indoor|outdoor|unknown>"}
Respond with the JSON object only.`

// OpenAIClient implements Client against an OpenAI-compatible multimodal
// endpoint.
type OpenAIClient struct {
	api     *openai.Client
	model   string
	timeout time.Duration
}

// NewClient builds a vision client from configuration.
func NewClient(cfg config.VisionConfig) *OpenAIClient {
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAIClient{
		api:     openai.NewClientWithConfig(apiCfg),
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}
}

// AnalyzeImage sends one image for analysis. Failures and timeouts return
// an error; the caller decides the fallback, the client never retries.
func (c *OpenAIClient) AnalyzeImage(ctx context.Context, imageData []byte, mime string) (Result, error) {
	start := time.Now()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	dataURI := fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(imageData))

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: visionPrompt},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    dataURI,
							Detail: openai.ImageURLDetailAuto,
						},
					},
				},
			},
		},
	})
	if err != nil {
		logger.G(ctx).WithError(err).
			WithField("model", c.model).
			WithField("duration_ms", time.Since(start).Milliseconds()).
			Warn("vision analysis failed")
		return Result{}, errors.Wrap(err, "vision analysis failed")
	}
	if len(resp.Choices) == 0 {
		return Result{}, errors.New("no choices in vision response")
	}

	result, err := ParseResult(resp.Choices[0].Message.Content)
	if err != nil {
		return Result{}, err
	}

	logger.G(ctx).WithField("model", c.model).
		WithField("duration_ms", time.Since(start).Milliseconds()).
		Debug("vision analysis succeeded")

	return result, nil
}

// ParseResult extracts the structured payload out of the model response,
// tolerating surrounding prose and markdown code fences.
func ParseResult(raw string) (Result, error) {
	payload := utils.ExtractJSONObject(raw)
	if payload == "" {
		return Result{}, errors.Errorf("no JSON object in vision response: %q", firstLine(raw))
	}

	var result Result
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return Result{}, errors.Wrap(err, "malformed vision response")
	}
	return result, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
