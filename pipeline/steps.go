package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/smallnest/textflow/graph"
	"github.com/smallnest/textflow/log"
	"github.com/smallnest/textflow/report"
)

// State field names written by the pipeline steps.
const (
	KeyText           = "text"
	KeyClassification = "classification"
	KeyCategory       = "category"
	KeyEntities       = "entities"
	KeySummary        = "summary"
	KeySentiment      = "sentiment"
	KeyReport         = "report"
)

// ErrNoInputText is returned when a run starts without the text field.
var ErrNoInputText = errors.New("state has no input text")

// ClassificationStep asks the model to classify the input text and records
// both the model's raw answer and its normalized Category.
func ClassificationStep(model llms.Model) graph.StepFunc {
	return func(ctx context.Context, state graph.State) (graph.State, error) {
		text := state.GetString(KeyText)
		if text == "" {
			return nil, ErrNoInputText
		}

		out, err := llms.GenerateFromSinglePrompt(ctx, model, fmt.Sprintf(classifyPrompt, text))
		if err != nil {
			return nil, fmt.Errorf("classify text: %w", err)
		}
		classification := strings.TrimSpace(out)
		category := ParseCategory(classification)
		log.Debug("classified as %q (category %s)", classification, category)

		return graph.State{
			KeyClassification: classification,
			KeyCategory:       category.String(),
		}, nil
	}
}

// EntityExtractionStep asks the model for the named entities in the text as a
// JSON array and parses the answer, tolerating markdown code fences and
// falling back to comma-separated output.
func EntityExtractionStep(model llms.Model) graph.StepFunc {
	return func(ctx context.Context, state graph.State) (graph.State, error) {
		out, err := llms.GenerateFromSinglePrompt(ctx, model, fmt.Sprintf(entitiesPrompt, state.GetString(KeyText)))
		if err != nil {
			return nil, fmt.Errorf("extract entities: %w", err)
		}

		entities := parseEntityList(out)
		log.Debug("extracted %d entities", len(entities))
		return graph.State{KeyEntities: entities}, nil
	}
}

// StandardSummaryStep produces a one-sentence summary, used for news and
// other factual texts.
func StandardSummaryStep(model llms.Model) graph.StepFunc {
	return summaryStep(model, standardSummaryPrompt)
}

// DetailedSummaryStep produces a multi-point summary covering findings,
// methodology and implications, used for research texts.
func DetailedSummaryStep(model llms.Model) graph.StepFunc {
	return summaryStep(model, detailedSummaryPrompt)
}

func summaryStep(model llms.Model, prompt string) graph.StepFunc {
	return func(ctx context.Context, state graph.State) (graph.State, error) {
		out, err := llms.GenerateFromSinglePrompt(ctx, model, fmt.Sprintf(prompt, state.GetString(KeyText)))
		if err != nil {
			return nil, fmt.Errorf("summarize text: %w", err)
		}
		return graph.State{KeySummary: strings.TrimSpace(out)}, nil
	}
}

// SentimentStep labels the sentiment of a blog post as Positive, Negative or
// Neutral.
func SentimentStep(model llms.Model) graph.StepFunc {
	return func(ctx context.Context, state graph.State) (graph.State, error) {
		out, err := llms.GenerateFromSinglePrompt(ctx, model, fmt.Sprintf(sentimentPrompt, state.GetString(KeyText)))
		if err != nil {
			return nil, fmt.Errorf("analyze sentiment: %w", err)
		}
		return graph.State{KeySentiment: strings.TrimSpace(out)}, nil
	}
}

// ReportStep assembles the findings accumulated in the state into the final
// markdown report. It makes no model calls.
func ReportStep() graph.StepFunc {
	return func(_ context.Context, state graph.State) (graph.State, error) {
		md := report.Markdown(report.Analysis{
			Classification: state.GetString(KeyClassification),
			Entities:       state.GetStrings(KeyEntities),
			Summary:        state.GetString(KeySummary),
			Sentiment:      state.GetString(KeySentiment),
		})
		return graph.State{KeyReport: md}, nil
	}
}

// parseEntityList turns a model answer into a list of entity names. The happy
// path is a JSON string array, possibly inside a code fence; anything else is
// split on commas and newlines.
func parseEntityList(raw string) []string {
	s := stripCodeFence(strings.TrimSpace(raw))

	var arr []string
	if err := json.Unmarshal([]byte(s), &arr); err == nil {
		return cleanEntityList(arr)
	}

	// models sometimes wrap the array in an object like {"entities": [...]}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &obj); err == nil {
		for _, v := range obj {
			if err := json.Unmarshal(v, &arr); err == nil {
				return cleanEntityList(arr)
			}
		}
	}

	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '\n'
	})
	return cleanEntityList(fields)
}

func cleanEntityList(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, e := range raw {
		e = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(e), "-"))
		e = strings.Trim(e, `"`)
		if e != "" {
			out = append(out, e)
		}
	}
	return out
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
