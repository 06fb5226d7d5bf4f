package pipeline

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"

	"github.com/smallnest/textflow/graph"
)

// Node names of the text-analysis workflow.
const (
	NodeClassify         = "classify"
	NodeExtractEntities  = "extract_entities"
	NodeDetailedSummary  = "detailed_summary"
	NodeStandardSummary  = "standard_summary"
	NodeAnalyzeSentiment = "analyze_sentiment"
	NodeGenerateReport   = "generate_report"
)

// NewGraph declares the text-analysis workflow:
//
//	classify -> extract_entities          (research, blog, news)
//	classify -> END                       (other)
//	extract_entities -> detailed_summary  (research)
//	extract_entities -> analyze_sentiment (blog)
//	extract_entities -> standard_summary  (news)
//	*_summary / analyze_sentiment -> generate_report -> END
//
// The graph is returned uncompiled so callers can draw it with
// graph.NewExporter; Build compiles it.
func NewGraph(model llms.Model) *graph.Graph {
	g := graph.New()

	g.AddNode(NodeClassify, ClassificationStep(model))
	g.AddNode(NodeExtractEntities, EntityExtractionStep(model))
	g.AddNode(NodeDetailedSummary, DetailedSummaryStep(model))
	g.AddNode(NodeStandardSummary, StandardSummaryStep(model))
	g.AddNode(NodeAnalyzeSentiment, SentimentStep(model))
	g.AddNode(NodeGenerateReport, ReportStep())

	g.SetEntryPoint(NodeClassify)

	g.AddConditionalEdges(NodeClassify, categoryRouter, map[string]string{
		CategoryResearch.String(): NodeExtractEntities,
		CategoryBlog.String():     NodeExtractEntities,
		CategoryNews.String():     NodeExtractEntities,
		CategoryOther.String():    graph.END,
	})

	g.AddConditionalEdges(NodeExtractEntities, categoryRouter, map[string]string{
		CategoryResearch.String(): NodeDetailedSummary,
		CategoryBlog.String():     NodeAnalyzeSentiment,
		CategoryNews.String():     NodeStandardSummary,
	})

	g.AddEdge(NodeDetailedSummary, NodeGenerateReport)
	g.AddEdge(NodeStandardSummary, NodeGenerateReport)
	g.AddEdge(NodeAnalyzeSentiment, NodeGenerateReport)
	g.AddEdge(NodeGenerateReport, graph.END)

	return g
}

// Build compiles the text-analysis workflow for the given model.
func Build(model llms.Model) (*graph.Runnable, error) {
	return NewGraph(model).Compile()
}

// categoryRouter routes on the normalized category the classify step wrote.
// ParseCategory guarantees the value is one of the declared categories, so an
// unmapped label can only mean the state was tampered with; the engine then
// fails the run.
func categoryRouter(_ context.Context, state graph.State) string {
	return state.GetString(KeyCategory)
}

// Result holds the outcome of one analysis run.
type Result struct {
	// Category is the normalized classification.
	Category Category

	// Classification is the model's raw classification answer.
	Classification string

	// Entities are the named entities found in the text.
	Entities []string

	// Summary is the standard or detailed summary, depending on the branch.
	Summary string

	// Sentiment is set only for blog posts.
	Sentiment string

	// Report is the final markdown report. Empty for texts classified as
	// other, which skip the analysis branches entirely.
	Report string
}

// Analyzer runs the text-analysis workflow.
type Analyzer struct {
	runnable *graph.Runnable
}

// New builds an analyzer around the given model.
func New(model llms.Model) (*Analyzer, error) {
	runnable, err := Build(model)
	if err != nil {
		return nil, fmt.Errorf("build analysis workflow: %w", err)
	}
	return &Analyzer{runnable: runnable}, nil
}

// Run analyzes one text and returns the collected findings. Run options such
// as graph.WithStepTimeout or graph.WithListener pass through to the engine.
func (a *Analyzer) Run(ctx context.Context, text string, opts ...graph.Option) (*Result, error) {
	final, err := a.runnable.Invoke(ctx, graph.State{KeyText: text}, opts...)
	if err != nil {
		return nil, err
	}

	return &Result{
		Category:       Category(final.GetString(KeyCategory)),
		Classification: final.GetString(KeyClassification),
		Entities:       final.GetStrings(KeyEntities),
		Summary:        final.GetString(KeySummary),
		Sentiment:      final.GetString(KeySentiment),
		Report:         final.GetString(KeyReport),
	}, nil
}

// Runnable exposes the compiled workflow for callers that need direct engine
// access, e.g. to attach a tracer across several runs.
func (a *Analyzer) Runnable() *graph.Runnable {
	return a.runnable
}
