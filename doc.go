// Textflow - A State-Graph Workflow Engine for Text Analysis
//
// Textflow runs text analysis as a compiled state graph: nodes do the work,
// edges and routers decide what runs next, and a shared state record carries
// the findings from node to node. The repository ships both the generic
// engine and a ready-made analysis pipeline built on it.
//
// # Quick Start
//
// Install the package:
//
//	go get github.com/smallnest/textflow
//
// Analyze a text:
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//
//		"github.com/smallnest/textflow/pipeline"
//		"github.com/tmc/langchaingo/llms/openai"
//	)
//
//	func main() {
//		llm, _ := openai.New()
//		analyzer, _ := pipeline.New(llm)
//
//		result, _ := analyzer.Run(context.Background(),
//			"Today in Paris, delegates convened for the Global Climate Summit...")
//
//		fmt.Println(result.Report)
//	}
//
// # Packages
//
// graph/
// The engine: graph builder, compile-time validation, batch-parallel
// execution, listeners, tracing and diagram export.
//
// pipeline/
// The text-analysis workflow: classification with a closed category set,
// entity extraction, category-specific summarization or sentiment analysis,
// and report generation.
//
// report/
// Markdown and sanitized HTML rendering of analysis results.
//
// llmcache/
// Redis-backed memoization of model calls.
//
// archive/
// Persistence of finished analyses, with in-memory, SQLite and PostgreSQL
// backends.
//
// loader/
// Plain-text extraction from HTML input documents.
//
// log/
// Leveled logging used throughout, with a golog adapter.
//
// # Configuration
//
//   - OPENAI_API_KEY: API key for the bundled example's model provider
//   - REDIS_ADDR: enables the model-call cache in the example
package textflow // import "github.com/smallnest/textflow"
