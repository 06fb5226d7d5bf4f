// Package pipeline implements the text-analysis workflow on top of the graph
// engine: classify the input, extract its named entities, then either
// summarize it (standard for news, detailed for research) or analyze its
// sentiment (blogs), and assemble a final report. Texts that fit no category
// skip the analysis branches entirely.
package pipeline
