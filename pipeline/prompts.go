package pipeline

const classifyPrompt = `Classify the following text into one of the categories: News, Blog, Research, or Other.
Respond with only the category name.

Text: %s

Category:`

const entitiesPrompt = `Extract all the named entities (People, Organizations, Locations) from the text.
Respond with a JSON array of entity names and nothing else.

Text: %s

Entities:`

const standardSummaryPrompt = `Summarize the following text in one concise sentence.

Text: %s

Summary:`

const detailedSummaryPrompt = `Create a detailed, multi-point summary of the following research text.
Focus on the key findings, methodology, and implications.

Text: %s

Detailed Summary:`

const sentimentPrompt = `Analyze the sentiment of the following blog post.
Respond with only one of these words: Positive, Negative, or Neutral.

Text: %s

Sentiment:`
