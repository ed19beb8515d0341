package services

// Canned answer used when retrieval produces no usable context. The answer
// model is instructed to emit the same sentence, so callers see one fixed
// string either way.
const NoRelevantNotes = "No relevant notes found."

// Fallback returned when the generation provider yields an empty completion.
const emptyCompletionFallback = "No response."

const answerSystemPrompt = "Answer strictly using the provided notes. Be concise. " +
	"If nothing relevant, say 'No relevant notes found.' Cite titles/chunk indexes when helpful."

const classifierSystemPrompt = "Classify the input. Output JSON only."

const classifierUserPrompt = `Input: %s

Return:
{
  "intent": "ingest" | "query",
  "title": string|null,
  "text": string|null
}

Rules:
- "ingest" when user is saving a note (e.g., "I met Jerry today in Sunburn.")
- "query" when user is asking a question about notes.
- For "ingest", set "text" to the note content, "title" short or null.
- For "query", title=null, text=null.`
