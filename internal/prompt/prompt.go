// Package prompt builds the two generation prompts from retrieved context,
// conversation memory, and the question. Pure string templating, no side effects.
package prompt

import (
	"fmt"
	"strings"

	"github.com/counselhq/counsel/internal/models"
	"github.com/counselhq/counsel/pkg/utils"
)

const internalTemplate = `You are a Company Law AI Assistant. Answer based ONLY on the provided internal documents.

Previous conversation context:
%s

Context from internal documents:
%s

Question: %s

Provide a comprehensive answer based ONLY on the internal documents. If the information is not available in the documents, state that clearly.

Answer:`

const webTemplate = `You are a Company Law AI Assistant. Answer based on web search results and general legal knowledge.

Previous conversation context:
%s

Web search results:
%s

Question: %s

Provide additional insights, recent updates, or supplementary information based on the web search results. If no relevant web results are available, provide general legal guidance.

Answer:`

// webSnippetLimit bounds how much of each snippet is rendered into the prompt.
const webSnippetLimit = 200

// Internal builds the internal-knowledge prompt: the model must answer from
// the supplied document context only.
func Internal(memoryContext, docContext, question string) string {
	return fmt.Sprintf(internalTemplate, memoryContext, docContext, question)
}

// Web builds the web-augmented prompt from formatted search snippets.
func Web(memoryContext, webResults, question string) string {
	return fmt.Sprintf(webTemplate, memoryContext, webResults, question)
}

// FormatWebResults renders search results as prompt context, one bullet per
// result with the content bounded.
func FormatWebResults(results []models.WebResult) string {
	lines := make([]string, len(results))
	for i, r := range results {
		lines[i] = fmt.Sprintf("- %s: %s", r.Title, utils.Truncate(r.Content, webSnippetLimit))
	}
	return strings.Join(lines, "\n")
}

// FormatChunks joins chunk texts with a separator for the internal prompt.
func FormatChunks(chunks []models.Chunk) string {
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	return strings.Join(texts, "\n---\n")
}
