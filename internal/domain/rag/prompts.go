package rag

import (
	"fmt"
	"strings"
)

const queryOrRespondDirective = "You are a retrieval-augmented assistant. Before answering any question about the user's documents, you must call the retrieve_documents tool with the best search query for the user's current question. Never answer from memory alone."

// BuildSystemPrompt merges the retrieval directive into an existing
// system message (which may already carry a conversation summary)
// rather than replacing it, so exactly one system message ever exists.
func BuildSystemPrompt(existing string) string {
	if strings.TrimSpace(existing) == "" {
		return queryOrRespondDirective
	}
	if strings.Contains(existing, queryOrRespondDirective) {
		return existing
	}
	return existing + "\n\n" + queryOrRespondDirective
}

const gradePromptTemplate = `You are grading whether a retrieved document is relevant to a user question.

Question: %s

Retrieved content:
%s

A document is relevant ("yes") if it addresses the general topic of the question, even if it does not mention every named entity. It is irrelevant ("no") only if it is about a different topic entirely.

Respond with exactly one word: yes or no.`

// BuildGradePrompt renders the grading prompt for one (query, tool
// output) pair.
func BuildGradePrompt(query, toolOutput string) string {
	return sprintfSafe(gradePromptTemplate, query, toolOutput)
}

const rewritePromptTemplate = `The following question did not retrieve relevant documents:

%s

Rewrite it as a single, improved, more specific search query. Respond with only the rewritten question and no other commentary.`

// BuildRewritePrompt renders the rewrite prompt for the current query.
func BuildRewritePrompt(query string) string {
	return sprintfSafe(rewritePromptTemplate, query)
}

var rewritePrefixes = []string{
	"Improved question:",
	"Refined question:",
	"Here is the improved question:",
	"The improved question is:",
	"**Improved question:**",
	"**Refined question:**",
}

// CleanRewrite strips known prefixes and commentary from a rewrite
// response, taking the first line and capping length.
func CleanRewrite(raw string) string {
	text := strings.TrimSpace(raw)
	for _, prefix := range rewritePrefixes {
		if strings.HasPrefix(text, prefix) {
			text = strings.TrimSpace(strings.TrimPrefix(text, prefix))
			break
		}
	}
	if idx := strings.IndexAny(text, "\n"); idx >= 0 {
		text = strings.TrimSpace(text[:idx])
	}
	text = strings.Trim(text, "\"*")
	const maxLen = 200
	if len(text) > maxLen {
		if dot := strings.IndexAny(text, "。.!?"); dot > 0 && dot < maxLen {
			text = text[:dot+1]
		} else {
			text = text[:maxLen]
		}
	}
	return text
}

const generateAnswerTemplate = `Answer the user's question using only the context below. If the context is insufficient, say so plainly and suggest a more specific search rather than guessing.

Context:
%s

Question: %s`

// BuildAnswerPrompt renders the normal-mode answer prompt.
func BuildAnswerPrompt(context, query string) string {
	return sprintfSafe(generateAnswerTemplate, context, query)
}

const noRelevantAnswerTemplate = `The user asked: %s

No relevant content was found in their documents after multiple search attempts. Write a short (at most 3 sentences), polite reply explaining that no relevant information could be found, and suggest they rephrase or upload more documents.`

// BuildNoRelevantPrompt renders the exhausted-retries answer prompt.
func BuildNoRelevantPrompt(query string) string {
	return sprintfSafe(noRelevantAnswerTemplate, query)
}

func sprintfSafe(format string, args ...any) string {
	return fmt.Sprintf(format, args...)
}
