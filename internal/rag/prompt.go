package rag

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"meeting-scribe/internal/domain/model"
)

const promptTemplate = `You are a helpful meeting assistant. Answer the user's question based ONLY on the provided context below.
The context includes recent chat history and relevant sections of the meeting transcript. If the answer is not in the context, say so.

**Chat History:**
%s

**Relevant Transcript Sections:**
%s

**User's New Question:**
%s

**Your Answer:**
`

// BuildPrompt assembles the RAG prompt from the recent history (oldest
// first), the ranked context chunks (best first) and the question. When a
// positive tokenBudget is given, the lowest-ranked chunks are dropped
// until the assembled prompt fits.
func BuildPrompt(history []*model.ConversationTurn, contexts []string, question string, tokenBudget int) string {
	lines := make([]string, 0, len(history))
	for _, t := range history {
		lines = append(lines, fmt.Sprintf("%s: %s", strings.ToUpper(string(t.Sender)), t.Message))
	}
	historyText := strings.Join(lines, "\n")

	prompt := fmt.Sprintf(promptTemplate, historyText, strings.Join(contexts, "\n---\n"), question)
	if tokenBudget <= 0 {
		return prompt
	}

	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return prompt
	}
	for len(contexts) > 0 && len(enc.Encode(prompt, nil, nil)) > tokenBudget {
		contexts = contexts[:len(contexts)-1]
		prompt = fmt.Sprintf(promptTemplate, historyText, strings.Join(contexts, "\n---\n"), question)
	}
	return prompt
}

// FormatTranscript renders the stored transcript segments into the flat
// text that gets chunked for embedding.
func FormatTranscript(segments []model.TranscriptSegment) string {
	lines := make([]string, 0, len(segments))
	for _, s := range segments {
		lines = append(lines, fmt.Sprintf("[%s] : %s --> %s", s.Timestamp, s.Speaker, s.Text))
	}
	return strings.Join(lines, "\n")
}
