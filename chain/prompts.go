package chain

import (
	"github.com/poiesic/docchat/core"
	"github.com/tmc/langchaingo/prompts"
)

const answerPromptTemplate = `You are a helpful assistant that answers questions about the user's documents.

Answer ONLY from the numbered context passages below. If the passages do not contain the answer,
say that you could not find it in the documents. Do not use outside knowledge and do not invent facts.

Rules:
- Cite every passage you rely on with its number in square brackets, for example [1] or [2][3].
- Answer in the language of the question.
- End your answer with a single line that starts with "Sources:" followed by each cited passage as "[n] source name".
{{if .passages}}
Context:
{{range .passages}}
[{{.Number}}] {{.Label}}
{{.Text}}
{{end}}{{else}}
Context: no passages matched the question.
{{end}}`

const summaryPromptTemplate = `Summarize the answer below in at most three sentences.
Keep the [n] citation markers that support the summary. Output only the summary, without a heading.

Answer:
{{.answer}}`

var (
	answerPrompt  = prompts.NewPromptTemplate(answerPromptTemplate, []string{"passages"})
	summaryPrompt = prompts.NewPromptTemplate(summaryPromptTemplate, []string{"answer"})
)

// passage is one retrieved chunk as shown to the model.
type passage struct {
	Number int
	Label  string
	Text   string
}

// buildSystemPrompt renders the instructions with the retrieved chunks
// numbered from 1 in rank order.
func buildSystemPrompt(chunks []core.Chunk) (string, error) {
	passages := make([]passage, len(chunks))
	for i := range chunks {
		passages[i] = passage{
			Number: i + 1,
			Label:  sourceLabel(&chunks[i]),
			Text:   chunks[i].Text,
		}
	}
	return answerPrompt.Format(map[string]any{"passages": passages})
}

// buildSummaryPrompt renders the request for the condensed answer.
func buildSummaryPrompt(answer string) (string, error) {
	return summaryPrompt.Format(map[string]any{"answer": answer})
}
