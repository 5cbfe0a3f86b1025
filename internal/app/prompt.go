package app

import (
	"strings"
	"unicode/utf8"
)

// TruncationMarker is appended to a context window cut at the length bound.
const TruncationMarker = "..."

const promptPreamble = `You are an expert research assistant with deep knowledge of academic papers. Your task is to provide comprehensive, detailed, and well-structured answers based ONLY on the research paper content provided below.

INSTRUCTIONS:
- Provide thorough, detailed explanations (minimum 3-4 paragraphs)
- Break down complex concepts into clear sections
- Include specific examples, data, or findings from the paper
- Cite relevant sections or page references when possible
- Use bullet points or numbered lists for clarity when appropriate
- If multiple aspects exist, cover all of them comprehensively
- Only say "I cannot find this information" if the paper truly doesn't contain relevant content`

// Prompt is the assembled generation request before rendering.
type Prompt struct {
	Context  string
	Question string
}

// BuildContext returns text unchanged when it has at most maxLen characters,
// otherwise its first maxLen characters followed by TruncationMarker.
// Characters are counted as runes.
func BuildContext(text string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(text) <= maxLen {
		return text
	}
	n := 0
	for i := range text {
		if n == maxLen {
			return text[:i] + TruncationMarker
		}
		n++
	}
	return text
}

func BuildPrompt(documentText, question string, maxContextLength int) Prompt {
	return Prompt{
		Context:  BuildContext(documentText, maxContextLength),
		Question: question,
	}
}

func (p Prompt) String() string {
	var b strings.Builder
	b.Grow(len(promptPreamble) + len(p.Context) + len(p.Question) + 128)
	b.WriteString(promptPreamble)
	b.WriteString("\n\nRESEARCH PAPER CONTENT:\n")
	b.WriteString(p.Context)
	b.WriteString("\n\nUSER QUESTION: ")
	b.WriteString(p.Question)
	b.WriteString("\n\nDETAILED ANSWER (provide a comprehensive response):")
	return b.String()
}
