package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/rs/zerolog"
)

// ErrSummarization wraps every LLM call failure: network, quota, malformed
// response. The transcript is already durable when it surfaces.
var ErrSummarization = errors.New("summarization failed")

const (
	// Transcripts above chunkThresholdWords are summarized in overlapping
	// chunks, then merged in a second pass.
	chunkThresholdWords = 10_000
	chunkWords          = 8_000
	overlapWords        = 500
)

const systemPrompt = `You are an expert note-taker converting a raw lecture transcript into clean, structured study notes.

Follow these rules exactly:
- Organize content under clear Markdown headings (##, ###) that mirror the lecture's logical flow.
- Write definitions using the pattern: **Definition:** <term> — <concise explanation>
- Convert ALL mathematical expressions to LaTeX: use $...$ for inline math and $$...$$ for display equations.
- Use bullet points for key ideas, kept concise — capture the concept, not the lecturer's wording.
- Include important examples but only if they illuminate a concept; skip trivial or repetitive ones.
- Remove filler words, digressions, repeated explanations, and off-topic remarks entirely.
- Preserve the logical ordering of topics as they were introduced.
- Output clean Markdown only. No preamble, no "Here are your notes:", no explanation.
- Target roughly 20-30% of the original transcript length.`

const mergePrompt = `You are merging several partial lecture note summaries into a single coherent set of notes.

Follow these rules:
- Merge all sections into one unified document with consistent Markdown headings.
- Remove any duplicate content — keep the clearest version of each concept.
- Ensure logical flow matches the original lecture order (earlier chunks come first).
- Maintain all LaTeX math expressions, bold definitions, and bullet formatting.
- Output clean Markdown only. No preamble or explanation.`

// chatClient is the slice of the OpenAI client the summarizer needs.
type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Summarizer converts raw transcripts into structured Markdown notes via
// chat completions.
type Summarizer struct {
	client chatClient
	model  string
}

func New(apiKey, model string) *Summarizer {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &Summarizer{client: openai.NewClient(apiKey), model: model}
}

// Summarize produces the structured note body for one transcript. Long
// transcripts are split into overlapping word chunks, each summarized
// independently, then merged into a single document.
func (s *Summarizer) Summarize(ctx context.Context, transcript, title, course string) (string, error) {
	header := "Lecture: " + title
	if course != "" {
		header += "\nCourse: " + course
	}

	words := strings.Fields(transcript)
	if len(words) <= chunkThresholdWords {
		return s.complete(ctx, systemPrompt, header+"\n\n---\n\n"+transcript)
	}

	chunks := chunkWordsOverlapping(words)
	zerolog.Ctx(ctx).Info().
		Int("words", len(words)).
		Int("chunks", len(chunks)).
		Msg("transcript too long for one pass, summarizing in chunks")

	partials := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		user := fmt.Sprintf("%s\n(Part %d of %d)\n\n---\n\n%s", header, i+1, len(chunks), chunk)
		partial, err := s.complete(ctx, systemPrompt, user)
		if err != nil {
			return "", err
		}
		partials = append(partials, partial)
	}

	var merged strings.Builder
	for i, partial := range partials {
		if i > 0 {
			merged.WriteString("\n\n---\n\n")
		}
		fmt.Fprintf(&merged, "## Chunk %d\n\n%s", i+1, partial)
	}
	return s.complete(ctx, mergePrompt, header+"\n\n---\n\n"+merged.String())
}

func (s *Summarizer) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSummarization, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion response", ErrSummarization)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func chunkWordsOverlapping(words []string) []string {
	var chunks []string
	start := 0
	for start < len(words) {
		end := start + chunkWords
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
		if end >= len(words) {
			break
		}
		start = end - overlapWords
	}
	return chunks
}
