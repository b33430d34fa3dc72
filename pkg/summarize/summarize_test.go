package summarize

import (
	"context"
	"errors"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

type fakeChatClient struct {
	requests []openai.ChatCompletionRequest
	reply    func(req openai.ChatCompletionRequest) (string, error)
}

func (f *fakeChatClient) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.requests = append(f.requests, req)
	content, err := f.reply(req)
	if err != nil {
		return openai.ChatCompletionResponse{}, err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: content}},
		},
	}, nil
}

func repeatWords(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "word"
	}
	return strings.Join(parts, " ")
}

func TestSummarizeSinglePass(t *testing.T) {
	t.Parallel()

	client := &fakeChatClient{reply: func(openai.ChatCompletionRequest) (string, error) {
		return "  ## Notes\n\n- point one  ", nil
	}}
	s := &Summarizer{client: client, model: "gpt-4o-mini"}

	got, err := s.Summarize(context.Background(), "short transcript", "Lecture 2026-08-24", "CS 301")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if got != "## Notes\n\n- point one" {
		t.Fatalf("summary = %q, want trimmed completion", got)
	}
	if len(client.requests) != 1 {
		t.Fatalf("got %d completion calls, want 1", len(client.requests))
	}

	req := client.requests[0]
	if req.Model != "gpt-4o-mini" {
		t.Fatalf("model = %q", req.Model)
	}
	if req.Messages[0].Role != openai.ChatMessageRoleSystem || !strings.Contains(req.Messages[0].Content, "expert note-taker") {
		t.Fatalf("unexpected system message: %+v", req.Messages[0])
	}
	user := req.Messages[1].Content
	if !strings.Contains(user, "Lecture: Lecture 2026-08-24") || !strings.Contains(user, "Course: CS 301") {
		t.Fatalf("user message missing header: %q", user)
	}
	if !strings.Contains(user, "short transcript") {
		t.Fatalf("user message missing transcript: %q", user)
	}
}

func TestSummarizeOmitsEmptyCourse(t *testing.T) {
	t.Parallel()

	client := &fakeChatClient{reply: func(openai.ChatCompletionRequest) (string, error) {
		return "notes", nil
	}}
	s := &Summarizer{client: client, model: "gpt-4o-mini"}

	if _, err := s.Summarize(context.Background(), "t", "Talk", ""); err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if strings.Contains(client.requests[0].Messages[1].Content, "Course:") {
		t.Fatal("header should omit course line when course is empty")
	}
}

func TestSummarizeLongTranscriptChunksAndMerges(t *testing.T) {
	t.Parallel()

	// 17500 words: chunk 1 covers [0,8000), chunk 2 [7500,15500),
	// chunk 3 [15000,17500). Three partial calls plus one merge call.
	transcript := repeatWords(17_500)

	client := &fakeChatClient{}
	client.reply = func(req openai.ChatCompletionRequest) (string, error) {
		if req.Messages[0].Content == mergePrompt {
			return "merged notes", nil
		}
		return "partial", nil
	}
	s := &Summarizer{client: client, model: "gpt-4o-mini"}

	got, err := s.Summarize(context.Background(), transcript, "Long One", "CS 301")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if got != "merged notes" {
		t.Fatalf("summary = %q, want merge output", got)
	}
	if len(client.requests) != 4 {
		t.Fatalf("got %d completion calls, want 3 partials + 1 merge", len(client.requests))
	}
	for i := 0; i < 3; i++ {
		if client.requests[i].Messages[0].Content != systemPrompt {
			t.Fatalf("call %d: expected summarization system prompt", i)
		}
		want := "(Part " + string(rune('1'+i)) + " of 3)"
		if !strings.Contains(client.requests[i].Messages[1].Content, want) {
			t.Fatalf("call %d: user message missing %q", i, want)
		}
	}
	mergeUser := client.requests[3].Messages[1].Content
	if !strings.Contains(mergeUser, "## Chunk 1") || !strings.Contains(mergeUser, "## Chunk 3") {
		t.Fatalf("merge request missing chunk sections: %q", mergeUser)
	}
}

func TestSummarizeWrapsClientError(t *testing.T) {
	t.Parallel()

	client := &fakeChatClient{reply: func(openai.ChatCompletionRequest) (string, error) {
		return "", errors.New("429 too many requests")
	}}
	s := &Summarizer{client: client, model: "gpt-4o-mini"}

	_, err := s.Summarize(context.Background(), "t", "Talk", "")
	if !errors.Is(err, ErrSummarization) {
		t.Fatalf("err = %v, want ErrSummarization", err)
	}
}

func TestSummarizeEmptyChoices(t *testing.T) {
	t.Parallel()

	s := &Summarizer{client: emptyChoicesClient{}, model: "gpt-4o-mini"}
	_, err := s.Summarize(context.Background(), "t", "Talk", "")
	if !errors.Is(err, ErrSummarization) {
		t.Fatalf("err = %v, want ErrSummarization", err)
	}
}

type emptyChoicesClient struct{}

func (emptyChoicesClient) CreateChatCompletion(context.Context, openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	return openai.ChatCompletionResponse{}, nil
}

func TestChunkWordsOverlapping(t *testing.T) {
	t.Parallel()

	words := strings.Fields(repeatWords(17_500))
	chunks := chunkWordsOverlapping(words)
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	counts := []int{8_000, 8_000, 2_500}
	for i, chunk := range chunks {
		if n := len(strings.Fields(chunk)); n != counts[i] {
			t.Fatalf("chunk %d has %d words, want %d", i, n, counts[i])
		}
	}

	small := strings.Fields(repeatWords(100))
	if got := chunkWordsOverlapping(small); len(got) != 1 {
		t.Fatalf("small input produced %d chunks, want 1", len(got))
	}
}
