// Package prioritizer asks a language model to rank a user's pending tasks
// and streams the answer back as text chunks.
package prioritizer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/youlead/internal/app/system/apierror"
	"github.com/sashabaranov/go-openai"
)

// DefaultModel is used when no model is configured.
const DefaultModel = openai.GPT4oMini

// TaskInput is what the model sees about one task.
type TaskInput struct {
	Name        string
	Description string
	Project     string
	Priority    string
	Progress    int
	Deadline    time.Time
	PastDue     bool
}

// Stream yields text chunks. Recv returns io.EOF after the last chunk.
type Stream interface {
	Recv() (string, error)
	Close() error
}

// Prioritizer starts a ranking stream for tasks.
type Prioritizer interface {
	Prioritize(ctx context.Context, now time.Time, tasks []TaskInput) (Stream, error)
}

// ErrNotConfigured is returned by Disabled.
var ErrNotConfigured = apierror.New(http.StatusServiceUnavailable, "AI task prioritization is not configured")

// Disabled is used when no API key is set.
type Disabled struct{}

func (Disabled) Prioritize(context.Context, time.Time, []TaskInput) (Stream, error) {
	return nil, ErrNotConfigured
}

// OpenAI streams chat completions from the OpenAI API.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI builds a prioritizer for apiKey. An empty model uses DefaultModel.
func NewOpenAI(apiKey, model string) *OpenAI {
	if model == "" {
		model = DefaultModel
	}
	return &OpenAI{client: openai.NewClient(apiKey), model: model}
}

// New returns an OpenAI prioritizer, or Disabled when apiKey is empty.
func New(apiKey, model string) Prioritizer {
	if strings.TrimSpace(apiKey) == "" {
		return Disabled{}
	}
	return NewOpenAI(apiKey, model)
}

func (o *OpenAI) Prioritize(ctx context.Context, now time.Time, tasks []TaskInput) (Stream, error) {
	req := openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: 0.2,
		Stream:      true,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(now, tasks)},
		},
	}
	s, err := o.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, err
	}
	return &openAIStream{s: s}, nil
}

type openAIStream struct {
	s *openai.ChatCompletionStream
}

func (st *openAIStream) Recv() (string, error) {
	for {
		resp, err := st.s.Recv()
		if errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "" {
			continue
		}
		return resp.Choices[0].Delta.Content, nil
	}
}

func (st *openAIStream) Close() error {
	return st.s.Close()
}

const systemPrompt = `You help team members decide what to work on next.
Rank the tasks you are given from most to least urgent. Weigh deadlines
first, then priority, then how much progress remains. For each task give
one short sentence of reasoning. Answer in plain text as a numbered list.`

// BuildPrompt renders the task list the model ranks.
func BuildPrompt(now time.Time, tasks []TaskInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Today is %s (UTC).\n", now.UTC().Format("Monday, 2006-01-02 15:04"))
	if len(tasks) == 0 {
		b.WriteString("I have no pending tasks.\n")
		return b.String()
	}
	fmt.Fprintf(&b, "My %d pending tasks:\n", len(tasks))
	for i, t := range tasks {
		fmt.Fprintf(&b, "%d. %s", i+1, t.Name)
		if t.Project != "" {
			fmt.Fprintf(&b, " [project: %s]", t.Project)
		}
		fmt.Fprintf(&b, " priority=%s progress=%d%%", t.Priority, t.Progress)
		if !t.Deadline.IsZero() {
			fmt.Fprintf(&b, " deadline=%s", t.Deadline.UTC().Format("2006-01-02 15:04"))
		}
		if t.PastDue {
			b.WriteString(" (PAST DUE)")
		}
		b.WriteByte('\n')
		if d := strings.TrimSpace(t.Description); d != "" {
			fmt.Fprintf(&b, "   %s\n", truncate(d, 300))
		}
	}
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
