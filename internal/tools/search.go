package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/tidwall/gjson"
)

const perplexityBaseURL = "https://api.perplexity.ai"

const sonarInstructions = "You are an artificial intelligence assistant and you answer questions " +
	"from a user. Your answer will be read out by voice, so do not include annotations or " +
	"formatting of any kind in your response. Try to be brief and answer the question in a " +
	"single concise paragraph. You never ask clarifying questions, just respond as best as you can."

// searchTool answers questions through the Perplexity Sonar API, which speaks
// the OpenAI chat-completions protocol.
type searchTool struct {
	client     openai.Client
	configured bool
}

func newSearchTool(d Deps) *searchTool {
	key := strings.TrimSpace(d.Config.PerplexityAPIKey)
	return &searchTool{
		client: openai.NewClient(
			option.WithAPIKey(key),
			option.WithBaseURL(perplexityBaseURL),
		),
		configured: key != "",
	}
}

func (t *searchTool) Name() string { return "perplexity_sonar_search" }

func (t *searchTool) IsConfigured() bool { return t.configured }

func (t *searchTool) Manifest() Manifest {
	return Manifest{
		Name: t.Name(),
		Type: "function",
		Description: "Answers a question using Internet search via the Perplexity Sonar API. " +
			"Use this for information after your knowlege cutoff date, to research questions " +
			"you do not know the answer to, or for local search.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "The user query to search for",
				},
			},
			"required": []string{"query"},
		},
	}
}

func (t *searchTool) Handle(toolName, arguments string) string {
	if toolName != t.Name() {
		return ""
	}
	if !gjson.Valid(arguments) {
		return "Invalid arguments payload"
	}
	query := strings.TrimSpace(gjson.Get(arguments, "query").String())
	if query == "" {
		return "Missing required argument: query"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	resp, err := t.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: "sonar-pro",
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(sonarInstructions),
			openai.UserMessage(query),
		},
	})
	if err != nil {
		return fmt.Sprintf("Failed to answer question: %v", err)
	}
	if len(resp.Choices) == 0 {
		return "Failed to answer question: no response"
	}
	return resp.Choices[0].Message.Content
}
