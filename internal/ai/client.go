// Package ai wraps the upstream OpenAI-compatible API for chat, embeddings,
// and memory utility calls.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/amoralabs/amora/internal/types"
)

const (
	defaultTemperature = 0.8
	defaultMaxTokens   = 2000
)

// Config selects upstream models. ChatModel drives conversation replies,
// UtilityModel drives extraction and summarization, EmbeddingModel drives
// vector generation.
type Config struct {
	APIKey         string
	BaseURL        string
	ChatModel      string
	UtilityModel   string
	EmbeddingModel string
}

// Client is the single upstream gateway. All model traffic funnels through it.
type Client struct {
	api openai.Client
	cfg Config
}

// NewClient builds a Client against the configured endpoint.
func NewClient(cfg Config) *Client {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Client{
		api: openai.NewClient(opts...),
		cfg: cfg,
	}
}

// CompletionRequest is one blocking or streaming chat call.
type CompletionRequest struct {
	Model       string
	Messages    []openai.ChatCompletionMessageParamUnion
	Temperature float64
	MaxTokens   int64
}

// CompletionResult carries the reply plus usage bookkeeping.
type CompletionResult struct {
	Content    string
	Model      string
	TokensUsed int64
}

func (c *Client) params(req CompletionRequest) openai.ChatCompletionNewParams {
	temperature := req.Temperature
	if temperature == 0 {
		temperature = defaultTemperature
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}
	return openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(req.Model),
		Messages:    req.Messages,
		Temperature: openai.Float(temperature),
		MaxTokens:   openai.Int(maxTokens),
	}
}

// ChatCompletion performs one blocking chat call.
func (c *Client) ChatCompletion(ctx context.Context, req CompletionRequest) (*CompletionResult, error) {
	resp, err := c.api.Chat.Completions.New(ctx, c.params(req))
	if err != nil {
		return nil, goerr.Wrap(err, "chat completion failed", goerr.V("model", req.Model))
	}
	result := &CompletionResult{
		Model:      resp.Model,
		TokensUsed: resp.Usage.TotalTokens,
	}
	if len(resp.Choices) > 0 {
		result.Content = resp.Choices[0].Message.Content
	}
	return result, nil
}

// ChatCompletionStream yields token chunks followed by exactly one terminal
// done or error chunk. The done chunk carries the accumulated content in its
// metadata so callers can persist without re-joining tokens.
func (c *Client) ChatCompletionStream(ctx context.Context, req CompletionRequest) iter.Seq[types.ChatStreamChunk] {
	return func(yield func(types.ChatStreamChunk) bool) {
		stream := c.api.Chat.Completions.NewStreaming(ctx, c.params(req))
		defer func() {
			_ = stream.Close()
		}()

		var full strings.Builder
		var model string
		for stream.Next() {
			chunk := stream.Current()
			if chunk.Model != "" {
				model = chunk.Model
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			content := chunk.Choices[0].Delta.Content
			if content == "" {
				continue
			}
			full.WriteString(content)
			if !yield(types.ChatStreamChunk{Type: types.ChunkToken, Content: content}) {
				return
			}
		}
		if err := stream.Err(); err != nil {
			yield(types.ChatStreamChunk{Type: types.ChunkError, Error: err.Error()})
			return
		}
		yield(types.ChatStreamChunk{
			Type: types.ChunkDone,
			Content: full.String(),
			Metadata: &types.MessageMetadata{Model: model},
		})
	}
}

// Complete runs one system+user turn against the utility model.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	result, err := c.ChatCompletion(ctx, CompletionRequest{
		Model: c.cfg.UtilityModel,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	})
	if err != nil {
		return "", err
	}
	return result.Content, nil
}

// CreateEmbedding returns the vector for one text.
func (c *Client) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.api.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(c.cfg.EmbeddingModel),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(text),
		},
	})
	if err != nil {
		return nil, goerr.Wrap(err, "embedding request failed")
	}
	if len(resp.Data) == 0 {
		return nil, goerr.New("embedding response contained no data")
	}
	embedding := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		embedding[i] = float32(v)
	}
	return embedding, nil
}

const extractionSystemPrompt = "You are a memory extraction assistant. Return only valid JSON arrays."

const extractionPromptTemplate = `Analyze this conversation and extract important memories:
- Facts about the user (birthday, preferences, important events)
- Preferences (likes, dislikes, hobbies)
- Emotional events (milestones, meaningful moments)
- Memorable quotes

Return as JSON array with: type (fact/preference/event/quote/milestone), content, importance (0-100), metadata (optional)

Conversation:
%s`

// ExtractMemories asks the utility model to pull memory tuples out of a
// conversation transcript. Malformed model output yields an empty slice, not
// an error.
func (c *Client) ExtractMemories(ctx context.Context, conversationText string) ([]types.ExtractedMemory, error) {
	result, err := c.ChatCompletion(ctx, CompletionRequest{
		Model: c.cfg.UtilityModel,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(extractionSystemPrompt),
			openai.UserMessage(fmt.Sprintf(extractionPromptTemplate, conversationText)),
		},
		Temperature: 0.3,
	})
	if err != nil {
		return nil, err
	}
	return parseExtractedMemories(result.Content), nil
}

// parseExtractedMemories tolerates prose around the JSON array by slicing
// between the first '[' and last ']'.
func parseExtractedMemories(content string) []types.ExtractedMemory {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start < 0 || end <= start {
		return nil
	}
	var memories []types.ExtractedMemory
	if err := json.Unmarshal([]byte(content[start:end+1]), &memories); err != nil {
		return nil
	}
	return memories
}

const summarySystemPrompt = "You are a memory summarization assistant."

const summaryPromptTemplate = `Create a concise summary of these memories about the user. Focus on key facts, preferences, and relationship dynamics.

Memories:
%s`

// SummarizeMemories rolls a memory list into one narrative paragraph.
func (c *Client) SummarizeMemories(ctx context.Context, memories []types.Memory) (string, error) {
	lines := make([]string, 0, len(memories))
	for _, memory := range memories {
		lines = append(lines, fmt.Sprintf("[%s] %s", memory.Type, memory.Content))
	}
	result, err := c.ChatCompletion(ctx, CompletionRequest{
		Model: c.cfg.UtilityModel,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(summarySystemPrompt),
			openai.UserMessage(fmt.Sprintf(summaryPromptTemplate, strings.Join(lines, "\n"))),
		},
		Temperature: 0.5,
		MaxTokens:   500,
	})
	if err != nil {
		return "", err
	}
	return result.Content, nil
}
