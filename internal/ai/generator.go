package ai

import (
	"context"
	"iter"
	"time"

	"github.com/openai/openai-go/v3"

	"github.com/amoralabs/amora/internal/prompt"
	"github.com/amoralabs/amora/internal/types"
)

// Generator turns chat state into character replies.
type Generator struct {
	client *Client
}

// NewGenerator returns a Generator over the given client.
func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

// GenerateInput is everything a reply needs: the persona, ranked memories,
// optional scene, and the chat history including the just-sent user message.
type GenerateInput struct {
	Character *types.Character
	Memories  []types.Memory
	Scene     *types.SceneContext
	History   []types.Message
}

func (g *Generator) buildRequest(in GenerateInput) CompletionRequest {
	system := prompt.BuildSystemPrompt(in.Character, in.Memories, in.Scene)

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(system),
	}
	for _, message := range recentTurns(in.History, types.MaxPromptHistoryTurns) {
		switch message.Role {
		case types.RoleUser:
			messages = append(messages, openai.UserMessage(message.Content))
		case types.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(message.Content))
		}
	}

	return CompletionRequest{
		Model:       g.client.cfg.ChatModel,
		Messages:    messages,
		Temperature: defaultTemperature,
		MaxTokens:   defaultMaxTokens,
	}
}

// GenerateResponse produces one blocking reply with generation metadata.
func (g *Generator) GenerateResponse(ctx context.Context, in GenerateInput) (string, *types.MessageMetadata, error) {
	started := time.Now()
	result, err := g.client.ChatCompletion(ctx, g.buildRequest(in))
	if err != nil {
		return "", nil, err
	}
	metadata := &types.MessageMetadata{
		TokensUsed: result.TokensUsed,
		Model:      result.Model,
		LatencyMS:  time.Since(started).Milliseconds(),
	}
	return result.Content, metadata, nil
}

// GenerateResponseStream produces the same reply as token chunks. The terminal
// done chunk carries the full accumulated content.
func (g *Generator) GenerateResponseStream(ctx context.Context, in GenerateInput) iter.Seq[types.ChatStreamChunk] {
	return g.client.ChatCompletionStream(ctx, g.buildRequest(in))
}

// recentTurns drops system rows and keeps the trailing limit user/assistant
// turns in order.
func recentTurns(history []types.Message, limit int) []types.Message {
	turns := make([]types.Message, 0, len(history))
	for _, message := range history {
		if message.Role == types.RoleUser || message.Role == types.RoleAssistant {
			turns = append(turns, message)
		}
	}
	if len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	return turns
}
