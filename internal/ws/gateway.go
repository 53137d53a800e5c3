package ws

import (
	"context"
	"encoding/json"
	"iter"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/amoralabs/amora/internal/auth"
	"github.com/amoralabs/amora/internal/types"
)

// ChatService is the slice of the chat layer the gateway drives.
type ChatService interface {
	Get(ctx context.Context, userID, chatID string) (*types.Chat, error)
	SendMessage(ctx context.Context, userID, chatID, content, imageURL string) (*types.Message, error)
	StreamResponse(ctx context.Context, userID, chatID string) (iter.Seq[types.ChatStreamChunk], error)
}

// TokenVerifier authenticates the websocket handshake.
type TokenVerifier interface {
	VerifyToken(raw string) (*auth.Session, error)
}

// Gateway upgrades connections and translates events into chat operations.
type Gateway struct {
	hub      *Hub
	chats    ChatService
	verifier TokenVerifier
	upgrader websocket.Upgrader
}

// NewGateway returns a Gateway. checkOrigin permits cross-origin handshakes
// from the configured frontends.
func NewGateway(hub *Hub, chats ChatService, verifier TokenVerifier, checkOrigin func(*http.Request) bool) *Gateway {
	return &Gateway{
		hub:      hub,
		chats:    chats,
		verifier: verifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
	}
}

// ServeHTTP authenticates via token query parameter or Authorization header,
// upgrades, and starts the pumps.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		header := r.Header.Get("Authorization")
		if len(header) > 7 && header[:7] == "Bearer " {
			token = header[7:]
		}
	}
	session, err := g.verifier.VerifyToken(token)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("websocket upgrade failed", "error", err)
		return
	}

	client := &Client{
		hub:    g.hub,
		conn:   conn,
		send:   make(chan Event, sendBuffer),
		userID: session.UserID,
		rooms:  map[string]struct{}{"user:" + session.UserID: {}},
	}
	g.hub.register(client)

	go client.writePump()
	client.readPump(g.handle)
}

type joinPayload struct {
	ChatID string `json:"chatId"`
}

type messagePayload struct {
	ChatID   string `json:"chatId"`
	Content  string `json:"content"`
	ImageURL string `json:"imageUrl,omitempty"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func (g *Gateway) handle(client *Client, event Event) {
	switch event.Event {
	case "chat:join":
		g.handleJoin(client, event.Data)
	case "chat:message":
		g.handleMessage(client, event.Data)
	default:
		client.Send(errorEvent("unknown event: " + event.Event))
	}
}

func (g *Gateway) handleJoin(client *Client, data json.RawMessage) {
	var payload joinPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ChatID == "" {
		client.Send(errorEvent("invalid chat:join payload"))
		return
	}

	ctx := context.Background()
	if _, err := g.chats.Get(ctx, client.userID, payload.ChatID); err != nil {
		client.Send(errorEvent("cannot join chat"))
		return
	}
	client.Join("chat:" + payload.ChatID)
	client.Send(mustEvent("chat:joined", map[string]any{"chatId": payload.ChatID}))
}

// handleMessage persists the user turn, broadcasts it, then streams the
// reply token by token into the chat room.
func (g *Gateway) handleMessage(client *Client, data json.RawMessage) {
	var payload messagePayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ChatID == "" {
		client.Send(errorEvent("invalid chat:message payload"))
		return
	}

	ctx := context.Background()
	room := "chat:" + payload.ChatID

	message, err := g.chats.SendMessage(ctx, client.userID, payload.ChatID, payload.Content, payload.ImageURL)
	if err != nil {
		client.Send(errorEvent(err.Error()))
		return
	}
	g.hub.Broadcast(room, "chat:message", message)

	stream, err := g.chats.StreamResponse(ctx, client.userID, payload.ChatID)
	if err != nil {
		g.hub.Broadcast(room, "chat:error", errorPayload{Message: err.Error()})
		return
	}
	for chunk := range stream {
		switch chunk.Type {
		case types.ChunkToken:
			g.hub.Broadcast(room, "chat:stream", chunk)
		case types.ChunkDone:
			g.hub.Broadcast(room, "chat:message", types.Message{
				ChatID:   payload.ChatID,
				Role:     types.RoleAssistant,
				Content:  chunk.Content,
				Metadata: chunk.Metadata,
			})
			g.hub.Broadcast(room, "chat:stream", types.ChatStreamChunk{Type: types.ChunkDone})
		case types.ChunkError:
			g.hub.Broadcast(room, "chat:error", errorPayload{Message: chunk.Error})
		}
	}
}

func errorEvent(message string) Event {
	return mustEvent("chat:error", errorPayload{Message: message})
}

func mustEvent(name string, payload any) Event {
	data, _ := json.Marshal(payload)
	return Event{Event: name, Data: data}
}
