// Package types holds the domain model shared across services.
package types

import "time"

// User is an account holder. Password hashes never leave the repository layer.
type User struct {
	ID            string           `json:"id"`
	Email         string           `json:"email"`
	Name          string           `json:"name,omitempty"`
	Avatar        string           `json:"avatar,omitempty"`
	Language      string           `json:"language"`
	EmailVerified bool             `json:"emailVerified"`
	Preferences   *UserPreferences `json:"preferences,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// UserPreferences stores per-user tuning for the companion experience.
type UserPreferences struct {
	UserID          string               `json:"userId"`
	PreferredThemes []string             `json:"preferredThemes"`
	SweetnessLevel  string               `json:"sweetnessLevel"`
	ContentMaturity string               `json:"contentMaturity"`
	Notifications   NotificationSettings `json:"notificationSettings"`
}

// NotificationSettings toggles outbound nudges.
type NotificationSettings struct {
	CheckIns  bool `json:"checkIns"`
	Reminders bool `json:"reminders"`
	Updates   bool `json:"updates"`
}

// PersonalityTraits are the four 0-100 sliders plus free-form trait tags.
type PersonalityTraits struct {
	Warmth         int      `json:"warmth"`
	Playfulness    int      `json:"playfulness"`
	Seriousness    int      `json:"seriousness"`
	EmotionalDepth int      `json:"emotionalDepth"`
	Traits         []string `json:"traits"`
}

// VoiceSettings describe communication style. No audio synthesis happens here;
// only Style feeds prompt assembly.
type VoiceSettings struct {
	Provider string  `json:"provider"`
	VoiceID  string  `json:"voiceId"`
	Speed    float64 `json:"speed"`
	Pitch    int     `json:"pitch"`
	Style    string  `json:"style"`
}

// CharacterBoundaries limit what a character will engage with.
type CharacterBoundaries struct {
	MaxRomanceLevel string   `json:"maxRomanceLevel"`
	AllowedTopics   []string `json:"allowedTopics"`
	BlockedTopics   []string `json:"blockedTopics"`
	SafeMode        bool     `json:"safeMode"`
}

// Character is a configured AI persona. Personality, voice, and boundaries are
// optional nested configs; defaults are filled once at the API boundary.
type Character struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Avatar      string               `json:"avatar,omitempty"`
	Archetype   string               `json:"archetype"`
	Personality *PersonalityTraits   `json:"personality,omitempty"`
	Voice       *VoiceSettings       `json:"voice,omitempty"`
	Boundaries  *CharacterBoundaries `json:"boundaries,omitempty"`
	CreatorID   string               `json:"creatorId,omitempty"`
	IsPublic    bool                 `json:"isPublic"`
	IsPremium   bool                 `json:"isPremium"`
	Tags        []string             `json:"tags"`
	CreatedAt   time.Time            `json:"createdAt"`
	UpdatedAt   time.Time            `json:"updatedAt"`
}

// SceneContext is read-only backdrop for prompt construction.
type SceneContext struct {
	Setting    string `json:"setting,omitempty"`
	Background string `json:"background,omitempty"`
	Mood       string `json:"mood,omitempty"`
	Chapter    int    `json:"chapter,omitempty"`
}

// Chat is a conversation thread between one user and one character.
type Chat struct {
	ID            string        `json:"id"`
	UserID        string        `json:"userId"`
	CharacterID   string        `json:"characterId"`
	Title         string        `json:"title,omitempty"`
	Scene         *SceneContext `json:"scene,omitempty"`
	LastMessageAt time.Time     `json:"lastMessageAt"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
	Character     *Character    `json:"character,omitempty"`
	Messages      []Message     `json:"messages,omitempty"`
}

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// MessageMetadata carries generation bookkeeping for assistant messages.
type MessageMetadata struct {
	Emotion    string `json:"emotion,omitempty"`
	TokensUsed int64  `json:"tokensUsed,omitempty"`
	Model      string `json:"model,omitempty"`
	LatencyMS  int64  `json:"latencyMs,omitempty"`
}

// Message is one append-only turn in a chat. Creation time is the sole
// sequencing invariant.
type Message struct {
	ID        string           `json:"id"`
	ChatID    string           `json:"chatId"`
	Role      string           `json:"role"`
	Content   string           `json:"content"`
	ImageURL  string           `json:"imageUrl,omitempty"`
	Metadata  *MessageMetadata `json:"metadata,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
}

// Memory type tags.
const (
	MemoryTypeFact       = "fact"
	MemoryTypePreference = "preference"
	MemoryTypeEvent      = "event"
	MemoryTypeQuote      = "quote"
	MemoryTypeMilestone  = "milestone"
)

// Memory is a discrete extracted fact about a user, optionally scoped to a
// character and chat. LastAccessedAt is bumped on every retrieval and feeds
// ranking tie-breaks.
type Memory struct {
	ID             string         `json:"id"`
	UserID         string         `json:"userId"`
	CharacterID    string         `json:"characterId,omitempty"`
	ChatID         string         `json:"chatId,omitempty"`
	Type           string         `json:"type"`
	Content        string         `json:"content"`
	Importance     int            `json:"importance"`
	Embedding      []float32      `json:"-"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
	LastAccessedAt time.Time      `json:"lastAccessedAt"`
}

// ExtractedMemory is one tuple from the model's post-turn extraction call.
type ExtractedMemory struct {
	Type       string         `json:"type"`
	Content    string         `json:"content"`
	Importance int            `json:"importance"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// MemorySummary is the single rolled-up narrative per (user, character).
// CharacterID may be empty for the global summary. Regeneration overwrites in
// place; no history is kept.
type MemorySummary struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	CharacterID string    `json:"characterId,omitempty"`
	Summary     string    `json:"summary"`
	KeyFacts    []string  `json:"keyFacts"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// Subscription statuses.
const (
	SubscriptionActive    = "active"
	SubscriptionTrial     = "trial"
	SubscriptionCancelled = "cancelled"
	SubscriptionExpired   = "expired"
)

// Subscription is one billing record; at most one active/trial row counts.
type Subscription struct {
	ID                string     `json:"id"`
	UserID            string     `json:"userId"`
	Tier              string     `json:"tier"`
	Status            string     `json:"status"`
	StartDate         time.Time  `json:"startDate"`
	EndDate           *time.Time `json:"endDate,omitempty"`
	CancelAtPeriodEnd bool       `json:"cancelAtPeriodEnd"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// ModerationViolation is a single keyword hit.
type ModerationViolation struct {
	Type     string `json:"type"`
	Severity string `json:"severity"`
	Reason   string `json:"reason"`
}

// ModerationResult is the safety verdict for one content string.
type ModerationResult struct {
	IsSafe     bool                  `json:"isSafe"`
	Violations []ModerationViolation `json:"violations"`
	Confidence float64               `json:"confidence"`
}

// Stream chunk kinds. Done and Error are terminal; nothing follows either.
const (
	ChunkToken = "token"
	ChunkDone  = "done"
	ChunkError = "error"
)

// ChatStreamChunk is one element of a streamed reply.
type ChatStreamChunk struct {
	Type     string           `json:"type"`
	Content  string           `json:"content,omitempty"`
	Metadata *MessageMetadata `json:"metadata,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// PaginatedResponse wraps list endpoints.
type PaginatedResponse[T any] struct {
	Items    []T   `json:"items"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	HasMore  bool  `json:"hasMore"`
}
