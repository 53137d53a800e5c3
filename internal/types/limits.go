package types

// Subscription tiers.
const (
	TierFree           = "free"
	TierPremiumWeekly  = "premium_weekly"
	TierPremiumMonthly = "premium_monthly"
	TierPremiumAnnual  = "premium_annual"
)

// Unlimited marks a per-day quota with no cap.
const Unlimited = -1

// SubscriptionFeatures is the feature-flag bundle per tier.
type SubscriptionFeatures struct {
	UnlimitedChat     bool `json:"unlimitedChat"`
	HDVoice           bool `json:"hdVoice"`
	ImageGeneration   bool `json:"imageGeneration"`
	AdvancedMemory    bool `json:"advancedMemory"`
	ProactiveCheckIns bool `json:"proactiveCheckIns"`
	PremiumCharacters bool `json:"premiumCharacters"`
}

// SubscriptionLimits are the fixed numeric quotas for a tier.
type SubscriptionLimits struct {
	Tier                   string               `json:"tier"`
	MessagesPerDay         int                  `json:"messagesPerDay"`
	VoiceMessagesPerDay    int                  `json:"voiceMessagesPerDay"`
	ImageGenerationsPerDay int                  `json:"imageGenerationsPerDay"`
	MaxMemoryEntries       int                  `json:"maxMemoryEntries"`
	Features               SubscriptionFeatures `json:"features"`
}

var allPremiumFeatures = SubscriptionFeatures{
	UnlimitedChat:     true,
	HDVoice:           true,
	ImageGeneration:   true,
	AdvancedMemory:    true,
	ProactiveCheckIns: true,
	PremiumCharacters: true,
}

// SubscriptionLimitsByTier is the canonical tier table.
var SubscriptionLimitsByTier = map[string]SubscriptionLimits{
	TierFree: {
		Tier:                   TierFree,
		MessagesPerDay:         50,
		VoiceMessagesPerDay:    5,
		ImageGenerationsPerDay: 3,
		MaxMemoryEntries:       20,
	},
	TierPremiumWeekly: {
		Tier:                   TierPremiumWeekly,
		MessagesPerDay:         Unlimited,
		VoiceMessagesPerDay:    Unlimited,
		ImageGenerationsPerDay: 50,
		MaxMemoryEntries:       1000,
		Features:               allPremiumFeatures,
	},
	TierPremiumMonthly: {
		Tier:                   TierPremiumMonthly,
		MessagesPerDay:         Unlimited,
		VoiceMessagesPerDay:    Unlimited,
		ImageGenerationsPerDay: 100,
		MaxMemoryEntries:       2000,
		Features:               allPremiumFeatures,
	},
	TierPremiumAnnual: {
		Tier:                   TierPremiumAnnual,
		MessagesPerDay:         Unlimited,
		VoiceMessagesPerDay:    Unlimited,
		ImageGenerationsPerDay: 200,
		MaxMemoryEntries:       5000,
		Features:               allPremiumFeatures,
	},
}

// Conversation and memory pipeline tuning.
const (
	// MaxChatHistoryFetch caps how many stored messages one response
	// generation reads back.
	MaxChatHistoryFetch = 100
	// MaxPromptHistoryTurns caps user/assistant turns sent upstream; older
	// turns are silently dropped.
	MaxPromptHistoryTurns = 50
	// MemorySummaryInterval triggers summary regeneration every N turns.
	MemorySummaryInterval = 20
	// DefaultMemoryLimit is the retrieval default for relevant memories.
	DefaultMemoryLimit = 10
	// SummaryMemoryFetch is how many ranked memories feed one summary.
	SummaryMemoryFetch = 50
	// KeyFactMinImportance is the floor for summary key facts.
	KeyFactMinImportance = 70
	// MaxKeyFacts caps extracted key facts per summary.
	MaxKeyFacts = 10
	// DefaultMemoryImportance applies when extraction omits a score.
	DefaultMemoryImportance = 50
)
