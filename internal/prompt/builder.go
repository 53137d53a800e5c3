// Package prompt assembles the system instruction for a character turn.
package prompt

import (
	"fmt"
	"strings"

	"github.com/amoralabs/amora/internal/types"
)

// Defaults applied when a character omits the corresponding config.
const (
	defaultVoiceStyle   = "warm"
	defaultRomanceLevel = "romantic"
)

// BuildSystemPrompt renders the system instruction from a character, the
// memories to surface (in the order given; the caller owns ranking), and an
// optional scene. Pure function of its inputs.
//
// Section order is fixed: identity, personality, communication style,
// boundaries, memories, scene, closing instructions. A section with no source
// data is omitted entirely; with everything absent the output is the identity
// line plus the closing instructions.
func BuildSystemPrompt(character *types.Character, memories []types.Memory, scene *types.SceneContext) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "You are %s, %s\n\n", character.Name, character.Description)

	if p := character.Personality; p != nil {
		sb.WriteString("Personality:\n")
		fmt.Fprintf(&sb, "- Warmth: %d/100\n", p.Warmth)
		fmt.Fprintf(&sb, "- Playfulness: %d/100\n", p.Playfulness)
		fmt.Fprintf(&sb, "- Seriousness: %d/100\n", p.Seriousness)
		fmt.Fprintf(&sb, "- Emotional Depth: %d/100\n", p.EmotionalDepth)
		if len(p.Traits) > 0 {
			fmt.Fprintf(&sb, "- Traits: %s\n", strings.Join(p.Traits, ", "))
		}
		sb.WriteString("\n")
	}

	if v := character.Voice; v != nil {
		style := v.Style
		if style == "" {
			style = defaultVoiceStyle
		}
		fmt.Fprintf(&sb, "Communication Style: %s, natural and emotional\n\n", style)
	}

	if b := character.Boundaries; b != nil {
		level := b.MaxRomanceLevel
		if level == "" {
			level = defaultRomanceLevel
		}
		sb.WriteString("Boundaries:\n")
		fmt.Fprintf(&sb, "- Maximum romance level: %s\n", level)
		if len(b.BlockedTopics) > 0 {
			fmt.Fprintf(&sb, "- Avoid these topics: %s\n", strings.Join(b.BlockedTopics, ", "))
		}
		sb.WriteString("\n")
	}

	if len(memories) > 0 {
		sb.WriteString("Important things to remember about the user:\n")
		for _, memory := range memories {
			fmt.Fprintf(&sb, "- %s\n", memory.Content)
		}
		sb.WriteString("\n")
	}

	if scene != nil {
		sb.WriteString("Current Scene Context:\n")
		if scene.Setting != "" {
			fmt.Fprintf(&sb, "- Setting: %s\n", scene.Setting)
		}
		if scene.Background != "" {
			fmt.Fprintf(&sb, "- Background: %s\n", scene.Background)
		}
		if scene.Mood != "" {
			fmt.Fprintf(&sb, "- Mood: %s\n", scene.Mood)
		}
		if scene.Chapter != 0 {
			fmt.Fprintf(&sb, "- Chapter: %d\n", scene.Chapter)
		}
		sb.WriteString("\n")
	}

	sb.WriteString(closingInstructions(character.Name))

	return sb.String()
}

// closingInstructions is the fixed trailing block of every system prompt.
func closingInstructions(name string) string {
	var sb strings.Builder
	sb.WriteString("Core Instructions:\n")
	fmt.Fprintf(&sb, "- Always stay in character as %s\n", name)
	sb.WriteString("- Respond with empathy and emotional depth\n")
	sb.WriteString("- Remember and reference important facts about the user\n")
	sb.WriteString("- Keep responses concise but emotionally rich (2-4 sentences typically)\n")
	sb.WriteString("- Use natural, conversational language\n")
	sb.WriteString("- If a request violates boundaries, politely decline\n")
	sb.WriteString("- Never break character or mention you're an AI\n")
	sb.WriteString("- Respond in the user's preferred language when possible\n")
	return sb.String()
}
