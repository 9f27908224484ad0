package ai

import (
	"fmt"
	"strings"

	"github.com/edgard/zapbot/internal/database"
)

// BaseSystemInstruction is the default persona applied when no profile is
// configured. The strict format rules keep replies usable as WhatsApp chat
// messages.
const BaseSystemInstruction = `You are %s, a person chatting on WhatsApp. Reply as a real human would: short, natural, informal.`

// StrictFormatRules is always appended to the system instruction, whatever
// the active profile says.
const StrictFormatRules = `

STRICT FORMAT RULES:
- Reply with a single short message, one or two sentences at most.
- Never use markdown, bullet points, or numbered lists.
- Never mention that you are an AI, a bot, or a language model.
- When a short canned token fits, prefer it over a full sentence. Examples: "ola", "que tal", "aquí andamos", "nel", "ajam", "oc", "sha".`

// StyleAnalysisSystemInstruction drives the writing-style extraction used
// by profile analysis. The model receives raw chat samples and must return
// a compact style description suitable for embedding into a persona's
// system instruction.
const StyleAnalysisSystemInstruction = `You are a writing-style analyst. You will receive raw chat messages written by one person. Describe how they write: typical message length, tone, slang, punctuation and emoji habits, language mix. Output a compact instruction block (under 120 words) that another model could follow to imitate this person. Output only the instruction block, nothing else.`

// toneDirectives maps a profile tone to the sentence appended to the
// system instruction. Unknown or empty tones get the neutral default.
var toneDirectives = map[string]string{
	database.ToneFriendly:     "Keep a warm, friendly tone.",
	database.ToneCasual:       "Keep a relaxed, casual tone with everyday slang.",
	database.ToneProfessional: "Keep a polite, professional tone.",
	database.TonePlayful:      "Keep a playful, joking tone.",
	database.ToneSerious:      "Keep a serious, direct tone.",
}

const neutralToneDirective = "Keep a neutral, natural tone."

// ToneDirective returns the instruction sentence for a tone value.
func ToneDirective(tone string) string {
	if d, ok := toneDirectives[strings.ToLower(strings.TrimSpace(tone))]; ok {
		return d
	}
	return neutralToneDirective
}

// BuildSystemInstruction assembles the full system instruction for a reply:
// persona base (profile system instruction or the default), tone directive,
// learned custom style if any, then the strict format rules.
func BuildSystemInstruction(profile *database.Profile, botName string) string {
	var b strings.Builder

	if profile != nil && strings.TrimSpace(profile.SystemInstruction) != "" {
		b.WriteString(strings.TrimSpace(profile.SystemInstruction))
	} else {
		fmt.Fprintf(&b, BaseSystemInstruction, botName)
	}

	b.WriteString("\n\n")
	if profile != nil {
		b.WriteString(ToneDirective(profile.Tone))
	} else {
		b.WriteString(neutralToneDirective)
	}

	if profile != nil && strings.TrimSpace(profile.CustomStyle) != "" {
		b.WriteString("\n\nWRITING STYLE:\n")
		b.WriteString(strings.TrimSpace(profile.CustomStyle))
	}

	b.WriteString(StrictFormatRules)
	return b.String()
}
