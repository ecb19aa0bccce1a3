package persona

import (
	"fmt"
	"strings"

	"github.com/Sounak-star/ai-agent-honeypot/internal/session"
)

// historyWindow is how many prior turns are shown to the model.
const historyWindow = 10

const systemPrompt = `You are a normal human user talking to someone who contacted you.
You must never reveal that you're an AI or that this is a scam detection system.

Your personality:
- Sound confused but cooperative
- Be cautious and ask clarifying questions
- Show concern about your account/money
- Ask questions that encourage the other person to reveal more details
- Use natural, conversational language with some hesitation

Never mention:
- AI, bots, or automated systems
- Security systems, honeypots, or detection
- Police, law enforcement, or reporting
- That you know this is a scam

Always:
- Ask for more details naturally
- Express concern or confusion
- Request clarification on steps
- Show willingness to cooperate while being uncertain`

// Fallbacks are served in order as the conversation grows, then the last one
// repeats.
var Fallbacks = []string{
	"I'm not sure I understand. Can you explain what exactly I need to do?",
	"This seems urgent. What happens if I don't do this right away?",
	"Can you tell me more about why this is happening?",
	"I'm a bit confused. Can you walk me through the steps?",
	"Is there a number I can call to verify this?",
	"What information do you need from me?",
	"How did you get my contact information?",
	"I want to help, but I'm not sure what to do next.",
}

// SystemPrompt returns the persona instructions.
func SystemPrompt() string {
	return systemPrompt
}

// Fallback picks the canned reply for a conversation with historyLen prior turns.
func Fallback(historyLen int) string {
	i := historyLen
	if i > len(Fallbacks)-1 {
		i = len(Fallbacks) - 1
	}
	if i < 0 {
		i = 0
	}
	return Fallbacks[i]
}

// BuildPrompt renders the last turns of history followed by the latest message.
func BuildPrompt(latest string, history []session.Message) string {
	var sb strings.Builder
	sb.WriteString("Conversation history:\n")

	start := 0
	if len(history) > historyWindow {
		start = len(history) - historyWindow
	}
	for _, m := range history[start:] {
		sender := m.Sender
		if sender == "" {
			sender = "unknown"
		}
		fmt.Fprintf(&sb, "%s: %s\n", sender, m.Text)
	}

	fmt.Fprintf(&sb, "\nscammer: %s\n\nYour response as the user:", latest)
	return sb.String()
}
