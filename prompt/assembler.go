// Package prompt builds the bounded message sequence submitted upstream
// from a system prompt, a session's history, and the new user message.
package prompt

import (
	"github.com/chatrelay/relay/core/protocol"
)

// MinPromptChars is the floor for the character budget. Configured budgets
// below this are clamped up to avoid pathological truncation.
const MinPromptChars = 1000

// ReasoningGuide is the fixed instruction appended to the system prompt
// when the reasoning-summary toggle is enabled. Opaque content as far as
// assembly is concerned.
const ReasoningGuide = "Before giving your final answer, summarize your reasoning in one or two short sentences."

// Assembler produces the ordered message list for an upstream request:
// one system message, the budget-bounded tail of the history, and the new
// user message last.
type Assembler struct {
	maxTurns       int
	budget         int
	reasoningGuide bool
}

// New creates an Assembler from configuration. The character budget is
// clamped to MinPromptChars.
func New(cfg *Config) *Assembler {
	budget := cfg.MaxPromptChars
	if budget < MinPromptChars {
		budget = MinPromptChars
	}
	return &Assembler{
		maxTurns:       cfg.MaxTurns,
		budget:         budget,
		reasoningGuide: cfg.ReasoningGuide,
	}
}

// Budget returns the effective character budget after clamping.
func (a *Assembler) Budget() int {
	return a.budget
}

// Assemble builds [system, bounded history..., user].
//
// The history is first capped to the most recent 2×MaxTurns entries,
// mirroring the store's own retention so assembly is idempotent on an
// already-capped copy. The character budget is then applied walking from
// the newest message backward; the newest historical message is always
// included even when it alone exceeds the budget, so a request is never
// sent without context. The included subset keeps chronological order.
//
// The budget counts characters, an approximation of the upstream's
// token-based cost model; exactness is a non-goal.
func (a *Assembler) Assemble(systemPrompt string, history []protocol.Message, userMessage string) []protocol.Message {
	if max := 2 * a.maxTurns; a.maxTurns > 0 && len(history) > max {
		history = history[len(history)-max:]
	}

	// Walk newest to oldest; start marks the oldest included entry.
	start := len(history)
	total := 0
	for i := len(history) - 1; i >= 0; i-- {
		size := len(history[i].Content)
		if start < len(history) && total+size > a.budget {
			break
		}
		total += size
		start = i
	}

	messages := make([]protocol.Message, 0, len(history)-start+2)
	messages = append(messages, protocol.NewMessage(protocol.RoleSystem, a.systemContent(systemPrompt)))
	messages = append(messages, history[start:]...)
	messages = append(messages, protocol.NewMessage(protocol.RoleUser, userMessage))
	return messages
}

func (a *Assembler) systemContent(systemPrompt string) string {
	if a.reasoningGuide {
		return systemPrompt + "\n\n" + ReasoningGuide
	}
	return systemPrompt
}
