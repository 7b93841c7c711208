// Package responder produces the synthetic side of the conversation: a
// keyword-driven reply generator and a scheduler that commits replies to the
// store after a simulated thinking delay.
package responder

import (
	"math/rand"
	"strings"
	"sync"
)

// Canned replies for the keyword branches. The texts are part of the
// observable contract; tests compare against them verbatim.
const (
	ReplyGreeting  = "Hello! Nice to meet you. How can I assist you today?"
	ReplyPricing   = "I'd be happy to help you with pricing information. Our services are competitively priced and we offer various packages to suit different needs."
	ReplyHelp      = "I'm here to help! I can assist you with questions, provide information, and guide you through our services. What specific area would you like help with?"
	ReplyGratitude = "You're very welcome! I'm glad I could help. Is there anything else you'd like to know?"
)

// GenericReplies is the fallback pool used when no keyword branch matches.
var GenericReplies = []string{
	"That's a great question! Let me help you with that.",
	"I understand what you're looking for. Here's what I can tell you:",
	"Thanks for asking! I'd be happy to assist you with this.",
	"Great! Here's some information that might help:",
	"I can definitely help you with that. Let me explain:",
	"I see what you mean. Here's my perspective on that:",
	"That's an interesting point. Let me share some insights:",
	"I appreciate you bringing this up. Here's what I think:",
}

// rule pairs a set of substring triggers with its canned reply. Rules are
// evaluated in declared order and the first match wins, so an input that
// matches several branches ("thanks for the help") gets the earlier one.
type rule struct {
	name     string
	triggers []string
	reply    string
}

var rules = []rule{
	{name: "greeting", triggers: []string{"hello", "hi"}, reply: ReplyGreeting},
	{name: "pricing", triggers: []string{"price", "cost"}, reply: ReplyPricing},
	{name: "help", triggers: []string{"help", "support"}, reply: ReplyHelp},
	{name: "gratitude", triggers: []string{"thank"}, reply: ReplyGratitude},
}

// Generator maps user text to a reply. Matching is deterministic; only the
// fallback pick consumes randomness, drawn from the seeded source.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator returns a Generator whose fallback picks are driven by seed.
func NewGenerator(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// Generate returns the reply for userText: the first matching keyword branch,
// or a uniformly random generic acknowledgement when none match.
func (g *Generator) Generate(userText string) string {
	lower := strings.ToLower(userText)
	for _, r := range rules {
		for _, t := range r.triggers {
			if strings.Contains(lower, t) {
				return r.reply
			}
		}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return GenericReplies[g.rng.Intn(len(GenericReplies))]
}
