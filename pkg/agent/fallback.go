package agent

import (
	"strings"

	"assistbot/pkg/intent"
)

type fallbackRule struct {
	match func(string) bool
	reply string
}

var fallbackRules = []fallbackRule{
	{
		match: func(s string) bool { return strings.Contains(s, "comment") && strings.Contains(s, "ça va") },
		reply: "😊 Ça va très bien, merci ! Et vous, comment allez-vous ?",
	},
	{
		match: intent.ContainsAny("merci"),
		reply: "😊 De rien ! Je suis là pour vous aider. Avez-vous d'autres questions ?",
	},
	{
		match: intent.ContainsAny("qui es-tu", "qui êtes-vous"),
		reply: "🤖 Je suis votre assistant WhatsApp intelligent ! Je peux vous aider avec plein de choses. Tapez 'menu' pour découvrir mes fonctionnalités !",
	},
	{
		match: intent.ContainsAny("aide", "help"),
		reply: "🤖 Je peux vous aider avec la météo, actualités, films, blagues, citations et bien plus ! Tapez 'menu' pour voir toutes les options.",
	},
	{
		match: intent.ContainsAny("bonjour", "salut"),
		reply: "👋 Bonjour ! Comment puis-je vous aider aujourd'hui ? Tapez 'menu' pour voir mes fonctionnalités.",
	},
	{
		match: intent.ContainsAny("au revoir", "bye"),
		reply: "👋 Au revoir ! N'hésitez pas à revenir si vous avez besoin d'aide !",
	},
}

const defaultFallbackReply = "🤔 Je ne suis pas sûr de comprendre votre demande. Pouvez-vous reformuler ou tapez 'menu' pour voir ce que je peux faire ?"

// FallbackReply picks a canned reply by coarse keyword match. It never returns
// an empty string.
func FallbackReply(text string) string {
	lower := intent.Normalize(text)
	for _, rule := range fallbackRules {
		if rule.match(lower) {
			return rule.reply
		}
	}

	return defaultFallbackReply
}
