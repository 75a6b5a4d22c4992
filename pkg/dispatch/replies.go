package dispatch

import (
	"fmt"
	"strings"

	"assistbot/pkg/provider"
	"assistbot/pkg/rich"
)

const (
	rule = "━━━━━━━━━━━━━━━━━━━━"

	assistantHeader = "🤖 Assistant IA"

	unknownOptionReply  = "🤔 Option non reconnue. Tapez 'menu' pour voir les options disponibles."
	genericFailureReply = "🤔 Désolé, je n'ai pas pu traiter votre demande. Tapez 'menu' pour voir mes fonctionnalités."

	barcodeSearching = "🔍 Recherche du produit en cours..."
	demoStarting     = "🧪 Démonstration avec un produit populaire..."
	demoFailed       = "❌ Erreur lors de la démonstration. Essayez avec un autre code-barres !"

	resultsHint = "💡 Envoyez un code-barres pour plus de détails !"
)

// Button ids understood by the engine.
const (
	buttonWeather       = "weather_btn"
	buttonNews          = "news_btn"
	buttonEntertainment = "entertainment_btn"
	buttonMovies        = "movies_btn"
	buttonHelp          = "help_btn"
	buttonJoke          = "joke_btn"
	buttonQuote         = "quote_btn"
	buttonFact          = "fact_btn"
	buttonFood          = "food_btn"
	buttonFoodSearch    = "food_search_btn"
	buttonFoodCategory  = "food_category_btn"
	buttonFoodDemo      = "food_demo_btn"
	buttonParis         = "paris_weather"
	buttonLyon          = "lyon_weather"
	buttonMarseille     = "marseille_weather"

	foodCategoryPrefix = "food_cat_"
)

var (
	welcomeText = strings.Join([]string{
		"👋 Salut ! Je suis votre assistant WhatsApp intelligent !",
		"",
		"🤖 Je peux vous aider avec plein de choses :",
		"• Météo en temps réel",
		"• Informations nutritionnelles",
		"• Actualités du jour",
		"• Divertissement",
		"• Films et séries",
		"• Conversations naturelles",
		"",
		"Que voulez-vous faire ?",
	}, "\n")

	mainMenuText = strings.Join([]string{
		"🎯 MENU PRINCIPAL",
		rule,
		"",
		"Choisissez une option ci-dessous ou parlez-moi naturellement !",
		"",
		"💡 Exemples :",
		"• 'Météo Paris'",
		"• 'Raconte-moi une blague'",
		"• 'Comment ça va ?'",
		"• 'Traduis hello en français'",
	}, "\n")

	helpText = strings.Join([]string{
		"🆘 AIDE & FONCTIONNALITÉS",
		rule,
		"",
		"🌤️ MÉTÉO : Tapez 'météo Paris' ou utilisez les boutons",
		"🍽️ NUTRITION : Analysez des produits alimentaires",
		"📰 ACTUALITÉS : Dernières news du jour",
		"🎭 DIVERTISSEMENT : Blagues, citations, faits",
		"🎬 FILMS : Films populaires et recherche",
		"💬 CONVERSATION : Posez-moi n'importe quelle question !",
		"",
		"💡 ASTUCE : Parlez-moi naturellement, je comprends !",
		"🔍 NUTRITION : Envoyez un code-barres ou tapez 'produit [nom]'",
	}, "\n")

	foodMenuText = strings.Join([]string{
		"🍽️ INFORMATIONS NUTRITIONNELLES",
		rule,
		"",
		"Je peux vous aider à analyser des produits alimentaires !",
		"",
		"📱 COMMENT UTILISER :",
		"• Envoyez un code-barres (ex: 3017620422003)",
		"• Tapez 'produit [nom]' (ex: produit nutella)",
		"• Choisissez une catégorie ci-dessous",
		"",
		"📊 J'ANALYSE :",
		"• Nutri-Score et NOVA",
		"• Ingrédients et additifs",
		"• Valeurs nutritionnelles",
		"• Allergènes",
	}, "\n")

	foodSearchText = strings.Join([]string{
		"🔍 RECHERCHE DE PRODUIT",
		rule,
		"",
		"Tapez le nom du produit que vous voulez analyser :",
		"",
		"Exemples :",
		"• Nutella",
		"• Coca Cola",
		"• Pain de mie",
		"• Yaourt nature",
		"",
		"Ou envoyez directement un code-barres !",
	}, "\n")

	cityPromptText = "🌍 Pour quelle ville voulez-vous la météo ?\n\nVous pouvez choisir une ville ci-dessous ou taper le nom d'une ville :"
)

// cityButtons maps the quick city buttons to the city they look up.
var cityButtons = map[string]string{
	buttonParis:     "Paris",
	buttonLyon:      "Lyon",
	buttonMarseille: "Marseille",
}

func welcomePrompt() rich.ButtonPrompt {
	return rich.ButtonPrompt{
		Body: welcomeText,
		Buttons: []rich.Button{
			{ID: buttonWeather, Label: "🌤️ Météo"},
			{ID: buttonFood, Label: "🍽️ Nutrition"},
			{ID: buttonEntertainment, Label: "🎭 Divertissement"},
		},
		Header: assistantHeader,
		Footer: "Tapez 'menu' pour plus d'options",
	}
}

func mainMenuPrompt() rich.ButtonPrompt {
	return rich.ButtonPrompt{
		Body: mainMenuText,
		Buttons: []rich.Button{
			{ID: buttonWeather, Label: "🌤️ Météo"},
			{ID: buttonNews, Label: "📰 Actualités"},
			{ID: buttonEntertainment, Label: "🎭 Divertissement"},
		},
		Header: assistantHeader,
		Footer: "Tapez n'importe quoi pour discuter !",
	}
}

func helpFollowUp() rich.ButtonPrompt {
	return rich.ButtonPrompt{
		Body: "Que voulez-vous faire ?",
		Buttons: []rich.Button{
			{ID: buttonWeather, Label: "🌤️ Météo"},
			{ID: buttonFood, Label: "🍽️ Nutrition"},
			{ID: buttonEntertainment, Label: "🎭 Divertissement"},
		},
	}
}

func freeformFollowUp() rich.ButtonPrompt {
	return rich.ButtonPrompt{
		Body: "Puis-je vous aider avec autre chose ?",
		Buttons: []rich.Button{
			{ID: buttonWeather, Label: "🌤️ Météo"},
			{ID: buttonFood, Label: "🍽️ Nutrition"},
			{ID: buttonHelp, Label: "🆘 Menu"},
		},
	}
}

func cityPrompt() rich.ButtonPrompt {
	return rich.ButtonPrompt{
		Body: cityPromptText,
		Buttons: []rich.Button{
			{ID: buttonParis, Label: "🗼 Paris"},
			{ID: buttonLyon, Label: "🦁 Lyon"},
			{ID: buttonMarseille, Label: "🌊 Marseille"},
		},
		Header: "🌤️ Service Météo",
	}
}

func weatherFollowUp() rich.ButtonPrompt {
	return rich.ButtonPrompt{
		Body: "Que voulez-vous faire maintenant ?",
		Buttons: []rich.Button{
			{ID: buttonWeather, Label: "🌤️ Autre ville"},
			{ID: buttonNews, Label: "📰 Actualités"},
			{ID: buttonHelp, Label: "🆘 Menu"},
		},
	}
}

func newsFollowUp() rich.ButtonPrompt {
	return rich.ButtonPrompt{
		Body: "Que voulez-vous faire maintenant ?",
		Buttons: []rich.Button{
			{ID: buttonWeather, Label: "🌤️ Météo"},
			{ID: buttonEntertainment, Label: "🎭 Divertissement"},
			{ID: buttonHelp, Label: "🆘 Menu"},
		},
	}
}

func moviesFollowUp() rich.ButtonPrompt {
	return rich.ButtonPrompt{
		Body: "Que voulez-vous faire maintenant ?",
		Buttons: []rich.Button{
			{ID: buttonEntertainment, Label: "🎭 Divertissement"},
			{ID: buttonNews, Label: "📰 Actualités"},
			{ID: buttonHelp, Label: "🆘 Menu"},
		},
	}
}

func entertainmentPrompt() rich.ButtonPrompt {
	return rich.ButtonPrompt{
		Body: "🎭 Que voulez-vous pour vous divertir ?",
		Buttons: []rich.Button{
			{ID: buttonJoke, Label: "😂 Blague"},
			{ID: buttonQuote, Label: "💭 Citation"},
			{ID: buttonFact, Label: "💡 Fait surprenant"},
		},
		Header: "🎪 Divertissement",
	}
}

func jokeFollowUp() rich.ButtonPrompt {
	return moreFollowUp(
		rich.Button{ID: buttonJoke, Label: "😂 Autre blague"},
		rich.Button{ID: buttonQuote, Label: "💭 Citation"},
	)
}

func quoteFollowUp() rich.ButtonPrompt {
	return moreFollowUp(
		rich.Button{ID: buttonQuote, Label: "💭 Autre citation"},
		rich.Button{ID: buttonFact, Label: "💡 Fait surprenant"},
	)
}

func factFollowUp() rich.ButtonPrompt {
	return moreFollowUp(
		rich.Button{ID: buttonFact, Label: "💡 Autre fait"},
		rich.Button{ID: buttonJoke, Label: "😂 Blague"},
	)
}

func moreFollowUp(again rich.Button, next rich.Button) rich.ButtonPrompt {
	return rich.ButtonPrompt{
		Body:    "Voulez-vous autre chose ?",
		Buttons: []rich.Button{again, next, {ID: buttonHelp, Label: "🆘 Menu"}},
	}
}

func foodMenuPrompt() rich.ButtonPrompt {
	return rich.ButtonPrompt{
		Body: foodMenuText,
		Buttons: []rich.Button{
			{ID: buttonFoodSearch, Label: "🔍 Rechercher"},
			{ID: buttonFoodCategory, Label: "📂 Catégories"},
			{ID: buttonFoodDemo, Label: "🧪 Démo"},
		},
		Header: "🍽️ Nutrition & Santé",
		Footer: "Données fournies par OpenFoodFacts",
	}
}

func foodHelpFollowUp() rich.ButtonPrompt {
	return foodFollowUp("Comment puis-je vous aider avec la nutrition ?", "🔍 Rechercher")
}

func barcodeFollowUp() rich.ButtonPrompt {
	return foodFollowUp("Voulez-vous analyser un autre produit ?", "🔍 Autre produit")
}

func demoFollowUp() rich.ButtonPrompt {
	return foodFollowUp("Essayez maintenant avec vos propres produits !", "🔍 Rechercher")
}

func searchFollowUp() rich.ButtonPrompt {
	return foodFollowUp("Que voulez-vous faire ?", "🔍 Autre recherche")
}

func foodFollowUp(body string, searchLabel string) rich.ButtonPrompt {
	return rich.ButtonPrompt{
		Body: body,
		Buttons: []rich.Button{
			{ID: buttonFoodSearch, Label: searchLabel},
			{ID: buttonFoodCategory, Label: "📂 Catégories"},
			{ID: buttonHelp, Label: "🆘 Menu"},
		},
	}
}

func categoryFollowUp() rich.ButtonPrompt {
	return rich.ButtonPrompt{
		Body: "Que voulez-vous faire ?",
		Buttons: []rich.Button{
			{ID: buttonFoodCategory, Label: "📂 Autres catégories"},
			{ID: buttonFoodSearch, Label: "🔍 Rechercher"},
			{ID: buttonHelp, Label: "🆘 Menu"},
		},
	}
}

func categoryList(categories []provider.Category) rich.ListPrompt {
	rows := make([]rich.Row, 0, len(categories))
	for _, category := range categories {
		rows = append(rows, rich.Row{
			ID:          foodCategoryPrefix + category.ID,
			Label:       strings.TrimSpace(category.Emoji + " " + category.Name),
			Description: "Découvrir les " + strings.ToLower(category.Name),
		})
	}

	return rich.ListPrompt{
		Body:     "Choisissez une catégorie d'aliments à explorer :",
		Sections: []rich.Section{{Title: "Catégories populaires", Rows: rows}},
		Header:   "📂 Catégories Alimentaires",
		Footer:   "Données OpenFoodFacts",
	}
}

// productList renders search results as a numbered list.
func productList(title string, items []provider.DisplayItem) string {
	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(rule)
	b.WriteString("\n\n")
	for i, item := range items {
		fmt.Fprintf(&b, "%d. %s\n", i+1, item.Display)
		if item.Code != "" {
			fmt.Fprintf(&b, "🔢 %s\n", item.Code)
		}
		b.WriteString("\n")
	}
	b.WriteString(resultsHint)

	return b.String()
}

func searchingFor(term string) string {
	return fmt.Sprintf("🔍 Recherche de \"%s\" en cours...", term)
}

func searchingCategory(name string) string {
	return fmt.Sprintf("🔍 Recherche de produits dans la catégorie \"%s\"...", name)
}

// message returns the value of a successful text result or its user message.
func message(result provider.Result[string]) string {
	if value, ok := result.Unwrap(); ok {
		return value
	}

	return result.UserMessage
}
