// Package intent maps normalized user text to exactly one intent tag.
package intent

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Tag is the closed set of intents a text message can resolve to.
type Tag int

const (
	Unclassified Tag = iota
	Greeting
	WeatherQuery
	NewsQuery
	MovieQuery
	EntertainmentQuery
	FoodQuery
	FoodBarcodeQuery
	HelpMenu
)

var tagNames = map[Tag]string{
	Unclassified:       "unclassified",
	Greeting:           "greeting",
	WeatherQuery:       "weather_query",
	NewsQuery:          "news_query",
	MovieQuery:         "movie_query",
	EntertainmentQuery: "entertainment_query",
	FoodQuery:          "food_query",
	FoodBarcodeQuery:   "food_barcode_query",
	HelpMenu:           "help_menu",
}

func (t Tag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}

	return "unclassified"
}

var (
	greetingKeywords = []string{"hello", "hi", "bonjour", "salut", "bonsoir", "hey", "coucou"}
	weatherKeywords  = []string{"météo", "meteo", "weather", "température", "temperature", "temps", "climat"}
	newsKeywords     = []string{"actualités", "actualites", "news", "infos", "nouvelles", "journal"}
	movieKeywords    = []string{"film", "movie", "cinéma", "cinema", "série", "serie"}

	entertainmentKeywords = []string{
		"blague", "joke", "drôle", "drole", "rigolo", "marrant", "humour",
		"citation", "quote", "phrase", "proverbe", "sagesse",
		"fait", "fact", "saviez-vous", "info", "connaissance", "culture",
		"divertissement", "entertainment", "amusement",
	}

	foodKeywords = []string{
		"produit", "nutrition", "nutritionnel", "aliment", "nutri-score", "nutriscore",
		"code-barre", "code barre", "barcode", "calorie", "ingrédient", "ingredient", "additif",
	}

	helpCommands   = []string{"menu", "aide", "help"}
	barcodePattern = regexp.MustCompile(`^\d{8,14}$`)
)

// Rule pairs a predicate over normalized text with the tag it yields.
type Rule struct {
	Tag   Tag
	Match func(normalized string) bool
}

// Classifier evaluates rules in order; the first match wins.
type Classifier struct {
	rules []Rule
}

func NewClassifier(rules ...Rule) *Classifier {
	return &Classifier{rules: append([]Rule(nil), rules...)}
}

// Default returns the classifier with the standard precedence:
// greeting, barcode, food, weather, news, movie, entertainment, help.
func Default() *Classifier {
	return NewClassifier(
		Rule{Tag: Greeting, Match: ContainsAny(greetingKeywords...)},
		Rule{Tag: FoodBarcodeQuery, Match: IsBarcode},
		Rule{Tag: FoodQuery, Match: ContainsAny(foodKeywords...)},
		Rule{Tag: WeatherQuery, Match: ContainsAny(weatherKeywords...)},
		Rule{Tag: NewsQuery, Match: ContainsAny(newsKeywords...)},
		Rule{Tag: MovieQuery, Match: ContainsAny(movieKeywords...)},
		Rule{Tag: EntertainmentQuery, Match: ContainsAny(entertainmentKeywords...)},
		Rule{Tag: HelpMenu, Match: EqualsAny(helpCommands...)},
	)
}

// Classify normalizes text and returns the tag of the first matching rule.
func (c *Classifier) Classify(text string) Tag {
	normalized := Normalize(text)
	for _, rule := range c.rules {
		if rule.Match != nil && rule.Match(normalized) {
			return rule.Tag
		}
	}

	return Unclassified
}

// Normalize trims, composes accents and lower-cases text. Diacritics are kept.
func Normalize(text string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(text)))
}

// ContainsAny matches when any keyword occurs as a substring.
func ContainsAny(keywords ...string) func(string) bool {
	normalized := normalizeAll(keywords)
	return func(text string) bool {
		for _, keyword := range normalized {
			if strings.Contains(text, keyword) {
				return true
			}
		}
		return false
	}
}

// EqualsAny matches when the whole text equals one of the commands.
func EqualsAny(commands ...string) func(string) bool {
	normalized := normalizeAll(commands)
	return func(text string) bool {
		for _, command := range normalized {
			if text == command {
				return true
			}
		}
		return false
	}
}

// IsBarcode reports whether the whole text is a bare 8 to 14 digit code.
func IsBarcode(text string) bool {
	return barcodePattern.MatchString(strings.TrimSpace(text))
}

func normalizeAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if normalized := Normalize(value); normalized != "" {
			out = append(out, normalized)
		}
	}
	return out
}
