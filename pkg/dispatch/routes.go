package dispatch

import (
	"context"
	"strings"

	"assistbot/pkg/intent"
	"assistbot/pkg/provider"
	"assistbot/pkg/state"
)

// demoBarcode is the product shown by the food demo button.
const demoBarcode = "3017620422003"

func textRoutes() map[intent.Tag]handler {
	return map[intent.Tag]handler{
		intent.Greeting:           (*Engine).welcome,
		intent.FoodBarcodeQuery:   (*Engine).barcodeQuery,
		intent.FoodQuery:          (*Engine).foodQuery,
		intent.WeatherQuery:       (*Engine).weatherQuery,
		intent.NewsQuery:          (*Engine).news,
		intent.MovieQuery:         (*Engine).movies,
		intent.EntertainmentQuery: (*Engine).entertainment,
		intent.HelpMenu:           (*Engine).mainMenu,
		intent.Unclassified:       (*Engine).freeform,
	}
}

func buttonRoutes() map[string]handler {
	routes := map[string]handler{
		buttonWeather:       (*Engine).promptForCity,
		buttonNews:          (*Engine).news,
		buttonEntertainment: (*Engine).entertainment,
		buttonMovies:        (*Engine).movies,
		buttonHelp:          (*Engine).help,
		buttonJoke:          (*Engine).joke,
		buttonQuote:         (*Engine).quote,
		buttonFact:          (*Engine).fact,
		buttonFood:          (*Engine).foodMenu,
		buttonFoodSearch:    (*Engine).promptForFoodSearch,
		buttonFoodCategory:  (*Engine).foodCategories,
		buttonFoodDemo:      (*Engine).foodDemo,
	}
	for id, city := range cityButtons {
		routes[id] = func(e *Engine, t *turn) error {
			return e.weatherReport(t, city)
		}
	}

	return routes
}

func listRoutes() []listRoute {
	return []listRoute{
		{prefix: foodCategoryPrefix, handle: (*Engine).categoryProducts},
	}
}

func (e *Engine) welcome(t *turn) error {
	return e.send(t, welcomePrompt())
}

func (e *Engine) mainMenu(t *turn) error {
	return e.send(t, mainMenuPrompt())
}

func (e *Engine) help(t *turn) error {
	return e.replyThenOffer(t, helpText, helpFollowUp())
}

func (e *Engine) weatherQuery(t *turn) error {
	city, ok := e.weather.ResolveCity(t.event.Body)
	if !ok {
		return e.promptForCity(t)
	}

	return e.weatherReport(t, city)
}

func (e *Engine) promptForCity(t *turn) error {
	if err := e.setPending(t, state.PendingAwaitingCity); err != nil {
		return err
	}

	return e.send(t, cityPrompt())
}

func (e *Engine) weatherReport(t *turn, city string) error {
	result := callProvider(e, t, "weather", func(ctx context.Context) provider.Result[string] {
		return e.weather.Fetch(ctx, city)
	})

	return e.replyThenOffer(t, message(result), weatherFollowUp())
}

func (e *Engine) news(t *turn) error {
	return e.replyThenOffer(t, e.content.News(), newsFollowUp())
}

func (e *Engine) movies(t *turn) error {
	return e.replyThenOffer(t, e.content.Movies(), moviesFollowUp())
}

func (e *Engine) entertainment(t *turn) error {
	return e.send(t, entertainmentPrompt())
}

func (e *Engine) joke(t *turn) error {
	return e.replyThenOffer(t, e.content.Joke(), jokeFollowUp())
}

func (e *Engine) quote(t *turn) error {
	return e.replyThenOffer(t, e.content.Quote(), quoteFollowUp())
}

func (e *Engine) fact(t *turn) error {
	return e.replyThenOffer(t, e.content.Fact(), factFollowUp())
}

func (e *Engine) freeform(t *turn) error {
	body := strings.TrimSpace(t.event.Body)
	respond := func(ctx context.Context) provider.Result[string] {
		return e.responder.Respond(ctx, t.key, body)
	}
	late := func() provider.Result[string] {
		if fallback, ok := e.responder.(fallbackResponder); ok {
			return provider.Failure[string](fallback.Fallback(body))
		}
		return provider.Failure[string]("")
	}
	result := boundedCall(e, t, "assistant", e.providerTimeout+responderGrace, respond, late)

	return e.replyThenOffer(t, message(result), freeformFollowUp())
}

func (e *Engine) foodMenu(t *turn) error {
	return e.send(t, foodMenuPrompt())
}

func (e *Engine) promptForFoodSearch(t *turn) error {
	if err := e.setPending(t, state.PendingAwaitingFoodQuery); err != nil {
		return err
	}

	return e.reply(t, foodSearchText)
}

func (e *Engine) foodCategories(t *turn) error {
	return e.send(t, categoryList(e.food.Categories()))
}

func (e *Engine) barcodeQuery(t *turn) error {
	code, ok := e.food.ExtractBarcode(t.event.Body)
	if !ok {
		return e.foodMenu(t)
	}

	return e.barcodeReport(t, code)
}

func (e *Engine) barcodeReport(t *turn, code string) error {
	if err := e.reply(t, barcodeSearching); err != nil {
		return err
	}

	result := e.lookupBarcode(t, code)
	if !result.OK {
		return e.replyThenOffer(t, result.UserMessage, foodHelpFollowUp())
	}

	return e.replyThenOffer(t, result.Value, barcodeFollowUp())
}

func (e *Engine) foodDemo(t *turn) error {
	if err := e.reply(t, demoStarting); err != nil {
		return err
	}

	result := e.lookupBarcode(t, demoBarcode)
	if !result.OK {
		return e.replyThenOffer(t, demoFailed, foodHelpFollowUp())
	}

	return e.replyThenOffer(t, result.Value, demoFollowUp())
}

func (e *Engine) lookupBarcode(t *turn, code string) provider.Result[string] {
	return callProvider(e, t, "food", func(ctx context.Context) provider.Result[string] {
		return e.food.ByBarcode(ctx, code)
	})
}

func (e *Engine) foodQuery(t *turn) error {
	term, ok := e.food.ExtractQuery(t.event.Body)
	if !ok {
		return e.foodMenu(t)
	}

	return e.searchProducts(t, term)
}

func (e *Engine) searchProducts(t *turn, term string) error {
	term = strings.TrimSpace(term)
	if term == "" {
		return e.foodMenu(t)
	}

	if err := e.reply(t, searchingFor(term)); err != nil {
		return err
	}

	result := callProvider(e, t, "food", func(ctx context.Context) provider.Result[[]provider.DisplayItem] {
		return e.food.ByName(ctx, term, e.searchLimit)
	})
	items, ok := result.Unwrap()
	if !ok {
		return e.replyThenOffer(t, result.UserMessage, foodHelpFollowUp())
	}

	return e.replyThenOffer(t, productList("🔍 RÉSULTATS DE RECHERCHE", items), searchFollowUp())
}

func (e *Engine) categoryProducts(t *turn, id string) error {
	name := e.categoryName(id)
	if err := e.reply(t, searchingCategory(name)); err != nil {
		return err
	}

	result := callProvider(e, t, "food", func(ctx context.Context) provider.Result[[]provider.DisplayItem] {
		return e.food.ByCategory(ctx, id, e.categoryLimit)
	})
	items, ok := result.Unwrap()
	if !ok {
		return e.replyThenOffer(t, result.UserMessage, foodHelpFollowUp())
	}

	return e.replyThenOffer(t, productList("📂 PRODUITS - "+strings.ToUpper(name), items), categoryFollowUp())
}

func (e *Engine) categoryName(id string) string {
	for _, category := range e.food.Categories() {
		if category.ID == id {
			return category.Name
		}
	}

	return id
}
