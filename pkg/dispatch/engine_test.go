package dispatch

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"assistbot/pkg/agent"
	"assistbot/pkg/bus"
	"assistbot/pkg/content"
	"assistbot/pkg/provider"
	providertypes "assistbot/pkg/provider/types"
	"assistbot/pkg/rich"
	"assistbot/pkg/state"
)

const testSender = "33612345678"

type recordingSender struct {
	mu       sync.Mutex
	messages []rich.Message
	fail     func(rich.Message) error
}

func (s *recordingSender) Send(_ context.Context, _ string, msg rich.Message) error {
	if s.fail != nil {
		if err := s.fail(msg); err != nil {
			return err
		}
	}
	if _, err := rich.Normalize(msg, rich.DefaultLimits()); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	return nil
}

func (s *recordingSender) take() []rich.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.messages
	s.messages = nil
	return out
}

type fakeWeather struct {
	mu      sync.Mutex
	fetched []string
	fetch   func(ctx context.Context, city string) provider.Result[string]
}

func (f *fakeWeather) ResolveCity(text string) (string, bool) {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return "", false
	}
	return fields[len(fields)-1], true
}

func (f *fakeWeather) Fetch(ctx context.Context, city string) provider.Result[string] {
	f.mu.Lock()
	f.fetched = append(f.fetched, city)
	f.mu.Unlock()

	if f.fetch != nil {
		return f.fetch(ctx, city)
	}
	return provider.Success("🌤️ Météo à " + city)
}

func (f *fakeWeather) cities() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.fetched...)
}

var testBarcodePattern = regexp.MustCompile(`\b\d{8,14}\b`)

type fakeFood struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeFood) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeFood) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeFood) ExtractBarcode(text string) (string, bool) {
	code := testBarcodePattern.FindString(text)
	return code, code != ""
}

func (f *fakeFood) ExtractQuery(text string) (string, bool) {
	rest, ok := strings.CutPrefix(strings.ToLower(strings.TrimSpace(text)), "produit ")
	rest = strings.TrimSpace(rest)
	return rest, ok && rest != ""
}

func (f *fakeFood) ByBarcode(_ context.Context, code string) provider.Result[string] {
	f.record("barcode:" + code)
	if code == demoBarcode {
		return provider.Success("🍫 *Nutella*")
	}
	return provider.Failure[string]("❌ Produit non trouvé")
}

func (f *fakeFood) ByName(_ context.Context, term string, limit int) provider.Result[[]provider.DisplayItem] {
	f.record(fmt.Sprintf("name:%s:%d", term, limit))
	return provider.Success([]provider.DisplayItem{{Code: "3228857000166", Name: term, Display: "📦 *" + term + "*"}})
}

func (f *fakeFood) ByCategory(_ context.Context, id string, limit int) provider.Result[[]provider.DisplayItem] {
	f.record(fmt.Sprintf("category:%s:%d", id, limit))
	return provider.Success([]provider.DisplayItem{{Name: "Comté", Display: "📦 *Comté*"}})
}

func (f *fakeFood) Categories() []provider.Category {
	return []provider.Category{
		{ID: "cheeses", Name: "Fromages", Emoji: "🧀"},
		{ID: "breads", Name: "Pains", Emoji: "🍞"},
	}
}

type fakeResponder struct {
	mu      sync.Mutex
	senders []string
	respond func(ctx context.Context, text string) provider.Result[string]
}

func (f *fakeResponder) Respond(ctx context.Context, senderID string, text string) provider.Result[string] {
	f.mu.Lock()
	f.senders = append(f.senders, senderID)
	f.mu.Unlock()

	if f.respond != nil {
		return f.respond(ctx, text)
	}
	return provider.Success("Réponse: " + text)
}

type panickingContent struct {
	ContentSource
}

func (panickingContent) News() string {
	panic("content unavailable")
}

type failingGetStore struct {
	*state.MemoryStore
}

func (failingGetStore) Get(context.Context, string) (state.Context, error) {
	return state.Context{}, errors.New("redis: connection refused")
}

type harness struct {
	engine    *Engine
	sender    *recordingSender
	store     *state.MemoryStore
	weather   *fakeWeather
	food      *fakeFood
	responder *fakeResponder
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()

	h := &harness{
		sender:    &recordingSender{},
		store:     state.NewMemoryStore(),
		weather:   &fakeWeather{},
		food:      &fakeFood{},
		responder: &fakeResponder{},
	}
	opts = append([]Option{WithContent(content.New(content.WithPicker(func(int) int { return 0 })))}, opts...)

	engine, err := New(Dependencies{
		Sender:    h.sender,
		Store:     h.store,
		Weather:   h.weather,
		Food:      h.food,
		Responder: h.responder,
	}, opts...)
	require.NoError(t, err)
	h.engine = engine

	return h
}

func (h *harness) text(body string) []rich.Message {
	h.engine.Handle(context.Background(), bus.TextEvent("whatsapp", testSender, body))
	return h.sender.take()
}

func (h *harness) button(id string) []rich.Message {
	h.engine.Handle(context.Background(), bus.InteractiveEvent("whatsapp", testSender, bus.ReplyButton, id))
	return h.sender.take()
}

func (h *harness) list(id string) []rich.Message {
	h.engine.Handle(context.Background(), bus.InteractiveEvent("whatsapp", testSender, bus.ReplyList, id))
	return h.sender.take()
}

func (h *harness) pending(t *testing.T) state.Pending {
	t.Helper()

	current, err := h.store.Get(context.Background(), "whatsapp:"+testSender)
	require.NoError(t, err)
	return current.Pending
}

func buttonIDs(prompt rich.ButtonPrompt) []string {
	ids := make([]string, 0, len(prompt.Buttons))
	for _, button := range prompt.Buttons {
		ids = append(ids, button.ID)
	}
	return ids
}

func requireText(t *testing.T, msg rich.Message) string {
	t.Helper()

	text, ok := msg.(rich.Text)
	require.Truef(t, ok, "expected text message, got %T", msg)
	return text.Body
}

func requireButtons(t *testing.T, msg rich.Message) rich.ButtonPrompt {
	t.Helper()

	prompt, ok := msg.(rich.ButtonPrompt)
	require.Truef(t, ok, "expected button prompt, got %T", msg)
	return prompt
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Dependencies{})
	require.Error(t, err)

	_, err = New(Dependencies{Sender: &recordingSender{}, Store: state.NewMemoryStore()})
	require.ErrorContains(t, err, "weather")
}

func TestWeatherWithCityRepliesThenOffersButtons(t *testing.T) {
	h := newHarness(t)

	msgs := h.text("météo Lyon")

	require.Len(t, msgs, 2)
	require.Equal(t, "🌤️ Météo à Lyon", requireText(t, msgs[0]))
	prompt := requireButtons(t, msgs[1])
	require.Len(t, prompt.Buttons, 3)
	require.Contains(t, buttonIDs(prompt), buttonWeather)
	require.Equal(t, []string{"Lyon"}, h.weather.cities())
	require.Equal(t, state.PendingNone, h.pending(t))
}

func TestWeatherWithoutCityAwaitsCityThenReturnsToIdle(t *testing.T) {
	h := newHarness(t)

	msgs := h.text("météo")
	require.Len(t, msgs, 1)
	prompt := requireButtons(t, msgs[0])
	require.Equal(t, []string{buttonParis, buttonLyon, buttonMarseille}, buttonIDs(prompt))
	require.Equal(t, state.PendingAwaitingCity, h.pending(t))
	require.Empty(t, h.weather.cities())

	msgs = h.text("Marseille")
	require.Len(t, msgs, 2)
	require.Equal(t, "🌤️ Météo à Marseille", requireText(t, msgs[0]))
	requireButtons(t, msgs[1])
	require.Equal(t, []string{"Marseille"}, h.weather.cities())
	require.Equal(t, state.PendingNone, h.pending(t))
}

func TestPendingAnswerBypassesClassification(t *testing.T) {
	h := newHarness(t)

	h.button(buttonWeather)
	msgs := h.text("Bonjour")

	require.Len(t, msgs, 2)
	require.Equal(t, []string{"Bonjour"}, h.weather.cities())
	require.Equal(t, state.PendingNone, h.pending(t))
}

func TestPendingClearedWhenProviderFails(t *testing.T) {
	h := newHarness(t)
	h.weather.fetch = func(context.Context, string) provider.Result[string] {
		return provider.Failure[string]("❌ Ville \"Atlantide\" non trouvée.")
	}

	h.text("météo")
	msgs := h.text("Atlantide")

	require.Len(t, msgs, 2)
	require.Contains(t, requireText(t, msgs[0]), "non trouvée")
	requireButtons(t, msgs[1])
	require.Equal(t, state.PendingNone, h.pending(t))
}

func TestPendingClearedWhenHandlerFails(t *testing.T) {
	h := newHarness(t)
	h.text("météo")

	h.sender.fail = func(msg rich.Message) error {
		if text, ok := msg.(rich.Text); ok && text.Body == genericFailureReply {
			return nil
		}
		return rich.ErrInvalidMessage
	}
	msgs := h.text("Lyon")

	require.Len(t, msgs, 1)
	require.Equal(t, genericFailureReply, requireText(t, msgs[0]))
	require.Equal(t, state.PendingNone, h.pending(t))
}

func TestHandlerPanicBecomesGenericReply(t *testing.T) {
	h := newHarness(t, WithContent(panickingContent{}))

	msgs := h.text("news")

	require.Len(t, msgs, 1)
	require.Equal(t, genericFailureReply, requireText(t, msgs[0]))
}

func TestUnknownButtonSendsSingleText(t *testing.T) {
	h := newHarness(t)
	h.text("météo")

	msgs := h.button("does_not_exist")

	require.Len(t, msgs, 1)
	require.Equal(t, unknownOptionReply, requireText(t, msgs[0]))
	require.Equal(t, state.PendingAwaitingCity, h.pending(t), "buttons must not clear pending input")
}

func TestUnknownListPrefixSendsSingleText(t *testing.T) {
	h := newHarness(t)

	for _, id := range []string{"weather_cat_x", "food_cat_"} {
		msgs := h.list(id)
		require.Len(t, msgs, 1, id)
		require.Equal(t, unknownOptionReply, requireText(t, msgs[0]))
	}
}

func TestCityButtonFetchesCity(t *testing.T) {
	h := newHarness(t)

	msgs := h.button(buttonLyon)

	require.Len(t, msgs, 2)
	require.Equal(t, []string{"Lyon"}, h.weather.cities())
}

func TestEveryHandlerEndsWithPromptOrAwaitsInput(t *testing.T) {
	texts := []string{
		"bonjour",
		"3017620422003",
		"produit nutella",
		"nutrition",
		"météo Lyon",
		"météo",
		"news",
		"film",
		"blague",
		"menu",
		"quelle heure est-il",
	}
	for _, body := range texts {
		t.Run("text "+body, func(t *testing.T) {
			h := newHarness(t)
			requireTrailingPrompt(t, h, h.text(body))
		})
	}

	for id := range buttonRoutes() {
		t.Run("button "+id, func(t *testing.T) {
			h := newHarness(t)
			requireTrailingPrompt(t, h, h.button(id))
		})
	}

	t.Run("list food_cat_cheeses", func(t *testing.T) {
		h := newHarness(t)
		requireTrailingPrompt(t, h, h.list("food_cat_cheeses"))
	})
}

func requireTrailingPrompt(t *testing.T, h *harness, msgs []rich.Message) {
	t.Helper()

	require.NotEmpty(t, msgs)
	prompts := 0
	for _, msg := range msgs {
		if msg.Kind() == rich.KindButtons || msg.Kind() == rich.KindList {
			prompts++
		}
		if prompt, ok := msg.(rich.ButtonPrompt); ok {
			require.NotEmpty(t, prompt.Buttons)
			require.LessOrEqual(t, len(prompt.Buttons), 3)
			for _, button := range prompt.Buttons {
				require.LessOrEqual(t, utf8.RuneCountInString(button.Label), 20, button.Label)
			}
		}
	}
	if h.pending(t) != state.PendingNone {
		return
	}

	require.Equal(t, 1, prompts, "expected exactly one prompt")
	last := msgs[len(msgs)-1].Kind()
	require.Truef(t, last == rich.KindButtons || last == rich.KindList, "last message kind = %s", last)
}

func TestFreeformReplyUsesResponder(t *testing.T) {
	h := newHarness(t)

	msgs := h.text("quelle heure est-il")

	require.Len(t, msgs, 2)
	require.Equal(t, "Réponse: quelle heure est-il", requireText(t, msgs[0]))
	require.Equal(t, []string{buttonWeather, buttonFood, buttonHelp}, buttonIDs(requireButtons(t, msgs[1])))
	require.Equal(t, []string{"whatsapp:" + testSender}, h.responder.senders)
}

type hangingCompleter struct{}

func (hangingCompleter) Health(context.Context) error { return nil }

func (hangingCompleter) Complete(ctx context.Context, _ providertypes.CompletionRequest) (providertypes.Completion, error) {
	<-ctx.Done()
	return providertypes.Completion{}, ctx.Err()
}

func newResponderHarness(t *testing.T, responder provider.FreeformResponder, opts ...Option) *harness {
	t.Helper()

	h := newHarness(t)
	engine, err := New(Dependencies{
		Sender:    h.sender,
		Store:     h.store,
		Weather:   h.weather,
		Food:      h.food,
		Responder: responder,
	}, opts...)
	require.NoError(t, err)
	h.engine = engine

	return h
}

func TestFreeformUpstreamTimeoutUsesKeywordFallback(t *testing.T) {
	responder := agent.NewResponder(hangingCompleter{}, agent.WithTimeout(50*time.Millisecond))
	h := newResponderHarness(t, responder, WithProviderTimeout(50*time.Millisecond))

	msgs := h.text("merci beaucoup")

	require.Len(t, msgs, 2)
	reply := requireText(t, msgs[0])
	require.Equal(t, agent.FallbackReply("merci beaucoup"), reply)
	require.Contains(t, reply, "De rien")
	require.NotEqual(t, provider.DefaultFailureMessage, reply)
	require.Equal(t, []string{buttonWeather, buttonFood, buttonHelp}, buttonIDs(requireButtons(t, msgs[1])))
}

type stuckResponder struct {
	release chan struct{}
}

func (r stuckResponder) Respond(context.Context, string, string) provider.Result[string] {
	<-r.release
	return provider.Success("too late")
}

func (stuckResponder) Fallback(text string) string {
	return "hors ligne: " + text
}

func TestFreeformResponderPastDeadlineUsesItsFallback(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	h := newResponderHarness(t, stuckResponder{release: release}, WithProviderTimeout(20*time.Millisecond))

	startedAt := time.Now()
	msgs := h.text("quelle heure est-il")

	require.Less(t, time.Since(startedAt), 2*time.Second)
	require.Len(t, msgs, 2)
	require.Equal(t, "hors ligne: quelle heure est-il", requireText(t, msgs[0]))
	requireButtons(t, msgs[1])
}

func TestFreeformTimeoutWithoutFallbackUsesDefaultMessage(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	h := newHarness(t, WithProviderTimeout(20*time.Millisecond))
	h.responder.respond = func(context.Context, string) provider.Result[string] {
		<-release
		return provider.Success("too late")
	}

	startedAt := time.Now()
	msgs := h.text("quelle heure est-il")

	require.Less(t, time.Since(startedAt), 2*time.Second)
	require.Len(t, msgs, 2)
	require.Equal(t, provider.DefaultFailureMessage, requireText(t, msgs[0]))
	requireButtons(t, msgs[1])
}

type cancelAwareStore struct {
	*state.MemoryStore
}

func (s cancelAwareStore) Clear(ctx context.Context, senderID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.MemoryStore.Clear(ctx, senderID)
}

func TestPendingClearedWhenRequestContextCancelled(t *testing.T) {
	h := newHarness(t)
	engine, err := New(Dependencies{
		Sender:    h.sender,
		Store:     cancelAwareStore{MemoryStore: h.store},
		Weather:   h.weather,
		Food:      h.food,
		Responder: h.responder,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.weather.fetch = func(context.Context, string) provider.Result[string] {
		cancel()
		return provider.Success("🌤️ Météo à Lyon")
	}
	require.NoError(t, h.store.SetPending(context.Background(), "whatsapp:"+testSender, state.PendingAwaitingCity, nil))

	engine.Handle(ctx, bus.TextEvent("whatsapp", testSender, "Lyon"))

	require.Len(t, h.sender.take(), 2)
	require.Equal(t, state.PendingNone, h.pending(t))
}

func TestBarcodeLookup(t *testing.T) {
	h := newHarness(t)

	msgs := h.text(demoBarcode)

	require.Len(t, msgs, 3)
	require.Equal(t, barcodeSearching, requireText(t, msgs[0]))
	require.Equal(t, "🍫 *Nutella*", requireText(t, msgs[1]))
	prompt := requireButtons(t, msgs[2])
	require.Equal(t, "🔍 Autre produit", prompt.Buttons[0].Label)
	require.Equal(t, []string{"barcode:" + demoBarcode}, h.food.recorded())
}

func TestBarcodeNotFoundOffersFoodHelp(t *testing.T) {
	h := newHarness(t)

	msgs := h.text("12345678")

	require.Len(t, msgs, 3)
	require.Equal(t, "❌ Produit non trouvé", requireText(t, msgs[1]))
	require.Equal(t, "Comment puis-je vous aider avec la nutrition ?", requireButtons(t, msgs[2]).Body)
}

func TestFoodQueryWithoutTermSendsMenu(t *testing.T) {
	h := newHarness(t)

	msgs := h.text("nutrition")

	require.Len(t, msgs, 1)
	require.Equal(t, []string{buttonFoodSearch, buttonFoodCategory, buttonFoodDemo}, buttonIDs(requireButtons(t, msgs[0])))
	require.Empty(t, h.food.recorded())
}

func TestFoodSearchAwaitsWholeTextAsTerm(t *testing.T) {
	h := newHarness(t, WithResultLimits(3, 4))

	msgs := h.button(buttonFoodSearch)
	require.Len(t, msgs, 1)
	require.Contains(t, requireText(t, msgs[0]), "RECHERCHE DE PRODUIT")
	require.Equal(t, state.PendingAwaitingFoodQuery, h.pending(t))

	msgs = h.text("pain de mie")
	require.Len(t, msgs, 3)
	require.Equal(t, `🔍 Recherche de "pain de mie" en cours...`, requireText(t, msgs[0]))
	results := requireText(t, msgs[1])
	require.Contains(t, results, "1. 📦 *pain de mie*")
	require.Contains(t, results, "🔢 3228857000166")
	require.True(t, strings.HasSuffix(results, resultsHint))
	requireButtons(t, msgs[2])
	require.Equal(t, []string{"name:pain de mie:3"}, h.food.recorded())
	require.Equal(t, state.PendingNone, h.pending(t))
}

func TestFoodSearchPendingAcceptsBarcode(t *testing.T) {
	h := newHarness(t)

	h.button(buttonFoodSearch)
	h.text(demoBarcode)

	require.Equal(t, []string{"barcode:" + demoBarcode}, h.food.recorded())
	require.Equal(t, state.PendingNone, h.pending(t))
}

func TestCategoryListAndSelection(t *testing.T) {
	h := newHarness(t, WithResultLimits(3, 4))

	msgs := h.button(buttonFoodCategory)
	require.Len(t, msgs, 1)
	list, ok := msgs[0].(rich.ListPrompt)
	require.True(t, ok)
	rows := list.Rows()
	require.Len(t, rows, 2)
	require.Equal(t, "food_cat_cheeses", rows[0].ID)
	require.Equal(t, "🧀 Fromages", rows[0].Label)
	require.Equal(t, "Découvrir les fromages", rows[0].Description)

	msgs = h.list("food_cat_cheeses")
	require.Len(t, msgs, 3)
	require.Equal(t, `🔍 Recherche de produits dans la catégorie "Fromages"...`, requireText(t, msgs[0]))
	require.Contains(t, requireText(t, msgs[1]), "📂 PRODUITS - FROMAGES")
	require.Equal(t, buttonFoodCategory, requireButtons(t, msgs[2]).Buttons[0].ID)
	require.Equal(t, []string{"category:cheeses:4"}, h.food.recorded())
}

func TestFoodDemo(t *testing.T) {
	h := newHarness(t)

	msgs := h.button(buttonFoodDemo)

	require.Len(t, msgs, 3)
	require.Equal(t, demoStarting, requireText(t, msgs[0]))
	require.Equal(t, "Essayez maintenant avec vos propres produits !", requireButtons(t, msgs[2]).Body)
}

func TestStateIsScopedPerChannel(t *testing.T) {
	h := newHarness(t)
	h.text("météo")

	h.engine.Handle(context.Background(), bus.TextEvent("telegram", testSender, "bonjour"))
	msgs := h.sender.take()

	require.Len(t, msgs, 1)
	require.Equal(t, welcomeText, requireButtons(t, msgs[0]).Body)
	require.Equal(t, state.PendingAwaitingCity, h.pending(t))
}

func TestStoreFailureTreatsSenderAsIdle(t *testing.T) {
	sender := &recordingSender{}
	engine, err := New(Dependencies{
		Sender:    sender,
		Store:     failingGetStore{MemoryStore: state.NewMemoryStore()},
		Weather:   &fakeWeather{},
		Food:      &fakeFood{},
		Responder: &fakeResponder{},
	})
	require.NoError(t, err)

	engine.Handle(context.Background(), bus.TextEvent("whatsapp", testSender, "menu"))

	msgs := sender.take()
	require.Len(t, msgs, 1)
	require.Equal(t, mainMenuText, requireButtons(t, msgs[0]).Body)
}

func TestInvalidEventIsDropped(t *testing.T) {
	h := newHarness(t)

	h.engine.Handle(context.Background(), bus.TextEvent("whatsapp", " ", "bonjour"))
	h.engine.Handle(context.Background(), bus.InteractiveEvent("whatsapp", testSender, bus.ReplyButton, ""))

	require.Empty(t, h.sender.take())
}

func TestDispatchPublishesEvents(t *testing.T) {
	events := bus.NewMessageBus()
	t.Cleanup(events.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	observed, unsubscribe := events.SubscribeEvents(ctx, 10)
	t.Cleanup(unsubscribe)

	h := newHarness(t, WithEvents(events))
	h.text("bonjour")

	received := nextEvent(t, observed)
	completed := nextEvent(t, observed)

	require.Equal(t, bus.EventDispatchReceived, received.Type)
	require.Equal(t, string(bus.KindText), received.Payload[bus.PayloadKind])
	require.NotEmpty(t, received.RequestID)

	require.Equal(t, bus.EventDispatchCompleted, completed.Type)
	require.Equal(t, received.RequestID, completed.RequestID)
	require.Equal(t, "intent_greeting", completed.Payload[bus.PayloadRoute])
	require.Equal(t, "greeting", completed.Payload[bus.PayloadIntent])
	require.Equal(t, "1", completed.Payload[bus.PayloadReplies])
	require.Contains(t, completed.Payload, bus.PayloadDuration)
}

func TestDispatchPublishesFailure(t *testing.T) {
	events := bus.NewMessageBus()
	t.Cleanup(events.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	observed, unsubscribe := events.SubscribeEvents(ctx, 10)
	t.Cleanup(unsubscribe)

	h := newHarness(t, WithEvents(events), WithContent(panickingContent{}))
	h.text("news")

	nextEvent(t, observed)
	failed := nextEvent(t, observed)

	require.Equal(t, bus.EventDispatchFailed, failed.Type)
	require.Contains(t, failed.Error, "content unavailable")
	require.Equal(t, "intent_news_query", failed.Payload[bus.PayloadRoute])
}

type recordingObserver struct {
	mu    sync.Mutex
	calls []string
}

func (o *recordingObserver) ObserveProvider(name string, ok bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, fmt.Sprintf("%s:%t", name, ok))
}

func TestProviderOutcomesAreObserved(t *testing.T) {
	observer := &recordingObserver{}
	h := newHarness(t, WithObserver(observer))

	h.text("météo Lyon")
	h.text("12345678")

	require.Equal(t, []string{"weather:true", "food:false"}, observer.calls)
}

func nextEvent(t *testing.T, events <-chan bus.Event) bus.Event {
	t.Helper()

	select {
	case event := <-events:
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for dispatch event")
		return bus.Event{}
	}
}
