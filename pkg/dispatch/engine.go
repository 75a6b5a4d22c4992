// Package dispatch routes inbound events to handlers and keeps every
// conversation moving with a trailing prompt.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"assistbot/pkg/bus"
	"assistbot/pkg/config"
	"assistbot/pkg/content"
	"assistbot/pkg/intent"
	"assistbot/pkg/logger"
	"assistbot/pkg/provider"
	"assistbot/pkg/rich"
	"assistbot/pkg/state"
)

const (
	defaultProviderTimeout = 10 * time.Second
	defaultResultLimit     = 5

	// responderGrace lets the freeform responder hit its own deadline and
	// answer with its fallback before the engine gives up on it.
	responderGrace = 500 * time.Millisecond
)

// ContentSource supplies the curated entertainment texts.
type ContentSource interface {
	Joke() string
	Quote() string
	Fact() string
	News() string
	Movies() string
}

// fallbackResponder is implemented by responders that can produce their
// offline reply without calling upstream.
type fallbackResponder interface {
	Fallback(text string) string
}

// ProviderObserver records provider call outcomes.
type ProviderObserver interface {
	ObserveProvider(provider string, ok bool)
}

// Dependencies are the collaborators an Engine cannot run without.
type Dependencies struct {
	Sender    rich.Sender
	Store     state.Store
	Weather   provider.WeatherLookup
	Food      provider.FoodLookup
	Responder provider.FreeformResponder
}

// Engine is the per-channel dispatch state machine. Events from one sender
// must be handed to Handle one at a time.
type Engine struct {
	sender     rich.Sender
	store      state.Store
	weather    provider.WeatherLookup
	food       provider.FoodLookup
	responder  provider.FreeformResponder
	content    ContentSource
	classifier *intent.Classifier
	events     *bus.MessageBus
	observer   ProviderObserver
	log        *slog.Logger

	providerTimeout time.Duration
	searchLimit     int
	categoryLimit   int

	textRoutes   map[intent.Tag]handler
	buttonRoutes map[string]handler
	listRoutes   []listRoute
}

type handler func(e *Engine, t *turn) error

type listRoute struct {
	prefix string
	handle func(e *Engine, t *turn, id string) error
}

// turn is one inbound event being handled.
type turn struct {
	ctx       context.Context
	event     bus.InboundEvent
	to        string
	key       string
	requestID string
	route     string
	intent    string
	pending   state.Pending
	replies   int
}

type Option func(*Engine)

func WithContent(source ContentSource) Option {
	return func(e *Engine) {
		if source != nil {
			e.content = source
		}
	}
}

func WithClassifier(classifier *intent.Classifier) Option {
	return func(e *Engine) {
		if classifier != nil {
			e.classifier = classifier
		}
	}
}

// WithEvents publishes dispatch observations on the bus.
func WithEvents(events *bus.MessageBus) Option {
	return func(e *Engine) {
		e.events = events
	}
}

func WithObserver(observer ProviderObserver) Option {
	return func(e *Engine) {
		e.observer = observer
	}
}

func WithProviderTimeout(timeout time.Duration) Option {
	return func(e *Engine) {
		if timeout > 0 {
			e.providerTimeout = timeout
		}
	}
}

func WithResultLimits(search int, category int) Option {
	return func(e *Engine) {
		if search > 0 {
			e.searchLimit = search
		}
		if category > 0 {
			e.categoryLimit = category
		}
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log.With("component", "dispatch.engine")
		}
	}
}

// WithConfig applies the dispatch section of the config file.
func WithConfig(cfg config.DispatchConfig) Option {
	return func(e *Engine) {
		WithProviderTimeout(cfg.ProviderTimeout())(e)
		WithResultLimits(cfg.SearchLimit, cfg.CategoryLimit)(e)
	}
}

func New(deps Dependencies, opts ...Option) (*Engine, error) {
	switch {
	case deps.Sender == nil:
		return nil, errors.New("dispatch: sender is required")
	case deps.Store == nil:
		return nil, errors.New("dispatch: state store is required")
	case deps.Weather == nil:
		return nil, errors.New("dispatch: weather lookup is required")
	case deps.Food == nil:
		return nil, errors.New("dispatch: food lookup is required")
	case deps.Responder == nil:
		return nil, errors.New("dispatch: freeform responder is required")
	}

	e := &Engine{
		sender:          deps.Sender,
		store:           deps.Store,
		weather:         deps.Weather,
		food:            deps.Food,
		responder:       deps.Responder,
		content:         content.New(),
		classifier:      intent.Default(),
		log:             slog.Default().With("component", "dispatch.engine"),
		providerTimeout: defaultProviderTimeout,
		searchLimit:     defaultResultLimit,
		categoryLimit:   defaultResultLimit,
		textRoutes:      textRoutes(),
		buttonRoutes:    buttonRoutes(),
		listRoutes:      listRoutes(),
	}
	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// Handle processes one inbound event. It never panics and every valid event
// gets at least one reply.
func (e *Engine) Handle(ctx context.Context, event bus.InboundEvent) {
	if !event.Valid() {
		e.log.Warn("Dropping invalid inbound event", "channel", event.Channel, "sender_id", event.SenderID, "kind", event.Kind)
		return
	}

	t := &turn{
		ctx:       ctx,
		event:     event,
		to:        event.SenderID,
		key:       event.SessionKey(),
		requestID: uuid.NewString(),
	}
	log := e.log.With("request_id", t.requestID, "channel", event.Channel, "sender_id", event.SenderID)
	startedAt := time.Now()

	log.Debug("Dispatching inbound event", "kind", event.Kind, "preview", logger.Preview(previewOf(event)))
	e.publish(t, bus.EventDispatchReceived, startedAt, nil)

	if err := e.run(t); err != nil {
		log.Error("Dispatch failed", "route", t.route, "error", err)
		if sendErr := e.sender.Send(ctx, t.to, rich.Text{Body: genericFailureReply}); sendErr == nil {
			t.replies++
		}
		e.publish(t, bus.EventDispatchFailed, startedAt, err)
		return
	}

	log.Debug("Dispatch completed",
		"route", t.route,
		"intent", t.intent,
		"replies", t.replies,
		"duration_ms", time.Since(startedAt).Milliseconds(),
	)
	e.publish(t, bus.EventDispatchCompleted, startedAt, nil)
}

func (e *Engine) run(t *turn) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	if t.event.Kind == bus.KindInteractive {
		return e.handleInteractive(t)
	}

	return e.handleText(t)
}

func (e *Engine) handleText(t *turn) error {
	body := strings.TrimSpace(t.event.Body)

	current, err := e.store.Get(t.ctx, t.key)
	if err != nil {
		e.log.Warn("Conversation state unavailable, treating sender as idle", "request_id", t.requestID, "error", err)
		current = state.Context{}
	}

	if !current.Idle() {
		t.pending = current.Pending
		defer e.clearPending(t)
		return e.answerPending(t, current.Pending, body)
	}

	return e.routeText(t, body)
}

func (e *Engine) routeText(t *turn, body string) error {
	tag := e.classifier.Classify(body)
	t.intent = tag.String()
	t.route = "intent_" + t.intent

	route, ok := e.textRoutes[tag]
	if !ok {
		route = (*Engine).freeform
	}

	return route(e, t)
}

func (e *Engine) answerPending(t *turn, pending state.Pending, body string) error {
	switch pending {
	case state.PendingAwaitingCity:
		t.route = "pending_city"
		return e.weatherReport(t, body)
	case state.PendingAwaitingFoodQuery:
		t.route = "pending_food_query"
		if intent.IsBarcode(body) {
			return e.barcodeReport(t, body)
		}
		return e.searchProducts(t, body)
	default:
		e.log.Warn("Unknown pending intent, classifying instead", "request_id", t.requestID, "pending", pending)
		return e.routeText(t, body)
	}
}

func (e *Engine) clearPending(t *turn) {
	if err := e.store.Clear(context.WithoutCancel(t.ctx), t.key); err != nil {
		e.log.Warn("Failed to clear conversation state", "request_id", t.requestID, "error", err)
	}
}

func (e *Engine) handleInteractive(t *turn) error {
	id := strings.TrimSpace(t.event.SelectionID)

	switch t.event.ReplyKind {
	case bus.ReplyButton:
		t.route = "button_" + id
		if route, ok := e.buttonRoutes[id]; ok {
			return route(e, t)
		}
	case bus.ReplyList:
		for _, route := range e.listRoutes {
			if rest, ok := strings.CutPrefix(id, route.prefix); ok && rest != "" {
				t.route = "list_" + strings.TrimSuffix(route.prefix, "_")
				return route.handle(e, t, rest)
			}
		}
	}

	t.route = "unknown_option"
	return e.reply(t, unknownOptionReply)
}

func (e *Engine) send(t *turn, msg rich.Message) error {
	if err := e.sender.Send(t.ctx, t.to, msg); err != nil {
		return fmt.Errorf("send %s reply: %w", msg.Kind(), err)
	}
	t.replies++

	return nil
}

func (e *Engine) reply(t *turn, body string) error {
	return e.send(t, rich.Text{Body: body})
}

// replyThenOffer sends a result text followed by the trailing prompt.
func (e *Engine) replyThenOffer(t *turn, body string, prompt rich.ButtonPrompt) error {
	if err := e.reply(t, body); err != nil {
		return err
	}

	return e.send(t, prompt)
}

func (e *Engine) setPending(t *turn, pending state.Pending) error {
	if err := e.store.SetPending(t.ctx, t.key, pending, nil); err != nil {
		return fmt.Errorf("set pending %s: %w", pending, err)
	}
	t.pending = pending

	return nil
}

// callProvider bounds a provider call by the provider timeout. A call that
// outlives it, or panics, counts as a failure.
func callProvider[T any](e *Engine, t *turn, name string, call func(context.Context) provider.Result[T]) provider.Result[T] {
	return boundedCall(e, t, name, e.providerTimeout, call, func() provider.Result[T] {
		return provider.Failure[T]("")
	})
}

// boundedCall runs call under timeout and substitutes late() when the call
// panics or does not return in time.
func boundedCall[T any](e *Engine, t *turn, name string, timeout time.Duration, call func(context.Context) provider.Result[T], late func() provider.Result[T]) provider.Result[T] {
	ctx, cancel := context.WithTimeout(t.ctx, timeout)
	defer cancel()

	done := make(chan provider.Result[T], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				e.log.Error("Provider panicked", "request_id", t.requestID, "provider", name, "panic", fmt.Sprint(r))
				done <- late()
			}
		}()
		done <- call(ctx)
	}()

	var result provider.Result[T]
	select {
	case result = <-done:
	case <-ctx.Done():
		e.log.Warn("Provider call timed out", "request_id", t.requestID, "provider", name, "timeout", timeout)
		result = late()
	}

	if e.observer != nil {
		e.observer.ObserveProvider(name, result.OK)
	}

	return result
}

func (e *Engine) publish(t *turn, eventType bus.EventType, startedAt time.Time, err error) {
	if e.events == nil {
		return
	}

	payload := map[string]string{
		bus.PayloadKind: string(t.event.Kind),
	}
	if eventType != bus.EventDispatchReceived {
		payload[bus.PayloadRoute] = t.route
		payload[bus.PayloadReplies] = strconv.Itoa(t.replies)
		payload[bus.PayloadDuration] = strconv.FormatInt(time.Since(startedAt).Milliseconds(), 10)
		if t.intent != "" {
			payload[bus.PayloadIntent] = t.intent
		}
		if t.pending != state.PendingNone {
			payload[bus.PayloadPending] = string(t.pending)
		}
	}

	event := bus.Event{
		Type:      eventType,
		Channel:   t.event.Channel,
		SenderID:  t.event.SenderID,
		RequestID: t.requestID,
		Payload:   payload,
	}
	if err != nil {
		event.Error = err.Error()
	}

	e.events.PublishEvent(context.WithoutCancel(t.ctx), event)
}

func previewOf(event bus.InboundEvent) string {
	if event.Kind == bus.KindInteractive {
		return string(event.ReplyKind) + ":" + event.SelectionID
	}

	return event.Body
}
