package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"assistbot/pkg/bus"
	"assistbot/pkg/channel"
	"assistbot/pkg/config"
	"assistbot/pkg/dispatch"
	"assistbot/pkg/metrics"
	"assistbot/pkg/provider"
	"assistbot/pkg/rich"
	"assistbot/pkg/state"
)

const (
	defaultStatusHost = "0.0.0.0"
	defaultStatusPort = 3000

	healthInterval = 30 * time.Second
)

// Dependencies are the collaborators shared by every channel engine.
type Dependencies struct {
	Store     state.Store
	Weather   provider.WeatherLookup
	Food      provider.FoodLookup
	Responder provider.FreeformResponder
}

type healthChecker interface {
	Health(ctx context.Context) error
}

type Service struct {
	cfg      *config.Config
	log      *slog.Logger
	bus      *bus.MessageBus
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	health   healthChecker
	channels []channel.Adapter
	engines  map[string]*dispatch.Engine
	senders  *senderQueues

	mu                sync.RWMutex
	startedAt         time.Time
	responderLastOKAt time.Time
	responderLastErr  string
	channelStates     map[string]channelState
}

// Option customizes a Service.
type Option func(*serviceOptions)

type serviceOptions struct {
	registry *prometheus.Registry
}

// WithRegistry registers collectors on registry instead of a fresh one.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(o *serviceOptions) {
		o.registry = registry
	}
}

type channelState struct {
	Running bool   `json:"running"`
	Error   string `json:"error,omitempty"`
}

type statusResponse struct {
	Status            string                  `json:"status"`
	UptimeSeconds     int64                   `json:"uptime_seconds"`
	ResponderLastOKAt string                  `json:"responder_last_ok_at,omitempty"`
	ResponderLastErr  string                  `json:"responder_last_error,omitempty"`
	ActiveSenders     int                     `json:"active_senders"`
	Channels          map[string]channelState `json:"channels"`
}

func NewService(cfg *config.Config, adapters []channel.Adapter, deps Dependencies, log *slog.Logger, opts ...Option) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if len(adapters) == 0 {
		return nil, errors.New("at least one channel adapter is required")
	}
	if log == nil {
		log = slog.Default()
	}

	options := serviceOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	if options.registry == nil {
		options.registry = prometheus.NewRegistry()
	}

	collectors := metrics.New(options.registry)
	svc := &Service{
		cfg:           cfg,
		log:           log.With("component", "gateway.service"),
		bus:           bus.NewMessageBus(),
		metrics:       collectors,
		gatherer:      options.registry,
		channels:      adapters,
		engines:       make(map[string]*dispatch.Engine, len(adapters)),
		channelStates: make(map[string]channelState, len(adapters)),
	}
	if checker, ok := deps.Responder.(healthChecker); ok {
		svc.health = checker
	}

	for _, adapter := range adapters {
		name := adapter.Name()
		if _, exists := svc.engines[name]; exists {
			return nil, fmt.Errorf("duplicate channel %q", name)
		}

		messenger := rich.NewMessenger(adapter.Transport(), rich.WithLogger(log), rich.WithObserver(collectors))
		engine, err := dispatch.New(dispatch.Dependencies{
			Sender:    messenger,
			Store:     deps.Store,
			Weather:   deps.Weather,
			Food:      deps.Food,
			Responder: deps.Responder,
		},
			dispatch.WithConfig(cfg.Dispatch),
			dispatch.WithEvents(svc.bus),
			dispatch.WithObserver(collectors),
			dispatch.WithLogger(log),
		)
		if err != nil {
			return nil, fmt.Errorf("initialize %s engine: %w", name, err)
		}

		svc.engines[name] = engine
		svc.channelStates[name] = channelState{}
	}
	svc.senders = newSenderQueues(svc.dispatch)

	return svc, nil
}

func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	s.startedAt = time.Now().UTC()
	s.mu.Unlock()

	if err := s.checkResponderHealth(ctx); err != nil {
		s.log.Warn("Freeform responder unhealthy at startup", "error", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	metricEvents, unsubscribeMetrics := s.bus.SubscribeEvents(runCtx, 256)
	defer unsubscribeMetrics()
	go s.metrics.Consume(runCtx, metricEvents)
	go observeDispatchEvents(runCtx, s.bus)

	serverErrors := make(chan error, 1)
	go s.runStatusServer(runCtx, serverErrors)

	go s.monitorResponder(runCtx)

	consumed := make(chan struct{})
	go func() {
		defer close(consumed)
		s.consumeInbound(runCtx)
	}()

	errCh := make(chan error, len(s.channels))
	for _, adapter := range s.channels {
		s.setChannelState(adapter.Name(), channelState{Running: true})

		go func() {
			err := adapter.Run(runCtx, s.accept)
			s.setChannelState(adapter.Name(), channelState{Running: false, Error: errorString(err)})
			if err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("run %s channel: %w", adapter.Name(), err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serverErrors:
	case runErr = <-errCh:
	}

	cancel()
	<-consumed
	s.senders.Wait()
	s.bus.Close()

	return runErr
}

// accept is the channel handler: it queues an event for dispatch.
func (s *Service) accept(ctx context.Context, event bus.InboundEvent) {
	if !event.Valid() {
		s.log.Warn("Dropping invalid inbound event", "channel", event.Channel, "sender_id", event.SenderID)
		return
	}

	if !s.bus.PublishInbound(ctx, event) {
		s.log.Warn("Inbound queue unavailable; event dropped", "channel", event.Channel, "sender_id", event.SenderID)
	}
}

func (s *Service) consumeInbound(ctx context.Context) {
	for {
		event, ok := s.bus.ConsumeInbound(ctx)
		if !ok {
			return
		}
		s.senders.Enqueue(ctx, event)
	}
}

func (s *Service) dispatch(ctx context.Context, event bus.InboundEvent) {
	engine, ok := s.engines[event.Channel]
	if !ok {
		s.log.Warn("No engine for channel", "channel", event.Channel)
		return
	}

	engine.Handle(ctx, event)
}

// Router serves health, readiness, metrics and every mounted channel route.
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleHealth)
	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	for _, adapter := range s.channels {
		if mounter, ok := adapter.(channel.Mounter); ok {
			mounter.Mount(r)
		}
	}

	return r
}

func (s *Service) runStatusServer(ctx context.Context, errCh chan<- error) {
	host := strings.TrimSpace(s.cfg.Gateway.Host)
	if host == "" {
		host = defaultStatusHost
	}

	port := s.cfg.Gateway.Port
	if port <= 0 {
		port = defaultStatusPort
	}

	addr := host + ":" + strconv.Itoa(port)
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.log.Info("Gateway server started", "address", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		errCh <- fmt.Errorf("start gateway server: %w", err)
	}
}

func (s *Service) monitorResponder(ctx context.Context) {
	ticker := time.NewTicker(healthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = s.checkResponderHealth(ctx)
		}
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondStatus(w, http.StatusOK, "ok")
}

func (s *Service) handleReady(w http.ResponseWriter, _ *http.Request) {
	statusCode := http.StatusOK
	status := "ready"
	if !s.isReady() {
		statusCode = http.StatusServiceUnavailable
		status = "not_ready"
	}

	s.respondStatus(w, statusCode, status)
}

func (s *Service) respondStatus(w http.ResponseWriter, statusCode int, status string) {
	payload := s.currentStatus(status)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error("Failed to write status response", "error", err)
	}
}

func (s *Service) currentStatus(status string) statusResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()

	uptime := int64(0)
	if !s.startedAt.IsZero() {
		uptime = int64(time.Since(s.startedAt).Seconds())
	}

	channels := make(map[string]channelState, len(s.channelStates))
	for name, current := range s.channelStates {
		channels[name] = current
	}

	responderLastOK := ""
	if !s.responderLastOKAt.IsZero() {
		responderLastOK = s.responderLastOKAt.Format(time.RFC3339)
	}

	active := 0
	if s.senders != nil {
		active = s.senders.Active()
	}

	return statusResponse{
		Status:            status,
		UptimeSeconds:     uptime,
		ResponderLastOKAt: responderLastOK,
		ResponderLastErr:  s.responderLastErr,
		ActiveSenders:     active,
		Channels:          channels,
	}
}

// isReady reports whether at least one channel runs and the responder is healthy.
// A responder without a health check counts as healthy.
func (s *Service) isReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	anyRunning := false
	for _, current := range s.channelStates {
		if current.Running {
			anyRunning = true
			break
		}
	}

	if !anyRunning {
		return false
	}

	if s.health == nil {
		return true
	}

	return !s.responderLastOKAt.IsZero() && s.responderLastErr == ""
}

func (s *Service) checkResponderHealth(ctx context.Context) error {
	if s.health == nil {
		return nil
	}

	if err := s.health.Health(ctx); err != nil {
		s.mu.Lock()
		s.responderLastErr = err.Error()
		s.mu.Unlock()
		return fmt.Errorf("responder health check failed: %w", err)
	}

	s.mu.Lock()
	s.responderLastErr = ""
	s.responderLastOKAt = time.Now().UTC()
	s.mu.Unlock()

	return nil
}

func (s *Service) setChannelState(name string, current channelState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channelStates[name] = current
}

func errorString(err error) string {
	if err == nil {
		return ""
	}

	return err.Error()
}
