package gateway

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"assistbot/pkg/bus"
	"assistbot/pkg/channel"
	"assistbot/pkg/config"
	"assistbot/pkg/provider"
	"assistbot/pkg/rich"
	"assistbot/pkg/state"
)

type sentMessage struct {
	to   string
	kind rich.Kind
	body string
}

type recordingTransport struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (r *recordingTransport) record(to string, kind rich.Kind, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentMessage{to: to, kind: kind, body: body})
	return nil
}

func (r *recordingTransport) SendText(_ context.Context, to string, body string) error {
	return r.record(to, rich.KindText, body)
}

func (r *recordingTransport) SendButtons(_ context.Context, to string, prompt rich.ButtonPrompt) error {
	return r.record(to, rich.KindButtons, prompt.Body)
}

func (r *recordingTransport) SendList(_ context.Context, to string, prompt rich.ListPrompt) error {
	return r.record(to, rich.KindList, prompt.Body)
}

func (r *recordingTransport) sentTo(to string) []sentMessage {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]sentMessage, 0, len(r.sent))
	for _, msg := range r.sent {
		if msg.to == to {
			out = append(out, msg)
		}
	}
	return out
}

func (r *recordingTransport) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

type scriptedAdapter struct {
	name      string
	inbound   []bus.InboundEvent
	transport *recordingTransport
	done      chan struct{}
}

func newScriptedAdapter(name string, inbound ...bus.InboundEvent) *scriptedAdapter {
	return &scriptedAdapter{
		name:      name,
		inbound:   inbound,
		transport: &recordingTransport{},
		done:      make(chan struct{}),
	}
}

func (a *scriptedAdapter) Name() string {
	return a.name
}

func (a *scriptedAdapter) Transport() rich.Transport {
	return a.transport
}

func (a *scriptedAdapter) Run(ctx context.Context, handler channel.Handler) error {
	for _, event := range a.inbound {
		handler(ctx, event)
	}

	close(a.done)

	<-ctx.Done()
	return nil
}

type fakeResponder struct {
	mu        sync.Mutex
	healthErr error
}

func (r *fakeResponder) Respond(_ context.Context, _ string, text string) provider.Result[string] {
	return provider.Success("🤖 " + text)
}

func (r *fakeResponder) Health(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.healthErr
}

func (r *fakeResponder) setHealthErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.healthErr = err
}

type fakeWeather struct{}

func (fakeWeather) ResolveCity(text string) (string, bool) {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return "", false
	}
	return fields[len(fields)-1], true
}

func (fakeWeather) Fetch(_ context.Context, city string) provider.Result[string] {
	return provider.Success("🌤️ Météo à " + city + " : 21°C")
}

type fakeFood struct{}

func (fakeFood) ExtractBarcode(string) (string, bool) { return "", false }
func (fakeFood) ExtractQuery(string) (string, bool)   { return "", false }

func (fakeFood) ByBarcode(context.Context, string) provider.Result[string] {
	return provider.Failure[string]("❌ Produit non trouvé")
}

func (fakeFood) ByName(context.Context, string, int) provider.Result[[]provider.DisplayItem] {
	return provider.Failure[[]provider.DisplayItem]("")
}

func (fakeFood) ByCategory(context.Context, string, int) provider.Result[[]provider.DisplayItem] {
	return provider.Failure[[]provider.DisplayItem]("")
}

func (fakeFood) Categories() []provider.Category { return nil }

func testDependencies() Dependencies {
	return Dependencies{
		Store:     state.NewMemoryStore(),
		Weather:   fakeWeather{},
		Food:      fakeFood{},
		Responder: &fakeResponder{},
	}
}

func startService(t *testing.T, svc *Service) (context.CancelFunc, <-chan error) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- svc.Run(ctx)
	}()

	t.Cleanup(cancel)
	return cancel, errCh
}

func waitStopped(t *testing.T, errCh <-chan error) {
	t.Helper()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for service run to exit")
	}
}

func TestGatewayServiceRunE2EKeepsConversationStatePerSender(t *testing.T) {
	adapter := newScriptedAdapter("whatsapp",
		bus.TextEvent("whatsapp", "100", "bonjour"),
		bus.TextEvent("whatsapp", "100", "météo"),
		bus.TextEvent("whatsapp", "200", "bonjour"),
		bus.TextEvent("whatsapp", "100", "Lyon"),
	)

	cfg := &config.Config{Gateway: config.GatewayConfig{Host: "127.0.0.1", Port: freeTCPPort(t)}}
	svc, err := NewService(cfg, []channel.Adapter{adapter}, testDependencies(), nil)
	require.NoError(t, err)

	cancel, errCh := startService(t, svc)

	select {
	case <-adapter.done:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for adapter scripted messages")
	}

	require.Eventually(t, func() bool { return adapter.transport.count() == 5 }, 3*time.Second, 10*time.Millisecond)

	cancel()
	waitStopped(t, errCh)

	first := adapter.transport.sentTo("100")
	require.Len(t, first, 4)
	require.Equal(t, rich.KindButtons, first[0].kind)
	require.Equal(t, rich.KindButtons, first[1].kind)
	require.Equal(t, rich.KindText, first[2].kind)
	require.Equal(t, "🌤️ Météo à Lyon : 21°C", first[2].body)
	require.Equal(t, rich.KindButtons, first[3].kind)

	second := adapter.transport.sentTo("200")
	require.Len(t, second, 1)
	require.Equal(t, rich.KindButtons, second[0].kind)
}

func TestGatewayServiceRunE2ERoutesRepliesToTheOriginatingChannel(t *testing.T) {
	whatsapp := newScriptedAdapter("whatsapp", bus.TextEvent("whatsapp", "100", "bonjour"))
	telegram := newScriptedAdapter("telegram", bus.TextEvent("telegram", "100", "comment vas-tu"))

	cfg := &config.Config{Gateway: config.GatewayConfig{Host: "127.0.0.1", Port: freeTCPPort(t)}}
	svc, err := NewService(cfg, []channel.Adapter{whatsapp, telegram}, testDependencies(), nil)
	require.NoError(t, err)

	cancel, errCh := startService(t, svc)

	require.Eventually(t, func() bool {
		return whatsapp.transport.count() == 1 && telegram.transport.count() == 2
	}, 3*time.Second, 10*time.Millisecond)

	cancel()
	waitStopped(t, errCh)

	replies := telegram.transport.sentTo("100")
	require.Equal(t, "🤖 comment vas-tu", replies[0].body)
	require.Equal(t, rich.KindButtons, replies[1].kind)
}

func TestGatewayServiceReadyzTransitionsOnResponderHealthRecovery(t *testing.T) {
	port := freeTCPPort(t)
	responder := &fakeResponder{}
	deps := testDependencies()
	deps.Responder = responder

	cfg := &config.Config{Gateway: config.GatewayConfig{Host: "127.0.0.1", Port: port}}
	svc, err := NewService(cfg, []channel.Adapter{newScriptedAdapter("whatsapp")}, deps, nil)
	require.NoError(t, err)

	cancel, errCh := startService(t, svc)

	readyURL := fmt.Sprintf("http://127.0.0.1:%d/readyz", port)
	require.Equal(t, http.StatusOK, waitHTTPStatus(t, readyURL, 2*time.Second))

	responder.setHealthErr(fmt.Errorf("temporary responder outage"))
	require.Error(t, svc.checkResponderHealth(context.Background()))
	require.Equal(t, http.StatusServiceUnavailable, waitHTTPStatus(t, readyURL, 2*time.Second))

	responder.setHealthErr(nil)
	require.NoError(t, svc.checkResponderHealth(context.Background()))
	require.Equal(t, http.StatusOK, waitHTTPStatus(t, readyURL, 2*time.Second))

	cancel()
	waitStopped(t, errCh)
}

func waitHTTPStatus(t *testing.T, url string, timeout time.Duration) int {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for {
		response, err := http.Get(url)
		if err == nil {
			statusCode := response.StatusCode
			require.NoError(t, response.Body.Close())
			return statusCode
		}

		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s: %v", url, err)
		}

		time.Sleep(25 * time.Millisecond)
	}
}

func freeTCPPort(t *testing.T) int {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	addr, ok := listener.Addr().(*net.TCPAddr)
	require.True(t, ok)
	return addr.Port
}
