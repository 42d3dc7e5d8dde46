package gateway

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/chebykinn/browser-code/internal/agent"
	"github.com/chebykinn/browser-code/internal/bus"
	"github.com/chebykinn/browser-code/internal/config"
	"github.com/chebykinn/browser-code/internal/providers"
	"github.com/chebykinn/browser-code/internal/vfs"
	"github.com/chebykinn/browser-code/pkg/protocol"
)

// fakePageDriver is a minimal vfs.PageDriver: the gateway's own method
// handlers never touch the DOM directly, they just need a VFS that
// answers without erroring.
type fakePageDriver struct{}

func (fakePageDriver) FetchHTML(ctx context.Context) (string, string, map[string]string, error) {
	return "", "<p>hi</p>", map[string]string{}, nil
}
func (fakePageDriver) ApplyHTML(ctx context.Context, head, body string, attrs map[string]string) error {
	return nil
}
func (fakePageDriver) Screenshot(ctx context.Context) (string, error) {
	return "data:image/png;base64,AAAA", nil
}

type fakeDomainStore struct{ domains map[string]*vfs.DomainRecord }

func newFakeDomainStore() *fakeDomainStore {
	return &fakeDomainStore{domains: make(map[string]*vfs.DomainRecord)}
}
func (s *fakeDomainStore) GetDomain(ctx context.Context, domain string) (*vfs.DomainRecord, error) {
	return s.domains[domain], nil
}
func (s *fakeDomainStore) PutDomain(ctx context.Context, domain string, rec *vfs.DomainRecord) error {
	s.domains[domain] = rec
	return nil
}
func (s *fakeDomainStore) DeleteDomain(ctx context.Context, domain string) error {
	delete(s.domains, domain)
	return nil
}
func (s *fakeDomainStore) ListDomains(ctx context.Context) ([]string, error) {
	var out []string
	for d := range s.domains {
		out = append(out, d)
	}
	return out, nil
}

// fakeExecutor stands in for the browser Controller's main-world bridge.
type fakeExecutor struct{ lastCode string }

func (f *fakeExecutor) ExecuteInMainWorld(code string) (interface{}, error) {
	f.lastCode = code
	return map[string]interface{}{"ok": true}, nil
}

// fakeProvider answers every Chat call with an immediate, tool-free
// "stop" so a started run finishes in one turn without a network call.
type fakeProvider struct{}

func (fakeProvider) Chat(ctx context.Context, req providers.ChatRequest) (*providers.ChatResponse, error) {
	return &providers.ChatResponse{Content: "done", FinishReason: "stop"}, nil
}
func (fakeProvider) ChatStream(ctx context.Context, req providers.ChatRequest, onChunk func(providers.StreamChunk)) (*providers.ChatResponse, error) {
	onChunk(providers.StreamChunk{Content: "done", Done: true})
	return &providers.ChatResponse{Content: "done", FinishReason: "stop"}, nil
}
func (fakeProvider) DefaultModel() string { return "fake-model" }
func (fakeProvider) Name() string         { return "fake" }

// newTestServer wires a real gateway.Server over a real agent.Loop bound
// to one tab's TabRuntime, all built from in-memory fakes, and starts it
// on a random localhost port.
func newTestServer(t *testing.T, ctx context.Context) (addr string, server *Server) {
	t.Helper()

	store := newFakeDomainStore()
	page := vfs.NewPageDocument(fakePageDriver{})
	vfsInst := vfs.New(store, page, vfs.ActivePage{Domain: "example.com", URLPath: "/"})

	rt := agent.NewTabRuntime(config.AgentConfig{Model: "fake-model", MaxTokens: 1024}, fakeProvider{}, vfsInst, &fakeExecutor{})

	eventBus := bus.New()
	loop := agent.NewLoop(eventBus, 10)
	loop.BindTab(defaultTestTabID, rt)

	cfg := &config.Config{Gateway: config.GatewayConfig{RateLimitRPM: 0}}
	server = NewServer(cfg, eventBus, loop)

	addr, start := StartTestServer(server, ctx)
	go start()
	return addr, server
}

const defaultTestTabID = "default"

func dialTestServer(t *testing.T, addr string) *websocket.Conn {
	t.Helper()
	var conn *websocket.Conn
	var err error
	for i := 0; i < 50; i++ {
		conn, _, err = websocket.DefaultDialer.Dial("ws://"+addr+"/ws", nil)
		if err == nil {
			return conn
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.NoError(t, err)
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, method, tabID string, params interface{}) protocol.ResponseFrame {
	t.Helper()
	var raw json.RawMessage
	if params != nil {
		b, err := json.Marshal(params)
		require.NoError(t, err)
		raw = b
	}
	req := protocol.RequestFrame{ID: "req-1", Method: method, TabID: tabID, Params: raw}
	require.NoError(t, conn.WriteJSON(req))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var resp protocol.ResponseFrame
	require.NoError(t, conn.ReadJSON(&resp))
	return resp
}

func TestGatewayConnectHandshake(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	addr, _ := newTestServer(t, ctx)

	conn := dialTestServer(t, addr)
	defer conn.Close()

	resp := roundTrip(t, conn, protocol.MethodConnect, "", nil)
	require.Nil(t, resp.Error)
	result, ok := resp.Result.(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, float64(protocol.ProtocolVersion), result["protocolVersion"])
}

func TestGatewayHealthOverWebSocket(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	addr, _ := newTestServer(t, ctx)

	conn := dialTestServer(t, addr)
	defer conn.Close()

	resp := roundTrip(t, conn, protocol.MethodHealth, "", nil)
	require.Nil(t, resp.Error)
}

func TestGatewayUnknownMethodReturnsError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	addr, _ := newTestServer(t, ctx)

	conn := dialTestServer(t, addr)
	defer conn.Close()

	resp := roundTrip(t, conn, "bogus.method", "", nil)
	require.NotNil(t, resp.Error)
	require.Equal(t, "unknown_method", resp.Error.Kind)
}

func TestGatewayGetModeDefaultsToPlan(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	addr, _ := newTestServer(t, ctx)

	conn := dialTestServer(t, addr)
	defer conn.Close()

	resp := roundTrip(t, conn, protocol.MethodGetMode, defaultTestTabID, nil)
	require.Nil(t, resp.Error)
	result, ok := resp.Result.(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "plan", result["mode"])
	require.Equal(t, false, result["awaitingApproval"])
}

func TestGatewayChatMessageStartsRunAndEmitsDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	addr, _ := newTestServer(t, ctx)

	conn := dialTestServer(t, addr)
	defer conn.Close()

	resp := roundTrip(t, conn, protocol.MethodChatMessage, defaultTestTabID, map[string]string{"content": "hello"})
	require.Nil(t, resp.Error)

	// The chat run is async; drain events off the socket until AGENT_DONE
	// or AGENT_ERROR, or the deadline trips.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var evt protocol.EventFrame
		require.NoError(t, conn.ReadJSON(&evt))
		if evt.Name == protocol.EventAgentDone {
			return
		}
		if evt.Name == protocol.EventAgentError {
			t.Fatalf("unexpected agent error event: %+v", evt.Payload)
		}
	}
}

func TestGatewayGetVFSFilesForUnboundTabErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	addr, _ := newTestServer(t, ctx)

	conn := dialTestServer(t, addr)
	defer conn.Close()

	resp := roundTrip(t, conn, protocol.MethodGetVFSFiles, "no-such-tab", nil)
	require.NotNil(t, resp.Error)
}

func TestGatewayExecuteInMainWorldReachesExecutor(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	addr, _ := newTestServer(t, ctx)

	conn := dialTestServer(t, addr)
	defer conn.Close()

	resp := roundTrip(t, conn, protocol.MethodExecuteInMainWorld, defaultTestTabID, map[string]string{"code": "1+1"})
	require.Nil(t, resp.Error)
	result, ok := resp.Result.(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, true, result["success"])
}
