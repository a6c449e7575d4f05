package testutil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/jmlago/prediction-arb/pkg/types"
)

// MockFeedServer is a WebSocket server speaking the feed's envelope
// protocol, for driving the feed client in tests.
type MockFeedServer struct {
	*httptest.Server
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns []*websocket.Conn
}

// NewMockFeedServer starts a mock feed server. Callers own shutdown via
// Close.
func NewMockFeedServer() *MockFeedServer {
	s := &MockFeedServer{}

	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		s.mu.Lock()
		s.conns = append(s.conns, conn)
		s.mu.Unlock()
	}))

	return s
}

// WSURL returns the ws:// address clients should dial.
func (s *MockFeedServer) WSURL() string {
	return "ws" + strings.TrimPrefix(s.Server.URL, "http")
}

type wireEnvelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func (s *MockFeedServer) send(msgType string, payload interface{}) error {
	data, err := json.Marshal(wireEnvelope{Type: msgType, Data: payload})
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, conn := range s.conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return err
		}
	}
	return nil
}

// SendTick broadcasts a tick envelope to all connected clients.
func (s *MockFeedServer) SendTick(tick *types.PriceTick) error {
	return s.send("tick", tick)
}

// SendSettlement broadcasts a settlement envelope.
func (s *MockFeedServer) SendSettlement(event *types.SettlementEvent) error {
	return s.send("settlement", event)
}

// SendMarket broadcasts a market metadata envelope.
func (s *MockFeedServer) SendMarket(meta *types.MarketMeta) error {
	return s.send("market", meta)
}

// SendRaw broadcasts an arbitrary payload, e.g. malformed JSON.
func (s *MockFeedServer) SendRaw(message []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, conn := range s.conns {
		if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return err
		}
	}
	return nil
}

// ConnCount reports how many clients have completed the handshake.
// Tests poll this before broadcasting: the dial returning on the client
// side does not guarantee the server goroutine has registered the
// connection yet.
func (s *MockFeedServer) ConnCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Close drops all connections and stops the server.
func (s *MockFeedServer) Close() {
	s.mu.Lock()
	for _, conn := range s.conns {
		conn.Close()
	}
	s.conns = nil
	s.mu.Unlock()

	s.Server.Close()
}
